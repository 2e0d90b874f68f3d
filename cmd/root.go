package cmd

import (
	"fmt"
	"os"

	"github.com/mitchellh/go-homedir"
	stats "github.com/pion/ion-stats/pkg"
	"github.com/pion/ion-stats/pkg/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	// Used for flags.
	cfgFile string
	conf    = stats.RootConfig{}

	rootCmd = &cobra.Command{
		Use:   "ion-stats",
		Short: "ion-stats aggregates session connectivity stats into windowed averages",
		Long:  `An agent that consumes session connectivity feeds, keeps windowed metric averages, and emits them to an analytics sink`,
	}
)

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.ionstats.toml)")
}

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
		viper.SetConfigType("toml")
	} else {
		// Find home directory.
		home, err := homedir.Dir()
		if err != nil {
			logger.Errorw("error finding home directory", err)
			os.Exit(1)
		}

		// Search config in home directory with name ".ionstats" (without extension).
		viper.AddConfigPath(home)
		viper.SetConfigName(".ionstats")
	}
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Println("Using config file:", viper.ConfigFileUsed())
	}

	if err := viper.GetViper().Unmarshal(&conf); err != nil {
		logger.Errorw("config file load failed", err, "file", cfgFile)
		os.Exit(1)
	}

	if conf.Log.Level != "" {
		logger.Init(conf.Log.Level)
	}
}
