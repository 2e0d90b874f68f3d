package cmd

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	stats "github.com/pion/ion-stats/pkg"
	"github.com/pion/ion-stats/pkg/logger"
	"github.com/spf13/cobra"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "start an ion-stats agent node",
	RunE:  serverMain,
}

func init() {
	serverCmd.PersistentFlags().StringVarP(&conf.Signal.HTTPAddr, "addr", "a", ":7100", "http listen address")
	serverCmd.PersistentFlags().StringVar(&conf.Signal.Cert, "cert", "", "tls certificate")
	serverCmd.PersistentFlags().StringVar(&conf.Signal.Key, "key", "", "tls priv key")
	serverCmd.PersistentFlags().IntVarP(&conf.Stats.WindowSize, "window", "w", 15, "samples per averaging window (<=0 disables)")
	serverCmd.PersistentFlags().StringVar(&conf.Sink.Kind, "sink", "log", "analytics sink kind (log, websocket, redis)")

	rootCmd.AddCommand(serverCmd)
}

func serverMain(cmd *cobra.Command, args []string) error {
	log := logger.GetLogger().WithName("server")
	log.Info("--- Starting Stats Agent Node ---")

	sink, err := stats.NewSink(conf.Sink)
	if err != nil {
		log.Error(err, "error creating analytics sink")
		return err
	}

	caps := stats.NewConfigCapabilities(conf.Stats.RTTSupported, conf.Stats.BandwidthSupported)

	// Spin up websocket feed server
	sServer, sError := stats.NewSignal(conf.Signal, conf.Stats, caps, sink)
	if conf.Signal.HTTPAddr != "" {
		go sServer.ServeWebsocket()
	}

	// Listen for signals
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case err := <-sError:
			log.Error(err, "error in feed server")
			return err
		case sig := <-sigs:
			log.Info("got signal, beginning shutdown", "signal", sig.String())
			ticker := time.NewTicker(500 * time.Millisecond)
			for {
				active := stats.MetricsGetActiveFeedsCount()
				if active == 0 {
					log.Info("server idle, shutting down")
					return nil
				}
				log.Info("shutdown waiting on feeds", "active", active)
				select {
				case <-ticker.C:
					continue
				case sig = <-sigs:
					log.Info("got second signal: forcing shutdown")
					return nil
				}
			}
		}
	}
}
