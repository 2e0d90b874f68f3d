package cmd

import (
	"fmt"
	"os"

	stats "github.com/pion/ion-stats/pkg"
	"github.com/pion/ion-stats/pkg/logger"
	"github.com/pion/ion-stats/pkg/types"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var replayFile string

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "replay a recorded session trace through the averaging engine",
	Long:  `Reads a YAML trace of session events and feeds it through a real aggregator, emitting windows to the configured sink. Useful for debugging recorded sessions without a live feed.`,
	RunE:  replayMain,
}

func init() {
	replayCmd.PersistentFlags().StringVarP(&replayFile, "file", "f", "", "trace file to replay")
	replayCmd.PersistentFlags().IntVarP(&conf.Stats.WindowSize, "window", "w", 15, "samples per averaging window (<=0 disables)")
	replayCmd.MarkPersistentFlagRequired("file")

	rootCmd.AddCommand(replayCmd)
}

// sessionTrace is the on-disk format for recorded session event streams.
type sessionTrace struct {
	Session types.SessionID     `yaml:"session"`
	Local   types.ParticipantID `yaml:"local"`
	Events  []traceEvent        `yaml:"events"`
}

type traceEvent struct {
	Type        string              `yaml:"type"`
	Participant types.ParticipantID `yaml:"participant,omitempty"`
	RTT         *float64            `yaml:"rtt,omitempty"`
	Direct      bool                `yaml:"direct,omitempty"`
	Stats       *types.LocalStats   `yaml:"stats,omitempty"`
	Mode        *types.ModeStats    `yaml:"mode,omitempty"`
}

func replayMain(cmd *cobra.Command, args []string) error {
	log := logger.GetLogger().WithName("replay")

	raw, err := os.ReadFile(replayFile)
	if err != nil {
		return err
	}

	var trace sessionTrace
	if err := yaml.Unmarshal(raw, &trace); err != nil {
		return fmt.Errorf("parsing trace %s: %w", replayFile, err)
	}

	sink, err := stats.NewSink(conf.Sink)
	if err != nil {
		return err
	}

	caps := stats.NewConfigCapabilities(conf.Stats.RTTSupported, conf.Stats.BandwidthSupported)
	session := stats.NewSessionState(trace.Session, trace.Local)
	reporter := stats.NewAvgStatsReporter(session, caps, sink, conf.Stats.WindowSize)
	defer reporter.Dispose()

	log.Info("replaying trace", "file", replayFile, "session", trace.Session, "events", len(trace.Events))

	for i, ev := range trace.Events {
		switch ev.Type {
		case "local-stats":
			if ev.Stats == nil {
				log.Info("skipping local-stats event without stats", "index", i)
				continue
			}
			session.Events().EmitLocalStats(*ev.Stats)
		case "mode-stats":
			if ev.Mode == nil {
				log.Info("skipping mode-stats event without mode payload", "index", i)
				continue
			}
			session.Events().EmitModeStats(*ev.Mode)
		case "mode-switch":
			session.SetDirect(ev.Direct)
		case "participant-joined":
			session.AddParticipant(ev.Participant)
		case "participant-left":
			session.RemoveParticipant(ev.Participant)
		case "remote-rtt":
			session.Events().EmitRemoteRTT(types.RemoteRTT{
				Participant: ev.Participant,
				RTT:         ev.RTT,
			})
		default:
			log.Info("skipping unknown trace event", "index", i, "type", ev.Type)
		}
	}

	if closer, ok := sink.(interface{ Close() error }); ok {
		return closer.Close()
	}
	return nil
}
