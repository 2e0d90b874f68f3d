package stats

import (
	"fmt"

	"github.com/pborman/uuid"
	"github.com/pion/ion-stats/pkg/logger"
	"github.com/pion/ion-stats/pkg/types"
	"google.golang.org/protobuf/types/known/timestamppb"
)

// NewSink builds the analytics sink selected by config. An empty kind
// falls back to the log sink.
func NewSink(conf SinkConfig) (Sink, error) {
	switch conf.Kind {
	case "", "log":
		return NewLogSink(), nil
	case "websocket":
		return NewWebsocketSink(conf.Websocket)
	case "redis":
		return NewRedisSink(conf.Redis), nil
	default:
		return nil, fmt.Errorf("unknown sink kind %q", conf.Kind)
	}
}

func newAnalyticsEvent(name string, value float64) types.AnalyticsEvent {
	return types.AnalyticsEvent{
		ID:        uuid.New(),
		Name:      name,
		Value:     value,
		TimeStamp: timestamppb.Now(),
	}
}

// LogSink writes analytics events to the structured log. Default sink.
type LogSink struct {
	log logger.Logger
}

func NewLogSink() *LogSink {
	return &LogSink{log: logger.GetLogger().WithName("analytics")}
}

func (s *LogSink) SendEvent(name string, value float64) {
	metricsEventEmitted()
	s.log.Info("event", "name", name, "value", value)
}
