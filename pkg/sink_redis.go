package stats

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pion/ion-stats/pkg/logger"
	"github.com/redis/go-redis/v9"
)

const redisPublishTimeout = 2 * time.Second

// RedisSink publishes analytics events as JSON on a redis channel.
// Fire and forget: publish errors are logged and the event is dropped.
type RedisSink struct {
	client  *redis.Client
	channel string
	log     logger.Logger
}

func NewRedisSink(conf RedisSinkConfig) *RedisSink {
	channel := conf.Channel
	if channel == "" {
		channel = "ion-stats:events"
	}
	return &RedisSink{
		client: redis.NewClient(&redis.Options{
			Addr:     conf.Addr,
			Password: conf.Password,
			DB:       conf.DB,
		}),
		channel: channel,
		log:     logger.GetLogger().WithName("analytics").WithValues("sink", "redis"),
	}
}

func (s *RedisSink) SendEvent(name string, value float64) {
	metricsEventEmitted()

	payload, err := json.Marshal(newAnalyticsEvent(name, value))
	if err != nil {
		s.log.Error(err, "dropping unmarshalable analytics event", "name", name)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), redisPublishTimeout)
	defer cancel()
	if err := s.client.Publish(ctx, s.channel, payload).Err(); err != nil {
		s.log.Error(err, "dropping analytics event", "name", name)
	}
}

func (s *RedisSink) Close() error {
	return s.client.Close()
}
