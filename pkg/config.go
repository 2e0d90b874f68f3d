package stats

import (
	"fmt"
	"strings"

	"github.com/dgrijalva/jwt-go"
	"github.com/pion/ion-stats/pkg/logger"
)

var log = logger.GetLogger().WithName("stats")

// RootConfig is the root config read in from the config file
type RootConfig struct {
	Signal SignalConfig
	Stats  StatsConfig
	Sink   SinkConfig
	Log    LogConfig
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

// Endpoint public endpoint sessions connect their feeds to
func (c *RootConfig) Endpoint() string {
	port := strings.Split(c.Signal.HTTPAddr, ":")[1]

	if c.Signal.Key != "" && c.Signal.Cert != "" {
		return fmt.Sprintf("wss://%v:%v/session", c.Signal.FQDN, port)
	}
	return fmt.Sprintf("ws://%v:%v/session", c.Signal.FQDN, port)
}

// SignalConfig params for the http/websocket feed listener
type SignalConfig struct {
	FQDN     string
	Key      string
	Cert     string
	HTTPAddr string
	Auth     AuthConfig
}

// AuthConfig params for JWT token authentication on feed connections
type AuthConfig struct {
	Enabled bool
	Key     string
	KeyType string
}

func (a AuthConfig) keyFunc(t *jwt.Token) (interface{}, error) {
	switch a.KeyType {
	//TODO: add more support for keytypes here
	default:
		return []byte(a.Key), nil
	}
}

// StatsConfig controls the averaging engine. A WindowSize of zero or less
// disables average stats reporting entirely.
type StatsConfig struct {
	WindowSize int `mapstructure:"windowsize"`
	// Whether the environment can report round-trip times and bandwidth.
	// Both can be flipped at runtime through the HTTP API.
	RTTSupported       bool `mapstructure:"rtt"`
	BandwidthSupported bool `mapstructure:"bandwidth"`
}

// SinkConfig selects where analytics events go
type SinkConfig struct {
	// one of "log", "websocket", "redis"
	Kind      string              `mapstructure:"kind"`
	Websocket WebsocketSinkConfig `mapstructure:"websocket"`
	Redis     RedisSinkConfig     `mapstructure:"redis"`
}

type WebsocketSinkConfig struct {
	URL string `mapstructure:"url"`
}

type RedisSinkConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Channel  string `mapstructure:"channel"`
}
