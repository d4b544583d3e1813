// Package config holds the bridge's process configuration and the
// user-supplied unit selection settings.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

// Config holds all bridge configuration.
// Tags:
//
//	env: Environment variable name
//	envDefault: Default value if not set
type Config struct {
	// Ingress: the simulator's datagram export socket.
	UDPListenAddr string `env:"UDP_LISTEN_ADDR" envDefault:"127.0.0.1:34254"`

	// Egress: the WebSocket hub clients connect to.
	BridgeAddr string `env:"BRIDGE_ADDR" envDefault:"0.0.0.0:9345"`

	// Topic rendered events are broadcast on.
	BroadcastTopic string `env:"BROADCAST_TOPIC" envDefault:"UNITS"`

	// Queue capacities
	BusCapacity         int `env:"BUS_CAPACITY" envDefault:"1024"`
	ClientQueueCapacity int `env:"CLIENT_QUEUE_CAPACITY" envDefault:"1024"`

	// Pipeline workers processing decoded records.
	WorkerCount int `env:"WORKER_COUNT" envDefault:"4"`

	// Optional NATS mirror of rendered events. Empty disables it.
	NATSURL     string `env:"NATS_URL" envDefault:""`
	NATSSubject string `env:"NATS_SUBJECT" envDefault:"cot.events"`

	// Monitoring
	MetricsAddr string `env:"METRICS_ADDR" envDefault:":9346"`

	// Path to the user config file. Empty means all coalitions and all
	// unit types pass the filter.
	UserConfigPath string `env:"USER_CONFIG_PATH" envDefault:""`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`
}

// Load reads configuration from a .env file and environment variables.
// Priority: ENV vars > .env file > defaults.
func Load(logger *zerolog.Logger) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		// Running without a .env file is the normal production case.
		if logger != nil {
			logger.Info().Msg("No .env file found (using environment variables only)")
		}
	} else if logger != nil {
		logger.Info().Msg("Loaded configuration from .env file")
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// Validate checks configuration for errors.
func (c *Config) Validate() error {
	if c.UDPListenAddr == "" {
		return fmt.Errorf("UDP_LISTEN_ADDR is required")
	}
	if c.BridgeAddr == "" {
		return fmt.Errorf("BRIDGE_ADDR is required")
	}
	if c.BroadcastTopic == "" {
		return fmt.Errorf("BROADCAST_TOPIC is required")
	}
	if c.BusCapacity < 1 {
		return fmt.Errorf("BUS_CAPACITY must be > 0, got %d", c.BusCapacity)
	}
	if c.ClientQueueCapacity < 1 {
		return fmt.Errorf("CLIENT_QUEUE_CAPACITY must be > 0, got %d", c.ClientQueueCapacity)
	}
	if c.WorkerCount < 1 {
		return fmt.Errorf("WORKER_COUNT must be > 0, got %d", c.WorkerCount)
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("LOG_LEVEL must be one of: debug, info, warn, error (got: %s)", c.LogLevel)
	}
	validLogFormats := map[string]bool{"json": true, "pretty": true}
	if !validLogFormats[c.LogFormat] {
		return fmt.Errorf("LOG_FORMAT must be one of: json, pretty (got: %s)", c.LogFormat)
	}
	return nil
}

// LogConfig logs the effective configuration at startup.
func (c *Config) LogConfig(logger zerolog.Logger) {
	logger.Info().
		Str("udp_listen_addr", c.UDPListenAddr).
		Str("bridge_addr", c.BridgeAddr).
		Str("broadcast_topic", c.BroadcastTopic).
		Int("bus_capacity", c.BusCapacity).
		Int("client_queue_capacity", c.ClientQueueCapacity).
		Int("worker_count", c.WorkerCount).
		Str("nats_url", c.NATSURL).
		Str("metrics_addr", c.MetricsAddr).
		Str("user_config_path", c.UserConfigPath).
		Str("log_level", c.LogLevel).
		Str("log_format", c.LogFormat).
		Msg("Bridge configuration loaded")
}
