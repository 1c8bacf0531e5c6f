package relay

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds the server configuration. All values are read from
// VEILCHAT_* environment variables with the defaults below.
type Config struct {
	Addr            string        `envconfig:"ADDR" default:":3001"`
	AllowedOrigins  []string      `envconfig:"ALLOWED_ORIGINS" default:"*"`
	MaxMessageSize  int64         `envconfig:"MAX_MESSAGE_SIZE" default:"1048576"`
	SendBufferSize  int           `envconfig:"SEND_BUFFER_SIZE" default:"256"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`
	LogLevel        string        `envconfig:"LOG_LEVEL" default:"info"`
}

// LoadConfig reads the configuration from the environment.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := envconfig.Process("veilchat", &cfg); err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	return cfg.sanitized(), nil
}

// DefaultConfig returns the configuration with every field at its
// default, independent of the environment.
func DefaultConfig() Config {
	return Config{
		Addr:            ":3001",
		AllowedOrigins:  []string{"*"},
		MaxMessageSize:  1 << 20,
		SendBufferSize:  256,
		ShutdownTimeout: 10 * time.Second,
		LogLevel:        "info",
	}.sanitized()
}

func (c Config) sanitized() Config {
	if c.Addr == "" {
		c.Addr = ":3001"
	}
	if c.MaxMessageSize <= 0 {
		c.MaxMessageSize = 1 << 20
	}
	if c.SendBufferSize <= 0 {
		c.SendBufferSize = 256
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = 10 * time.Second
	}
	return c
}
