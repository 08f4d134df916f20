// Package config loads movectl settings from an optional YAML file and
// environment variables. Environment variables win over the file; command
// line flags are applied on top by the binaries.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/cyberinferno/movectl/framedconn"
	"github.com/cyberinferno/movectl/logger"
)

// Defaults shared by both binaries.
const (
	DefaultAddress    = "127.0.0.1:17653"
	DefaultClientName = "test_client"
)

// Report store backends.
const (
	StoreMemory = "memory"
	StoreRedis  = "redis"
)

// Config holds all movectl configuration.
type Config struct {
	// Address is where the server listens and the client connects.
	Address string `yaml:"address"`

	Server  ServerConfig  `yaml:"server"`
	Client  ClientConfig  `yaml:"client"`
	Logging LoggingConfig `yaml:"logging"`
	Reports ReportsConfig `yaml:"reports"`
}

// ServerConfig tunes the command server.
type ServerConfig struct {
	// AckTimeout bounds the wait for each client reply; 0 waits forever.
	AckTimeout   time.Duration `yaml:"ack_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	MaxFrameSize int           `yaml:"max_frame_size"`
}

// ClientConfig tunes the reactive client.
type ClientConfig struct {
	Name           string        `yaml:"name"`
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
}

// LoggingConfig selects log level, format and optional file output.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // console or json
	Dir    string `yaml:"dir"`
}

// ReportsConfig controls where final session reports are archived.
type ReportsConfig struct {
	Store          string        `yaml:"store"` // memory or redis
	RedisAddr      string        `yaml:"redis_addr"`
	TTL            time.Duration `yaml:"ttl"`
	DiscordWebhook string        `yaml:"discord_webhook"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Address: DefaultAddress,
		Server: ServerConfig{
			AckTimeout:   0,
			WriteTimeout: 10 * time.Second,
			MaxFrameSize: framedconn.DefaultMaxFrameSize,
		},
		Client: ClientConfig{
			Name:           DefaultClientName,
			ConnectTimeout: 10 * time.Second,
			WriteTimeout:   10 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Reports: ReportsConfig{
			Store: StoreMemory,
			TTL:   time.Hour,
		},
	}
}

// Load reads path (if non-empty and present), applies environment overrides
// and validates the result. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) applyEnvOverrides() error {
	if v := os.Getenv("SERVER_ADDRESS"); v != "" {
		c.Address = v
	}
	if v := os.Getenv("CLIENT_NAME"); v != "" {
		c.Client.Name = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		c.Logging.Format = v
	}
	if v := os.Getenv("LOG_DIR"); v != "" {
		c.Logging.Dir = v
	}
	if v := os.Getenv("REPORT_STORE"); v != "" {
		c.Reports.Store = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Reports.RedisAddr = v
	}
	if v := os.Getenv("DISCORD_WEBHOOK"); v != "" {
		c.Reports.DiscordWebhook = v
	}

	if v := os.Getenv("ACK_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid ACK_TIMEOUT %q: %w", v, err)
		}
		c.Server.AckTimeout = d
	}
	if v := os.Getenv("REPORT_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid REPORT_TTL %q: %w", v, err)
		}
		c.Reports.TTL = d
	}

	return nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if err := ValidateAddress(c.Address); err != nil {
		return err
	}

	if c.Server.AckTimeout < 0 || c.Server.WriteTimeout < 0 || c.Client.ConnectTimeout < 0 || c.Client.WriteTimeout < 0 {
		return fmt.Errorf("timeouts must not be negative")
	}

	if c.Server.MaxFrameSize < 0 {
		return fmt.Errorf("max_frame_size must not be negative")
	}

	if _, err := logger.ParseLevel(c.Logging.Level); err != nil {
		return err
	}

	switch strings.ToLower(c.Logging.Format) {
	case "console", "json":
	default:
		return fmt.Errorf("invalid log format %q (want console or json)", c.Logging.Format)
	}

	switch c.Reports.Store {
	case StoreMemory:
	case StoreRedis:
		if c.Reports.RedisAddr == "" {
			return fmt.Errorf("reports.redis_addr is required when reports.store is redis")
		}
	default:
		return fmt.Errorf("invalid report store %q (want memory or redis)", c.Reports.Store)
	}

	if c.Reports.TTL < 0 {
		return fmt.Errorf("reports.ttl must not be negative")
	}

	return nil
}

// ValidateClient runs Validate plus the checks that only matter to the
// client binary.
func (c *Config) ValidateClient() error {
	if err := c.Validate(); err != nil {
		return err
	}

	if strings.TrimSpace(c.Client.Name) == "" {
		return fmt.Errorf("client name must not be empty")
	}

	return nil
}

// ValidateAddress checks that addr is a "host:port" with a numeric port.
func ValidateAddress(addr string) error {
	_, port, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Errorf("invalid address %q: %w", addr, err)
	}

	if _, err := strconv.ParseUint(port, 10, 16); err != nil {
		return fmt.Errorf("invalid port in address %q: %w", addr, err)
	}

	return nil
}
