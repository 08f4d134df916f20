package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv blanks every variable Load looks at so the host environment cannot
// leak into a test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"SERVER_ADDRESS", "CLIENT_NAME", "LOG_LEVEL", "LOG_FORMAT", "LOG_DIR",
		"ACK_TIMEOUT", "REPORT_STORE", "REDIS_ADDR", "REPORT_TTL", "DISCORD_WEBHOOK",
	} {
		t.Setenv(k, "")
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "movectl.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "127.0.0.1:17653", cfg.Address)
	assert.Equal(t, "test_client", cfg.Client.Name)
	assert.Equal(t, StoreMemory, cfg.Reports.Store)
	assert.Zero(t, cfg.Server.AckTimeout)
	assert.NoError(t, cfg.Validate())
}

func TestLoad(t *testing.T) {
	t.Run("empty path gives defaults", func(t *testing.T) {
		clearEnv(t)
		cfg, err := Load("")
		require.NoError(t, err)
		assert.Equal(t, DefaultConfig(), cfg)
	})

	t.Run("missing file gives defaults", func(t *testing.T) {
		clearEnv(t)
		cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		require.NoError(t, err)
		assert.Equal(t, DefaultAddress, cfg.Address)
	})

	t.Run("file values override defaults", func(t *testing.T) {
		clearEnv(t)
		path := writeConfig(t, `
address: 0.0.0.0:9000
server:
  ack_timeout: 2s
client:
  name: rover
logging:
  level: debug
  format: json
reports:
  store: redis
  redis_addr: localhost:6379
  ttl: 30m
`)
		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, "0.0.0.0:9000", cfg.Address)
		assert.Equal(t, 2*time.Second, cfg.Server.AckTimeout)
		assert.Equal(t, "rover", cfg.Client.Name)
		assert.Equal(t, "debug", cfg.Logging.Level)
		assert.Equal(t, StoreRedis, cfg.Reports.Store)
		assert.Equal(t, 30*time.Minute, cfg.Reports.TTL)
		assert.Equal(t, 10*time.Second, cfg.Client.ConnectTimeout, "unset keys keep defaults")
	})

	t.Run("environment overrides file", func(t *testing.T) {
		clearEnv(t)
		path := writeConfig(t, "address: 0.0.0.0:9000\nclient:\n  name: rover\n")
		t.Setenv("SERVER_ADDRESS", "127.0.0.1:4000")
		t.Setenv("CLIENT_NAME", "drone")
		t.Setenv("ACK_TIMEOUT", "750ms")
		t.Setenv("DISCORD_WEBHOOK", "https://example.invalid/hook")

		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, "127.0.0.1:4000", cfg.Address)
		assert.Equal(t, "drone", cfg.Client.Name)
		assert.Equal(t, 750*time.Millisecond, cfg.Server.AckTimeout)
		assert.Equal(t, "https://example.invalid/hook", cfg.Reports.DiscordWebhook)
	})

	t.Run("bad duration in environment", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("REPORT_TTL", "forever")
		_, err := Load("")
		assert.Error(t, err)
	})

	t.Run("malformed yaml", func(t *testing.T) {
		clearEnv(t)
		_, err := Load(writeConfig(t, "address: [unterminated"))
		assert.Error(t, err)
	})

	t.Run("invalid result is rejected", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("SERVER_ADDRESS", "no-port")
		_, err := Load("")
		assert.Error(t, err)
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"bad port", func(c *Config) { c.Address = "127.0.0.1:99999" }},
		{"negative ack timeout", func(c *Config) { c.Server.AckTimeout = -time.Second }},
		{"unknown log level", func(c *Config) { c.Logging.Level = "chatty" }},
		{"unknown log format", func(c *Config) { c.Logging.Format = "xml" }},
		{"unknown store", func(c *Config) { c.Reports.Store = "disk" }},
		{"redis without address", func(c *Config) { c.Reports.Store = StoreRedis }},
		{"negative frame size", func(c *Config) { c.Server.MaxFrameSize = -1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestValidateClient(t *testing.T) {
	t.Run("blank name only fails for the client", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Client.Name = "  "
		assert.NoError(t, cfg.Validate())
		assert.Error(t, cfg.ValidateClient())
	})

	t.Run("shared checks still apply", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Address = "no-port"
		assert.Error(t, cfg.ValidateClient())
	})

	t.Run("blank CLIENT_NAME does not break loading", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("CLIENT_NAME", "  ")
		cfg, err := Load("")
		require.NoError(t, err, "the server never uses the client name")
		assert.Error(t, cfg.ValidateClient())
	})

	assert.NoError(t, DefaultConfig().ValidateClient())
}

func TestValidateAddress(t *testing.T) {
	assert.NoError(t, ValidateAddress("127.0.0.1:17653"))
	assert.NoError(t, ValidateAddress(":0"))
	assert.NoError(t, ValidateAddress("[::1]:80"))
	assert.Error(t, ValidateAddress("localhost"))
	assert.Error(t, ValidateAddress("localhost:http"))
}
