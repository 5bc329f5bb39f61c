package model

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaultsWhenMissing(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "config.yaml"))
	require.NoError(t, err)

	assert.Equal(t, TransportWebSocket, cfg.Feed.Transport)
	assert.Equal(t, "localhost:8000", cfg.Feed.Host)
	assert.Equal(t, DefaultNotificationPath, cfg.Feed.Path)
	assert.Equal(t, 10, cfg.Feed.MaxRetries)
	assert.Equal(t, 5, cfg.Display.ToastSeconds)
	assert.Equal(t, "notifications.db", filepath.Base(cfg.Store.Path))
}

func TestLoadConfigReadsFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
feed:
  transport: redis
  redis:
    addr: cache:6379
    channel: plant-7
display:
  toast_seconds: 0
`), 0o644))

	t.Setenv("MILKFEED_FEED_MAX_RETRIES", "4")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, TransportRedis, cfg.Feed.Transport)
	assert.Equal(t, "cache:6379", cfg.Feed.Redis.Addr)
	assert.Equal(t, "plant-7", cfg.Feed.Redis.Channel)
	assert.Equal(t, 4, cfg.Feed.MaxRetries)
	assert.Equal(t, 0, cfg.Display.ToastSeconds)
	assert.Equal(t, "localhost:8000", cfg.Feed.Host, "unset keys keep defaults")
}

func TestLoadConfigRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("feed:\n  transport: carrier-pigeon\n"), 0o644))

	_, err := LoadConfig(path)
	assert.ErrorContains(t, err, "unknown feed.transport")
}

func TestSaveConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := defaultAppConfig()
	cfg.Feed.Host = "plant.example.com"
	cfg.Feed.Secure = true
	cfg.Feed.Mailbox.Username = "alerts"

	require.NoError(t, SaveConfig(path, cfg))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "plant.example.com", loaded.Feed.Host)
	assert.True(t, loaded.Feed.Secure)
	assert.Equal(t, "alerts", loaded.Feed.Mailbox.Username)
	assert.Equal(t, cfg.Store.Path, loaded.Store.Path)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*AppConfig)
		wantErr bool
	}{
		{"defaults", func(*AppConfig) {}, false},
		{"empty host", func(c *AppConfig) { c.Feed.Host = " " }, true},
		{"redis without channel", func(c *AppConfig) {
			c.Feed.Transport = TransportRedis
			c.Feed.Redis.Channel = ""
		}, true},
		{"amqp", func(c *AppConfig) { c.Feed.Transport = TransportAMQP }, false},
		{"mailbox without user", func(c *AppConfig) {
			c.Feed.Transport = TransportMailbox
			c.Feed.Mailbox.Host = "imap.example.com"
		}, true},
		{"negative retries", func(c *AppConfig) { c.Feed.MaxRetries = -1 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultAppConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestParseKind(t *testing.T) {
	assert.Equal(t, KindQuality, ParseKind("quality"))
	assert.Equal(t, KindTransfer, ParseKind("transfer"))
	assert.Equal(t, KindInfo, ParseKind(""))
	assert.Equal(t, KindInfo, ParseKind("QUALITY"))
}
