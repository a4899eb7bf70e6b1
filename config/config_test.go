package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "8099", cfg.Server.Port)
	assert.Equal(t, "mysql", cfg.Database.Driver)
	assert.Equal(t, "hub:changes:", cfg.Feed.ChannelPrefix)
	assert.Equal(t, time.Second, cfg.Feed.ReconnectWait)
	assert.Equal(t, 12*time.Hour, cfg.JWT.AccessExpiry)
	assert.False(t, cfg.IsProduction())
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	yaml := []byte(`
server:
  env: production
database:
  driver: sqlite
  dsn: file:hub.db
feed:
  reconnect_wait: 250ms
`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), yaml, 0o600))
	t.Setenv("HUB_DATABASE_DSN", "file:override.db")

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.True(t, cfg.IsProduction())
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "file:override.db", cfg.Database.DSN)
	assert.Equal(t, 250*time.Millisecond, cfg.Feed.ReconnectWait)
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			JWT:      JWTConfig{AccessSecret: "s"},
			Database: DatabaseConfig{Driver: "sqlite"},
			Feed:     FeedConfig{ReconnectWait: time.Second},
		}
	}

	cfg := valid()
	assert.NoError(t, cfg.Validate())

	cfg = valid()
	cfg.JWT.AccessSecret = ""
	assert.Error(t, cfg.Validate())

	cfg = valid()
	cfg.Database.Driver = "postgres"
	assert.Error(t, cfg.Validate())

	cfg = valid()
	cfg.Feed.ReconnectWait = 0
	assert.Error(t, cfg.Validate())
}
