package app

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("BOT_TOKEN", "")
	t.Setenv("DDAY_STORE_BACKEND", "")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, TokenPlaceholder, cfg.Discord.Token)
	assert.Equal(t, BackendJSON, cfg.Store.Backend)
	assert.Equal(t, DefaultDataFile, cfg.Store.DataFile)
	assert.Equal(t, DefaultAuthFile, cfg.Feed.AuthFile)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.ErrorIs(t, cfg.Validate(), ErrTokenNotSet)
}

func TestLoadConfigFile(t *testing.T) {
	t.Setenv("BOT_TOKEN", "")
	t.Setenv("DDAY_STORE_BACKEND", "")

	path := filepath.Join(t.TempDir(), "dday.yaml")
	yaml := `
discord:
  token: file-token
  dev_guild: "1234"
store:
  backend: sqlite
  sqlite_path: data/dday.db
  reset_on_corrupt: true
feed:
  addr: ":8080"
log:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "file-token", cfg.Discord.Token)
	assert.Equal(t, "1234", cfg.Discord.DevGuild)
	assert.Equal(t, BackendSQLite, cfg.Store.Backend)
	assert.Equal(t, "data/dday.db", cfg.Store.SQLitePath)
	assert.True(t, cfg.Store.ResetOnCorrupt)
	assert.Equal(t, DefaultDataFile, cfg.Store.DataFile, "unset keys keep defaults")
	assert.Equal(t, ":8080", cfg.Feed.Addr)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfigInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dday.yaml")
	require.NoError(t, os.WriteFile(path, []byte("discord: [unterminated"), 0600))

	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("BOT_TOKEN", "env-token")
	t.Setenv("DDAY_STORE_BACKEND", "sqlite")
	t.Setenv("DDAY_DATA_FILE", "/tmp/other.json")
	t.Setenv("DDAY_FEED_ADDR", "127.0.0.1:9000")
	t.Setenv("AUTH_FILE", "/etc/dday/auth.secret")

	cfg := DefaultConfig()
	cfg.applyEnvOverrides()

	assert.Equal(t, "env-token", cfg.Discord.Token)
	assert.Equal(t, BackendSQLite, cfg.Store.Backend)
	assert.Equal(t, "/tmp/other.json", cfg.Store.DataFile)
	assert.Equal(t, "127.0.0.1:9000", cfg.Feed.Addr)
	assert.Equal(t, "/etc/dday/auth.secret", cfg.Feed.AuthFile)
}

func TestLegacyPlaceholderFromEnv(t *testing.T) {
	t.Setenv("BOT_TOKEN", "여기에_디스코드_봇_토큰을_붙여넣으세요")
	t.Setenv("DDAY_STORE_BACKEND", "")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.ErrorIs(t, cfg.Validate(), ErrTokenNotSet)
}

func TestValidate(t *testing.T) {
	t.Run("empty token", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Discord.Token = ""
		assert.ErrorIs(t, cfg.Validate(), ErrTokenNotSet)
	})

	t.Run("placeholder token", func(t *testing.T) {
		assert.ErrorIs(t, DefaultConfig().Validate(), ErrTokenNotSet)
	})

	t.Run("legacy placeholder token", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Discord.Token = LegacyTokenPlaceholder
		assert.ErrorIs(t, cfg.Validate(), ErrTokenNotSet)
	})

	t.Run("whitespace token", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Discord.Token = "  \n"
		assert.ErrorIs(t, cfg.Validate(), ErrTokenNotSet)
	})

	t.Run("unknown backend", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Discord.Token = "token"
		cfg.Store.Backend = "redis"
		err := cfg.Validate()
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrTokenNotSet)
	})
}
