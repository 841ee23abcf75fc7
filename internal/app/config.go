package app

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Constants
const (
	DefaultConfigFile = "dday.yaml"
	DefaultEnvFile    = ".env"
	DefaultDataFile   = "dday.json"
	DefaultSQLiteFile = "dday.db"
	BackupSuffix      = ".backup"
	TmpSuffix         = ".tmp.json"
	FilePermissions   = 0644

	// TokenPlaceholder is the value shipped in the sample .env
	TokenPlaceholder = "PASTE_YOUR_DISCORD_BOT_TOKEN_HERE"

	// LegacyTokenPlaceholder is the placeholder from .env files of the previous bot
	LegacyTokenPlaceholder = "여기에_디스코드_봇_토큰을_붙여넣으세요"

	// Date layouts
	InputDateLayout   = "20060102"
	StoredDateLayout  = "2006-01-02"
	DisplayDateLayout = "2006. 01. 02."

	// Store backends
	BackendJSON   = "json"
	BackendSQLite = "sqlite"

	// ICS constants
	ICSProductID = "-//dday-bot//D-Day Calendar//EN"
)

// ErrTokenNotSet is returned by Validate when the bot token is missing or still the placeholder
var ErrTokenNotSet = errors.New("bot token is not set")

// Config is the process configuration
type Config struct {
	Discord DiscordConfig `yaml:"discord"`
	Store   StoreConfig   `yaml:"store"`
	Feed    FeedConfig    `yaml:"feed"`
	Log     LogConfig     `yaml:"log"`
}

// DiscordConfig configures the platform connection
type DiscordConfig struct {
	Token string `yaml:"token"`
	// DevGuild registers commands on a single guild instead of globally
	DevGuild string `yaml:"dev_guild"`
}

// StoreConfig selects and configures the persistence backend
type StoreConfig struct {
	Backend        string `yaml:"backend"`
	DataFile       string `yaml:"data_file"`
	SQLitePath     string `yaml:"sqlite_path"`
	ResetOnCorrupt bool   `yaml:"reset_on_corrupt"`
}

// FeedConfig configures the optional HTTP calendar feed
type FeedConfig struct {
	Addr     string `yaml:"addr"`
	AuthFile string `yaml:"auth_file"`
}

// LogConfig configures logging
type LogConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Discord: DiscordConfig{Token: TokenPlaceholder},
		Store: StoreConfig{
			Backend:    BackendJSON,
			DataFile:   DefaultDataFile,
			SQLitePath: DefaultSQLiteFile,
		},
		Feed: FeedConfig{AuthFile: DefaultAuthFile},
		Log:  LogConfig{Level: "info"},
	}
}

// LoadConfig reads the .env file and the YAML config at path, then applies environment overrides.
// Both files are optional.
func LoadConfig(path string) (*Config, error) {
	if err := godotenv.Load(DefaultEnvFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load %s: %w", DefaultEnvFile, err)
	}

	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	case !os.IsNotExist(err):
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	overrides := []struct {
		env string
		dst *string
	}{
		{"BOT_TOKEN", &c.Discord.Token},
		{"DDAY_DEV_GUILD", &c.Discord.DevGuild},
		{"DDAY_STORE_BACKEND", &c.Store.Backend},
		{"DDAY_DATA_FILE", &c.Store.DataFile},
		{"DDAY_SQLITE_PATH", &c.Store.SQLitePath},
		{"DDAY_FEED_ADDR", &c.Feed.Addr},
		{"AUTH_FILE", &c.Feed.AuthFile},
		{"DDAY_LOG_LEVEL", &c.Log.Level},
	}
	for _, o := range overrides {
		if v := os.Getenv(o.env); v != "" {
			*o.dst = v
		}
	}
}

// Validate checks the settings needed to connect to Discord
func (c *Config) Validate() error {
	switch strings.TrimSpace(c.Discord.Token) {
	case "", TokenPlaceholder, LegacyTokenPlaceholder:
		return ErrTokenNotSet
	}
	switch c.Store.Backend {
	case BackendJSON, BackendSQLite:
	default:
		return fmt.Errorf("unknown store backend %q", c.Store.Backend)
	}
	return nil
}
