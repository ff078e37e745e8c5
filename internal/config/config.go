// Package config loads the static settings of the bot from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

var ErrMissingToken = errors.New("DISCORD_TOKEN is not set")

type Config struct {
	DiscordToken string `env:"DISCORD_TOKEN"`
	// GuildID is the home guild used to resolve members of direct messages.
	GuildID string `env:"DISCORD_GUILD_ID"`
	Prefix  string `env:"COMMAND_PREFIX" envDefault:">"`
	OwnerID string `env:"OWNER_ID"`

	StorageDir       string        `env:"STORAGE_DIR" envDefault:"./database/"`
	BackupPrefix     string        `env:"BACKUP_PREFIX" envDefault:"~"`
	AutosaveInterval time.Duration `env:"AUTOSAVE_INTERVAL" envDefault:"60s"`
	TickInterval     time.Duration `env:"TICK_INTERVAL" envDefault:"100ms"`

	ContextTTL        time.Duration `env:"CONTEXT_TTL" envDefault:"60s"`
	ContextCancelWord string        `env:"CONTEXT_CANCEL_WORD" envDefault:"cancel"`

	DefaultReact    string `env:"DEFAULT_REACT" envDefault:"✅"`
	ContextOnReact  string `env:"CONTEXT_ON_REACT" envDefault:"🔉"`
	ContextOffReact string `env:"CONTEXT_OFF_REACT" envDefault:"🔇"`

	MetricsAddr string `env:"METRICS_ADDR"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	LogPretty   bool   `env:"LOG_PRETTY" envDefault:"true"`
}

// Load reads envFiles into the process environment, then parses it. Missing
// files are skipped.
func Load(envFiles ...string) (*Config, error) {
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", f, err)
		}
	}
	return parse(env.Options{})
}

// FromMap parses settings from vars instead of the process environment.
func FromMap(vars map[string]string) (*Config, error) {
	return parse(env.Options{Environment: vars})
}

func parse(opts env.Options) (*Config, error) {
	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Prefix == "" {
		return errors.New("COMMAND_PREFIX must not be empty")
	}
	if c.TickInterval <= 0 {
		return fmt.Errorf("TICK_INTERVAL must be positive, got %s", c.TickInterval)
	}
	if c.AutosaveInterval <= 0 {
		return fmt.Errorf("AUTOSAVE_INTERVAL must be positive, got %s", c.AutosaveInterval)
	}
	if c.ContextTTL <= 0 {
		return fmt.Errorf("CONTEXT_TTL must be positive, got %s", c.ContextTTL)
	}
	return nil
}

// RequireToken reports ErrMissingToken when the bot cannot log in.
func (c *Config) RequireToken() error {
	if c.DiscordToken == "" {
		return ErrMissingToken
	}
	return nil
}
