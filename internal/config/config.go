// Package config loads CLI defaults from an optional file and DOCWHERE_*
// environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment variables read by Load
const EnvPrefix = "DOCWHERE"

type Config struct {
	Backend        string `mapstructure:"backend"`
	SQLitePath     string `mapstructure:"sqlite_path"`
	SQLiteDriver   string `mapstructure:"sqlite_driver"`
	PostgresDSN    string `mapstructure:"pg_dsn"`
	PostgresSchema string `mapstructure:"pg_schema"`
	SchemaFile     string `mapstructure:"schema_file"`
	Locale         string `mapstructure:"locale"`
	MaxDepth       int    `mapstructure:"max_depth"`
	Limit          int    `mapstructure:"limit"`
	LogLevel       string `mapstructure:"log_level"`
	MetricsAddr    string `mapstructure:"metrics_addr"`
}

func defaults(v *viper.Viper) {
	v.SetDefault("backend", "sqlite")
	v.SetDefault("sqlite_path", "docwhere.db")
	v.SetDefault("sqlite_driver", "sqlite")
	v.SetDefault("pg_dsn", "")
	v.SetDefault("pg_schema", "public")
	v.SetDefault("schema_file", "")
	v.SetDefault("locale", "en")
	v.SetDefault("max_depth", 32)
	v.SetDefault("limit", 100)
	v.SetDefault("log_level", "warning")
	v.SetDefault("metrics_addr", "")
}

// Load reads file when it is not empty, then applies environment overrides.
// DOCWHERE_SQLITE_PATH sets sqlite_path.
func Load(file string) (*Config, error) {
	v := viper.New()
	defaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config %s: %w", file, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the backend settings
func (c *Config) Validate() error {
	switch c.Backend {
	case "sqlite":
		if c.SQLitePath == "" {
			return errors.New("config: sqlite_path is required for the sqlite backend")
		}
	case "postgres":
		if c.PostgresDSN == "" {
			return errors.New("config: pg_dsn is required for the postgres backend")
		}
	default:
		return fmt.Errorf("config: unknown backend %q", c.Backend)
	}
	if c.MaxDepth <= 0 {
		return fmt.Errorf("config: max_depth must be positive, got %d", c.MaxDepth)
	}
	return nil
}
