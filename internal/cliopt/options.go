package cliopt

import (
	"flag"
	"io"
	"os"

	"github.com/nonibytes/docwhere/internal/config"
)

// GlobalOptions are parsed once at the CLI root and passed to subcommands.
//
// NOTE: This is a separate package to avoid import cycles between the root
// command router and per-command code.
type GlobalOptions struct {
	Config         string
	Backend        string
	SQLitePath     string
	SQLiteDriver   string
	PostgresDSN    string
	PostgresSchema string
	SchemaFile     string
	Locale         string
	MaxDepth       int
	Limit          int
	LogLevel       string
	MetricsAddr    string

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// FromConfig seeds flag defaults from the loaded configuration
func FromConfig(cfg *config.Config) GlobalOptions {
	return GlobalOptions{
		Backend:        cfg.Backend,
		SQLitePath:     cfg.SQLitePath,
		SQLiteDriver:   cfg.SQLiteDriver,
		PostgresDSN:    cfg.PostgresDSN,
		PostgresSchema: cfg.PostgresSchema,
		SchemaFile:     cfg.SchemaFile,
		Locale:         cfg.Locale,
		MaxDepth:       cfg.MaxDepth,
		Limit:          cfg.Limit,
		LogLevel:       cfg.LogLevel,
		MetricsAddr:    cfg.MetricsAddr,
		Stdin:          os.Stdin,
		Stdout:         os.Stdout,
		Stderr:         os.Stderr,
	}
}

func BindGlobalFlags(fs *flag.FlagSet, g *GlobalOptions) {
	fs.StringVar(&g.Config, "config", g.Config, "config file (yaml, json or toml)")
	fs.StringVar(&g.Backend, "backend", g.Backend, "backend: sqlite|postgres")

	fs.StringVar(&g.SQLitePath, "sqlite-path", g.SQLitePath, "sqlite database file")
	fs.StringVar(&g.SQLiteDriver, "sqlite-driver", g.SQLiteDriver, "database/sql driver: sqlite (pure Go) or sqlite3 (cgo)")

	fs.StringVar(&g.PostgresDSN, "pg-dsn", g.PostgresDSN, "postgres DSN")
	fs.StringVar(&g.PostgresSchema, "pg-schema", g.PostgresSchema, "postgres schema holding the tables")

	fs.StringVar(&g.SchemaFile, "schema", g.SchemaFile, "schema definition JSON (init)")
	fs.StringVar(&g.Locale, "locale", g.Locale, "default locale")
	fs.IntVar(&g.MaxDepth, "max-depth", g.MaxDepth, "maximum filter nesting")
	fs.StringVar(&g.LogLevel, "log-level", g.LogLevel, "debug|info|warning|error")
	fs.StringVar(&g.MetricsAddr, "metrics-addr", g.MetricsAddr, "serve Prometheus metrics on this address while the command runs")
}
