package cliutil

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/nonibytes/docwhere/docwhere"
	"github.com/nonibytes/docwhere/docwhere/logger"
	"github.com/nonibytes/docwhere/docwhere/metrics"
	"github.com/nonibytes/docwhere/docwhere/storage"
	"github.com/nonibytes/docwhere/docwhere/storage/postgres"
	"github.com/nonibytes/docwhere/docwhere/storage/sqlite"
	"github.com/nonibytes/docwhere/internal/cliopt"
)

type OutputFormat string

const (
	FormatPretty OutputFormat = "pretty"
	FormatIDs    OutputFormat = "ids"
	FormatJSON   OutputFormat = "json"
)

func ParseOutputFormat(s string) OutputFormat {
	switch OutputFormat(s) {
	case FormatPretty, FormatIDs, FormatJSON:
		return OutputFormat(s)
	default:
		return FormatPretty
	}
}

func PrintJSON(w io.Writer, v any) {
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Fprintln(w, string(b))
}

// ResolveSQLitePath treats an existing directory as the place for docwhere.db
func ResolveSQLitePath(path string) string {
	if strings.HasSuffix(path, ".db") {
		return path
	}
	if fi, err := os.Stat(path); err == nil && fi.IsDir() {
		return filepath.Join(path, "docwhere.db")
	}
	return path
}

// Adapter builds the storage adapter selected by the global options
func Adapter(g cliopt.GlobalOptions) (storage.Adapter, error) {
	switch strings.ToLower(g.Backend) {
	case "sqlite", "":
		driver := g.SQLiteDriver
		if driver == "" {
			driver = sqlite.DefaultDriver
		}
		return sqlite.NewWithDriver(ResolveSQLitePath(g.SQLitePath), driver), nil
	case "postgres", "pg":
		if g.PostgresDSN == "" {
			return nil, errors.New("postgres backend needs --pg-dsn")
		}
		schemaName := g.PostgresSchema
		if schemaName == "" {
			schemaName = "public"
		}
		return postgres.New(g.PostgresDSN, schemaName), nil
	default:
		return nil, fmt.Errorf("unknown backend %q", g.Backend)
	}
}

// Session holds what a command needs besides the store
type Session struct {
	Logger  *logger.Logger
	Metrics *metrics.Metrics
	server  *http.Server
}

// NewSession builds the logger and, with a metrics address, starts the
// metrics server
func NewSession(g cliopt.GlobalOptions) (*Session, error) {
	log, err := logger.New(logger.Config{Level: g.LogLevel})
	if err != nil {
		return nil, err
	}
	s := &Session{Logger: log}
	if g.MetricsAddr != "" {
		s.Metrics = metrics.New(true)
		s.server = s.Metrics.Server(g.MetricsAddr)
		go func() {
			if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("metrics server stopped", err)
			}
		}()
	}
	return s, nil
}

// StoreOptions maps the global options onto store options
func (s *Session) StoreOptions(g cliopt.GlobalOptions) docwhere.StoreOptions {
	opts := docwhere.DefaultStoreOptions()
	if g.Locale != "" {
		opts.Locale = g.Locale
	}
	if g.MaxDepth > 0 {
		opts.MaxDepth = g.MaxDepth
		opts.Limits.MaxDepth = g.MaxDepth
	}
	opts.Logger = s.Logger
	opts.Metrics = s.Metrics
	return opts
}

func (s *Session) Close() {
	if s.server != nil {
		_ = s.server.Shutdown(context.Background())
	}
	_ = s.Logger.Sync()
}

// OpenStore opens an existing store with the global options
func OpenStore(ctx context.Context, g cliopt.GlobalOptions) (*docwhere.Store, *Session, error) {
	sess, err := NewSession(g)
	if err != nil {
		return nil, nil, err
	}
	adapter, err := Adapter(g)
	if err != nil {
		sess.Close()
		return nil, nil, err
	}
	st, err := docwhere.Open(ctx, adapter, sess.StoreOptions(g))
	if err != nil {
		sess.Close()
		return nil, nil, err
	}
	return st, sess, nil
}
