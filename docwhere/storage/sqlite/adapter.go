package sqlite

import (
	"context"
	"database/sql"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/nonibytes/docwhere/docwhere/schema"
	"github.com/nonibytes/docwhere/docwhere/storage"
)

// DefaultDriver is the pure Go driver registered by modernc.org/sqlite
const DefaultDriver = "sqlite"

type Adapter struct {
	Path       string
	DriverName string
}

func New(path string) *Adapter {
	return &Adapter{Path: path, DriverName: DefaultDriver}
}

// NewWithDriver uses another registered database/sql driver, such as the cgo
// "sqlite3" driver of mattn/go-sqlite3.
func NewWithDriver(path, driver string) *Adapter {
	return &Adapter{Path: path, DriverName: driver}
}

func (a *Adapter) Backend() storage.Backend {
	return storage.BackendSQLite
}

func (a *Adapter) Dialect() string {
	return "sqlite3"
}

func (a *Adapter) StoreID() string {
	return a.Path
}

// dsn appends busy timeout and foreign key pragmas in the syntax of the driver
func (a *Adapter) dsn() string {
	params := "_busy_timeout=5000&_foreign_keys=on"
	if a.DriverName == DefaultDriver {
		params = "_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	}
	if strings.Contains(a.Path, "?") {
		return a.Path + "&" + params
	}
	return a.Path + "?" + params
}

func (a *Adapter) Connect(ctx context.Context) (*sql.DB, error) {
	db, err := sql.Open(a.DriverName, a.dsn())
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func (a *Adapter) Close() error {
	return nil
}

func (a *Adapter) SQL() storage.SQL {
	return SQLTemplates
}

func (a *Adapter) CreateTables(ctx context.Context, db *sql.DB, registry *schema.Registry, definitionJSON []byte) error {
	_, _ = db.ExecContext(ctx, "PRAGMA journal_mode=WAL;")
	_, _ = db.ExecContext(ctx, "PRAGMA synchronous=NORMAL;")
	return storage.Bootstrap(ctx, db, a.SQL(), storage.TableStatements(registry, ColumnTypes), definitionJSON)
}

func (a *Adapter) OpenStore(ctx context.Context, db *sql.DB) ([]byte, error) {
	return storage.ReadDefinition(ctx, db, a.SQL())
}
