package storage

import (
	"context"
	"database/sql"

	"github.com/nonibytes/docwhere/docwhere/schema"
)

type Backend string

const (
	BackendSQLite   Backend = "sqlite"
	BackendPostgres Backend = "postgres"
)

// Magic marks a database created by docwhere
const Magic = "docwhere"

// Meta keys
const (
	MetaMagic      = "docwhere_magic"
	MetaVersion    = "docwhere_version"
	MetaDefinition = "definition_json"
)

// Adapter abstracts database-specific operations
type Adapter interface {
	Backend() Backend
	// Dialect is the goqu dialect name queries are rendered with
	Dialect() string
	StoreID() string

	Connect(ctx context.Context) (*sql.DB, error)
	Close() error

	CreateTables(ctx context.Context, db *sql.DB, registry *schema.Registry, definitionJSON []byte) error
	OpenStore(ctx context.Context, db *sql.DB) (definitionJSON []byte, err error)

	SQL() SQL
}

// SQL holds the fixed statements of an adapter
type SQL struct {
	GetMeta string
	SetMeta string
}
