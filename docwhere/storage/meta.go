package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ErrNotAStore is returned by OpenStore when the database was not created by docwhere
var ErrNotAStore = errors.New("not a docwhere database")

// Bootstrap creates the meta table, runs stmts and records the definition
func Bootstrap(ctx context.Context, db *sql.DB, sqlt SQL, stmts []string, definitionJSON []byte) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, MetaTable); err != nil {
		return fmt.Errorf("create meta: %w", err)
	}
	for _, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create tables: %w", err)
		}
	}

	for _, kv := range [][2]string{
		{MetaMagic, Magic},
		{MetaVersion, "1"},
		{MetaDefinition, string(definitionJSON)},
	} {
		if _, err := tx.ExecContext(ctx, sqlt.SetMeta, kv[0], kv[1]); err != nil {
			return fmt.Errorf("set meta %s: %w", kv[0], err)
		}
	}
	return tx.Commit()
}

// ReadDefinition checks the magic marker and returns the stored definition
func ReadDefinition(ctx context.Context, db *sql.DB, sqlt SQL) ([]byte, error) {
	var magic string
	if err := db.QueryRowContext(ctx, sqlt.GetMeta, MetaMagic).Scan(&magic); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotAStore, err)
	}
	if magic != Magic {
		return nil, ErrNotAStore
	}
	var def string
	if err := db.QueryRowContext(ctx, sqlt.GetMeta, MetaDefinition).Scan(&def); err != nil {
		return nil, fmt.Errorf("read definition: %w", err)
	}
	return []byte(def), nil
}
