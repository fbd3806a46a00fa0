package storage

import (
	"fmt"
	"strings"

	"github.com/nonibytes/docwhere/docwhere/schema"
)

// TypeNames maps column types to a backend's SQL type names
type TypeNames map[schema.ColumnType]string

// QuoteIdent double-quotes an identifier. Identifiers come from a validated
// definition and never contain quotes.
func QuoteIdent(ident string) string {
	return `"` + ident + `"`
}

// TableStatements returns CREATE TABLE and CREATE INDEX statements for every
// table of the registry.
func TableStatements(reg *schema.Registry, types TypeNames) []string {
	var stmts []string
	for _, c := range reg.Collections() {
		stmts = append(stmts, createTable(c.Table, types, nil))
		if c.IsVersions() {
			stmts = append(stmts, createIndex(c.Table.Name, schema.ColOwnerID))
		}
		if c.Nested {
			stmts = append(stmts, createIndex(c.Table.Name, schema.ColParent))
		}

		if c.Locales != nil {
			stmts = append(stmts,
				createTable(c.Locales, types, []string{
					fmt.Sprintf("UNIQUE (%s, %s)", QuoteIdent(schema.ColOwnerID), QuoteIdent(schema.ColLocale)),
				}),
				createIndex(c.Locales.Name, schema.ColOwnerID),
			)
		}

		if c.Rels != nil {
			stmts = append(stmts,
				createTable(c.Rels, types, nil),
				createIndex(c.Rels.Name, schema.ColOwnerID),
				createIndex(c.Rels.Name, schema.ColPath),
			)
		}
	}
	return stmts
}

func createTable(t *schema.Table, types TypeNames, constraints []string) string {
	defs := make([]string, 0, len(t.Columns)+len(constraints))
	for _, col := range t.Columns {
		def := QuoteIdent(col.Name) + " " + types[col.Type]
		switch col.Name {
		case schema.ColID:
			def += " PRIMARY KEY"
		case schema.ColOwnerID, schema.ColPath:
			def += " NOT NULL"
		}
		defs = append(defs, def)
	}
	defs = append(defs, constraints...)
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n  %s\n)", QuoteIdent(t.Name), strings.Join(defs, ",\n  "))
}

func createIndex(table, column string) string {
	name := fmt.Sprintf("idx_%s_%s", table, strings.TrimPrefix(column, "_"))
	return fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s(%s)", QuoteIdent(name), QuoteIdent(table), QuoteIdent(column))
}

// MetaTable is the DDL of the key/value table holding the stored definition
const MetaTable = `CREATE TABLE IF NOT EXISTS meta (
  key   TEXT PRIMARY KEY,
  value TEXT
)`
