package postgres

import (
	"github.com/nonibytes/docwhere/docwhere/schema"
	"github.com/nonibytes/docwhere/docwhere/storage"
)

var SQLTemplates = storage.SQL{
	GetMeta: "SELECT value FROM meta WHERE key = $1",
	SetMeta: "INSERT INTO meta(key,value) VALUES($1,$2) ON CONFLICT(key) DO UPDATE SET value=excluded.value",
}

var ColumnTypes = storage.TypeNames{
	schema.TypeText:      "TEXT",
	schema.TypeInteger:   "BIGINT",
	schema.TypeReal:      "DOUBLE PRECISION",
	schema.TypeBool:      "BOOLEAN",
	schema.TypeTimestamp: "TIMESTAMPTZ",
	schema.TypeJSON:      "JSONB",
}
