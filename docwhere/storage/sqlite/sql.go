package sqlite

import (
	"github.com/nonibytes/docwhere/docwhere/schema"
	"github.com/nonibytes/docwhere/docwhere/storage"
)

var SQLTemplates = storage.SQL{
	GetMeta: "SELECT value FROM meta WHERE key = ?1",
	SetMeta: "INSERT INTO meta(key,value) VALUES(?1,?2) ON CONFLICT(key) DO UPDATE SET value=excluded.value",
}

// ColumnTypes uses DATETIME so drivers scan timestamps back into time.Time
var ColumnTypes = storage.TypeNames{
	schema.TypeText:      "TEXT",
	schema.TypeInteger:   "INTEGER",
	schema.TypeReal:      "REAL",
	schema.TypeBool:      "BOOLEAN",
	schema.TypeTimestamp: "DATETIME",
	schema.TypeJSON:      "TEXT",
}
