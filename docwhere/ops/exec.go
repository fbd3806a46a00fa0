package ops

import (
	"context"
	"database/sql"
)

// sqlBuilder is implemented by every goqu dataset
type sqlBuilder interface {
	ToSQL() (string, []interface{}, error)
}

// queryer is satisfied by *sql.DB and *sql.Tx
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func execDS(ctx context.Context, q queryer, ds sqlBuilder) (sql.Result, error) {
	query, args, err := ds.ToSQL()
	if err != nil {
		return nil, err
	}
	return q.ExecContext(ctx, query, args...)
}

func queryDS(ctx context.Context, q queryer, ds sqlBuilder) (*sql.Rows, error) {
	query, args, err := ds.ToSQL()
	if err != nil {
		return nil, err
	}
	return q.QueryContext(ctx, query, args...)
}

// Explain renders a dataset without running it
func Explain(ds sqlBuilder) (string, []any, error) {
	return ds.ToSQL()
}
