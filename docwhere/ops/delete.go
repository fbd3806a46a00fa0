package ops

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/doug-martin/goqu/v9"

	"github.com/nonibytes/docwhere/docwhere/planner"
	"github.com/nonibytes/docwhere/docwhere/schema"
)

// DeleteWhere deletes the documents matching cond together with their locale
// and relation rows, and returns how many documents were removed. Deleting a
// versioned root also deletes all of its versions.
func DeleteWhere(ctx context.Context, db *sql.DB, c *planner.Compiler, slug string, cond planner.Condition) (int64, error) {
	reg := c.Registry()
	coll, err := reg.Collection(slug)
	if err != nil {
		return 0, err
	}
	if cond.IsNever() {
		return 0, nil
	}

	ds, err := c.MatchingIDs(slug, cond)
	if err != nil {
		return 0, err
	}

	// ids are read in the same transaction as the deletes
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	ids, err := selectIDs(ctx, tx, ds.Prepared(true))
	if err != nil {
		return 0, fmt.Errorf("select ids: %w", err)
	}
	if len(ids) == 0 {
		return 0, nil
	}

	dialect := c.Dialect()
	if coll.Versions != "" {
		versions, err := reg.Collection(coll.Versions)
		if err != nil {
			return 0, err
		}
		var versionIDs []any
		for _, chunk := range chunks(ids) {
			q := dialect.From(versions.Table.Name).
				Select(goqu.C(schema.ColID)).
				Where(goqu.C(schema.ColOwnerID).In(chunk)).
				Prepared(true)
			got, err := selectIDs(ctx, tx, q)
			if err != nil {
				return 0, fmt.Errorf("select versions: %w", err)
			}
			versionIDs = append(versionIDs, got...)
		}
		if _, err := DeleteByIDs(ctx, tx, dialect, versions, versionIDs); err != nil {
			return 0, err
		}
	}

	n, err := DeleteByIDs(ctx, tx, dialect, coll, ids)
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return n, nil
}

// DeleteByIDs deletes rows of coll and their locale and relation rows
func DeleteByIDs(ctx context.Context, tx *sql.Tx, dialect goqu.DialectWrapper, coll *schema.Collection, ids []any) (int64, error) {
	var deleted int64
	for _, chunk := range chunks(ids) {
		for _, child := range []*schema.Table{coll.Locales, coll.Rels} {
			if child == nil {
				continue
			}
			del := dialect.Delete(child.Name).Where(goqu.C(schema.ColOwnerID).In(chunk)).Prepared(true)
			if _, err := execDS(ctx, tx, del); err != nil {
				return 0, fmt.Errorf("delete %s: %w", child.Name, err)
			}
		}

		res, err := execDS(ctx, tx, dialect.Delete(coll.Table.Name).Where(goqu.C(schema.ColID).In(chunk)).Prepared(true))
		if err != nil {
			return 0, fmt.Errorf("delete %s: %w", coll.Table.Name, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, err
		}
		deleted += n
	}
	return deleted, nil
}

func selectIDs(ctx context.Context, q queryer, ds sqlBuilder) ([]any, error) {
	rows, err := queryDS(ctx, q, ds)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []any
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func chunks(ids []any) [][]any {
	var out [][]any
	for start := 0; start < len(ids); start += relChunk {
		out = append(out, ids[start:min(start+relChunk, len(ids))])
	}
	return out
}
