package ops

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/doug-martin/goqu/v9"

	"github.com/nonibytes/docwhere/docwhere/planner"
	"github.com/nonibytes/docwhere/docwhere/schema"
)

// relChunk bounds the number of ids bound into one IN list
const relChunk = 500

// Document is one stored document as returned by Find
type Document struct {
	ID        string         `json:"id"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	Data      map[string]any `json:"data"`
}

// FindOptions configures a find
type FindOptions struct {
	Locale string
	Limit  int
	Offset int
	Sort   string
}

// Find runs cond against slug and loads each document's columns, localized
// values for opts.Locale and relation ids.
func Find(ctx context.Context, db *sql.DB, c *planner.Compiler, slug string, cond planner.Condition, opts FindOptions) ([]Document, error) {
	coll, err := c.Registry().Collection(slug)
	if err != nil {
		return nil, err
	}
	if cond.IsNever() {
		return []Document{}, nil
	}

	ds, sel, err := c.SelectDocuments(slug, cond, opts.Locale, planner.Page{
		Limit:  opts.Limit,
		Offset: opts.Offset,
		Sort:   opts.Sort,
	})
	if err != nil {
		return nil, err
	}

	rows, err := queryDS(ctx, db, ds.Prepared(true))
	if err != nil {
		return nil, fmt.Errorf("find: %w", err)
	}
	defer rows.Close()

	names := append(append([]string{}, sel.Columns...), sel.Localized...)
	fields := fieldsByColumn(coll)

	docs := []Document{}
	index := map[string]int{}
	for rows.Next() {
		vals := make([]any, len(names))
		ptrs := make([]any, len(names))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}

		doc := Document{Data: map[string]any{}}
		for i, name := range names {
			v := plain(vals[i])
			switch name {
			case schema.ColID:
				doc.ID = fmt.Sprint(v)
			case schema.ColCreatedAt:
				doc.CreatedAt = asTime(v)
			case schema.ColUpdatedAt:
				doc.UpdatedAt = asTime(v)
			default:
				f, ok := fields[name]
				if !ok {
					doc.Data[name] = v
					continue
				}
				if v == nil {
					continue
				}
				setPath(doc.Data, f.Path, decode(f, v))
			}
		}
		index[doc.ID] = len(docs)
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if coll.Rels != nil && len(docs) > 0 {
		if err := loadRelations(ctx, db, c.Dialect(), coll, opts.Locale, docs, index); err != nil {
			return nil, err
		}
	}
	return docs, nil
}

func fieldsByColumn(coll *schema.Collection) map[string]schema.Field {
	m := make(map[string]schema.Field, len(coll.Fields))
	for _, f := range coll.Fields {
		if !f.IsRelation() {
			m[f.Column()] = f
		}
	}
	return m
}

func loadRelations(ctx context.Context, db *sql.DB, dialect goqu.DialectWrapper, coll *schema.Collection, locale string, docs []Document, index map[string]int) error {
	cols := []interface{}{goqu.C(schema.ColOwnerID), goqu.C(schema.ColPath)}
	seen := map[string]bool{}
	for _, f := range coll.RelationFields() {
		name := schema.RelationColumn(f.RelationTo)
		if !seen[name] {
			seen[name] = true
			cols = append(cols, goqu.C(name))
		}
	}

	var scope = goqu.Or(goqu.C(schema.ColLocale).IsNull())
	if locale != "" {
		scope = goqu.Or(goqu.C(schema.ColLocale).IsNull(), goqu.C(schema.ColLocale).Eq(locale))
	}

	ids := make([]any, len(docs))
	for i, d := range docs {
		ids[i] = d.ID
	}
	for start := 0; start < len(ids); start += relChunk {
		end := min(start+relChunk, len(ids))
		ds := dialect.From(coll.Rels.Name).
			Select(cols...).
			Where(goqu.C(schema.ColOwnerID).In(ids[start:end]), scope).
			Order(goqu.C(schema.ColOwnerID).Asc(), goqu.C(schema.ColPath).Asc(), goqu.C(schema.ColPosition).Asc()).
			Prepared(true)
		if err := scanRelations(ctx, db, ds, coll, len(cols), docs, index); err != nil {
			return err
		}
	}
	return nil
}

func scanRelations(ctx context.Context, db *sql.DB, ds sqlBuilder, coll *schema.Collection, ncols int, docs []Document, index map[string]int) error {
	rows, err := queryDS(ctx, db, ds)
	if err != nil {
		return fmt.Errorf("load relations: %w", err)
	}
	defer rows.Close()

	colNames, err := rows.Columns()
	if err != nil {
		return err
	}
	for rows.Next() {
		vals := make([]any, ncols)
		ptrs := make([]any, ncols)
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return fmt.Errorf("scan relation: %w", err)
		}
		owner := fmt.Sprint(plain(vals[0]))
		path := fmt.Sprint(plain(vals[1]))
		f, ok := coll.Field(path)
		if !ok {
			continue
		}
		var target any
		for i := 2; i < ncols; i++ {
			if colNames[i] == schema.RelationColumn(f.RelationTo) {
				target = plain(vals[i])
			}
		}
		if target == nil {
			continue
		}
		doc := &docs[index[owner]]
		if !f.Many {
			setPath(doc.Data, f.Path, target)
			continue
		}
		cur, _ := lookup(doc.Data, f.Path)
		list, _ := cur.([]any)
		setPath(doc.Data, f.Path, append(list, target))
	}
	return rows.Err()
}

// plain converts driver values into JSON-friendly ones
func plain(v any) any {
	switch x := v.(type) {
	case []byte:
		return string(x)
	case time.Time:
		return x.UTC()
	}
	return v
}

func asTime(v any) time.Time {
	switch x := v.(type) {
	case time.Time:
		return x.UTC()
	case string:
		for _, layout := range []string{time.RFC3339Nano, "2006-01-02 15:04:05.999999999-07:00", "2006-01-02 15:04:05"} {
			if t, err := time.Parse(layout, x); err == nil {
				return t.UTC()
			}
		}
	}
	return time.Time{}
}

func decode(f schema.Field, v any) any {
	switch f.Type {
	case schema.FieldBool:
		switch x := v.(type) {
		case int64:
			return x != 0
		case bool:
			return x
		}
	case schema.FieldDate:
		if t := asTime(v); !t.IsZero() {
			return t
		}
	case schema.FieldJSON:
		if s, ok := v.(string); ok {
			var out any
			if err := json.Unmarshal([]byte(s), &out); err == nil {
				return out
			}
		}
	case schema.FieldNumber:
		if i, ok := v.(int64); ok {
			return float64(i)
		}
	}
	return v
}

// setPath stores v under a dotted path, creating nested objects as needed
func setPath(data map[string]any, path string, v any) {
	segs := strings.Split(path, ".")
	cur := data
	for _, seg := range segs[:len(segs)-1] {
		next, ok := cur[seg].(map[string]any)
		if !ok {
			next = map[string]any{}
			cur[seg] = next
		}
		cur = next
	}
	cur[segs[len(segs)-1]] = v
}

// Count returns the number of documents matching cond
func Count(ctx context.Context, db *sql.DB, c *planner.Compiler, slug string, cond planner.Condition) (int64, error) {
	if cond.IsNever() {
		return 0, nil
	}
	ds, err := c.CountDocuments(slug, cond)
	if err != nil {
		return 0, err
	}
	q, args, err := ds.Prepared(true).ToSQL()
	if err != nil {
		return 0, err
	}
	var n int64
	if err := db.QueryRowContext(ctx, q, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count: %w", err)
	}
	return n, nil
}
