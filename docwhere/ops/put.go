package ops

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/google/uuid"

	"github.com/nonibytes/docwhere/docwhere/operator"
	"github.com/nonibytes/docwhere/docwhere/schema"
)

// Document keys that are not schema fields
const (
	KeyID     = "id"
	KeyStatus = "_status"
)

// Version statuses
const (
	StatusDraft     = "draft"
	StatusPublished = "published"
)

// ErrInvalidDocument is returned when a document does not fit its collection
var ErrInvalidDocument = errors.New("invalid document")

func invalidDoc(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidDocument, fmt.Sprintf(format, args...))
}

// RelRow is one relation edge to insert
type RelRow struct {
	Path     string
	Locale   string // empty for non-localized relations
	Position int
	Column   string // rels column of the target collection
	TargetID string
}

// PutPrepared holds the rows a put writes
type PutPrepared struct {
	// Collection owns the field columns: the versions collection for a
	// versioned document, the collection itself otherwise.
	Collection *schema.Collection
	// Root is set for versioned documents
	Root *schema.Collection

	ID        string
	Locale    string
	Status    string
	Columns   goqu.Record
	Hierarchy goqu.Record
	Localized goqu.Record
	Rels      []RelRow
}

// PutResult reports what a put wrote
type PutResult struct {
	ID        string
	VersionID string
	Created   bool
}

// PreparePut validates doc against the collection slug and extracts its rows.
// Missing fields are written as NULL.
func PreparePut(reg *schema.Registry, slug string, doc map[string]any, locale string) (*PutPrepared, error) {
	coll, err := reg.Collection(slug)
	if err != nil {
		return nil, err
	}
	if coll.IsVersions() {
		return nil, invalidDoc("write to %s instead of its versions collection", coll.Root)
	}

	prep := &PutPrepared{
		Collection: coll,
		Locale:     locale,
		Columns:    goqu.Record{},
		Hierarchy:  goqu.Record{},
		Localized:  goqu.Record{},
	}
	if coll.Versions != "" {
		prep.Root = coll
		if prep.Collection, err = reg.Collection(coll.Versions); err != nil {
			return nil, err
		}
		prep.Status = StatusDraft
		if s, ok := doc[KeyStatus]; ok {
			status, _ := s.(string)
			if status != StatusDraft && status != StatusPublished {
				return nil, invalidDoc("%s must be %q or %q", KeyStatus, StatusDraft, StatusPublished)
			}
			prep.Status = status
		}
	}

	switch id := doc[KeyID].(type) {
	case nil:
		prep.ID = uuid.NewString()
	case string:
		if id == "" {
			return nil, invalidDoc("id must not be empty")
		}
		prep.ID = id
	default:
		return nil, invalidDoc("id must be a string, got %T", id)
	}

	if coll.Nested {
		for _, col := range schema.HierarchyColumns {
			prep.Hierarchy[col] = doc[col]
		}
	}

	for _, f := range coll.Fields {
		raw, present := lookup(doc, f.Path)
		if f.IsRelation() {
			if err := prep.addRelations(f, raw); err != nil {
				return nil, err
			}
			continue
		}

		v, err := columnValue(f, raw)
		if err != nil {
			return nil, err
		}
		if !f.Localized {
			prep.Columns[f.Column()] = v
			continue
		}
		if locale == "" {
			if present && raw != nil {
				return nil, invalidDoc("field %q is localized and needs a locale", f.Path)
			}
			continue
		}
		prep.Localized[f.Column()] = v
	}
	return prep, nil
}

func (p *PutPrepared) addRelations(f schema.Field, raw any) error {
	ids, err := relationIDs(f, raw)
	if err != nil {
		return err
	}
	loc := ""
	if f.Localized {
		if p.Locale == "" {
			if len(ids) > 0 {
				return invalidDoc("relation %q is localized and needs a locale", f.Path)
			}
			return nil
		}
		loc = p.Locale
	}
	for i, id := range ids {
		p.Rels = append(p.Rels, RelRow{
			Path:     f.Path,
			Locale:   loc,
			Position: i,
			Column:   schema.RelationColumn(f.RelationTo),
			TargetID: id,
		})
	}
	return nil
}

// lookup finds a field by its flat dotted key or by walking nested objects
func lookup(doc map[string]any, path string) (any, bool) {
	if v, ok := doc[path]; ok {
		return v, true
	}
	var cur any = doc
	for _, seg := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		if cur, ok = m[seg]; !ok {
			return nil, false
		}
	}
	return cur, true
}

func columnValue(f schema.Field, raw any) (any, error) {
	if raw == nil {
		return nil, nil
	}
	switch f.Type {
	case schema.FieldText:
		s, ok := raw.(string)
		if !ok {
			return nil, invalidDoc("field %q must be a string, got %T", f.Path, raw)
		}
		return s, nil

	case schema.FieldNumber:
		switch n := raw.(type) {
		case float64:
			return n, nil
		case float32:
			return float64(n), nil
		case int:
			return float64(n), nil
		case int64:
			return float64(n), nil
		case json.Number:
			v, err := n.Float64()
			if err != nil {
				return nil, invalidDoc("field %q: %v", f.Path, err)
			}
			return v, nil
		}
		return nil, invalidDoc("field %q must be a number, got %T", f.Path, raw)

	case schema.FieldBool:
		b, ok := raw.(bool)
		if !ok {
			return nil, invalidDoc("field %q must be a boolean, got %T", f.Path, raw)
		}
		return b, nil

	case schema.FieldDate:
		if t, ok := raw.(time.Time); ok {
			return t.UTC(), nil
		}
		t, ok := operator.ParseDate(raw).(time.Time)
		if !ok {
			return nil, invalidDoc("field %q must be an ISO-8601 date, got %v", f.Path, raw)
		}
		return t, nil

	case schema.FieldJSON:
		b, err := json.Marshal(raw)
		if err != nil {
			return nil, invalidDoc("field %q: %v", f.Path, err)
		}
		return string(b), nil
	}
	return nil, invalidDoc("field %q has unsupported type %q", f.Path, f.Type)
}

func relationIDs(f schema.Field, raw any) ([]string, error) {
	var items []any
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case []any:
		if !f.Many && len(v) > 1 {
			return nil, invalidDoc("relation %q takes a single id", f.Path)
		}
		items = v
	case []string:
		for _, s := range v {
			items = append(items, s)
		}
		if !f.Many && len(items) > 1 {
			return nil, invalidDoc("relation %q takes a single id", f.Path)
		}
	default:
		items = []any{v}
	}

	ids := make([]string, 0, len(items))
	for _, item := range items {
		switch x := item.(type) {
		case string:
			ids = append(ids, x)
		case map[string]any:
			id, ok := x[KeyID].(string)
			if !ok {
				return nil, invalidDoc("relation %q: object without string id", f.Path)
			}
			ids = append(ids, id)
		default:
			return nil, invalidDoc("relation %q: ids must be strings, got %T", f.Path, item)
		}
	}
	return ids, nil
}

// ExecutePut writes a prepared document within tx
func ExecutePut(ctx context.Context, tx *sql.Tx, dialect goqu.DialectWrapper, prep *PutPrepared, now time.Time) (*PutResult, error) {
	now = now.UTC()
	res := &PutResult{ID: prep.ID}

	if prep.Root == nil {
		created, err := upsertRow(ctx, tx, dialect, prep.Collection.Table.Name, prep.ID, merge(prep.Columns, prep.Hierarchy), now)
		if err != nil {
			return nil, fmt.Errorf("upsert %s: %w", prep.Collection.Slug, err)
		}
		res.Created = created
		if err := replaceChildren(ctx, tx, dialect, prep, prep.ID); err != nil {
			return nil, err
		}
		return res, nil
	}

	created, err := upsertRow(ctx, tx, dialect, prep.Root.Table.Name, prep.ID, prep.Hierarchy, now)
	if err != nil {
		return nil, fmt.Errorf("upsert %s: %w", prep.Root.Slug, err)
	}
	res.Created = created
	res.VersionID = uuid.NewString()

	row := merge(prep.Columns, goqu.Record{
		schema.ColID:        res.VersionID,
		schema.ColOwnerID:   prep.ID,
		schema.ColStatus:    prep.Status,
		schema.ColCreatedAt: now,
		schema.ColUpdatedAt: now,
	})
	if _, err := execDS(ctx, tx, dialect.Insert(prep.Collection.Table.Name).Rows(row).Prepared(true)); err != nil {
		return nil, fmt.Errorf("insert version: %w", err)
	}
	if err := replaceChildren(ctx, tx, dialect, prep, res.VersionID); err != nil {
		return nil, err
	}
	return res, nil
}

func merge(a, b goqu.Record) goqu.Record {
	out := make(goqu.Record, len(a)+len(b))
	for k, v := range a {
		out[k] = v
	}
	for k, v := range b {
		out[k] = v
	}
	return out
}

// upsertRow updates the row with id or inserts it. It reports whether the row is new.
func upsertRow(ctx context.Context, tx *sql.Tx, dialect goqu.DialectWrapper, table, id string, cols goqu.Record, now time.Time) (bool, error) {
	q, args, err := dialect.From(table).Select(goqu.C(schema.ColID)).Where(goqu.C(schema.ColID).Eq(id)).Prepared(true).ToSQL()
	if err != nil {
		return false, err
	}
	var existing string
	err = tx.QueryRowContext(ctx, q, args...).Scan(&existing)
	switch {
	case err == sql.ErrNoRows:
		row := merge(cols, goqu.Record{schema.ColID: id, schema.ColCreatedAt: now, schema.ColUpdatedAt: now})
		_, err = execDS(ctx, tx, dialect.Insert(table).Rows(row).Prepared(true))
		return true, err
	case err != nil:
		return false, err
	}

	set := merge(cols, goqu.Record{schema.ColUpdatedAt: now})
	_, err = execDS(ctx, tx, dialect.Update(table).Set(set).Where(goqu.C(schema.ColID).Eq(id)).Prepared(true))
	return false, err
}

// replaceChildren rewrites the locale row and relation rows of owner for the
// prepared locale. Rows of other locales are kept.
func replaceChildren(ctx context.Context, tx *sql.Tx, dialect goqu.DialectWrapper, prep *PutPrepared, owner string) error {
	coll := prep.Collection

	if coll.Locales != nil && prep.Locale != "" {
		del := dialect.Delete(coll.Locales.Name).Where(
			goqu.C(schema.ColOwnerID).Eq(owner),
			goqu.C(schema.ColLocale).Eq(prep.Locale),
		).Prepared(true)
		if _, err := execDS(ctx, tx, del); err != nil {
			return fmt.Errorf("delete locale row: %w", err)
		}
		row := merge(prep.Localized, goqu.Record{
			schema.ColID:      uuid.NewString(),
			schema.ColOwnerID: owner,
			schema.ColLocale:  prep.Locale,
		})
		if _, err := execDS(ctx, tx, dialect.Insert(coll.Locales.Name).Rows(row).Prepared(true)); err != nil {
			return fmt.Errorf("insert locale row: %w", err)
		}
	}

	if coll.Rels == nil {
		return nil
	}
	var scope exp.Expression = goqu.C(schema.ColLocale).IsNull()
	if prep.Locale != "" {
		scope = goqu.Or(scope, goqu.C(schema.ColLocale).Eq(prep.Locale))
	}
	del := dialect.Delete(coll.Rels.Name).Where(goqu.C(schema.ColOwnerID).Eq(owner), scope).Prepared(true)
	if _, err := execDS(ctx, tx, del); err != nil {
		return fmt.Errorf("delete relations: %w", err)
	}
	if len(prep.Rels) == 0 {
		return nil
	}

	rows := make([]interface{}, 0, len(prep.Rels))
	for _, r := range prep.Rels {
		row := goqu.Record{
			schema.ColID:       uuid.NewString(),
			schema.ColOwnerID:  owner,
			schema.ColPath:     r.Path,
			schema.ColLocale:   nil,
			schema.ColPosition: r.Position,
		}
		// every row of a multi-row insert needs the same columns
		for _, f := range coll.RelationFields() {
			row[schema.RelationColumn(f.RelationTo)] = nil
		}
		row[r.Column] = r.TargetID
		if r.Locale != "" {
			row[schema.ColLocale] = r.Locale
		}
		rows = append(rows, row)
	}
	if _, err := execDS(ctx, tx, dialect.Insert(coll.Rels.Name).Rows(rows...).Prepared(true)); err != nil {
		return fmt.Errorf("insert relations: %w", err)
	}
	return nil
}
