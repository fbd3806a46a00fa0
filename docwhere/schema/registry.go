package schema

import (
	"errors"
	"fmt"
)

// ErrUnknownCollection is returned for slugs that were never registered
var ErrUnknownCollection = errors.New("unknown collection")

// ColumnType is the storage type of a column
type ColumnType int

const (
	TypeText ColumnType = iota
	TypeInteger
	TypeReal
	TypeBool
	TypeTimestamp
	TypeJSON
)

// Column is one physical column
type Column struct {
	Name string
	Type ColumnType
}

// Table is a physical table and its columns in declaration order
type Table struct {
	Name    string
	Columns []Column
	index   map[string]ColumnType
}

func newTable(name string, cols ...Column) *Table {
	t := &Table{Name: name, index: make(map[string]ColumnType)}
	t.add(cols...)
	return t
}

func (t *Table) add(cols ...Column) {
	for _, c := range cols {
		if _, ok := t.index[c.Name]; ok {
			continue
		}
		t.index[c.Name] = c.Type
		t.Columns = append(t.Columns, c)
	}
}

// Has reports whether the table has the column
func (t *Table) Has(col string) bool {
	if t == nil {
		return false
	}
	_, ok := t.index[col]
	return ok
}

// ColumnNames returns the column names in declaration order
func (t *Table) ColumnNames() []string {
	if t == nil {
		return nil
	}
	out := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		out[i] = c.Name
	}
	return out
}

// Collection is the registered, read-only view of one collection
type Collection struct {
	Slug   string
	Fields []Field

	Table   *Table
	Locales *Table // nil without localized scalar fields
	Rels    *Table // nil without relation fields

	// Root is the root slug when this is a versions collection
	Root string
	// Versions is the versions slug when this is a versioned root
	Versions string
	Nested   bool

	byPath map[string]Field
}

// IsVersions reports whether this collection stores revisions of a root
func (c *Collection) IsVersions() bool {
	return c.Root != ""
}

// Field looks up a field by exact path
func (c *Collection) Field(path string) (Field, bool) {
	f, ok := c.byPath[path]
	return f, ok
}

// TitleField returns the title field if one is declared
func (c *Collection) TitleField() (Field, bool) {
	for _, f := range c.Fields {
		if f.IsTitle {
			return f, true
		}
	}
	return Field{}, false
}

// RelationFields returns the relation fields in declaration order
func (c *Collection) RelationFields() []Field {
	var out []Field
	for _, f := range c.Fields {
		if f.IsRelation() {
			out = append(out, f)
		}
	}
	return out
}

// Registry holds every collection of a definition
type Registry struct {
	locales     []string
	collections map[string]*Collection
	order       []string
}

// NewRegistry validates def and builds its tables. A versioned collection
// registers a root under its slug and a versions collection under <slug>_versions.
func NewRegistry(def Definition) (*Registry, error) {
	if err := def.Validate(); err != nil {
		return nil, err
	}

	r := &Registry{
		locales:     append([]string(nil), def.Locales...),
		collections: make(map[string]*Collection),
	}
	for _, cd := range def.Collections {
		if !cd.Versions {
			r.register(buildCollection(cd.Slug, cd.Fields, cd.Nested, ""))
			continue
		}

		root := &Collection{
			Slug:     cd.Slug,
			Fields:   cd.Fields,
			Table:    newTable(cd.Slug, baseColumns()...),
			Versions: WithVersionsSuffix(cd.Slug),
			Nested:   cd.Nested,
			byPath:   indexFields(cd.Fields),
		}
		if cd.Nested {
			root.Table.add(hierarchyColumns()...)
		}
		r.register(root)
		r.register(buildCollection(root.Versions, cd.Fields, false, cd.Slug))
	}
	return r, nil
}

func (r *Registry) register(c *Collection) {
	r.collections[c.Slug] = c
	r.order = append(r.order, c.Slug)
}

func baseColumns() []Column {
	return []Column{
		{Name: ColID, Type: TypeText},
		{Name: ColCreatedAt, Type: TypeTimestamp},
		{Name: ColUpdatedAt, Type: TypeTimestamp},
	}
}

func hierarchyColumns() []Column {
	return []Column{
		{Name: ColParent, Type: TypeText},
		{Name: ColTreePos, Type: TypeReal},
		{Name: ColTreePath, Type: TypeText},
	}
}

func indexFields(fields []Field) map[string]Field {
	m := make(map[string]Field, len(fields))
	for _, f := range fields {
		m[f.Path] = f
	}
	return m
}

func columnType(t FieldType) ColumnType {
	switch t {
	case FieldNumber:
		return TypeReal
	case FieldBool:
		return TypeBool
	case FieldDate:
		return TypeTimestamp
	case FieldJSON:
		return TypeJSON
	default:
		return TypeText
	}
}

func buildCollection(slug string, fields []Field, nested bool, root string) *Collection {
	c := &Collection{
		Slug:   slug,
		Fields: fields,
		Root:   root,
		Nested: nested,
		byPath: indexFields(fields),
		Table:  newTable(slug, baseColumns()...),
	}
	if root != "" {
		c.Table.add(Column{Name: ColOwnerID, Type: TypeText}, Column{Name: ColStatus, Type: TypeText})
	}
	if nested {
		c.Table.add(hierarchyColumns()...)
	}

	var targets []string
	seen := map[string]bool{}
	for _, f := range fields {
		switch {
		case f.IsRelation():
			if !seen[f.RelationTo] {
				seen[f.RelationTo] = true
				targets = append(targets, f.RelationTo)
			}
		case f.Localized:
			if c.Locales == nil {
				c.Locales = newTable(LocalesTable(slug),
					Column{Name: ColID, Type: TypeText},
					Column{Name: ColOwnerID, Type: TypeText},
					Column{Name: ColLocale, Type: TypeText},
				)
			}
			c.Locales.add(Column{Name: f.Column(), Type: columnType(f.Type)})
		default:
			c.Table.add(Column{Name: f.Column(), Type: columnType(f.Type)})
		}
	}

	if len(targets) > 0 {
		c.Rels = newTable(RelsTable(slug),
			Column{Name: ColID, Type: TypeText},
			Column{Name: ColOwnerID, Type: TypeText},
			Column{Name: ColPath, Type: TypeText},
			Column{Name: ColLocale, Type: TypeText},
			Column{Name: ColPosition, Type: TypeInteger},
		)
		for _, t := range targets {
			c.Rels.add(Column{Name: RelationColumn(t), Type: TypeText})
		}
	}
	return c
}

// Collection returns the registered collection for slug
func (r *Registry) Collection(slug string) (*Collection, error) {
	c, ok := r.collections[slug]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCollection, slug)
	}
	return c, nil
}

// Table returns the primary table of slug
func (r *Registry) Table(slug string) (*Table, error) {
	c, err := r.Collection(slug)
	if err != nil {
		return nil, err
	}
	return c.Table, nil
}

// Columns returns the primary column names of slug
func (r *Registry) Columns(slug string) ([]string, error) {
	t, err := r.Table(slug)
	if err != nil {
		return nil, err
	}
	return t.ColumnNames(), nil
}

// LocalizedColumns returns the locale table columns of slug, or nothing when
// the collection has no locale table or locale is empty.
func (r *Registry) LocalizedColumns(slug, locale string) ([]string, error) {
	c, err := r.Collection(slug)
	if err != nil {
		return nil, err
	}
	if locale == "" || c.Locales == nil {
		return nil, nil
	}
	return c.Locales.ColumnNames(), nil
}

// ResolveFieldPath resolves a dotted path against slug's fields
func (r *Registry) ResolveFieldPath(slug, path string) (Resolution, error) {
	c, err := r.Collection(slug)
	if err != nil {
		return nil, err
	}
	return ResolveFieldPath(c, path), nil
}

// Slugs returns every registered slug in registration order
func (r *Registry) Slugs() []string {
	return append([]string(nil), r.order...)
}

// Collections returns every registered collection in registration order
func (r *Registry) Collections() []*Collection {
	out := make([]*Collection, 0, len(r.order))
	for _, s := range r.order {
		out = append(out, r.collections[s])
	}
	return out
}

// Locales returns the declared locales
func (r *Registry) Locales() []string {
	return append([]string(nil), r.locales...)
}

// HasLocale reports whether locale was declared
func (r *Registry) HasLocale(locale string) bool {
	for _, l := range r.locales {
		if l == locale {
			return true
		}
	}
	return false
}
