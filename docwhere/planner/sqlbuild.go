package planner

import (
	"errors"
	"fmt"
	"strings"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"

	"github.com/nonibytes/docwhere/docwhere/schema"
)

// ErrUnknownSortField is returned when a sort key is not a column of the collection
var ErrUnknownSortField = errors.New("unknown sort field")

// Page selects an ordered window of documents
type Page struct {
	Limit  int
	Offset int
	// Sort is a field path, prefixed with "-" for descending order.
	// Empty sorts by creation time.
	Sort string
}

// Selection describes the result columns of SelectDocuments
type Selection struct {
	Columns   []string
	Localized []string
}

// SelectDocuments builds the SELECT for matching documents. Localized columns
// come from a LEFT JOIN on the locale table when locale is set.
func (c *Compiler) SelectDocuments(slug string, cond Condition, locale string, page Page) (*goqu.SelectDataset, Selection, error) {
	coll, err := c.registry.Collection(slug)
	if err != nil {
		return nil, Selection{}, err
	}
	table := coll.Table.Name

	var sel Selection
	var cols []interface{}
	for _, name := range coll.Table.ColumnNames() {
		sel.Columns = append(sel.Columns, name)
		cols = append(cols, c.col(table, name))
	}

	ds := c.dialect.From(table)
	joined := locale != "" && coll.Locales != nil
	if joined {
		loc := coll.Locales.Name
		for _, name := range localizedFieldColumns(coll) {
			sel.Localized = append(sel.Localized, name)
			cols = append(cols, c.col(loc, name).As(name))
		}
		ds = ds.LeftJoin(goqu.T(loc), goqu.On(
			c.col(loc, schema.ColOwnerID).Eq(c.col(table, schema.ColID)),
			c.col(loc, schema.ColLocale).Eq(locale),
		))
	}
	ds = cond.Apply(ds.Select(cols...))

	order, err := c.orderBy(coll, page.Sort, joined)
	if err != nil {
		return nil, Selection{}, err
	}
	ds = ds.Order(order...)

	if page.Limit > 0 {
		ds = ds.Limit(uint(page.Limit))
	}
	if page.Offset > 0 {
		ds = ds.Offset(uint(page.Offset))
	}
	return ds, sel, nil
}

func localizedFieldColumns(coll *schema.Collection) []string {
	var out []string
	for _, name := range coll.Locales.ColumnNames() {
		switch name {
		case schema.ColID, schema.ColOwnerID, schema.ColLocale:
			continue
		}
		out = append(out, name)
	}
	return out
}

func (c *Compiler) orderBy(coll *schema.Collection, sort string, joined bool) ([]exp.OrderedExpression, error) {
	id := c.col(coll.Table.Name, schema.ColID).Asc()
	if sort == "" {
		return []exp.OrderedExpression{c.col(coll.Table.Name, schema.ColCreatedAt).Asc(), id}, nil
	}

	desc := strings.HasPrefix(sort, "-")
	column := schema.ColumnName(strings.TrimPrefix(sort, "-"))

	var key exp.IdentifierExpression
	switch {
	case coll.Table.Has(column):
		key = c.col(coll.Table.Name, column)
	case joined && coll.Locales.Has(column):
		key = c.col(coll.Locales.Name, column)
	default:
		return nil, fmt.Errorf("%w: %q on %s", ErrUnknownSortField, sort, coll.Slug)
	}
	if desc {
		return []exp.OrderedExpression{key.Desc(), id}, nil
	}
	return []exp.OrderedExpression{key.Asc(), id}, nil
}

// CountDocuments builds SELECT COUNT(*) over matching documents
func (c *Compiler) CountDocuments(slug string, cond Condition) (*goqu.SelectDataset, error) {
	coll, err := c.registry.Collection(slug)
	if err != nil {
		return nil, err
	}
	return cond.Apply(c.dialect.From(coll.Table.Name).Select(goqu.COUNT(goqu.Star()))), nil
}

// MatchingIDs builds SELECT id over matching documents
func (c *Compiler) MatchingIDs(slug string, cond Condition) (*goqu.SelectDataset, error) {
	coll, err := c.registry.Collection(slug)
	if err != nil {
		return nil, err
	}
	return cond.Apply(c.dialect.From(coll.Table.Name).Select(c.col(coll.Table.Name, schema.ColID))), nil
}
