package planner

import (
	"fmt"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"

	"github.com/nonibytes/docwhere/docwhere/filter"
	"github.com/nonibytes/docwhere/docwhere/operator"
	"github.com/nonibytes/docwhere/docwhere/schema"
)

// manyOperators are the operators with set semantics on a many relation
var manyOperators = map[string]bool{
	operator.Equals:     true,
	operator.NotEquals:  true,
	operator.InArray:    true,
	operator.NotInArray: true,
}

// links selects owner ids from a rels table for one relation path
type links struct {
	dialect goqu.DialectWrapper
	table   string
	path    string
	locale  string // empty when the relation is not localized
	target  string // rels column holding the related id
}

func (c *Compiler) links(sc scope, f schema.Field, path string) links {
	l := links{
		dialect: c.dialect,
		table:   sc.coll.Rels.Name,
		path:    path,
		target:  schema.RelationColumn(f.RelationTo),
	}
	if f.Localized {
		l.locale = sc.locale
	}
	return l
}

func (l links) col(name string) exp.IdentifierExpression {
	return goqu.T(l.table).Col(name)
}

func (l links) owners(where ...exp.Expression) *goqu.SelectDataset {
	where = append(where, l.col(schema.ColPath).Eq(l.path))
	if l.locale != "" {
		where = append(where, l.col(schema.ColLocale).Eq(l.locale))
	}
	return l.dialect.From(l.table).Select(l.col(schema.ColOwnerID)).Where(where...)
}

func (l links) grouped(where ...exp.Expression) *goqu.SelectDataset {
	return l.owners(where...).GroupBy(l.col(schema.ColOwnerID))
}

// totalCountEquals selects owners with exactly n links on the path
func (l links) totalCountEquals(n int) *goqu.SelectDataset {
	return l.grouped().Having(goqu.COUNT(l.col(schema.ColID)).Eq(n))
}

// matchingCountEquals selects owners linked to every one of values
func (l links) matchingCountEquals(values []any) *goqu.SelectDataset {
	return l.grouped(l.col(l.target).In(values)).
		Having(goqu.COUNT(l.col(schema.ColID)).Eq(len(values)))
}

// hasNonMatching selects owners with at least one link outside values
func (l links) hasNonMatching(values []any) *goqu.SelectDataset {
	return l.grouped(l.col(l.target).NotIn(values)).
		Having(goqu.COUNT(l.col(schema.ColID)).Gt(0))
}

// hasAny selects owners with at least one link on the path
func (l links) hasAny() *goqu.SelectDataset {
	return l.grouped().Having(goqu.COUNT(l.col(schema.ColID)).Gt(0))
}

func (c *Compiler) compileRelation(st *state, sc scope, f schema.Field, lf leaf) Condition {
	slug := sc.coll.Slug
	id := c.col(sc.coll.Table.Name, schema.ColID)
	l := c.links(sc, f, f.Path)

	if !f.Many {
		st.step("%s: %s %s -> relation to %s", slug, f.Path, lf.op.Name, f.RelationTo)
		return Of(id.In(l.owners(lf.op.Apply(l.col(l.target), lf.value))))
	}

	if !manyOperators[lf.op.Name] {
		st.step("%s: %s %s -> unsupported on many relation, never matches", slug, f.Path, lf.op.Name)
		c.diag.Warn(fmt.Sprintf("the operator %q is not supported for multi-valued relation field %q in %s document", lf.op.Name, f.Path, slug), nil,
			map[string]interface{}{"collection": slug, "field": f.Path, "operator": lf.op.Name, "reason": ReasonUnsupportedOperator})
		return Never()
	}

	values := operator.Unique(lf.raw)
	for i, v := range values {
		values[i] = operator.ParseDate(v)
	}
	st.step("%s: %s %s -> many relation to %s, %d value(s)", slug, f.Path, lf.op.Name, f.RelationTo, len(values))

	if len(values) == 0 {
		return emptySetCondition(id, l, lf.op.Name)
	}

	switch lf.op.Name {
	case operator.Equals:
		return AllOf(
			Of(id.In(l.totalCountEquals(len(values)))),
			Of(id.In(l.matchingCountEquals(values))),
		)
	case operator.NotEquals:
		return AnyOf(
			Of(id.NotIn(l.totalCountEquals(len(values)))),
			Of(id.NotIn(l.matchingCountEquals(values))),
		)
	case operator.InArray:
		return AllOf(
			Of(id.NotIn(l.hasNonMatching(values))),
			Of(id.In(l.hasAny())),
		)
	default: // not_in_array
		return Of(id.In(l.hasNonMatching(values)))
	}
}

// emptySetCondition handles many-relation operators given no values. The
// document's set equals the empty set exactly when it has no links.
func emptySetCondition(id exp.IdentifierExpression, l links, op string) Condition {
	switch op {
	case operator.Equals:
		return Of(id.NotIn(l.hasAny()))
	case operator.InArray:
		return Never()
	default: // not_equals, not_in_array
		return Of(id.In(l.hasAny()))
	}
}

func (c *Compiler) compileRelationProperty(st *state, sc scope, t relationPropertyTarget, lf leaf) (Condition, error) {
	slug := sc.coll.Slug
	related, err := c.registry.Collection(t.field.RelationTo)
	if err != nil {
		return Condition{}, err
	}

	// Properties of a versioned document live on its revisions, which point
	// back at the root id through ownerId.
	projection := schema.ColID
	if related.Versions != "" {
		if related, err = c.registry.Collection(related.Versions); err != nil {
			return Condition{}, err
		}
		projection = schema.ColOwnerID
	}

	st.step("%s: %s %s -> property %q of %s", slug, t.prefix, lf.op.Name, t.remainder, related.Slug)
	sub := filter.Leaf{Field: t.remainder, Operator: lf.op.Name, Value: lf.raw}
	inner, err := c.compileExpr(st, scope{coll: related, locale: sc.locale, depth: sc.depth + 1}, sub)
	if err != nil {
		return Condition{}, err
	}
	if inner.IsNever() {
		st.step("%s: %s -> no %s document can match, never matches", slug, t.prefix, related.Slug)
		return Never(), nil
	}

	relatedIDs := inner.Apply(c.dialect.From(related.Table.Name).Select(c.col(related.Table.Name, projection)))
	l := c.links(sc, t.field, t.prefix)
	return Of(c.col(sc.coll.Table.Name, schema.ColID).In(l.owners(l.col(l.target).In(relatedIDs)))), nil
}
