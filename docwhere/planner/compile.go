package planner

import (
	"errors"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3"
	"github.com/doug-martin/goqu/v9/exp"

	"github.com/nonibytes/docwhere/docwhere/filter"
	"github.com/nonibytes/docwhere/docwhere/operator"
	"github.com/nonibytes/docwhere/docwhere/schema"
)

// ErrTooDeep is returned when boolean nesting plus relation delegation exceeds MaxDepth
var ErrTooDeep = errors.New("filter nesting too deep")

// Error describes a hard failure while compiling one leaf
type Error struct {
	Collection string
	Field      string
	Operator   string
	Err        error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s[%s]: %v", e.Collection, e.Field, e.Operator, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Diagnostics receives soft failures. Implementations must not panic.
type Diagnostics interface {
	Warn(msg string, err error, fields ...map[string]interface{})
}

// Reasons attached to warnings under the "reason" key
const (
	ReasonUnresolvedField     = "unresolved_field"
	ReasonUnsupportedOperator = "unsupported_operator"
)

type nopDiagnostics struct{}

func (nopDiagnostics) Warn(string, error, ...map[string]interface{}) {}

// Options configures a Compiler
type Options struct {
	// Dialect is the goqu dialect subqueries are built with
	Dialect     string
	MaxDepth    int
	Operators   *operator.Registry
	Diagnostics Diagnostics
}

// DefaultOptions returns the defaults for a sqlite store
func DefaultOptions() Options {
	return Options{
		Dialect:  "sqlite3",
		MaxDepth: 32,
	}
}

// CompileOutput is the result of Explain
type CompileOutput struct {
	Condition    Condition
	ExplainSteps []string
}

// Compiler turns filter expressions into conditions. It holds no per-call
// state and is safe for concurrent use.
type Compiler struct {
	registry *schema.Registry
	dialect  goqu.DialectWrapper
	ops      *operator.Registry
	diag     Diagnostics
	maxDepth int
}

// NewCompiler creates a compiler over a schema registry
func NewCompiler(registry *schema.Registry, opts Options) *Compiler {
	def := DefaultOptions()
	if opts.Dialect == "" {
		opts.Dialect = def.Dialect
	}
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = def.MaxDepth
	}
	if opts.Operators == nil {
		opts.Operators = operator.Default()
	}
	if opts.Diagnostics == nil {
		opts.Diagnostics = nopDiagnostics{}
	}
	return &Compiler{
		registry: registry,
		dialect:  goqu.Dialect(opts.Dialect),
		ops:      opts.Operators,
		diag:     opts.Diagnostics,
		maxDepth: opts.MaxDepth,
	}
}

// Registry returns the schema registry the compiler resolves against
func (c *Compiler) Registry() *schema.Registry {
	return c.registry
}

// Dialect returns the goqu dialect the compiler builds with
func (c *Compiler) Dialect() goqu.DialectWrapper {
	return c.dialect
}

// Compile compiles expr against the collection slug. locale selects the row of
// the locale side-table that localized fields are compared against; empty means
// localized fields are not resolvable.
func (c *Compiler) Compile(slug string, expr filter.Expr, locale string) (Condition, error) {
	out, err := c.run(slug, expr, locale, false)
	if err != nil {
		return Condition{}, err
	}
	return out.Condition, nil
}

// Explain compiles like Compile and also records the decision taken for each leaf
func (c *Compiler) Explain(slug string, expr filter.Expr, locale string) (*CompileOutput, error) {
	return c.run(slug, expr, locale, true)
}

func (c *Compiler) run(slug string, expr filter.Expr, locale string, explain bool) (*CompileOutput, error) {
	coll, err := c.registry.Collection(slug)
	if err != nil {
		return nil, err
	}
	st := &state{explain: explain}
	cond, err := c.compileExpr(st, scope{coll: coll, locale: locale}, expr)
	if err != nil {
		return nil, err
	}
	return &CompileOutput{Condition: cond, ExplainSteps: st.steps}, nil
}

// state collects explain output for a single call
type state struct {
	explain bool
	steps   []string
}

func (s *state) step(format string, args ...any) {
	if s.explain {
		s.steps = append(s.steps, fmt.Sprintf(format, args...))
	}
}

// scope is the explicit context of one recursive step
type scope struct {
	coll   *schema.Collection
	locale string
	depth  int
}

func (s scope) deeper() scope {
	s.depth++
	return s
}

func (c *Compiler) compileExpr(st *state, sc scope, expr filter.Expr) (Condition, error) {
	if sc.depth >= c.maxDepth {
		return Condition{}, fmt.Errorf("%w: limit %d in %s", ErrTooDeep, c.maxDepth, sc.coll.Slug)
	}

	switch e := expr.(type) {
	case filter.And:
		conds, err := c.compileChildren(st, sc.deeper(), e)
		if err != nil {
			return Condition{}, err
		}
		return AllOf(conds...), nil

	case filter.Or:
		conds, err := c.compileChildren(st, sc.deeper(), e)
		if err != nil {
			return Condition{}, err
		}
		return AnyOf(conds...), nil

	case filter.Leaf:
		return c.compileLeaf(st, sc, e)

	case nil:
		return Unconstrained(), nil

	default:
		return Condition{}, fmt.Errorf("unknown expression type: %T", expr)
	}
}

func (c *Compiler) compileChildren(st *state, sc scope, children []filter.Expr) ([]Condition, error) {
	conds := make([]Condition, 0, len(children))
	for _, child := range children {
		cond, err := c.compileExpr(st, sc, child)
		if err != nil {
			return nil, err
		}
		conds = append(conds, cond)
	}
	return conds, nil
}

// leaf is a filter leaf with its operator resolved and value normalized
type leaf struct {
	field string
	op    operator.Operator
	raw   any
	value any
}

func (c *Compiler) compileLeaf(st *state, sc scope, l filter.Leaf) (Condition, error) {
	slug := sc.coll.Slug
	op, err := c.ops.Lookup(l.Operator)
	if err != nil {
		return Condition{}, &Error{Collection: slug, Field: l.Field, Operator: l.Operator, Err: err}
	}
	value, err := op.Normalize(l.Value)
	if err != nil {
		return Condition{}, &Error{Collection: slug, Field: l.Field, Operator: l.Operator, Err: err}
	}

	lf := leaf{field: versionedField(sc.coll, l.Field), op: op, raw: l.Value, value: value}

	switch t := c.resolveTarget(sc, lf.field).(type) {
	case scalarTarget:
		st.step("%s: %s %s -> column %s", slug, lf.field, op.Name, t.column)
		return Of(op.Apply(c.col(sc.coll.Table.Name, t.column), value)), nil

	case localizedTarget:
		st.step("%s: %s %s -> locale table %s (%s)", slug, lf.field, op.Name, sc.coll.Locales.Name, sc.locale)
		return c.compileLocalized(sc, t.column, lf), nil

	case hierarchyTarget:
		st.step("%s: %s %s -> root table %s", slug, lf.field, op.Name, t.root.Table.Name)
		return c.compileHierarchy(sc, t, lf), nil

	case relationTarget:
		return c.compileRelation(st, sc, t.field, lf), nil

	case relationPropertyTarget:
		return c.compileRelationProperty(st, sc, t, lf)

	case revisionsTarget:
		return c.compileRevisions(st, sc, t, l)

	case unresolvedTarget:
		st.step("%s: %s %s -> unresolved, never matches", slug, lf.field, op.Name)
		c.diag.Warn(fmt.Sprintf("the query contains the field %q, not found for %s document", l.Field, slug), nil,
			map[string]interface{}{"collection": slug, "field": l.Field, "operator": op.Name, "reason": ReasonUnresolvedField})
		return Never(), nil
	}
	return Never(), nil
}

// versionedField applies the id rewrites of versions collections: id addresses
// the root document and versionId addresses the revision row itself.
func versionedField(coll *schema.Collection, field string) string {
	if !coll.IsVersions() {
		return field
	}
	switch field {
	case schema.ColID:
		return schema.ColOwnerID
	case schema.VersionID:
		return schema.ColID
	}
	return field
}

func (c *Compiler) col(table, column string) exp.IdentifierExpression {
	return goqu.T(table).Col(column)
}

func (c *Compiler) compileLocalized(sc scope, column string, lf leaf) Condition {
	loc := sc.coll.Locales.Name
	owners := c.dialect.From(loc).
		Select(c.col(loc, schema.ColOwnerID)).
		Where(
			lf.op.Apply(c.col(loc, column), lf.value),
			c.col(loc, schema.ColLocale).Eq(sc.locale),
		)
	return Of(c.col(sc.coll.Table.Name, schema.ColID).In(owners))
}

func (c *Compiler) compileHierarchy(sc scope, t hierarchyTarget, lf leaf) Condition {
	root := t.root.Table.Name
	ids := c.dialect.From(root).
		Select(c.col(root, schema.ColID)).
		Where(lf.op.Apply(c.col(root, t.column), lf.value))
	return Of(c.col(sc.coll.Table.Name, schema.ColOwnerID).In(ids))
}

// compileRevisions matches a versioned root against the fields of its
// revisions. A root matches when any of its revisions does.
func (c *Compiler) compileRevisions(st *state, sc scope, t revisionsTarget, l filter.Leaf) (Condition, error) {
	st.step("%s: %s %s -> revisions in %s", sc.coll.Slug, l.Field, l.Operator, t.versions.Slug)
	inner, err := c.compileExpr(st, scope{coll: t.versions, locale: sc.locale, depth: sc.depth + 1}, l)
	if err != nil {
		return Condition{}, err
	}
	if inner.IsNever() {
		return Never(), nil
	}
	versions := t.versions.Table.Name
	owners := inner.Apply(c.dialect.From(versions).Select(c.col(versions, schema.ColOwnerID)))
	return Of(c.col(sc.coll.Table.Name, schema.ColID).In(owners)), nil
}
