package operator

import (
	"errors"
	"fmt"
	"sort"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"
)

// ErrUnknownOperator is returned by Lookup for names outside the registry
var ErrUnknownOperator = errors.New("unknown operator")

// Kind groups operators that share value normalization rules
type Kind int

const (
	KindCompare Kind = iota
	KindSet
	KindPattern
	KindRange
	KindNull
)

func (k Kind) String() string {
	switch k {
	case KindCompare:
		return "compare"
	case KindSet:
		return "set"
	case KindPattern:
		return "pattern"
	case KindRange:
		return "range"
	case KindNull:
		return "null"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Canonical operator names
const (
	Equals              = "equals"
	NotEquals           = "not_equals"
	InArray             = "in_array"
	NotInArray          = "not_in_array"
	Like                = "like"
	ILike               = "ilike"
	NotLike             = "not_like"
	Between             = "between"
	NotBetween          = "not_between"
	IsNull              = "is_null"
	IsNotNull           = "is_not_null"
	LessThan            = "less_than"
	LessThanOrEquals    = "less_than_or_equals"
	GreaterThan         = "greater_than"
	GreaterThanOrEquals = "greater_than_or_equals"
)

// ApplyFunc builds a comparison against a column from an already normalized value
type ApplyFunc func(col exp.IdentifierExpression, value any) exp.Expression

// Operator is one comparison primitive
type Operator struct {
	Name  string
	Kind  Kind
	apply ApplyFunc
}

// Apply builds the comparison for col. value must come from Normalize.
func (o Operator) Apply(col exp.IdentifierExpression, value any) exp.Expression {
	return o.apply(col, value)
}

// New creates an operator from a name, kind and builder
func New(name string, kind Kind, apply ApplyFunc) Operator {
	return Operator{Name: name, Kind: kind, apply: apply}
}

// Registry maps operator names and aliases to operators. It is immutable once built.
type Registry struct {
	byName map[string]Operator
	names  []string
}

// NewRegistry builds a registry. aliases maps an extra name to a canonical one.
func NewRegistry(ops []Operator, aliases map[string]string) (*Registry, error) {
	r := &Registry{byName: make(map[string]Operator, len(ops)+len(aliases))}
	for _, op := range ops {
		if op.Name == "" || op.apply == nil {
			return nil, fmt.Errorf("operator %q: missing name or builder", op.Name)
		}
		if _, dup := r.byName[op.Name]; dup {
			return nil, fmt.Errorf("operator %q registered twice", op.Name)
		}
		r.byName[op.Name] = op
		r.names = append(r.names, op.Name)
	}
	for alias, target := range aliases {
		op, ok := r.byName[target]
		if !ok {
			return nil, fmt.Errorf("alias %q points at unknown operator %q", alias, target)
		}
		if _, dup := r.byName[alias]; dup {
			return nil, fmt.Errorf("alias %q shadows an operator", alias)
		}
		r.byName[alias] = op
	}
	sort.Strings(r.names)
	return r, nil
}

// Lookup resolves an operator by canonical name or alias
func (r *Registry) Lookup(name string) (Operator, error) {
	op, ok := r.byName[name]
	if !ok {
		return Operator{}, fmt.Errorf("%w: %q", ErrUnknownOperator, name)
	}
	return op, nil
}

// Names returns the canonical operator names in sorted order
func (r *Registry) Names() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

var defaultRegistry = mustBuildDefault()

// Default returns the built-in registry
func Default() *Registry {
	return defaultRegistry
}

func mustBuildDefault() *Registry {
	r, err := NewRegistry(builtins(), map[string]string{
		"lt":  LessThan,
		"lte": LessThanOrEquals,
		"gt":  GreaterThan,
		"gte": GreaterThanOrEquals,
	})
	if err != nil {
		panic(err)
	}
	return r
}

func builtins() []Operator {
	return []Operator{
		New(Equals, KindCompare, func(c exp.IdentifierExpression, v any) exp.Expression { return c.Eq(v) }),
		New(NotEquals, KindCompare, func(c exp.IdentifierExpression, v any) exp.Expression { return c.Neq(v) }),
		New(LessThan, KindCompare, func(c exp.IdentifierExpression, v any) exp.Expression { return c.Lt(v) }),
		New(LessThanOrEquals, KindCompare, func(c exp.IdentifierExpression, v any) exp.Expression { return c.Lte(v) }),
		New(GreaterThan, KindCompare, func(c exp.IdentifierExpression, v any) exp.Expression { return c.Gt(v) }),
		New(GreaterThanOrEquals, KindCompare, func(c exp.IdentifierExpression, v any) exp.Expression { return c.Gte(v) }),

		New(InArray, KindSet, func(c exp.IdentifierExpression, v any) exp.Expression {
			vals := v.([]any)
			if len(vals) == 0 {
				return goqu.L("1 = 0")
			}
			return c.In(vals)
		}),
		New(NotInArray, KindSet, func(c exp.IdentifierExpression, v any) exp.Expression {
			vals := v.([]any)
			if len(vals) == 0 {
				return goqu.L("1 = 1")
			}
			return c.NotIn(vals)
		}),

		New(Like, KindPattern, func(c exp.IdentifierExpression, v any) exp.Expression { return c.Like(v) }),
		New(ILike, KindPattern, func(c exp.IdentifierExpression, v any) exp.Expression { return c.ILike(v) }),
		New(NotLike, KindPattern, func(c exp.IdentifierExpression, v any) exp.Expression { return c.NotLike(v) }),

		New(Between, KindRange, func(c exp.IdentifierExpression, v any) exp.Expression {
			r := v.(Range)
			return c.Between(goqu.Range(r.Lower, r.Upper))
		}),
		New(NotBetween, KindRange, func(c exp.IdentifierExpression, v any) exp.Expression {
			r := v.(Range)
			return c.NotBetween(goqu.Range(r.Lower, r.Upper))
		}),

		New(IsNull, KindNull, func(c exp.IdentifierExpression, v any) exp.Expression {
			if v == false {
				return c.IsNotNull()
			}
			return c.IsNull()
		}),
		New(IsNotNull, KindNull, func(c exp.IdentifierExpression, v any) exp.Expression {
			if v == false {
				return c.IsNull()
			}
			return c.IsNotNull()
		}),
	}
}
