package planner

import (
	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"
)

type conditionKind int

const (
	kindUnconstrained conditionKind = iota
	kindNever
	kindExpr
)

// Condition is the compiled form of a filter: Unconstrained, Never or a goqu
// expression. The zero value is Unconstrained.
type Condition struct {
	kind conditionKind
	expr exp.Expression
}

// Unconstrained matches every row
func Unconstrained() Condition {
	return Condition{kind: kindUnconstrained}
}

// Never matches no row
func Never() Condition {
	return Condition{kind: kindNever}
}

// Of wraps an expression. A nil expression is Unconstrained.
func Of(e exp.Expression) Condition {
	if e == nil {
		return Unconstrained()
	}
	return Condition{kind: kindExpr, expr: e}
}

func (c Condition) IsUnconstrained() bool { return c.kind == kindUnconstrained }
func (c Condition) IsNever() bool         { return c.kind == kindNever }

// Expression returns the goqu expression for a WHERE clause: nil when
// Unconstrained and the literal 1 = 0 when Never.
func (c Condition) Expression() exp.Expression {
	switch c.kind {
	case kindUnconstrained:
		return nil
	case kindNever:
		return goqu.L("1 = 0")
	default:
		return c.expr
	}
}

// Apply adds the condition to ds
func (c Condition) Apply(ds *goqu.SelectDataset) *goqu.SelectDataset {
	if e := c.Expression(); e != nil {
		return ds.Where(e)
	}
	return ds
}

func (c Condition) String() string {
	switch c.kind {
	case kindUnconstrained:
		return "unconstrained"
	case kindNever:
		return "never"
	default:
		return "expr"
	}
}

// AllOf combines conditions with AND. Unconstrained children are dropped and
// any Never child makes the result Never. Nothing left means Unconstrained.
func AllOf(conds ...Condition) Condition {
	var exprs []exp.Expression
	for _, c := range conds {
		switch c.kind {
		case kindNever:
			return Never()
		case kindUnconstrained:
			continue
		}
		exprs = append(exprs, c.expr)
	}
	switch len(exprs) {
	case 0:
		return Unconstrained()
	case 1:
		return Of(exprs[0])
	default:
		return Of(goqu.And(exprs...))
	}
}

// AnyOf combines conditions with OR. Never children are dropped and any
// Unconstrained child makes the result Unconstrained. Nothing left means Never.
func AnyOf(conds ...Condition) Condition {
	var exprs []exp.Expression
	for _, c := range conds {
		switch c.kind {
		case kindUnconstrained:
			return Unconstrained()
		case kindNever:
			continue
		}
		exprs = append(exprs, c.expr)
	}
	switch len(exprs) {
	case 0:
		return Never()
	case 1:
		return Of(exprs[0])
	default:
		return Of(goqu.Or(exprs...))
	}
}
