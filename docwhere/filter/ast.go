package filter

import (
	"fmt"
	"strings"
)

// Expr represents a filter expression
type Expr interface {
	isExpr()
}

// And matches when every child matches. An empty And matches everything.
type And []Expr

func (And) isExpr() {}

// Or matches when at least one child matches. An empty Or matches nothing.
type Or []Expr

func (Or) isExpr() {}

// Leaf compares a dotted field path against a raw value with one operator
type Leaf struct {
	Field    string
	Operator string
	Value    any
}

func (Leaf) isExpr() {}

// Segments splits the field path on dots
func (l Leaf) Segments() []string {
	return strings.Split(l.Field, ".")
}

func (l Leaf) String() string {
	return fmt.Sprintf("%s[%s]=%v", l.Field, l.Operator, l.Value)
}

// Walk calls fn for every leaf in depth-first order
func Walk(expr Expr, fn func(Leaf)) {
	switch e := expr.(type) {
	case And:
		for _, c := range e {
			Walk(c, fn)
		}
	case Or:
		for _, c := range e {
			Walk(c, fn)
		}
	case Leaf:
		fn(e)
	}
}
