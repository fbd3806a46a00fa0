package filter

import (
	"errors"
	"fmt"
	"strings"
)

// ErrTooComplex is returned when an expression exceeds the configured limits
var ErrTooComplex = errors.New("filter too complex")

// Limits bounds the size of a filter before it reaches the compiler
type Limits struct {
	MaxDepth  int
	MaxLeaves int
}

// DefaultLimits returns default validation limits
func DefaultLimits() Limits {
	return Limits{
		MaxDepth:  32,
		MaxLeaves: 512,
	}
}

// Validate checks nesting depth, leaf count and leaf well-formedness
func Validate(expr Expr, limits Limits) error {
	if d := Depth(expr); limits.MaxDepth > 0 && d > limits.MaxDepth {
		return fmt.Errorf("%w: depth %d exceeds %d", ErrTooComplex, d, limits.MaxDepth)
	}

	var leaves int
	var bad error
	Walk(expr, func(l Leaf) {
		leaves++
		if bad != nil {
			return
		}
		if l.Operator == "" {
			bad = malformed("field %q has no operator", l.Field)
			return
		}
		for _, seg := range l.Segments() {
			if strings.TrimSpace(seg) == "" {
				bad = malformed("field %q has an empty path segment", l.Field)
				return
			}
		}
	})
	if bad != nil {
		return bad
	}
	if limits.MaxLeaves > 0 && leaves > limits.MaxLeaves {
		return fmt.Errorf("%w: %d conditions exceed %d", ErrTooComplex, leaves, limits.MaxLeaves)
	}
	return nil
}

// Depth returns the nesting depth. A leaf has depth 1.
func Depth(expr Expr) int {
	var children []Expr
	switch e := expr.(type) {
	case And:
		children = e
	case Or:
		children = e
	case Leaf:
		return 1
	default:
		return 0
	}
	max := 0
	for _, c := range children {
		if d := Depth(c); d > max {
			max = d
		}
	}
	return max + 1
}
