package docwhere

import (
	"errors"
	"fmt"

	"github.com/nonibytes/docwhere/docwhere/filter"
	"github.com/nonibytes/docwhere/docwhere/operator"
	"github.com/nonibytes/docwhere/docwhere/planner"
	"github.com/nonibytes/docwhere/docwhere/schema"
)

type ErrorKind string

const (
	ErrIO            ErrorKind = "io"
	ErrSQL           ErrorKind = "sql"
	ErrSchema        ErrorKind = "schema"
	ErrQueryParse    ErrorKind = "query_parse"
	ErrQueryRejected ErrorKind = "query_rejected"
	ErrUnknownSlug   ErrorKind = "unknown_collection"
	ErrNotFound      ErrorKind = "not_found"
)

type Error struct {
	Kind       ErrorKind
	Message    string
	Collection string
	Cause      error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	base := fmt.Sprintf("%s: %s", e.Kind, e.Message)
	if e.Collection != "" {
		base = fmt.Sprintf("%s (collection=%s)", base, e.Collection)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", base, e.Cause)
	}
	return base
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func Wrap(kind ErrorKind, msg string, cause error) *Error {
	return &Error{Kind: kind, Message: msg, Cause: cause}
}

func New(kind ErrorKind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

func SchemaError(msg string) *Error {
	return &Error{Kind: ErrSchema, Message: msg}
}

func QueryParseError(msg string) *Error {
	return &Error{Kind: ErrQueryParse, Message: msg}
}

func NotFoundError(slug, id string) *Error {
	return &Error{Kind: ErrNotFound, Message: fmt.Sprintf("document not found: %s", id), Collection: slug}
}

func IsKind(err error, kind ErrorKind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// classifyCompileError maps errors from the filter and planner packages to a kind.
func classifyCompileError(slug string, err error) *Error {
	kind := ErrQueryRejected
	switch {
	case errors.Is(err, filter.ErrMalformed):
		kind = ErrQueryParse
	case errors.Is(err, schema.ErrUnknownCollection):
		kind = ErrUnknownSlug
	case errors.Is(err, operator.ErrUnknownOperator),
		errors.Is(err, operator.ErrInvalidValue),
		errors.Is(err, filter.ErrTooComplex),
		errors.Is(err, planner.ErrTooDeep):
		kind = ErrQueryRejected
	}
	return &Error{Kind: kind, Message: "compile filter", Collection: slug, Cause: err}
}
