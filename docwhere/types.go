package docwhere

import (
	"time"

	"github.com/nonibytes/docwhere/docwhere/filter"
	"github.com/nonibytes/docwhere/docwhere/logger"
	"github.com/nonibytes/docwhere/docwhere/metrics"
	"github.com/nonibytes/docwhere/docwhere/ops"
)

// StoreOptions configures store behavior
type StoreOptions struct {
	// Locale is used when an operation passes no locale
	Locale   string
	MaxDepth int
	Limits   filter.Limits
	Logger   *logger.Logger
	// Metrics is optional
	Metrics *metrics.Metrics
	Now     func() time.Time
}

// DefaultStoreOptions returns sensible defaults
func DefaultStoreOptions() StoreOptions {
	return StoreOptions{
		Locale:   DefaultLocale,
		MaxDepth: DefaultMaxDepth,
		Limits:   filter.DefaultLimits(),
		Now:      time.Now,
	}
}

// FindOptions configures a find
type FindOptions struct {
	Locale string
	Limit  int
	Offset int
	// Sort is a field path, prefixed with "-" for descending order
	Sort string
}

// Document is a stored document
type Document = ops.Document

// PutResult reports what a put wrote
type PutResult = ops.PutResult

// ExplainResult describes how a filter compiles without running it
type ExplainResult struct {
	Collection string   `json:"collection"`
	Locale     string   `json:"locale,omitempty"`
	Condition  string   `json:"condition"`
	SQL        string   `json:"sql"`
	Args       []any    `json:"args"`
	Steps      []string `json:"steps,omitempty"`
}
