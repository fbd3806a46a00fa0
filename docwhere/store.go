package docwhere

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/nonibytes/docwhere/docwhere/filter"
	"github.com/nonibytes/docwhere/docwhere/logger"
	"github.com/nonibytes/docwhere/docwhere/metrics"
	"github.com/nonibytes/docwhere/docwhere/ops"
	"github.com/nonibytes/docwhere/docwhere/planner"
	"github.com/nonibytes/docwhere/docwhere/schema"
	"github.com/nonibytes/docwhere/docwhere/storage"
)

// Store represents an open docwhere database
type Store struct {
	adapter  storage.Adapter
	db       *sql.DB
	def      schema.Definition
	registry *schema.Registry
	compiler *planner.Compiler
	log      *logger.Logger
	opts     StoreOptions
}

// Create creates the tables for def and returns the open store
func Create(ctx context.Context, adapter storage.Adapter, def schema.Definition, opts StoreOptions) (*Store, error) {
	reg, err := schema.NewRegistry(def)
	if err != nil {
		return nil, Wrap(ErrSchema, "build registry", err)
	}
	defJSON, err := def.ToJSON()
	if err != nil {
		return nil, Wrap(ErrSchema, "encode definition", err)
	}

	db, err := adapter.Connect(ctx)
	if err != nil {
		return nil, Wrap(ErrIO, "connect to database", err)
	}
	if err := adapter.CreateTables(ctx, db, reg, defJSON); err != nil {
		db.Close()
		return nil, Wrap(ErrSQL, "create tables", err)
	}
	return newStore(adapter, db, def, reg, opts), nil
}

// Open opens a store created by Create, reading its definition from the database
func Open(ctx context.Context, adapter storage.Adapter, opts StoreOptions) (*Store, error) {
	db, err := adapter.Connect(ctx)
	if err != nil {
		return nil, Wrap(ErrIO, "connect to database", err)
	}

	defJSON, err := adapter.OpenStore(ctx, db)
	if err != nil {
		db.Close()
		return nil, Wrap(ErrSQL, "open store", err)
	}
	def, err := schema.DefinitionFromJSON(defJSON)
	if err != nil {
		db.Close()
		return nil, Wrap(ErrSchema, "decode definition", err)
	}
	reg, err := schema.NewRegistry(def)
	if err != nil {
		db.Close()
		return nil, Wrap(ErrSchema, "build registry", err)
	}
	return newStore(adapter, db, def, reg, opts), nil
}

func newStore(adapter storage.Adapter, db *sql.DB, def schema.Definition, reg *schema.Registry, opts StoreOptions) *Store {
	d := DefaultStoreOptions()
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = d.MaxDepth
	}
	if opts.Limits == (filter.Limits{}) {
		opts.Limits = d.Limits
	}
	if opts.Now == nil {
		opts.Now = d.Now
	}
	log := opts.Logger
	if log == nil {
		log = logger.NewNop()
	}

	compiler := planner.NewCompiler(reg, planner.Options{
		Dialect:     adapter.Dialect(),
		MaxDepth:    opts.MaxDepth,
		Diagnostics: metrics.Sink{Metrics: opts.Metrics, Next: log},
	})
	return &Store{
		adapter:  adapter,
		db:       db,
		def:      def,
		registry: reg,
		compiler: compiler,
		log:      log,
		opts:     opts,
	}
}

// Close closes the store
func (s *Store) Close() error {
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			return Wrap(ErrIO, "close database", err)
		}
	}
	return s.adapter.Close()
}

// Definition returns the schema definition the store was created with
func (s *Store) Definition() schema.Definition {
	return s.def
}

// Registry returns the resolved schema
func (s *Store) Registry() *schema.Registry {
	return s.registry
}

// DB exposes the underlying connection pool
func (s *Store) DB() *sql.DB {
	return s.db
}

// locale picks the effective locale for an operation. Stores without locales
// always use the empty locale.
func (s *Store) locale(l string) (string, error) {
	declared := s.registry.Locales()
	if len(declared) == 0 {
		return "", nil
	}
	if l == "" {
		l = s.opts.Locale
		if !s.registry.HasLocale(l) {
			l = declared[0]
		}
	}
	if !s.registry.HasLocale(l) {
		return "", New(ErrSchema, fmt.Sprintf("unknown locale %q", l))
	}
	return l, nil
}

// Compile validates expr and compiles it against slug
func (s *Store) Compile(slug string, expr filter.Expr, locale string) (planner.Condition, error) {
	loc, err := s.locale(locale)
	if err != nil {
		return planner.Condition{}, err
	}
	return s.compile(slug, expr, loc)
}

func (s *Store) compile(slug string, expr filter.Expr, locale string) (planner.Condition, error) {
	if err := filter.Validate(expr, s.opts.Limits); err != nil {
		s.opts.Metrics.ObserveCompile(slug, err)
		return planner.Condition{}, classifyCompileError(slug, err)
	}
	cond, err := s.compiler.Compile(slug, expr, locale)
	s.opts.Metrics.ObserveCompile(slug, err)
	if err != nil {
		return planner.Condition{}, classifyCompileError(slug, err)
	}
	s.log.Debug("filter compiled", nil, map[string]interface{}{
		"collection": slug,
		"locale":     locale,
		"condition":  cond.String(),
	})
	return cond, nil
}

// Put inserts or replaces one document. For a versioned collection the root
// row is upserted and a new version is written.
func (s *Store) Put(ctx context.Context, slug string, doc map[string]any, locale string) (*PutResult, error) {
	res, err := s.PutMany(ctx, slug, []map[string]any{doc}, locale)
	if err != nil {
		return nil, err
	}
	return res[0], nil
}

// PutJSON decodes a JSON object and puts it
func (s *Store) PutJSON(ctx context.Context, slug string, docJSON []byte, locale string) (*PutResult, error) {
	var doc map[string]any
	if err := json.Unmarshal(docJSON, &doc); err != nil {
		return nil, Wrap(ErrSchema, "invalid document JSON", err)
	}
	if doc == nil {
		return nil, New(ErrSchema, "document must be a JSON object")
	}
	return s.Put(ctx, slug, doc, locale)
}

// PutMany writes docs in a single transaction
func (s *Store) PutMany(ctx context.Context, slug string, docs []map[string]any, locale string) ([]*PutResult, error) {
	loc, err := s.locale(locale)
	if err != nil {
		return nil, err
	}

	preps := make([]*ops.PutPrepared, 0, len(docs))
	for i, doc := range docs {
		prep, err := ops.PreparePut(s.registry, slug, doc, loc)
		if err != nil {
			return nil, classifyPutError(slug, fmt.Sprintf("prepare document %d", i), err)
		}
		preps = append(preps, prep)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, Wrap(ErrSQL, "begin transaction", err)
	}
	defer tx.Rollback()

	dialect := s.compiler.Dialect()
	out := make([]*PutResult, 0, len(preps))
	for _, prep := range preps {
		res, err := ops.ExecutePut(ctx, tx, dialect, prep, s.opts.Now())
		if err != nil {
			return nil, &Error{Kind: ErrSQL, Message: "execute put", Collection: slug, Cause: err}
		}
		out = append(out, res)
	}

	if err := tx.Commit(); err != nil {
		return nil, Wrap(ErrSQL, "commit", err)
	}
	return out, nil
}

// Find returns the documents of slug matching expr. On a versioned root,
// field filters match any revision and the documents carry identity and
// hierarchy only; read revisions through the <slug>_versions collection.
func (s *Store) Find(ctx context.Context, slug string, expr filter.Expr, opts FindOptions) ([]Document, error) {
	loc, err := s.locale(opts.Locale)
	if err != nil {
		return nil, err
	}
	cond, err := s.compile(slug, expr, loc)
	if err != nil {
		return nil, err
	}
	if opts.Limit <= 0 {
		opts.Limit = DefaultLimit
	}

	docs, err := ops.Find(ctx, s.db, s.compiler, slug, cond, ops.FindOptions{
		Locale: loc,
		Limit:  opts.Limit,
		Offset: opts.Offset,
		Sort:   opts.Sort,
	})
	if err != nil {
		return nil, classifyRunError(slug, "find", err)
	}
	return docs, nil
}

// Get loads one document by id
func (s *Store) Get(ctx context.Context, slug, id, locale string) (*Document, error) {
	docs, err := s.Find(ctx, slug, filter.Leaf{Field: schema.ColID, Operator: "equals", Value: id}, FindOptions{
		Locale: locale,
		Limit:  1,
	})
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, NotFoundError(slug, id)
	}
	return &docs[0], nil
}

// Count returns the number of documents of slug matching expr
func (s *Store) Count(ctx context.Context, slug string, expr filter.Expr, locale string) (int64, error) {
	loc, err := s.locale(locale)
	if err != nil {
		return 0, err
	}
	cond, err := s.compile(slug, expr, loc)
	if err != nil {
		return 0, err
	}
	n, err := ops.Count(ctx, s.db, s.compiler, slug, cond)
	if err != nil {
		return 0, classifyRunError(slug, "count", err)
	}
	return n, nil
}

// DeleteWhere deletes the documents of slug matching expr with their locale
// and relation rows
func (s *Store) DeleteWhere(ctx context.Context, slug string, expr filter.Expr, locale string) (int64, error) {
	loc, err := s.locale(locale)
	if err != nil {
		return 0, err
	}
	cond, err := s.compile(slug, expr, loc)
	if err != nil {
		return 0, err
	}
	n, err := ops.DeleteWhere(ctx, s.db, s.compiler, slug, cond)
	if err != nil {
		return 0, classifyRunError(slug, "delete", err)
	}
	return n, nil
}

// Delete removes one document by id
func (s *Store) Delete(ctx context.Context, slug, id string) (bool, error) {
	n, err := s.DeleteWhere(ctx, slug, filter.Leaf{Field: schema.ColID, Operator: "equals", Value: id}, "")
	return n > 0, err
}

// Explain compiles expr and renders the find statement without executing it
func (s *Store) Explain(slug string, expr filter.Expr, opts FindOptions) (*ExplainResult, error) {
	loc, err := s.locale(opts.Locale)
	if err != nil {
		return nil, err
	}
	if err := filter.Validate(expr, s.opts.Limits); err != nil {
		return nil, classifyCompileError(slug, err)
	}
	out, err := s.compiler.Explain(slug, expr, loc)
	if err != nil {
		return nil, classifyCompileError(slug, err)
	}
	if opts.Limit <= 0 {
		opts.Limit = DefaultLimit
	}

	ds, _, err := s.compiler.SelectDocuments(slug, out.Condition, loc, planner.Page{
		Limit:  opts.Limit,
		Offset: opts.Offset,
		Sort:   opts.Sort,
	})
	if err != nil {
		return nil, classifyRunError(slug, "explain", err)
	}
	query, args, err := ops.Explain(ds.Prepared(true))
	if err != nil {
		return nil, &Error{Kind: ErrSQL, Message: "render query", Collection: slug, Cause: err}
	}
	return &ExplainResult{
		Collection: slug,
		Locale:     loc,
		Condition:  out.Condition.String(),
		SQL:        query,
		Args:       args,
		Steps:      out.ExplainSteps,
	}, nil
}

// ParseWhere parses a filter given either as a JSON object or in bracket
// query-string notation
func ParseWhere(raw string) (filter.Expr, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, nil
	}
	var (
		expr filter.Expr
		err  error
	)
	if strings.HasPrefix(trimmed, "{") {
		expr, err = filter.ParseJSON([]byte(trimmed))
	} else {
		expr, err = filter.ParseQueryString(trimmed)
	}
	if err != nil {
		return nil, Wrap(ErrQueryParse, "parse filter", err)
	}
	return expr, nil
}

func classifyPutError(slug, msg string, err error) *Error {
	kind := ErrSchema
	if errors.Is(err, schema.ErrUnknownCollection) {
		kind = ErrUnknownSlug
	}
	return &Error{Kind: kind, Message: msg, Collection: slug, Cause: err}
}

func classifyRunError(slug, msg string, err error) *Error {
	kind := ErrSQL
	switch {
	case errors.Is(err, schema.ErrUnknownCollection):
		kind = ErrUnknownSlug
	case errors.Is(err, planner.ErrUnknownSortField):
		kind = ErrQueryRejected
	}
	return &Error{Kind: kind, Message: msg, Collection: slug, Cause: err}
}
