package planner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nonibytes/docwhere/docwhere/filter"
	"github.com/nonibytes/docwhere/docwhere/operator"
	"github.com/nonibytes/docwhere/docwhere/schema"
)

type warning struct {
	msg    string
	fields map[string]interface{}
}

type recorder struct {
	warnings []warning
}

func (r *recorder) Warn(msg string, _ error, fields ...map[string]interface{}) {
	w := warning{msg: msg}
	if len(fields) > 0 {
		w.fields = fields[0]
	}
	r.warnings = append(r.warnings, w)
}

func testRegistry(t *testing.T) *schema.Registry {
	t.Helper()
	r, err := schema.NewRegistry(schema.Definition{
		Locales: []string{"en", "fr"},
		Collections: []schema.CollectionDef{
			{Slug: "people", Fields: []schema.Field{
				{Path: "name", Type: schema.FieldText, IsTitle: true},
				{Path: "bio", Type: schema.FieldText, Localized: true},
				{Path: "employer", Type: schema.FieldRelation, RelationTo: "companies"},
			}},
			{Slug: "companies", Fields: []schema.Field{
				{Path: "name", Type: schema.FieldText},
			}},
			{Slug: "tags", Fields: []schema.Field{
				{Path: "label", Type: schema.FieldText},
			}},
			{Slug: "articles", Fields: []schema.Field{
				{Path: "title", Type: schema.FieldText, IsTitle: true},
				{Path: "summary", Type: schema.FieldText, Localized: true},
				{Path: "attributes.views", Type: schema.FieldNumber},
				{Path: "author", Type: schema.FieldRelation, RelationTo: "people"},
				{Path: "tags", Type: schema.FieldRelation, RelationTo: "tags", Many: true},
				{Path: "translations", Type: schema.FieldRelation, RelationTo: "tags", Many: true, Localized: true},
				{Path: "page", Type: schema.FieldRelation, RelationTo: "pages"},
			}},
			{Slug: "pages", Versions: true, Nested: true, Fields: []schema.Field{
				{Path: "title", Type: schema.FieldText},
			}},
		},
	})
	require.NoError(t, err)
	return r
}

func newTestCompiler(t *testing.T) (*Compiler, *recorder) {
	t.Helper()
	rec := &recorder{}
	return NewCompiler(testRegistry(t), Options{Diagnostics: rec}), rec
}

func testLeaf(field, op string, v any) filter.Leaf {
	return filter.Leaf{Field: field, Operator: op, Value: v}
}

func toSQL(t *testing.T, c *Compiler, slug string, cond Condition) (string, []interface{}) {
	t.Helper()
	ds, err := c.MatchingIDs(slug, cond)
	require.NoError(t, err)
	sql, args, err := ds.Prepared(true).ToSQL()
	require.NoError(t, err)
	return sql, args
}

func compileSQL(t *testing.T, c *Compiler, slug string, expr filter.Expr, locale string) (string, []interface{}) {
	t.Helper()
	cond, err := c.Compile(slug, expr, locale)
	require.NoError(t, err)
	return toSQL(t, c, slug, cond)
}

func TestCompileScalar(t *testing.T) {
	c, rec := newTestCompiler(t)
	sql, args := compileSQL(t, c, "articles", testLeaf("title", "equals", "A"), "")
	assert.Equal(t, "SELECT `articles`.`id` FROM `articles` WHERE (`articles`.`title` = ?)", sql)
	assert.Equal(t, []interface{}{"A"}, args)
	assert.Empty(t, rec.warnings)
}

func TestCompileNestedPathFlattens(t *testing.T) {
	c, _ := newTestCompiler(t)
	sql, args := compileSQL(t, c, "articles", testLeaf("attributes.views", "gt", int64(10)), "")
	assert.Contains(t, sql, "`articles`.`attributes__views` > ?")
	assert.Equal(t, []interface{}{int64(10)}, args)
}

func TestSingleChildGroupIsTransparent(t *testing.T) {
	c, _ := newTestCompiler(t)
	for _, f := range []filter.Expr{
		testLeaf("title", "equals", "A"),
		testLeaf("summary", "like", "x"),
		testLeaf("tags", "equals", []any{"t1", "t2"}),
		testLeaf("author.name", "equals", "Ann"),
	} {
		plain, plainArgs := compileSQL(t, c, "articles", f, "en")
		wrapped, wrappedArgs := compileSQL(t, c, "articles", filter.And{f}, "en")
		assert.Equal(t, plain, wrapped)
		assert.Equal(t, plainArgs, wrappedArgs)

		ored, _ := compileSQL(t, c, "articles", filter.Or{filter.And{f}}, "en")
		assert.Equal(t, plain, ored)
	}
}

func TestUnknownFieldNeverMatches(t *testing.T) {
	c, rec := newTestCompiler(t)
	cond, err := c.Compile("articles", testLeaf("missingField", "equals", "x"), "")
	require.NoError(t, err)
	assert.True(t, cond.IsNever())

	sql, _ := toSQL(t, c, "articles", cond)
	assert.Contains(t, sql, "1 = 0")

	require.Len(t, rec.warnings, 1)
	assert.Contains(t, rec.warnings[0].msg, "missingField")
	assert.Equal(t, "articles", rec.warnings[0].fields["collection"])
	assert.Equal(t, ReasonUnresolvedField, rec.warnings[0].fields["reason"])
}

func TestNonRelationPrefixNeverMatches(t *testing.T) {
	c, rec := newTestCompiler(t)
	cond, err := c.Compile("articles", testLeaf("title.sub", "equals", "x"), "")
	require.NoError(t, err)
	assert.True(t, cond.IsNever())
	assert.Len(t, rec.warnings, 1)
}

func TestUnknownOperatorIsHardError(t *testing.T) {
	c, rec := newTestCompiler(t)
	_, err := c.Compile("articles", testLeaf("missingField", "contains", "x"), "")
	require.Error(t, err)
	assert.ErrorIs(t, err, operator.ErrUnknownOperator)

	var perr *Error
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "missingField", perr.Field)
	assert.Empty(t, rec.warnings)
}

func TestInvalidRangeIsHardError(t *testing.T) {
	c, _ := newTestCompiler(t)
	_, err := c.Compile("articles", testLeaf("attributes.views", "between", "1"), "")
	assert.ErrorIs(t, err, operator.ErrInvalidValue)
}

func TestUnknownCollection(t *testing.T) {
	c, _ := newTestCompiler(t)
	_, err := c.Compile("nope", testLeaf("title", "equals", "x"), "")
	assert.ErrorIs(t, err, schema.ErrUnknownCollection)
}

func TestGroupAbsorption(t *testing.T) {
	c, _ := newTestCompiler(t)
	missing := testLeaf("missing", "equals", 1)
	title := testLeaf("title", "equals", "A")

	cond, err := c.Compile("articles", filter.And{}, "")
	require.NoError(t, err)
	assert.True(t, cond.IsUnconstrained())

	cond, err = c.Compile("articles", filter.Or{}, "")
	require.NoError(t, err)
	assert.True(t, cond.IsNever())

	cond, err = c.Compile("articles", filter.And{title, missing}, "")
	require.NoError(t, err)
	assert.True(t, cond.IsNever())

	plain, _ := compileSQL(t, c, "articles", title, "")
	ored, _ := compileSQL(t, c, "articles", filter.Or{missing, title}, "")
	assert.Equal(t, plain, ored)

	cond, err = c.Compile("articles", filter.Or{title, filter.And{}}, "")
	require.NoError(t, err)
	assert.True(t, cond.IsUnconstrained())

	anded, _ := compileSQL(t, c, "articles", filter.And{filter.And{}, title}, "")
	assert.Equal(t, plain, anded)
}

func TestGroupCombines(t *testing.T) {
	c, _ := newTestCompiler(t)
	sql, args := compileSQL(t, c, "articles", filter.Or{
		testLeaf("title", "equals", "A"),
		testLeaf("title", "equals", "B"),
	}, "")
	assert.Equal(t, "SELECT `articles`.`id` FROM `articles` WHERE ((`articles`.`title` = ?) OR (`articles`.`title` = ?))", sql)
	assert.Equal(t, []interface{}{"A", "B"}, args)
}

func TestCompileLocalized(t *testing.T) {
	c, rec := newTestCompiler(t)
	sql, args := compileSQL(t, c, "articles", testLeaf("summary", "like", "intro"), "fr")
	assert.Contains(t, sql, "`articles`.`id` IN ((SELECT `articles_locales`.`ownerId` FROM `articles_locales` WHERE ((`articles_locales`.`summary` LIKE ?) AND (`articles_locales`.`locale` = ?))))")
	assert.Equal(t, []interface{}{"%intro%", "fr"}, args)

	cond, err := c.Compile("articles", testLeaf("summary", "like", "intro"), "")
	require.NoError(t, err)
	assert.True(t, cond.IsNever(), "localized fields need a locale")
	assert.Len(t, rec.warnings, 1)
}

func TestVersionsIDRewrite(t *testing.T) {
	c, _ := newTestCompiler(t)
	id, idArgs := compileSQL(t, c, "pages_versions", testLeaf("id", "equals", "X"), "")
	owner, ownerArgs := compileSQL(t, c, "pages_versions", testLeaf("ownerId", "equals", "X"), "")
	assert.Equal(t, owner, id)
	assert.Equal(t, ownerArgs, idArgs)
	assert.Contains(t, id, "`pages_versions`.`ownerId` = ?")

	version, _ := compileSQL(t, c, "pages_versions", testLeaf("versionId", "equals", "X"), "")
	assert.Contains(t, version, "`pages_versions`.`id` = ?")

	plain, _ := compileSQL(t, c, "pages", testLeaf("id", "equals", "X"), "")
	assert.Contains(t, plain, "`pages`.`id` = ?")
}

func TestVersionsHierarchyOnRoot(t *testing.T) {
	c, _ := newTestCompiler(t)
	sql, args := compileSQL(t, c, "pages_versions", testLeaf("_parent", "equals", "P"), "")
	assert.Contains(t, sql, "`pages_versions`.`ownerId` IN ((SELECT `pages`.`id` FROM `pages` WHERE (`pages`.`_parent` = ?)))")
	assert.Equal(t, []interface{}{"P"}, args)
}

func TestRootFieldMatchesRevisions(t *testing.T) {
	c, rec := newTestCompiler(t)
	sql, args := compileSQL(t, c, "pages", testLeaf("title", "equals", "Home"), "")
	assert.Contains(t, sql, "`pages`.`id` IN ((SELECT `pages_versions`.`ownerId` FROM `pages_versions` WHERE (`pages_versions`.`title` = ?)))")
	assert.Equal(t, []interface{}{"Home"}, args)

	// hierarchy columns live on the root itself
	sql, _ = compileSQL(t, c, "pages", testLeaf("_parent", "equals", "P"), "")
	assert.Contains(t, sql, "(`pages`.`_parent` = ?)")
	assert.NotContains(t, sql, "pages_versions")

	cond, err := c.Compile("pages", testLeaf("shoeSize", "equals", 1), "")
	require.NoError(t, err)
	assert.True(t, cond.IsNever())
	require.Len(t, rec.warnings, 1)
	assert.Equal(t, "pages_versions", rec.warnings[0].fields["collection"])
}

func TestCompileSingleRelation(t *testing.T) {
	c, _ := newTestCompiler(t)
	sql, args := compileSQL(t, c, "articles", testLeaf("author", "equals", "p1"), "")
	assert.Contains(t, sql, "`articles`.`id` IN ((SELECT `articles_rels`.`ownerId` FROM `articles_rels` WHERE ((`articles_rels`.`peopleId` = ?) AND (`articles_rels`.`path` = ?))))")
	assert.Equal(t, []interface{}{"p1", "author"}, args)
}

func TestCompileManyRelation(t *testing.T) {
	c, _ := newTestCompiler(t)

	sql, args := compileSQL(t, c, "articles", testLeaf("tags", "equals", "t1,t2,t1"), "")
	assert.Contains(t, sql, "HAVING (COUNT(`articles_rels`.`id`) = ?)")
	assert.Contains(t, sql, "`articles_rels`.`tagsId` IN (?, ?)")
	assert.Equal(t, []interface{}{"tags", int64(2), "t1", "t2", "tags", int64(2)}, args)

	sql, _ = compileSQL(t, c, "articles", testLeaf("tags", "not_equals", []any{"t1"}), "")
	assert.Contains(t, sql, " OR ")
	assert.Contains(t, sql, "`articles`.`id` NOT IN ((SELECT")

	sql, _ = compileSQL(t, c, "articles", testLeaf("tags", "in_array", []any{"t1", "t2"}), "")
	assert.Contains(t, sql, "`articles_rels`.`tagsId` NOT IN (?, ?)")
	assert.Contains(t, sql, "HAVING (COUNT(`articles_rels`.`id`) > ?)")

	sql, _ = compileSQL(t, c, "articles", testLeaf("tags", "not_in_array", "t1"), "")
	assert.Contains(t, sql, "`articles`.`id` IN ((SELECT")
	assert.Contains(t, sql, "`articles_rels`.`tagsId` NOT IN (?)")
}

func TestManyRelationDedupesByText(t *testing.T) {
	c, _ := newTestCompiler(t)
	_, args := compileSQL(t, c, "articles", testLeaf("tags", "equals", []any{int64(1), "1"}), "")
	assert.Equal(t, []interface{}{"tags", int64(1), int64(1), "tags", int64(1)}, args)
}

func TestManyRelationLocalizedFiltersLocale(t *testing.T) {
	c, _ := newTestCompiler(t)
	sql, args := compileSQL(t, c, "articles", testLeaf("translations", "not_in_array", "t1"), "fr")
	assert.Contains(t, sql, "`articles_rels`.`locale` = ?")
	assert.Contains(t, args, "fr")
}

func TestLocalizedRelationNeedsLocale(t *testing.T) {
	c, rec := newTestCompiler(t)
	cond, err := c.Compile("articles", testLeaf("translations", "in_array", "t1"), "")
	require.NoError(t, err)
	assert.True(t, cond.IsNever(), "links of a localized relation are per locale")
	require.Len(t, rec.warnings, 1)
	assert.Equal(t, ReasonUnresolvedField, rec.warnings[0].fields["reason"])

	cond, err = c.Compile("articles", testLeaf("translations.label", "equals", "go"), "")
	require.NoError(t, err)
	assert.True(t, cond.IsNever())

	sql, args := compileSQL(t, c, "articles", testLeaf("translations", "in_array", "t1"), "fr")
	assert.Contains(t, sql, "`articles_rels`.`locale` = ?")
	assert.Contains(t, args, "fr")
}

func TestManyRelationUnsupportedOperator(t *testing.T) {
	c, rec := newTestCompiler(t)
	cond, err := c.Compile("articles", testLeaf("tags", "like", "t"), "")
	require.NoError(t, err)
	assert.True(t, cond.IsNever())
	require.Len(t, rec.warnings, 1)
	assert.Contains(t, rec.warnings[0].msg, "multi-valued")
	assert.Equal(t, "like", rec.warnings[0].fields["operator"])
	assert.Equal(t, ReasonUnsupportedOperator, rec.warnings[0].fields["reason"])
}

func TestManyRelationEmptySet(t *testing.T) {
	c, _ := newTestCompiler(t)
	cond, err := c.Compile("articles", testLeaf("tags", "in_array", []any{}), "")
	require.NoError(t, err)
	assert.True(t, cond.IsNever())

	sql, _ := compileSQL(t, c, "articles", testLeaf("tags", "equals", []any{}), "")
	assert.Contains(t, sql, "`articles`.`id` NOT IN ((SELECT")
}

func TestRelationProperty(t *testing.T) {
	c, _ := newTestCompiler(t)
	sql, args := compileSQL(t, c, "articles", testLeaf("author.name", "equals", "Ann"), "")
	assert.Contains(t, sql, "`articles_rels`.`peopleId` IN ((SELECT `people`.`id` FROM `people` WHERE (`people`.`name` = ?)))")
	assert.Contains(t, sql, "`articles_rels`.`path` = ?")
	assert.Equal(t, []interface{}{"Ann", "author"}, args)
}

func TestRelationPropertyIsTransitive(t *testing.T) {
	c, _ := newTestCompiler(t)
	sql, args := compileSQL(t, c, "articles", testLeaf("author.employer.name", "equals", "Acme"), "")
	assert.Contains(t, sql, "`people_rels`.`companiesId` IN ((SELECT `companies`.`id` FROM `companies` WHERE (`companies`.`name` = ?)))")
	assert.Equal(t, []interface{}{"Acme", "employer", "author"}, args)
}

func TestRelationPropertyNeverPropagates(t *testing.T) {
	c, rec := newTestCompiler(t)
	cond, err := c.Compile("articles", testLeaf("author.shoeSize", "equals", 42), "")
	require.NoError(t, err)
	assert.True(t, cond.IsNever())
	require.Len(t, rec.warnings, 1)
	assert.Equal(t, "people", rec.warnings[0].fields["collection"])
}

func TestRelationPropertyOnVersionedTarget(t *testing.T) {
	c, _ := newTestCompiler(t)
	sql, _ := compileSQL(t, c, "articles", testLeaf("page.title", "equals", "Home"), "")
	assert.Contains(t, sql, "`articles_rels`.`pagesId` IN ((SELECT `pages_versions`.`ownerId` FROM `pages_versions` WHERE (`pages_versions`.`title` = ?)))")
}

func TestRelationPropertyLocalizedTarget(t *testing.T) {
	c, _ := newTestCompiler(t)
	sql, args := compileSQL(t, c, "articles", testLeaf("author.bio", "like", "chef"), "en")
	assert.Contains(t, sql, "`people_locales`.`bio` LIKE ?")
	assert.Equal(t, []interface{}{"%chef%", "en", "author"}, args)
}

func TestMaxDepth(t *testing.T) {
	c := NewCompiler(testRegistry(t), Options{MaxDepth: 3})
	var expr filter.Expr = testLeaf("title", "equals", "A")
	_, err := c.Compile("articles", filter.And{filter.And{expr}}, "")
	require.NoError(t, err)

	_, err = c.Compile("articles", filter.And{filter.And{filter.And{expr}}}, "")
	assert.ErrorIs(t, err, ErrTooDeep)

	_, err = c.Compile("articles", filter.And{filter.And{testLeaf("author.employer.name", "equals", "x")}}, "")
	assert.ErrorIs(t, err, ErrTooDeep)
}

func TestExplainSteps(t *testing.T) {
	c, _ := newTestCompiler(t)
	out, err := c.Explain("articles", filter.And{
		testLeaf("title", "equals", "A"),
		testLeaf("author.name", "equals", "Ann"),
		testLeaf("nope", "equals", 1),
	}, "")
	require.NoError(t, err)
	assert.True(t, out.Condition.IsNever())
	require.Len(t, out.ExplainSteps, 4)
	assert.Contains(t, out.ExplainSteps[0], "column title")
	assert.Contains(t, out.ExplainSteps[1], `property "name" of people`)
	assert.Contains(t, out.ExplainSteps[3], "unresolved")
}

func TestPostgresDialect(t *testing.T) {
	c := NewCompiler(testRegistry(t), Options{Dialect: "postgres"})
	cond, err := c.Compile("articles", testLeaf("author.name", "equals", "Ann"), "")
	require.NoError(t, err)
	ds, err := c.MatchingIDs("articles", cond)
	require.NoError(t, err)
	sql, _, err := ds.Prepared(true).ToSQL()
	require.NoError(t, err)
	assert.Contains(t, sql, `"people"."name" = $1`)
	assert.Contains(t, sql, `"articles_rels"."path" = $2`)
}
