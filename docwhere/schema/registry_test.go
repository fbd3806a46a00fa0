package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func articlesDefinition() Definition {
	return Definition{
		Locales: []string{"en", "fr"},
		Collections: []CollectionDef{
			{Slug: "people", Fields: []Field{
				{Path: "name", Type: FieldText, IsTitle: true},
			}},
			{Slug: "tags", Fields: []Field{
				{Path: "label", Type: FieldText},
			}},
			{Slug: "articles", Fields: []Field{
				{Path: "title", Type: FieldText, IsTitle: true},
				{Path: "summary", Type: FieldText, Localized: true},
				{Path: "attributes.views", Type: FieldNumber},
				{Path: "author", Type: FieldRelation, RelationTo: "people"},
				{Path: "tags", Type: FieldRelation, RelationTo: "tags", Many: true},
			}},
			{Slug: "pages", Versions: true, Nested: true, Fields: []Field{
				{Path: "title", Type: FieldText},
			}},
		},
	}
}

func TestNewRegistryTables(t *testing.T) {
	r, err := NewRegistry(articlesDefinition())
	require.NoError(t, err)

	cols, err := r.Columns("articles")
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "createdAt", "updatedAt", "title", "attributes__views"}, cols)

	loc, err := r.LocalizedColumns("articles", "en")
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "ownerId", "locale", "summary"}, loc)

	loc, err = r.LocalizedColumns("articles", "")
	require.NoError(t, err)
	assert.Empty(t, loc)

	loc, err = r.LocalizedColumns("people", "en")
	require.NoError(t, err)
	assert.Empty(t, loc)

	c, err := r.Collection("articles")
	require.NoError(t, err)
	require.NotNil(t, c.Rels)
	assert.Equal(t, "articles_rels", c.Rels.Name)
	assert.True(t, c.Rels.Has("peopleId"))
	assert.True(t, c.Rels.Has("tagsId"))
	assert.Equal(t, "articles_locales", c.Locales.Name)

	title, ok := c.TitleField()
	require.True(t, ok)
	assert.Equal(t, "title", title.Path)
	assert.Len(t, c.RelationFields(), 2)
}

func TestNewRegistryVersions(t *testing.T) {
	r, err := NewRegistry(articlesDefinition())
	require.NoError(t, err)

	assert.Equal(t, []string{"people", "tags", "articles", "pages", "pages_versions"}, r.Slugs())

	root, err := r.Collection("pages")
	require.NoError(t, err)
	assert.False(t, root.IsVersions())
	assert.Equal(t, "pages_versions", root.Versions)
	assert.True(t, root.Table.Has("_parent"))
	assert.False(t, root.Table.Has("title"))

	v, err := r.Collection("pages_versions")
	require.NoError(t, err)
	assert.True(t, v.IsVersions())
	assert.Equal(t, "pages", v.Root)
	assert.True(t, v.Table.Has("ownerId"))
	assert.True(t, v.Table.Has("status"))
	assert.True(t, v.Table.Has("title"))
	assert.False(t, v.Table.Has("_parent"))
}

func TestUnknownCollection(t *testing.T) {
	r, err := NewRegistry(articlesDefinition())
	require.NoError(t, err)

	_, err = r.Table("nope")
	assert.ErrorIs(t, err, ErrUnknownCollection)
	_, err = r.ResolveFieldPath("nope", "title")
	assert.ErrorIs(t, err, ErrUnknownCollection)
}

func TestResolveFieldPath(t *testing.T) {
	r, err := NewRegistry(articlesDefinition())
	require.NoError(t, err)

	res, err := r.ResolveFieldPath("articles", "author")
	require.NoError(t, err)
	assert.Equal(t, "author", res.(Found).Field.Path)

	res, err = r.ResolveFieldPath("articles", "author.name")
	require.NoError(t, err)
	rem, ok := res.(FoundWithRemainder)
	require.True(t, ok, "got %T", res)
	assert.Equal(t, "author", rem.Prefix)
	assert.Equal(t, "name", rem.Remainder)
	assert.Equal(t, "people", rem.Field.RelationTo)

	res, err = r.ResolveFieldPath("articles", "attributes.views.deep.er")
	require.NoError(t, err)
	rem, ok = res.(FoundWithRemainder)
	require.True(t, ok)
	assert.Equal(t, "attributes.views", rem.Prefix)
	assert.Equal(t, "deep.er", rem.Remainder)

	res, err = r.ResolveFieldPath("articles", "missing.field")
	require.NoError(t, err)
	assert.Equal(t, NotFound{Path: "missing.field"}, res)
}

func TestHasLocale(t *testing.T) {
	r, err := NewRegistry(articlesDefinition())
	require.NoError(t, err)
	assert.True(t, r.HasLocale("fr"))
	assert.False(t, r.HasLocale("de"))
}
