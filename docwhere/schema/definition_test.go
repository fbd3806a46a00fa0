package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefinitionValidate(t *testing.T) {
	cases := map[string]func(d *Definition){
		"empty": func(d *Definition) { d.Collections = nil },
		"bad slug": func(d *Definition) {
			d.Collections[0].Slug = "People"
		},
		"reserved suffix": func(d *Definition) {
			d.Collections[0].Slug = "people_versions"
		},
		"duplicate slug": func(d *Definition) {
			d.Collections[1].Slug = "people"
		},
		"bad path": func(d *Definition) {
			d.Collections[0].Fields[0].Path = "a..b"
		},
		"reserved column": func(d *Definition) {
			d.Collections[0].Fields[0].Path = "ownerId"
		},
		"column clash": func(d *Definition) {
			d.Collections[0].Fields = append(d.Collections[0].Fields,
				Field{Path: "a.b", Type: FieldText}, Field{Path: "a__b", Type: FieldText})
		},
		"unknown type": func(d *Definition) {
			d.Collections[0].Fields[0].Type = "blob"
		},
		"unknown target": func(d *Definition) {
			d.Collections[2].Fields[3].RelationTo = "users"
		},
		"many on scalar": func(d *Definition) {
			d.Collections[0].Fields[0].Many = true
		},
		"localized without locales": func(d *Definition) {
			d.Locales = nil
		},
		"two titles": func(d *Definition) {
			d.Collections[2].Fields[1].IsTitle = true
		},
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			d := articlesDefinition()
			mutate(&d)
			assert.ErrorIs(t, d.Validate(), ErrInvalidDefinition)
		})
	}
	assert.NoError(t, articlesDefinition().Validate())
}

func TestDefinitionFromJSON(t *testing.T) {
	d, err := DefinitionFromJSON([]byte(`{
		"locales": ["en"],
		"collections": [
			{"slug": "tags", "fields": [{"path": "label", "type": "text"}]},
			{"slug": "posts", "versions": true, "fields": [
				{"path": "title", "type": "text", "isTitle": true},
				{"path": "tags", "type": "relation", "relationTo": "tags", "many": true}
			]}
		]
	}`))
	require.NoError(t, err)
	require.Len(t, d.Collections, 2)
	assert.True(t, d.Collections[1].Versions)
	assert.True(t, d.Collections[1].Fields[1].Many)

	_, err = DefinitionFromJSON([]byte(`{"collections": 3}`))
	assert.ErrorIs(t, err, ErrInvalidDefinition)
}
