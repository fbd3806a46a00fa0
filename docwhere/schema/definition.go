package schema

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrInvalidDefinition is returned when a schema definition fails validation
var ErrInvalidDefinition = errors.New("invalid schema definition")

// FieldType specifies how a field is stored
type FieldType string

const (
	FieldText     FieldType = "text"
	FieldNumber   FieldType = "number"
	FieldBool     FieldType = "bool"
	FieldDate     FieldType = "date"
	FieldJSON     FieldType = "json"
	FieldRelation FieldType = "relation"
)

// Field is the compiled configuration of one field
type Field struct {
	Path       string    `json:"path"`
	Type       FieldType `json:"type"`
	Localized  bool      `json:"localized,omitempty"`
	RelationTo string    `json:"relationTo,omitempty"`
	Many       bool      `json:"many,omitempty"`
	IsTitle    bool      `json:"isTitle,omitempty"`
}

// IsRelation reports whether the field links to another collection
func (f Field) IsRelation() bool {
	return f.Type == FieldRelation
}

// Column is the flattened column name of the field
func (f Field) Column() string {
	return ColumnName(f.Path)
}

// CollectionDef declares one collection
type CollectionDef struct {
	Slug     string  `json:"slug"`
	Fields   []Field `json:"fields"`
	Versions bool    `json:"versions,omitempty"`
	Nested   bool    `json:"nested,omitempty"`
}

// Definition is the full document schema
type Definition struct {
	Locales     []string        `json:"locales,omitempty"`
	Collections []CollectionDef `json:"collections"`
}

var (
	validSlugRe    = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)
	validSegmentRe = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)
)

var reservedColumns = map[string]bool{
	ColID:        true,
	ColOwnerID:   true,
	ColLocale:    true,
	ColPath:      true,
	ColPosition:  true,
	ColStatus:    true,
	ColCreatedAt: true,
	ColUpdatedAt: true,
	VersionID:    true,
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidDefinition, fmt.Sprintf(format, args...))
}

// Validate checks slugs, field paths, types and relation targets
func (d Definition) Validate() error {
	if len(d.Collections) == 0 {
		return invalid("at least one collection is required")
	}

	slugs := make(map[string]bool, len(d.Collections))
	for _, c := range d.Collections {
		if !validSlugRe.MatchString(c.Slug) {
			return invalid("invalid collection slug %q", c.Slug)
		}
		for _, suffix := range []string{versionsSuffix, localesSuffix, relsSuffix} {
			if strings.HasSuffix(c.Slug, suffix) {
				return invalid("collection slug %q must not end in %s", c.Slug, suffix)
			}
		}
		if slugs[c.Slug] {
			return invalid("collection %q declared twice", c.Slug)
		}
		slugs[c.Slug] = true
	}

	for _, c := range d.Collections {
		if err := validateFields(c, slugs, len(d.Locales) > 0); err != nil {
			return err
		}
	}
	return nil
}

func validateFields(c CollectionDef, slugs map[string]bool, hasLocales bool) error {
	paths := make(map[string]bool, len(c.Fields))
	columns := make(map[string]string, len(c.Fields))
	titles := 0

	for _, f := range c.Fields {
		if f.Path == "" {
			return invalid("%s: field with empty path", c.Slug)
		}
		for _, seg := range strings.Split(f.Path, ".") {
			if !validSegmentRe.MatchString(seg) {
				return invalid("%s: invalid field path %q", c.Slug, f.Path)
			}
		}
		if paths[f.Path] {
			return invalid("%s: field %q declared twice", c.Slug, f.Path)
		}
		paths[f.Path] = true

		col := f.Column()
		if reservedColumns[col] {
			return invalid("%s: field %q uses a reserved name", c.Slug, f.Path)
		}
		if other, ok := columns[col]; ok {
			return invalid("%s: fields %q and %q map to the same column", c.Slug, other, f.Path)
		}
		columns[col] = f.Path

		switch f.Type {
		case FieldText, FieldNumber, FieldBool, FieldDate, FieldJSON:
			if f.RelationTo != "" || f.Many {
				return invalid("%s: field %q: relationTo and many need type relation", c.Slug, f.Path)
			}
		case FieldRelation:
			if !slugs[f.RelationTo] {
				return invalid("%s: field %q relates to unknown collection %q", c.Slug, f.Path, f.RelationTo)
			}
		default:
			return invalid("%s: field %q has unknown type %q", c.Slug, f.Path, f.Type)
		}

		if f.Localized && !hasLocales {
			return invalid("%s: field %q is localized but no locales are declared", c.Slug, f.Path)
		}
		if f.IsTitle {
			titles++
			if f.Type != FieldText {
				return invalid("%s: title field %q must be text", c.Slug, f.Path)
			}
		}
	}
	if titles > 1 {
		return invalid("%s: more than one title field", c.Slug)
	}
	return nil
}

// DefinitionFromJSON decodes and validates a definition
func DefinitionFromJSON(b []byte) (Definition, error) {
	var d Definition
	if err := json.Unmarshal(b, &d); err != nil {
		return Definition{}, fmt.Errorf("%w: %v", ErrInvalidDefinition, err)
	}
	if err := d.Validate(); err != nil {
		return Definition{}, err
	}
	return d, nil
}

// ToJSON serializes the definition
func (d Definition) ToJSON() ([]byte, error) {
	return json.MarshalIndent(d, "", "  ")
}
