package planner

import (
	"github.com/nonibytes/docwhere/docwhere/schema"
)

// target is what a leaf's field path resolved to
type target interface {
	isTarget()
}

type scalarTarget struct {
	column string
}

type localizedTarget struct {
	column string
}

type hierarchyTarget struct {
	column string
	root   *schema.Collection
}

type relationTarget struct {
	field schema.Field
}

type relationPropertyTarget struct {
	field     schema.Field
	prefix    string
	remainder string
}

// revisionsTarget is a field of a versioned root, matched against its revisions
type revisionsTarget struct {
	versions *schema.Collection
}

type unresolvedTarget struct{}

func (scalarTarget) isTarget()           {}
func (localizedTarget) isTarget()        {}
func (hierarchyTarget) isTarget()        {}
func (relationTarget) isTarget()         {}
func (relationPropertyTarget) isTarget() {}
func (revisionsTarget) isTarget()        {}
func (unresolvedTarget) isTarget()       {}

// resolveTarget classifies a field path. Columns win over field configs, so a
// relation property path is only tried after the column lookups miss.
func (c *Compiler) resolveTarget(sc scope, field string) target {
	column := schema.ColumnName(field)
	coll := sc.coll

	if coll.IsVersions() && schema.IsHierarchyColumn(column) {
		root, err := c.registry.Collection(coll.Root)
		if err != nil || !root.Table.Has(column) {
			return unresolvedTarget{}
		}
		return hierarchyTarget{column: column, root: root}
	}
	if coll.Table.Has(column) {
		return scalarTarget{column: column}
	}
	if coll.Versions != "" {
		versions, err := c.registry.Collection(coll.Versions)
		if err != nil {
			return unresolvedTarget{}
		}
		return revisionsTarget{versions: versions}
	}
	if sc.locale != "" && coll.Locales.Has(column) {
		return localizedTarget{column: column}
	}

	if coll.Rels == nil {
		return unresolvedTarget{}
	}
	switch r := schema.ResolveFieldPath(coll, field).(type) {
	case schema.Found:
		if r.Field.IsRelation() && localeAvailable(sc, r.Field) {
			return relationTarget{field: r.Field}
		}
	case schema.FoundWithRemainder:
		if r.Field.IsRelation() && localeAvailable(sc, r.Field) {
			return relationPropertyTarget{field: r.Field, prefix: r.Prefix, remainder: r.Remainder}
		}
	}
	return unresolvedTarget{}
}

// localeAvailable reports whether f can be read in scope. Links of a localized
// relation are stored per locale, like localized scalars.
func localeAvailable(sc scope, f schema.Field) bool {
	return !f.Localized || sc.locale != ""
}
