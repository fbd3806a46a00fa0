package schema

import "strings"

const (
	versionsSuffix = "_versions"
	localesSuffix  = "_locales"
	relsSuffix     = "_rels"
)

// System column names
const (
	ColID        = "id"
	ColOwnerID   = "ownerId"
	ColLocale    = "locale"
	ColPath      = "path"
	ColPosition  = "position"
	ColStatus    = "status"
	ColCreatedAt = "createdAt"
	ColUpdatedAt = "updatedAt"
	ColParent    = "_parent"
	ColTreePos   = "_position"
	ColTreePath  = "_path"

	// VersionID addresses a revision row on a versions collection
	VersionID = "versionId"
)

// HierarchyColumns live on the root table of a versioned collection
var HierarchyColumns = []string{ColParent, ColTreePos, ColTreePath}

// IsHierarchyColumn reports whether col is one of the tree pointer columns
func IsHierarchyColumn(col string) bool {
	for _, h := range HierarchyColumns {
		if col == h {
			return true
		}
	}
	return false
}

// ColumnName flattens a dotted field path into a column name
func ColumnName(path string) string {
	return strings.ReplaceAll(path, ".", "__")
}

// WithVersionsSuffix returns the versions collection slug for a root slug
func WithVersionsSuffix(slug string) string {
	return slug + versionsSuffix
}

// HasVersionsSuffix reports whether slug names a versions collection
func HasVersionsSuffix(slug string) bool {
	return strings.HasSuffix(slug, versionsSuffix)
}

// RootSlug strips the versions suffix
func RootSlug(slug string) string {
	return strings.TrimSuffix(slug, versionsSuffix)
}

// LocalesTable names the locale side-table of a collection
func LocalesTable(slug string) string {
	return slug + localesSuffix
}

// RelsTable names the relation-link table of a collection
func RelsTable(slug string) string {
	return slug + relsSuffix
}

// RelationColumn names the rels column that stores ids of target
func RelationColumn(target string) string {
	return target + "Id"
}
