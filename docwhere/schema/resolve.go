package schema

import "strings"

// Resolution is the result of ResolveFieldPath: Found, FoundWithRemainder or NotFound
type Resolution interface {
	isResolution()
}

// Found means the whole path names a field
type Found struct {
	Field Field
}

// FoundWithRemainder means a leading part of the path names a field and the
// rest addresses a property of the related document.
type FoundWithRemainder struct {
	Field     Field
	Prefix    string
	Remainder string
}

// NotFound means no prefix of the path names a field
type NotFound struct {
	Path string
}

func (Found) isResolution()              {}
func (FoundWithRemainder) isResolution() {}
func (NotFound) isResolution()           {}

// ResolveFieldPath looks up path exactly, then tries shorter segment prefixes
// from longest to shortest and stops at the first field found.
func ResolveFieldPath(c *Collection, path string) Resolution {
	if f, ok := c.Field(path); ok {
		return Found{Field: f}
	}
	parts := strings.Split(path, ".")
	for i := len(parts) - 1; i > 0; i-- {
		prefix := strings.Join(parts[:i], ".")
		if f, ok := c.Field(prefix); ok {
			return FoundWithRemainder{
				Field:     f,
				Prefix:    prefix,
				Remainder: strings.Join(parts[i:], "."),
			}
		}
	}
	return NotFound{Path: path}
}
