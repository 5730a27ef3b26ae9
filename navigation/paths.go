// Package navigation resolves collection paths against the declared
// collection tree and builds the routes the admin UI links to.
package navigation

import "strings"

// RemoveInitialAndTrailingSlashes strips every leading and trailing '/'.
func RemoveInitialAndTrailingSlashes(p string) string {
	return strings.Trim(p, "/")
}

// Segments splits a path on '/', ignoring empty segments produced by
// leading, trailing or doubled slashes.
func Segments(p string) []string {
	parts := []string{}
	for _, s := range strings.Split(p, "/") {
		if s == "" {
			continue
		}
		parts = append(parts, s)
	}
	return parts
}

// Join renders segments as a normalized path without surrounding slashes.
func Join(segments ...string) string {
	parts := make([]string, 0, len(segments))
	for _, s := range segments {
		if s = RemoveInitialAndTrailingSlashes(s); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "/")
}

// CompositeKey identifies a collection path, optionally narrowed to one
// entity. It is the key overrides are stored under.
func CompositeKey(collectionPath, entityID string) string {
	if entityID == "" {
		return RemoveInitialAndTrailingSlashes(collectionPath)
	}
	return Join(collectionPath, entityID)
}
