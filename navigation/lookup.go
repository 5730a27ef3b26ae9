package navigation

import firecms "github.com/jinbe/firecms"

// FindCollection walks the collection tree along path. Collection paths
// alternate collection and entity segments ("products/42/locales"), so a path
// with an even number of segments names an entity and never matches.
// RelativePath may span several segments; comparison is case-sensitive.
func FindCollection(path string, collections []firecms.EntityCollection) (*firecms.EntityCollection, bool) {
	segs := Segments(path)
	if len(segs) == 0 {
		return nil, false
	}
	return findIn(segs, collections)
}

func findIn(segs []string, collections []firecms.EntityCollection) (*firecms.EntityCollection, bool) {
	for i := range collections {
		c := &collections[i]
		rel := Segments(c.RelativePath)
		if len(rel) == 0 || !hasPrefix(segs, rel) {
			continue
		}
		rest := segs[len(rel):]
		switch {
		case len(rest) == 0:
			return c, true
		case len(rest) == 1:
			// entity path under c; a longer RelativePath may still match
			continue
		default:
			// rest[0] is the entity id
			if found, ok := findIn(rest[1:], c.Subcollections); ok {
				return found, true
			}
		}
	}
	return nil, false
}

func hasPrefix(segs, prefix []string) bool {
	if len(prefix) > len(segs) {
		return false
	}
	for i := range prefix {
		if segs[i] != prefix[i] {
			return false
		}
	}
	return true
}
