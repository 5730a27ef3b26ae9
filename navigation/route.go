package navigation

import (
	"net/url"

	firecms "github.com/jinbe/firecms"
)

// BaseRoute prefixes every collection route of the admin UI.
const BaseRoute = "/c"

// CollectionURL is the route listing the entities of a collection.
func CollectionURL(collectionPath string) string {
	return BaseRoute + "/" + escapeSegments(collectionPath)
}

// EntityURL is the route opening a single entity.
func EntityURL(entityID, collectionPath string) string {
	return CollectionURL(collectionPath) + "/" + url.PathEscape(entityID)
}

// NewEntityURL is the route opening the creation form of a collection.
func NewEntityURL(collectionPath string) string {
	return CollectionURL(collectionPath) + "#new"
}

func escapeSegments(p string) string {
	segs := Segments(p)
	for i, s := range segs {
		segs[i] = url.PathEscape(s)
	}
	return Join(segs...)
}

// CollectionView is what a collection route renders: a table of entities with
// an add button, delete actions and the table options of the collection.
type CollectionView struct {
	CollectionPath       string
	Title                string
	Caption              string
	AddLabel             string
	NewEntityURL         string
	DeleteEnabled        bool
	PaginationEnabled    bool
	DefaultSize          string
	Properties           []string
	ExcludedProperties   []string
	FilterableProperties []string
	Schema               *firecms.EntitySchema
	Subcollections       []firecms.EntityCollection
}

// BuildCollectionView derives the view of collection mounted at collectionPath.
// Deletion and pagination are enabled unless the collection disables them.
func BuildCollectionView(c firecms.EntityCollection, collectionPath string) CollectionView {
	p := RemoveInitialAndTrailingSlashes(collectionPath)
	name := c.Name
	if c.Schema != nil && c.Schema.Name != "" {
		name = c.Schema.Name
	}
	return CollectionView{
		CollectionPath:       p,
		Title:                name + " list",
		Caption:              "/" + p,
		AddLabel:             "Add " + name,
		NewEntityURL:         NewEntityURL(p),
		DeleteEnabled:        c.DeleteEnabled == nil || *c.DeleteEnabled,
		PaginationEnabled:    c.Pagination == nil || *c.Pagination,
		DefaultSize:          c.DefaultSize,
		Properties:           c.Properties,
		ExcludedProperties:   c.ExcludedProperties,
		FilterableProperties: c.FilterableProperties,
		Schema:               c.Schema,
		Subcollections:       c.Subcollections,
	}
}

// EntityURLs lists the routes of the entities opened along a path such as
// "products/42/locales/es", one per entity segment.
func EntityURLs(path string) []string {
	segs := Segments(path)
	out := []string{}
	for i := 1; i < len(segs); i += 2 {
		out = append(out, EntityURL(segs[i], Join(segs[:i]...)))
	}
	return out
}
