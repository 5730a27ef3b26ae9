package navigation_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	firecms "github.com/jinbe/firecms"
	"github.com/jinbe/firecms/navigation"
)

func tree() []firecms.EntityCollection {
	return []firecms.EntityCollection{
		{
			RelativePath: "products",
			Name:         "Products",
			Schema:       &firecms.EntitySchema{Name: "Product"},
			Subcollections: []firecms.EntityCollection{
				{RelativePath: "locales", Name: "Locales", Schema: &firecms.EntitySchema{Name: "Locale"}},
			},
		},
		{RelativePath: "shop/orders", Name: "Orders", Schema: &firecms.EntitySchema{Name: "Order"}},
		{RelativePath: "users", Name: "Users"},
	}
}

func TestCompositeKey(t *testing.T) {
	assert.Equal(t, "products", navigation.CompositeKey("/products/", ""))
	assert.Equal(t, "products/42", navigation.CompositeKey("products", "42"))
	assert.Equal(t, "products/42/locales/es", navigation.CompositeKey("/products/42/locales", "/es/"))
}

func TestSegments_IgnoresEmpty(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, navigation.Segments("//a///b/"))
	assert.Empty(t, navigation.Segments("/"))
}

func TestFindCollection(t *testing.T) {
	cols := tree()
	cases := []struct {
		path string
		want string
		ok   bool
	}{
		{"products", "Products", true},
		{"/products/", "Products", true},
		{"products/42/locales", "Locales", true},
		{"shop/orders", "Orders", true},
		{"products/42", "", false},
		{"Products", "", false},
		{"products/42/missing", "", false},
		{"shop", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		t.Run(tc.path, func(t *testing.T) {
			c, ok := navigation.FindCollection(tc.path, cols)
			require.Equal(t, tc.ok, ok)
			if ok {
				assert.Equal(t, tc.want, c.Name)
			}
		})
	}
}

func TestBuildCollectionView_Defaults(t *testing.T) {
	off := false
	c := tree()[0]
	v := navigation.BuildCollectionView(c, "/products/")
	assert.Equal(t, "Product list", v.Title)
	assert.Equal(t, "/products", v.Caption)
	assert.Equal(t, "Add Product", v.AddLabel)
	assert.Equal(t, "/c/products#new", v.NewEntityURL)
	assert.True(t, v.DeleteEnabled)
	assert.True(t, v.PaginationEnabled)

	c.DeleteEnabled = &off
	c.Pagination = &off
	v = navigation.BuildCollectionView(c, "products")
	assert.False(t, v.DeleteEnabled)
	assert.False(t, v.PaginationEnabled)
}

func TestRoutes(t *testing.T) {
	assert.Equal(t, "/c/products/42", navigation.EntityURL("42", "products"))
	assert.Equal(t, "/c/products/a%20b", navigation.EntityURL("a b", "/products/"))
	assert.Equal(t, []string{"/c/products/42", "/c/products/42/locales/es"},
		navigation.EntityURLs("products/42/locales/es"))
}
