package firecms_test

import (
	"testing"

	firecms "github.com/jinbe/firecms"
)

func TestSchemaConfig_MergeFillsUnsetFields(t *testing.T) {
	primary := firecms.SchemaConfig{Permissions: &firecms.Permissions{Edit: true}}
	fallback := firecms.SchemaConfig{
		Schema:      &firecms.EntitySchema{Name: "Product"},
		Permissions: &firecms.Permissions{},
	}

	got := primary.Merge(fallback)
	if got.Schema == nil || got.Schema.Name != "Product" {
		t.Fatalf("expected schema from fallback, got %#v", got.Schema)
	}
	if !got.Permissions.Edit {
		t.Fatalf("expected primary permissions to win")
	}
	if got.Subcollections != nil {
		t.Fatalf("expected subcollections to stay unset")
	}
	if primary.Schema != nil {
		t.Fatalf("Merge must not modify its receiver")
	}
}

func TestSchemaConfig_EmptySubcollectionsAreSet(t *testing.T) {
	primary := firecms.SchemaConfig{Subcollections: []firecms.EntityCollection{}}
	fallback := firecms.SchemaConfig{Subcollections: []firecms.EntityCollection{{RelativePath: "locales"}}}
	if got := primary.Merge(fallback); len(got.Subcollections) != 0 {
		t.Fatalf("an explicit empty list must not be replaced, got %v", got.Subcollections)
	}
	if !(firecms.SchemaConfig{}).IsZero() || primary.IsZero() {
		t.Fatalf("IsZero mismatch")
	}
}

func TestProperty_StorageOf(t *testing.T) {
	sc := &firecms.StorageConfig{StoragePath: "images"}
	cases := []struct {
		name string
		p    firecms.Property
		want *firecms.StorageConfig
	}{
		{"string", firecms.Property{DataType: firecms.DataTypeString, Storage: sc}, sc},
		{"array of string", firecms.Property{DataType: firecms.DataTypeArray, Of: &firecms.Property{DataType: firecms.DataTypeString, Storage: sc}}, sc},
		{"array of number", firecms.Property{DataType: firecms.DataTypeArray, Of: &firecms.Property{DataType: firecms.DataTypeNumber, Storage: sc}}, nil},
		{"array without element", firecms.Property{DataType: firecms.DataTypeArray}, nil},
		{"number", firecms.Property{DataType: firecms.DataTypeNumber, Storage: sc}, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.p.StorageOf(); got != tc.want {
				t.Fatalf("got %v want %v", got, tc.want)
			}
		})
	}
}
