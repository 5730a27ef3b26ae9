package firecms

// Data types understood by properties.
const (
	DataTypeString    = "string"
	DataTypeNumber    = "number"
	DataTypeBoolean   = "boolean"
	DataTypeArray     = "array"
	DataTypeMap       = "map"
	DataTypeTimestamp = "timestamp"
	DataTypeReference = "reference"
)

// EntitySchema describes the shape of the entities stored in a collection.
type EntitySchema struct {
	Name        string              `yaml:"name" json:"name" validate:"required"`
	Description string              `yaml:"description,omitempty" json:"description,omitempty"`
	Properties  map[string]Property `yaml:"properties,omitempty" json:"properties,omitempty" validate:"dive"`
}

// Property describes a single entity field and how forms bind to it.
type Property struct {
	DataType    string              `yaml:"dataType" json:"dataType" validate:"required,oneof=string number boolean array map timestamp reference"`
	Title       string              `yaml:"title,omitempty" json:"title,omitempty"`
	Description string              `yaml:"description,omitempty" json:"description,omitempty"`
	Disabled    bool                `yaml:"disabled,omitempty" json:"disabled,omitempty"`
	ReadOnly    bool                `yaml:"readOnly,omitempty" json:"readOnly,omitempty"`
	Validation  *PropertyValidation `yaml:"validation,omitempty" json:"validation,omitempty"`
	// Storage turns a string property (or the element of an array property)
	// into a file upload field.
	Storage *StorageConfig `yaml:"storage,omitempty" json:"storage,omitempty"`
	// Of is the element property of an array property.
	Of *Property `yaml:"of,omitempty" json:"of,omitempty"`
}

// PropertyValidation holds the validation rules surfaced next to a field.
type PropertyValidation struct {
	Required bool `yaml:"required,omitempty" json:"required,omitempty"`
}

// StorageConfig configures where and how uploaded files are stored.
// StoragePath and FileName are templates; see upload.ResolveStorageString.
type StorageConfig struct {
	StoragePath   string            `yaml:"storagePath" json:"storagePath" validate:"required"`
	FileName      string            `yaml:"fileName,omitempty" json:"fileName,omitempty"`
	AcceptedFiles []string          `yaml:"acceptedFiles,omitempty" json:"acceptedFiles,omitempty"`
	Metadata      map[string]string `yaml:"metadata,omitempty" json:"metadata,omitempty"`
	// StoreURL stores the resolved download URL instead of the storage path.
	StoreURL bool `yaml:"storeUrl,omitempty" json:"storeUrl,omitempty"`
}

// Permissions gates the actions available on the entities of a collection.
type Permissions struct {
	Edit   bool `yaml:"edit" json:"edit"`
	Create bool `yaml:"create" json:"create"`
	Delete bool `yaml:"delete" json:"delete"`
}

// EntityCollection is a statically declared collection. Subcollections hang
// below each entity of the collection: "products/{id}/locales".
type EntityCollection struct {
	RelativePath         string             `yaml:"relativePath" json:"relativePath" validate:"required"`
	Name                 string             `yaml:"name" json:"name" validate:"required"`
	Description          string             `yaml:"description,omitempty" json:"description,omitempty"`
	Schema               *EntitySchema      `yaml:"schema,omitempty" json:"schema,omitempty" validate:"omitempty"`
	Subcollections       []EntityCollection `yaml:"subcollections,omitempty" json:"subcollections,omitempty" validate:"dive"`
	Permissions          *Permissions       `yaml:"permissions,omitempty" json:"permissions,omitempty"`
	DeleteEnabled        *bool              `yaml:"deleteEnabled,omitempty" json:"deleteEnabled,omitempty"`
	Pagination           *bool              `yaml:"pagination,omitempty" json:"pagination,omitempty"`
	DefaultSize          string             `yaml:"defaultSize,omitempty" json:"defaultSize,omitempty" validate:"omitempty,oneof=xs s m l xl"`
	Properties           []string           `yaml:"properties,omitempty" json:"properties,omitempty"`
	ExcludedProperties   []string           `yaml:"excludedProperties,omitempty" json:"excludedProperties,omitempty"`
	FilterableProperties []string           `yaml:"filterableProperties,omitempty" json:"filterableProperties,omitempty"`
}

// SchemaConfig is a partial configuration. A nil field is unset and is
// filled by lower precedence sources during resolution.
type SchemaConfig struct {
	Schema         *EntitySchema      `yaml:"schema,omitempty" json:"schema,omitempty"`
	Subcollections []EntityCollection `yaml:"subcollections,omitempty" json:"subcollections,omitempty"`
	Permissions    *Permissions       `yaml:"permissions,omitempty" json:"permissions,omitempty"`
}

// ResolvedConfig is the outcome of a successful resolution. Schema is never nil.
type ResolvedConfig struct {
	Schema         *EntitySchema      `yaml:"schema" json:"schema"`
	Subcollections []EntityCollection `yaml:"subcollections,omitempty" json:"subcollections,omitempty"`
	Permissions    *Permissions       `yaml:"permissions,omitempty" json:"permissions,omitempty"`
}

// Merge fills the unset fields of c from fallback and returns the result.
// Neither input is modified.
func (c SchemaConfig) Merge(fallback SchemaConfig) SchemaConfig {
	out := c
	if out.Schema == nil {
		out.Schema = fallback.Schema
	}
	if out.Subcollections == nil {
		out.Subcollections = fallback.Subcollections
	}
	if out.Permissions == nil {
		out.Permissions = fallback.Permissions
	}
	return out
}

// IsZero reports whether no field is set.
func (c SchemaConfig) IsZero() bool {
	return c.Schema == nil && c.Subcollections == nil && c.Permissions == nil
}

// SchemaConfig returns the configuration declared by the collection itself.
func (c EntityCollection) SchemaConfig() SchemaConfig {
	return SchemaConfig{Schema: c.Schema, Subcollections: c.Subcollections, Permissions: c.Permissions}
}

// StorageOf returns the storage configuration of a string property or of the
// string element of an array property.
func (p Property) StorageOf() *StorageConfig {
	switch p.DataType {
	case DataTypeString:
		return p.Storage
	case DataTypeArray:
		if p.Of != nil && p.Of.DataType == DataTypeString {
			return p.Of.Storage
		}
	}
	return nil
}

// IsReadOnly reports whether the property cannot be edited from a form.
func (p Property) IsReadOnly() bool { return p.ReadOnly }
