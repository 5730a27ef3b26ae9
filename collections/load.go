// Package collections loads collection declarations and schema overrides from
// YAML or JSON files.
//
// A file holds one or more documents (YAML streams may hold several
// separated by "---"). Each document lists collections and overrides:
//
//	collections:
//	  - relativePath: products
//	    name: Products
//	    schema: {name: Product, properties: {...}}
//	overrides:
//	  - path: products
//	    entityId: p1
//	    permissions: {edit: false}
package collections

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	firecms "github.com/jinbe/firecms"
	"github.com/jinbe/firecms/navigation"
	"github.com/jinbe/firecms/registry"
)

// Format of a declaration file.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

var validate = validator.New()

// Override is a declared schema override for a collection path, optionally
// scoped to one entity.
type Override struct {
	Path          string `yaml:"path" json:"path" validate:"required"`
	EntityID      string `yaml:"entityId,omitempty" json:"entityId,omitempty"`
	ResolverFirst bool   `yaml:"resolverFirst,omitempty" json:"resolverFirst,omitempty"`

	firecms.SchemaConfig `yaml:",inline"`
}

// Document is one declaration document.
type Document struct {
	Collections []firecms.EntityCollection `yaml:"collections,omitempty" json:"collections,omitempty" validate:"dive"`
	Overrides   []Override                 `yaml:"overrides,omitempty" json:"overrides,omitempty" validate:"dive"`
}

// Bundle is the union of the documents of a source, in document order.
type Bundle struct {
	Collections []firecms.EntityCollection
	Overrides   []Override
}

func (b *Bundle) add(d Document) {
	b.Collections = append(b.Collections, d.Collections...)
	b.Overrides = append(b.Overrides, d.Overrides...)
}

// Apply installs the collections and overrides of b into r. Overrides that an
// earlier Apply declared and b no longer does are removed, unless an open
// scope holds them.
func (b *Bundle) Apply(r *registry.Registry) {
	r.SetCollections(b.Collections)
	decls := make([]registry.Declaration, 0, len(b.Overrides))
	for _, o := range b.Overrides {
		d := registry.Declaration{Path: o.Path, EntityID: o.EntityID, Config: o.SchemaConfig}
		if o.ResolverFirst {
			d.Options = append(d.Options, registry.ResolverFirst())
		}
		decls = append(decls, d)
	}
	r.Declarations().Replace(decls...)
}

// LoadYAML decodes a possibly multi-document YAML stream.
func LoadYAML(data []byte) (*Bundle, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	b := &Bundle{}
	for i := 0; ; i++ {
		var doc Document
		if err := dec.Decode(&doc); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, configError(fmt.Sprintf("document %d", i), "decode yaml", err)
		}
		b.add(doc)
	}
	if err := b.Validate(); err != nil {
		return nil, err
	}
	return b, nil
}

// LoadJSON decodes a single JSON document. Repeated object keys are
// rejected.
func LoadJSON(data []byte) (*Bundle, error) {
	if err := checkDuplicateKeys(data); err != nil {
		return nil, err
	}
	var doc Document
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&doc); err != nil {
		return nil, configError("", "decode json", err)
	}
	b := &Bundle{}
	b.add(doc)
	if err := b.Validate(); err != nil {
		return nil, err
	}
	return b, nil
}

// Load decodes data in the given format.
func Load(data []byte, f Format) (*Bundle, error) {
	switch f {
	case FormatYAML:
		return LoadYAML(data)
	case FormatJSON:
		return LoadJSON(data)
	default:
		return nil, firecms.Errorf(firecms.CodeConfiguration, "", "unknown format %q", f)
	}
}

// FormatOf infers the format from a file extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	default:
		return "", firecms.Errorf(firecms.CodeConfiguration, path, "unsupported file extension")
	}
}

// LoadFile reads and decodes path, picking the format from its extension.
func LoadFile(path string) (*Bundle, error) {
	f, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("collections: read %s: %w", path, err)
	}
	b, err := Load(data, f)
	if err != nil {
		return nil, fmt.Errorf("collections: %s: %w", path, err)
	}
	return b, nil
}

// Validate checks struct constraints and that sibling collections do not
// share a relative path.
func (b *Bundle) Validate() error {
	for i := range b.Collections {
		if err := validate.Struct(b.Collections[i]); err != nil {
			return configError(b.Collections[i].RelativePath, "invalid collection", err)
		}
	}
	for i := range b.Overrides {
		if err := validate.Struct(b.Overrides[i]); err != nil {
			return configError(b.Overrides[i].Path, "invalid override", err)
		}
	}
	return checkSiblings("", b.Collections)
}

func checkSiblings(parent string, cols []firecms.EntityCollection) error {
	seen := make(map[string]struct{}, len(cols))
	for _, c := range cols {
		rel := navigation.RemoveInitialAndTrailingSlashes(c.RelativePath)
		full := navigation.Join(parent, rel)
		if _, dup := seen[rel]; dup {
			return firecms.Errorf(firecms.CodeConfiguration, full, "duplicate collection")
		}
		seen[rel] = struct{}{}
		if err := checkSiblings(navigation.Join(full, "{id}"), c.Subcollections); err != nil {
			return err
		}
	}
	return nil
}

func configError(path, msg string, cause error) error {
	return firecms.NewError(firecms.CodeConfiguration, path, msg, cause)
}
