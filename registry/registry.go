// Package registry resolves the schema configuration of a collection path by
// merging a dynamic resolver, per-path overrides and the statically declared
// collection tree.
package registry

import (
	"sync"

	"go.uber.org/zap"

	firecms "github.com/jinbe/firecms"
	"github.com/jinbe/firecms/navigation"
)

// ResolverParams are handed to a SchemaResolver. CollectionPath has its
// surrounding slashes removed.
type ResolverParams struct {
	EntityID       string
	CollectionPath string
}

// SchemaResolver computes configuration at resolution time. Returning nil
// means "nothing to contribute".
type SchemaResolver interface {
	ResolveSchema(p ResolverParams) *firecms.SchemaConfig
}

// SchemaResolverFunc adapts a function to SchemaResolver.
type SchemaResolverFunc func(p ResolverParams) *firecms.SchemaConfig

func (f SchemaResolverFunc) ResolveSchema(p ResolverParams) *firecms.SchemaConfig { return f(p) }

// Registry is safe for concurrent use.
type Registry struct {
	mu          sync.RWMutex
	collections []firecms.EntityCollection
	initialised bool

	resolver SchemaResolver
	store    *Store
	log      *zap.Logger

	scopesMu sync.Mutex
	scopes   map[*Scope]struct{}
	declared *Scope
}

// Option configures a Registry.
type Option func(*Registry)

// WithCollections sets the statically declared collection tree.
func WithCollections(cols []firecms.EntityCollection) Option {
	return func(r *Registry) {
		r.collections = cols
		r.initialised = true
	}
}

// WithResolver sets the dynamic schema resolver.
func WithResolver(res SchemaResolver) Option {
	return func(r *Registry) { r.resolver = res }
}

// WithStore shares an existing override store.
func WithStore(s *Store) Option {
	return func(r *Registry) { r.store = s }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(r *Registry) {
		if l != nil {
			r.log = l
		}
	}
}

// New builds a Registry.
func New(opts ...Option) *Registry {
	r := &Registry{log: zap.NewNop(), scopes: map[*Scope]struct{}{}}
	for _, opt := range opts {
		opt(r)
	}
	if r.store == nil {
		r.store = NewStore(r.log.Named("overrides"))
	}
	r.declared = r.EnterScope()
	r.log.Debug("registry initialised", zap.Int("collections", len(r.collections)), zap.Bool("resolver", r.resolver != nil))
	return r
}

// Initialised reports whether a collection tree has been supplied.
func (r *Registry) Initialised() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.initialised
}

// Store returns the override store.
func (r *Registry) Store() *Store { return r.store }

// SetCollections replaces the collection tree, e.g. after a reload.
func (r *Registry) SetCollections(cols []firecms.EntityCollection) {
	r.mu.Lock()
	r.collections = cols
	r.initialised = true
	r.mu.Unlock()
	r.log.Info("collections replaced", zap.Int("collections", len(cols)))
}

// Collections returns the current collection tree.
func (r *Registry) Collections() []firecms.EntityCollection {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.collections
}

// CollectionConfig returns the declared collection at path.
func (r *Registry) CollectionConfig(path string) (*firecms.EntityCollection, bool) {
	return navigation.FindCollection(path, r.Collections())
}

// SetOverride stores cfg for the collection path, narrowed to entityID when
// non-empty, and returns the key used. A nil cfg removes the override.
func (r *Registry) SetOverride(collectionPath, entityID string, cfg *firecms.SchemaConfig, opts ...OverrideOption) (string, bool) {
	return r.store.SetOverride(navigation.CompositeKey(collectionPath, entityID), cfg, opts...)
}

// PruneExcept removes every override whose key is not listed.
func (r *Registry) PruneExcept(keys ...string) { r.store.PruneExcept(keys...) }

// Resolve merges the configuration for path:
//
//  1. the resolver output and the override are merged field by field; the
//     override wins unless it was stored with ResolverFirst,
//  2. fields still unset come from the declared collection at path,
//  3. a missing schema fails with ErrSchemaResolution.
func (r *Registry) Resolve(path, entityID string) (firecms.ResolvedConfig, error) {
	key := navigation.CompositeKey(path, entityID)

	var resolved firecms.SchemaConfig
	if r.resolver != nil {
		if out := r.resolver.ResolveSchema(ResolverParams{
			EntityID:       entityID,
			CollectionPath: navigation.RemoveInitialAndTrailingSlashes(path),
		}); out != nil {
			resolved = *out
		}
	}

	result := resolved
	if o, ok := r.store.Get(key); ok {
		if o.ResolverFirst {
			result = resolved.Merge(o.Config)
		} else {
			result = o.Config.Merge(resolved)
		}
	}

	if c, ok := r.CollectionConfig(path); ok {
		result = result.Merge(c.SchemaConfig())
	}

	if result.Schema == nil {
		r.log.Debug("schema not resolved", zap.String("key", key))
		return firecms.ResolvedConfig{}, firecms.Errorf(firecms.CodeSchemaResolution, key,
			"not able to resolve schema for %s", key)
	}
	return firecms.ResolvedConfig{
		Schema:         result.Schema,
		Subcollections: result.Subcollections,
		Permissions:    result.Permissions,
	}, nil
}
