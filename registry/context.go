package registry

import (
	"context"

	firecms "github.com/jinbe/firecms"
)

// registryKey is the context key for the Registry.
type registryKey struct{}

// NewContext stores the registry in the context for the views below it.
func NewContext(ctx context.Context, r *Registry) context.Context {
	return context.WithValue(ctx, registryKey{}, r)
}

// FromContext retrieves the registry from context.
func FromContext(ctx context.Context) (*Registry, bool) {
	r, ok := ctx.Value(registryKey{}).(*Registry)
	return r, ok && r != nil
}

// RequireFromContext returns the registry or a configuration error suitable for
// bubbling up to the caller.
func RequireFromContext(ctx context.Context) (*Registry, error) {
	if r, ok := FromContext(ctx); ok {
		return r, nil
	}
	return nil, firecms.NewError(firecms.CodeConfiguration, "", "registry not provided", nil)
}
