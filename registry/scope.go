package registry

import (
	"sync"

	firecms "github.com/jinbe/firecms"
	"github.com/jinbe/firecms/navigation"
)

// Scope owns the overrides set by one mounted view. Closing it prunes every
// override that no other open scope still holds.
type Scope struct {
	reg *Registry

	mu     sync.Mutex
	keys   map[string]struct{}
	closed bool
}

// EnterScope opens a scope on r.
func (r *Registry) EnterScope() *Scope {
	s := &Scope{reg: r, keys: map[string]struct{}{}}
	r.scopesMu.Lock()
	r.scopes[s] = struct{}{}
	r.scopesMu.Unlock()
	return s
}

// Declarations returns the scope holding the overrides declared by
// configuration files. It stays open for the life of the registry.
func (r *Registry) Declarations() *Scope { return r.declared }

// SetOverride stores cfg through the registry and records the key as held by
// s. A nil cfg releases the key and removes the override unless another open
// scope still holds it.
func (s *Scope) SetOverride(collectionPath, entityID string, cfg *firecms.SchemaConfig, opts ...OverrideOption) (string, bool) {
	s.reg.scopesMu.Lock()
	defer s.reg.scopesMu.Unlock()
	if cfg == nil {
		key := navigation.CompositeKey(collectionPath, entityID)
		shared := s.heldByOthersLocked(key)
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.closed {
			return "", false
		}
		delete(s.keys, key)
		if !shared {
			s.reg.store.SetOverride(key, nil)
		}
		return "", false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return "", false
	}
	key, ok := s.reg.SetOverride(collectionPath, entityID, cfg, opts...)
	if ok {
		s.keys[key] = struct{}{}
	}
	return key, ok
}

// Declaration is one override installed by Scope.Replace.
type Declaration struct {
	Path     string
	EntityID string
	Config   firecms.SchemaConfig
	Options  []OverrideOption
}

// Replace makes decls the overrides held by s in one step. Keys s held
// before and no longer declares are removed unless another open scope holds
// them. It returns the keys now held.
func (s *Scope) Replace(decls ...Declaration) []string {
	s.reg.scopesMu.Lock()
	defer s.reg.scopesMu.Unlock()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	prev := s.keys
	next := make(map[string]struct{}, len(decls))
	keys := make([]string, 0, len(decls))
	for _, d := range decls {
		cfg := d.Config
		key, _ := s.reg.SetOverride(d.Path, d.EntityID, &cfg, d.Options...)
		if _, dup := next[key]; !dup {
			keys = append(keys, key)
		}
		next[key] = struct{}{}
	}
	s.keys = next
	s.mu.Unlock()

	for key := range prev {
		if _, kept := next[key]; kept || s.heldByOthersLocked(key) {
			continue
		}
		s.reg.store.SetOverride(key, nil)
	}
	return keys
}

// heldByOthersLocked reports whether an open scope other than s holds key.
// The caller holds scopesMu and not s.mu.
func (s *Scope) heldByOthersLocked(key string) bool {
	for other := range s.reg.scopes {
		if other == s {
			continue
		}
		other.mu.Lock()
		_, held := other.keys[key]
		other.mu.Unlock()
		if held {
			return true
		}
	}
	return false
}

// Release stops holding key without removing the stored override; the next
// Close of any scope prunes it if nobody else holds it.
func (s *Scope) Release(key string) {
	s.mu.Lock()
	delete(s.keys, key)
	s.mu.Unlock()
}

// Keys returns the keys held by s.
func (s *Scope) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.keys))
	for k := range s.keys {
		out = append(out, k)
	}
	return out
}

// Close detaches s and prunes the store down to the keys held by the scopes
// still open. Close is idempotent.
func (s *Scope) Close() {
	// scopesMu stays held so no open scope can add a key mid-prune.
	r := s.reg
	r.scopesMu.Lock()
	defer r.scopesMu.Unlock()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.keys = nil
	s.mu.Unlock()

	delete(r.scopes, s)
	var keep []string
	for other := range r.scopes {
		keep = append(keep, other.Keys()...)
	}
	r.PruneExcept(keep...)
}
