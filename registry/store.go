package registry

import (
	"sort"
	"sync"

	"go.uber.org/zap"

	firecms "github.com/jinbe/firecms"
)

// Override is a stored partial configuration.
type Override struct {
	Config firecms.SchemaConfig
	// ResolverFirst lets the schema resolver win field conflicts; the override
	// then only fills the fields the resolver left unset.
	ResolverFirst bool
}

// OverrideOption customizes SetOverride.
type OverrideOption func(*Override)

// ResolverFirst gives the schema resolver precedence over the override.
func ResolverFirst() OverrideOption {
	return func(o *Override) { o.ResolverFirst = true }
}

// Store maps composite keys to overrides. Last write wins.
type Store struct {
	mu      sync.RWMutex
	entries map[string]Override
	log     *zap.Logger
}

// NewStore returns an empty store. A nil logger disables logging.
func NewStore(log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{entries: map[string]Override{}, log: log}
}

// SetOverride stores cfg under key and returns (key, true). A nil cfg deletes
// the key and returns ("", false).
func (s *Store) SetOverride(key string, cfg *firecms.SchemaConfig, opts ...OverrideOption) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cfg == nil {
		delete(s.entries, key)
		s.log.Debug("override removed", zap.String("key", key))
		return "", false
	}
	o := Override{Config: *cfg}
	for _, opt := range opts {
		opt(&o)
	}
	s.entries[key] = o
	s.log.Debug("override set", zap.String("key", key), zap.Bool("resolver_first", o.ResolverFirst))
	return key, true
}

// Get returns the override stored under key.
func (s *Store) Get(key string) (Override, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.entries[key]
	return o, ok
}

// PruneExcept deletes every key not listed in keys.
func (s *Store) PruneExcept(keys ...string) {
	keep := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		keep[k] = struct{}{}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for k := range s.entries {
		if _, ok := keep[k]; !ok {
			delete(s.entries, k)
		}
	}
	s.log.Debug("overrides pruned", zap.Int("kept", len(s.entries)))
}

// Keys returns the stored keys in lexical order.
func (s *Store) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.entries))
	for k := range s.entries {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Len returns the number of stored overrides.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
