// Package memstore is an in-memory upload.StorageSource for tests, demos and
// the CLI dry run mode.
package memstore

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/jinbe/firecms/upload"
)

// Object is a stored file.
type Object struct {
	Key         string
	ContentType string
	Metadata    map[string]string
	Data        []byte
}

// Store keeps uploaded objects in a map.
type Store struct {
	baseURL string
	log     *zap.Logger

	mu      sync.RWMutex
	objects map[string]Object
}

var _ upload.StorageSource = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithBaseURL sets the prefix of download URLs.
func WithBaseURL(u string) Option { return func(s *Store) { s.baseURL = strings.TrimSuffix(u, "/") } }

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.log = l
		}
	}
}

// New returns an empty Store.
func New(opts ...Option) *Store {
	s := &Store{baseURL: "mem://", log: zap.NewNop(), objects: map[string]Object{}}
	for _, o := range opts {
		o(s)
	}
	return s
}

// UploadFile reads the whole file and stores it under req.Key().
func (s *Store) UploadFile(ctx context.Context, req upload.UploadRequest) (upload.UploadResult, error) {
	if req.File == nil {
		return upload.UploadResult{}, fmt.Errorf("memstore: no file")
	}
	if err := ctx.Err(); err != nil {
		return upload.UploadResult{}, err
	}
	rc, err := req.File.Open()
	if err != nil {
		return upload.UploadResult{}, fmt.Errorf("memstore: open %s: %w", req.File.Name(), err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return upload.UploadResult{}, fmt.Errorf("memstore: read %s: %w", req.File.Name(), err)
	}

	key := req.Key()
	md := make(map[string]string, len(req.Metadata))
	for k, v := range req.Metadata {
		md[k] = v
	}
	s.mu.Lock()
	s.objects[key] = Object{Key: key, ContentType: req.File.ContentType(), Metadata: md, Data: data}
	s.mu.Unlock()
	s.log.Debug("object stored", zap.String("key", key), zap.Int("bytes", len(data)))
	return upload.UploadResult{Path: key}, nil
}

// GetDownloadURL returns baseURL/path for a stored object.
func (s *Store) GetDownloadURL(_ context.Context, path string) (string, error) {
	key := strings.TrimPrefix(path, "/")
	s.mu.RLock()
	_, ok := s.objects[key]
	s.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("memstore: object %q not found", key)
	}
	if strings.HasSuffix(s.baseURL, "//") {
		return s.baseURL + key, nil
	}
	return s.baseURL + "/" + key, nil
}

// Get returns the object stored at key.
func (s *Store) Get(key string) (Object, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.objects[strings.TrimPrefix(key, "/")]
	return o, ok
}

// Keys lists the stored keys in order.
func (s *Store) Keys() []string {
	s.mu.RLock()
	keys := make([]string, 0, len(s.objects))
	for k := range s.objects {
		keys = append(keys, k)
	}
	s.mu.RUnlock()
	sort.Strings(keys)
	return keys
}
