package firebasestore_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	gcs "cloud.google.com/go/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"

	"github.com/jinbe/firecms/storage/firebasestore"
	"github.com/jinbe/firecms/upload"
)

// emulator records the upload requests it receives.
type emulator struct {
	mu     sync.Mutex
	paths  []string
	bodies []string
}

func (e *emulator) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	e.mu.Lock()
	e.paths = append(e.paths, r.URL.Path)
	e.bodies = append(e.bodies, string(body))
	e.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")
	_, _ = io.WriteString(w, `{"bucket":"media","name":"images/a.png","size":"5"}`)
}

func TestStore_UploadFile(t *testing.T) {
	em := &emulator{}
	srv := httptest.NewServer(em)
	defer srv.Close()
	t.Setenv("STORAGE_EMULATOR_HOST", strings.TrimPrefix(srv.URL, "http://"))

	ctx := context.Background()
	client, err := gcs.NewClient(ctx, option.WithoutAuthentication())
	require.NoError(t, err)
	defer client.Close()

	s := firebasestore.Wrap(client.Bucket("media"), "media", 0, nil)
	res, err := s.UploadFile(ctx, upload.UploadRequest{
		File:     upload.NewMemoryFile("a.png", []byte("hello"), "image/png"),
		Path:     "/images/",
		Metadata: map[string]string{"owner": "p1"},
	})
	require.NoError(t, err)
	assert.Equal(t, "images/a.png", res.Path)

	em.mu.Lock()
	defer em.mu.Unlock()
	require.NotEmpty(t, em.paths)
	assert.Contains(t, em.paths[0], "/b/media/o")
	assert.Contains(t, em.bodies[0], "hello")
	assert.Contains(t, em.bodies[0], `"owner":"p1"`)
}

func TestStore_UploadFileRequiresFile(t *testing.T) {
	s := firebasestore.Wrap(nil, "media", 0, nil)
	_, err := s.UploadFile(context.Background(), upload.UploadRequest{})
	assert.Error(t, err)
}
