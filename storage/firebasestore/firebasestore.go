// Package firebasestore stores uploads in the Cloud Storage bucket of a
// Firebase project.
package firebasestore

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	gcs "cloud.google.com/go/storage"
	firebase "firebase.google.com/go/v4"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/jinbe/firecms/upload"
)

// DefaultURLExpiry bounds signed download URLs.
const DefaultURLExpiry = 7 * 24 * time.Hour

// Config selects the project, bucket and credentials.
type Config struct {
	ProjectID       string        `env:"FIREBASE_PROJECT_ID" validate:"required"`
	Bucket          string        `env:"FIREBASE_STORAGE_BUCKET" validate:"required"`
	CredentialsFile string        `env:"GOOGLE_APPLICATION_CREDENTIALS"`
	URLExpiry       time.Duration `env:"FIREBASE_URL_EXPIRY"`
}

// Store is an upload.StorageSource backed by a Firebase Storage bucket.
type Store struct {
	bucket *gcs.BucketHandle
	name   string
	expiry time.Duration
	log    *zap.Logger
}

var _ upload.StorageSource = (*Store)(nil)

// Connect initializes the Firebase app and opens the configured bucket.
func Connect(ctx context.Context, cfg Config, log *zap.Logger, opts ...option.ClientOption) (*Store, error) {
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	app, err := firebase.NewApp(ctx, &firebase.Config{
		ProjectID:     cfg.ProjectID,
		StorageBucket: cfg.Bucket,
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("firebasestore: init app: %w", err)
	}
	client, err := app.Storage(ctx)
	if err != nil {
		return nil, fmt.Errorf("firebasestore: storage client: %w", err)
	}
	bucket, err := client.DefaultBucket()
	if err != nil {
		return nil, fmt.Errorf("firebasestore: bucket %s: %w", cfg.Bucket, err)
	}
	s := Wrap(bucket, cfg.Bucket, cfg.URLExpiry, log)
	s.log.Info("firebase storage ready", zap.String("project", cfg.ProjectID), zap.String("bucket", cfg.Bucket))
	return s, nil
}

// Wrap uses an existing bucket handle. A zero expiry means DefaultURLExpiry.
func Wrap(bucket *gcs.BucketHandle, name string, expiry time.Duration, log *zap.Logger) *Store {
	if expiry <= 0 {
		expiry = DefaultURLExpiry
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{bucket: bucket, name: name, expiry: expiry, log: log}
}

// UploadFile writes the file to req.Key(). Metadata becomes custom object
// metadata.
func (s *Store) UploadFile(ctx context.Context, req upload.UploadRequest) (upload.UploadResult, error) {
	if req.File == nil {
		return upload.UploadResult{}, fmt.Errorf("firebasestore: no file")
	}
	rc, err := req.File.Open()
	if err != nil {
		return upload.UploadResult{}, fmt.Errorf("firebasestore: open %s: %w", req.File.Name(), err)
	}
	defer rc.Close()

	key := req.Key()
	w := s.bucket.Object(key).NewWriter(ctx)
	w.ContentType = req.File.ContentType()
	w.Metadata = req.Metadata
	if _, err := io.Copy(w, rc); err != nil {
		_ = w.Close()
		return upload.UploadResult{}, fmt.Errorf("firebasestore: write %s: %w", key, err)
	}
	if err := w.Close(); err != nil {
		s.log.Error("object write failed", zap.String("key", key), zap.Error(err))
		return upload.UploadResult{}, fmt.Errorf("firebasestore: write %s: %w", key, err)
	}
	s.log.Debug("object stored", zap.String("bucket", s.name), zap.String("key", key))
	return upload.UploadResult{Path: key}, nil
}

// GetDownloadURL signs a V4 GET URL for the object at path.
func (s *Store) GetDownloadURL(_ context.Context, path string) (string, error) {
	u, err := s.bucket.SignedURL(strings.TrimPrefix(path, "/"), &gcs.SignedURLOptions{
		Method:  http.MethodGet,
		Expires: time.Now().Add(s.expiry),
		Scheme:  gcs.SigningSchemeV4,
	})
	if err != nil {
		return "", fmt.Errorf("firebasestore: sign %s: %w", path, err)
	}
	return u, nil
}
