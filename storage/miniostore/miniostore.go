// Package miniostore stores uploads in an S3 compatible bucket through MinIO.
package miniostore

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"

	"github.com/jinbe/firecms/upload"
)

// DefaultURLExpiry bounds presigned download URLs.
const DefaultURLExpiry = 7 * 24 * time.Hour

// Config describes the MinIO endpoint and bucket.
type Config struct {
	Endpoint  string        `env:"MINIO_ENDPOINT" validate:"required"`
	AccessKey string        `env:"MINIO_ACCESS_KEY" validate:"required"`
	SecretKey string        `env:"MINIO_SECRET_KEY" validate:"required"`
	Bucket    string        `env:"MINIO_BUCKET" validate:"required"`
	Region    string        `env:"MINIO_REGION"`
	Secure    bool          `env:"MINIO_SECURE"`
	URLExpiry time.Duration `env:"MINIO_URL_EXPIRY"`
}

// Store is an upload.StorageSource backed by a MinIO bucket.
type Store struct {
	client *minio.Client
	bucket string
	expiry time.Duration
	log    *zap.Logger
}

var _ upload.StorageSource = (*Store)(nil)

// Connect builds the client and creates the bucket when missing.
func Connect(ctx context.Context, cfg Config, log *zap.Logger) (*Store, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.Secure,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("miniostore: init client: %w", err)
	}
	s := Wrap(client, cfg.Bucket, cfg.URLExpiry, log)
	if err := s.ensureBucket(ctx, cfg.Region); err != nil {
		return nil, err
	}
	s.log.Info("minio storage ready", zap.String("endpoint", cfg.Endpoint), zap.String("bucket", cfg.Bucket))
	return s, nil
}

// Wrap uses an existing client. A zero expiry means DefaultURLExpiry.
func Wrap(client *minio.Client, bucket string, expiry time.Duration, log *zap.Logger) *Store {
	if expiry <= 0 {
		expiry = DefaultURLExpiry
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{client: client, bucket: bucket, expiry: expiry, log: log}
}

func (s *Store) ensureBucket(ctx context.Context, region string) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("miniostore: check bucket %s: %w", s.bucket, err)
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: region}); err != nil {
		return fmt.Errorf("miniostore: create bucket %s: %w", s.bucket, err)
	}
	s.log.Info("bucket created", zap.String("bucket", s.bucket))
	return nil
}

// UploadFile streams the file to req.Key(). Metadata is sent as user metadata.
func (s *Store) UploadFile(ctx context.Context, req upload.UploadRequest) (upload.UploadResult, error) {
	if req.File == nil {
		return upload.UploadResult{}, fmt.Errorf("miniostore: no file")
	}
	rc, err := req.File.Open()
	if err != nil {
		return upload.UploadResult{}, fmt.Errorf("miniostore: open %s: %w", req.File.Name(), err)
	}
	defer rc.Close()

	key := req.Key()
	info, err := s.client.PutObject(ctx, s.bucket, key, rc, req.File.Size(), minio.PutObjectOptions{
		ContentType:  req.File.ContentType(),
		UserMetadata: req.Metadata,
	})
	if err != nil {
		s.log.Error("put object failed", zap.String("key", key), zap.Error(err))
		return upload.UploadResult{}, fmt.Errorf("miniostore: put %s: %w", key, err)
	}
	s.log.Debug("object stored", zap.String("key", info.Key), zap.Int64("size", info.Size))
	return upload.UploadResult{Path: key}, nil
}

// GetDownloadURL presigns a GET for the object at path.
func (s *Store) GetDownloadURL(ctx context.Context, path string) (string, error) {
	u, err := s.client.PresignedGetObject(ctx, s.bucket, strings.TrimPrefix(path, "/"), s.expiry, url.Values{})
	if err != nil {
		return "", fmt.Errorf("miniostore: presign %s: %w", path, err)
	}
	return u.String(), nil
}
