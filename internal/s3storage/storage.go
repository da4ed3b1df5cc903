// Package s3storage mirrors published gallery directories to MinIO/S3.
package s3storage

import (
	"context"
	"fmt"
	"io/fs"
	"mime"
	"path"
	"path/filepath"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/dharsanguruparan/MapPoster/internal/config"
)

// Storage wraps MinIO/S3 interactions for the gallery bucket.
type Storage struct {
	client *minio.Client
	bucket string
	region string
}

// Enabled reports whether object storage is configured at all.
func Enabled(cfg *config.Config) bool {
	return cfg.S3Endpoint != "" && cfg.S3GalleryBucket != ""
}

// New creates a MinIO client from the Config.
func New(cfg *config.Config) (*Storage, error) {
	client, err := minio.New(cfg.S3Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.S3AccessKey, cfg.S3SecretKey, ""),
		Secure: cfg.S3UseSSL,
		Region: cfg.S3Region,
	})
	if err != nil {
		return nil, fmt.Errorf("init minio: %w", err)
	}
	return &Storage{client: client, bucket: cfg.S3GalleryBucket, region: cfg.S3Region}, nil
}

// EnsureBucket makes sure the gallery bucket exists before use.
func (s *Storage) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", s.bucket, err)
	}
	if !exists {
		if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: s.region}); err != nil {
			return fmt.Errorf("make bucket %s: %w", s.bucket, err)
		}
	}
	return nil
}

// MirrorDir uploads every file below localDir under prefix and returns the
// number of objects written. Objects are overwritten, never deleted, which
// matches the additive gallery merge.
func (s *Storage) MirrorDir(ctx context.Context, localDir, prefix string) (int, error) {
	uploaded := 0
	err := filepath.WalkDir(localDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		rel, err := filepath.Rel(localDir, p)
		if err != nil {
			return err
		}
		key := ObjectKey(prefix, rel)
		opts := minio.PutObjectOptions{ContentType: ContentType(p)}
		if _, err := s.client.FPutObject(ctx, s.bucket, key, p, opts); err != nil {
			return fmt.Errorf("upload %s: %w", key, err)
		}
		uploaded++
		return nil
	})
	if err != nil {
		return uploaded, fmt.Errorf("mirror %s: %w", localDir, err)
	}
	return uploaded, nil
}

// ObjectKey joins prefix and an OS-specific relative path into a slash
// separated key.
func ObjectKey(prefix, rel string) string {
	return path.Join(prefix, filepath.ToSlash(rel))
}

// ContentType guesses the MIME type from the file extension.
func ContentType(name string) string {
	if t := mime.TypeByExtension(filepath.Ext(name)); t != "" {
		return t
	}
	return "application/octet-stream"
}
