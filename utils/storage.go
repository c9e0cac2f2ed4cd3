package utils

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/plumehq/plume/config"
)

// Storage persists uploaded images and returns a public URL. The application
// only ever stores the returned URL, never binary content.
type Storage interface {
	Save(ctx context.Context, objectName string, data []byte, contentType string) (string, error)
}

var storage Storage

// InitStorage selects the S3-compatible backend when an endpoint is
// configured and falls back to local disk otherwise.
func InitStorage(cfg config.AppConfig) error {
	if cfg.StorageEndpoint != "" {
		s3, err := newS3Storage(cfg)
		if err != nil {
			return err
		}
		storage = s3
		return nil
	}
	if err := os.MkdirAll(cfg.UploadDir, 0o755); err != nil {
		return err
	}
	storage = &LocalStorage{UploadDir: cfg.UploadDir, BaseURL: "/static/uploads"}
	return nil
}

// SetStorage overrides the active backend. Used by tests.
func SetStorage(s Storage) { storage = s }

// GetStorage returns the active backend.
func GetStorage() Storage { return storage }

// LocalStorage writes files under an upload directory served statically.
type LocalStorage struct {
	UploadDir string
	BaseURL   string
}

// Save writes the file to disk and returns its public path.
func (ls *LocalStorage) Save(_ context.Context, objectName string, data []byte, _ string) (string, error) {
	fullPath := filepath.Join(ls.UploadDir, objectName)
	if err := os.WriteFile(fullPath, data, 0o644); err != nil {
		return "", err
	}
	return ls.BaseURL + "/" + objectName, nil
}

// S3Storage uploads to an S3-compatible bucket and returns public URLs under
// a configured prefix.
type S3Storage struct {
	client    *minio.Client
	bucket    string
	publicURL string
}

func newS3Storage(cfg config.AppConfig) (*S3Storage, error) {
	endpoint := strings.TrimPrefix(strings.TrimPrefix(cfg.StorageEndpoint, "https://"), "http://")

	var creds *credentials.Credentials
	if cfg.StorageAccessKey == "" || cfg.StorageSecretKey == "" {
		creds = credentials.NewIAM("")
	} else {
		creds = credentials.NewStaticV4(cfg.StorageAccessKey, cfg.StorageSecretKey, "")
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  creds,
		Secure: cfg.StorageUseSSL,
		Region: cfg.StorageRegion,
	})
	if err != nil {
		return nil, err
	}

	exists, err := client.BucketExists(context.Background(), cfg.StorageBucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket existence: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("bucket %s does not exist", cfg.StorageBucket)
	}

	publicURL := cfg.StoragePublicURL
	if publicURL == "" {
		scheme := "http"
		if cfg.StorageUseSSL {
			scheme = "https"
		}
		publicURL = fmt.Sprintf("%s://%s.%s", scheme, cfg.StorageBucket, endpoint)
	}

	return &S3Storage{
		client:    client,
		bucket:    cfg.StorageBucket,
		publicURL: strings.TrimSuffix(publicURL, "/"),
	}, nil
}

// Save uploads the object and returns its public URL.
func (s3 *S3Storage) Save(ctx context.Context, objectName string, data []byte, contentType string) (string, error) {
	_, err := s3.client.PutObject(ctx, s3.bucket, objectName, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", err
	}
	return s3.publicURL + "/" + objectName, nil
}
