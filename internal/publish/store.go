package publish

import (
	"context"
	"fmt"
	"strconv"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Environment variables read by ConnectionFromEnv.
const (
	EnvEndpoint  = "MINIO_ENDPOINT"
	EnvAccessKey = "MINIO_ACCESS_KEY"
	EnvSecretKey = "MINIO_SECRET_KEY"
	EnvSecure    = "MINIO_SECURE"
)

// ObjectStore is the subset of the MinIO client used for publishing.
type ObjectStore interface {
	BucketExists(ctx context.Context, bucket string) (bool, error)
	MakeBucket(ctx context.Context, bucket string, opts minio.MakeBucketOptions) error
	StatObject(ctx context.Context, bucket, object string, opts minio.StatObjectOptions) (minio.ObjectInfo, error)
	FPutObject(ctx context.Context, bucket, object, filePath string, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

// Compile-time interface verification.
var _ ObjectStore = (*minio.Client)(nil)

// Connection holds S3-compatible endpoint settings.
type Connection struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Secure    bool
}

// ConnectionFromEnv reads the MINIO_* variables through getenv.
func ConnectionFromEnv(getenv func(string) string) (Connection, error) {
	c := Connection{
		Endpoint:  getenv(EnvEndpoint),
		AccessKey: getenv(EnvAccessKey),
		SecretKey: getenv(EnvSecretKey),
	}
	if c.Endpoint == "" {
		return Connection{}, ErrNoEndpoint
	}
	if v := getenv(EnvSecure); v != "" {
		secure, err := strconv.ParseBool(v)
		if err != nil {
			return Connection{}, fmt.Errorf("invalid %s %q: %w", EnvSecure, v, err)
		}
		c.Secure = secure
	}
	return c, nil
}

// NewMinioStore creates a MinIO client for c.
func NewMinioStore(c Connection) (*minio.Client, error) {
	client, err := minio.New(c.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(c.AccessKey, c.SecretKey, ""),
		Secure: c.Secure,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize object store client: %w", err)
	}
	return client, nil
}
