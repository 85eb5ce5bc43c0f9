package attachment

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
)

// MinioOptions are the connection settings for an object store.
type MinioOptions struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// NewMinioClient connects to the object store.
func NewMinioClient(opts MinioOptions) (*minio.Client, error) {
	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}
	return client, nil
}

// EnsureBucket creates bucket when it does not exist yet.
func EnsureBucket(ctx context.Context, client *minio.Client, bucket string) error {
	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("create bucket %s: %w", bucket, err)
		}
	}
	return nil
}

type objectPutter interface {
	PutObject(ctx context.Context, bucket, key string, reader io.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

// MinioStore uploads images to a bucket and returns s3://bucket/key references.
type MinioStore struct {
	client   objectPutter
	bucket   string
	maxBytes int64
	logger   *zap.Logger
	newKey   func() string
}

// NewMinioStore creates a store uploading into bucket through client.
func NewMinioStore(client *minio.Client, bucket string, maxBytes int64, logger *zap.Logger) *MinioStore {
	return newMinioStore(client, bucket, maxBytes, logger)
}

func newMinioStore(client objectPutter, bucket string, maxBytes int64, logger *zap.Logger) *MinioStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MinioStore{
		client:   client,
		bucket:   bucket,
		maxBytes: maxBytes,
		logger:   logger,
		newKey:   uuid.NewString,
	}
}

// Store uploads data under a fresh uuid key keeping the detected extension.
func (s *MinioStore) Store(ctx context.Context, name string, data []byte) (string, error) {
	mime, err := sniff(data, s.maxBytes)
	if err != nil {
		return "", err
	}

	key := s.newKey() + mime.Extension()
	info, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType:  mime.String(),
		UserMetadata: map[string]string{"original-name": name},
	})
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", key, err)
	}

	s.logger.Info("attachment uploaded",
		zap.String("bucket", s.bucket),
		zap.String("key", info.Key),
		zap.Int("size", len(data)),
	)
	return fmt.Sprintf("s3://%s/%s", s.bucket, info.Key), nil
}
