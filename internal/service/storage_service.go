package service

import (
	"context"
	"fmt"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/peterskelv123-tech/backend-offline/internal/config"
)

// DocumentArchive keeps a copy of uploaded question documents outside the
// server's disk.
type DocumentArchive interface {
	Archive(ctx context.Context, objectName, localPath, contentType string) error
}

// MinioArchive stores documents in a MinIO bucket.
type MinioArchive struct {
	client *minio.Client
	bucket string
}

// NewMinioArchive connects to MinIO and makes sure the bucket exists.
func NewMinioArchive(ctx context.Context, cfg config.StorageConfig) (*MinioArchive, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", cfg.Bucket, err)
		}
	}

	return &MinioArchive{client: client, bucket: cfg.Bucket}, nil
}

// Archive uploads a local file under objectName.
func (a *MinioArchive) Archive(ctx context.Context, objectName, localPath, contentType string) error {
	_, err := a.client.FPutObject(ctx, a.bucket, objectName, localPath, minio.PutObjectOptions{
		ContentType: contentType,
	})
	return err
}
