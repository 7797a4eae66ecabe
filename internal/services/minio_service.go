package services

import (
	"bytes"
	"context"
	"fmt"

	"github.com/ahmad-alkadri/luna-converter/internal/config"
	"github.com/dustin/go-humanize"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/zerolog"
)

// MinioService stores produced archives in a MinIO / S3 bucket
type MinioService struct {
	client *minio.Client
	bucket string
	logger zerolog.Logger
}

// NewMinioService creates a new MinIO service and makes sure the bucket exists
func NewMinioService(ctx context.Context, cfg config.MinioConfig, logger zerolog.Logger) (*MinioService, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize MinIO client: %w", err)
	}

	service := &MinioService{
		client: client,
		bucket: cfg.Bucket,
		logger: logger.With().Str("component", "minio").Str("bucket", cfg.Bucket).Logger(),
	}

	if err := service.ensureBucket(ctx); err != nil {
		return nil, fmt.Errorf("failed to ensure bucket exists: %w", err)
	}

	return service, nil
}

// ensureBucket creates the bucket if it doesn't exist
func (m *MinioService) ensureBucket(ctx context.Context) error {
	exists, err := m.client.BucketExists(ctx, m.bucket)
	if err != nil {
		return fmt.Errorf("error checking if bucket exists: %w", err)
	}

	if !exists {
		if err := m.client.MakeBucket(ctx, m.bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("error creating bucket: %w", err)
		}
		m.logger.Info().Msg("Created bucket")
	}

	return nil
}

// SaveArchive uploads a zip archive under objectName
func (m *MinioService) SaveArchive(ctx context.Context, objectName string, data []byte) error {
	_, err := m.client.PutObject(ctx, m.bucket, objectName, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: "application/zip"})
	if err != nil {
		return fmt.Errorf("failed to upload object %s: %w", objectName, err)
	}

	m.logger.Debug().
		Str("object", objectName).
		Str("size", humanize.Bytes(uint64(len(data)))).
		Msg("Saved archive")
	return nil
}

// ListArchives lists object names under prefix
func (m *MinioService) ListArchives(ctx context.Context, prefix string) ([]string, error) {
	var objects []string

	objectCh := m.client.ListObjects(ctx, m.bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	})
	for object := range objectCh {
		if object.Err != nil {
			return nil, fmt.Errorf("error listing objects: %w", object.Err)
		}
		objects = append(objects, object.Key)
	}

	return objects, nil
}
