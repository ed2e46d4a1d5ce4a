// Package blobstore archives raw uploads to object storage so the original
// file survives reprocessing and schema migrations.
package blobstore

import (
	"bytes"
	"context"
	"fmt"

	"manualqa/internal/manual_qa/rag/interfaces"

	"github.com/minio/minio-go/v7"
)

// MinioStore archives uploaded files into a MinIO bucket.
type MinioStore struct {
	client *minio.Client
	bucket string
}

// NewMinioStore creates a blob store writing into the given bucket.
func NewMinioStore(client *minio.Client, bucket string) *MinioStore {
	return &MinioStore{client: client, bucket: bucket}
}

// Archive uploads the raw bytes under objectName.
func (s *MinioStore) Archive(ctx context.Context, objectName string, data []byte, contentType string) error {
	_, err := s.client.PutObject(ctx, s.bucket, objectName,
		bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return fmt.Errorf("archive %q: %w", objectName, err)
	}
	return nil
}

var _ interfaces.BlobStore = (*MinioStore)(nil)
