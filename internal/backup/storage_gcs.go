package backup

import (
	"context"
	"errors"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// GCSBlobStore implements BlobStore for Google Cloud Storage
type GCSBlobStore struct {
	client     *storage.Client
	bucketName string
	prefix     string
}

// NewGCSBlobStore creates a new GCSBlobStore instance
func NewGCSBlobStore(ctx context.Context, config *GCSConfig) (*GCSBlobStore, error) {
	if config == nil {
		return nil, NewConfigurationError("GCS storage configuration is required", nil)
	}
	if err := config.Validate(); err != nil {
		return nil, NewConfigurationError("invalid GCS storage configuration", err)
	}

	var client *storage.Client
	var err error

	if config.CredentialsPath != "" {
		client, err = storage.NewClient(ctx, option.WithCredentialsFile(config.CredentialsPath))
	} else {
		// Use default credentials (e.g., from environment or metadata server)
		client, err = storage.NewClient(ctx)
	}
	if err != nil {
		return nil, NewStorageError("failed to create GCS client", err)
	}

	return &GCSBlobStore{
		client:     client,
		bucketName: config.Bucket,
		prefix:     objectPrefix,
	}, nil
}

// Put uploads an object to GCS
func (gs *GCSBlobStore) Put(ctx context.Context, name string, data []byte) error {
	object := gs.client.Bucket(gs.bucketName).Object(gs.prefix + name)

	writer := object.NewWriter(ctx)
	writer.ContentType = "application/octet-stream"

	if _, err := writer.Write(data); err != nil {
		writer.Close()
		return NewUploadError(fmt.Sprintf("failed to write object %s to GCS", name), err)
	}
	if err := writer.Close(); err != nil {
		return NewUploadError(fmt.Sprintf("failed to upload object %s to GCS", name), err)
	}
	return nil
}

// Get downloads an object from GCS
func (gs *GCSBlobStore) Get(ctx context.Context, name string) ([]byte, error) {
	object := gs.client.Bucket(gs.bucketName).Object(gs.prefix + name)

	reader, err := object.NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, NewNotFoundError(fmt.Sprintf("object %s not found in GCS", name), err)
		}
		return nil, NewStorageError(fmt.Sprintf("failed to download object %s from GCS", name), err)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, NewStorageError(fmt.Sprintf("failed to read object %s", name), err)
	}
	return data, nil
}

// DeleteMany removes objects from GCS; missing objects are ignored
func (gs *GCSBlobStore) DeleteMany(ctx context.Context, names []string) error {
	bucket := gs.client.Bucket(gs.bucketName)

	for _, name := range names {
		err := bucket.Object(gs.prefix + name).Delete(ctx)
		if err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
			return NewStorageError(fmt.Sprintf("failed to delete object %s from GCS", name), err)
		}
	}
	return nil
}

// Close closes the GCS client
func (gs *GCSBlobStore) Close() error {
	return gs.client.Close()
}
