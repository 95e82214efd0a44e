package backup

import (
	"context"
)

// BlobStore abstracts the object store backup payloads live in. Object
// names are flat within a single bucket or container; implementations keep
// a fixed "backups/" prefix internally.
type BlobStore interface {
	// Put writes an object, overwriting any existing object of the same name.
	Put(ctx context.Context, name string, data []byte) error

	// Get reads an object in full. A missing object yields a NOT_FOUND error.
	Get(ctx context.Context, name string) ([]byte, error)

	// DeleteMany removes the named objects. Missing objects are not errors;
	// the first hard failure aborts and is returned.
	DeleteMany(ctx context.Context, names []string) error
}

// objectPrefix is prepended to every stored object name.
const objectPrefix = "backups/"

// NewBlobStore creates the blob store selected by the storage
// configuration.
func NewBlobStore(ctx context.Context, cfg *StorageConfig) (BlobStore, error) {
	if cfg == nil {
		return nil, NewConfigurationError("storage configuration is required", nil)
	}

	switch cfg.Provider {
	case "local":
		return NewLocalBlobStore(cfg.Local)
	case "s3":
		return NewS3BlobStore(cfg.S3)
	case "gcs":
		return NewGCSBlobStore(ctx, cfg.GCS)
	case "azure":
		return NewAzureBlobStore(cfg.Azure)
	default:
		return nil, NewConfigurationError("unsupported storage provider: "+cfg.Provider, nil)
	}
}
