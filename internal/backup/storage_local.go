package backup

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// LocalBlobStore implements BlobStore on the local filesystem. It exists
// for development and for single-host deployments that mount a durable
// volume.
type LocalBlobStore struct {
	basePath string
}

// NewLocalBlobStore creates a filesystem-backed blob store rooted at the
// configured base path.
func NewLocalBlobStore(config *LocalConfig) (*LocalBlobStore, error) {
	if config == nil {
		return nil, NewConfigurationError("local storage configuration is required", nil)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	dir := filepath.Join(config.BasePath, objectPrefix)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, NewStorageError(fmt.Sprintf("failed to create storage directory %s", dir), err)
	}

	return &LocalBlobStore{basePath: config.BasePath}, nil
}

func (ls *LocalBlobStore) objectPath(name string) (string, error) {
	if name == "" || strings.Contains(name, "..") || strings.ContainsAny(name, "/\\") {
		return "", NewValidationError(fmt.Sprintf("invalid object name %q", name), nil)
	}
	return filepath.Join(ls.basePath, objectPrefix, name), nil
}

// Put writes an object atomically via a temp file rename.
func (ls *LocalBlobStore) Put(ctx context.Context, name string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return NewUploadError("upload cancelled", err)
	}

	path, err := ls.objectPath(name)
	if err != nil {
		return err
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return NewUploadError(fmt.Sprintf("failed to write object %s", name), err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return NewUploadError(fmt.Sprintf("failed to finalize object %s", name), err)
	}
	return nil
}

// Get reads an object in full.
func (ls *LocalBlobStore) Get(ctx context.Context, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, NewStorageError("download cancelled", err)
	}

	path, err := ls.objectPath(name)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, NewNotFoundError(fmt.Sprintf("object %s not found", name), err)
		}
		return nil, NewStorageError(fmt.Sprintf("failed to read object %s", name), err)
	}
	return data, nil
}

// DeleteMany removes the named objects; missing objects are ignored.
func (ls *LocalBlobStore) DeleteMany(ctx context.Context, names []string) error {
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return NewStorageError("delete cancelled", err)
		}

		path, err := ls.objectPath(name)
		if err != nil {
			return err
		}
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return NewStorageError(fmt.Sprintf("failed to delete object %s", name), err)
		}
	}
	return nil
}
