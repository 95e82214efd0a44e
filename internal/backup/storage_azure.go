package backup

import (
	"context"
	"fmt"
	"io"
	"net/url"

	"github.com/Azure/azure-storage-blob-go/azblob"
)

// AzureBlobStore implements BlobStore for Azure Blob Storage
type AzureBlobStore struct {
	serviceURL    azblob.ServiceURL
	containerName string
	prefix        string
}

// NewAzureBlobStore creates a new AzureBlobStore instance
func NewAzureBlobStore(config *AzureConfig) (*AzureBlobStore, error) {
	if config == nil {
		return nil, NewConfigurationError("Azure storage configuration is required", nil)
	}
	if err := config.Validate(); err != nil {
		return nil, NewConfigurationError("invalid Azure storage configuration", err)
	}

	credential, err := azblob.NewSharedKeyCredential(config.AccountName, config.AccountKey)
	if err != nil {
		return nil, NewStorageError("failed to create Azure credentials", err)
	}

	pipeline := azblob.NewPipeline(credential, azblob.PipelineOptions{})

	serviceURL, err := url.Parse(fmt.Sprintf("https://%s.blob.core.windows.net", config.AccountName))
	if err != nil {
		return nil, NewStorageError("failed to parse Azure service URL", err)
	}

	return &AzureBlobStore{
		serviceURL:    azblob.NewServiceURL(*serviceURL, pipeline),
		containerName: config.ContainerName,
		prefix:        objectPrefix,
	}, nil
}

// Put uploads an object to Azure Blob Storage
func (as *AzureBlobStore) Put(ctx context.Context, name string, data []byte) error {
	containerURL := as.serviceURL.NewContainerURL(as.containerName)
	blobURL := containerURL.NewBlockBlobURL(as.prefix + name)

	_, err := azblob.UploadBufferToBlockBlob(ctx, data, blobURL, azblob.UploadToBlockBlobOptions{
		BlockSize:   4 * 1024 * 1024, // 4MB blocks
		Parallelism: 16,
		BlobHTTPHeaders: azblob.BlobHTTPHeaders{
			ContentType: "application/octet-stream",
		},
	})
	if err != nil {
		return NewUploadError(fmt.Sprintf("failed to upload object %s to Azure", name), err)
	}
	return nil
}

// Get downloads an object from Azure Blob Storage
func (as *AzureBlobStore) Get(ctx context.Context, name string) ([]byte, error) {
	containerURL := as.serviceURL.NewContainerURL(as.containerName)
	blobURL := containerURL.NewBlockBlobURL(as.prefix + name)

	downloadResponse, err := blobURL.Download(ctx, 0, azblob.CountToEnd, azblob.BlobAccessConditions{}, false, azblob.ClientProvidedKeyOptions{})
	if err != nil {
		if storageErr, ok := err.(azblob.StorageError); ok && storageErr.ServiceCode() == azblob.ServiceCodeBlobNotFound {
			return nil, NewNotFoundError(fmt.Sprintf("object %s not found in Azure", name), err)
		}
		return nil, NewStorageError(fmt.Sprintf("failed to download object %s from Azure", name), err)
	}

	bodyStream := downloadResponse.Body(azblob.RetryReaderOptions{MaxRetryRequests: 20})
	defer bodyStream.Close()

	data, err := io.ReadAll(bodyStream)
	if err != nil {
		return nil, NewStorageError(fmt.Sprintf("failed to read object %s", name), err)
	}
	return data, nil
}

// DeleteMany removes objects from Azure Blob Storage; missing blobs are
// ignored
func (as *AzureBlobStore) DeleteMany(ctx context.Context, names []string) error {
	containerURL := as.serviceURL.NewContainerURL(as.containerName)

	for _, name := range names {
		blobURL := containerURL.NewBlockBlobURL(as.prefix + name)
		_, err := blobURL.Delete(ctx, azblob.DeleteSnapshotsOptionInclude, azblob.BlobAccessConditions{})
		if err != nil {
			if storageErr, ok := err.(azblob.StorageError); ok && storageErr.ServiceCode() == azblob.ServiceCodeBlobNotFound {
				continue
			}
			return NewStorageError(fmt.Sprintf("failed to delete object %s from Azure", name), err)
		}
	}
	return nil
}
