package backup

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
)

// S3BlobStore implements BlobStore for Amazon S3
type S3BlobStore struct {
	client *s3.S3
	bucket string
	prefix string
}

// NewS3BlobStore creates a new S3BlobStore instance
func NewS3BlobStore(config *S3Config) (*S3BlobStore, error) {
	if config == nil {
		return nil, NewConfigurationError("S3 storage configuration is required", nil)
	}
	if err := config.Validate(); err != nil {
		return nil, NewConfigurationError("invalid S3 storage configuration", err)
	}

	awsConfig := &aws.Config{
		Region: aws.String(config.Region),
	}
	if config.AccessKey != "" {
		awsConfig.Credentials = credentials.NewStaticCredentials(
			config.AccessKey,
			config.SecretKey,
			"", // token
		)
	}

	sess, err := session.NewSession(awsConfig)
	if err != nil {
		return nil, NewStorageError("failed to create AWS session", err)
	}

	return &S3BlobStore{
		client: s3.New(sess),
		bucket: config.Bucket,
		prefix: objectPrefix,
	}, nil
}

// Put uploads an object to S3
func (s3s *S3BlobStore) Put(ctx context.Context, name string, data []byte) error {
	_, err := s3s.client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s3s.bucket),
		Key:         aws.String(s3s.prefix + name),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/octet-stream"),
	})
	if err != nil {
		return NewUploadError(fmt.Sprintf("failed to upload object %s to S3", name), err)
	}
	return nil
}

// Get downloads an object from S3
func (s3s *S3BlobStore) Get(ctx context.Context, name string) ([]byte, error) {
	result, err := s3s.client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s3s.bucket),
		Key:    aws.String(s3s.prefix + name),
	})
	if err != nil {
		if aerr, ok := err.(awserr.Error); ok && aerr.Code() == s3.ErrCodeNoSuchKey {
			return nil, NewNotFoundError(fmt.Sprintf("object %s not found in S3", name), err)
		}
		return nil, NewStorageError(fmt.Sprintf("failed to download object %s from S3", name), err)
	}
	defer result.Body.Close()

	data, err := io.ReadAll(result.Body)
	if err != nil {
		return nil, NewStorageError(fmt.Sprintf("failed to read object %s", name), err)
	}
	return data, nil
}

// DeleteMany removes objects from S3 in a single batched request
func (s3s *S3BlobStore) DeleteMany(ctx context.Context, names []string) error {
	if len(names) == 0 {
		return nil
	}

	objects := make([]*s3.ObjectIdentifier, 0, len(names))
	for _, name := range names {
		objects = append(objects, &s3.ObjectIdentifier{
			Key: aws.String(s3s.prefix + name),
		})
	}

	// S3 accepts at most 1000 keys per delete request.
	const batchSize = 1000
	for start := 0; start < len(objects); start += batchSize {
		end := start + batchSize
		if end > len(objects) {
			end = len(objects)
		}

		_, err := s3s.client.DeleteObjectsWithContext(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(s3s.bucket),
			Delete: &s3.Delete{
				Objects: objects[start:end],
				Quiet:   aws.Bool(true),
			},
		})
		if err != nil {
			return NewStorageError("failed to delete objects from S3", err)
		}
	}
	return nil
}
