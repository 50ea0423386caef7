// Package storage provides access to application documents in S3.
package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ObjectStore downloads application documents from S3-compatible storage.
type ObjectStore struct {
	client *s3.Client
}

// NewObjectStore creates an S3 client using the default AWS credential chain.
// endpoint overrides the S3 endpoint for local development (e.g. MinIO);
// leave it empty for real AWS.
func NewObjectStore(ctx context.Context, region, endpoint string) (*ObjectStore, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})

	return &ObjectStore{client: client}, nil
}

// Download fetches the object at bucket/path and returns its content.
func (s *ObjectStore) Download(ctx context.Context, bucket, path string) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(path),
	})
	if err != nil {
		return nil, fmt.Errorf("get object %s/%s: %w", bucket, path, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("read object %s/%s: %w", bucket, path, err)
	}
	return data, nil
}
