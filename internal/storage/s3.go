// Package storage uploads documents to S3.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ErrDisabled is returned by Put when no bucket is configured.
var ErrDisabled = errors.New("file store not configured")

// FileStore stores bytes under a key and returns a URL for them.
type FileStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

type putObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Store is a FileStore backed by an S3 bucket.
type S3Store struct {
	client  putObjectAPI
	bucket  string
	region  string
	baseURL string
}

// NewS3Store loads the default AWS configuration for region. An empty
// bucket yields a disabled store.
func NewS3Store(ctx context.Context, bucket, region, publicBaseURL string) (*S3Store, error) {
	if bucket == "" {
		return &S3Store{}, nil
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, err
	}
	return &S3Store{client: s3.NewFromConfig(cfg), bucket: bucket, region: region, baseURL: publicBaseURL}, nil
}

// Enabled reports whether uploads can be attempted.
func (s *S3Store) Enabled() bool { return s != nil && s.client != nil && s.bucket != "" }

// Put uploads data and returns its public URL.
func (s *S3Store) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	if !s.Enabled() {
		return "", ErrDisabled
	}
	key = strings.TrimLeft(key, "/")
	if key == "" {
		return "", errors.New("empty object key")
	}
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(data))),
	})
	if err != nil {
		return "", fmt.Errorf("put s3://%s/%s: %w", s.bucket, key, err)
	}
	return s.URL(key), nil
}

// URL returns where key can be fetched from.
func (s *S3Store) URL(key string) string {
	escaped := (&url.URL{Path: key}).EscapedPath()
	if s.baseURL != "" {
		return s.baseURL + "/" + escaped
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, escaped)
}

// RequestDocumentKey is the object key for a submittal's intake document.
func RequestDocumentKey(quoteNumber string) string {
	return quoteNumber + "_request.pdf"
}
