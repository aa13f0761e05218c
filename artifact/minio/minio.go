// Package minio implements core.ArtifactStore on S3 compatible object storage
// through minio-go. Locators are either public object URLs (when a public
// base URL is configured) or presigned GET URLs.
package minio

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/hupe1980/agentmux/artifact"
)

// ClientOptions configures NewClient.
type ClientOptions struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Secure    bool
	// Region skips the bucket location lookup when set.
	Region string
}

// NewClient creates a minio client. No request is sent.
func NewClient(opts ClientOptions) (*minio.Client, error) {
	c, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.Secure,
		Region: opts.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	return c, nil
}

// Store keeps artifacts as objects in one bucket.
type Store struct {
	client        *minio.Client
	bucket        string
	publicBaseURL string
	presignExpiry time.Duration
}

// Options configures a Store.
type Options struct {
	// PublicBaseURL makes Save return PublicBaseURL/<key> instead of a presigned URL.
	PublicBaseURL string
	// PresignExpiry bounds presigned locators; defaults to 7 days, the S3 maximum.
	PresignExpiry time.Duration
}

// New creates a store for bucket.
func New(client *minio.Client, bucket string, optFns ...func(o *Options)) *Store {
	opts := Options{PresignExpiry: 7 * 24 * time.Hour}
	for _, fn := range optFns {
		fn(&opts)
	}

	return &Store{
		client:        client,
		bucket:        bucket,
		publicBaseURL: opts.PublicBaseURL,
		presignExpiry: opts.PresignExpiry,
	}
}

// EnsureBucket creates the bucket when it does not exist.
func (s *Store) EnsureBucket(ctx context.Context) error {
	found, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("failed to check if bucket %q exists: %w", s.bucket, err)
	}

	if found {
		return nil
	}

	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("failed to create bucket %q: %w", s.bucket, err)
	}

	return nil
}

// Save uploads data and returns the object's locator.
func (s *Store) Save(ctx context.Context, key, contentType string, data []byte) (string, error) {
	k, err := artifact.CleanKey(key)
	if err != nil {
		return "", err
	}

	_, err = s.client.PutObject(ctx, s.bucket, k, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("failed to put object %q: %w", k, err)
	}

	return s.Locator(ctx, k)
}

// Locator returns the shareable URL of key.
func (s *Store) Locator(ctx context.Context, key string) (string, error) {
	if s.publicBaseURL != "" {
		return artifact.JoinURL(s.publicBaseURL, key), nil
	}

	u, err := s.client.PresignedGetObject(ctx, s.bucket, key, s.presignExpiry, nil)
	if err != nil {
		return "", fmt.Errorf("failed to presign %q: %w", key, err)
	}

	return u.String(), nil
}

// Get downloads an object.
func (s *Store) Get(ctx context.Context, key string) ([]byte, string, error) {
	k, err := artifact.CleanKey(key)
	if err != nil {
		return nil, "", err
	}

	obj, err := s.client.GetObject(ctx, s.bucket, k, minio.GetObjectOptions{})
	if err != nil {
		return nil, "", mapError(k, err)
	}
	defer obj.Close()

	info, err := obj.Stat()
	if err != nil {
		return nil, "", mapError(k, err)
	}

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, "", mapError(k, err)
	}

	return data, info.ContentType, nil
}

// List returns the keys below prefix.
func (s *Store) List(ctx context.Context, prefix string) ([]string, error) {
	var keys []string

	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("failed to list %q: %w", prefix, obj.Err)
		}

		keys = append(keys, obj.Key)
	}

	return keys, nil
}

// Delete removes an object. S3 deletes are idempotent, so a missing key is
// not reported.
func (s *Store) Delete(ctx context.Context, key string) error {
	k, err := artifact.CleanKey(key)
	if err != nil {
		return err
	}

	if err := s.client.RemoveObject(ctx, s.bucket, k, minio.RemoveObjectOptions{}); err != nil {
		return mapError(k, err)
	}

	return nil
}

func mapError(key string, err error) error {
	if resp := minio.ToErrorResponse(err); resp.Code == "NoSuchKey" || resp.StatusCode == 404 {
		return fmt.Errorf("%w: %s", artifact.ErrNotFound, key)
	}

	return fmt.Errorf("artifact %q: %w", key, err)
}
