// Package minio provides a shared.Store on MinIO or any S3-compatible
// object store, for clusters that keep the statistic exchange off AWS.
// Await polls StatObject behind a rate limiter, same discipline as the
// s3 store.
package minio

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"time"

	"github.com/minio/minio-go/v7"
	"golang.org/x/time/rate"

	"github.com/hupe1980/regnet/shared"
)

// DefaultPollInterval bounds how often Await probes for an unpublished
// key.
const DefaultPollInterval = 250 * time.Millisecond

// Store implements shared.Store on a MinIO bucket.
type Store struct {
	client  *minio.Client
	bucket  string
	prefix  string
	limiter *rate.Limiter
}

var _ shared.Store = (*Store)(nil)

type options struct {
	pollInterval time.Duration
}

// Option configures the store.
type Option func(*options)

// WithPollInterval sets how often Await probes for a missing key.
func WithPollInterval(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.pollInterval = d
		}
	}
}

// NewStore creates a MinIO-backed store. rootPrefix is prepended to all
// keys (e.g. "run-7/").
func NewStore(client *minio.Client, bucket, rootPrefix string, optFns ...Option) *Store {
	opts := options{pollInterval: DefaultPollInterval}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Store{
		client:  client,
		bucket:  bucket,
		prefix:  rootPrefix,
		limiter: rate.NewLimiter(rate.Every(opts.pollInterval), 1),
	}
}

func (s *Store) key(name string) string {
	return path.Join(s.prefix, name)
}

// Publish uploads an immutable value; an existing key returns
// shared.ErrAlreadyPublished.
func (s *Store) Publish(ctx context.Context, key string, value []byte) error {
	full := s.key(key)

	_, err := s.client.StatObject(ctx, s.bucket, full, minio.StatObjectOptions{})
	if err == nil {
		return shared.ErrAlreadyPublished
	}
	if !isNotFound(err) {
		return fmt.Errorf("probe %s: %w", key, err)
	}

	_, err = s.client.PutObject(ctx, s.bucket, full, bytes.NewReader(value), int64(len(value)), minio.PutObjectOptions{})
	if err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	return nil
}

// Await polls for the key at the configured interval until it exists or
// ctx is done.
func (s *Store) Await(ctx context.Context, key string) ([]byte, error) {
	full := s.key(key)
	for {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		obj, err := s.client.GetObject(ctx, s.bucket, full, minio.GetObjectOptions{})
		if err != nil {
			return nil, fmt.Errorf("get %s: %w", key, err)
		}
		value, err := io.ReadAll(obj)
		_ = obj.Close()
		if err != nil {
			if isNotFound(err) {
				continue
			}
			return nil, fmt.Errorf("read %s: %w", key, err)
		}
		return value, nil
	}
}

// Clear deletes the key. Deleting an absent key is not an error.
func (s *Store) Clear(ctx context.Context, key string) error {
	err := s.client.RemoveObject(ctx, s.bucket, s.key(key), minio.RemoveObjectOptions{})
	if err != nil && !isNotFound(err) {
		return fmt.Errorf("remove %s: %w", key, err)
	}
	return nil
}

func isNotFound(err error) bool {
	resp := minio.ToErrorResponse(err)
	return resp.Code == "NoSuchKey" || resp.Code == "NotFound"
}
