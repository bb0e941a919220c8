// Package s3 provides an S3-backed shared.Store. S3 has no push
// notification for plain object writes, so Await polls GetObject behind a
// rate limiter; the protocol's ack barrier makes the extra read traffic
// bounded by rankCount per bootstrap.
package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"golang.org/x/time/rate"

	"github.com/hupe1980/regnet/shared"
)

// DefaultPollInterval bounds how often Await probes for an unpublished
// key.
const DefaultPollInterval = 250 * time.Millisecond

// Client is the subset of the S3 API the store uses.
type Client interface {
	manager.UploadAPIClient
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// Store implements shared.Store on an S3 bucket.
type Store struct {
	client   Client
	uploader *manager.Uploader
	bucket   string
	prefix   string
	limiter  *rate.Limiter
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

// NewStore creates an S3-backed store. rootPrefix is prepended to all
// keys (e.g. "run-7/").
func NewStore(client Client, bucket, rootPrefix string, optFns ...Option) *Store {
	opts := options{pollInterval: DefaultPollInterval}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Store{
		client:   client,
		uploader: manager.NewUploader(client),
		bucket:   bucket,
		prefix:   rootPrefix,
		limiter:  rate.NewLimiter(rate.Every(opts.pollInterval), 1),
	}
}

// NewDefault creates a store using the ambient AWS configuration chain.
func NewDefault(ctx context.Context, bucket, rootPrefix string, optFns ...Option) (*Store, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return NewStore(s3.NewFromConfig(cfg), bucket, rootPrefix, optFns...), nil
}

func (s *Store) key(name string) string {
	return path.Join(s.prefix, name)
}

// Publish uploads an immutable value. An existing key returns
// shared.ErrAlreadyPublished; under the protocol exactly one rank writes
// a key, so the existence probe is a guard against misconfigured pools,
// not a race-proof lock (a dynamo ledger covers that case).
func (s *Store) Publish(ctx context.Context, key string, value []byte) error {
	full := s.key(key)

	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(full),
	})
	if err == nil {
		return shared.ErrAlreadyPublished
	}
	if !isNotFound(err) {
		return fmt.Errorf("probe %s: %w", key, err)
	}

	if _, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(full),
		Body:   bytes.NewReader(value),
	}); err != nil {
		return fmt.Errorf("upload %s: %w", key, err)
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

		out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(full),
		})
		if err != nil {
			if isNotFound(err) {
				continue
			}
			return nil, fmt.Errorf("get %s: %w", key, err)
		}

		value, err := io.ReadAll(out.Body)
		_ = out.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", key, err)
		}
		return value, nil
	}
}

// Clear deletes the key. Deleting an absent key is not an error.
func (s *Store) Clear(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(key)),
	})
	if err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

func isNotFound(err error) bool {
	var nf *types.NotFound
	if errors.As(err, &nf) {
		return true
	}
	var nsk *types.NoSuchKey
	return errors.As(err, &nsk)
}
