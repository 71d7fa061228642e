package media

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/oklog/ulid/v2"
)

// UploadResult is the outcome of persisting an asset: the canonical public
// URL stored on the entity and the object key used later as deletion handle.
type UploadResult struct {
	URL string
	Key string
}

// Store abstracts the hosted asset backend so handlers can be tested without
// network access.
type Store interface {
	// Upload streams the asset to the backend under a kind-specific prefix.
	Upload(ctx context.Context, kind AssetKind, filename, contentType string, r io.Reader) (*UploadResult, error)
	// Delete removes a previously uploaded object by its key. Best-effort at
	// the call sites: failures are reported but do not block the operation.
	Delete(ctx context.Context, key string) error
}

// S3Store implements Store against AWS S3 or an S3-compatible service.
type S3Store struct {
	client    *s3.Client
	bucket    string
	publicURL string
}

// NewS3Store creates the S3 asset store. Supports MinIO and other
// S3-compatible endpoints via path-style addressing.
func NewS3Store(endpoint, region, bucket, accessKey, secretKey, publicURL string) (*S3Store, error) {
	cfg, err := awsconfig.LoadDefaultConfig(context.TODO(),
		awsconfig.WithRegion(region),
		awsconfig.WithBaseEndpoint(endpoint),
		awsconfig.WithCredentialsProvider(aws.CredentialsProviderFunc(
			func(ctx context.Context) (aws.Credentials, error) {
				return aws.Credentials{
					AccessKeyID:     accessKey,
					SecretAccessKey: secretKey,
				}, nil
			})),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.UsePathStyle = true // Required for MinIO and other S3-compatible services
	})

	if publicURL == "" {
		publicURL = fmt.Sprintf("%s/%s", strings.TrimSuffix(endpoint, "/"), bucket)
	}

	return &S3Store{
		client:    client,
		bucket:    bucket,
		publicURL: strings.TrimSuffix(publicURL, "/"),
	}, nil
}

// objectKey builds a collision-free key: <kind folder>/<ulid>-<basename>.
func objectKey(kind AssetKind, filename string) string {
	base := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '-'
		}
	}, base)
	id := ulid.Make().String()
	if base == "" || base == "." {
		return fmt.Sprintf("%s/%s", kind.Folder(), id)
	}
	return fmt.Sprintf("%s/%s-%s", kind.Folder(), id, base)
}

// Upload streams the asset bytes to the bucket and returns the canonical URL
// plus the object key as deletion handle.
func (s *S3Store) Upload(ctx context.Context, kind AssetKind, filename, contentType string, r io.Reader) (*UploadResult, error) {
	key := objectKey(kind, filename)

	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        r,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upload %s asset: %w", kind, err)
	}

	return &UploadResult{
		URL: fmt.Sprintf("%s/%s", s.publicURL, key),
		Key: key,
	}, nil
}

// Delete removes the object by key.
func (s *S3Store) Delete(ctx context.Context, key string) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete asset %s: %w", key, err)
	}
	return nil
}
