// Package storage holds uploaded documents in S3-compatible object storage.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/cjgv1809/Chat-with-PDF/internal/domain"
)

// DefaultUploadURLExpiry is how long a presigned upload URL stays valid.
const DefaultUploadURLExpiry = 15 * time.Minute

type S3ClientConfig struct {
	Endpoint        string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	UsePathStyle    bool
	UploadURLExpiry time.Duration
}

// ObjectMetadata describes a stored document.
type ObjectMetadata struct {
	ContentLength int64
	ContentType   string
	ETag          string
}

// S3Client stores documents in one bucket of AWS S3, RustFS or MinIO. Clients
// upload directly with a presigned PUT; the server only reads, inspects and
// deletes objects.
type S3Client struct {
	client          *s3.Client
	presigner       *s3.PresignClient
	bucket          string
	uploadURLExpiry time.Duration
}

func NewS3Client(ctx context.Context, cfg S3ClientConfig) (*S3Client, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	expiry := cfg.UploadURLExpiry
	if expiry <= 0 {
		expiry = DefaultUploadURLExpiry
	}

	return &S3Client{
		client:          client,
		presigner:       s3.NewPresignClient(client),
		bucket:          cfg.Bucket,
		uploadURLExpiry: expiry,
	}, nil
}

// GenerateUploadURL presigns a PUT of key. The uploader must send the same
// Content-Type.
func (c *S3Client) GenerateUploadURL(ctx context.Context, key string, contentType string) (string, error) {
	req, err := c.presigner.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(c.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}, s3.WithPresignExpires(c.uploadURLExpiry))
	if err != nil {
		return "", fmt.Errorf("failed to presign upload of %s: %w", key, err)
	}
	return req.URL, nil
}

// GetObject opens a stored document; the caller closes the body.
func (c *S3Client) GetObject(ctx context.Context, key string) (io.ReadCloser, *ObjectMetadata, error) {
	out, err := c.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, nil, objectError("get", key, err)
	}
	return out.Body, &ObjectMetadata{
		ContentLength: aws.ToInt64(out.ContentLength),
		ContentType:   aws.ToString(out.ContentType),
		ETag:          aws.ToString(out.ETag),
	}, nil
}

// HeadObject returns domain.ErrUploadNotFound when nothing was uploaded
// under key yet.
func (c *S3Client) HeadObject(ctx context.Context, key string) (*ObjectMetadata, error) {
	out, err := c.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, objectError("head", key, err)
	}
	return &ObjectMetadata{
		ContentLength: aws.ToInt64(out.ContentLength),
		ContentType:   aws.ToString(out.ContentType),
		ETag:          aws.ToString(out.ETag),
	}, nil
}

// DeleteObject is idempotent: deleting a missing key succeeds.
func (c *S3Client) DeleteObject(ctx context.Context, key string) error {
	_, err := c.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil && !isNotFound(err) {
		return fmt.Errorf("failed to delete object %s: %w", key, err)
	}
	return nil
}

// EnsureBucket creates the bucket when HeadBucket cannot see it. Some
// S3-compatible stores answer a missing bucket with 403, so any head failure
// leads to a create attempt.
func (c *S3Client) EnsureBucket(ctx context.Context) error {
	_, headErr := c.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(c.bucket)})
	if headErr == nil {
		return nil
	}

	_, err := c.client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(c.bucket)})
	var owned *types.BucketAlreadyOwnedByYou
	if err != nil && !errors.As(err, &owned) {
		return fmt.Errorf("failed to create bucket %s: %w", c.bucket, errors.Join(err, headErr))
	}
	return nil
}

func objectError(op, key string, err error) error {
	if isNotFound(err) {
		return domain.ErrUploadNotFound
	}
	return domain.NewDomainErrorWithCause(domain.ErrCodeInternalError, fmt.Sprintf("failed to %s object %s", op, key), err)
}

func isNotFound(err error) bool {
	var notFound *types.NotFound
	var noSuchKey *types.NoSuchKey
	var noSuchBucket *types.NoSuchBucket
	return errors.As(err, &notFound) || errors.As(err, &noSuchKey) || errors.As(err, &noSuchBucket)
}
