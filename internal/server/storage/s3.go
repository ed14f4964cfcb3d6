// Package storage keeps uploaded content media in an S3-compatible bucket
// (MinIO in development) and hands out short-lived presigned download URLs.
package storage

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dmitrijs2005/lms/internal/logging"
	"github.com/google/uuid"
)

// PresignExpiry is the lifetime of download URLs.
const PresignExpiry = 15 * time.Minute

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return s3.NewPresignClient(c)
	}

	putObject = func(c *s3.Client, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
		return c.PutObject(ctx, in, optFns...)
	}
	deleteObject = func(c *s3.Client, ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
		return c.DeleteObject(ctx, in, optFns...)
	}
	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignGetObject(ctx, in, optFns...)
	}
)

// Settings configures the S3 backend.
type Settings struct {
	Region       string
	AccessKey    string
	SecretKey    string
	BaseEndpoint string
	Bucket       string
}

// S3Storage stores media objects in a single bucket.
type S3Storage struct {
	client  *s3.Client
	presign *s3.PresignClient
	bucket  string
	now     func() time.Time
	logger  logging.Logger
}

// NewS3Storage builds the S3 client from static credentials. Path-style
// addressing is used so MinIO endpoints work without DNS tricks.
func NewS3Storage(ctx context.Context, st Settings, logger logging.Logger) (*S3Storage, error) {
	cfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(st.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			st.AccessKey, st.SecretKey, "",
		)))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		if st.BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(st.BaseEndpoint)
		}
		o.UsePathStyle = true
	})

	return &S3Storage{
		client:  client,
		presign: newS3PresignClient(client),
		bucket:  st.Bucket,
		now:     time.Now,
		logger:  logger.With("component", "media_storage"),
	}, nil
}

// ObjectKey returns a fresh storage key for a file of the given media kind,
// e.g. contents/image/2026/03/14/<uuid>.png.
func ObjectKey(kind, filename string, at time.Time) string {
	ext := strings.ToLower(filepath.Ext(filename))
	return fmt.Sprintf("contents/%s/%04d/%02d/%02d/%s%s",
		kind, at.Year(), int(at.Month()), at.Day(), uuid.New(), ext)
}

// Put uploads body under a new key and returns that key.
func (s *S3Storage) Put(ctx context.Context, kind, filename, contentType string, body io.Reader, size int64) (string, error) {
	key := ObjectKey(kind, filename, s.now().UTC())

	in := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   body,
	}
	if size >= 0 {
		in.ContentLength = aws.Int64(size)
	}
	if contentType != "" {
		in.ContentType = aws.String(contentType)
	}

	if _, err := putObject(s.client, ctx, in); err != nil {
		return "", fmt.Errorf("put object %s: %w", key, err)
	}
	s.logger.Debug(ctx, "media stored", "key", key, "size", size)
	return key, nil
}

// PresignGet returns a URL that downloads key for PresignExpiry.
func (s *S3Storage) PresignGet(ctx context.Context, key string) (string, error) {
	req, err := presignGetObject(s.presign, ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(PresignExpiry))
	if err != nil {
		return "", fmt.Errorf("presign get %s: %w", key, err)
	}
	return req.URL, nil
}

// Delete removes key from the bucket. Removing a missing key is not an error.
func (s *S3Storage) Delete(ctx context.Context, key string) error {
	_, err := deleteObject(s.client, ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("delete object %s: %w", key, err)
	}
	s.logger.Debug(ctx, "media deleted", "key", key)
	return nil
}
