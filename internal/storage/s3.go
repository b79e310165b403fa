package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/fileflow/fileflow/pkg/logger"
)

const (
	s3Scheme = "s3://"

	// defaultContentType is the fallback for writes that carry no
	// advisory content type.
	defaultContentType = "application/octet-stream"
)

// S3Config carries the connection settings for the S3 backend. The
// endpoint may point at any S3-compatible service.
type S3Config struct {
	Endpoint        string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	UseSSL          bool
}

// S3Backend reads and writes artifacts as objects in a single bucket.
type S3Backend struct {
	client *minio.Client
	bucket string
}

var _ Backend = (*S3Backend)(nil)

// NewS3Backend authenticates against the configured bucket. The bucket
// must already exist and be reachable; construction fails otherwise.
func NewS3Backend(ctx context.Context, cfg S3Config) (*S3Backend, error) {
	if cfg.Endpoint == "" {
		return nil, newConfigError("s3 endpoint is not set")
	}
	if cfg.AccessKeyID == "" || cfg.SecretAccessKey == "" {
		return nil, newConfigError("s3 credentials are not set")
	}
	if cfg.Bucket == "" {
		return nil, newConfigError("s3 bucket name is not set")
	}

	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
		Region: region,
	})
	if err != nil {
		return nil, fmt.Errorf("initializing s3 client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("checking bucket %s: %w", cfg.Bucket, err)
	}
	if !exists {
		return nil, fmt.Errorf("bucket %s does not exist", cfg.Bucket)
	}

	return &S3Backend{client: client, bucket: cfg.Bucket}, nil
}

func (b *S3Backend) GetFilename(workflowID, stepID string, runDate time.Time) string {
	return s3Scheme + b.bucket + "/" + DeriveKey(workflowID, stepID, runDate)
}

func (b *S3Backend) GetPath(workflowID, stepID string) string {
	return s3Scheme + b.bucket + "/" + DeriveContainerKey(workflowID, stepID)
}

func (b *S3Backend) Read(ctx context.Context, workflowID, stepID string, runDate time.Time) ([]byte, error) {
	key := DeriveKey(workflowID, stepID, runDate)

	obj, err := b.client.GetObject(ctx, b.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("getting %s%s/%s: %w", s3Scheme, b.bucket, key, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		if isNoSuchKey(err) {
			return nil, &NotFoundError{Key: key, Bucket: b.bucket}
		}
		return nil, fmt.Errorf("getting %s%s/%s: %w", s3Scheme, b.bucket, key, err)
	}
	return data, nil
}

// GetReadStream materializes the object into a local temporary file,
// fully downloaded and rewound to offset 0. Closing the stream removes
// the temporary file.
func (b *S3Backend) GetReadStream(ctx context.Context, workflowID, stepID string, runDate time.Time) (io.ReadSeekCloser, error) {
	key := DeriveKey(workflowID, stepID, runDate)

	obj, err := b.client.GetObject(ctx, b.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("getting %s%s/%s: %w", s3Scheme, b.bucket, key, err)
	}
	defer obj.Close()

	tmp, err := os.CreateTemp("", "fileflow-*")
	if err != nil {
		return nil, fmt.Errorf("creating temp buffer: %w", err)
	}

	if _, err := io.Copy(tmp, obj); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		if isNoSuchKey(err) {
			return nil, &NotFoundError{Key: key, Bucket: b.bucket}
		}
		return nil, fmt.Errorf("downloading %s%s/%s: %w", s3Scheme, b.bucket, key, err)
	}

	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return nil, fmt.Errorf("rewinding temp buffer: %w", err)
	}

	return &tempFileStream{File: tmp}, nil
}

// Write uploads the full payload as a single put. Multipart upload is
// disabled so a write is atomic at the object level.
func (b *S3Backend) Write(ctx context.Context, workflowID, stepID string, runDate time.Time, data []byte, contentType string) error {
	key := DeriveKey(workflowID, stepID, runDate)

	if contentType == "" {
		contentType = defaultContentType
	}

	opts := minio.PutObjectOptions{
		ContentType:      contentType,
		UserMetadata:     map[string]string{"x-amz-acl": "private"},
		DisableMultipart: true,
	}

	_, err := b.client.PutObject(ctx, b.bucket, key, bytes.NewReader(data), int64(len(data)), opts)
	if err != nil {
		return fmt.Errorf("putting %s%s/%s: %w", s3Scheme, b.bucket, key, err)
	}

	logger.Log.Debug().
		Str("bucket", b.bucket).
		Str("key", key).
		Int("bytes", len(data)).
		Msg("uploaded artifact")
	return nil
}

// WriteFromStream buffers the entire stream in memory before putting.
// The medium wants a known length for a single-shot upload, so there
// is no chunked path here.
func (b *S3Backend) WriteFromStream(ctx context.Context, workflowID, stepID string, runDate time.Time, stream io.Reader, contentType string) error {
	data, err := io.ReadAll(stream)
	if err != nil {
		return fmt.Errorf("draining input stream: %w", err)
	}
	return b.Write(ctx, workflowID, stepID, runDate, data, contentType)
}

// ListFilenamesInPath takes the full s3:// locator, recovers the key
// prefix, and lists every key under it. Listing is recursive: keys
// nested below the container come back with their embedded separators
// intact. The three-level workflow/step/date layout keeps artifacts
// one level deep in practice.
func (b *S3Backend) ListFilenamesInPath(ctx context.Context, path string) ([]string, error) {
	prefix := keyPrefixFromLocator(path, b.bucket)

	var names []string
	for obj := range b.client.ListObjects(ctx, b.bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("listing %s%s/%s: %w", s3Scheme, b.bucket, prefix, obj.Err)
		}
		if obj.Key == "" {
			continue
		}
		names = append(names, strings.TrimPrefix(obj.Key, prefix))
	}
	return names, nil
}

func (b *S3Backend) ListFilenamesInTask(ctx context.Context, workflowID, stepID string) ([]string, error) {
	return b.ListFilenamesInPath(ctx, b.GetPath(workflowID, stepID))
}

// keyPrefixFromLocator strips the scheme and bucket from a full
// locator and normalizes the remainder to end with exactly one
// separator, the form the listing API wants.
func keyPrefixFromLocator(path, bucket string) string {
	prefix := strings.TrimPrefix(path, s3Scheme+bucket+"/")
	return strings.TrimRight(prefix, "/") + "/"
}

func isNoSuchKey(err error) bool {
	resp := minio.ToErrorResponse(err)
	return resp.Code == "NoSuchKey"
}

// tempFileStream deletes its backing file on Close.
type tempFileStream struct {
	*os.File
}

func (s *tempFileStream) Close() error {
	err := s.File.Close()
	if rmErr := os.Remove(s.File.Name()); err == nil {
		err = rmErr
	}
	return err
}
