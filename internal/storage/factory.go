package storage

import (
	"context"

	"github.com/fileflow/fileflow/internal/config"
)

// Storage type names accepted by Resolve.
const (
	TypeFile = "file"
	TypeS3   = "s3"
)

// Environment names recognized by the bucket isolation rule.
const (
	EnvProduction  = "production"
	EnvQA          = "qa"
	EnvDevelopment = "development"
	EnvTest        = "test"
)

// Options selects and parameterizes a backend. Zero-valued fields are
// filled from settings at resolution time.
type Options struct {
	Type            string
	Prefix          string
	Environment     string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	Endpoint        string
	Region          string
}

// Resolve constructs the backend described by opts, falling back to
// settings for anything unset. No caching: every call may build a
// fresh backend, and S3 construction dials the bucket.
func Resolve(ctx context.Context, opts Options, settings config.Settings) (Backend, error) {
	if opts.Type == "" {
		opts.Type = settings.StorageType
	}
	if opts.Prefix == "" {
		opts.Prefix = settings.StoragePrefix
	}
	if opts.Environment == "" {
		opts.Environment = settings.Environment
	}
	if opts.Bucket == "" {
		opts.Bucket = settings.AWSBucketName
	}
	if opts.AccessKeyID == "" {
		opts.AccessKeyID = settings.AWSAccessKeyID
	}
	if opts.SecretAccessKey == "" {
		opts.SecretAccessKey = settings.AWSSecretAccessKey
	}
	if opts.Endpoint == "" {
		opts.Endpoint = settings.AWSEndpoint
	}
	if opts.Region == "" {
		opts.Region = settings.AWSRegion
	}

	switch opts.Type {
	case TypeFile:
		if opts.Prefix == "" {
			return nil, newConfigError("storage prefix is not set")
		}
		return NewFileBackend(opts.Prefix), nil

	case TypeS3:
		bucket, err := EffectiveBucketName(opts.Bucket, opts.Environment)
		if err != nil {
			return nil, err
		}
		return NewS3Backend(ctx, S3Config{
			Endpoint:        opts.Endpoint,
			Region:          opts.Region,
			AccessKeyID:     opts.AccessKeyID,
			SecretAccessKey: opts.SecretAccessKey,
			Bucket:          bucket,
			UseSSL:          settings.AWSUseSSL,
		})

	default:
		return nil, newConfigError("storage type %q does not exist", opts.Type)
	}
}

// EffectiveBucketName applies the environment isolation rule: the
// production bucket is used as-is, every other recognized environment
// gets its name appended so buckets stay tied to environments.
func EffectiveBucketName(bucket, environment string) (string, error) {
	if bucket == "" {
		return "", newConfigError("bucket name is not set")
	}

	switch environment {
	case EnvProduction:
		return bucket, nil
	case EnvQA, EnvDevelopment, EnvTest:
		return bucket + environment, nil
	default:
		return "", newConfigError("environment %q is not a recognized value", environment)
	}
}
