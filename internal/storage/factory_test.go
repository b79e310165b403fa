package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fileflow/fileflow/internal/config"
)

func TestEffectiveBucketName(t *testing.T) {
	tests := []struct {
		environment string
		want        string
	}{
		{"production", "artifacts"},
		{"qa", "artifactsqa"},
		{"development", "artifactsdevelopment"},
		{"test", "artifactstest"},
	}

	for _, tt := range tests {
		t.Run(tt.environment, func(t *testing.T) {
			got, err := EffectiveBucketName("artifacts", tt.environment)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEffectiveBucketNameInvalidEnvironment(t *testing.T) {
	_, err := EffectiveBucketName("artifacts", "staging")
	require.Error(t, err)

	var cfgErr *ConfigError
	assert.ErrorAs(t, err, &cfgErr)
	assert.Contains(t, err.Error(), "staging")
}

func TestEffectiveBucketNameEmptyBucket(t *testing.T) {
	_, err := EffectiveBucketName("", "production")
	var cfgErr *ConfigError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestResolveFileBackend(t *testing.T) {
	backend, err := Resolve(context.Background(), Options{
		Type:   TypeFile,
		Prefix: "/data",
	}, config.Settings{})
	require.NoError(t, err)

	fb, ok := backend.(*FileBackend)
	require.True(t, ok)
	assert.Equal(t, "/data/etl/extract/2024-03-01", fb.GetFilename("etl", "extract", testRunDate))
}

func TestResolveFallsBackToSettings(t *testing.T) {
	settings := config.Settings{
		StorageType:   "file",
		StoragePrefix: "/var/lib/fileflow",
	}

	backend, err := Resolve(context.Background(), Options{}, settings)
	require.NoError(t, err)
	assert.IsType(t, &FileBackend{}, backend)
}

func TestResolveOptionsWinOverSettings(t *testing.T) {
	settings := config.Settings{
		StorageType:   "s3",
		StoragePrefix: "/elsewhere",
	}

	backend, err := Resolve(context.Background(), Options{
		Type:   TypeFile,
		Prefix: "/data",
	}, settings)
	require.NoError(t, err)

	fb, ok := backend.(*FileBackend)
	require.True(t, ok)
	assert.Equal(t, "/data/etl/extract", fb.GetPath("etl", "extract"))
}

func TestResolveUnknownStorageType(t *testing.T) {
	_, err := Resolve(context.Background(), Options{Type: "tape"}, config.Settings{})
	require.Error(t, err)

	var cfgErr *ConfigError
	assert.ErrorAs(t, err, &cfgErr)
	assert.Contains(t, err.Error(), "tape")
}

func TestResolveMissingPrefix(t *testing.T) {
	_, err := Resolve(context.Background(), Options{Type: TypeFile}, config.Settings{})
	var cfgErr *ConfigError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestResolveS3InvalidEnvironment(t *testing.T) {
	_, err := Resolve(context.Background(), Options{
		Type:        TypeS3,
		Environment: "sandbox",
		Bucket:      "artifacts",
	}, config.Settings{})
	require.Error(t, err)

	var cfgErr *ConfigError
	assert.ErrorAs(t, err, &cfgErr)
}
