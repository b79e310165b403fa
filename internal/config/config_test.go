package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	settings := Load()

	assert.Equal(t, "production", settings.Environment)
	assert.Equal(t, "file", settings.StorageType)
	assert.Equal(t, "storage", settings.StoragePrefix)
	assert.Equal(t, "s3.amazonaws.com", settings.AWSEndpoint)
	assert.True(t, settings.AWSUseSSL)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("FILEFLOW_ENVIRONMENT", "qa")
	t.Setenv("FILEFLOW_STORAGE_TYPE", "s3")
	t.Setenv("FILEFLOW_STORAGE_PREFIX", "/var/lib/fileflow")
	t.Setenv("FILEFLOW_AWS_BUCKET_NAME", "artifacts")

	settings := Load()

	assert.Equal(t, "qa", settings.Environment)
	assert.Equal(t, "s3", settings.StorageType)
	assert.Equal(t, "/var/lib/fileflow", settings.StoragePrefix)
	assert.Equal(t, "artifacts", settings.AWSBucketName)
}

func TestCredentialsFromPrefixedEnv(t *testing.T) {
	t.Setenv("FILEFLOW_AWS_ACCESS_KEY_ID", "prefixed-id")
	t.Setenv("FILEFLOW_AWS_SECRET_ACCESS_KEY", "prefixed-secret")

	settings := Load()

	assert.Equal(t, "prefixed-id", settings.AWSAccessKeyID)
	assert.Equal(t, "prefixed-secret", settings.AWSSecretAccessKey)
}

func TestCredentialsFallBackToBareEnv(t *testing.T) {
	t.Setenv("AWS_ACCESS_KEY_ID", "bare-id")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "bare-secret")

	settings := Load()

	assert.Equal(t, "bare-id", settings.AWSAccessKeyID)
	assert.Equal(t, "bare-secret", settings.AWSSecretAccessKey)
}

func TestPrefixedCredentialWinsOverBare(t *testing.T) {
	t.Setenv("AWS_SECRET_ACCESS_KEY", "bare-secret")
	t.Setenv("FILEFLOW_AWS_SECRET_ACCESS_KEY", "prefixed-secret")

	settings := Load()

	assert.Equal(t, "prefixed-secret", settings.AWSSecretAccessKey)
}
