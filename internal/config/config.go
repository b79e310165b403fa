// Package config resolves fileflow settings from the environment.
//
// All keys live under the FILEFLOW_ prefix (FILEFLOW_STORAGE_TYPE,
// FILEFLOW_AWS_BUCKET_NAME, ...). A .env file is honored when present.
// The two AWS credential keys may also be supplied through the plain
// AWS_ACCESS_KEY_ID / AWS_SECRET_ACCESS_KEY variables; the FILEFLOW_
// variants take precedence.
package config

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const envPrefix = "FILEFLOW"

// Settings is the flat configuration contract consumed by the storage
// factory and the entry points. It is an explicit value threaded
// through call sites, not a shared singleton.
type Settings struct {
	Environment   string
	StorageType   string
	StoragePrefix string

	AWSBucketName      string
	AWSAccessKeyID     string
	AWSSecretAccessKey string
	AWSEndpoint        string
	AWSRegion          string
	AWSUseSSL          bool

	LogLevel   string
	ServerPort string
}

// Load reads settings from the environment, applying defaults for
// anything unset. Each call re-reads the environment.
func Load() Settings {
	// Load .env if it exists; missing file is fine.
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()

	v.SetDefault("ENVIRONMENT", "production")
	v.SetDefault("STORAGE_TYPE", "file")
	v.SetDefault("STORAGE_PREFIX", "storage")
	v.SetDefault("AWS_BUCKET_NAME", "")
	v.SetDefault("AWS_ENDPOINT", "s3.amazonaws.com")
	v.SetDefault("AWS_REGION", "us-east-1")
	v.SetDefault("AWS_USE_SSL", true)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("SERVER_PORT", "8080")

	return Settings{
		Environment:        v.GetString("ENVIRONMENT"),
		StorageType:        v.GetString("STORAGE_TYPE"),
		StoragePrefix:      v.GetString("STORAGE_PREFIX"),
		AWSBucketName:      v.GetString("AWS_BUCKET_NAME"),
		AWSAccessKeyID:     credential(v, "AWS_ACCESS_KEY_ID"),
		AWSSecretAccessKey: credential(v, "AWS_SECRET_ACCESS_KEY"),
		AWSEndpoint:        v.GetString("AWS_ENDPOINT"),
		AWSRegion:          v.GetString("AWS_REGION"),
		AWSUseSSL:          v.GetBool("AWS_USE_SSL"),
		LogLevel:           v.GetString("LOG_LEVEL"),
		ServerPort:         v.GetString("SERVER_PORT"),
	}
}

// credential resolves an AWS credential key. The FILEFLOW_ prefixed
// variable wins; the bare AWS_ variable is the fallback so standard
// AWS tooling environments keep working.
func credential(v *viper.Viper, key string) string {
	if value := v.GetString(key); value != "" {
		return value
	}
	return os.Getenv(key)
}
