package storage

import (
	"errors"
	"fmt"
)

// ErrNotFound matches any NotFoundError via errors.Is.
var ErrNotFound = errors.New("artifact does not exist")

// NotFoundError reports a read of a key that was never written.
// Whether absence is fatal is the caller's call.
type NotFoundError struct {
	Key    string
	Bucket string // empty for the file backend
}

func (e *NotFoundError) Error() string {
	if e.Bucket != "" {
		return fmt.Sprintf("key named %s in bucket %s does not exist", e.Key, e.Bucket)
	}
	return fmt.Sprintf("artifact %s does not exist", e.Key)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// ConfigError reports an unresolvable or invalid storage setting.
// Raised at factory-resolution time and not recoverable locally.
type ConfigError struct {
	msg string
}

func (e *ConfigError) Error() string {
	return e.msg
}

func newConfigError(format string, args ...interface{}) *ConfigError {
	return &ConfigError{msg: fmt.Sprintf(format, args...)}
}
