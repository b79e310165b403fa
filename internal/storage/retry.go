package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/fileflow/fileflow/pkg/logger"
)

// RetryConfig tunes the retry decorator.
type RetryConfig struct {
	// MaxRetries is the number of retries after the first attempt.
	MaxRetries uint64
	// InitialInterval seeds the exponential backoff. Zero keeps the
	// backoff library's default.
	InitialInterval time.Duration
}

// DefaultRetryConfig retries transport failures a handful of times
// with sub-second initial backoff.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:      4,
		InitialInterval: 500 * time.Millisecond,
	}
}

// WithRetry wraps a backend with exponential backoff on transport
// failures. The backends themselves stay retry-free; this is the
// surrounding resilience layer for callers that want one. Absent
// artifacts and configuration errors are permanent and never retried.
// WriteFromStream buffers the stream up front so a retried attempt
// never re-reads a consumed stream.
func WithRetry(next Backend, cfg RetryConfig) Backend {
	return &retryBackend{next: next, cfg: cfg}
}

type retryBackend struct {
	next Backend
	cfg  RetryConfig
}

var _ Backend = (*retryBackend)(nil)

func (b *retryBackend) GetFilename(workflowID, stepID string, runDate time.Time) string {
	return b.next.GetFilename(workflowID, stepID, runDate)
}

func (b *retryBackend) GetPath(workflowID, stepID string) string {
	return b.next.GetPath(workflowID, stepID)
}

func (b *retryBackend) Read(ctx context.Context, workflowID, stepID string, runDate time.Time) ([]byte, error) {
	var data []byte
	err := b.retry(ctx, "read", func() error {
		var err error
		data, err = b.next.Read(ctx, workflowID, stepID, runDate)
		return err
	})
	return data, err
}

func (b *retryBackend) GetReadStream(ctx context.Context, workflowID, stepID string, runDate time.Time) (io.ReadSeekCloser, error) {
	var stream io.ReadSeekCloser
	err := b.retry(ctx, "read stream", func() error {
		var err error
		stream, err = b.next.GetReadStream(ctx, workflowID, stepID, runDate)
		return err
	})
	return stream, err
}

func (b *retryBackend) Write(ctx context.Context, workflowID, stepID string, runDate time.Time, data []byte, contentType string) error {
	return b.retry(ctx, "write", func() error {
		return b.next.Write(ctx, workflowID, stepID, runDate, data, contentType)
	})
}

func (b *retryBackend) WriteFromStream(ctx context.Context, workflowID, stepID string, runDate time.Time, stream io.Reader, contentType string) error {
	data, err := io.ReadAll(stream)
	if err != nil {
		return fmt.Errorf("draining input stream: %w", err)
	}
	return b.Write(ctx, workflowID, stepID, runDate, data, contentType)
}

func (b *retryBackend) ListFilenamesInPath(ctx context.Context, path string) ([]string, error) {
	var names []string
	err := b.retry(ctx, "list", func() error {
		var err error
		names, err = b.next.ListFilenamesInPath(ctx, path)
		return err
	})
	return names, err
}

func (b *retryBackend) ListFilenamesInTask(ctx context.Context, workflowID, stepID string) ([]string, error) {
	return b.ListFilenamesInPath(ctx, b.GetPath(workflowID, stepID))
}

func (b *retryBackend) retry(ctx context.Context, op string, fn func() error) error {
	exp := backoff.NewExponentialBackOff()
	if b.cfg.InitialInterval > 0 {
		exp.InitialInterval = b.cfg.InitialInterval
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(exp, b.cfg.MaxRetries), ctx)

	return backoff.RetryNotify(func() error {
		err := fn()
		if err == nil {
			return nil
		}
		if isPermanent(err) {
			return backoff.Permanent(err)
		}
		return err
	}, policy, func(err error, wait time.Duration) {
		logger.Log.Warn().
			Err(err).
			Str("op", op).
			Dur("wait", wait).
			Msg("storage operation failed, retrying")
	})
}

func isPermanent(err error) bool {
	if errors.Is(err, ErrNotFound) {
		return true
	}
	var cfgErr *ConfigError
	return errors.As(err, &cfgErr)
}
