package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// FileBackend reads and writes artifacts on the local file system
// under a root prefix.
type FileBackend struct {
	prefix string
}

var _ Backend = (*FileBackend)(nil)

// NewFileBackend returns a backend rooted at the given prefix. The
// prefix directory is created on first write, not up front.
func NewFileBackend(prefix string) *FileBackend {
	return &FileBackend{prefix: prefix}
}

func (b *FileBackend) GetFilename(workflowID, stepID string, runDate time.Time) string {
	return filepath.Join(b.prefix, workflowID, stepID, FormatRunDate(runDate))
}

func (b *FileBackend) GetPath(workflowID, stepID string) string {
	return filepath.Join(b.prefix, workflowID, stepID)
}

func (b *FileBackend) Read(ctx context.Context, workflowID, stepID string, runDate time.Time) ([]byte, error) {
	filename := b.GetFilename(workflowID, stepID, runDate)

	data, err := os.ReadFile(filename)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, &NotFoundError{Key: filename}
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", filename, err)
	}
	return data, nil
}

func (b *FileBackend) GetReadStream(ctx context.Context, workflowID, stepID string, runDate time.Time) (io.ReadSeekCloser, error) {
	filename := b.GetFilename(workflowID, stepID, runDate)

	f, err := os.Open(filename)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, &NotFoundError{Key: filename}
	}
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", filename, err)
	}
	return f, nil
}

// Write overwrites the artifact in full. A write that fails midway
// leaves a truncated or missing file; there is no partial-write
// recovery at this layer. contentType has no meaning on the file
// system and is ignored.
func (b *FileBackend) Write(ctx context.Context, workflowID, stepID string, runDate time.Time, data []byte, contentType string) error {
	filename := b.GetFilename(workflowID, stepID, runDate)

	if err := os.MkdirAll(filepath.Dir(filename), 0o755); err != nil {
		return fmt.Errorf("ensuring directory for %s: %w", filename, err)
	}
	if err := os.WriteFile(filename, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", filename, err)
	}
	return nil
}

func (b *FileBackend) WriteFromStream(ctx context.Context, workflowID, stepID string, runDate time.Time, stream io.Reader, contentType string) error {
	data, err := io.ReadAll(stream)
	if err != nil {
		return fmt.Errorf("draining input stream: %w", err)
	}
	return b.Write(ctx, workflowID, stepID, runDate, data, contentType)
}

// ListFilenamesInPath lists the direct entries of the directory, one
// level deep, returning plain file names.
func (b *FileBackend) ListFilenamesInPath(ctx context.Context, path string) ([]string, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", path, err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		names = append(names, entry.Name())
	}
	return names, nil
}

func (b *FileBackend) ListFilenamesInTask(ctx context.Context, workflowID, stepID string) ([]string, error) {
	return b.ListFilenamesInPath(ctx, b.GetPath(workflowID, stepID))
}
