// Package storage provides intermediate artifact storage for workflow
// tasks over pluggable backends.
//
// Every artifact is addressed by a (workflow, step, run date) triple.
// The triple derives a canonical key, {workflow}/{step}/{YYYY-MM-DD},
// and re-running the same step on the same date overwrites the
// previous artifact at that key. Backends are not shared across task
// executions; isolation between concurrent tasks comes from the key
// space, not from locking.
package storage

import (
	"context"
	"io"
	"time"
)

// Backend is the capability contract shared by all storage media.
// Implementations key everything off the derived key string and must
// not attach meaning to workflow or step beyond path construction.
type Backend interface {
	// GetFilename returns the locator of one task artifact. Pure given
	// the backend configuration; does not touch the medium.
	GetFilename(workflowID, stepID string, runDate time.Time) string

	// GetPath returns the container-level locator holding all of a
	// step's dated artifacts.
	GetPath(workflowID, stepID string) string

	// Read returns the full artifact payload. Returns a NotFoundError
	// when nothing was written at the derived key.
	Read(ctx context.Context, workflowID, stepID string, runDate time.Time) ([]byte, error)

	// GetReadStream returns a seekable stream over the artifact,
	// positioned at offset 0. The caller owns the stream and must
	// Close it. Fails with NotFoundError under the same condition as
	// Read.
	GetReadStream(ctx context.Context, workflowID, stepID string, runDate time.Time) (io.ReadSeekCloser, error)

	// Write stores the payload at the derived key, creating any
	// containing structure and overwriting any previous artifact.
	// contentType is advisory metadata; backends may ignore it.
	Write(ctx context.Context, workflowID, stepID string, runDate time.Time, data []byte, contentType string) error

	// WriteFromStream consumes the entire stream and stores it at the
	// derived key with the same semantics as Write.
	WriteFromStream(ctx context.Context, workflowID, stepID string, runDate time.Time, stream io.Reader, contentType string) error

	// ListFilenamesInPath returns the names stored under a container
	// locator, with the locator prefix stripped off.
	ListFilenamesInPath(ctx context.Context, path string) ([]string, error)

	// ListFilenamesInTask returns the names stored under a step's
	// container.
	ListFilenamesInTask(ctx context.Context, workflowID, stepID string) ([]string, error)
}
