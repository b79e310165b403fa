// Package task provides the task-side client for intermediate
// storage. Business logic holds a Runner, reads its named upstream
// artifacts, and writes a single output artifact under its own
// identity.
package task

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/fileflow/fileflow/internal/config"
	"github.com/fileflow/fileflow/internal/storage"
	"github.com/fileflow/fileflow/internal/tabular"
)

// Identity pins a runner to one task execution. Supplied by the
// orchestration framework and immutable for the task's lifetime.
type Identity struct {
	WorkflowID string
	StepID     string
	RunDate    time.Time
}

// DependencyError reports a dependency name missing from the
// dependency map. It indicates a workflow wiring bug and is not
// recovered.
type DependencyError struct {
	Name string
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("data dependency %q is not declared for this task", e.Name)
}

// BackendFactory builds the storage backend on first use.
type BackendFactory func(ctx context.Context) (storage.Backend, error)

// Runner resolves a task's default storage keys and delegates I/O to
// the active backend. The backend attaches lazily on first storage
// access, so runners stay cheap to construct and copy for tasks that
// never touch storage.
type Runner struct {
	identity     Identity
	dependencies map[string]string

	mu      sync.Mutex
	backend storage.Backend
	factory BackendFactory
}

// Option configures a Runner at construction.
type Option func(*Runner)

// WithBackend injects an already-constructed backend, bypassing lazy
// resolution. Used by tests and by callers that manage backend
// lifetime themselves.
func WithBackend(b storage.Backend) Option {
	return func(r *Runner) { r.backend = b }
}

// WithBackendFactory overrides how the lazy backend is built.
func WithBackendFactory(f BackendFactory) Option {
	return func(r *Runner) { r.factory = f }
}

// NewRunner builds a runner for one task execution. dependencies maps
// logical dependency names to the step IDs that produce them; it is
// read-only for the lifetime of the task.
func NewRunner(identity Identity, dependencies map[string]string, opts ...Option) *Runner {
	r := &Runner{
		identity:     identity,
		dependencies: dependencies,
		factory: func(ctx context.Context) (storage.Backend, error) {
			return storage.Resolve(ctx, storage.Options{}, config.Load())
		},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Identity returns the task identity this runner is bound to.
func (r *Runner) Identity() Identity {
	return r.identity
}

func (r *Runner) storageBackend(ctx context.Context) (storage.Backend, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.backend == nil {
		b, err := r.factory(ctx)
		if err != nil {
			return nil, err
		}
		r.backend = b
	}
	return r.backend, nil
}

func (r *Runner) dependencyStep(name string) (string, error) {
	stepID, ok := r.dependencies[name]
	if !ok {
		return "", &DependencyError{Name: name}
	}
	return stepID, nil
}

// inputWorkflow picks the workflow to read an input from: the
// optional override when given, this task's own workflow otherwise.
func (r *Runner) inputWorkflow(override []string) string {
	if len(override) > 0 && override[0] != "" {
		return override[0]
	}
	return r.identity.WorkflowID
}

// InputFilename returns the locator of a named upstream artifact.
func (r *Runner) InputFilename(ctx context.Context, dependency string, workflowID ...string) (string, error) {
	stepID, err := r.dependencyStep(dependency)
	if err != nil {
		return "", err
	}
	backend, err := r.storageBackend(ctx)
	if err != nil {
		return "", err
	}
	return backend.GetFilename(r.inputWorkflow(workflowID), stepID, r.identity.RunDate), nil
}

// OutputFilename returns the locator of this task's own artifact.
func (r *Runner) OutputFilename(ctx context.Context) (string, error) {
	backend, err := r.storageBackend(ctx)
	if err != nil {
		return "", err
	}
	return backend.GetFilename(r.identity.WorkflowID, r.identity.StepID, r.identity.RunDate), nil
}

// ReadUpstream reads a named upstream artifact as UTF-8 text.
func (r *Runner) ReadUpstream(ctx context.Context, dependency string, workflowID ...string) (string, error) {
	stepID, err := r.dependencyStep(dependency)
	if err != nil {
		return "", err
	}
	backend, err := r.storageBackend(ctx)
	if err != nil {
		return "", err
	}
	data, err := backend.Read(ctx, r.inputWorkflow(workflowID), stepID, r.identity.RunDate)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// UpstreamStream opens a named upstream artifact as a stream. The
// stream is rewound to offset 0 regardless of backend behavior; the
// caller must Close it.
func (r *Runner) UpstreamStream(ctx context.Context, dependency string, workflowID ...string) (io.ReadSeekCloser, error) {
	stepID, err := r.dependencyStep(dependency)
	if err != nil {
		return nil, err
	}
	backend, err := r.storageBackend(ctx)
	if err != nil {
		return nil, err
	}
	stream, err := backend.GetReadStream(ctx, r.inputWorkflow(workflowID), stepID, r.identity.RunDate)
	if err != nil {
		return nil, err
	}
	if _, err := stream.Seek(0, io.SeekStart); err != nil {
		stream.Close()
		return nil, fmt.Errorf("rewinding upstream stream: %w", err)
	}
	return stream, nil
}

// WriteOutput stores data under this task's own identity. An empty
// contentType defaults to text/plain.
func (r *Runner) WriteOutput(ctx context.Context, data []byte, contentType string) error {
	if contentType == "" {
		contentType = "text/plain"
	}
	backend, err := r.storageBackend(ctx)
	if err != nil {
		return err
	}
	return backend.Write(ctx, r.identity.WorkflowID, r.identity.StepID, r.identity.RunDate, data, contentType)
}

// WriteOutputFromStream consumes the stream and stores it under this
// task's own identity. An empty contentType defaults to text/plain.
func (r *Runner) WriteOutputFromStream(ctx context.Context, stream io.Reader, contentType string) error {
	if contentType == "" {
		contentType = "text/plain"
	}
	backend, err := r.storageBackend(ctx)
	if err != nil {
		return err
	}
	return backend.WriteFromStream(ctx, r.identity.WorkflowID, r.identity.StepID, r.identity.RunDate, stream, contentType)
}

// ReadUpstreamJSON reads a named upstream artifact and unmarshals it
// into v.
func (r *Runner) ReadUpstreamJSON(ctx context.Context, dependency string, v interface{}, workflowID ...string) error {
	text, err := r.ReadUpstream(ctx, dependency, workflowID...)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(text), v); err != nil {
		return fmt.Errorf("decoding upstream %q: %w", dependency, err)
	}
	return nil
}

// WriteJSON marshals v and stores it as this task's output.
func (r *Runner) WriteJSON(ctx context.Context, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding output: %w", err)
	}
	return r.WriteOutput(ctx, data, "application/json")
}

// WriteTimestamp stores a JSON object holding the current time, a
// marker artifact for steps whose only output is "I ran".
func (r *Runner) WriteTimestamp(ctx context.Context) error {
	return r.WriteJSON(ctx, map[string]string{
		"RUN": time.Now().Format(time.RFC3339),
	})
}

// ReadUpstreamTable reads a named upstream artifact as a table, with
// the format's null normalization applied.
func (r *Runner) ReadUpstreamTable(ctx context.Context, dependency string, workflowID ...string) (*tabular.Table, error) {
	stream, err := r.UpstreamStream(ctx, dependency, workflowID...)
	if err != nil {
		return nil, err
	}
	defer stream.Close()
	return tabular.Read(stream)
}

// WriteTable serializes a table and stores it as this task's output.
func (r *Runner) WriteTable(ctx context.Context, t *tabular.Table) error {
	payload, err := tabular.WriteString(t)
	if err != nil {
		return err
	}
	return r.WriteOutput(ctx, []byte(payload), "text/csv")
}
