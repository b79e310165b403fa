package task

import (
	"bytes"
	"context"
	"errors"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fileflow/fileflow/internal/storage"
	"github.com/fileflow/fileflow/internal/tabular"
)

var testIdentity = Identity{
	WorkflowID: "etl",
	StepID:     "transform",
	RunDate:    time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
}

func fileRunner(t *testing.T, deps map[string]string) (*Runner, *storage.FileBackend) {
	t.Helper()
	backend := storage.NewFileBackend(t.TempDir())
	return NewRunner(testIdentity, deps, WithBackend(backend)), backend
}

func TestInputFilenameResolvesDependency(t *testing.T) {
	ctx := context.Background()
	r, backend := fileRunner(t, map[string]string{"raw": "extract"})

	got, err := r.InputFilename(ctx, "raw")
	require.NoError(t, err)
	assert.Equal(t, backend.GetFilename("etl", "extract", testIdentity.RunDate), got)
}

func TestInputFilenameUnknownDependency(t *testing.T) {
	ctx := context.Background()
	r, _ := fileRunner(t, map[string]string{"raw": "extract"})

	_, err := r.InputFilename(ctx, "missing")
	require.Error(t, err)

	var depErr *DependencyError
	require.ErrorAs(t, err, &depErr)
	assert.Equal(t, "missing", depErr.Name)
}

func TestInputFilenameWorkflowOverride(t *testing.T) {
	ctx := context.Background()
	r, backend := fileRunner(t, map[string]string{"raw": "extract"})

	got, err := r.InputFilename(ctx, "raw", "other-workflow")
	require.NoError(t, err)
	assert.Equal(t, backend.GetFilename("other-workflow", "extract", testIdentity.RunDate), got)
}

func TestOutputFilenameUsesOwnIdentity(t *testing.T) {
	ctx := context.Background()
	r, backend := fileRunner(t, nil)

	got, err := r.OutputFilename(ctx)
	require.NoError(t, err)
	assert.Equal(t, backend.GetFilename("etl", "transform", testIdentity.RunDate), got)
	assert.Equal(t, filepath.Base(got), "2024-03-01")
}

func TestWriteOutputThenReadUpstream(t *testing.T) {
	ctx := context.Background()
	backend := storage.NewFileBackend(t.TempDir())

	producer := NewRunner(Identity{
		WorkflowID: "etl",
		StepID:     "extract",
		RunDate:    testIdentity.RunDate,
	}, nil, WithBackend(backend))
	require.NoError(t, producer.WriteOutput(ctx, []byte("hello"), ""))

	consumer := NewRunner(testIdentity, map[string]string{"raw": "extract"}, WithBackend(backend))
	text, err := consumer.ReadUpstream(ctx, "raw")
	require.NoError(t, err)
	assert.Equal(t, "hello", text)
}

func TestReadUpstreamMissingArtifact(t *testing.T) {
	ctx := context.Background()
	r, _ := fileRunner(t, map[string]string{"raw": "extract"})

	_, err := r.ReadUpstream(ctx, "raw")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestUpstreamStreamIsRewound(t *testing.T) {
	ctx := context.Background()
	stub := &stubBackend{data: []byte("stream me")}
	r := NewRunner(testIdentity, map[string]string{"raw": "extract"}, WithBackend(stub))

	stream, err := r.UpstreamStream(ctx, "raw")
	require.NoError(t, err)
	defer stream.Close()

	// The stub hands back a stream parked at the end; the runner must
	// rewind it before returning.
	data, err := io.ReadAll(stream)
	require.NoError(t, err)
	assert.Equal(t, "stream me", string(data))
}

func TestJSONRoundTrip(t *testing.T) {
	ctx := context.Background()
	backend := storage.NewFileBackend(t.TempDir())

	producer := NewRunner(Identity{
		WorkflowID: "etl",
		StepID:     "extract",
		RunDate:    testIdentity.RunDate,
	}, nil, WithBackend(backend))
	require.NoError(t, producer.WriteJSON(ctx, map[string]int{"rows": 42}))

	consumer := NewRunner(testIdentity, map[string]string{"raw": "extract"}, WithBackend(backend))
	var decoded map[string]int
	require.NoError(t, consumer.ReadUpstreamJSON(ctx, "raw", &decoded))
	assert.Equal(t, 42, decoded["rows"])
}

func TestWriteTimestamp(t *testing.T) {
	ctx := context.Background()
	backend := storage.NewFileBackend(t.TempDir())

	r := NewRunner(testIdentity, nil, WithBackend(backend))
	require.NoError(t, r.WriteTimestamp(ctx))

	reader := NewRunner(Identity{
		WorkflowID: "etl",
		StepID:     "downstream",
		RunDate:    testIdentity.RunDate,
	}, map[string]string{"marker": "transform"}, WithBackend(backend))

	var decoded map[string]string
	require.NoError(t, reader.ReadUpstreamJSON(ctx, "marker", &decoded))

	_, err := time.Parse(time.RFC3339, decoded["RUN"])
	assert.NoError(t, err)
}

func TestTableRoundTrip(t *testing.T) {
	ctx := context.Background()
	backend := storage.NewFileBackend(t.TempDir())

	value := "alpha"
	table := &tabular.Table{
		Columns: []string{"name", "note"},
		Rows:    [][]*string{{&value, nil}},
	}

	producer := NewRunner(Identity{
		WorkflowID: "etl",
		StepID:     "extract",
		RunDate:    testIdentity.RunDate,
	}, nil, WithBackend(backend))
	require.NoError(t, producer.WriteTable(ctx, table))

	consumer := NewRunner(testIdentity, map[string]string{"raw": "extract"}, WithBackend(backend))
	back, err := consumer.ReadUpstreamTable(ctx, "raw")
	require.NoError(t, err)

	rows, cols := back.Shape()
	assert.Equal(t, 1, rows)
	assert.Equal(t, 2, cols)

	v, ok := back.Cell(0, 0)
	assert.True(t, ok)
	assert.Equal(t, "alpha", v)

	_, ok = back.Cell(0, 1)
	assert.False(t, ok, "null position must survive the round trip")
}

func TestBackendIsLazilyConstructed(t *testing.T) {
	ctx := context.Background()
	calls := 0
	backend := storage.NewFileBackend(t.TempDir())

	r := NewRunner(testIdentity, nil, WithBackendFactory(func(ctx context.Context) (storage.Backend, error) {
		calls++
		return backend, nil
	}))
	assert.Equal(t, 0, calls, "construction must not touch the factory")

	require.NoError(t, r.WriteOutput(ctx, []byte("x"), ""))
	require.NoError(t, r.WriteOutput(ctx, []byte("y"), ""))
	assert.Equal(t, 1, calls, "backend is built once and reused")
}

func TestBackendFactoryErrorPropagates(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("no such bucket")

	r := NewRunner(testIdentity, nil, WithBackendFactory(func(ctx context.Context) (storage.Backend, error) {
		return nil, boom
	}))

	err := r.WriteOutput(ctx, []byte("x"), "")
	assert.ErrorIs(t, err, boom)
}

// stubBackend records writes and serves reads from a fixed payload.
// Its read stream comes back positioned at the end on purpose.
type stubBackend struct {
	data        []byte
	contentType string
}

var _ storage.Backend = (*stubBackend)(nil)

func (s *stubBackend) GetFilename(workflowID, stepID string, runDate time.Time) string {
	return storage.DeriveKey(workflowID, stepID, runDate)
}

func (s *stubBackend) GetPath(workflowID, stepID string) string {
	return storage.DeriveContainerKey(workflowID, stepID)
}

func (s *stubBackend) Read(ctx context.Context, workflowID, stepID string, runDate time.Time) ([]byte, error) {
	return s.data, nil
}

func (s *stubBackend) GetReadStream(ctx context.Context, workflowID, stepID string, runDate time.Time) (io.ReadSeekCloser, error) {
	reader := bytes.NewReader(s.data)
	if _, err := reader.Seek(0, io.SeekEnd); err != nil {
		return nil, err
	}
	return &nopCloseSeeker{Reader: reader}, nil
}

func (s *stubBackend) Write(ctx context.Context, workflowID, stepID string, runDate time.Time, data []byte, contentType string) error {
	s.data = data
	s.contentType = contentType
	return nil
}

func (s *stubBackend) WriteFromStream(ctx context.Context, workflowID, stepID string, runDate time.Time, stream io.Reader, contentType string) error {
	data, err := io.ReadAll(stream)
	if err != nil {
		return err
	}
	return s.Write(ctx, workflowID, stepID, runDate, data, contentType)
}

func (s *stubBackend) ListFilenamesInPath(ctx context.Context, path string) ([]string, error) {
	return nil, nil
}

func (s *stubBackend) ListFilenamesInTask(ctx context.Context, workflowID, stepID string) ([]string, error) {
	return nil, nil
}

type nopCloseSeeker struct {
	*bytes.Reader
}

func (n *nopCloseSeeker) Close() error { return nil }
