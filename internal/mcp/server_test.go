package mcp

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spyrelabs/ragstore/internal/chunk"
	ragerrors "github.com/spyrelabs/ragstore/internal/errors"
	"github.com/spyrelabs/ragstore/internal/index"
	"github.com/spyrelabs/ragstore/internal/status"
)

// fakeStore implements index.Store with canned responses.
type fakeStore struct {
	ready    bool
	results  []index.Result
	lastOpts index.SearchOptions
}

func (f *fakeStore) Insert(context.Context, []chunk.Chunk, int) error { return nil }

func (f *fakeStore) Search(_ context.Context, _ string, opts index.SearchOptions) ([]index.Result, error) {
	f.lastOpts = opts
	if !f.ready {
		return nil, ragerrors.NotReady("test_index")
	}
	return f.results, nil
}

func (f *fakeStore) Ready(context.Context) (bool, error) { return f.ready, nil }
func (f *fakeStore) Reset(context.Context) error         { return nil }
func (f *fakeStore) Close() error                        { return nil }

func newTestServer(t *testing.T, store index.Store) *Server {
	t.Helper()
	tracker, err := status.NewTracker(t.TempDir(), nil)
	require.NoError(t, err)
	srv, err := NewServer(store, tracker, nil)
	require.NoError(t, err)
	return srv
}

func TestNewServerRequiresStore(t *testing.T) {
	_, err := NewServer(nil, nil, nil)
	require.Error(t, err)
}

func TestSearchHandlerRequiresQuery(t *testing.T) {
	srv := newTestServer(t, &fakeStore{ready: true})

	_, _, err := srv.searchHandler(context.Background(), nil, SearchInput{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "query parameter is required")
}

func TestSearchHandlerDefaultsToHybrid(t *testing.T) {
	store := &fakeStore{ready: true, results: []index.Result{
		{ChunkID: 42, PageContent: "hello", Filename: "a.md", Score: 0.5},
	}}
	srv := newTestServer(t, store)

	_, output, err := srv.searchHandler(context.Background(), nil, SearchInput{Query: "hello"})
	require.NoError(t, err)
	assert.Equal(t, index.ModeHybrid, store.lastOpts.Mode)
	require.Len(t, output.Results, 1)
	assert.Equal(t, int64(42), output.Results[0].ChunkID)
}

func TestSearchHandlerPassesOptions(t *testing.T) {
	store := &fakeStore{ready: true}
	srv := newTestServer(t, store)

	_, _, err := srv.searchHandler(context.Background(), nil, SearchInput{
		Query: "q", Mode: "sparse", TopK: 3, Language: "en",
	})
	require.NoError(t, err)
	assert.Equal(t, index.ModeSparse, store.lastOpts.Mode)
	assert.Equal(t, 3, store.lastOpts.TopK)
	assert.Equal(t, "en", store.lastOpts.Language)
}

func TestSearchHandlerNotReadyMessage(t *testing.T) {
	srv := newTestServer(t, &fakeStore{ready: false})

	_, _, err := srv.searchHandler(context.Background(), nil, SearchInput{Query: "q"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "run ingestion first")
}

func TestIndexStatusHandler(t *testing.T) {
	srv := newTestServer(t, &fakeStore{ready: true})

	_, output, err := srv.indexStatusHandler(context.Background(), nil, IndexStatusInput{})
	require.NoError(t, err)
	assert.True(t, output.Ready)
}

func TestJobStatusHandler(t *testing.T) {
	tracker, err := status.NewTracker(t.TempDir(), nil)
	require.NoError(t, err)
	require.NoError(t, tracker.InitJob("job-7", []string{"doc-a"}))
	tracker.UpdateJobProgress("job-7", "doc-a", status.DocCompleted, status.JobRunning, "")

	srv, err := NewServer(&fakeStore{ready: true}, tracker, nil)
	require.NoError(t, err)

	_, output, err := srv.jobStatusHandler(context.Background(), nil, JobStatusInput{JobID: "job-7"})
	require.NoError(t, err)
	assert.Equal(t, "job-7", output.JobID)
	assert.Equal(t, "RUNNING", output.Status)
	require.Len(t, output.Documents, 1)
	assert.Equal(t, "COMPLETED", output.Documents[0].Status)
}

func TestJobStatusHandlerUnknownJob(t *testing.T) {
	srv := newTestServer(t, &fakeStore{ready: true})

	_, _, err := srv.jobStatusHandler(context.Background(), nil, JobStatusInput{JobID: "ghost"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}
