package status

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTracker(t *testing.T) *Tracker {
	t.Helper()
	tracker, err := NewTracker(t.TempDir(), nil)
	require.NoError(t, err)
	return tracker
}

func TestInitJobCreatesPendingRecord(t *testing.T) {
	tracker := newTestTracker(t)
	require.NoError(t, tracker.InitJob("job-1", []string{"doc-a", "doc-b"}))

	job, err := tracker.ReadJob("job-1")
	require.NoError(t, err)
	assert.Equal(t, "job-1", job.JobID)
	assert.Equal(t, JobPending, job.Status)
	require.Len(t, job.Documents, 2)
	assert.Equal(t, DocPending, job.Documents[0].Status)
	assert.Equal(t, DocPending, job.Documents[1].Status)
	assert.NotEmpty(t, job.LastUpdatedAt)
}

func TestUpdateJobProgress(t *testing.T) {
	tracker := newTestTracker(t)
	require.NoError(t, tracker.InitJob("job-1", []string{"doc-a", "doc-b"}))

	tracker.UpdateJobProgress("job-1", "doc-a", DocCompleted, JobRunning, "")

	job, err := tracker.ReadJob("job-1")
	require.NoError(t, err)
	assert.Equal(t, JobRunning, job.Status)
	assert.Equal(t, DocCompleted, job.Documents[0].Status)
	assert.Equal(t, DocPending, job.Documents[1].Status)
	assert.Empty(t, job.Error)
}

func TestUpdateJobProgressRecordsErrorOnlyWhenFailed(t *testing.T) {
	tracker := newTestTracker(t)
	require.NoError(t, tracker.InitJob("job-1", []string{"doc-a"}))

	// Error supplied but job still running: not recorded.
	tracker.UpdateJobProgress("job-1", "doc-a", DocFailed, JobRunning, "transient")
	job, err := tracker.ReadJob("job-1")
	require.NoError(t, err)
	assert.Empty(t, job.Error)

	tracker.UpdateJobProgress("job-1", "doc-a", DocFailed, JobFailed, "embedder unreachable")
	job, err = tracker.ReadJob("job-1")
	require.NoError(t, err)
	assert.Equal(t, JobFailed, job.Status)
	assert.Equal(t, "embedder unreachable", job.Error)
}

func TestUpdateJobProgressMissingJobIsNoOp(t *testing.T) {
	tracker := newTestTracker(t)

	// Must not panic or create a record.
	tracker.UpdateJobProgress("ghost", "doc-a", DocCompleted, JobRunning, "")

	_, err := tracker.ReadJob("ghost")
	require.Error(t, err)
}

func TestUpdateJobProgressUnknownDocIsLoggedNotFatal(t *testing.T) {
	tracker := newTestTracker(t)
	require.NoError(t, tracker.InitJob("job-1", []string{"doc-a"}))

	tracker.UpdateJobProgress("job-1", "doc-missing", DocCompleted, JobRunning, "")

	// Job-level status still applied.
	job, err := tracker.ReadJob("job-1")
	require.NoError(t, err)
	assert.Equal(t, JobRunning, job.Status)
	assert.Equal(t, DocPending, job.Documents[0].Status)
}

func TestDocMetadataTimingMerge(t *testing.T) {
	tracker := newTestTracker(t)
	require.NoError(t, tracker.InitDocMetadata("doc-a", nil))

	tracker.UpdateDocMetadata("doc-a", map[string]any{
		"timing_in_secs": map[string]any{"embed": 1.2},
	}, "")
	tracker.UpdateDocMetadata("doc-a", map[string]any{
		"timing_in_secs": map[string]any{"write": 0.5},
	}, "")

	record, err := tracker.ReadDocMetadata("doc-a")
	require.NoError(t, err)
	timing, ok := record["timing_in_secs"].(map[string]any)
	require.True(t, ok)
	assert.InDelta(t, 1.2, timing["embed"], 1e-9)
	assert.InDelta(t, 0.5, timing["write"], 1e-9)
}

func TestDocMetadataScalarsOverwrite(t *testing.T) {
	tracker := newTestTracker(t)
	require.NoError(t, tracker.InitDocMetadata("doc-a", map[string]any{"pages": 3}))

	tracker.UpdateDocMetadata("doc-a", map[string]any{"pages": 7, "status": "CHUNKED"}, "")

	record, err := tracker.ReadDocMetadata("doc-a")
	require.NoError(t, err)
	assert.EqualValues(t, 7, record["pages"])
	assert.Equal(t, "CHUNKED", record["status"])
}

func TestDocMetadataErrorImpliesFailed(t *testing.T) {
	tracker := newTestTracker(t)
	require.NoError(t, tracker.InitDocMetadata("doc-a", nil))

	tracker.UpdateDocMetadata("doc-a", map[string]any{}, "parse error")

	record, err := tracker.ReadDocMetadata("doc-a")
	require.NoError(t, err)
	assert.Equal(t, string(DocFailed), record["status"])
	assert.Equal(t, "parse error", record["error"])
}

func TestDocMetadataExplicitStatusWinsOverImpliedFailure(t *testing.T) {
	tracker := newTestTracker(t)
	require.NoError(t, tracker.InitDocMetadata("doc-a", nil))

	tracker.UpdateDocMetadata("doc-a", map[string]any{"status": "RETRYING"}, "timeout")

	record, err := tracker.ReadDocMetadata("doc-a")
	require.NoError(t, err)
	assert.Equal(t, "RETRYING", record["status"])
	assert.Equal(t, "timeout", record["error"])
}

func TestDocMetadataMissingRecordIsNoOp(t *testing.T) {
	tracker := newTestTracker(t)

	tracker.UpdateDocMetadata("ghost", map[string]any{"pages": 1}, "")

	_, err := tracker.ReadDocMetadata("ghost")
	require.Error(t, err)
}

func TestDocMetadataStampsLastUpdatedAt(t *testing.T) {
	tracker := newTestTracker(t)
	require.NoError(t, tracker.InitDocMetadata("doc-a", nil))

	tracker.UpdateDocMetadata("doc-a", map[string]any{"pages": 1}, "")

	record, err := tracker.ReadDocMetadata("doc-a")
	require.NoError(t, err)
	assert.NotEmpty(t, record["last_updated_at"])
}

func TestCorruptJobRecordIsSwallowed(t *testing.T) {
	dir := t.TempDir()
	tracker, err := NewTracker(dir, nil)
	require.NoError(t, err)

	path := filepath.Join(dir, "jobs", "bad_status.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	// Logged and swallowed, record left untouched.
	tracker.UpdateJobProgress("bad", "doc-a", DocCompleted, JobRunning, "")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "{not json", string(data))
}

// Concurrent updates to the same job are serialized by the per-job
// lock: every document update survives into the final record.
func TestSameJobConcurrencyLosesNoUpdates(t *testing.T) {
	tracker := newTestTracker(t)

	const n = 40
	docIDs := make([]string, n)
	for i := range docIDs {
		docIDs[i] = fmt.Sprintf("doc-%02d", i)
	}
	require.NoError(t, tracker.InitJob("job-1", docIDs))

	var wg sync.WaitGroup
	for _, id := range docIDs {
		wg.Add(1)
		go func(docID string) {
			defer wg.Done()
			tracker.UpdateJobProgress("job-1", docID, DocCompleted, JobRunning, "")
		}(id)
	}
	wg.Wait()

	job, err := tracker.ReadJob("job-1")
	require.NoError(t, err)
	for _, d := range job.Documents {
		assert.Equal(t, DocCompleted, d.Status, "doc %s lost its update", d.ID)
	}
}

func TestDistinctJobsProceedIndependently(t *testing.T) {
	tracker := newTestTracker(t)
	require.NoError(t, tracker.InitJob("job-a", []string{"d1"}))
	require.NoError(t, tracker.InitJob("job-b", []string{"d2"}))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			tracker.UpdateJobProgress("job-a", "d1", DocCompleted, JobRunning, "")
		}()
		go func() {
			defer wg.Done()
			tracker.UpdateJobProgress("job-b", "d2", DocCompleted, JobRunning, "")
		}()
	}
	wg.Wait()

	jobA, err := tracker.ReadJob("job-a")
	require.NoError(t, err)
	jobB, err := tracker.ReadJob("job-b")
	require.NoError(t, err)
	assert.Equal(t, DocCompleted, jobA.Documents[0].Status)
	assert.Equal(t, DocCompleted, jobB.Documents[0].Status)
}

func TestJobStatusHelpers(t *testing.T) {
	assert.True(t, JobCompleted.Terminal())
	assert.True(t, JobFailed.Terminal())
	assert.False(t, JobRunning.Terminal())
	assert.False(t, JobPending.Terminal())

	parsed, err := ParseJobStatus("RUNNING")
	require.NoError(t, err)
	assert.Equal(t, JobRunning, parsed)

	_, err = ParseJobStatus("bogus")
	require.Error(t, err)
}
