package status

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Keys recognized inside a document-metadata record. Everything else in
// the details map is carried through untouched.
const (
	keyStatus        = "status"
	keyTiming        = "timing_in_secs"
	keyError         = "error"
	keyLastUpdatedAt = "last_updated_at"
)

// Tracker persists job and document records under a cache directory.
//
// Update methods never return errors: missing records and persistence
// failures are logged and swallowed so that status-tracking problems
// cannot abort document processing. Init and Read methods do return
// errors since their callers need the outcome.
type Tracker struct {
	jobsDir string
	docsDir string
	logger  *slog.Logger

	mu       sync.Mutex
	jobLocks map[string]*sync.Mutex
}

// NewTracker creates a tracker rooted at cacheDir, creating the jobs/
// and docs/ subdirectories if needed.
func NewTracker(cacheDir string, logger *slog.Logger) (*Tracker, error) {
	if logger == nil {
		logger = slog.Default()
	}
	jobsDir := filepath.Join(cacheDir, "jobs")
	docsDir := filepath.Join(cacheDir, "docs")
	for _, dir := range []string{jobsDir, docsDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create status dir %s: %w", dir, err)
		}
	}
	return &Tracker{
		jobsDir:  jobsDir,
		docsDir:  docsDir,
		logger:   logger,
		jobLocks: make(map[string]*sync.Mutex),
	}, nil
}

func (t *Tracker) jobPath(jobID string) string {
	return filepath.Join(t.jobsDir, jobID+"_status.json")
}

func (t *Tracker) docPath(docID string) string {
	return filepath.Join(t.docsDir, docID+"_metadata.json")
}

// lockFor returns the per-job mutex, creating it on first use. Updates
// to distinct jobs never contend on each other's lock.
func (t *Tracker) lockFor(jobID string) *sync.Mutex {
	t.mu.Lock()
	defer t.mu.Unlock()
	l, ok := t.jobLocks[jobID]
	if !ok {
		l = &sync.Mutex{}
		t.jobLocks[jobID] = l
	}
	return l
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// InitJob creates the job record with every document PENDING. An
// existing record is overwritten; job IDs are expected to be unique.
func (t *Tracker) InitJob(jobID string, docIDs []string) error {
	docs := make([]DocEntry, len(docIDs))
	for i, id := range docIDs {
		docs[i] = DocEntry{ID: id, Status: DocPending}
	}
	job := Job{
		JobID:         jobID,
		Status:        JobPending,
		Documents:     docs,
		LastUpdatedAt: now(),
	}
	if err := writeJSON(t.jobPath(jobID), job); err != nil {
		return fmt.Errorf("init job %s: %w", jobID, err)
	}
	t.logger.Debug("job initialized",
		slog.String("job_id", jobID),
		slog.Int("documents", len(docIDs)))
	return nil
}

// InitDocMetadata creates the metadata record for a document. Later
// UpdateDocMetadata calls require the record to exist.
func (t *Tracker) InitDocMetadata(docID string, details map[string]any) error {
	record := make(map[string]any, len(details)+2)
	for k, v := range details {
		record[k] = v
	}
	if _, ok := record[keyStatus]; !ok {
		record[keyStatus] = string(DocPending)
	}
	record[keyLastUpdatedAt] = now()
	if err := writeJSON(t.docPath(docID), record); err != nil {
		return fmt.Errorf("init doc metadata %s: %w", docID, err)
	}
	return nil
}

// UpdateDocMetadata merges details into the document's metadata record.
//
// Scalar fields overwrite; timing_in_secs merges key by key so each
// stage's duration survives later updates. Supplying errMsg without an
// explicit status in details marks the document FAILED. A missing
// record is a logged no-op: the tracker never auto-creates records,
// absence points at an upstream bug.
func (t *Tracker) UpdateDocMetadata(docID string, details map[string]any, errMsg string) {
	path := t.docPath(docID)

	record, err := readJSONMap(path)
	if os.IsNotExist(err) {
		t.logger.Error("document metadata record does not exist, skipping update",
			slog.String("doc_id", docID))
		return
	}
	if err != nil {
		t.logger.Error("failed to read document metadata",
			slog.String("doc_id", docID),
			slog.String("error", err.Error()))
		return
	}

	mergeDetails(record, details)

	if errMsg != "" {
		record[keyError] = errMsg
		if _, ok := details[keyStatus]; !ok {
			record[keyStatus] = string(DocFailed)
		}
	}
	record[keyLastUpdatedAt] = now()

	if err := writeJSON(path, record); err != nil {
		t.logger.Error("failed to persist document metadata",
			slog.String("doc_id", docID),
			slog.String("error", err.Error()))
	}
}

// mergeDetails applies the update map onto the stored record.
func mergeDetails(record, details map[string]any) {
	for k, v := range details {
		if k != keyTiming {
			record[k] = v
			continue
		}
		incoming, ok := v.(map[string]any)
		if !ok {
			record[k] = v
			continue
		}
		existing, ok := record[keyTiming].(map[string]any)
		if !ok {
			existing = make(map[string]any, len(incoming))
		}
		for stage, secs := range incoming {
			existing[stage] = secs
		}
		record[keyTiming] = existing
	}
}

// UpdateJobProgress sets the job-level status and one document's status
// inside the job record, serialized behind the job's lock.
//
// The error message is recorded at job level only when the job status
// is FAILED. A docID with no matching entry is logged and skipped; a
// missing job record is a logged no-op.
func (t *Tracker) UpdateJobProgress(jobID, docID string, docStatus DocStatus, jobStatus JobStatus, errMsg string) {
	lock := t.lockFor(jobID)
	lock.Lock()
	defer lock.Unlock()

	path := t.jobPath(jobID)
	job, err := readJob(path)
	if os.IsNotExist(err) {
		t.logger.Error("job status record does not exist, skipping update",
			slog.String("job_id", jobID))
		return
	}
	if err != nil {
		t.logger.Error("failed to read job status",
			slog.String("job_id", jobID),
			slog.String("error", err.Error()))
		return
	}

	job.Status = jobStatus
	job.LastUpdatedAt = now()
	if jobStatus == JobFailed && errMsg != "" {
		job.Error = errMsg
	}

	found := false
	for i := range job.Documents {
		if job.Documents[i].ID == docID {
			job.Documents[i].Status = docStatus
			found = true
			break
		}
	}
	if !found {
		t.logger.Error("document not present in job record",
			slog.String("job_id", jobID),
			slog.String("doc_id", docID))
	}

	if err := writeJSON(path, job); err != nil {
		t.logger.Error("failed to persist job status",
			slog.String("job_id", jobID),
			slog.String("error", err.Error()))
	}
}

// ReadJob loads the persisted job record.
func (t *Tracker) ReadJob(jobID string) (*Job, error) {
	job, err := readJob(t.jobPath(jobID))
	if err != nil {
		return nil, fmt.Errorf("read job %s: %w", jobID, err)
	}
	return job, nil
}

// ReadDocMetadata loads the persisted document metadata record.
func (t *Tracker) ReadDocMetadata(docID string) (map[string]any, error) {
	record, err := readJSONMap(t.docPath(docID))
	if err != nil {
		return nil, fmt.Errorf("read doc metadata %s: %w", docID, err)
	}
	return record, nil
}

func readJob(path string) (*Job, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var job Job
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &job, nil
}

func readJSONMap(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var record map[string]any
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return record, nil
}

// writeJSON rewrites the record wholesale. os.WriteFile truncates, so a
// shrinking record never leaves stale trailing bytes behind.
func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
