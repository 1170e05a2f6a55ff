// Package status tracks job- and document-level processing state on
// disk. Records are the system of record: every update is a full
// read-modify-write of the backing file, so a restart loses nothing.
//
// Locking is in-process and per job. Multiple processes updating the
// same job file concurrently can race; the design assumes a single
// process owns a job for its lifetime.
package status

import "fmt"

// JobStatus is the lifecycle state of an ingestion job.
type JobStatus string

const (
	JobPending   JobStatus = "PENDING"
	JobRunning   JobStatus = "RUNNING"
	JobCompleted JobStatus = "COMPLETED"
	JobFailed    JobStatus = "FAILED"
)

// Valid reports whether s is a known job status.
func (s JobStatus) Valid() bool {
	switch s {
	case JobPending, JobRunning, JobCompleted, JobFailed:
		return true
	}
	return false
}

// Terminal reports whether the job can no longer transition.
func (s JobStatus) Terminal() bool {
	return s == JobCompleted || s == JobFailed
}

// DocStatus is the processing state of one document within a job.
// Stages between PENDING and the terminal states are application
// defined; FAILED is always terminal and is the state the tracker
// itself sets when an error is recorded without an explicit status.
type DocStatus string

const (
	DocPending   DocStatus = "PENDING"
	DocCompleted DocStatus = "COMPLETED"
	DocFailed    DocStatus = "FAILED"
)

// Terminal reports whether the document can no longer transition.
func (s DocStatus) Terminal() bool {
	return s == DocCompleted || s == DocFailed
}

// DocEntry is one document's slot in a job record.
type DocEntry struct {
	ID     string    `json:"id"`
	Status DocStatus `json:"status"`
}

// Job is the persisted per-job record.
type Job struct {
	JobID         string     `json:"job_id"`
	Status        JobStatus  `json:"status"`
	Documents     []DocEntry `json:"documents"`
	Error         string     `json:"error,omitempty"`
	LastUpdatedAt string     `json:"last_updated_at"`
}

// ParseJobStatus converts a persisted string into a JobStatus.
func ParseJobStatus(s string) (JobStatus, error) {
	js := JobStatus(s)
	if !js.Valid() {
		return "", fmt.Errorf("unknown job status %q", s)
	}
	return js, nil
}
