package domain

import "time"

type JobStatus string

const (
	StatusQueued    JobStatus = "queued" // deferred, waiting for an idle worker
	StatusActive    JobStatus = "active"
	StatusCompleted JobStatus = "completed"
	StatusFailed    JobStatus = "failed"
)

// JobRecord tracks a submitted job through its lifetime. The bytes themselves
// are handed to the requester over Job.Reply; the record only keeps metadata.
type JobRecord struct {
	ID         string    `json:"id"`
	URL        string    `json:"url"`
	RangeStart uint64    `json:"range_start"`
	RangeEnd   uint64    `json:"range_end"`
	Status     JobStatus `json:"status"`
	Admission  Admission `json:"admission"`

	Bytes    int64  `json:"bytes"`
	Attempts int    `json:"attempts"`
	Error    string `json:"error,omitempty"`

	SubmittedAt time.Time `json:"submitted_at"`
	FinishedAt  time.Time `json:"finished_at,omitzero"`
}

// TransferRecord is the audit row written to the history store once a job
// finishes. Jobs are never persisted for execution; this is write-only.
type TransferRecord struct {
	ID         string        `json:"id"`
	URL        string        `json:"url"`
	RangeStart uint64        `json:"range_start"`
	RangeEnd   uint64        `json:"range_end"`
	Bytes      int64         `json:"bytes"`
	Status     JobStatus     `json:"status"`
	Error      string        `json:"error,omitempty"`
	Attempts   int           `json:"attempts"`
	Duration   time.Duration `json:"duration"`
	FinishedAt time.Time     `json:"finished_at"`
}
