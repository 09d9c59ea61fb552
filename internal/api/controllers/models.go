package controllers

import "github.com/datallboy/gofetch/internal/domain"

// SubmitRequest is the body of POST /api/jobs.
type SubmitRequest struct {
	URL        string `json:"url"`
	RangeStart uint64 `json:"range_start"`
	RangeEnd   uint64 `json:"range_end"`

	// Wait makes the request block until the job finishes and answers with
	// the raw bytes instead of the job record.
	Wait bool `json:"wait"`
}

// SubmitResponse acknowledges an asynchronous submission.
type SubmitResponse struct {
	ID        string           `json:"id"`
	Admission domain.Admission `json:"admission"`
	Status    domain.JobStatus `json:"status"`
}

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error string `json:"error"`
}
