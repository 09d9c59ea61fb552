package domain

import "time"

// Job is a single byte-range fetch request. It is immutable once submitted
// and consumed by exactly one worker.
type Job struct {
	ID         string
	URL        string
	RangeStart uint64
	RangeEnd   uint64

	// Reply receives exactly one Result per submitted job. Must be buffered
	// (capacity 1) so a slow requester never blocks a worker.
	Reply chan Result

	// Started, when set, is invoked by the worker that picks the job up,
	// just before its first fetch attempt. Set before submission or not
	// at all.
	Started func()

	SubmittedAt time.Time
}

// Result is what a worker eventually delivers for a Job. Err is nil on
// success; on failure Body is empty and Err carries the terminal cause.
type Result struct {
	Body     []byte
	Err      error
	Attempts int
	Duration time.Duration
}

// NewJob builds a Job with a buffered reply channel.
func NewJob(id, url string, start, end uint64) *Job {
	return &Job{
		ID:          id,
		URL:         url,
		RangeStart:  start,
		RangeEnd:    end,
		Reply:       make(chan Result, 1),
		SubmittedAt: time.Now(),
	}
}
