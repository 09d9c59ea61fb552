package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/datallboy/gofetch/internal/app"
	"github.com/datallboy/gofetch/internal/domain"
	"github.com/segmentio/ksuid"
)

// JobManager fronts the pool: it mints job IDs, tracks each submission
// through its lifetime, and writes the history record once a job finishes.
// Jobs are never persisted for execution; the in-memory records exist so the
// API can answer status queries.
type JobManager struct {
	mu      sync.RWMutex
	app     *app.Context
	records map[string]*domain.JobRecord
	order   []string // submission order, for listing
}

func NewJobManager(appCtx *app.Context) *JobManager {
	return &JobManager{
		app:     appCtx,
		records: make(map[string]*domain.JobRecord),
	}
}

// Submit builds a job, hands it to the pool and spawns a goroutine awaiting
// the reply. The returned channel yields the same single Result the worker
// delivers.
func (m *JobManager) Submit(url string, start, end uint64) (domain.JobRecord, <-chan domain.Result, error) {
	if url == "" {
		return domain.JobRecord{}, nil, errors.New("url is required")
	}
	if end < start {
		return domain.JobRecord{}, nil, fmt.Errorf("invalid byte range %d-%d", start, end)
	}

	job := domain.NewJob(ksuid.New().String(), url, start, end)

	// A deferred job is "queued" only while it is actually parked: the
	// worker that picks it up flips the record to active.
	started := false
	job.Started = func() {
		m.mu.Lock()
		started = true
		if rec, ok := m.records[job.ID]; ok && rec.Status == domain.StatusQueued {
			rec.Status = domain.StatusActive
		}
		m.mu.Unlock()
	}

	admission, err := m.app.Pool.Submit(job)
	if err != nil {
		return domain.JobRecord{}, nil, err
	}

	rec := &domain.JobRecord{
		ID:          job.ID,
		URL:         url,
		RangeStart:  start,
		RangeEnd:    end,
		Admission:   admission,
		Status:      domain.StatusActive,
		SubmittedAt: job.SubmittedAt,
	}

	m.mu.Lock()
	if admission == domain.AdmissionDeferred && !started {
		rec.Status = domain.StatusQueued
	}
	m.records[rec.ID] = rec
	m.order = append(m.order, rec.ID)
	snapshot := *rec
	m.mu.Unlock()

	out := make(chan domain.Result, 1)
	go m.await(job, out)

	return snapshot, out, nil
}

// await consumes the single reply, finalizes the record and writes history.
func (m *JobManager) await(job *domain.Job, out chan<- domain.Result) {
	res := <-job.Reply

	m.mu.Lock()
	rec := m.records[job.ID]
	rec.Attempts = res.Attempts
	rec.FinishedAt = time.Now()
	if res.Err != nil {
		rec.Status = domain.StatusFailed
		rec.Error = res.Err.Error()
	} else {
		rec.Status = domain.StatusCompleted
		rec.Bytes = int64(len(res.Body))
	}
	snapshot := *rec
	m.mu.Unlock()

	if m.app.History != nil {
		hrec := domain.TransferRecord{
			ID:         snapshot.ID,
			URL:        snapshot.URL,
			RangeStart: snapshot.RangeStart,
			RangeEnd:   snapshot.RangeEnd,
			Bytes:      snapshot.Bytes,
			Status:     snapshot.Status,
			Error:      snapshot.Error,
			Attempts:   snapshot.Attempts,
			Duration:   res.Duration,
			FinishedAt: snapshot.FinishedAt,
		}
		if err := m.app.History.RecordTransfer(context.Background(), hrec); err != nil {
			m.app.Logger.Error("failed to record transfer %s: %v", snapshot.ID, err)
		}
	}

	out <- res
}

// Get returns a copy of the record for id.
func (m *JobManager) Get(id string) (domain.JobRecord, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.records[id]
	if !ok {
		return domain.JobRecord{}, false
	}
	return *rec, true
}

// List returns copies of all records in submission order.
func (m *JobManager) List() []domain.JobRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()

	items := make([]domain.JobRecord, 0, len(m.order))
	for _, id := range m.order {
		items = append(items, *m.records[id])
	}
	return items
}
