package pool

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/datallboy/gofetch/internal/domain"
	"github.com/datallboy/gofetch/internal/fetcher"
	"github.com/datallboy/gofetch/internal/infra/logger"
)

type Options struct {
	// Size is the fixed number of workers.
	Size int

	// RetryBackoff is the pause between fetch attempts on retryable failures.
	RetryBackoff time.Duration

	// MaxRetries caps retries after the first attempt. 0 retries forever
	// (cancellation still breaks the loop).
	MaxRetries int
}

// Pool dispatches fetch jobs to a fixed set of workers. It is the single
// serialization point for the idle/busy partition and the admission mode:
// every transition happens under mu, and workers never hold mu while doing
// network I/O or backoff sleeps.
type Pool struct {
	opts Options
	log  *logger.Logger

	mu      sync.Mutex
	ctx     context.Context // set by Start; nil until then
	idle    []*worker // LIFO: assignment pops from the back
	busy    map[*worker]bool
	mode    domain.PoolMode
	pending []*domain.Job
	closed  bool

	submitted atomic.Uint64
	completed atomic.Uint64
	failed    atomic.Uint64

	wg sync.WaitGroup
}

// New creates the worker set, acquiring one fetch session per worker. A
// session acquisition failure is fatal: already-acquired sessions are closed
// and the error is surfaced to the pool owner.
func New(opts Options, factory fetcher.Factory, log *logger.Logger) (*Pool, error) {
	if opts.Size <= 0 {
		opts.Size = 10
	}
	if opts.RetryBackoff <= 0 {
		opts.RetryBackoff = 100 * time.Millisecond
	}

	p := &Pool{
		opts: opts,
		log:  log.Component("dispatcher"),
		busy: make(map[*worker]bool, opts.Size),
		mode: domain.ModeAccepting,
	}

	for i := 0; i < opts.Size; i++ {
		session, err := factory()
		if err != nil {
			for _, w := range p.idle {
				w.fetcher.Close()
			}
			return nil, fmt.Errorf("worker %d: acquire fetch session: %w", i, err)
		}

		p.idle = append(p.idle, &worker{
			id:         i,
			fetcher:    session,
			jobs:       make(chan *domain.Job, 1),
			backoff:    opts.RetryBackoff,
			maxRetries: opts.MaxRetries,
			log:        log.Component(fmt.Sprintf("worker-%d", i)),
		})
	}

	return p, nil
}

// Start spawns the worker goroutines. Cancelling ctx terminates in-flight
// retry loops and the workers themselves.
func (p *Pool) Start(ctx context.Context) {
	p.mu.Lock()
	p.ctx = ctx
	workers := make([]*worker, len(p.idle))
	copy(workers, p.idle)
	p.mu.Unlock()

	for _, w := range workers {
		p.wg.Add(1)
		go p.runWorker(ctx, w)
	}

	// Cancellation stops admission and fails parked jobs without waiting
	// for an explicit Close.
	go func() {
		<-ctx.Done()
		p.Close()
	}()

	p.log.Info("spawned %d worker(s)", len(workers))
}

// Submit hands a job to an idle worker, or parks it when the pool is
// saturated. It never blocks on network I/O.
func (p *Pool) Submit(job *domain.Job) (domain.Admission, error) {
	p.mu.Lock()

	if p.closedLocked() {
		p.mu.Unlock()
		return "", domain.ErrPoolClosed
	}

	p.submitted.Add(1)

	if p.mode == domain.ModeSaturated || len(p.idle) == 0 {
		p.pending = append(p.pending, job)
		p.mu.Unlock()
		p.log.Debug("job %s deferred, pool saturated", job.ID)
		return domain.AdmissionDeferred, nil
	}

	w := p.assignLocked(job)
	p.mu.Unlock()

	// Safe without mu: an idle worker's channel is empty and buffered.
	w.jobs <- job
	return domain.AdmissionAccepted, nil
}

// closedLocked reports whether the pool still admits jobs. Cancellation of
// the Start context counts as closed: a worker whose goroutine has exited
// must never receive another assignment. Caller holds mu.
func (p *Pool) closedLocked() bool {
	if p.closed {
		return true
	}
	return p.ctx != nil && p.ctx.Err() != nil
}

// assignLocked pops the most-recently-idle worker and marks it busy. Caller
// holds mu and sends the job after releasing it.
func (p *Pool) assignLocked(job *domain.Job) *worker {
	w := p.idle[len(p.idle)-1]
	p.idle = p.idle[:len(p.idle)-1]
	p.busy[w] = true

	p.log.Debug("job %s -> worker %d, %d active job(s)", job.ID, w.id, len(p.busy))

	if len(p.idle) == 0 && p.mode == domain.ModeAccepting {
		p.mode = domain.ModeSaturated
		p.log.Info("all %d worker(s) busy, deferring new submissions", len(p.busy))
	}
	return w
}

// onCompletion moves a worker back to idle and serves at most one deferred
// submission. A notice from a worker not recorded as busy is a logic error:
// it is logged and ignored so the partition cannot be corrupted.
func (p *Pool) onCompletion(w *worker) {
	p.mu.Lock()

	if !p.busy[w] {
		p.mu.Unlock()
		p.log.Error("completion notice from worker %d which is not busy, ignoring", w.id)
		return
	}

	delete(p.busy, w)
	p.idle = append(p.idle, w)

	if p.mode == domain.ModeSaturated {
		p.mode = domain.ModeAccepting
		p.log.Info("worker %d is done, accepting submissions again", w.id)
	}

	if len(p.pending) == 0 || p.closedLocked() {
		p.mu.Unlock()
		return
	}

	next := p.pending[0]
	p.pending = p.pending[1:]
	nw := p.assignLocked(next)
	p.mu.Unlock()

	nw.jobs <- next
}

// Close stops admission and fails parked jobs fast. In-flight jobs keep
// running until the Start context is cancelled or they finish on their own.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	parked := p.pending
	p.pending = nil
	p.mu.Unlock()

	for _, job := range parked {
		p.failed.Add(1)
		job.Reply <- domain.Result{Err: domain.ErrPoolClosed}
	}

	if len(parked) > 0 {
		p.log.Info("rejected %d parked job(s) on shutdown", len(parked))
	}
}

// Wait blocks until every worker goroutine has exited.
func (p *Pool) Wait() {
	p.wg.Wait()
}

// Snapshot reports the partition between two operations. Idle+Busy always
// equals Size.
func (p *Pool) Snapshot() domain.PoolSnapshot {
	p.mu.Lock()
	defer p.mu.Unlock()

	return domain.PoolSnapshot{
		Size:      p.opts.Size,
		Idle:      len(p.idle),
		Busy:      len(p.busy),
		Pending:   len(p.pending),
		Mode:      p.mode,
		Submitted: p.submitted.Load(),
		Completed: p.completed.Load(),
		Failed:    p.failed.Load(),
	}
}
