package pool

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/datallboy/gofetch/internal/domain"
	"github.com/datallboy/gofetch/internal/fetcher"
	"github.com/datallboy/gofetch/internal/infra/logger"
)

// worker owns one fetch session for its whole lifetime. It is stateless with
// respect to pool bookkeeping; the dispatcher tracks idle/busy.
type worker struct {
	id         int
	fetcher    fetcher.Fetcher
	jobs       chan *domain.Job
	backoff    time.Duration
	maxRetries int
	log        *logger.Logger
}

// runWorker executes jobs until ctx is cancelled. Completion is reported to
// the dispatcher exactly once per job, before the reply is delivered to the
// requester.
func (p *Pool) runWorker(ctx context.Context, w *worker) {
	defer p.wg.Done()
	defer w.fetcher.Close()

	w.log.Debug("init")

	for {
		select {
		case <-ctx.Done():
			// A deferred job may have been assigned concurrently with the
			// cancellation. Fail it instead of leaving the requester hanging.
			select {
			case job := <-w.jobs:
				p.onCompletion(w)
				p.failed.Add(1)
				job.Reply <- domain.Result{Err: ctx.Err()}
			default:
			}
			w.log.Debug("exit")
			return

		case job := <-w.jobs:
			if job.Started != nil {
				job.Started()
			}
			res := w.execute(ctx, job)

			// Tell the dispatcher this worker is done before replying.
			p.onCompletion(w)
			if res.Err != nil {
				p.failed.Add(1)
			} else {
				p.completed.Add(1)
			}
			job.Reply <- res
		}
	}
}

// execute runs the retry loop for one job. Retryable failures are absorbed
// here and never surface to the dispatcher or the requester; only a final
// success, a definitive not-found, an exhausted retry cap, or cancellation is
// observable.
func (w *worker) execute(ctx context.Context, job *domain.Job) domain.Result {
	start := time.Now()
	attempts := 0

	for {
		if err := ctx.Err(); err != nil {
			return domain.Result{Err: err, Attempts: attempts, Duration: time.Since(start)}
		}

		attempts++
		body, err := w.fetcher.Fetch(ctx, job.URL, job.RangeStart, job.RangeEnd)
		if err == nil {
			w.log.Debug("job %s: received %d bytes", job.ID, len(body))
			return domain.Result{Body: body, Attempts: attempts, Duration: time.Since(start)}
		}

		// A missing resource can never start existing. Retrying it would
		// spin forever, so it is surfaced as a terminal failure.
		if errors.Is(err, domain.ErrNotFound) {
			w.log.Warn("job %s: %v", job.ID, err)
			return domain.Result{Err: err, Attempts: attempts, Duration: time.Since(start)}
		}

		if w.maxRetries > 0 && attempts > w.maxRetries {
			return domain.Result{
				Err:      fmt.Errorf("giving up after %d attempts: %w", attempts, err),
				Attempts: attempts,
				Duration: time.Since(start),
			}
		}

		w.log.Warn("job %s: attempt %d failed: %v, retrying in %s", job.ID, attempts, err, w.backoff)

		select {
		case <-ctx.Done():
			return domain.Result{Err: ctx.Err(), Attempts: attempts, Duration: time.Since(start)}
		case <-time.After(w.backoff):
		}
	}
}
