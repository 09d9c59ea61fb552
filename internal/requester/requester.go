package requester

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"

	"github.com/datallboy/gofetch/internal/domain"
	"github.com/datallboy/gofetch/internal/infra/config"
	"github.com/datallboy/gofetch/internal/infra/logger"
)

// Submitter is the slice of the job manager the requester needs.
type Submitter interface {
	Submit(url string, start, end uint64) (domain.JobRecord, <-chan domain.Result, error)
}

// Requester emulates a client issuing a fetch request every few milliseconds.
// Each issued request runs in its own goroutine and awaits a reply or a
// failure; saturation shows up only as latency, never as an error.
type Requester struct {
	cfg    config.RequesterConfig
	submit Submitter
	log    *logger.Logger
}

func New(cfg config.RequesterConfig, submit Submitter, log *logger.Logger) *Requester {
	return &Requester{
		cfg:    cfg,
		submit: submit,
		log:    log.Component("requester"),
	}
}

// Run issues jobs on a random interval until ctx is cancelled.
func (r *Requester) Run(ctx context.Context) {
	r.log.Info("init, issuing requests every %d-%dms", r.cfg.MinIntervalMS, r.cfg.MaxIntervalMS)

	count := 0
	for {
		delay := time.Duration(r.cfg.MinIntervalMS+rand.IntN(r.cfg.MaxIntervalMS-r.cfg.MinIntervalMS+1)) * time.Millisecond

		select {
		case <-ctx.Done():
			r.log.Info("exit after %d request(s)", count)
			return
		case <-time.After(delay):
		}

		count++
		r.log.Debug("spawn new request (nr. %d)", count)
		go r.issue(ctx, count)
	}
}

// issue submits one range read and waits for the outcome.
func (r *Requester) issue(ctx context.Context, nr int) {
	rec, results, err := r.submit.Submit(r.cfg.URL, 0, r.cfg.RangeBytes-1)
	if err != nil {
		if !errors.Is(err, domain.ErrPoolClosed) {
			r.log.Error("request %d rejected: %v", nr, err)
		}
		return
	}

	select {
	case <-ctx.Done():
		return
	case res := <-results:
		if res.Err != nil {
			r.log.Warn("request %d (%s) failed: %v", nr, rec.ID, res.Err)
			return
		}
		r.log.Info("request %d (%s): successfully received %d bytes", nr, rec.ID, len(res.Body))
	}
}
