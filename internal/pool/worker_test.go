package pool

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datallboy/gofetch/internal/domain"
)

func TestNotFoundIsTerminal(t *testing.T) {
	var calls atomic.Int32
	fetch := func(ctx context.Context, id int, url string, start, end uint64) ([]byte, error) {
		calls.Add(1)
		return nil, fmt.Errorf("%s: %w", url, domain.ErrNotFound)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	p, err := New(Options{Size: 1, RetryBackoff: time.Millisecond}, newFakeFactory(fetch), testLogger(t))
	require.NoError(t, err)
	p.Start(ctx)
	defer func() { cancel(); p.Wait() }()

	job, _ := submitJob(t, p, "http://example.com/missing")
	res := awaitResult(t, job)

	require.ErrorIs(t, res.Err, domain.ErrNotFound)
	assert.Equal(t, 1, res.Attempts, "a definitive miss must not be retried")
	assert.Equal(t, int32(1), calls.Load())

	// Completion was still reported: the worker is idle again.
	snap := p.Snapshot()
	assert.Equal(t, 1, snap.Idle)
	assert.Equal(t, uint64(1), snap.Failed)
}

func TestTransientFailuresAreRetried(t *testing.T) {
	var calls atomic.Int32
	fetch := func(ctx context.Context, id int, url string, start, end uint64) ([]byte, error) {
		if calls.Add(1) < 3 {
			return nil, errors.New("connection reset")
		}
		return []byte("payload"), nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	p, err := New(Options{Size: 1, RetryBackoff: time.Millisecond}, newFakeFactory(fetch), testLogger(t))
	require.NoError(t, err)
	p.Start(ctx)
	defer func() { cancel(); p.Wait() }()

	job, _ := submitJob(t, p, "http://example.com/flaky")
	res := awaitResult(t, job)

	require.NoError(t, res.Err)
	assert.Equal(t, []byte("payload"), res.Body)
	assert.Equal(t, 3, res.Attempts)
	assert.Equal(t, uint64(1), p.Snapshot().Completed)
}

func TestRetryCapExhausted(t *testing.T) {
	var calls atomic.Int32
	fetch := func(ctx context.Context, id int, url string, start, end uint64) ([]byte, error) {
		calls.Add(1)
		return nil, errors.New("connection reset")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	p, err := New(Options{Size: 1, RetryBackoff: time.Millisecond, MaxRetries: 2}, newFakeFactory(fetch), testLogger(t))
	require.NoError(t, err)
	p.Start(ctx)
	defer func() { cancel(); p.Wait() }()

	job, _ := submitJob(t, p, "http://example.com/down")
	res := awaitResult(t, job)

	require.Error(t, res.Err)
	assert.Contains(t, res.Err.Error(), "giving up after 3 attempts")
	assert.Equal(t, int32(3), calls.Load(), "first attempt plus two retries")
}

func TestCancellationBreaksRetryLoop(t *testing.T) {
	fetch := func(ctx context.Context, id int, url string, start, end uint64) ([]byte, error) {
		return nil, errors.New("connection reset")
	}

	ctx, cancel := context.WithCancel(context.Background())

	p, err := New(Options{Size: 1, RetryBackoff: time.Hour}, newFakeFactory(fetch), testLogger(t))
	require.NoError(t, err)
	p.Start(ctx)

	job, _ := submitJob(t, p, "http://example.com/down")

	// The worker is now parked in its backoff sleep. Cancellation must not
	// wait for it.
	time.Sleep(10 * time.Millisecond)
	cancel()

	res := awaitResult(t, job)
	require.ErrorIs(t, res.Err, context.Canceled)
	p.Wait()
}

func TestWorkerSignalsPickupBeforeFetching(t *testing.T) {
	pickedUp := make(chan struct{})
	fetch := func(ctx context.Context, id int, url string, start, end uint64) ([]byte, error) {
		select {
		case <-pickedUp:
		default:
			return nil, errors.New("fetch before pickup signal")
		}
		return []byte("payload"), nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	p, err := New(Options{Size: 1, RetryBackoff: time.Millisecond}, newFakeFactory(fetch), testLogger(t))
	require.NoError(t, err)
	p.Start(ctx)
	defer func() { cancel(); p.Wait() }()

	var signals atomic.Int32
	job := domain.NewJob("pickup", "http://example.com/blob", 0, 1)
	job.Started = func() {
		signals.Add(1)
		close(pickedUp)
	}

	_, err = p.Submit(job)
	require.NoError(t, err)

	res := awaitResult(t, job)
	require.NoError(t, res.Err)
	assert.Equal(t, int32(1), signals.Load(), "pickup is signalled once, not per attempt")
}

func TestCompletionReportedOncePerJobAcrossRetries(t *testing.T) {
	var calls atomic.Int32
	fetch := func(ctx context.Context, id int, url string, start, end uint64) ([]byte, error) {
		if calls.Add(1)%3 != 0 {
			return nil, errors.New("flaky")
		}
		return []byte("payload"), nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	p, err := New(Options{Size: 2, RetryBackoff: time.Millisecond}, newFakeFactory(fetch), testLogger(t))
	require.NoError(t, err)
	p.Start(ctx)
	defer func() { cancel(); p.Wait() }()

	var jobs []*domain.Job
	for i := 0; i < 4; i++ {
		job, _ := submitJob(t, p, "http://example.com/flaky")
		jobs = append(jobs, job)
	}
	for _, job := range jobs {
		res := awaitResult(t, job)
		require.NoError(t, res.Err)
	}

	// One completion per job, regardless of attempts: the partition is
	// intact and the counters match the job count, not the attempt count.
	snap := p.Snapshot()
	assert.Equal(t, 2, snap.Idle)
	assert.Equal(t, 0, snap.Busy)
	assert.Equal(t, uint64(4), snap.Completed)
	assert.Greater(t, calls.Load(), int32(4))
}
