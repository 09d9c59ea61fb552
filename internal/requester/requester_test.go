package requester

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datallboy/gofetch/internal/domain"
	"github.com/datallboy/gofetch/internal/infra/config"
	"github.com/datallboy/gofetch/internal/infra/logger"
)

type fakeSubmitter struct {
	mu   sync.Mutex
	urls []string
	ends []uint64
}

func (f *fakeSubmitter) Submit(url string, start, end uint64) (domain.JobRecord, <-chan domain.Result, error) {
	f.mu.Lock()
	f.urls = append(f.urls, url)
	f.ends = append(f.ends, end)
	f.mu.Unlock()

	out := make(chan domain.Result, 1)
	out <- domain.Result{Body: []byte("payload"), Attempts: 1}
	return domain.JobRecord{ID: "test", URL: url}, out, nil
}

func TestRequesterIssuesJobsOnInterval(t *testing.T) {
	log, err := logger.New(filepath.Join(t.TempDir(), "test.log"), logger.LevelError, false)
	require.NoError(t, err)

	sub := &fakeSubmitter{}
	r := New(config.RequesterConfig{
		URL:           "http://files.example.com/blob",
		MinIntervalMS: 1,
		MaxIntervalMS: 3,
		RangeBytes:    4096,
	}, sub, log)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	done := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("requester did not stop on cancellation")
	}

	sub.mu.Lock()
	defer sub.mu.Unlock()
	require.NotEmpty(t, sub.urls, "expected at least one issued request")
	for i := range sub.urls {
		assert.Equal(t, "http://files.example.com/blob", sub.urls[i])
		assert.Equal(t, uint64(4095), sub.ends[i], "range end is inclusive")
	}
}
