package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/datallboy/gofetch/internal/domain"
)

// Fetcher performs one blocking byte-range retrieval. Each worker owns a
// single Fetcher session for its whole lifetime and never shares it.
type Fetcher interface {
	Fetch(ctx context.Context, url string, start, end uint64) ([]byte, error)
	Close() error
}

// Factory creates one Fetcher session per worker. An error is fatal to pool
// startup so the owner can adjust the pool size or abort cleanly.
type Factory func() (Fetcher, error)

// HTTPFetcher fetches byte ranges over HTTP. It carries its own Transport so
// sessions (idle connections, TLS state) stay private to one worker.
type HTTPFetcher struct {
	client *http.Client
}

func New(timeout time.Duration) *HTTPFetcher {
	transport := &http.Transport{
		MaxIdleConnsPerHost: 2,
		IdleConnTimeout:     90 * time.Second,
		DisableCompression:  true, // raw bytes for range requests
	}

	return &HTTPFetcher{
		client: &http.Client{
			Transport: transport,
			Timeout:   timeout,
		},
	}
}

// Fetch retrieves bytes [start, end] of url. 200 and 206 are success, 404 is
// domain.ErrNotFound (terminal), every other outcome is retryable.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string, start, end uint64) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Range", fmt.Sprintf("bytes=%d-%d", start, end))

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("transfer failed: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusPartialContent:
	case http.StatusNotFound:
		return nil, fmt.Errorf("%s: %w", url, domain.ErrNotFound)
	default:
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	return body, nil
}

func (f *HTTPFetcher) Close() error {
	f.client.CloseIdleConnections()
	return nil
}
