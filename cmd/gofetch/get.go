package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/datallboy/gofetch/internal/app"
	"github.com/datallboy/gofetch/internal/engine"
	"github.com/datallboy/gofetch/internal/fetcher"
	"github.com/datallboy/gofetch/internal/infra/config"
	"github.com/datallboy/gofetch/internal/infra/logger"
	"github.com/datallboy/gofetch/internal/pool"
)

var (
	getRange  string
	getOutput string
)

var getCmd = &cobra.Command{
	Use:   "get URL",
	Short: "Fetch a byte range through a one-worker pool",
	Args:  cobra.ExactArgs(1),
	RunE:  runGet,
}

func init() {
	getCmd.Flags().StringVar(&getRange, "range", "0-4095", "byte range to fetch (start-end, inclusive)")
	getCmd.Flags().StringVarP(&getOutput, "output", "o", "", "write bytes to file instead of stdout")
}

func runGet(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}

	start, end, err := parseRange(getRange)
	if err != nil {
		return err
	}

	// Data goes to stdout, so the log must not.
	log, err := logger.New(cfg.Log.Path, logger.ParseLevel(cfg.Log.Level), false)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}

	appCtx := app.NewContext(cfg, log)

	sigCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ctx, cancel := context.WithCancel(sigCtx)
	defer cancel()

	timeout := time.Duration(cfg.Pool.FetchTimeoutSec) * time.Second
	p, err := pool.New(pool.Options{
		Size:         1,
		RetryBackoff: time.Duration(cfg.Pool.RetryBackoffMS) * time.Millisecond,
		MaxRetries:   cfg.Pool.MaxRetries,
	}, func() (fetcher.Fetcher, error) { return fetcher.New(timeout), nil }, log)
	if err != nil {
		return fmt.Errorf("failed to start worker pool: %w", err)
	}
	p.Start(ctx)
	appCtx.Pool = p

	mgr := engine.NewJobManager(appCtx)

	_, results, err := mgr.Submit(args[0], start, end)
	if err != nil {
		return err
	}

	var body []byte
	select {
	case <-sigCtx.Done():
		cancel()
		p.Close()
		p.Wait()
		return sigCtx.Err()
	case res := <-results:
		if res.Err != nil {
			cancel()
			p.Close()
			p.Wait()
			return fmt.Errorf("fetch failed after %d attempt(s): %w", res.Attempts, res.Err)
		}
		body = res.Body
	}

	cancel()
	p.Close()
	p.Wait()

	if getOutput != "" {
		if err := os.WriteFile(getOutput, body, 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", getOutput, err)
		}
		fmt.Fprintf(os.Stderr, "wrote %d bytes to %s\n", len(body), getOutput)
		return nil
	}

	_, err = os.Stdout.Write(body)
	return err
}

// parseRange parses "start-end" with both bounds inclusive.
func parseRange(raw string) (uint64, uint64, error) {
	parts := strings.SplitN(raw, "-", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid range %q, expected start-end", raw)
	}

	start, err := strconv.ParseUint(parts[0], 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid range start %q: %w", parts[0], err)
	}

	end, err := strconv.ParseUint(parts[1], 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid range end %q: %w", parts[1], err)
	}

	if end < start {
		return 0, 0, fmt.Errorf("range end %d is before start %d", end, start)
	}

	return start, end, nil
}
