package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v5"
	"github.com/spf13/cobra"

	"github.com/datallboy/gofetch/internal/api"
	"github.com/datallboy/gofetch/internal/app"
	"github.com/datallboy/gofetch/internal/engine"
	"github.com/datallboy/gofetch/internal/fetcher"
	"github.com/datallboy/gofetch/internal/infra/config"
	"github.com/datallboy/gofetch/internal/infra/logger"
	"github.com/datallboy/gofetch/internal/pool"
	"github.com/datallboy/gofetch/internal/requester"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the fetch pool daemon",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}

	log, err := logger.New(cfg.Log.Path, logger.ParseLevel(cfg.Log.Level), cfg.Log.IncludeStdout)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}

	appCtx := app.NewContext(cfg, log)

	// Setup Signal Handling for Graceful Shutdown
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	timeout := time.Duration(cfg.Pool.FetchTimeoutSec) * time.Second
	factory := func() (fetcher.Fetcher, error) {
		return fetcher.New(timeout), nil
	}

	p, err := pool.New(pool.Options{
		Size:         cfg.Pool.Size,
		RetryBackoff: time.Duration(cfg.Pool.RetryBackoffMS) * time.Millisecond,
		MaxRetries:   cfg.Pool.MaxRetries,
	}, factory, log)
	if err != nil {
		return fmt.Errorf("failed to start worker pool: %w", err)
	}
	p.Start(ctx)
	appCtx.Pool = p

	if cfg.History.Enabled {
		st, err := openHistory(cfg)
		if err != nil {
			return err
		}
		defer st.Close()
		appCtx.History = st
	}

	mgr := engine.NewJobManager(appCtx)

	e := echo.New()
	api.RegisterRoutes(e, appCtx, mgr)

	server := &http.Server{Addr: ":" + cfg.Port, Handler: e}
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server: %v", err)
		}
	}()

	if cfg.Requester.Enabled {
		req := requester.New(cfg.Requester, mgr, log)
		go req.Run(ctx)
	}

	log.Info("gofetch listening on :%s with %d worker(s)", cfg.Port, cfg.Pool.Size)

	<-ctx.Done()

	// A second CTRL+C now kills the process outright.
	stop()
	log.Info("shutdown requested, draining workers (this may take a while, press CTRL+C again to abort)")

	p.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown: %v", err)
	}

	p.Wait()
	log.Info("pool drained")
	return nil
}
