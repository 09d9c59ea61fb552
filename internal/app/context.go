package app

import (
	"context"

	"github.com/datallboy/gofetch/internal/domain"
	"github.com/datallboy/gofetch/internal/infra/config"
	"github.com/datallboy/gofetch/internal/infra/logger"
)

// Pool is the dispatcher contract consumed by the engine and the API.
type Pool interface {
	Submit(job *domain.Job) (domain.Admission, error)
	Snapshot() domain.PoolSnapshot
}

// History is the write-only transfer audit trail. Nil when disabled.
type History interface {
	RecordTransfer(ctx context.Context, rec domain.TransferRecord) error
	ListTransfers(ctx context.Context, limit int) ([]domain.TransferRecord, error)
	Close() error
}

// Context holds the core environment and shared resources for gofetch.
// It acts as the single source of truth for the application state.
type Context struct {
	Config *config.Config
	Logger *logger.Logger

	Pool    Pool
	History History
}

// NewContext initializes the base environment.
func NewContext(cfg *config.Config, log *logger.Logger) *Context {
	return &Context{
		Config: cfg,
		Logger: log,
	}
}
