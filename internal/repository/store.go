// Package repository persists finalized analysis messages and answers
// filtered queries. The job pipeline is the only writer; the query and
// explainability layers read only.
package repository

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"chatlens/internal/config"
	"chatlens/internal/models"
)

// MessageStore is the durable store for finalized messages. Writes for
// one job happen in a single transaction, so readers see none or all of
// a job's messages, never a partial set.
type MessageStore interface {
	SaveMessages(ctx context.Context, msgs []models.Message) error
	ListMessages(ctx context.Context, f models.Filter) ([]models.Message, int, error)
	GetMessage(ctx context.Context, id string) (*models.Message, error)
	ListByJob(ctx context.Context, jobID string) ([]models.Message, error)
	Stats(ctx context.Context, f models.Filter) (*models.FilterStats, error)
	Ping(ctx context.Context) error
	Close() error
}

// New opens the store configured by cfg.Database.Driver.
func New(cfg *config.Config, logger *zap.Logger) (MessageStore, error) {
	switch cfg.Database.Driver {
	case "sqlite":
		return NewSQLite(cfg.Database.DSN, logger)
	case "postgres":
		return NewPostgres(cfg.Database.DSN, cfg.Database.Migrations, logger)
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Database.Driver)
	}
}
