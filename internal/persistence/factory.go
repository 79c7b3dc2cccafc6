// Package persistence opens the storage backend selected by configuration
// and hands out the account and audit stores living on it.
package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/neogan74/catalog/internal/account"
	"github.com/neogan74/catalog/internal/audit"
	"github.com/neogan74/catalog/internal/config"
	"github.com/neogan74/catalog/internal/logger"
)

// Backend bundles the stores of one storage type.
type Backend struct {
	Type     string
	Accounts account.Repository
	Audit    audit.Store

	closers []func() error
}

// Open builds the backend for cfg.Type. Accounts and audit records share
// one database for the badger and postgres backends.
func Open(ctx context.Context, cfg config.StorageConfig, log logger.Logger) (*Backend, error) {
	switch cfg.Type {
	case "", "memory":
		log.Info("Using in-memory storage")
		return &Backend{
			Type:     "memory",
			Accounts: account.NewMemoryStore(),
			Audit:    audit.NewMemoryStore(),
		}, nil

	case "badger":
		b, err := OpenBadger(cfg.DataDir, cfg.SyncWrites, log)
		if err != nil {
			return nil, err
		}
		return &Backend{
			Type:     "badger",
			Accounts: account.NewBadgerStore(b.DB),
			Audit:    audit.NewBadgerStore(b.DB),
			closers:  []func() error{b.Close},
		}, nil

	case "postgres":
		db, err := OpenPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if cfg.Migrate {
			if err := Migrate(ctx, db); err != nil {
				_ = db.Close()
				return nil, err
			}
			log.Info("Database migrations applied")
		}
		return &Backend{
			Type:     "postgres",
			Accounts: account.NewPostgresStore(db),
			Audit:    audit.NewPostgresStore(db),
			closers:  []func() error{db.Close},
		}, nil

	default:
		return nil, fmt.Errorf("unsupported storage type: %s", cfg.Type)
	}
}

// Close releases the underlying database handles. Stores must not be used
// afterwards.
func (b *Backend) Close() error {
	var errs []error
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	b.closers = nil
	return errors.Join(errs...)
}
