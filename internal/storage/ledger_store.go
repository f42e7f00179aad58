package storage

import (
	"context"

	"github.com/pkg/errors"

	"github.com/sheikh-saqib/custom-token-ledger/internal/config"
	interfaces "github.com/sheikh-saqib/custom-token-ledger/internal/interfaces"
	"github.com/sheikh-saqib/custom-token-ledger/internal/storage/boltdb"
	"github.com/sheikh-saqib/custom-token-ledger/internal/storage/memory"
	"github.com/sheikh-saqib/custom-token-ledger/internal/storage/postgres"
)

// Open returns the LedgerStore selected by cfg, migrated and ready to use.
func Open(ctx context.Context, cfg *config.Server) (interfaces.LedgerStore, error) {
	var (
		store interfaces.LedgerStore
		err   error
	)
	switch cfg.Store {
	case config.StorePostgres:
		store, err = postgres.Open(ctx, cfg.PostgresDSN)
	case config.StoreBolt:
		store, err = boltdb.Open(cfg.BoltPath)
	case config.StoreMemory:
		store = memory.NewMemoryLedgerStore()
	default:
		return nil, errors.Errorf("unknown store %q", cfg.Store)
	}
	if err != nil {
		return nil, err
	}

	if err := store.Migrate(ctx); err != nil {
		store.Close()
		return nil, err
	}
	return store, nil
}
