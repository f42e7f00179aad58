package interfaces

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"github.com/sheikh-saqib/custom-token-ledger/internal/models"
	"github.com/sheikh-saqib/custom-token-ledger/internal/token"
)

// LedgerStore persists the single token deployment hosted by a ledger node.
// Implementations must apply a Commit atomically.
type LedgerStore interface {
	Migrate(ctx context.Context) error

	// LoadState returns the persisted token, its contract address and the
	// latest block number, or ErrNotFound if nothing was deployed.
	LoadState(ctx context.Context) (*token.State, common.Address, uint64, error)
	SaveCommit(ctx context.Context, commit models.Commit) error

	ReceiptByHash(ctx context.Context, hash common.Hash) (*models.Receipt, error)
	TransfersByAccount(ctx context.Context, account common.Address) ([]models.TransferRecord, error)
	Transfers(ctx context.Context) ([]models.TransferRecord, error)

	Close() error
}
