package memory

import (
	"context" // standard Go package for request-scoped context (timeouts, cancellation)
	"sync"    // standard Go package for concurrency primitives like Mutex

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	interfaces "github.com/sheikh-saqib/custom-token-ledger/internal/interfaces" // interface LedgerStore
	"github.com/sheikh-saqib/custom-token-ledger/internal/models"
	"github.com/sheikh-saqib/custom-token-ledger/internal/token"
)

// MemoryLedgerStore is an in-memory implementation of interfaces.LedgerStore.
// It keeps the token state, receipts and transfer history in maps and slices
// and is safe for concurrent use.
type MemoryLedgerStore struct {
	mu        sync.Mutex // protects everything below
	deployed  bool
	contract  common.Address
	config    token.Config
	balances  map[common.Address]*uint256.Int
	height    uint64
	receipts  map[common.Hash]models.Receipt
	transfers []models.TransferRecord
}

// NewMemoryLedgerStore creates and returns a new MemoryLedgerStore instance
func NewMemoryLedgerStore() *MemoryLedgerStore {
	return &MemoryLedgerStore{
		balances: make(map[common.Address]*uint256.Int),
		receipts: make(map[common.Hash]models.Receipt),
	}
}

// Migrate is a no-op; there is no schema in memory.
func (m *MemoryLedgerStore) Migrate(ctx context.Context) error { return nil }

func (m *MemoryLedgerStore) LoadState(ctx context.Context) (*token.State, common.Address, uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.deployed {
		return nil, common.Address{}, 0, interfaces.ErrNotFound
	}

	balances := make(map[common.Address]*uint256.Int, len(m.balances))
	for addr, b := range m.balances {
		balances[addr] = b.Clone()
	}
	return &token.State{Config: m.config, Balances: balances}, m.contract, m.height, nil
}

// SaveCommit applies the commit under the store lock, so readers never see
// half of it.
func (m *MemoryLedgerStore) SaveCommit(ctx context.Context, commit models.Commit) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.deployed = true
	m.contract = commit.Contract
	m.config = commit.Config
	for addr, b := range commit.Balances {
		m.balances[addr] = b.Clone()
	}
	if commit.Receipt.BlockNumber > m.height {
		m.height = commit.Receipt.BlockNumber
	}
	m.receipts[commit.Receipt.TxHash] = commit.Receipt
	m.transfers = append(m.transfers, commit.Receipt.Transfers...)
	return nil
}

func (m *MemoryLedgerStore) ReceiptByHash(ctx context.Context, hash common.Hash) (*models.Receipt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.receipts[hash]
	if !ok {
		return nil, interfaces.ErrNotFound
	}
	return &r, nil
}

// Transfers returns a copy of the whole transfer history.
func (m *MemoryLedgerStore) Transfers(ctx context.Context) ([]models.TransferRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	copied := make([]models.TransferRecord, len(m.transfers))
	copy(copied, m.transfers) // callers can't modify internal state
	return copied, nil
}

func (m *MemoryLedgerStore) TransfersByAccount(ctx context.Context, account common.Address) ([]models.TransferRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var result []models.TransferRecord
	for _, tr := range m.transfers {
		if tr.From == account || tr.To == account {
			result = append(result, tr)
		}
	}
	return result, nil
}

func (m *MemoryLedgerStore) Close() error { return nil }

// Compile-time check: ensure MemoryLedgerStore implements LedgerStore interface
var _ interfaces.LedgerStore = (*MemoryLedgerStore)(nil)
