package ledger

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	interfaces "github.com/sheikh-saqib/custom-token-ledger/internal/interfaces"
	"github.com/sheikh-saqib/custom-token-ledger/internal/models"
	"github.com/sheikh-saqib/custom-token-ledger/internal/models/events"
	"github.com/sheikh-saqib/custom-token-ledger/internal/signer"
	"github.com/sheikh-saqib/custom-token-ledger/internal/storage/memory"
	"github.com/sheikh-saqib/custom-token-ledger/internal/token"
)

var taxWallet = common.HexToAddress("0x00000000000000000000000000000000000000c1")

type recordingPublisher struct {
	mu     sync.Mutex
	keys   []string
	events []events.TransferCompleted
	err    error
}

func (p *recordingPublisher) Publish(ctx context.Context, topic, key string, event any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.keys = append(p.keys, key)
	p.events = append(p.events, event.(events.TransferCompleted))
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

// flakyStore fails SaveCommit while fail is set.
type flakyStore struct {
	*memory.MemoryLedgerStore
	fail bool
}

func (s *flakyStore) SaveCommit(ctx context.Context, c models.Commit) error {
	if s.fail {
		return errors.New("disk full")
	}
	return s.MemoryLedgerStore.SaveCommit(ctx, c)
}

// outageStore fails both writes and state reads while down is set.
type outageStore struct {
	*memory.MemoryLedgerStore
	down bool
}

func (s *outageStore) SaveCommit(ctx context.Context, c models.Commit) error {
	if s.down {
		return errors.New("connection refused")
	}
	return s.MemoryLedgerStore.SaveCommit(ctx, c)
}

func (s *outageStore) LoadState(ctx context.Context) (*token.State, common.Address, uint64, error) {
	if s.down {
		return nil, common.Address{}, 0, errors.New("connection refused")
	}
	return s.MemoryLedgerStore.LoadState(ctx)
}

func newSigner(t *testing.T) *signer.Signer {
	t.Helper()
	s, err := signer.Generate()
	require.NoError(t, err)
	return s
}

func sign(t *testing.T, s *signer.Signer, op models.Operation) models.SignedOperation {
	t.Helper()
	if op.Nonce == "" {
		op.Nonce = uuid.NewString()
	}
	signed, err := s.Sign(op)
	require.NoError(t, err)
	return signed
}

func deployOp() models.Operation {
	return models.Operation{
		Kind: models.KindDeploy,
		Deploy: &models.DeployParams{
			Name:            "Custom Token",
			Symbol:          "CTK",
			InitialSupply:   uint256.NewInt(1000),
			TaxPercentage:   5,
			TaxWallet:       taxWallet,
			MaxTxAmount:     uint256.NewInt(100),
			MaxWalletAmount: uint256.NewInt(200),
			Decimals:        2,
		},
	}
}

func transferOp(to common.Address, amount uint64) models.Operation {
	return models.Operation{Kind: models.KindTransfer, To: &to, Amount: uint256.NewInt(amount)}
}

func newTestLedger(t *testing.T, store interfaces.LedgerStore, opts ...Option) *Ledger {
	t.Helper()
	opts = append([]Option{WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))}, opts...)
	l := NewLedger(store, opts...)
	require.NoError(t, l.Start(context.Background()))
	return l
}

func balance(t *testing.T, l *Ledger, addr common.Address) uint64 {
	t.Helper()
	b, err := l.BalanceOf(addr)
	require.NoError(t, err)
	return b.Uint64()
}

func TestSubmitLifecycle(t *testing.T) {
	ctx := context.Background()
	pub := &recordingPublisher{}
	l := newTestLedger(t, memory.NewMemoryLedgerStore(), WithPublisher(pub))
	owner, alice, bob := newSigner(t), newSigner(t), newSigner(t)

	_, err := l.Info()
	require.ErrorIs(t, err, models.ErrNotDeployed)

	r, err := l.Submit(ctx, sign(t, owner, deployOp()))
	require.NoError(t, err)
	assert.Equal(t, uint64(1), r.BlockNumber)
	assert.Equal(t, crypto.CreateAddress(owner.Address(), 0), r.Contract)
	require.Len(t, r.Transfers, 1)
	assert.Equal(t, common.Address{}, r.Transfers[0].From)
	assert.Equal(t, owner.Address(), r.Transfers[0].To)
	assert.Equal(t, uint64(100_000), r.Transfers[0].Amount.Uint64())

	r, err = l.Submit(ctx, sign(t, owner, transferOp(alice.Address(), 5000)))
	require.NoError(t, err)
	assert.Equal(t, uint64(2), r.BlockNumber)
	require.Len(t, r.Transfers, 2)
	assert.Equal(t, taxWallet, r.Transfers[0].To)
	assert.Equal(t, uint64(250), r.Transfers[0].Amount.Uint64())
	assert.Equal(t, alice.Address(), r.Transfers[1].To)
	assert.Equal(t, uint64(4750), r.Transfers[1].Amount.Uint64())

	_, err = l.Submit(ctx, sign(t, alice, transferOp(bob.Address(), 1000)))
	require.ErrorIs(t, err, token.ErrTradingDisabled)

	_, err = l.Submit(ctx, sign(t, alice, models.Operation{Kind: models.KindEnableTrading}))
	require.ErrorIs(t, err, token.ErrNotOwner)

	r, err = l.Submit(ctx, sign(t, owner, models.Operation{Kind: models.KindEnableTrading}))
	require.NoError(t, err)
	assert.Equal(t, uint64(3), r.BlockNumber)
	assert.Empty(t, r.Transfers)

	_, err = l.Submit(ctx, sign(t, alice, transferOp(bob.Address(), 1000)))
	require.NoError(t, err)

	assert.Equal(t, uint64(95_000), balance(t, l, owner.Address()))
	assert.Equal(t, uint64(3750), balance(t, l, alice.Address()))
	assert.Equal(t, uint64(950), balance(t, l, bob.Address()))
	assert.Equal(t, uint64(300), balance(t, l, taxWallet))

	info, err := l.Info()
	require.NoError(t, err)
	assert.Equal(t, "CTK", info.Symbol)
	assert.True(t, info.TradingEnabled)
	assert.Equal(t, uint64(4), info.BlockNumber)
	assert.Equal(t, uint64(100_000), info.TotalSupply.Uint64())
	assert.Equal(t, uint64(10_000), info.MaxTxAmount.Uint64())

	require.Len(t, pub.events, 5)
	last := pub.events[4]
	assert.Equal(t, bob.Address().Hex(), last.ToAccount)
	assert.Equal(t, "9.50", last.DisplayAmount)
	assert.Equal(t, "950", last.Amount.String())
	assert.Equal(t, last.TransactionID, pub.keys[4])

	all, err := l.Transfers(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, all, 5)

	bobAddr := bob.Address()
	mine, err := l.Transfers(ctx, &bobAddr)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, 1, mine[0].Index)
}

func TestSubmitIsIdempotent(t *testing.T) {
	ctx := context.Background()
	l := newTestLedger(t, memory.NewMemoryLedgerStore())
	owner, alice := newSigner(t), newSigner(t)

	_, err := l.Submit(ctx, sign(t, owner, deployOp()))
	require.NoError(t, err)

	signed := sign(t, owner, transferOp(alice.Address(), 1000))
	first, err := l.Submit(ctx, signed)
	require.NoError(t, err)
	second, err := l.Submit(ctx, signed)
	require.NoError(t, err)

	assert.Equal(t, first.TxHash, second.TxHash)
	assert.Equal(t, first.BlockNumber, second.BlockNumber)
	assert.Equal(t, uint64(950), balance(t, l, alice.Address()))

	got, err := l.Receipt(ctx, first.TxHash)
	require.NoError(t, err)
	assert.Equal(t, first.BlockNumber, got.BlockNumber)
}

func TestSubmitRejectsBadSignature(t *testing.T) {
	ctx := context.Background()
	l := newTestLedger(t, memory.NewMemoryLedgerStore())
	owner, mallory := newSigner(t), newSigner(t)

	signed := sign(t, owner, deployOp())
	signed.Operation.From = mallory.Address()
	_, err := l.Submit(ctx, signed)
	require.ErrorIs(t, err, models.ErrInvalidSignature)

	signed = sign(t, owner, deployOp())
	signed.Signature = signed.Signature[:10]
	_, err = l.Submit(ctx, signed)
	require.ErrorIs(t, err, models.ErrInvalidSignature)

	_, err = l.Info()
	require.ErrorIs(t, err, models.ErrNotDeployed)
}

func TestSubmitDeploymentErrors(t *testing.T) {
	ctx := context.Background()
	l := newTestLedger(t, memory.NewMemoryLedgerStore())
	owner, alice := newSigner(t), newSigner(t)

	_, err := l.Submit(ctx, sign(t, alice, transferOp(owner.Address(), 1)))
	require.ErrorIs(t, err, models.ErrNotDeployed)

	_, err = l.Submit(ctx, sign(t, owner, models.Operation{Kind: models.KindDeploy}))
	require.ErrorIs(t, err, models.ErrInvalidParams)

	bad := deployOp()
	bad.Deploy.TaxPercentage = 11
	_, err = l.Submit(ctx, sign(t, owner, bad))
	require.ErrorIs(t, err, token.ErrTaxTooHigh)

	_, err = l.Submit(ctx, sign(t, owner, deployOp()))
	require.NoError(t, err)

	_, err = l.Submit(ctx, sign(t, alice, deployOp()))
	require.ErrorIs(t, err, models.ErrAlreadyDeployed)

	_, err = l.Submit(ctx, sign(t, owner, models.Operation{Kind: models.KindTransfer}))
	require.ErrorIs(t, err, models.ErrInvalidParams)

	_, err = l.Submit(ctx, sign(t, owner, models.Operation{Kind: "mint"}))
	require.ErrorIs(t, err, models.ErrUnknownOperation)
}

func TestAdminOperations(t *testing.T) {
	ctx := context.Background()
	l := newTestLedger(t, memory.NewMemoryLedgerStore())
	owner := newSigner(t)
	newWallet := common.HexToAddress("0x00000000000000000000000000000000000000d1")

	_, err := l.Submit(ctx, sign(t, owner, deployOp()))
	require.NoError(t, err)

	tax := uint8(3)
	_, err = l.Submit(ctx, sign(t, owner, models.Operation{Kind: models.KindSetTaxPercentage, TaxPercentage: &tax}))
	require.NoError(t, err)
	_, err = l.Submit(ctx, sign(t, owner, models.Operation{Kind: models.KindSetTaxWallet, Wallet: &newWallet}))
	require.NoError(t, err)
	_, err = l.Submit(ctx, sign(t, owner, models.Operation{Kind: models.KindSetMaxTxAmount, Amount: uint256.NewInt(50)}))
	require.NoError(t, err)
	_, err = l.Submit(ctx, sign(t, owner, models.Operation{Kind: models.KindSetMaxWalletAmount, Amount: uint256.NewInt(500)}))
	require.NoError(t, err)

	info, err := l.Info()
	require.NoError(t, err)
	assert.Equal(t, uint8(3), info.TaxPercentage)
	assert.Equal(t, newWallet, info.TaxWallet)
	assert.Equal(t, uint64(5000), info.MaxTxAmount.Uint64())
	assert.Equal(t, uint64(50_000), info.MaxWalletAmount.Uint64())

	_, err = l.Submit(ctx, sign(t, owner, models.Operation{Kind: models.KindRenounceOwnership}))
	require.NoError(t, err)
	_, err = l.Submit(ctx, sign(t, owner, models.Operation{Kind: models.KindEnableTrading}))
	require.ErrorIs(t, err, token.ErrOwnershipRenounced)
	require.ErrorIs(t, err, token.ErrNotOwner)

	info, err = l.Info()
	require.NoError(t, err)
	assert.Equal(t, common.Address{}, info.Owner)
	assert.Equal(t, uint64(6), info.BlockNumber)
}

func TestSubmitRollsBackFailedCommit(t *testing.T) {
	ctx := context.Background()
	store := &flakyStore{MemoryLedgerStore: memory.NewMemoryLedgerStore()}
	pub := &recordingPublisher{}
	l := newTestLedger(t, store, WithPublisher(pub))
	owner, alice := newSigner(t), newSigner(t)

	_, err := l.Submit(ctx, sign(t, owner, deployOp()))
	require.NoError(t, err)

	store.fail = true
	_, err = l.Submit(ctx, sign(t, owner, transferOp(alice.Address(), 1000)))
	require.Error(t, err)
	assert.Equal(t, uint64(0), balance(t, l, alice.Address()))
	assert.Equal(t, uint64(100_000), balance(t, l, owner.Address()))
	assert.Len(t, pub.events, 1)

	store.fail = false
	r, err := l.Submit(ctx, sign(t, owner, transferOp(alice.Address(), 1000)))
	require.NoError(t, err)
	assert.Equal(t, uint64(2), r.BlockNumber)
}

func TestSubmitRollsBackDuringStoreOutage(t *testing.T) {
	ctx := context.Background()
	store := &outageStore{MemoryLedgerStore: memory.NewMemoryLedgerStore()}
	l := newTestLedger(t, store)
	owner, alice := newSigner(t), newSigner(t)

	_, err := l.Submit(ctx, sign(t, owner, deployOp()))
	require.NoError(t, err)

	store.down = true
	op := sign(t, owner, transferOp(alice.Address(), 1000))
	_, err = l.Submit(ctx, op)
	require.Error(t, err)
	assert.Equal(t, uint64(0), balance(t, l, alice.Address()))
	assert.Equal(t, uint64(100_000), balance(t, l, owner.Address()))

	// the same signed operation applies exactly once after recovery
	store.down = false
	r, err := l.Submit(ctx, op)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), r.BlockNumber)
	assert.Equal(t, uint64(950), balance(t, l, alice.Address()))
	assert.Equal(t, uint64(99_000), balance(t, l, owner.Address()))
	assert.Equal(t, uint64(50), balance(t, l, taxWallet))

	restarted := newTestLedger(t, store)
	assert.Equal(t, uint64(950), balance(t, restarted, alice.Address()))
	assert.Equal(t, uint64(99_000), balance(t, restarted, owner.Address()))
}

func TestFailedDeployLeavesLedgerUndeployed(t *testing.T) {
	ctx := context.Background()
	store := &outageStore{MemoryLedgerStore: memory.NewMemoryLedgerStore(), down: true}
	l := NewLedger(store, WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	owner := newSigner(t)

	deploy := sign(t, owner, deployOp())
	_, err := l.Submit(ctx, deploy)
	require.Error(t, err)
	_, err = l.Info()
	require.ErrorIs(t, err, models.ErrNotDeployed)

	store.down = false
	r, err := l.Submit(ctx, deploy)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), r.BlockNumber)
	assert.Equal(t, crypto.CreateAddress(owner.Address(), 0), r.Contract)
}

func TestPublishFailureDoesNotFailSubmit(t *testing.T) {
	ctx := context.Background()
	pub := &recordingPublisher{err: errors.New("broker down")}
	l := newTestLedger(t, memory.NewMemoryLedgerStore(), WithPublisher(pub), WithTopic("custom"))
	owner := newSigner(t)

	_, err := l.Submit(ctx, sign(t, owner, deployOp()))
	require.NoError(t, err)
	assert.Len(t, pub.events, 1)
}

func TestStartRestoresPersistedState(t *testing.T) {
	ctx := context.Background()
	store := memory.NewMemoryLedgerStore()
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	l := newTestLedger(t, store, WithClock(func() time.Time { return fixed }))
	owner, alice := newSigner(t), newSigner(t)

	_, err := l.Submit(ctx, sign(t, owner, deployOp()))
	require.NoError(t, err)
	r, err := l.Submit(ctx, sign(t, owner, transferOp(alice.Address(), 2000)))
	require.NoError(t, err)
	assert.Equal(t, fixed, r.CreatedAt)

	restarted := newTestLedger(t, store)
	info, err := restarted.Info()
	require.NoError(t, err)
	assert.Equal(t, uint64(2), info.BlockNumber)
	assert.Equal(t, crypto.CreateAddress(owner.Address(), 0), info.Contract)
	assert.Equal(t, uint64(1900), balance(t, restarted, alice.Address()))
	assert.Equal(t, uint64(100), balance(t, restarted, taxWallet))
}

func TestConcurrentSubmitsConserveSupply(t *testing.T) {
	ctx := context.Background()
	l := newTestLedger(t, memory.NewMemoryLedgerStore())
	owner := newSigner(t)

	_, err := l.Submit(ctx, sign(t, owner, deployOp()))
	require.NoError(t, err)

	recipients := make([]*signer.Signer, 8)
	for i := range recipients {
		recipients[i] = newSigner(t)
	}

	var wg sync.WaitGroup
	for _, rcpt := range recipients {
		wg.Add(1)
		go func(to common.Address) {
			defer wg.Done()
			for i := 0; i < 5; i++ {
				_, err := l.Submit(ctx, sign(t, owner, transferOp(to, 100)))
				assert.NoError(t, err)
			}
		}(rcpt.Address())
	}
	wg.Wait()

	total := balance(t, l, owner.Address()) + balance(t, l, taxWallet)
	for _, rcpt := range recipients {
		assert.Equal(t, uint64(475), balance(t, l, rcpt.Address()))
		total += balance(t, l, rcpt.Address())
	}
	assert.Equal(t, uint64(100_000), total)

	info, err := l.Info()
	require.NoError(t, err)
	assert.Equal(t, uint64(41), info.BlockNumber)
}

func TestZeroTransferPersistsNoBalances(t *testing.T) {
	ctx := context.Background()
	store := memory.NewMemoryLedgerStore()
	l := newTestLedger(t, store)
	owner, alice := newSigner(t), newSigner(t)

	_, err := l.Submit(ctx, sign(t, owner, deployOp()))
	require.NoError(t, err)
	r, err := l.Submit(ctx, sign(t, owner, transferOp(alice.Address(), 0)))
	require.NoError(t, err)
	require.Len(t, r.Transfers, 1)

	state, _, height, err := store.LoadState(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), height)
	assert.Len(t, state.Balances, 1)
	_, ok := state.Balances[alice.Address()]
	assert.False(t, ok)
}
