package ledger

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"
	"github.com/holiman/uint256"

	interfaces "github.com/sheikh-saqib/custom-token-ledger/internal/interfaces"
	"github.com/sheikh-saqib/custom-token-ledger/internal/models"
	"github.com/sheikh-saqib/custom-token-ledger/internal/models/events"
	"github.com/sheikh-saqib/custom-token-ledger/internal/signer"
	"github.com/sheikh-saqib/custom-token-ledger/internal/token"
	"github.com/sheikh-saqib/custom-token-ledger/internal/units"
)

// DefaultTopic is where transfer notifications are published.
const DefaultTopic = "token_transfers"

// Ledger hosts a single token deployment. It serializes every call against
// the token, persists each committed operation together with its receipt and
// publishes the resulting transfer notifications.
type Ledger struct {
	store     interfaces.LedgerStore // where commits go; any LedgerStore implementation
	publisher interfaces.EventPublisher
	topic     string
	logger    *slog.Logger
	now       func() time.Time

	mu       sync.Mutex // one operation at a time, reads included
	token    *token.Token
	contract common.Address
	height   uint64
}

// Option configures a Ledger instance.
type Option func(*Ledger)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) { l.logger = logger }
}

// WithPublisher sets where transfer notifications go. Without one they are
// only persisted.
func WithPublisher(p interfaces.EventPublisher) Option {
	return func(l *Ledger) { l.publisher = p }
}

// WithTopic overrides DefaultTopic.
func WithTopic(topic string) Option {
	return func(l *Ledger) { l.topic = topic }
}

// WithClock sets the time source used for receipts.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// NewLedger creates a Ledger on top of store. Call Start before use.
func NewLedger(store interfaces.LedgerStore, opts ...Option) *Ledger {
	l := &Ledger{
		store:  store,
		topic:  DefaultTopic,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Start loads the persisted deployment, if there is one.
func (l *Ledger) Start(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.reload(ctx); err != nil {
		return err
	}
	if l.token == nil {
		l.logger.Info("ledger started", "deployed", false)
		return nil
	}
	l.logger.Info("ledger started",
		"deployed", true,
		"contract", l.contract.Hex(),
		"symbol", l.token.Symbol(),
		"block", l.height,
	)
	return nil
}

// Close releases the publisher and the store.
func (l *Ledger) Close() error {
	var errs []error
	if l.publisher != nil {
		errs = append(errs, l.publisher.Close())
	}
	errs = append(errs, l.store.Close())
	return errors.Join(errs...)
}

// reload replaces the in-memory token with the persisted one.
func (l *Ledger) reload(ctx context.Context) error {
	state, contract, height, err := l.store.LoadState(ctx)
	if errors.Is(err, interfaces.ErrNotFound) {
		l.token, l.contract, l.height = nil, common.Address{}, 0
		return nil
	}
	if err != nil {
		return err
	}
	l.token, l.contract, l.height = token.Restore(state), contract, height
	return nil
}

// checkpoint captures the in-memory state and returns a func restoring it.
// The store is not consulted, so a rollback works during a store outage.
func (l *Ledger) checkpoint() func() {
	var snap *token.State
	if l.token != nil {
		snap = l.token.Snapshot()
	}
	contract, height := l.contract, l.height
	return func() {
		if snap == nil {
			l.token = nil
		} else {
			l.token = token.Restore(snap)
		}
		l.contract, l.height = contract, height
	}
}

// Submit verifies, executes and commits a signed operation and returns its
// receipt. Resubmitting an operation that was already committed returns the
// original receipt. A rejected operation leaves the ledger unchanged.
func (l *Ledger) Submit(ctx context.Context, signed models.SignedOperation) (*models.Receipt, error) {
	sender, hash, err := signer.Sender(signed)
	if err != nil || sender != signed.Operation.From {
		return nil, models.ErrInvalidSignature
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	// Idempotency check
	existing, err := l.store.ReceiptByHash(ctx, hash)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, interfaces.ErrNotFound) {
		return nil, err
	}

	op := signed.Operation
	rollback := l.checkpoint()
	transfers, err := l.apply(sender, op)
	if err != nil {
		l.logger.Debug("operation rejected", "tx", hash.Hex(), "kind", op.Kind, "from", sender.Hex(), "error", err)
		return nil, err
	}

	receipt := l.newReceipt(hash, sender, op.Kind, transfers)
	commit := models.Commit{
		Contract: l.contract,
		Config:   l.token.Config(),
		Balances: make(map[common.Address]*uint256.Int),
		Receipt:  receipt,
	}
	for _, addr := range token.Accounts(transfers) {
		commit.Balances[addr] = l.token.BalanceOf(addr)
	}

	if err := l.store.SaveCommit(ctx, commit); err != nil {
		l.logger.Error("failed to persist operation", "tx", hash.Hex(), "kind", op.Kind, "error", err)
		rollback()
		return nil, err
	}
	l.height = receipt.BlockNumber

	l.logger.Info("operation committed",
		"tx", hash.Hex(),
		"kind", op.Kind,
		"from", sender.Hex(),
		"block", receipt.BlockNumber,
		"transfers", len(receipt.Transfers),
	)

	l.publish(ctx, receipt)
	return &receipt, nil
}

// apply dispatches op to the token. On error nothing has changed.
func (l *Ledger) apply(sender common.Address, op models.Operation) ([]token.Transfer, error) {
	if op.Kind == models.KindDeploy {
		return l.deploy(sender, op.Deploy)
	}
	if l.token == nil {
		return nil, models.ErrNotDeployed
	}

	switch op.Kind {
	case models.KindTransfer:
		if op.To == nil || op.Amount == nil {
			return nil, models.ErrInvalidParams
		}
		return l.token.Transfer(sender, *op.To, op.Amount)
	case models.KindSetTaxPercentage:
		if op.TaxPercentage == nil {
			return nil, models.ErrInvalidParams
		}
		return nil, l.token.SetTaxPercentage(sender, *op.TaxPercentage)
	case models.KindSetTaxWallet:
		if op.Wallet == nil {
			return nil, models.ErrInvalidParams
		}
		return nil, l.token.SetTaxWallet(sender, *op.Wallet)
	case models.KindSetMaxTxAmount:
		if op.Amount == nil {
			return nil, models.ErrInvalidParams
		}
		return nil, l.token.SetMaxTxAmount(sender, op.Amount)
	case models.KindSetMaxWalletAmount:
		if op.Amount == nil {
			return nil, models.ErrInvalidParams
		}
		return nil, l.token.SetMaxWalletAmount(sender, op.Amount)
	case models.KindEnableTrading:
		return nil, l.token.EnableTrading(sender)
	case models.KindRenounceOwnership:
		return nil, l.token.RenounceOwnership(sender)
	}
	return nil, models.ErrUnknownOperation
}

func (l *Ledger) deploy(sender common.Address, p *models.DeployParams) ([]token.Transfer, error) {
	if l.token != nil {
		return nil, models.ErrAlreadyDeployed
	}
	if p == nil {
		return nil, models.ErrInvalidParams
	}
	tk, mint, err := token.New(sender, token.Params{
		Name:            p.Name,
		Symbol:          p.Symbol,
		InitialSupply:   p.InitialSupply,
		TaxPercentage:   p.TaxPercentage,
		TaxWallet:       p.TaxWallet,
		MaxTxAmount:     p.MaxTxAmount,
		MaxWalletAmount: p.MaxWalletAmount,
		Decimals:        p.Decimals,
	})
	if err != nil {
		return nil, err
	}
	l.token = tk
	l.contract = crypto.CreateAddress(sender, 0)
	return mint, nil
}

func (l *Ledger) newReceipt(hash common.Hash, sender common.Address, kind models.Kind, transfers []token.Transfer) models.Receipt {
	now := l.now().UTC()
	r := models.Receipt{
		TxHash:      hash,
		BlockNumber: l.height + 1,
		Kind:        kind,
		From:        sender,
		Contract:    l.contract,
		CreatedAt:   now,
		Transfers:   make([]models.TransferRecord, 0, len(transfers)),
	}
	for i, tr := range transfers {
		r.Transfers = append(r.Transfers, models.TransferRecord{
			TxHash:      hash,
			BlockNumber: r.BlockNumber,
			Index:       i,
			From:        tr.From,
			To:          tr.To,
			Amount:      tr.Amount,
			CreatedAt:   now,
		})
	}
	return r
}

// publish fans out the receipt's transfers in order. The commit is already
// durable, so failures are logged and not returned.
func (l *Ledger) publish(ctx context.Context, r models.Receipt) {
	if l.publisher == nil {
		return
	}
	decimals := l.token.Decimals()
	for _, tr := range r.Transfers {
		event := events.TransferCompleted{
			EventID:       uuid.New().String(),
			TransactionID: r.TxHash.Hex(),
			BlockNumber:   r.BlockNumber,
			Index:         tr.Index,
			Contract:      r.Contract.Hex(),
			FromAccount:   tr.From.Hex(),
			ToAccount:     tr.To.Hex(),
			Amount:        units.Decimal(tr.Amount),
			DisplayAmount: units.Format(tr.Amount, decimals),
			OccurredAt:    tr.CreatedAt,
		}
		if err := l.publisher.Publish(ctx, l.topic, r.TxHash.Hex(), event); err != nil {
			l.logger.Warn("failed to publish transfer", "tx", r.TxHash.Hex(), "index", tr.Index, "error", err)
		}
	}
}

// Info returns the token's configuration. It fails with ErrNotDeployed
// before the deploy operation is committed.
func (l *Ledger) Info() (models.TokenInfo, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.token == nil {
		return models.TokenInfo{}, models.ErrNotDeployed
	}
	t := l.token
	return models.TokenInfo{
		Contract:        l.contract,
		Name:            t.Name(),
		Symbol:          t.Symbol(),
		Decimals:        t.Decimals(),
		TotalSupply:     t.TotalSupply(),
		Owner:           t.Owner(),
		TaxWallet:       t.TaxWallet(),
		TaxPercentage:   t.TaxPercentage(),
		MaxTxAmount:     t.MaxTxAmount(),
		MaxWalletAmount: t.MaxWalletAmount(),
		TradingEnabled:  t.TradingEnabled(),
		BlockNumber:     l.height,
	}, nil
}

// BalanceOf returns the balance of account in smallest units.
func (l *Ledger) BalanceOf(account common.Address) (*uint256.Int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.token == nil {
		return nil, models.ErrNotDeployed
	}
	return l.token.BalanceOf(account), nil
}

// Receipt returns the receipt of a committed operation or
// interfaces.ErrNotFound.
func (l *Ledger) Receipt(ctx context.Context, hash common.Hash) (*models.Receipt, error) {
	return l.store.ReceiptByHash(ctx, hash)
}

// Transfers returns the transfer history, optionally filtered to the
// transfers that debit or credit account.
func (l *Ledger) Transfers(ctx context.Context, account *common.Address) ([]models.TransferRecord, error) {
	if account == nil {
		return l.store.Transfers(ctx)
	}
	return l.store.TransfersByAccount(ctx, *account)
}
