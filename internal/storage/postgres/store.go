package postgres

import (
	"context"
	"database/sql"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	_ "github.com/lib/pq" // registers the "postgres" driver
	"github.com/pkg/errors"

	interfaces "github.com/sheikh-saqib/custom-token-ledger/internal/interfaces" // interface LedgerStore
	"github.com/sheikh-saqib/custom-token-ledger/internal/models"
	"github.com/sheikh-saqib/custom-token-ledger/internal/token"
)

type PostgresLedgerStore struct {
	db *sql.DB
}

func NewPostgresLedgerStore(db *sql.DB) *PostgresLedgerStore {
	return &PostgresLedgerStore{
		db: db,
	}
}

// Open connects to dsn and verifies the connection.
func Open(ctx context.Context, dsn string) (*PostgresLedgerStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "open postgres")
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "ping postgres")
	}
	return NewPostgresLedgerStore(db), nil
}

func (p *PostgresLedgerStore) Migrate(ctx context.Context) error {
	for _, stmt := range migrations {
		if _, err := p.db.ExecContext(ctx, stmt); err != nil {
			return errors.Wrap(err, "migrate")
		}
	}
	return nil
}

func (p *PostgresLedgerStore) LoadState(ctx context.Context) (*token.State, common.Address, uint64, error) {
	const configQuery = `SELECT contract, name, symbol, decimals, total_supply, owner, tax_percentage,
	tax_wallet, max_tx_amount, max_wallet_amount, trading_enabled, block_number
	FROM token_config WHERE id = 1`

	var (
		contract, owner, taxWallet string
		supply, maxTx, maxWallet   string
		decimals, taxPercentage    int
		height                     int64
		cfg                        token.Config
	)
	err := p.db.QueryRowContext(ctx, configQuery).Scan(
		&contract, &cfg.Name, &cfg.Symbol, &decimals, &supply, &owner, &taxPercentage,
		&taxWallet, &maxTx, &maxWallet, &cfg.TradingEnabled, &height,
	)
	if err == sql.ErrNoRows {
		return nil, common.Address{}, 0, interfaces.ErrNotFound
	}
	if err != nil {
		return nil, common.Address{}, 0, errors.Wrap(err, "load token config")
	}

	cfg.Decimals = uint8(decimals)
	cfg.TaxPercentage = uint8(taxPercentage)
	cfg.Owner = common.HexToAddress(owner)
	cfg.TaxWallet = common.HexToAddress(taxWallet)
	if cfg.TotalSupply, err = parseAmount(supply); err != nil {
		return nil, common.Address{}, 0, err
	}
	if cfg.MaxTxAmount, err = parseAmount(maxTx); err != nil {
		return nil, common.Address{}, 0, err
	}
	if cfg.MaxWalletAmount, err = parseAmount(maxWallet); err != nil {
		return nil, common.Address{}, 0, err
	}

	rows, err := p.db.QueryContext(ctx, `SELECT address, amount FROM balances`)
	if err != nil {
		return nil, common.Address{}, 0, errors.Wrap(err, "load balances")
	}
	defer rows.Close()

	balances := make(map[common.Address]*uint256.Int)
	for rows.Next() {
		var addr, amount string
		if err := rows.Scan(&addr, &amount); err != nil {
			return nil, common.Address{}, 0, errors.Wrap(err, "scan balance")
		}
		b, err := parseAmount(amount)
		if err != nil {
			return nil, common.Address{}, 0, err
		}
		balances[common.HexToAddress(addr)] = b
	}
	if err := rows.Err(); err != nil {
		return nil, common.Address{}, 0, errors.Wrap(err, "load balances")
	}

	return &token.State{Config: cfg, Balances: balances}, common.HexToAddress(contract), uint64(height), nil
}

// SaveCommit writes the configuration, touched balances, receipt and transfer
// records in one SQL transaction.
func (p *PostgresLedgerStore) SaveCommit(ctx context.Context, commit models.Commit) (err error) {
	dbTx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin commit")
	}

	defer func() {
		if err != nil {
			dbTx.Rollback()
		}
	}()

	if err = saveConfig(ctx, dbTx, commit); err != nil {
		return err
	}
	for addr, b := range commit.Balances {
		if err = saveBalance(ctx, dbTx, addr, b); err != nil {
			return err
		}
	}
	if err = saveReceipt(ctx, dbTx, commit.Receipt); err != nil {
		return err
	}
	for _, tr := range commit.Receipt.Transfers {
		if err = saveTransfer(ctx, dbTx, tr); err != nil {
			return err
		}
	}

	if err = dbTx.Commit(); err != nil {
		return errors.Wrap(err, "commit")
	}
	return nil
}

func saveConfig(ctx context.Context, dbTx *sql.Tx, commit models.Commit) error {
	const query = `INSERT INTO token_config (id, contract, name, symbol, decimals, total_supply, owner,
	tax_percentage, tax_wallet, max_tx_amount, max_wallet_amount, trading_enabled, block_number)
	VALUES (1, $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	ON CONFLICT (id) DO UPDATE SET
		owner = EXCLUDED.owner,
		tax_percentage = EXCLUDED.tax_percentage,
		tax_wallet = EXCLUDED.tax_wallet,
		max_tx_amount = EXCLUDED.max_tx_amount,
		max_wallet_amount = EXCLUDED.max_wallet_amount,
		trading_enabled = EXCLUDED.trading_enabled,
		block_number = EXCLUDED.block_number`

	c := commit.Config
	_, err := dbTx.ExecContext(ctx, query,
		commit.Contract.Hex(), c.Name, c.Symbol, int(c.Decimals), c.TotalSupply.Dec(), c.Owner.Hex(),
		int(c.TaxPercentage), c.TaxWallet.Hex(), c.MaxTxAmount.Dec(), c.MaxWalletAmount.Dec(),
		c.TradingEnabled, int64(commit.Receipt.BlockNumber),
	)
	return errors.Wrap(err, "save token config")
}

func saveBalance(ctx context.Context, dbTx *sql.Tx, addr common.Address, amount *uint256.Int) error {
	const query = `INSERT INTO balances (address, amount) VALUES ($1, $2)
	ON CONFLICT (address) DO UPDATE SET amount = EXCLUDED.amount`

	_, err := dbTx.ExecContext(ctx, query, addr.Hex(), amount.Dec())
	return errors.Wrapf(err, "save balance %s", addr.Hex())
}

func saveReceipt(ctx context.Context, dbTx *sql.Tx, r models.Receipt) error {
	const query = `INSERT INTO receipts (tx_hash, block_number, kind, from_account, contract, created_at)
	VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := dbTx.ExecContext(ctx, query, r.TxHash.Hex(), int64(r.BlockNumber), string(r.Kind), r.From.Hex(), r.Contract.Hex(), r.CreatedAt)
	return errors.Wrap(err, "save receipt")
}

func saveTransfer(ctx context.Context, dbTx *sql.Tx, tr models.TransferRecord) error {
	const query = `INSERT INTO transfers (tx_hash, idx, block_number, from_account, to_account, amount, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := dbTx.ExecContext(ctx, query, tr.TxHash.Hex(), tr.Index, int64(tr.BlockNumber), tr.From.Hex(), tr.To.Hex(), tr.Amount.Dec(), tr.CreatedAt)
	return errors.Wrap(err, "save transfer")
}

func (p *PostgresLedgerStore) ReceiptByHash(ctx context.Context, hash common.Hash) (*models.Receipt, error) {
	const query = `SELECT block_number, kind, from_account, contract, created_at FROM receipts WHERE tx_hash = $1`

	r := models.Receipt{TxHash: hash}
	var (
		height         int64
		kind           string
		from, contract string
	)
	err := p.db.QueryRowContext(ctx, query, hash.Hex()).Scan(&height, &kind, &from, &contract, &r.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, interfaces.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "load receipt")
	}
	r.BlockNumber = uint64(height)
	r.Kind = models.Kind(kind)
	r.From = common.HexToAddress(from)
	r.Contract = common.HexToAddress(contract)

	r.Transfers, err = p.queryTransfers(ctx, `SELECT tx_hash, idx, block_number, from_account, to_account, amount, created_at
	FROM transfers WHERE tx_hash = $1 ORDER BY idx`, hash.Hex())
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (p *PostgresLedgerStore) Transfers(ctx context.Context) ([]models.TransferRecord, error) {
	return p.queryTransfers(ctx, `SELECT tx_hash, idx, block_number, from_account, to_account, amount, created_at
	FROM transfers ORDER BY block_number, idx`)
}

func (p *PostgresLedgerStore) TransfersByAccount(ctx context.Context, account common.Address) ([]models.TransferRecord, error) {
	return p.queryTransfers(ctx, `SELECT tx_hash, idx, block_number, from_account, to_account, amount, created_at
	FROM transfers WHERE from_account = $1 OR to_account = $1 ORDER BY block_number, idx`, account.Hex())
}

func (p *PostgresLedgerStore) queryTransfers(ctx context.Context, query string, args ...any) ([]models.TransferRecord, error) {
	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "query transfers")
	}

	defer rows.Close()

	var records []models.TransferRecord

	for rows.Next() {
		var (
			tr                  models.TransferRecord
			hash, from, to, amt string
			height              int64
		)
		if err := rows.Scan(&hash, &tr.Index, &height, &from, &to, &amt, &tr.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "scan transfer")
		}
		tr.TxHash = common.HexToHash(hash)
		tr.BlockNumber = uint64(height)
		tr.From = common.HexToAddress(from)
		tr.To = common.HexToAddress(to)
		if tr.Amount, err = parseAmount(amt); err != nil {
			return nil, err
		}
		records = append(records, tr)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "query transfers")
	}
	return records, nil
}

func (p *PostgresLedgerStore) Close() error {
	return p.db.Close()
}

func parseAmount(s string) (*uint256.Int, error) {
	v, err := uint256.FromDecimal(s)
	if err != nil {
		return nil, errors.Wrapf(err, "parse amount %q", s)
	}
	return v, nil
}

var _ interfaces.LedgerStore = (*PostgresLedgerStore)(nil)
