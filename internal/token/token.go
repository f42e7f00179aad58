// Package token implements a fungible-token ledger with a transfer tax,
// per-transaction and per-wallet caps, and an owner-controlled trading switch.
//
// A Token is not safe for concurrent use. The host is expected to serialize
// calls so that each operation, including the notifications it returns, is
// fully observed before the next one starts.
package token

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// MaxTaxPercentage is the upper bound for the transfer tax.
const MaxTaxPercentage uint8 = 10

var hundred = uint256.NewInt(100)

// Params are the construction-time parameters. InitialSupply, MaxTxAmount and
// MaxWalletAmount are given in whole tokens and scaled by 10^Decimals once.
type Params struct {
	Name            string
	Symbol          string
	InitialSupply   *uint256.Int
	TaxPercentage   uint8
	TaxWallet       common.Address
	MaxTxAmount     *uint256.Int
	MaxWalletAmount *uint256.Int
	Decimals        uint8
}

// Transfer is a transfer-completed notification.
type Transfer struct {
	From   common.Address
	To     common.Address
	Amount *uint256.Int
}

// Token is the ledger: balances, total supply and the administrative
// configuration that governs transfers.
type Token struct {
	name     string
	symbol   string
	decimals uint8

	totalSupply *uint256.Int
	balances    map[common.Address]*uint256.Int

	owner           common.Address
	taxPercentage   uint8
	taxWallet       common.Address
	maxTxAmount     *uint256.Int
	maxWalletAmount *uint256.Int
	tradingEnabled  bool
}

// New creates a token owned by owner and mints the whole initial supply to
// it. The mint is reported as a transfer from the zero address.
func New(owner common.Address, p Params) (*Token, []Transfer, error) {
	if owner == (common.Address{}) {
		return nil, nil, ErrZeroOwner
	}
	if p.TaxWallet == (common.Address{}) {
		return nil, nil, ErrZeroAddress
	}
	if p.TaxPercentage > MaxTaxPercentage {
		return nil, nil, ErrTaxTooHigh
	}

	supply, err := Scale(orZero(p.InitialSupply), p.Decimals)
	if err != nil {
		return nil, nil, err
	}
	maxTx, err := Scale(orZero(p.MaxTxAmount), p.Decimals)
	if err != nil {
		return nil, nil, err
	}
	maxWallet, err := Scale(orZero(p.MaxWalletAmount), p.Decimals)
	if err != nil {
		return nil, nil, err
	}

	t := &Token{
		name:            p.Name,
		symbol:          p.Symbol,
		decimals:        p.Decimals,
		totalSupply:     supply,
		balances:        make(map[common.Address]*uint256.Int),
		owner:           owner,
		taxPercentage:   p.TaxPercentage,
		taxWallet:       p.TaxWallet,
		maxTxAmount:     maxTx,
		maxWalletAmount: maxWallet,
	}
	t.balances[owner] = supply.Clone()

	mint := Transfer{From: common.Address{}, To: owner, Amount: supply.Clone()}
	return t, []Transfer{mint}, nil
}

// Transfer moves amount (smallest units) from sender to recipient, diverting
// the tax share to the tax wallet. On failure no balance changes.
func (t *Token) Transfer(sender, recipient common.Address, amount *uint256.Int) ([]Transfer, error) {
	amount = orZero(amount)

	if recipient == (common.Address{}) {
		return nil, ErrInvalidRecipient
	}
	senderBalance := t.balance(sender)
	if senderBalance.Lt(amount) {
		return nil, ErrInsufficientBalance
	}

	// The owner may seed accounts before launch and is not bound by maxTx.
	// The wallet cap below applies to every sender.
	isOwner := sender == t.owner
	if !isOwner && !t.tradingEnabled {
		return nil, ErrTradingDisabled
	}
	if !isOwner && amount.Gt(t.maxTxAmount) {
		return nil, ErrExceedsMaxTransaction
	}

	tax, overflow := new(uint256.Int).MulDivOverflow(amount, uint256.NewInt(uint64(t.taxPercentage)), hundred)
	if overflow {
		return nil, ErrOverflow
	}
	net := new(uint256.Int).Sub(amount, tax)

	projected, overflow := new(uint256.Int).AddOverflow(t.balance(recipient), net)
	if overflow || projected.Gt(t.maxWalletAmount) {
		return nil, ErrExceedsMaxWallet
	}

	// Zero transfers notify but never create balance entries.
	if amount.IsZero() {
		return []Transfer{{From: sender, To: recipient, Amount: new(uint256.Int)}}, nil
	}

	t.balances[sender] = new(uint256.Int).Sub(senderBalance, amount)
	if !tax.IsZero() {
		t.balances[t.taxWallet] = new(uint256.Int).Add(t.balance(t.taxWallet), tax)
	}
	t.balances[recipient] = new(uint256.Int).Add(t.balance(recipient), net)

	if tax.IsZero() {
		return []Transfer{{From: sender, To: recipient, Amount: amount.Clone()}}, nil
	}
	return []Transfer{
		{From: sender, To: t.taxWallet, Amount: tax},
		{From: sender, To: recipient, Amount: net.Clone()},
	}, nil
}

// SetTaxPercentage updates the transfer tax. p must not exceed MaxTaxPercentage.
func (t *Token) SetTaxPercentage(caller common.Address, p uint8) error {
	if err := t.onlyOwner(caller); err != nil {
		return err
	}
	if p > MaxTaxPercentage {
		return ErrTaxTooHigh
	}
	t.taxPercentage = p
	return nil
}

// SetTaxWallet updates the account that receives the tax share.
func (t *Token) SetTaxWallet(caller, wallet common.Address) error {
	if err := t.onlyOwner(caller); err != nil {
		return err
	}
	if wallet == (common.Address{}) {
		return ErrZeroAddress
	}
	t.taxWallet = wallet
	return nil
}

// SetMaxTxAmount sets the per-transaction cap, given in whole tokens.
func (t *Token) SetMaxTxAmount(caller common.Address, whole *uint256.Int) error {
	if err := t.onlyOwner(caller); err != nil {
		return err
	}
	v, err := Scale(orZero(whole), t.decimals)
	if err != nil {
		return err
	}
	t.maxTxAmount = v
	return nil
}

// SetMaxWalletAmount sets the per-wallet cap, given in whole tokens.
func (t *Token) SetMaxWalletAmount(caller common.Address, whole *uint256.Int) error {
	if err := t.onlyOwner(caller); err != nil {
		return err
	}
	v, err := Scale(orZero(whole), t.decimals)
	if err != nil {
		return err
	}
	t.maxWalletAmount = v
	return nil
}

// EnableTrading opens the trading gate. Calling it again is a no-op.
func (t *Token) EnableTrading(caller common.Address) error {
	if err := t.onlyOwner(caller); err != nil {
		return err
	}
	t.tradingEnabled = true
	return nil
}

// RenounceOwnership clears the owner. Every administrative operation fails
// afterwards.
func (t *Token) RenounceOwnership(caller common.Address) error {
	if err := t.onlyOwner(caller); err != nil {
		return err
	}
	t.owner = common.Address{}
	return nil
}

func (t *Token) onlyOwner(caller common.Address) error {
	if t.owner == (common.Address{}) {
		return ErrOwnershipRenounced
	}
	if caller != t.owner {
		return ErrNotOwner
	}
	return nil
}

// balance returns the stored balance or zero. The result must not be mutated.
func (t *Token) balance(addr common.Address) *uint256.Int {
	if b, ok := t.balances[addr]; ok {
		return b
	}
	return new(uint256.Int)
}

// Name returns the token name.
func (t *Token) Name() string { return t.name }

// Symbol returns the ticker symbol.
func (t *Token) Symbol() string { return t.symbol }

// Decimals returns the number of decimals used for unit scaling.
func (t *Token) Decimals() uint8 { return t.decimals }

// TotalSupply returns the total supply in smallest units.
func (t *Token) TotalSupply() *uint256.Int { return t.totalSupply.Clone() }

// BalanceOf returns the balance of a, zero for unknown accounts.
func (t *Token) BalanceOf(a common.Address) *uint256.Int { return t.balance(a).Clone() }

// Owner returns the administrative account, the zero address once renounced.
func (t *Token) Owner() common.Address { return t.owner }

func (t *Token) TaxWallet() common.Address { return t.taxWallet }

func (t *Token) TaxPercentage() uint8 { return t.taxPercentage }

func (t *Token) MaxTxAmount() *uint256.Int { return t.maxTxAmount.Clone() }

func (t *Token) MaxWalletAmount() *uint256.Int { return t.maxWalletAmount.Clone() }

func (t *Token) TradingEnabled() bool { return t.tradingEnabled }

func orZero(v *uint256.Int) *uint256.Int {
	if v == nil {
		return new(uint256.Int)
	}
	return v
}
