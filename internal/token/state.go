package token

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Config is the administrative half of a token's state. All amounts are in
// smallest units.
type Config struct {
	Name            string
	Symbol          string
	Decimals        uint8
	TotalSupply     *uint256.Int
	Owner           common.Address
	TaxPercentage   uint8
	TaxWallet       common.Address
	MaxTxAmount     *uint256.Int
	MaxWalletAmount *uint256.Int
	TradingEnabled  bool
}

// State is a full snapshot of a token, used to persist and reload it.
type State struct {
	Config   Config
	Balances map[common.Address]*uint256.Int
}

// Config returns a copy of the current configuration.
func (t *Token) Config() Config {
	return Config{
		Name:            t.name,
		Symbol:          t.symbol,
		Decimals:        t.decimals,
		TotalSupply:     t.totalSupply.Clone(),
		Owner:           t.owner,
		TaxPercentage:   t.taxPercentage,
		TaxWallet:       t.taxWallet,
		MaxTxAmount:     t.maxTxAmount.Clone(),
		MaxWalletAmount: t.maxWalletAmount.Clone(),
		TradingEnabled:  t.tradingEnabled,
	}
}

// Snapshot returns a deep copy of the token's state.
func (t *Token) Snapshot() *State {
	balances := make(map[common.Address]*uint256.Int, len(t.balances))
	for addr, b := range t.balances {
		balances[addr] = b.Clone()
	}
	return &State{Config: t.Config(), Balances: balances}
}

// Restore rebuilds a token from a snapshot. The snapshot is copied.
func Restore(s *State) *Token {
	c := s.Config
	t := &Token{
		name:            c.Name,
		symbol:          c.Symbol,
		decimals:        c.Decimals,
		totalSupply:     orZero(c.TotalSupply).Clone(),
		balances:        make(map[common.Address]*uint256.Int, len(s.Balances)),
		owner:           c.Owner,
		taxPercentage:   c.TaxPercentage,
		taxWallet:       c.TaxWallet,
		maxTxAmount:     orZero(c.MaxTxAmount).Clone(),
		maxWalletAmount: orZero(c.MaxWalletAmount).Clone(),
		tradingEnabled:  c.TradingEnabled,
	}
	for addr, b := range s.Balances {
		t.balances[addr] = orZero(b).Clone()
	}
	return t
}

// Accounts returns the accounts whose balances a set of notifications moved,
// without the zero address and without duplicates, in first-seen order.
// Zero-amount notifications move nothing and are skipped.
func Accounts(transfers []Transfer) []common.Address {
	seen := make(map[common.Address]bool)
	var out []common.Address
	for _, tr := range transfers {
		if tr.Amount == nil || tr.Amount.IsZero() {
			continue
		}
		for _, a := range []common.Address{tr.From, tr.To} {
			if a == (common.Address{}) || seen[a] {
				continue
			}
			seen[a] = true
			out = append(out, a)
		}
	}
	return out
}
