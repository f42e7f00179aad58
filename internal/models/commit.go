package models

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/sheikh-saqib/custom-token-ledger/internal/token"
)

// Commit is everything a store writes for one committed operation: the
// token configuration after the call, the balances it touched and the receipt.
type Commit struct {
	Contract common.Address
	Config   token.Config
	Balances map[common.Address]*uint256.Int
	Receipt  Receipt
}

// TokenInfo is the read-only view of a deployed token.
type TokenInfo struct {
	Contract        common.Address `json:"contractAddress"`
	Name            string         `json:"name"`
	Symbol          string         `json:"symbol"`
	Decimals        uint8          `json:"decimals"`
	TotalSupply     *uint256.Int   `json:"totalSupply"`
	Owner           common.Address `json:"owner"`
	TaxWallet       common.Address `json:"taxWallet"`
	TaxPercentage   uint8          `json:"taxPercentage"`
	MaxTxAmount     *uint256.Int   `json:"maxTxAmount"`
	MaxWalletAmount *uint256.Int   `json:"maxWalletAmount"`
	TradingEnabled  bool           `json:"tradingEnabled"`
	BlockNumber     uint64         `json:"blockNumber"`
}
