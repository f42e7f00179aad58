package models

import (
	"encoding/json"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
)

// Kind names the ledger call an operation performs.
type Kind string

const (
	KindDeploy             Kind = "deploy"
	KindTransfer           Kind = "transfer"
	KindSetTaxPercentage   Kind = "setTaxPercentage"
	KindSetTaxWallet       Kind = "setTaxWallet"
	KindSetMaxTxAmount     Kind = "setMaxTxAmount"
	KindSetMaxWalletAmount Kind = "setMaxWalletAmount"
	KindEnableTrading      Kind = "enableTrading"
	KindRenounceOwnership  Kind = "renounceOwnership"
)

// DeployParams are the construction parameters of a token. Supply and caps
// are in whole tokens.
type DeployParams struct {
	Name            string         `json:"name"`
	Symbol          string         `json:"symbol"`
	InitialSupply   *uint256.Int   `json:"initialSupply"`
	TaxPercentage   uint8          `json:"taxPercentage"`
	TaxWallet       common.Address `json:"taxWallet"`
	MaxTxAmount     *uint256.Int   `json:"maxTxAmount"`
	MaxWalletAmount *uint256.Int   `json:"maxWalletAmount"`
	Decimals        uint8          `json:"decimals"`
}

// Operation represents an intent to call the ledger. Only the fields that
// belong to Kind are set.
type Operation struct {
	Kind  Kind           `json:"kind"`
	From  common.Address `json:"from"`
	Nonce string         `json:"nonce"`

	To            *common.Address `json:"to,omitempty"`            // transfer
	Amount        *uint256.Int    `json:"amount,omitempty"`        // transfer (smallest units), setMax* (whole tokens)
	TaxPercentage *uint8          `json:"taxPercentage,omitempty"` // setTaxPercentage
	Wallet        *common.Address `json:"wallet,omitempty"`        // setTaxWallet
	Deploy        *DeployParams   `json:"deploy,omitempty"`        // deploy
}

// Hash is the keccak256 of the operation's JSON encoding. It identifies the
// transaction and is what gets signed.
func (op Operation) Hash() (common.Hash, error) {
	data, err := json.Marshal(op)
	if err != nil {
		return common.Hash{}, err
	}
	return crypto.Keccak256Hash(data), nil
}

// SignedOperation is an operation together with its sender's signature.
type SignedOperation struct {
	Operation Operation `json:"operation"`
	Signature []byte    `json:"signature"`
}
