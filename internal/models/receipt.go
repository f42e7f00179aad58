package models

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// TransferRecord is a committed transfer-completed notification.
type TransferRecord struct {
	TxHash      common.Hash    `json:"transactionHash"`
	BlockNumber uint64         `json:"blockNumber"`
	Index       int            `json:"index"` // position within the transaction
	From        common.Address `json:"from"`
	To          common.Address `json:"to"`
	Amount      *uint256.Int   `json:"amount"` // smallest units
	CreatedAt   time.Time      `json:"createdAt"`
}

// Receipt confirms that an operation was committed in a block.
type Receipt struct {
	TxHash      common.Hash      `json:"transactionHash"`
	BlockNumber uint64           `json:"blockNumber"`
	Kind        Kind             `json:"kind"`
	From        common.Address   `json:"from"`
	Contract    common.Address   `json:"contractAddress"`
	Transfers   []TransferRecord `json:"transfers"`
	CreatedAt   time.Time        `json:"createdAt"`
}
