package events

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransferCompleted is published once per transfer notification, in the
// order the ledger emitted them.
type TransferCompleted struct {
	EventID       string          `json:"event_id"`
	TransactionID string          `json:"transaction_id"`
	BlockNumber   uint64          `json:"block_number"`
	Index         int             `json:"index"`
	Contract      string          `json:"contract"`
	FromAccount   string          `json:"from_account"`
	ToAccount     string          `json:"to_account"`
	Amount        decimal.Decimal `json:"amount"` // smallest units
	DisplayAmount string          `json:"display_amount"`
	OccurredAt    time.Time       `json:"occurred_at"`
}
