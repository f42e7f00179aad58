package memory

import (
	"testing"

	"github.com/sheikh-saqib/custom-token-ledger/internal/storage/storetest"
)

func TestMemoryLedgerStore(t *testing.T) {
	storetest.Run(t, NewMemoryLedgerStore())
}
