package operator

import (
	"context"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/google/uuid"

	"github.com/sheikh-saqib/custom-token-ledger/internal/client"
	"github.com/sheikh-saqib/custom-token-ledger/internal/models"
	"github.com/sheikh-saqib/custom-token-ledger/internal/signer"
)

var (
	hashColor  = color.New(color.FgCyan)
	blockColor = color.New(color.FgGreen)
)

// Execute signs op, submits it and waits for its receipt, reporting the
// transaction hash and then the confirming block on out.
func Execute(ctx context.Context, c *client.Client, s *signer.Signer, op models.Operation, out io.Writer) (*models.Receipt, error) {
	op.Nonce = uuid.NewString()
	signed, err := s.Sign(op)
	if err != nil {
		return nil, err
	}

	pending, err := c.Submit(ctx, signed)
	if err != nil {
		return nil, err
	}
	fmt.Fprintf(out, "Transaction hash: %s\n", hashColor.Sprint(pending.Hash.Hex()))

	receipt, err := pending.Wait(ctx)
	if err != nil {
		return nil, err
	}
	fmt.Fprintf(out, "Transaction confirmed in block: %s\n", blockColor.Sprint(receipt.BlockNumber))
	return receipt, nil
}
