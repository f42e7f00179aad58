// Package storetest holds behaviour tests shared by every LedgerStore backend.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	interfaces "github.com/sheikh-saqib/custom-token-ledger/internal/interfaces"
	"github.com/sheikh-saqib/custom-token-ledger/internal/models"
	"github.com/sheikh-saqib/custom-token-ledger/internal/token"
)

var (
	contract  = common.HexToAddress("0x00000000000000000000000000000000000000ff")
	owner     = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	holder    = common.HexToAddress("0x00000000000000000000000000000000000000b1")
	taxWallet = common.HexToAddress("0x00000000000000000000000000000000000000c1")
)

// Run exercises a freshly migrated, empty store.
func Run(t *testing.T, store interfaces.LedgerStore) {
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	_, _, _, err := store.LoadState(ctx)
	require.ErrorIs(t, err, interfaces.ErrNotFound)

	_, err = store.ReceiptByHash(ctx, common.HexToHash("0x01"))
	require.ErrorIs(t, err, interfaces.ErrNotFound)

	cfg := token.Config{
		Name:            "Custom Token",
		Symbol:          "CTK",
		Decimals:        2,
		TotalSupply:     uint256.NewInt(100_000),
		Owner:           owner,
		TaxPercentage:   5,
		TaxWallet:       taxWallet,
		MaxTxAmount:     uint256.NewInt(10_000),
		MaxWalletAmount: uint256.NewInt(50_000),
	}

	deployHash := common.HexToHash("0xd1")
	require.NoError(t, store.SaveCommit(ctx, models.Commit{
		Contract: contract,
		Config:   cfg,
		Balances: map[common.Address]*uint256.Int{owner: uint256.NewInt(100_000)},
		Receipt: models.Receipt{
			TxHash:      deployHash,
			BlockNumber: 1,
			Kind:        models.KindDeploy,
			From:        owner,
			Contract:    contract,
			CreatedAt:   now,
			Transfers: []models.TransferRecord{
				{TxHash: deployHash, BlockNumber: 1, From: common.Address{}, To: owner, Amount: uint256.NewInt(100_000), CreatedAt: now},
			},
		},
	}))

	transferHash := common.HexToHash("0xd2")
	cfg.TradingEnabled = true
	require.NoError(t, store.SaveCommit(ctx, models.Commit{
		Contract: contract,
		Config:   cfg,
		Balances: map[common.Address]*uint256.Int{
			owner:     uint256.NewInt(99_000),
			taxWallet: uint256.NewInt(50),
			holder:    uint256.NewInt(950),
		},
		Receipt: models.Receipt{
			TxHash:      transferHash,
			BlockNumber: 2,
			Kind:        models.KindTransfer,
			From:        owner,
			Contract:    contract,
			CreatedAt:   now,
			Transfers: []models.TransferRecord{
				{TxHash: transferHash, BlockNumber: 2, Index: 0, From: owner, To: taxWallet, Amount: uint256.NewInt(50), CreatedAt: now},
				{TxHash: transferHash, BlockNumber: 2, Index: 1, From: owner, To: holder, Amount: uint256.NewInt(950), CreatedAt: now},
			},
		},
	}))

	state, gotContract, height, err := store.LoadState(ctx)
	require.NoError(t, err)
	assert.Equal(t, contract, gotContract)
	assert.Equal(t, uint64(2), height)
	assert.Equal(t, cfg.Name, state.Config.Name)
	assert.Equal(t, cfg.Owner, state.Config.Owner)
	assert.Equal(t, cfg.TaxWallet, state.Config.TaxWallet)
	assert.True(t, state.Config.TradingEnabled)
	assert.Equal(t, cfg.MaxWalletAmount, state.Config.MaxWalletAmount)
	require.Len(t, state.Balances, 3)
	assert.Equal(t, uint256.NewInt(950), state.Balances[holder])
	assert.Equal(t, uint256.NewInt(99_000), state.Balances[owner])

	receipt, err := store.ReceiptByHash(ctx, transferHash)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), receipt.BlockNumber)
	assert.Equal(t, models.KindTransfer, receipt.Kind)
	require.Len(t, receipt.Transfers, 2)
	assert.Equal(t, taxWallet, receipt.Transfers[0].To)
	assert.Equal(t, holder, receipt.Transfers[1].To)

	all, err := store.Transfers(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, uint64(1), all[0].BlockNumber)

	mine, err := store.TransfersByAccount(ctx, holder)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, uint256.NewInt(950), mine[0].Amount)
}
