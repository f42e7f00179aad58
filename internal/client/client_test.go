package client

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sheikh-saqib/custom-token-ledger/internal/api"
	interfaces "github.com/sheikh-saqib/custom-token-ledger/internal/interfaces"
	"github.com/sheikh-saqib/custom-token-ledger/internal/ledger"
	"github.com/sheikh-saqib/custom-token-ledger/internal/models"
	"github.com/sheikh-saqib/custom-token-ledger/internal/signer"
	"github.com/sheikh-saqib/custom-token-ledger/internal/storage/memory"
	"github.com/sheikh-saqib/custom-token-ledger/internal/token"
)

func newNode(t *testing.T) *Client {
	t.Helper()
	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	l := ledger.NewLedger(memory.NewMemoryLedgerStore(), ledger.WithLogger(quiet))
	require.NoError(t, l.Start(context.Background()))

	srv := httptest.NewServer(api.NewServer(l, api.WithLogger(quiet)).Handler())
	t.Cleanup(srv.Close)

	c, err := New(srv.URL+"/", WithPollInterval(time.Millisecond, 10*time.Millisecond))
	require.NoError(t, err)
	return c
}

func submit(t *testing.T, c *Client, s *signer.Signer, op models.Operation) (*models.Receipt, error) {
	t.Helper()
	op.Nonce = uuid.NewString()
	signed, err := s.Sign(op)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	pending, err := c.Submit(ctx, signed)
	if err != nil {
		return nil, err
	}
	return pending.Wait(ctx)
}

func TestClientRoundTrip(t *testing.T) {
	c := newNode(t)
	ctx := context.Background()
	owner, err := signer.Generate()
	require.NoError(t, err)

	_, err = c.Info(ctx)
	require.ErrorIs(t, err, models.ErrNotDeployed)

	r, err := submit(t, c, owner, models.Operation{
		Kind: models.KindDeploy,
		Deploy: &models.DeployParams{
			Name:            "Custom Token",
			Symbol:          "CTK",
			InitialSupply:   uint256.NewInt(1_000_000),
			TaxPercentage:   5,
			TaxWallet:       common.HexToAddress("0xc1"),
			MaxTxAmount:     uint256.NewInt(10_000),
			MaxWalletAmount: uint256.NewInt(50_000),
			Decimals:        18,
		},
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(1), r.BlockNumber)

	info, err := c.Info(ctx)
	require.NoError(t, err)
	assert.Equal(t, r.Contract, info.Contract)
	assert.Equal(t, uint8(18), info.Decimals)
	assert.Equal(t, "1000000000000000000000000", info.TotalSupply.Dec())

	alice := common.HexToAddress("0x00000000000000000000000000000000000000a1")
	amount, err := uint256.FromDecimal("1000000000000000000000") // 1000 tokens
	require.NoError(t, err)
	r, err = submit(t, c, owner, models.Operation{Kind: models.KindTransfer, To: &alice, Amount: amount})
	require.NoError(t, err)
	require.Len(t, r.Transfers, 2)

	bal, err := c.Balance(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, "950.000000000000000000", bal.Formatted)

	records, err := c.Transfers(ctx, &alice)
	require.NoError(t, err)
	assert.Len(t, records, 1)

	all, err := c.Transfers(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestClientMapsErrors(t *testing.T) {
	c := newNode(t)
	stranger, err := signer.Generate()
	require.NoError(t, err)

	_, err = submit(t, c, stranger, models.Operation{Kind: models.KindEnableTrading})
	require.ErrorIs(t, err, models.ErrNotDeployed)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
	assert.Equal(t, "NotDeployed", apiErr.Code)

	_, err = c.Receipt(context.Background(), common.HexToHash("0x01"))
	require.ErrorIs(t, err, interfaces.ErrNotFound)

	assert.ErrorIs(t, &APIError{Code: "OwnershipRenounced"}, token.ErrNotOwner)
	assert.NoError(t, (&APIError{Code: "Mystery"}).Unwrap())
}

func TestWaitPollsUntilReceiptExists(t *testing.T) {
	var calls atomic.Int32
	hash := common.HexToHash("0xabc")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"error":"not found","code":"NotFound"}`))
			return
		}
		w.Write([]byte(`{"transactionHash":"` + hash.Hex() + `","blockNumber":7}`))
	}))
	defer srv.Close()

	c, err := New(srv.URL, WithPollInterval(time.Millisecond, 5*time.Millisecond))
	require.NoError(t, err)

	r, err := (&PendingTx{Hash: hash, client: c}).Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(7), r.BlockNumber)
	assert.Equal(t, int32(3), calls.Load())
}

func TestWaitStopsOnContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"not found","code":"NotFound"}`))
	}))
	defer srv.Close()

	c, err := New(srv.URL, WithPollInterval(time.Millisecond, 5*time.Millisecond))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = (&PendingTx{Hash: common.HexToHash("0x1"), client: c}).Wait(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestWaitStopsOnServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c, err := New(srv.URL, WithPollInterval(time.Millisecond, 5*time.Millisecond))
	require.NoError(t, err)

	_, err = (&PendingTx{Hash: common.HexToHash("0x1"), client: c}).Wait(context.Background())
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusInternalServerError, apiErr.Status)
	assert.Equal(t, "boom", apiErr.Message)
}

func TestNewRejectsBadEndpoint(t *testing.T) {
	_, err := New("not a url")
	require.Error(t, err)
	_, err = New("")
	require.Error(t, err)
}
