package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sheikh-saqib/custom-token-ledger/internal/ledger"
	"github.com/sheikh-saqib/custom-token-ledger/internal/models"
	"github.com/sheikh-saqib/custom-token-ledger/internal/signer"
	"github.com/sheikh-saqib/custom-token-ledger/internal/storage/memory"
	"github.com/sheikh-saqib/custom-token-ledger/internal/token"
)

var _ Service = (*ledger.Ledger)(nil)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

type fixture struct {
	srv   *httptest.Server
	owner *signer.Signer
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	l := ledger.NewLedger(memory.NewMemoryLedgerStore(), ledger.WithLogger(quiet))
	require.NoError(t, l.Start(context.Background()))

	owner, err := signer.Generate()
	require.NoError(t, err)

	opts = append([]Option{WithLogger(quiet)}, opts...)
	srv := httptest.NewServer(NewServer(l, opts...).Handler())
	t.Cleanup(srv.Close)
	return &fixture{srv: srv, owner: owner}
}

func (f *fixture) post(t *testing.T, s *signer.Signer, op models.Operation) *http.Response {
	t.Helper()
	op.Nonce = uuid.NewString()
	signed, err := s.Sign(op)
	require.NoError(t, err)
	body, err := json.Marshal(signed)
	require.NoError(t, err)
	resp, err := http.Post(f.srv.URL+"/transactions", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (f *fixture) get(t *testing.T, path string) *http.Response {
	t.Helper()
	resp, err := http.Get(f.srv.URL + path)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (f *fixture) deploy(t *testing.T) {
	t.Helper()
	resp := f.post(t, f.owner, models.Operation{
		Kind: models.KindDeploy,
		Deploy: &models.DeployParams{
			Name:            "Custom Token",
			Symbol:          "CTK",
			InitialSupply:   uint256.NewInt(1000),
			TaxPercentage:   5,
			TaxWallet:       common.HexToAddress("0xc1"),
			MaxTxAmount:     uint256.NewInt(100),
			MaxWalletAmount: uint256.NewInt(200),
			Decimals:        2,
		},
	})
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestHealth(t *testing.T) {
	f := newFixture(t)
	resp := f.get(t, "/health")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", decode[map[string]string](t, resp)["status"])
}

func TestSubmitAndQuery(t *testing.T) {
	f := newFixture(t)

	resp := f.get(t, "/token")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "NotDeployed", decode[ErrorResponse](t, resp).Code)

	f.deploy(t)

	alice := common.HexToAddress("0x00000000000000000000000000000000000000a1")
	resp = f.post(t, f.owner, models.Operation{Kind: models.KindTransfer, To: &alice, Amount: uint256.NewInt(5000)})
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	hash := decode[SubmitResponse](t, resp).Hash

	resp = f.get(t, "/receipts/"+hash.Hex())
	require.Equal(t, http.StatusOK, resp.StatusCode)
	receipt := decode[models.Receipt](t, resp)
	assert.Equal(t, uint64(2), receipt.BlockNumber)
	require.Len(t, receipt.Transfers, 2)
	assert.Equal(t, uint64(4750), receipt.Transfers[1].Amount.Uint64())

	resp = f.get(t, "/accounts/"+alice.Hex()+"/balance")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	bal := decode[BalanceResponse](t, resp)
	assert.Equal(t, uint64(4750), bal.Balance.Uint64())
	assert.Equal(t, "47.50", bal.Formatted)
	assert.Equal(t, "CTK", bal.Symbol)

	resp = f.get(t, "/token")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	info := decode[models.TokenInfo](t, resp)
	assert.Equal(t, f.owner.Address(), info.Owner)
	assert.Equal(t, uint64(100_000), info.TotalSupply.Uint64())

	resp = f.get(t, "/transfers?account="+alice.Hex())
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decode[[]models.TransferRecord](t, resp), 1)

	resp = f.get(t, "/transfers")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decode[[]models.TransferRecord](t, resp), 3)
}

func TestSubmitErrors(t *testing.T) {
	f := newFixture(t)
	f.deploy(t)

	stranger, err := signer.Generate()
	require.NoError(t, err)
	to := common.HexToAddress("0x00000000000000000000000000000000000000b1")

	tests := []struct {
		name   string
		signer *signer.Signer
		op     models.Operation
		status int
		code   string
	}{
		{"trading disabled", stranger, models.Operation{Kind: models.KindTransfer, To: &to, Amount: uint256.NewInt(0)}, http.StatusUnprocessableEntity, "TradingDisabled"},
		{"insufficient balance", stranger, models.Operation{Kind: models.KindTransfer, To: &to, Amount: uint256.NewInt(1)}, http.StatusUnprocessableEntity, "InsufficientBalance"},
		{"not owner", stranger, models.Operation{Kind: models.KindEnableTrading}, http.StatusForbidden, "NotOwner"},
		{"already deployed", stranger, models.Operation{Kind: models.KindDeploy, Deploy: &models.DeployParams{}}, http.StatusConflict, "AlreadyDeployed"},
		{"missing params", f.owner, models.Operation{Kind: models.KindSetTaxWallet}, http.StatusBadRequest, "InvalidParams"},
		{"exceeds wallet", f.owner, models.Operation{Kind: models.KindTransfer, To: &to, Amount: uint256.NewInt(30_000)}, http.StatusUnprocessableEntity, "ExceedsMaxWallet"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := f.post(t, tt.signer, tt.op)
			assert.Equal(t, tt.status, resp.StatusCode)
			assert.Equal(t, tt.code, decode[ErrorResponse](t, resp).Code)
		})
	}
}

func TestBadRequests(t *testing.T) {
	f := newFixture(t)

	resp, err := http.Post(f.srv.URL+"/transactions", "application/json", bytes.NewBufferString("{"))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, CodeBadRequest, decode[ErrorResponse](t, resp).Code)

	resp = f.get(t, "/receipts/0x1234")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = f.get(t, "/receipts/"+common.HexToHash("0x01").Hex())
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, CodeNotFound, decode[ErrorResponse](t, resp).Code)

	resp = f.get(t, "/accounts/nope/balance")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = f.get(t, "/transfers?account=nope")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRateLimit(t *testing.T) {
	f := newFixture(t, WithRateLimit(0.001, 2))

	assert.Equal(t, http.StatusOK, f.get(t, "/health").StatusCode)
	assert.Equal(t, http.StatusOK, f.get(t, "/health").StatusCode)

	resp := f.get(t, "/health")
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, CodeTooManyRequests, decode[ErrorResponse](t, resp).Code)
}

func TestCORS(t *testing.T) {
	f := newFixture(t, WithCORSOrigins("https://app.example"))

	req, err := http.NewRequest(http.MethodGet, f.srv.URL+"/health", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "https://app.example")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "https://app.example", resp.Header.Get("Access-Control-Allow-Origin"))

	req.Header.Set("Origin", "https://evil.example")
	resp2, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.Empty(t, resp2.Header.Get("Access-Control-Allow-Origin"))
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusForbidden, StatusFor(token.ErrOwnershipRenounced))
	assert.Equal(t, http.StatusUnauthorized, StatusFor(models.ErrInvalidSignature))
	assert.Equal(t, http.StatusUnprocessableEntity, StatusFor(token.ErrTaxTooHigh))
	assert.Equal(t, http.StatusInternalServerError, StatusFor(io.ErrUnexpectedEOF))
}
