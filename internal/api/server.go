// Package api exposes a ledger over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/holiman/uint256"
	"github.com/rs/cors"
	"golang.org/x/time/rate"

	interfaces "github.com/sheikh-saqib/custom-token-ledger/internal/interfaces"
	"github.com/sheikh-saqib/custom-token-ledger/internal/models"
	"github.com/sheikh-saqib/custom-token-ledger/internal/token"
	"github.com/sheikh-saqib/custom-token-ledger/internal/units"
)

// Service is the part of ledger.Ledger the API serves.
type Service interface {
	Submit(ctx context.Context, signed models.SignedOperation) (*models.Receipt, error)
	Info() (models.TokenInfo, error)
	BalanceOf(account common.Address) (*uint256.Int, error)
	Receipt(ctx context.Context, hash common.Hash) (*models.Receipt, error)
	Transfers(ctx context.Context, account *common.Address) ([]models.TransferRecord, error)
}

// Error codes for failures that are not ledger rejections.
const (
	CodeBadRequest      = "BadRequest"
	CodeNotFound        = "NotFound"
	CodeTooManyRequests = "TooManyRequests"
	CodeInternal        = "Internal"
)

// SubmitResponse is the body of an accepted POST /transactions.
type SubmitResponse struct {
	Hash common.Hash `json:"hash"`
}

// BalanceResponse is the body of GET /accounts/{address}/balance.
type BalanceResponse struct {
	Address   common.Address `json:"address"`
	Balance   *uint256.Int   `json:"balance"`   // smallest units
	Formatted string         `json:"formatted"` // whole tokens
	Symbol    string         `json:"symbol"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

type Server struct {
	svc     Service
	logger  *slog.Logger
	limiter *rate.Limiter // nil disables rate limiting
	origins []string
}

// Option configures a Server.
type Option func(*Server)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// WithRateLimit allows rps requests per second with the given burst. A
// non-positive rps disables the limit.
func WithRateLimit(rps float64, burst int) Option {
	return func(s *Server) {
		if rps <= 0 {
			s.limiter = nil
			return
		}
		s.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithCORSOrigins sets the allowed cross-origin callers. "*" allows any.
func WithCORSOrigins(origins ...string) Option {
	return func(s *Server) { s.origins = origins }
}

func NewServer(svc Service, opts ...Option) *Server {
	s := &Server{
		svc:     svc,
		logger:  slog.Default(),
		origins: []string{"*"},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the routed handler wrapped in CORS, rate limiting and
// request logging.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.health)
	mux.HandleFunc("POST /transactions", s.submit)
	mux.HandleFunc("GET /receipts/{hash}", s.receipt)
	mux.HandleFunc("GET /token", s.tokenInfo)
	mux.HandleFunc("GET /accounts/{address}/balance", s.balance)
	mux.HandleFunc("GET /transfers", s.transfers)

	c := cors.New(cors.Options{
		AllowedOrigins: s.origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
		MaxAge:         600,
	})
	return s.logRequests(c.Handler(s.rateLimit(mux)))
}

// --- Middleware ---

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"remote", r.RemoteAddr,
			"elapsed", time.Since(start),
		)
	})
}

func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.limiter != nil && !s.limiter.Allow() {
			writeJSON(w, http.StatusTooManyRequests, ErrorResponse{Error: "too many requests", Code: CodeTooManyRequests})
			return
		}
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// --- Handlers ---

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) submit(w http.ResponseWriter, r *http.Request) {
	var signed models.SignedOperation
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&signed); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid request body", Code: CodeBadRequest})
		return
	}

	receipt, err := s.svc.Submit(r.Context(), signed)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, SubmitResponse{Hash: receipt.TxHash})
}

func (s *Server) receipt(w http.ResponseWriter, r *http.Request) {
	raw, err := hexutil.Decode(r.PathValue("hash"))
	if err != nil || len(raw) != common.HashLength {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid transaction hash", Code: CodeBadRequest})
		return
	}

	receipt, err := s.svc.Receipt(r.Context(), common.BytesToHash(raw))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, receipt)
}

func (s *Server) tokenInfo(w http.ResponseWriter, r *http.Request) {
	info, err := s.svc.Info()
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (s *Server) balance(w http.ResponseWriter, r *http.Request) {
	account, ok := parseAddress(r.PathValue("address"))
	if !ok {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid address", Code: CodeBadRequest})
		return
	}

	info, err := s.svc.Info()
	if err != nil {
		s.writeError(w, err)
		return
	}
	bal, err := s.svc.BalanceOf(account)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, BalanceResponse{
		Address:   account,
		Balance:   bal,
		Formatted: units.Format(bal, info.Decimals),
		Symbol:    info.Symbol,
	})
}

func (s *Server) transfers(w http.ResponseWriter, r *http.Request) {
	var filter *common.Address
	if v := r.URL.Query().Get("account"); v != "" {
		account, ok := parseAddress(v)
		if !ok {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid account", Code: CodeBadRequest})
			return
		}
		filter = &account
	}

	records, err := s.svc.Transfers(r.Context(), filter)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if records == nil {
		records = []models.TransferRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}

// --- Helpers ---

// StatusFor maps a ledger error to its HTTP status.
func StatusFor(err error) int {
	var coded *token.Error
	switch {
	case errors.Is(err, interfaces.ErrNotFound), errors.Is(err, models.ErrNotDeployed):
		return http.StatusNotFound
	case errors.Is(err, models.ErrInvalidSignature):
		return http.StatusUnauthorized
	case errors.Is(err, token.ErrNotOwner):
		return http.StatusForbidden
	case errors.Is(err, models.ErrAlreadyDeployed):
		return http.StatusConflict
	case errors.Is(err, models.ErrInvalidParams), errors.Is(err, models.ErrUnknownOperation):
		return http.StatusBadRequest
	case errors.As(err, &coded):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := StatusFor(err)
	resp := ErrorResponse{Error: err.Error(), Code: CodeInternal}

	var coded *token.Error
	switch {
	case errors.As(err, &coded):
		resp.Code = coded.Code
	case errors.Is(err, interfaces.ErrNotFound):
		resp.Code = CodeNotFound
	default:
		s.logger.Error("request failed", "error", err)
		resp.Error = "internal error"
	}
	writeJSON(w, status, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func parseAddress(s string) (common.Address, bool) {
	if !common.IsHexAddress(s) {
		return common.Address{}, false
	}
	return common.HexToAddress(s), true
}
