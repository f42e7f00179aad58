// Package client talks to a ledger node over its HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"

	"github.com/sheikh-saqib/custom-token-ledger/internal/api"
	interfaces "github.com/sheikh-saqib/custom-token-ledger/internal/interfaces"
	"github.com/sheikh-saqib/custom-token-ledger/internal/models"
	"github.com/sheikh-saqib/custom-token-ledger/internal/token"
)

// APIError is a failure reported by the node. It unwraps to the matching
// ledger sentinel when the code is known, so errors.Is(err,
// token.ErrTradingDisabled) works on the client side.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s (%s, status %d)", e.Message, e.Code, e.Status)
}

func (e *APIError) Unwrap() error {
	if e.Code == api.CodeNotFound {
		return interfaces.ErrNotFound
	}
	if sentinel, ok := token.ErrorByCode(e.Code); ok {
		return sentinel
	}
	return nil
}

type Client struct {
	endpoint   string
	httpClient *http.Client
	// poll bounds the receipt polling interval.
	pollInitial time.Duration
	pollMax     time.Duration
}

// Option configures a Client.
type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithPollInterval sets the first and the largest delay between receipt polls.
func WithPollInterval(initial, maxInterval time.Duration) Option {
	return func(c *Client) { c.pollInitial, c.pollMax = initial, maxInterval }
}

// New creates a client for the node at endpoint, e.g. http://127.0.0.1:8080.
func New(endpoint string, opts ...Option) (*Client, error) {
	endpoint = strings.TrimRight(strings.TrimSpace(endpoint), "/")
	u, err := url.Parse(endpoint)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, errors.Errorf("invalid endpoint %q", endpoint)
	}
	c := &Client{
		endpoint:    endpoint,
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		pollInitial: 200 * time.Millisecond,
		pollMax:     5 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// PendingTx is a submitted operation whose receipt can be awaited.
type PendingTx struct {
	Hash   common.Hash
	client *Client
}

// Submit sends a signed operation. A rejected operation returns an *APIError.
func (c *Client) Submit(ctx context.Context, signed models.SignedOperation) (*PendingTx, error) {
	var resp api.SubmitResponse
	if err := c.do(ctx, http.MethodPost, "/transactions", signed, &resp); err != nil {
		return nil, err
	}
	return &PendingTx{Hash: resp.Hash, client: c}, nil
}

// Wait polls for the receipt with exponential backoff until it is known or
// ctx is done.
func (p *PendingTx) Wait(ctx context.Context) (*models.Receipt, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.client.pollInitial
	b.MaxInterval = p.client.pollMax
	b.MaxElapsedTime = 0

	var receipt *models.Receipt
	op := func() error {
		r, err := p.client.Receipt(ctx, p.Hash)
		if errors.Is(err, interfaces.ErrNotFound) {
			return err
		}
		if err != nil {
			return backoff.Permanent(err)
		}
		receipt = r
		return nil
	}
	if err := backoff.Retry(op, backoff.WithContext(b, ctx)); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, errors.Wrapf(ctxErr, "waiting for %s", p.Hash.Hex())
		}
		return nil, err
	}
	return receipt, nil
}

// Receipt fetches the receipt of a committed operation.
func (c *Client) Receipt(ctx context.Context, hash common.Hash) (*models.Receipt, error) {
	var r models.Receipt
	if err := c.do(ctx, http.MethodGet, "/receipts/"+hash.Hex(), nil, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// Info fetches the token configuration.
func (c *Client) Info(ctx context.Context) (*models.TokenInfo, error) {
	var info models.TokenInfo
	if err := c.do(ctx, http.MethodGet, "/token", nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// Balance fetches the balance of account.
func (c *Client) Balance(ctx context.Context, account common.Address) (*api.BalanceResponse, error) {
	var bal api.BalanceResponse
	if err := c.do(ctx, http.MethodGet, "/accounts/"+account.Hex()+"/balance", nil, &bal); err != nil {
		return nil, err
	}
	return &bal, nil
}

// Transfers fetches the transfer history, filtered to account when it is set.
func (c *Client) Transfers(ctx context.Context, account *common.Address) ([]models.TransferRecord, error) {
	path := "/transfers"
	if account != nil {
		path += "?account=" + url.QueryEscape(account.Hex())
	}
	var records []models.TransferRecord
	if err := c.do(ctx, http.MethodGet, path, nil, &records); err != nil {
		return nil, err
	}
	return records, nil
}

func (c *Client) do(ctx context.Context, method, path string, payload, target any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return errors.Wrap(err, "encode request")
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrapf(err, "%s %s", method, path)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrapf(err, "read %s response", path)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr api.ErrorResponse
		if jsonErr := json.Unmarshal(data, &apiErr); jsonErr != nil || apiErr.Code == "" {
			return &APIError{Status: resp.StatusCode, Code: api.CodeInternal, Message: strings.TrimSpace(string(data))}
		}
		return &APIError{Status: resp.StatusCode, Code: apiErr.Code, Message: apiErr.Error}
	}

	if err := json.Unmarshal(data, target); err != nil {
		return errors.Wrapf(err, "decode %s response", path)
	}
	return nil
}
