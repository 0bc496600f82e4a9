// Package client talks to the ledger HTTP API: it builds channel
// instructions, submits signed transactions with a bounded retry budget and
// polls executions until they are claimed or settled.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"cosmossdk.io/log"

	"github.com/zkchannel/zkchannel/api"
	"github.com/zkchannel/zkchannel/app"
	"github.com/zkchannel/zkchannel/x/channel/types"
)

// Config holds client configuration
type Config struct {
	Endpoint     string
	Timeout      time.Duration
	RetryCount   uint64
	RetryBackoff time.Duration
	PollInterval time.Duration
}

// DefaultConfig returns the default client configuration
func DefaultConfig() Config {
	return Config{
		Endpoint:     "http://127.0.0.1:8899",
		Timeout:      10 * time.Second,
		RetryCount:   5,
		RetryBackoff: time.Second,
		PollInterval: time.Second,
	}
}

// Client is a ledger API client. It is safe for concurrent use.
type Client struct {
	cfg    Config
	base   *url.URL
	http   *http.Client
	logger log.Logger
}

// New creates a client for the ledger at cfg.Endpoint.
func New(cfg Config, logger log.Logger) (*Client, error) {
	base, err := url.Parse(cfg.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid endpoint %q: %w", cfg.Endpoint, err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("endpoint %q must be http or https", cfg.Endpoint)
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}
	return &Client{
		cfg:    cfg,
		base:   base,
		http:   &http.Client{Timeout: cfg.Timeout},
		logger: logger.With("module", "client"),
	}, nil
}

// do sends a JSON request and decodes a JSON response into out. Error
// responses become *TxError values.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		bz, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(bz)
	}

	target := c.base.JoinPath(path)
	target.RawQuery = query.Encode()
	req, err := http.NewRequestWithContext(ctx, method, target.String(), body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		var apiErr api.ErrorResponse
		if err := json.Unmarshal(raw, &apiErr); err != nil || apiErr.Error == "" {
			return ErrHTTP.Wrapf("%s %s: status %d", method, path, resp.StatusCode)
		}
		if apiErr.Codespace == "" {
			return ErrHTTP.Wrapf("%s %s: %s", method, path, apiErr.Error)
		}
		return &TxError{Codespace: apiErr.Codespace, Code: apiErr.Code, Log: apiErr.Error, Result: apiErr.Result}
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(raw, out)
}

// LatestBlockhash returns the newest blockhash and its last valid height.
func (c *Client) LatestBlockhash(ctx context.Context) (types.Hash, uint64, error) {
	var resp api.BlockhashResponse
	if err := c.do(ctx, http.MethodGet, "/v1/blockhash", nil, nil, &resp); err != nil {
		return types.Hash{}, 0, err
	}
	return resp.Blockhash, resp.LastValidBlockHeight, nil
}

// Height returns the height at which submitted transactions execute.
func (c *Client) Height(ctx context.Context) (uint64, error) {
	var resp api.HeightResponse
	if err := c.do(ctx, http.MethodGet, "/v1/height", nil, nil, &resp); err != nil {
		return 0, err
	}
	return resp.Height, nil
}

// SubmitTransaction sends a signed transaction once.
func (c *Client) SubmitTransaction(ctx context.Context, tx *types.Transaction) (*app.TxResult, error) {
	bz, err := types.EncodeTransaction(tx)
	if err != nil {
		return nil, err
	}
	var res app.TxResult
	if err := c.do(ctx, http.MethodPost, "/v1/transactions", nil, api.SubmitTxRequest{Tx: bz}, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// TxStatus returns the recorded result of a recent transaction.
func (c *Client) TxStatus(ctx context.Context, id string) (*app.TxResult, error) {
	var res app.TxResult
	if err := c.do(ctx, http.MethodGet, "/v1/transactions/"+id, nil, nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// GetAccount returns the account at addr.
func (c *Client) GetAccount(ctx context.Context, addr types.Address) (*types.Account, error) {
	var resp api.AccountResponse
	if err := c.do(ctx, http.MethodGet, "/v1/accounts/"+addr.String(), nil, nil, &resp); err != nil {
		return nil, err
	}
	return &resp.Account, nil
}

// PendingExecutions lists up to limit executions that can still settle.
func (c *Client) PendingExecutions(ctx context.Context, limit int) (*api.PendingExecutionsResponse, error) {
	var resp api.PendingExecutionsResponse
	query := url.Values{"limit": {strconv.Itoa(limit)}}
	if err := c.do(ctx, http.MethodGet, "/v1/executions/pending", query, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetExecution returns the state of the execution account at addr.
func (c *Client) GetExecution(ctx context.Context, addr types.Address) (*api.ExecutionResponse, error) {
	var resp api.ExecutionResponse
	if err := c.do(ctx, http.MethodGet, "/v1/executions/"+addr.String(), nil, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Airdrop asks the devnet faucet for lamports.
func (c *Client) Airdrop(ctx context.Context, addr types.Address, lamports uint64) error {
	return c.do(ctx, http.MethodPost, "/v1/airdrop", nil, api.AirdropRequest{Address: addr, Lamports: lamports}, nil)
}
