package wallet

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// DefaultBlockchain is used for faucet requests when none is specified.
const DefaultBlockchain = "ARC-TESTNET"

// ClientConfig holds configuration for the wallet API client.
type ClientConfig struct {
	BaseURL        string
	RequestTimeout time.Duration
}

// DefaultClientConfig returns default configuration.
func DefaultClientConfig(baseURL string) ClientConfig {
	return ClientConfig{
		BaseURL:        baseURL,
		RequestTimeout: 30 * time.Second,
	}
}

// Client talks to the custodial wallet backend.
type Client struct {
	httpClient *http.Client
	baseURL    string
	logger     *slog.Logger
}

// NewClient creates a wallet API client.
func NewClient(cfg ClientConfig, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		httpClient: &http.Client{Timeout: cfg.RequestTimeout},
		baseURL:    cfg.BaseURL,
		logger:     logger,
	}
}

// Balance fetches the normalized USDC balance for a wallet.
func (c *Client) Balance(ctx context.Context, walletID string) (*BalanceResponse, error) {
	var resp BalanceResponse
	q := url.Values{"walletId": {walletID}}
	if err := c.get(ctx, "/wallet/balance", q, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// WalletInfo fetches wallet metadata (address, blockchain).
func (c *Client) WalletInfo(ctx context.Context, walletID string) (*InfoResponse, error) {
	var resp InfoResponse
	q := url.Values{"walletId": {walletID}}
	if err := c.get(ctx, "/wallet/info", q, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Transactions fetches recent transaction history for a wallet.
func (c *Client) Transactions(ctx context.Context, walletID string, pageSize int) (*TransactionsResponse, error) {
	if pageSize <= 0 {
		pageSize = 50
	}
	var resp TransactionsResponse
	q := url.Values{
		"walletId": {walletID},
		"pageSize": {strconv.Itoa(pageSize)},
	}
	if err := c.get(ctx, "/wallet/transactions", q, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Send issues a funds transfer. Transport failures are returned as errors;
// structured rejections come back in SendResponse.Error with Success=false.
func (c *Client) Send(ctx context.Context, req SendRequest) (*SendResponse, error) {
	var resp SendResponse
	if err := c.post(ctx, "/wallet/send", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Faucet requests testnet funds for an address.
func (c *Client) Faucet(ctx context.Context, address, blockchain string) (*FaucetResponse, error) {
	if blockchain == "" {
		blockchain = DefaultBlockchain
	}
	var resp FaucetResponse
	if err := c.post(ctx, "/wallet/faucet", FaucetRequest{Address: address, Blockchain: blockchain}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+query.Encode(), nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	return c.do(httpReq, out)
}

func (c *Client) post(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	return c.do(httpReq, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("wallet backend unreachable: %w", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			c.logger.Debug("failed to close response body", "error", closeErr)
		}
	}()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	// Wallet backend reports rejections in the body with an error field,
	// for 4xx/5xx as well, so decode regardless of status.
	if err := json.Unmarshal(raw, out); err != nil {
		if resp.StatusCode >= 400 {
			return fmt.Errorf("wallet backend: HTTP %d: %s", resp.StatusCode, string(raw))
		}
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
