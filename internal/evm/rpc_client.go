package evm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"golang.org/x/time/rate"

	"sbt-minter/internal/observability"
)

// Default configuration values.
const (
	DefaultTimeout     = 30 * time.Second
	DefaultMaxRetries  = 3
	DefaultRetryDelay  = 1 * time.Second
	DefaultMaxDelay    = 10 * time.Second
	DefaultBackoffMult = 2.0
)

// HTTPClient implements RPCClient using HTTP JSON-RPC 2.0.
type HTTPClient struct {
	endpoint    string
	client      *http.Client
	maxRetries  int
	retryDelay  time.Duration
	maxDelay    time.Duration
	backoffMult float64
	limiter     *rate.Limiter
	requestID   atomic.Uint64
}

// ClientOption configures HTTPClient.
type ClientOption func(*HTTPClient)

// WithTimeout sets HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.client.Timeout = d
	}
}

// WithMaxRetries sets maximum retry attempts.
func WithMaxRetries(n int) ClientOption {
	return func(c *HTTPClient) {
		c.maxRetries = n
	}
}

// WithRetryDelay sets initial retry delay.
func WithRetryDelay(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.retryDelay = d
	}
}

// WithMaxDelay sets maximum retry delay.
func WithMaxDelay(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.maxDelay = d
	}
}

// WithHTTPClient sets custom http.Client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *HTTPClient) {
		c.client = client
	}
}

// WithRateLimit caps outgoing requests per second. Zero or negative disables the limit.
func WithRateLimit(perSecond float64, burst int) ClientOption {
	return func(c *HTTPClient) {
		if perSecond <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

// NewHTTPClient creates a new JSON-RPC HTTP client.
func NewHTTPClient(endpoint string, opts ...ClientOption) *HTTPClient {
	c := &HTTPClient{
		endpoint:    endpoint,
		client:      &http.Client{Timeout: DefaultTimeout},
		maxRetries:  DefaultMaxRetries,
		retryDelay:  DefaultRetryDelay,
		maxDelay:    DefaultMaxDelay,
		backoffMult: DefaultBackoffMult,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// rpcRequest represents a JSON-RPC 2.0 request.
type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

// rpcResponse represents a JSON-RPC 2.0 response.
type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      uint64          `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

// call performs a JSON-RPC call with retries and exponential backoff.
func (c *HTTPClient) call(ctx context.Context, method string, params []interface{}, result interface{}) error {
	return c.do(ctx, method, params, result, c.maxRetries)
}

// callOnce performs a JSON-RPC call without retries.
// Used for requests with side effects, where a retry after a lost response could repeat them.
func (c *HTTPClient) callOnce(ctx context.Context, method string, params []interface{}, result interface{}) error {
	return c.do(ctx, method, params, result, 0)
}

func (c *HTTPClient) do(ctx context.Context, method string, params []interface{}, result interface{}, maxRetries int) error {
	if params == nil {
		params = []interface{}{}
	}

	reqID := c.requestID.Add(1)
	reqBody := rpcRequest{
		JSONRPC: "2.0",
		ID:      reqID,
		Method:  method,
		Params:  params,
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	start := time.Now()
	defer func() {
		observability.RecordRPCLatency(method, time.Since(start).Seconds())
	}()

	delay := c.retryDelay
	var lastErr error

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			// Exponential backoff
			delay = time.Duration(float64(delay) * c.backoffMult)
			if delay > c.maxDelay {
				delay = c.maxDelay
			}
		}

		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return fmt.Errorf("rate limit: %w", err)
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			lastErr = fmt.Errorf("http request: %w", err)
			continue
		}

		respBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("read response: %w", err)
			continue
		}

		// Handle rate limiting
		if resp.StatusCode == http.StatusTooManyRequests {
			lastErr = fmt.Errorf("rate limited (429)")
			continue
		}

		if resp.StatusCode != http.StatusOK {
			lastErr = fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(respBody))
			continue
		}

		var rpcResp rpcResponse
		if err := json.Unmarshal(respBody, &rpcResp); err != nil {
			lastErr = fmt.Errorf("unmarshal response: %w", err)
			continue
		}

		if rpcResp.Error != nil {
			// RPC errors are not retried
			return rpcResp.Error
		}

		if result != nil && rpcResp.Result != nil {
			if err := json.Unmarshal(rpcResp.Result, result); err != nil {
				return fmt.Errorf("unmarshal result: %w", err)
			}
		}

		return nil
	}

	if maxRetries == 0 {
		return lastErr
	}
	return fmt.Errorf("max retries exceeded: %w", lastErr)
}

// callObject builds the transaction object shared by eth_call, eth_estimateGas
// and eth_sendTransaction.
func callObject(tx TxRequest) map[string]interface{} {
	obj := map[string]interface{}{
		"to":   tx.To.Hex(),
		"data": hexutil.Encode(tx.Data),
	}
	if tx.From != (common.Address{}) {
		obj["from"] = tx.From.Hex()
	}
	if tx.Gas > 0 {
		obj["gas"] = hexutil.EncodeUint64(tx.Gas)
	}
	return obj
}

// ChainID retrieves the active chain id.
func (c *HTTPClient) ChainID(ctx context.Context) (uint64, error) {
	var result hexutil.Uint64
	if err := c.call(ctx, "eth_chainId", nil, &result); err != nil {
		return 0, err
	}
	return uint64(result), nil
}

// Accounts retrieves the accounts the wallet exposes.
func (c *HTTPClient) Accounts(ctx context.Context) ([]common.Address, error) {
	var result []common.Address
	if err := c.call(ctx, "eth_accounts", nil, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// RequestAccounts asks the wallet to connect.
func (c *HTTPClient) RequestAccounts(ctx context.Context) ([]common.Address, error) {
	var result []common.Address
	if err := c.callOnce(ctx, "eth_requestAccounts", nil, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// EstimateGas simulates tx against the latest block.
func (c *HTTPClient) EstimateGas(ctx context.Context, tx TxRequest) (uint64, error) {
	var result hexutil.Uint64
	if err := c.call(ctx, "eth_estimateGas", []interface{}{callObject(tx)}, &result); err != nil {
		return 0, err
	}
	return uint64(result), nil
}

// SendTransaction submits tx to the wallet for signing and broadcast.
func (c *HTTPClient) SendTransaction(ctx context.Context, tx TxRequest) (common.Hash, error) {
	var result common.Hash
	if err := c.callOnce(ctx, "eth_sendTransaction", []interface{}{callObject(tx)}, &result); err != nil {
		return common.Hash{}, err
	}
	if result == (common.Hash{}) {
		return common.Hash{}, fmt.Errorf("eth_sendTransaction: empty transaction hash")
	}
	return result, nil
}

// receiptResult is the raw RPC response for eth_getTransactionReceipt.
type receiptResult struct {
	TransactionHash common.Hash     `json:"transactionHash"`
	BlockNumber     hexutil.Uint64  `json:"blockNumber"`
	Status          hexutil.Uint64  `json:"status"`
	GasUsed         hexutil.Uint64  `json:"gasUsed"`
	From            common.Address  `json:"from"`
	To              *common.Address `json:"to"`
}

// GetTransactionReceipt retrieves a receipt. Returns nil if the tx is not mined yet.
func (c *HTTPClient) GetTransactionReceipt(ctx context.Context, hash common.Hash) (*Receipt, error) {
	var result *receiptResult
	if err := c.call(ctx, "eth_getTransactionReceipt", []interface{}{hash.Hex()}, &result); err != nil {
		return nil, err
	}
	if result == nil {
		return nil, nil
	}

	return &Receipt{
		TxHash:      result.TransactionHash,
		BlockNumber: uint64(result.BlockNumber),
		Status:      uint64(result.Status),
		GasUsed:     uint64(result.GasUsed),
		From:        result.From,
		To:          result.To,
	}, nil
}

// transactionResult is the raw RPC response for eth_getTransactionByHash.
type transactionResult struct {
	Hash        common.Hash     `json:"hash"`
	From        common.Address  `json:"from"`
	To          *common.Address `json:"to"`
	Input       hexutil.Bytes   `json:"input"`
	BlockNumber *hexutil.Uint64 `json:"blockNumber"`
}

// GetTransactionByHash retrieves a transaction. Returns nil if unknown.
func (c *HTTPClient) GetTransactionByHash(ctx context.Context, hash common.Hash) (*Transaction, error) {
	var result *transactionResult
	if err := c.call(ctx, "eth_getTransactionByHash", []interface{}{hash.Hex()}, &result); err != nil {
		return nil, err
	}
	if result == nil {
		return nil, nil
	}

	tx := &Transaction{
		Hash:  result.Hash,
		From:  result.From,
		To:    result.To,
		Input: result.Input,
	}
	if result.BlockNumber != nil {
		n := uint64(*result.BlockNumber)
		tx.BlockNumber = &n
	}
	return tx, nil
}

// Call executes a read-only call.
func (c *HTTPClient) Call(ctx context.Context, tx TxRequest, blockNumber *uint64) ([]byte, error) {
	block := "latest"
	if blockNumber != nil {
		block = hexutil.EncodeUint64(*blockNumber)
	}

	var result hexutil.Bytes
	if err := c.call(ctx, "eth_call", []interface{}{callObject(tx), block}, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// SwitchChain asks the wallet to change chains (wallet_switchEthereumChain).
func (c *HTTPClient) SwitchChain(ctx context.Context, chainID uint64) error {
	params := []interface{}{
		map[string]interface{}{"chainId": hexutil.EncodeUint64(chainID)},
	}
	return c.callOnce(ctx, "wallet_switchEthereumChain", params, nil)
}

// AddChain registers a chain with the wallet (wallet_addEthereumChain).
func (c *HTTPClient) AddChain(ctx context.Context, p AddChainParams) error {
	obj := map[string]interface{}{
		"chainId":   hexutil.EncodeUint64(p.ChainID),
		"chainName": p.ChainName,
		"rpcUrls":   p.RPCURLs,
		"nativeCurrency": map[string]interface{}{
			"name":     p.CurrencyName,
			"symbol":   p.CurrencySymbol,
			"decimals": p.Decimals,
		},
	}
	if len(p.BlockExplorerURLs) > 0 {
		obj["blockExplorerUrls"] = p.BlockExplorerURLs
	}
	return c.callOnce(ctx, "wallet_addEthereumChain", []interface{}{obj}, nil)
}
