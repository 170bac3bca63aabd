// Package chainrpc wraps the JSON-RPC surface of a hosted EVM node
// provider. Every read is best-effort: transport and RPC failures collapse
// into zero/empty results so balance display never blocks the dashboard.
package chainrpc

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"math/big"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/africoin-labs/wallet_service/internal/domain/entities"
	"github.com/africoin-labs/wallet_service/internal/domain/tokens"
	"github.com/africoin-labs/wallet_service/pkg/metrics"
)

const (
	defaultTimeout = 30 * time.Second
	maxRetries     = 3
	baseBackoff    = 500 * time.Millisecond
	maxBackoff     = 8 * time.Second
	jitterRange    = 0.1 // 10% jitter

	methodGetBalance       = "eth_getBalance"
	methodGasPrice         = "eth_gasPrice"
	methodGetTokenBalances = "alchemy_getTokenBalances"
	methodGetTokenMetadata = "alchemy_getTokenMetadata"
)

// Config represents chain RPC configuration
type Config struct {
	RPCURL         string
	Timeout        time.Duration
	NativeDecimals int
}

// Client is a JSON-RPC client for balance and metadata reads
type Client struct {
	config         Config
	httpClient     *http.Client
	circuitBreaker *gobreaker.CircuitBreaker
	logger         *zap.Logger
}

// NewClient creates a new chain RPC client
func NewClient(config Config, logger *zap.Logger) *Client {
	if config.Timeout == 0 {
		config.Timeout = defaultTimeout
	}
	if config.NativeDecimals == 0 {
		config.NativeDecimals = 18
	}

	st := gobreaker.Settings{
		Name:        "ChainRPC",
		MaxRequests: 5,
		Interval:    10 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Info("Circuit breaker state changed",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	}

	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		circuitBreaker: gobreaker.NewCircuitBreaker(st),
		logger:         logger,
	}
}

// GetNativeBalance returns the native asset balance of an address as a
// human-readable decimal string. Any failure yields "0".
func (c *Client) GetNativeBalance(ctx context.Context, address string) string {
	var result string
	if err := c.call(ctx, methodGetBalance, []interface{}{address, "latest"}, &result); err != nil {
		c.logger.Warn("Failed to fetch native balance",
			zap.String("address", address),
			zap.Error(err))
		return "0"
	}

	return tokens.FormatHexBalance(result, c.config.NativeDecimals)
}

// GetTokenBalances returns the raw ERC-20 balances reported for an address.
// Any failure yields an empty list.
func (c *Client) GetTokenBalances(ctx context.Context, address string) []entities.RawTokenBalance {
	var result struct {
		Address       string                    `json:"address"`
		TokenBalances []entities.RawTokenBalance `json:"tokenBalances"`
	}
	if err := c.call(ctx, methodGetTokenBalances, []interface{}{address, "erc20"}, &result); err != nil {
		c.logger.Warn("Failed to fetch token balances",
			zap.String("address", address),
			zap.Error(err))
		return nil
	}

	return result.TokenBalances
}

// GetTokenMetadata returns the metadata of a token contract, or nil on any
// failure so callers can skip the token rather than fail the refresh.
func (c *Client) GetTokenMetadata(ctx context.Context, contractAddress string) *entities.TokenMetadata {
	var result entities.TokenMetadata
	if err := c.call(ctx, methodGetTokenMetadata, []interface{}{contractAddress}, &result); err != nil {
		c.logger.Warn("Failed to fetch token metadata",
			zap.String("contract", contractAddress),
			zap.Error(err))
		return nil
	}

	return &result
}

// GetGasPrice returns the current gas price in wei, or nil on failure.
// Used for the advisory fee estimate only.
func (c *Client) GetGasPrice(ctx context.Context) *big.Int {
	var result string
	if err := c.call(ctx, methodGasPrice, []interface{}{}, &result); err != nil {
		c.logger.Warn("Failed to fetch gas price", zap.Error(err))
		return nil
	}

	price, ok := new(big.Int).SetString(strings.TrimPrefix(result, "0x"), 16)
	if !ok {
		return nil
	}
	return price
}

type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
	ID      int           `json:"id"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *rpcError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

// call performs one JSON-RPC call with retry, backoff and the breaker.
// An RPC-level error body is terminal for the call; only transport
// failures are retried.
func (c *Client) call(ctx context.Context, method string, params []interface{}, result interface{}) error {
	start := time.Now()
	outcome := "error"
	defer func() {
		metrics.ChainRPCRequests.WithLabelValues(method, outcome).Inc()
		metrics.ChainRPCDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())
	}()

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			backoff := calculateBackoff(attempt - 1)
			c.logger.Debug("Retrying chain RPC request",
				zap.String("method", method),
				zap.Int("attempt", attempt),
				zap.Duration("backoff", backoff))

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
		}

		_, err := c.circuitBreaker.Execute(func() (interface{}, error) {
			return nil, c.doCall(ctx, method, params, result)
		})
		if err == nil {
			outcome = "ok"
			return nil
		}

		lastErr = err

		// RPC-level errors and cancellations will not improve on retry.
		if _, ok := err.(*rpcError); ok {
			break
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			break
		}
	}

	return fmt.Errorf("%s failed after retries: %w", method, lastErr)
}

func (c *Client) doCall(ctx context.Context, method string, params []interface{}, result interface{}) error {
	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		Method:  method,
		Params:  params,
		ID:      1,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.RPCURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode >= 400 {
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(respBody))
	}

	var rpcResp rpcResponse
	if err := json.Unmarshal(respBody, &rpcResp); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}

	if rpcResp.Error != nil {
		return rpcResp.Error
	}

	if result != nil && len(rpcResp.Result) > 0 {
		if err := json.Unmarshal(rpcResp.Result, result); err != nil {
			return fmt.Errorf("failed to unmarshal result: %w", err)
		}
	}

	return nil
}

// addJitter adds random jitter to a duration to prevent thundering herd
func addJitter(duration time.Duration) time.Duration {
	randomBytes := make([]byte, 1)
	rand.Read(randomBytes)
	randomFloat := float64(randomBytes[0])/255.0*2 - 1 // -1 to 1

	jitter := time.Duration(float64(duration) * jitterRange * randomFloat)
	return duration + jitter
}

// calculateBackoff calculates exponential backoff with jitter
func calculateBackoff(attempt int) time.Duration {
	exponent := math.Pow(2, float64(attempt))
	delay := time.Duration(exponent) * baseBackoff
	if delay > maxBackoff {
		delay = maxBackoff
	}
	return addJitter(delay)
}
