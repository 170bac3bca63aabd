// Package aaclient integrates with the hosted account-abstraction provider
// that sponsors and submits batched calls on behalf of smart wallets.
package aaclient

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/africoin-labs/wallet_service/internal/domain/entities"
	"github.com/africoin-labs/wallet_service/internal/infrastructure/config"
)

const (
	defaultTimeout = 30 * time.Second
	baseBackoff    = 1 * time.Second
	maxBackoff     = 16 * time.Second
	jitterRange    = 0.1
)

// APIError represents an error returned by the account-abstraction provider
type APIError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"-"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("provider error %s: %s", e.Code, e.Message)
}

// Client submits batched calls and polls their execution status
type Client struct {
	config         config.AccountConfig
	httpClient     *http.Client
	circuitBreaker *gobreaker.CircuitBreaker
	logger         *zap.Logger
}

// NewClient creates a new account-abstraction provider client
func NewClient(cfg config.AccountConfig, logger *zap.Logger) *Client {
	timeout := time.Duration(cfg.Timeout) * time.Second
	if timeout == 0 {
		timeout = defaultTimeout
	}

	st := gobreaker.Settings{
		Name:        "AccountProvider",
		MaxRequests: 3,
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
		config: cfg,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		circuitBreaker: gobreaker.NewCircuitBreaker(st),
		logger:         logger,
	}
}

// IsConfigured reports whether the provider credentials are present.
// Transfers are rejected before any ledger write when they are not.
func (c *Client) IsConfigured() bool {
	return c.config.APIKey != "" && c.config.BaseURL != ""
}

type sendCallsRequest struct {
	From         string          `json:"from"`
	Calls        []entities.Call `json:"calls"`
	Capabilities map[string]any  `json:"capabilities,omitempty"`
}

type sendCallsResponse struct {
	ID string `json:"id"`
}

// SendCalls submits a batch of calls for the given smart wallet and returns
// the provider's submission identifier used for status polling.
func (c *Client) SendCalls(ctx context.Context, walletAddress string, calls []entities.Call) (string, error) {
	if len(calls) == 0 {
		return "", fmt.Errorf("no calls to submit")
	}

	reqBody := sendCallsRequest{
		From:  walletAddress,
		Calls: calls,
	}
	if c.config.PolicyID != "" {
		reqBody.Capabilities = map[string]any{
			"paymasterService": map[string]string{"policyId": c.config.PolicyID},
		}
	}

	var resp sendCallsResponse
	if err := c.do(ctx, http.MethodPost, "/v1/wallet/sendCalls", reqBody, &resp); err != nil {
		return "", err
	}
	if resp.ID == "" {
		return "", fmt.Errorf("provider returned empty submission id")
	}

	c.logger.Info("Submitted calls to account provider",
		zap.String("wallet", walletAddress),
		zap.Int("call_count", len(calls)),
		zap.String("submission_id", resp.ID))

	return resp.ID, nil
}

// GetCallsStatus returns the execution status of a previous submission.
func (c *Client) GetCallsStatus(ctx context.Context, submissionID string) (*entities.CallsStatus, error) {
	var status entities.CallsStatus
	path := fmt.Sprintf("/v1/wallet/callsStatus/%s", submissionID)
	if err := c.do(ctx, http.MethodGet, path, nil, &status); err != nil {
		return nil, err
	}
	status.ID = submissionID
	return &status, nil
}

// do performs an authenticated request with retry, backoff and the breaker.
func (c *Client) do(ctx context.Context, method, path string, body, result interface{}) error {
	maxRetries := c.config.MaxRetries
	if maxRetries == 0 {
		maxRetries = 3
	}

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			backoff := calculateBackoff(attempt - 1)
			c.logger.Debug("Retrying provider request",
				zap.String("method", method),
				zap.String("path", path),
				zap.Int("attempt", attempt),
				zap.Duration("backoff", backoff))

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
		}

		_, err := c.circuitBreaker.Execute(func() (interface{}, error) {
			return nil, c.doRequest(ctx, method, path, body, result)
		})
		if err == nil {
			return nil
		}

		lastErr = err

		if apiErr, ok := err.(*APIError); ok && !apiErr.Retryable {
			return apiErr
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
	}

	return fmt.Errorf("request failed after retries: %w", lastErr)
}

func (c *Client) doRequest(ctx context.Context, method, path string, body, result interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.config.BaseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
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
		apiErr := &APIError{
			Code:    fmt.Sprintf("HTTP_%d", resp.StatusCode),
			Message: string(respBody),
			// 429 and 5xx are transient provider conditions.
			Retryable: resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500,
		}
		var parsed APIError
		if json.Unmarshal(respBody, &parsed) == nil && parsed.Code != "" {
			apiErr.Code = parsed.Code
			apiErr.Message = parsed.Message
		}
		return apiErr
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("failed to unmarshal response: %w", err)
		}
	}

	return nil
}

func addJitter(duration time.Duration) time.Duration {
	randomBytes := make([]byte, 1)
	rand.Read(randomBytes)
	randomFloat := float64(randomBytes[0])/255.0*2 - 1

	jitter := time.Duration(float64(duration) * jitterRange * randomFloat)
	return duration + jitter
}

func calculateBackoff(attempt int) time.Duration {
	exponent := math.Pow(2, float64(attempt))
	delay := time.Duration(exponent) * baseBackoff
	if delay > maxBackoff {
		delay = maxBackoff
	}
	return addJitter(delay)
}
