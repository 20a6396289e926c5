package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/payflow/server/internal/shared/metrics"
	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

// Gateway errors.
var (
	// ErrGatewayUnavailable is terminal for a single initiation call:
	// retries are exhausted or the circuit is open. The caller must treat
	// it as non-fatal to payment creation.
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")

	// ErrChargeRejected covers non-transient gateway refusals (4xx).
	// These are never retried.
	ErrChargeRejected = errors.New("charge request rejected by gateway")
)

// Charge is the payment initiation payload sent to the gateway.
type Charge struct {
	PaymentID  string          `json:"paymentId"`
	MerchantID string          `json:"merchantId"`
	CustomerID string          `json:"customerId"`
	Amount     decimal.Decimal `json:"amount"`
	Currency   string          `json:"currency"`
}

// Client sends payment-initiation requests to the external gateway.
type Client interface {
	InitiateCharge(ctx context.Context, charge Charge) error
}

// Config holds gateway client configuration.
type Config struct {
	BaseURL         string
	RequestTimeout  time.Duration
	BreakerFailures uint32
	BreakerTimeout  time.Duration
}

// HTTPClient is the HTTP implementation of Client. Calls run through a
// circuit breaker; transient failures are retried per the policy.
type HTTPClient struct {
	baseURL string
	http    *http.Client
	policy  RetryPolicy
	breaker *gobreaker.CircuitBreaker[struct{}]
	sleep   func(time.Duration)
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// NewHTTPClient creates a new gateway HTTP client.
func NewHTTPClient(cfg Config, policy RetryPolicy, m *metrics.Metrics, logger *zap.Logger) *HTTPClient {
	failures := cfg.BreakerFailures
	if failures == 0 {
		failures = 5
	}
	breaker := gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:    "payment-gateway",
		Timeout: cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
	})

	timeout := cfg.RequestTimeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	return &HTTPClient{
		baseURL: cfg.BaseURL,
		http:    &http.Client{Timeout: timeout},
		policy:  policy,
		breaker: breaker,
		sleep:   time.Sleep,
		metrics: m,
		logger:  logger,
	}
}

// InitiateCharge sends the charge to the gateway, retrying transient
// failures per the retry policy. After exhausting retries it fails with
// ErrGatewayUnavailable.
func (c *HTTPClient) InitiateCharge(ctx context.Context, charge Charge) error {
	start := time.Now()
	defer func() {
		if c.metrics != nil {
			c.metrics.GatewayRequestDuration.Observe(time.Since(start).Seconds())
		}
	}()

	var lastErr error
	for attempt := 1; attempt <= c.policy.MaxAttempts; attempt++ {
		if attempt > 1 {
			c.sleep(c.policy.Delay(attempt - 1))
		}

		_, err := c.breaker.Execute(func() (struct{}, error) {
			return struct{}{}, c.post(ctx, charge)
		})
		if err == nil {
			c.count("ok")
			return nil
		}
		lastErr = err

		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			break
		}
		if c.policy.Retryable != nil && !c.policy.Retryable(err) {
			c.count("rejected")
			c.logger.Error("gateway rejected charge",
				zap.String("payment_id", charge.PaymentID),
				zap.Error(err),
			)
			return err
		}

		c.logger.Warn("transient gateway failure",
			zap.String("payment_id", charge.PaymentID),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
	}

	c.count("unavailable")
	c.logger.Error("payment gateway unreachable after retries",
		zap.String("payment_id", charge.PaymentID),
		zap.Error(lastErr),
	)
	return fmt.Errorf("%w: %v", ErrGatewayUnavailable, lastErr)
}

func (c *HTTPClient) post(ctx context.Context, charge Charge) error {
	body, err := json.Marshal(charge)
	if err != nil {
		return fmt.Errorf("marshal charge: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/payments", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return &transientError{err: err}
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	switch {
	case resp.StatusCode < http.StatusMultipleChoices:
		return nil
	case resp.StatusCode >= http.StatusInternalServerError || resp.StatusCode == http.StatusTooManyRequests:
		return &transientError{err: fmt.Errorf("gateway returned status %d", resp.StatusCode)}
	default:
		return fmt.Errorf("%w: status %d", ErrChargeRejected, resp.StatusCode)
	}
}

func (c *HTTPClient) count(outcome string) {
	if c.metrics != nil {
		c.metrics.GatewayRequestsTotal.WithLabelValues(outcome).Inc()
	}
}
