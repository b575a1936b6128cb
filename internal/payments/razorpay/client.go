// Package razorpay talks to the Razorpay Orders API.
package razorpay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker/v2"

	"github.com/threadloom/storefront-backend/internal/payments"
	"github.com/threadloom/storefront-backend/pkg/config"
	"github.com/threadloom/storefront-backend/pkg/enums"
	pkgerrors "github.com/threadloom/storefront-backend/pkg/errors"
	"github.com/threadloom/storefront-backend/pkg/logger"
	"github.com/threadloom/storefront-backend/pkg/metrics"
)

const (
	ordersPath           = "/v1/orders"
	operationCreateOrder = "create_order"
	breakerTripFailures  = 5
	maxErrorBody         = 4 << 10
)

// APIError is a non-2xx answer from Razorpay.
type APIError struct {
	StatusCode  int
	Code        string
	Description string
}

func (e *APIError) Error() string {
	if e.Description == "" {
		return fmt.Sprintf("razorpay: status %d", e.StatusCode)
	}
	return fmt.Sprintf("razorpay: status %d: %s: %s", e.StatusCode, e.Code, e.Description)
}

// Retryable reports whether the gateway asked us to come back later.
func (e *APIError) Retryable() bool {
	return e.StatusCode >= http.StatusInternalServerError || e.StatusCode == http.StatusTooManyRequests
}

// Options configures a Client.
type Options struct {
	Config     config.GatewayConfig
	HTTPClient *http.Client
	Metrics    *metrics.CheckoutMetrics
	Logger     *logger.Logger
}

// Client implements payments.Gateway against the live Razorpay API.
type Client struct {
	baseURL     string
	keyID       string
	keySecret   string
	timeout     time.Duration
	maxAttempts int
	retryBase   time.Duration
	http        *http.Client
	breaker     *gobreaker.CircuitBreaker[*orderResponse]
	metrics     *metrics.CheckoutMetrics
	logg        *logger.Logger
}

type orderRequest struct {
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Receipt  string            `json:"receipt"`
	Notes    map[string]string `json:"notes,omitempty"`
}

type orderResponse struct {
	ID       string `json:"id"`
	Entity   string `json:"entity"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
}

type errorEnvelope struct {
	Error struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	} `json:"error"`
}

var _ payments.Gateway = (*Client)(nil)

// New validates the gateway configuration and builds a client.
func New(opts Options) (*Client, error) {
	cfg := opts.Config
	if strings.TrimSpace(cfg.KeyID) == "" || strings.TrimSpace(cfg.KeySecret) == "" {
		return nil, fmt.Errorf("razorpay key id and secret are required")
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("razorpay base url is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	attempts := cfg.MaxAttempts
	if attempts <= 0 {
		attempts = 3
	}
	retryBase := cfg.RetryBase
	if retryBase <= 0 {
		retryBase = 200 * time.Millisecond
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	c := &Client{
		baseURL:     baseURL,
		keyID:       cfg.KeyID,
		keySecret:   cfg.KeySecret,
		timeout:     timeout,
		maxAttempts: attempts,
		retryBase:   retryBase,
		http:        httpClient,
		metrics:     opts.Metrics,
		logg:        opts.Logger,
	}
	c.breaker = gobreaker.NewCircuitBreaker[*orderResponse](gobreaker.Settings{
		Name:        "razorpay",
		MaxRequests: 1,
		Interval:    cfg.BreakerWindow,
		Timeout:     cfg.BreakerWindow,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= breakerTripFailures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || !isRetryable(err)
		},
		OnStateChange: c.onStateChange,
	})
	return c, nil
}

func (c *Client) KeyID() string {
	return c.keyID
}

// CreateIntent creates a Razorpay order for amount. Transient failures are
// retried with exponential backoff; exhaustion or an open breaker yields
// GATEWAY_UNAVAILABLE. A 4xx answer is final and yields GATEWAY_REJECTED.
func (c *Client) CreateIntent(ctx context.Context, amount decimal.Decimal, currency enums.Currency, receiptID string) (*payments.Intent, error) {
	paise, err := payments.ToMinorUnits(amount)
	if err != nil {
		return nil, pkgerrors.ValidationField("amount", err.Error())
	}
	req := orderRequest{
		Amount:   paise,
		Currency: currency.String(),
		Receipt:  receiptID,
		Notes:    map[string]string{"checkout_session_id": receiptID},
	}

	start := time.Now()
	var resp *orderResponse
	err = retry.Do(ctx, c.backoff(), func(ctx context.Context) error {
		out, callErr := c.breaker.Execute(func() (*orderResponse, error) {
			return c.createOrder(ctx, req)
		})
		if callErr != nil {
			if isRetryable(callErr) {
				return retry.RetryableError(callErr)
			}
			return callErr
		}
		resp = out
		return nil
	})
	c.metrics.ObserveGateway(operationCreateOrder, err, time.Since(start))
	if err != nil {
		if c.logg != nil {
			c.logg.Error(c.logg.WithField(ctx, "receipt", receiptID), "razorpay create order failed", err)
		}
		var apiErr *APIError
		if errors.As(err, &apiErr) && !apiErr.Retryable() {
			return nil, pkgerrors.GatewayRejected(err, apiErr.Code)
		}
		return nil, pkgerrors.GatewayUnavailable(err)
	}
	if resp.ID == "" {
		return nil, pkgerrors.GatewayUnavailable(errors.New("razorpay returned an order without id"))
	}

	respCurrency := currency
	if resp.Currency != "" {
		if parsed, parseErr := enums.ParseCurrency(resp.Currency); parseErr == nil {
			respCurrency = parsed
		}
	}
	return &payments.Intent{
		GatewayOrderID: resp.ID,
		Amount:         payments.FromMinorUnits(resp.Amount),
		Currency:       respCurrency,
	}, nil
}

// Verify checks the checkout signature; it never calls the network.
func (c *Client) Verify(gatewayOrderID, gatewayPaymentID, signature string) bool {
	return payments.VerifySignature(c.keySecret, gatewayOrderID, gatewayPaymentID, signature)
}

func (c *Client) backoff() retry.Backoff {
	b := retry.NewExponential(c.retryBase)
	b = retry.WithJitterPercent(10, b)
	return retry.WithMaxRetries(uint64(c.maxAttempts-1), b)
}

func (c *Client) createOrder(ctx context.Context, body orderRequest) (*orderResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode order request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+ordersPath, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build order request: %w", err)
	}
	req.SetBasicAuth(c.keyID, c.keySecret)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		return nil, &networkError{err: err}
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return nil, decodeAPIError(res)
	}
	var out orderResponse
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode order response: %w", err)
	}
	return &out, nil
}

func decodeAPIError(res *http.Response) error {
	apiErr := &APIError{StatusCode: res.StatusCode}
	raw, _ := io.ReadAll(io.LimitReader(res.Body, maxErrorBody))
	var env errorEnvelope
	if len(raw) > 0 && json.Unmarshal(raw, &env) == nil {
		apiErr.Code = env.Error.Code
		apiErr.Description = env.Error.Description
	}
	return apiErr
}

func (c *Client) onStateChange(name string, from, to gobreaker.State) {
	if c.logg == nil {
		return
	}
	ctx := c.logg.WithFields(context.Background(), map[string]any{
		"breaker": name,
		"from":    from.String(),
		"to":      to.String(),
	})
	c.logg.Warn(ctx, "payment gateway breaker state changed")
}

type networkError struct {
	err error
}

func (e *networkError) Error() string {
	return "razorpay: " + e.err.Error()
}

func (e *networkError) Unwrap() error {
	return e.err
}

func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	var netErr *networkError
	if errors.As(err, &netErr) {
		return true
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Retryable()
	}
	return false
}
