package gateway

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

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/quickmart-dev/quickmart-backend/pkg/config"
	pkgerrors "github.com/quickmart-dev/quickmart-backend/pkg/errors"
)

const responseBodyReadLimit int64 = 64 * 1024

var (
	errBaseURLRequired     = errors.New("gateway base url is required")
	errCredentialsRequired = errors.New("gateway store credentials are required")
)

// Client talks to the hosted-checkout payment gateway. A checkout session is
// created per order; the shopper is redirected to the returned URL and the
// gateway calls back on the configured success/fail/cancel endpoints.
type Client struct {
	httpClient *http.Client
	baseURL    string
	storeID    string
	storePass  string
	currency   string
	successURL string
	failURL    string
	cancelURL  string
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// NewClient builds a gateway client from configuration.
func NewClient(cfg config.GatewayConfig, opts ...Option) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, errBaseURLRequired
	}
	if strings.TrimSpace(cfg.StoreID) == "" || strings.TrimSpace(cfg.StorePassword) == "" {
		return nil, errCredentialsRequired
	}

	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	client := &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		storeID:    strings.TrimSpace(cfg.StoreID),
		storePass:  strings.TrimSpace(cfg.StorePassword),
		currency:   strings.ToUpper(strings.TrimSpace(cfg.Currency)),
		successURL: cfg.SuccessURL,
		failURL:    cfg.FailURL,
		cancelURL:  cfg.CancelURL,
	}
	if client.currency == "" {
		client.currency = "USD"
	}

	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}

	return client, nil
}

// SessionRequest describes one checkout session keyed by the order id.
type SessionRequest struct {
	OrderID     uuid.UUID
	AmountCents int
}

// Session is the gateway's handle for an initiated payment.
type Session struct {
	ID          string
	RedirectURL string
}

type sessionPayload struct {
	StoreID       string `json:"store_id"`
	StorePassword string `json:"store_password"`
	TransactionID string `json:"tran_id"`
	Amount        string `json:"total_amount"`
	Currency      string `json:"currency"`
	SuccessURL    string `json:"success_url"`
	FailURL       string `json:"fail_url"`
	CancelURL     string `json:"cancel_url"`
}

type sessionResponse struct {
	Status     string `json:"status"`
	SessionKey string `json:"sessionkey"`
	GatewayURL string `json:"GatewayPageURL"`
	Reason     string `json:"failedreason"`
}

// CreateSession registers a payment with the gateway and returns the redirect
// target. The order id is sent as the transaction id so callbacks correlate.
func (c *Client) CreateSession(ctx context.Context, req SessionRequest) (*Session, error) {
	if req.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	if req.AmountCents <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}

	payload := sessionPayload{
		StoreID:       c.storeID,
		StorePassword: c.storePass,
		TransactionID: req.OrderID.String(),
		Amount:        formatAmount(req.AmountCents),
		Currency:      c.currency,
		SuccessURL:    c.successURL,
		FailURL:       c.failURL,
		CancelURL:     c.cancelURL,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode session payload")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/sessions", bytes.NewReader(body))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build session request")
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "call payment gateway")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read gateway response")
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("gateway returned status %d", resp.StatusCode))
	}

	var decoded sessionResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode gateway response")
	}
	if !strings.EqualFold(decoded.Status, "success") || decoded.GatewayURL == "" {
		msg := decoded.Reason
		if msg == "" {
			msg = "gateway rejected session"
		}
		return nil, pkgerrors.New(pkgerrors.CodeDependency, msg)
	}

	return &Session{
		ID:          decoded.SessionKey,
		RedirectURL: decoded.GatewayURL,
	}, nil
}

// formatAmount renders cents as the decimal string the gateway expects.
func formatAmount(cents int) string {
	return decimal.NewFromInt(int64(cents)).Div(decimal.NewFromInt(100)).StringFixed(2)
}
