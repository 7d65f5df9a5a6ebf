// Package payment talks to the Toss Payments API. The secret key never
// leaves this package.
package payment

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"littletimes/internal/models"
	"littletimes/internal/observability"

	"go.opentelemetry.io/otel/attribute"
)

// DefaultAPIBase is the production Toss Payments endpoint.
const DefaultAPIBase = "https://api.tosspayments.com"

// Method labels used by the Toss checkout SDK and confirm responses.
const (
	TossMethodCard           = "카드"
	TossMethodVirtualAccount = "가상계좌"
)

// VirtualAccount holds the bank transfer details issued for a
// virtual-account payment.
type VirtualAccount struct {
	AccountNumber string `json:"accountNumber"`
	BankCode      string `json:"bankCode"`
	CustomerName  string `json:"customerName"`
	DueDate       string `json:"dueDate"`
}

// DueTime parses DueDate. The zero time is returned when it is absent or
// malformed.
func (v *VirtualAccount) DueTime() time.Time {
	if v == nil || v.DueDate == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, v.DueDate)
	if err != nil {
		return time.Time{}
	}
	return t
}

// Confirmation is the subset of the Toss payment object we persist.
type Confirmation struct {
	PaymentKey     string          `json:"paymentKey"`
	OrderID        string          `json:"orderId"`
	OrderName      string          `json:"orderName"`
	Method         string          `json:"method"`
	Status         string          `json:"status"`
	TotalAmount    int64           `json:"totalAmount"`
	ApprovedAt     string          `json:"approvedAt"`
	VirtualAccount *VirtualAccount `json:"virtualAccount"`
}

// NormalizedMethod maps the gateway method label to a subscription payment
// method. Unknown labels are returned unchanged.
func (c *Confirmation) NormalizedMethod() string {
	switch c.Method {
	case TossMethodCard:
		return models.PaymentMethodCard
	case TossMethodVirtualAccount:
		return models.PaymentMethodVirtualAccount
	}
	if c.Method == "" {
		return models.PaymentMethodCard
	}
	return c.Method
}

// GatewayError is a non-2xx reply from Toss.
type GatewayError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *GatewayError) Error() string {
	if e.Message == "" {
		return e.Code
	}
	return e.Code + ": " + e.Message
}

// Client confirms payments with the server-held secret key.
type Client struct {
	baseURL    string
	authHeader string
	http       *http.Client
}

// NewClient builds a client for baseURL. A nil httpClient uses a client with
// a 10 second timeout.
func NewClient(baseURL, secretKey string, httpClient *http.Client) *Client {
	if baseURL == "" {
		baseURL = DefaultAPIBase
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		authHeader: "Basic " + base64.StdEncoding.EncodeToString([]byte(secretKey+":")),
		http:       httpClient,
	}
}

type confirmRequest struct {
	PaymentKey string `json:"paymentKey"`
	OrderID    string `json:"orderId"`
	Amount     int64  `json:"amount"`
}

// Confirm approves an authorized payment. Gateway rejections are returned
// as *GatewayError.
func (c *Client) Confirm(ctx context.Context, paymentKey, orderID string, amount int64) (*Confirmation, error) {
	span, ctx := observability.StartClientSpan(ctx, "toss", "confirm",
		attribute.String("payment.order_id", orderID),
		attribute.Int64("payment.amount", amount),
	)
	defer span.End()

	body, err := json.Marshal(confirmRequest{PaymentKey: paymentKey, OrderID: orderID, Amount: amount})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/payments/confirm", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", c.authHeader)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		span.SetError(err)
		return nil, fmt.Errorf("toss confirm: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		span.SetError(err)
		return nil, fmt.Errorf("toss confirm: read body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		gwErr := &GatewayError{Status: resp.StatusCode}
		if jsonErr := json.Unmarshal(raw, gwErr); jsonErr != nil || gwErr.Code == "" {
			gwErr.Code = "UNKNOWN_PAYMENT_ERROR"
		}
		span.SetError(gwErr)
		return nil, gwErr
	}

	var out Confirmation
	if err := json.Unmarshal(raw, &out); err != nil {
		span.SetError(err)
		return nil, fmt.Errorf("toss confirm: decode: %w", err)
	}
	span.AddAttributes(attribute.String("payment.method", out.Method))
	return &out, nil
}

// AsGatewayError unwraps err into a *GatewayError.
func AsGatewayError(err error) (*GatewayError, bool) {
	var gwErr *GatewayError
	ok := errors.As(err, &gwErr)
	return gwErr, ok
}
