package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"littletimes/internal/observability"
)

// DefaultResendAPIBase is the Resend REST endpoint.
const DefaultResendAPIBase = "https://api.resend.com"

// ResendMailer sends mail through the Resend HTTP API.
type ResendMailer struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// NewResendMailer builds a mailer. A nil httpClient uses a 10 second timeout.
func NewResendMailer(baseURL, apiKey string, httpClient *http.Client) *ResendMailer {
	if baseURL == "" {
		baseURL = DefaultResendAPIBase
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &ResendMailer{baseURL: strings.TrimRight(baseURL, "/"), apiKey: apiKey, http: httpClient}
}

type resendEmail struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	Text    string   `json:"text"`
}

func (m *ResendMailer) Transport() string { return "resend" }

func (m *ResendMailer) Send(ctx context.Context, msg Message) error {
	span, ctx := observability.StartClientSpan(ctx, "resend", "send")
	defer span.End()

	body, err := json.Marshal(resendEmail{From: msg.From, To: msg.To, Subject: msg.Subject, Text: msg.Text})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+"/emails", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+m.apiKey)

	resp, err := m.http.Do(req)
	if err != nil {
		span.SetError(err)
		return fmt.Errorf("resend: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		err := fmt.Errorf("resend: status %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
		span.SetError(err)
		return err
	}
	return nil
}
