package service

import (
	"context"
	"crypto/subtle"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"littletimes/internal/middleware"
	"littletimes/internal/notify"
	"littletimes/internal/observability"

	"github.com/tidwall/gjson"
)

const (
	webhookSubject = "New free trial request"
	missingField   = "(missing)"
)

// WebhookConfig configures the free trial notification hook.
type WebhookConfig struct {
	Secret string
	To     string
	From   string
}

// WebhookRequest is the transport-neutral view of an incoming call.
type WebhookRequest struct {
	Method string
	Secret string
	Body   []byte
}

// WebhookResponse is the status and plain-text body to send back.
type WebhookResponse struct {
	Status int
	Body   string
}

// NotifyService turns database change events for free trial requests into
// an alert e-mail.
type NotifyService struct {
	mailer notify.Mailer
	cfg    WebhookConfig
}

func NewNotifyService(mailer notify.Mailer, cfg WebhookConfig) *NotifyService {
	if cfg.From == "" {
		cfg.From = notify.DefaultFrom
	}
	return &NotifyService{mailer: mailer, cfg: cfg}
}

// HandleFreeTrialWebhook validates the call and mails the record it carries.
func (s *NotifyService) HandleFreeTrialWebhook(ctx context.Context, req WebhookRequest) WebhookResponse {
	resp := s.handle(ctx, req)
	observability.WebhookDeliveries.WithLabelValues(strconv.Itoa(resp.Status)).Inc()
	return resp
}

func (s *NotifyService) handle(ctx context.Context, req WebhookRequest) WebhookResponse {
	if req.Method != http.MethodPost {
		return WebhookResponse{Status: http.StatusMethodNotAllowed, Body: "Method Not Allowed"}
	}
	if s.cfg.Secret != "" &&
		subtle.ConstantTimeCompare([]byte(req.Secret), []byte(s.cfg.Secret)) != 1 {
		return WebhookResponse{Status: http.StatusUnauthorized, Body: "Unauthorized"}
	}
	if !gjson.ValidBytes(req.Body) {
		return WebhookResponse{Status: http.StatusBadRequest, Body: "Bad Request"}
	}
	if s.mailer == nil || strings.TrimSpace(s.cfg.To) == "" {
		middleware.Logger.ErrorContext(ctx, "free trial webhook is missing mail configuration")
		return WebhookResponse{Status: http.StatusInternalServerError, Body: "Missing email configuration"}
	}

	msg := notify.Message{
		From:    s.cfg.From,
		To:      []string{s.cfg.To},
		Subject: webhookSubject,
		Text:    FreeTrialAlertText(webhookRecord(req.Body)),
	}
	if err := notify.Send(ctx, s.mailer, msg); err != nil {
		return WebhookResponse{Status: http.StatusInternalServerError, Body: "Failed to send email"}
	}
	middleware.Logger.InfoContext(ctx, "free trial alert sent", slog.String("to", s.cfg.To))
	return WebhookResponse{Status: http.StatusOK, Body: "ok"}
}

// webhookRecord picks payload.record, then payload.new, then the payload.
func webhookRecord(body []byte) gjson.Result {
	root := gjson.ParseBytes(body)
	for _, path := range []string{"record", "new"} {
		if r := root.Get(path); r.Exists() && r.Type != gjson.Null {
			return r
		}
	}
	return root
}

func field(rec gjson.Result, key string) string {
	v := rec.Get(key)
	if !v.Exists() || v.Type == gjson.Null {
		return missingField
	}
	return v.String()
}

// FreeTrialAlertText renders the alert body for a free trial record.
func FreeTrialAlertText(rec gjson.Result) string {
	return strings.Join([]string{
		"A new free trial request was submitted.",
		"",
		fmt.Sprintf("Name: %s", field(rec, "name")),
		fmt.Sprintf("Phone: %s", field(rec, "phone")),
		fmt.Sprintf("Address: %s", field(rec, "address")),
		fmt.Sprintf("Id: %s", field(rec, "id")),
		fmt.Sprintf("Created: %s", field(rec, "created_at")),
	}, "\n")
}
