package service

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"littletimes/internal/notify"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotifyServiceWebhookStatuses(t *testing.T) {
	t.Parallel()

	body := []byte(`{"record":{"id":1,"name":"김하늘","phone":"010-1234-5678","address":"서울","created_at":"2026-03-02T09:30:00Z"}}`)

	tests := []struct {
		name       string
		mailer     notify.Mailer
		cfg        WebhookConfig
		req        WebhookRequest
		wantStatus int
		wantBody   string
	}{
		{
			name:       "wrong method",
			mailer:     &mailerStub{},
			cfg:        WebhookConfig{To: "ops@example.com"},
			req:        WebhookRequest{Method: http.MethodGet, Body: body},
			wantStatus: http.StatusMethodNotAllowed,
			wantBody:   "Method Not Allowed",
		},
		{
			name:       "bad secret",
			mailer:     &mailerStub{},
			cfg:        WebhookConfig{To: "ops@example.com", Secret: "s3cret"},
			req:        WebhookRequest{Method: http.MethodPost, Secret: "guess", Body: body},
			wantStatus: http.StatusUnauthorized,
			wantBody:   "Unauthorized",
		},
		{
			name:       "missing secret header",
			mailer:     &mailerStub{},
			cfg:        WebhookConfig{To: "ops@example.com", Secret: "s3cret"},
			req:        WebhookRequest{Method: http.MethodPost, Body: body},
			wantStatus: http.StatusUnauthorized,
			wantBody:   "Unauthorized",
		},
		{
			name:       "malformed json",
			mailer:     &mailerStub{},
			cfg:        WebhookConfig{To: "ops@example.com"},
			req:        WebhookRequest{Method: http.MethodPost, Body: []byte(`{"record":`)},
			wantStatus: http.StatusBadRequest,
			wantBody:   "Bad Request",
		},
		{
			name:       "no recipient",
			mailer:     &mailerStub{},
			cfg:        WebhookConfig{},
			req:        WebhookRequest{Method: http.MethodPost, Body: body},
			wantStatus: http.StatusInternalServerError,
			wantBody:   "Missing email configuration",
		},
		{
			name:       "no mailer",
			cfg:        WebhookConfig{To: "ops@example.com"},
			req:        WebhookRequest{Method: http.MethodPost, Body: body},
			wantStatus: http.StatusInternalServerError,
			wantBody:   "Missing email configuration",
		},
		{
			name:       "send failure",
			mailer:     &mailerStub{err: errors.New("resend down")},
			cfg:        WebhookConfig{To: "ops@example.com"},
			req:        WebhookRequest{Method: http.MethodPost, Body: body},
			wantStatus: http.StatusInternalServerError,
			wantBody:   "Failed to send email",
		},
		{
			name:       "delivered",
			mailer:     &mailerStub{},
			cfg:        WebhookConfig{To: "ops@example.com", Secret: "s3cret"},
			req:        WebhookRequest{Method: http.MethodPost, Secret: "s3cret", Body: body},
			wantStatus: http.StatusOK,
			wantBody:   "ok",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			svc := NewNotifyService(tt.mailer, tt.cfg)
			resp := svc.HandleFreeTrialWebhook(context.Background(), tt.req)
			assert.Equal(t, tt.wantStatus, resp.Status)
			assert.Equal(t, tt.wantBody, resp.Body)
		})
	}
}

func TestNotifyServiceWebhookMessage(t *testing.T) {
	t.Parallel()

	mailer := &mailerStub{}
	svc := NewNotifyService(mailer, WebhookConfig{To: "ops@example.com"})

	resp := svc.HandleFreeTrialWebhook(context.Background(), WebhookRequest{
		Method: http.MethodPost,
		Body:   []byte(`{"type":"INSERT","record":{"id":17,"name":"김하늘","phone":"010-1234-5678","address":"서울시 마포구","created_at":"2026-03-02T09:30:00Z"}}`),
	})
	require.Equal(t, http.StatusOK, resp.Status)

	msgs := mailer.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, notify.DefaultFrom, msgs[0].From)
	assert.Equal(t, []string{"ops@example.com"}, msgs[0].To)
	assert.Equal(t, "New free trial request", msgs[0].Subject)
	assert.Equal(t, strings.Join([]string{
		"A new free trial request was submitted.",
		"",
		"Name: 김하늘",
		"Phone: 010-1234-5678",
		"Address: 서울시 마포구",
		"Id: 17",
		"Created: 2026-03-02T09:30:00Z",
	}, "\n"), msgs[0].Text)
}

func TestNotifyServiceRecordFallbacks(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
		want []string
	}{
		{
			name: "new row",
			body: `{"new":{"name":"도윤","id":"abc"}}`,
			want: []string{"Name: 도윤", "Phone: (missing)", "Id: abc"},
		},
		{
			name: "bare payload",
			body: `{"name":"서연","phone":null}`,
			want: []string{"Name: 서연", "Phone: (missing)", "Address: (missing)", "Created: (missing)"},
		},
		{
			name: "record preferred over new",
			body: `{"record":{"name":"하준"},"new":{"name":"무시"}}`,
			want: []string{"Name: 하준"},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			mailer := &mailerStub{}
			svc := NewNotifyService(mailer, WebhookConfig{To: "ops@example.com", From: "alerts@example.com"})
			resp := svc.HandleFreeTrialWebhook(context.Background(), WebhookRequest{Method: http.MethodPost, Body: []byte(tt.body)})
			require.Equal(t, http.StatusOK, resp.Status)

			msgs := mailer.messages()
			require.Len(t, msgs, 1)
			assert.Equal(t, "alerts@example.com", msgs[0].From)
			lines := strings.Split(msgs[0].Text, "\n")
			for _, w := range tt.want {
				assert.Contains(t, lines, w)
			}
		})
	}
}
