// Package client is a Go client for the Little Times API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"littletimes/internal/models"
)

const defaultTimeout = 15 * time.Second

// Session is the sign-in result returned by the auth endpoints.
type Session struct {
	User                 *models.User `json:"user"`
	Token                string       `json:"token,omitempty"`
	LoginAt              time.Time    `json:"login_at"`
	ExpiresAt            time.Time    `json:"expires_at"`
	ConfirmationRequired bool         `json:"confirmation_required,omitempty"`
}

// APIError is a non-2xx response.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api: status %d", e.Status)
	}
	return e.Message
}

// IsUnauthorized reports whether err is a 401 from the API.
func IsUnauthorized(err error) bool {
	return hasStatus(err, http.StatusUnauthorized)
}

// IsNotFound reports whether err is a 404 from the API.
func IsNotFound(err error) bool {
	return hasStatus(err, http.StatusNotFound)
}

func hasStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == status
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithToken starts the client with a bearer token.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// Client talks to the API. It is safe for concurrent use.
type Client struct {
	baseURL string
	http    *http.Client

	mu    sync.RWMutex
	token string
}

// New returns a client for the API rooted at baseURL, e.g.
// "http://localhost:8375/api".
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetToken sets the bearer token sent with every request.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// Token returns the current bearer token.
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tok := c.Token(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode}
		var e models.ErrorResponse
		if json.Unmarshal(raw, &e) == nil {
			apiErr.Code = e.Code
			apiErr.Message = e.Error
		}
		return apiErr
	}

	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// Register creates an account. The returned session has no token when the
// server requires e-mail confirmation.
func (c *Client) Register(ctx context.Context, req models.RegisterRequest) (*Session, error) {
	var out Session
	if err := c.do(ctx, http.MethodPost, "/auth/register", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Login signs in with e-mail and password.
func (c *Client) Login(ctx context.Context, email, password string) (*Session, error) {
	var out Session
	err := c.do(ctx, http.MethodPost, "/auth/login", models.LoginRequest{Email: email, Password: password}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Logout revokes the current token.
func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/auth/logout", nil, nil)
}

// Refresh reissues the current token within its original lifetime.
func (c *Client) Refresh(ctx context.Context) (*Session, error) {
	var out Session
	if err := c.do(ctx, http.MethodPost, "/auth/refresh", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Session describes the current token without reissuing it.
func (c *Client) Session(ctx context.Context) (*Session, error) {
	var out Session
	if err := c.do(ctx, http.MethodGet, "/auth/session", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Profile returns the signed-in user.
func (c *Client) Profile(ctx context.Context) (*models.User, error) {
	var out models.User
	if err := c.do(ctx, http.MethodGet, "/users/me", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateProfile changes the set fields of the signed-in user's profile.
func (c *Client) UpdateProfile(ctx context.Context, in models.ProfileUpdate) (*models.User, error) {
	var out models.User
	if err := c.do(ctx, http.MethodPut, "/users/me", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Posts returns one page of the board, newest first.
func (c *Client) Posts(ctx context.Context, page, limit int) (*models.Page[models.PostView], error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("limit", strconv.Itoa(limit))
	var out models.Page[models.PostView]
	if err := c.do(ctx, http.MethodGet, "/posts?"+q.Encode(), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Post returns a single post and counts the view.
func (c *Client) Post(ctx context.Context, id uint) (*models.PostView, error) {
	var out models.PostView
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/posts/%d", id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreatePost publishes a review.
func (c *Client) CreatePost(ctx context.Context, title, content string) (*models.PostView, error) {
	var out models.PostView
	err := c.do(ctx, http.MethodPost, "/posts", models.PostRequest{Title: title, Content: content}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ToggleLike likes or unlikes a post.
func (c *Client) ToggleLike(ctx context.Context, postID uint) (*models.LikeResult, error) {
	var out models.LikeResult
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/posts/%d/like", postID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Plans lists the subscription plans.
func (c *Client) Plans(ctx context.Context) ([]models.Plan, error) {
	var out []models.Plan
	if err := c.do(ctx, http.MethodGet, "/plans", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}
