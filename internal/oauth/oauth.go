// Package oauth implements third-party sign-in with OAuth2 and OpenID Connect.
package oauth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// GoogleIssuer is the OIDC discovery URL for Google accounts.
const GoogleIssuer = "https://accounts.google.com"

// StateCookie holds the anti-forgery state between redirect and callback.
const StateCookie = "oauth_state"

var (
	// ErrUnknownProvider is returned for providers that are not configured.
	ErrUnknownProvider = errors.New("unknown oauth provider")
	// ErrMissingIDToken means the token response carried no id_token.
	ErrMissingIDToken = errors.New("missing id_token")
)

// Identity is the verified account returned by a provider.
type Identity struct {
	Provider      string
	Subject       string
	Email         string
	EmailVerified bool
	Name          string
}

// Provider is one sign-in backend.
type Provider interface {
	Name() string
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*Identity, error)
}

// Registry maps provider names to providers.
type Registry map[string]Provider

// Get returns the named provider.
func (r Registry) Get(name string) (Provider, error) {
	p, ok := r[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, name)
	}
	return p, nil
}

// RandomState returns a URL-safe random state value.
func RandomState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// GoogleProvider signs users in with their Google account.
type GoogleProvider struct {
	config *oauth2.Config
	issuer string

	mu       sync.Mutex
	verifier *oidc.IDTokenVerifier
}

// Option customizes a GoogleProvider.
type Option func(*GoogleProvider)

// WithEndpoint overrides the OAuth2 endpoints.
func WithEndpoint(ep oauth2.Endpoint) Option {
	return func(p *GoogleProvider) { p.config.Endpoint = ep }
}

// WithVerifier uses v instead of discovering the issuer's keys.
func WithVerifier(v *oidc.IDTokenVerifier) Option {
	return func(p *GoogleProvider) { p.verifier = v }
}

// NewGoogleProvider configures Google sign-in with the openid, email and
// profile scopes.
func NewGoogleProvider(clientID, clientSecret, redirectURL string, opts ...Option) *GoogleProvider {
	p := &GoogleProvider{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes:       []string{oidc.ScopeOpenID, "email", "profile"},
			Endpoint:     google.Endpoint,
		},
		issuer: GoogleIssuer,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *GoogleProvider) Name() string { return "google" }

func (p *GoogleProvider) AuthCodeURL(state string) string {
	return p.config.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

// idVerifier discovers the issuer once. A failed discovery is retried on the
// next call.
func (p *GoogleProvider) idVerifier(ctx context.Context) (*oidc.IDTokenVerifier, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.verifier != nil {
		return p.verifier, nil
	}
	provider, err := oidc.NewProvider(ctx, p.issuer)
	if err != nil {
		return nil, fmt.Errorf("oidc discovery: %w", err)
	}
	p.verifier = provider.Verifier(&oidc.Config{ClientID: p.config.ClientID})
	return p.verifier, nil
}

type googleClaims struct {
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	GivenName     string `json:"given_name"`
}

// Exchange trades the authorization code for tokens and verifies the ID
// token signature, issuer, audience and expiry.
func (p *GoogleProvider) Exchange(ctx context.Context, code string) (*Identity, error) {
	tok, err := p.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchange code: %w", err)
	}
	rawIDToken, ok := tok.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		return nil, ErrMissingIDToken
	}

	verifier, err := p.idVerifier(ctx)
	if err != nil {
		return nil, err
	}
	idToken, err := verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, fmt.Errorf("verify id_token: %w", err)
	}

	var claims googleClaims
	if err := idToken.Claims(&claims); err != nil {
		return nil, fmt.Errorf("decode id_token claims: %w", err)
	}
	if claims.Email == "" {
		return nil, errors.New("google account has no email")
	}

	name := claims.Name
	if name == "" {
		name = claims.GivenName
	}
	return &Identity{
		Provider:      p.Name(),
		Subject:       idToken.Subject,
		Email:         strings.ToLower(claims.Email),
		EmailVerified: claims.EmailVerified,
		Name:          name,
	}, nil
}
