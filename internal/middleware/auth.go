// Package middleware provides authentication, logging, metrics and rate
// limiting middleware for the application.
package middleware

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Token issuer and audience written into every session token.
const (
	TokenIssuer   = "littletimes-api"
	TokenAudience = "littletimes-client"
)

// ErrNoBearerToken is returned when the request has no bearer credentials.
var ErrNoBearerToken = errors.New("authorization required")

// Claims are the session token claims. LoginAt is the original sign-in time;
// the token can never outlive LoginAt plus the session TTL.
type Claims struct {
	LoginAt int64 `json:"lat"`
	jwt.RegisteredClaims
}

// UserID parses the subject claim.
func (c *Claims) UserID() (uint, error) {
	id, err := strconv.ParseUint(c.Subject, 10, 32)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid subject %q", c.Subject)
	}
	return uint(id), nil
}

// LoginTime returns LoginAt as a time.
func (c *Claims) LoginTime() time.Time {
	return time.Unix(c.LoginAt, 0)
}

// IssuedToken is a signed token with its lifetime bounds.
type IssuedToken struct {
	Token     string    `json:"token"`
	JTI       string    `json:"-"`
	LoginAt   time.Time `json:"login_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// IssueToken signs a session token for userID. The expiry is loginAt + ttl,
// so reissuing with the same loginAt never extends the session.
func IssueToken(secret string, userID uint, loginAt time.Time, ttl time.Duration) (*IssuedToken, error) {
	if secret == "" {
		return nil, errors.New("JWT secret not configured")
	}

	now := time.Now()
	expiresAt := loginAt.Add(ttl)
	if !expiresAt.After(now) {
		return nil, errors.New("session already expired")
	}

	jti := uuid.NewString()
	claims := Claims{
		LoginAt: loginAt.Unix(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(userID), 10),
			Issuer:    TokenIssuer,
			Audience:  jwt.ClaimStrings{TokenAudience},
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ID:        jti,
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return nil, err
	}
	return &IssuedToken{Token: signed, JTI: jti, LoginAt: time.Unix(claims.LoginAt, 0), ExpiresAt: expiresAt}, nil
}

// ParseToken validates signature, expiry, issuer and audience.
func ParseToken(secret, tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return []byte(secret), nil
	},
		jwt.WithIssuer(TokenIssuer),
		jwt.WithAudience(TokenAudience),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	if _, err := claims.UserID(); err != nil {
		return nil, err
	}
	return claims, nil
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" header.
func BearerToken(c *fiber.Ctx) (string, error) {
	header := c.Get(fiber.HeaderAuthorization)
	if header == "" {
		return "", ErrNoBearerToken
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", errors.New("invalid authorization header format")
	}
	return strings.TrimSpace(token), nil
}
