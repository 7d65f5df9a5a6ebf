package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strconv"
	"strings"
	"testing"
	"time"

	"littletimes/internal/config"
	"littletimes/internal/middleware"
	"littletimes/internal/repository"
	"littletimes/internal/service"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// setupMockDB creates a GORM *gorm.DB backed by sqlmock for unit tests.
func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: db}), &gorm.Config{})
	require.NoError(t, err)
	return gormDB, mock
}

// --- humanizeParam (pure function, no HTTP) ---

func TestHumanizeParam(t *testing.T) {
	tests := []struct {
		param    string
		expected string
	}{
		{"id", "ID"},
		{"userId", "user ID"},
		{"commentId", "comment ID"},
		{"freeTrialId", "free trial ID"},
		{"something", "something"},
	}
	for _, tt := range tests {
		t.Run(tt.param, func(t *testing.T) {
			assert.Equal(t, tt.expected, humanizeParam(tt.param))
		})
	}
}

// --- parseID ---

func TestParseID(t *testing.T) {
	tests := []struct {
		path       string
		wantStatus int
		wantMsg    string
	}{
		{"/items/42", http.StatusOK, ""},
		{"/items/abc", http.StatusBadRequest, "Invalid ID"},
		{"/items/0", http.StatusBadRequest, "Invalid ID"},
		{"/items/-3", http.StatusBadRequest, "Invalid ID"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			app := fiber.New()
			s := &Server{}
			app.Get("/items/:id", func(c *fiber.Ctx) error {
				id, err := s.parseID(c, "id")
				if err != nil {
					return nil
				}
				return c.JSON(fiber.Map{"id": id})
			})

			resp, err := app.Test(httptest.NewRequest(http.MethodGet, tt.path, nil))
			require.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()

			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			if tt.wantMsg != "" {
				var body map[string]string
				require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
				assert.Equal(t, tt.wantMsg, body["error"])
			}
		})
	}
}

func TestParseBodyRejectsMalformedJSON(t *testing.T) {
	app := fiber.New()
	app.Post("/items", func(c *fiber.Ctx) error {
		var dest struct {
			Name string `json:"name"`
		}
		if err := parseBody(c, &dest); err != nil {
			assert.True(t, errors.Is(err, errResponseWritten))
			return nil
		}
		return c.SendStatus(fiber.StatusOK)
	})

	req := httptest.NewRequest(http.MethodPost, "/items", strings.NewReader(`{"name":`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

// --- AuthRequired ---

func TestServer_AuthRequired(t *testing.T) {
	s := &Server{config: &config.Config{JWTSecret: testSecret}}
	app := fiber.New()
	app.Get("/protected", s.AuthRequired(), func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"userID": currentUserID(c), "lat": currentClaims(c).LoginAt})
	})

	signed := func(claims jwt.Claims) string {
		str, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
		require.NoError(t, err)
		return str
	}
	registered := func(issuer, audience string, exp time.Duration) jwt.Claims {
		return middleware.Claims{
			LoginAt: time.Now().Unix(),
			RegisteredClaims: jwt.RegisteredClaims{
				Subject:   strconv.Itoa(123),
				Issuer:    issuer,
				Audience:  jwt.ClaimStrings{audience},
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(exp)),
				ID:        "test-jti",
			},
		}
	}

	valid, err := middleware.IssueToken(testSecret, 123, time.Now(), time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name           string
		authHeader     string
		expectedStatus int
	}{
		{"valid token", "Bearer " + valid.Token, http.StatusOK},
		{"lowercase scheme", "bearer " + valid.Token, http.StatusOK},
		{"expired token", "Bearer " + signed(registered(middleware.TokenIssuer, middleware.TokenAudience, -time.Hour)), http.StatusUnauthorized},
		{"wrong issuer", "Bearer " + signed(registered("other-api", middleware.TokenAudience, time.Hour)), http.StatusUnauthorized},
		{"wrong audience", "Bearer " + signed(registered(middleware.TokenIssuer, "other-client", time.Hour)), http.StatusUnauthorized},
		{"no expiry", "Bearer " + signed(jwt.MapClaims{"sub": "123", "iss": middleware.TokenIssuer, "aud": middleware.TokenAudience}), http.StatusUnauthorized},
		{"missing header", "", http.StatusUnauthorized},
		{"malformed header", "BearerTokenOnly", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}

			resp, err := app.Test(req)
			require.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()
			assert.Equal(t, tt.expectedStatus, resp.StatusCode)

			if tt.expectedStatus == http.StatusOK {
				var body map[string]interface{}
				require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
				assert.Equal(t, float64(123), body["userID"])
				assert.NotZero(t, body["lat"])
			}
		})
	}
}

func TestOptionalUserID(t *testing.T) {
	s := &Server{config: &config.Config{JWTSecret: testSecret}}
	app := fiber.New()
	app.Get("/maybe", func(c *fiber.Ctx) error {
		id, ok := s.optionalUserID(c)
		return c.JSON(fiber.Map{"id": id, "ok": ok})
	})

	for _, tt := range []struct {
		name   string
		header string
		wantOK bool
	}{
		{"anonymous", "", false},
		{"garbage", "Bearer nope", false},
		{"signed in", "Bearer " + tokenFor(t, 7), true},
	} {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/maybe", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()

			var body struct {
				ID uint `json:"id"`
				OK bool `json:"ok"`
			}
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.Equal(t, tt.wantOK, body.OK)
			if tt.wantOK {
				assert.Equal(t, uint(7), body.ID)
			}
		})
	}
}

// --- AdminRequired middleware ---

var selectUserByID = regexp.QuoteMeta(`SELECT * FROM "users" WHERE "users"."id" = $1`)

func adminServer(gormDB *gorm.DB) *Server {
	return &Server{userService: service.NewUserService(repository.NewUserRepository(gormDB))}
}

func adminApp(s *Server, userID uint) *fiber.App {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals(localUserID, userID)
		return c.Next()
	})
	app.Get("/admin", s.AdminRequired(), func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"ok": true})
	})
	return app
}

func TestAdminRequired_AllowsAdmin(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	mock.ExpectQuery(selectUserByID).
		WithArgs(uint(1), 1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "name", "role"}).AddRow(1, "admin@example.com", "관리자", "admin"))

	resp, err := adminApp(adminServer(gormDB), 1).Test(httptest.NewRequest(http.MethodGet, "/admin", nil))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdminRequired_RejectsNonAdmin(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	mock.ExpectQuery(selectUserByID).
		WithArgs(uint(2), 1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "name", "role"}).AddRow(2, "kid@example.com", "민준", "user"))

	resp, err := adminApp(adminServer(gormDB), 2).Test(httptest.NewRequest(http.MethodGet, "/admin", nil))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "관리자 권한이 필요합니다.", body["error"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdminRequired_LookupFailureIsNotAdmin(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	mock.ExpectQuery(selectUserByID).
		WithArgs(uint(3), 1).
		WillReturnError(errors.New("connection reset"))

	resp, err := adminApp(adminServer(gormDB), 3).Test(httptest.NewRequest(http.MethodGet, "/admin", nil))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.NoError(t, mock.ExpectationsWereMet())
}
