package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"littletimes/internal/config"
	"littletimes/internal/database"
	"littletimes/internal/middleware"
	"littletimes/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testSecret = "server-test-secret-0123456789abcdef"

type testEnv struct {
	srv *Server
	app *fiber.App
	db  *gorm.DB
}

func testConfig() *config.Config {
	return &config.Config{
		JWTSecret:       testSecret,
		Port:            "0",
		Env:             "test",
		PublicBaseURL:   "http://localhost:5173",
		AllowedOrigins:  "http://localhost:5173",
		FeatureFlags:    "virtual_account=on,oauth_google=on",
		SessionTTLHours: 24,
		TossClientKey:   "test_ck_public",
		TossSecretKey:   "test_sk_private",
		AlertFromEmail:  "alerts@littletimes.test",
	}
}

// newTestEnv builds a server over a private in-memory SQLite database
// without Redis.
func newTestEnv(t *testing.T, mutate ...func(*config.Config)) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(database.PersistentModels()...))

	cfg := testConfig()
	for _, m := range mutate {
		m(cfg)
	}

	srv, err := NewServerWithDeps(cfg, db, nil)
	require.NoError(t, err)
	return &testEnv{srv: srv, app: srv.App(), db: db}
}

func (e *testEnv) createUser(t *testing.T, email, role string) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("secret123"), bcrypt.MinCost)
	require.NoError(t, err)
	user := &models.User{
		Email:    email,
		Password: string(hash),
		Name:     "테스터",
		Grade:    "초등 3학년",
		Avatar:   "🐰",
		Role:     role,
	}
	require.NoError(t, e.db.Create(user).Error)
	return user
}

func tokenFor(t *testing.T, userID uint) string {
	t.Helper()
	tok, err := middleware.IssueToken(testSecret, userID, time.Now(), time.Hour)
	require.NoError(t, err)
	return tok.Token
}

type testResponse struct {
	Status int
	Header http.Header
	Body   []byte
}

func (r testResponse) decode(t *testing.T, dest any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(r.Body, dest), string(r.Body))
}

func (r testResponse) errorMessage(t *testing.T) string {
	t.Helper()
	var body models.ErrorResponse
	r.decode(t, &body)
	return body.Error
}

// do sends a request with an optional bearer token and JSON body.
func (e *testEnv) do(t *testing.T, method, path, token string, body any) testResponse {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return testResponse{Status: resp.StatusCode, Header: resp.Header, Body: raw}
}
