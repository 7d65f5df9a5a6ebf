package server

import (
	"errors"
	"log/slog"
	"net/url"
	"strconv"
	"time"

	"littletimes/internal/featureflags"
	"littletimes/internal/middleware"
	"littletimes/internal/models"
	"littletimes/internal/oauth"

	"github.com/gofiber/fiber/v2"
)

const oauthStateTTL = 10 * time.Minute

// providerFlags gates each OAuth provider behind a feature flag.
var providerFlags = map[string]string{
	"google": featureflags.OAuthGoogle,
}

// Register handles POST /api/auth/register
// @Summary Register
// @Description Create an account. When e-mail confirmation is required the response carries no token.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body models.RegisterRequest true "Sign-up form"
// @Success 201 {object} service.Session
// @Failure 400 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /auth/register [post]
func (s *Server) Register(c *fiber.Ctx) error {
	var req models.RegisterRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	session, err := s.authService.Register(c.UserContext(), req)
	if err != nil {
		return respond(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(session)
}

// Login handles POST /api/auth/login
// @Summary Login
// @Description Authenticate with e-mail and password
// @Tags auth
// @Accept json
// @Produce json
// @Param request body models.LoginRequest true "Credentials"
// @Success 200 {object} service.Session
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /auth/login [post]
func (s *Server) Login(c *fiber.Ctx) error {
	var req models.LoginRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	session, err := s.authService.Login(c.UserContext(), req)
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(session)
}

// ConfirmEmail handles GET /api/auth/confirm?token=
// @Summary Confirm e-mail
// @Tags auth
// @Produce json
// @Param token query string true "Confirmation token"
// @Success 200 {object} models.User
// @Failure 400 {object} models.ErrorResponse
// @Router /auth/confirm [get]
func (s *Server) ConfirmEmail(c *fiber.Ctx) error {
	user, err := s.authService.ConfirmEmail(c.UserContext(), c.Query("token"))
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(user)
}

// Logout handles POST /api/auth/logout
// @Summary Logout
// @Description Revoke the current token
// @Tags auth
// @Security BearerAuth
// @Success 200 {object} object{message=string}
// @Router /auth/logout [post]
func (s *Server) Logout(c *fiber.Ctx) error {
	if err := s.authService.Logout(c.UserContext(), currentClaims(c)); err != nil {
		return respond(c, err)
	}
	return c.JSON(fiber.Map{"message": "로그아웃되었습니다."})
}

// Refresh handles POST /api/auth/refresh
// @Summary Refresh token
// @Description Reissue the token. The expiry never moves past the original login time plus the session TTL.
// @Tags auth
// @Security BearerAuth
// @Produce json
// @Success 200 {object} service.Session
// @Failure 401 {object} models.ErrorResponse
// @Router /auth/refresh [post]
func (s *Server) Refresh(c *fiber.Ctx) error {
	session, err := s.authService.Refresh(c.UserContext(), currentClaims(c))
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(session)
}

// GetSession handles GET /api/auth/session
// @Summary Current session
// @Tags auth
// @Security BearerAuth
// @Produce json
// @Success 200 {object} service.Session
// @Failure 401 {object} models.ErrorResponse
// @Router /auth/session [get]
func (s *Server) GetSession(c *fiber.Ctx) error {
	session, err := s.authService.CurrentSession(c.UserContext(), currentClaims(c))
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(session)
}

func (s *Server) oauthProvider(c *fiber.Ctx) (oauth.Provider, error) {
	name := c.Params("provider")
	if flag, ok := providerFlags[name]; ok && !s.featureFlags.Enabled(flag, 0) {
		return nil, models.NewNotFoundError("OAuth provider", name)
	}
	p, err := s.oauthProviders.Get(name)
	if err != nil {
		return nil, models.NewNotFoundError("OAuth provider", name)
	}
	return p, nil
}

// OAuthStart handles GET /api/auth/oauth/:provider
// @Summary Start OAuth sign-in
// @Tags auth
// @Param provider path string true "Provider name"
// @Success 307
// @Failure 404 {object} models.ErrorResponse
// @Router /auth/oauth/{provider} [get]
func (s *Server) OAuthStart(c *fiber.Ctx) error {
	p, err := s.oauthProvider(c)
	if err != nil {
		return respond(c, err)
	}
	state, err := oauth.RandomState()
	if err != nil {
		return respond(c, models.NewInternalError(err))
	}

	c.Cookie(&fiber.Cookie{
		Name:     oauth.StateCookie,
		Value:    state,
		Path:     "/api/auth/oauth",
		Expires:  time.Now().Add(oauthStateTTL),
		HTTPOnly: true,
		Secure:   s.config.IsProduction(),
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	return c.Redirect(p.AuthCodeURL(state), fiber.StatusTemporaryRedirect)
}

// OAuthCallback handles GET /api/auth/oauth/:provider/callback
// @Summary Finish OAuth sign-in
// @Description Exchanges the code, creates the profile on first use and hands the session to the frontend.
// @Tags auth
// @Param provider path string true "Provider name"
// @Param code query string true "Authorization code"
// @Param state query string true "State"
// @Success 200 {object} service.Session
// @Failure 401 {object} models.ErrorResponse
// @Router /auth/oauth/{provider}/callback [get]
func (s *Server) OAuthCallback(c *fiber.Ctx) error {
	p, err := s.oauthProvider(c)
	if err != nil {
		return respond(c, err)
	}

	state := c.Cookies(oauth.StateCookie)
	c.ClearCookie(oauth.StateCookie)
	if state == "" || state != c.Query("state") {
		return s.oauthFailed(c, models.NewUnauthorizedError("로그인 요청이 만료되었습니다. 다시 시도해주세요."))
	}
	code := c.Query("code")
	if code == "" {
		return s.oauthFailed(c, models.NewUnauthorizedError("소셜 로그인이 취소되었습니다."))
	}

	identity, err := p.Exchange(c.UserContext(), code)
	if err != nil {
		middleware.Logger.WarnContext(c.UserContext(), "oauth exchange failed",
			slog.String("provider", p.Name()),
			slog.String("error", err.Error()),
		)
		return s.oauthFailed(c, models.NewUnauthorizedError("소셜 계정 정보를 확인할 수 없습니다."))
	}

	session, err := s.authService.LoginWithIdentity(c.UserContext(), identity)
	if err != nil {
		return s.oauthFailed(c, err)
	}

	if s.config.GoogleFrontendRedirect == "" {
		return c.JSON(session)
	}
	fragment := url.Values{}
	fragment.Set("token", session.Token)
	fragment.Set("expires_at", strconv.FormatInt(session.ExpiresAt.Unix(), 10))
	return c.Redirect(s.config.GoogleFrontendRedirect+"#"+fragment.Encode(), fiber.StatusFound)
}

// oauthFailed sends the user back to the frontend with the error message,
// or answers with JSON when no frontend is configured.
func (s *Server) oauthFailed(c *fiber.Ctx, err error) error {
	if s.config.GoogleFrontendRedirect == "" {
		return respond(c, err)
	}
	msg := err.Error()
	var appErr *models.AppError
	if errors.As(err, &appErr) {
		msg = appErr.Message
	}
	q := url.Values{}
	q.Set("error", msg)
	return c.Redirect(s.config.GoogleFrontendRedirect+"?"+q.Encode(), fiber.StatusFound)
}
