package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"littletimes/internal/cache"
	"littletimes/internal/middleware"
	"littletimes/internal/models"
	"littletimes/internal/notify"
	"littletimes/internal/oauth"
	"littletimes/internal/repository"
	"littletimes/internal/validation"

	"golang.org/x/crypto/bcrypt"
)

const defaultConfirmationTTL = 48 * time.Hour

var errBadCredentials = models.NewUnauthorizedError("이메일 또는 비밀번호가 올바르지 않습니다.")

// AuthConfig holds the session and sign-up settings.
type AuthConfig struct {
	JWTSecret                string
	SessionTTL               time.Duration
	RequireEmailConfirmation bool
	// ConfirmURL is the page that receives ?token= from the confirmation mail.
	ConfirmURL      string
	ConfirmationTTL time.Duration
	MailFrom        string
}

// Session is a signed-in identity. Token is empty when the account still
// needs e-mail confirmation or when the session is only being described.
type Session struct {
	User                 *models.User `json:"user"`
	Token                string       `json:"token,omitempty"`
	LoginAt              time.Time    `json:"login_at"`
	ExpiresAt            time.Time    `json:"expires_at"`
	ConfirmationRequired bool         `json:"confirmation_required,omitempty"`
}

type AuthService struct {
	userRepo         repository.UserRepository
	confirmationRepo repository.ConfirmationRepository
	mailer           notify.Mailer
	cfg              AuthConfig
	now              func() time.Time
}

func NewAuthService(
	userRepo repository.UserRepository,
	confirmationRepo repository.ConfirmationRepository,
	mailer notify.Mailer,
	cfg AuthConfig,
) *AuthService {
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 24 * time.Hour
	}
	if cfg.ConfirmationTTL <= 0 {
		cfg.ConfirmationTTL = defaultConfirmationTTL
	}
	return &AuthService{
		userRepo:         userRepo,
		confirmationRepo: confirmationRepo,
		mailer:           mailer,
		cfg:              cfg,
		now:              time.Now,
	}
}

// Register creates an account. Invalid input never reaches the repository.
func (s *AuthService) Register(ctx context.Context, in models.RegisterRequest) (*Session, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}
	email := strings.ToLower(strings.TrimSpace(in.Email))

	if _, err := s.userRepo.GetByEmail(ctx, email); err == nil {
		return nil, models.NewConflictError("이미 가입된 이메일입니다.")
	} else if !models.HasCode(err, models.CodeNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	user := &models.User{
		Email:    email,
		Password: string(hash),
		Name:     validation.SanitizeText(in.Name),
		Grade:    strings.TrimSpace(in.Grade),
		Avatar:   strings.TrimSpace(in.Avatar),
		Phone:    strings.TrimSpace(in.Phone),
		Address:  validation.SanitizeText(in.Address),
		Role:     models.RoleUser,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}
	user.Password = ""

	if s.cfg.RequireEmailConfirmation {
		if err := s.sendConfirmation(ctx, user); err != nil {
			middleware.Logger.WarnContext(ctx, "confirmation mail not delivered",
				slog.Uint64("user_id", uint64(user.ID)),
				slog.String("error", err.Error()),
			)
		}
		return &Session{User: user, ConfirmationRequired: true}, nil
	}
	return s.issue(user, s.now())
}

func (s *AuthService) sendConfirmation(ctx context.Context, user *models.User) error {
	token, hash, err := newConfirmationToken()
	if err != nil {
		return err
	}
	err = s.confirmationRepo.Create(ctx, &models.EmailConfirmation{
		UserID:    user.ID,
		TokenHash: hash,
		ExpiresAt: s.now().Add(s.cfg.ConfirmationTTL),
	})
	if err != nil {
		return err
	}

	link := fmt.Sprintf("%s?token=%s", s.cfg.ConfirmURL, token)
	return notify.Send(ctx, s.mailer, notify.Message{
		From:    s.cfg.MailFrom,
		To:      []string{user.Email},
		Subject: "[리틀타임즈] 이메일 인증을 완료해주세요",
		Text:    fmt.Sprintf("%s님, 가입해주셔서 감사합니다.\n\n아래 링크를 눌러 이메일 인증을 완료해주세요.\n%s\n", user.Name, link),
	})
}

// ConfirmEmail consumes a confirmation token.
func (s *AuthService) ConfirmEmail(ctx context.Context, token string) (*models.User, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, models.NewValidationError("인증 토큰이 필요합니다.")
	}
	userID, err := s.confirmationRepo.Consume(ctx, hashToken(token), s.now())
	if err != nil {
		return nil, err
	}
	return s.userRepo.GetByID(ctx, userID)
}

// Login checks e-mail and password. When confirmation is required, an
// unconfirmed account gets no token.
func (s *AuthService) Login(ctx context.Context, in models.LoginRequest) (*Session, error) {
	in.Email = strings.TrimSpace(in.Email)
	if err := validateInput(in); err != nil {
		return nil, err
	}

	user, err := s.userRepo.GetByEmail(ctx, in.Email)
	if err != nil {
		if models.HasCode(err, models.CodeNotFound) {
			return nil, errBadCredentials
		}
		return nil, err
	}
	if user.Password == "" || bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(in.Password)) != nil {
		return nil, errBadCredentials
	}
	if s.cfg.RequireEmailConfirmation && !user.EmailConfirmed() {
		return nil, models.NewUnauthorizedError("이메일 인증이 필요합니다.")
	}

	user.Password = ""
	return s.issue(user, s.now())
}

// LoginWithIdentity signs in a verified OAuth identity, creating the
// profile on first use.
func (s *AuthService) LoginWithIdentity(ctx context.Context, id *oauth.Identity) (*Session, error) {
	user, err := s.EnsureProfile(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.issue(user, s.now())
}

// EnsureProfile returns the user for id, linking an existing account with
// the same verified e-mail or creating one with default grade and avatar.
func (s *AuthService) EnsureProfile(ctx context.Context, id *oauth.Identity) (*models.User, error) {
	if id == nil || id.Subject == "" || id.Email == "" {
		return nil, models.NewUnauthorizedError("소셜 계정 정보를 확인할 수 없습니다.")
	}

	user, err := s.userRepo.GetByOAuthSubject(ctx, id.Provider, id.Subject)
	if err == nil {
		return user, nil
	}
	if !models.HasCode(err, models.CodeNotFound) {
		return nil, err
	}

	existing, err := s.userRepo.GetByEmail(ctx, id.Email)
	switch {
	case err == nil:
		if !id.EmailVerified {
			return nil, models.NewConflictError("이미 가입된 이메일입니다.")
		}
		fields := map[string]interface{}{"oauth_provider": id.Provider, "oauth_subject": id.Subject}
		if existing.EmailConfirmedAt == nil {
			fields["email_confirmed_at"] = s.now()
		}
		if err := s.userRepo.Updates(ctx, existing.ID, fields); err != nil {
			return nil, err
		}
		return s.userRepo.GetByID(ctx, existing.ID)
	case !models.HasCode(err, models.CodeNotFound):
		return nil, err
	}

	subject := id.Subject
	confirmedAt := s.now()
	user = &models.User{
		Email:            id.Email,
		Name:             profileName(id),
		Grade:            models.DefaultGrade,
		Avatar:           models.DefaultAvatar,
		Role:             models.RoleUser,
		OAuthProvider:    id.Provider,
		OAuthSubject:     &subject,
		EmailConfirmedAt: &confirmedAt,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// profileName prefers the provider's display name, then the e-mail local part.
func profileName(id *oauth.Identity) string {
	if name := validation.SanitizeText(id.Name); name != "" {
		return name
	}
	local, _, _ := strings.Cut(id.Email, "@")
	return local
}

// Refresh reissues the caller's token. The expiry stays at the original
// login time plus the session TTL.
func (s *AuthService) Refresh(ctx context.Context, claims *middleware.Claims) (*Session, error) {
	userID, err := claims.UserID()
	if err != nil {
		return nil, errLoginRequired()
	}
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, errLoginRequired()
	}
	session, err := s.issue(user, claims.LoginTime())
	if err != nil {
		return nil, err
	}
	if claims.ExpiresAt != nil {
		if err := cache.Revoke(ctx, claims.ID, claims.ExpiresAt.Time); err != nil {
			middleware.Logger.WarnContext(ctx, "failed to revoke refreshed token", slog.String("error", err.Error()))
		}
	}
	return session, nil
}

// Logout revokes the token until it would have expired.
func (s *AuthService) Logout(ctx context.Context, claims *middleware.Claims) error {
	if claims == nil || claims.ExpiresAt == nil {
		return nil
	}
	if err := cache.Revoke(ctx, claims.ID, claims.ExpiresAt.Time); err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

// CurrentSession describes the caller's session without a new token.
func (s *AuthService) CurrentSession(ctx context.Context, claims *middleware.Claims) (*Session, error) {
	userID, err := claims.UserID()
	if err != nil {
		return nil, errLoginRequired()
	}
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if models.HasCode(err, models.CodeNotFound) {
			return nil, errLoginRequired()
		}
		return nil, err
	}
	out := &Session{User: user, LoginAt: claims.LoginTime()}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time
	}
	return out, nil
}

func (s *AuthService) issue(user *models.User, loginAt time.Time) (*Session, error) {
	tok, err := middleware.IssueToken(s.cfg.JWTSecret, user.ID, loginAt, s.cfg.SessionTTL)
	if err != nil {
		if s.cfg.JWTSecret == "" {
			return nil, models.NewInternalError(err)
		}
		return nil, models.NewUnauthorizedError("세션이 만료되었습니다. 다시 로그인해주세요.")
	}
	return &Session{User: user, Token: tok.Token, LoginAt: tok.LoginAt, ExpiresAt: tok.ExpiresAt}, nil
}

func newConfirmationToken() (token, hash string, err error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", "", err
	}
	token = base64.RawURLEncoding.EncodeToString(b)
	return token, hashToken(token), nil
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
