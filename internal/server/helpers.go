package server

import (
	"context"
	"errors"
	"strings"
	"unicode"

	"littletimes/internal/cache"
	"littletimes/internal/middleware"
	"littletimes/internal/models"

	"github.com/gofiber/fiber/v2"
)

// errResponseWritten is a sentinel indicating the HTTP response was already
// committed by a helper. Handlers must return nil (not this error) to avoid
// Fiber's ErrorHandler overwriting the response.
var errResponseWritten = errors.New("response already written")

// Locals keys set by AuthRequired.
const (
	localUserID = "userID"
	localClaims = "claims"
)

// parseID extracts a route parameter by name as a positive uint.
// On failure it writes a 400 JSON response and returns errResponseWritten.
// Callers should check: if err != nil { return nil }
func (s *Server) parseID(c *fiber.Ctx, param string) (uint, error) {
	id, err := c.ParamsInt(param)
	if err != nil || id <= 0 {
		_ = models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid "+humanizeParam(param)))
		return 0, errResponseWritten
	}
	return uint(id), nil
}

// parseBody decodes the JSON body into dest. On failure it writes a 400 and
// returns errResponseWritten.
func parseBody(c *fiber.Ctx, dest any) error {
	if err := c.BodyParser(dest); err != nil {
		_ = models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
		return errResponseWritten
	}
	return nil
}

// respond writes err with the status its AppError code implies.
func respond(c *fiber.Ctx, err error) error {
	return models.RespondWithError(c, models.StatusFor(err), err)
}

// humanizeParam converts a route param name into a human-readable label.
// Examples: "id" -> "ID", "userId" -> "user ID", "commentId" -> "comment ID".
func humanizeParam(param string) string {
	if param == "id" {
		return "ID"
	}
	if strings.HasSuffix(param, "Id") {
		words := splitCamel(param[:len(param)-2])
		return strings.ToLower(strings.Join(words, " ")) + " ID"
	}
	return param
}

// splitCamel splits a camelCase string into words.
func splitCamel(s string) []string {
	var words []string
	start := 0
	for i, r := range s {
		if i > 0 && unicode.IsUpper(r) {
			words = append(words, s[start:i])
			start = i
		}
	}
	words = append(words, s[start:])
	return words
}

func currentUserID(c *fiber.Ctx) uint {
	id, _ := c.Locals(localUserID).(uint)
	return id
}

func currentClaims(c *fiber.Ctx) *middleware.Claims {
	claims, _ := c.Locals(localClaims).(*middleware.Claims)
	return claims
}

// authenticate validates the bearer token and its revocation state.
func (s *Server) authenticate(c *fiber.Ctx) (*middleware.Claims, uint, error) {
	tokenString, err := middleware.BearerToken(c)
	if err != nil {
		return nil, 0, models.NewUnauthorizedError("로그인이 필요합니다.")
	}
	claims, err := middleware.ParseToken(s.config.JWTSecret, tokenString)
	if err != nil {
		return nil, 0, models.NewUnauthorizedError("세션이 만료되었습니다. 다시 로그인해주세요.")
	}
	revoked, err := cache.IsRevoked(c.UserContext(), claims.ID)
	if err == nil && revoked {
		return nil, 0, models.NewUnauthorizedError("세션이 만료되었습니다. 다시 로그인해주세요.")
	}
	userID, _ := claims.UserID()
	return claims, userID, nil
}

// AuthRequired returns the authentication middleware
func (s *Server) AuthRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, userID, err := s.authenticate(c)
		if err != nil {
			return models.RespondWithError(c, fiber.StatusUnauthorized, err)
		}

		c.Locals(localUserID, userID)
		c.Locals(localClaims, claims)
		// Sync to UserContext for logging and downstream services
		ctx := context.WithValue(c.UserContext(), middleware.UserIDKey, userID)
		c.SetUserContext(ctx)

		return c.Next()
	}
}

// AdminRequired returns middleware that rejects non-admin users with 403.
// Must be placed after AuthRequired so that userID is available in locals.
func (s *Server) AdminRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		admin, err := s.userService.IsAdmin(c.UserContext(), currentUserID(c))
		if err != nil {
			return models.RespondWithError(c, fiber.StatusInternalServerError, err)
		}
		if !admin {
			return models.RespondWithError(c, fiber.StatusForbidden,
				models.NewForbiddenError("관리자 권한이 필요합니다."))
		}
		return c.Next()
	}
}

// optionalUserID extracts the caller from the Authorization header without
// enforcing it.
func (s *Server) optionalUserID(c *fiber.Ctx) (uint, bool) {
	if c.Get(fiber.HeaderAuthorization) == "" {
		return 0, false
	}
	_, userID, err := s.authenticate(c)
	if err != nil {
		return 0, false
	}
	return userID, true
}
