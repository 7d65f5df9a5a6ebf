package server

import (
	"littletimes/internal/models"

	"github.com/gofiber/fiber/v2"
)

// GetMyProfile handles GET /api/users/me
func (s *Server) GetMyProfile(c *fiber.Ctx) error {
	user, err := s.userService.GetUserByID(c.UserContext(), currentUserID(c))
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(user)
}

// UpdateMyProfile handles PUT /api/users/me. Only the fields present in the
// body change.
func (s *Server) UpdateMyProfile(c *fiber.Ctx) error {
	var req models.ProfileUpdate
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	user, err := s.userService.UpdateProfile(c.UserContext(), currentUserID(c), req)
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(user)
}

// GetMySubscriptions handles GET /api/users/me/subscriptions
func (s *Server) GetMySubscriptions(c *fiber.Ctx) error {
	subs, err := s.paymentService.UserSubscriptions(c.UserContext(), currentUserID(c))
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(subs)
}

// GetMyActiveSubscription handles GET /api/users/me/subscriptions/active.
// The body is null when nothing is active.
func (s *Server) GetMyActiveSubscription(c *fiber.Ctx) error {
	sub, err := s.paymentService.ActiveSubscription(c.UserContext(), currentUserID(c))
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(sub)
}
