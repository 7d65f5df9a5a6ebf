package server

import (
	"littletimes/internal/models"

	"github.com/gofiber/fiber/v2"
)

// GetAdminStats handles GET /api/admin/stats
func (s *Server) GetAdminStats(c *fiber.Ctx) error {
	stats, err := s.adminService.Stats(c.UserContext())
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(stats)
}

// GetAdminPosts handles GET /api/admin/posts?page=
func (s *Server) GetAdminPosts(c *fiber.Ctx) error {
	page, err := s.adminService.Posts(c.UserContext(), c.QueryInt("page", 1))
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(page)
}

// AdminDeletePost handles DELETE /api/admin/posts/:id
func (s *Server) AdminDeletePost(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.adminService.DeletePost(c.UserContext(), id); err != nil {
		return respond(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// GetAdminComments handles GET /api/admin/comments?page=
func (s *Server) GetAdminComments(c *fiber.Ctx) error {
	page, err := s.adminService.Comments(c.UserContext(), c.QueryInt("page", 1))
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(page)
}

// AdminDeleteComment handles DELETE /api/admin/comments/:id
func (s *Server) AdminDeleteComment(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.adminService.DeleteComment(c.UserContext(), id); err != nil {
		return respond(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// GetAdminUsers handles GET /api/admin/users?page=
func (s *Server) GetAdminUsers(c *fiber.Ctx) error {
	page, err := s.adminService.Users(c.UserContext(), c.QueryInt("page", 1))
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(page)
}

// UpdateUserRole handles PATCH /api/admin/users/:id/role
func (s *Server) UpdateUserRole(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var req models.RoleUpdate
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	user, err := s.adminService.UpdateUserRole(c.UserContext(), currentUserID(c), id, req)
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(user)
}

// GetAdminFreeTrials handles GET /api/admin/free-trials?page=
func (s *Server) GetAdminFreeTrials(c *fiber.Ctx) error {
	page, err := s.adminService.FreeTrials(c.UserContext(), c.QueryInt("page", 1))
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(page)
}

// UpdateFreeTrialStatus handles PATCH /api/admin/free-trials/:id/status
func (s *Server) UpdateFreeTrialStatus(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var req models.FreeTrialStatusUpdate
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	if err := s.adminService.UpdateFreeTrialStatus(c.UserContext(), id, req); err != nil {
		return respond(c, err)
	}
	return c.JSON(fiber.Map{"id": id, "status": req.Status})
}
