package server

import (
	"littletimes/internal/service"

	"github.com/gofiber/fiber/v2"
)

type postBody struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// GetPosts handles GET /api/posts?page=&limit=
func (s *Server) GetPosts(c *fiber.Ctx) error {
	page, err := s.postService.ListPosts(c.UserContext(), c.QueryInt("page", 1), c.QueryInt("limit", service.DefaultPageSize))
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(page)
}

// GetPost handles GET /api/posts/:id and counts one view.
func (s *Server) GetPost(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	viewerID, _ := s.optionalUserID(c)

	post, err := s.postService.GetPost(c.UserContext(), id, viewerID)
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(post)
}

// CreatePost handles POST /api/posts
func (s *Server) CreatePost(c *fiber.Ctx) error {
	var req postBody
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	post, err := s.postService.CreatePost(c.UserContext(), service.CreatePostInput{
		UserID:  currentUserID(c),
		Title:   req.Title,
		Content: req.Content,
	})
	if err != nil {
		return respond(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(post)
}

// UpdatePost handles PUT /api/posts/:id
func (s *Server) UpdatePost(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var req postBody
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	post, err := s.postService.UpdatePost(c.UserContext(), service.UpdatePostInput{
		UserID:  currentUserID(c),
		PostID:  id,
		Title:   req.Title,
		Content: req.Content,
	})
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(post)
}

// DeletePost handles DELETE /api/posts/:id
func (s *Server) DeletePost(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.postService.DeletePost(c.UserContext(), currentUserID(c), id); err != nil {
		return respond(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ToggleLike handles POST /api/posts/:id/like
func (s *Server) ToggleLike(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	res, err := s.postService.ToggleLike(c.UserContext(), currentUserID(c), id)
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(res)
}

// GetLikeStatus handles GET /api/posts/:id/like
func (s *Server) GetLikeStatus(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	res, err := s.postService.LikeStatus(c.UserContext(), currentUserID(c), id)
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(res)
}
