package server

import (
	"littletimes/internal/models"
	"littletimes/internal/service"

	"github.com/gofiber/fiber/v2"
)

// WebhookSecretHeader carries the shared secret of the database webhook.
const WebhookSecretHeader = "X-Webhook-Secret"

// CreateFreeTrial handles POST /api/free-trials
func (s *Server) CreateFreeTrial(c *fiber.Ctx) error {
	var req models.FreeTrialRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	ft, err := s.freeTrialService.Create(c.UserContext(), req)
	if err != nil {
		return respond(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(ft)
}

// FreeTrialWebhook handles /api/webhooks/free-trial for every method so that
// non-POST calls get the plain-text 405.
func (s *Server) FreeTrialWebhook(c *fiber.Ctx) error {
	resp := s.notifyService.HandleFreeTrialWebhook(c.UserContext(), service.WebhookRequest{
		Method: c.Method(),
		Secret: c.Get(WebhookSecretHeader),
		Body:   c.Body(),
	})
	return c.Status(resp.Status).SendString(resp.Body)
}
