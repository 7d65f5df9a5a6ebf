package server

import (
	"littletimes/internal/models"

	"github.com/gofiber/fiber/v2"
)

// GetPlans handles GET /api/plans
func (s *Server) GetPlans(c *fiber.Ctx) error {
	return c.JSON(s.paymentService.Plans())
}

// CreateSubscription handles POST /api/subscriptions and opens a pending order.
func (s *Server) CreateSubscription(c *fiber.Ctx) error {
	var req models.SubscriptionRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	res, err := s.paymentService.CreateSubscription(c.UserContext(), currentUserID(c), req)
	if err != nil {
		return respond(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(res)
}

// RequestPayment handles POST /api/payments/request. The response holds the
// public parameters the checkout widget needs.
func (s *Server) RequestPayment(c *fiber.Ctx) error {
	var req models.PaymentRequestInput
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	res, err := s.paymentService.RequestPayment(c.UserContext(), currentUserID(c), req)
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(res)
}

// ConfirmPayment handles POST /api/payments/confirm
func (s *Server) ConfirmPayment(c *fiber.Ctx) error {
	var req models.PaymentConfirmInput
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	sub, err := s.paymentService.ConfirmPayment(c.UserContext(), currentUserID(c), req)
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(sub)
}

// FailPayment handles POST /api/payments/fail
func (s *Server) FailPayment(c *fiber.Ctx) error {
	var req models.PaymentFailInput
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	return c.JSON(s.paymentService.FailPayment(c.UserContext(), currentUserID(c), req))
}
