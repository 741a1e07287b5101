package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/IGDevX/marche-conclu-payment-service/internal/services"
)

// WebhookHandler serves both Stripe webhook channels. Any authentication or
// processing failure yields a rejection status so Stripe redelivers.
type WebhookHandler struct {
	standard *services.WebhookService
	connect  *services.ConnectWebhookService
	log      *logrus.Entry
}

// NewWebhookHandler wires the handler.
func NewWebhookHandler(standard *services.WebhookService, connect *services.ConnectWebhookService) *WebhookHandler {
	return &WebhookHandler{
		standard: standard,
		connect:  connect,
		log:      logrus.WithField("component", "webhook_handler"),
	}
}

// HandleStripeWebhook handles POST /api/webhooks/stripe.
func (h *WebhookHandler) HandleStripeWebhook(c *fiber.Ctx) error {
	if err := h.standard.ProcessEvent(c.UserContext(), c.Body(), c.Get("Stripe-Signature")); err != nil {
		h.log.WithError(err).Warn("webhook processing failed")
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"received": false})
	}
	return c.JSON(fiber.Map{"received": true})
}

// HandleConnectWebhook handles POST /api/webhooks/stripe/connect.
func (h *WebhookHandler) HandleConnectWebhook(c *fiber.Ctx) error {
	if err := h.connect.ProcessEvent(c.UserContext(), c.Body(), c.Get("Stripe-Signature")); err != nil {
		h.log.WithError(err).Warn("connect webhook processing failed")
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"received": false})
	}
	return c.JSON(fiber.Map{"received": true})
}
