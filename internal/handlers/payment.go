package handlers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/IGDevX/marche-conclu-payment-service/internal/middleware"
	"github.com/IGDevX/marche-conclu-payment-service/internal/models"
	"github.com/IGDevX/marche-conclu-payment-service/internal/payments"
	"github.com/IGDevX/marche-conclu-payment-service/internal/services"
	"github.com/IGDevX/marche-conclu-payment-service/internal/utils"
)

// PaymentHandler serves the payment intent and payment record endpoints.
type PaymentHandler struct {
	db       *gorm.DB
	gateway  *services.StripeGateway
	payments *services.OrderPaymentService
}

// NewPaymentHandler wires the handler.
func NewPaymentHandler(db *gorm.DB, gateway *services.StripeGateway, payments *services.OrderPaymentService) *PaymentHandler {
	return &PaymentHandler{
		db:       db,
		gateway:  gateway,
		payments: payments,
	}
}

// CreateIntent handles POST /api/stripe-payments/create-intent.
func (h *PaymentHandler) CreateIntent(c *fiber.Ctx) error {
	var req services.PaymentIntentRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	resp, err := h.gateway.CreatePaymentIntent(c.UserContext(), req)
	if err != nil {
		return writeDomainError(c, err)
	}
	return c.JSON(resp)
}

// GetIntent handles GET /api/stripe-payments/:paymentIntentId.
func (h *PaymentHandler) GetIntent(c *fiber.Ctx) error {
	resp, err := h.gateway.RetrievePaymentIntent(c.UserContext(), c.Params("paymentIntentId"))
	if err != nil {
		return writeDomainError(c, err)
	}
	return c.JSON(resp)
}

// CancelIntent handles DELETE /api/stripe-payments/:paymentIntentId.
func (h *PaymentHandler) CancelIntent(c *fiber.Ctx) error {
	resp, err := h.gateway.CancelPaymentIntent(c.UserContext(), c.Params("paymentIntentId"))
	if err != nil {
		return writeDomainError(c, err)
	}
	return c.JSON(resp)
}

// RecordPayment handles POST /api/orders/:orderId/payment.
func (h *PaymentHandler) RecordPayment(c *fiber.Ctx) error {
	var req services.PaymentRecordRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	resp, err := h.payments.RecordPayment(c.UserContext(), c.Params("orderId"), req)
	if err != nil {
		return writeDomainError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(resp)
}

// GetPaymentStatus handles GET /api/orders/:orderId/payment.
func (h *PaymentHandler) GetPaymentStatus(c *fiber.Ctx) error {
	resp, err := h.payments.GetPaymentStatus(c.UserContext(), c.Params("orderId"))
	if err != nil {
		return writeDomainError(c, err)
	}
	return c.JSON(resp)
}

// VerifyPayment handles POST /api/payments/verify/:paymentIntentId.
func (h *PaymentHandler) VerifyPayment(c *fiber.Ctx) error {
	resp, err := h.payments.VerifyPayment(c.UserContext(), c.Params("paymentIntentId"))
	if err != nil {
		return writeDomainError(c, err)
	}
	return c.JSON(resp)
}

// UpdateOrderStatus handles PATCH /api/orders/:orderId/status.
func (h *PaymentHandler) UpdateOrderStatus(c *fiber.Ctx) error {
	var req services.OrderStatusUpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	callerID, _ := middleware.GetCallerID(c)
	return c.JSON(h.payments.UpdateOrderStatus(c.Params("orderId"), callerID, req))
}

// ListPayments handles GET /api/payments with optional filters.
func (h *PaymentHandler) ListPayments(c *fiber.Ctx) error {
	pg := utils.ParsePagination(c)
	query := h.db.Model(&models.OrderPayment{})

	if status := strings.TrimSpace(c.Query("status")); status != "" {
		parsed, ok := payments.ParseStatus(status)
		if !ok {
			return fiber.NewError(fiber.StatusBadRequest, "invalid status")
		}
		query = query.Where("status = ?", string(parsed))
	}
	if paidBy := strings.TrimSpace(c.Query("paid_by")); paidBy != "" {
		query = query.Where("paid_by = ?", paidBy)
	}
	if paidTo := strings.TrimSpace(c.Query("paid_to")); paidTo != "" {
		query = query.Where("paid_to = ?", paidTo)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return err
	}

	var records []models.OrderPayment
	if err := query.
		Order("created_at desc").
		Limit(pg.Limit).
		Offset(pg.Offset).
		Find(&records).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    records,
		"pagination": fiber.Map{
			"current_page":   pg.Page,
			"items_per_page": pg.Limit,
			"total_items":    total,
		},
	})
}

// Health handles GET /api/stripe-payments/health.
func (h *PaymentHandler) Health(c *fiber.Ctx) error {
	return c.SendString("Payment service is running")
}

func writeDomainError(c *fiber.Ctx, err error) error {
	var validationErr *payments.ValidationError
	if errors.As(err, &validationErr) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   validationErr.Code,
			"message": validationErr.Message,
		})
	}

	var gatewayErr *payments.GatewayError
	if errors.As(err, &gatewayErr) {
		status := fiber.StatusBadRequest
		if gatewayErr.Code == "NOT_FOUND" {
			status = fiber.StatusNotFound
		}
		return c.Status(status).JSON(fiber.Map{
			"error":   gatewayErr.Code,
			"message": gatewayErr.Message,
		})
	}

	if errors.Is(err, payments.ErrRecordNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error":   "NOT_FOUND",
			"message": "No payment record found",
		})
	}

	return err
}
