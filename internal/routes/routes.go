package routes

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/IGDevX/marche-conclu-payment-service/internal/config"
	"github.com/IGDevX/marche-conclu-payment-service/internal/handlers"
	"github.com/IGDevX/marche-conclu-payment-service/internal/middleware"
	"github.com/IGDevX/marche-conclu-payment-service/internal/payments"
	"github.com/IGDevX/marche-conclu-payment-service/internal/services"
)

// Register wires up all HTTP routes.
func Register(app *fiber.App, db *gorm.DB, cfg *config.Config) {
	store := payments.NewGormStore(db)
	accounts := services.NewAccountClient(cfg.AccountServiceURL, cfg.AccountServiceTimeout)
	gateway := services.NewStripeGateway(cfg.StripeSecretKey, accounts)
	orderPayments := services.NewOrderPaymentService(store, gateway)
	webhooks := services.NewWebhookService(store, services.WebhookConfig{
		Secret:    cfg.StripeWebhookSecret,
		Tolerance: cfg.WebhookTolerance,
	})
	connectWebhooks := services.NewConnectWebhookService(store, services.WebhookConfig{
		Secret:    cfg.StripeConnectWebhookSecret,
		Tolerance: cfg.WebhookTolerance,
	})

	paymentHandler := handlers.NewPaymentHandler(db, gateway, orderPayments)
	webhookHandler := handlers.NewWebhookHandler(webhooks, connectWebhooks)

	api := app.Group("/api")

	// Direct Stripe payment intent operations
	stripePayments := api.Group("/stripe-payments")
	stripePayments.Get("/health", paymentHandler.Health)
	stripePayments.Post("/create-intent", paymentHandler.CreateIntent)
	stripePayments.Get("/:paymentIntentId", paymentHandler.GetIntent)
	stripePayments.Delete("/:paymentIntentId", paymentHandler.CancelIntent)

	// Webhook channels, one per signing secret
	api.Post("/webhooks/stripe", webhookHandler.HandleStripeWebhook)
	api.Post("/webhooks/stripe/connect", webhookHandler.HandleConnectWebhook)

	api.Post("/payments/verify/:paymentIntentId", paymentHandler.VerifyPayment)

	// Order payment records, service-to-service callers only
	protected := api.Group("", middleware.AuthMiddleware(cfg))
	protected.Post("/orders/:orderId/payment", paymentHandler.RecordPayment)
	protected.Get("/orders/:orderId/payment", paymentHandler.GetPaymentStatus)
	protected.Patch("/orders/:orderId/status", paymentHandler.UpdateOrderStatus)
	protected.Get("/payments", paymentHandler.ListPayments)
}
