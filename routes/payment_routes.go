package routes

import (
	"ec-payment/handlers"
	"ec-payment/middleware"

	"github.com/gofiber/fiber/v2"
)

func PaymentRoutes(app *fiber.App, h *handlers.PaymentHandler, webhookServerKey string) {
	api := app.Group("/api/v1")

	api.Post("/payments", h.CreatePayment)
	api.Post("/payments/webhook", middleware.VerifyWebhookSignature(webhookServerKey), h.HandleWebhook)
	api.Get("/payments/:orderId", h.GetPaymentStatus)
}
