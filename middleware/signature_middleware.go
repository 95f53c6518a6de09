package middleware

import (
	"encoding/json"
	"log"

	"ec-payment/payments"

	"github.com/gofiber/fiber/v2"
)

type signedFields struct {
	OrderID      string `json:"order_id"`
	StatusCode   string `json:"status_code"`
	GrossAmount  string `json:"gross_amount"`
	SignatureKey string `json:"signature_key"`
}

// VerifyWebhookSignature rejects gateway notifications whose signature does
// not match the configured server key. Disabled when serverKey is empty
// (local development against mock gateways).
func VerifyWebhookSignature(serverKey string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if serverKey == "" {
			return c.Next()
		}

		var fields signedFields
		if err := json.Unmarshal(c.Body(), &fields); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse webhook payload"})
		}

		if !payments.VerifySignature(serverKey, fields.OrderID, fields.StatusCode, fields.GrossAmount, fields.SignatureKey) {
			log.Printf("🚨 ALERT: invalid webhook signature for order %s", fields.OrderID)
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Invalid signature"})
		}

		return c.Next()
	}
}
