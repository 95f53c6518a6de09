package handlers

import (
	"errors"
	"log"

	"ec-payment/payments"
	"ec-payment/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

var validate = validator.New()

type CustomerRequest struct {
	FirstName string `json:"first_name" validate:"required"`
	LastName  string `json:"last_name"`
	Email     string `json:"email" validate:"required,email"`
	Phone     string `json:"phone" validate:"required"`
}

type CreatePaymentRequest struct {
	OrderID string `json:"order_id" validate:"required"`
	// Amount is in the smallest unit of the currency (e.g. cents).
	Amount      int64           `json:"amount" validate:"required,gt=0"`
	Currency    string          `json:"currency" validate:"omitempty,len=3"`
	Customer    CustomerRequest `json:"customer" validate:"required"`
	Description string          `json:"description"`
}

// MidtransNotification is the gateway's webhook payload. Only the fields the
// service consumes are declared; everything else in the payload is ignored.
type MidtransNotification struct {
	OrderID           string `json:"order_id"`
	TransactionStatus string `json:"transaction_status"`
	PaymentType       string `json:"payment_type"`
	TransactionID     string `json:"transaction_id"`
	FraudStatus       string `json:"fraud_status"`
	StatusCode        string `json:"status_code"`
	GrossAmount       string `json:"gross_amount"`
	SignatureKey      string `json:"signature_key"`
}

type PaymentHandler struct {
	svc *services.PaymentService
}

func NewPaymentHandler(svc *services.PaymentService) *PaymentHandler {
	return &PaymentHandler{svc: svc}
}

func (h *PaymentHandler) CreatePayment(c *fiber.Ctx) error {
	var req CreatePaymentRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	result, err := h.svc.CreatePayment(c.Context(), services.CreatePaymentInput{
		OrderID:  req.OrderID,
		Amount:   req.Amount,
		Currency: req.Currency,
		Customer: payments.Customer{
			FirstName: req.Customer.FirstName,
			LastName:  req.Customer.LastName,
			Email:     req.Customer.Email,
			Phone:     req.Customer.Phone,
		},
		Description: req.Description,
	})
	if err != nil {
		switch {
		case errors.Is(err, services.ErrValidation):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		case errors.Is(err, services.ErrDuplicatePayment):
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
		default:
			log.Printf("CreatePayment failed for order %s: %v", req.OrderID, err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create payment"})
		}
	}

	return c.JSON(result)
}

// HandleWebhook acknowledges every structurally valid notification with 200,
// including unknown orders and conflicts: gateways retry until acknowledged,
// and neither case is resolved by a redelivery.
func (h *PaymentHandler) HandleWebhook(c *fiber.Ctx) error {
	var payload MidtransNotification
	if err := c.BodyParser(&payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse webhook payload"})
	}
	if payload.OrderID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Missing order_id"})
	}

	log.Printf("Received webhook for order_id: %s, status: %s", payload.OrderID, payload.TransactionStatus)

	payment, outcome, err := h.svc.HandleWebhook(c.Context(), services.WebhookInput{
		OrderID:           payload.OrderID,
		TransactionStatus: payload.TransactionStatus,
		PaymentType:       payload.PaymentType,
		TransactionID:     payload.TransactionID,
		FraudStatus:       payload.FraudStatus,
	})
	if err != nil {
		switch {
		case errors.Is(err, services.ErrPaymentNotFound):
			log.Printf("Webhook for unknown order %s acknowledged", payload.OrderID)
			return c.Status(fiber.StatusOK).JSON(fiber.Map{"message": "Acknowledged unknown order"})
		case errors.Is(err, services.ErrConflict):
			log.Printf("🚨 ALERT: conflicting webhook for order %s: %v", payload.OrderID, err)
			return c.Status(fiber.StatusOK).JSON(fiber.Map{"message": "Acknowledged conflicting notification"})
		default:
			log.Printf("🔥 CRITICAL: error processing webhook for order %s: %v", payload.OrderID, err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to process webhook"})
		}
	}

	if outcome == services.TransitionDuplicate {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"message": "Webhook already processed"})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "Webhook processed successfully",
		"status":  payment.Status,
	})
}

func (h *PaymentHandler) GetPaymentStatus(c *fiber.Ctx) error {
	orderID := c.Params("orderId")
	if orderID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Missing order id"})
	}

	payment, err := h.svc.GetStatus(c.Context(), orderID)
	if err != nil {
		if errors.Is(err, services.ErrPaymentNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Payment not found"})
		}
		log.Printf("GetPaymentStatus failed for order %s: %v", orderID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch payment status"})
	}

	return c.JSON(payment)
}
