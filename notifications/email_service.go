package notifications

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	config "ec-payment/configs"
	"ec-payment/models"
)

type BrevoService struct {
	APIKey      string
	SenderEmail string
	SenderName  string
	client      *http.Client
}

func NewEmailService() *BrevoService {
	apiKey := config.Config("BREVO_API_KEY")
	senderEmail := config.Config("EMAIL_SENDER")
	senderName := config.Config("EMAIL_SENDER_NAME")

	if apiKey == "" || senderEmail == "" || senderName == "" {
		log.Println("⚠️ Email service not configured. Missing API Key, Sender Email, or Sender Name.")
		return nil
	}

	log.Printf("✅ Email service initialized for sender %s <%s>", senderName, senderEmail)
	return &BrevoService{
		APIKey:      apiKey,
		SenderEmail: senderEmail,
		SenderName:  senderName,
		client:      &http.Client{Timeout: 15 * time.Second},
	}
}

type brevoPayload struct {
	Sender      map[string]string   `json:"sender"`
	To          []map[string]string `json:"to"`
	Subject     string              `json:"subject"`
	HTMLContent string              `json:"htmlContent"`
}

func (s *BrevoService) send(toEmail, toName, subject, htmlContent string) error {
	url := "https://api.brevo.com/v3/smtp/email"

	if toEmail == "" || !strings.Contains(toEmail, "@") {
		return fmt.Errorf("invalid recipient email: %s", toEmail)
	}

	payload := brevoPayload{
		Sender:      map[string]string{"name": s.SenderName, "email": s.SenderEmail},
		To:          []map[string]string{{"email": toEmail, "name": toName}},
		Subject:     subject,
		HTMLContent: htmlContent,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequest("POST", url, bytes.NewBuffer(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("api-key", s.APIKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("brevo API returned %d: %s", resp.StatusCode, string(respBody))
	}

	return nil
}

// PaymentStatusChanged emails the configured merchant address when a payment
// reaches a terminal status. Called fire-and-forget from the webhook path.
func (s *BrevoService) PaymentStatusChanged(payment *models.Payment) {
	if s == nil {
		return
	}

	merchantEmail := config.Config("MERCHANT_NOTIFY_EMAIL")
	if merchantEmail == "" {
		return
	}

	var subject, body string
	switch payment.Status {
	case models.PaymentStatusCompleted:
		subject = fmt.Sprintf("Payment completed for order %s", payment.OrderID)
		body = fmt.Sprintf("<h1>Payment Completed</h1><p>Order %s was paid: %d %s.</p>", payment.OrderID, payment.Amount, payment.Currency)
	case models.PaymentStatusFailed:
		subject = fmt.Sprintf("Payment failed for order %s", payment.OrderID)
		body = fmt.Sprintf("<h1>Payment Failed</h1><p>The payment attempt for order %s (%d %s) failed.</p>", payment.OrderID, payment.Amount, payment.Currency)
	case models.PaymentStatusCancelled:
		subject = fmt.Sprintf("Payment cancelled for order %s", payment.OrderID)
		body = fmt.Sprintf("<h1>Payment Cancelled</h1><p>The payment for order %s was cancelled.</p>", payment.OrderID)
	default:
		return
	}

	if err := s.send(merchantEmail, "Merchant", subject, body); err != nil {
		log.Printf("Failed to send payment notification email for order %s: %v", payment.OrderID, err)
	}
}
