package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"ec-payment/models"
	"ec-payment/payments"

	"github.com/google/uuid"
)

type CreatePaymentInput struct {
	OrderID     string
	Amount      int64
	Currency    string
	Customer    payments.Customer
	Description string
}

type CreatePaymentResult struct {
	Success          bool   `json:"success"`
	TransactionToken string `json:"transaction_token,omitempty"`
	RedirectURL      string `json:"redirect_url,omitempty"`
	OrderID          string `json:"order_id"`
	Message          string `json:"message"`
	Error            string `json:"error,omitempty"`
}

type WebhookInput struct {
	OrderID           string
	TransactionStatus string
	PaymentType       string
	TransactionID     string
	FraudStatus       string
}

// PaymentService sequences the store, the gateway, and the lifecycle engine
// behind the three public operations. It holds no business rules beyond
// ordering the calls and shaping results.
type PaymentService struct {
	store    PaymentStore
	orders   OrderStore
	provider payments.Provider
	engine   *LifecycleEngine
	notifier Notifier
}

func NewPaymentService(store PaymentStore, orders OrderStore, provider payments.Provider, notifier Notifier) *PaymentService {
	return &PaymentService{
		store:    store,
		orders:   orders,
		provider: provider,
		engine:   NewLifecycleEngine(store),
		notifier: notifier,
	}
}

// CreatePayment validates the request, refuses duplicate active payments,
// creates the gateway transaction, and persists the Pending record. The
// store is written exactly once, and only after the gateway accepted the
// transaction: a gateway failure leaves no local state behind.
func (s *PaymentService) CreatePayment(ctx context.Context, in CreatePaymentInput) (*CreatePaymentResult, error) {
	if in.OrderID == "" {
		return nil, fmt.Errorf("%w: order_id is required", ErrValidation)
	}
	if in.Amount <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive, got %d", ErrValidation, in.Amount)
	}
	if in.Currency == "" {
		in.Currency = "IDR"
	}

	if s.orders != nil {
		order, err := s.orders.GetOrderByID(ctx, in.OrderID)
		if err != nil && !errors.Is(err, ErrOrderNotFound) {
			return nil, err
		}
		if order != nil {
			if order.TotalAmount != in.Amount || order.Currency != in.Currency {
				return nil, fmt.Errorf("%w: amount %d %s does not match order total %d %s",
					ErrValidation, in.Amount, in.Currency, order.TotalAmount, order.Currency)
			}
		}
	}

	existing, err := s.store.GetByOrderID(ctx, in.OrderID)
	if err != nil && !errors.Is(err, ErrPaymentNotFound) {
		return nil, err
	}
	if existing != nil && !existing.Status.IsTerminal() {
		return nil, fmt.Errorf("%w: order %s", ErrDuplicatePayment, in.OrderID)
	}

	resp, err := s.provider.CreateTransaction(ctx, payments.CreateTransactionRequest{
		OrderID:  in.OrderID,
		Amount:   in.Amount,
		Currency: in.Currency,
		Customer: in.Customer,
	})
	if err != nil {
		log.Printf("Failed to create gateway transaction for order %s: %v", in.OrderID, err)
		message := "Failed to create payment transaction"
		if errors.Is(err, payments.ErrGatewayTimeout) {
			// The gateway may have committed the transaction. Nothing is
			// persisted, so a later create or reconcile resolves it.
			message = "Payment creation outcome unknown, please retry or check status later"
		}
		return &CreatePaymentResult{
			Success: false,
			OrderID: in.OrderID,
			Message: message,
			Error:   err.Error(),
		}, nil
	}

	payment := &models.Payment{
		ID:       uuid.New(),
		OrderID:  in.OrderID,
		Amount:   in.Amount,
		Currency: in.Currency,
		Status:   models.PaymentStatusPending,
		Version:  1,
	}
	if in.Description != "" {
		payment.Description = &in.Description
	}
	if resp.RedirectURL != "" {
		redirect := resp.RedirectURL
		payment.RedirectURL = &redirect
	}

	if err := s.store.Insert(ctx, payment); err != nil {
		if errors.Is(err, ErrDuplicatePayment) {
			return nil, fmt.Errorf("%w: order %s", ErrDuplicatePayment, in.OrderID)
		}
		// The gateway transaction exists but the local record does not; the
		// reconciliation path will pick it up on the next status query.
		log.Printf("🔥 CRITICAL: gateway transaction created for order %s but local persist failed: %v", in.OrderID, err)
		return nil, err
	}

	log.Printf("Payment %s created for order %s (%d %s)", payment.ID, in.OrderID, in.Amount, in.Currency)

	return &CreatePaymentResult{
		Success:          true,
		TransactionToken: resp.Token,
		RedirectURL:      resp.RedirectURL,
		OrderID:          in.OrderID,
		Message:          "Payment transaction created successfully",
	}, nil
}

// HandleWebhook translates the gateway vocabulary and delegates the
// transition decision to the lifecycle engine. Unknown vocabulary fails open
// to pending; conflicting known vocabulary surfaces as ErrConflict.
func (s *PaymentService) HandleWebhook(ctx context.Context, in WebhookInput) (*models.Payment, TransitionOutcome, error) {
	status, known := payments.TranslateStatus(in.TransactionStatus)
	if !known {
		log.Printf("⚠️ Unknown gateway transaction status %q for order %s, defaulting to pending", in.TransactionStatus, in.OrderID)
	}

	var method *models.PaymentMethod
	if in.PaymentType != "" {
		m, knownMethod := payments.TranslateMethod(in.PaymentType)
		if !knownMethod {
			log.Printf("⚠️ Unknown gateway payment type %q for order %s, defaulting to %s", in.PaymentType, in.OrderID, m)
		}
		method = &m
	}

	// Fraud screening can veto an otherwise settled transaction.
	if status == models.PaymentStatusCompleted {
		switch in.FraudStatus {
		case "deny":
			status = models.PaymentStatusFailed
		case "challenge":
			status = models.PaymentStatusPending
		}
	}

	payment, outcome, err := s.engine.ApplyTransition(ctx, TransitionInput{
		OrderID:       in.OrderID,
		TargetStatus:  status,
		Method:        method,
		TransactionID: in.TransactionID,
	})
	if err != nil {
		return nil, outcome, err
	}

	if outcome == TransitionApplied && payment.Status.IsTerminal() && s.notifier != nil {
		go s.notifier.PaymentStatusChanged(payment)
	}

	return payment, outcome, nil
}

// GetStatus returns the stored payment, reconciling against the gateway
// first when the stored status is still pending. Gateway trouble during
// reconciliation degrades to the stored view rather than failing the read.
func (s *PaymentService) GetStatus(ctx context.Context, orderID string) (*models.Payment, error) {
	payment, err := s.store.GetByOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if payment.Status != models.PaymentStatusPending {
		return payment, nil
	}

	gatewayStatus, err := s.provider.QueryStatus(ctx, orderID)
	if err != nil {
		log.Printf("Reconciliation query failed for order %s, returning stored status: %v", orderID, err)
		return payment, nil
	}

	reconciled, _, err := s.HandleWebhook(ctx, WebhookInput{
		OrderID:           orderID,
		TransactionStatus: gatewayStatus.TransactionStatus,
		PaymentType:       gatewayStatus.PaymentType,
		TransactionID:     gatewayStatus.TransactionID,
		FraudStatus:       gatewayStatus.FraudStatus,
	})
	if err != nil {
		if errors.Is(err, ErrConflict) {
			log.Printf("🚨 ALERT: reconciliation conflict for order %s: %v", orderID, err)
		} else {
			log.Printf("Reconciliation failed for order %s: %v", orderID, err)
		}
		return payment, nil
	}

	return reconciled, nil
}

// ReconcileStalePending sweeps payments stuck in pending for at least minAge
// and runs each through the reconciliation path. Returns how many of them
// were resolved to a terminal status.
func (s *PaymentService) ReconcileStalePending(ctx context.Context, minAge time.Duration, limit int) (int, error) {
	stale, err := s.store.FindStalePending(ctx, time.Now().Add(-minAge), limit)
	if err != nil {
		return 0, err
	}

	resolved := 0
	for i := range stale {
		payment, err := s.GetStatus(ctx, stale[i].OrderID)
		if err != nil {
			log.Printf("Stale payment sweep failed for order %s: %v", stale[i].OrderID, err)
			continue
		}
		if payment.Status != models.PaymentStatusPending {
			resolved++
		}
	}
	return resolved, nil
}
