package services

import (
	"context"
	"errors"
	"fmt"
	"log"

	"ec-payment/models"
)

type TransitionOutcome int

const (
	// TransitionApplied means the stored payment was mutated.
	TransitionApplied TransitionOutcome = iota
	// TransitionDuplicate means the request was recognized as a replay or a
	// stale downgrade and ignored without touching the stored record.
	TransitionDuplicate
)

type TransitionInput struct {
	OrderID       string
	TargetStatus  models.PaymentStatus
	Method        *models.PaymentMethod
	TransactionID string
}

// LifecycleEngine owns the payment state machine. It is the only place that
// decides whether an incoming notification may mutate stored state.
//
// Allowed transitions: pending -> completed | failed | cancelled. Requests
// that target the current status, or target pending while the payment is
// already terminal, are duplicate-ignored no-ops. A request targeting a
// different terminal status than the one recorded is a conflict and is never
// applied.
type LifecycleEngine struct {
	store      PaymentStore
	maxRetries int
}

func NewLifecycleEngine(store PaymentStore) *LifecycleEngine {
	return &LifecycleEngine{store: store, maxRetries: 3}
}

// ApplyTransition runs the read-modify-write for one notification. The write
// is guarded by the store's version check; on a version conflict the whole
// read-modify-write is retried a bounded number of times, so two concurrent
// deliveries racing on the same order serialize instead of both winning.
func (e *LifecycleEngine) ApplyTransition(ctx context.Context, in TransitionInput) (*models.Payment, TransitionOutcome, error) {
	for attempt := 0; attempt <= e.maxRetries; attempt++ {
		payment, err := e.store.GetByOrderID(ctx, in.OrderID)
		if err != nil {
			return nil, TransitionDuplicate, err
		}

		if payment.TransactionID != nil && *payment.TransactionID != "" &&
			in.TransactionID != "" && in.TransactionID != *payment.TransactionID {
			return nil, TransitionDuplicate, fmt.Errorf(
				"%w: transaction_id %s does not match recorded %s for order %s",
				ErrConflict, in.TransactionID, *payment.TransactionID, in.OrderID)
		}

		if in.TargetStatus == payment.Status {
			return payment, TransitionDuplicate, nil
		}

		if payment.Status.IsTerminal() {
			if in.TargetStatus == models.PaymentStatusPending {
				// Late or out-of-order pending notification; never downgrade.
				log.Printf("Ignoring stale pending notification for order %s (already %s)", in.OrderID, payment.Status)
				return payment, TransitionDuplicate, nil
			}
			return nil, TransitionDuplicate, fmt.Errorf(
				"%w: payment for order %s is already %s, refusing transition to %s",
				ErrConflict, in.OrderID, payment.Status, in.TargetStatus)
		}

		expected := payment.Version
		payment.Status = in.TargetStatus
		if payment.Method == nil && in.Method != nil {
			payment.Method = in.Method
		}
		if (payment.TransactionID == nil || *payment.TransactionID == "") && in.TransactionID != "" {
			txnID := in.TransactionID
			payment.TransactionID = &txnID
		}
		if in.TargetStatus.IsTerminal() {
			payment.RedirectURL = nil
		}

		err = e.store.UpdateIfVersion(ctx, payment, expected)
		if err == nil {
			log.Printf("Payment for order %s transitioned to %s", in.OrderID, payment.Status)
			return payment, TransitionApplied, nil
		}
		if errors.Is(err, ErrVersionConflict) {
			log.Printf("Version conflict applying transition for order %s, retrying (%d/%d)", in.OrderID, attempt+1, e.maxRetries)
			continue
		}
		return nil, TransitionDuplicate, err
	}

	return nil, TransitionDuplicate, fmt.Errorf("%w: gave up after %d retries for order %s", ErrVersionConflict, e.maxRetries, in.OrderID)
}
