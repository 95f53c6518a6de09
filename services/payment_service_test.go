package services

import (
	"context"
	"testing"
	"time"

	"ec-payment/models"
	"ec-payment/payments"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCreateInput() CreatePaymentInput {
	return CreatePaymentInput{
		OrderID:  "ord_100",
		Amount:   5000,
		Currency: "IDR",
		Customer: payments.Customer{
			FirstName: "Budi",
			Email:     "budi@example.com",
			Phone:     "08123456789",
		},
		Description: "Payment for electronics order",
	}
}

func successfulProvider() *fakeProvider {
	return &fakeProvider{
		createResp: &payments.CreateTransactionResponse{
			Token:       "snap-token-123",
			RedirectURL: "https://gateway.test/redirect/snap-token-123",
		},
	}
}

func TestCreatePayment_Success(t *testing.T) {
	store := newMemStore()
	provider := successfulProvider()
	svc := NewPaymentService(store, store, provider, nil)

	result, err := svc.CreatePayment(context.Background(), newCreateInput())

	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "snap-token-123", result.TransactionToken)
	assert.Equal(t, "ord_100", result.OrderID)
	assert.Equal(t, 1, store.inserts, "exactly one store write on the success path")

	stored, err := store.GetByOrderID(context.Background(), "ord_100")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPending, stored.Status)
	assert.Equal(t, int64(5000), stored.Amount)
	assert.Equal(t, "IDR", stored.Currency)
	assert.Nil(t, stored.TransactionID, "snap create returns no transaction_id")
	require.NotNil(t, stored.RedirectURL)

	// A status read right after creation reconciles against the gateway
	// and still reports the payment as pending.
	provider.statusResp = &payments.TransactionStatus{
		OrderID:           "ord_100",
		TransactionStatus: "pending",
	}
	payment, err := svc.GetStatus(context.Background(), "ord_100")
	require.NoError(t, err)
	assert.Equal(t, 1, provider.statusCalls, "pending payments are reconciled on read")
	assert.Equal(t, models.PaymentStatusPending, payment.Status)
	assert.Equal(t, int64(5000), payment.Amount)
	assert.Equal(t, "IDR", payment.Currency)
}

func TestCreatePayment_ValidationFailsBeforeGatewayCall(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*CreatePaymentInput)
	}{
		{"empty order id", func(in *CreatePaymentInput) { in.OrderID = "" }},
		{"zero amount", func(in *CreatePaymentInput) { in.Amount = 0 }},
		{"negative amount", func(in *CreatePaymentInput) { in.Amount = -5000 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMemStore()
			provider := successfulProvider()
			svc := NewPaymentService(store, store, provider, nil)

			in := newCreateInput()
			tt.mutate(&in)

			_, err := svc.CreatePayment(context.Background(), in)

			assert.ErrorIs(t, err, ErrValidation)
			assert.Zero(t, provider.createCalls, "no gateway round-trip on invalid input")
			assert.Zero(t, store.inserts)
		})
	}
}

func TestCreatePayment_RejectsActiveDuplicate(t *testing.T) {
	store := newMemStore()
	store.seed(models.Payment{OrderID: "ord_100", Status: models.PaymentStatusPending})
	provider := successfulProvider()
	svc := NewPaymentService(store, store, provider, nil)

	_, err := svc.CreatePayment(context.Background(), newCreateInput())

	assert.ErrorIs(t, err, ErrDuplicatePayment)
	assert.Zero(t, provider.createCalls, "duplicate must be detected before calling the gateway")
}

func TestCreatePayment_InsertRaceLoserReportsDuplicate(t *testing.T) {
	// Two concurrent creates for the same order can both pass the
	// existence check; the store's unique pending constraint rejects the
	// second insert and the caller sees it as a duplicate.
	store := newMemStore()
	store.insertErr = ErrDuplicatePayment
	provider := successfulProvider()
	svc := NewPaymentService(store, store, provider, nil)

	_, err := svc.CreatePayment(context.Background(), newCreateInput())

	assert.ErrorIs(t, err, ErrDuplicatePayment)
	assert.Equal(t, 1, provider.createCalls, "the loser already made its gateway call")
}

func TestCreatePayment_AllowsNewAttemptAfterTerminal(t *testing.T) {
	store := newMemStore()
	store.seed(models.Payment{OrderID: "ord_100", Status: models.PaymentStatusFailed})
	svc := NewPaymentService(store, store, successfulProvider(), nil)

	result, err := svc.CreatePayment(context.Background(), newCreateInput())

	require.NoError(t, err)
	assert.True(t, result.Success)
}

func TestCreatePayment_GatewayRejectedLeavesNoRecord(t *testing.T) {
	store := newMemStore()
	provider := &fakeProvider{createErr: payments.ErrGatewayRejected}
	svc := NewPaymentService(store, store, provider, nil)

	result, err := svc.CreatePayment(context.Background(), newCreateInput())

	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.NotEmpty(t, result.Error)
	assert.Zero(t, store.inserts, "no half-committed state on gateway failure")
}

func TestCreatePayment_TimeoutIsReportedAsUnknown(t *testing.T) {
	store := newMemStore()
	provider := &fakeProvider{createErr: payments.ErrGatewayTimeout}
	svc := NewPaymentService(store, store, provider, nil)

	result, err := svc.CreatePayment(context.Background(), newCreateInput())

	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Contains(t, result.Message, "unknown")
	assert.Zero(t, store.inserts)
}

func TestCreatePayment_OrderCrossCheck(t *testing.T) {
	store := newMemStore()
	store.seedOrder(models.Order{ID: "ord_100", CustomerID: "cust_001", TotalAmount: 9999, Currency: "USD"})
	provider := successfulProvider()
	svc := NewPaymentService(store, store, provider, nil)

	_, err := svc.CreatePayment(context.Background(), newCreateInput())

	assert.ErrorIs(t, err, ErrValidation)
	assert.Zero(t, provider.createCalls)
}

func TestHandleWebhook_SettlementScenario(t *testing.T) {
	store := newMemStore()
	svc := NewPaymentService(store, store, successfulProvider(), nil)

	result, err := svc.CreatePayment(context.Background(), newCreateInput())
	require.NoError(t, err)
	require.True(t, result.Success)

	// First notification settles the payment.
	payment, outcome, err := svc.HandleWebhook(context.Background(), WebhookInput{
		OrderID:           "ord_100",
		TransactionStatus: "settlement",
		PaymentType:       "gopay",
		TransactionID:     "tx_1",
		FraudStatus:       "accept",
	})
	require.NoError(t, err)
	assert.Equal(t, TransitionApplied, outcome)
	assert.Equal(t, models.PaymentStatusCompleted, payment.Status)
	require.NotNil(t, payment.TransactionID)
	assert.Equal(t, "tx_1", *payment.TransactionID)

	firstUpdatedAt := payment.UpdatedAt

	// Redelivery of the identical notification is a no-op.
	payment, outcome, err = svc.HandleWebhook(context.Background(), WebhookInput{
		OrderID:           "ord_100",
		TransactionStatus: "settlement",
		PaymentType:       "gopay",
		TransactionID:     "tx_1",
	})
	require.NoError(t, err)
	assert.Equal(t, TransitionDuplicate, outcome)
	assert.Equal(t, firstUpdatedAt, payment.UpdatedAt)

	// A late pending notification never downgrades the settled payment.
	payment, outcome, err = svc.HandleWebhook(context.Background(), WebhookInput{
		OrderID:           "ord_100",
		TransactionStatus: "pending",
		TransactionID:     "tx_1",
	})
	require.NoError(t, err)
	assert.Equal(t, TransitionDuplicate, outcome)
	assert.Equal(t, models.PaymentStatusCompleted, payment.Status)
}

func TestHandleWebhook_ConflictingTerminalNotification(t *testing.T) {
	store := newMemStore()
	store.seed(models.Payment{OrderID: "ord_100", Status: models.PaymentStatusCompleted})
	svc := NewPaymentService(store, store, successfulProvider(), nil)

	_, _, err := svc.HandleWebhook(context.Background(), WebhookInput{
		OrderID:           "ord_100",
		TransactionStatus: "failure",
	})

	assert.ErrorIs(t, err, ErrConflict)

	stored, err := store.GetByOrderID(context.Background(), "ord_100")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusCompleted, stored.Status)
}

func TestHandleWebhook_UnknownStatusFailsOpen(t *testing.T) {
	store := newMemStore()
	seeded := store.seed(models.Payment{OrderID: "ord_100", Status: models.PaymentStatusPending})
	svc := NewPaymentService(store, store, successfulProvider(), nil)

	payment, outcome, err := svc.HandleWebhook(context.Background(), WebhookInput{
		OrderID:           "ord_100",
		TransactionStatus: "some_future_status",
	})

	require.NoError(t, err)
	assert.Equal(t, TransitionDuplicate, outcome)
	assert.Equal(t, models.PaymentStatusPending, payment.Status)
	assert.Equal(t, models.PaymentStatusPending, store.get(seeded.ID).Status)
}

func TestHandleWebhook_UnknownOrder(t *testing.T) {
	store := newMemStore()
	svc := NewPaymentService(store, store, successfulProvider(), nil)

	_, _, err := svc.HandleWebhook(context.Background(), WebhookInput{
		OrderID:           "ord_ghost",
		TransactionStatus: "settlement",
	})

	assert.ErrorIs(t, err, ErrPaymentNotFound)
}

func TestHandleWebhook_FraudDenyOverridesSettlement(t *testing.T) {
	store := newMemStore()
	store.seed(models.Payment{OrderID: "ord_100", Status: models.PaymentStatusPending})
	svc := NewPaymentService(store, store, successfulProvider(), nil)

	payment, outcome, err := svc.HandleWebhook(context.Background(), WebhookInput{
		OrderID:           "ord_100",
		TransactionStatus: "settlement",
		FraudStatus:       "deny",
	})

	require.NoError(t, err)
	assert.Equal(t, TransitionApplied, outcome)
	assert.Equal(t, models.PaymentStatusFailed, payment.Status)
}

func TestHandleWebhook_FraudChallengeStaysPending(t *testing.T) {
	store := newMemStore()
	store.seed(models.Payment{OrderID: "ord_100", Status: models.PaymentStatusPending})
	svc := NewPaymentService(store, store, successfulProvider(), nil)

	payment, outcome, err := svc.HandleWebhook(context.Background(), WebhookInput{
		OrderID:           "ord_100",
		TransactionStatus: "settlement",
		FraudStatus:       "challenge",
	})

	require.NoError(t, err)
	assert.Equal(t, TransitionDuplicate, outcome)
	assert.Equal(t, models.PaymentStatusPending, payment.Status)
}

func TestHandleWebhook_NotifiesOnTerminalTransition(t *testing.T) {
	store := newMemStore()
	store.seed(models.Payment{OrderID: "ord_100", Status: models.PaymentStatusPending})
	notifier := &fakeNotifier{}
	svc := NewPaymentService(store, store, successfulProvider(), notifier)

	_, _, err := svc.HandleWebhook(context.Background(), WebhookInput{
		OrderID:           "ord_100",
		TransactionStatus: "settlement",
	})
	require.NoError(t, err)

	assert.Eventually(t, func() bool { return notifier.count() == 1 }, time.Second, 10*time.Millisecond)
}

func TestGetStatus_ReconcilesWhenPending(t *testing.T) {
	store := newMemStore()
	store.seed(models.Payment{OrderID: "ord_100", Status: models.PaymentStatusPending})
	provider := successfulProvider()
	provider.statusResp = &payments.TransactionStatus{
		OrderID:           "ord_100",
		TransactionID:     "tx_1",
		TransactionStatus: "settlement",
		PaymentType:       "gopay",
		FraudStatus:       "accept",
	}
	svc := NewPaymentService(store, store, provider, nil)

	payment, err := svc.GetStatus(context.Background(), "ord_100")

	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusCompleted, payment.Status)
	assert.Equal(t, 1, provider.statusCalls)

	stored, err := store.GetByOrderID(context.Background(), "ord_100")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusCompleted, stored.Status)
}

func TestGetStatus_SkipsReconcileWhenTerminal(t *testing.T) {
	store := newMemStore()
	store.seed(models.Payment{OrderID: "ord_100", Status: models.PaymentStatusCompleted})
	provider := successfulProvider()
	svc := NewPaymentService(store, store, provider, nil)

	payment, err := svc.GetStatus(context.Background(), "ord_100")

	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusCompleted, payment.Status)
	assert.Zero(t, provider.statusCalls, "no gateway load for settled payments")
}

func TestGetStatus_GatewayTroubleDegradesToStoredView(t *testing.T) {
	store := newMemStore()
	store.seed(models.Payment{OrderID: "ord_100", Status: models.PaymentStatusPending})
	provider := &fakeProvider{statusErr: payments.ErrGatewayUnavailable}
	svc := NewPaymentService(store, store, provider, nil)

	payment, err := svc.GetStatus(context.Background(), "ord_100")

	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPending, payment.Status)
}

func TestGetStatus_UnknownOrder(t *testing.T) {
	store := newMemStore()
	svc := NewPaymentService(store, store, successfulProvider(), nil)

	_, err := svc.GetStatus(context.Background(), "ord_ghost")

	assert.ErrorIs(t, err, ErrPaymentNotFound)
}

func TestReconcileStalePending(t *testing.T) {
	store := newMemStore()
	store.seed(models.Payment{
		OrderID:   "ord_100",
		Status:    models.PaymentStatusPending,
		CreatedAt: time.Now().Add(-time.Hour),
		UpdatedAt: time.Now().Add(-time.Hour),
	})
	provider := successfulProvider()
	provider.statusResp = &payments.TransactionStatus{
		OrderID:           "ord_100",
		TransactionID:     "tx_1",
		TransactionStatus: "settlement",
		PaymentType:       "gopay",
	}
	svc := NewPaymentService(store, store, provider, nil)

	resolved, err := svc.ReconcileStalePending(context.Background(), 15*time.Minute, 50)

	require.NoError(t, err)
	assert.Equal(t, 1, resolved)

	stored, err := store.GetByOrderID(context.Background(), "ord_100")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusCompleted, stored.Status)
}
