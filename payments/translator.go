package payments

import "ec-payment/models"

// Gateway vocabulary to canonical status. "capture" is the card flavour of a
// settled transaction; "deny" and "expire" are both dead ends for the attempt.
var statusTable = map[string]models.PaymentStatus{
	"settlement": models.PaymentStatusCompleted,
	"capture":    models.PaymentStatusCompleted,
	"pending":    models.PaymentStatusPending,
	"failure":    models.PaymentStatusFailed,
	"deny":       models.PaymentStatusFailed,
	"expire":     models.PaymentStatusFailed,
	"cancel":     models.PaymentStatusCancelled,
}

var methodTable = map[string]models.PaymentMethod{
	"gopay":         models.PaymentMethodEwallet,
	"qris":          models.PaymentMethodEwallet,
	"shopeepay":     models.PaymentMethodEwallet,
	"credit_card":   models.PaymentMethodCreditCard,
	"debit_card":    models.PaymentMethodDebitCard,
	"paypal":        models.PaymentMethodPayPal,
	"bank_transfer": models.PaymentMethodBankTransfer,
	"echannel":      models.PaymentMethodBankTransfer,
}

// TranslateStatus maps a gateway status string to the canonical status.
// Unknown strings fail open to Pending with ok=false so callers can log the
// anomaly instead of rejecting the notification.
func TranslateStatus(gatewayStatus string) (models.PaymentStatus, bool) {
	status, ok := statusTable[gatewayStatus]
	if !ok {
		return models.PaymentStatusPending, false
	}
	return status, true
}

// TranslateMethod maps a gateway payment type to the canonical method,
// falling back to the generic ewallet bucket with ok=false when unknown.
func TranslateMethod(paymentType string) (models.PaymentMethod, bool) {
	method, ok := methodTable[paymentType]
	if !ok {
		return models.PaymentMethodEwallet, false
	}
	return method, true
}
