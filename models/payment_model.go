package models

import (
	"time"

	"github.com/google/uuid"
)

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
	PaymentStatusCancelled PaymentStatus = "cancelled"
)

// IsTerminal reports whether no further transition is permitted from s.
func (s PaymentStatus) IsTerminal() bool {
	return s == PaymentStatusCompleted || s == PaymentStatusFailed || s == PaymentStatusCancelled
}

func (s PaymentStatus) IsValid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusCompleted, PaymentStatusFailed, PaymentStatusCancelled:
		return true
	}
	return false
}

type PaymentMethod string

const (
	PaymentMethodEwallet      PaymentMethod = "ewallet"
	PaymentMethodCreditCard   PaymentMethod = "credit_card"
	PaymentMethodDebitCard    PaymentMethod = "debit_card"
	PaymentMethodPayPal       PaymentMethod = "paypal"
	PaymentMethodBankTransfer PaymentMethod = "bank_transfer"
)

// Payment is the service's record of a single payment attempt for an order.
// Amount is in the smallest unit of Currency. TransactionID is the gateway's
// identifier and, once set to a non-empty value, never changes. Version backs
// the optimistic concurrency check on updates.
type Payment struct {
	ID            uuid.UUID      `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	// OrderID also carries a partial unique index (one pending payment per
	// order), created in database.Migrate since tags cannot express it.
	OrderID       string         `gorm:"size:64;not null;index" json:"order_id"`
	TransactionID *string        `gorm:"size:255;unique" json:"transaction_id,omitempty"`
	Amount        int64          `gorm:"not null" json:"amount"`
	Currency      string         `gorm:"size:3;not null" json:"currency"`
	Status        PaymentStatus  `gorm:"size:20;not null" json:"status"`
	Method        *PaymentMethod `gorm:"size:30" json:"method,omitempty"`
	Description   *string        `gorm:"type:text" json:"description,omitempty"`
	RedirectURL   *string        `gorm:"size:512" json:"redirect_url,omitempty"`
	Version       int64          `gorm:"not null;default:1" json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
