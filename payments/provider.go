package payments

import "context"

// Customer carries the buyer details forwarded to the gateway at creation.
type Customer struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
}

type CreateTransactionRequest struct {
	OrderID  string
	Amount   int64
	Currency string
	Customer Customer
}

type CreateTransactionResponse struct {
	Token       string
	RedirectURL string
}

// TransactionStatus is the gateway's view of a transaction. Status and
// method values are in the gateway's own vocabulary; callers translate them
// with TranslateStatus/TranslateMethod before touching stored state.
type TransactionStatus struct {
	OrderID           string
	TransactionID     string
	TransactionStatus string
	PaymentType       string
	FraudStatus       string
	StatusCode        string
	GrossAmount       string
}

// Provider is the payment gateway boundary. There is one production
// implementation (MidtransService); tests inject doubles.
type Provider interface {
	CreateTransaction(ctx context.Context, req CreateTransactionRequest) (*CreateTransactionResponse, error)
	QueryStatus(ctx context.Context, orderID string) (*TransactionStatus, error)
}
