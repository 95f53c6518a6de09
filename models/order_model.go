package models

import (
	"time"

	"github.com/google/uuid"
)

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

// Order is a read-only reference from the payment service's perspective.
// The order lifecycle itself is owned by the upstream order system; the
// create-payment flow only consults TotalAmount and Currency when the
// order is known locally.
type Order struct {
	ID              string      `gorm:"size:64;primary_key" json:"id"`
	CustomerID      string      `gorm:"size:64;not null" json:"customer_id"`
	TotalAmount     int64       `gorm:"not null" json:"total_amount"`
	Currency        string      `gorm:"size:3;not null" json:"currency"`
	Status          OrderStatus `gorm:"size:20;not null" json:"status"`
	ShippingAddress *string     `gorm:"size:255" json:"shipping_address,omitempty"`
	Notes           *string     `gorm:"type:text" json:"notes,omitempty"`

	Items []OrderItem `gorm:"foreignkey:OrderID" json:"items"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type OrderItem struct {
	ID       uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	OrderID  string    `gorm:"size:64;not null;index" json:"order_id"`
	Name     string    `gorm:"size:255;not null" json:"name"`
	Quantity int       `gorm:"not null" json:"quantity"`
	Price    int64     `gorm:"not null" json:"price"`
}
