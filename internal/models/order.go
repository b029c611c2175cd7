package models

import (
	"time"

	"github.com/google/uuid"
)

type OrderStatus string

type PaymentStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusShipping  OrderStatus = "shipping"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusCancelled OrderStatus = "cancelled"

	PaymentStatusUnpaid   PaymentStatus = "unpaid"
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusFailed   PaymentStatus = "failed"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

// paymentSources lists the statuses each payment status may be entered from. Webhooks arrive
// out of order, so a late "succeeded" must not undo a refund.
var paymentSources = map[PaymentStatus][]PaymentStatus{
	PaymentStatusPending:  {PaymentStatusUnpaid, PaymentStatusPending, PaymentStatusFailed},
	PaymentStatusPaid:     {PaymentStatusUnpaid, PaymentStatusPending, PaymentStatusFailed, PaymentStatusPaid},
	PaymentStatusFailed:   {PaymentStatusUnpaid, PaymentStatusPending, PaymentStatusFailed},
	PaymentStatusRefunded: {PaymentStatusPaid, PaymentStatusRefunded},
}

// PaymentSources returns the statuses from which s can be reached.
func (s PaymentStatus) PaymentSources() []PaymentStatus {
	return paymentSources[s]
}

func (s PaymentStatus) CanFollow(current PaymentStatus) bool {
	for _, from := range paymentSources[s] {
		if from == current {
			return true
		}
	}
	return false
}

type Address struct {
	FullName   string `json:"full_name" validate:"required"`
	Phone      string `json:"phone" validate:"required,e164"`
	Street     string `json:"street" validate:"required"`
	Ward       string `json:"ward"`
	District   string `json:"district"`
	City       string `json:"city" validate:"required"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country" validate:"required,iso3166_1_alpha2"`
}

// OrderPricing is written once when the order is created and never recomputed.
type OrderPricing struct {
	ItemsPrice     int64  `json:"items_price"`
	ShippingPrice  int64  `json:"shipping_price"`
	TaxPrice       int64  `json:"tax_price"`
	DiscountAmount int64  `json:"discount_amount"`
	TotalPrice     int64  `json:"total_price"`
	CouponCode     string `json:"coupon_code,omitempty"`
}

type OrderItem struct {
	ID        uuid.UUID `json:"id"`
	OrderID   uuid.UUID `json:"order_id"`
	ProductID uuid.UUID `json:"product_id"`
	VariantID string    `json:"variant_id,omitempty"`
	Quantity  int       `json:"quantity"`
	UnitPrice int64     `json:"unit_price"`
	CreatedAt time.Time `json:"created_at"`
}

type Order struct {
	ID              uuid.UUID     `json:"id"`
	CustomerID      uuid.UUID     `json:"customer_id"`
	Status          OrderStatus   `json:"status"`
	Pricing         OrderPricing  `json:"pricing"`
	PaymentStatus   PaymentStatus `json:"payment_status"`
	PaymentIntentID string        `json:"payment_intent_id,omitempty"`
	ShippingAddress *Address      `json:"shipping_address"`
	Items           []OrderItem   `json:"items"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

type CreateOrderRequest struct {
	ShippingAddress Address `json:"shipping_address" validate:"required"`
	CouponCode      string  `json:"coupon_code,omitempty" validate:"max=50"`
	Email           string  `json:"email,omitempty" validate:"omitempty,email"`
}

type QuoteRequest struct {
	CouponCode string `json:"coupon_code,omitempty" validate:"max=50"`
}

// QuoteResponse carries the breakdown and, when a code was given but rejected, the reason.
type QuoteResponse struct {
	Pricing      OrderPricing       `json:"pricing"`
	Coupon       *CouponApplication `json:"coupon,omitempty"`
	CouponError  string             `json:"coupon_error,omitempty"`
	CouponReason string             `json:"coupon_reason,omitempty"`
}

type UpdateOrderStatusRequest struct {
	Status OrderStatus `json:"status" validate:"required,oneof=pending confirmed shipping delivered cancelled"`
}

type CreatePaymentRequest struct {
	OrderID uuid.UUID `json:"order_id" validate:"required"`
}

type PaymentResponse struct {
	PaymentIntentID string `json:"payment_intent_id"`
	ClientSecret    string `json:"client_secret"`
	Amount          int64  `json:"amount"`
	Currency        string `json:"currency"`
}

type RefundResponse struct {
	RefundID        string `json:"refund_id"`
	PaymentIntentID string `json:"payment_intent_id"`
	Amount          int64  `json:"amount"`
	Status          string `json:"status"`
}
