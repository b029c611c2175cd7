package models

import (
	"time"

	"github.com/google/uuid"
)

type CartLine struct {
	ProductID uuid.UUID `json:"product_id"`
	VariantID string    `json:"variant_id,omitempty"`
	UnitPrice int64     `json:"unit_price"`
	Quantity  int       `json:"quantity"`
}

func (l CartLine) Key() string {
	if l.VariantID == "" {
		return l.ProductID.String()
	}
	return l.ProductID.String() + ":" + l.VariantID
}

type Cart struct {
	ID        uuid.UUID           `json:"id"`
	UserID    uuid.UUID           `json:"user_id"`
	Items     map[string]CartLine `json:"items"`
	Total     int64               `json:"total"`
	CreatedAt time.Time           `json:"created_at"`
	UpdatedAt time.Time           `json:"updated_at"`
}

// Lines returns the cart items; the order is not significant for pricing.
func (c *Cart) Lines() []CartLine {
	lines := make([]CartLine, 0, len(c.Items))
	for _, line := range c.Items {
		lines = append(lines, line)
	}
	return lines
}

// MaxLineQuantity caps one cart line, including quantities merged by repeated adds.
const MaxLineQuantity = 1000

// AddItemRequest carries no price: the unit price is read from the catalog when the line is added.
type AddItemRequest struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	VariantID string    `json:"variant_id,omitempty" validate:"max=64"`
	Quantity  int       `json:"quantity" validate:"required,min=1,max=1000"`
}

type UpdateQuantityRequest struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	VariantID string    `json:"variant_id,omitempty" validate:"max=64"`
	Quantity  int       `json:"quantity" validate:"gte=0,max=1000"`
}
