package models

import (
	"time"

	"github.com/google/uuid"
)

type ProductStatus string

const (
	ProductStatusActive       ProductStatus = "active"
	ProductStatusDiscontinued ProductStatus = "discontinued"
)

// Product is the catalog entry a cart line is priced from. Price is in đồng.
type Product struct {
	ID            uuid.UUID     `json:"id"`
	Name          string        `json:"name"`
	Price         int64         `json:"price"`
	StockQuantity int           `json:"stock_quantity"`
	Status        ProductStatus `json:"status"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

func (p *Product) Purchasable() bool {
	return p.Status == ProductStatusActive
}
