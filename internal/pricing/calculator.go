// Package pricing turns cart lines and an optional coupon into the price breakdown of an order.
// Amounts are whole đồng.
package pricing

import (
	"errors"
	"fmt"
	"math"
	"math/bits"

	"github.com/aaravmahajanofficial/storefront-checkout/internal/models"
)

var (
	ErrNegativeTotal    = errors.New("order total would be negative")
	ErrAmountOutOfRange = errors.New("amount out of range")
)

// MaxAmount bounds line totals and the items subtotal. Up to 2^53 a float64 holds every
// đồng value exactly, so the tax multiply cannot lose precision.
const MaxAmount int64 = 1 << 53

// Policy holds the shipping and tax parameters of the storefront.
type Policy struct {
	ShippingFee           int64
	FreeShippingThreshold int64
	TaxRate               float64
}

// LineTotal is unitPrice × quantity, rejecting negative inputs and products above MaxAmount.
func LineTotal(line models.CartLine) (int64, error) {
	if line.UnitPrice < 0 || line.Quantity < 0 {
		return 0, fmt.Errorf("%w: line %s is negative", ErrAmountOutOfRange, line.Key())
	}

	hi, lo := bits.Mul64(uint64(line.UnitPrice), uint64(line.Quantity))
	if hi != 0 || lo > uint64(MaxAmount) {
		return 0, fmt.Errorf("%w: line %s exceeds %d", ErrAmountOutOfRange, line.Key(), MaxAmount)
	}

	return int64(lo), nil
}

// ItemsPrice sums the line totals. Empty input is 0; callers reject empty carts.
func ItemsPrice(lines []models.CartLine) (int64, error) {
	var total int64

	for _, line := range lines {
		lineTotal, err := LineTotal(line)
		if err != nil {
			return 0, err
		}

		if lineTotal > MaxAmount-total {
			return 0, fmt.Errorf("%w: items subtotal exceeds %d", ErrAmountOutOfRange, MaxAmount)
		}
		total += lineTotal
	}

	return total, nil
}

// ShippingPrice is a step function: free at or above the threshold, flat fee below it.
func (p Policy) ShippingPrice(itemsPrice int64) int64 {
	if itemsPrice >= p.FreeShippingThreshold {
		return 0
	}
	return p.ShippingFee
}

// TaxPrice is levied on the items subtotal only, before any discount.
func (p Policy) TaxPrice(itemsPrice int64) int64 {
	return int64(math.Round(float64(itemsPrice) * p.TaxRate))
}

// Total returns 0 and ErrNegativeTotal when the discount would push the total below zero.
func Total(itemsPrice, shippingPrice, taxPrice, discountAmount int64) (int64, error) {
	total := itemsPrice + shippingPrice + taxPrice - discountAmount
	if total < 0 {
		return 0, ErrNegativeTotal
	}
	return total, nil
}

// Quote prices the lines. A nil application means no coupon.
func (p Policy) Quote(lines []models.CartLine, application *models.CouponApplication) (models.OrderPricing, error) {
	itemsPrice, err := ItemsPrice(lines)
	if err != nil {
		return models.OrderPricing{}, err
	}

	pricing := models.OrderPricing{
		ItemsPrice:    itemsPrice,
		ShippingPrice: p.ShippingPrice(itemsPrice),
		TaxPrice:      p.TaxPrice(itemsPrice),
	}

	if application != nil {
		pricing.DiscountAmount = application.Discount
		pricing.CouponCode = application.Code
	}

	total, err := Total(pricing.ItemsPrice, pricing.ShippingPrice, pricing.TaxPrice, pricing.DiscountAmount)
	if err != nil {
		return models.OrderPricing{}, err
	}

	pricing.TotalPrice = total

	return pricing, nil
}
