package pricing

import (
	"errors"
	"math"
	"time"

	"github.com/aaravmahajanofficial/storefront-checkout/internal/models"
)

var (
	ErrCouponNotFound      = errors.New("coupon not found")
	ErrCouponInactive      = errors.New("coupon is not active")
	ErrCouponNotStarted    = errors.New("coupon is not yet valid")
	ErrCouponExpired       = errors.New("coupon has expired")
	ErrCouponUsageExceeded = errors.New("coupon usage limit reached")
	ErrCouponBelowMinimum  = errors.New("order subtotal is below the coupon minimum")
)

// IsCouponError reports whether err is one of the recoverable coupon rejections.
func IsCouponError(err error) bool {
	return errors.Is(err, ErrCouponNotFound) ||
		errors.Is(err, ErrCouponInactive) ||
		errors.Is(err, ErrCouponNotStarted) ||
		errors.Is(err, ErrCouponExpired) ||
		errors.Is(err, ErrCouponUsageExceeded) ||
		errors.Is(err, ErrCouponBelowMinimum)
}

// CheckRedeemable checks everything about the coupon except the order subtotal.
// The same checks guard the conditional increment in storage.
func CheckRedeemable(coupon *models.Coupon, now time.Time) error {
	switch {
	case coupon == nil:
		return ErrCouponNotFound
	case !coupon.IsActive:
		return ErrCouponInactive
	case now.Before(coupon.StartDate):
		return ErrCouponNotStarted
	case now.After(coupon.EndDate):
		return ErrCouponExpired
	case coupon.UsageLimit.Exhausted(coupon.UsedCount):
		return ErrCouponUsageExceeded
	}

	return nil
}

// ValidateCoupon checks the coupon against the subtotal and computes the discount.
// It never changes the coupon's usage.
func ValidateCoupon(coupon *models.Coupon, itemsPrice int64, now time.Time) (*models.CouponApplication, error) {
	if err := CheckRedeemable(coupon, now); err != nil {
		return nil, err
	}

	if itemsPrice < coupon.MinimumAmount {
		return nil, ErrCouponBelowMinimum
	}

	return &models.CouponApplication{
		Code:           coupon.Code,
		Description:    coupon.Description,
		DiscountType:   coupon.DiscountType,
		DiscountAmount: coupon.DiscountAmount,
		Discount:       Discount(coupon, itemsPrice),
	}, nil
}

// Discount never exceeds itemsPrice.
func Discount(coupon *models.Coupon, itemsPrice int64) int64 {
	var discount int64

	switch coupon.DiscountType {
	case models.DiscountTypeFixed:
		discount = int64(math.Round(coupon.DiscountAmount))
	case models.DiscountTypePercentage:
		discount = int64(math.Round(float64(itemsPrice) * coupon.DiscountAmount / 100))
		if coupon.MaximumDiscount > 0 {
			discount = min(discount, coupon.MaximumDiscount)
		}
	}

	return max(min(discount, itemsPrice), 0)
}
