package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

type DiscountType string

const (
	DiscountTypePercentage DiscountType = "percentage"
	DiscountTypeFixed      DiscountType = "fixed"
)

// UsageLimit is either Unlimited or Limited(n) with n >= 1.
// The zero value is Unlimited.
type UsageLimit struct {
	max int
}

func Unlimited() UsageLimit {
	return UsageLimit{}
}

func Limited(n int) UsageLimit {
	if n < 1 {
		return Unlimited()
	}
	return UsageLimit{max: n}
}

func (u UsageLimit) IsUnlimited() bool {
	return u.max == 0
}

// Max returns the cap and false when the limit is Unlimited.
func (u UsageLimit) Max() (int, bool) {
	return u.max, u.max > 0
}

// Exhausted reports whether usedCount leaves no redemptions.
func (u UsageLimit) Exhausted(usedCount int) bool {
	return u.max > 0 && usedCount >= u.max
}

func (u UsageLimit) MarshalJSON() ([]byte, error) {
	if u.IsUnlimited() {
		return []byte("null"), nil
	}
	return json.Marshal(u.max)
}

// null and 0 both decode to Unlimited, matching the admin form where 0 meant "no limit".
func (u *UsageLimit) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*u = Unlimited()
		return nil
	}

	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("usage limit must be an integer or null: %w", err)
	}
	if n < 0 {
		return fmt.Errorf("usage limit must not be negative, got %d", n)
	}

	*u = Limited(n)
	return nil
}

type Coupon struct {
	Code            string       `json:"code"`
	Description     string       `json:"description"`
	DiscountType    DiscountType `json:"discount_type"`
	DiscountAmount  float64      `json:"discount_amount"`
	MinimumAmount   int64        `json:"minimum_amount"`
	MaximumDiscount int64        `json:"maximum_discount"`
	StartDate       time.Time    `json:"start_date"`
	EndDate         time.Time    `json:"end_date"`
	IsActive        bool         `json:"is_active"`
	UsageLimit      UsageLimit   `json:"usage_limit"`
	UsedCount       int          `json:"used_count"`
	CreatedAt       time.Time    `json:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at"`
}

type CreateCouponRequest struct {
	Code            string       `json:"code" validate:"required,min=3,max=50,alphanum"`
	Description     string       `json:"description" validate:"max=500"`
	DiscountType    DiscountType `json:"discount_type" validate:"required,oneof=percentage fixed"`
	DiscountAmount  float64      `json:"discount_amount" validate:"gte=0"`
	MinimumAmount   int64        `json:"minimum_amount" validate:"gte=0"`
	MaximumDiscount int64        `json:"maximum_discount" validate:"gte=0"`
	StartDate       time.Time    `json:"start_date" validate:"required"`
	EndDate         time.Time    `json:"end_date" validate:"required,gtfield=StartDate"`
	IsActive        bool         `json:"is_active"`
	UsageLimit      UsageLimit   `json:"usage_limit"`
}

type UpdateCouponRequest struct {
	Description     *string       `json:"description,omitempty" validate:"omitempty,max=500"`
	DiscountType    *DiscountType `json:"discount_type,omitempty" validate:"omitempty,oneof=percentage fixed"`
	DiscountAmount  *float64      `json:"discount_amount,omitempty" validate:"omitempty,gte=0"`
	MinimumAmount   *int64        `json:"minimum_amount,omitempty" validate:"omitempty,gte=0"`
	MaximumDiscount *int64        `json:"maximum_discount,omitempty" validate:"omitempty,gte=0"`
	StartDate       *time.Time    `json:"start_date,omitempty"`
	EndDate         *time.Time    `json:"end_date,omitempty"`
	IsActive        *bool         `json:"is_active,omitempty"`
	UsageLimit      *UsageLimit   `json:"usage_limit,omitempty"`
}

type ValidateCouponRequest struct {
	Code       string `json:"code" validate:"required,max=50"`
	ItemsPrice int64  `json:"items_price" validate:"gte=0"`
}

// CouponApplication is the display result of a successful validation.
type CouponApplication struct {
	Code           string       `json:"code"`
	Description    string       `json:"description"`
	DiscountType   DiscountType `json:"discount_type"`
	DiscountAmount float64      `json:"discount_amount"`
	Discount       int64        `json:"discount"`
}

type CouponRedemption struct {
	Code      string `json:"code"`
	UsedCount int    `json:"used_count"`
}
