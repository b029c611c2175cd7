package cache

import (
	"context"
	"strings"
	"time"
)

// Cache stores JSON-encoded values. A miss is reported as found=false with a nil error.
type Cache interface {
	Get(ctx context.Context, key string, value any) (bool, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	Close() error
}

const (
	CouponKeyPrefix = "coupon"
	CartKeyPrefix   = "cart"
	OrderKeyPrefix  = "order"
)

// Key builds prefix:id. Coupon codes are case-insensitive, so callers lower them first.
func Key(prefix string, id string) string {
	return prefix + ":" + id
}

func CouponKey(code string) string {
	return Key(CouponKeyPrefix, strings.ToLower(code))
}
