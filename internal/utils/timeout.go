package utils

import (
	"context"
	"sync/atomic"
	"time"
)

const DefaultDBTimeout = 5 * time.Second

var dbTimeout atomic.Int64

func init() {
	dbTimeout.Store(int64(DefaultDBTimeout))
}

// SetDBTimeout bounds every later repository call; non-positive values keep the current bound.
func SetDBTimeout(d time.Duration) {
	if d > 0 {
		dbTimeout.Store(int64(d))
	}
}

func WithDBTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, time.Duration(dbTimeout.Load()))
}
