package repository

import (
	"strconv"
	"testing"
	"time"

	"github.com/aaravmahajanofficial/storefront-checkout/internal/config"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRateLimiter(t *testing.T, now time.Time) (*redisRepository, redismock.ClientMock) {
	t.Helper()

	client, mock := redismock.NewClientMock()
	cfg := &config.Config{RateConfig: config.RateConfig{MaxAttempts: 3, WindowSize: time.Minute}}

	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	return &redisRepository{client: client, cfg: cfg, now: func() time.Time { return now }}, mock
}

func expectWindow(mock redismock.ClientMock, key string, now time.Time, window time.Duration) {
	mock.ExpectTxPipeline()
	mock.ExpectZRemRangeByScore(key, "0", strconv.FormatInt(now.Add(-window).UnixNano(), 10)).SetVal(0)
	mock.ExpectZAdd(key, redis.Z{Score: float64(now.UnixNano()), Member: now.UnixNano()}).SetVal(1)
}

func TestCheckCouponRateLimit(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	key := "coupon_attempts:buyer-1"

	t.Run("Allowed", func(t *testing.T) {
		repo, mock := newRateLimiter(t, now)

		expectWindow(mock, key, now, time.Minute)
		mock.ExpectZCard(key).SetVal(2)
		mock.ExpectExpire(key, time.Minute).SetVal(true)
		mock.ExpectTxPipelineExec()

		allowed, remaining, retryAfter, err := repo.CheckCouponRateLimit(t.Context(), "buyer-1")

		require.NoError(t, err)
		assert.True(t, allowed)
		assert.Equal(t, 1, remaining)
		assert.Zero(t, retryAfter)
	})

	t.Run("Exceeded", func(t *testing.T) {
		repo, mock := newRateLimiter(t, now)

		expectWindow(mock, key, now, time.Minute)
		mock.ExpectZCard(key).SetVal(4)
		mock.ExpectExpire(key, time.Minute).SetVal(true)
		mock.ExpectTxPipelineExec()

		oldest := now.Add(-20 * time.Second)
		mock.ExpectZRangeWithScores(key, 0, 0).SetVal([]redis.Z{{Score: float64(oldest.UnixNano()), Member: "x"}})

		allowed, remaining, retryAfter, err := repo.CheckCouponRateLimit(t.Context(), "buyer-1")

		require.NoError(t, err)
		assert.False(t, allowed)
		assert.Zero(t, remaining)
		assert.Equal(t, 40, retryAfter)
	})
}
