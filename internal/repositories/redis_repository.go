package repository

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/aaravmahajanofficial/storefront-checkout/internal/api/middleware"
	"github.com/aaravmahajanofficial/storefront-checkout/internal/config"
	"github.com/redis/go-redis/v9"
)

type RateLimitRepository interface {
	CheckCouponRateLimit(ctx context.Context, subject string) (bool, int, int, error)
}

type redisRepository struct {
	client redis.Cmdable
	cfg    *config.Config
	now    func() time.Time
}

func NewRedisClient(cfg *config.Config) (*redis.Client, error) {
	slog.Info("Connecting to Redis", slog.String("host", cfg.RedisConnect.Host), slog.String("port", cfg.RedisConnect.Port))

	opt, err := redis.ParseURL(cfg.RedisConnect.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	slog.Info("Connected to Redis")
	return client, nil
}

func NewRateLimitRepo(client redis.Cmdable, cfg *config.Config) RateLimitRepository {
	return &redisRepository{client: client, cfg: cfg, now: time.Now}
}

// CheckCouponRateLimit counts validation attempts for subject in a sliding window.
// Returns isAllowed, attempts left, seconds to wait.
func (r *redisRepository) CheckCouponRateLimit(ctx context.Context, subject string) (bool, int, int, error) {
	logger := middleware.LoggerFromContext(ctx)

	key := "coupon_attempts:" + subject

	now := r.now()
	window := r.cfg.RateConfig.WindowSize
	windowStart := now.Add(-window).UnixNano()

	pipe := r.client.TxPipeline()

	pipe.ZRemRangeByScore(ctx, key, "0", strconv.FormatInt(windowStart, 10))
	pipe.ZAdd(ctx, key, redis.Z{Score: float64(now.UnixNano()), Member: now.UnixNano()})
	count := pipe.ZCard(ctx, key)
	pipe.Expire(ctx, key, window)

	if _, err := pipe.Exec(ctx); err != nil {
		logger.Error("Redis pipeline execution failed for rate limit", slog.String("key", key), slog.Any("error", err))
		return false, 0, 0, fmt.Errorf("redis pipeline error for rate limit check: %w", err)
	}

	attempts := count.Val()
	maxAttempts := r.cfg.RateConfig.MaxAttempts

	if attempts > maxAttempts {
		scores, err := r.client.ZRangeWithScores(ctx, key, 0, 0).Result()
		if err != nil || len(scores) == 0 {
			logger.Error("Failed to get oldest attempt for rate limit", slog.String("key", key), slog.Any("error", err))
			return false, 0, int(window.Seconds()), nil
		}

		oldest := time.Unix(0, int64(scores[0].Score))
		retryAfter := max(int(oldest.Add(window).Sub(now).Seconds()), 1)

		logger.Warn("Coupon validation rate limit exceeded", slog.String("subject", subject), slog.Int64("attempts", attempts))
		return false, 0, retryAfter, nil
	}

	return true, int(maxAttempts - attempts), 0, nil
}
