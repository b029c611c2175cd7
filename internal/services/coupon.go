package service

import (
	"context"
	"database/sql"
	stdErrors "errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aaravmahajanofficial/storefront-checkout/internal/api/middleware"
	"github.com/aaravmahajanofficial/storefront-checkout/internal/cache"
	"github.com/aaravmahajanofficial/storefront-checkout/internal/errors"
	"github.com/aaravmahajanofficial/storefront-checkout/internal/metrics"
	"github.com/aaravmahajanofficial/storefront-checkout/internal/models"
	"github.com/aaravmahajanofficial/storefront-checkout/internal/pricing"
	repository "github.com/aaravmahajanofficial/storefront-checkout/internal/repositories"
	"github.com/microcosm-cc/bluemonday"
)

type CouponService interface {
	CreateCoupon(ctx context.Context, req *models.CreateCouponRequest) (*models.Coupon, error)
	GetCoupon(ctx context.Context, code string) (*models.Coupon, error)
	ListCoupons(ctx context.Context, page, size int) ([]*models.Coupon, int, error)
	UpdateCoupon(ctx context.Context, code string, req *models.UpdateCouponRequest) (*models.Coupon, error)
	DeleteCoupon(ctx context.Context, code string) error
	ValidateCoupon(ctx context.Context, code string, itemsPrice int64) (*models.CouponApplication, error)
	ApplyCoupon(ctx context.Context, code string) (*models.CouponRedemption, error)
	ApplyCouponWith(ctx context.Context, repo repository.CouponRepository, code string) (*models.CouponRedemption, error)
	InvalidateCoupon(ctx context.Context, code string)
	CheckRateLimit(ctx context.Context, subject string) error
}

// Clock returns the current instant. Coupon windows are compared in UTC.
type Clock func() time.Time

func systemClock() time.Time {
	return time.Now().UTC()
}

type CouponOption func(*couponService)

func WithCouponClock(clock Clock) CouponOption {
	return func(s *couponService) {
		s.now = clock
	}
}

type couponService struct {
	repo      repository.CouponRepository
	cache     cache.Cache
	limiter   repository.RateLimitRepository
	cacheTTL  time.Duration
	sanitizer *bluemonday.Policy
	now       Clock
}

// NewCouponService wires the coupon store. cache and limiter may be nil.
func NewCouponService(repo repository.CouponRepository, couponCache cache.Cache, limiter repository.RateLimitRepository, cacheTTL time.Duration, opts ...CouponOption) CouponService {
	s := &couponService{
		repo:      repo,
		cache:     couponCache,
		limiter:   limiter,
		cacheTTL:  cacheTTL,
		sanitizer: bluemonday.StrictPolicy(),
		now:       systemClock,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

var couponErrorCodes = []struct {
	sentinel error
	code     string
}{
	{pricing.ErrCouponNotFound, errors.ErrCodeCouponNotFound},
	{pricing.ErrCouponInactive, errors.ErrCodeCouponInactive},
	{pricing.ErrCouponNotStarted, errors.ErrCodeCouponNotStarted},
	{pricing.ErrCouponExpired, errors.ErrCodeCouponExpired},
	{pricing.ErrCouponUsageExceeded, errors.ErrCodeCouponUsageExceeded},
	{pricing.ErrCouponBelowMinimum, errors.ErrCodeCouponBelowMinimum},
}

// couponError maps a pricing rejection onto its AppError. The sentinel stays reachable through errors.Is.
func couponError(err error) *errors.AppError {
	for _, c := range couponErrorCodes {
		if stdErrors.Is(err, c.sentinel) {
			return errors.CouponError(c.code, c.sentinel.Error()).WithError(err)
		}
	}

	return errors.InternalError("Unexpected coupon error").WithError(err)
}

func (s *couponService) validateTerms(discountType models.DiscountType, discountAmount float64, start, end time.Time) error {
	if discountType == models.DiscountTypePercentage && discountAmount > 100 {
		return errors.AddValidationError("discount_amount", "percentage must be at most 100")
	}

	if !end.After(start) {
		return errors.AddValidationError("end_date", "must be after start_date")
	}

	return nil
}

func usageBelowUsed(usedCount int) *errors.AppError {
	return errors.AddValidationError("usage_limit", fmt.Sprintf("must be at least the current used count %d", usedCount))
}

// CreateCoupon implements CouponService.
func (s *couponService) CreateCoupon(ctx context.Context, req *models.CreateCouponRequest) (*models.Coupon, error) {
	if err := s.validateTerms(req.DiscountType, req.DiscountAmount, req.StartDate, req.EndDate); err != nil {
		return nil, err
	}

	coupon := &models.Coupon{
		Code:            strings.TrimSpace(req.Code),
		Description:     s.sanitizer.Sanitize(req.Description),
		DiscountType:    req.DiscountType,
		DiscountAmount:  req.DiscountAmount,
		MinimumAmount:   req.MinimumAmount,
		MaximumDiscount: req.MaximumDiscount,
		StartDate:       req.StartDate.UTC(),
		EndDate:         req.EndDate.UTC(),
		IsActive:        req.IsActive,
		UsageLimit:      req.UsageLimit,
	}

	if err := s.repo.CreateCoupon(ctx, coupon); err != nil {
		if stdErrors.Is(err, repository.ErrDuplicate) {
			return nil, errors.DuplicateEntryError("Coupon code already exists").WithError(err)
		}
		return nil, errors.DatabaseError("Failed to create coupon").WithError(err)
	}

	return coupon, nil
}

// GetCoupon implements CouponService.
func (s *couponService) GetCoupon(ctx context.Context, code string) (*models.Coupon, error) {
	coupon, err := s.repo.GetCouponByCode(ctx, code)
	if err != nil {
		if stdErrors.Is(err, sql.ErrNoRows) {
			return nil, couponError(pricing.ErrCouponNotFound)
		}
		return nil, errors.DatabaseError("Failed to fetch coupon").WithError(err)
	}

	return coupon, nil
}

// ListCoupons implements CouponService.
func (s *couponService) ListCoupons(ctx context.Context, page, size int) ([]*models.Coupon, int, error) {
	coupons, total, err := s.repo.ListCoupons(ctx, page, size)
	if err != nil {
		return nil, 0, errors.DatabaseError("Failed to fetch coupons").WithError(err)
	}

	return coupons, total, nil
}

// UpdateCoupon implements CouponService. Only the fields present in req change.
func (s *couponService) UpdateCoupon(ctx context.Context, code string, req *models.UpdateCouponRequest) (*models.Coupon, error) {
	coupon, err := s.GetCoupon(ctx, code)
	if err != nil {
		return nil, err
	}

	if req.Description != nil {
		coupon.Description = s.sanitizer.Sanitize(*req.Description)
	}
	if req.DiscountType != nil {
		coupon.DiscountType = *req.DiscountType
	}
	if req.DiscountAmount != nil {
		coupon.DiscountAmount = *req.DiscountAmount
	}
	if req.MinimumAmount != nil {
		coupon.MinimumAmount = *req.MinimumAmount
	}
	if req.MaximumDiscount != nil {
		coupon.MaximumDiscount = *req.MaximumDiscount
	}
	if req.StartDate != nil {
		coupon.StartDate = req.StartDate.UTC()
	}
	if req.EndDate != nil {
		coupon.EndDate = req.EndDate.UTC()
	}
	if req.IsActive != nil {
		coupon.IsActive = *req.IsActive
	}
	if req.UsageLimit != nil {
		coupon.UsageLimit = *req.UsageLimit
	}

	if err := s.validateTerms(coupon.DiscountType, coupon.DiscountAmount, coupon.StartDate, coupon.EndDate); err != nil {
		return nil, err
	}

	if limit, limited := coupon.UsageLimit.Max(); limited && limit < coupon.UsedCount {
		return nil, usageBelowUsed(coupon.UsedCount)
	}

	if err := s.repo.UpdateCoupon(ctx, coupon); err != nil {
		if stdErrors.Is(err, sql.ErrNoRows) {
			return nil, couponError(pricing.ErrCouponNotFound)
		}
		if stdErrors.Is(err, repository.ErrUsageLimitBelowUsed) {
			return nil, usageBelowUsed(coupon.UsedCount)
		}
		return nil, errors.DatabaseError("Failed to update coupon").WithError(err)
	}

	s.InvalidateCoupon(ctx, code)

	return coupon, nil
}

// DeleteCoupon implements CouponService. Orders keep the code they were priced with.
func (s *couponService) DeleteCoupon(ctx context.Context, code string) error {
	if err := s.repo.DeleteCoupon(ctx, code); err != nil {
		if stdErrors.Is(err, sql.ErrNoRows) {
			return couponError(pricing.ErrCouponNotFound)
		}
		return errors.DatabaseError("Failed to delete coupon").WithError(err)
	}

	s.InvalidateCoupon(ctx, code)

	return nil
}

// lookup reads through the cache. A missing coupon is returned as nil without error.
func (s *couponService) lookup(ctx context.Context, code string) (*models.Coupon, error) {
	logger := middleware.LoggerFromContext(ctx)
	key := cache.CouponKey(code)

	if s.cache != nil {
		var cached models.Coupon

		found, err := s.cache.Get(ctx, key, &cached)
		if err != nil {
			logger.Warn("Coupon cache read failed", slog.String("key", key), slog.String("error", err.Error()))
		} else if found {
			return &cached, nil
		}
	}

	coupon, err := s.repo.GetCouponByCode(ctx, code)
	if err != nil {
		if stdErrors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, errors.DatabaseError("Failed to fetch coupon").WithError(err)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, coupon, s.cacheTTL); err != nil {
			logger.Warn("Coupon cache write failed", slog.String("key", key), slog.String("error", err.Error()))
		}
	}

	return coupon, nil
}

// ValidateCoupon implements CouponService. It never changes the coupon's usage.
func (s *couponService) ValidateCoupon(ctx context.Context, code string, itemsPrice int64) (*models.CouponApplication, error) {
	coupon, err := s.lookup(ctx, code)
	if err != nil {
		return nil, err
	}

	application, err := pricing.ValidateCoupon(coupon, itemsPrice, s.now())
	if err != nil {
		appErr := couponError(err)
		metrics.ObserveCouponValidation(appErr.Code)
		return nil, appErr
	}

	metrics.ObserveCouponValidation("ok")

	return application, nil
}

// ApplyCoupon implements CouponService.
func (s *couponService) ApplyCoupon(ctx context.Context, code string) (*models.CouponRedemption, error) {
	redemption, err := s.ApplyCouponWith(ctx, s.repo, code)
	if err != nil {
		return nil, err
	}

	s.InvalidateCoupon(ctx, code)

	return redemption, nil
}

// ApplyCouponWith redeems one use through repo, which may be bound to an open transaction.
// The caller invalidates the cached coupon once the redemption is durable.
func (s *couponService) ApplyCouponWith(ctx context.Context, repo repository.CouponRepository, code string) (*models.CouponRedemption, error) {
	now := s.now()

	usedCount, err := repo.IncrementUsage(ctx, code, now)
	if err != nil {
		if !stdErrors.Is(err, sql.ErrNoRows) {
			metrics.ObserveCouponRedemption("error")
			return nil, errors.DatabaseError("Failed to apply coupon").WithError(err)
		}

		reason := s.diagnose(ctx, repo, code, now)
		metrics.ObserveCouponRedemption(reason.Code)
		return nil, reason
	}

	metrics.ObserveCouponRedemption("ok")

	return &models.CouponRedemption{Code: code, UsedCount: usedCount}, nil
}

// diagnose explains why the conditional increment matched no row.
func (s *couponService) diagnose(ctx context.Context, repo repository.CouponRepository, code string, now time.Time) *errors.AppError {
	coupon, err := repo.GetCouponByCode(ctx, code)
	if err != nil {
		if stdErrors.Is(err, sql.ErrNoRows) {
			return couponError(pricing.ErrCouponNotFound)
		}
		return errors.DatabaseError("Failed to fetch coupon").WithError(err)
	}

	if err := pricing.CheckRedeemable(coupon, now); err != nil {
		return couponError(err)
	}

	// The row was redeemable when re-read, so the last use went to a concurrent redemption.
	return couponError(pricing.ErrCouponUsageExceeded)
}

// InvalidateCoupon implements CouponService. Failures only cost a stale read until the TTL expires.
func (s *couponService) InvalidateCoupon(ctx context.Context, code string) {
	if s.cache == nil {
		return
	}

	key := cache.CouponKey(code)
	if err := s.cache.Delete(ctx, key); err != nil {
		middleware.LoggerFromContext(ctx).Warn("Coupon cache invalidation failed", slog.String("key", key), slog.String("error", err.Error()))
	}
}

// CheckRateLimit implements CouponService. Redis outages let the attempt through.
func (s *couponService) CheckRateLimit(ctx context.Context, subject string) error {
	if s.limiter == nil {
		return nil
	}

	allowed, _, retryAfter, err := s.limiter.CheckCouponRateLimit(ctx, subject)
	if err != nil {
		middleware.LoggerFromContext(ctx).Warn("Coupon rate limit check failed", slog.String("subject", subject), slog.String("error", err.Error()))
		return nil
	}

	if !allowed {
		return errors.TooManyRequestsError("Too many coupon attempts").
			WithDetail(fmt.Sprintf("retry after %d seconds", retryAfter))
	}

	return nil
}
