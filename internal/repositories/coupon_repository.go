package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/aaravmahajanofficial/storefront-checkout/internal/models"
	"github.com/aaravmahajanofficial/storefront-checkout/internal/utils"
)

type CouponRepository interface {
	CreateCoupon(ctx context.Context, coupon *models.Coupon) error
	GetCouponByCode(ctx context.Context, code string) (*models.Coupon, error)
	ListCoupons(ctx context.Context, page, size int) ([]*models.Coupon, int, error)
	UpdateCoupon(ctx context.Context, coupon *models.Coupon) error
	DeleteCoupon(ctx context.Context, code string) error
	IncrementUsage(ctx context.Context, code string, now time.Time) (int, error)
}

type couponRepository struct {
	DB DBTX
}

func NewCouponRepo(db DBTX) CouponRepository {
	return &couponRepository{DB: db}
}

const couponColumns = `code, description, discount_type, discount_amount, minimum_amount, maximum_discount,
		start_date, end_date, is_active, usage_limit, used_count, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCoupon(row rowScanner) (*models.Coupon, error) {
	coupon := &models.Coupon{}

	var usageLimit sql.NullInt64

	err := row.Scan(&coupon.Code, &coupon.Description, &coupon.DiscountType, &coupon.DiscountAmount, &coupon.MinimumAmount, &coupon.MaximumDiscount,
		&coupon.StartDate, &coupon.EndDate, &coupon.IsActive, &usageLimit, &coupon.UsedCount, &coupon.CreatedAt, &coupon.UpdatedAt)
	if err != nil {
		return nil, err
	}

	coupon.UsageLimit = models.Unlimited()
	if usageLimit.Valid {
		coupon.UsageLimit = models.Limited(int(usageLimit.Int64))
	}

	return coupon, nil
}

func usageLimitValue(limit models.UsageLimit) sql.NullInt64 {
	n, ok := limit.Max()
	return sql.NullInt64{Int64: int64(n), Valid: ok}
}

func (r *couponRepository) CreateCoupon(ctx context.Context, coupon *models.Coupon) error {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	query := `
		INSERT INTO coupons (code, description, discount_type, discount_amount, minimum_amount, maximum_discount,
			start_date, end_date, is_active, usage_limit, used_count, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, 0, NOW(), NOW())
		RETURNING used_count, created_at, updated_at
	`

	err := r.DB.QueryRowContext(dbCtx, query, coupon.Code, coupon.Description, coupon.DiscountType, coupon.DiscountAmount, coupon.MinimumAmount, coupon.MaximumDiscount,
		coupon.StartDate, coupon.EndDate, coupon.IsActive, usageLimitValue(coupon.UsageLimit)).Scan(&coupon.UsedCount, &coupon.CreatedAt, &coupon.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("coupon %s: %w", coupon.Code, ErrDuplicate)
		}
		return fmt.Errorf("failed to insert coupon: %w", err)
	}

	return nil
}

// GetCouponByCode matches the code case-insensitively. Returns sql.ErrNoRows when absent.
func (r *couponRepository) GetCouponByCode(ctx context.Context, code string) (*models.Coupon, error) {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	query := `SELECT ` + couponColumns + ` FROM coupons WHERE LOWER(code) = LOWER($1)`

	coupon, err := scanCoupon(r.DB.QueryRowContext(dbCtx, query, code))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("querying coupon: %w", err)
	}

	return coupon, nil
}

func (r *couponRepository) ListCoupons(ctx context.Context, page, size int) ([]*models.Coupon, int, error) {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	var total int

	if err := r.DB.QueryRowContext(dbCtx, `SELECT COUNT(*) FROM coupons`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count coupons: %w", err)
	}

	offset := (page - 1) * size

	query := `SELECT ` + couponColumns + ` FROM coupons ORDER BY created_at DESC LIMIT $1 OFFSET $2`

	rows, err := r.DB.QueryContext(dbCtx, query, size, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list coupons: %w", err)
	}

	defer rows.Close()

	coupons := make([]*models.Coupon, 0, size)

	for rows.Next() {
		coupon, err := scanCoupon(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan coupon: %w", err)
		}
		coupons = append(coupons, coupon)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return coupons, total, nil
}

// UpdateCoupon rewrites the editable fields. used_count is never written here.
func (r *couponRepository) UpdateCoupon(ctx context.Context, coupon *models.Coupon) error {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	query := `
		UPDATE coupons
		SET description = $1, discount_type = $2, discount_amount = $3, minimum_amount = $4, maximum_discount = $5,
			start_date = $6, end_date = $7, is_active = $8, usage_limit = $9, updated_at = NOW()
		WHERE LOWER(code) = LOWER($10)
		RETURNING used_count, updated_at
	`

	err := r.DB.QueryRowContext(dbCtx, query, coupon.Description, coupon.DiscountType, coupon.DiscountAmount, coupon.MinimumAmount, coupon.MaximumDiscount,
		coupon.StartDate, coupon.EndDate, coupon.IsActive, usageLimitValue(coupon.UsageLimit), coupon.Code).Scan(&coupon.UsedCount, &coupon.UpdatedAt)
	if isConstraintViolation(err, "coupons_used_within_limit") {
		return ErrUsageLimitBelowUsed
	}

	return err
}

func (r *couponRepository) DeleteCoupon(ctx context.Context, code string) error {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	result, err := r.DB.ExecContext(dbCtx, `DELETE FROM coupons WHERE LOWER(code) = LOWER($1)`, code)
	if err != nil {
		return fmt.Errorf("failed to delete coupon: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get deleted rows: %w", err)
	}

	if deleted == 0 {
		return sql.ErrNoRows
	}

	return nil
}

// IncrementUsage redeems one use in a single conditional statement, so concurrent
// redemptions of the last use are serialized by the row lock. It returns the new
// used_count, or sql.ErrNoRows when the coupon is missing or not redeemable at now.
func (r *couponRepository) IncrementUsage(ctx context.Context, code string, now time.Time) (int, error) {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	query := `
		UPDATE coupons
		SET used_count = used_count + 1, updated_at = NOW()
		WHERE LOWER(code) = LOWER($1)
			AND is_active
			AND start_date <= $2
			AND end_date >= $2
			AND (usage_limit IS NULL OR used_count < usage_limit)
		RETURNING used_count
	`

	var usedCount int

	err := r.DB.QueryRowContext(dbCtx, query, code, now).Scan(&usedCount)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, err
		}
		return 0, fmt.Errorf("failed to increment coupon usage: %w", err)
	}

	return usedCount, nil
}
