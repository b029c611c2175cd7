package mocks

import (
	"context"
	"time"

	"github.com/aaravmahajanofficial/storefront-checkout/internal/models"
	repository "github.com/aaravmahajanofficial/storefront-checkout/internal/repositories"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type CouponRepository struct {
	mock.Mock
}

func (m *CouponRepository) CreateCoupon(ctx context.Context, coupon *models.Coupon) error {
	args := m.Called(ctx, coupon)
	return args.Error(0)
}

func (m *CouponRepository) GetCouponByCode(ctx context.Context, code string) (*models.Coupon, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Coupon), args.Error(1)
}

func (m *CouponRepository) ListCoupons(ctx context.Context, page, size int) ([]*models.Coupon, int, error) {
	args := m.Called(ctx, page, size)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]*models.Coupon), args.Int(1), args.Error(2)
}

func (m *CouponRepository) UpdateCoupon(ctx context.Context, coupon *models.Coupon) error {
	args := m.Called(ctx, coupon)
	return args.Error(0)
}

func (m *CouponRepository) DeleteCoupon(ctx context.Context, code string) error {
	args := m.Called(ctx, code)
	return args.Error(0)
}

func (m *CouponRepository) IncrementUsage(ctx context.Context, code string, now time.Time) (int, error) {
	args := m.Called(ctx, code, now)
	return args.Int(0), args.Error(1)
}

type CartRepository struct {
	mock.Mock
}

func (m *CartRepository) CreateCart(ctx context.Context, cart *models.Cart) error {
	args := m.Called(ctx, cart)
	return args.Error(0)
}

func (m *CartRepository) GetCartByCustomerID(ctx context.Context, customerID uuid.UUID) (*models.Cart, error) {
	args := m.Called(ctx, customerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Cart), args.Error(1)
}

func (m *CartRepository) GetCartForUpdate(ctx context.Context, customerID uuid.UUID) (*models.Cart, error) {
	args := m.Called(ctx, customerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Cart), args.Error(1)
}

func (m *CartRepository) UpdateCart(ctx context.Context, cart *models.Cart) error {
	args := m.Called(ctx, cart)
	return args.Error(0)
}

type OrderRepository struct {
	mock.Mock
}

func (m *OrderRepository) CreateOrder(ctx context.Context, order *models.Order) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

func (m *OrderRepository) GetOrderByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Order), args.Error(1)
}

func (m *OrderRepository) ListOrdersByCustomer(ctx context.Context, customerID uuid.UUID, page, size int) ([]*models.Order, int, error) {
	args := m.Called(ctx, customerID, page, size)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]*models.Order), args.Int(1), args.Error(2)
}

func (m *OrderRepository) UpdateOrderStatus(ctx context.Context, id uuid.UUID, status models.OrderStatus) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *OrderRepository) UpdatePayment(ctx context.Context, id uuid.UUID, status models.PaymentStatus, paymentIntentID string) error {
	args := m.Called(ctx, id, status, paymentIntentID)
	return args.Error(0)
}

func (m *OrderRepository) UpdatePaymentStatusByIntent(ctx context.Context, paymentIntentID string, status models.PaymentStatus) error {
	args := m.Called(ctx, paymentIntentID, status)
	return args.Error(0)
}

type ProductRepository struct {
	mock.Mock
}

func (m *ProductRepository) GetProductByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Product), args.Error(1)
}

func (m *ProductRepository) ReserveStock(ctx context.Context, id uuid.UUID, quantity int) error {
	args := m.Called(ctx, id, quantity)
	return args.Error(0)
}

type RateLimitRepository struct {
	mock.Mock
}

func (m *RateLimitRepository) CheckCouponRateLimit(ctx context.Context, subject string) (bool, int, int, error) {
	args := m.Called(ctx, subject)
	return args.Bool(0), args.Int(1), args.Int(2), args.Error(3)
}

// Transactor runs fn against Repos without a real transaction. Committed reports
// whether the last fn returned nil, so tests can tell a rollback from a commit.
type Transactor struct {
	Repos     *repository.TxRepositories
	Calls     int
	Committed bool
}

func (t *Transactor) ExecTx(ctx context.Context, fn func(repos *repository.TxRepositories) error) error {
	t.Calls++

	if err := fn(t.Repos); err != nil {
		t.Committed = false
		return err
	}

	t.Committed = true
	return nil
}
