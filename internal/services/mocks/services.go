package mocks

import (
	"context"

	"github.com/aaravmahajanofficial/storefront-checkout/internal/models"
	repository "github.com/aaravmahajanofficial/storefront-checkout/internal/repositories"
	"github.com/aaravmahajanofficial/storefront-checkout/pkg/stripe"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type CouponService struct {
	mock.Mock
}

func (m *CouponService) CreateCoupon(ctx context.Context, req *models.CreateCouponRequest) (*models.Coupon, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Coupon), args.Error(1)
}

func (m *CouponService) GetCoupon(ctx context.Context, code string) (*models.Coupon, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Coupon), args.Error(1)
}

func (m *CouponService) ListCoupons(ctx context.Context, page, size int) ([]*models.Coupon, int, error) {
	args := m.Called(ctx, page, size)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]*models.Coupon), args.Int(1), args.Error(2)
}

func (m *CouponService) UpdateCoupon(ctx context.Context, code string, req *models.UpdateCouponRequest) (*models.Coupon, error) {
	args := m.Called(ctx, code, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Coupon), args.Error(1)
}

func (m *CouponService) DeleteCoupon(ctx context.Context, code string) error {
	args := m.Called(ctx, code)
	return args.Error(0)
}

func (m *CouponService) ValidateCoupon(ctx context.Context, code string, itemsPrice int64) (*models.CouponApplication, error) {
	args := m.Called(ctx, code, itemsPrice)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.CouponApplication), args.Error(1)
}

func (m *CouponService) ApplyCoupon(ctx context.Context, code string) (*models.CouponRedemption, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.CouponRedemption), args.Error(1)
}

func (m *CouponService) ApplyCouponWith(ctx context.Context, repo repository.CouponRepository, code string) (*models.CouponRedemption, error) {
	args := m.Called(ctx, repo, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.CouponRedemption), args.Error(1)
}

func (m *CouponService) InvalidateCoupon(ctx context.Context, code string) {
	m.Called(ctx, code)
}

func (m *CouponService) CheckRateLimit(ctx context.Context, subject string) error {
	args := m.Called(ctx, subject)
	return args.Error(0)
}

type CartService struct {
	mock.Mock
}

func (m *CartService) GetCart(ctx context.Context, customerID uuid.UUID) (*models.Cart, error) {
	args := m.Called(ctx, customerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Cart), args.Error(1)
}

func (m *CartService) AddItem(ctx context.Context, customerID uuid.UUID, req *models.AddItemRequest) (*models.Cart, error) {
	args := m.Called(ctx, customerID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Cart), args.Error(1)
}

func (m *CartService) UpdateQuantity(ctx context.Context, customerID uuid.UUID, req *models.UpdateQuantityRequest) (*models.Cart, error) {
	args := m.Called(ctx, customerID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Cart), args.Error(1)
}

func (m *CartService) RemoveItem(ctx context.Context, customerID uuid.UUID, productID uuid.UUID, variantID string) (*models.Cart, error) {
	args := m.Called(ctx, customerID, productID, variantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Cart), args.Error(1)
}

func (m *CartService) Clear(ctx context.Context, customerID uuid.UUID) error {
	args := m.Called(ctx, customerID)
	return args.Error(0)
}

type OrderService struct {
	mock.Mock
}

func (m *OrderService) QuoteOrder(ctx context.Context, customerID uuid.UUID, req *models.QuoteRequest) (*models.QuoteResponse, error) {
	args := m.Called(ctx, customerID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.QuoteResponse), args.Error(1)
}

func (m *OrderService) CreateOrder(ctx context.Context, customerID uuid.UUID, req *models.CreateOrderRequest) (*models.Order, error) {
	args := m.Called(ctx, customerID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Order), args.Error(1)
}

func (m *OrderService) GetOrderByID(ctx context.Context, id uuid.UUID, customerID uuid.UUID) (*models.Order, error) {
	args := m.Called(ctx, id, customerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Order), args.Error(1)
}

func (m *OrderService) ListOrdersByCustomer(ctx context.Context, customerID uuid.UUID, page, size int) ([]*models.Order, int, error) {
	args := m.Called(ctx, customerID, page, size)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]*models.Order), args.Int(1), args.Error(2)
}

func (m *OrderService) UpdateOrderStatus(ctx context.Context, id uuid.UUID, status models.OrderStatus) (*models.Order, error) {
	args := m.Called(ctx, id, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Order), args.Error(1)
}

type PaymentService struct {
	mock.Mock
}

func (m *PaymentService) CreatePaymentIntent(ctx context.Context, orderID uuid.UUID, customerID uuid.UUID) (*models.PaymentResponse, error) {
	args := m.Called(ctx, orderID, customerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PaymentResponse), args.Error(1)
}

func (m *PaymentService) ProcessWebhook(ctx context.Context, payload []byte, signature string) (stripe.Event, error) {
	args := m.Called(ctx, payload, signature)
	return args.Get(0).(stripe.Event), args.Error(1)
}

func (m *PaymentService) RefundOrder(ctx context.Context, orderID uuid.UUID) (*models.RefundResponse, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.RefundResponse), args.Error(1)
}

type NotificationService struct {
	mock.Mock
}

func (m *NotificationService) SendOrderConfirmation(ctx context.Context, order *models.Order, email string) error {
	args := m.Called(ctx, order, email)
	return args.Error(0)
}
