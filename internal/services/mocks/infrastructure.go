package mocks

import (
	"context"
	"encoding/json"
	"time"

	"github.com/aaravmahajanofficial/storefront-checkout/internal/models"
	"github.com/aaravmahajanofficial/storefront-checkout/pkg/stripe"
	"github.com/google/uuid"
	sg "github.com/sendgrid/sendgrid-go"
	"github.com/stretchr/testify/mock"
	stripeAPI "github.com/stripe/stripe-go/v81"
)

// Cache records calls. A Get stub may return a value as its third result; it is
// copied into the destination through JSON, like the Redis implementation.
type Cache struct {
	mock.Mock
}

func (m *Cache) Get(ctx context.Context, key string, value any) (bool, error) {
	args := m.Called(ctx, key, value)

	if found := args.Bool(0); found && len(args) > 2 && args.Get(2) != nil {
		data, err := json.Marshal(args.Get(2))
		if err != nil {
			return false, err
		}
		if err := json.Unmarshal(data, value); err != nil {
			return false, err
		}
	}

	return args.Bool(0), args.Error(1)
}

func (m *Cache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	args := m.Called(ctx, key, value, ttl)
	return args.Error(0)
}

func (m *Cache) Delete(ctx context.Context, keys ...string) error {
	args := m.Called(ctx, keys)
	return args.Error(0)
}

func (m *Cache) Close() error {
	args := m.Called()
	return args.Error(0)
}

type Publisher struct {
	mock.Mock
}

func (m *Publisher) PublishOrderCreated(ctx context.Context, order *models.Order) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

func (m *Publisher) PublishOrderStatusChanged(ctx context.Context, order *models.Order, previous models.OrderStatus) error {
	args := m.Called(ctx, order, previous)
	return args.Error(0)
}

func (m *Publisher) PublishCouponRedeemed(ctx context.Context, redemption *models.CouponRedemption, orderID uuid.UUID) error {
	args := m.Called(ctx, redemption, orderID)
	return args.Error(0)
}

func (m *Publisher) Close() error {
	args := m.Called()
	return args.Error(0)
}

type StripeClient struct {
	mock.Mock
}

func (m *StripeClient) CreatePaymentIntent(ctx context.Context, amount int64, currency, description string, metadata map[string]string) (*stripe.PaymentIntent, error) {
	args := m.Called(ctx, amount, currency, description, metadata)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*stripe.PaymentIntent), args.Error(1)
}

func (m *StripeClient) GetPaymentIntent(ctx context.Context, id string) (*stripe.PaymentIntent, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*stripe.PaymentIntent), args.Error(1)
}

func (m *StripeClient) RefundPayment(ctx context.Context, paymentIntentID string, amount int64) (*stripeAPI.Refund, error) {
	args := m.Called(ctx, paymentIntentID, amount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*stripeAPI.Refund), args.Error(1)
}

func (m *StripeClient) VerifyWebhookSignature(payload []byte, signature string) (stripe.Event, error) {
	args := m.Called(payload, signature)
	return args.Get(0).(stripe.Event), args.Error(1)
}

type EmailService struct {
	mock.Mock
}

func (m *EmailService) Send(ctx context.Context, req *models.EmailNotificationRequest) error {
	args := m.Called(ctx, req)
	return args.Error(0)
}

func (m *EmailService) GetSendGridClient() *sg.Client {
	return nil
}
