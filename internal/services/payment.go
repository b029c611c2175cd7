package service

import (
	"context"
	"database/sql"
	stdErrors "errors"
	"log/slog"

	"github.com/aaravmahajanofficial/storefront-checkout/internal/api/middleware"
	"github.com/aaravmahajanofficial/storefront-checkout/internal/errors"
	"github.com/aaravmahajanofficial/storefront-checkout/internal/models"
	repository "github.com/aaravmahajanofficial/storefront-checkout/internal/repositories"
	"github.com/aaravmahajanofficial/storefront-checkout/pkg/stripe"
	"github.com/google/uuid"
)

type PaymentService interface {
	CreatePaymentIntent(ctx context.Context, orderID uuid.UUID, customerID uuid.UUID) (*models.PaymentResponse, error)
	ProcessWebhook(ctx context.Context, payload []byte, signature string) (stripe.Event, error)
	RefundOrder(ctx context.Context, orderID uuid.UUID) (*models.RefundResponse, error)
}

type paymentService struct {
	orders       repository.OrderRepository
	stripeClient stripe.Client
	currency     string
}

func NewPaymentService(orders repository.OrderRepository, stripeClient stripe.Client, currency string) PaymentService {
	return &paymentService{orders: orders, stripeClient: stripeClient, currency: currency}
}

// CreatePaymentIntent implements PaymentService. The amount is the order total as priced at
// checkout; it is never recomputed.
func (s *paymentService) CreatePaymentIntent(ctx context.Context, orderID uuid.UUID, customerID uuid.UUID) (*models.PaymentResponse, error) {
	order, err := s.orders.GetOrderByID(ctx, orderID)
	if err != nil {
		if stdErrors.Is(err, sql.ErrNoRows) {
			return nil, errors.NotFoundError("Order not found").WithError(err)
		}
		return nil, errors.DatabaseError("Failed to fetch order").WithError(err)
	}

	if order.CustomerID != customerID {
		return nil, errors.NotFoundError("Order not found")
	}

	switch {
	case order.Status == models.OrderStatusCancelled:
		return nil, errors.BadRequestError("Order is cancelled")
	case order.PaymentStatus == models.PaymentStatusPaid:
		return nil, errors.BadRequestError("Order is already paid")
	case !models.PaymentStatusPending.CanFollow(order.PaymentStatus):
		return nil, errors.BadRequestError("Order payment is closed")
	case order.Pricing.TotalPrice <= 0:
		return nil, errors.BadRequestError("Order has nothing to pay")
	}

	if existing, err := s.pendingIntent(ctx, order); err != nil || existing != nil {
		return existing, err
	}

	metadata := map[string]string{
		"order_id":    order.ID.String(),
		"customer_id": customerID.String(),
	}
	if order.Pricing.CouponCode != "" {
		metadata["coupon_code"] = order.Pricing.CouponCode
	}

	intent, err := s.stripeClient.CreatePaymentIntent(ctx, order.Pricing.TotalPrice, s.currency, "Order "+order.ID.String(), metadata)
	if err != nil {
		return nil, errors.ThirdPartyError("Failed to create payment intent").WithError(err)
	}

	if err := s.orders.UpdatePayment(ctx, order.ID, models.PaymentStatusPending, intent.ID); err != nil {
		if stdErrors.Is(err, repository.ErrStalePaymentStatus) {
			return nil, errors.BadRequestError("Order payment status changed").WithError(err)
		}
		return nil, errors.DatabaseError("Failed to record payment").WithError(err)
	}

	return &models.PaymentResponse{
		PaymentIntentID: intent.ID,
		ClientSecret:    intent.ClientSecret,
		Amount:          order.Pricing.TotalPrice,
		Currency:        s.currency,
	}, nil
}

// pendingIntent returns the intent already recorded for a pending order while the buyer can
// still confirm it, so a retried checkout does not orphan it. It returns nil when a new intent
// is needed.
func (s *paymentService) pendingIntent(ctx context.Context, order *models.Order) (*models.PaymentResponse, error) {
	if order.PaymentStatus != models.PaymentStatusPending || order.PaymentIntentID == "" {
		return nil, nil
	}

	intent, err := s.stripeClient.GetPaymentIntent(ctx, order.PaymentIntentID)
	if err != nil {
		return nil, errors.ThirdPartyError("Failed to fetch payment intent").WithError(err)
	}

	if stripe.Settling(intent) {
		return nil, errors.BadRequestError("Payment for this order is already in progress")
	}

	if !stripe.Reusable(intent) || intent.Amount != order.Pricing.TotalPrice {
		middleware.LoggerFromContext(ctx).Info("Replacing payment intent",
			slog.String("order_id", order.ID.String()), slog.String("payment_intent_id", intent.ID), slog.String("status", string(intent.Status)))
		return nil, nil
	}

	return &models.PaymentResponse{
		PaymentIntentID: intent.ID,
		ClientSecret:    intent.ClientSecret,
		Amount:          intent.Amount,
		Currency:        s.currency,
	}, nil
}

// ProcessWebhook implements PaymentService.
func (s *paymentService) ProcessWebhook(ctx context.Context, payload []byte, signature string) (stripe.Event, error) {
	event, err := s.stripeClient.VerifyWebhookSignature(payload, signature)
	if err != nil {
		return stripe.Event{}, errors.BadRequestError("Webhook signature verification failed").WithError(err)
	}

	var (
		intentID string
		status   models.PaymentStatus
	)

	switch event.Type {
	case "payment_intent.succeeded":
		intentID, status = objectString(event, "id"), models.PaymentStatusPaid
	case "payment_intent.payment_failed":
		intentID, status = objectString(event, "id"), models.PaymentStatusFailed
	case "charge.refunded":
		intentID, status = objectString(event, "payment_intent"), models.PaymentStatusRefunded
	default:
		middleware.LoggerFromContext(ctx).Debug("Ignoring webhook event", slog.String("type", string(event.Type)))
		return event, nil
	}

	if intentID == "" {
		return event, errors.BadRequestError("Missing payment intent ID in webhook")
	}

	if err := s.orders.UpdatePaymentStatusByIntent(ctx, intentID, status); err != nil {
		if stdErrors.Is(err, sql.ErrNoRows) {
			return event, errors.NotFoundError("No order for payment intent").WithError(err)
		}
		if stdErrors.Is(err, repository.ErrStalePaymentStatus) {
			// Acknowledged so Stripe stops redelivering an event that arrived out of order.
			middleware.LoggerFromContext(ctx).Info("Ignoring out-of-order payment event",
				slog.String("type", string(event.Type)), slog.String("payment_intent_id", intentID), slog.String("error", err.Error()))
			return event, nil
		}
		return event, errors.DatabaseError("Failed to update payment status").WithError(err)
	}

	return event, nil
}

// RefundOrder refunds the full amount of a paid order. The status is set here as well as by the
// charge.refunded webhook; both writes are idempotent.
func (s *paymentService) RefundOrder(ctx context.Context, orderID uuid.UUID) (*models.RefundResponse, error) {
	order, err := s.orders.GetOrderByID(ctx, orderID)
	if err != nil {
		if stdErrors.Is(err, sql.ErrNoRows) {
			return nil, errors.NotFoundError("Order not found").WithError(err)
		}
		return nil, errors.DatabaseError("Failed to fetch order").WithError(err)
	}

	if order.PaymentStatus != models.PaymentStatusPaid || order.PaymentIntentID == "" {
		return nil, errors.BadRequestError("Only paid orders can be refunded")
	}

	refund, err := s.stripeClient.RefundPayment(ctx, order.PaymentIntentID, 0)
	if err != nil {
		return nil, errors.ThirdPartyError("Failed to refund payment").WithError(err)
	}

	if err := s.orders.UpdatePaymentStatusByIntent(ctx, order.PaymentIntentID, models.PaymentStatusRefunded); err != nil {
		if stdErrors.Is(err, repository.ErrStalePaymentStatus) {
			return nil, errors.BadRequestError("Order payment status changed").WithError(err)
		}
		return nil, errors.DatabaseError("Failed to update payment status").WithError(err)
	}

	return &models.RefundResponse{
		RefundID:        refund.ID,
		PaymentIntentID: order.PaymentIntentID,
		Amount:          refund.Amount,
		Status:          string(refund.Status),
	}, nil
}

func objectString(event stripe.Event, field string) string {
	if event.Data == nil {
		return ""
	}

	value, _ := event.Data.Object[field].(string)
	return value
}
