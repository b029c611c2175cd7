package service

import (
	"context"
	"database/sql"
	stdErrors "errors"
	"log/slog"
	"sort"
	"strings"

	"github.com/aaravmahajanofficial/storefront-checkout/internal/api/middleware"
	"github.com/aaravmahajanofficial/storefront-checkout/internal/errors"
	"github.com/aaravmahajanofficial/storefront-checkout/internal/events"
	"github.com/aaravmahajanofficial/storefront-checkout/internal/metrics"
	"github.com/aaravmahajanofficial/storefront-checkout/internal/models"
	"github.com/aaravmahajanofficial/storefront-checkout/internal/pricing"
	repository "github.com/aaravmahajanofficial/storefront-checkout/internal/repositories"
	"github.com/google/uuid"
)

const (
	defaultOrderPageSize = 10
	maxOrderPageSize     = 100
)

type OrderService interface {
	QuoteOrder(ctx context.Context, customerID uuid.UUID, req *models.QuoteRequest) (*models.QuoteResponse, error)
	CreateOrder(ctx context.Context, customerID uuid.UUID, req *models.CreateOrderRequest) (*models.Order, error)
	GetOrderByID(ctx context.Context, id uuid.UUID, customerID uuid.UUID) (*models.Order, error)
	ListOrdersByCustomer(ctx context.Context, customerID uuid.UUID, page, size int) ([]*models.Order, int, error)
	UpdateOrderStatus(ctx context.Context, id uuid.UUID, status models.OrderStatus) (*models.Order, error)
}

type orderService struct {
	tx        repository.Transactor
	orders    repository.OrderRepository
	carts     repository.CartRepository
	coupons   CouponService
	notifier  NotificationService
	publisher events.Publisher
	policy    pricing.Policy
	now       Clock
}

func NewOrderService(tx repository.Transactor, orders repository.OrderRepository, carts repository.CartRepository, coupons CouponService,
	notifier NotificationService, publisher events.Publisher, policy pricing.Policy) OrderService {
	return &orderService{
		tx:        tx,
		orders:    orders,
		carts:     carts,
		coupons:   coupons,
		notifier:  notifier,
		publisher: publisher,
		policy:    policy,
		now:       systemClock,
	}
}

// loadCheckoutCart returns the buyer's cart, rejecting a missing or empty one.
func loadCheckoutCart(ctx context.Context, load func(context.Context, uuid.UUID) (*models.Cart, error), customerID uuid.UUID) (*models.Cart, []models.CartLine, error) {
	cart, err := load(ctx, customerID)
	if err != nil {
		if stdErrors.Is(err, sql.ErrNoRows) {
			return nil, nil, errors.BadRequestError("Cannot create order with empty cart")
		}
		return nil, nil, errors.DatabaseError("Failed to fetch cart").WithError(err)
	}

	if len(cart.Items) == 0 {
		return nil, nil, errors.BadRequestError("Cannot create order with empty cart")
	}

	// Sorted by key, so stock rows are always locked in the same order.
	lines := cart.Lines()
	sort.Slice(lines, func(i, j int) bool { return lines[i].Key() < lines[j].Key() })

	return cart, lines, nil
}

func pricingError(err error) *errors.AppError {
	switch {
	case stdErrors.Is(err, pricing.ErrNegativeTotal):
		return errors.PricingInvariantError("Order total would be negative").WithError(err)
	case stdErrors.Is(err, pricing.ErrAmountOutOfRange):
		return errors.PricingInvariantError("Order amount is out of range").WithError(err)
	default:
		return errors.InternalError("Failed to price order").WithError(err)
	}
}

// applyCode validates a trimmed coupon code against the items subtotal, after the
// buyer's coupon attempts pass the rate limit.
func (s *orderService) applyCode(ctx context.Context, customerID uuid.UUID, code string, lines []models.CartLine) (*models.CouponApplication, error) {
	itemsPrice, err := pricing.ItemsPrice(lines)
	if err != nil {
		return nil, pricingError(err)
	}

	if err := s.coupons.CheckRateLimit(ctx, customerID.String()); err != nil {
		return nil, err
	}

	return s.coupons.ValidateCoupon(ctx, code, itemsPrice)
}

func (s *orderService) quote(lines []models.CartLine, application *models.CouponApplication) (models.OrderPricing, error) {
	orderPricing, err := s.policy.Quote(lines, application)
	if err != nil {
		return models.OrderPricing{}, pricingError(err)
	}

	return orderPricing, nil
}

// QuoteOrder implements OrderService. A rejected coupon does not fail the quote: the
// breakdown is returned without a discount and the rejection is reported alongside it.
func (s *orderService) QuoteOrder(ctx context.Context, customerID uuid.UUID, req *models.QuoteRequest) (*models.QuoteResponse, error) {
	_, lines, err := loadCheckoutCart(ctx, s.carts.GetCartByCustomerID, customerID)
	if err != nil {
		return nil, err
	}

	resp := &models.QuoteResponse{}

	if code := strings.TrimSpace(req.CouponCode); code != "" {
		application, err := s.applyCode(ctx, customerID, code, lines)
		switch {
		case err == nil:
			resp.Coupon = application
		case pricing.IsCouponError(err):
			rejection := couponError(err)
			resp.CouponError = rejection.Code
			resp.CouponReason = rejection.Message
		default:
			return nil, err
		}
	}

	resp.Pricing, err = s.quote(lines, resp.Coupon)
	if err != nil {
		return nil, err
	}

	return resp, nil
}

// CreateOrder implements OrderService. The cart row is locked for the whole transaction, so a
// second submit of the same cart finds it empty. The order insert, the stock reservations, the
// coupon redemption and the cart reset commit together; losing the race for a coupon's last use
// rolls all of them back.
func (s *orderService) CreateOrder(ctx context.Context, customerID uuid.UUID, req *models.CreateOrderRequest) (*models.Order, error) {
	logger := middleware.LoggerFromContext(ctx)

	var (
		order       *models.Order
		application *models.CouponApplication
		redemption  *models.CouponRedemption
	)

	err := s.tx.ExecTx(ctx, func(repos *repository.TxRepositories) error {
		cart, lines, err := loadCheckoutCart(ctx, repos.Cart.GetCartForUpdate, customerID)
		if err != nil {
			return err
		}

		if code := strings.TrimSpace(req.CouponCode); code != "" {
			if application, err = s.applyCode(ctx, customerID, code, lines); err != nil {
				return err
			}
		}

		orderPricing, err := s.quote(lines, application)
		if err != nil {
			return err
		}

		order = s.newOrder(customerID, req, lines, orderPricing)

		if err := repos.Order.CreateOrder(ctx, order); err != nil {
			return errors.DatabaseError("Failed to create order").WithError(err)
		}

		for _, line := range lines {
			if err := repos.Product.ReserveStock(ctx, line.ProductID, line.Quantity); err != nil {
				if stdErrors.Is(err, repository.ErrInsufficientStock) {
					return errors.BadRequestError("Insufficient stock for product: " + line.ProductID.String()).WithError(err)
				}
				return errors.DatabaseError("Failed to reserve stock").WithError(err)
			}
		}

		if application != nil {
			if redemption, err = s.coupons.ApplyCouponWith(ctx, repos.Coupon, application.Code); err != nil {
				return err
			}
		}

		cart.Items = make(map[string]models.CartLine)
		cart.Total = 0
		cart.UpdatedAt = order.CreatedAt

		if err := repos.Cart.UpdateCart(ctx, cart); err != nil {
			return errors.DatabaseError("Failed to clear cart").WithError(err)
		}

		return nil
	})
	if err != nil {
		if appErr, ok := errors.IsAppError(err); ok {
			if application != nil && pricing.IsCouponError(appErr) {
				logger.Info("Checkout rejected coupon at redemption", slog.String("code", application.Code), slog.String("reason", appErr.Code))
			}
			return nil, appErr
		}
		return nil, errors.DatabaseError("Failed to create order").WithError(err)
	}

	logger.Info("Order created",
		slog.String("order_id", order.ID.String()),
		slog.Int64("total_price", order.Pricing.TotalPrice),
		slog.Int64("discount_amount", order.Pricing.DiscountAmount))

	metrics.ObserveOrderCreated(application != nil, order.Pricing.DiscountAmount)

	if redemption != nil {
		s.coupons.InvalidateCoupon(ctx, redemption.Code)
	}

	s.afterCommit(ctx, order, redemption, req.Email)

	return order, nil
}

func (s *orderService) newOrder(customerID uuid.UUID, req *models.CreateOrderRequest, lines []models.CartLine, orderPricing models.OrderPricing) *models.Order {
	now := s.now()
	address := req.ShippingAddress

	order := &models.Order{
		ID:              uuid.New(),
		CustomerID:      customerID,
		Status:          models.OrderStatusPending,
		Pricing:         orderPricing,
		PaymentStatus:   models.PaymentStatusUnpaid,
		ShippingAddress: &address,
		Items:           make([]models.OrderItem, 0, len(lines)),
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	for _, line := range lines {
		order.Items = append(order.Items, models.OrderItem{
			ID:        uuid.New(),
			OrderID:   order.ID,
			ProductID: line.ProductID,
			VariantID: line.VariantID,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
			CreatedAt: now,
		})
	}

	return order
}

// afterCommit runs the side effects of a committed order. None of them can undo it.
func (s *orderService) afterCommit(ctx context.Context, order *models.Order, redemption *models.CouponRedemption, email string) {
	logger := middleware.LoggerFromContext(ctx)

	if err := s.publisher.PublishOrderCreated(ctx, order); err != nil {
		logger.Warn("Failed to publish order event", slog.String("order_id", order.ID.String()), slog.String("error", err.Error()))
	}

	if redemption != nil {
		if err := s.publisher.PublishCouponRedeemed(ctx, redemption, order.ID); err != nil {
			logger.Warn("Failed to publish coupon event", slog.String("code", redemption.Code), slog.String("error", err.Error()))
		}
	}

	if email == "" || s.notifier == nil {
		return
	}

	if err := s.notifier.SendOrderConfirmation(ctx, order, email); err != nil {
		logger.Warn("Failed to send order confirmation", slog.String("order_id", order.ID.String()), slog.String("error", err.Error()))
	}
}

// GetOrderByID implements OrderService. Orders of other buyers are reported as not found.
func (s *orderService) GetOrderByID(ctx context.Context, id uuid.UUID, customerID uuid.UUID) (*models.Order, error) {
	order, err := s.getOrder(ctx, id)
	if err != nil {
		return nil, err
	}

	if order.CustomerID != customerID {
		return nil, errors.NotFoundError("Order not found")
	}

	return order, nil
}

func (s *orderService) getOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	order, err := s.orders.GetOrderByID(ctx, id)
	if err != nil {
		if stdErrors.Is(err, sql.ErrNoRows) {
			return nil, errors.NotFoundError("Order not found").WithError(err)
		}
		return nil, errors.DatabaseError("Failed to fetch order").WithError(err)
	}

	return order, nil
}

// ListOrdersByCustomer implements OrderService.
func (s *orderService) ListOrdersByCustomer(ctx context.Context, customerID uuid.UUID, page, size int) ([]*models.Order, int, error) {
	if page < 1 {
		page = 1
	}

	if size < 1 || size > maxOrderPageSize {
		size = defaultOrderPageSize
	}

	orders, total, err := s.orders.ListOrdersByCustomer(ctx, customerID, page, size)
	if err != nil {
		return nil, 0, errors.DatabaseError("Failed to fetch orders").WithError(err)
	}

	return orders, total, nil
}

// UpdateOrderStatus implements OrderService.
func (s *orderService) UpdateOrderStatus(ctx context.Context, id uuid.UUID, status models.OrderStatus) (*models.Order, error) {
	order, err := s.getOrder(ctx, id)
	if err != nil {
		return nil, err
	}

	previous := order.Status
	if previous == status {
		return order, nil
	}

	if err := s.orders.UpdateOrderStatus(ctx, id, status); err != nil {
		if stdErrors.Is(err, sql.ErrNoRows) {
			return nil, errors.NotFoundError("Order not found").WithError(err)
		}
		return nil, errors.DatabaseError("Failed to update order status").WithError(err)
	}

	order.Status = status
	order.UpdatedAt = s.now()

	if err := s.publisher.PublishOrderStatusChanged(ctx, order, previous); err != nil {
		middleware.LoggerFromContext(ctx).Warn("Failed to publish status event", slog.String("order_id", id.String()), slog.String("error", err.Error()))
	}

	return order, nil
}
