package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aaravmahajanofficial/storefront-checkout/internal/models"
	"github.com/aaravmahajanofficial/storefront-checkout/internal/utils"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

// ErrStalePaymentStatus is returned when the order's payment status does not allow the
// requested transition, for example a late success event for a refunded order.
var ErrStalePaymentStatus = errors.New("stale payment status transition")

type OrderRepository interface {
	CreateOrder(ctx context.Context, order *models.Order) error
	GetOrderByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	ListOrdersByCustomer(ctx context.Context, customerID uuid.UUID, page, size int) ([]*models.Order, int, error)
	UpdateOrderStatus(ctx context.Context, id uuid.UUID, status models.OrderStatus) error
	// UpdatePayment and UpdatePaymentStatusByIntent only move the payment status along
	// models.PaymentStatus.PaymentSources; otherwise they return ErrStalePaymentStatus.
	UpdatePayment(ctx context.Context, id uuid.UUID, status models.PaymentStatus, paymentIntentID string) error
	UpdatePaymentStatusByIntent(ctx context.Context, paymentIntentID string, status models.PaymentStatus) error
}

type orderRepository struct {
	DB DBTX
}

func NewOrderRepository(db DBTX) OrderRepository {
	return &orderRepository{DB: db}
}

const orderColumns = `id, customer_id, status, items_price, shipping_price, tax_price, discount_amount, total_price,
		coupon_code, payment_status, payment_intent_id, shipping_address, created_at, updated_at`

const orderItemsQuery = `
	SELECT id, product_id, variant_id, quantity, unit_price, created_at
	FROM order_items
	WHERE order_id = $1
	ORDER BY created_at, id
`

func nullableCode(code string) sql.NullString {
	return sql.NullString{String: code, Valid: code != ""}
}

func scanOrder(row rowScanner) (*models.Order, error) {
	order := &models.Order{}

	var (
		couponCode  sql.NullString
		addressJSON []byte
	)

	err := row.Scan(&order.ID, &order.CustomerID, &order.Status,
		&order.Pricing.ItemsPrice, &order.Pricing.ShippingPrice, &order.Pricing.TaxPrice, &order.Pricing.DiscountAmount, &order.Pricing.TotalPrice,
		&couponCode, &order.PaymentStatus, &order.PaymentIntentID, &addressJSON, &order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		return nil, err
	}

	order.Pricing.CouponCode = couponCode.String

	if len(addressJSON) > 0 {
		if err := json.Unmarshal(addressJSON, &order.ShippingAddress); err != nil {
			return nil, fmt.Errorf("failed to unmarshal shipping address: %w", err)
		}
	}

	return order, nil
}

// CreateOrder inserts the order header and its items. Run it inside ExecTx so a
// failed item insert does not leave a partial order behind.
func (r *orderRepository) CreateOrder(ctx context.Context, order *models.Order) error {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	addressJSON, err := json.Marshal(order.ShippingAddress)
	if err != nil {
		return fmt.Errorf("failed to marshal shipping address: %w", err)
	}

	query := `
		INSERT INTO orders (id, customer_id, status, items_price, shipping_price, tax_price, discount_amount, total_price,
			coupon_code, payment_status, payment_intent_id, shipping_address, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NOW(), NOW())
		RETURNING created_at, updated_at
	`

	p := order.Pricing

	err = r.DB.QueryRowContext(dbCtx, query, order.ID, order.CustomerID, order.Status,
		p.ItemsPrice, p.ShippingPrice, p.TaxPrice, p.DiscountAmount, p.TotalPrice,
		nullableCode(p.CouponCode), order.PaymentStatus, order.PaymentIntentID, addressJSON).Scan(&order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}

	itemQuery := `
		INSERT INTO order_items (id, order_id, product_id, variant_id, quantity, unit_price, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
	`

	for i := range order.Items {
		item := &order.Items[i]
		item.OrderID = order.ID

		if _, err := r.DB.ExecContext(dbCtx, itemQuery, item.ID, order.ID, item.ProductID, item.VariantID, item.Quantity, item.UnitPrice); err != nil {
			return fmt.Errorf("failed to insert an order item: %w", err)
		}
	}

	return nil
}

func (r *orderRepository) getItems(ctx context.Context, orderID uuid.UUID) ([]models.OrderItem, error) {
	rows, err := r.DB.QueryContext(ctx, orderItemsQuery, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to get the order items: %w", err)
	}

	defer rows.Close()

	items := []models.OrderItem{}

	for rows.Next() {
		var item models.OrderItem

		if err := rows.Scan(&item.ID, &item.ProductID, &item.VariantID, &item.Quantity, &item.UnitPrice, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}

		item.OrderID = orderID
		items = append(items, item)
	}

	return items, rows.Err()
}

// GetOrderByID returns sql.ErrNoRows when the order does not exist.
func (r *orderRepository) GetOrderByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	order, err := scanOrder(r.DB.QueryRowContext(dbCtx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get the order: %w", err)
	}

	order.Items, err = r.getItems(dbCtx, id)
	if err != nil {
		return nil, err
	}

	return order, nil
}

func (r *orderRepository) ListOrdersByCustomer(ctx context.Context, customerID uuid.UUID, page, size int) ([]*models.Order, int, error) {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	var total int

	if err := r.DB.QueryRowContext(dbCtx, `SELECT COUNT(*) FROM orders WHERE customer_id = $1`, customerID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count orders: %w", err)
	}

	offset := (page - 1) * size

	query := `SELECT ` + orderColumns + ` FROM orders WHERE customer_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`

	rows, err := r.DB.QueryContext(dbCtx, query, customerID, size, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list orders: %w", err)
	}

	orders := make([]*models.Order, 0, size)

	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			rows.Close()
			return nil, 0, fmt.Errorf("failed to scan the orders: %w", err)
		}
		orders = append(orders, order)
	}

	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, 0, err
	}

	// The items query must not run while the header rows are still open on a tx.
	rows.Close()

	for _, order := range orders {
		order.Items, err = r.getItems(dbCtx, order.ID)
		if err != nil {
			return nil, 0, err
		}
	}

	return orders, total, nil
}

func (r *orderRepository) UpdateOrderStatus(ctx context.Context, id uuid.UUID, status models.OrderStatus) error {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	result, err := r.DB.ExecContext(dbCtx, `UPDATE orders SET status = $1, updated_at = NOW() WHERE id = $2`, status, id)
	if err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}

	return expectOneRow(result)
}

// UpdatePayment records the payment intent created for an order.
func (r *orderRepository) UpdatePayment(ctx context.Context, id uuid.UUID, status models.PaymentStatus, paymentIntentID string) error {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	query := `
		UPDATE orders SET payment_status = $1, payment_intent_id = $2, updated_at = NOW()
		WHERE id = $3 AND payment_status = ANY($4)
	`

	result, err := r.DB.ExecContext(dbCtx, query, status, paymentIntentID, id, sourcesArg(status))
	if err != nil {
		return fmt.Errorf("failed to update payment status: %w", err)
	}

	if err := expectOneRow(result); !errors.Is(err, sql.ErrNoRows) {
		return err
	}

	return r.staleOrMissing(dbCtx, `SELECT payment_status FROM orders WHERE id = $1`, id)
}

func (r *orderRepository) UpdatePaymentStatusByIntent(ctx context.Context, paymentIntentID string, status models.PaymentStatus) error {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	query := `
		UPDATE orders SET payment_status = $1, updated_at = NOW()
		WHERE payment_intent_id = $2 AND payment_status = ANY($3)
	`

	result, err := r.DB.ExecContext(dbCtx, query, status, paymentIntentID, sourcesArg(status))
	if err != nil {
		return fmt.Errorf("failed to update payment status: %w", err)
	}

	if err := expectOneRow(result); !errors.Is(err, sql.ErrNoRows) {
		return err
	}

	return r.staleOrMissing(dbCtx, `SELECT payment_status FROM orders WHERE payment_intent_id = $1`, paymentIntentID)
}

func sourcesArg(status models.PaymentStatus) any {
	sources := status.PaymentSources()

	values := make([]string, 0, len(sources))
	for _, source := range sources {
		values = append(values, string(source))
	}

	return pq.Array(values)
}

// staleOrMissing runs after a guarded update matched no row and tells a missing order
// (sql.ErrNoRows) apart from one whose status forbids the transition.
func (r *orderRepository) staleOrMissing(ctx context.Context, query string, arg any) error {
	var current models.PaymentStatus

	if err := r.DB.QueryRowContext(ctx, query, arg).Scan(&current); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return err
		}
		return fmt.Errorf("failed to read payment status: %w", err)
	}

	return fmt.Errorf("%w: payment is %s", ErrStalePaymentStatus, current)
}

func expectOneRow(result sql.Result) error {
	updatedRows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get updated rows: %w", err)
	}

	if updatedRows == 0 {
		return sql.ErrNoRows
	}

	return nil
}
