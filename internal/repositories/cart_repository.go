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
)

// CartRepository stores one cart per buyer. Lines are kept as a JSONB map keyed by CartLine.Key.
type CartRepository interface {
	// CreateCart returns ErrDuplicate when the buyer already has a cart.
	CreateCart(ctx context.Context, cart *models.Cart) error
	// GetCartByCustomerID returns sql.ErrNoRows when the buyer has no cart yet.
	GetCartByCustomerID(ctx context.Context, customerID uuid.UUID) (*models.Cart, error)
	// GetCartForUpdate is GetCartByCustomerID with a row lock held until the transaction ends.
	GetCartForUpdate(ctx context.Context, customerID uuid.UUID) (*models.Cart, error)
	UpdateCart(ctx context.Context, cart *models.Cart) error
}

type cartRepository struct {
	DB DBTX
}

func NewCartRepo(db DBTX) CartRepository {
	return &cartRepository{DB: db}
}

func (r *cartRepository) CreateCart(ctx context.Context, cart *models.Cart) error {
	lines, err := marshalLines(cart.Items)
	if err != nil {
		return err
	}

	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	query := `
		INSERT INTO carts (id, user_id, items, total, created_at, updated_at)
		VALUES($1, $2, $3, $4, NOW(), NOW())
		RETURNING id, created_at, updated_at
	`

	err = r.DB.QueryRowContext(dbCtx, query, cart.ID, cart.UserID, lines, cart.Total).Scan(&cart.ID, &cart.CreatedAt, &cart.UpdatedAt)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}

	return err
}

func (r *cartRepository) GetCartByCustomerID(ctx context.Context, customerID uuid.UUID) (*models.Cart, error) {
	return r.getCart(ctx, customerID, false)
}

func (r *cartRepository) GetCartForUpdate(ctx context.Context, customerID uuid.UUID) (*models.Cart, error) {
	return r.getCart(ctx, customerID, true)
}

func (r *cartRepository) getCart(ctx context.Context, customerID uuid.UUID, lock bool) (*models.Cart, error) {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	query := `
		SELECT id, user_id, items, total, created_at, updated_at
		FROM carts
		WHERE user_id = $1
	`
	if lock {
		query += "FOR UPDATE"
	}

	var (
		cart  models.Cart
		lines []byte
	)

	err := r.DB.QueryRowContext(dbCtx, query, customerID).Scan(&cart.ID, &cart.UserID, &lines, &cart.Total, &cart.CreatedAt, &cart.UpdatedAt)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, err
	case err != nil:
		return nil, fmt.Errorf("querying cart: %w", err)
	}

	if cart.Items, err = unmarshalLines(lines); err != nil {
		return nil, err
	}

	return &cart, nil
}

// UpdateCart overwrites the lines and total; sql.ErrNoRows means the cart id is unknown.
func (r *cartRepository) UpdateCart(ctx context.Context, cart *models.Cart) error {
	lines, err := marshalLines(cart.Items)
	if err != nil {
		return err
	}

	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	query := `
		UPDATE carts
		SET items = $1, total = $2, updated_at = $3
		WHERE id = $4
	`

	result, err := r.DB.ExecContext(dbCtx, query, lines, cart.Total, cart.UpdatedAt, cart.ID)
	if err != nil {
		return fmt.Errorf("updating cart: %w", err)
	}

	if n, err := result.RowsAffected(); err != nil {
		return fmt.Errorf("reading affected rows: %w", err)
	} else if n == 0 {
		return sql.ErrNoRows
	}

	return nil
}

func marshalLines(items map[string]models.CartLine) ([]byte, error) {
	b, err := json.Marshal(items)
	if err != nil {
		return nil, fmt.Errorf("encoding cart lines: %w", err)
	}
	return b, nil
}

// unmarshalLines never returns a nil map, so callers can add lines directly.
func unmarshalLines(b []byte) (map[string]models.CartLine, error) {
	items := make(map[string]models.CartLine)
	if err := json.Unmarshal(b, &items); err != nil {
		return nil, fmt.Errorf("decoding cart lines: %w", err)
	}
	if items == nil {
		items = make(map[string]models.CartLine)
	}
	return items, nil
}
