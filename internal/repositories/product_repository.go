package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/aaravmahajanofficial/storefront-checkout/internal/models"
	"github.com/aaravmahajanofficial/storefront-checkout/internal/utils"
	"github.com/google/uuid"
)

// ErrInsufficientStock is returned by ReserveStock when fewer units are left than requested.
var ErrInsufficientStock = errors.New("insufficient stock")

// ProductRepository reads prices and stock from the catalog table. Catalog maintenance
// happens outside this service; only stock is written here, at checkout.
type ProductRepository interface {
	// GetProductByID returns sql.ErrNoRows for an unknown product.
	GetProductByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	ReserveStock(ctx context.Context, id uuid.UUID, quantity int) error
}

type productRepository struct {
	DB DBTX
}

func NewProductRepo(db DBTX) ProductRepository {
	return &productRepository{DB: db}
}

func (r *productRepository) GetProductByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	query := `
		SELECT id, name, price, stock_quantity, status, updated_at
		FROM products
		WHERE id = $1
	`

	product := &models.Product{}

	err := r.DB.QueryRowContext(dbCtx, query, id).Scan(&product.ID, &product.Name, &product.Price, &product.StockQuantity, &product.Status, &product.UpdatedAt)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, err
	case err != nil:
		return nil, fmt.Errorf("querying product: %w", err)
	}

	return product, nil
}

// ReserveStock decrements stock only while enough units remain, so concurrent checkouts
// cannot drive it below zero.
func (r *productRepository) ReserveStock(ctx context.Context, id uuid.UUID, quantity int) error {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	query := `
		UPDATE products
		SET stock_quantity = stock_quantity - $1, updated_at = NOW()
		WHERE id = $2 AND status = 'active' AND stock_quantity >= $1
	`

	result, err := r.DB.ExecContext(dbCtx, query, quantity, id)
	if err != nil {
		return fmt.Errorf("reserving stock: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("reading affected rows: %w", err)
	}
	if n == 0 {
		return ErrInsufficientStock
	}

	return nil
}
