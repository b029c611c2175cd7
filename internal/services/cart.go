package service

import (
	"context"
	"database/sql"
	stdErrors "errors"
	"fmt"

	"github.com/aaravmahajanofficial/storefront-checkout/internal/errors"
	"github.com/aaravmahajanofficial/storefront-checkout/internal/models"
	"github.com/aaravmahajanofficial/storefront-checkout/internal/pricing"
	repository "github.com/aaravmahajanofficial/storefront-checkout/internal/repositories"
	"github.com/google/uuid"
)

type CartService interface {
	GetCart(ctx context.Context, customerID uuid.UUID) (*models.Cart, error)
	AddItem(ctx context.Context, customerID uuid.UUID, req *models.AddItemRequest) (*models.Cart, error)
	UpdateQuantity(ctx context.Context, customerID uuid.UUID, req *models.UpdateQuantityRequest) (*models.Cart, error)
	RemoveItem(ctx context.Context, customerID uuid.UUID, productID uuid.UUID, variantID string) (*models.Cart, error)
	Clear(ctx context.Context, customerID uuid.UUID) error
}

type cartService struct {
	repo     repository.CartRepository
	products repository.ProductRepository
	now      Clock
}

func NewCartService(repo repository.CartRepository, products repository.ProductRepository) CartService {
	return &cartService{repo: repo, products: products, now: systemClock}
}

func (s *cartService) newCart(customerID uuid.UUID) *models.Cart {
	now := s.now()

	return &models.Cart{
		ID:        uuid.New(),
		UserID:    customerID,
		Items:     make(map[string]models.CartLine),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// GetCart implements CartService. A buyer without a stored cart gets an empty, unsaved one.
func (s *cartService) GetCart(ctx context.Context, customerID uuid.UUID) (*models.Cart, error) {
	cart, err := s.repo.GetCartByCustomerID(ctx, customerID)
	if err != nil {
		if stdErrors.Is(err, sql.ErrNoRows) {
			return s.newCart(customerID), nil
		}
		return nil, errors.DatabaseError("Failed to fetch cart").WithError(err)
	}

	return cart, nil
}

// AddItem implements CartService. The cart is created on the first add; an existing line has its quantity increased.
// The unit price is taken from the catalog, never from the request.
func (s *cartService) AddItem(ctx context.Context, customerID uuid.UUID, req *models.AddItemRequest) (*models.Cart, error) {
	product, err := s.product(ctx, req.ProductID)
	if err != nil {
		return nil, err
	}

	line := models.CartLine{
		ProductID: req.ProductID,
		VariantID: req.VariantID,
		UnitPrice: product.Price,
		Quantity:  req.Quantity,
	}

	cart, err := s.repo.GetCartByCustomerID(ctx, customerID)
	if err != nil {
		if !stdErrors.Is(err, sql.ErrNoRows) {
			return nil, errors.DatabaseError("Failed to fetch cart").WithError(err)
		}

		cart = s.newCart(customerID)
		if err := mergeLine(cart, line, product); err != nil {
			return nil, err
		}
		if err := setTotal(cart); err != nil {
			return nil, err
		}

		err = s.repo.CreateCart(ctx, cart)
		if err == nil {
			return cart, nil
		}
		if !stdErrors.Is(err, repository.ErrDuplicate) {
			return nil, errors.DatabaseError("Failed to create cart").WithError(err)
		}

		// A concurrent first add created the cart; merge into that one.
		if cart, err = s.load(ctx, customerID); err != nil {
			return nil, err
		}
	}

	if err := mergeLine(cart, line, product); err != nil {
		return nil, err
	}

	return s.save(ctx, cart)
}

// product returns a catalog entry that can still be bought.
func (s *cartService) product(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	product, err := s.products.GetProductByID(ctx, id)
	if err != nil {
		if stdErrors.Is(err, sql.ErrNoRows) {
			return nil, errors.NotFoundError("Product not found").WithError(err)
		}
		return nil, errors.DatabaseError("Failed to fetch product").WithError(err)
	}

	if !product.Purchasable() {
		return nil, errors.BadRequestError("Product is not available: " + product.Name)
	}

	return product, nil
}

// mergeLine adds line to the cart, summing quantities with an existing line for the same key.
// The merged line carries the current catalog price.
func mergeLine(cart *models.Cart, line models.CartLine, product *models.Product) error {
	if existing, ok := cart.Items[line.Key()]; ok {
		line.Quantity += existing.Quantity
	}

	if err := checkQuantity(line.Quantity, product); err != nil {
		return err
	}

	cart.Items[line.Key()] = line
	return nil
}

func checkQuantity(quantity int, product *models.Product) error {
	if quantity > models.MaxLineQuantity {
		return errors.BadRequestError(fmt.Sprintf("Quantity exceeds the limit of %d per line", models.MaxLineQuantity))
	}

	if quantity > product.StockQuantity {
		return errors.BadRequestError("Insufficient stock for product: " + product.Name)
	}

	return nil
}

// UpdateQuantity implements CartService. A quantity of zero removes the line.
func (s *cartService) UpdateQuantity(ctx context.Context, customerID uuid.UUID, req *models.UpdateQuantityRequest) (*models.Cart, error) {
	cart, err := s.load(ctx, customerID)
	if err != nil {
		return nil, err
	}

	key := models.CartLine{ProductID: req.ProductID, VariantID: req.VariantID}.Key()

	line, exists := cart.Items[key]
	if !exists {
		return nil, errors.NotFoundError("Item not found in the cart")
	}

	if req.Quantity == 0 {
		delete(cart.Items, key)
		return s.save(ctx, cart)
	}

	product, err := s.product(ctx, req.ProductID)
	if err != nil {
		return nil, err
	}

	if err := checkQuantity(req.Quantity, product); err != nil {
		return nil, err
	}

	line.Quantity = req.Quantity
	line.UnitPrice = product.Price
	cart.Items[key] = line

	return s.save(ctx, cart)
}

// RemoveItem implements CartService.
func (s *cartService) RemoveItem(ctx context.Context, customerID uuid.UUID, productID uuid.UUID, variantID string) (*models.Cart, error) {
	cart, err := s.load(ctx, customerID)
	if err != nil {
		return nil, err
	}

	key := models.CartLine{ProductID: productID, VariantID: variantID}.Key()

	if _, exists := cart.Items[key]; !exists {
		return nil, errors.NotFoundError("Item not found in the cart")
	}

	delete(cart.Items, key)

	return s.save(ctx, cart)
}

// Clear implements CartService. Clearing a cart that was never stored is a no-op.
func (s *cartService) Clear(ctx context.Context, customerID uuid.UUID) error {
	cart, err := s.repo.GetCartByCustomerID(ctx, customerID)
	if err != nil {
		if stdErrors.Is(err, sql.ErrNoRows) {
			return nil
		}
		return errors.DatabaseError("Failed to fetch cart").WithError(err)
	}

	cart.Items = make(map[string]models.CartLine)

	_, err = s.save(ctx, cart)
	return err
}

func (s *cartService) load(ctx context.Context, customerID uuid.UUID) (*models.Cart, error) {
	cart, err := s.repo.GetCartByCustomerID(ctx, customerID)
	if err != nil {
		if stdErrors.Is(err, sql.ErrNoRows) {
			return nil, errors.NotFoundError("Cart not found").WithError(err)
		}
		return nil, errors.DatabaseError("Failed to fetch cart").WithError(err)
	}

	return cart, nil
}

func setTotal(cart *models.Cart) error {
	total, err := pricing.ItemsPrice(cart.Lines())
	if err != nil {
		return errors.BadRequestError("Cart total is out of range").WithError(err)
	}

	cart.Total = total
	return nil
}

func (s *cartService) save(ctx context.Context, cart *models.Cart) (*models.Cart, error) {
	if err := setTotal(cart); err != nil {
		return nil, err
	}
	cart.UpdatedAt = s.now()

	if err := s.repo.UpdateCart(ctx, cart); err != nil {
		return nil, errors.DatabaseError("Failed to update cart").WithError(err)
	}

	return cart, nil
}
