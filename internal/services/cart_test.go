package service_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	appErrors "github.com/aaravmahajanofficial/storefront-checkout/internal/errors"
	"github.com/aaravmahajanofficial/storefront-checkout/internal/models"
	"github.com/aaravmahajanofficial/storefront-checkout/internal/pricing"
	repository "github.com/aaravmahajanofficial/storefront-checkout/internal/repositories"
	service "github.com/aaravmahajanofficial/storefront-checkout/internal/services"
	"github.com/aaravmahajanofficial/storefront-checkout/internal/services/mocks"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func setupCartTest(t *testing.T) (*mocks.CartRepository, *mocks.ProductRepository, service.CartService) {
	t.Helper()

	repo := new(mocks.CartRepository)
	products := new(mocks.ProductRepository)
	t.Cleanup(func() {
		repo.AssertExpectations(t)
		products.AssertExpectations(t)
	})

	return repo, products, service.NewCartService(repo, products)
}

func cartWith(customerID uuid.UUID, lines ...models.CartLine) *models.Cart {
	cart := &models.Cart{ID: uuid.New(), UserID: customerID, Items: make(map[string]models.CartLine)}

	for _, line := range lines {
		cart.Items[line.Key()] = line
		cart.Total += line.UnitPrice * int64(line.Quantity)
	}

	return cart
}

func catalogProduct(id uuid.UUID, price int64, stock int) *models.Product {
	return &models.Product{ID: id, Name: "Linen shirt", Price: price, StockQuantity: stock, Status: models.ProductStatusActive}
}

func TestGetCart(t *testing.T) {
	ctx := context.Background()
	customerID := uuid.New()

	t.Run("Success - Cart Found", func(t *testing.T) {
		repo, _, cartService := setupCartTest(t)
		existing := cartWith(customerID, models.CartLine{ProductID: uuid.New(), UnitPrice: 100000, Quantity: 1})

		repo.On("GetCartByCustomerID", ctx, customerID).Return(existing, nil).Once()

		cart, err := cartService.GetCart(ctx, customerID)

		require.NoError(t, err)
		assert.Equal(t, existing, cart)
	})

	t.Run("No stored cart yields an empty one", func(t *testing.T) {
		repo, _, cartService := setupCartTest(t)

		repo.On("GetCartByCustomerID", ctx, customerID).Return(nil, sql.ErrNoRows).Once()

		cart, err := cartService.GetCart(ctx, customerID)

		require.NoError(t, err)
		assert.Equal(t, customerID, cart.UserID)
		assert.Empty(t, cart.Items)
		assert.Zero(t, cart.Total)
	})

	t.Run("Failure - Database Error", func(t *testing.T) {
		repo, _, cartService := setupCartTest(t)
		dbErr := errors.New("database connection failed")

		repo.On("GetCartByCustomerID", ctx, customerID).Return(nil, dbErr).Once()

		cart, err := cartService.GetCart(ctx, customerID)

		assert.Nil(t, cart)
		appErr, ok := appErrors.IsAppError(err)
		require.True(t, ok)
		assert.Equal(t, appErrors.ErrCodeDatabaseError, appErr.Code)
		assert.ErrorIs(t, err, dbErr)
	})
}

func TestAddItem(t *testing.T) {
	ctx := context.Background()
	customerID := uuid.New()
	productID := uuid.New()

	t.Run("Creates the cart on first add at the catalog price", func(t *testing.T) {
		repo, products, cartService := setupCartTest(t)

		products.On("GetProductByID", ctx, productID).Return(catalogProduct(productID, 300000, 10), nil).Once()
		repo.On("GetCartByCustomerID", ctx, customerID).Return(nil, sql.ErrNoRows).Once()
		repo.On("CreateCart", ctx, mock.MatchedBy(func(c *models.Cart) bool {
			return c.UserID == customerID && len(c.Items) == 1 && c.Total == 600000
		})).Return(nil).Once()

		cart, err := cartService.AddItem(ctx, customerID, &models.AddItemRequest{ProductID: productID, Quantity: 2})

		require.NoError(t, err)
		assert.Equal(t, int64(300000), cart.Items[productID.String()].UnitPrice)
		assert.Equal(t, int64(600000), cart.Total)
	})

	t.Run("Merges quantity and refreshes the price", func(t *testing.T) {
		repo, products, cartService := setupCartTest(t)
		existing := cartWith(customerID, models.CartLine{ProductID: productID, VariantID: "red", UnitPrice: 280000, Quantity: 1})

		products.On("GetProductByID", ctx, productID).Return(catalogProduct(productID, 300000, 10), nil).Once()
		repo.On("GetCartByCustomerID", ctx, customerID).Return(existing, nil).Once()
		repo.On("UpdateCart", ctx, existing).Return(nil).Once()

		cart, err := cartService.AddItem(ctx, customerID, &models.AddItemRequest{ProductID: productID, VariantID: "red", Quantity: 2})

		require.NoError(t, err)
		require.Len(t, cart.Items, 1)
		assert.Equal(t, 3, cart.Items[productID.String()+":red"].Quantity)
		assert.Equal(t, int64(900000), cart.Total)
	})

	t.Run("Another variant is its own line", func(t *testing.T) {
		repo, products, cartService := setupCartTest(t)
		existing := cartWith(customerID, models.CartLine{ProductID: productID, VariantID: "red", UnitPrice: 300000, Quantity: 1})

		products.On("GetProductByID", ctx, productID).Return(catalogProduct(productID, 320000, 10), nil).Once()
		repo.On("GetCartByCustomerID", ctx, customerID).Return(existing, nil).Once()
		repo.On("UpdateCart", ctx, existing).Return(nil).Once()

		cart, err := cartService.AddItem(ctx, customerID, &models.AddItemRequest{ProductID: productID, VariantID: "blue", Quantity: 1})

		require.NoError(t, err)
		assert.Len(t, cart.Items, 2)
		assert.Equal(t, int64(620000), cart.Total)
	})

	t.Run("Concurrent first add merges into the winner's cart", func(t *testing.T) {
		repo, products, cartService := setupCartTest(t)
		winner := cartWith(customerID, models.CartLine{ProductID: productID, UnitPrice: 300000, Quantity: 1})

		products.On("GetProductByID", ctx, productID).Return(catalogProduct(productID, 300000, 10), nil).Once()
		repo.On("GetCartByCustomerID", ctx, customerID).Return(nil, sql.ErrNoRows).Once()
		repo.On("CreateCart", ctx, mock.AnythingOfType("*models.Cart")).Return(repository.ErrDuplicate).Once()
		repo.On("GetCartByCustomerID", ctx, customerID).Return(winner, nil).Once()
		repo.On("UpdateCart", ctx, winner).Return(nil).Once()

		cart, err := cartService.AddItem(ctx, customerID, &models.AddItemRequest{ProductID: productID, Quantity: 2})

		require.NoError(t, err)
		assert.Equal(t, winner.ID, cart.ID)
		assert.Equal(t, 3, cart.Items[productID.String()].Quantity)
		assert.Equal(t, int64(900000), cart.Total)
	})

	t.Run("Unknown product", func(t *testing.T) {
		_, products, cartService := setupCartTest(t)

		products.On("GetProductByID", ctx, productID).Return(nil, sql.ErrNoRows).Once()

		_, err := cartService.AddItem(ctx, customerID, &models.AddItemRequest{ProductID: productID, Quantity: 1})

		appErr, ok := appErrors.IsAppError(err)
		require.True(t, ok)
		assert.Equal(t, appErrors.ErrCodeNotFound, appErr.Code)
		assert.Equal(t, "Product not found", appErr.Message)
	})

	t.Run("Discontinued product", func(t *testing.T) {
		_, products, cartService := setupCartTest(t)
		product := catalogProduct(productID, 300000, 10)
		product.Status = models.ProductStatusDiscontinued

		products.On("GetProductByID", ctx, productID).Return(product, nil).Once()

		_, err := cartService.AddItem(ctx, customerID, &models.AddItemRequest{ProductID: productID, Quantity: 1})

		appErr, ok := appErrors.IsAppError(err)
		require.True(t, ok)
		assert.Equal(t, appErrors.ErrCodeBadRequest, appErr.Code)
	})

	t.Run("Merged quantity above stock", func(t *testing.T) {
		repo, products, cartService := setupCartTest(t)
		existing := cartWith(customerID, models.CartLine{ProductID: productID, UnitPrice: 300000, Quantity: 4})

		products.On("GetProductByID", ctx, productID).Return(catalogProduct(productID, 300000, 5), nil).Once()
		repo.On("GetCartByCustomerID", ctx, customerID).Return(existing, nil).Once()

		_, err := cartService.AddItem(ctx, customerID, &models.AddItemRequest{ProductID: productID, Quantity: 2})

		appErr, ok := appErrors.IsAppError(err)
		require.True(t, ok)
		assert.Equal(t, "Insufficient stock for product: Linen shirt", appErr.Message)
		repo.AssertNotCalled(t, "UpdateCart", mock.Anything, mock.Anything)
	})

	t.Run("Merged quantity above the per-line limit", func(t *testing.T) {
		repo, products, cartService := setupCartTest(t)
		existing := cartWith(customerID, models.CartLine{ProductID: productID, UnitPrice: 1000, Quantity: models.MaxLineQuantity})

		products.On("GetProductByID", ctx, productID).Return(catalogProduct(productID, 1000, 1<<20), nil).Once()
		repo.On("GetCartByCustomerID", ctx, customerID).Return(existing, nil).Once()

		_, err := cartService.AddItem(ctx, customerID, &models.AddItemRequest{ProductID: productID, Quantity: 1})

		appErr, ok := appErrors.IsAppError(err)
		require.True(t, ok)
		assert.Equal(t, appErrors.ErrCodeBadRequest, appErr.Code)
		assert.Equal(t, models.MaxLineQuantity, existing.Items[productID.String()].Quantity)
	})

	t.Run("Cart total out of range is rejected", func(t *testing.T) {
		repo, products, cartService := setupCartTest(t)
		existing := cartWith(customerID, models.CartLine{ProductID: uuid.New(), UnitPrice: pricing.MaxAmount, Quantity: 1})

		products.On("GetProductByID", ctx, productID).Return(catalogProduct(productID, 1000, 10), nil).Once()
		repo.On("GetCartByCustomerID", ctx, customerID).Return(existing, nil).Once()

		_, err := cartService.AddItem(ctx, customerID, &models.AddItemRequest{ProductID: productID, Quantity: 1})

		appErr, ok := appErrors.IsAppError(err)
		require.True(t, ok)
		assert.Equal(t, "Cart total is out of range", appErr.Message)
		assert.ErrorIs(t, err, pricing.ErrAmountOutOfRange)
	})

	t.Run("Failure - Update Error", func(t *testing.T) {
		repo, products, cartService := setupCartTest(t)
		existing := cartWith(customerID)

		products.On("GetProductByID", ctx, productID).Return(catalogProduct(productID, 1000, 10), nil).Once()
		repo.On("GetCartByCustomerID", ctx, customerID).Return(existing, nil).Once()
		repo.On("UpdateCart", ctx, existing).Return(errors.New("write failed")).Once()

		_, err := cartService.AddItem(ctx, customerID, &models.AddItemRequest{ProductID: productID, Quantity: 1})

		appErr, ok := appErrors.IsAppError(err)
		require.True(t, ok)
		assert.Equal(t, "Failed to update cart", appErr.Message)
	})
}

func TestUpdateQuantity(t *testing.T) {
	ctx := context.Background()
	customerID := uuid.New()
	productID := uuid.New()

	t.Run("Sets the quantity", func(t *testing.T) {
		repo, products, cartService := setupCartTest(t)
		existing := cartWith(customerID, models.CartLine{ProductID: productID, UnitPrice: 250000, Quantity: 1})

		repo.On("GetCartByCustomerID", ctx, customerID).Return(existing, nil).Once()
		products.On("GetProductByID", ctx, productID).Return(catalogProduct(productID, 250000, 10), nil).Once()
		repo.On("UpdateCart", ctx, existing).Return(nil).Once()

		cart, err := cartService.UpdateQuantity(ctx, customerID, &models.UpdateQuantityRequest{ProductID: productID, Quantity: 4})

		require.NoError(t, err)
		assert.Equal(t, int64(1000000), cart.Total)
	})

	t.Run("Quantity above stock", func(t *testing.T) {
		repo, products, cartService := setupCartTest(t)
		existing := cartWith(customerID, models.CartLine{ProductID: productID, UnitPrice: 250000, Quantity: 1})

		repo.On("GetCartByCustomerID", ctx, customerID).Return(existing, nil).Once()
		products.On("GetProductByID", ctx, productID).Return(catalogProduct(productID, 250000, 3), nil).Once()

		_, err := cartService.UpdateQuantity(ctx, customerID, &models.UpdateQuantityRequest{ProductID: productID, Quantity: 4})

		appErr, ok := appErrors.IsAppError(err)
		require.True(t, ok)
		assert.Equal(t, appErrors.ErrCodeBadRequest, appErr.Code)
		assert.Equal(t, 1, existing.Items[productID.String()].Quantity)
	})

	t.Run("Zero removes the line", func(t *testing.T) {
		repo, _, cartService := setupCartTest(t)
		existing := cartWith(customerID, models.CartLine{ProductID: productID, UnitPrice: 250000, Quantity: 1})

		repo.On("GetCartByCustomerID", ctx, customerID).Return(existing, nil).Once()
		repo.On("UpdateCart", ctx, existing).Return(nil).Once()

		cart, err := cartService.UpdateQuantity(ctx, customerID, &models.UpdateQuantityRequest{ProductID: productID, Quantity: 0})

		require.NoError(t, err)
		assert.Empty(t, cart.Items)
		assert.Zero(t, cart.Total)
	})

	t.Run("Item not in cart", func(t *testing.T) {
		repo, _, cartService := setupCartTest(t)

		repo.On("GetCartByCustomerID", ctx, customerID).Return(cartWith(customerID), nil).Once()

		_, err := cartService.UpdateQuantity(ctx, customerID, &models.UpdateQuantityRequest{ProductID: productID, Quantity: 2})

		appErr, ok := appErrors.IsAppError(err)
		require.True(t, ok)
		assert.Equal(t, appErrors.ErrCodeNotFound, appErr.Code)
	})

	t.Run("Cart not found", func(t *testing.T) {
		repo, _, cartService := setupCartTest(t)

		repo.On("GetCartByCustomerID", ctx, customerID).Return(nil, sql.ErrNoRows).Once()

		_, err := cartService.UpdateQuantity(ctx, customerID, &models.UpdateQuantityRequest{ProductID: productID, Quantity: 2})

		appErr, ok := appErrors.IsAppError(err)
		require.True(t, ok)
		assert.Equal(t, "Cart not found", appErr.Message)
	})
}

func TestRemoveItemAndClear(t *testing.T) {
	ctx := context.Background()
	customerID := uuid.New()
	productID := uuid.New()

	t.Run("RemoveItem", func(t *testing.T) {
		repo, _, cartService := setupCartTest(t)
		other := models.CartLine{ProductID: uuid.New(), UnitPrice: 50000, Quantity: 2}
		existing := cartWith(customerID, models.CartLine{ProductID: productID, VariantID: "xl", UnitPrice: 250000, Quantity: 1}, other)

		repo.On("GetCartByCustomerID", ctx, customerID).Return(existing, nil).Once()
		repo.On("UpdateCart", ctx, existing).Return(nil).Once()

		cart, err := cartService.RemoveItem(ctx, customerID, productID, "xl")

		require.NoError(t, err)
		assert.Equal(t, map[string]models.CartLine{other.Key(): other}, cart.Items)
		assert.Equal(t, int64(100000), cart.Total)
	})

	t.Run("Clear", func(t *testing.T) {
		repo, _, cartService := setupCartTest(t)
		existing := cartWith(customerID, models.CartLine{ProductID: productID, UnitPrice: 250000, Quantity: 1})

		repo.On("GetCartByCustomerID", ctx, customerID).Return(existing, nil).Once()
		repo.On("UpdateCart", ctx, mock.MatchedBy(func(c *models.Cart) bool {
			return len(c.Items) == 0 && c.Total == 0
		})).Return(nil).Once()

		assert.NoError(t, cartService.Clear(ctx, customerID))
	})

	t.Run("Clear without a cart", func(t *testing.T) {
		repo, _, cartService := setupCartTest(t)

		repo.On("GetCartByCustomerID", ctx, customerID).Return(nil, sql.ErrNoRows).Once()

		assert.NoError(t, cartService.Clear(ctx, customerID))
	})
}
