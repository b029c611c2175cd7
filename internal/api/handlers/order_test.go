package handlers_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aaravmahajanofficial/storefront-checkout/internal/api/handlers"
	appErrors "github.com/aaravmahajanofficial/storefront-checkout/internal/errors"
	"github.com/aaravmahajanofficial/storefront-checkout/internal/models"
	"github.com/aaravmahajanofficial/storefront-checkout/internal/services/mocks"
	"github.com/aaravmahajanofficial/storefront-checkout/internal/testutils"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func hanoiAddress() models.Address {
	return models.Address{
		FullName: "Nguyen Van A",
		Phone:    "+84901234567",
		Street:   "12 Trang Tien",
		District: "Hoan Kiem",
		City:     "Ha Noi",
		Country:  "VN",
	}
}

func discountedOrder(userID uuid.UUID) *models.Order {
	address := hanoiAddress()
	return &models.Order{
		ID:         uuid.New(),
		CustomerID: userID,
		Status:     models.OrderStatusPending,
		Pricing: models.OrderPricing{
			ItemsPrice: 600000, ShippingPrice: 50000, TaxPrice: 60000,
			DiscountAmount: 60000, TotalPrice: 650000, CouponCode: "TENOFF",
		},
		PaymentStatus:   models.PaymentStatusUnpaid,
		ShippingAddress: &address,
	}
}

func TestQuoteOrderHandler(t *testing.T) {
	userID := uuid.New()

	t.Run("With coupon", func(t *testing.T) {
		orderService := new(mocks.OrderService)
		handler := handlers.NewOrderHandler(orderService)

		quote := &models.QuoteResponse{
			Pricing: discountedOrder(userID).Pricing,
			Coupon:  &models.CouponApplication{Code: "TENOFF", Discount: 60000},
		}
		orderService.On("QuoteOrder", mock.Anything, userID, &models.QuoteRequest{CouponCode: "TENOFF"}).Return(quote, nil).Once()

		req := testutils.CreateTestRequestWithContext(http.MethodPost, "/orders/quote", jsonBody(t, models.QuoteRequest{CouponCode: "TENOFF"}), userID, nil)
		rr := httptest.NewRecorder()

		handler.QuoteOrder().ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		var got models.QuoteResponse
		decodeData(t, rr, &got)
		assert.Equal(t, int64(650000), got.Pricing.TotalPrice)
		assert.Equal(t, int64(60000), got.Pricing.DiscountAmount)
		orderService.AssertExpectations(t)
	})

	t.Run("Empty body quotes without coupon", func(t *testing.T) {
		orderService := new(mocks.OrderService)
		handler := handlers.NewOrderHandler(orderService)

		quote := &models.QuoteResponse{Pricing: models.OrderPricing{ItemsPrice: 600000, ShippingPrice: 50000, TaxPrice: 60000, TotalPrice: 710000}}
		orderService.On("QuoteOrder", mock.Anything, userID, &models.QuoteRequest{}).Return(quote, nil).Once()

		req := testutils.CreateTestRequestWithContext(http.MethodPost, "/orders/quote", nil, userID, nil)
		rr := httptest.NewRecorder()

		handler.QuoteOrder().ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		var got models.QuoteResponse
		decodeData(t, rr, &got)
		assert.Equal(t, int64(710000), got.Pricing.TotalPrice)
	})

	t.Run("Empty cart", func(t *testing.T) {
		orderService := new(mocks.OrderService)
		handler := handlers.NewOrderHandler(orderService)

		orderService.On("QuoteOrder", mock.Anything, userID, mock.Anything).
			Return(nil, appErrors.BadRequestError("Cannot create order with empty cart")).Once()

		req := testutils.CreateTestRequestWithContext(http.MethodPost, "/orders/quote", nil, userID, nil)
		rr := httptest.NewRecorder()

		handler.QuoteOrder().ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestCreateOrderHandler(t *testing.T) {
	userID := uuid.New()

	t.Run("Success falls back to token email", func(t *testing.T) {
		orderService := new(mocks.OrderService)
		handler := handlers.NewOrderHandler(orderService)

		expected := discountedOrder(userID)
		orderService.On("CreateOrder", mock.Anything, userID, mock.MatchedBy(func(req *models.CreateOrderRequest) bool {
			return req.CouponCode == "TENOFF" && req.Email == "test@example.com" && req.ShippingAddress.City == "Ha Noi"
		})).Return(expected, nil).Once()

		body := models.CreateOrderRequest{ShippingAddress: hanoiAddress(), CouponCode: "TENOFF"}
		req := testutils.CreateTestRequestWithContext(http.MethodPost, "/orders", jsonBody(t, body), userID, nil)
		rr := httptest.NewRecorder()

		handler.CreateOrder().ServeHTTP(rr, req)

		assert.Equal(t, http.StatusCreated, rr.Code)
		var got models.Order
		decodeData(t, rr, &got)
		assert.Equal(t, expected.ID, got.ID)
		assert.Equal(t, int64(650000), got.Pricing.TotalPrice)
		assert.Equal(t, "TENOFF", got.Pricing.CouponCode)
		orderService.AssertExpectations(t)
	})

	t.Run("Explicit email wins", func(t *testing.T) {
		orderService := new(mocks.OrderService)
		handler := handlers.NewOrderHandler(orderService)

		orderService.On("CreateOrder", mock.Anything, userID, mock.MatchedBy(func(req *models.CreateOrderRequest) bool {
			return req.Email == "gift@example.com"
		})).Return(discountedOrder(userID), nil).Once()

		body := models.CreateOrderRequest{ShippingAddress: hanoiAddress(), Email: "gift@example.com"}
		req := testutils.CreateTestRequestWithContext(http.MethodPost, "/orders", jsonBody(t, body), userID, nil)
		rr := httptest.NewRecorder()

		handler.CreateOrder().ServeHTTP(rr, req)

		assert.Equal(t, http.StatusCreated, rr.Code)
		orderService.AssertExpectations(t)
	})

	t.Run("Missing address fields", func(t *testing.T) {
		orderService := new(mocks.OrderService)
		handler := handlers.NewOrderHandler(orderService)

		body := models.CreateOrderRequest{ShippingAddress: models.Address{City: "Ha Noi"}}
		req := testutils.CreateTestRequestWithContext(http.MethodPost, "/orders", jsonBody(t, body), userID, nil)
		rr := httptest.NewRecorder()

		handler.CreateOrder().ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Equal(t, appErrors.ErrCodeValidation, decodeError(t, rr).Code)
		orderService.AssertNotCalled(t, "CreateOrder", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Coupon exhausted", func(t *testing.T) {
		orderService := new(mocks.OrderService)
		handler := handlers.NewOrderHandler(orderService)

		orderService.On("CreateOrder", mock.Anything, userID, mock.Anything).
			Return(nil, appErrors.CouponError(appErrors.ErrCodeCouponUsageExceeded, "coupon usage limit reached")).Once()

		body := models.CreateOrderRequest{ShippingAddress: hanoiAddress(), CouponCode: "LASTONE"}
		req := testutils.CreateTestRequestWithContext(http.MethodPost, "/orders", jsonBody(t, body), userID, nil)
		rr := httptest.NewRecorder()

		handler.CreateOrder().ServeHTTP(rr, req)

		assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
		assert.Equal(t, appErrors.ErrCodeCouponUsageExceeded, decodeError(t, rr).Code)
	})

	t.Run("Unauthenticated", func(t *testing.T) {
		orderService := new(mocks.OrderService)
		handler := handlers.NewOrderHandler(orderService)

		body := models.CreateOrderRequest{ShippingAddress: hanoiAddress()}
		req := testutils.CreateTestRequestWithoutContext(http.MethodPost, "/orders", jsonBody(t, body), nil)
		rr := httptest.NewRecorder()

		handler.CreateOrder().ServeHTTP(rr, req)

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
		orderService.AssertNotCalled(t, "CreateOrder", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestGetOrderHandler(t *testing.T) {
	userID := uuid.New()

	t.Run("Found", func(t *testing.T) {
		orderService := new(mocks.OrderService)
		handler := handlers.NewOrderHandler(orderService)

		order := discountedOrder(userID)
		orderService.On("GetOrderByID", mock.Anything, order.ID, userID).Return(order, nil).Once()

		req := testutils.CreateTestRequestWithContext(http.MethodGet, "/orders/"+order.ID.String(), nil, userID,
			map[string]string{"id": order.ID.String()})
		rr := httptest.NewRecorder()

		handler.GetOrder().ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		orderService.AssertExpectations(t)
	})

	t.Run("Invalid id", func(t *testing.T) {
		orderService := new(mocks.OrderService)
		handler := handlers.NewOrderHandler(orderService)

		req := testutils.CreateTestRequestWithContext(http.MethodGet, "/orders/nope", nil, userID, map[string]string{"id": "nope"})
		rr := httptest.NewRecorder()

		handler.GetOrder().ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("Not found", func(t *testing.T) {
		orderService := new(mocks.OrderService)
		handler := handlers.NewOrderHandler(orderService)

		id := uuid.New()
		orderService.On("GetOrderByID", mock.Anything, id, userID).Return(nil, appErrors.NotFoundError("Order not found")).Once()

		req := testutils.CreateTestRequestWithContext(http.MethodGet, "/orders/"+id.String(), nil, userID, map[string]string{"id": id.String()})
		rr := httptest.NewRecorder()

		handler.GetOrder().ServeHTTP(rr, req)

		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}

func TestListOrdersHandler(t *testing.T) {
	userID := uuid.New()
	orderService := new(mocks.OrderService)
	handler := handlers.NewOrderHandler(orderService)

	orders := []*models.Order{discountedOrder(userID)}
	orderService.On("ListOrdersByCustomer", mock.Anything, userID, 1, 10).Return(orders, 1, nil).Once()

	req := testutils.CreateTestRequestWithContext(http.MethodGet, "/orders?pageSize=500", nil, userID, nil)
	rr := httptest.NewRecorder()

	handler.ListOrders().ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	var got struct {
		Data     []models.Order `json:"data"`
		Total    int            `json:"total"`
		PageSize int            `json:"pageSize"`
	}
	decodeData(t, rr, &got)
	assert.Len(t, got.Data, 1)
	assert.Equal(t, 10, got.PageSize)
	orderService.AssertExpectations(t)
}

func TestUpdateOrderStatusHandler(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		orderService := new(mocks.OrderService)
		handler := handlers.NewOrderHandler(orderService)

		order := discountedOrder(uuid.New())
		order.Status = models.OrderStatusShipping
		orderService.On("UpdateOrderStatus", mock.Anything, order.ID, models.OrderStatusShipping).Return(order, nil).Once()

		body := models.UpdateOrderStatusRequest{Status: models.OrderStatusShipping}
		req := testutils.CreateAdminRequest(http.MethodPatch, "/orders/"+order.ID.String()+"/status", jsonBody(t, body),
			map[string]string{"id": order.ID.String()})
		rr := httptest.NewRecorder()

		handler.UpdateOrderStatus().ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		orderService.AssertExpectations(t)
	})

	t.Run("Unknown status", func(t *testing.T) {
		orderService := new(mocks.OrderService)
		handler := handlers.NewOrderHandler(orderService)

		id := uuid.New()
		req := testutils.CreateAdminRequest(http.MethodPatch, "/orders/"+id.String()+"/status", jsonBody(t, map[string]string{"status": "lost"}),
			map[string]string{"id": id.String()})
		rr := httptest.NewRecorder()

		handler.UpdateOrderStatus().ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		orderService.AssertNotCalled(t, "UpdateOrderStatus", mock.Anything, mock.Anything, mock.Anything)
	})
}
