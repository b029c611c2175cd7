package handlers

import (
	"log/slog"
	"net/http"

	"github.com/aaravmahajanofficial/storefront-checkout/internal/api/middleware"
	"github.com/aaravmahajanofficial/storefront-checkout/internal/models"
	service "github.com/aaravmahajanofficial/storefront-checkout/internal/services"
	"github.com/aaravmahajanofficial/storefront-checkout/internal/utils"
	"github.com/aaravmahajanofficial/storefront-checkout/internal/utils/response"
	"github.com/go-playground/validator/v10"
)

type OrderHandler struct {
	orderService service.OrderService
	validator    *validator.Validate
}

func NewOrderHandler(orderService service.OrderService) *OrderHandler {
	return &OrderHandler{orderService: orderService, validator: utils.NewValidator()}
}

// QuoteOrder godoc
//
//	@Summary		Price the current cart
//	@Description	Returns the items, shipping, tax, discount and total for the cart and an optional coupon. Nothing is persisted; a rejected coupon is reported in coupon_error.
//	@Tags			Orders
//	@Accept			json
//	@Produce		json
//	@Param			quote	body		models.QuoteRequest	false	"Optional coupon code"
//	@Success		200		{object}	models.QuoteResponse
//	@Failure		400		{object}	response.ErrorResponse	"Empty cart"
//	@Failure		429		{object}	response.ErrorResponse	"Too many coupon attempts"
//	@Security		BearerAuth
//	@Router			/orders/quote [post]
func (h *OrderHandler) QuoteOrder() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {

		logger := middleware.LoggerFromContext(r.Context())

		claims, ok := requireClaims(w, r, logger)
		if !ok {
			return
		}

		logger = logger.With(slog.String("userID", claims.UserID.String()))

		var req models.QuoteRequest
		if r.ContentLength != 0 && !utils.ParseAndValidate(r, w, &req, h.validator) {
			logger.Warn("Invalid quote input")
			return
		}

		quote, err := h.orderService.QuoteOrder(r.Context(), claims.UserID, &req)
		if err != nil {
			logger.Error("Failed to quote order", slog.Any("error", err))
			response.Error(w, err)
			return
		}

		response.Success(w, http.StatusOK, quote)
	}
}

// CreateOrder godoc
//
//	@Summary		Check out the cart
//	@Description	Creates an order from the current cart, redeeming the coupon if one is given. The confirmation goes to the request email or the token's email.
//	@Tags			Orders
//	@Accept			json
//	@Produce		json
//	@Param			order	body		models.CreateOrderRequest	true	"Shipping address and optional coupon"
//	@Success		201		{object}	models.Order
//	@Failure		400		{object}	response.ErrorResponse	"Validation error or empty cart"
//	@Failure		404		{object}	response.ErrorResponse	"Coupon not found"
//	@Failure		422		{object}	response.ErrorResponse	"Coupon rejected"
//	@Failure		429		{object}	response.ErrorResponse	"Too many coupon attempts"
//	@Security		BearerAuth
//	@Router			/orders [post]
func (h *OrderHandler) CreateOrder() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {

		logger := middleware.LoggerFromContext(r.Context())

		claims, ok := requireClaims(w, r, logger)
		if !ok {
			return
		}

		logger = logger.With(slog.String("userID", claims.UserID.String()))

		var req models.CreateOrderRequest
		if !utils.ParseAndValidate(r, w, &req, h.validator) {
			logger.Warn("Invalid create order input")
			return
		}

		if req.Email == "" {
			req.Email = claims.Email
		}

		order, err := h.orderService.CreateOrder(r.Context(), claims.UserID, &req)
		if err != nil {
			logger.Error("Failed to create order", slog.Any("error", err))
			response.Error(w, err)
			return
		}

		logger.Info("Order created successfully", slog.String("orderId", order.ID.String()))
		response.Success(w, http.StatusCreated, order)
	}
}

// GetOrder godoc
//
//	@Summary	Get an order by ID
//	@Tags		Orders
//	@Produce	json
//	@Param		id	path		string	true	"Order ID (UUID)"	Format(uuid)
//	@Success	200	{object}	models.Order
//	@Failure	400	{object}	response.ErrorResponse	"Invalid order ID format"
//	@Failure	404	{object}	response.ErrorResponse	"Order not found"
//	@Security	BearerAuth
//	@Router		/orders/{id} [get]
func (h *OrderHandler) GetOrder() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {

		logger := middleware.LoggerFromContext(r.Context())

		claims, ok := requireClaims(w, r, logger)
		if !ok {
			return
		}

		id, err := utils.ParseID(r, "id")
		if err != nil {
			logger.Warn("Invalid order id", slog.String("error", err.Error()))
			response.Error(w, err)
			return
		}

		order, err := h.orderService.GetOrderByID(r.Context(), id, claims.UserID)
		if err != nil {
			logger.Warn("Failed to get order", slog.String("orderId", id.String()), slog.Any("error", err))
			response.Error(w, err)
			return
		}

		response.Success(w, http.StatusOK, order)
	}
}

// ListOrders godoc
//
//	@Summary	List the buyer's orders
//	@Tags		Orders
//	@Produce	json
//	@Param		page		query		int	false	"Page number (default: 1)"
//	@Param		pageSize	query		int	false	"Items per page (default: 10, max: 100)"
//	@Success	200			{object}	models.PaginatedResponse{Data=[]models.Order}
//	@Security	BearerAuth
//	@Router		/orders [get]
func (h *OrderHandler) ListOrders() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {

		logger := middleware.LoggerFromContext(r.Context())

		claims, ok := requireClaims(w, r, logger)
		if !ok {
			return
		}

		page, pageSize := utils.ParsePagination(r)
		logger = logger.With(slog.String("userID", claims.UserID.String()), slog.Int("page", page), slog.Int("pageSize", pageSize))

		orders, total, err := h.orderService.ListOrdersByCustomer(r.Context(), claims.UserID, page, pageSize)
		if err != nil {
			logger.Error("Failed to list orders", slog.Any("error", err))
			response.Error(w, err)
			return
		}

		logger.Info("Orders listed successfully", slog.Int("count", len(orders)), slog.Int("total", total))
		response.Success(w, http.StatusOK, models.NewPaginatedResponse(orders, total, page, pageSize))
	}
}

// UpdateOrderStatus godoc
//
//	@Summary	Update order status
//	@Tags		Orders
//	@Accept		json
//	@Produce	json
//	@Param		id		path		string							true	"Order ID (UUID)"	Format(uuid)
//	@Param		status	body		models.UpdateOrderStatusRequest	true	"New order status"
//	@Success	200		{object}	models.Order
//	@Failure	403		{object}	response.ErrorResponse	"Admin role required"
//	@Failure	404		{object}	response.ErrorResponse	"Order not found"
//	@Security	BearerAuth
//	@Router		/orders/{id}/status [patch]
func (h *OrderHandler) UpdateOrderStatus() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {

		logger := middleware.LoggerFromContext(r.Context())

		id, err := utils.ParseID(r, "id")
		if err != nil {
			logger.Warn("Invalid order id", slog.String("error", err.Error()))
			response.Error(w, err)
			return
		}

		logger = logger.With(slog.String("orderId", id.String()))

		var req models.UpdateOrderStatusRequest
		if !utils.ParseAndValidate(r, w, &req, h.validator) {
			logger.Warn("Invalid update order status input")
			return
		}

		order, err := h.orderService.UpdateOrderStatus(r.Context(), id, req.Status)
		if err != nil {
			logger.Error("Failed to update order status", slog.Any("error", err))
			response.Error(w, err)
			return
		}

		logger.Info("Order status updated successfully", slog.String("newStatus", string(req.Status)))
		response.Success(w, http.StatusOK, order)
	}
}
