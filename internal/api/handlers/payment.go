package handlers

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/aaravmahajanofficial/storefront-checkout/internal/api/middleware"
	"github.com/aaravmahajanofficial/storefront-checkout/internal/errors"
	"github.com/aaravmahajanofficial/storefront-checkout/internal/models"
	service "github.com/aaravmahajanofficial/storefront-checkout/internal/services"
	"github.com/aaravmahajanofficial/storefront-checkout/internal/utils"
	"github.com/aaravmahajanofficial/storefront-checkout/internal/utils/response"
	"github.com/go-playground/validator/v10"
)

// Stripe signs webhook payloads well under this size.
const maxWebhookBody = 64 << 10

type PaymentHandler struct {
	paymentService service.PaymentService
	validator      *validator.Validate
}

func NewPaymentHandler(paymentService service.PaymentService) *PaymentHandler {
	return &PaymentHandler{paymentService: paymentService, validator: utils.NewValidator()}
}

// CreatePayment godoc
//
//	@Summary		Start paying for an order
//	@Description	Creates a Stripe PaymentIntent for the order total in VND and returns its client secret.
//	@Tags			Payments
//	@Accept			json
//	@Produce		json
//	@Param			payment	body		models.CreatePaymentRequest	true	"Order to pay"
//	@Success		201		{object}	models.PaymentResponse
//	@Failure		400		{object}	response.ErrorResponse	"Order not payable"
//	@Failure		404		{object}	response.ErrorResponse	"Order not found"
//	@Security		BearerAuth
//	@Router			/payments [post]
func (h *PaymentHandler) CreatePayment() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {

		logger := middleware.LoggerFromContext(r.Context())

		claims, ok := requireClaims(w, r, logger)
		if !ok {
			return
		}

		logger = logger.With(slog.String("userID", claims.UserID.String()))

		var req models.CreatePaymentRequest
		if !utils.ParseAndValidate(r, w, &req, h.validator) {
			logger.Warn("Invalid create payment input")
			return
		}

		payment, err := h.paymentService.CreatePaymentIntent(r.Context(), req.OrderID, claims.UserID)
		if err != nil {
			logger.Error("Failed to create payment intent", slog.String("orderId", req.OrderID.String()), slog.Any("error", err))
			response.Error(w, err)
			return
		}

		logger.Info("Payment intent created", slog.String("orderId", req.OrderID.String()), slog.String("paymentIntentId", payment.PaymentIntentID))
		response.Success(w, http.StatusCreated, payment)
	}
}

// HandleStripeWebhook godoc
//
//	@Summary		Stripe webhook
//	@Description	Updates the payment status of the order bound to the event's payment intent.
//	@Tags			Payments
//	@Accept			json
//	@Produce		json
//	@Param			Stripe-Signature	header		string	true	"Stripe signature"
//	@Success		200					{object}	map[string]bool
//	@Failure		400					{object}	response.ErrorResponse	"Bad signature"
//	@Router			/payments/webhook [post]
func (h *PaymentHandler) HandleStripeWebhook() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {

		logger := middleware.LoggerFromContext(r.Context())

		payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
		if err != nil {
			logger.Error("Error reading webhook body", slog.String("error", err.Error()))
			response.Error(w, errors.BadRequestError("Failed to read request body"))
			return
		}

		signature := r.Header.Get("Stripe-Signature")
		if signature == "" {
			logger.Warn("Missing Stripe signature")
			response.Error(w, errors.BadRequestError("Stripe Signature is required"))
			return
		}

		event, err := h.paymentService.ProcessWebhook(r.Context(), payload, signature)
		if err != nil {
			logger.Error("Failed to process payment webhook", slog.String("eventId", event.ID), slog.Any("error", err))
			response.Error(w, err)
			return
		}

		logger.Info("Payment webhook processed", slog.String("eventId", event.ID), slog.String("type", string(event.Type)))
		response.Success(w, http.StatusOK, map[string]bool{"received": true})
	}
}

// RefundOrder godoc
//
//	@Summary		Refund a paid order
//	@Description	Refunds the full order total through Stripe. Admin only.
//	@Tags			Payments
//	@Produce		json
//	@Param			id	path		string	true	"Order ID (UUID)"	Format(uuid)
//	@Success		200	{object}	models.RefundResponse
//	@Failure		400	{object}	response.ErrorResponse	"Order not paid"
//	@Failure		404	{object}	response.ErrorResponse	"Order not found"
//	@Security		BearerAuth
//	@Router			/orders/{id}/refund [post]
func (h *PaymentHandler) RefundOrder() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {

		logger := middleware.LoggerFromContext(r.Context())

		orderID, err := utils.ParseID(r, "id")
		if err != nil {
			logger.Warn("Invalid order id", slog.String("error", err.Error()))
			response.Error(w, err)
			return
		}

		refund, err := h.paymentService.RefundOrder(r.Context(), orderID)
		if err != nil {
			logger.Error("Failed to refund order", slog.String("orderId", orderID.String()), slog.Any("error", err))
			response.Error(w, err)
			return
		}

		logger.Info("Order refunded", slog.String("orderId", orderID.String()), slog.String("refundId", refund.RefundID))
		response.Success(w, http.StatusOK, refund)
	}
}
