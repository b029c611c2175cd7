package handlers

import (
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

type CouponHandler struct {
	couponService service.CouponService
	validator     *validator.Validate
}

func NewCouponHandler(couponService service.CouponService) *CouponHandler {
	return &CouponHandler{couponService: couponService, validator: utils.NewValidator()}
}

// requireClaims writes a 401 and reports false when the request carries no verified token.
func requireClaims(w http.ResponseWriter, r *http.Request, logger *slog.Logger) (*models.Claims, bool) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		logger.Warn("Request without user claims")
		response.Error(w, errors.UnauthorizedError("Authentication required"))
		return nil, false
	}

	return claims, true
}

func couponCode(w http.ResponseWriter, r *http.Request) (string, bool) {
	code := r.PathValue("code")
	if code == "" || len(code) > 50 {
		response.Error(w, errors.BadRequestError("Invalid coupon code"))
		return "", false
	}

	return code, true
}

// CreateCoupon godoc
//
//	@Summary		Create a coupon
//	@Description	Creates a discount coupon. Admin only.
//	@Tags			Coupons
//	@Accept			json
//	@Produce		json
//	@Param			coupon	body		models.CreateCouponRequest	true	"Coupon definition"
//	@Success		201		{object}	models.Coupon
//	@Failure		400		{object}	response.ErrorResponse	"Validation error"
//	@Failure		403		{object}	response.ErrorResponse	"Admin role required"
//	@Failure		409		{object}	response.ErrorResponse	"Code already exists"
//	@Security		BearerAuth
//	@Router			/coupons [post]
func (h *CouponHandler) CreateCoupon() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {

		logger := middleware.LoggerFromContext(r.Context())

		var req models.CreateCouponRequest
		if !utils.ParseAndValidate(r, w, &req, h.validator) {
			logger.Warn("Invalid create coupon input")
			return
		}

		coupon, err := h.couponService.CreateCoupon(r.Context(), &req)
		if err != nil {
			logger.Error("Failed to create coupon", slog.String("code", req.Code), slog.Any("error", err))
			response.Error(w, err)
			return
		}

		logger.Info("Coupon created", slog.String("code", coupon.Code))
		response.Success(w, http.StatusCreated, coupon)
	}
}

// GetCoupon godoc
//
//	@Summary	Get a coupon
//	@Tags		Coupons
//	@Produce	json
//	@Param		code	path		string	true	"Coupon code"
//	@Success	200		{object}	models.Coupon
//	@Failure	404		{object}	response.ErrorResponse	"Coupon not found"
//	@Security	BearerAuth
//	@Router		/coupons/{code} [get]
func (h *CouponHandler) GetCoupon() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {

		logger := middleware.LoggerFromContext(r.Context())

		code, ok := couponCode(w, r)
		if !ok {
			return
		}

		coupon, err := h.couponService.GetCoupon(r.Context(), code)
		if err != nil {
			logger.Warn("Failed to get coupon", slog.String("code", code), slog.Any("error", err))
			response.Error(w, err)
			return
		}

		response.Success(w, http.StatusOK, coupon)
	}
}

// ListCoupons godoc
//
//	@Summary	List coupons
//	@Tags		Coupons
//	@Produce	json
//	@Param		page		query		int	false	"Page number (default: 1)"
//	@Param		pageSize	query		int	false	"Items per page (default: 10, max: 100)"
//	@Success	200			{object}	models.PaginatedResponse{Data=[]models.Coupon}
//	@Security	BearerAuth
//	@Router		/coupons [get]
func (h *CouponHandler) ListCoupons() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {

		logger := middleware.LoggerFromContext(r.Context())

		page, pageSize := utils.ParsePagination(r)

		coupons, total, err := h.couponService.ListCoupons(r.Context(), page, pageSize)
		if err != nil {
			logger.Error("Failed to list coupons", slog.Any("error", err))
			response.Error(w, err)
			return
		}

		response.Success(w, http.StatusOK, models.NewPaginatedResponse(coupons, total, page, pageSize))
	}
}

// UpdateCoupon godoc
//
//	@Summary		Update a coupon
//	@Description	Changes the fields present in the body. The usage count cannot be edited.
//	@Tags			Coupons
//	@Accept			json
//	@Produce		json
//	@Param			code	path		string						true	"Coupon code"
//	@Param			coupon	body		models.UpdateCouponRequest	true	"Fields to change"
//	@Success		200		{object}	models.Coupon
//	@Failure		404		{object}	response.ErrorResponse	"Coupon not found"
//	@Security		BearerAuth
//	@Router			/coupons/{code} [put]
func (h *CouponHandler) UpdateCoupon() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {

		logger := middleware.LoggerFromContext(r.Context())

		code, ok := couponCode(w, r)
		if !ok {
			return
		}

		var req models.UpdateCouponRequest
		if !utils.ParseAndValidate(r, w, &req, h.validator) {
			logger.Warn("Invalid update coupon input", slog.String("code", code))
			return
		}

		coupon, err := h.couponService.UpdateCoupon(r.Context(), code, &req)
		if err != nil {
			logger.Error("Failed to update coupon", slog.String("code", code), slog.Any("error", err))
			response.Error(w, err)
			return
		}

		logger.Info("Coupon updated", slog.String("code", coupon.Code))
		response.Success(w, http.StatusOK, coupon)
	}
}

// DeleteCoupon godoc
//
//	@Summary	Delete a coupon
//	@Tags		Coupons
//	@Param		code	path	string	true	"Coupon code"
//	@Success	204
//	@Failure	404	{object}	response.ErrorResponse	"Coupon not found"
//	@Security	BearerAuth
//	@Router		/coupons/{code} [delete]
func (h *CouponHandler) DeleteCoupon() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {

		logger := middleware.LoggerFromContext(r.Context())

		code, ok := couponCode(w, r)
		if !ok {
			return
		}

		if err := h.couponService.DeleteCoupon(r.Context(), code); err != nil {
			logger.Error("Failed to delete coupon", slog.String("code", code), slog.Any("error", err))
			response.Error(w, err)
			return
		}

		logger.Info("Coupon deleted", slog.String("code", code))
		w.WriteHeader(http.StatusNoContent)
	}
}

// ValidateCoupon godoc
//
//	@Summary		Validate a coupon
//	@Description	Checks a code against an items subtotal and returns the discount it would grant. Usage is not consumed.
//	@Tags			Coupons
//	@Accept			json
//	@Produce		json
//	@Param			request	body		models.ValidateCouponRequest	true	"Code and items subtotal in dong"
//	@Success		200		{object}	models.CouponApplication
//	@Failure		404		{object}	response.ErrorResponse	"Coupon not found"
//	@Failure		422		{object}	response.ErrorResponse	"Coupon rejected"
//	@Failure		429		{object}	response.ErrorResponse	"Too many attempts"
//	@Security		BearerAuth
//	@Router			/coupons/validate [post]
func (h *CouponHandler) ValidateCoupon() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {

		logger := middleware.LoggerFromContext(r.Context())

		claims, ok := requireClaims(w, r, logger)
		if !ok {
			return
		}

		logger = logger.With(slog.String("userID", claims.UserID.String()))

		var req models.ValidateCouponRequest
		if !utils.ParseAndValidate(r, w, &req, h.validator) {
			logger.Warn("Invalid validate coupon input")
			return
		}

		if err := h.couponService.CheckRateLimit(r.Context(), claims.UserID.String()); err != nil {
			logger.Warn("Coupon validation rate limited")
			response.Error(w, err)
			return
		}

		application, err := h.couponService.ValidateCoupon(r.Context(), req.Code, req.ItemsPrice)
		if err != nil {
			logger.Info("Coupon rejected", slog.String("code", req.Code), slog.Any("error", err))
			response.Error(w, err)
			return
		}

		response.Success(w, http.StatusOK, application)
	}
}

// ApplyCoupon godoc
//
//	@Summary		Redeem a coupon use
//	@Description	Consumes one use of the coupon outside checkout. Admin only.
//	@Tags			Coupons
//	@Produce		json
//	@Param			code	path		string	true	"Coupon code"
//	@Success		200		{object}	models.CouponRedemption
//	@Failure		422		{object}	response.ErrorResponse	"Coupon not redeemable"
//	@Security		BearerAuth
//	@Router			/coupons/{code}/apply [post]
func (h *CouponHandler) ApplyCoupon() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {

		logger := middleware.LoggerFromContext(r.Context())

		code, ok := couponCode(w, r)
		if !ok {
			return
		}

		redemption, err := h.couponService.ApplyCoupon(r.Context(), code)
		if err != nil {
			logger.Warn("Failed to apply coupon", slog.String("code", code), slog.Any("error", err))
			response.Error(w, err)
			return
		}

		logger.Info("Coupon applied", slog.String("code", code), slog.Int("usedCount", redemption.UsedCount))
		response.Success(w, http.StatusOK, redemption)
	}
}
