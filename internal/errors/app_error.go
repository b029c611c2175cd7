package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// AppError carries the client-facing code, message and HTTP status; Err holds the cause for logs.
type AppError struct {
	Code       string
	Message    string
	Detail     string
	StatusCode int
	Err        error
}

func (e *AppError) Error() string { return e.Message }

func (e *AppError) Unwrap() error { return e.Err }

func (e *AppError) WithDetail(detail string) *AppError {
	e.Detail = detail
	return e
}

func (e *AppError) WithError(err error) *AppError {
	e.Err = err
	return e
}

const (
	ErrCodeValidation      = "VALIDATION_ERROR"
	ErrCodeBadRequest      = "BAD_REQUEST"
	ErrCodeNotFound        = "NOT_FOUND"
	ErrCodeUnauthorized    = "UNAUTHORIZED"
	ErrCodeForbidden       = "FORBIDDEN"
	ErrCodeInternal        = "INTERNAL_ERROR"
	ErrCodeDatabaseError   = "DATABASE_ERROR"
	ErrCodeDuplicateEntry  = "DUPLICATE_ENTRY"
	ErrCodeThirdPartyError = "THIRD_PARTY_ERROR"
	ErrCodeTooManyRequests = "TOO_MANY_REQUESTS"

	ErrCodeCouponNotFound      = "COUPON_NOT_FOUND"
	ErrCodeCouponInactive      = "COUPON_INACTIVE"
	ErrCodeCouponNotStarted    = "COUPON_NOT_STARTED"
	ErrCodeCouponExpired       = "COUPON_EXPIRED"
	ErrCodeCouponUsageExceeded = "COUPON_USAGE_EXCEEDED"
	ErrCodeCouponBelowMinimum  = "COUPON_BELOW_MINIMUM"
	ErrCodePricingInvariant    = "PRICING_INVARIANT"
)

// Codes missing here default to 500.
var statusByCode = map[string]int{
	ErrCodeValidation:      http.StatusBadRequest,
	ErrCodeBadRequest:      http.StatusBadRequest,
	ErrCodeNotFound:        http.StatusNotFound,
	ErrCodeUnauthorized:    http.StatusUnauthorized,
	ErrCodeForbidden:       http.StatusForbidden,
	ErrCodeDuplicateEntry:  http.StatusConflict,
	ErrCodeTooManyRequests: http.StatusTooManyRequests,

	ErrCodeCouponNotFound:      http.StatusNotFound,
	ErrCodeCouponInactive:      http.StatusUnprocessableEntity,
	ErrCodeCouponNotStarted:    http.StatusUnprocessableEntity,
	ErrCodeCouponExpired:       http.StatusUnprocessableEntity,
	ErrCodeCouponUsageExceeded: http.StatusUnprocessableEntity,
	ErrCodeCouponBelowMinimum:  http.StatusUnprocessableEntity,
}

func New(code, message string) *AppError {
	status, ok := statusByCode[code]
	if !ok {
		status = http.StatusInternalServerError
	}

	return &AppError{Code: code, Message: message, StatusCode: status}
}

func ValidationError(message string) *AppError   { return New(ErrCodeValidation, message) }
func BadRequestError(message string) *AppError   { return New(ErrCodeBadRequest, message) }
func NotFoundError(message string) *AppError     { return New(ErrCodeNotFound, message) }
func UnauthorizedError(message string) *AppError { return New(ErrCodeUnauthorized, message) }
func ForbiddenError(message string) *AppError    { return New(ErrCodeForbidden, message) }
func InternalError(message string) *AppError     { return New(ErrCodeInternal, message) }
func DatabaseError(message string) *AppError     { return New(ErrCodeDatabaseError, message) }
func DuplicateEntryError(message string) *AppError {
	return New(ErrCodeDuplicateEntry, message)
}
func ThirdPartyError(message string) *AppError      { return New(ErrCodeThirdPartyError, message) }
func TooManyRequestsError(message string) *AppError { return New(ErrCodeTooManyRequests, message) }
func PricingInvariantError(message string) *AppError {
	return New(ErrCodePricingInvariant, message)
}

// CouponError is a rejection the buyer can recover from by dropping the coupon.
func CouponError(code, message string) *AppError { return New(code, message) }

// AddValidationError reports a cross-field rule the struct tags cannot express.
func AddValidationError(field, reason string) *AppError {
	return ValidationError(fmt.Sprintf("Invalid field '%s': %s", field, reason))
}

func IsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}
