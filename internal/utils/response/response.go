package response

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/aaravmahajanofficial/storefront-checkout/internal/errors"
	"github.com/go-playground/validator/v10"
)

type APIResponse struct {
	Success bool           `json:"success"`
	Data    any            `json:"data,omitempty"`
	Error   *ErrorResponse `json:"error,omitempty"`
}

type ErrorResponse struct {
	Code    string   `json:"code"`
	Message string   `json:"message"`
	Details []string `json:"details,omitempty"`
}

// Format strings take the field name and the tag parameter.
var validationMessages = map[string]string{
	"required":         "Field %s is required%.0s",
	"email":            "Field %s must be a valid email address%.0s",
	"min":              "Field %s must be at least %s",
	"max":              "Field %s must be at most %s",
	"gt":               "Field %s must be greater than %s",
	"gte":              "Field %s must be greater than or equal to %s",
	"lt":               "Field %s must be less than %s",
	"lte":              "Field %s must be less than or equal to %s",
	"gtfield":          "Field %s must be after %s",
	"oneof":            "Field %s must be one of [%s]",
	"e164":             "Field %s must be an E.164 phone number%.0s",
	"iso3166_1_alpha2": "Field %s must be a two-letter country code%.0s",
}

func writeJSON(w http.ResponseWriter, statusCode int, body APIResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("Failed to encode response", slog.Any("error", err))
	}
}

func Success(w http.ResponseWriter, statusCode int, data any) {
	writeJSON(w, statusCode, APIResponse{Success: true, Data: data})
}

// Error renders AppErrors with their own status; anything else is a masked 500.
func Error(w http.ResponseWriter, err error) {
	appErr, ok := errors.IsAppError(err)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, APIResponse{
			Error: &ErrorResponse{Code: errors.ErrCodeInternal, Message: "An unexpected error occurred"},
		})
		return
	}

	body := &ErrorResponse{Code: appErr.Code, Message: appErr.Message}
	if appErr.Detail != "" {
		body.Details = []string{appErr.Detail}
	}

	writeJSON(w, appErr.StatusCode, APIResponse{Error: body})
}

func ValidationError(w http.ResponseWriter, errs validator.ValidationErrors) {
	details := make([]string, 0, len(errs))

	for _, fe := range errs {
		format, ok := validationMessages[fe.Tag()]
		if !ok {
			details = append(details, fmt.Sprintf("Field %s is invalid: %s=%s", fe.Field(), fe.Tag(), fe.Param()))
			continue
		}
		details = append(details, fmt.Sprintf(format, fe.Field(), fe.Param()))
	}

	writeJSON(w, http.StatusBadRequest, APIResponse{
		Error: &ErrorResponse{Code: errors.ErrCodeValidation, Message: "Validation failed", Details: details},
	})
}
