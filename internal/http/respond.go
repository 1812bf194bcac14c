package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/fjod/storefront/internal/domain"
	"github.com/fjod/storefront/internal/order"
	"github.com/fjod/storefront/pkg/logger"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

type fieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		zap.L().Error("failed to encode response", zap.Error(err))
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{Error: message, Code: code})
}

// ruleStatus maps rule codes that describe a conflict with current state.
var ruleStatus = map[string]int{
	domain.ErrInsufficientStock.Code: http.StatusConflict,
	domain.ErrIllegalTransition.Code: http.StatusConflict,
	order.ErrStatusConflict.Code:     http.StatusConflict,
	order.ErrNotCancellable.Code:     http.StatusConflict,
	domain.ErrLineNotFound.Code:      http.StatusNotFound,
}

// handleError translates service errors into responses. Unknown errors are
// logged and answered with a generic message.
func handleError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		verr *domain.ValidationError
		rule *domain.RuleError
	)
	switch {
	case errors.As(err, &verr):
		respondJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   err.Error(),
			Code:    "validation_error",
			Details: validationDetails(err),
		})
	case errors.As(err, &rule):
		status, ok := ruleStatus[rule.Code]
		if !ok {
			status = http.StatusUnprocessableEntity
		}
		respondError(w, status, rule.Code, rule.Message)
	case errors.Is(err, domain.ErrNotFound):
		respondError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		respondError(w, http.StatusGatewayTimeout, "timeout", "request timed out")
	default:
		logger.FromContext(r.Context(), zap.L()).Error("request failed",
			zap.String("path", r.URL.Path),
			zap.Error(err))
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

// validationDetails flattens joined validation errors into field errors.
func validationDetails(err error) []fieldError {
	var out []fieldError
	var walk func(error)
	walk = func(e error) {
		if v, ok := e.(*domain.ValidationError); ok {
			out = append(out, fieldError{Field: v.Field, Message: v.Message})
			return
		}
		switch u := e.(type) {
		case interface{ Unwrap() []error }:
			for _, inner := range u.Unwrap() {
				walk(inner)
			}
		case interface{ Unwrap() error }:
			walk(u.Unwrap())
		}
	}
	walk(err)
	return out
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := jsonDecoder(r).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(w, http.StatusRequestEntityTooLarge, "request_too_large", "request body too large")
			return false
		}
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return false
	}
	return true
}

func jsonDecoder(r *http.Request) *json.Decoder {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec
}

func int64Param(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	v, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || v <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_"+name, name+" must be a positive integer")
		return 0, false
	}
	return v, true
}
