package handlers

import (
	"errors"
	"net/http"

	"vagabond/internal/domain"
	"vagabond/internal/http/middleware"
	"vagabond/internal/payments"
	"vagabond/internal/utils"

	"github.com/gin-gonic/gin"
)

// ErrorResponse standardizes error payloads.
type ErrorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code,omitempty"`
	Details   any    `json:"details,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

func respondError(c *gin.Context, status int, code, message string, details any) {
	if code == "" {
		code = http.StatusText(status)
	}
	c.JSON(status, ErrorResponse{
		Error:     message,
		Code:      code,
		Details:   details,
		RequestID: middleware.GetRequestID(c),
	})
}

// RespondDomainError maps domain errors to HTTP responses.
func RespondDomainError(c *gin.Context, err error) {
	var exhausted domain.InventoryExhaustedError
	switch {
	case domain.IsValidation(err):
		respondError(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
	case domain.IsSignature(err):
		respondError(c, http.StatusBadRequest, "invalid_signature", "webhook signature verification failed", nil)
	case domain.IsUnauthorized(err):
		respondError(c, http.StatusUnauthorized, "unauthorized", err.Error(), nil)
	case domain.IsForbidden(err):
		respondError(c, http.StatusForbidden, "forbidden", err.Error(), nil)
	case domain.IsNotFound(err):
		respondError(c, http.StatusNotFound, "not_found", err.Error(), nil)
	case errors.As(err, &exhausted):
		respondError(c, http.StatusConflict, "inventory_exhausted", "not enough rooms left for these dates", gin.H{
			"requested":      exhausted.Requested,
			"roomsAvailable": exhausted.RoomsAvailable,
		})
	case domain.IsConflict(err):
		respondError(c, http.StatusConflict, "conflict", err.Error(), nil)
	case domain.IsSettlementNotConfirmed(err):
		respondError(c, http.StatusPaymentRequired, "settlement_not_confirmed", err.Error(), nil)
	case domain.IsProvider(err):
		utils.LogError(middleware.GetRequestID(c), "http", "provider", err, "provider call failed")
		respondError(c, http.StatusBadGateway, "provider_error", "payment provider unavailable, try again", nil)
	case errors.Is(err, payments.ErrProviderUnavailable):
		respondError(c, http.StatusServiceUnavailable, "provider_unavailable", err.Error(), nil)
	default:
		utils.LogError(middleware.GetRequestID(c), "http", "internal", err, "unhandled error")
		respondError(c, http.StatusInternalServerError, "internal_error", "something went wrong", nil)
	}
}
