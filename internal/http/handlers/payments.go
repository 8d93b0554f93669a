package handlers

import (
	"io"
	"net/http"
	"strconv"

	"vagabond/internal/domain"
	"vagabond/internal/domain/models"

	"github.com/gin-gonic/gin"
)

// Stripe caps webhook payloads well below this.
const maxWebhookBody = 64 << 10

// CreateCheckout opens a provider checkout for kind and returns its redirect URL.
func (h *Handlers) CreateCheckout(provider string, kind models.TargetType) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.BookingRequest
		if !BindJSONOrError(c, &req) {
			return
		}
		req = bookingRequestFor(c, kind, req)
		checkout, err := h.paymentService(c).StartCheckout(c.Request.Context(), provider, req)
		if err != nil {
			RespondDomainError(c, err)
			return
		}
		c.JSON(http.StatusOK, checkout)
	}
}

// POST /api/payments/stripe/webhook
func (h *Handlers) StripeWebhook(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "cannot read body", err)
		return
	}
	res, err := h.paymentService(c).HandleStripeWebhook(c.Request.Context(), payload, c.GetHeader("Stripe-Signature"))
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"received":  true,
		"ignored":   res.Ignored,
		"duplicate": res.Result.Duplicate,
		"bookingId": res.Result.Booking.ID,
	})
}

// GET /api/payments/stripe/booking-status?session_id=
func (h *Handlers) StripeBookingStatus(c *gin.Context) {
	out, err := h.paymentService(c).StripeBookingStatus(c.Request.Context(), c.Query("session_id"))
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

type paypalCaptureRequest struct {
	OrderID string `json:"orderID"`
	models.BookingRequest
}

// CapturePayPal captures an approved order and stores the booking.
func (h *Handlers) CapturePayPal(kind models.TargetType) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body paypalCaptureRequest
		if !BindJSONOrError(c, &body) {
			return
		}
		h.confirm(c, models.ProviderPayPal, body.OrderID, bookingRequestFor(c, kind, body.BookingRequest))
	}
}

type payosSaveRequest struct {
	OrderCode   int64                 `json:"orderCode"`
	BookingData models.BookingRequest `json:"bookingData"`
}

// SavePayOS checks the payment link status and stores the booking once paid.
func (h *Handlers) SavePayOS(kind models.TargetType) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body payosSaveRequest
		if !BindJSONOrError(c, &body) {
			return
		}
		if body.OrderCode <= 0 {
			RespondDomainError(c, domain.ValidationError{Field: "orderCode", Msg: "required"})
			return
		}
		h.confirm(c, models.ProviderPayOS, strconv.FormatInt(body.OrderCode, 10), bookingRequestFor(c, kind, body.BookingData))
	}
}

func (h *Handlers) confirm(c *gin.Context, provider, settlementID string, req models.BookingRequest) {
	res, err := h.paymentService(c).Confirm(c.Request.Context(), provider, settlementID, req)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	status := http.StatusCreated
	if res.Duplicate {
		status = http.StatusOK
	}
	c.JSON(status, res)
}
