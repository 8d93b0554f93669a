package handlers

import (
	"net/http"
	"strings"

	"vagabond/internal/domain/models"
	"vagabond/internal/http/middleware"

	"github.com/gin-gonic/gin"
)

// CreateDirect stores a pay-later booking. POST /api/tour-bookings | /api/hotel-bookings
func (h *Handlers) CreateDirect(kind models.TargetType) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.BookingRequest
		if !BindJSONOrError(c, &req) {
			return
		}
		booking, err := h.bookingService(c).CreateDirect(c.Request.Context(), bookingRequestFor(c, kind, req))
		if err != nil {
			RespondDomainError(c, err)
			return
		}
		c.JSON(http.StatusCreated, booking)
	}
}

func bookingFilter(c *gin.Context) models.BookingFilter {
	return models.BookingFilter{
		Kind:     models.TargetType(strings.ToLower(strings.TrimSpace(c.Query("kind")))),
		Status:   models.BookingStatus(strings.ToLower(strings.TrimSpace(c.Query("status")))),
		TourID:   c.Query("tourId"),
		HotelID:  c.Query("hotelId"),
		Page:     queryInt(c, "page", 1),
		PageSize: queryInt(c, "limit", 20),
	}
}

// GET /api/bookings/mine
func (h *Handlers) MyBookings(c *gin.Context) {
	items, page, err := h.bookingService(c).ListMine(c.Request.Context(), middleware.GetRequestContext(c), bookingFilter(c))
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items, "pagination": page, "totalPages": page.TotalPages()})
}

// GET /api/admin/bookings
func (h *Handlers) AdminBookings(c *gin.Context) {
	items, page, err := h.bookingService(c).ListAll(c.Request.Context(), middleware.GetRequestContext(c), bookingFilter(c))
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items, "pagination": page, "totalPages": page.TotalPages()})
}

// GET /api/bookings/:id
func (h *Handlers) GetBooking(c *gin.Context) {
	b, err := h.bookingService(c).Get(c.Request.Context(), middleware.GetRequestContext(c), c.Param("id"))
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

// PUT /api/bookings/:id/cancel
func (h *Handlers) CancelBooking(c *gin.Context) {
	b, err := h.bookingService(c).Cancel(c.Request.Context(), middleware.GetRequestContext(c), c.Param("id"))
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

type statusRequest struct {
	BookingStatus models.BookingStatus `json:"bookingStatus"`
}

// PUT /api/bookings/:id/status
func (h *Handlers) UpdateBookingStatus(c *gin.Context) {
	var req statusRequest
	if !BindJSONOrError(c, &req) {
		return
	}
	b, err := h.bookingService(c).UpdateStatus(c.Request.Context(), middleware.GetRequestContext(c), c.Param("id"), req.BookingStatus)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

// DELETE /api/bookings/:id
func (h *Handlers) DeleteBooking(c *gin.Context) {
	if err := h.bookingService(c).Delete(c.Request.Context(), middleware.GetRequestContext(c), c.Param("id")); err != nil {
		RespondDomainError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GET /api/admin/dashboard?period=
func (h *Handlers) Dashboard(c *gin.Context) {
	sum, err := h.bookingService(c).Dashboard(c.Request.Context(), middleware.GetRequestContext(c), c.Query("period"))
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, sum)
}
