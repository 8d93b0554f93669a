package handlers

import (
	"net/http"

	"vagabond/internal/domain"
	"vagabond/internal/domain/models"
	"vagabond/internal/services"

	"github.com/gin-gonic/gin"
)

// GET /api/hotels/:hotelId/availability?roomTypeId=&roomId=&checkin=&checkout=&numRooms=
func (h *Handlers) Availability(c *gin.Context) {
	checkin, err := models.ParseDate(c.Query("checkin"))
	if err != nil {
		RespondDomainError(c, domain.ValidationError{Field: "checkin", Msg: "invalid date", Err: err})
		return
	}
	checkout, err := models.ParseDate(c.Query("checkout"))
	if err != nil {
		RespondDomainError(c, domain.ValidationError{Field: "checkout", Msg: "invalid date", Err: err})
		return
	}
	q := services.AvailabilityQuery{
		HotelID:    c.Param("hotelId"),
		RoomTypeID: c.Query("roomTypeId"),
		RoomID:     c.Query("roomId"),
		Checkin:    checkin,
		Checkout:   checkout,
		NumRooms:   queryInt(c, "numRooms", 1),
	}
	avail, err := services.AvailabilityService{Catalog: h.catalogRepo()}.Check(c.Request.Context(), q)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, avail)
}

// Quote prices a tour or hotel request. POST /api/quote/tour | /api/quote/hotel
func (h *Handlers) Quote(kind models.TargetType) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.BookingRequest
		if !BindJSONOrError(c, &req) {
			return
		}
		req = bookingRequestFor(c, kind, req)
		quote, err := services.QuoteService{Catalog: h.catalogRepo()}.Quote(c.Request.Context(), req)
		if err != nil {
			RespondDomainError(c, err)
			return
		}
		c.JSON(http.StatusOK, quote)
	}
}
