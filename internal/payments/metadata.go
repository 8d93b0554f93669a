package payments

import (
	"encoding/json"
	"fmt"
	"strconv"

	"vagabond/internal/domain"
	"vagabond/internal/domain/models"
)

// Metadata keys carried on a Stripe checkout session. The webhook rebuilds the
// booking request from exactly these; anything else on the session is ignored.
const (
	metaType          = "type"
	metaUserID        = "userId"
	metaTourID        = "tourId"
	metaTicketID      = "ticketId"
	metaQuantities    = "quantities"
	metaUseDate       = "useDate"
	metaHotelID       = "hotelId"
	metaRoomTypeID    = "roomTypeId"
	metaRoomID        = "roomId"
	metaCheckin       = "checkin"
	metaCheckout      = "checkout"
	metaNumGuests     = "numGuests"
	metaNumRooms      = "numRooms"
	metaTotalPrice    = "totalPrice"
	metaPaymentMethod = "paymentMethod"
	metaName          = "name"
	metaEmail         = "email"
	metaPhone         = "phone"
)

// Stripe rejects metadata values longer than this.
const maxMetadataValue = 500

// EncodeMetadata flattens req into string pairs. Empty values are left out.
func EncodeMetadata(req models.BookingRequest) (map[string]string, error) {
	m := map[string]string{metaType: string(req.Type)}
	put := func(k, v string) {
		if v != "" {
			m[k] = v
		}
	}
	putInt := func(k string, v int64) {
		if v != 0 {
			m[k] = strconv.FormatInt(v, 10)
		}
	}

	put(metaUserID, req.UserID)
	put(metaPaymentMethod, req.PaymentMethod)
	put(metaName, req.Name)
	put(metaEmail, req.Email)
	put(metaPhone, req.Phone)
	putInt(metaTotalPrice, req.TotalPrice)

	switch req.Type {
	case models.TargetTour:
		put(metaTourID, req.TourID)
		put(metaTicketID, req.TicketID)
		put(metaUseDate, req.UseDate.String())
		if len(req.Quantities) > 0 {
			raw, err := json.Marshal(req.Quantities)
			if err != nil {
				return nil, fmt.Errorf("encode quantities: %w", err)
			}
			m[metaQuantities] = string(raw)
		}
	case models.TargetHotel:
		put(metaHotelID, req.HotelID)
		put(metaRoomTypeID, req.RoomTypeID)
		put(metaRoomID, req.RoomID)
		put(metaCheckin, req.Checkin.String())
		put(metaCheckout, req.Checkout.String())
		putInt(metaNumGuests, int64(req.NumGuests))
		putInt(metaNumRooms, int64(req.NumRooms))
	default:
		return nil, domain.ValidationError{Field: "type", Msg: "must be tour or hotel"}
	}

	for k, v := range m {
		if len(v) > maxMetadataValue {
			return nil, domain.ValidationError{Field: k, Msg: "too long for payment metadata"}
		}
	}
	return m, nil
}

// DecodeMetadata is the inverse of EncodeMetadata.
func DecodeMetadata(m map[string]string) (models.BookingRequest, error) {
	req := models.BookingRequest{
		Type:          models.TargetType(m[metaType]),
		UserID:        m[metaUserID],
		PaymentMethod: m[metaPaymentMethod],
		Name:          m[metaName],
		Email:         m[metaEmail],
		Phone:         m[metaPhone],
	}
	if !req.Type.Valid() {
		return models.BookingRequest{}, domain.ValidationError{Field: "metadata.type", Msg: fmt.Sprintf("unknown booking type %q", m[metaType])}
	}

	var err error
	if req.TotalPrice, err = metaInt(m, metaTotalPrice); err != nil {
		return models.BookingRequest{}, err
	}

	switch req.Type {
	case models.TargetTour:
		req.TourID = m[metaTourID]
		req.TicketID = m[metaTicketID]
		if req.UseDate, err = metaDate(m, metaUseDate); err != nil {
			return models.BookingRequest{}, err
		}
		if raw := m[metaQuantities]; raw != "" {
			if err := json.Unmarshal([]byte(raw), &req.Quantities); err != nil {
				return models.BookingRequest{}, domain.ValidationError{Field: "metadata.quantities", Msg: "invalid json", Err: err}
			}
		}
	case models.TargetHotel:
		req.HotelID = m[metaHotelID]
		req.RoomTypeID = m[metaRoomTypeID]
		req.RoomID = m[metaRoomID]
		if req.Checkin, err = metaDate(m, metaCheckin); err != nil {
			return models.BookingRequest{}, err
		}
		if req.Checkout, err = metaDate(m, metaCheckout); err != nil {
			return models.BookingRequest{}, err
		}
		guests, err := metaInt(m, metaNumGuests)
		if err != nil {
			return models.BookingRequest{}, err
		}
		rooms, err := metaInt(m, metaNumRooms)
		if err != nil {
			return models.BookingRequest{}, err
		}
		req.NumGuests, req.NumRooms = int(guests), int(rooms)
	}
	return req, nil
}

func metaInt(m map[string]string, key string) (int64, error) {
	raw := m[key]
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, domain.ValidationError{Field: "metadata." + key, Msg: "not a number", Err: err}
	}
	return n, nil
}

func metaDate(m map[string]string, key string) (models.Date, error) {
	raw := m[key]
	if raw == "" {
		return models.Date{}, nil
	}
	d, err := models.ParseDate(raw)
	if err != nil {
		return models.Date{}, domain.ValidationError{Field: "metadata." + key, Msg: "invalid date", Err: err}
	}
	return d, nil
}
