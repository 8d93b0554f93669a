package services

import (
	"context"
	"fmt"
	"strings"

	"vagabond/internal/domain"
	"vagabond/internal/domain/models"
	"vagabond/internal/utils"
)

// QuoteLine is one priced row of a quote.
type QuoteLine struct {
	Label    string `json:"label"`
	Quantity int    `json:"quantity"`
	Price    int64  `json:"price"`
	Amount   int64  `json:"amount"`
}

type Quote struct {
	Type  models.TargetType `json:"type"`
	Label string            `json:"label"`
	Lines []QuoteLine       `json:"lines"`
	Total int64             `json:"total"`
}

// QuoteService prices a booking request against the catalog.
type QuoteService struct {
	Catalog CatalogStore
}

// Quote validates req and computes its total from current catalog prices.
func (s QuoteService) Quote(ctx context.Context, req models.BookingRequest) (Quote, error) {
	if err := validateContact(req); err != nil {
		return Quote{}, err
	}
	switch req.Type {
	case models.TargetTour:
		return s.quoteTour(ctx, req)
	case models.TargetHotel:
		return s.quoteHotel(ctx, req)
	default:
		return Quote{}, domain.ValidationError{Field: "type", Msg: "must be tour or hotel"}
	}
}

// QuoteExact is Quote plus a check that the client-side total matches. A zero
// client total is filled in.
func (s QuoteService) QuoteExact(ctx context.Context, req *models.BookingRequest) (Quote, error) {
	q, err := s.Quote(ctx, *req)
	if err != nil {
		return Quote{}, err
	}
	if req.TotalPrice == 0 {
		req.TotalPrice = q.Total
	}
	if req.TotalPrice != q.Total {
		return Quote{}, domain.ValidationError{
			Field: "totalPrice",
			Msg:   fmt.Sprintf("expected %d, got %d", q.Total, req.TotalPrice),
		}
	}
	return q, nil
}

func (s QuoteService) quoteTour(ctx context.Context, req models.BookingRequest) (Quote, error) {
	if strings.TrimSpace(req.TourID) == "" || strings.TrimSpace(req.TicketID) == "" {
		return Quote{}, domain.ValidationError{Field: "ticketId", Msg: "tourId and ticketId are required"}
	}
	if req.UseDate.IsZero() {
		return Quote{}, domain.ValidationError{Field: "useDate", Msg: "required"}
	}
	ticket, err := s.Catalog.GetTicket(ctx, req.TourID, req.TicketID)
	if err != nil {
		return Quote{}, err
	}

	prices := make(map[string]models.TicketPrice, len(ticket.Prices))
	for _, p := range ticket.Prices {
		prices[p.PriceType] = p
	}
	for priceType, qty := range req.Quantities {
		if _, ok := prices[priceType]; !ok {
			return Quote{}, domain.ValidationError{Field: "quantities." + priceType, Msg: "unknown price type"}
		}
		if qty < 0 {
			return Quote{}, domain.ValidationError{Field: "quantities." + priceType, Msg: "must not be negative"}
		}
	}

	q := Quote{Type: models.TargetTour, Label: ticketLabel(ticket)}
	count := 0
	for _, p := range ticket.Prices {
		qty := req.Quantities[p.PriceType]
		if p.MinPerBooking > 0 && qty < p.MinPerBooking {
			return Quote{}, domain.ValidationError{Field: "quantities." + p.PriceType, Msg: fmt.Sprintf("at least %d required", p.MinPerBooking)}
		}
		if p.MaxPerBooking > 0 && qty > p.MaxPerBooking {
			return Quote{}, domain.ValidationError{Field: "quantities." + p.PriceType, Msg: fmt.Sprintf("at most %d allowed", p.MaxPerBooking)}
		}
		if qty == 0 {
			continue
		}
		amount := p.Price * int64(qty)
		q.Lines = append(q.Lines, QuoteLine{Label: p.PriceType, Quantity: qty, Price: p.Price, Amount: amount})
		q.Total += amount
		count += qty
	}
	if count == 0 {
		return Quote{}, domain.ValidationError{Field: "quantities", Msg: "at least one ticket required"}
	}
	if ticket.MaxQuantity > 0 && count > ticket.MaxQuantity {
		return Quote{}, domain.ValidationError{Field: "quantities", Msg: fmt.Sprintf("at most %d tickets per booking", ticket.MaxQuantity)}
	}
	return q, nil
}

func (s QuoteService) quoteHotel(ctx context.Context, req models.BookingRequest) (Quote, error) {
	if err := validateStay(req.HotelID, req.RoomTypeID, req.RoomID, req.Checkin, req.Checkout, req.NumRooms); err != nil {
		return Quote{}, err
	}
	if req.NumGuests < 1 {
		return Quote{}, domain.ValidationError{Field: "numGuests", Msg: "at least 1"}
	}
	room, err := s.Catalog.GetRoom(ctx, req.HotelID, req.RoomTypeID, req.RoomID)
	if err != nil {
		return Quote{}, err
	}
	if req.NumRooms > room.NumberOfRoom {
		return Quote{}, domain.ValidationError{Field: "numRooms", Msg: fmt.Sprintf("room has only %d units", room.NumberOfRoom)}
	}
	if room.MaxOfGuest > 0 && req.NumGuests > room.MaxOfGuest*req.NumRooms {
		return Quote{}, domain.ValidationError{Field: "numGuests", Msg: fmt.Sprintf("at most %d guests per room", room.MaxOfGuest)}
	}

	nights := utils.Nights(req.Checkin.Time, req.Checkout.Time)
	amount := room.Price * int64(nights) * int64(req.NumRooms)
	return Quote{
		Type:  models.TargetHotel,
		Label: roomLabel(room),
		Lines: []QuoteLine{{
			Label:    fmt.Sprintf("%d night(s)", nights),
			Quantity: req.NumRooms,
			Price:    room.Price * int64(nights),
			Amount:   amount,
		}},
		Total: amount,
	}, nil
}

func validateContact(req models.BookingRequest) error {
	if strings.TrimSpace(req.Name) == "" {
		return domain.ValidationError{Field: "name", Msg: "required"}
	}
	if email := strings.TrimSpace(req.Email); email == "" || !strings.Contains(email, "@") {
		return domain.ValidationError{Field: "email", Msg: "invalid"}
	}
	if strings.TrimSpace(req.Phone) == "" {
		return domain.ValidationError{Field: "phone", Msg: "required"}
	}
	return nil
}

func validateStay(hotelID, roomTypeID, roomID string, checkin, checkout models.Date, numRooms int) error {
	if strings.TrimSpace(hotelID) == "" || strings.TrimSpace(roomTypeID) == "" || strings.TrimSpace(roomID) == "" {
		return domain.ValidationError{Field: "roomId", Msg: "hotelId, roomTypeId and roomId are required"}
	}
	if checkin.IsZero() || checkout.IsZero() {
		return domain.ValidationError{Field: "checkin", Msg: "checkin and checkout are required"}
	}
	if !checkout.After(checkin.Time) {
		return domain.ValidationError{Field: "checkout", Msg: "must be after checkin"}
	}
	if numRooms < 1 {
		return domain.ValidationError{Field: "numRooms", Msg: "at least 1"}
	}
	return nil
}

func ticketLabel(t models.Ticket) string {
	switch {
	case t.Title != "" && t.TourName != "":
		return t.Title + " - " + t.TourName
	case t.TourName != "":
		return t.TourName
	default:
		return "Tour ticket"
	}
}

func roomLabel(r models.Room) string {
	switch {
	case r.HotelName != "" && r.RoomTypeName != "":
		return r.HotelName + " - " + r.RoomTypeName
	case r.HotelName != "":
		return r.HotelName
	default:
		return "Hotel room"
	}
}
