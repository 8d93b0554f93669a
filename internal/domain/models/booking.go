package models

import "time"

type TargetType string

const (
	TargetTour  TargetType = "tour"
	TargetHotel TargetType = "hotel"
)

func (t TargetType) Valid() bool {
	return t == TargetTour || t == TargetHotel
}

type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingConfirmed BookingStatus = "confirmed"
	BookingCancelled BookingStatus = "cancelled"
)

func (s BookingStatus) Valid() bool {
	switch s {
	case BookingPending, BookingConfirmed, BookingCancelled:
		return true
	}
	return false
}

// Active bookings hold inventory.
func (s BookingStatus) Active() bool {
	return s == BookingPending || s == BookingConfirmed
}

// PaymentStatus is tracked apart from BookingStatus: a settled payment does not
// by itself mean the booking was confirmed, and vice versa for pay-later bookings.
type PaymentStatus string

const (
	PaymentUnpaid PaymentStatus = "unpaid"
	PaymentPaid   PaymentStatus = "paid"
)

const (
	ReviewedNo  = "no"
	ReviewedYes = "yes"
)

// BookingRequest is the checkout payload. It is never stored as-is; it travels
// through the payment provider and comes back with the settlement.
type BookingRequest struct {
	UserID string     `json:"userId,omitempty"`
	Type   TargetType `json:"type"`

	TourID     string         `json:"tourId,omitempty"`
	TicketID   string         `json:"ticketId,omitempty"`
	Quantities map[string]int `json:"quantities,omitempty"`
	UseDate    Date           `json:"useDate"`

	HotelID    string `json:"hotelId,omitempty"`
	RoomTypeID string `json:"roomTypeId,omitempty"`
	RoomID     string `json:"roomId,omitempty"`
	Checkin    Date   `json:"checkin"`
	Checkout   Date   `json:"checkout"`
	NumGuests  int    `json:"numGuests,omitempty"`
	NumRooms   int    `json:"numRooms,omitempty"`

	TotalPrice    int64  `json:"totalPrice"`
	PaymentMethod string `json:"paymentMethod,omitempty"`

	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// TicketCount sums every price-type quantity.
func (r BookingRequest) TicketCount() int {
	n := 0
	for _, q := range r.Quantities {
		n += q
	}
	return n
}

// Booking is a persisted tour or hotel booking. SettlementID is unique per
// provider when present.
type Booking struct {
	ID     string     `json:"id"`
	Kind   TargetType `json:"type"`
	UserID string     `json:"userId,omitempty"`

	TourID     string         `json:"tourId,omitempty"`
	TicketID   string         `json:"ticketId,omitempty"`
	Quantities map[string]int `json:"bookingItems,omitempty"`
	UseDate    Date           `json:"useDate"`

	HotelID    string `json:"hotelId,omitempty"`
	RoomTypeID string `json:"roomTypeId,omitempty"`
	RoomID     string `json:"roomId,omitempty"`
	Checkin    Date   `json:"checkin"`
	Checkout   Date   `json:"checkout"`
	NumGuests  int    `json:"numGuests,omitempty"`
	NumRooms   int    `json:"numRooms,omitempty"`

	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`

	TotalPrice      int64         `json:"totalPrice"`
	PaymentMethod   string        `json:"paymentMethod,omitempty"`
	PaymentProvider string        `json:"paymentProvider,omitempty"`
	SettlementID    string        `json:"settlementId,omitempty"`
	PaymentStatus   PaymentStatus `json:"paymentStatus"`
	BookingStatus   BookingStatus `json:"bookingStatus"`
	IsReviewed      string        `json:"isReviewed"`

	// CountersApplied records that tour/ticket counters were incremented for this booking.
	CountersApplied bool `json:"-"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (b Booking) TicketCount() int {
	n := 0
	for _, q := range b.Quantities {
		n += q
	}
	return n
}

// OwnedBy reports whether userID booked it. Guest bookings have no owner.
func (b Booking) OwnedBy(userID string) bool {
	return b.UserID != "" && b.UserID == userID
}

// BookingFromRequest snapshots a checkout request into a booking row.
func BookingFromRequest(id string, req BookingRequest, now time.Time) Booking {
	b := Booking{
		ID:            id,
		Kind:          req.Type,
		UserID:        req.UserID,
		Name:          req.Name,
		Email:         req.Email,
		Phone:         req.Phone,
		TotalPrice:    req.TotalPrice,
		PaymentMethod: req.PaymentMethod,
		PaymentStatus: PaymentUnpaid,
		BookingStatus: BookingPending,
		IsReviewed:    ReviewedNo,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	switch req.Type {
	case TargetTour:
		b.TourID = req.TourID
		b.TicketID = req.TicketID
		b.UseDate = req.UseDate
		b.Quantities = make(map[string]int, len(req.Quantities))
		for k, v := range req.Quantities {
			b.Quantities[k] = v
		}
	case TargetHotel:
		b.HotelID = req.HotelID
		b.RoomTypeID = req.RoomTypeID
		b.RoomID = req.RoomID
		b.Checkin = req.Checkin
		b.Checkout = req.Checkout
		b.NumGuests = req.NumGuests
		b.NumRooms = req.NumRooms
	}
	return b
}

// BookingUpdate supports PATCH-style updates via key presence.
type BookingUpdate struct {
	BookingStatus *BookingStatus
	PaymentStatus *PaymentStatus
	IsReviewed    *string
}

// BookingFilter narrows admin and owner listings.
type BookingFilter struct {
	Kind     TargetType
	Status   BookingStatus
	UserID   string
	TourID   string
	HotelID  string
	Page     int
	PageSize int
}

// BookingSummary feeds the admin dashboard.
type BookingSummary struct {
	Since          time.Time `json:"since"`
	Revenue        int64     `json:"revenue"`
	TourBookings   int       `json:"tourBookings"`
	HotelBookings  int       `json:"hotelBookings"`
	Confirmed      int       `json:"confirmed"`
	Cancelled      int       `json:"cancelled"`
	CompletionRate float64   `json:"completionRate"`
}
