package models

// TicketPrice is one price line of a tour ticket (adult, child, ...).
type TicketPrice struct {
	PriceType     string `json:"priceType"`
	Price         int64  `json:"price"`
	MinPerBooking int    `json:"minPerBooking,omitempty"`
	MaxPerBooking int    `json:"maxPerBooking,omitempty"`
}

type Ticket struct {
	ID          string        `json:"id"`
	TourID      string        `json:"tourId"`
	TourName    string        `json:"tourName"`
	Title       string        `json:"title"`
	Prices      []TicketPrice `json:"prices"`
	MaxQuantity int           `json:"maxQuantity,omitempty"`
	NumBookings int           `json:"numBookings"`
}

// Room is one room configuration inside a hotel room type; NumberOfRoom is its inventory.
type Room struct {
	ID           string `json:"id"`
	RoomTypeID   string `json:"roomTypeId"`
	RoomTypeName string `json:"roomTypeName"`
	HotelID      string `json:"hotelId"`
	HotelName    string `json:"hotelName"`
	BedType      string `json:"bedType"`
	MaxOfGuest   int    `json:"maxOfGuest"`
	NumberOfRoom int    `json:"numberOfRoom"`
	Price        int64  `json:"price"`
}
