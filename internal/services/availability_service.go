package services

import (
	"context"

	"vagabond/internal/domain"
	"vagabond/internal/domain/models"
)

type AvailabilityQuery struct {
	HotelID    string
	RoomTypeID string
	RoomID     string
	Checkin    models.Date
	Checkout   models.Date
	NumRooms   int
}

type Availability struct {
	Available      bool `json:"available"`
	RoomsAvailable int  `json:"roomsAvailable"`
	TotalRooms     int  `json:"totalRooms"`
}

// AvailabilityService computes room remainders over active overlapping bookings.
type AvailabilityService struct {
	Catalog CatalogStore
}

// Check is advisory; callers that commit a booking must use CheckLocked inside
// their transaction.
func (s AvailabilityService) Check(ctx context.Context, q AvailabilityQuery) (Availability, error) {
	if err := validateStay(q.HotelID, q.RoomTypeID, q.RoomID, q.Checkin, q.Checkout, q.NumRooms); err != nil {
		return Availability{}, err
	}
	room, err := s.Catalog.GetRoom(ctx, q.HotelID, q.RoomTypeID, q.RoomID)
	if err != nil {
		return Availability{}, err
	}
	return s.remainder(ctx, room, q, "")
}

// CheckLocked locks the room row first so concurrent bookings of the same room
// see each other's inserts. excludeID leaves one booking out of the sum.
func (s AvailabilityService) CheckLocked(ctx context.Context, q AvailabilityQuery, excludeID string) (Availability, error) {
	room, err := s.Catalog.LockRoom(ctx, q.HotelID, q.RoomTypeID, q.RoomID)
	if err != nil {
		return Availability{}, err
	}
	return s.remainder(ctx, room, q, excludeID)
}

// Reserve is CheckLocked turned into an InventoryExhaustedError when the rooms are not there.
func (s AvailabilityService) Reserve(ctx context.Context, q AvailabilityQuery, excludeID, settlementID string) error {
	avail, err := s.CheckLocked(ctx, q, excludeID)
	if err != nil {
		return err
	}
	if !avail.Available {
		return domain.InventoryExhaustedError{
			RoomID:         q.RoomID,
			Requested:      q.NumRooms,
			RoomsAvailable: avail.RoomsAvailable,
			SettlementID:   settlementID,
		}
	}
	return nil
}

func (s AvailabilityService) remainder(ctx context.Context, room models.Room, q AvailabilityQuery, excludeID string) (Availability, error) {
	booked, err := s.Catalog.SumBookedRooms(ctx, q.HotelID, q.RoomTypeID, q.RoomID, q.Checkin, q.Checkout, excludeID)
	if err != nil {
		return Availability{}, err
	}
	left := room.NumberOfRoom - booked
	if left < 0 {
		left = 0
	}
	return Availability{
		Available:      left >= q.NumRooms,
		RoomsAvailable: left,
		TotalRooms:     room.NumberOfRoom,
	}, nil
}

func availabilityQueryFor(hotelID, roomTypeID, roomID string, checkin, checkout models.Date, numRooms int) AvailabilityQuery {
	return AvailabilityQuery{
		HotelID:    hotelID,
		RoomTypeID: roomTypeID,
		RoomID:     roomID,
		Checkin:    checkin,
		Checkout:   checkout,
		NumRooms:   numRooms,
	}
}
