package services

import (
	"context"
	"time"

	"vagabond/internal/domain/models"
)

// TxRunner runs fn in one database transaction carried by the context.
// *db.TxManager is the production implementation.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// BookingStore persists bookings. Implementations join the transaction found
// in ctx, if any.
type BookingStore interface {
	Insert(ctx context.Context, b models.Booking) error
	GetByID(ctx context.Context, id string) (models.Booking, error)
	FindBySettlement(ctx context.Context, provider, settlementID string) (models.Booking, bool, error)
	Update(ctx context.Context, id string, upd models.BookingUpdate) error
	// ClaimCounters marks the booking's tour counters as applied and reports
	// whether this call was the one that did it.
	ClaimCounters(ctx context.Context, id string) (bool, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, f models.BookingFilter) ([]models.Booking, int, error)
	Summary(ctx context.Context, since time.Time) (models.BookingSummary, error)
}

// CatalogStore is the inventory read model plus the counter write-back.
type CatalogStore interface {
	GetTicket(ctx context.Context, tourID, ticketID string) (models.Ticket, error)
	GetRoom(ctx context.Context, hotelID, roomTypeID, roomID string) (models.Room, error)
	LockRoom(ctx context.Context, hotelID, roomTypeID, roomID string) (models.Room, error)
	SumBookedRooms(ctx context.Context, hotelID, roomTypeID, roomID string, checkin, checkout models.Date, excludeID string) (int, error)
	IncrementTourCounters(ctx context.Context, tourID, ticketID string, tickets int) error
}

type UserStore interface {
	Create(ctx context.Context, u models.User) error
	GetByEmail(ctx context.Context, email string) (models.User, error)
	GetByID(ctx context.Context, id string) (models.User, error)
}

// BookingNotifier hears about committed bookings. Calls are best effort and
// must not block the request for long.
type BookingNotifier interface {
	BookingCreated(ctx context.Context, b models.Booking)
	BookingStatusChanged(ctx context.Context, b models.Booking)
}

type noopNotifier struct{}

func (noopNotifier) BookingCreated(context.Context, models.Booking)       {}
func (noopNotifier) BookingStatusChanged(context.Context, models.Booking) {}

func notifierOr(n BookingNotifier) BookingNotifier {
	if n == nil {
		return noopNotifier{}
	}
	return n
}
