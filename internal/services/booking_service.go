package services

import (
	"context"
	"strings"
	"time"

	"vagabond/internal/domain"
	"vagabond/internal/domain/models"
	"vagabond/internal/utils"

	"github.com/google/uuid"
)

// BookingService covers everything after (or instead of) payment: pay-later
// bookings, owner/admin reads, cancellation, admin status changes and the dashboard.
type BookingService struct {
	Tx        TxRunner
	Bookings  BookingStore
	Catalog   CatalogStore
	Notifier  BookingNotifier
	RequestID string
	NewID     func() string
	Now       func() time.Time
}

func (s BookingService) quotes() QuoteService {
	return QuoteService{Catalog: s.Catalog}
}

func (s BookingService) availability() AvailabilityService {
	return AvailabilityService{Catalog: s.Catalog}
}

func (s BookingService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return utils.NowUTC()
}

// CreateDirect stores a pending, unpaid booking. Hotel rooms are re-checked
// under the room lock; tour counters wait for admin confirmation.
func (s BookingService) CreateDirect(ctx context.Context, req models.BookingRequest) (models.Booking, error) {
	if _, err := s.quotes().QuoteExact(ctx, &req); err != nil {
		return models.Booking{}, err
	}
	id := uuid.NewString()
	if s.NewID != nil {
		id = s.NewID()
	}
	booking := models.BookingFromRequest(id, req, s.now())
	if booking.PaymentMethod == "" {
		booking.PaymentMethod = "pay_later"
	}

	err := s.Tx.RunInTx(ctx, func(ctx context.Context) error {
		if booking.Kind == models.TargetHotel {
			q := availabilityQueryFor(booking.HotelID, booking.RoomTypeID, booking.RoomID, booking.Checkin, booking.Checkout, booking.NumRooms)
			if err := s.availability().Reserve(ctx, q, "", ""); err != nil {
				return err
			}
		}
		return s.Bookings.Insert(ctx, booking)
	})
	if err != nil {
		return models.Booking{}, err
	}

	utils.LogEvent(s.RequestID, "booking", "create_direct", "created pending "+string(booking.Kind)+" booking "+booking.ID)
	notifierOr(s.Notifier).BookingCreated(ctx, booking)
	return booking, nil
}

// Get returns a booking visible to rc. Guest bookings are reachable by id.
func (s BookingService) Get(ctx context.Context, rc domain.RequestContext, id string) (models.Booking, error) {
	b, err := s.Bookings.GetByID(ctx, id)
	if err != nil {
		return models.Booking{}, err
	}
	if b.UserID != "" && !rc.IsAdmin() && !b.OwnedBy(rc.UserID) {
		return models.Booking{}, domain.ForbiddenError{Msg: "not your booking"}
	}
	return b, nil
}

func (s BookingService) ListMine(ctx context.Context, rc domain.RequestContext, f models.BookingFilter) ([]models.Booking, domain.Pagination, error) {
	if rc.Anonymous() {
		return nil, domain.Pagination{}, domain.UnauthorizedError{}
	}
	f.UserID = rc.UserID
	return s.list(ctx, f)
}

func (s BookingService) ListAll(ctx context.Context, rc domain.RequestContext, f models.BookingFilter) ([]models.Booking, domain.Pagination, error) {
	if !rc.IsAdmin() {
		return nil, domain.Pagination{}, domain.ForbiddenError{Msg: "admin only"}
	}
	return s.list(ctx, f)
}

func (s BookingService) list(ctx context.Context, f models.BookingFilter) ([]models.Booking, domain.Pagination, error) {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize < 1 || f.PageSize > 100 {
		f.PageSize = 20
	}
	items, total, err := s.Bookings.List(ctx, f)
	if err != nil {
		return nil, domain.Pagination{}, err
	}
	return items, domain.Pagination{Page: f.Page, PageSize: f.PageSize, Total: total}, nil
}

// Cancel moves a booking to cancelled. Rooms are freed at once because the
// availability sum skips cancelled rows. Tour counters stay as they are.
func (s BookingService) Cancel(ctx context.Context, rc domain.RequestContext, id string) (models.Booking, error) {
	b, err := s.Bookings.GetByID(ctx, id)
	if err != nil {
		return models.Booking{}, err
	}
	if !rc.IsAdmin() && !b.OwnedBy(rc.UserID) {
		return models.Booking{}, domain.ForbiddenError{Msg: "not your booking"}
	}
	if b.BookingStatus == models.BookingCancelled {
		return b, nil
	}

	cancelled := models.BookingCancelled
	if err := s.Bookings.Update(ctx, b.ID, models.BookingUpdate{BookingStatus: &cancelled}); err != nil {
		return models.Booking{}, err
	}
	b.BookingStatus = cancelled
	b.UpdatedAt = s.now()

	utils.LogEvent(s.RequestID, "booking", "cancel", "cancelled booking "+b.ID)
	notifierOr(s.Notifier).BookingStatusChanged(ctx, b)
	return b, nil
}

// UpdateStatus is the admin transition. Re-activating a cancelled hotel
// booking needs the rooms back; confirming a tour booking applies its
// counters once.
func (s BookingService) UpdateStatus(ctx context.Context, rc domain.RequestContext, id string, status models.BookingStatus) (models.Booking, error) {
	if !rc.IsAdmin() {
		return models.Booking{}, domain.ForbiddenError{Msg: "admin only"}
	}
	status = models.BookingStatus(strings.ToLower(strings.TrimSpace(string(status))))
	if !status.Valid() {
		return models.Booking{}, domain.ValidationError{Field: "bookingStatus", Msg: "must be pending, confirmed or cancelled"}
	}

	var out models.Booking
	err := s.Tx.RunInTx(ctx, func(ctx context.Context) error {
		b, err := s.Bookings.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if b.BookingStatus == status {
			out = b
			return nil
		}

		upd := models.BookingUpdate{BookingStatus: &status}
		if b.Kind == models.TargetHotel && !b.BookingStatus.Active() && status.Active() {
			q := availabilityQueryFor(b.HotelID, b.RoomTypeID, b.RoomID, b.Checkin, b.Checkout, b.NumRooms)
			if err := s.availability().Reserve(ctx, q, b.ID, b.SettlementID); err != nil {
				return err
			}
		}
		if b.Kind == models.TargetTour && status == models.BookingConfirmed && !b.CountersApplied {
			claimed, err := s.Bookings.ClaimCounters(ctx, b.ID)
			if err != nil {
				return err
			}
			if claimed {
				if err := s.Catalog.IncrementTourCounters(ctx, b.TourID, b.TicketID, b.TicketCount()); err != nil {
					return err
				}
			}
			b.CountersApplied = true
		}
		if err := s.Bookings.Update(ctx, b.ID, upd); err != nil {
			return err
		}
		b.BookingStatus = status
		b.UpdatedAt = s.now()
		out = b
		return nil
	})
	if err != nil {
		return models.Booking{}, err
	}

	utils.LogEvent(s.RequestID, "booking", "update_status", "booking "+out.ID+" -> "+string(out.BookingStatus))
	notifierOr(s.Notifier).BookingStatusChanged(ctx, out)
	return out, nil
}

func (s BookingService) Delete(ctx context.Context, rc domain.RequestContext, id string) error {
	if !rc.IsAdmin() {
		return domain.ForbiddenError{Msg: "admin only"}
	}
	if err := s.Bookings.Delete(ctx, id); err != nil {
		return err
	}
	utils.LogEvent(s.RequestID, "booking", "delete", "deleted booking "+id)
	return nil
}

// Dashboard summarizes bookings created in the period: week, month, year or all.
func (s BookingService) Dashboard(ctx context.Context, rc domain.RequestContext, period string) (models.BookingSummary, error) {
	if !rc.IsAdmin() {
		return models.BookingSummary{}, domain.ForbiddenError{Msg: "admin only"}
	}
	now := s.now()
	var since time.Time
	switch strings.ToLower(strings.TrimSpace(period)) {
	case "", "month":
		since = now.AddDate(0, -1, 0)
	case "week":
		since = now.AddDate(0, 0, -7)
	case "year":
		since = now.AddDate(-1, 0, 0)
	case "all":
		since = time.Unix(0, 0).UTC()
	default:
		return models.BookingSummary{}, domain.ValidationError{Field: "period", Msg: "must be week, month, year or all"}
	}
	return s.Bookings.Summary(ctx, since)
}
