package services

import (
	"context"
	"errors"
	"time"

	"vagabond/internal/domain"
	"vagabond/internal/domain/models"
	"vagabond/internal/utils"

	"github.com/google/uuid"
)

// IdempotencyGuard answers whether a settlement already produced a booking.
// The unique (provider, settlement) key in storage is what actually enforces
// it; this lookup only saves work.
type IdempotencyGuard struct {
	Bookings BookingStore
}

func (g IdempotencyGuard) AlreadyMaterialized(ctx context.Context, provider, settlementID string) (models.Booking, bool, error) {
	return g.Bookings.FindBySettlement(ctx, provider, settlementID)
}

type MaterializeResult struct {
	Booking models.Booking `json:"booking"`
	// Duplicate is set when the settlement had been materialized before.
	Duplicate bool `json:"duplicate"`
}

// Materializer turns a paid settlement into exactly one confirmed booking.
type Materializer struct {
	Tx        TxRunner
	Bookings  BookingStore
	Catalog   CatalogStore
	Notifier  BookingNotifier
	RequestID string
	NewID     func() string
	Now       func() time.Time
}

func (m Materializer) guard() IdempotencyGuard {
	return IdempotencyGuard{Bookings: m.Bookings}
}

// Materialize is safe to call any number of times, concurrently, for the same
// settlement. Every call after the first returns the stored booking with
// Duplicate set.
func (m Materializer) Materialize(ctx context.Context, settlement models.Settlement, req models.BookingRequest) (MaterializeResult, error) {
	if settlement.ID == "" || settlement.Provider == "" {
		return MaterializeResult{}, domain.ValidationError{Field: "settlementId", Msg: "required"}
	}
	if !settlement.Paid() {
		return MaterializeResult{}, domain.SettlementNotConfirmedError{
			Provider:     settlement.Provider,
			SettlementID: settlement.ID,
			Status:       string(settlement.Status),
		}
	}

	if existing, found, err := m.guard().AlreadyMaterialized(ctx, settlement.Provider, settlement.ID); err != nil {
		return MaterializeResult{}, err
	} else if found {
		utils.LogEvent(m.RequestID, "booking", "materialize", "duplicate settlement "+settlement.Provider+":"+settlement.ID)
		return MaterializeResult{Booking: existing, Duplicate: true}, nil
	}

	if settlement.Amount > 0 && req.TotalPrice > 0 && settlement.Amount != req.TotalPrice {
		return MaterializeResult{}, domain.ValidationError{Field: "totalPrice", Msg: "does not match the settled amount"}
	}
	if _, err := (QuoteService{Catalog: m.Catalog}).Quote(ctx, req); err != nil {
		return MaterializeResult{}, err
	}

	booking := models.BookingFromRequest(m.newID(), req, m.now())
	booking.PaymentProvider = settlement.Provider
	booking.SettlementID = settlement.ID
	booking.PaymentStatus = models.PaymentPaid
	booking.BookingStatus = models.BookingConfirmed
	if booking.PaymentMethod == "" {
		booking.PaymentMethod = settlement.Provider
	}
	if booking.TotalPrice == 0 {
		booking.TotalPrice = settlement.Amount
	}

	var duplicate models.Booking
	var isDuplicate bool
	err := m.Tx.RunInTx(ctx, func(ctx context.Context) error {
		existing, found, err := m.guard().AlreadyMaterialized(ctx, settlement.Provider, settlement.ID)
		if err != nil {
			return err
		}
		if found {
			duplicate, isDuplicate = existing, true
			return nil
		}

		switch booking.Kind {
		case models.TargetHotel:
			q := availabilityQueryFor(booking.HotelID, booking.RoomTypeID, booking.RoomID, booking.Checkin, booking.Checkout, booking.NumRooms)
			if err := (AvailabilityService{Catalog: m.Catalog}).Reserve(ctx, q, "", settlement.ID); err != nil {
				if !domain.IsInventoryExhausted(err) {
					return err
				}
				// a concurrent delivery of this settlement may hold the rooms;
				// the room lock is held now, so its commit is visible
				existing, found, gerr := m.guard().AlreadyMaterialized(ctx, settlement.Provider, settlement.ID)
				if gerr != nil {
					return gerr
				}
				if !found {
					return err
				}
				duplicate, isDuplicate = existing, true
				return nil
			}
			return m.Bookings.Insert(ctx, booking)
		case models.TargetTour:
			booking.CountersApplied = true
			// insert first: a duplicate settlement must fail before any counter moves
			if err := m.Bookings.Insert(ctx, booking); err != nil {
				return err
			}
			return m.Catalog.IncrementTourCounters(ctx, booking.TourID, booking.TicketID, booking.TicketCount())
		}
		return domain.ValidationError{Field: "type", Msg: "must be tour or hotel"}
	})

	if errors.Is(err, domain.ErrDuplicateSettlement) {
		existing, found, lookupErr := m.guard().AlreadyMaterialized(ctx, settlement.Provider, settlement.ID)
		if lookupErr != nil {
			return MaterializeResult{}, lookupErr
		}
		if !found {
			return MaterializeResult{}, domain.InternalError{Msg: "duplicate settlement without booking", Err: err}
		}
		return MaterializeResult{Booking: existing, Duplicate: true}, nil
	}
	if err != nil {
		if domain.IsInventoryExhausted(err) {
			utils.LogError(m.RequestID, "booking", "materialize", err, "paid settlement "+settlement.Provider+":"+settlement.ID+" needs refund")
		}
		return MaterializeResult{}, err
	}
	if isDuplicate {
		return MaterializeResult{Booking: duplicate, Duplicate: true}, nil
	}

	utils.LogEvent(m.RequestID, "booking", "materialize", "created "+string(booking.Kind)+" booking "+booking.ID+" for "+settlement.Provider+":"+settlement.ID)
	notifierOr(m.Notifier).BookingCreated(ctx, booking)
	return MaterializeResult{Booking: booking}, nil
}

func (m Materializer) newID() string {
	if m.NewID != nil {
		return m.NewID()
	}
	return uuid.NewString()
}

func (m Materializer) now() time.Time {
	if m.Now != nil {
		return m.Now()
	}
	return utils.NowUTC()
}
