package events

import (
	"context"
	"time"

	"vagabond/internal/domain/models"
	"vagabond/internal/utils"
)

const (
	TypeBookingCreated   = "booking.created"
	TypeBookingConfirmed = "booking.confirmed"
	TypeBookingCancelled = "booking.cancelled"
	TypeBookingPending   = "booking.pending"
)

// BookingEvent is the payload published for every committed booking change.
type BookingEvent struct {
	Type            string               `json:"type"`
	BookingID       string               `json:"bookingId"`
	Kind            models.TargetType    `json:"kind"`
	UserID          string               `json:"userId,omitempty"`
	BookingStatus   models.BookingStatus `json:"bookingStatus"`
	PaymentStatus   models.PaymentStatus `json:"paymentStatus"`
	PaymentProvider string               `json:"paymentProvider,omitempty"`
	SettlementID    string               `json:"settlementId,omitempty"`
	TotalPrice      int64                `json:"totalPrice"`
	OccurredAt      time.Time            `json:"occurredAt"`
}

func newBookingEvent(eventType string, b models.Booking, at time.Time) BookingEvent {
	return BookingEvent{
		Type:            eventType,
		BookingID:       b.ID,
		Kind:            b.Kind,
		UserID:          b.UserID,
		BookingStatus:   b.BookingStatus,
		PaymentStatus:   b.PaymentStatus,
		PaymentProvider: b.PaymentProvider,
		SettlementID:    b.SettlementID,
		TotalPrice:      b.TotalPrice,
		OccurredAt:      at,
	}
}

// LiveFeed receives events for connected admin sessions.
type LiveFeed interface {
	BroadcastBooking(ev BookingEvent)
}

// Dispatcher fans committed booking changes out to Kafka and the live feed.
// Both sinks are optional. Failures are logged and never returned: the
// booking is already committed when it runs.
type Dispatcher struct {
	Publisher Publisher
	Feed      LiveFeed
	Timeout   time.Duration
	Now       func() time.Time
}

func (d Dispatcher) BookingCreated(ctx context.Context, b models.Booking) {
	eventType := TypeBookingPending
	if b.BookingStatus == models.BookingConfirmed {
		eventType = TypeBookingConfirmed
	}
	ev := newBookingEvent(eventType, b, d.now())
	if d.Feed != nil {
		created := ev
		created.Type = TypeBookingCreated
		d.Feed.BroadcastBooking(created)
	}
	d.publish(ctx, ev)
}

func (d Dispatcher) BookingStatusChanged(ctx context.Context, b models.Booking) {
	var eventType string
	switch b.BookingStatus {
	case models.BookingConfirmed:
		eventType = TypeBookingConfirmed
	case models.BookingCancelled:
		eventType = TypeBookingCancelled
	default:
		eventType = TypeBookingPending
	}
	ev := newBookingEvent(eventType, b, d.now())
	if d.Feed != nil {
		d.Feed.BroadcastBooking(ev)
	}
	d.publish(ctx, ev)
}

func (d Dispatcher) publish(ctx context.Context, ev BookingEvent) {
	if d.Publisher == nil {
		return
	}
	timeout := d.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	// detached from the request so a client hang-up does not drop the event
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()
	if err := d.Publisher.Publish(ctx, ev.BookingID, ev); err != nil {
		utils.LogError("", "events", "publish", err, ev.Type+" "+ev.BookingID)
		return
	}
	utils.LogEvent("", "events", "publish", ev.Type+" "+ev.BookingID)
}

func (d Dispatcher) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return utils.NowUTC()
}
