package services

import (
	"context"
	"errors"
	"fmt"

	"vagabond/internal/domain"
	"vagabond/internal/domain/models"
	"vagabond/internal/payments"
	"vagabond/internal/utils"
)

// PaymentService holds the reconciliation entry points: checkout creation,
// Stripe webhook push, PayPal capture, PayOS poll-then-save and the Stripe
// status lookup. Providers are looked up by name; all paths end in the
// provider-agnostic Materializer.
type PaymentService struct {
	Providers    *payments.Registry
	Quotes       QuoteService
	Availability AvailabilityService
	Materializer Materializer
	RequestID    string
}

// WebhookResult says what a webhook delivery did.
type WebhookResult struct {
	Ignored bool              `json:"ignored"`
	Result  MaterializeResult `json:"result"`
}

const (
	StatusSuccess  = "success"
	StatusPending  = "pending"
	StatusNotFound = "not_found"
)

type SettlementStatusResult struct {
	Status  string            `json:"status"`
	Type    models.TargetType `json:"type,omitempty"`
	Booking *models.Booking   `json:"booking,omitempty"`
}

func (s PaymentService) materializer() Materializer {
	m := s.Materializer
	m.RequestID = s.RequestID
	return m
}

func (s PaymentService) provider(name string) (payments.Provider, error) {
	if s.Providers == nil {
		return nil, fmt.Errorf("%w: %s", payments.ErrProviderUnavailable, name)
	}
	return s.Providers.Get(name)
}

// StartCheckout prices req, checks rooms (advisory) and opens a provider checkout.
// Nothing is persisted.
func (s PaymentService) StartCheckout(ctx context.Context, providerName string, req models.BookingRequest) (models.Checkout, error) {
	p, err := s.provider(providerName)
	if err != nil {
		return models.Checkout{}, err
	}
	quote, err := s.Quotes.QuoteExact(ctx, &req)
	if err != nil {
		return models.Checkout{}, err
	}
	if req.Type == models.TargetHotel {
		q := availabilityQueryFor(req.HotelID, req.RoomTypeID, req.RoomID, req.Checkin, req.Checkout, req.NumRooms)
		avail, err := s.Availability.Check(ctx, q)
		if err != nil {
			return models.Checkout{}, err
		}
		if !avail.Available {
			return models.Checkout{}, domain.InventoryExhaustedError{RoomID: req.RoomID, Requested: req.NumRooms, RoomsAvailable: avail.RoomsAvailable}
		}
	}
	if req.PaymentMethod == "" {
		req.PaymentMethod = p.Name()
	}

	checkout, err := p.CreateCheckout(ctx, req, quote.Label)
	if err != nil {
		utils.LogError(s.RequestID, "payment", "checkout", err, p.Name()+" checkout failed")
		return models.Checkout{}, err
	}
	utils.LogEvent(s.RequestID, "payment", "checkout", fmt.Sprintf("%s %s settlement=%s amount=%d", p.Name(), req.Type, checkout.SettlementID, checkout.Amount))
	return checkout, nil
}

// HandleStripeWebhook verifies and applies one Stripe delivery. Events other
// than a paid checkout.session.completed are acknowledged and ignored.
func (s PaymentService) HandleStripeWebhook(ctx context.Context, payload []byte, signature string) (WebhookResult, error) {
	p, err := s.provider(models.ProviderStripe)
	if err != nil {
		return WebhookResult{}, err
	}
	parser, ok := p.(payments.WebhookParser)
	if !ok {
		return WebhookResult{}, fmt.Errorf("%w: stripe webhooks", payments.ErrProviderUnavailable)
	}

	settlement, err := parser.ParseWebhook(payload, signature)
	if err != nil {
		utils.LogError(s.RequestID, "payment", "stripe_webhook", err, "rejected webhook")
		return WebhookResult{}, err
	}
	if settlement == nil || !settlement.Paid() {
		return WebhookResult{Ignored: true}, nil
	}
	if settlement.Request == nil {
		return WebhookResult{}, domain.ValidationError{Field: "metadata", Msg: "booking request missing"}
	}

	res, err := s.materializer().Materialize(ctx, *settlement, *settlement.Request)
	if err != nil {
		return WebhookResult{}, err
	}
	return WebhookResult{Result: res}, nil
}

// Confirm handles the client-driven paths (PayPal capture, PayOS save). The
// guard runs before the provider call so a retried confirm after success does
// not hit the provider again.
func (s PaymentService) Confirm(ctx context.Context, providerName, settlementID string, req models.BookingRequest) (MaterializeResult, error) {
	p, err := s.provider(providerName)
	if err != nil {
		return MaterializeResult{}, err
	}
	if settlementID == "" {
		return MaterializeResult{}, domain.ValidationError{Field: "settlementId", Msg: "required"}
	}

	guard := IdempotencyGuard{Bookings: s.Materializer.Bookings}
	if existing, found, err := guard.AlreadyMaterialized(ctx, p.Name(), settlementID); err != nil {
		return MaterializeResult{}, err
	} else if found {
		return MaterializeResult{Booking: existing, Duplicate: true}, nil
	}

	// the request comes from the client here, so it must price out exactly
	if _, err := s.Quotes.QuoteExact(ctx, &req); err != nil {
		return MaterializeResult{}, err
	}

	settlement, err := p.VerifySettlement(ctx, settlementID)
	if err != nil {
		utils.LogError(s.RequestID, "payment", "confirm", err, p.Name()+" verify failed for "+settlementID)
		return MaterializeResult{}, err
	}
	if !settlement.Paid() {
		return MaterializeResult{}, domain.SettlementNotConfirmedError{
			Provider:     p.Name(),
			SettlementID: settlementID,
			Status:       string(settlement.Status),
		}
	}
	if cm, ok := p.(payments.ChargeMatcher); ok && !cm.ChargeMatches(settlement, req.TotalPrice) {
		err := domain.ValidationError{Field: "totalPrice", Msg: "does not match the captured amount"}
		utils.LogError(s.RequestID, "payment", "confirm", err,
			fmt.Sprintf("%s %s captured %s %s for total %d, needs refund", p.Name(), settlementID, settlement.Charged, settlement.Currency, req.TotalPrice))
		return MaterializeResult{}, err
	}
	return s.materializer().Materialize(ctx, settlement, req)
}

// StripeBookingStatus reports the booking for a checkout session. When the
// webhook is late but Stripe already reports the session paid, the booking is
// materialized here from the session metadata.
func (s PaymentService) StripeBookingStatus(ctx context.Context, sessionID string) (SettlementStatusResult, error) {
	if sessionID == "" {
		return SettlementStatusResult{}, domain.ValidationError{Field: "session_id", Msg: "required"}
	}
	guard := IdempotencyGuard{Bookings: s.Materializer.Bookings}
	if existing, found, err := guard.AlreadyMaterialized(ctx, models.ProviderStripe, sessionID); err != nil {
		return SettlementStatusResult{}, err
	} else if found {
		return SettlementStatusResult{Status: StatusSuccess, Type: existing.Kind, Booking: &existing}, nil
	}

	p, err := s.provider(models.ProviderStripe)
	if err != nil {
		return SettlementStatusResult{}, err
	}
	settlement, err := p.VerifySettlement(ctx, sessionID)
	if err != nil {
		if domain.IsNotFound(err) {
			return SettlementStatusResult{Status: StatusNotFound}, nil
		}
		return SettlementStatusResult{}, err
	}
	if !settlement.Paid() || settlement.Request == nil {
		out := SettlementStatusResult{Status: StatusPending}
		if settlement.Request != nil {
			out.Type = settlement.Request.Type
		}
		return out, nil
	}

	res, err := s.materializer().Materialize(ctx, settlement, *settlement.Request)
	if err != nil {
		return SettlementStatusResult{}, err
	}
	return SettlementStatusResult{Status: StatusSuccess, Type: res.Booking.Kind, Booking: &res.Booking}, nil
}

// IsProviderUnavailable reports an unregistered provider.
func IsProviderUnavailable(err error) bool {
	return errors.Is(err, payments.ErrProviderUnavailable)
}
