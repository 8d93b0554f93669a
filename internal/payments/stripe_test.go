package payments

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"vagabond/internal/domain"
	"vagabond/internal/domain/models"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/webhook"
)

const testWebhookSecret = "whsec_test_secret"

type fakeSessions struct {
	created *stripe.CheckoutSessionParams
	session *stripe.CheckoutSession
	err     error
}

func (f *fakeSessions) New(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	f.created = params
	if f.err != nil {
		return nil, f.err
	}
	return &stripe.CheckoutSession{ID: "cs_test_1", URL: "https://checkout.stripe.com/c/cs_test_1"}, nil
}

func (f *fakeSessions) Get(id string, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.session, nil
}

func newTestStripe(f *fakeSessions) *Stripe {
	return newStripe(f, StripeConfig{WebhookSecret: testWebhookSecret, ClientURL: "http://app"})
}

func signedEvent(t *testing.T, eventType string, sess map[string]any, secret string) ([]byte, string) {
	t.Helper()
	payload, err := json.Marshal(map[string]any{
		"id":          "evt_1",
		"object":      "event",
		"type":        eventType,
		"api_version": "2019-01-01",
		"data":        map[string]any{"object": sess},
	})
	if err != nil {
		t.Fatalf("marshal event: %v", err)
	}
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    secret,
		Timestamp: time.Now(),
	})
	return signed.Payload, signed.Header
}

func TestStripeCreateCheckoutEmbedsRequest(t *testing.T) {
	f := &fakeSessions{}
	s := newTestStripe(f)

	out, err := s.CreateCheckout(context.Background(), sampleHotelRequest(), "Sea View - Deluxe")
	if err != nil {
		t.Fatalf("CreateCheckout returned error: %v", err)
	}
	if out.SettlementID != "cs_test_1" || out.RedirectURL == "" {
		t.Fatalf("unexpected checkout: %+v", out)
	}
	if f.created.Metadata["roomId"] != "room-1" || f.created.Metadata["type"] != "hotel" {
		t.Fatalf("metadata not attached: %v", f.created.Metadata)
	}
	if *f.created.LineItems[0].PriceData.UnitAmount != 2400000 || *f.created.LineItems[0].PriceData.Currency != "vnd" {
		t.Fatalf("line item amount wrong")
	}
	if f.created.Context == nil {
		t.Fatalf("request context must be propagated")
	}
}

func TestStripeCreateCheckoutProviderFailure(t *testing.T) {
	s := newTestStripe(&fakeSessions{err: &stripe.Error{HTTPStatusCode: http.StatusServiceUnavailable, Msg: "down"}})
	_, err := s.CreateCheckout(context.Background(), sampleTourRequest(), "Ticket")
	if !domain.IsProvider(err) {
		t.Fatalf("expected provider error, got %v", err)
	}
}

func TestStripeParseWebhookCompletedSession(t *testing.T) {
	meta, _ := EncodeMetadata(sampleTourRequest())
	payload, header := signedEvent(t, "checkout.session.completed", map[string]any{
		"id":             "cs_test_9",
		"object":         "checkout.session",
		"payment_status": "paid",
		"status":         "complete",
		"amount_total":   1250000,
		"metadata":       meta,
	}, testWebhookSecret)

	settlement, err := newTestStripe(&fakeSessions{}).ParseWebhook(payload, header)
	if err != nil {
		t.Fatalf("ParseWebhook returned error: %v", err)
	}
	if settlement == nil || !settlement.Paid() || settlement.ID != "cs_test_9" {
		t.Fatalf("unexpected settlement: %+v", settlement)
	}
	if settlement.Request == nil || settlement.Request.TicketID != "ticket-1" {
		t.Fatalf("booking request not rebuilt from metadata")
	}
}

func TestStripeParseWebhookRejectsBadSignature(t *testing.T) {
	meta, _ := EncodeMetadata(sampleTourRequest())
	payload, header := signedEvent(t, "checkout.session.completed", map[string]any{
		"id": "cs_test_9", "object": "checkout.session", "payment_status": "paid", "metadata": meta,
	}, "whsec_someone_else")

	settlement, err := newTestStripe(&fakeSessions{}).ParseWebhook(payload, header)
	if !domain.IsSignature(err) || settlement != nil {
		t.Fatalf("expected signature error, got %v %+v", err, settlement)
	}
}

func TestStripeParseWebhookIgnoresOtherEvents(t *testing.T) {
	payload, header := signedEvent(t, "payment_intent.created", map[string]any{"id": "pi_1", "object": "payment_intent"}, testWebhookSecret)
	settlement, err := newTestStripe(&fakeSessions{}).ParseWebhook(payload, header)
	if err != nil || settlement != nil {
		t.Fatalf("expected ignored event, got %v %+v", err, settlement)
	}
}

func TestStripeVerifySettlementStatuses(t *testing.T) {
	meta, _ := EncodeMetadata(sampleHotelRequest())
	cases := []struct {
		session *stripe.CheckoutSession
		want    models.SettlementStatus
	}{
		{&stripe.CheckoutSession{ID: "cs_1", PaymentStatus: stripe.CheckoutSessionPaymentStatusPaid, Metadata: meta}, models.SettlementPaid},
		{&stripe.CheckoutSession{ID: "cs_2", PaymentStatus: stripe.CheckoutSessionPaymentStatusUnpaid, Status: stripe.CheckoutSessionStatusOpen}, models.SettlementPending},
		{&stripe.CheckoutSession{ID: "cs_3", PaymentStatus: stripe.CheckoutSessionPaymentStatusUnpaid, Status: stripe.CheckoutSessionStatusExpired}, models.SettlementFailed},
	}
	for _, tc := range cases {
		got, err := newTestStripe(&fakeSessions{session: tc.session}).VerifySettlement(context.Background(), tc.session.ID)
		if err != nil {
			t.Fatalf("%s: VerifySettlement returned error: %v", tc.session.ID, err)
		}
		if got.Status != tc.want {
			t.Fatalf("%s: status %s, want %s", tc.session.ID, got.Status, tc.want)
		}
	}
}

func TestStripeVerifySettlementUnknownSession(t *testing.T) {
	s := newTestStripe(&fakeSessions{err: &stripe.Error{HTTPStatusCode: http.StatusNotFound}})
	_, err := s.VerifySettlement(context.Background(), "cs_missing")
	if !domain.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
	var pe domain.ProviderError
	if errors.As(err, &pe) {
		t.Fatalf("404 must not be reported as a provider outage")
	}
}
