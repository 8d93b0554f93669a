package payments

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"vagabond/internal/domain"
	"vagabond/internal/domain/models"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"
	"github.com/stripe/stripe-go/v79/webhook"
)

const stripeSessionCompleted = "checkout.session.completed"

// checkoutSessions is the slice of the Stripe client we use; *session.Client satisfies it.
type checkoutSessions interface {
	New(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
	Get(id string, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
}

type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
	Currency      string
	ClientURL     string
	Timeout       time.Duration
}

// Stripe uses hosted Checkout Sessions. The session id is the settlement id and
// the booking request rides in the session metadata.
type Stripe struct {
	sessions      checkoutSessions
	webhookSecret string
	currency      string
	clientURL     string
}

func NewStripe(cfg StripeConfig) *Stripe {
	sc := &client.API{}
	sc.Init(cfg.SecretKey, stripe.NewBackends(&http.Client{Timeout: cfg.Timeout}))
	return newStripe(sc.CheckoutSessions, cfg)
}

func newStripe(sessions checkoutSessions, cfg StripeConfig) *Stripe {
	currency := cfg.Currency
	if currency == "" {
		currency = "vnd"
	}
	return &Stripe{
		sessions:      sessions,
		webhookSecret: cfg.WebhookSecret,
		currency:      currency,
		clientURL:     cfg.ClientURL,
	}
}

func (s *Stripe) Name() string { return models.ProviderStripe }

func (s *Stripe) CreateCheckout(ctx context.Context, req models.BookingRequest, label string) (models.Checkout, error) {
	metadata, err := EncodeMetadata(req)
	if err != nil {
		return models.Checkout{}, err
	}

	params := &stripe.CheckoutSessionParams{
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency: stripe.String(s.currency),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(label),
					},
					UnitAmount: stripe.Int64(req.TotalPrice),
				},
				Quantity: stripe.Int64(1),
			},
		},
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL: stripe.String(s.clientURL + "/checkout-stripe-success?session_id={CHECKOUT_SESSION_ID}"),
		CancelURL:  stripe.String(CancelURL(s.clientURL, req)),
	}
	params.Metadata = metadata
	params.Context = ctx

	sess, err := s.sessions.New(params)
	if err != nil {
		return models.Checkout{}, mapStripeError("create session", err)
	}
	return models.Checkout{
		Provider:     models.ProviderStripe,
		SettlementID: sess.ID,
		RedirectURL:  sess.URL,
		Amount:       req.TotalPrice,
	}, nil
}

// VerifySettlement reads the session back from Stripe. The decoded booking
// request is attached when the metadata is intact.
func (s *Stripe) VerifySettlement(ctx context.Context, settlementID string) (models.Settlement, error) {
	if settlementID == "" {
		return models.Settlement{}, domain.ValidationError{Field: "session_id", Msg: "required"}
	}
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx
	sess, err := s.sessions.Get(settlementID, params)
	if err != nil {
		return models.Settlement{}, mapStripeError("get session", err)
	}
	return settlementFromSession(sess), nil
}

// ParseWebhook verifies the Stripe-Signature header before looking at the
// payload. Only checkout.session.completed yields a settlement.
func (s *Stripe) ParseWebhook(payload []byte, signatureHeader string) (*models.Settlement, error) {
	event, err := webhook.ConstructEventWithOptions(payload, signatureHeader, s.webhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, domain.SignatureError{Err: err}
	}
	if string(event.Type) != stripeSessionCompleted || event.Data == nil {
		return nil, nil
	}

	var sess stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		return nil, domain.ValidationError{Field: "event.data", Msg: "not a checkout session", Err: err}
	}
	settlement := settlementFromSession(&sess)
	if settlement.Request == nil {
		if _, err := DecodeMetadata(sess.Metadata); err != nil {
			return nil, err
		}
	}
	return &settlement, nil
}

func settlementFromSession(sess *stripe.CheckoutSession) models.Settlement {
	out := models.Settlement{
		Provider: models.ProviderStripe,
		ID:       sess.ID,
		Amount:   sess.AmountTotal,
		Status:   models.SettlementPending,
	}
	switch {
	case sess.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid,
		sess.PaymentStatus == stripe.CheckoutSessionPaymentStatusNoPaymentRequired:
		out.Status = models.SettlementPaid
	case sess.Status == stripe.CheckoutSessionStatusExpired:
		out.Status = models.SettlementFailed
	}
	if req, err := DecodeMetadata(sess.Metadata); err == nil {
		out.Request = &req
	}
	return out
}

func mapStripeError(op string, err error) error {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		if stripeErr.HTTPStatusCode == http.StatusNotFound {
			return domain.NotFoundError{Resource: "stripe session", Err: err}
		}
		if stripeErr.HTTPStatusCode == http.StatusBadRequest {
			return domain.ValidationError{Field: "stripe", Msg: stripeErr.Msg, Err: err}
		}
	}
	return domain.ProviderError{Provider: models.ProviderStripe, Op: op, Err: err}
}
