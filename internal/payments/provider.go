package payments

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"

	"vagabond/internal/domain/models"
)

// ErrProviderUnavailable is returned for a provider that was never registered,
// usually because its credentials are not configured.
var ErrProviderUnavailable = errors.New("payment provider not configured")

// Provider is one external payment service. Adapters never touch storage.
type Provider interface {
	Name() string
	// CreateCheckout opens a provider-side session/order for req. label is the
	// line-item text shown to the customer.
	CreateCheckout(ctx context.Context, req models.BookingRequest, label string) (models.Checkout, error)
	// VerifySettlement asks the provider whether settlementID was paid. For
	// PayPal this is the capture call itself.
	VerifySettlement(ctx context.Context, settlementID string) (models.Settlement, error)
}

// WebhookParser is implemented by providers that push settlements.
// A nil settlement with nil error means the event is not one we act on.
type WebhookParser interface {
	ParseWebhook(payload []byte, signatureHeader string) (*models.Settlement, error)
}

// ChargeMatcher is implemented by providers that charge in a currency other
// than VND. It reports whether a settlement's charged amount pays total.
type ChargeMatcher interface {
	ChargeMatches(s models.Settlement, total int64) bool
}

type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
}

func NewRegistry(providers ...Provider) *Registry {
	r := &Registry{providers: map[string]Provider{}}
	for _, p := range providers {
		r.Register(p)
	}
	return r
}

func (r *Registry) Register(p Provider) {
	if p == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[strings.ToLower(p.Name())] = p
}

func (r *Registry) Get(name string) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrProviderUnavailable, name)
	}
	return p, nil
}

// Names lists registered providers, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.providers))
	for name := range r.providers {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// CancelURL sends the customer back to the page they started from. Hotel
// pages get their search parameters back so the form is pre-filled.
func CancelURL(clientURL string, req models.BookingRequest) string {
	if req.Type == models.TargetHotel {
		q := url.Values{}
		q.Set("checkIn", req.Checkin.String())
		q.Set("checkOut", req.Checkout.String())
		q.Set("rooms", strconv.Itoa(req.NumRooms))
		q.Set("adults", strconv.Itoa(req.NumGuests))
		q.Set("roomTypeId", req.RoomTypeID)
		q.Set("roomId", req.RoomID)
		return clientURL + "/hotels/" + url.PathEscape(req.HotelID) + "?" + q.Encode()
	}
	return clientURL + "/tour/" + url.PathEscape(req.TourID)
}
