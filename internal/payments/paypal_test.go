package payments

import (
	"context"
	"errors"
	"testing"

	"vagabond/internal/domain"
	"vagabond/internal/domain/models"

	"github.com/plutov/paypal/v4"
)

type fakePayPal struct {
	units   []paypal.PurchaseUnitRequest
	appCtx  *paypal.ApplicationContext
	order   *paypal.Order
	capture *paypal.CaptureOrderResponse
	capErr  error
	getErr  error
}

func (f *fakePayPal) CreateOrder(ctx context.Context, intent string, units []paypal.PurchaseUnitRequest, paymentSource *paypal.PaymentSource, appCtx *paypal.ApplicationContext) (*paypal.Order, error) {
	f.units = units
	f.appCtx = appCtx
	return f.order, nil
}

func (f *fakePayPal) CaptureOrder(ctx context.Context, orderID string, req paypal.CaptureOrderRequest) (*paypal.CaptureOrderResponse, error) {
	if f.capErr != nil {
		return nil, f.capErr
	}
	return f.capture, nil
}

func (f *fakePayPal) GetOrder(ctx context.Context, orderID string) (*paypal.Order, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.order, nil
}

func TestPayPalCreateCheckoutConvertsToUSD(t *testing.T) {
	f := &fakePayPal{order: &paypal.Order{
		ID:    "ORDER-1",
		Links: []paypal.Link{{Rel: "self", Href: "https://api/self"}, {Rel: "approve", Href: "https://paypal/approve"}},
	}}
	p := newPayPal(f, PayPalConfig{VNDPerUSD: 25000, ClientURL: "http://app"})

	req := sampleTourRequest()
	req.TotalPrice = 1250000
	out, err := p.CreateCheckout(context.Background(), req, "Day cruise")
	if err != nil {
		t.Fatalf("CreateCheckout returned error: %v", err)
	}
	if out.SettlementID != "ORDER-1" || out.RedirectURL != "https://paypal/approve" {
		t.Fatalf("unexpected checkout: %+v", out)
	}
	if f.units[0].Amount.Value != "50.00" || f.units[0].Amount.Currency != "USD" {
		t.Fatalf("amount not converted: %+v", f.units[0].Amount)
	}
	if f.appCtx.ReturnURL != "http://app/tour-checkout-success" {
		t.Fatalf("return url = %s", f.appCtx.ReturnURL)
	}
}

func TestPayPalCreateCheckoutRejectsZeroAmount(t *testing.T) {
	p := newPayPal(&fakePayPal{}, PayPalConfig{})
	req := sampleTourRequest()
	req.TotalPrice = 0
	if _, err := p.CreateCheckout(context.Background(), req, "x"); !domain.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestPayPalVerifySettlement(t *testing.T) {
	cases := []struct {
		name    string
		fake    *fakePayPal
		want    models.SettlementStatus
		provErr bool
	}{
		{"captured", &fakePayPal{capture: &paypal.CaptureOrderResponse{Status: "COMPLETED"}}, models.SettlementPaid, false},
		{"pending capture", &fakePayPal{capture: &paypal.CaptureOrderResponse{Status: "PENDING"}}, models.SettlementPending, false},
		{"already captured", &fakePayPal{capErr: errors.New("ORDER_ALREADY_CAPTURED"), order: &paypal.Order{Status: "COMPLETED"}}, models.SettlementPaid, false},
		{"not approved", &fakePayPal{capErr: errors.New("ORDER_NOT_APPROVED"), order: &paypal.Order{Status: "CREATED"}}, "", true},
		{"network down", &fakePayPal{capErr: errors.New("timeout"), getErr: errors.New("timeout")}, "", true},
	}
	for _, tc := range cases {
		got, err := newPayPal(tc.fake, PayPalConfig{}).VerifySettlement(context.Background(), "ORDER-1")
		if tc.provErr {
			if !domain.IsProvider(err) {
				t.Fatalf("%s: expected provider error, got %v", tc.name, err)
			}
			continue
		}
		if err != nil {
			t.Fatalf("%s: unexpected error %v", tc.name, err)
		}
		if got.Status != tc.want {
			t.Fatalf("%s: status %s, want %s", tc.name, got.Status, tc.want)
		}
	}
}

func usdCapture(status, value string) *paypal.CapturedPayments {
	return &paypal.CapturedPayments{Captures: []paypal.CaptureAmount{
		{Status: status, Amount: &paypal.PurchaseUnitAmount{Currency: "USD", Value: value}},
	}}
}

func TestPayPalSettlementCarriesCapturedAmount(t *testing.T) {
	p := newPayPal(&fakePayPal{capture: &paypal.CaptureOrderResponse{
		Status:        "COMPLETED",
		PurchaseUnits: []paypal.CapturedPurchaseUnit{{Payments: usdCapture("COMPLETED", "1.00")}},
	}}, PayPalConfig{VNDPerUSD: 25000})

	got, err := p.VerifySettlement(context.Background(), "ORDER-1")
	if err != nil {
		t.Fatalf("VerifySettlement returned error: %v", err)
	}
	if got.Currency != "USD" || got.Charged != "1.00" {
		t.Fatalf("captured amount not reported: %+v", got)
	}
	if !p.ChargeMatches(got, 25000) {
		t.Fatalf("1.00 USD should pay 25000 VND")
	}
	if p.ChargeMatches(got, 70000000) {
		t.Fatalf("1.00 USD must not pay 70000000 VND")
	}

	// already captured: the amount comes from the order instead
	p = newPayPal(&fakePayPal{capErr: errors.New("ORDER_ALREADY_CAPTURED"), order: &paypal.Order{
		Status:        "COMPLETED",
		PurchaseUnits: []paypal.PurchaseUnit{{Payments: usdCapture("COMPLETED", "50.00")}},
	}}, PayPalConfig{VNDPerUSD: 25000})
	got, err = p.VerifySettlement(context.Background(), "ORDER-1")
	if err != nil {
		t.Fatalf("VerifySettlement returned error: %v", err)
	}
	if !p.ChargeMatches(got, 1250000) {
		t.Fatalf("expected 50.00 USD to pay 1250000 VND, got %+v", got)
	}
}

func TestPayPalChargeMatchesRejectsMissingAmount(t *testing.T) {
	p := newPayPal(&fakePayPal{}, PayPalConfig{VNDPerUSD: 25000})
	cases := []models.Settlement{
		{Status: models.SettlementPaid},
		{Status: models.SettlementPaid, Currency: "EUR", Charged: "1.00"},
		{Status: models.SettlementPaid, Currency: "USD", Charged: "abc"},
	}
	for _, s := range cases {
		if p.ChargeMatches(s, 25000) {
			t.Fatalf("expected mismatch for %+v", s)
		}
	}
}
