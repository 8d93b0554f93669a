package payments

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"vagabond/internal/domain"
	"vagabond/internal/domain/models"
	"vagabond/internal/utils"

	"github.com/plutov/paypal/v4"
)

const paypalCompleted = "COMPLETED"

// paypalOrders is the part of *paypal.Client we call. The client fetches and
// refreshes the OAuth2 client-credentials token on its own.
type paypalOrders interface {
	CreateOrder(ctx context.Context, intent string, purchaseUnits []paypal.PurchaseUnitRequest, paymentSource *paypal.PaymentSource, appContext *paypal.ApplicationContext) (*paypal.Order, error)
	CaptureOrder(ctx context.Context, orderID string, captureOrderRequest paypal.CaptureOrderRequest) (*paypal.CaptureOrderResponse, error)
	GetOrder(ctx context.Context, orderID string) (*paypal.Order, error)
}

type PayPalConfig struct {
	ClientID     string
	ClientSecret string
	// Mode is "live" or anything else for sandbox.
	Mode      string
	VNDPerUSD float64
	ClientURL string
	Timeout   time.Duration
}

// PayPal charges in USD; VND totals are converted at a fixed rate. The order
// id is the settlement id.
type PayPal struct {
	orders    paypalOrders
	vndPerUSD float64
	clientURL string
}

func NewPayPal(cfg PayPalConfig) (*PayPal, error) {
	base := paypal.APIBaseSandBox
	if strings.EqualFold(cfg.Mode, "live") {
		base = paypal.APIBaseLive
	}
	c, err := paypal.NewClient(cfg.ClientID, cfg.ClientSecret, base)
	if err != nil {
		return nil, fmt.Errorf("paypal client: %w", err)
	}
	c.SetHTTPClient(&http.Client{Timeout: cfg.Timeout})
	return newPayPal(c, cfg), nil
}

func newPayPal(orders paypalOrders, cfg PayPalConfig) *PayPal {
	rate := cfg.VNDPerUSD
	if rate <= 0 {
		rate = 25911.5
	}
	return &PayPal{orders: orders, vndPerUSD: rate, clientURL: cfg.ClientURL}
}

func (p *PayPal) Name() string { return models.ProviderPayPal }

func (p *PayPal) CreateCheckout(ctx context.Context, req models.BookingRequest, label string) (models.Checkout, error) {
	if req.TotalPrice <= 0 {
		return models.Checkout{}, domain.ValidationError{Field: "totalPrice", Msg: "invalid amount"}
	}

	units := []paypal.PurchaseUnitRequest{
		{
			Description: utils.Truncate(label, 127),
			Amount: &paypal.PurchaseUnitAmount{
				Currency: "USD",
				Value:    utils.VNDToUSD(req.TotalPrice, p.vndPerUSD),
			},
		},
	}
	appCtx := &paypal.ApplicationContext{
		ReturnURL: p.clientURL + "/" + string(req.Type) + "-checkout-success",
		CancelURL: CancelURL(p.clientURL, req),
	}

	order, err := p.orders.CreateOrder(ctx, paypal.OrderIntentCapture, units, nil, appCtx)
	if err != nil {
		return models.Checkout{}, domain.ProviderError{Provider: models.ProviderPayPal, Op: "create order", Err: err}
	}

	approve := ""
	for _, link := range order.Links {
		if link.Rel == "approve" || link.Rel == "payer-action" {
			approve = link.Href
			break
		}
	}
	if approve == "" {
		return models.Checkout{}, domain.ProviderError{Provider: models.ProviderPayPal, Op: "create order", Err: fmt.Errorf("order %s has no approval link", order.ID)}
	}
	return models.Checkout{
		Provider:     models.ProviderPayPal,
		SettlementID: order.ID,
		RedirectURL:  approve,
		Amount:       req.TotalPrice,
	}, nil
}

// VerifySettlement captures the order. A capture that fails because the
// order was already captured still counts as paid once GetOrder says COMPLETED.
func (p *PayPal) VerifySettlement(ctx context.Context, orderID string) (models.Settlement, error) {
	if orderID == "" {
		return models.Settlement{}, domain.ValidationError{Field: "orderId", Msg: "required"}
	}
	out := models.Settlement{Provider: models.ProviderPayPal, ID: orderID, Status: models.SettlementPending}

	capture, err := p.orders.CaptureOrder(ctx, orderID, paypal.CaptureOrderRequest{})
	if err == nil {
		if capture.Status == paypalCompleted {
			out.Status = models.SettlementPaid
		}
		var captured []paypal.CaptureAmount
		for _, u := range capture.PurchaseUnits {
			if u.Payments != nil {
				captured = append(captured, u.Payments.Captures...)
			}
		}
		out.Currency, out.Charged = capturedTotal(captured)
		return out, nil
	}

	order, getErr := p.orders.GetOrder(ctx, orderID)
	if getErr != nil {
		return models.Settlement{}, domain.ProviderError{Provider: models.ProviderPayPal, Op: "capture order", Err: err}
	}
	switch order.Status {
	case paypalCompleted:
		out.Status = models.SettlementPaid
		var captured []paypal.CaptureAmount
		for _, u := range order.PurchaseUnits {
			if u.Payments != nil {
				captured = append(captured, u.Payments.Captures...)
			}
		}
		out.Currency, out.Charged = capturedTotal(captured)
	case "VOIDED":
		out.Status = models.SettlementFailed
	default:
		return models.Settlement{}, domain.ProviderError{Provider: models.ProviderPayPal, Op: "capture order", Err: err}
	}
	return out, nil
}

// ChargeMatches compares the captured USD with total converted at the
// configured rate, to the cent.
func (p *PayPal) ChargeMatches(s models.Settlement, total int64) bool {
	if !strings.EqualFold(s.Currency, "USD") {
		return false
	}
	got, ok := cents(s.Charged)
	if !ok {
		return false
	}
	want, ok := cents(utils.VNDToUSD(total, p.vndPerUSD))
	return ok && got == want
}

// capturedTotal sums completed captures. Mixed currencies yield no total.
func capturedTotal(captures []paypal.CaptureAmount) (string, string) {
	currency := ""
	var sum int64
	for _, c := range captures {
		if c.Amount == nil || (c.Status != "" && c.Status != paypalCompleted) {
			continue
		}
		v, ok := cents(c.Amount.Value)
		if !ok {
			return "", ""
		}
		if currency != "" && !strings.EqualFold(currency, c.Amount.Currency) {
			return "", ""
		}
		currency = c.Amount.Currency
		sum += v
	}
	if currency == "" {
		return "", ""
	}
	return currency, utils.FormatMoney(float64(sum) / 100)
}

func cents(value string) (int64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil || f < 0 {
		return 0, false
	}
	return int64(math.Round(f * 100)), true
}
