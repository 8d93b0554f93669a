package models

const (
	ProviderStripe = "stripe"
	ProviderPayPal = "paypal"
	ProviderPayOS  = "payos"
)

type SettlementStatus string

const (
	SettlementPending SettlementStatus = "pending"
	SettlementPaid    SettlementStatus = "paid"
	SettlementFailed  SettlementStatus = "failed"
)

// Settlement is the provider's view of a payment. Amount is in VND when the
// provider charges in VND; otherwise Charged holds the provider amount in
// Currency. Request is set when the provider round-trips the checkout
// payload (Stripe metadata).
type Settlement struct {
	Provider string           `json:"provider"`
	ID       string           `json:"settlementId"`
	Status   SettlementStatus `json:"status"`
	Amount   int64            `json:"amount,omitempty"`
	Currency string           `json:"currency,omitempty"`
	Charged  string           `json:"charged,omitempty"`
	Request  *BookingRequest  `json:"-"`
}

func (s Settlement) Paid() bool {
	return s.Status == SettlementPaid
}

// Checkout is what the client needs to send the customer to the provider.
type Checkout struct {
	Provider     string `json:"provider"`
	SettlementID string `json:"settlementId"`
	RedirectURL  string `json:"url"`
	Amount       int64  `json:"amount"`
}
