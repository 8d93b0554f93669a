package payments

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"vagabond/internal/domain"
	"vagabond/internal/domain/models"
	"vagabond/internal/utils"
)

const (
	payosCodeOK            = "00"
	payosCodeDuplicateCode = "231"
	payosCreateAttempts    = 3
	payosMaxDescription    = 25
)

var errPayOSDuplicateCode = errors.New("payos order code already used")

type PayOSConfig struct {
	ClientID    string
	APIKey      string
	ChecksumKey string
	BaseURL     string
	ClientURL   string
	Timeout     time.Duration
}

// PayOS creates payment links over the merchant REST API and is polled for the
// result. The numeric order code is the settlement id.
type PayOS struct {
	client      *http.Client
	baseURL     string
	clientID    string
	apiKey      string
	checksumKey string
	clientURL   string

	now  func() time.Time
	intn func(n int) int
}

func NewPayOS(cfg PayOSConfig) *PayOS {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = "https://api-merchant.payos.vn"
	}
	return &PayOS{
		client:      &http.Client{Timeout: cfg.Timeout},
		baseURL:     base,
		clientID:    cfg.ClientID,
		apiKey:      cfg.APIKey,
		checksumKey: cfg.ChecksumKey,
		clientURL:   cfg.ClientURL,
		now:         time.Now,
		intn:        rand.Intn,
	}
}

func (p *PayOS) Name() string { return models.ProviderPayOS }

type payosItem struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
	Price    int64  `json:"price"`
}

type payosCreateRequest struct {
	OrderCode   int64       `json:"orderCode"`
	Amount      int64       `json:"amount"`
	Description string      `json:"description"`
	Items       []payosItem `json:"items"`
	CancelURL   string      `json:"cancelUrl"`
	ReturnURL   string      `json:"returnUrl"`
	Signature   string      `json:"signature"`
}

type payosEnvelope struct {
	Code      string          `json:"code"`
	Desc      string          `json:"desc"`
	Data      json.RawMessage `json:"data"`
	Signature string          `json:"signature"`
}

type payosLink struct {
	CheckoutURL   string `json:"checkoutUrl"`
	PaymentLinkID string `json:"paymentLinkId"`
	OrderCode     int64  `json:"orderCode"`
	Status        string `json:"status"`
}

type payosInfo struct {
	OrderCode  int64  `json:"orderCode"`
	Amount     int64  `json:"amount"`
	AmountPaid int64  `json:"amountPaid"`
	Status     string `json:"status"`
}

// orderCode derives a code from the clock with a random suffix. Collisions are
// still possible; the provider rejects them and CreateCheckout retries.
func (p *PayOS) orderCode() int64 {
	ms := p.now().UnixMilli() % 1_000_000_000
	return ms*1000 + int64(p.intn(1000))
}

func (p *PayOS) CreateCheckout(ctx context.Context, req models.BookingRequest, label string) (models.Checkout, error) {
	if req.TotalPrice <= 0 {
		return models.Checkout{}, domain.ValidationError{Field: "totalPrice", Msg: "invalid amount"}
	}

	var lastErr error
	for attempt := 0; attempt < payosCreateAttempts; attempt++ {
		code := p.orderCode()
		body := payosCreateRequest{
			OrderCode:   code,
			Amount:      req.TotalPrice,
			Description: utils.Truncate("Thanh toan "+string(req.Type), payosMaxDescription),
			Items:       []payosItem{{Name: label, Quantity: 1, Price: req.TotalPrice}},
			CancelURL:   CancelURL(p.clientURL, req),
			ReturnURL:   fmt.Sprintf("%s/%s-checkout-payos-success?orderCode=%d", p.clientURL, req.Type, code),
		}
		body.Signature = p.sign(fmt.Sprintf("amount=%d&cancelUrl=%s&description=%s&orderCode=%d&returnUrl=%s",
			body.Amount, body.CancelURL, body.Description, body.OrderCode, body.ReturnURL))

		var link payosLink
		err := p.do(ctx, http.MethodPost, "/v2/payment-requests", body, &link)
		if errors.Is(err, errPayOSDuplicateCode) {
			lastErr = err
			continue
		}
		if err != nil {
			return models.Checkout{}, domain.ProviderError{Provider: models.ProviderPayOS, Op: "create payment link", Err: err}
		}
		return models.Checkout{
			Provider:     models.ProviderPayOS,
			SettlementID: strconv.FormatInt(code, 10),
			RedirectURL:  link.CheckoutURL,
			Amount:       req.TotalPrice,
		}, nil
	}
	return models.Checkout{}, domain.ProviderError{Provider: models.ProviderPayOS, Op: "create payment link", Err: lastErr}
}

// VerifySettlement polls the payment link; only PAID settles.
func (p *PayOS) VerifySettlement(ctx context.Context, settlementID string) (models.Settlement, error) {
	code, err := strconv.ParseInt(strings.TrimSpace(settlementID), 10, 64)
	if err != nil || code <= 0 {
		return models.Settlement{}, domain.ValidationError{Field: "orderCode", Msg: "must be a positive number"}
	}

	var info payosInfo
	if err := p.do(ctx, http.MethodGet, "/v2/payment-requests/"+strconv.FormatInt(code, 10), nil, &info); err != nil {
		return models.Settlement{}, domain.ProviderError{Provider: models.ProviderPayOS, Op: "get payment link", Err: err}
	}

	out := models.Settlement{
		Provider: models.ProviderPayOS,
		ID:       strconv.FormatInt(code, 10),
		Amount:   info.Amount,
		Status:   models.SettlementPending,
	}
	switch info.Status {
	case "PAID":
		out.Status = models.SettlementPaid
	case "CANCELLED", "EXPIRED", "FAILED":
		out.Status = models.SettlementFailed
	}
	return out, nil
}

func (p *PayOS) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, p.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("x-client-id", p.clientID)
	req.Header.Set("x-api-key", p.apiKey)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}
	var env payosEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("decode response (http %d): %w", resp.StatusCode, err)
	}
	if env.Code == payosCodeDuplicateCode {
		return errPayOSDuplicateCode
	}
	if env.Code != payosCodeOK {
		return fmt.Errorf("payos code %s: %s", env.Code, env.Desc)
	}
	if env.Signature != "" {
		expected, err := p.dataSignature(env.Data)
		if err != nil {
			return err
		}
		if !hmac.Equal([]byte(expected), []byte(env.Signature)) {
			return errors.New("response signature mismatch")
		}
	}
	if out == nil || len(env.Data) == 0 {
		return nil
	}
	return json.Unmarshal(env.Data, out)
}

func (p *PayOS) sign(payload string) string {
	mac := hmac.New(sha256.New, []byte(p.checksumKey))
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}

// dataSignature signs the response data the way PayOS does: keys sorted,
// key=value pairs joined by '&', null as empty.
func (p *PayOS) dataSignature(data json.RawMessage) (string, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var fields map[string]any
	if err := dec.Decode(&fields); err != nil {
		return "", fmt.Errorf("decode response data: %w", err)
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		var v string
		switch val := fields[k].(type) {
		case nil:
			v = ""
		case string:
			v = val
		case json.Number:
			v = val.String()
		case bool:
			v = strconv.FormatBool(val)
		default:
			raw, err := json.Marshal(val)
			if err != nil {
				return "", err
			}
			v = string(raw)
		}
		parts = append(parts, k+"="+v)
	}
	return p.sign(strings.Join(parts, "&")), nil
}
