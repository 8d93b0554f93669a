package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Env struct {
	AppAddr   string
	GinMode   string
	ClientURL string

	DBUser      string
	DBPassword  string
	DBHost      string
	DBName      string
	AutoMigrate bool

	JWTSecret   string
	CORSOrigins []string

	StripeSecretKey     string
	StripeWebhookSecret string
	StripeCurrency      string

	PayPalClientID     string
	PayPalClientSecret string
	PayPalMode         string
	PayPalVNDPerUSD    float64

	PayOSClientID    string
	PayOSAPIKey      string
	PayOSChecksumKey string
	PayOSBaseURL     string

	ProviderTimeout time.Duration

	KafkaBroker string
	KafkaTopic  string
}

func LoadEnv() Env {
	return Env{
		AppAddr:   getenv("APP_ADDR", ":8080"),
		GinMode:   getenv("GIN_MODE", ""),
		ClientURL: strings.TrimRight(getenv("CLIENT_URL", "http://localhost:5173"), "/"),

		DBUser:      getenv("DB_USER", "root"),
		DBPassword:  getenv("DB_PASSWORD", ""),
		DBHost:      getenv("DB_HOST", "127.0.0.1:3306"),
		DBName:      getenv("DB_NAME", "vagabond"),
		AutoMigrate: getbool("AUTO_MIGRATE", true),

		JWTSecret:   getenv("JWT_SECRET", "vagabond-dev-secret"),
		CORSOrigins: splitList(getenv("CORS_ALLOWED_ORIGINS", "http://localhost:5173,http://127.0.0.1:5173")),

		StripeSecretKey:     getenv("STRIPE_SECRET_KEY", ""),
		StripeWebhookSecret: getenv("STRIPE_WEBHOOK_SECRET", ""),
		StripeCurrency:      strings.ToLower(getenv("STRIPE_CURRENCY", "vnd")),

		PayPalClientID:     getenv("PAYPAL_CLIENT_ID", ""),
		PayPalClientSecret: getenv("PAYPAL_CLIENT_SECRET", ""),
		PayPalMode:         getenv("PAYPAL_MODE", "sandbox"),
		PayPalVNDPerUSD:    getfloat("PAYPAL_VND_PER_USD", 25911.5),

		PayOSClientID:    getenv("PAYOS_CLIENT_ID", ""),
		PayOSAPIKey:      getenv("PAYOS_API_KEY", ""),
		PayOSChecksumKey: getenv("PAYOS_CHECKSUM_KEY", ""),
		PayOSBaseURL:     getenv("PAYOS_BASE_URL", "https://api-merchant.payos.vn"),

		ProviderTimeout: getduration("PROVIDER_TIMEOUT", 15*time.Second),

		KafkaBroker: getenv("KAFKA_BROKER", ""),
		KafkaTopic:  getenv("KAFKA_TOPIC", "booking-events"),
	}
}

// Validate rejects settings the payment adapters cannot honour. Booking totals
// are whole dong and Stripe receives them unconverted, so the Stripe currency
// must be VND.
func (e Env) Validate() error {
	if e.StripeCurrency != "vnd" {
		return fmt.Errorf("STRIPE_CURRENCY=%q: only vnd is supported", e.StripeCurrency)
	}
	return nil
}

func getenv(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func getbool(key string, def bool) bool {
	v, err := strconv.ParseBool(getenv(key, ""))
	if err != nil {
		return def
	}
	return v
}

func getfloat(key string, def float64) float64 {
	v, err := strconv.ParseFloat(getenv(key, ""), 64)
	if err != nil || v <= 0 {
		return def
	}
	return v
}

func getduration(key string, def time.Duration) time.Duration {
	v, err := time.ParseDuration(getenv(key, ""))
	if err != nil || v <= 0 {
		return def
	}
	return v
}

func splitList(raw string) []string {
	out := []string{}
	for _, p := range strings.Split(raw, ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
