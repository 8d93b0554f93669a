package config

import "testing"

func TestLoadEnvDefaults(t *testing.T) {
	t.Setenv("STRIPE_CURRENCY", "")
	t.Setenv("PROVIDER_TIMEOUT", "nope")
	env := LoadEnv()
	if env.StripeCurrency != "vnd" || env.ProviderTimeout.Seconds() != 15 {
		t.Fatalf("unexpected defaults: currency=%s timeout=%s", env.StripeCurrency, env.ProviderTimeout)
	}
	if err := env.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}

func TestValidateRejectsNonVNDStripeCurrency(t *testing.T) {
	for _, cur := range []string{"usd", "jpy", "eur"} {
		t.Setenv("STRIPE_CURRENCY", cur)
		if err := LoadEnv().Validate(); err == nil {
			t.Fatalf("expected %s to be rejected", cur)
		}
	}

	t.Setenv("STRIPE_CURRENCY", "VND")
	if err := LoadEnv().Validate(); err != nil {
		t.Fatalf("VND should be accepted: %v", err)
	}
}
