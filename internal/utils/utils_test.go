package utils

import (
	"testing"
	"time"
)

func TestParseDateLayouts(t *testing.T) {
	want := time.Date(2025, 5, 10, 0, 0, 0, 0, time.UTC)
	for _, in := range []string{"10/05/2025", "2025-05-10", "2025-05-10T18:30:00+07:00", " 10/05/2025 "} {
		got, err := ParseDate(in)
		if err != nil {
			t.Fatalf("%q: %v", in, err)
		}
		if !got.Equal(want) {
			t.Fatalf("%q: expected %v, got %v", in, want, got)
		}
	}
	for _, in := range []string{"", "31/31/2025", "tomorrow"} {
		if _, err := ParseDate(in); err == nil {
			t.Fatalf("%q: expected error", in)
		}
	}
}

func TestNights(t *testing.T) {
	in := time.Date(2025, 5, 10, 14, 0, 0, 0, time.UTC)
	out := time.Date(2025, 5, 12, 11, 0, 0, 0, time.UTC)
	if n := Nights(in, out); n != 2 {
		t.Fatalf("expected 2 nights, got %d", n)
	}
}

func TestMoneyFormatting(t *testing.T) {
	if got := FormatVND(1250000); got != "1.250.000 VND" {
		t.Fatalf("unexpected %q", got)
	}
	if got := FormatVND(-500); got != "-500 VND" {
		t.Fatalf("unexpected %q", got)
	}
	if got := VNDToUSD(1250000, 25000); got != "50.00" {
		t.Fatalf("unexpected %q", got)
	}
	if got := VNDToUSD(100, 0); got != "0.00" {
		t.Fatalf("unexpected %q", got)
	}
}

func TestStrings(t *testing.T) {
	if got := NormalizePhone(" 090 123 4567 "); got != "0901234567" {
		t.Fatalf("unexpected %q", got)
	}
	if got := Truncate("Thanh toán tour", 10); got != "Thanh toán" {
		t.Fatalf("unexpected %q", got)
	}
}
