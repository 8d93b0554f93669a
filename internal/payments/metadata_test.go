package payments

import (
	"strings"
	"testing"

	"vagabond/internal/domain"
	"vagabond/internal/domain/models"
)

func sampleTourRequest() models.BookingRequest {
	use, _ := models.ParseDate("02/04/2025")
	return models.BookingRequest{
		UserID:        "u1",
		Type:          models.TargetTour,
		TourID:        "tour-1",
		TicketID:      "ticket-1",
		Quantities:    map[string]int{"adult": 2, "child": 1},
		UseDate:       use,
		TotalPrice:    1250000,
		PaymentMethod: "stripe",
		Name:          "Lan",
		Email:         "lan@example.com",
		Phone:         "0901",
	}
}

func sampleHotelRequest() models.BookingRequest {
	in, _ := models.ParseDate("10/05/2025")
	out, _ := models.ParseDate("12/05/2025")
	return models.BookingRequest{
		Type:       models.TargetHotel,
		HotelID:    "hotel-1",
		RoomTypeID: "rt-1",
		RoomID:     "room-1",
		Checkin:    in,
		Checkout:   out,
		NumGuests:  2,
		NumRooms:   1,
		TotalPrice: 2400000,
		Name:       "Minh",
		Email:      "minh@example.com",
		Phone:      "0902",
	}
}

func TestMetadataCarriesTourRequest(t *testing.T) {
	req := sampleTourRequest()
	m, err := EncodeMetadata(req)
	if err != nil {
		t.Fatalf("EncodeMetadata returned error: %v", err)
	}
	if m["useDate"] != "02/04/2025" || m["type"] != "tour" {
		t.Fatalf("unexpected metadata: %v", m)
	}
	if _, ok := m["hotelId"]; ok {
		t.Fatalf("hotel keys must not be set for tours: %v", m)
	}

	got, err := DecodeMetadata(m)
	if err != nil {
		t.Fatalf("DecodeMetadata returned error: %v", err)
	}
	if got.TicketCount() != 3 || got.TotalPrice != req.TotalPrice || !got.UseDate.Equal(req.UseDate.Time) || got.UserID != "u1" {
		t.Fatalf("decoded request differs: %+v", got)
	}
}

func TestMetadataCarriesHotelRequestWithoutUser(t *testing.T) {
	req := sampleHotelRequest()
	m, err := EncodeMetadata(req)
	if err != nil {
		t.Fatalf("EncodeMetadata returned error: %v", err)
	}
	if _, ok := m["userId"]; ok {
		t.Fatalf("guest checkout must not carry a user id")
	}
	got, err := DecodeMetadata(m)
	if err != nil {
		t.Fatalf("DecodeMetadata returned error: %v", err)
	}
	if got.NumRooms != 1 || got.NumGuests != 2 || got.Checkout.String() != "12/05/2025" || got.RoomID != "room-1" {
		t.Fatalf("decoded request differs: %+v", got)
	}
}

func TestDecodeMetadataRejectsBadInput(t *testing.T) {
	cases := map[string]map[string]string{
		"missing type": {"tourId": "t"},
		"bad number":   {"type": "hotel", "numRooms": "two"},
		"bad date":     {"type": "hotel", "checkin": "31/31/2025"},
		"bad json":     {"type": "tour", "quantities": "{adult:1"},
	}
	for name, m := range cases {
		if _, err := DecodeMetadata(m); !domain.IsValidation(err) {
			t.Fatalf("%s: expected validation error, got %v", name, err)
		}
	}
}

func TestEncodeMetadataRejectsOversizedValue(t *testing.T) {
	req := sampleTourRequest()
	req.Name = strings.Repeat("x", 501)
	if _, err := EncodeMetadata(req); !domain.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCancelURL(t *testing.T) {
	if got := CancelURL("http://app", sampleTourRequest()); got != "http://app/tour/tour-1" {
		t.Fatalf("tour cancel url = %s", got)
	}
	got := CancelURL("http://app", sampleHotelRequest())
	if !strings.HasPrefix(got, "http://app/hotels/hotel-1?") || !strings.Contains(got, "checkIn=10%2F05%2F2025") || !strings.Contains(got, "rooms=1") {
		t.Fatalf("hotel cancel url = %s", got)
	}
}

func TestRegistryUnknownProvider(t *testing.T) {
	r := NewRegistry(newPayPal(&fakePayPal{}, PayPalConfig{}))
	if _, err := r.Get("PAYPAL"); err != nil {
		t.Fatalf("lookup should be case-insensitive: %v", err)
	}
	if _, err := r.Get("payos"); err == nil {
		t.Fatalf("expected ErrProviderUnavailable")
	}
	if names := r.Names(); len(names) != 1 || names[0] != "paypal" {
		t.Fatalf("unexpected names %v", names)
	}
}
