package services

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"vagabond/internal/domain"
	"vagabond/internal/domain/models"
	"vagabond/internal/utils"

	"github.com/phpdave11/gofpdf"
)

// DocsService renders booking vouchers as PDF.
type DocsService struct {
	Bookings  BookingStore
	Catalog   CatalogStore
	RequestID string
	Loader    func(ctx context.Context, id string) (voucherData, error)
}

type voucherData struct {
	Booking  models.Booking
	Title    string
	IssuedAt time.Time
}

// GenerateVoucher returns the PDF bytes and a download filename. Same access
// rule as BookingService.Get.
func (s DocsService) GenerateVoucher(ctx context.Context, rc domain.RequestContext, id string) ([]byte, string, error) {
	data, err := s.load(ctx, id)
	if err != nil {
		return nil, "", err
	}
	b := data.Booking
	if b.UserID != "" && !rc.IsAdmin() && !b.OwnedBy(rc.UserID) {
		return nil, "", domain.ForbiddenError{Msg: "not your booking"}
	}
	if b.BookingStatus == models.BookingCancelled {
		return nil, "", domain.ConflictError{Resource: "booking", Msg: "cancelled bookings have no voucher"}
	}
	utils.LogEvent(s.RequestID, "docs", "generate_voucher", "booking_id="+id)
	return buildVoucherPDF(data)
}

func (s DocsService) load(ctx context.Context, id string) (voucherData, error) {
	if s.Loader != nil {
		return s.Loader(ctx, id)
	}
	b, err := s.Bookings.GetByID(ctx, id)
	if err != nil {
		return voucherData{}, err
	}
	out := voucherData{Booking: b, IssuedAt: utils.NowUTC()}

	// a missing catalog row only costs the title
	switch b.Kind {
	case models.TargetTour:
		if t, err := s.Catalog.GetTicket(ctx, b.TourID, b.TicketID); err == nil {
			out.Title = ticketLabel(t)
		}
	case models.TargetHotel:
		if r, err := s.Catalog.GetRoom(ctx, b.HotelID, b.RoomTypeID, b.RoomID); err == nil {
			out.Title = roomLabel(r)
		}
	}
	return out, nil
}

func buildVoucherPDF(d voucherData) ([]byte, string, error) {
	b := d.Booking
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Booking voucher", false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, "BOOKING VOUCHER")
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 12)
	lines := []string{
		fmt.Sprintf("Voucher no   : %s", voucherCode(b)),
		fmt.Sprintf("Service      : %s", safe(d.Title, strings.ToUpper(string(b.Kind)))),
		fmt.Sprintf("Guest        : %s", safe(b.Name, "-")),
		fmt.Sprintf("Email        : %s", safe(b.Email, "-")),
		fmt.Sprintf("Phone        : %s", safe(b.Phone, "-")),
	}
	switch b.Kind {
	case models.TargetTour:
		lines = append(lines,
			fmt.Sprintf("Use date     : %s", safe(b.UseDate.String(), "-")),
			fmt.Sprintf("Tickets      : %s", quantitiesText(b.Quantities)),
		)
	case models.TargetHotel:
		lines = append(lines,
			fmt.Sprintf("Check-in     : %s", safe(b.Checkin.String(), "-")),
			fmt.Sprintf("Check-out    : %s", safe(b.Checkout.String(), "-")),
			fmt.Sprintf("Rooms/guests : %d / %d", b.NumRooms, b.NumGuests),
		)
	}
	lines = append(lines,
		fmt.Sprintf("Status       : %s", b.BookingStatus),
		fmt.Sprintf("Payment      : %s (%s)", b.PaymentStatus, safe(b.PaymentMethod, "-")),
	)
	for _, line := range lines {
		pdf.Cell(0, 7, line)
		pdf.Ln(7)
	}

	pdf.Ln(4)
	pdf.SetFont("Helvetica", "B", 13)
	pdf.Cell(0, 8, "Total: "+utils.FormatVND(b.TotalPrice))
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "I", 10)
	pdf.MultiCell(0, 6, "Please present this voucher at check-in. Issued "+utils.FormatDateTime(d.IssuedAt)+" UTC.", "", "", false)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, "", err
	}
	filename := fmt.Sprintf("VOUCHER_%s_%s.pdf", voucherCode(b), safeFilenamePart(b.Name))
	return buf.Bytes(), filename, nil
}

func voucherCode(b models.Booking) string {
	id := strings.ReplaceAll(b.ID, "-", "")
	if len(id) > 8 {
		id = id[:8]
	}
	prefix := "B"
	if b.Kind != "" {
		prefix = string(b.Kind)[:1]
	}
	return strings.ToUpper(prefix + "-" + id)
}

func quantitiesText(q map[string]int) string {
	if len(q) == 0 {
		return "-"
	}
	keys := make([]string, 0, len(q))
	for k := range q {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		if q[k] > 0 {
			parts = append(parts, fmt.Sprintf("%d x %s", q[k], k))
		}
	}
	return strings.Join(parts, ", ")
}

func safe(v, fallback string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return fallback
	}
	return v
}

func safeFilenamePart(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "NA"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "_", "\\", "_", ":", "_", "*", "_", "?", "_", "\"", "_", "<", "_", ">", "_", "|", "_")
	s = replacer.Replace(s)
	if len(s) > 40 {
		s = s[:40]
	}
	return s
}
