package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	intconfig "vagabond/internal/config"
	intdb "vagabond/internal/db"
	"vagabond/internal/domain"
	"vagabond/internal/domain/models"
)

type BookingRepo struct {
	DB *sql.DB
}

func (r BookingRepo) conn(ctx context.Context) (intdb.Queryer, error) {
	db := r.DB
	if db == nil {
		db = intconfig.DB
	}
	if _, inTx := intdb.TxFromContext(ctx); !inTx && db == nil {
		return nil, fmt.Errorf("database not connected")
	}
	return intdb.Conn(ctx, db), nil
}

const bookingColumns = `
	id, kind,
	COALESCE(user_id,''), COALESCE(tour_id,''), COALESCE(ticket_id,''),
	use_date, quantities,
	COALESCE(hotel_id,''), COALESCE(room_type_id,''), COALESCE(room_id,''),
	checkin, checkout, num_guests, num_rooms,
	name, email, phone,
	total_price, payment_method,
	COALESCE(payment_provider,''), COALESCE(settlement_id,''),
	payment_status, booking_status, is_reviewed, counters_applied,
	created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBooking(s rowScanner) (models.Booking, error) {
	var b models.Booking
	var quantities sql.NullString
	if err := s.Scan(
		&b.ID, &b.Kind,
		&b.UserID, &b.TourID, &b.TicketID,
		&b.UseDate, &quantities,
		&b.HotelID, &b.RoomTypeID, &b.RoomID,
		&b.Checkin, &b.Checkout, &b.NumGuests, &b.NumRooms,
		&b.Name, &b.Email, &b.Phone,
		&b.TotalPrice, &b.PaymentMethod,
		&b.PaymentProvider, &b.SettlementID,
		&b.PaymentStatus, &b.BookingStatus, &b.IsReviewed, &b.CountersApplied,
		&b.CreatedAt, &b.UpdatedAt,
	); err != nil {
		return models.Booking{}, err
	}
	if quantities.Valid && quantities.String != "" {
		if err := json.Unmarshal([]byte(quantities.String), &b.Quantities); err != nil {
			return models.Booking{}, fmt.Errorf("decode quantities of booking %s: %w", b.ID, err)
		}
	}
	return b, nil
}

// Insert stores a new booking. A second booking for the same provider
// settlement fails with domain.ErrDuplicateSettlement.
func (r BookingRepo) Insert(ctx context.Context, b models.Booking) error {
	q, err := r.conn(ctx)
	if err != nil {
		return err
	}

	var quantities any
	if len(b.Quantities) > 0 {
		raw, err := json.Marshal(b.Quantities)
		if err != nil {
			return fmt.Errorf("encode quantities: %w", err)
		}
		quantities = string(raw)
	}
	reviewed := b.IsReviewed
	if reviewed == "" {
		reviewed = models.ReviewedNo
	}
	provider := b.PaymentProvider
	if b.SettlementID == "" {
		provider = ""
	}

	_, err = q.ExecContext(ctx, `
		INSERT INTO bookings (
			id, kind, user_id, tour_id, ticket_id, use_date, quantities,
			hotel_id, room_type_id, room_id, checkin, checkout, num_guests, num_rooms,
			name, email, phone, total_price, payment_method,
			payment_provider, settlement_id, payment_status, booking_status,
			is_reviewed, counters_applied, created_at, updated_at
		) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		b.ID, string(b.Kind),
		intdb.NullIfEmpty(b.UserID), intdb.NullIfEmpty(b.TourID), intdb.NullIfEmpty(b.TicketID),
		b.UseDate, quantities,
		intdb.NullIfEmpty(b.HotelID), intdb.NullIfEmpty(b.RoomTypeID), intdb.NullIfEmpty(b.RoomID),
		b.Checkin, b.Checkout, b.NumGuests, b.NumRooms,
		strings.TrimSpace(b.Name), strings.TrimSpace(b.Email), strings.TrimSpace(b.Phone),
		b.TotalPrice, b.PaymentMethod,
		intdb.NullIfEmpty(provider), intdb.NullIfEmpty(b.SettlementID),
		string(b.PaymentStatus), string(b.BookingStatus),
		reviewed, b.CountersApplied, b.CreatedAt, b.UpdatedAt,
	)
	if err != nil {
		if intdb.IsDuplicateKey(err) {
			if b.SettlementID != "" {
				return domain.ErrDuplicateSettlement
			}
			return domain.ConflictError{Resource: "booking", Msg: "duplicate id", Err: err}
		}
		return fmt.Errorf("insert booking: %w", err)
	}
	return nil
}

func (r BookingRepo) GetByID(ctx context.Context, id string) (models.Booking, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return models.Booking{}, domain.ValidationError{Field: "id", Msg: "required"}
	}
	q, err := r.conn(ctx)
	if err != nil {
		return models.Booking{}, err
	}
	b, err := scanBooking(q.QueryRowContext(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id=? LIMIT 1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Booking{}, domain.NotFoundError{Resource: "booking", Err: err}
		}
		return models.Booking{}, fmt.Errorf("get booking: %w", err)
	}
	return b, nil
}

// FindBySettlement is the idempotency lookup. Found is false when no booking
// carries the settlement.
func (r BookingRepo) FindBySettlement(ctx context.Context, provider, settlementID string) (models.Booking, bool, error) {
	if settlementID == "" {
		return models.Booking{}, false, nil
	}
	q, err := r.conn(ctx)
	if err != nil {
		return models.Booking{}, false, err
	}
	b, err := scanBooking(q.QueryRowContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE payment_provider=? AND settlement_id=? LIMIT 1`,
		provider, settlementID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Booking{}, false, nil
		}
		return models.Booking{}, false, fmt.Errorf("find booking by settlement: %w", err)
	}
	return b, true, nil
}

// Update performs PATCH-style updates based on field presence.
func (r BookingRepo) Update(ctx context.Context, id string, upd models.BookingUpdate) error {
	q, err := r.conn(ctx)
	if err != nil {
		return err
	}
	sets := []string{}
	args := []any{}

	if upd.BookingStatus != nil {
		sets = append(sets, "booking_status=?")
		args = append(args, string(*upd.BookingStatus))
	}
	if upd.PaymentStatus != nil {
		sets = append(sets, "payment_status=?")
		args = append(args, string(*upd.PaymentStatus))
	}
	if upd.IsReviewed != nil {
		sets = append(sets, "is_reviewed=?")
		args = append(args, *upd.IsReviewed)
	}
	if len(sets) == 0 {
		return nil
	}
	sets = append(sets, "updated_at=?")
	args = append(args, time.Now().UTC(), id)

	if _, err := q.ExecContext(ctx, `UPDATE bookings SET `+strings.Join(sets, ",")+` WHERE id=?`, args...); err != nil {
		return fmt.Errorf("update booking: %w", err)
	}
	return nil
}

// ClaimCounters flips counters_applied from 0 to 1 and reports whether this
// call did it. The UPDATE reads the latest committed row under its row lock,
// so of two concurrent confirms only one claims.
func (r BookingRepo) ClaimCounters(ctx context.Context, id string) (bool, error) {
	q, err := r.conn(ctx)
	if err != nil {
		return false, err
	}
	res, err := q.ExecContext(ctx,
		`UPDATE bookings SET counters_applied=1, updated_at=? WHERE id=? AND counters_applied=0`,
		time.Now().UTC(), id)
	if err != nil {
		return false, fmt.Errorf("claim booking counters: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("claim booking counters: %w", err)
	}
	return n == 1, nil
}

func (r BookingRepo) Delete(ctx context.Context, id string) error {
	q, err := r.conn(ctx)
	if err != nil {
		return err
	}
	res, err := q.ExecContext(ctx, `DELETE FROM bookings WHERE id=?`, id)
	if err != nil {
		return fmt.Errorf("delete booking: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.NotFoundError{Resource: "booking"}
	}
	return nil
}

// List returns one page of bookings, newest first, plus the total match count.
func (r BookingRepo) List(ctx context.Context, f models.BookingFilter) ([]models.Booking, int, error) {
	q, err := r.conn(ctx)
	if err != nil {
		return nil, 0, err
	}

	where := []string{"1=1"}
	args := []any{}
	if f.Kind != "" {
		where = append(where, "kind=?")
		args = append(args, string(f.Kind))
	}
	if f.Status != "" {
		where = append(where, "booking_status=?")
		args = append(args, string(f.Status))
	}
	if f.UserID != "" {
		where = append(where, "user_id=?")
		args = append(args, f.UserID)
	}
	if f.TourID != "" {
		where = append(where, "tour_id=?")
		args = append(args, f.TourID)
	}
	if f.HotelID != "" {
		where = append(where, "hotel_id=?")
		args = append(args, f.HotelID)
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM bookings WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count bookings: %w", err)
	}

	page := domain.Pagination{Page: f.Page, PageSize: f.PageSize}
	if page.PageSize <= 0 {
		page.PageSize = 20
	}
	rows, err := q.QueryContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE `+cond+` ORDER BY created_at DESC LIMIT ? OFFSET ?`,
		append(args, page.PageSize, page.Offset())...)
	if err != nil {
		return nil, 0, fmt.Errorf("list bookings: %w", err)
	}
	defer rows.Close()

	out := []models.Booking{}
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// Summary aggregates bookings created since the given instant.
func (r BookingRepo) Summary(ctx context.Context, since time.Time) (models.BookingSummary, error) {
	q, err := r.conn(ctx)
	if err != nil {
		return models.BookingSummary{}, err
	}
	s := models.BookingSummary{Since: since}
	err = q.QueryRowContext(ctx, `
		SELECT
			COALESCE(SUM(CASE WHEN payment_status='paid' AND booking_status<>'cancelled' THEN total_price ELSE 0 END),0),
			COALESCE(SUM(kind='tour'),0),
			COALESCE(SUM(kind='hotel'),0),
			COALESCE(SUM(booking_status='confirmed'),0),
			COALESCE(SUM(booking_status='cancelled'),0)
		FROM bookings
		WHERE created_at >= ?`, since).Scan(
		&s.Revenue, &s.TourBookings, &s.HotelBookings, &s.Confirmed, &s.Cancelled,
	)
	if err != nil {
		return models.BookingSummary{}, fmt.Errorf("booking summary: %w", err)
	}
	if total := s.TourBookings + s.HotelBookings; total > 0 {
		s.CompletionRate = float64(s.Confirmed) / float64(total)
	}
	return s, nil
}
