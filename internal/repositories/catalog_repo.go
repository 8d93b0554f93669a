package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	intconfig "vagabond/internal/config"
	intdb "vagabond/internal/db"
	"vagabond/internal/domain"
	"vagabond/internal/domain/models"
)

// CatalogRepo reads tour/hotel inventory and writes the booking counters back.
type CatalogRepo struct {
	DB *sql.DB
}

func (r CatalogRepo) conn(ctx context.Context) (intdb.Queryer, error) {
	db := r.DB
	if db == nil {
		db = intconfig.DB
	}
	if _, inTx := intdb.TxFromContext(ctx); !inTx && db == nil {
		return nil, fmt.Errorf("database not connected")
	}
	return intdb.Conn(ctx, db), nil
}

func (r CatalogRepo) GetTicket(ctx context.Context, tourID, ticketID string) (models.Ticket, error) {
	q, err := r.conn(ctx)
	if err != nil {
		return models.Ticket{}, err
	}

	var t models.Ticket
	err = q.QueryRowContext(ctx, `
		SELECT t.id, t.tour_id, COALESCE(tr.name,''), COALESCE(t.title,''), t.max_quantity, t.num_bookings
		FROM tickets t
		JOIN tours tr ON tr.id = t.tour_id
		WHERE t.id=? AND t.tour_id=?
		LIMIT 1`, ticketID, tourID).Scan(
		&t.ID, &t.TourID, &t.TourName, &t.Title, &t.MaxQuantity, &t.NumBookings,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Ticket{}, domain.NotFoundError{Resource: "ticket", Err: err}
		}
		return models.Ticket{}, fmt.Errorf("get ticket: %w", err)
	}

	rows, err := q.QueryContext(ctx, `
		SELECT price_type, price, min_per_booking, max_per_booking
		FROM ticket_prices
		WHERE ticket_id=?
		ORDER BY id`, t.ID)
	if err != nil {
		return models.Ticket{}, fmt.Errorf("list ticket prices: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var p models.TicketPrice
		if err := rows.Scan(&p.PriceType, &p.Price, &p.MinPerBooking, &p.MaxPerBooking); err != nil {
			return models.Ticket{}, err
		}
		t.Prices = append(t.Prices, p)
	}
	return t, rows.Err()
}

const roomQuery = `
	SELECT r.id, r.room_type_id, COALESCE(t.name,''), t.hotel_id, COALESCE(h.name,''),
	       COALESCE(r.bed_type,''), r.max_of_guest, r.number_of_room, r.price
	FROM hotel_rooms r
	JOIN hotel_room_types t ON t.id = r.room_type_id
	JOIN hotels h ON h.id = t.hotel_id
	WHERE r.id=? AND r.room_type_id=? AND t.hotel_id=?`

func (r CatalogRepo) GetRoom(ctx context.Context, hotelID, roomTypeID, roomID string) (models.Room, error) {
	return r.room(ctx, roomQuery, hotelID, roomTypeID, roomID)
}

// LockRoom reads the room row with FOR UPDATE so concurrent bookings of the
// same room serialize. Only the hotel_rooms row is locked; other rooms of the
// hotel stay free. Only meaningful inside a transaction.
func (r CatalogRepo) LockRoom(ctx context.Context, hotelID, roomTypeID, roomID string) (models.Room, error) {
	return r.room(ctx, roomQuery+` FOR UPDATE OF r`, hotelID, roomTypeID, roomID)
}

func (r CatalogRepo) room(ctx context.Context, query, hotelID, roomTypeID, roomID string) (models.Room, error) {
	q, err := r.conn(ctx)
	if err != nil {
		return models.Room{}, err
	}
	var m models.Room
	err = q.QueryRowContext(ctx, query, roomID, roomTypeID, hotelID).Scan(
		&m.ID, &m.RoomTypeID, &m.RoomTypeName, &m.HotelID, &m.HotelName,
		&m.BedType, &m.MaxOfGuest, &m.NumberOfRoom, &m.Price,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Room{}, domain.NotFoundError{Resource: "room", Err: err}
		}
		return models.Room{}, fmt.Errorf("get room: %w", err)
	}
	return m, nil
}

// SumBookedRooms counts rooms held by active bookings overlapping
// [checkin, checkout). excludeID skips one booking (status re-activation).
func (r CatalogRepo) SumBookedRooms(ctx context.Context, hotelID, roomTypeID, roomID string, checkin, checkout models.Date, excludeID string) (int, error) {
	q, err := r.conn(ctx)
	if err != nil {
		return 0, err
	}
	var booked int
	err = q.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(num_rooms),0)
		FROM bookings
		WHERE kind='hotel'
		  AND hotel_id=? AND room_type_id=? AND room_id=?
		  AND booking_status IN ('pending','confirmed')
		  AND checkin < ? AND checkout > ?
		  AND id <> ?`,
		hotelID, roomTypeID, roomID, checkout, checkin, excludeID,
	).Scan(&booked)
	if err != nil {
		return 0, fmt.Errorf("sum booked rooms: %w", err)
	}
	return booked, nil
}

// IncrementTourCounters bumps tours.bookings by one and tickets.num_bookings by tickets.
func (r CatalogRepo) IncrementTourCounters(ctx context.Context, tourID, ticketID string, tickets int) error {
	q, err := r.conn(ctx)
	if err != nil {
		return err
	}
	res, err := q.ExecContext(ctx, `UPDATE tours SET bookings = bookings + 1 WHERE id=?`, tourID)
	if err != nil {
		return fmt.Errorf("increment tour bookings: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.NotFoundError{Resource: "tour"}
	}
	res, err = q.ExecContext(ctx, `UPDATE tickets SET num_bookings = num_bookings + ? WHERE id=? AND tour_id=?`, tickets, ticketID, tourID)
	if err != nil {
		return fmt.Errorf("increment ticket bookings: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.NotFoundError{Resource: "ticket"}
	}
	return nil
}
