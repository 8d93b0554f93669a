package repositories

import (
	"context"
	"testing"

	"vagabond/internal/domain"
	"vagabond/internal/domain/models"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestCatalogRepoGetTicketWithPrices(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("FROM tickets t").WithArgs("ticket-1", "tour-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "tour_id", "name", "title", "max_quantity", "num_bookings"}).
			AddRow("ticket-1", "tour-1", "Ha Long Bay", "Day cruise", 0, 7))
	mock.ExpectQuery("FROM ticket_prices").WithArgs("ticket-1").
		WillReturnRows(sqlmock.NewRows([]string{"price_type", "price", "min_per_booking", "max_per_booking"}).
			AddRow("adult", int64(500000), 1, 10).
			AddRow("child", int64(250000), 0, 5))

	ticket, err := CatalogRepo{DB: db}.GetTicket(context.Background(), "tour-1", "ticket-1")
	if err != nil {
		t.Fatalf("GetTicket returned error: %v", err)
	}
	if ticket.TourName != "Ha Long Bay" || len(ticket.Prices) != 2 || ticket.Prices[1].Price != 250000 {
		t.Fatalf("unexpected ticket: %+v", ticket)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCatalogRepoLockRoomUsesForUpdate(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("FROM hotel_rooms r .* FOR UPDATE OF r$").WithArgs("room-1", "rt-1", "hotel-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "room_type_id", "name", "hotel_id", "hname", "bed_type", "max_of_guest", "number_of_room", "price"}).
			AddRow("room-1", "rt-1", "Deluxe", "hotel-1", "Sea View", "King", 2, 3, int64(1200000)))

	room, err := CatalogRepo{DB: db}.LockRoom(context.Background(), "hotel-1", "rt-1", "room-1")
	if err != nil {
		t.Fatalf("LockRoom returned error: %v", err)
	}
	if room.NumberOfRoom != 3 || room.HotelName != "Sea View" {
		t.Fatalf("unexpected room: %+v", room)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCatalogRepoSumBookedRoomsOverlapArgs(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()

	checkin, _ := models.ParseDate("10/05/2025")
	checkout, _ := models.ParseDate("12/05/2025")

	// existing.checkin < req.checkout AND existing.checkout > req.checkin
	mock.ExpectQuery("booking_status IN \\('pending','confirmed'\\)").
		WithArgs("hotel-1", "rt-1", "room-1", "2025-05-12", "2025-05-10", "").
		WillReturnRows(sqlmock.NewRows([]string{"sum"}).AddRow(2))

	booked, err := CatalogRepo{DB: db}.SumBookedRooms(context.Background(), "hotel-1", "rt-1", "room-1", checkin, checkout, "")
	if err != nil {
		t.Fatalf("SumBookedRooms returned error: %v", err)
	}
	if booked != 2 {
		t.Fatalf("expected 2 booked rooms, got %d", booked)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCatalogRepoIncrementTourCountersMissingTicket(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()

	mock.ExpectExec("UPDATE tours SET bookings = bookings \\+ 1").WithArgs("tour-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE tickets SET num_bookings = num_bookings \\+ \\?").WithArgs(3, "ticket-x", "tour-1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err = CatalogRepo{DB: db}.IncrementTourCounters(context.Background(), "tour-1", "ticket-x", 3)
	if !domain.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
