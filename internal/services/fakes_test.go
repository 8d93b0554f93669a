package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"vagabond/internal/domain"
	"vagabond/internal/domain/models"
)

// memStore is an in-memory BookingStore + CatalogStore + TxRunner. One
// transaction runs at a time and a failed one restores the snapshot taken
// when it started; the (provider, settlement) index is unique like the table.
type memStore struct {
	txMu sync.Mutex
	mu   sync.Mutex

	bookings     map[string]models.Booking
	tickets      map[string]models.Ticket
	rooms        map[string]models.Room
	tourBookings map[string]int

	failIncrement error
	inserts       int
}

type memTxKey struct{}

func newMemStore() *memStore {
	return &memStore{
		bookings:     map[string]models.Booking{},
		tickets:      map[string]models.Ticket{},
		rooms:        map[string]models.Room{},
		tourBookings: map[string]int{},
	}
}

func (m *memStore) addTicket(t models.Ticket) {
	m.tickets[t.ID] = t
	if _, ok := m.tourBookings[t.TourID]; !ok {
		m.tourBookings[t.TourID] = 0
	}
}

func (m *memStore) addRoom(r models.Room) {
	m.rooms[r.ID] = r
}

func (m *memStore) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(memTxKey{}) != nil {
		return fn(ctx)
	}
	m.txMu.Lock()
	defer m.txMu.Unlock()

	m.mu.Lock()
	snapBookings := make(map[string]models.Booking, len(m.bookings))
	for k, v := range m.bookings {
		snapBookings[k] = v
	}
	snapTickets := make(map[string]models.Ticket, len(m.tickets))
	for k, v := range m.tickets {
		snapTickets[k] = v
	}
	snapTours := make(map[string]int, len(m.tourBookings))
	for k, v := range m.tourBookings {
		snapTours[k] = v
	}
	m.mu.Unlock()

	if err := fn(context.WithValue(ctx, memTxKey{}, true)); err != nil {
		m.mu.Lock()
		m.bookings, m.tickets, m.tourBookings = snapBookings, snapTickets, snapTours
		m.mu.Unlock()
		return err
	}
	return nil
}

func (m *memStore) Insert(ctx context.Context, b models.Booking) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if b.SettlementID != "" {
		for _, existing := range m.bookings {
			if existing.PaymentProvider == b.PaymentProvider && existing.SettlementID == b.SettlementID {
				return domain.ErrDuplicateSettlement
			}
		}
	}
	if _, ok := m.bookings[b.ID]; ok {
		return domain.ConflictError{Resource: "booking"}
	}
	m.bookings[b.ID] = b
	m.inserts++
	return nil
}

func (m *memStore) GetByID(ctx context.Context, id string) (models.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok {
		return models.Booking{}, domain.NotFoundError{Resource: "booking"}
	}
	return b, nil
}

func (m *memStore) FindBySettlement(ctx context.Context, provider, settlementID string) (models.Booking, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range m.bookings {
		if b.PaymentProvider == provider && b.SettlementID == settlementID {
			return b, true, nil
		}
	}
	return models.Booking{}, false, nil
}

func (m *memStore) Update(ctx context.Context, id string, upd models.BookingUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok {
		return domain.NotFoundError{Resource: "booking"}
	}
	if upd.BookingStatus != nil {
		b.BookingStatus = *upd.BookingStatus
	}
	if upd.PaymentStatus != nil {
		b.PaymentStatus = *upd.PaymentStatus
	}
	if upd.IsReviewed != nil {
		b.IsReviewed = *upd.IsReviewed
	}
	m.bookings[id] = b
	return nil
}

func (m *memStore) ClaimCounters(ctx context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok {
		return false, domain.NotFoundError{Resource: "booking"}
	}
	if b.CountersApplied {
		return false, nil
	}
	b.CountersApplied = true
	m.bookings[id] = b
	return true, nil
}

func (m *memStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.bookings[id]; !ok {
		return domain.NotFoundError{Resource: "booking"}
	}
	delete(m.bookings, id)
	return nil
}

func (m *memStore) List(ctx context.Context, f models.BookingFilter) ([]models.Booking, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Booking{}
	for _, b := range m.bookings {
		if f.UserID != "" && b.UserID != f.UserID {
			continue
		}
		if f.Kind != "" && b.Kind != f.Kind {
			continue
		}
		if f.Status != "" && b.BookingStatus != f.Status {
			continue
		}
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, len(out), nil
}

func (m *memStore) Summary(ctx context.Context, since time.Time) (models.BookingSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := models.BookingSummary{Since: since}
	for _, b := range m.bookings {
		if b.CreatedAt.Before(since) {
			continue
		}
		if b.Kind == models.TargetTour {
			s.TourBookings++
		} else {
			s.HotelBookings++
		}
		switch b.BookingStatus {
		case models.BookingConfirmed:
			s.Confirmed++
		case models.BookingCancelled:
			s.Cancelled++
		}
		if b.PaymentStatus == models.PaymentPaid && b.BookingStatus != models.BookingCancelled {
			s.Revenue += b.TotalPrice
		}
	}
	return s, nil
}

func (m *memStore) GetTicket(ctx context.Context, tourID, ticketID string) (models.Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tickets[ticketID]
	if !ok || t.TourID != tourID {
		return models.Ticket{}, domain.NotFoundError{Resource: "ticket"}
	}
	return t, nil
}

func (m *memStore) GetRoom(ctx context.Context, hotelID, roomTypeID, roomID string) (models.Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rooms[roomID]
	if !ok || r.HotelID != hotelID || r.RoomTypeID != roomTypeID {
		return models.Room{}, domain.NotFoundError{Resource: "room"}
	}
	return r, nil
}

func (m *memStore) LockRoom(ctx context.Context, hotelID, roomTypeID, roomID string) (models.Room, error) {
	return m.GetRoom(ctx, hotelID, roomTypeID, roomID)
}

func (m *memStore) SumBookedRooms(ctx context.Context, hotelID, roomTypeID, roomID string, checkin, checkout models.Date, excludeID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := 0
	for _, b := range m.bookings {
		if b.Kind != models.TargetHotel || b.ID == excludeID || !b.BookingStatus.Active() {
			continue
		}
		if b.HotelID != hotelID || b.RoomTypeID != roomTypeID || b.RoomID != roomID {
			continue
		}
		if b.Checkin.Before(checkout.Time) && b.Checkout.After(checkin.Time) {
			total += b.NumRooms
		}
	}
	return total, nil
}

func (m *memStore) IncrementTourCounters(ctx context.Context, tourID, ticketID string, tickets int) error {
	if m.failIncrement != nil {
		return m.failIncrement
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tickets[ticketID]
	if !ok || t.TourID != tourID {
		return domain.NotFoundError{Resource: "ticket"}
	}
	t.NumBookings += tickets
	m.tickets[ticketID] = t
	m.tourBookings[tourID]++
	return nil
}

func (m *memStore) bookingCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.bookings)
}

func (m *memStore) ticket(id string) models.Ticket {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tickets[id]
}

func (m *memStore) tourCount(id string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tourBookings[id]
}

// fixtures

func seedCatalog(m *memStore) {
	m.addTicket(models.Ticket{
		ID:       "ticket-1",
		TourID:   "tour-1",
		TourName: "Ha Long Bay",
		Title:    "Day cruise",
		Prices: []models.TicketPrice{
			{PriceType: "adult", Price: 500000, MinPerBooking: 1, MaxPerBooking: 10},
			{PriceType: "child", Price: 250000, MaxPerBooking: 5},
		},
	})
	m.addRoom(models.Room{ID: "room-3", RoomTypeID: "rt-1", HotelID: "hotel-1", HotelName: "Sea View", RoomTypeName: "Deluxe", MaxOfGuest: 2, NumberOfRoom: 3, Price: 1000000})
	m.addRoom(models.Room{ID: "room-5", RoomTypeID: "rt-1", HotelID: "hotel-1", HotelName: "Sea View", RoomTypeName: "Suite", MaxOfGuest: 4, NumberOfRoom: 5, Price: 2000000})
}

func mustDate(s string) models.Date {
	d, err := models.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func tourRequest(adult, child int) models.BookingRequest {
	return models.BookingRequest{
		UserID:     "u1",
		Type:       models.TargetTour,
		TourID:     "tour-1",
		TicketID:   "ticket-1",
		Quantities: map[string]int{"adult": adult, "child": child},
		UseDate:    mustDate("02/04/2025"),
		TotalPrice: int64(adult)*500000 + int64(child)*250000,
		Name:       "Lan",
		Email:      "lan@example.com",
		Phone:      "0901",
	}
}

func hotelRequest(roomID string, rooms int, checkin, checkout string) models.BookingRequest {
	price := int64(1000000)
	if roomID == "room-5" {
		price = 2000000
	}
	in, out := mustDate(checkin), mustDate(checkout)
	nights := int64(out.Sub(in.Time).Hours() / 24)
	return models.BookingRequest{
		UserID:     "u2",
		Type:       models.TargetHotel,
		HotelID:    "hotel-1",
		RoomTypeID: "rt-1",
		RoomID:     roomID,
		Checkin:    in,
		Checkout:   out,
		NumGuests:  rooms,
		NumRooms:   rooms,
		TotalPrice: price * nights * int64(rooms),
		Name:       "Minh",
		Email:      "minh@example.com",
		Phone:      "0902",
	}
}

func paid(provider, id string) models.Settlement {
	return models.Settlement{Provider: provider, ID: id, Status: models.SettlementPaid}
}

type recordingNotifier struct {
	mu      sync.Mutex
	created []models.Booking
	changed []models.Booking
}

func (r *recordingNotifier) BookingCreated(ctx context.Context, b models.Booking) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.created = append(r.created, b)
}

func (r *recordingNotifier) BookingStatusChanged(ctx context.Context, b models.Booking) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changed = append(r.changed, b)
}

func newMaterializer(m *memStore, n BookingNotifier) Materializer {
	return Materializer{Tx: m, Bookings: m, Catalog: m, Notifier: n}
}
