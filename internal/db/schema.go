package db

import (
	"context"
	"database/sql"
	"fmt"

	"vagabond/internal/utils"
)

var schemaDDL = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id CHAR(36) NOT NULL PRIMARY KEY,
		first_name VARCHAR(100) NOT NULL DEFAULT '',
		last_name VARCHAR(100) NOT NULL DEFAULT '',
		email VARCHAR(190) NOT NULL,
		phone VARCHAR(30) NOT NULL DEFAULT '',
		password_hash VARCHAR(100) NOT NULL,
		role VARCHAR(20) NOT NULL DEFAULT 'user',
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE KEY uniq_users_email (email)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS tours (
		id CHAR(36) NOT NULL PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		bookings INT NOT NULL DEFAULT 0,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS tickets (
		id CHAR(36) NOT NULL PRIMARY KEY,
		tour_id CHAR(36) NOT NULL,
		title VARCHAR(255) NOT NULL DEFAULT '',
		max_quantity INT NOT NULL DEFAULT 0,
		num_bookings INT NOT NULL DEFAULT 0,
		KEY idx_tickets_tour (tour_id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS ticket_prices (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		ticket_id CHAR(36) NOT NULL,
		price_type VARCHAR(50) NOT NULL,
		price BIGINT NOT NULL,
		min_per_booking INT NOT NULL DEFAULT 0,
		max_per_booking INT NOT NULL DEFAULT 0,
		UNIQUE KEY uniq_ticket_price_type (ticket_id, price_type)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS hotels (
		id CHAR(36) NOT NULL PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS hotel_room_types (
		id CHAR(36) NOT NULL PRIMARY KEY,
		hotel_id CHAR(36) NOT NULL,
		name VARCHAR(255) NOT NULL,
		KEY idx_room_types_hotel (hotel_id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS hotel_rooms (
		id CHAR(36) NOT NULL PRIMARY KEY,
		room_type_id CHAR(36) NOT NULL,
		bed_type VARCHAR(100) NOT NULL DEFAULT '',
		max_of_guest INT NOT NULL DEFAULT 1,
		number_of_room INT NOT NULL DEFAULT 0,
		price BIGINT NOT NULL,
		KEY idx_rooms_type (room_type_id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	// payment_provider/settlement_id are NULL for pay-later bookings, so the
	// unique key only binds settled ones.
	`CREATE TABLE IF NOT EXISTS bookings (
		id CHAR(36) NOT NULL PRIMARY KEY,
		kind VARCHAR(10) NOT NULL,
		user_id CHAR(36) NULL,
		tour_id CHAR(36) NULL,
		ticket_id CHAR(36) NULL,
		use_date DATE NULL,
		quantities JSON NULL,
		hotel_id CHAR(36) NULL,
		room_type_id CHAR(36) NULL,
		room_id CHAR(36) NULL,
		checkin DATE NULL,
		checkout DATE NULL,
		num_guests INT NOT NULL DEFAULT 0,
		num_rooms INT NOT NULL DEFAULT 0,
		name VARCHAR(255) NOT NULL DEFAULT '',
		email VARCHAR(190) NOT NULL DEFAULT '',
		phone VARCHAR(30) NOT NULL DEFAULT '',
		total_price BIGINT NOT NULL DEFAULT 0,
		payment_method VARCHAR(30) NOT NULL DEFAULT '',
		payment_provider VARCHAR(20) NULL,
		settlement_id VARCHAR(255) NULL,
		payment_status VARCHAR(10) NOT NULL DEFAULT 'unpaid',
		booking_status VARCHAR(10) NOT NULL DEFAULT 'pending',
		is_reviewed VARCHAR(3) NOT NULL DEFAULT 'no',
		counters_applied TINYINT(1) NOT NULL DEFAULT 0,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		UNIQUE KEY uniq_settlement (payment_provider, settlement_id),
		KEY idx_bookings_room_window (room_id, booking_status, checkin, checkout),
		KEY idx_bookings_user (user_id),
		KEY idx_bookings_tour (tour_id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

// columnPatches backfill columns on tables created by older releases.
var columnPatches = []struct {
	table, column, ddl string
}{
	{"bookings", "counters_applied", "ALTER TABLE bookings ADD COLUMN counters_applied TINYINT(1) NOT NULL DEFAULT 0"},
	{"bookings", "payment_provider", "ALTER TABLE bookings ADD COLUMN payment_provider VARCHAR(20) NULL"},
}

// EnsureSchema creates missing tables and columns. Safe to run on every boot.
func EnsureSchema(ctx context.Context, conn *sql.DB) error {
	for _, stmt := range schemaDDL {
		if _, err := conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	for _, p := range columnPatches {
		if HasColumn(ctx, conn, p.table, p.column) {
			continue
		}
		if _, err := conn.ExecContext(ctx, p.ddl); err != nil {
			return fmt.Errorf("add column %s.%s: %w", p.table, p.column, err)
		}
		utils.LogEvent("", "db", "migrate", "added column "+p.table+"."+p.column)
	}
	return nil
}
