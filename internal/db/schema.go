package db

import (
	"context"
	"database/sql"
	"fmt"
)

type migration struct {
	table string
	ddl   string
}

var migrations = []migration{
	{"users", `
CREATE TABLE IF NOT EXISTS users (
	id BIGINT AUTO_INCREMENT PRIMARY KEY,
	name VARCHAR(255) NOT NULL,
	username VARCHAR(100) COLLATE utf8mb4_bin NOT NULL,
	email VARCHAR(255) COLLATE utf8mb4_bin NOT NULL,
	phone VARCHAR(50) NOT NULL DEFAULT '',
	password_hash VARCHAR(255) NOT NULL,
	role VARCHAR(20) NOT NULL DEFAULT 'customer',
	status VARCHAR(20) NOT NULL DEFAULT 'active',
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
	UNIQUE KEY uniq_users_username (username),
	UNIQUE KEY uniq_users_email (email)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`},
	{"flights", `
CREATE TABLE IF NOT EXISTS flights (
	id BIGINT AUTO_INCREMENT PRIMARY KEY,
	flight_code VARCHAR(64) NOT NULL,
	departure_at DATETIME NOT NULL,
	origin VARCHAR(120) NOT NULL,
	destination VARCHAR(120) NOT NULL,
	duration_minutes INT NOT NULL,
	international TINYINT(1) NOT NULL DEFAULT 0,
	arrival_local DATETIME NULL,
	base_price DECIMAL(14,2) NOT NULL,
	status VARCHAR(20) NOT NULL DEFAULT 'programado',
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL,
	UNIQUE KEY uniq_flights_code (flight_code),
	KEY idx_flights_departure (departure_at)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`},
	{"reservations", `
CREATE TABLE IF NOT EXISTS reservations (
	id BIGINT AUTO_INCREMENT PRIMARY KEY,
	user_id BIGINT NOT NULL,
	flight_id BIGINT NOT NULL,
	kind VARCHAR(20) NOT NULL,
	status VARCHAR(20) NOT NULL,
	total_price DECIMAL(14,2) NOT NULL,
	passenger_count INT NOT NULL,
	notes TEXT NULL,
	payment_intent_id VARCHAR(255) NULL,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL,
	cancelled_at DATETIME NULL,
	cancel_reason VARCHAR(500) NULL,
	UNIQUE KEY uniq_reservations_intent (payment_intent_id),
	KEY idx_reservations_user (user_id, created_at),
	CONSTRAINT fk_reservations_user FOREIGN KEY (user_id) REFERENCES users(id),
	CONSTRAINT fk_reservations_flight FOREIGN KEY (flight_id) REFERENCES flights(id) ON DELETE RESTRICT
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`},
	{"payment_intents", `
CREATE TABLE IF NOT EXISTS payment_intents (
	intent_id VARCHAR(255) PRIMARY KEY,
	idempotency_key VARCHAR(100) NOT NULL,
	user_id BIGINT NOT NULL,
	flight_id BIGINT NOT NULL,
	passenger_count INT NOT NULL,
	kind VARCHAR(20) NOT NULL,
	amount_minor BIGINT NOT NULL,
	currency VARCHAR(10) NOT NULL,
	state VARCHAR(20) NOT NULL,
	reservation_id BIGINT NULL,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL,
	UNIQUE KEY uniq_payment_intents_key (user_id, idempotency_key),
	KEY idx_payment_intents_state (state, created_at)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`},
}

// Migrate creates missing tables and backfills columns added after the first
// release. It is safe to run repeatedly.
func Migrate(ctx context.Context, conn *sql.DB) ([]string, error) {
	applied := []string{}
	for _, m := range migrations {
		if HasTable(ctx, conn, m.table) {
			continue
		}
		if _, err := conn.ExecContext(ctx, m.ddl); err != nil {
			return applied, fmt.Errorf("create %s: %w", m.table, err)
		}
		applied = append(applied, "create "+m.table)
	}

	// reservations created before payment linking lack the intent column.
	if !HasColumn(ctx, conn, "reservations", "payment_intent_id") {
		if _, err := conn.ExecContext(ctx, `ALTER TABLE reservations
			ADD COLUMN payment_intent_id VARCHAR(255) NULL,
			ADD UNIQUE KEY uniq_reservations_intent (payment_intent_id)`); err != nil {
			return applied, fmt.Errorf("alter reservations: %w", err)
		}
		applied = append(applied, "alter reservations add payment_intent_id")
	}
	return applied, nil
}
