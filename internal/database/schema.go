package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// InitSchema creates the tables and indexes on startup so a fresh database
// is usable without a separate migration step.
func InitSchema(ctx context.Context, pool *pgxpool.Pool) error {
	if err := createEventsTable(ctx, pool); err != nil {
		return fmt.Errorf("creating events table: %w", err)
	}

	if err := createReservationsTable(ctx, pool); err != nil {
		return fmt.Errorf("creating reservations table: %w", err)
	}

	if err := createPriceHistoryTable(ctx, pool); err != nil {
		return fmt.Errorf("creating price_history table: %w", err)
	}

	return nil
}

func createEventsTable(ctx context.Context, pool *pgxpool.Pool) error {
	query := `
		CREATE TABLE IF NOT EXISTS events (
			id SERIAL PRIMARY KEY,
			event_id UUID NOT NULL UNIQUE,
			name TEXT NOT NULL,
			venue TEXT NOT NULL,
			starts_at TIMESTAMPTZ NOT NULL,
			active BOOLEAN NOT NULL DEFAULT TRUE,
			capacity INTEGER NOT NULL CHECK (capacity > 0),
			consumed INTEGER NOT NULL DEFAULT 0 CHECK (consumed >= 0 AND consumed <= capacity),
			base_price DOUBLE PRECISION NOT NULL,
			current_price DOUBLE PRECISION NOT NULL,
			floor_price DOUBLE PRECISION NOT NULL,
			ceiling_price DOUBLE PRECISION NOT NULL,
			time_weight DOUBLE PRECISION NOT NULL,
			time_rate DOUBLE PRECISION NOT NULL,
			demand_weight DOUBLE PRECISION NOT NULL,
			demand_rate DOUBLE PRECISION NOT NULL,
			inventory_weight DOUBLE PRECISION NOT NULL,
			inventory_rate DOUBLE PRECISION NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`
	_, err := pool.Exec(ctx, query)
	return err
}

func createReservationsTable(ctx context.Context, pool *pgxpool.Pool) error {
	query := `
		CREATE TABLE IF NOT EXISTS reservations (
			id SERIAL PRIMARY KEY,
			reservation_id UUID NOT NULL UNIQUE,
			event_id INTEGER NOT NULL REFERENCES events(id),
			customer_email TEXT NOT NULL,
			quantity INTEGER NOT NULL CHECK (quantity > 0),
			unit_price DOUBLE PRECISION NOT NULL,
			total_amount DOUBLE PRECISION NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`
	if _, err := pool.Exec(ctx, query); err != nil {
		return err
	}

	// the demand signal counts reservations per event inside a trailing
	// window, so the compound index matters under load
	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_reservations_event_created ON reservations (event_id, created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_reservations_customer ON reservations (customer_email)`,
	}
	for _, idx := range indexes {
		if _, err := pool.Exec(ctx, idx); err != nil {
			return err
		}
	}
	return nil
}

func createPriceHistoryTable(ctx context.Context, pool *pgxpool.Pool) error {
	query := `
		CREATE TABLE IF NOT EXISTS price_history (
			id SERIAL PRIMARY KEY,
			event_id UUID NOT NULL,
			price DOUBLE PRECISION NOT NULL,
			consumed INTEGER NOT NULL,
			capacity INTEGER NOT NULL,
			cause TEXT NOT NULL,
			occurred_at TIMESTAMPTZ NOT NULL
		)`
	if _, err := pool.Exec(ctx, query); err != nil {
		return err
	}

	_, err := pool.Exec(ctx,
		`CREATE INDEX IF NOT EXISTS idx_price_history_event_occurred ON price_history (event_id, occurred_at DESC)`)
	return err
}
