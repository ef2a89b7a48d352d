package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"ticket-pricing-service/internal/model"
	apperrors "ticket-pricing-service/pkg/app_errors"
)

type ReservationRepository interface {
	FindByReservationID(ctx context.Context, reservationID uuid.UUID) (*model.Reservation, error)
	ListByEvent(ctx context.Context, eventID uuid.UUID) ([]*model.Reservation, error)
	ListByCustomer(ctx context.Context, email string) ([]*model.Reservation, error)
	Stats(ctx context.Context, eventID uuid.UUID) (*model.EventStats, error)
	CountRecent(ctx context.Context, eventID int, since time.Time) (int, error)

	// Transaction methods
	Create(ctx context.Context, tx pgx.Tx, reservation *model.Reservation) (*model.Reservation, error)
	FindByReservationIDWithLock(ctx context.Context, tx pgx.Tx, reservationID uuid.UUID) (*model.Reservation, error)
	DeleteByID(ctx context.Context, tx pgx.Tx, id int) error
	CountSince(ctx context.Context, tx pgx.Tx, eventID int, since time.Time) (int, error)
}

type ReservationRepositoryImpl struct {
	pool *pgxpool.Pool
}

func NewReservationRepository(pool *pgxpool.Pool) ReservationRepository {
	return &ReservationRepositoryImpl{
		pool: pool,
	}
}

func (r *ReservationRepositoryImpl) Create(ctx context.Context, tx pgx.Tx, reservation *model.Reservation) (*model.Reservation, error) {
	query := `
		INSERT INTO reservations (
			reservation_id, event_id, customer_email, quantity, unit_price, total_amount
		)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`

	err := tx.QueryRow(ctx, query,
		reservation.ReservationID, reservation.EventID, reservation.CustomerEmail,
		reservation.Quantity, reservation.UnitPrice, reservation.TotalAmount,
	).Scan(
		&reservation.ID,
		&reservation.CreatedAt,
	)

	if err != nil {
		return nil, fmt.Errorf("failed to create reservation: %w", err)
	}

	return reservation, nil
}

func (r *ReservationRepositoryImpl) FindByReservationID(ctx context.Context, reservationID uuid.UUID) (*model.Reservation, error) {
	query := `
		SELECT r.id, r.reservation_id, r.event_id, e.event_id,
		       r.customer_email, r.quantity, r.unit_price, r.total_amount, r.created_at
		FROM reservations r
		JOIN events e ON e.id = r.event_id
		WHERE r.reservation_id = $1
	`

	var reservation model.Reservation
	err := r.pool.QueryRow(ctx, query, reservationID).Scan(
		&reservation.ID,
		&reservation.ReservationID,
		&reservation.EventID,
		&reservation.EventPublicID,
		&reservation.CustomerEmail,
		&reservation.Quantity,
		&reservation.UnitPrice,
		&reservation.TotalAmount,
		&reservation.CreatedAt,
	)

	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.ErrReservationNotFound
		}
		return nil, err
	}

	return &reservation, nil
}

// FindByReservationIDWithLock re-reads a reservation under the event lock
// before cancelling. A reservation already removed by a racing cancel
// shows up here as not found.
func (r *ReservationRepositoryImpl) FindByReservationIDWithLock(ctx context.Context, tx pgx.Tx, reservationID uuid.UUID) (*model.Reservation, error) {
	query := `
		SELECT id, reservation_id, event_id, customer_email,
		       quantity, unit_price, total_amount, created_at
		FROM reservations
		WHERE reservation_id = $1
		FOR UPDATE
	`

	var reservation model.Reservation
	err := tx.QueryRow(ctx, query, reservationID).Scan(
		&reservation.ID,
		&reservation.ReservationID,
		&reservation.EventID,
		&reservation.CustomerEmail,
		&reservation.Quantity,
		&reservation.UnitPrice,
		&reservation.TotalAmount,
		&reservation.CreatedAt,
	)

	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.ErrReservationNotFound
		}
		return nil, err
	}

	return &reservation, nil
}

func (r *ReservationRepositoryImpl) ListByEvent(ctx context.Context, eventID uuid.UUID) ([]*model.Reservation, error) {
	query := `
		SELECT r.id, r.reservation_id, r.event_id, e.event_id,
		       r.customer_email, r.quantity, r.unit_price, r.total_amount, r.created_at
		FROM reservations r
		JOIN events e ON e.id = r.event_id
		WHERE e.event_id = $1
		ORDER BY r.created_at DESC
	`

	rows, err := r.pool.Query(ctx, query, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectReservations(rows)
}

func (r *ReservationRepositoryImpl) ListByCustomer(ctx context.Context, email string) ([]*model.Reservation, error) {
	query := `
		SELECT r.id, r.reservation_id, r.event_id, e.event_id,
		       r.customer_email, r.quantity, r.unit_price, r.total_amount, r.created_at
		FROM reservations r
		JOIN events e ON e.id = r.event_id
		WHERE r.customer_email = $1
		ORDER BY r.created_at DESC
	`

	rows, err := r.pool.Query(ctx, query, email)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectReservations(rows)
}

func (r *ReservationRepositoryImpl) DeleteByID(ctx context.Context, tx pgx.Tx, id int) error {
	query := `
		DELETE FROM reservations
		WHERE id = $1
	`

	result, err := tx.Exec(ctx, query, id)
	if err != nil {
		return err
	}

	if result.RowsAffected() == 0 {
		return apperrors.ErrReservationNotFound
	}

	return nil
}

// CountSince is the demand signal: reservations created for the event
// inside the trailing window, read in the booking transaction.
func (r *ReservationRepositoryImpl) CountSince(ctx context.Context, tx pgx.Tx, eventID int, since time.Time) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM reservations
		WHERE event_id = $1 AND created_at >= $2
	`

	var count int
	err := tx.QueryRow(ctx, query, eventID, since).Scan(&count)
	if err != nil {
		return 0, err
	}

	return count, nil
}

// CountRecent is the same demand read outside a transaction, used by the
// price quote path.
func (r *ReservationRepositoryImpl) CountRecent(ctx context.Context, eventID int, since time.Time) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM reservations
		WHERE event_id = $1 AND created_at >= $2
	`

	var count int
	err := r.pool.QueryRow(ctx, query, eventID, since).Scan(&count)
	if err != nil {
		return 0, err
	}

	return count, nil
}

func (r *ReservationRepositoryImpl) Stats(ctx context.Context, eventID uuid.UUID) (*model.EventStats, error) {
	query := `
		SELECT e.event_id, e.capacity, e.consumed, e.current_price,
		       COUNT(r.id), COALESCE(SUM(r.total_amount), 0)
		FROM events e
		LEFT JOIN reservations r ON r.event_id = e.id
		WHERE e.event_id = $1
		GROUP BY e.event_id, e.capacity, e.consumed, e.current_price
	`

	var stats model.EventStats
	err := r.pool.QueryRow(ctx, query, eventID).Scan(
		&stats.EventID,
		&stats.Capacity,
		&stats.Consumed,
		&stats.CurrentPrice,
		&stats.ReservationCount,
		&stats.TotalRevenue,
	)

	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.ErrEventNotFound
		}
		return nil, err
	}

	stats.Remaining = stats.Capacity - stats.Consumed
	if stats.Capacity > 0 {
		stats.SoldRatio = float64(stats.Consumed) / float64(stats.Capacity)
	}

	return &stats, nil
}

func collectReservations(rows pgx.Rows) ([]*model.Reservation, error) {
	reservations := make([]*model.Reservation, 0)

	for rows.Next() {
		var reservation model.Reservation
		err := rows.Scan(
			&reservation.ID,
			&reservation.ReservationID,
			&reservation.EventID,
			&reservation.EventPublicID,
			&reservation.CustomerEmail,
			&reservation.Quantity,
			&reservation.UnitPrice,
			&reservation.TotalAmount,
			&reservation.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		reservations = append(reservations, &reservation)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return reservations, nil
}
