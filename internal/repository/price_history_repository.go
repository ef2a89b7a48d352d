package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"ticket-pricing-service/internal/model"
)

type PriceHistoryRepository interface {
	Insert(ctx context.Context, tick *model.PriceTick) error
	ListByEvent(ctx context.Context, eventID uuid.UUID, limit int) ([]*model.PriceTick, error)
}

type PriceHistoryRepositoryImpl struct {
	pool *pgxpool.Pool
}

func NewPriceHistoryRepository(pool *pgxpool.Pool) PriceHistoryRepository {
	return &PriceHistoryRepositoryImpl{
		pool: pool,
	}
}

func (r *PriceHistoryRepositoryImpl) Insert(ctx context.Context, tick *model.PriceTick) error {
	query := `
		INSERT INTO price_history (event_id, price, consumed, capacity, cause, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`

	err := r.pool.QueryRow(ctx, query,
		tick.EventID, tick.Price, tick.Consumed, tick.Capacity, tick.Cause, tick.OccurredAt,
	).Scan(&tick.ID)

	if err != nil {
		return fmt.Errorf("failed to insert price tick: %w", err)
	}

	return nil
}

func (r *PriceHistoryRepositoryImpl) ListByEvent(ctx context.Context, eventID uuid.UUID, limit int) ([]*model.PriceTick, error) {
	query := `
		SELECT id, event_id, price, consumed, capacity, cause, occurred_at
		FROM price_history
		WHERE event_id = $1
		ORDER BY occurred_at DESC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, eventID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ticks := make([]*model.PriceTick, 0)

	for rows.Next() {
		var tick model.PriceTick
		err := rows.Scan(
			&tick.ID,
			&tick.EventID,
			&tick.Price,
			&tick.Consumed,
			&tick.Capacity,
			&tick.Cause,
			&tick.OccurredAt,
		)
		if err != nil {
			return nil, err
		}
		ticks = append(ticks, &tick)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return ticks, nil
}
