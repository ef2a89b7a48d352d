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

type EventRepository interface {
	Create(ctx context.Context, event *model.Event) (*model.Event, error)
	List(ctx context.Context) ([]*model.Event, error)
	FindByEventID(ctx context.Context, eventID uuid.UUID) (*model.Event, error)
	SetActive(ctx context.Context, eventID uuid.UUID, active bool) error
	UpdateRules(ctx context.Context, eventID uuid.UUID, rules model.PricingRules) (*model.Event, error)

	// Transaction methods
	WithEventLock(ctx context.Context, eventID uuid.UUID, fn func(tx pgx.Tx, event *model.Event) error) error
	ReserveCapacity(ctx context.Context, tx pgx.Tx, id int, quantity int) error
	ReleaseCapacity(ctx context.Context, tx pgx.Tx, id int, quantity int) error
	UpdateCurrentPrice(ctx context.Context, tx pgx.Tx, id int, price float64) error
}

type EventRepositoryImpl struct {
	pool *pgxpool.Pool
}

func NewEventRepository(pool *pgxpool.Pool) EventRepository {
	return &EventRepositoryImpl{
		pool: pool,
	}
}

func (r *EventRepositoryImpl) Create(ctx context.Context, event *model.Event) (*model.Event, error) {
	query := `
		INSERT INTO events (
			event_id, name, venue, starts_at, active, capacity, consumed,
			base_price, current_price, floor_price, ceiling_price,
			time_weight, time_rate, demand_weight, demand_rate,
			inventory_weight, inventory_rate
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		RETURNING id, created_at, updated_at
	`

	err := r.pool.QueryRow(ctx, query,
		event.EventID, event.Name, event.Venue, event.StartsAt, event.Active,
		event.Capacity, event.Consumed,
		event.BasePrice, event.CurrentPrice, event.FloorPrice, event.CeilingPrice,
		event.Rules.Time.Weight, event.Rules.Time.Rate,
		event.Rules.Demand.Weight, event.Rules.Demand.Rate,
		event.Rules.Inventory.Weight, event.Rules.Inventory.Rate,
	).Scan(
		&event.ID,
		&event.CreatedAt,
		&event.UpdatedAt,
	)

	if err != nil {
		return nil, err
	}

	return event, nil
}

func (r *EventRepositoryImpl) List(ctx context.Context) ([]*model.Event, error) {
	query := `
		SELECT id, event_id, name, venue, starts_at, active, capacity, consumed,
		       base_price, current_price, floor_price, ceiling_price,
		       time_weight, time_rate, demand_weight, demand_rate,
		       inventory_weight, inventory_rate,
		       created_at, updated_at
		FROM events
		ORDER BY starts_at ASC
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := make([]*model.Event, 0)

	for rows.Next() {
		var event model.Event
		err := scanEvent(rows, &event)
		if err != nil {
			return nil, err
		}
		events = append(events, &event)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return events, nil
}

func (r *EventRepositoryImpl) FindByEventID(ctx context.Context, eventID uuid.UUID) (*model.Event, error) {
	query := `
		SELECT id, event_id, name, venue, starts_at, active, capacity, consumed,
		       base_price, current_price, floor_price, ceiling_price,
		       time_weight, time_rate, demand_weight, demand_rate,
		       inventory_weight, inventory_rate,
		       created_at, updated_at
		FROM events
		WHERE event_id = $1
	`

	var event model.Event
	err := scanEvent(r.pool.QueryRow(ctx, query, eventID), &event)

	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.ErrEventNotFound
		}
		return nil, err
	}

	return &event, nil
}

func (r *EventRepositoryImpl) SetActive(ctx context.Context, eventID uuid.UUID, active bool) error {
	query := `
		UPDATE events
		SET active = $1, updated_at = $2
		WHERE event_id = $3
	`

	result, err := r.pool.Exec(ctx, query, active, time.Now().UTC(), eventID)
	if err != nil {
		return err
	}

	if result.RowsAffected() == 0 {
		return apperrors.ErrEventNotFound
	}

	return nil
}

func (r *EventRepositoryImpl) UpdateRules(ctx context.Context, eventID uuid.UUID, rules model.PricingRules) (*model.Event, error) {
	query := `
		UPDATE events
		SET time_weight = $1, time_rate = $2,
		    demand_weight = $3, demand_rate = $4,
		    inventory_weight = $5, inventory_rate = $6,
		    updated_at = $7
		WHERE event_id = $8
		RETURNING id, event_id, name, venue, starts_at, active, capacity, consumed,
		          base_price, current_price, floor_price, ceiling_price,
		          time_weight, time_rate, demand_weight, demand_rate,
		          inventory_weight, inventory_rate,
		          created_at, updated_at
	`

	var event model.Event
	err := scanEvent(r.pool.QueryRow(ctx, query,
		rules.Time.Weight, rules.Time.Rate,
		rules.Demand.Weight, rules.Demand.Rate,
		rules.Inventory.Weight, rules.Inventory.Rate,
		time.Now().UTC(), eventID,
	), &event)

	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.ErrEventNotFound
		}
		return nil, err
	}

	return &event, nil
}

// WithEventLock runs fn inside a transaction holding the row lock for one
// event. Every capacity or price mutation goes through here, so mutations
// per event are fully serialized. The lock covers exactly one row, which
// keeps lock ordering trivial.
func (r *EventRepositoryImpl) WithEventLock(ctx context.Context, eventID uuid.UUID, fn func(tx pgx.Tx, event *model.Event) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		// a failed begin means no usable connection
		return fmt.Errorf("%w: %v", apperrors.ErrStorageUnavailable, err)
	}
	defer tx.Rollback(ctx)

	event, err := r.findByEventIDForUpdate(ctx, tx, eventID)
	if err != nil {
		return err
	}

	if err := fn(tx, event); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (r *EventRepositoryImpl) findByEventIDForUpdate(ctx context.Context, tx pgx.Tx, eventID uuid.UUID) (*model.Event, error) {
	query := `
		SELECT id, event_id, name, venue, starts_at, active, capacity, consumed,
		       base_price, current_price, floor_price, ceiling_price,
		       time_weight, time_rate, demand_weight, demand_rate,
		       inventory_weight, inventory_rate,
		       created_at, updated_at
		FROM events
		WHERE event_id = $1
		FOR UPDATE
	`

	var event model.Event
	err := scanEvent(tx.QueryRow(ctx, query, eventID), &event)

	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.ErrEventNotFound
		}
		return nil, err
	}

	return &event, nil
}

func (r *EventRepositoryImpl) ReserveCapacity(ctx context.Context, tx pgx.Tx, id int, quantity int) error {
	query := `
		UPDATE events
		SET consumed = consumed + $1, updated_at = $2
		WHERE id = $3 AND consumed + $1 <= capacity
	`

	result, err := tx.Exec(ctx, query, quantity, time.Now().UTC(), id)
	if err != nil {
		return err
	}

	if result.RowsAffected() == 0 {
		return apperrors.ErrInsufficientCapacity
	}

	return nil
}

func (r *EventRepositoryImpl) ReleaseCapacity(ctx context.Context, tx pgx.Tx, id int, quantity int) error {
	query := `
		UPDATE events
		SET consumed = GREATEST(consumed - $1, 0), updated_at = $2
		WHERE id = $3
	`

	result, err := tx.Exec(ctx, query, quantity, time.Now().UTC(), id)
	if err != nil {
		return err
	}

	if result.RowsAffected() == 0 {
		return apperrors.ErrEventNotFound
	}

	return nil
}

func (r *EventRepositoryImpl) UpdateCurrentPrice(ctx context.Context, tx pgx.Tx, id int, price float64) error {
	query := `
		UPDATE events
		SET current_price = $1, updated_at = $2
		WHERE id = $3
	`

	result, err := tx.Exec(ctx, query, price, time.Now().UTC(), id)
	if err != nil {
		return err
	}

	if result.RowsAffected() == 0 {
		return apperrors.ErrEventNotFound
	}

	return nil
}

// scanEvent reads the full events column list in query order.
func scanEvent(row pgx.Row, event *model.Event) error {
	return row.Scan(
		&event.ID,
		&event.EventID,
		&event.Name,
		&event.Venue,
		&event.StartsAt,
		&event.Active,
		&event.Capacity,
		&event.Consumed,
		&event.BasePrice,
		&event.CurrentPrice,
		&event.FloorPrice,
		&event.CeilingPrice,
		&event.Rules.Time.Weight,
		&event.Rules.Time.Rate,
		&event.Rules.Demand.Weight,
		&event.Rules.Demand.Rate,
		&event.Rules.Inventory.Weight,
		&event.Rules.Inventory.Rate,
		&event.CreatedAt,
		&event.UpdatedAt,
	)
}
