package model

import (
	"time"

	"github.com/google/uuid"

	apperrors "ticket-pricing-service/pkg/app_errors"
)

// Event is a sellable ticket pool with its dynamic pricing parameters.
// Capacity is fixed at creation; Consumed only moves inside the event lock.
type Event struct {
	ID           int          `json:"id" db:"id"`
	EventID      uuid.UUID    `json:"event_id" db:"event_id"`
	Name         string       `json:"name" db:"name"`
	Venue        string       `json:"venue" db:"venue"`
	StartsAt     time.Time    `json:"starts_at" db:"starts_at"`
	Active       bool         `json:"active" db:"active"`
	Capacity     int          `json:"capacity" db:"capacity"`
	Consumed     int          `json:"consumed" db:"consumed"`
	BasePrice    float64      `json:"base_price" db:"base_price"`
	CurrentPrice float64      `json:"current_price" db:"current_price"`
	FloorPrice   float64      `json:"floor_price" db:"floor_price"`
	CeilingPrice float64      `json:"ceiling_price" db:"ceiling_price"`
	Rules        PricingRules `json:"pricing_rules" db:"-"`
	CreatedAt    time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at" db:"updated_at"`
}

// PricingRule pairs a signal weight with its tier rate.
type PricingRule struct {
	Weight float64 `json:"weight"`
	Rate   float64 `json:"rate"`
}

// PricingRules holds one rule per pricing signal.
type PricingRules struct {
	Time      PricingRule `json:"time"`
	Demand    PricingRule `json:"demand"`
	Inventory PricingRule `json:"inventory"`
}

// weightSumTolerance allows for float drift when weights are entered as
// thirds or other repeating fractions.
const weightSumTolerance = 0.01

// Validate checks every weight is within [0, 1], the weights sum to 1
// within tolerance, and no rate is negative.
func (r PricingRules) Validate() error {
	rules := map[string]PricingRule{
		"time":      r.Time,
		"demand":    r.Demand,
		"inventory": r.Inventory,
	}
	sum := 0.0
	for name, rule := range rules {
		if rule.Weight < 0 || rule.Weight > 1 {
			return apperrors.Validation("%s weight %.4f outside [0, 1]", name, rule.Weight)
		}
		if rule.Rate < 0 {
			return apperrors.Validation("%s rate %.4f is negative", name, rule.Rate)
		}
		sum += rule.Weight
	}
	if diff := sum - 1; diff > weightSumTolerance || diff < -weightSumTolerance {
		return apperrors.Validation("weights sum to %.4f, expected 1", sum)
	}
	return nil
}

// Remaining is the number of still sellable tickets.
func (e *Event) Remaining() int {
	return e.Capacity - e.Consumed
}

// RemainingRatio returns Remaining/Capacity; a zero capacity reads as fully
// consumed.
func (e *Event) RemainingRatio() float64 {
	if e.Capacity <= 0 {
		return 0
	}
	return float64(e.Remaining()) / float64(e.Capacity)
}

// Expired reports whether the event has already started.
func (e *Event) Expired(now time.Time) bool {
	return !e.StartsAt.After(now)
}

type CreateEventRequest struct {
	Name         string       `json:"name" binding:"required"`
	Venue        string       `json:"venue" binding:"required"`
	StartsAt     time.Time    `json:"starts_at" binding:"required"`
	Capacity     int          `json:"capacity" binding:"required,min=1"`
	BasePrice    float64      `json:"base_price" binding:"required,gt=0"`
	FloorPrice   float64      `json:"floor_price" binding:"required,gt=0"`
	CeilingPrice float64      `json:"ceiling_price" binding:"required,gt=0"`
	Rules        PricingRules `json:"pricing_rules"`
}

type EventResponse struct {
	EventID      uuid.UUID    `json:"event_id"`
	Name         string       `json:"name"`
	Venue        string       `json:"venue"`
	StartsAt     time.Time    `json:"starts_at"`
	Active       bool         `json:"active"`
	Capacity     int          `json:"capacity"`
	Consumed     int          `json:"consumed"`
	Remaining    int          `json:"remaining"`
	CurrentPrice float64      `json:"current_price"`
	Rules        PricingRules `json:"pricing_rules"`
}

func (e *Event) ToResponse() *EventResponse {
	return &EventResponse{
		EventID:      e.EventID,
		Name:         e.Name,
		Venue:        e.Venue,
		StartsAt:     e.StartsAt,
		Active:       e.Active,
		Capacity:     e.Capacity,
		Consumed:     e.Consumed,
		Remaining:    e.Remaining(),
		CurrentPrice: e.CurrentPrice,
		Rules:        e.Rules,
	}
}

// EventStats is the aggregate read model served by the stats endpoint.
type EventStats struct {
	EventID          uuid.UUID `json:"event_id"`
	Capacity         int       `json:"capacity"`
	Consumed         int       `json:"consumed"`
	Remaining        int       `json:"remaining"`
	ReservationCount int       `json:"reservation_count"`
	TotalRevenue     float64   `json:"total_revenue"`
	CurrentPrice     float64   `json:"current_price"`
	SoldRatio        float64   `json:"sold_ratio"`
}
