package model

import (
	"time"

	"github.com/google/uuid"
)

// TickCause names the mutation that moved the price.
type TickCause string

const (
	TickCauseBooking      TickCause = "booking"
	TickCauseCancellation TickCause = "cancellation"
)

// IsValid reports whether the cause is one of the known mutation kinds.
func (c TickCause) IsValid() bool {
	switch c {
	case TickCauseBooking, TickCauseCancellation:
		return true
	}
	return false
}

// PriceTick is one committed price movement, published to the tick feed
// after the transaction commits and persisted as price history.
type PriceTick struct {
	ID         int       `json:"id" db:"id"`
	EventID    uuid.UUID `json:"event_id" db:"event_id"`
	Price      float64   `json:"price" db:"price"`
	Consumed   int       `json:"consumed" db:"consumed"`
	Capacity   int       `json:"capacity" db:"capacity"`
	Cause      TickCause `json:"cause" db:"cause"`
	OccurredAt time.Time `json:"occurred_at" db:"occurred_at"`
}
