package model

import (
	"time"

	"github.com/google/uuid"
)

// Reservation is a confirmed booking. The unit price is the dynamic price
// committed inside the booking transaction; it never changes afterwards.
type Reservation struct {
	ID            int       `json:"id" db:"id"`
	ReservationID uuid.UUID `json:"reservation_id" db:"reservation_id"`
	EventID       int       `json:"-" db:"event_id"`
	EventPublicID uuid.UUID `json:"event_id" db:"-"`
	CustomerEmail string    `json:"customer_email" db:"customer_email"`
	Quantity      int       `json:"quantity" db:"quantity"`
	UnitPrice     float64   `json:"unit_price" db:"unit_price"`
	TotalAmount   float64   `json:"total_amount" db:"total_amount"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}

type BookingRequest struct {
	EventID       uuid.UUID `json:"event_id" binding:"required"`
	CustomerEmail string    `json:"customer_email" binding:"required,email"`
	Quantity      int       `json:"quantity" binding:"required,min=1"`
}

// BookingReceipt is returned to the customer after a successful booking.
type BookingReceipt struct {
	ReservationID uuid.UUID `json:"reservation_id"`
	EventID       uuid.UUID `json:"event_id"`
	CustomerEmail string    `json:"customer_email"`
	Quantity      int       `json:"quantity"`
	UnitPrice     float64   `json:"unit_price"`
	TotalAmount   float64   `json:"total_amount"`
	CreatedAt     time.Time `json:"created_at"`
}

// CancellationReceipt records a cancellation. RefundAmount is the recorded
// total of the destroyed reservation; no money movement happens here.
type CancellationReceipt struct {
	ReservationID uuid.UUID `json:"reservation_id"`
	EventID       uuid.UUID `json:"event_id"`
	Quantity      int       `json:"quantity"`
	RefundAmount  float64   `json:"refund_amount"`
	CanceledAt    time.Time `json:"canceled_at"`
}
