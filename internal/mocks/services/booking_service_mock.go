package services

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"ticket-pricing-service/internal/model"
)

type BookingServiceMock struct {
	mock.Mock
}

func NewBookingServiceMock() *BookingServiceMock {
	return &BookingServiceMock{}
}

func (m *BookingServiceMock) Book(ctx context.Context, req model.BookingRequest) (*model.BookingReceipt, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.BookingReceipt), args.Error(1)
}

func (m *BookingServiceMock) Cancel(ctx context.Context, reservationID uuid.UUID, email string) (*model.CancellationReceipt, error) {
	args := m.Called(ctx, reservationID, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.CancellationReceipt), args.Error(1)
}

func (m *BookingServiceMock) GetByReservationID(ctx context.Context, reservationID uuid.UUID) (*model.Reservation, error) {
	args := m.Called(ctx, reservationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Reservation), args.Error(1)
}

func (m *BookingServiceMock) ListByEvent(ctx context.Context, eventID uuid.UUID) ([]*model.Reservation, error) {
	args := m.Called(ctx, eventID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Reservation), args.Error(1)
}

func (m *BookingServiceMock) ListByCustomer(ctx context.Context, email string) ([]*model.Reservation, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Reservation), args.Error(1)
}
