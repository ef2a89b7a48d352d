package services

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"ticket-pricing-service/internal/pricing"
)

type PricingServiceMock struct {
	mock.Mock
}

func NewPricingServiceMock() *PricingServiceMock {
	return &PricingServiceMock{}
}

func (m *PricingServiceMock) CurrentPrice(ctx context.Context, eventID uuid.UUID) (*pricing.Quote, error) {
	args := m.Called(ctx, eventID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*pricing.Quote), args.Error(1)
}
