package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"ticket-pricing-service/config"
	"ticket-pricing-service/internal/cache"
	"ticket-pricing-service/internal/pricing"
	"ticket-pricing-service/internal/repository"
	apperrors "ticket-pricing-service/pkg/app_errors"
	"ticket-pricing-service/pkg/logger"
	"ticket-pricing-service/pkg/metrics"
	"ticket-pricing-service/pkg/tracing"
)

type PricingService interface {
	// CurrentPrice returns the full price breakdown for one event,
	// serving from cache when a fresh quote exists.
	CurrentPrice(ctx context.Context, eventID uuid.UUID) (*pricing.Quote, error)
}

type PricingServiceImpl struct {
	eventRepo       repository.EventRepository
	reservationRepo repository.ReservationRepository
	cache           cache.PriceCache
	demandWindow    time.Duration
	logger          *zap.Logger
}

func NewPricingService(
	eventRepo repository.EventRepository,
	reservationRepo repository.ReservationRepository,
	priceCache cache.PriceCache,
	cfg config.PricingConfig,
) PricingService {
	return &PricingServiceImpl{
		eventRepo:       eventRepo,
		reservationRepo: reservationRepo,
		cache:           priceCache,
		demandWindow:    cfg.DemandWindow,
		logger:          logger.WithComponent("pricing_service"),
	}
}

func (s *PricingServiceImpl) CurrentPrice(ctx context.Context, eventID uuid.UUID) (*pricing.Quote, error) {
	ctx, span := tracing.StartSpan(ctx, "pricing.current_price")
	defer span.End()

	if quote, ok := s.cache.GetQuote(ctx, eventID); ok {
		return quote, nil
	}

	event, err := s.eventRepo.FindByEventID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if !event.Active {
		return nil, apperrors.ErrEventClosed
	}

	now := time.Now().UTC()
	quote := pricing.Compute(pricing.Input{
		BasePrice:    event.BasePrice,
		FloorPrice:   event.FloorPrice,
		CeilingPrice: event.CeilingPrice,
		Capacity:     event.Capacity,
		Consumed:     event.Consumed,
		Rules:        event.Rules,
		StartsAt:     event.StartsAt,
		Now:          now,
		DemandCount:  s.demandCount(ctx, event.ID, now),
	})
	metrics.PriceComputationsTotal.Inc()

	s.cache.SetQuote(ctx, eventID, &quote)

	return &quote, nil
}

// demandCount degrades to zero when the read fails; a missing demand
// signal must never block a price quote.
func (s *PricingServiceImpl) demandCount(ctx context.Context, eventID int, now time.Time) int {
	count, err := s.reservationRepo.CountRecent(ctx, eventID, now.Add(-s.demandWindow))
	if err != nil {
		s.logger.Warn("demand read failed, pricing with zero demand",
			zap.Int("event_id", eventID),
			zap.Error(err))
		return 0
	}
	return count
}
