package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"ticket-pricing-service/internal/cache"
	"ticket-pricing-service/internal/model"
	"ticket-pricing-service/internal/repository"
	apperrors "ticket-pricing-service/pkg/app_errors"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 500
)

type EventService interface {
	Create(ctx context.Context, req model.CreateEventRequest) (*model.Event, error)
	List(ctx context.Context) ([]*model.Event, error)
	GetByEventID(ctx context.Context, eventID uuid.UUID) (*model.Event, error)
	SetActive(ctx context.Context, eventID uuid.UUID, active bool) error
	UpdateRules(ctx context.Context, eventID uuid.UUID, rules model.PricingRules) (*model.Event, error)
	Stats(ctx context.Context, eventID uuid.UUID) (*model.EventStats, error)
	PriceHistory(ctx context.Context, eventID uuid.UUID, limit int) ([]*model.PriceTick, error)
}

type EventServiceImpl struct {
	repo            repository.EventRepository
	reservationRepo repository.ReservationRepository
	historyRepo     repository.PriceHistoryRepository
	cache           cache.PriceCache
}

func NewEventService(
	repo repository.EventRepository,
	reservationRepo repository.ReservationRepository,
	historyRepo repository.PriceHistoryRepository,
	priceCache cache.PriceCache,
) EventService {
	return &EventServiceImpl{
		repo:            repo,
		reservationRepo: reservationRepo,
		historyRepo:     historyRepo,
		cache:           priceCache,
	}
}

func (s *EventServiceImpl) Create(ctx context.Context, req model.CreateEventRequest) (*model.Event, error) {
	if err := validateCreateEventRequest(req); err != nil {
		return nil, err
	}

	event := &model.Event{
		EventID:      uuid.New(),
		Name:         req.Name,
		Venue:        req.Venue,
		StartsAt:     req.StartsAt.UTC(),
		Active:       true,
		Capacity:     req.Capacity,
		Consumed:     0,
		BasePrice:    req.BasePrice,
		CurrentPrice: req.BasePrice,
		FloorPrice:   req.FloorPrice,
		CeilingPrice: req.CeilingPrice,
		Rules:        req.Rules,
	}

	return s.repo.Create(ctx, event)
}

func (s *EventServiceImpl) List(ctx context.Context) ([]*model.Event, error) {
	return s.repo.List(ctx)
}

func (s *EventServiceImpl) GetByEventID(ctx context.Context, eventID uuid.UUID) (*model.Event, error) {
	if cached, ok := s.cache.GetEvent(ctx, eventID); ok {
		return cached, nil
	}

	event, err := s.repo.FindByEventID(ctx, eventID)
	if err != nil {
		return nil, err
	}

	s.cache.SetEvent(ctx, eventID, event)
	return event, nil
}

func (s *EventServiceImpl) SetActive(ctx context.Context, eventID uuid.UUID, active bool) error {
	if err := s.repo.SetActive(ctx, eventID, active); err != nil {
		return err
	}

	s.cache.InvalidateEvent(ctx, eventID, "")
	return nil
}

// UpdateRules revalidates the full rule set; a partial update can never
// leave an event with weights that no longer sum to one.
func (s *EventServiceImpl) UpdateRules(ctx context.Context, eventID uuid.UUID, rules model.PricingRules) (*model.Event, error) {
	if err := rules.Validate(); err != nil {
		return nil, err
	}

	event, err := s.repo.UpdateRules(ctx, eventID, rules)
	if err != nil {
		return nil, err
	}

	s.cache.InvalidateEvent(ctx, eventID, "")
	return event, nil
}

func (s *EventServiceImpl) Stats(ctx context.Context, eventID uuid.UUID) (*model.EventStats, error) {
	if cached, ok := s.cache.GetStats(ctx, eventID); ok {
		return cached, nil
	}

	stats, err := s.reservationRepo.Stats(ctx, eventID)
	if err != nil {
		return nil, err
	}

	s.cache.SetStats(ctx, eventID, stats)
	return stats, nil
}

func (s *EventServiceImpl) PriceHistory(ctx context.Context, eventID uuid.UUID, limit int) ([]*model.PriceTick, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	// existence check so an unknown event is a 404, not an empty history
	if _, err := s.repo.FindByEventID(ctx, eventID); err != nil {
		return nil, err
	}

	return s.historyRepo.ListByEvent(ctx, eventID, limit)
}

func validateCreateEventRequest(req model.CreateEventRequest) error {
	if req.StartsAt.Before(time.Now().UTC()) {
		return apperrors.Validation("starts_at %s is in the past", req.StartsAt.Format(time.RFC3339))
	}
	if req.FloorPrice > req.BasePrice {
		return apperrors.Validation("floor_price %.2f exceeds base_price %.2f", req.FloorPrice, req.BasePrice)
	}
	if req.CeilingPrice < req.BasePrice {
		return apperrors.Validation("ceiling_price %.2f is below base_price %.2f", req.CeilingPrice, req.BasePrice)
	}
	return req.Rules.Validate()
}
