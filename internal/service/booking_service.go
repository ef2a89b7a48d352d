package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"ticket-pricing-service/config"
	"ticket-pricing-service/internal/cache"
	"ticket-pricing-service/internal/model"
	"ticket-pricing-service/internal/pricing"
	"ticket-pricing-service/internal/queue"
	"ticket-pricing-service/internal/ratelimit"
	"ticket-pricing-service/internal/repository"
	apperrors "ticket-pricing-service/pkg/app_errors"
	"ticket-pricing-service/pkg/logger"
	"ticket-pricing-service/pkg/metrics"
	"ticket-pricing-service/pkg/tracing"
)

type BookingService interface {
	Book(ctx context.Context, req model.BookingRequest) (*model.BookingReceipt, error)
	Cancel(ctx context.Context, reservationID uuid.UUID, email string) (*model.CancellationReceipt, error)
	GetByReservationID(ctx context.Context, reservationID uuid.UUID) (*model.Reservation, error)
	ListByEvent(ctx context.Context, eventID uuid.UUID) ([]*model.Reservation, error)
	ListByCustomer(ctx context.Context, email string) ([]*model.Reservation, error)
}

type BookingServiceImpl struct {
	eventRepo       repository.EventRepository
	reservationRepo repository.ReservationRepository
	cache           cache.PriceCache
	limiter         ratelimit.Limiter
	tickQueue       queue.TickQueue
	maxPerOrder     int
	demandWindow    time.Duration
	logger          *zap.Logger
}

func NewBookingService(
	eventRepo repository.EventRepository,
	reservationRepo repository.ReservationRepository,
	priceCache cache.PriceCache,
	limiter ratelimit.Limiter,
	tickQueue queue.TickQueue,
	limits config.LimitsConfig,
	pricingCfg config.PricingConfig,
) BookingService {
	return &BookingServiceImpl{
		eventRepo:       eventRepo,
		reservationRepo: reservationRepo,
		cache:           priceCache,
		limiter:         limiter,
		tickQueue:       tickQueue,
		maxPerOrder:     limits.MaxPerOrder,
		demandWindow:    pricingCfg.DemandWindow,
		logger:          logger.WithComponent("booking_service"),
	}
}

// Book runs the whole booking flow. Validation and rate limiting happen
// before the event lock so rejected requests never contend for it. Inside
// the lock: state checks, price resolution, capacity reserve, reservation
// insert and price write commit or roll back as one unit. Cache
// invalidation and the price tick happen after commit and cannot fail the
// booking.
func (s *BookingServiceImpl) Book(ctx context.Context, req model.BookingRequest) (*model.BookingReceipt, error) {
	ctx, span := tracing.StartSpan(ctx, "booking.book")
	defer span.End()

	// 1. cheap request checks, no lock taken
	req.CustomerEmail = normalizeEmail(req.CustomerEmail)
	if err := s.validateBookingRequest(req); err != nil {
		metrics.BookingsRejectedTotal.WithLabelValues("validation").Inc()
		return nil, err
	}

	// 2. per-customer rate limit, fail-open on limiter trouble
	allowed, err := s.limiter.Allow(ctx, req.CustomerEmail)
	if err != nil {
		s.logger.Warn("rate limiter unavailable, allowing request",
			zap.String("customer", req.CustomerEmail),
			zap.Error(err))
		allowed = true
	}
	if !allowed {
		metrics.BookingsRejectedTotal.WithLabelValues("rate_limited").Inc()
		return nil, apperrors.ErrRateLimited
	}

	// 3. everything stateful happens under the event lock
	var (
		reservation *model.Reservation
		tick        *model.PriceTick
	)

	lockStart := time.Now()
	err = s.eventRepo.WithEventLock(ctx, req.EventID, func(tx pgx.Tx, event *model.Event) error {
		now := time.Now().UTC()

		if !event.Active {
			return apperrors.ErrEventClosed
		}
		if event.Expired(now) {
			return apperrors.ErrEventExpired
		}
		if req.Quantity > event.Remaining() {
			// Remaining is exact here, the lock is held
			return &apperrors.CapacityError{
				Requested: req.Quantity,
				Remaining: event.Remaining(),
			}
		}

		// the quote the customer was shown is the price they pay: a quote
		// still live in the cache is used as-is, a miss reprices from the
		// state under the lock and caches the result
		quote, ok := s.cache.GetQuote(ctx, req.EventID)
		if !ok {
			computed := pricing.Compute(pricing.Input{
				BasePrice:    event.BasePrice,
				FloorPrice:   event.FloorPrice,
				CeilingPrice: event.CeilingPrice,
				Capacity:     event.Capacity,
				Consumed:     event.Consumed,
				Rules:        event.Rules,
				StartsAt:     event.StartsAt,
				Now:          now,
				DemandCount:  s.demandCountTx(ctx, tx, event.ID, now),
			})
			metrics.PriceComputationsTotal.Inc()
			s.cache.SetQuote(ctx, req.EventID, &computed)
			quote = &computed
		}

		if err := s.eventRepo.ReserveCapacity(ctx, tx, event.ID, req.Quantity); err != nil {
			return err
		}

		reservation = &model.Reservation{
			ReservationID: uuid.New(),
			EventID:       event.ID,
			EventPublicID: event.EventID,
			CustomerEmail: req.CustomerEmail,
			Quantity:      req.Quantity,
			UnitPrice:     quote.FinalPrice,
			TotalAmount:   model.RoundToCent(quote.FinalPrice * float64(req.Quantity)),
		}
		if _, err := s.reservationRepo.Create(ctx, tx, reservation); err != nil {
			return err
		}

		if err := s.eventRepo.UpdateCurrentPrice(ctx, tx, event.ID, quote.FinalPrice); err != nil {
			return err
		}

		tick = &model.PriceTick{
			EventID:    event.EventID,
			Price:      quote.FinalPrice,
			Consumed:   event.Consumed + req.Quantity,
			Capacity:   event.Capacity,
			Cause:      model.TickCauseBooking,
			OccurredAt: now,
		}
		return nil
	})
	metrics.BookingLockLatency.Observe(time.Since(lockStart).Seconds())

	if err != nil {
		s.countBookingRejection(err)
		return nil, err
	}

	// 4. post-commit: synchronous invalidation, then best-effort tick
	s.cache.InvalidateEvent(ctx, req.EventID, req.CustomerEmail)
	s.publishTick(ctx, tick)

	metrics.BookingsTotal.Inc()
	metrics.EventRemainingCapacity.WithLabelValues(req.EventID.String()).
		Set(float64(tick.Capacity - tick.Consumed))

	return &model.BookingReceipt{
		ReservationID: reservation.ReservationID,
		EventID:       reservation.EventPublicID,
		CustomerEmail: reservation.CustomerEmail,
		Quantity:      reservation.Quantity,
		UnitPrice:     reservation.UnitPrice,
		TotalAmount:   reservation.TotalAmount,
		CreatedAt:     reservation.CreatedAt,
	}, nil
}

// Cancel destroys a reservation and releases its capacity under the same
// event lock booking uses, then reprices the event from the post-release
// state. Reservations on an event that has already started are settled
// and can no longer be cancelled.
func (s *BookingServiceImpl) Cancel(ctx context.Context, reservationID uuid.UUID, email string) (*model.CancellationReceipt, error) {
	ctx, span := tracing.StartSpan(ctx, "booking.cancel")
	defer span.End()

	email = normalizeEmail(email)

	// 1. resolve the reservation to find its event; ownership is checked
	// before any lock is taken
	reservation, err := s.reservationRepo.FindByReservationID(ctx, reservationID)
	if err != nil {
		return nil, err
	}
	if reservation.CustomerEmail != email {
		return nil, apperrors.ErrForbidden
	}

	var (
		receipt *model.CancellationReceipt
		tick    *model.PriceTick
	)

	err = s.eventRepo.WithEventLock(ctx, reservation.EventPublicID, func(tx pgx.Tx, event *model.Event) error {
		now := time.Now().UTC()

		// 2. no cancellation once the event has started
		if event.Expired(now) {
			return apperrors.ErrEventExpired
		}

		// 3. re-read under the lock; a racing cancel already removed it
		locked, err := s.reservationRepo.FindByReservationIDWithLock(ctx, tx, reservationID)
		if err != nil {
			return err
		}

		// 4. destroy the reservation and hand its capacity back
		if err := s.reservationRepo.DeleteByID(ctx, tx, locked.ID); err != nil {
			return err
		}
		if err := s.eventRepo.ReleaseCapacity(ctx, tx, event.ID, locked.Quantity); err != nil {
			return err
		}

		// 5. reprice from the post-release state
		quote := pricing.Compute(pricing.Input{
			BasePrice:    event.BasePrice,
			FloorPrice:   event.FloorPrice,
			CeilingPrice: event.CeilingPrice,
			Capacity:     event.Capacity,
			Consumed:     event.Consumed - locked.Quantity,
			Rules:        event.Rules,
			StartsAt:     event.StartsAt,
			Now:          now,
			DemandCount:  s.demandCountTx(ctx, tx, event.ID, now),
		})
		metrics.PriceComputationsTotal.Inc()

		if err := s.eventRepo.UpdateCurrentPrice(ctx, tx, event.ID, quote.FinalPrice); err != nil {
			return err
		}

		tick = &model.PriceTick{
			EventID:    event.EventID,
			Price:      quote.FinalPrice,
			Consumed:   event.Consumed - locked.Quantity,
			Capacity:   event.Capacity,
			Cause:      model.TickCauseCancellation,
			OccurredAt: now,
		}
		receipt = &model.CancellationReceipt{
			ReservationID: locked.ReservationID,
			EventID:       event.EventID,
			Quantity:      locked.Quantity,
			RefundAmount:  locked.TotalAmount,
			CanceledAt:    now,
		}
		return nil
	})

	if err != nil {
		return nil, err
	}

	s.cache.InvalidateEvent(ctx, reservation.EventPublicID, email)
	s.publishTick(ctx, tick)

	metrics.CancellationsTotal.Inc()
	metrics.EventRemainingCapacity.WithLabelValues(reservation.EventPublicID.String()).
		Set(float64(tick.Capacity - tick.Consumed))

	return receipt, nil
}

func (s *BookingServiceImpl) GetByReservationID(ctx context.Context, reservationID uuid.UUID) (*model.Reservation, error) {
	return s.reservationRepo.FindByReservationID(ctx, reservationID)
}

func (s *BookingServiceImpl) ListByEvent(ctx context.Context, eventID uuid.UUID) ([]*model.Reservation, error) {
	if cached, ok := s.cache.GetEventReservations(ctx, eventID); ok {
		return cached, nil
	}

	// existence check so a missing event is a 404, not an empty list
	if _, err := s.eventRepo.FindByEventID(ctx, eventID); err != nil {
		return nil, err
	}

	reservations, err := s.reservationRepo.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}

	s.cache.SetEventReservations(ctx, eventID, reservations)
	return reservations, nil
}

func (s *BookingServiceImpl) ListByCustomer(ctx context.Context, email string) ([]*model.Reservation, error) {
	email = normalizeEmail(email)

	if cached, ok := s.cache.GetCustomerReservations(ctx, email); ok {
		return cached, nil
	}

	reservations, err := s.reservationRepo.ListByCustomer(ctx, email)
	if err != nil {
		return nil, err
	}

	s.cache.SetCustomerReservations(ctx, email, reservations)
	return reservations, nil
}

func (s *BookingServiceImpl) validateBookingRequest(req model.BookingRequest) error {
	if req.EventID == uuid.Nil {
		return apperrors.Validation("event_id is required")
	}
	if req.CustomerEmail == "" || !strings.Contains(req.CustomerEmail, "@") {
		return apperrors.Validation("customer_email %q is not a valid address", req.CustomerEmail)
	}
	if req.Quantity < 1 {
		return apperrors.Validation("quantity must be at least 1")
	}
	if req.Quantity > s.maxPerOrder {
		return apperrors.Validation("quantity %d exceeds the limit of %d per order", req.Quantity, s.maxPerOrder)
	}
	return nil
}

// demandCountTx reads the demand signal inside the booking transaction,
// degrading to zero on failure.
func (s *BookingServiceImpl) demandCountTx(ctx context.Context, tx pgx.Tx, eventID int, now time.Time) int {
	count, err := s.reservationRepo.CountSince(ctx, tx, eventID, now.Add(-s.demandWindow))
	if err != nil {
		s.logger.Warn("demand read failed, pricing with zero demand",
			zap.Int("event_id", eventID),
			zap.Error(err))
		return 0
	}
	return count
}

// publishTick is best-effort: the booking already committed, so a feed
// failure only costs a history row.
func (s *BookingServiceImpl) publishTick(ctx context.Context, tick *model.PriceTick) {
	if err := s.tickQueue.PublishTick(ctx, tick); err != nil {
		s.logger.Warn("publish price tick failed",
			zap.String("event_id", tick.EventID.String()),
			zap.Error(err))
		return
	}
	metrics.PriceTicksPublishedTotal.Inc()
}

func (s *BookingServiceImpl) countBookingRejection(err error) {
	switch {
	case errors.Is(err, apperrors.ErrEventClosed):
		metrics.BookingsRejectedTotal.WithLabelValues("closed").Inc()
	case errors.Is(err, apperrors.ErrEventExpired):
		metrics.BookingsRejectedTotal.WithLabelValues("expired").Inc()
	case errors.Is(err, apperrors.ErrInsufficientCapacity):
		metrics.BookingsRejectedTotal.WithLabelValues("capacity").Inc()
		metrics.CapacityRejectionsTotal.Inc()
	case errors.Is(err, apperrors.ErrEventNotFound):
		metrics.BookingsRejectedTotal.WithLabelValues("not_found").Inc()
	default:
		metrics.BookingsRejectedTotal.WithLabelValues("storage").Inc()
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
