package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"ticket-pricing-service/config"
	"ticket-pricing-service/internal/model"
	"ticket-pricing-service/internal/pricing"
	"ticket-pricing-service/pkg/logger"
	"ticket-pricing-service/pkg/metrics"
)

// PriceCache is the short-TTL read-through cache in front of Postgres.
// Every method is fail-open: a Redis failure reads as a miss and writes
// are dropped with a warning, so the cache can never fail a request.
type PriceCache interface {
	GetQuote(ctx context.Context, eventID uuid.UUID) (*pricing.Quote, bool)
	SetQuote(ctx context.Context, eventID uuid.UUID, quote *pricing.Quote)
	GetEvent(ctx context.Context, eventID uuid.UUID) (*model.Event, bool)
	SetEvent(ctx context.Context, eventID uuid.UUID, event *model.Event)
	GetEventReservations(ctx context.Context, eventID uuid.UUID) ([]*model.Reservation, bool)
	SetEventReservations(ctx context.Context, eventID uuid.UUID, reservations []*model.Reservation)
	GetCustomerReservations(ctx context.Context, email string) ([]*model.Reservation, bool)
	SetCustomerReservations(ctx context.Context, email string, reservations []*model.Reservation)
	GetStats(ctx context.Context, eventID uuid.UUID) (*model.EventStats, bool)
	SetStats(ctx context.Context, eventID uuid.UUID, stats *model.EventStats)

	// InvalidateEvent drops every cached entry the mutation could have
	// stale-ed, in one round trip. Email may be empty when no customer
	// list is affected.
	InvalidateEvent(ctx context.Context, eventID uuid.UUID, email string)
}

type RedisPriceCacheImpl struct {
	client *redis.Client
	cfg    config.CacheConfig
	logger *zap.Logger
}

func NewRedisPriceCache(client *redis.Client, cfg config.CacheConfig) PriceCache {
	return &RedisPriceCacheImpl{
		client: client,
		cfg:    cfg,
		logger: logger.WithComponent("price_cache"),
	}
}

func (c *RedisPriceCacheImpl) priceKey(eventID uuid.UUID) string {
	return fmt.Sprintf("price:%s", eventID)
}

func (c *RedisPriceCacheImpl) eventKey(eventID uuid.UUID) string {
	return fmt.Sprintf("event:%s", eventID)
}

func (c *RedisPriceCacheImpl) eventReservationsKey(eventID uuid.UUID) string {
	return fmt.Sprintf("event:%s:reservations", eventID)
}

func (c *RedisPriceCacheImpl) eventStatsKey(eventID uuid.UUID) string {
	return fmt.Sprintf("event:%s:stats", eventID)
}

func (c *RedisPriceCacheImpl) customerReservationsKey(email string) string {
	return fmt.Sprintf("customer:%s:reservations", email)
}

func (c *RedisPriceCacheImpl) GetQuote(ctx context.Context, eventID uuid.UUID) (*pricing.Quote, bool) {
	var quote pricing.Quote
	if !c.getJSON(ctx, c.priceKey(eventID), "price", &quote) {
		return nil, false
	}
	return &quote, true
}

func (c *RedisPriceCacheImpl) SetQuote(ctx context.Context, eventID uuid.UUID, quote *pricing.Quote) {
	c.setJSON(ctx, c.priceKey(eventID), quote, c.cfg.PriceTTL)
}

func (c *RedisPriceCacheImpl) GetEvent(ctx context.Context, eventID uuid.UUID) (*model.Event, bool) {
	var event model.Event
	if !c.getJSON(ctx, c.eventKey(eventID), "event", &event) {
		return nil, false
	}
	return &event, true
}

func (c *RedisPriceCacheImpl) SetEvent(ctx context.Context, eventID uuid.UUID, event *model.Event) {
	c.setJSON(ctx, c.eventKey(eventID), event, c.cfg.EventTTL)
}

func (c *RedisPriceCacheImpl) GetEventReservations(ctx context.Context, eventID uuid.UUID) ([]*model.Reservation, bool) {
	var reservations []*model.Reservation
	if !c.getJSON(ctx, c.eventReservationsKey(eventID), "reservations", &reservations) {
		return nil, false
	}
	return reservations, true
}

func (c *RedisPriceCacheImpl) SetEventReservations(ctx context.Context, eventID uuid.UUID, reservations []*model.Reservation) {
	c.setJSON(ctx, c.eventReservationsKey(eventID), reservations, c.cfg.ListTTL)
}

func (c *RedisPriceCacheImpl) GetCustomerReservations(ctx context.Context, email string) ([]*model.Reservation, bool) {
	var reservations []*model.Reservation
	if !c.getJSON(ctx, c.customerReservationsKey(email), "reservations", &reservations) {
		return nil, false
	}
	return reservations, true
}

func (c *RedisPriceCacheImpl) SetCustomerReservations(ctx context.Context, email string, reservations []*model.Reservation) {
	c.setJSON(ctx, c.customerReservationsKey(email), reservations, c.cfg.ListTTL)
}

func (c *RedisPriceCacheImpl) GetStats(ctx context.Context, eventID uuid.UUID) (*model.EventStats, bool) {
	var stats model.EventStats
	if !c.getJSON(ctx, c.eventStatsKey(eventID), "stats", &stats) {
		return nil, false
	}
	return &stats, true
}

func (c *RedisPriceCacheImpl) SetStats(ctx context.Context, eventID uuid.UUID, stats *model.EventStats) {
	c.setJSON(ctx, c.eventStatsKey(eventID), stats, c.cfg.ListTTL)
}

func (c *RedisPriceCacheImpl) InvalidateEvent(ctx context.Context, eventID uuid.UUID, email string) {
	keys := []string{
		c.priceKey(eventID),
		c.eventKey(eventID),
		c.eventReservationsKey(eventID),
		c.eventStatsKey(eventID),
	}
	if email != "" {
		keys = append(keys, c.customerReservationsKey(email))
	}

	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		c.logger.Warn("cache invalidation failed, entries expire by TTL",
			zap.String("event_id", eventID.String()),
			zap.Error(err))
	}
}

func (c *RedisPriceCacheImpl) getJSON(ctx context.Context, key string, kind string, dest interface{}) bool {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn("cache read failed", zap.String("key", key), zap.Error(err))
		}
		metrics.CacheMissesTotal.WithLabelValues(kind).Inc()
		return false
	}

	if err := json.Unmarshal(data, dest); err != nil {
		c.logger.Warn("dropping corrupt cache entry", zap.String("key", key), zap.Error(err))
		c.client.Del(ctx, key)
		metrics.CacheMissesTotal.WithLabelValues(kind).Inc()
		return false
	}

	metrics.CacheHitsTotal.WithLabelValues(kind).Inc()
	return true
}

func (c *RedisPriceCacheImpl) setJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) {
	data, err := json.Marshal(value)
	if err != nil {
		c.logger.Warn("cache marshal failed", zap.String("key", key), zap.Error(err))
		return
	}

	if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		c.logger.Warn("cache write failed", zap.String("key", key), zap.Error(err))
	}
}
