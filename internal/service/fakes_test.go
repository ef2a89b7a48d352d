package service_test

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"

	"ticket-pricing-service/config"
	"ticket-pricing-service/internal/model"
	"ticket-pricing-service/internal/pricing"
	"ticket-pricing-service/internal/queue"
	"ticket-pricing-service/internal/service"
	apperrors "ticket-pricing-service/pkg/app_errors"
)

// memEventStore is the in-memory stand-in for the Postgres event
// repository. WithEventLock serializes mutations under a real mutex and
// gives the closure a detached snapshot, the same way a scanned row
// behaves, so booking flows can be exercised concurrently without a
// database.
type memEventStore struct {
	mu        sync.Mutex
	events    map[uuid.UUID]*model.Event
	nextID    int
	staged    *model.Event
	findCalls int
}

func newMemEventStore() *memEventStore {
	return &memEventStore{events: make(map[uuid.UUID]*model.Event)}
}

func (s *memEventStore) Create(ctx context.Context, event *model.Event) (*model.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	event.ID = s.nextID
	now := time.Now().UTC()
	event.CreatedAt = now
	event.UpdatedAt = now

	stored := *event
	s.events[event.EventID] = &stored
	return event, nil
}

func (s *memEventStore) List(ctx context.Context) ([]*model.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	events := make([]*model.Event, 0, len(s.events))
	for _, e := range s.events {
		copied := *e
		events = append(events, &copied)
	}
	sort.Slice(events, func(i, j int) bool { return events[i].StartsAt.Before(events[j].StartsAt) })
	return events, nil
}

func (s *memEventStore) FindByEventID(ctx context.Context, eventID uuid.UUID) (*model.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.findCalls++
	stored, ok := s.events[eventID]
	if !ok {
		return nil, apperrors.ErrEventNotFound
	}
	copied := *stored
	return &copied, nil
}

func (s *memEventStore) SetActive(ctx context.Context, eventID uuid.UUID, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.events[eventID]
	if !ok {
		return apperrors.ErrEventNotFound
	}
	stored.Active = active
	stored.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *memEventStore) UpdateRules(ctx context.Context, eventID uuid.UUID, rules model.PricingRules) (*model.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.events[eventID]
	if !ok {
		return nil, apperrors.ErrEventNotFound
	}
	stored.Rules = rules
	stored.UpdatedAt = time.Now().UTC()
	copied := *stored
	return &copied, nil
}

func (s *memEventStore) WithEventLock(ctx context.Context, eventID uuid.UUID, fn func(tx pgx.Tx, event *model.Event) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	committed, ok := s.events[eventID]
	if !ok {
		return apperrors.ErrEventNotFound
	}

	staged := *committed
	snapshot := *committed
	s.staged = &staged
	defer func() { s.staged = nil }()

	if err := fn(nil, &snapshot); err != nil {
		return err
	}

	*committed = staged
	return nil
}

// The capacity and price mutators are only valid inside WithEventLock,
// matching how the real repository requires a transaction.

func (s *memEventStore) ReserveCapacity(ctx context.Context, tx pgx.Tx, id int, quantity int) error {
	if s.staged == nil || s.staged.ID != id {
		return apperrors.ErrEventNotFound
	}
	if s.staged.Consumed+quantity > s.staged.Capacity {
		return apperrors.ErrInsufficientCapacity
	}
	s.staged.Consumed += quantity
	s.staged.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *memEventStore) ReleaseCapacity(ctx context.Context, tx pgx.Tx, id int, quantity int) error {
	if s.staged == nil || s.staged.ID != id {
		return apperrors.ErrEventNotFound
	}
	s.staged.Consumed -= quantity
	if s.staged.Consumed < 0 {
		s.staged.Consumed = 0
	}
	s.staged.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *memEventStore) UpdateCurrentPrice(ctx context.Context, tx pgx.Tx, id int, price float64) error {
	if s.staged == nil || s.staged.ID != id {
		return apperrors.ErrEventNotFound
	}
	s.staged.CurrentPrice = price
	s.staged.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *memEventStore) mustGet(t *testing.T, eventID uuid.UUID) *model.Event {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.events[eventID]
	require.True(t, ok, "event %s not stored", eventID)
	copied := *stored
	return &copied
}

func (s *memEventStore) setStartsAt(t *testing.T, eventID uuid.UUID, at time.Time) {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.events[eventID]
	require.True(t, ok, "event %s not stored", eventID)
	stored.StartsAt = at
}

type memReservationStore struct {
	mu               sync.Mutex
	rows             map[int]*model.Reservation
	byPublic         map[uuid.UUID]int
	nextID           int
	events           *memEventStore
	createErr        error
	countErr         error
	listByEventCalls int
}

func newMemReservationStore(events *memEventStore) *memReservationStore {
	return &memReservationStore{
		rows:     make(map[int]*model.Reservation),
		byPublic: make(map[uuid.UUID]int),
		events:   events,
	}
}

func (s *memReservationStore) Create(ctx context.Context, tx pgx.Tx, reservation *model.Reservation) (*model.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.createErr != nil {
		return nil, s.createErr
	}

	s.nextID++
	reservation.ID = s.nextID
	reservation.CreatedAt = time.Now().UTC()

	stored := *reservation
	s.rows[reservation.ID] = &stored
	s.byPublic[reservation.ReservationID] = reservation.ID
	return reservation, nil
}

func (s *memReservationStore) FindByReservationID(ctx context.Context, reservationID uuid.UUID) (*model.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.findLocked(reservationID)
}

func (s *memReservationStore) FindByReservationIDWithLock(ctx context.Context, tx pgx.Tx, reservationID uuid.UUID) (*model.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.findLocked(reservationID)
}

func (s *memReservationStore) findLocked(reservationID uuid.UUID) (*model.Reservation, error) {
	id, ok := s.byPublic[reservationID]
	if !ok {
		return nil, apperrors.ErrReservationNotFound
	}
	copied := *s.rows[id]
	return &copied, nil
}

func (s *memReservationStore) DeleteByID(ctx context.Context, tx pgx.Tx, id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.rows[id]
	if !ok {
		return apperrors.ErrReservationNotFound
	}
	delete(s.byPublic, stored.ReservationID)
	delete(s.rows, id)
	return nil
}

func (s *memReservationStore) ListByEvent(ctx context.Context, eventID uuid.UUID) ([]*model.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.listByEventCalls++
	matches := make([]*model.Reservation, 0)
	for _, r := range s.rows {
		if r.EventPublicID == eventID {
			copied := *r
			matches = append(matches, &copied)
		}
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].ID > matches[j].ID })
	return matches, nil
}

func (s *memReservationStore) ListByCustomer(ctx context.Context, email string) ([]*model.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	matches := make([]*model.Reservation, 0)
	for _, r := range s.rows {
		if r.CustomerEmail == email {
			copied := *r
			matches = append(matches, &copied)
		}
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].ID > matches[j].ID })
	return matches, nil
}

func (s *memReservationStore) Stats(ctx context.Context, eventID uuid.UUID) (*model.EventStats, error) {
	event, err := s.events.FindByEventID(ctx, eventID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stats := &model.EventStats{
		EventID:      event.EventID,
		Capacity:     event.Capacity,
		Consumed:     event.Consumed,
		Remaining:    event.Remaining(),
		CurrentPrice: event.CurrentPrice,
		SoldRatio:    1 - event.RemainingRatio(),
	}
	for _, r := range s.rows {
		if r.EventPublicID == eventID {
			stats.ReservationCount++
			stats.TotalRevenue += r.TotalAmount
		}
	}
	return stats, nil
}

func (s *memReservationStore) CountSince(ctx context.Context, tx pgx.Tx, eventID int, since time.Time) (int, error) {
	return s.countRows(eventID, since)
}

func (s *memReservationStore) CountRecent(ctx context.Context, eventID int, since time.Time) (int, error) {
	return s.countRows(eventID, since)
}

func (s *memReservationStore) countRows(eventID int, since time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.countErr != nil {
		return 0, s.countErr
	}
	count := 0
	for _, r := range s.rows {
		if r.EventID == eventID && !r.CreatedAt.Before(since) {
			count++
		}
	}
	return count, nil
}

func (s *memReservationStore) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows)
}

type memPriceHistoryStore struct {
	mu    sync.Mutex
	ticks []*model.PriceTick
}

func (s *memPriceHistoryStore) Insert(ctx context.Context, tick *model.PriceTick) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *tick
	copied.ID = len(s.ticks) + 1
	s.ticks = append(s.ticks, &copied)
	return nil
}

func (s *memPriceHistoryStore) ListByEvent(ctx context.Context, eventID uuid.UUID, limit int) ([]*model.PriceTick, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	matches := make([]*model.PriceTick, 0)
	for i := len(s.ticks) - 1; i >= 0 && len(matches) < limit; i-- {
		if s.ticks[i].EventID == eventID {
			copied := *s.ticks[i]
			matches = append(matches, &copied)
		}
	}
	return matches, nil
}

// fakePriceCache keeps entries in plain maps and records every
// invalidation as "eventID|email".
type fakePriceCache struct {
	mu            sync.Mutex
	quotes        map[uuid.UUID]*pricing.Quote
	events        map[uuid.UUID]*model.Event
	eventLists    map[uuid.UUID][]*model.Reservation
	customerLists map[string][]*model.Reservation
	stats         map[uuid.UUID]*model.EventStats
	invalidated   []string
}

func newFakePriceCache() *fakePriceCache {
	return &fakePriceCache{
		quotes:        make(map[uuid.UUID]*pricing.Quote),
		events:        make(map[uuid.UUID]*model.Event),
		eventLists:    make(map[uuid.UUID][]*model.Reservation),
		customerLists: make(map[string][]*model.Reservation),
		stats:         make(map[uuid.UUID]*model.EventStats),
	}
}

func (c *fakePriceCache) GetQuote(ctx context.Context, eventID uuid.UUID) (*pricing.Quote, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	q, ok := c.quotes[eventID]
	return q, ok
}

func (c *fakePriceCache) SetQuote(ctx context.Context, eventID uuid.UUID, quote *pricing.Quote) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.quotes[eventID] = quote
}

func (c *fakePriceCache) GetEvent(ctx context.Context, eventID uuid.UUID) (*model.Event, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.events[eventID]
	return e, ok
}

func (c *fakePriceCache) SetEvent(ctx context.Context, eventID uuid.UUID, event *model.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events[eventID] = event
}

func (c *fakePriceCache) GetEventReservations(ctx context.Context, eventID uuid.UUID) ([]*model.Reservation, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	l, ok := c.eventLists[eventID]
	return l, ok
}

func (c *fakePriceCache) SetEventReservations(ctx context.Context, eventID uuid.UUID, reservations []*model.Reservation) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.eventLists[eventID] = reservations
}

func (c *fakePriceCache) GetCustomerReservations(ctx context.Context, email string) ([]*model.Reservation, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	l, ok := c.customerLists[email]
	return l, ok
}

func (c *fakePriceCache) SetCustomerReservations(ctx context.Context, email string, reservations []*model.Reservation) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.customerLists[email] = reservations
}

func (c *fakePriceCache) GetStats(ctx context.Context, eventID uuid.UUID) (*model.EventStats, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	st, ok := c.stats[eventID]
	return st, ok
}

func (c *fakePriceCache) SetStats(ctx context.Context, eventID uuid.UUID, stats *model.EventStats) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stats[eventID] = stats
}

func (c *fakePriceCache) InvalidateEvent(ctx context.Context, eventID uuid.UUID, email string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.invalidated = append(c.invalidated, fmt.Sprintf("%s|%s", eventID, email))
	delete(c.quotes, eventID)
	delete(c.events, eventID)
	delete(c.eventLists, eventID)
	delete(c.stats, eventID)
	if email != "" {
		delete(c.customerLists, email)
	}
}

func (c *fakePriceCache) invalidations() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.invalidated...)
}

type fakeLimiter struct {
	mu    sync.Mutex
	allow bool
	err   error
	calls int
}

func (l *fakeLimiter) Allow(ctx context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls++
	return l.allow, l.err
}

// failTickQueue always fails to publish, for exercising the best-effort
// tick path.
type failTickQueue struct{}

func (f *failTickQueue) PublishTick(ctx context.Context, tick *model.PriceTick) error {
	return errors.New("queue publish failed")
}

func (f *failTickQueue) SubscribeTicks(ctx context.Context) (<-chan queue.Delivery, error) {
	out := make(chan queue.Delivery)
	close(out)
	return out, nil
}

func evenThirdRules(rate float64) model.PricingRules {
	third := 1.0 / 3.0
	return model.PricingRules{
		Time:      model.PricingRule{Weight: third, Rate: rate},
		Demand:    model.PricingRule{Weight: third, Rate: rate},
		Inventory: model.PricingRule{Weight: third, Rate: rate},
	}
}

// seedEvent stores an event five days out with 8 of 10 seats consumed and
// even third weights at rate 0.1, which prices bookings at 115.00.
func seedEvent(t *testing.T, store *memEventStore, mutate func(*model.Event)) *model.Event {
	t.Helper()

	event := &model.Event{
		EventID:      uuid.New(),
		Name:         "Arena Night",
		Venue:        "Riverside Arena",
		StartsAt:     time.Now().UTC().Add(5 * 24 * time.Hour),
		Active:       true,
		Capacity:     10,
		Consumed:     8,
		BasePrice:    100,
		CurrentPrice: 100,
		FloorPrice:   50,
		CeilingPrice: 200,
		Rules:        evenThirdRules(0.1),
	}
	if mutate != nil {
		mutate(event)
	}

	created, err := store.Create(context.Background(), event)
	require.NoError(t, err)
	return created
}

type bookingFixture struct {
	events  *memEventStore
	rsv     *memReservationStore
	cache   *fakePriceCache
	limiter *fakeLimiter
	queue   queue.TickQueue
	svc     service.BookingService
}

func newBookingFixture(t *testing.T) *bookingFixture {
	t.Helper()

	events := newMemEventStore()
	rsv := newMemReservationStore(events)
	priceCache := newFakePriceCache()
	limiter := &fakeLimiter{allow: true}
	tickQueue := queue.NewTickQueue(64)

	svc := service.NewBookingService(
		events, rsv, priceCache, limiter, tickQueue,
		config.LimitsConfig{RateLimitMax: 5, RateLimitWindow: time.Minute, MaxPerOrder: 10},
		config.PricingConfig{DemandWindow: time.Hour},
	)

	return &bookingFixture{
		events:  events,
		rsv:     rsv,
		cache:   priceCache,
		limiter: limiter,
		queue:   tickQueue,
		svc:     svc,
	}
}

func subscribeTicks(t *testing.T, q queue.TickQueue) (<-chan queue.Delivery, context.CancelFunc) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	ch, err := q.SubscribeTicks(ctx)
	require.NoError(t, err)
	return ch, cancel
}

func nextTick(t *testing.T, ch <-chan queue.Delivery) *model.PriceTick {
	t.Helper()

	select {
	case d := <-ch:
		d.Ack()
		return d.Data
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for price tick")
		return nil
	}
}

func expectNoTick(t *testing.T, ch <-chan queue.Delivery) {
	t.Helper()

	select {
	case d := <-ch:
		t.Fatalf("unexpected price tick for event %s", d.Data.EventID)
	case <-time.After(100 * time.Millisecond):
	}
}
