package queue

import (
	"context"

	"ticket-pricing-service/internal/model"
)

type Delivery struct {
	Data *model.PriceTick
	Ack  func()
	Nack func(requeue bool)
}

// TickQueue carries committed price movements from the booking path to the
// history worker. Publishing is best-effort; the caller never fails a
// booking over a publish error.
type TickQueue interface {
	PublishTick(ctx context.Context, tick *model.PriceTick) error
	SubscribeTicks(ctx context.Context) (<-chan Delivery, error)
}

// TickQueueImpl is the in-process implementation backed by a buffered
// channel, used in tests and single-instance runs.
type TickQueueImpl struct {
	ch chan *model.PriceTick
}

func NewTickQueue(bufferSize int) TickQueue {
	return &TickQueueImpl{
		ch: make(chan *model.PriceTick, bufferSize),
	}
}

func (q *TickQueueImpl) PublishTick(ctx context.Context, tick *model.PriceTick) error {
	q.ch <- tick
	return nil
}

func (q *TickQueueImpl) SubscribeTicks(ctx context.Context) (<-chan Delivery, error) {
	out := make(chan Delivery)

	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case tick, ok := <-q.ch:
				if !ok {
					return
				}

				out <- Delivery{
					Data: tick,
					Ack:  func() { /* nothing to do for the in-memory queue */ },
					Nack: func(requeue bool) {
						if requeue {
							q.ch <- tick
						}
					},
				}
			}
		}
	}()

	return out, nil
}
