package worker

import (
	"context"

	"go.uber.org/zap"

	"ticket-pricing-service/internal/queue"
	"ticket-pricing-service/internal/repository"
	"ticket-pricing-service/pkg/logger"
)

// PriceHistoryWorker drains the tick feed and persists every committed
// price movement, feeding the price-history endpoint.
type PriceHistoryWorker interface {
	Run(ctx context.Context) error
}

type PriceHistoryWorkerImpl struct {
	history repository.PriceHistoryRepository
	queue   queue.TickQueue
	logger  *zap.Logger
}

func NewPriceHistoryWorker(history repository.PriceHistoryRepository, queue queue.TickQueue) PriceHistoryWorker {
	return &PriceHistoryWorkerImpl{
		history: history,
		queue:   queue,
		logger:  logger.WithComponent("price_history_worker"),
	}
}

// Run blocks until ctx is done. A failed insert nacks the delivery so the
// queue retries it later; the tick is never silently lost.
func (w *PriceHistoryWorkerImpl) Run(ctx context.Context) error {
	msgs, err := w.queue.SubscribeTicks(ctx)
	if err != nil {
		return err
	}

	for msg := range msgs {
		if err := w.history.Insert(ctx, msg.Data); err != nil {
			w.logger.Error("persist price tick failed",
				zap.String("event_id", msg.Data.EventID.String()),
				zap.Error(err))
			msg.Nack(true)
			continue
		}
		msg.Ack()
	}

	return nil
}
