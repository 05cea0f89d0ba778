package worker

import (
	"context"
	"log"

	"library-rental/internal/broker"
	"library-rental/internal/models"
	"library-rental/internal/redisclient"
	"library-rental/internal/util"

	"go.uber.org/zap"
)

// StatsWorker consumes order lifecycle events and maintains derived state:
// per-book rating aggregates in Redis, plus notification hooks for
// cancellations and penalty assessments.
type StatsWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
	redis        *redisclient.Client
	logger       *zap.Logger
}

// NewStatsWorker creates a new stats worker
func NewStatsWorker(consumer *broker.Consumer, redis *redisclient.Client) *StatsWorker {
	w := &StatsWorker{
		consumer: consumer,
		redis:    redis,
		logger:   util.NamedLogger("stats-worker"),
	}

	eventHandler := broker.NewEventHandler()
	eventHandler.OnOrderRated(w.handleOrderRated)
	eventHandler.OnOrderCancelled(w.handleOrderCancelled)
	eventHandler.OnPenaltyApplied(w.handlePenaltyApplied)
	w.eventHandler = eventHandler

	return w
}

// Start starts the worker
func (w *StatsWorker) Start(ctx context.Context) error {
	log.Println("Starting stats worker...")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *StatsWorker) Stop() error {
	log.Println("Stopping stats worker...")
	return w.consumer.Close()
}

func (w *StatsWorker) handleOrderRated(ctx context.Context, event *models.OrderRatedEvent) error {
	if err := w.redis.RecordBookRating(ctx, event.BookID, event.Rating); err != nil {
		w.logger.Error("Failed to record book rating",
			zap.Int64("book_id", event.BookID),
			zap.Error(err))
		return err
	}

	w.logger.Info("Book rating recorded",
		zap.Int64("book_id", event.BookID),
		zap.Int("rating", event.Rating))
	return nil
}

func (w *StatsWorker) handleOrderCancelled(ctx context.Context, event *models.OrderCancelledEvent) error {
	// notification delivery lives in a separate channel service; here we
	// only record that the user should be told
	w.logger.Info("Booking cancelled, user notification queued",
		zap.Int64("order_id", event.OrderID),
		zap.Int64("user_id", event.UserID),
		zap.String("reason", event.Reason))
	return nil
}

func (w *StatsWorker) handlePenaltyApplied(ctx context.Context, event *models.PenaltyAppliedEvent) error {
	w.logger.Info("Late fee assessed, user notification queued",
		zap.Int64("order_id", event.OrderID),
		zap.Int64("user_id", event.UserID),
		zap.Float64("penalty", event.Penalty))
	return nil
}
