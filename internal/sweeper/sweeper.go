package sweeper

import (
	"context"
	"sync"
	"time"

	"library-rental/internal/models"
	"library-rental/internal/penalty"
	"library-rental/internal/service"
	"library-rental/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

func newEventID() string { return uuid.New().String() }

// Store is the repository surface the sweeper needs. Guarded writes return
// false when the order changed since it was read; the sweeper treats that
// as "someone else got there first" and moves on.
type Store interface {
	GetOverdueTakenOrders(ctx context.Context, now time.Time) ([]models.Order, error)
	GetExpiredBookedOrders(ctx context.Context, now time.Time) ([]models.Order, error)
	ApplyPenalty(ctx context.Context, orderID int64, amount float64) (bool, error)
	CancelBookedOrder(ctx context.Context, orderID int64) (bool, error)
}

// Locker guards against concurrent sweeps across instances. Optional.
type Locker interface {
	AcquireLock(ctx context.Context, lockKey string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, lockKey string) error
}

// Publisher emits sweep outcome events. Optional; failures are logged.
type Publisher interface {
	PublishOrderCancelled(ctx context.Context, event *models.OrderCancelledEvent) error
	PublishPenaltyApplied(ctx context.Context, event *models.PenaltyAppliedEvent) error
}

// Report summarizes one sweep pass
type Report struct {
	Penalized int `json:"penalized"`
	Cancelled int `json:"cancelled"`
	Skipped   int `json:"skipped"`
}

const lockKey = "sweep"

// Sweeper periodically reassesses penalties on overdue loans and cancels
// stale unconfirmed bookings. A pass never runs concurrently with itself:
// ticks that arrive while a pass is still running are skipped, and a Redis
// lock extends the guarantee across instances.
type Sweeper struct {
	store     Store
	books     service.BookSource
	clock     service.Clock
	locker    Locker
	publisher Publisher
	policy    penalty.Policy
	interval  time.Duration
	logger    *zap.Logger

	running sync.Mutex // held for the duration of a pass
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New creates a sweeper. locker and publisher may be nil.
func New(store Store, books service.BookSource, clock service.Clock, locker Locker, publisher Publisher, policy penalty.Policy, interval time.Duration) *Sweeper {
	return &Sweeper{
		store:     store,
		books:     books,
		clock:     clock,
		locker:    locker,
		publisher: publisher,
		policy:    policy,
		interval:  interval,
		logger:    util.NamedLogger("sweeper"),
	}
}

// Start launches the recurring sweep loop until Stop is called.
func (s *Sweeper) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.wg.Add(1)

	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := s.RunOnce(ctx); err != nil {
					s.logger.Error("Sweep pass failed", zap.Error(err))
				}
			}
		}
	}()

	s.logger.Info("Sweeper started", zap.Duration("interval", s.interval))
}

// Stop halts the loop and waits for an in-flight pass to finish.
func (s *Sweeper) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
	s.logger.Info("Sweeper stopped")
}

// RunOnce executes a single sweep pass: the penalty scan, then the expiry
// scan. Per-item failures are logged and skipped; already-applied items are
// never rolled back. Returns a nil report if another pass holds the lock.
func (s *Sweeper) RunOnce(ctx context.Context) (*Report, error) {
	if !s.running.TryLock() {
		util.SweepsSkippedTotal.Inc()
		s.logger.Warn("Sweep tick skipped, previous pass still running")
		return nil, nil
	}
	defer s.running.Unlock()

	if s.locker != nil {
		ok, err := s.locker.AcquireLock(ctx, lockKey, s.interval)
		if err != nil {
			s.logger.Warn("Sweep lock unavailable, proceeding locally", zap.Error(err))
		} else if !ok {
			util.SweepsSkippedTotal.Inc()
			s.logger.Info("Sweep skipped, another instance holds the lock")
			return nil, nil
		} else {
			defer func() {
				if err := s.locker.ReleaseLock(ctx, lockKey); err != nil {
					s.logger.Warn("Failed to release sweep lock", zap.Error(err))
				}
			}()
		}
	}

	start := time.Now()
	defer func() {
		util.SweepDuration.Observe(time.Since(start).Seconds())
	}()

	now := s.clock.Now()
	report := &Report{}

	s.sweepOverdue(ctx, now, report)
	s.sweepExpired(ctx, now, report)

	s.logger.Info("Sweep pass complete",
		zap.Int("penalized", report.Penalized),
		zap.Int("cancelled", report.Cancelled),
		zap.Int("skipped", report.Skipped))

	return report, nil
}

// sweepOverdue reassesses the penalty on every overdue loan as the fee owed
// if the book came back right now. Recomputation, not accrual: repeating the
// scan at a frozen instant rewrites the same value.
func (s *Sweeper) sweepOverdue(ctx context.Context, now time.Time, report *Report) {
	orders, err := s.store.GetOverdueTakenOrders(ctx, now)
	if err != nil {
		s.logger.Error("Failed to list overdue loans", zap.Error(err))
		return
	}

	for i := range orders {
		order := &orders[i]

		book, err := s.books.GetBook(ctx, order.BookID)
		if err != nil || book == nil {
			s.skip(report, "penalty", order.ID, "book unavailable", err)
			continue
		}

		amount := penalty.Compute(*order.DueDate, now, book.DailyPrice, s.policy)
		if amount <= order.Penalty {
			continue
		}

		ok, err := s.store.ApplyPenalty(ctx, order.ID, amount)
		if err != nil {
			s.skip(report, "penalty", order.ID, "persist failed", err)
			continue
		}
		if !ok {
			// returned or already reassessed higher in a racing pass
			continue
		}

		report.Penalized++
		util.PenaltiesAssessedTotal.Inc()
		util.PenaltyAmount.Observe(amount)

		if s.publisher != nil {
			event := &models.PenaltyAppliedEvent{
				BaseEvent: models.BaseEvent{
					EventID:   newEventID(),
					EventType: models.EventTypePenaltyApplied,
					Timestamp: now,
				},
				OrderID: order.ID,
				UserID:  order.UserID,
				BookID:  order.BookID,
				Penalty: amount,
			}
			if err := s.publisher.PublishPenaltyApplied(ctx, event); err != nil {
				s.logger.Error("Failed to publish PenaltyApplied event", zap.Error(err))
			}
		}
	}
}

// sweepExpired cancels bookings whose pickup deadline passed unconfirmed.
func (s *Sweeper) sweepExpired(ctx context.Context, now time.Time, report *Report) {
	orders, err := s.store.GetExpiredBookedOrders(ctx, now)
	if err != nil {
		s.logger.Error("Failed to list expired bookings", zap.Error(err))
		return
	}

	for i := range orders {
		order := &orders[i]

		ok, err := s.store.CancelBookedOrder(ctx, order.ID)
		if err != nil {
			s.skip(report, "expiry", order.ID, "cancel failed", err)
			continue
		}
		if !ok {
			// a racing accept or return won; nothing to cancel
			continue
		}

		report.Cancelled++
		util.OrdersCancelledTotal.Inc()
		s.logger.Info("Stale booking cancelled",
			zap.Int64("order_id", order.ID),
			zap.Time("due_date", *order.DueDate))

		if s.publisher != nil {
			event := &models.OrderCancelledEvent{
				BaseEvent: models.BaseEvent{
					EventID:   newEventID(),
					EventType: models.EventTypeOrderCancelled,
					Timestamp: now,
				},
				OrderID: order.ID,
				UserID:  order.UserID,
				BookID:  order.BookID,
				Reason:  "pickup deadline expired",
			}
			if err := s.publisher.PublishOrderCancelled(ctx, event); err != nil {
				s.logger.Error("Failed to publish OrderCancelled event", zap.Error(err))
			}
		}
	}
}

func (s *Sweeper) skip(report *Report, scan string, orderID int64, reason string, err error) {
	report.Skipped++
	util.SweepItemsFailed.WithLabelValues(scan).Inc()
	s.logger.Warn("Skipping order during sweep",
		zap.String("scan", scan),
		zap.Int64("order_id", orderID),
		zap.String("reason", reason),
		zap.Error(err))
}
