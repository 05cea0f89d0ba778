package service

import (
	"context"
	"fmt"
	"time"

	"library-rental/internal/apperrors"
	"library-rental/internal/models"
	"library-rental/internal/penalty"
	"library-rental/internal/util"

	"go.uber.org/zap"
)

// OrderStore is the repository surface the state machine needs. Find-style
// methods return (nil, nil) when the row is absent; guarded writes return
// false when the optimistic-concurrency guard did not match.
type OrderStore interface {
	CreateOrder(ctx context.Context, order *models.Order) (bool, error)
	GetOrderByID(ctx context.Context, id int64) (*models.Order, error)
	GetActiveOrder(ctx context.Context, userID, bookID int64) (*models.Order, error)
	GetOrders(ctx context.Context) ([]models.Order, error)
	GetOrdersByStatus(ctx context.Context, status string) ([]models.Order, error)
	AcceptOrder(ctx context.Context, orderID int64, takenAt, dueDate time.Time) (bool, error)
	ReturnOrder(ctx context.Context, orderID int64, fromStatus string, returnedAt time.Time, amount float64) (bool, error)
	RateOrder(ctx context.Context, orderID int64, rating int) (bool, error)
}

// BookSource resolves book records, typically through the redis-backed
// catalog. Returns (nil, nil) when the book does not exist.
type BookSource interface {
	GetBook(ctx context.Context, id int64) (*models.Book, error)
}

// Config carries the lifecycle deadlines and the late-fee policy.
type Config struct {
	ReservationTTL time.Duration
	LoanPeriod     time.Duration
	Penalty        penalty.Policy
}

// OrderService validates and performs order lifecycle transitions
type OrderService struct {
	store     OrderStore
	books     BookSource
	clock     Clock
	publisher EventPublisher
	cfg       Config
	logger    *zap.Logger
}

// EventPublisher emits domain events after successful transitions. Publish
// failures are logged, never propagated to callers.
type EventPublisher interface {
	PublishOrderBooked(ctx context.Context, event *models.OrderBookedEvent) error
	PublishOrderAccepted(ctx context.Context, event *models.OrderAcceptedEvent) error
	PublishOrderReturned(ctx context.Context, event *models.OrderReturnedEvent) error
	PublishOrderRated(ctx context.Context, event *models.OrderRatedEvent) error
}

// NewOrderService creates a new order service
func NewOrderService(store OrderStore, books BookSource, clock Clock, publisher EventPublisher, cfg Config) *OrderService {
	return &OrderService{
		store:     store,
		books:     books,
		clock:     clock,
		publisher: publisher,
		cfg:       cfg,
		logger:    util.NamedLogger("orders"),
	}
}

// BookOrder creates an order in the booked state. Only members may book,
// and at most one active order per (user, book) pair is allowed.
func (s *OrderService) BookOrder(ctx context.Context, caller models.Caller, bookID int64) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.BookOrder")
	defer span.End()

	if caller.Role != models.RoleUser {
		return nil, apperrors.Forbidden("only members can book orders")
	}

	book, err := s.books.GetBook(ctx, bookID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up book: %w", err)
	}
	if book == nil {
		return nil, apperrors.NotFound("book", bookID)
	}

	active, err := s.store.GetActiveOrder(ctx, caller.ID, bookID)
	if err != nil {
		return nil, fmt.Errorf("failed to check active orders: %w", err)
	}
	if active != nil {
		util.OrdersRejectedTotal.WithLabelValues("double_booking").Inc()
		return nil, apperrors.InvalidTransition("book", active.Status)
	}

	now := s.clock.Now()
	due := now.Add(s.cfg.ReservationTTL)
	order := &models.Order{
		UserID:   caller.ID,
		BookID:   bookID,
		Status:   models.OrderStatusBooked,
		BookedAt: now,
		DueDate:  &due,
	}

	ok, err := s.store.CreateOrder(ctx, order)
	if err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}
	if !ok {
		// a racing booking for the same (user, book) won the insert
		util.OrdersRejectedTotal.WithLabelValues("double_booking").Inc()
		return nil, apperrors.BookingConflict(bookID)
	}

	util.OrdersBookedTotal.Inc()
	s.logger.Info("Order booked",
		zap.Int64("order_id", order.ID),
		zap.Int64("user_id", caller.ID),
		zap.Int64("book_id", bookID))

	s.publishBooked(ctx, order)
	return order, nil
}

// AcceptOrder confirms hand-off of a booked order. Admin only. The return
// deadline starts at acceptance.
func (s *OrderService) AcceptOrder(ctx context.Context, caller models.Caller, orderID int64) (*models.Order, error) {
	ctx, span := util.StartOrderSpan(ctx, "OrderService.AcceptOrder", orderID)
	defer span.End()

	if caller.Role != models.RoleAdmin {
		return nil, apperrors.Forbidden("only admins can accept orders")
	}

	order, err := s.getOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status != models.OrderStatusBooked {
		return nil, apperrors.InvalidTransition("accept", order.Status)
	}

	now := s.clock.Now()
	due := now.Add(s.cfg.LoanPeriod)

	ok, err := s.store.AcceptOrder(ctx, orderID, now, due)
	if err != nil {
		return nil, fmt.Errorf("failed to accept order: %w", err)
	}
	if !ok {
		return nil, apperrors.Conflict("accept", orderID)
	}

	order.Status = models.OrderStatusTaken
	order.TakenAt = &now
	order.DueDate = &due

	util.OrdersAcceptedTotal.Inc()
	s.logger.Info("Order accepted",
		zap.Int64("order_id", orderID),
		zap.Time("due_date", due))

	s.publishAccepted(ctx, order)
	return order, nil
}

// ReturnOrder completes an active order for its owner. If the book was
// handed off, the late fee is assessed from taken_at; a booking returned
// before hand-off owes nothing.
func (s *OrderService) ReturnOrder(ctx context.Context, caller models.Caller, orderID int64) (*models.Order, error) {
	ctx, span := util.StartOrderSpan(ctx, "OrderService.ReturnOrder", orderID)
	defer span.End()

	order, err := s.getOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != caller.ID {
		return nil, apperrors.Forbidden("order belongs to another user")
	}
	if !order.IsActive() {
		return nil, apperrors.InvalidTransition("return", order.Status)
	}

	now := s.clock.Now()
	amount := 0.0
	if order.TakenAt != nil {
		book, err := s.books.GetBook(ctx, order.BookID)
		if err != nil {
			return nil, fmt.Errorf("failed to look up book: %w", err)
		}
		if book == nil {
			return nil, apperrors.NotFound("book", order.BookID)
		}
		amount = penalty.Compute(*order.TakenAt, now, book.DailyPrice, s.cfg.Penalty)
	}

	ok, err := s.store.ReturnOrder(ctx, orderID, order.Status, now, amount)
	if err != nil {
		return nil, fmt.Errorf("failed to return order: %w", err)
	}
	if !ok {
		return nil, apperrors.Conflict("return", orderID)
	}

	order.Status = models.OrderStatusReturned
	order.ReturnedAt = &now
	order.Penalty = amount

	util.OrdersReturnedTotal.Inc()
	if amount > 0 {
		util.PenaltyAmount.Observe(amount)
	}
	s.logger.Info("Order returned",
		zap.Int64("order_id", orderID),
		zap.Float64("penalty", amount))

	s.publishReturned(ctx, order)
	return order, nil
}

// RateOrder records a 0-5 rating on a returned order, once. Owner only.
func (s *OrderService) RateOrder(ctx context.Context, caller models.Caller, orderID int64, rating int) (*models.Order, error) {
	ctx, span := util.StartOrderSpan(ctx, "OrderService.RateOrder", orderID)
	defer span.End()

	if rating < 0 || rating > 5 {
		return nil, apperrors.Validation("rating must be between 0 and 5")
	}
	if caller.Role != models.RoleUser {
		return nil, apperrors.Forbidden("only members can rate orders")
	}

	order, err := s.getOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != caller.ID {
		return nil, apperrors.Forbidden("order belongs to another user")
	}
	if order.Status != models.OrderStatusReturned {
		return nil, apperrors.InvalidTransition("rate", order.Status)
	}
	if order.Rating != nil {
		return nil, apperrors.InvalidTransition("rate", "already rated")
	}

	ok, err := s.store.RateOrder(ctx, orderID, rating)
	if err != nil {
		return nil, fmt.Errorf("failed to rate order: %w", err)
	}
	if !ok {
		return nil, apperrors.Conflict("rate", orderID)
	}

	order.Rating = &rating

	util.OrdersRatedTotal.Inc()
	s.logger.Info("Order rated",
		zap.Int64("order_id", orderID),
		zap.Int("rating", rating))

	s.publishRated(ctx, order)
	return order, nil
}

// GetOrder retrieves a single order; members only see their own.
func (s *OrderService) GetOrder(ctx context.Context, caller models.Caller, orderID int64) (*models.Order, error) {
	order, err := s.getOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !caller.IsStaff() && order.UserID != caller.ID {
		return nil, apperrors.Forbidden("order belongs to another user")
	}
	return order, nil
}

// ListOrders retrieves all orders, optionally filtered by status. Staff only.
func (s *OrderService) ListOrders(ctx context.Context, caller models.Caller, status string) ([]models.Order, error) {
	if !caller.IsStaff() {
		return nil, apperrors.Forbidden("only staff can list orders")
	}
	if status != "" {
		return s.store.GetOrdersByStatus(ctx, status)
	}
	return s.store.GetOrders(ctx)
}

func (s *OrderService) getOrder(ctx context.Context, orderID int64) (*models.Order, error) {
	order, err := s.store.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to load order: %w", err)
	}
	if order == nil {
		return nil, apperrors.NotFound("order", orderID)
	}
	return order, nil
}

func (s *OrderService) publishBooked(ctx context.Context, order *models.Order) {
	if s.publisher == nil {
		return
	}
	event := &models.OrderBookedEvent{
		BaseEvent: newBaseEvent(models.EventTypeOrderBooked, s.clock.Now()),
		OrderID:   order.ID,
		UserID:    order.UserID,
		BookID:    order.BookID,
		DueDate:   *order.DueDate,
	}
	if err := s.publisher.PublishOrderBooked(ctx, event); err != nil {
		s.logger.Error("Failed to publish OrderBooked event", zap.Error(err))
	}
}

func (s *OrderService) publishAccepted(ctx context.Context, order *models.Order) {
	if s.publisher == nil {
		return
	}
	event := &models.OrderAcceptedEvent{
		BaseEvent: newBaseEvent(models.EventTypeOrderAccepted, s.clock.Now()),
		OrderID:   order.ID,
		UserID:    order.UserID,
		BookID:    order.BookID,
		DueDate:   *order.DueDate,
	}
	if err := s.publisher.PublishOrderAccepted(ctx, event); err != nil {
		s.logger.Error("Failed to publish OrderAccepted event", zap.Error(err))
	}
}

func (s *OrderService) publishReturned(ctx context.Context, order *models.Order) {
	if s.publisher == nil {
		return
	}
	event := &models.OrderReturnedEvent{
		BaseEvent: newBaseEvent(models.EventTypeOrderReturned, s.clock.Now()),
		OrderID:   order.ID,
		UserID:    order.UserID,
		BookID:    order.BookID,
		Penalty:   order.Penalty,
	}
	if err := s.publisher.PublishOrderReturned(ctx, event); err != nil {
		s.logger.Error("Failed to publish OrderReturned event", zap.Error(err))
	}
}

func (s *OrderService) publishRated(ctx context.Context, order *models.Order) {
	if s.publisher == nil {
		return
	}
	event := &models.OrderRatedEvent{
		BaseEvent: newBaseEvent(models.EventTypeOrderRated, s.clock.Now()),
		OrderID:   order.ID,
		UserID:    order.UserID,
		BookID:    order.BookID,
		Rating:    *order.Rating,
	}
	if err := s.publisher.PublishOrderRated(ctx, event); err != nil {
		s.logger.Error("Failed to publish OrderRated event", zap.Error(err))
	}
}
