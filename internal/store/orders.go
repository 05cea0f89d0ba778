package store

import (
	"context"
	"database/sql"
	"time"

	"library-rental/internal/models"
)

// CreateOrder inserts a new order in its initial state. The no-active-order
// precondition is part of the insert itself, so two racing bookings for the
// same (user, book) cannot both land: returns false when an active order
// already holds the pair.
func (s *Store) CreateOrder(ctx context.Context, order *models.Order) (bool, error) {
	query := `
		INSERT INTO orders (user_id, book_id, status, booked_at, due_date, penalty)
		SELECT $1, $2, $3, $4, $5, 0
		WHERE NOT EXISTS (
			SELECT 1 FROM orders
			WHERE user_id = $1 AND book_id = $2 AND status IN ($6, $7)
		)
		RETURNING id, penalty, created_at, updated_at`

	err := s.db.GetContext(ctx, order, query,
		order.UserID, order.BookID, order.Status, order.BookedAt, order.DueDate,
		models.OrderStatusBooked, models.OrderStatusTaken)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// GetOrderByID retrieves an order by ID. Returns (nil, nil) when absent.
func (s *Store) GetOrderByID(ctx context.Context, id int64) (*models.Order, error) {
	var order models.Order
	err := s.db.GetContext(ctx, &order, "SELECT * FROM orders WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// GetActiveOrder retrieves the active (booked or taken) order for a
// (user, book) pair. Returns (nil, nil) when none exists.
func (s *Store) GetActiveOrder(ctx context.Context, userID, bookID int64) (*models.Order, error) {
	var order models.Order
	err := s.db.GetContext(ctx, &order, `
		SELECT * FROM orders
		WHERE user_id = $1 AND book_id = $2 AND status IN ($3, $4)
		LIMIT 1`,
		userID, bookID, models.OrderStatusBooked, models.OrderStatusTaken)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// GetOrders retrieves all orders, newest first
func (s *Store) GetOrders(ctx context.Context) ([]models.Order, error) {
	var orders []models.Order
	err := s.db.SelectContext(ctx, &orders, "SELECT * FROM orders ORDER BY created_at DESC")
	return orders, err
}

// GetOrdersByStatus retrieves all orders in a given status
func (s *Store) GetOrdersByStatus(ctx context.Context, status string) ([]models.Order, error) {
	var orders []models.Order
	err := s.db.SelectContext(ctx, &orders,
		"SELECT * FROM orders WHERE status = $1 ORDER BY created_at DESC", status)
	return orders, err
}

// GetOverdueTakenOrders retrieves loans past their return deadline and not
// yet returned, for the sweeper's penalty scan.
func (s *Store) GetOverdueTakenOrders(ctx context.Context, now time.Time) ([]models.Order, error) {
	var orders []models.Order
	err := s.db.SelectContext(ctx, &orders, `
		SELECT * FROM orders
		WHERE status = $1 AND returned_at IS NULL AND due_date < $2`,
		models.OrderStatusTaken, now)
	return orders, err
}

// GetExpiredBookedOrders retrieves unconfirmed bookings past their pickup
// deadline, for the sweeper's expiry scan.
func (s *Store) GetExpiredBookedOrders(ctx context.Context, now time.Time) ([]models.Order, error) {
	var orders []models.Order
	err := s.db.SelectContext(ctx, &orders, `
		SELECT * FROM orders
		WHERE status = $1 AND due_date < $2`,
		models.OrderStatusBooked, now)
	return orders, err
}

// AcceptOrder moves a booked order to taken, stamping taken_at and the new
// return deadline. The previous status is the optimistic-concurrency guard:
// returns false when the order was no longer booked at write time.
func (s *Store) AcceptOrder(ctx context.Context, orderID int64, takenAt, dueDate time.Time) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE orders
		SET status = $1, taken_at = $2, due_date = $3, updated_at = NOW()
		WHERE id = $4 AND status = $5`,
		models.OrderStatusTaken, takenAt, dueDate, orderID, models.OrderStatusBooked)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// ReturnOrder moves an order to returned, stamping returned_at and the
// penalty owed. fromStatus is the guard: returns false when the order left
// that status since it was read.
func (s *Store) ReturnOrder(ctx context.Context, orderID int64, fromStatus string, returnedAt time.Time, penalty float64) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE orders
		SET status = $1, returned_at = $2, penalty = $3, updated_at = NOW()
		WHERE id = $4 AND status = $5`,
		models.OrderStatusReturned, returnedAt, penalty, orderID, fromStatus)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// RateOrder sets the rating on a returned, not-yet-rated order. Returns
// false when the order is no longer returned or already carries a rating.
func (s *Store) RateOrder(ctx context.Context, orderID int64, rating int) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE orders
		SET rating = $1, updated_at = NOW()
		WHERE id = $2 AND status = $3 AND rating IS NULL`,
		rating, orderID, models.OrderStatusReturned)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// CancelBookedOrder cancels a stale unconfirmed booking. Returns false when
// the order was no longer booked, e.g. because a racing accept or return won.
func (s *Store) CancelBookedOrder(ctx context.Context, orderID int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE orders
		SET status = $1, updated_at = NOW()
		WHERE id = $2 AND status = $3`,
		models.OrderStatusCancelled, orderID, models.OrderStatusBooked)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// ApplyPenalty persists a sweeper reassessment of an overdue loan. The
// penalty <= guard keeps the stored value monotonically non-decreasing, so
// repeated passes at the same instant are no-ops after the first write.
func (s *Store) ApplyPenalty(ctx context.Context, orderID int64, amount float64) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE orders
		SET penalty = $1, updated_at = NOW()
		WHERE id = $2 AND status = $3 AND returned_at IS NULL AND penalty <= $1`,
		amount, orderID, models.OrderStatusTaken)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}
