package models

import "time"

// Event types
const (
	EventTypeOrderBooked    = "ORDER_BOOKED"
	EventTypeOrderAccepted  = "ORDER_ACCEPTED"
	EventTypeOrderReturned  = "ORDER_RETURNED"
	EventTypeOrderRated     = "ORDER_RATED"
	EventTypeOrderCancelled = "ORDER_CANCELLED"
	EventTypePenaltyApplied = "PENALTY_APPLIED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// OrderBookedEvent published when a user books a title
type OrderBookedEvent struct {
	BaseEvent
	OrderID int64     `json:"order_id"`
	UserID  int64     `json:"user_id"`
	BookID  int64     `json:"book_id"`
	DueDate time.Time `json:"due_date"`
}

// OrderAcceptedEvent published when an admin confirms hand-off
type OrderAcceptedEvent struct {
	BaseEvent
	OrderID int64     `json:"order_id"`
	UserID  int64     `json:"user_id"`
	BookID  int64     `json:"book_id"`
	DueDate time.Time `json:"due_date"`
}

// OrderReturnedEvent published when the book comes back
type OrderReturnedEvent struct {
	BaseEvent
	OrderID int64   `json:"order_id"`
	UserID  int64   `json:"user_id"`
	BookID  int64   `json:"book_id"`
	Penalty float64 `json:"penalty"`
}

// OrderRatedEvent published when the user rates a returned book
type OrderRatedEvent struct {
	BaseEvent
	OrderID int64 `json:"order_id"`
	UserID  int64 `json:"user_id"`
	BookID  int64 `json:"book_id"`
	Rating  int   `json:"rating"`
}

// OrderCancelledEvent published when the sweeper expires a stale booking
type OrderCancelledEvent struct {
	BaseEvent
	OrderID int64  `json:"order_id"`
	UserID  int64  `json:"user_id"`
	BookID  int64  `json:"book_id"`
	Reason  string `json:"reason"`
}

// PenaltyAppliedEvent published when the sweeper reassesses an overdue loan
type PenaltyAppliedEvent struct {
	BaseEvent
	OrderID int64   `json:"order_id"`
	UserID  int64   `json:"user_id"`
	BookID  int64   `json:"book_id"`
	Penalty float64 `json:"penalty"`
}
