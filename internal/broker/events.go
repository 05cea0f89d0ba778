package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"library-rental/internal/models"

	"github.com/segmentio/kafka-go"
)

// EventPublisher handles publishing order lifecycle events
type EventPublisher struct {
	producer *Producer
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(producer *Producer) *EventPublisher {
	return &EventPublisher{producer: producer}
}

func orderKey(orderID int64) string {
	return fmt.Sprintf("order-%d", orderID)
}

// PublishOrderBooked publishes OrderBooked event
func (ep *EventPublisher) PublishOrderBooked(ctx context.Context, event *models.OrderBookedEvent) error {
	return ep.producer.PublishEvent(ctx, orderKey(event.OrderID), event)
}

// PublishOrderAccepted publishes OrderAccepted event
func (ep *EventPublisher) PublishOrderAccepted(ctx context.Context, event *models.OrderAcceptedEvent) error {
	return ep.producer.PublishEvent(ctx, orderKey(event.OrderID), event)
}

// PublishOrderReturned publishes OrderReturned event
func (ep *EventPublisher) PublishOrderReturned(ctx context.Context, event *models.OrderReturnedEvent) error {
	return ep.producer.PublishEvent(ctx, orderKey(event.OrderID), event)
}

// PublishOrderRated publishes OrderRated event
func (ep *EventPublisher) PublishOrderRated(ctx context.Context, event *models.OrderRatedEvent) error {
	return ep.producer.PublishEvent(ctx, orderKey(event.OrderID), event)
}

// PublishOrderCancelled publishes OrderCancelled event
func (ep *EventPublisher) PublishOrderCancelled(ctx context.Context, event *models.OrderCancelledEvent) error {
	return ep.producer.PublishEvent(ctx, orderKey(event.OrderID), event)
}

// PublishPenaltyApplied publishes PenaltyApplied event
func (ep *EventPublisher) PublishPenaltyApplied(ctx context.Context, event *models.PenaltyAppliedEvent) error {
	return ep.producer.PublishEvent(ctx, orderKey(event.OrderID), event)
}

// EventHandler dispatches consumed messages to registered callbacks
type EventHandler struct {
	onOrderRated     func(ctx context.Context, event *models.OrderRatedEvent) error
	onOrderCancelled func(ctx context.Context, event *models.OrderCancelledEvent) error
	onPenaltyApplied func(ctx context.Context, event *models.PenaltyAppliedEvent) error
}

// NewEventHandler creates a new event handler
func NewEventHandler() *EventHandler {
	return &EventHandler{}
}

// OnOrderRated registers a callback for OrderRated events
func (h *EventHandler) OnOrderRated(fn func(ctx context.Context, event *models.OrderRatedEvent) error) {
	h.onOrderRated = fn
}

// OnOrderCancelled registers a callback for OrderCancelled events
func (h *EventHandler) OnOrderCancelled(fn func(ctx context.Context, event *models.OrderCancelledEvent) error) {
	h.onOrderCancelled = fn
}

// OnPenaltyApplied registers a callback for PenaltyApplied events
func (h *EventHandler) OnPenaltyApplied(fn func(ctx context.Context, event *models.PenaltyAppliedEvent) error) {
	h.onPenaltyApplied = fn
}

// HandleMessage decodes a message and routes it by event type. Unknown
// event types are ignored so new producers can roll out first.
func (h *EventHandler) HandleMessage(ctx context.Context, msg kafka.Message) error {
	var base models.BaseEvent
	if err := json.Unmarshal(msg.Value, &base); err != nil {
		log.Printf("Failed to unmarshal event: %v", err)
		return err
	}

	switch base.EventType {
	case models.EventTypeOrderRated:
		if h.onOrderRated == nil {
			return nil
		}
		var event models.OrderRatedEvent
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			return err
		}
		return h.onOrderRated(ctx, &event)

	case models.EventTypeOrderCancelled:
		if h.onOrderCancelled == nil {
			return nil
		}
		var event models.OrderCancelledEvent
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			return err
		}
		return h.onOrderCancelled(ctx, &event)

	case models.EventTypePenaltyApplied:
		if h.onPenaltyApplied == nil {
			return nil
		}
		var event models.PenaltyAppliedEvent
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			return err
		}
		return h.onPenaltyApplied(ctx, &event)
	}

	return nil
}
