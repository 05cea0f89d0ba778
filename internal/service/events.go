package service

import (
	"time"

	"library-rental/internal/models"

	"github.com/google/uuid"
)

func newBaseEvent(eventType string, ts time.Time) models.BaseEvent {
	return models.BaseEvent{
		EventID:   uuid.New().String(),
		EventType: eventType,
		Timestamp: ts,
	}
}
