package models

import (
	"time"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	"github.com/Temutjin2k/ride-dispatch/pkg/uuid"
)

// BookingEventMessage is published after every committed transition.
type BookingEventMessage struct {
	Type       types.BookingEvent  `json:"type"`
	BookingID  uuid.UUID           `json:"booking_id"`
	DriverID   *uuid.UUID          `json:"driver_id,omitempty"`
	Status     types.BookingStatus `json:"status"`
	OccurredAt time.Time           `json:"occurred_at"`
	Payload    map[string]any      `json:"payload,omitempty"`
}
