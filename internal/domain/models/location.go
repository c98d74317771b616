package models

import (
	"time"

	"github.com/Temutjin2k/ride-dispatch/pkg/uuid"
)

type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// RouteEstimate is what the distance lookup returns for a pair of points.
type RouteEstimate struct {
	DistanceKm  float64 `json:"distance_km"`
	DurationMin float64 `json:"duration_min"`
}

// RabbitMQ message: driver position for an active booking published to the location_fanout exchange
type BookingLocationUpdate struct {
	BookingID uuid.UUID `json:"booking_id"`
	DriverID  uuid.UUID `json:"driver_id"`
	Location  Location  `json:"location"`
	Timestamp time.Time `json:"timestamp"`
}

// RabbitMQ message: tracking start/stop published to the tracking_topic exchange
type TrackingSignal struct {
	BookingID uuid.UUID `json:"booking_id"`
	Tracking  bool      `json:"tracking"`
	Timestamp time.Time `json:"timestamp"`
}
