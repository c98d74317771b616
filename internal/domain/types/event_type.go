package types

type BookingEvent string

func (s BookingEvent) String() string {
	return string(s)
}

const (
	EventDriverAssigned   BookingEvent = "DRIVER_ASSIGNED"
	EventDriverRejected   BookingEvent = "DRIVER_REJECTED"
	EventDriverArrived    BookingEvent = "DRIVER_ARRIVED"
	EventTripStarted      BookingEvent = "TRIP_STARTED"
	EventTripCompleted    BookingEvent = "TRIP_COMPLETED"
	EventBookingCancelled BookingEvent = "BOOKING_CANCELLED"
)
