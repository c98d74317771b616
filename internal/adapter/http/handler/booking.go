package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/Temutjin2k/ride-dispatch/internal/adapter/http/handler/dto"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
	"github.com/Temutjin2k/ride-dispatch/internal/service/dispatch"
	"github.com/Temutjin2k/ride-dispatch/pkg/logger"
	wrap "github.com/Temutjin2k/ride-dispatch/pkg/logger/wrapper"
	"github.com/Temutjin2k/ride-dispatch/pkg/metrics"
	"github.com/Temutjin2k/ride-dispatch/pkg/uuid"
	"github.com/Temutjin2k/ride-dispatch/pkg/validator"
	ws "github.com/Temutjin2k/ride-dispatch/pkg/wsHub"
)

type BookingService interface {
	GetBooking(ctx context.Context, id uuid.UUID) (*models.Booking, error)
	Accept(ctx context.Context, cmd dispatch.AcceptCommand) (*models.Booking, error)
	Reject(ctx context.Context, cmd dispatch.RejectCommand) error
	StartTrip(ctx context.Context, cmd dispatch.StartCommand) (*models.Booking, error)
	CompleteTrip(ctx context.Context, cmd dispatch.CompleteCommand) (*models.Booking, error)
	Cancel(ctx context.Context, cmd dispatch.CancelCommand) (*models.Booking, error)
}

// DriverNotifier pushes a message to a driver's open websocket.
type DriverNotifier interface {
	SendTo(driverID uuid.UUID, msg any) error
}

type Booking struct {
	service  BookingService
	notifier DriverNotifier
	l        logger.Logger
}

func NewBooking(service BookingService, notifier DriverNotifier, l logger.Logger) *Booking {
	return &Booking{
		service:  service,
		notifier: notifier,
		l:        l,
	}
}

// Accept godoc
// @Summary      Accept a booking
// @Description  The calling driver takes a booking that is still awaiting a driver.
// @Tags         bookings
// @Produce      json
// @Param        booking_id path string true "Booking ID"
// @Success      200 {object} map[string]interface{} "Assigned booking"
// @Failure      404 {object} map[string]interface{} "Booking or driver not found"
// @Failure      409 {object} map[string]interface{} "Booking taken or driver busy"
// @Failure      503 {object} map[string]interface{} "Distance provider unavailable"
// @Security     BearerAuth
// @Router       /bookings/{booking_id}/accept [post]
func (h *Booking) Accept(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "http_accept_booking")

	bookingID, err := pathID(r, "booking_id")
	if err != nil {
		badRequestResponse(w, err.Error())
		return
	}

	booking, err := h.service.Accept(ctx, dispatch.AcceptCommand{BookingID: bookingID, DriverID: caller(r).ID})
	h.respond(ctx, w, "accept", booking, err)
}

// Reject godoc
// @Summary      Reject a booking
// @Description  Records that the calling driver declined the booking. Repeating it is a no-op.
// @Tags         bookings
// @Produce      json
// @Param        booking_id path string true "Booking ID"
// @Success      200 {object} map[string]interface{}
// @Failure      404 {object} map[string]interface{}
// @Security     BearerAuth
// @Router       /bookings/{booking_id}/reject [post]
func (h *Booking) Reject(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "http_reject_booking")

	bookingID, err := pathID(r, "booking_id")
	if err != nil {
		badRequestResponse(w, err.Error())
		return
	}

	err = h.service.Reject(ctx, dispatch.RejectCommand{BookingID: bookingID, DriverID: caller(r).ID})
	metrics.RecordTransition("reject", statusOf(err))
	if err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to reject booking", err)
		serviceErrorResponse(w, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, envelope{"booking_id": bookingID, "rejected": true}, nil); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to write response", err)
		internalErrorResponse(w, err.Error())
	}
}

// StartTrip godoc
// @Summary      Start the trip
// @Tags         bookings
// @Produce      json
// @Param        booking_id path string true "Booking ID"
// @Success      200 {object} map[string]interface{} "Started booking"
// @Failure      409 {object} map[string]interface{} "Booking is not assigned to the caller"
// @Failure      503 {object} map[string]interface{} "Distance provider unavailable"
// @Security     BearerAuth
// @Router       /bookings/{booking_id}/start [post]
func (h *Booking) StartTrip(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "http_start_trip")

	bookingID, err := pathID(r, "booking_id")
	if err != nil {
		badRequestResponse(w, err.Error())
		return
	}

	booking, err := h.service.StartTrip(ctx, dispatch.StartCommand{BookingID: bookingID, DriverID: caller(r).ID})
	h.respond(ctx, w, "start", booking, err)
}

// CompleteTrip godoc
// @Summary      Complete the trip
// @Description  Prices the trip, frees the driver and credits the driver's wallet.
// @Tags         bookings
// @Accept       json
// @Produce      json
// @Param        booking_id path string true "Booking ID"
// @Param        request body dto.CompleteTripReq false "Reported distance"
// @Success      200 {object} map[string]interface{} "Completed booking with fare breakdown"
// @Failure      409 {object} map[string]interface{} "Trip is not in progress"
// @Failure      424 {object} map[string]interface{} "No active pricing"
// @Security     BearerAuth
// @Router       /bookings/{booking_id}/complete [post]
func (h *Booking) CompleteTrip(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "http_complete_trip")

	bookingID, err := pathID(r, "booking_id")
	if err != nil {
		badRequestResponse(w, err.Error())
		return
	}

	var req dto.CompleteTripReq
	if err := readOptionalJSON(w, r, &req); err != nil {
		h.l.Warn(ctx, "failed to read request JSON data", "error", err.Error())
		badRequestResponse(w, err.Error())
		return
	}

	v := validator.New()
	req.Validate(v)
	if !v.Valid() {
		failedValidationResponse(w, v.Errors)
		return
	}

	booking, err := h.service.CompleteTrip(ctx, dispatch.CompleteCommand{
		BookingID:  bookingID,
		DriverID:   caller(r).ID,
		DistanceKm: req.DistanceKm,
	})
	h.respond(ctx, w, "complete", booking, err)
}

// Cancel godoc
// @Summary      Cancel a booking
// @Tags         bookings
// @Accept       json
// @Produce      json
// @Param        booking_id path string true "Booking ID"
// @Param        request body dto.CancelBookingReq true "Cancellation reason"
// @Success      200 {object} map[string]interface{} "Cancelled booking"
// @Failure      409 {object} map[string]interface{} "Booking already finished"
// @Security     BearerAuth
// @Router       /bookings/{booking_id}/cancel [post]
func (h *Booking) Cancel(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "http_cancel_booking")

	bookingID, err := pathID(r, "booking_id")
	if err != nil {
		badRequestResponse(w, err.Error())
		return
	}

	var req dto.CancelBookingReq
	if err := readJSON(w, r, &req); err != nil {
		badRequestResponse(w, err.Error())
		return
	}

	v := validator.New()
	req.Validate(v)
	if !v.Valid() {
		failedValidationResponse(w, v.Errors)
		return
	}

	booking, err := h.service.Cancel(ctx, dispatch.CancelCommand{BookingID: bookingID, Reason: req.Reason})
	h.respond(ctx, w, "cancel", booking, err)
	if err == nil {
		h.notifyCancelled(ctx, booking)
	}
}

// notifyCancelled tells the assigned driver, if connected, that the booking is gone.
func (h *Booking) notifyCancelled(ctx context.Context, booking *models.Booking) {
	if h.notifier == nil || booking.DriverID == nil {
		return
	}

	err := h.notifier.SendTo(*booking.DriverID, envelope{
		"type":       "booking_cancelled",
		"booking_id": booking.ID,
		"reason":     booking.CancellationReason,
	})
	switch {
	case err == nil:
	case errors.Is(err, ws.ErrConnIsNotFound):
		h.l.Debug(ctx, "driver not connected, cancel notice skipped", "driver_id", booking.DriverID)
	default:
		h.l.Warn(ctx, "failed to notify driver about cancellation", "driver_id", booking.DriverID, "error", err.Error())
	}
}

// Get godoc
// @Summary      Get a booking
// @Tags         bookings
// @Produce      json
// @Param        booking_id path string true "Booking ID"
// @Success      200 {object} map[string]interface{}
// @Failure      404 {object} map[string]interface{}
// @Security     BearerAuth
// @Router       /bookings/{booking_id} [get]
func (h *Booking) Get(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "http_get_booking")

	bookingID, err := pathID(r, "booking_id")
	if err != nil {
		badRequestResponse(w, err.Error())
		return
	}

	booking, err := h.service.GetBooking(ctx, bookingID)
	if err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to get booking", err)
		serviceErrorResponse(w, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, envelope{"booking": booking}, nil); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to write response", err)
		internalErrorResponse(w, err.Error())
	}
}

func (h *Booking) respond(ctx context.Context, w http.ResponseWriter, transition string, booking *models.Booking, err error) {
	metrics.RecordTransition(transition, statusOf(err))
	if err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "booking transition failed", err, "transition", transition)
		serviceErrorResponse(w, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, envelope{"booking": booking}, nil); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to write response", err)
		internalErrorResponse(w, err.Error())
		return
	}

	h.l.Info(ctx, "booking transition applied", "transition", transition, "booking_id", booking.ID, "status", booking.Status)
}

func statusOf(err error) int {
	if err == nil {
		return http.StatusOK
	}
	return GetCode(err)
}
