package handler

import (
	"context"
	"net/http"

	"github.com/Temutjin2k/ride-dispatch/internal/adapter/http/handler/dto"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
	drivergo "github.com/Temutjin2k/ride-dispatch/internal/service/driver"
	"github.com/Temutjin2k/ride-dispatch/pkg/logger"
	wrap "github.com/Temutjin2k/ride-dispatch/pkg/logger/wrapper"
	"github.com/Temutjin2k/ride-dispatch/pkg/uuid"
	"github.com/Temutjin2k/ride-dispatch/pkg/validator"
)

type DriverService interface {
	Get(ctx context.Context, driverID uuid.UUID) (*models.Driver, error)
	GoOnline(ctx context.Context, driverID uuid.UUID) error
	GoOffline(ctx context.Context, driverID uuid.UUID) error
	UpdateLocation(ctx context.Context, driverID uuid.UUID, loc models.Location) (drivergo.LocationResult, error)
}

type BankService interface {
	AddBankDetails(ctx context.Context, driverID uuid.UUID, bank models.BankDetails) error
}

type Driver struct {
	service DriverService
	bank    BankService
	l       logger.Logger
}

func NewDriver(service DriverService, bank BankService, l logger.Logger) *Driver {
	return &Driver{
		service: service,
		bank:    bank,
		l:       l,
	}
}

// GoOnline godoc
// @Summary      Driver goes online
// @Tags         drivers
// @Produce      json
// @Param        driver_id path string true "Driver ID"
// @Success      200 {object} map[string]interface{}
// @Failure      403 {object} map[string]interface{}
// @Failure      404 {object} map[string]interface{}
// @Security     BearerAuth
// @Router       /drivers/{driver_id}/online [post]
func (h *Driver) GoOnline(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "set_driver_online")

	driverID, err := driverFromPath(r)
	if err != nil {
		ErrorResponse(w, pathErrorCode(err), err.Error())
		return
	}

	if err := h.service.GoOnline(ctx, driverID); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to set driver status to online", err)
		serviceErrorResponse(w, err)
		return
	}

	response := envelope{
		"status":  "ONLINE",
		"message": "You are now online and ready to accept bookings",
	}
	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to write response", err)
		internalErrorResponse(w, err.Error())
		return
	}

	h.l.Info(ctx, "driver set to online successfully", "driver_id", driverID)
}

// GoOffline godoc
// @Summary      Driver goes offline
// @Description  Refused with 409 while the driver is on a trip.
// @Tags         drivers
// @Produce      json
// @Param        driver_id path string true "Driver ID"
// @Success      200 {object} map[string]interface{}
// @Failure      409 {object} map[string]interface{}
// @Security     BearerAuth
// @Router       /drivers/{driver_id}/offline [post]
func (h *Driver) GoOffline(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "set_driver_offline")

	driverID, err := driverFromPath(r)
	if err != nil {
		ErrorResponse(w, pathErrorCode(err), err.Error())
		return
	}

	if err := h.service.GoOffline(ctx, driverID); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to set driver status to offline", err)
		serviceErrorResponse(w, err)
		return
	}

	response := envelope{
		"status":  "OFFLINE",
		"message": "You are now offline",
	}
	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to write response", err)
		internalErrorResponse(w, err.Error())
		return
	}

	h.l.Info(ctx, "driver set to offline successfully", "driver_id", driverID)
}

// UpdateLocation godoc
// @Summary      Report driver position
// @Description  Stores the position, relays it for the active booking and latches pickup arrival.
// @Tags         drivers
// @Accept       json
// @Produce      json
// @Param        driver_id path string true "Driver ID"
// @Param        request body dto.LocationUpdateReq true "Current position"
// @Success      200 {object} drivergo.LocationResult
// @Failure      422 {object} map[string]interface{}
// @Security     BearerAuth
// @Router       /drivers/{driver_id}/location [post]
func (h *Driver) UpdateLocation(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "update_driver_location")

	driverID, err := driverFromPath(r)
	if err != nil {
		ErrorResponse(w, pathErrorCode(err), err.Error())
		return
	}

	var req dto.LocationUpdateReq
	if err := readJSON(w, r, &req); err != nil {
		h.l.Warn(ctx, "failed to read request JSON data", "error", err.Error())
		badRequestResponse(w, err.Error())
		return
	}

	v := validator.New()
	req.Validate(v)
	if !v.Valid() {
		h.l.Warn(ctx, "invalid request data")
		failedValidationResponse(w, v.Errors)
		return
	}

	result, err := h.service.UpdateLocation(ctx, driverID, req.ToModel())
	if err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to update driver location", err)
		serviceErrorResponse(w, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, envelope{"result": result}, nil); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to write response", err)
		internalErrorResponse(w, err.Error())
	}
}

// Get godoc
// @Summary      Get a driver
// @Tags         drivers
// @Produce      json
// @Param        driver_id path string true "Driver ID"
// @Success      200 {object} dto.DriverResponse
// @Failure      404 {object} map[string]interface{}
// @Security     BearerAuth
// @Router       /drivers/{driver_id} [get]
func (h *Driver) Get(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "get_driver")

	driverID, err := pathID(r, "driver_id")
	if err != nil {
		badRequestResponse(w, err.Error())
		return
	}

	driver, err := h.service.Get(ctx, driverID)
	if err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to get driver", err)
		serviceErrorResponse(w, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, envelope{"driver": dto.NewDriverResponse(driver)}, nil); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to write response", err)
		internalErrorResponse(w, err.Error())
	}
}

// SetBankDetails godoc
// @Summary      Set payout bank details
// @Tags         drivers
// @Accept       json
// @Produce      json
// @Param        driver_id path string true "Driver ID"
// @Param        request body dto.BankDetailsReq true "Bank account"
// @Success      200 {object} map[string]interface{}
// @Failure      422 {object} map[string]interface{}
// @Security     BearerAuth
// @Router       /drivers/{driver_id}/bank [put]
func (h *Driver) SetBankDetails(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "set_bank_details")

	driverID, err := driverFromPath(r)
	if err != nil {
		ErrorResponse(w, pathErrorCode(err), err.Error())
		return
	}

	var req dto.BankDetailsReq
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

	if err := h.bank.AddBankDetails(ctx, driverID, req.ToModel()); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to set bank details", err)
		serviceErrorResponse(w, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, envelope{"message": "bank details saved"}, nil); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to write response", err)
		internalErrorResponse(w, err.Error())
	}
}

func pathErrorCode(err error) int {
	if IsOneOf(err, ErrForbidden) {
		return http.StatusForbidden
	}
	return http.StatusBadRequest
}
