package handler

import (
	"context"
	"net/http"

	"github.com/Temutjin2k/ride-dispatch/internal/adapter/http/handler/dto"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	"github.com/Temutjin2k/ride-dispatch/pkg/logger"
	wrap "github.com/Temutjin2k/ride-dispatch/pkg/logger/wrapper"
	"github.com/Temutjin2k/ride-dispatch/pkg/uuid"
	"github.com/Temutjin2k/ride-dispatch/pkg/validator"
)

type WalletService interface {
	RequestWithdrawal(ctx context.Context, driverID uuid.UUID, amount int64) (*models.Withdrawal, error)
	ApproveWithdrawal(ctx context.Context, id, adminID uuid.UUID, note string) (*models.Withdrawal, error)
	RejectWithdrawal(ctx context.Context, id, adminID uuid.UUID, note string) (*models.Withdrawal, error)
	GetWithdrawal(ctx context.Context, id uuid.UUID) (*models.Withdrawal, error)
	ListWithdrawals(ctx context.Context, status types.WithdrawalStatus) ([]*models.Withdrawal, error)
	Transactions(ctx context.Context, driverID uuid.UUID) ([]models.WalletTransaction, error)
	Receipt(ctx context.Context, id uuid.UUID) ([]byte, error)
}

type Withdrawal struct {
	service WalletService
	l       logger.Logger
}

func NewWithdrawal(service WalletService, l logger.Logger) *Withdrawal {
	return &Withdrawal{
		service: service,
		l:       l,
	}
}

// Request godoc
// @Summary      Request a withdrawal
// @Description  Creates a PENDING withdrawal. The balance is debited on approval.
// @Tags         withdrawals
// @Accept       json
// @Produce      json
// @Param        driver_id path string true "Driver ID"
// @Param        request body dto.WithdrawalReq true "Amount"
// @Success      201 {object} map[string]interface{}
// @Failure      422 {object} map[string]interface{} "Insufficient balance or missing bank details"
// @Security     BearerAuth
// @Router       /drivers/{driver_id}/withdrawals [post]
func (h *Withdrawal) Request(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "http_request_withdrawal")

	driverID, err := driverFromPath(r)
	if err != nil {
		ErrorResponse(w, pathErrorCode(err), err.Error())
		return
	}

	var req dto.WithdrawalReq
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

	wd, err := h.service.RequestWithdrawal(ctx, driverID, req.Amount)
	if err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to request withdrawal", err)
		serviceErrorResponse(w, err)
		return
	}

	h.write(ctx, w, http.StatusCreated, envelope{"withdrawal": wd})
}

// Approve godoc
// @Summary      Approve a pending withdrawal
// @Description  Debits the driver's wallet and marks the withdrawal APPROVED as one unit.
// @Tags         withdrawals
// @Accept       json
// @Produce      json
// @Param        withdrawal_id path string true "Withdrawal ID"
// @Param        request body dto.ResolveWithdrawalReq false "Note"
// @Success      200 {object} map[string]interface{}
// @Failure      409 {object} map[string]interface{} "Not pending"
// @Failure      422 {object} map[string]interface{} "Insufficient balance"
// @Security     BearerAuth
// @Router       /withdrawals/{withdrawal_id}/approve [post]
func (h *Withdrawal) Approve(w http.ResponseWriter, r *http.Request) {
	h.resolve(w, r, "http_approve_withdrawal", h.service.ApproveWithdrawal)
}

// Reject godoc
// @Summary      Reject a pending withdrawal
// @Tags         withdrawals
// @Accept       json
// @Produce      json
// @Param        withdrawal_id path string true "Withdrawal ID"
// @Param        request body dto.ResolveWithdrawalReq false "Note"
// @Success      200 {object} map[string]interface{}
// @Failure      409 {object} map[string]interface{} "Not pending"
// @Security     BearerAuth
// @Router       /withdrawals/{withdrawal_id}/reject [post]
func (h *Withdrawal) Reject(w http.ResponseWriter, r *http.Request) {
	h.resolve(w, r, "http_reject_withdrawal", h.service.RejectWithdrawal)
}

type resolveFunc func(ctx context.Context, id, adminID uuid.UUID, note string) (*models.Withdrawal, error)

func (h *Withdrawal) resolve(w http.ResponseWriter, r *http.Request, action string, fn resolveFunc) {
	ctx := wrap.WithAction(r.Context(), action)

	id, err := pathID(r, "withdrawal_id")
	if err != nil {
		badRequestResponse(w, err.Error())
		return
	}

	var req dto.ResolveWithdrawalReq
	if err := readOptionalJSON(w, r, &req); err != nil {
		badRequestResponse(w, err.Error())
		return
	}

	v := validator.New()
	req.Validate(v)
	if !v.Valid() {
		failedValidationResponse(w, v.Errors)
		return
	}

	wd, err := fn(ctx, id, caller(r).ID, req.Note)
	if err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to resolve withdrawal", err)
		serviceErrorResponse(w, err)
		return
	}

	h.write(ctx, w, http.StatusOK, envelope{"withdrawal": wd})
}

// Get godoc
// @Summary      Get a withdrawal
// @Tags         withdrawals
// @Produce      json
// @Param        withdrawal_id path string true "Withdrawal ID"
// @Success      200 {object} map[string]interface{}
// @Failure      404 {object} map[string]interface{}
// @Security     BearerAuth
// @Router       /withdrawals/{withdrawal_id} [get]
func (h *Withdrawal) Get(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "http_get_withdrawal")

	id, err := pathID(r, "withdrawal_id")
	if err != nil {
		badRequestResponse(w, err.Error())
		return
	}

	wd, err := h.service.GetWithdrawal(ctx, id)
	if err != nil {
		serviceErrorResponse(w, err)
		return
	}

	// Drivers only see their own withdrawals.
	if user := caller(r); !user.IsAdmin() && user.ID != wd.DriverID {
		ErrorResponse(w, http.StatusNotFound, types.ErrWithdrawalNotFound.Error())
		return
	}

	h.write(ctx, w, http.StatusOK, envelope{"withdrawal": wd})
}

// List godoc
// @Summary      List withdrawals
// @Tags         withdrawals
// @Produce      json
// @Param        status query string false "PENDING, APPROVED or REJECTED"
// @Success      200 {object} map[string]interface{}
// @Security     BearerAuth
// @Router       /withdrawals [get]
func (h *Withdrawal) List(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "http_list_withdrawals")

	status := types.WithdrawalStatus(r.URL.Query().Get("status"))

	v := validator.New()
	dto.ValidateWithdrawalStatus(v, status)
	if !v.Valid() {
		failedValidationResponse(w, v.Errors)
		return
	}

	list, err := h.service.ListWithdrawals(ctx, status)
	if err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to list withdrawals", err)
		serviceErrorResponse(w, err)
		return
	}

	h.write(ctx, w, http.StatusOK, envelope{"withdrawals": list, "count": len(list)})
}

// Transactions godoc
// @Summary      Wallet ledger of a driver
// @Tags         withdrawals
// @Produce      json
// @Param        driver_id path string true "Driver ID"
// @Success      200 {object} map[string]interface{}
// @Security     BearerAuth
// @Router       /drivers/{driver_id}/transactions [get]
func (h *Withdrawal) Transactions(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "http_wallet_transactions")

	driverID, err := driverFromPath(r)
	if err != nil {
		ErrorResponse(w, pathErrorCode(err), err.Error())
		return
	}

	txs, err := h.service.Transactions(ctx, driverID)
	if err != nil {
		serviceErrorResponse(w, err)
		return
	}

	h.write(ctx, w, http.StatusOK, envelope{"transactions": txs})
}

// Receipt godoc
// @Summary      Payout receipt
// @Description  PDF receipt of an approved withdrawal.
// @Tags         withdrawals
// @Produce      application/pdf
// @Param        withdrawal_id path string true "Withdrawal ID"
// @Success      200 {file} file
// @Failure      409 {object} map[string]interface{} "Withdrawal is not approved"
// @Security     BearerAuth
// @Router       /withdrawals/{withdrawal_id}/receipt [get]
func (h *Withdrawal) Receipt(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "http_withdrawal_receipt")

	id, err := pathID(r, "withdrawal_id")
	if err != nil {
		badRequestResponse(w, err.Error())
		return
	}

	pdf, err := h.service.Receipt(ctx, id)
	if err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to render receipt", err)
		serviceErrorResponse(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `inline; filename="receipt-`+id.String()+`.pdf"`)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(pdf); err != nil {
		h.l.Warn(ctx, "failed to write receipt", "error", err.Error())
	}
}

func (h *Withdrawal) write(ctx context.Context, w http.ResponseWriter, status int, data envelope) {
	if err := writeJSON(w, status, data, nil); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to write response", err)
		internalErrorResponse(w, err.Error())
	}
}
