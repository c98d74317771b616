package dto

import (
	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	"github.com/Temutjin2k/ride-dispatch/pkg/validator"
)

type WithdrawalReq struct {
	Amount int64 `json:"amount" validate:"gt=0"`
}

func (r *WithdrawalReq) Validate(v *validator.Validator) {
	v.Struct(r)
}

type ResolveWithdrawalReq struct {
	Note string `json:"note" validate:"max=500"`
}

func (r *ResolveWithdrawalReq) Validate(v *validator.Validator) {
	v.Struct(r)
}

func ValidateWithdrawalStatus(v *validator.Validator, status types.WithdrawalStatus) {
	v.Check(status == "" ||
		status == types.WithdrawalPending ||
		status == types.WithdrawalApproved ||
		status == types.WithdrawalRejected,
		"status", "must be one of: PENDING APPROVED REJECTED")
}
