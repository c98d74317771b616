package models

import (
	"time"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	"github.com/Temutjin2k/ride-dispatch/pkg/uuid"
)

type Withdrawal struct {
	ID         uuid.UUID              `json:"id"`
	DriverID   uuid.UUID              `json:"driver_id"`
	Amount     int64                  `json:"amount"`
	Status     types.WithdrawalStatus `json:"status"`
	Note       string                 `json:"note,omitempty"`
	CreatedAt  time.Time              `json:"created_at"`
	ResolvedAt *time.Time             `json:"resolved_at,omitempty"`
	ResolvedBy *uuid.UUID             `json:"resolved_by,omitempty"`
}

// WalletTransaction is one append-only ledger entry. Exactly one of BookingID and WithdrawalID is set.
type WalletTransaction struct {
	ID           uuid.UUID          `json:"id"`
	DriverID     uuid.UUID          `json:"driver_id"`
	Kind         types.WalletTxKind `json:"kind"`
	Amount       int64              `json:"amount"`
	BookingID    *uuid.UUID         `json:"booking_id,omitempty"`
	WithdrawalID *uuid.UUID         `json:"withdrawal_id,omitempty"`
	CreatedAt    time.Time          `json:"created_at"`
}
