package types

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound           = errors.New("requested item not found")
	ErrPreconditionFailed = errors.New("precondition failed")

	ErrBookingNotFound    = fmt.Errorf("booking: %w", ErrNotFound)
	ErrDriverNotFound     = fmt.Errorf("driver: %w", ErrNotFound)
	ErrWithdrawalNotFound = fmt.Errorf("withdrawal: %w", ErrNotFound)

	// Lost races and stale state. All of them match ErrPreconditionFailed.
	ErrBookingUnavailable  = fmt.Errorf("%w: booking is no longer awaiting a driver", ErrPreconditionFailed)
	ErrDriverUnavailable   = fmt.Errorf("%w: driver is not available", ErrPreconditionFailed)
	ErrInvalidTripState    = fmt.Errorf("%w: invalid trip state", ErrPreconditionFailed)
	ErrNoPendingWithdrawal = fmt.Errorf("%w: withdrawal is not pending", ErrPreconditionFailed)

	ErrInsufficientBalance = errors.New("insufficient wallet balance")
	ErrBankDetailsMissing  = errors.New("bank details are missing")
	ErrPricingNotFound     = errors.New("no active pricing for vehicle type")
	ErrUpstreamUnavailable = errors.New("upstream service unavailable")

	ErrInvalidInput  = errors.New("invalid input")
	ErrInvalidAmount = fmt.Errorf("%w: amount must be positive", ErrInvalidInput)
)
