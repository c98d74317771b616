package types

import (
	"errors"
	"testing"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from BookingStatus
		to   BookingStatus
		want bool
	}{
		{StatusAwaitingDriver, StatusDriverAssigned, true},
		{StatusDriverAssigned, StatusTripStarted, true},
		{StatusTripStarted, StatusTripCompleted, true},
		{StatusAwaitingDriver, StatusCancelled, true},
		{StatusDriverAssigned, StatusCancelled, true},
		{StatusTripStarted, StatusCancelled, true},
		{StatusAwaitingDriver, StatusTripStarted, false},
		{StatusAwaitingDriver, StatusTripCompleted, false},
		{StatusDriverAssigned, StatusAwaitingDriver, false},
		{StatusTripStarted, StatusDriverAssigned, false},
		{StatusTripCompleted, StatusCancelled, false},
		{StatusCancelled, StatusAwaitingDriver, false},
		{StatusTripCompleted, StatusTripStarted, false},
	}

	for _, tt := range tests {
		if got := CanTransition(tt.from, tt.to); got != tt.want {
			t.Fatalf("CanTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestTerminalStatusesHaveNoExit(t *testing.T) {
	all := []BookingStatus{StatusAwaitingDriver, StatusDriverAssigned, StatusTripStarted, StatusTripCompleted, StatusCancelled}
	for _, from := range all {
		if !from.IsTerminal() {
			continue
		}
		for _, to := range all {
			if CanTransition(from, to) {
				t.Fatalf("terminal %s must not move to %s", from, to)
			}
		}
	}
}

func TestPreconditionFamily(t *testing.T) {
	for _, err := range []error{ErrBookingUnavailable, ErrDriverUnavailable, ErrInvalidTripState, ErrNoPendingWithdrawal} {
		if !errors.Is(err, ErrPreconditionFailed) {
			t.Fatalf("%v should match ErrPreconditionFailed", err)
		}
	}
	if errors.Is(ErrInsufficientBalance, ErrPreconditionFailed) {
		t.Fatalf("insufficient balance is user-correctable, not a precondition race")
	}
	if !errors.Is(ErrBookingNotFound, ErrNotFound) {
		t.Fatalf("booking not found should match ErrNotFound")
	}
}
