package types

// BookingStatus is the lifecycle state of a booking.
type BookingStatus string

const (
	StatusAwaitingDriver BookingStatus = "AWAITING_DRIVER"
	StatusDriverAssigned BookingStatus = "DRIVER_ASSIGNED"
	StatusTripStarted    BookingStatus = "TRIP_STARTED"
	StatusTripCompleted  BookingStatus = "TRIP_COMPLETED"
	StatusCancelled      BookingStatus = "CANCELLED"
)

var allowedTransitions = map[BookingStatus][]BookingStatus{
	StatusAwaitingDriver: {StatusDriverAssigned, StatusCancelled},
	StatusDriverAssigned: {StatusTripStarted, StatusCancelled},
	StatusTripStarted:    {StatusTripCompleted, StatusCancelled},
}

func (s BookingStatus) String() string {
	return string(s)
}

// IsTerminal reports whether no transition leaves s.
func (s BookingStatus) IsTerminal() bool {
	return s == StatusTripCompleted || s == StatusCancelled
}

// IsActive reports whether a driver is bound to a booking in status s.
func (s BookingStatus) IsActive() bool {
	return s == StatusDriverAssigned || s == StatusTripStarted
}

func (s BookingStatus) Valid() bool {
	switch s {
	case StatusAwaitingDriver, StatusDriverAssigned, StatusTripStarted, StatusTripCompleted, StatusCancelled:
		return true
	}
	return false
}

// CanTransition reports whether the state machine allows from -> to.
func CanTransition(from, to BookingStatus) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// NonTerminalStatuses lists every status cancellation may start from.
func NonTerminalStatuses() []BookingStatus {
	return []BookingStatus{StatusAwaitingDriver, StatusDriverAssigned, StatusTripStarted}
}

type PaymentMethod string

const (
	PaymentCash   PaymentMethod = "CASH"
	PaymentOnline PaymentMethod = "ONLINE"
)

type PaymentStatus string

const (
	PaymentPending PaymentStatus = "PENDING"
	PaymentSuccess PaymentStatus = "SUCCESS"
)

type WithdrawalStatus string

const (
	WithdrawalPending  WithdrawalStatus = "PENDING"
	WithdrawalApproved WithdrawalStatus = "APPROVED"
	WithdrawalRejected WithdrawalStatus = "REJECTED"
)

func (s WithdrawalStatus) Valid() bool {
	return s == WithdrawalPending || s == WithdrawalApproved || s == WithdrawalRejected
}

// WalletTxKind is the direction of a wallet ledger entry.
type WalletTxKind string

const (
	WalletCredit WalletTxKind = "CREDIT"
	WalletDebit  WalletTxKind = "DEBIT"
)

// VehicleClass selects the pricing rule.
type VehicleClass string

const (
	EconomyClass VehicleClass = "ECONOMY"
	PremiumClass VehicleClass = "PREMIUM"
	XLClass      VehicleClass = "XL"
)

func (v VehicleClass) Valid() bool {
	return v == EconomyClass || v == PremiumClass || v == XLClass
}

type UserRole string

func (r UserRole) String() string {
	return string(r)
}

const (
	PassengerRole UserRole = "PASSENGER"
	DriverRole    UserRole = "DRIVER"
	AdminRole     UserRole = "ADMIN"
)
