package models

import (
	"time"

	"github.com/Temutjin2k/ride-dispatch/pkg/uuid"
)

type Driver struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	IsOnline    bool      `json:"is_online"`
	IsAvailable bool      `json:"is_available"`
	IsOnTrip    bool      `json:"is_on_trip"`

	Location          *Location  `json:"location,omitempty"` // nil until the first update
	LocationUpdatedAt *time.Time `json:"location_updated_at,omitempty"`

	WalletBalance int64        `json:"wallet_balance"` // whole currency units, never negative
	Bank          *BankDetails `json:"bank,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type BankDetails struct {
	BankName      string `json:"bank_name"`
	HolderName    string `json:"holder_name"`
	AccountNumber string `json:"account_number"`
	RoutingCode   string `json:"routing_code"` // IFSC / routing number
}

// MaskedAccount hides all but the last four digits of the account number.
func (b BankDetails) MaskedAccount() string {
	n := len(b.AccountNumber)
	if n <= 4 {
		return b.AccountNumber
	}
	masked := make([]byte, n)
	for i := range n - 4 {
		masked[i] = '*'
	}
	copy(masked[n-4:], b.AccountNumber[n-4:])
	return string(masked)
}
