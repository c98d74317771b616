package dto

import (
	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
	"github.com/Temutjin2k/ride-dispatch/pkg/validator"
)

type LocationUpdateReq struct {
	Latitude  *float64 `json:"latitude" validate:"required,latitude"`
	Longitude *float64 `json:"longitude" validate:"required,longitude"`
}

func (r *LocationUpdateReq) Validate(v *validator.Validator) {
	v.Struct(r)
}

func (r *LocationUpdateReq) ToModel() models.Location {
	return models.Location{
		Latitude:  *r.Latitude,
		Longitude: *r.Longitude,
	}
}

// LocationFrame is a location message sent over the driver WebSocket.
type LocationFrame struct {
	MsgType   string   `json:"type" validate:"required,eq=location_update"`
	Latitude  *float64 `json:"latitude" validate:"required,latitude"`
	Longitude *float64 `json:"longitude" validate:"required,longitude"`
}

func (r *LocationFrame) Validate(v *validator.Validator) {
	v.Struct(r)
}

func (r *LocationFrame) ToModel() models.Location {
	return models.Location{
		Latitude:  *r.Latitude,
		Longitude: *r.Longitude,
	}
}

type BankDetailsReq struct {
	BankName      string `json:"bank_name" validate:"required,notblank,max=100"`
	HolderName    string `json:"holder_name" validate:"required,notblank,max=100"`
	AccountNumber string `json:"account_number" validate:"required,alphanum,min=6,max=34"`
	RoutingCode   string `json:"routing_code" validate:"required,alphanum,max=11"`
}

func (r *BankDetailsReq) Validate(v *validator.Validator) {
	v.Struct(r)
}

func (r *BankDetailsReq) ToModel() models.BankDetails {
	return models.BankDetails{
		BankName:      r.BankName,
		HolderName:    r.HolderName,
		AccountNumber: r.AccountNumber,
		RoutingCode:   r.RoutingCode,
	}
}

// DriverResponse hides the full account number.
type DriverResponse struct {
	*models.Driver
	Bank *MaskedBank `json:"bank,omitempty"`
}

type MaskedBank struct {
	BankName      string `json:"bank_name"`
	HolderName    string `json:"holder_name"`
	AccountNumber string `json:"account_number"`
}

func NewDriverResponse(d *models.Driver) DriverResponse {
	resp := DriverResponse{Driver: d}
	if d.Bank != nil {
		resp.Bank = &MaskedBank{
			BankName:      d.Bank.BankName,
			HolderName:    d.Bank.HolderName,
			AccountNumber: d.Bank.MaskedAccount(),
		}
	}
	return resp
}
