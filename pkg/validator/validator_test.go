package validator

import "testing"

type bankReq struct {
	BankName      string   `json:"bank_name" validate:"required,max=100"`
	AccountNumber string   `json:"account_number" validate:"required,alphanum"`
	Latitude      *float64 `json:"latitude" validate:"required,latitude"`
}

func TestStruct(t *testing.T) {
	lat := 95.0
	v := New()
	v.Struct(bankReq{AccountNumber: "12-34", Latitude: &lat})

	want := map[string]string{
		"bank_name":      "must be provided",
		"account_number": "must contain only letters and digits",
		"latitude":       "must be between -90 and 90",
	}
	if len(v.Errors) != len(want) {
		t.Fatalf("expected %d errors, got %v", len(want), v.Errors)
	}
	for k, msg := range want {
		if v.Errors[k] != msg {
			t.Fatalf("%s: expected %q, got %q", k, msg, v.Errors[k])
		}
	}
}

func TestCheckKeepsFirstMessage(t *testing.T) {
	v := New()
	v.Check(true, "amount", "never added")
	v.Check(false, "amount", "must be positive")
	v.Check(false, "amount", "second")

	if v.Valid() {
		t.Fatalf("expected invalid")
	}
	if v.Errors["amount"] != "must be positive" {
		t.Fatalf("unexpected message %q", v.Errors["amount"])
	}
}

func TestValidStruct(t *testing.T) {
	lat := 43.2
	v := New()
	v.Struct(bankReq{BankName: "Kaspi", AccountNumber: "KZ123", Latitude: &lat})
	if !v.Valid() {
		t.Fatalf("unexpected errors %v", v.Errors)
	}
}
