package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Temutjin2k/ride-dispatch/config"
	"github.com/Temutjin2k/ride-dispatch/internal/adapter/memory"
	"github.com/Temutjin2k/ride-dispatch/internal/adapter/receipt"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	"github.com/Temutjin2k/ride-dispatch/internal/service/auth"
	ridecalc "github.com/Temutjin2k/ride-dispatch/internal/service/calculator"
	"github.com/Temutjin2k/ride-dispatch/internal/service/dispatch"
	drivergo "github.com/Temutjin2k/ride-dispatch/internal/service/driver"
	"github.com/Temutjin2k/ride-dispatch/internal/service/wallet"
	"github.com/Temutjin2k/ride-dispatch/pkg/logger"
	"github.com/Temutjin2k/ride-dispatch/pkg/uuid"
)

var (
	pickup = models.Location{Latitude: 43.238949, Longitude: 76.889709}
	drop   = models.Location{Latitude: 43.256542, Longitude: 76.928482}
)

type fixedRoute struct{}

func (fixedRoute) DistanceAndDuration(ctx context.Context, from, to models.Location) (models.RouteEstimate, error) {
	if to == drop {
		return models.RouteEstimate{DistanceKm: 10, DurationMin: 22}, nil
	}
	return models.RouteEstimate{DistanceKm: 4, DurationMin: 9}, nil
}

type nopRelay struct{}

func (nopRelay) StartTracking(ctx context.Context, bookingID uuid.UUID) error { return nil }
func (nopRelay) StopTracking(ctx context.Context, bookingID uuid.UUID) error  { return nil }
func (nopRelay) EmitLocation(ctx context.Context, u models.BookingLocationUpdate) error {
	return nil
}

type nopEvents struct{}

func (nopEvents) PublishBookingEvent(ctx context.Context, e models.BookingEventMessage) error {
	return nil
}

type testAPI struct {
	srv    *httptest.Server
	store  *memory.Store
	tokens *auth.TokenService
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()

	l := logger.New(io.Discard, "server-test", logger.LevelError)
	store := memory.NewStore()
	store.PutPricing(&models.PricingRule{
		ID:          uuid.MustNew(),
		VehicleType: types.EconomyClass,
		BaseFare:    50,
		PerKmRate:   12,
		IsActive:    true,
	})

	walletSvc := wallet.New(store.Drivers(), store.Ledger(), store.Withdrawals(), receipt.NewPDFRenderer(""), store, l)
	dispatchSvc := dispatch.New(dispatch.Deps{
		Bookings: store.Bookings(),
		Drivers:  store.Drivers(),
		Pricing:  store.Pricing(),
		Wallet:   walletSvc,
		Distance: fixedRoute{},
		Relay:    nopRelay{},
		Events:   nopEvents{},
		Fare:     ridecalc.NewFareEngine(ridecalc.DefaultCommissionPercent),
		TRM:      store,
		Logger:   l,
	})
	driverSvc := drivergo.New(store.Drivers(), store.Bookings(), nopRelay{}, nopEvents{}, 0.05, l)

	tokens := auth.NewTokenService("test-secret", time.Hour)
	api, err := New(config.ServerConfig{Port: "0", ShutdownTimeout: time.Second}, Services{
		Booking: dispatchSvc,
		Driver:  driverSvc,
		Wallet:  walletSvc,
		Auth:    auth.NewAuthService(tokens, l),
	}, l)
	if err != nil {
		t.Fatalf("new api: %v", err)
	}

	srv := httptest.NewServer(api.Handler())
	t.Cleanup(srv.Close)

	return &testAPI{srv: srv, store: store, tokens: tokens}
}

func (a *testAPI) token(t *testing.T, id uuid.UUID, role types.UserRole) string {
	t.Helper()
	tok, err := a.tokens.Issue(id, role)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return tok
}

func (a *testAPI) addDriver(t *testing.T) (uuid.UUID, string) {
	t.Helper()
	loc := models.Location{Latitude: 43.22, Longitude: 76.85}
	d := &models.Driver{ID: uuid.MustNew(), Name: "Aibek", IsOnline: true, IsAvailable: true, Location: &loc}
	a.store.PutDriver(d)
	return d.ID, a.token(t, d.ID, types.DriverRole)
}

func (a *testAPI) addBooking(t *testing.T) uuid.UUID {
	t.Helper()
	b := &models.Booking{
		ID:            uuid.MustNew(),
		CustomerID:    uuid.MustNew(),
		Status:        types.StatusAwaitingDriver,
		VehicleType:   types.EconomyClass,
		Pickup:        pickup,
		Drop:          drop,
		PaymentMethod: types.PaymentOnline,
		PaymentStatus: types.PaymentPending,
		CreatedAt:     time.Now(),
	}
	a.store.PutBooking(b)
	return b.ID
}

func (a *testAPI) do(t *testing.T, method, path, token string, body any) (*http.Response, []byte) {
	t.Helper()

	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		rd = bytes.NewReader(b)
	}

	req, err := http.NewRequest(method, a.srv.URL+path, rd)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := a.srv.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	out, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp, out
}

func expectStatus(t *testing.T, resp *http.Response, body []byte, want int) {
	t.Helper()
	if resp.StatusCode != want {
		t.Fatalf("%s %s: expected %d, got %d: %s", resp.Request.Method, resp.Request.URL.Path, want, resp.StatusCode, body)
	}
}

func TestTripAndPayoutFlow(t *testing.T) {
	a := newTestAPI(t)
	driverID, driverTok := a.addDriver(t)
	adminTok := a.token(t, uuid.MustNew(), types.AdminRole)
	bookingID := a.addBooking(t)
	base := "/bookings/" + bookingID.String()

	resp, body := a.do(t, http.MethodPost, base+"/accept", driverTok, nil)
	expectStatus(t, resp, body, http.StatusOK)

	resp, body = a.do(t, http.MethodPost, base+"/start", driverTok, nil)
	expectStatus(t, resp, body, http.StatusOK)

	resp, body = a.do(t, http.MethodPost, base+"/complete", driverTok, nil)
	expectStatus(t, resp, body, http.StatusOK)

	var completed struct {
		Booking models.Booking `json:"booking"`
	}
	if err := json.Unmarshal(body, &completed); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if completed.Booking.Status != types.StatusTripCompleted || completed.Booking.Fare == nil {
		t.Fatalf("unexpected booking %+v", completed.Booking)
	}
	earning := completed.Booking.Fare.DriverEarning

	// Retried completion is a conflict and credits nothing.
	resp, body = a.do(t, http.MethodPost, base+"/complete", driverTok, nil)
	expectStatus(t, resp, body, http.StatusConflict)

	wdPath := "/drivers/" + driverID.String() + "/withdrawals"
	resp, body = a.do(t, http.MethodPost, wdPath, driverTok, map[string]any{"amount": earning})
	expectStatus(t, resp, body, http.StatusUnprocessableEntity) // no bank details yet

	resp, body = a.do(t, http.MethodPut, "/drivers/"+driverID.String()+"/bank", driverTok, map[string]any{
		"bank_name": "Kaspi", "holder_name": "Aibek S", "account_number": "KZ1234567890", "routing_code": "CASPKZKA",
	})
	expectStatus(t, resp, body, http.StatusOK)

	resp, body = a.do(t, http.MethodPost, wdPath, driverTok, map[string]any{"amount": earning + 1})
	expectStatus(t, resp, body, http.StatusUnprocessableEntity)

	resp, body = a.do(t, http.MethodPost, wdPath, driverTok, map[string]any{"amount": earning})
	expectStatus(t, resp, body, http.StatusCreated)

	var created struct {
		Withdrawal models.Withdrawal `json:"withdrawal"`
	}
	if err := json.Unmarshal(body, &created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	wdBase := "/withdrawals/" + created.Withdrawal.ID.String()

	resp, body = a.do(t, http.MethodGet, wdBase+"/receipt", adminTok, nil)
	expectStatus(t, resp, body, http.StatusConflict) // not approved yet

	resp, body = a.do(t, http.MethodGet, "/withdrawals?status=PENDING", adminTok, nil)
	expectStatus(t, resp, body, http.StatusOK)
	if !strings.Contains(string(body), created.Withdrawal.ID.String()) {
		t.Fatalf("pending list must contain the withdrawal: %s", body)
	}

	resp, body = a.do(t, http.MethodPost, wdBase+"/approve", adminTok, map[string]any{"note": "paid"})
	expectStatus(t, resp, body, http.StatusOK)

	resp, body = a.do(t, http.MethodPost, wdBase+"/approve", adminTok, nil)
	expectStatus(t, resp, body, http.StatusConflict)

	resp, body = a.do(t, http.MethodGet, wdBase+"/receipt", adminTok, nil)
	expectStatus(t, resp, body, http.StatusOK)
	if resp.Header.Get("Content-Type") != "application/pdf" || !bytes.HasPrefix(body, []byte("%PDF-")) {
		t.Fatalf("expected a pdf receipt")
	}

	resp, body = a.do(t, http.MethodGet, "/drivers/"+driverID.String(), driverTok, nil)
	expectStatus(t, resp, body, http.StatusOK)
	if strings.Contains(string(body), "KZ1234567890") {
		t.Fatalf("account number must be masked: %s", body)
	}
	var got struct {
		Driver struct {
			WalletBalance int64 `json:"wallet_balance"`
		} `json:"driver"`
	}
	if err := json.Unmarshal(body, &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Driver.WalletBalance != 0 {
		t.Fatalf("expected the approved payout to empty the wallet, got %d", got.Driver.WalletBalance)
	}

	resp, body = a.do(t, http.MethodGet, "/drivers/"+driverID.String()+"/transactions", driverTok, nil)
	expectStatus(t, resp, body, http.StatusOK)
	if strings.Count(string(body), `"kind"`) != 2 {
		t.Fatalf("expected one credit and one debit: %s", body)
	}
}

func TestAccessControl(t *testing.T) {
	a := newTestAPI(t)
	driverID, driverTok := a.addDriver(t)
	otherID, _ := a.addDriver(t)
	bookingID := a.addBooking(t)
	adminTok := a.token(t, uuid.MustNew(), types.AdminRole)

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		body   any
		want   int
	}{
		{"metrics without token", http.MethodGet, "/metrics", "", nil, http.StatusOK},
		{"no token", http.MethodPost, "/bookings/" + bookingID.String() + "/accept", "", nil, http.StatusUnauthorized},
		{"driver cancels", http.MethodPost, "/bookings/" + bookingID.String() + "/cancel", driverTok, map[string]any{"reason": "x"}, http.StatusForbidden},
		{"driver approves", http.MethodPost, "/withdrawals/" + uuid.MustNew().String() + "/approve", driverTok, nil, http.StatusForbidden},
		{"other driver location", http.MethodPost, "/drivers/" + otherID.String() + "/location", driverTok, map[string]any{"latitude": 1, "longitude": 1}, http.StatusForbidden},
		{"other driver transactions", http.MethodGet, "/drivers/" + otherID.String() + "/transactions", driverTok, nil, http.StatusForbidden},
		{"own transactions", http.MethodGet, "/drivers/" + driverID.String() + "/transactions", driverTok, nil, http.StatusOK},
		{"admin reads transactions", http.MethodGet, "/drivers/" + otherID.String() + "/transactions", adminTok, nil, http.StatusOK},
		{"bad booking id", http.MethodPost, "/bookings/not-a-uuid/accept", driverTok, nil, http.StatusBadRequest},
		{"unknown booking", http.MethodPost, "/bookings/" + uuid.MustNew().String() + "/accept", driverTok, nil, http.StatusNotFound},
		{"invalid location", http.MethodPost, "/drivers/" + driverID.String() + "/location", driverTok, map[string]any{"latitude": 120, "longitude": 1}, http.StatusUnprocessableEntity},
		{"blank bank name", http.MethodPut, "/drivers/" + driverID.String() + "/bank", driverTok, map[string]any{"bank_name": "   ", "holder_name": "A S", "account_number": "KZ1234567890", "routing_code": "CASPKZKA"}, http.StatusUnprocessableEntity},
		{"unknown field", http.MethodPost, "/drivers/" + driverID.String() + "/location", driverTok, map[string]any{"lat": 1}, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := a.do(t, tt.method, tt.path, tt.token, tt.body)
			expectStatus(t, resp, body, tt.want)
		})
	}
}

func TestSecondAcceptConflicts(t *testing.T) {
	a := newTestAPI(t)
	_, first := a.addDriver(t)
	_, second := a.addDriver(t)
	bookingID := a.addBooking(t)
	path := "/bookings/" + bookingID.String() + "/accept"

	resp, body := a.do(t, http.MethodPost, path, first, nil)
	expectStatus(t, resp, body, http.StatusOK)

	resp, body = a.do(t, http.MethodPost, path, second, nil)
	expectStatus(t, resp, body, http.StatusConflict)
}

func TestDriverWebSocket(t *testing.T) {
	a := newTestAPI(t)
	driverID, driverTok := a.addDriver(t)
	bookingID := a.addBooking(t)

	resp, body := a.do(t, http.MethodPost, "/bookings/"+bookingID.String()+"/accept", driverTok, nil)
	expectStatus(t, resp, body, http.StatusOK)

	url := "ws" + strings.TrimPrefix(a.srv.URL, "http") + "/drivers/" + driverID.String() + "/ws?access_token=" + driverTok
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	read := func() map[string]any {
		t.Helper()
		_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		var msg map[string]any
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("read: %v", err)
		}
		return msg
	}

	if err := conn.WriteJSON(map[string]any{"type": "location_update", "latitude": 91, "longitude": 0}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if msg := read(); msg["type"] != "error" {
		t.Fatalf("expected error frame, got %v", msg)
	}

	// A few meters from the pickup point latches arrival.
	if err := conn.WriteJSON(map[string]any{"type": "location_update", "latitude": pickup.Latitude + 0.0001, "longitude": pickup.Longitude}); err != nil {
		t.Fatalf("write: %v", err)
	}
	msg := read()
	if msg["type"] != "location_ack" {
		t.Fatalf("expected ack, got %v", msg)
	}
	result, _ := msg["result"].(map[string]any)
	if result["arrived_at_pickup"] != true {
		t.Fatalf("expected arrival latch, got %v", msg)
	}

	b, err := a.store.Bookings().Get(context.Background(), bookingID)
	if err != nil {
		t.Fatalf("get booking: %v", err)
	}
	if b.Metrics.ArrivedAtPickupAt == nil {
		t.Fatalf("arrival must be stored")
	}
}

func TestCancelNotifiesConnectedDriver(t *testing.T) {
	a := newTestAPI(t)
	driverID, driverTok := a.addDriver(t)
	adminTok := a.token(t, uuid.MustNew(), types.AdminRole)
	bookingID := a.addBooking(t)

	resp, body := a.do(t, http.MethodPost, "/bookings/"+bookingID.String()+"/accept", driverTok, nil)
	expectStatus(t, resp, body, http.StatusOK)

	url := "ws" + strings.TrimPrefix(a.srv.URL, "http") + "/drivers/" + driverID.String() + "/ws?access_token=" + driverTok
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	read := func() map[string]any {
		t.Helper()
		_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		var msg map[string]any
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("read: %v", err)
		}
		return msg
	}

	// The first ack proves the socket is registered in the hub.
	if err := conn.WriteJSON(map[string]any{"type": "location_update", "latitude": 43.22, "longitude": 76.85}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if msg := read(); msg["type"] != "location_ack" {
		t.Fatalf("expected ack, got %v", msg)
	}

	resp, body = a.do(t, http.MethodPost, "/bookings/"+bookingID.String()+"/cancel", adminTok, map[string]string{"reason": "customer no-show"})
	expectStatus(t, resp, body, http.StatusOK)

	msg := read()
	if msg["type"] != "booking_cancelled" || msg["booking_id"] != bookingID.String() || msg["reason"] != "customer no-show" {
		t.Fatalf("unexpected notice %v", msg)
	}

	d, err := a.store.Drivers().Get(context.Background(), driverID)
	if err != nil {
		t.Fatal(err)
	}
	if !d.IsAvailable || d.IsOnTrip {
		t.Errorf("driver must be released, got available=%v on_trip=%v", d.IsAvailable, d.IsOnTrip)
	}
}
