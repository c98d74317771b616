package server

import (
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/Temutjin2k/ride-dispatch/docs"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
)

// setupRoutes - setups http routes
func (a *API) setupRoutes() {
	// System Health
	a.mux.HandleFunc("GET /health", a.routes.health.HealthCheck)

	a.setupSwaggerRoutes()
	a.setupMetricsRoute()

	a.setupBookingRoutes()
	a.setupDriverRoutes()
	a.setupWithdrawalRoutes()
}

// setupBookingRoutes setups the booking lifecycle routes. The acting driver is the caller.
func (a *API) setupBookingRoutes() {
	h, m := a.routes.booking, a.m

	a.mux.Handle("POST /bookings/{booking_id}/accept", m.RequireRoles(h.Accept, types.DriverRole))        // Accept an awaiting booking
	a.mux.Handle("POST /bookings/{booking_id}/reject", m.RequireRoles(h.Reject, types.DriverRole))        // Decline a booking
	a.mux.Handle("POST /bookings/{booking_id}/start", m.RequireRoles(h.StartTrip, types.DriverRole))      // Start the trip
	a.mux.Handle("POST /bookings/{booking_id}/complete", m.RequireRoles(h.CompleteTrip, types.DriverRole)) // Complete the trip
	a.mux.Handle("POST /bookings/{booking_id}/cancel", m.RequireRoles(h.Cancel, types.AdminRole))         // Cancel a booking
	a.mux.Handle("GET /bookings/{booking_id}", m.RequireRoles(h.Get))
}

// setupDriverRoutes setups driver presence, location and bank routes
func (a *API) setupDriverRoutes() {
	h, m := a.routes.driver, a.m

	a.mux.Handle("POST /drivers/{driver_id}/online", m.RequireRoles(h.GoOnline, types.DriverRole))
	a.mux.Handle("POST /drivers/{driver_id}/offline", m.RequireRoles(h.GoOffline, types.DriverRole))
	a.mux.Handle("POST /drivers/{driver_id}/location", m.RequireRoles(h.UpdateLocation, types.DriverRole))
	a.mux.Handle("GET /drivers/{driver_id}/ws", m.RequireRoles(a.routes.driverWS.HandleWS, types.DriverRole)) // WebSocket location stream
	a.mux.Handle("PUT /drivers/{driver_id}/bank", m.RequireRoles(h.SetBankDetails, types.DriverRole))
	a.mux.Handle("GET /drivers/{driver_id}", m.RequireRoles(h.Get))
}

// setupWithdrawalRoutes setups wallet routes
func (a *API) setupWithdrawalRoutes() {
	h, m := a.routes.withdrawal, a.m

	a.mux.Handle("POST /drivers/{driver_id}/withdrawals", m.RequireRoles(h.Request, types.DriverRole))
	a.mux.Handle("GET /drivers/{driver_id}/transactions", m.RequireRoles(h.Transactions, types.DriverRole, types.AdminRole))
	a.mux.Handle("GET /withdrawals", m.RequireRoles(h.List, types.AdminRole))
	a.mux.Handle("GET /withdrawals/{withdrawal_id}", m.RequireRoles(h.Get))
	a.mux.Handle("POST /withdrawals/{withdrawal_id}/approve", m.RequireRoles(h.Approve, types.AdminRole))
	a.mux.Handle("POST /withdrawals/{withdrawal_id}/reject", m.RequireRoles(h.Reject, types.AdminRole))
	a.mux.Handle("GET /withdrawals/{withdrawal_id}/receipt", m.RequireRoles(h.Receipt, types.AdminRole))
}

// setupSwaggerRoutes configures the Swagger UI endpoint
func (a *API) setupSwaggerRoutes() {
	a.mux.HandleFunc("GET /swagger/", httpSwagger.Handler(httpSwagger.InstanceName(docs.InstanceName)))
}

// setupMetricsRoute configures the Prometheus metrics endpoint
func (a *API) setupMetricsRoute() {
	a.mux.Handle("GET /metrics", promhttp.Handler())
}
