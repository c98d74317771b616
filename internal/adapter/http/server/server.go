package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/Temutjin2k/ride-dispatch/config"
	"github.com/Temutjin2k/ride-dispatch/internal/adapter/http/handler"
	"github.com/Temutjin2k/ride-dispatch/internal/adapter/http/middleware"
	"github.com/Temutjin2k/ride-dispatch/pkg/logger"
	wrap "github.com/Temutjin2k/ride-dispatch/pkg/logger/wrapper"
	ws "github.com/Temutjin2k/ride-dispatch/pkg/wsHub"
)

const (
	serverIPAddress = "%s:%s"
	serviceName     = "dispatch"
)

type API struct {
	mux    *http.ServeMux
	server *http.Server
	routes *handlers // routes/handlers
	m      *middleware.Middleware
	hub    *ws.ConnectionHub

	addr string
	cfg  config.ServerConfig
	log  logger.Logger
}

type handlers struct {
	health     *handler.Health
	booking    *handler.Booking
	driver     *handler.Driver
	driverWS   *handler.DriverWS
	withdrawal *handler.Withdrawal
}

// Services are the use cases the API exposes.
type Services struct {
	Booking handler.BookingService
	Driver  handler.DriverService
	Wallet  interface {
		handler.WalletService
		handler.BankService
	}
	Auth   middleware.AuthService
	Health map[string]handler.Checker
}

func New(cfg config.ServerConfig, svc Services, logger logger.Logger) (*API, error) {
	if svc.Auth == nil {
		return nil, errors.New("auth service is required")
	}
	if svc.Booking == nil || svc.Driver == nil || svc.Wallet == nil {
		return nil, errors.New("booking, driver and wallet services are required")
	}

	hub := ws.NewConnHub(logger)

	api := &API{
		mux: http.NewServeMux(),
		routes: &handlers{
			health:     handler.NewHealth(serviceName, svc.Health, logger),
			booking:    handler.NewBooking(svc.Booking, hub, logger),
			driver:     handler.NewDriver(svc.Driver, svc.Wallet, logger),
			driverWS:   handler.NewDriverWS(svc.Driver, hub, logger),
			withdrawal: handler.NewWithdrawal(svc.Wallet, logger),
		},
		m:    middleware.NewMiddleware(svc.Auth, logger),
		hub:  hub,
		addr: fmt.Sprintf(serverIPAddress, "0.0.0.0", cfg.Port),
		cfg:  cfg,
		log:  logger,
	}

	api.setupRoutes()

	api.server = &http.Server{
		Addr:        api.addr,
		Handler:     api.withMiddleware(),
		ReadTimeout: cfg.ReadTimeout,
		// WriteTimeout is left to handlers: it would cut long-lived websockets.
	}

	return api, nil
}

func (a *API) Stop(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, a.cfg.ShutdownTimeout)
	defer cancel()
	ctx = wrap.WithAction(ctx, "http_server_stop")

	a.log.Debug(ctx, "shutting down HTTP server...", "address", a.addr)
	if err := a.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("error shutting down server: %w", err)
	}
	// Hijacked websocket connections are not tracked by Shutdown.
	a.hub.Close()
	a.log.Debug(ctx, "shutting down HTTP server completed")

	return nil
}

func (a *API) Run(ctx context.Context, errCh chan<- error) {
	go func() {
		ctx = wrap.WithAction(ctx, "http_server_start")
		a.log.Info(ctx, "started http server", "address", a.addr)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("failed to start HTTP server: %w", err)
			return
		}
	}()
}

// Handler exposes the full middleware chain, used by tests.
func (a *API) Handler() http.Handler {
	return a.server.Handler
}

// withMiddleware applies middlewares to the mux.
// Metrics sits next to the mux so it sees the matched route pattern.
func (a *API) withMiddleware() http.Handler {
	return a.m.Recover(a.m.RequestID(a.m.Logging(a.m.Auth(a.m.Metrics(serviceName)(a.mux)))))
}
