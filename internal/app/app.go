package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	goredis "github.com/redis/go-redis/v9"
	"googlemaps.github.io/maps"

	"github.com/Temutjin2k/ride-dispatch/config"
	"github.com/Temutjin2k/ride-dispatch/internal/adapter/googlemaps"
	"github.com/Temutjin2k/ride-dispatch/internal/adapter/http/handler"
	"github.com/Temutjin2k/ride-dispatch/internal/adapter/http/server"
	"github.com/Temutjin2k/ride-dispatch/internal/adapter/kafka"
	locationiq "github.com/Temutjin2k/ride-dispatch/internal/adapter/locationIQ"
	repo "github.com/Temutjin2k/ride-dispatch/internal/adapter/postgres"
	relay "github.com/Temutjin2k/ride-dispatch/internal/adapter/rabbit"
	"github.com/Temutjin2k/ride-dispatch/internal/adapter/receipt"
	"github.com/Temutjin2k/ride-dispatch/internal/adapter/redis"
	"github.com/Temutjin2k/ride-dispatch/internal/service/auth"
	ridecalc "github.com/Temutjin2k/ride-dispatch/internal/service/calculator"
	"github.com/Temutjin2k/ride-dispatch/internal/service/dispatch"
	drivergo "github.com/Temutjin2k/ride-dispatch/internal/service/driver"
	"github.com/Temutjin2k/ride-dispatch/internal/service/wallet"
	"github.com/Temutjin2k/ride-dispatch/migrations"
	"github.com/Temutjin2k/ride-dispatch/pkg/logger"
	"github.com/Temutjin2k/ride-dispatch/pkg/postgres"
	"github.com/Temutjin2k/ride-dispatch/pkg/rabbit"
	"github.com/Temutjin2k/ride-dispatch/pkg/trm"
)

const receiptIssuer = "Ride Dispatch"

var ErrRabbitDisconnected = errors.New("rabbitmq connection is closed")

// App owns every outbound connection and the HTTP server.
type App struct {
	postgresDB *postgres.PostgreDB
	rabbit     *rabbit.RabbitMQ
	events     *kafka.EventPublisher
	redis      *goredis.Client
	httpServer *server.API

	cfg config.Config
	log logger.Logger
}

// NewApplication connects to the infrastructure and wires the services.
// Whatever was opened before a failure is closed again.
func NewApplication(ctx context.Context, cfg config.Config, log logger.Logger) (_ *App, err error) {
	app := &App{cfg: cfg, log: log}
	defer func() {
		if err != nil {
			app.close(ctx)
		}
	}()

	app.postgresDB, err = postgres.New(ctx, cfg.Database)
	if err != nil {
		log.Error(ctx, "failed to setup database", err)
		return nil, err
	}
	if cfg.Database.Migrate {
		if err = migrations.Apply(ctx, app.postgresDB.Pool); err != nil {
			log.Error(ctx, "failed to apply migrations", err)
			return nil, err
		}
	}

	app.rabbit, err = rabbit.New(ctx, cfg.RabbitMQ.GetDSN(), log)
	if err != nil {
		log.Error(ctx, "failed to connect to rabbitmq", err)
		return nil, err
	}
	tracking, err := relay.NewTrackingRelay(ctx, app.rabbit, log)
	if err != nil {
		log.Error(ctx, "failed to declare tracking exchanges", err)
		return nil, err
	}

	app.events = kafka.NewEventPublisher(cfg.Kafka.Brokers, cfg.Kafka.EventsTopic, cfg.Kafka.WriteTimeout)
	app.redis = redis.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)

	distance, err := newDistanceLookup(cfg.Distance)
	if err != nil {
		log.Error(ctx, "failed to setup distance provider", err, "provider", cfg.Distance.Provider)
		return nil, err
	}
	distance = dispatch.WithLookupRetry(
		redis.NewRouteCache(app.redis, distance, cfg.Redis.RouteTTL, log),
		cfg.Distance.Attempts,
		cfg.Distance.RetryDelay,
	)

	pool := app.postgresDB.Pool
	var (
		txManager   = trm.New(pool, log)
		bookings    = repo.NewBookingRepo(pool)
		drivers     = repo.NewDriverRepo(pool)
		pricing     = repo.NewPricingRepo(pool)
		ledger      = repo.NewLedgerRepo(pool)
		withdrawals = repo.NewWithdrawalRepo(pool)
	)

	walletService := wallet.New(drivers, ledger, withdrawals, receipt.NewPDFRenderer(receiptIssuer), txManager, log)
	dispatchService := dispatch.New(dispatch.Deps{
		Bookings: bookings,
		Drivers:  drivers,
		Pricing:  pricing,
		Wallet:   walletService,
		Distance: distance,
		Relay:    tracking,
		Events:   app.events,
		Fare:     ridecalc.NewFareEngine(cfg.Dispatch.DefaultCommissionPercent),
		TRM:      txManager,
		Logger:   log,
	})
	driverService := drivergo.New(drivers, bookings, tracking, app.events, cfg.Dispatch.ArrivalRadiusKm, log)
	authService := auth.NewAuthService(auth.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.AccessTTL), log)

	app.httpServer, err = server.New(cfg.Server, server.Services{
		Booking: dispatchService,
		Driver:  driverService,
		Wallet:  walletService,
		Auth:    authService,
		Health:  app.healthChecks(),
	}, log)
	if err != nil {
		log.Error(ctx, "failed to setup http server", err)
		return nil, err
	}

	return app, nil
}

func newDistanceLookup(cfg config.DistanceConfig) (dispatch.DistanceLookup, error) {
	switch cfg.Provider {
	case config.ProviderGoogleMaps:
		return googlemaps.NewRouteService(cfg.GoogleMapsAPIKey,
			maps.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}),
		)
	case config.ProviderLocationIQ:
		return locationiq.New(cfg.LocationIQAPIKey, cfg.Timeout), nil
	default:
		return nil, fmt.Errorf("%w: %q", config.ErrInvalidDistanceProvider, cfg.Provider)
	}
}

func (a *App) healthChecks() map[string]handler.Checker {
	return map[string]handler.Checker{
		"postgres": a.postgresDB.Pool.Ping,
		"rabbitmq": func(context.Context) error {
			if a.rabbit.IsConnectionClosed() {
				return ErrRabbitDisconnected
			}
			return nil
		},
		"redis": func(ctx context.Context) error {
			return a.redis.Ping(ctx).Err()
		},
	}
}

// Run serves until the server fails or SIGINT/SIGTERM arrives, then closes everything.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	a.httpServer.Run(ctx, errCh)
	defer func() {
		a.close(ctx)
		a.log.Info(ctx, "dispatch service closed")
	}()

	// Waiting signal
	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	a.log.Info(ctx, "dispatch service started")

	select {
	case errRun := <-errCh:
		return errRun
	case sig := <-shutdownCh:
		a.log.Info(ctx, "shutting down application", "signal", sig.String())
		return nil
	}
}

func (a *App) close(ctx context.Context) {
	if a.httpServer != nil {
		if err := a.httpServer.Stop(ctx); err != nil {
			a.log.Warn(ctx, "failed to gracefully close http server", "error", err.Error())
		}
	}

	if a.events != nil {
		if err := a.events.Close(); err != nil {
			a.log.Warn(ctx, "failed to close kafka writer", "error", err.Error())
		}
	}

	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.log.Warn(ctx, "failed to close redis client", "error", err.Error())
		}
	}

	if a.rabbit != nil {
		if err := a.rabbit.Close(ctx); err != nil {
			a.log.Warn(ctx, "failed to close rabbitmq", "error", err.Error())
		}
	}

	if a.postgresDB != nil && a.postgresDB.Pool != nil {
		a.postgresDB.Pool.Close()
	}
}
