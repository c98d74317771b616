package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/Temutjin2k/ride-dispatch/pkg/configparser"
	"github.com/Temutjin2k/ride-dispatch/pkg/logger"
	"github.com/Temutjin2k/ride-dispatch/pkg/postgres"
)

var (
	ErrInvalidLogLevel         = errors.New("invalid log level")
	ErrInvalidDistanceProvider = errors.New("invalid distance provider")
	ErrMissingAPIKey           = errors.New("distance provider api key is required")
	ErrInvalidCommission       = errors.New("default commission percent must be within [0, 100]")
)

const (
	ProviderLocationIQ = "locationiq"
	ProviderGoogleMaps = "googlemaps"
)

// Config contains all configuration variables of the application
type (
	Config struct {
		LogLevel string `env:"LOG_LEVEL" default:"INFO"`

		Server   ServerConfig
		Database DatabaseConfig
		RabbitMQ RabbitMQConfig
		Kafka    KafkaConfig
		Redis    RedisConfig
		Distance DistanceConfig
		Dispatch DispatchConfig
		Auth     Auth
	}

	ServerConfig struct {
		Port            string        `env:"SERVER_PORT" default:"3001"`
		ReadTimeout     time.Duration `env:"SERVER_READ_TIMEOUT" default:"10s"`
		WriteTimeout    time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"15s"`
		ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"5s"`
	}

	DatabaseConfig struct {
		Host     string `env:"DATABASE_HOST" default:"localhost"`
		Port     string `env:"DATABASE_PORT" default:"5432"`
		User     string `env:"DATABASE_USER" default:"dispatch_user"`
		Password string `env:"DATABASE_PASSWORD" default:"dispatch_pass"`
		Database string `env:"DATABASE_DATABASE" default:"dispatch_db"`
		Migrate  bool   `env:"DATABASE_MIGRATE" default:"true"`

		MaxConns        int32         `env:"DATABASE_MAXCONNS" default:"20"`
		MinConns        int32         `env:"DATABASE_MINCONNS" default:"2"`
		MaxConnLifetime time.Duration `env:"DATABASE_MAXCONNLIFETIME" default:"30m"`
		MaxConnIdleTime time.Duration `env:"DATABASE_MAXCONNIDLETIME" default:"5m"`
	}

	RabbitMQConfig struct {
		Host     string `env:"RABBITMQ_HOST" default:"localhost"`
		Port     string `env:"RABBITMQ_PORT" default:"5672"`
		User     string `env:"RABBITMQ_USER" default:"guest"`
		Password string `env:"RABBITMQ_PASSWORD" default:"guest"`
	}

	KafkaConfig struct {
		Brokers      []string      `env:"KAFKA_BROKERS" default:"localhost:9092"`
		EventsTopic  string        `env:"KAFKA_EVENTS_TOPIC" default:"booking-events"`
		WriteTimeout time.Duration `env:"KAFKA_WRITE_TIMEOUT" default:"2s"`
	}

	RedisConfig struct {
		Addr     string        `env:"REDIS_ADDR" default:"localhost:6379"`
		Password string        `env:"REDIS_PASSWORD"`
		DB       int           `env:"REDIS_DB" default:"0"`
		RouteTTL time.Duration `env:"REDIS_ROUTE_TTL" default:"10m"`
	}

	DistanceConfig struct {
		Provider         string        `env:"DISTANCE_PROVIDER" default:"locationiq"`
		LocationIQAPIKey string        `env:"LOCATIONIQ_API_KEY"`
		GoogleMapsAPIKey string        `env:"GOOGLEMAPS_API_KEY"`
		Timeout          time.Duration `env:"DISTANCE_TIMEOUT" default:"3s"`
		Attempts         int           `env:"DISTANCE_ATTEMPTS" default:"3"`
		RetryDelay       time.Duration `env:"DISTANCE_RETRY_DELAY" default:"200ms"`
	}

	DispatchConfig struct {
		ArrivalRadiusKm          float64 `env:"DISPATCH_ARRIVAL_RADIUS_KM" default:"0.05"`
		DefaultCommissionPercent float64 `env:"DISPATCH_DEFAULT_COMMISSION_PERCENT" default:"20"`
	}

	Auth struct {
		JWTSecret string        `env:"AUTH_JWT_SECRET" default:"supersecretkey"`
		AccessTTL time.Duration `env:"AUTH_ACCESS_TTL" default:"24h"`
	}
)

func (c DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=disable",
		c.User,
		c.Password,
		c.Host,
		c.Port,
		c.Database,
	)
}

func (c DatabaseConfig) PoolLimits() postgres.Limits {
	return postgres.Limits{
		MaxConns:        c.MaxConns,
		MinConns:        c.MinConns,
		MaxConnLifetime: c.MaxConnLifetime,
		MaxConnIdleTime: c.MaxConnIdleTime,
	}
}

func (c RabbitMQConfig) GetDSN() string {
	return fmt.Sprintf("amqp://%s:%s@%s:%s/",
		c.User,
		c.Password,
		c.Host,
		c.Port,
	)
}

// APIKey returns the key of the selected distance provider.
func (c DistanceConfig) APIKey() string {
	if c.Provider == ProviderGoogleMaps {
		return c.GoogleMapsAPIKey
	}
	return c.LocationIQAPIKey
}

func NewConfig(filepath string) (*Config, error) {
	cfg := &Config{}

	// Loading environment variables and parsing to config struct.
	if err := configparser.LoadAndParseYaml(filepath, cfg); err != nil {
		return nil, fmt.Errorf("failed to load and parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	switch {
	case !logger.ValidateLogLevel(c.LogLevel):
		return fmt.Errorf("%w: %q", ErrInvalidLogLevel, c.LogLevel)
	case c.Distance.Provider != ProviderLocationIQ && c.Distance.Provider != ProviderGoogleMaps:
		return fmt.Errorf("%w: %q", ErrInvalidDistanceProvider, c.Distance.Provider)
	case c.Distance.APIKey() == "":
		return ErrMissingAPIKey
	case c.Dispatch.DefaultCommissionPercent < 0 || c.Dispatch.DefaultCommissionPercent > 100:
		return ErrInvalidCommission
	}

	if c.Distance.Attempts < 1 {
		c.Distance.Attempts = 1
	}

	return nil
}
