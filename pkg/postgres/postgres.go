package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgreDB struct {
	Pool     *pgxpool.Pool
	DBConfig *pgxpool.Config
}

type Config interface {
	GetDSN() string
}

// Limits are optional pool settings. Zero values keep the pgxpool defaults.
type Limits struct {
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// Limiter is implemented by configs that tune the pool.
type Limiter interface {
	PoolLimits() Limits
}

func New(ctx context.Context, config Config) (*PostgreDB, error) {
	dbConfig, err := pgxpool.ParseConfig(config.GetDSN())
	if err != nil {
		return nil, err
	}

	if l, ok := config.(Limiter); ok {
		applyLimits(dbConfig, l.PoolLimits())
	}

	pool, err := pgxpool.NewWithConfig(ctx, dbConfig)
	if err != nil {
		return nil, err
	}

	// Ping the database
	if err = pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return &PostgreDB{
		Pool:     pool,
		DBConfig: dbConfig,
	}, nil
}

func applyLimits(c *pgxpool.Config, l Limits) {
	if l.MaxConns > 0 {
		c.MaxConns = l.MaxConns
	}
	if l.MinConns > 0 {
		c.MinConns = l.MinConns
	}
	if l.MaxConnLifetime > 0 {
		c.MaxConnLifetime = l.MaxConnLifetime
	}
	if l.MaxConnIdleTime > 0 {
		c.MaxConnIdleTime = l.MaxConnIdleTime
	}
}
