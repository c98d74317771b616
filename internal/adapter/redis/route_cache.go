// Package redis caches distance lookups.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
	"github.com/Temutjin2k/ride-dispatch/pkg/logger"
	"github.com/Temutjin2k/ride-dispatch/pkg/metrics"
)

const keyPrefix = "route:"

// coordPrecision snaps coordinates down to a grid of 1e-4 degrees (about 11 m).
// Requests whose endpoints fall in the same cells share an entry; points close
// to a cell edge may still land in neighbouring cells.
const coordPrecision = 1e4

// Cache is the part of redis.Cmdable the route cache uses.
type Cache interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
}

type DistanceLookup interface {
	DistanceAndDuration(ctx context.Context, from, to models.Location) (models.RouteEstimate, error)
}

// RouteCache answers repeated lookups from Redis and falls through to next on a miss.
// Cache failures never fail a lookup.
type RouteCache struct {
	cache Cache
	next  DistanceLookup
	ttl   time.Duration
	l     logger.Logger
}

func NewClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
}

func NewRouteCache(cache Cache, next DistanceLookup, ttl time.Duration, l logger.Logger) *RouteCache {
	return &RouteCache{cache: cache, next: next, ttl: ttl, l: l}
}

func (c *RouteCache) DistanceAndDuration(ctx context.Context, from, to models.Location) (models.RouteEstimate, error) {
	key := routeKey(from, to)

	raw, err := c.cache.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var route models.RouteEstimate
		if err := json.Unmarshal(raw, &route); err == nil {
			metrics.RecordRouteCache(true)
			return route, nil
		}
		c.l.Warn(ctx, "dropping malformed route cache entry", "key", key)
	case !errors.Is(err, redis.Nil):
		c.l.Warn(ctx, "route cache read failed", "error", err.Error())
	}

	metrics.RecordRouteCache(false)

	route, err := c.next.DistanceAndDuration(ctx, from, to)
	if err != nil {
		return models.RouteEstimate{}, err
	}

	body, err := json.Marshal(route)
	if err == nil {
		err = c.cache.Set(ctx, key, body, c.ttl).Err()
	}
	if err != nil {
		c.l.Warn(ctx, "route cache write failed", "error", err.Error())
	}

	return route, nil
}

func routeKey(from, to models.Location) string {
	return fmt.Sprintf("%s%.4f,%.4f:%.4f,%.4f", keyPrefix,
		snap(from.Latitude), snap(from.Longitude),
		snap(to.Latitude), snap(to.Longitude))
}

func snap(v float64) float64 {
	return math.Floor(v*coordPrecision) / coordPrecision
}
