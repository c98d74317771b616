package redis

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
	"github.com/Temutjin2k/ride-dispatch/pkg/logger"
)

type fakeCache struct {
	mu      sync.Mutex
	data    map[string]string
	ttl     time.Duration
	readErr error
}

func (f *fakeCache) Get(ctx context.Context, key string) *redis.StringCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.readErr != nil {
		return redis.NewStringResult("", f.readErr)
	}
	v, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeCache) Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.data == nil {
		f.data = make(map[string]string)
	}
	f.data[key] = string(value.([]byte))
	f.ttl = expiration
	return redis.NewStatusResult("OK", nil)
}

type countingLookup struct {
	calls int
	err   error
}

func (c *countingLookup) DistanceAndDuration(ctx context.Context, from, to models.Location) (models.RouteEstimate, error) {
	c.calls++
	if c.err != nil {
		return models.RouteEstimate{}, c.err
	}
	return models.RouteEstimate{DistanceKm: 4.2, DurationMin: 11}, nil
}

var (
	from = models.Location{Latitude: 43.238949, Longitude: 76.889709}
	to   = models.Location{Latitude: 43.256542, Longitude: 76.928482}
)

func newTestCache(cache Cache, next DistanceLookup) *RouteCache {
	return NewRouteCache(cache, next, 10*time.Minute, logger.New(io.Discard, "redis-test", logger.LevelError))
}

func TestRouteCacheHit(t *testing.T) {
	cache := &fakeCache{}
	next := &countingLookup{}
	c := newTestCache(cache, next)
	ctx := context.Background()

	for range 3 {
		route, err := c.DistanceAndDuration(ctx, from, to)
		if err != nil {
			t.Fatalf("lookup: %v", err)
		}
		if route.DistanceKm != 4.2 || route.DurationMin != 11 {
			t.Fatalf("unexpected route %+v", route)
		}
	}
	if next.calls != 1 {
		t.Fatalf("expected one upstream call, got %d", next.calls)
	}
	if cache.ttl != 10*time.Minute {
		t.Fatalf("expected ttl to be passed through, got %v", cache.ttl)
	}

	// A few meters away, inside the same grid cell, shares the entry.
	nearby := models.Location{Latitude: from.Latitude + 0.00004, Longitude: from.Longitude}
	if _, err := c.DistanceAndDuration(ctx, nearby, to); err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if next.calls != 1 {
		t.Fatalf("nearby lookup must hit the cache")
	}
}

func TestRouteKeyGrid(t *testing.T) {
	tests := []struct {
		name string
		a, b float64
		same bool
	}{
		{"same cell, upper half", 43.238949, 43.238959, true},
		{"same cell, both ends", 43.23890001, 43.23899999, true},
		{"next cell", 43.238999, 43.239001, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ka := routeKey(models.Location{Latitude: tt.a, Longitude: from.Longitude}, to)
			kb := routeKey(models.Location{Latitude: tt.b, Longitude: from.Longitude}, to)
			if (ka == kb) != tt.same {
				t.Fatalf("keys %q and %q: same=%v, want %v", ka, kb, ka == kb, tt.same)
			}
		})
	}
}

func TestRouteCacheDirectional(t *testing.T) {
	if routeKey(from, to) == routeKey(to, from) {
		t.Fatalf("route key must depend on direction")
	}
}

func TestRouteCacheReadFailureFallsThrough(t *testing.T) {
	next := &countingLookup{}
	c := newTestCache(&fakeCache{readErr: errors.New("connection refused")}, next)

	if _, err := c.DistanceAndDuration(context.Background(), from, to); err != nil {
		t.Fatalf("cache failure must not fail the lookup: %v", err)
	}
	if next.calls != 1 {
		t.Fatalf("expected upstream call, got %d", next.calls)
	}
}

func TestRouteCacheUpstreamError(t *testing.T) {
	cache := &fakeCache{}
	errUpstream := errors.New("quota exceeded")
	c := newTestCache(cache, &countingLookup{err: errUpstream})

	if _, err := c.DistanceAndDuration(context.Background(), from, to); !errors.Is(err, errUpstream) {
		t.Fatalf("expected upstream error, got %v", err)
	}
	if len(cache.data) != 0 {
		t.Fatalf("failed lookups must not be cached")
	}
}
