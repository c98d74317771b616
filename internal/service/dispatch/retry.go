package dispatch

import (
	"context"
	"fmt"
	"time"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
)

// retryingLookup retries a DistanceLookup a bounded number of times.
type retryingLookup struct {
	next     DistanceLookup
	attempts int
	delay    time.Duration
}

// WithLookupRetry decorates next with up to attempts tries, sleeping delay
// between them. The last error is returned wrapped as ErrUpstreamUnavailable.
func WithLookupRetry(next DistanceLookup, attempts int, delay time.Duration) DistanceLookup {
	if attempts < 1 {
		attempts = 1
	}
	return &retryingLookup{next: next, attempts: attempts, delay: delay}
}

func (r *retryingLookup) DistanceAndDuration(ctx context.Context, from, to models.Location) (models.RouteEstimate, error) {
	var lastErr error
	for i := range r.attempts {
		route, err := r.next.DistanceAndDuration(ctx, from, to)
		if err == nil {
			return route, nil
		}
		lastErr = err

		if i == r.attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return models.RouteEstimate{}, fmt.Errorf("%w: %v", types.ErrUpstreamUnavailable, ctx.Err())
		case <-time.After(r.delay):
		}
	}
	return models.RouteEstimate{}, fmt.Errorf("%w: after %d attempts: %v", types.ErrUpstreamUnavailable, r.attempts, lastErr)
}
