package googlemaps

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"googlemaps.github.io/maps"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
)

func newTestService(t *testing.T, body string) (*RouteService, *url.Values) {
	t.Helper()

	var last url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		last = r.URL.Query()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)

	s, err := NewRouteService("test-key", maps.WithBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("new route service: %v", err)
	}
	return s, &last
}

func TestDistanceAndDuration(t *testing.T) {
	s, query := newTestService(t, `{
		"status": "OK",
		"routes": [{"legs": [{
			"distance": {"text": "10.0 km", "value": 10000},
			"duration": {"text": "22 mins", "value": 1320}
		}]}]
	}`)

	route, err := s.DistanceAndDuration(context.Background(),
		models.Location{Latitude: 43.2389, Longitude: 76.8897},
		models.Location{Latitude: 43.2565, Longitude: 76.9285},
	)
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if route.DistanceKm != 10 || route.DurationMin != 22 {
		t.Fatalf("unexpected route %+v", route)
	}

	q := *query
	if q.Get("mode") != "driving" {
		t.Fatalf("expected driving mode, got %q", q.Get("mode"))
	}
	if q.Get("origin") != "43.238900,76.889700" {
		t.Fatalf("unexpected origin %q", q.Get("origin"))
	}
}

func TestDistanceAndDurationNoRoute(t *testing.T) {
	s, _ := newTestService(t, `{"status": "OK", "routes": []}`)

	_, err := s.DistanceAndDuration(context.Background(), models.Location{}, models.Location{Latitude: 1})
	if !errors.Is(err, ErrNoRoute) {
		t.Fatalf("expected ErrNoRoute, got %v", err)
	}
}

func TestDistanceAndDurationAPIError(t *testing.T) {
	s, _ := newTestService(t, `{"status": "REQUEST_DENIED", "error_message": "invalid key"}`)

	if _, err := s.DistanceAndDuration(context.Background(), models.Location{}, models.Location{Latitude: 1}); err == nil {
		t.Fatalf("expected error")
	}
}
