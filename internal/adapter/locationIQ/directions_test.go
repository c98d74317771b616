package locationIQ

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
)

func TestDistanceAndDuration(t *testing.T) {
	var gotPath, gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.URL.Query().Get("key")
		_, _ = w.Write([]byte(`{"code":"Ok","routes":[{"distance":4000,"duration":540}]}`))
	}))
	defer srv.Close()

	c := New("secret", time.Second).WithDomain(srv.URL)

	route, err := c.DistanceAndDuration(context.Background(),
		models.Location{Latitude: 43.25, Longitude: 76.9},
		models.Location{Latitude: 43.26, Longitude: 76.95},
	)
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if route.DistanceKm != 4 || route.DurationMin != 9 {
		t.Fatalf("unexpected route %+v", route)
	}
	// LocationIQ takes lon,lat pairs.
	if gotPath != "/v1/directions/driving/76.900000,43.250000;76.950000,43.260000" {
		t.Fatalf("unexpected path %q", gotPath)
	}
	if gotKey != "secret" {
		t.Fatalf("api key not sent")
	}
}

func TestDistanceAndDurationFailures(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{name: "no route", status: http.StatusOK, body: `{"code":"NoRoute","routes":[]}`, wantErr: ErrRouteNotFound},
		{name: "rate limited", status: http.StatusTooManyRequests, body: `{"error":"Rate Limited"}`},
		{name: "bad json", status: http.StatusOK, body: `{`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := New("k", time.Second).WithDomain(srv.URL).DistanceAndDuration(context.Background(), models.Location{}, models.Location{})
			if err == nil {
				t.Fatalf("expected error")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}
