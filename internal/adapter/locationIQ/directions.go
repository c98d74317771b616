package locationIQ

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	wrap "github.com/Temutjin2k/ride-dispatch/pkg/logger/wrapper"
)

var ErrRouteNotFound = errors.New("route not found")

const defaultDomain = "https://us1.locationiq.com"

type LocationIQClient struct {
	apiKey string
	domain string
	client *http.Client
}

func New(apiKey string, timeout time.Duration) *LocationIQClient {
	return &LocationIQClient{
		apiKey: apiKey,
		domain: defaultDomain,
		client: &http.Client{Timeout: timeout},
	}
}

// WithDomain points the client at another LocationIQ region or a test server.
func (c *LocationIQClient) WithDomain(domain string) *LocationIQClient {
	c.domain = domain
	return c
}

type directionsPayload struct {
	Code   string `json:"code"`
	Routes []struct {
		Distance float64 `json:"distance"` // meters
		Duration float64 `json:"duration"` // seconds
	} `json:"routes"`
}

// DistanceAndDuration asks the driving directions endpoint for the fastest route.
func (c *LocationIQClient) DistanceAndDuration(ctx context.Context, from, to models.Location) (models.RouteEstimate, error) {
	const op = "LocationIQClient.DistanceAndDuration"

	endpoint := fmt.Sprintf("%s/v1/directions/driving/%f,%f;%f,%f?%s", c.domain,
		from.Longitude, from.Latitude, to.Longitude, to.Latitude,
		url.Values{"key": {c.apiKey}, "overview": {"false"}}.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return models.RouteEstimate{}, fmt.Errorf("%s: build request: %w", op, err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		ctx = wrap.WithAction(ctx, types.ActionExternalServiceFailed)
		return models.RouteEstimate{}, wrap.Error(ctx, fmt.Errorf("%s: failed to make request to LocationIQ: %w", op, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		ctx = wrap.WithAction(ctx, types.ActionExternalServiceFailed)
		return models.RouteEstimate{}, wrap.Error(ctx, fmt.Errorf("%s: unexpected response status %d", op, resp.StatusCode))
	}

	var payload directionsPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		ctx = wrap.WithAction(ctx, "decode_directions_payload")
		return models.RouteEstimate{}, wrap.Error(ctx, fmt.Errorf("%s: failed to decode data from LocationIQ response: %w", op, err))
	}

	if payload.Code != "Ok" || len(payload.Routes) == 0 {
		return models.RouteEstimate{}, fmt.Errorf("%s: %w", op, ErrRouteNotFound)
	}

	return models.RouteEstimate{
		DistanceKm:  payload.Routes[0].Distance / 1000,
		DurationMin: payload.Routes[0].Duration / 60,
	}, nil
}
