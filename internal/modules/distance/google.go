// README: Driving distance lookups against the Google Maps Directions API.
package distance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"googlemaps.github.io/maps"
)

var ErrNoRoute = errors.New("no route found")

// GoogleRouter asks the Directions API for the first driving route.
type GoogleRouter struct {
	client *maps.Client
	region string
}

func NewGoogleRouter(apiKey, region string) (*GoogleRouter, error) {
	client, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create maps client: %w", err)
	}
	if region == "" {
		region = "KE"
	}
	return &GoogleRouter{client: client, region: region}, nil
}

func (g *GoogleRouter) Route(ctx context.Context, origin, destination string) (Route, error) {
	routes, _, err := g.client.Directions(ctx, &maps.DirectionsRequest{
		Origin:      origin,
		Destination: destination,
		Mode:        maps.TravelModeDriving,
		Language:    "en",
		Region:      g.region,
	})
	if err != nil {
		return Route{}, fmt.Errorf("maps api error: %w", err)
	}
	if len(routes) == 0 || len(routes[0].Legs) == 0 {
		return Route{}, ErrNoRoute
	}
	var meters int
	var dur time.Duration
	for _, leg := range routes[0].Legs {
		meters += leg.Distance.Meters
		dur += leg.Duration
	}
	return Route{DistanceKm: float64(meters) / 1000, Duration: dur}, nil
}

// LatLng formats a point the way the Directions API accepts it.
func LatLng(lat, lng float64) string {
	return fmt.Sprintf("%f,%f", lat, lng)
}
