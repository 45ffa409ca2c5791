// README: Distance resolver used to price trips from addresses or coordinates.
package distance

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"medride/internal/types"
)

var ErrBadRequest = errors.New("bad request")

type Source string

const (
	SourceGoogleMaps Source = "google_maps"
	SourceHaversine  Source = "haversine"
)

type Route struct {
	DistanceKm float64
	Duration   time.Duration
}

// Router resolves a road route between two free-text places.
type Router interface {
	Route(ctx context.Context, origin, destination string) (Route, error)
}

type Query struct {
	Pickup      string
	Destination string
	From        *types.Point
	To          *types.Point
}

type Result struct {
	DistanceKm float64       `json:"distance_km"`
	Duration   time.Duration `json:"duration,omitempty"`
	Source     Source        `json:"source"`
}

type Service struct {
	router Router
	logger *logrus.Logger
}

// NewService builds a resolver. router may be nil, in which case only
// coordinates can be resolved.
func NewService(router Router, logger *logrus.Logger) *Service {
	return &Service{router: router, logger: logger}
}

// Resolve prefers a driving route and falls back to the straight-line
// distance between coordinates when the route lookup is unavailable.
func (s *Service) Resolve(ctx context.Context, q Query) (Result, error) {
	hasPoints := q.From != nil && q.To != nil
	if hasPoints && (!q.From.Valid() || !q.To.Valid()) {
		return Result{}, fmt.Errorf("%w: coordinates out of range", ErrBadRequest)
	}

	if s.router != nil {
		origin, dest := strings.TrimSpace(q.Pickup), strings.TrimSpace(q.Destination)
		if hasPoints {
			origin, dest = LatLng(q.From.Lat, q.From.Lng), LatLng(q.To.Lat, q.To.Lng)
		}
		if origin != "" && dest != "" {
			r, err := s.router.Route(ctx, origin, dest)
			if err == nil {
				return Result{DistanceKm: r.DistanceKm, Duration: r.Duration, Source: SourceGoogleMaps}, nil
			}
			s.logger.WithFields(logrus.Fields{
				"service": "distance",
				"method":  "Resolve",
			}).WithError(err).Warn("Route lookup failed")
			if !hasPoints {
				return Result{}, err
			}
		}
	}

	if !hasPoints {
		return Result{}, fmt.Errorf("%w: coordinates are required without a route provider", ErrBadRequest)
	}
	return Result{DistanceKm: HaversineKm(*q.From, *q.To), Source: SourceHaversine}, nil
}
