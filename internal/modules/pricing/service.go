// README: Pricing service computes fare estimates from the tier table.
package pricing

import (
	"context"
	"errors"
	"math"

	"medride/internal/types"
)

var ErrInvalidDistance = errors.New("invalid distance")

type Service struct{}

func NewService() *Service {
	return &Service{}
}

// ClampDistance applies the 1 km floor. Negative, NaN, infinite and
// over-MaxDistanceKm inputs are malformed rather than short and are rejected.
func ClampDistance(distanceKm float64) (float64, error) {
	if math.IsNaN(distanceKm) || math.IsInf(distanceKm, 0) || distanceKm < 0 || distanceKm > MaxDistanceKm {
		return 0, ErrInvalidDistance
	}
	if distanceKm < MinDistanceKm {
		return MinDistanceKm, nil
	}
	return distanceKm, nil
}

func tierFor(d float64) Tier {
	for _, t := range Tiers {
		if t.UpToKm == 0 || d <= t.UpToKm {
			return t
		}
	}
	return Tiers[len(Tiers)-1]
}

// Cost maps a distance to the fare in whole currency units. It is pure; inputs
// below the floor (and NaN) are treated as MinDistanceKm and inputs above
// MaxDistanceKm saturate at it.
func Cost(distanceKm float64) float64 {
	d := distanceKm
	switch {
	case math.IsNaN(d) || d < MinDistanceKm:
		d = MinDistanceKm
	case d > MaxDistanceKm:
		d = MaxDistanceKm
	}
	t := tierFor(d)
	return t.Flat + math.Max(0, d-t.FromKm)*t.PerKm
}

// Quote is Cost expressed as Money in minor units.
func Quote(distanceKm float64) types.Money {
	return types.Money{
		Amount:   int64(math.Round(Cost(distanceKm) * 100)),
		Currency: types.DefaultCurrency,
	}
}

// Estimate validates the request and returns the quote with its breakdown.
// Urgency is carried for routing only and does not change the fare.
func (s *Service) Estimate(ctx context.Context, req PricingRequest) (PricingResult, error) {
	if err := ctx.Err(); err != nil {
		return PricingResult{}, err
	}
	d, err := ClampDistance(req.DistanceKm)
	if err != nil {
		return PricingResult{}, err
	}
	t := tierFor(d)
	total := Quote(d)
	flat := int64(math.Round(t.Flat * 100))
	return PricingResult{
		DistanceKm: d,
		Tier:       t.Name,
		Total:      total,
		Breakdown: map[string]int64{
			"flat":     flat,
			"distance": total.Amount - flat,
		},
	}, nil
}
