// README: Pricing tier table and quote shapes.
package pricing

import "medride/internal/types"

// MinDistanceKm is the floor applied to every distance before tier lookup.
const MinDistanceKm = 1.0

// MaxDistanceKm bounds a single trip; anything longer is a bad input, not a fare.
const MaxDistanceKm = 1000.0

// Tier is one band of the distance table. Distances up to and including UpToKm
// are charged Flat; the open-ended last tier adds PerKm for every km beyond FromKm.
type Tier struct {
	Name   string
	FromKm float64
	UpToKm float64 // 0 means unbounded
	Flat   float64
	PerKm  float64
}

// Tiers is the canonical distance table, ordered by distance.
var Tiers = []Tier{
	{Name: "short", FromKm: 0, UpToKm: 3, Flat: 50},
	{Name: "medium", FromKm: 3, UpToKm: 5, Flat: 100},
	{Name: "long", FromKm: 5, Flat: 100, PerKm: 40},
}

type PricingRequest struct {
	DistanceKm float64 `json:"distance_km"`
	Urgency    string  `json:"urgency,omitempty"`
}

type PricingResult struct {
	DistanceKm float64          `json:"distance_km"`
	Tier       string           `json:"tier"`
	Total      types.Money      `json:"total"`
	Breakdown  map[string]int64 `json:"breakdown"`
}
