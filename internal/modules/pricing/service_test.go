// README: Pricing tier tests.
package pricing

import (
	"context"
	"errors"
	"math"
	"testing"
)

func TestCost_Tiers(t *testing.T) {
	tests := []struct {
		name     string
		distance float64
		want     float64
	}{
		{name: "below floor clamps to 1km", distance: 0.2, want: 50},
		{name: "zero clamps to 1km", distance: 0, want: 50},
		{name: "1km", distance: 1, want: 50},
		{name: "3km upper edge of short tier", distance: 3, want: 50},
		{name: "just over 3km", distance: 3.01, want: 100},
		{name: "4km", distance: 4, want: 100},
		{name: "5km upper edge of medium tier", distance: 5, want: 100},
		{name: "6km", distance: 6, want: 140},
		{name: "8km", distance: 8, want: 220},
		// 100 + 0.5 * 40
		{name: "5.5km", distance: 5.5, want: 120},
		{name: "25km", distance: 25, want: 900},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Cost(tt.distance); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Cost(%v) = %v, want %v", tt.distance, got, tt.want)
			}
		})
	}
}

func TestCost_MonotonicNonDecreasing(t *testing.T) {
	prev := Cost(1)
	for d := 1.0; d <= 60; d += 0.05 {
		got := Cost(d)
		if got < prev {
			t.Fatalf("Cost(%v) = %v dropped below previous %v", d, got, prev)
		}
		prev = got
	}
}

func TestQuote_SaturatesAtMaxDistance(t *testing.T) {
	ceiling := Quote(MaxDistanceKm)
	if ceiling.Amount != 3990000 {
		t.Fatalf("Quote(%v) = %d, want 3990000", MaxDistanceKm, ceiling.Amount)
	}
	prev := Quote(MaxDistanceKm - 1).Amount
	for _, d := range []float64{MaxDistanceKm, 2e3, 1e15, 1e17, 1e300, math.Inf(1)} {
		got := Quote(d).Amount
		if got < prev || got != ceiling.Amount {
			t.Errorf("Quote(%v) = %d, want %d", d, got, ceiling.Amount)
		}
		prev = got
	}
}

func TestCost_Deterministic(t *testing.T) {
	for _, d := range []float64{1, 2.7, 4.4, 7.3, 19.99} {
		first := Cost(d)
		for i := 0; i < 100; i++ {
			if got := Cost(d); got != first {
				t.Fatalf("Cost(%v) not reproducible: %v vs %v", d, got, first)
			}
		}
	}
}

func TestQuote_MinorUnits(t *testing.T) {
	q := Quote(8)
	if q.Amount != 22000 || q.Currency != "KES" {
		t.Errorf("Quote(8) = %+v, want 22000 KES", q)
	}
	if Quote(5.01).Amount != 10040 {
		t.Errorf("Quote(5.01) = %d, want 10040", Quote(5.01).Amount)
	}
}

func TestClampDistance(t *testing.T) {
	for _, bad := range []float64{-1, math.NaN(), math.Inf(1), math.Inf(-1), MaxDistanceKm + 0.1, 1e18} {
		if _, err := ClampDistance(bad); !errors.Is(err, ErrInvalidDistance) {
			t.Errorf("ClampDistance(%v) err = %v, want ErrInvalidDistance", bad, err)
		}
	}
	if d, err := ClampDistance(0.4); err != nil || d != 1 {
		t.Errorf("ClampDistance(0.4) = %v, %v; want 1, nil", d, err)
	}
	if d, err := ClampDistance(12.5); err != nil || d != 12.5 {
		t.Errorf("ClampDistance(12.5) = %v, %v; want 12.5, nil", d, err)
	}
}

func TestService_Estimate(t *testing.T) {
	s := NewService()

	tests := []struct {
		name     string
		req      PricingRequest
		wantTier string
		wantFare int64
		wantDist int64
	}{
		{name: "short trip", req: PricingRequest{DistanceKm: 2}, wantTier: "short", wantFare: 5000, wantDist: 0},
		{name: "medium trip", req: PricingRequest{DistanceKm: 4.5, Urgency: "high"}, wantTier: "medium", wantFare: 10000, wantDist: 0},
		{name: "long trip", req: PricingRequest{DistanceKm: 8, Urgency: "low"}, wantTier: "long", wantFare: 22000, wantDist: 12000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.Estimate(context.Background(), tt.req)
			if err != nil {
				t.Fatalf("Estimate() error = %v", err)
			}
			if got.Tier != tt.wantTier {
				t.Errorf("tier = %s, want %s", got.Tier, tt.wantTier)
			}
			if got.Total.Amount != tt.wantFare {
				t.Errorf("total = %d, want %d", got.Total.Amount, tt.wantFare)
			}
			if got.Breakdown["distance"] != tt.wantDist {
				t.Errorf("distance component = %d, want %d", got.Breakdown["distance"], tt.wantDist)
			}
		})
	}

	for _, bad := range []float64{-3, MaxDistanceKm + 1, 1e17} {
		if _, err := s.Estimate(context.Background(), PricingRequest{DistanceKm: bad}); !errors.Is(err, ErrInvalidDistance) {
			t.Errorf("Estimate(%v) err = %v, want ErrInvalidDistance", bad, err)
		}
	}
}
