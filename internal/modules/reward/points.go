// README: Pure point formulas per reward type.
package reward

import (
	"encoding/json"
	"fmt"
	"math"
)

// MaxEventPoints caps a single event; formula inputs that would exceed it are rejected.
const MaxEventPoints int64 = 1_000_000

type rule struct {
	fixed       int64
	key         string  // meta key for formula rules
	offset      float64 // added before flooring
	divisor     float64
	description string
}

var rules = map[Type]rule{
	TypeRideCompleted:    {key: MetaDistanceKm, offset: 10, divisor: 1, description: "Ride completed"},
	TypeSavingsAdded:     {key: MetaAmount, divisor: 100, description: "Savings added"},
	TypeLoanRepayment:    {key: MetaAmount, divisor: 200, description: "Loan repayment"},
	TypeSHAContribution:  {fixed: 15, description: "SHA contribution"},
	TypeEmergencyRequest: {fixed: 20, description: "Emergency request"},
	TypeCHVVisit:         {fixed: 10, description: "CHV visit"},
	TypeApprovalAction:   {fixed: 5, description: "Approval action"},
	TypeAlertSubmit:      {fixed: 8, description: "Alert submitted"},
	TypeHouseholdVisit:   {fixed: 12, description: "Household visit"},
	TypeVaccinationGiven: {fixed: 15, description: "Vaccination given"},
	TypePatientAdded:     {fixed: 5, description: "Patient added"},
}

// Types lists every recognised reward type.
func Types() []Type {
	out := make([]Type, 0, len(rules))
	for t := range rules {
		out = append(out, t)
	}
	return out
}

func (t Type) Valid() bool {
	_, ok := rules[t]
	return ok
}

// PointsFor computes the points for one event. Fixed-value types ignore meta.
func PointsFor(t Type, meta map[string]any) (int64, error) {
	r, ok := rules[t]
	if !ok {
		return 0, fmt.Errorf("%w: unknown reward type %q", ErrBadRequest, t)
	}
	if r.key == "" {
		return r.fixed, nil
	}
	v, err := metaNumber(meta, r.key)
	if err != nil {
		return 0, err
	}
	p := math.Floor((r.offset + v) / r.divisor)
	if p > float64(MaxEventPoints) {
		return 0, fmt.Errorf("%w: meta.%s is out of range", ErrBadRequest, r.key)
	}
	return int64(p), nil
}

func describe(t Type, meta map[string]any) string {
	r := rules[t]
	if r.key == "" {
		return r.description
	}
	v, _ := metaNumber(meta, r.key)
	if r.key == MetaDistanceKm {
		return fmt.Sprintf("%s (%.1f km)", r.description, v)
	}
	return fmt.Sprintf("%s (%.2f)", r.description, v)
}

func metaNumber(meta map[string]any, key string) (float64, error) {
	raw, ok := meta[key]
	if !ok {
		return 0, fmt.Errorf("%w: meta.%s is required", ErrBadRequest, key)
	}
	var v float64
	switch n := raw.(type) {
	case float64:
		v = n
	case float32:
		v = float64(n)
	case int:
		v = float64(n)
	case int32:
		v = float64(n)
	case int64:
		v = float64(n)
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0, fmt.Errorf("%w: meta.%s is not a number", ErrBadRequest, key)
		}
		v = f
	default:
		return 0, fmt.Errorf("%w: meta.%s is not a number", ErrBadRequest, key)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0, fmt.Errorf("%w: meta.%s must be a non-negative number", ErrBadRequest, key)
	}
	return v, nil
}
