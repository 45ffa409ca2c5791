// README: Declarative trust/credit score policy keyed by role.
package reward

import (
	"fmt"
	"math"

	"medride/internal/types"
)

// MaxScore caps every role.
const MaxScore = 850

// LoanEligibilityScore is the minimum score that unlocks loan-backed payment.
const LoanEligibilityScore = 600

type ScorePolicy struct {
	Base       float64
	Multiplier float64
	Cap        float64
}

// ScorePolicies is the single source of the per-role score formula.
var ScorePolicies = map[types.Role]ScorePolicy{
	types.RoleCaregiver:     {Base: 300, Multiplier: 2, Cap: MaxScore},
	types.RoleCHV:           {Base: 400, Multiplier: 1.5, Cap: MaxScore},
	types.RoleHealthOfficer: {Base: 450, Multiplier: 1, Cap: MaxScore},
	types.RoleRider:         {Base: 350, Multiplier: 2, Cap: MaxScore},
}

// Score applies the role policy to a point total.
func Score(role types.Role, totalPoints int64) (int64, error) {
	p, ok := ScorePolicies[role]
	if !ok {
		return 0, fmt.Errorf("%w: no score policy for role %q", ErrBadRequest, role)
	}
	s := math.Min(p.Cap, p.Base+float64(totalPoints)*p.Multiplier)
	return int64(math.Floor(s)), nil
}

func LoanEligible(score int64) bool {
	return score >= LoanEligibilityScore
}
