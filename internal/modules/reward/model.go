// README: Reward event types, point events and the per-actor ledger contract.
package reward

import (
	"context"
	"time"

	"medride/internal/types"
)

type Type string

const (
	TypeRideCompleted    Type = "ride_completed"
	TypeSavingsAdded     Type = "savings_added"
	TypeLoanRepayment    Type = "loan_repayment"
	TypeSHAContribution  Type = "sha_contribution"
	TypeEmergencyRequest Type = "emergency_request"
	TypeCHVVisit         Type = "chv_visit"
	TypeApprovalAction   Type = "approval_action"
	TypeAlertSubmit      Type = "alert_submit"
	TypeHouseholdVisit   Type = "household_visit"
	TypeVaccinationGiven Type = "vaccination_given"
	TypePatientAdded     Type = "patient_added"
)

// Meta keys read by the point formulas.
const (
	MetaDistanceKm = "distanceKm"
	MetaAmount     = "amount"
	MetaRequestID  = "requestId"
)

type Event struct {
	ID          types.ID       `json:"id"`
	ActorID     types.ID       `json:"actor_id"`
	Type        Type           `json:"type"`
	Points      int64          `json:"points"`
	Meta        map[string]any `json:"meta,omitempty"`
	Timestamp   time.Time      `json:"timestamp"`
	Description string         `json:"description"`
}

// Ledger is the append-only store of reward events. Totals are the sum of
// appended points and never decrease.
type Ledger interface {
	Append(ctx context.Context, e Event) error
	Total(ctx context.Context, actorID types.ID) (int64, error)
	List(ctx context.Context, actorID types.ID) ([]Event, error)
}
