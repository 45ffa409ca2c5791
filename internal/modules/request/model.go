// README: Transport request aggregate, status definitions and the transition table.
package request

import (
	"time"

	"medride/internal/types"
)

type Status string

const (
	StatusNone       Status = "none"
	StatusPending    Status = "pending"
	StatusAccepted   Status = "accepted"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusRejected   Status = "rejected"
	StatusCancelled  Status = "cancelled"
)

func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusRejected || s == StatusCancelled
}

type Urgency string

const (
	UrgencyLow    Urgency = "low"
	UrgencyMedium Urgency = "medium"
	UrgencyHigh   Urgency = "high"
)

func (u Urgency) Valid() bool {
	return u == UrgencyLow || u == UrgencyMedium || u == UrgencyHigh
}

type PaymentMethod string

const (
	PaymentWallet     PaymentMethod = "wallet"
	PaymentLoanBacked PaymentMethod = "loan_backed"
	PaymentDirect     PaymentMethod = "direct"
)

func (p PaymentMethod) Valid() bool {
	return p == PaymentWallet || p == PaymentLoanBacked || p == PaymentDirect
}

type Request struct {
	ID            types.ID      `json:"id"`
	CreatedAt     time.Time     `json:"created_at"`
	RequesterID   types.ID      `json:"requester_id,omitempty"`
	RequesterRole types.Role    `json:"requester_role"`
	PatientName   string        `json:"patient_name"`
	ContactPhone  string        `json:"contact_phone"`
	Pickup        string        `json:"pickup"`
	Destination   string        `json:"destination"`
	DistanceKm    float64       `json:"distance_km"`
	Urgency       Urgency       `json:"urgency"`
	PaymentMethod PaymentMethod `json:"payment_method"`
	EstimatedCost types.Money   `json:"estimated_cost"`
	Status        Status        `json:"status"`
	StatusVersion int           `json:"status_version"`
	RiderID       *types.ID     `json:"rider_id,omitempty"`
	AcceptedAt    *time.Time    `json:"accepted_at,omitempty"`
	StartedAt     *time.Time    `json:"started_at,omitempty"`
	CompletedAt   *time.Time    `json:"completed_at,omitempty"`
	RejectedAt    *time.Time    `json:"rejected_at,omitempty"`
	CancelledAt   *time.Time    `json:"cancelled_at,omitempty"`
	CancelReason  *string       `json:"cancel_reason,omitempty"`
}

// Clone returns a deep copy so stored records are never shared with callers.
func (r *Request) Clone() *Request {
	c := *r
	c.RiderID = clonePtr(r.RiderID)
	c.AcceptedAt = clonePtr(r.AcceptedAt)
	c.StartedAt = clonePtr(r.StartedAt)
	c.CompletedAt = clonePtr(r.CompletedAt)
	c.RejectedAt = clonePtr(r.RejectedAt)
	c.CancelledAt = clonePtr(r.CancelledAt)
	c.CancelReason = clonePtr(r.CancelReason)
	return &c
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// HistoryItem is the immutable snapshot written once when a request completes.
type HistoryItem struct {
	ID            types.ID      `json:"id"`
	RequestID     types.ID      `json:"request_id"`
	RiderID       types.ID      `json:"rider_id"`
	RequesterID   types.ID      `json:"requester_id,omitempty"`
	RequesterRole types.Role    `json:"requester_role"`
	PatientName   string        `json:"patient_name"`
	Pickup        string        `json:"pickup"`
	Destination   string        `json:"destination"`
	DistanceKm    float64       `json:"distance_km"`
	Urgency       Urgency       `json:"urgency"`
	PaymentMethod PaymentMethod `json:"payment_method"`
	Cost          types.Money   `json:"cost"`
	CreatedAt     time.Time     `json:"created_at"`
	CompletedAt   time.Time     `json:"completed_at"`
}

// AllowedTransitions represents the request state flow as code.
var AllowedTransitions = map[Status][]Status{
	StatusPending:    {StatusAccepted, StatusRejected, StatusCancelled},
	StatusAccepted:   {StatusInProgress},
	StatusInProgress: {StatusCompleted},
}

func CanTransition(from, to Status) bool {
	next, ok := AllowedTransitions[from]
	if !ok {
		return false
	}
	for _, s := range next {
		if s == to {
			return true
		}
	}
	return false
}
