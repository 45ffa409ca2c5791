// README: Persistence boundary for requests and completed-request history.
package request

import (
	"context"
	"time"

	"medride/internal/types"
)

// Transition is one guarded status change. It applies only when the stored
// record still has status From at StatusVersion Version.
type Transition struct {
	ID      types.ID
	From    Status
	To      Status
	Version int
	RiderID *types.ID
	Reason  *string
	At      time.Time
	// History is appended in the same unit of work as the status change.
	History *HistoryItem
}

type Repository interface {
	Put(ctx context.Context, r *Request) error
	Get(ctx context.Context, id types.ID) (*Request, error)
	// List returns a snapshot, most recently created first.
	List(ctx context.Context) ([]*Request, error)
	// UpdateStatus is the compare-and-swap primitive; it reports false when
	// the record moved on since it was read.
	UpdateStatus(ctx context.Context, t Transition) (bool, error)
	ListHistory(ctx context.Context) ([]HistoryItem, error)
	// ListStale returns pending requests created before the cutoff.
	ListStale(ctx context.Context, cutoff time.Time) ([]*Request, error)
}

func applyTransition(r *Request, t Transition) {
	r.Status = t.To
	r.StatusVersion++
	at := t.At
	switch t.To {
	case StatusAccepted:
		r.RiderID = clonePtr(t.RiderID)
		r.AcceptedAt = &at
	case StatusInProgress:
		r.StartedAt = &at
	case StatusCompleted:
		r.CompletedAt = &at
	case StatusRejected:
		r.RejectedAt = &at
	case StatusCancelled:
		r.CancelledAt = &at
		r.CancelReason = clonePtr(t.Reason)
	}
}
