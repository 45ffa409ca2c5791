// README: Domain events emitted by the lifecycle and reward engines and consumed by the notification dispatcher.
package events

import (
	"context"
	"sync"
	"time"

	"medride/internal/types"
)

type Kind string

const (
	KindTransition       Kind = "request.transition"
	KindTransitionFailed Kind = "request.transition_failed"
	KindReward           Kind = "reward.added"
	KindRewardFailed     Kind = "reward.failed"
)

// Event describes one state-changing call, successful or not.
type Event struct {
	ID        types.ID       `json:"id"`
	Kind      Kind           `json:"kind"`
	Op        string         `json:"op"`
	SubjectID types.ID       `json:"subject_id,omitempty"`
	ActorID   types.ID       `json:"actor_id,omitempty"`
	From      string         `json:"from,omitempty"`
	To        string         `json:"to,omitempty"`
	Error     string         `json:"error,omitempty"`
	Payload   map[string]any `json:"payload,omitempty"`
	At        time.Time      `json:"at"`
}

func (e Event) Failed() bool {
	return e.Kind == KindTransitionFailed || e.Kind == KindRewardFailed
}

// Emitter receives domain events. Implementations must not block the caller
// for longer than it takes to enqueue the event.
type Emitter interface {
	Emit(ctx context.Context, e Event)
}

// Discard drops every event.
type Discard struct{}

func (Discard) Emit(context.Context, Event) {}

// Recorder keeps events in memory; used by tests and the bench tool.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Emit(_ context.Context, e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

func (r *Recorder) Count(kind Kind) int {
	n := 0
	for _, e := range r.Events() {
		if e.Kind == kind {
			n++
		}
	}
	return n
}
