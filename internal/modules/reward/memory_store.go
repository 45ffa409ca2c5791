// README: In-memory ledger used by tests and the memory storage driver.
package reward

import (
	"context"
	"fmt"
	"math"
	"sync"

	"medride/internal/types"
)

type MemoryLedger struct {
	mu     sync.RWMutex
	events map[types.ID][]Event
	totals map[types.ID]int64
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{
		events: make(map[types.ID][]Event),
		totals: make(map[types.ID]int64),
	}
}

func (l *MemoryLedger) Append(ctx context.Context, e Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if e.Points < 0 || l.totals[e.ActorID] > math.MaxInt64-e.Points {
		return fmt.Errorf("%w: points total out of range", ErrBadRequest)
	}
	l.events[e.ActorID] = append(l.events[e.ActorID], e)
	l.totals[e.ActorID] += e.Points
	return nil
}

func (l *MemoryLedger) Total(_ context.Context, actorID types.ID) (int64, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.totals[actorID], nil
}

func (l *MemoryLedger) List(_ context.Context, actorID types.ID) ([]Event, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	src := l.events[actorID]
	out := make([]Event, len(src))
	copy(out, src)
	return out, nil
}
