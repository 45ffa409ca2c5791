// README: Dispatcher turns domain events into notifications and fans them out to sinks.
package notification

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"

	"medride/internal/events"
)

const defaultQueueSize = 256

// Dispatcher implements events.Emitter. Every event is rendered and stored in
// the inbox synchronously; sink delivery happens on the Run goroutine.
type Dispatcher struct {
	inbox  *Inbox
	sinks  []Sink
	queue  chan Notification
	logger *logrus.Logger

	mu     sync.RWMutex
	closed bool
}

func NewDispatcher(inbox *Inbox, logger *logrus.Logger, sinks ...Sink) *Dispatcher {
	return &Dispatcher{
		inbox:  inbox,
		sinks:  sinks,
		queue:  make(chan Notification, defaultQueueSize),
		logger: logger,
	}
}

func (d *Dispatcher) Inbox() *Inbox {
	return d.inbox
}

func (d *Dispatcher) Emit(_ context.Context, e events.Event) {
	n := FromEvent(e)
	d.inbox.Add(n)
	if len(d.sinks) == 0 {
		return
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return
	}
	select {
	case d.queue <- n:
	default:
		d.logger.WithFields(logrus.Fields{
			"service":         "notification",
			"notification_id": n.ID,
			"event_kind":      n.EventKind,
		}).Warn("Notification queue full, sinks skipped")
	}
}

// Run delivers queued notifications until ctx is done, then drains what is
// already queued.
func (d *Dispatcher) Run(ctx context.Context) {
	for {
		select {
		case n := <-d.queue:
			d.deliver(ctx, n)
		case <-ctx.Done():
			d.mu.Lock()
			d.closed = true
			d.mu.Unlock()
			d.drain()
			return
		}
	}
}

func (d *Dispatcher) drain() {
	ctx := context.Background()
	for {
		select {
		case n := <-d.queue:
			d.deliver(ctx, n)
		default:
			return
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, n Notification) {
	for _, s := range d.sinks {
		if err := s.Deliver(ctx, n); err != nil {
			d.logger.WithFields(logrus.Fields{
				"service":         "notification",
				"sink":            s.Name(),
				"notification_id": n.ID,
			}).WithError(err).Error("Notification delivery failed")
		}
	}
}
