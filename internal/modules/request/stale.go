// README: Background sweeper that cancels pending requests nobody picked up.
package request

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

const staleCancelReason = "expired: no rider accepted in time"

// RunStaleMonitor cancels pending requests older than ttl on every tick until
// ctx is done. A non-positive ttl disables the sweeper.
func (s *Service) RunStaleMonitor(ctx context.Context, ttl, every time.Duration) {
	if ttl <= 0 {
		return
	}
	if every <= 0 {
		every = 30 * time.Second
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.SweepStale(ctx, ttl); err != nil && ctx.Err() == nil {
				s.logger.WithFields(logrus.Fields{
					"service": "request",
					"method":  "RunStaleMonitor",
				}).WithError(err).Error("Stale sweep failed")
			}
		}
	}
}

// SweepStale cancels every pending request created more than ttl ago and
// returns how many it cancelled. Requests accepted meanwhile are skipped.
func (s *Service) SweepStale(ctx context.Context, ttl time.Duration) (int, error) {
	stale, err := s.repo.ListStale(ctx, s.now().Add(-ttl))
	if err != nil {
		return 0, err
	}
	n := 0
	for _, r := range stale {
		if _, err := s.Cancel(ctx, CancelCommand{RequestID: r.ID, Reason: staleCancelReason}); err != nil {
			if ctx.Err() != nil {
				return n, ctx.Err()
			}
			continue
		}
		n++
	}
	return n, nil
}
