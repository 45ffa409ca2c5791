// README: Reward service mints point events, keeps per-actor totals and derives scores.
package reward

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"medride/internal/events"
	"medride/internal/types"
)

var ErrBadRequest = errors.New("bad request")

type Service struct {
	ledger Ledger
	events events.Emitter
	logger *logrus.Logger
	now    func() time.Time
}

func NewService(ledger Ledger, emitter events.Emitter, logger *logrus.Logger) *Service {
	if emitter == nil {
		emitter = events.Discard{}
	}
	return &Service{ledger: ledger, events: emitter, logger: logger, now: time.Now}
}

// AddReward computes the points for t and appends the event to the actor's ledger.
func (s *Service) AddReward(ctx context.Context, actorID types.ID, t Type, meta map[string]any) (Event, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service":  "reward",
		"method":   "AddReward",
		"actor_id": actorID,
		"type":     t,
	})

	ev, err := s.mint(ctx, actorID, t, meta)
	if err != nil {
		log.WithError(err).Warn("Reward rejected")
		s.events.Emit(context.WithoutCancel(ctx), events.Event{
			ID:      types.NewID(),
			Kind:    events.KindRewardFailed,
			Op:      string(t),
			ActorID: actorID,
			Error:   err.Error(),
			At:      s.now(),
		})
		return Event{}, err
	}

	log.WithField("points", ev.Points).Info("Reward added")
	s.events.Emit(context.WithoutCancel(ctx), events.Event{
		ID:        types.NewID(),
		Kind:      events.KindReward,
		Op:        string(t),
		SubjectID: ev.ID,
		ActorID:   actorID,
		Payload: map[string]any{
			"points":      ev.Points,
			"description": ev.Description,
		},
		At: ev.Timestamp,
	})
	return ev, nil
}

func (s *Service) mint(ctx context.Context, actorID types.ID, t Type, meta map[string]any) (Event, error) {
	if actorID == "" {
		return Event{}, fmt.Errorf("%w: actor id is required", ErrBadRequest)
	}
	points, err := PointsFor(t, meta)
	if err != nil {
		return Event{}, err
	}
	if err := ctx.Err(); err != nil {
		return Event{}, err
	}
	ev := Event{
		ID:          types.NewID(),
		ActorID:     actorID,
		Type:        t,
		Points:      points,
		Meta:        copyMeta(meta),
		Timestamp:   s.now(),
		Description: describe(t, meta),
	}
	if err := s.ledger.Append(ctx, ev); err != nil {
		return Event{}, fmt.Errorf("reward: could not append event: %w", err)
	}
	return ev, nil
}

func (s *Service) TotalPoints(ctx context.Context, actorID types.ID) (int64, error) {
	total, err := s.ledger.Total(ctx, actorID)
	if err != nil {
		return 0, fmt.Errorf("reward: could not load total: %w", err)
	}
	return total, nil
}

func (s *Service) List(ctx context.Context, actorID types.ID) ([]Event, error) {
	evs, err := s.ledger.List(ctx, actorID)
	if err != nil {
		return nil, fmt.Errorf("reward: could not list events: %w", err)
	}
	return evs, nil
}

// Score returns the actor's derived trust score under the policy for role.
func (s *Service) Score(ctx context.Context, actorID types.ID, role types.Role) (int64, error) {
	total, err := s.TotalPoints(ctx, actorID)
	if err != nil {
		return 0, err
	}
	return Score(role, total)
}

func copyMeta(meta map[string]any) map[string]any {
	if meta == nil {
		return nil
	}
	out := make(map[string]any, len(meta))
	for k, v := range meta {
		out[k] = v
	}
	return out
}
