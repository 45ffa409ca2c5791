// README: Request service implements guarded state transitions, history and completion rewards.
package request

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"medride/internal/events"
	"medride/internal/modules/pricing"
	"medride/internal/modules/reward"
	"medride/internal/types"
)

var (
	ErrBadRequest   = errors.New("bad request")
	ErrNotFound     = errors.New("request not found")
	ErrInvalidState = errors.New("invalid state transition")
	// ErrConflict is returned to the loser of a concurrent transition.
	ErrConflict = fmt.Errorf("%w: request state conflict", ErrInvalidState)
)

// Rewarder credits points to an actor. reward.Service satisfies it.
type Rewarder interface {
	AddReward(ctx context.Context, actorID types.ID, t reward.Type, meta map[string]any) (reward.Event, error)
}

type Service struct {
	repo    Repository
	rewards Rewarder
	events  events.Emitter
	logger  *logrus.Logger
	locks   *keyedMutex
	now     func() time.Time
}

func NewService(repo Repository, rewards Rewarder, emitter events.Emitter, logger *logrus.Logger) *Service {
	if emitter == nil {
		emitter = events.Discard{}
	}
	return &Service{
		repo:    repo,
		rewards: rewards,
		events:  emitter,
		logger:  logger,
		locks:   newKeyedMutex(),
		now:     time.Now,
	}
}

type CreateCommand struct {
	RequesterID   types.ID
	RequesterRole types.Role
	PatientName   string
	ContactPhone  string
	Pickup        string
	Destination   string
	DistanceKm    float64
	Urgency       Urgency
	PaymentMethod PaymentMethod
}

type AcceptCommand struct {
	RequestID types.ID
	RiderID   types.ID
}

type RejectCommand struct {
	RequestID types.ID
	RiderID   types.ID
}

type CancelCommand struct {
	RequestID types.ID
	Reason    string
}

type StartCommand struct {
	RequestID types.ID
}

type CompleteCommand struct {
	RequestID types.ID
}

func (cmd CreateCommand) validate() error {
	if !cmd.RequesterRole.IsRequester() {
		return fmt.Errorf("%w: unknown requester role %q", ErrBadRequest, cmd.RequesterRole)
	}
	required := []struct{ field, value string }{
		{"patient_name", cmd.PatientName},
		{"contact_phone", cmd.ContactPhone},
		{"pickup", cmd.Pickup},
		{"destination", cmd.Destination},
	}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			return fmt.Errorf("%w: %s is required", ErrBadRequest, f.field)
		}
	}
	if !cmd.Urgency.Valid() {
		return fmt.Errorf("%w: unknown urgency %q", ErrBadRequest, cmd.Urgency)
	}
	if !cmd.PaymentMethod.Valid() {
		return fmt.Errorf("%w: unknown payment method %q", ErrBadRequest, cmd.PaymentMethod)
	}
	return nil
}

// Create quotes the trip and stores a new pending request.
func (s *Service) Create(ctx context.Context, cmd CreateCommand) (*Request, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service": "request",
		"method":  "Create",
		"role":    cmd.RequesterRole,
	})

	r, err := s.create(ctx, cmd)
	if err != nil {
		log.WithError(err).Warn("Request rejected")
		s.emit(ctx, "create", "", cmd.RequesterID, StatusNone, StatusPending, err)
		return nil, err
	}
	log.WithFields(logrus.Fields{
		"request_id": r.ID,
		"cost":       r.EstimatedCost.Amount,
	}).Info("Request created")
	s.emit(ctx, "create", r.ID, cmd.RequesterID, StatusNone, StatusPending, nil)
	return r, nil
}

func (s *Service) create(ctx context.Context, cmd CreateCommand) (*Request, error) {
	if err := cmd.validate(); err != nil {
		return nil, err
	}
	d, err := pricing.ClampDistance(cmd.DistanceKm)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadRequest, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r := &Request{
		ID:            types.NewID(),
		CreatedAt:     s.now(),
		RequesterID:   cmd.RequesterID,
		RequesterRole: cmd.RequesterRole,
		PatientName:   strings.TrimSpace(cmd.PatientName),
		ContactPhone:  strings.TrimSpace(cmd.ContactPhone),
		Pickup:        strings.TrimSpace(cmd.Pickup),
		Destination:   strings.TrimSpace(cmd.Destination),
		DistanceKm:    d,
		Urgency:       cmd.Urgency,
		PaymentMethod: cmd.PaymentMethod,
		EstimatedCost: pricing.Quote(d),
		Status:        StatusPending,
	}
	if err := s.repo.Put(ctx, r); err != nil {
		return nil, fmt.Errorf("request: could not store request: %w", err)
	}
	return r.Clone(), nil
}

func (s *Service) Get(ctx context.Context, id types.ID) (*Request, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: request id is required", ErrBadRequest)
	}
	return s.repo.Get(ctx, id)
}

// List returns every request, most recently created first.
func (s *Service) List(ctx context.Context) ([]*Request, error) {
	rs, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("request: could not list requests: %w", err)
	}
	return rs, nil
}

func (s *Service) History(ctx context.Context) ([]HistoryItem, error) {
	hs, err := s.repo.ListHistory(ctx)
	if err != nil {
		return nil, fmt.Errorf("request: could not list history: %w", err)
	}
	return hs, nil
}

func (s *Service) Accept(ctx context.Context, cmd AcceptCommand) (*Request, error) {
	rider := cmd.RiderID
	r, _, err := s.transition(ctx, step{
		op:    "accept",
		id:    cmd.RequestID,
		to:    StatusAccepted,
		actor: rider,
		rider: &rider,
		check: func() error {
			if rider == "" {
				return fmt.Errorf("%w: rider id is required", ErrBadRequest)
			}
			return nil
		},
	})
	return r, err
}

// Reject records a rider declining a pending request. The rider is kept as
// the event actor only; a declined request has no assigned rider.
func (s *Service) Reject(ctx context.Context, cmd RejectCommand) (*Request, error) {
	rider := types.ID(strings.TrimSpace(string(cmd.RiderID)))
	r, _, err := s.transition(ctx, step{
		op:    "reject",
		id:    cmd.RequestID,
		to:    StatusRejected,
		actor: rider,
		check: func() error {
			if rider == "" {
				return fmt.Errorf("%w: rider id is required", ErrBadRequest)
			}
			return nil
		},
	})
	return r, err
}

func (s *Service) Cancel(ctx context.Context, cmd CancelCommand) (*Request, error) {
	var reason *string
	if v := strings.TrimSpace(cmd.Reason); v != "" {
		reason = &v
	}
	r, _, err := s.transition(ctx, step{
		op:     "cancel",
		id:     cmd.RequestID,
		to:     StatusCancelled,
		reason: reason,
	})
	return r, err
}

func (s *Service) Start(ctx context.Context, cmd StartCommand) (*Request, error) {
	r, _, err := s.transition(ctx, step{
		op: "start",
		id: cmd.RequestID,
		to: StatusInProgress,
	})
	return r, err
}

// Complete finishes the trip, appends exactly one history item and credits
// the rider with a ride_completed reward.
func (s *Service) Complete(ctx context.Context, cmd CompleteCommand) (*HistoryItem, error) {
	r, h, err := s.transition(ctx, step{
		op: "complete",
		id: cmd.RequestID,
		to: StatusCompleted,
	})
	if err != nil {
		return nil, err
	}
	// The status change is committed; the reward must not depend on the caller staying connected.
	s.rewardRider(context.WithoutCancel(ctx), r)
	return h, nil
}

func (s *Service) rewardRider(ctx context.Context, r *Request) {
	if s.rewards == nil || r.RiderID == nil {
		return
	}
	_, err := s.rewards.AddReward(ctx, *r.RiderID, reward.TypeRideCompleted, map[string]any{
		reward.MetaDistanceKm: r.DistanceKm,
		reward.MetaRequestID:  string(r.ID),
	})
	if err != nil {
		s.logger.WithFields(logrus.Fields{
			"service":    "request",
			"method":     "Complete",
			"request_id": r.ID,
			"rider_id":   *r.RiderID,
		}).WithError(err).Error("Completion reward failed")
	}
}

type step struct {
	op     string
	id     types.ID
	to     Status
	actor  types.ID
	rider  *types.ID
	reason *string
	check  func() error
}

// transition runs one guarded status change and emits exactly one event for it.
func (s *Service) transition(ctx context.Context, st step) (*Request, *HistoryItem, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service":    "request",
		"method":     st.op,
		"request_id": st.id,
	})

	from := StatusNone
	r, h, err := s.apply(ctx, st, &from)
	if err != nil {
		log.WithError(err).WithField("from", from).Warn("Transition refused")
		s.emit(ctx, st.op, st.id, st.actor, from, st.to, err)
		return nil, nil, err
	}
	log.WithFields(logrus.Fields{"from": from, "to": st.to}).Info("Transition applied")
	s.emit(ctx, st.op, st.id, st.actor, from, st.to, nil)
	return r, h, nil
}

func (s *Service) apply(ctx context.Context, st step, from *Status) (*Request, *HistoryItem, error) {
	if st.id == "" {
		return nil, nil, fmt.Errorf("%w: request id is required", ErrBadRequest)
	}
	if st.check != nil {
		if err := st.check(); err != nil {
			return nil, nil, err
		}
	}

	unlock, err := s.locks.Lock(ctx, st.id)
	if err != nil {
		return nil, nil, err
	}
	defer unlock()

	r, err := s.repo.Get(ctx, st.id)
	if err != nil {
		return nil, nil, err
	}
	*from = r.Status
	if !CanTransition(r.Status, st.to) {
		return nil, nil, fmt.Errorf("%w: %s -> %s", ErrInvalidState, r.Status, st.to)
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	t := Transition{
		ID:      r.ID,
		From:    r.Status,
		To:      st.to,
		Version: r.StatusVersion,
		RiderID: st.rider,
		Reason:  st.reason,
		At:      s.now(),
	}
	if st.to == StatusCompleted {
		t.History = newHistoryItem(r, t.At)
	}

	ok, err := s.repo.UpdateStatus(ctx, t)
	if err != nil {
		return nil, nil, err
	}
	if !ok {
		return nil, nil, ErrConflict
	}
	applyTransition(r, t)
	return r, t.History, nil
}

func newHistoryItem(r *Request, completedAt time.Time) *HistoryItem {
	h := &HistoryItem{
		ID:            types.NewID(),
		RequestID:     r.ID,
		RequesterID:   r.RequesterID,
		RequesterRole: r.RequesterRole,
		PatientName:   r.PatientName,
		Pickup:        r.Pickup,
		Destination:   r.Destination,
		DistanceKm:    r.DistanceKm,
		Urgency:       r.Urgency,
		PaymentMethod: r.PaymentMethod,
		Cost:          r.EstimatedCost,
		CreatedAt:     r.CreatedAt,
		CompletedAt:   completedAt,
	}
	if r.RiderID != nil {
		h.RiderID = *r.RiderID
	}
	return h
}

func (s *Service) emit(ctx context.Context, op string, id, actor types.ID, from, to Status, err error) {
	e := events.Event{
		ID:        types.NewID(),
		Kind:      events.KindTransition,
		Op:        op,
		SubjectID: id,
		ActorID:   actor,
		From:      string(from),
		To:        string(to),
		At:        s.now(),
	}
	if err != nil {
		e.Kind = events.KindTransitionFailed
		e.Error = err.Error()
	}
	// Emission outlives a cancelled caller so failures are still reported.
	s.events.Emit(context.WithoutCancel(ctx), e)
}
