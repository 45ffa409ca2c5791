// README: Request service tests (flow, guards, validation and events).
package request

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medride/internal/events"
	"medride/internal/modules/reward"
	"medride/internal/types"
)

type fixture struct {
	svc     *Service
	repo    *MemoryStore
	rewards *reward.Service
	events  *events.Recorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	rec := events.NewRecorder()
	repo := NewMemoryStore()
	rewards := reward.NewService(reward.NewMemoryLedger(), rec, logger)
	return &fixture{
		svc:     NewService(repo, rewards, rec, logger),
		repo:    repo,
		rewards: rewards,
		events:  rec,
	}
}

func validCreate() CreateCommand {
	return CreateCommand{
		RequesterID:   "cg-1",
		RequesterRole: types.RoleCaregiver,
		PatientName:   "Amina Otieno",
		ContactPhone:  "+254700000001",
		Pickup:        "Kisumu Ndogo",
		Destination:   "Siaya County Referral",
		DistanceKm:    8,
		Urgency:       UrgencyHigh,
		PaymentMethod: PaymentWallet,
	}
}

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to Status
		want     bool
	}{
		{StatusPending, StatusAccepted, true},
		{StatusPending, StatusRejected, true},
		{StatusPending, StatusCancelled, true},
		{StatusAccepted, StatusInProgress, true},
		{StatusInProgress, StatusCompleted, true},
		// skipping states
		{StatusPending, StatusInProgress, false},
		{StatusPending, StatusCompleted, false},
		{StatusAccepted, StatusCompleted, false},
		// no cancel once a rider is on the way
		{StatusAccepted, StatusCancelled, false},
		{StatusInProgress, StatusCancelled, false},
		// terminal states
		{StatusCompleted, StatusPending, false},
		{StatusRejected, StatusAccepted, false},
		{StatusCancelled, StatusAccepted, false},
		{StatusNone, StatusAccepted, false},
	}
	for _, tc := range cases {
		got := CanTransition(tc.from, tc.to)
		assert.Equal(t, tc.want, got, "CanTransition(%s, %s)", tc.from, tc.to)
	}
}

func TestRequestFlowHappyPath(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	r, err := f.svc.Create(ctx, validCreate())
	require.NoError(t, err)
	assert.Equal(t, StatusPending, r.Status)
	assert.Equal(t, types.Money{Amount: 22000, Currency: "KES"}, r.EstimatedCost)
	assert.Nil(t, r.RiderID)

	r, err = f.svc.Accept(ctx, AcceptCommand{RequestID: r.ID, RiderID: "rider-1"})
	require.NoError(t, err)
	assert.Equal(t, StatusAccepted, r.Status)
	require.NotNil(t, r.RiderID)
	assert.Equal(t, types.ID("rider-1"), *r.RiderID)
	assert.NotNil(t, r.AcceptedAt)

	r, err = f.svc.Start(ctx, StartCommand{RequestID: r.ID})
	require.NoError(t, err)
	assert.Equal(t, StatusInProgress, r.Status)

	h, err := f.svc.Complete(ctx, CompleteCommand{RequestID: r.ID})
	require.NoError(t, err)
	require.NotNil(t, h)
	assert.Equal(t, r.ID, h.RequestID)
	assert.Equal(t, types.ID("rider-1"), h.RiderID)
	assert.Equal(t, int64(22000), h.Cost.Amount)
	assert.Equal(t, 8.0, h.DistanceKm)
	assert.Equal(t, types.RoleCaregiver, h.RequesterRole)

	stored, err := f.svc.Get(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, stored.Status)
	assert.Equal(t, 3, stored.StatusVersion)
	assert.Equal(t, types.Money{Amount: 22000, Currency: "KES"}, stored.EstimatedCost)

	history, err := f.svc.History(ctx)
	require.NoError(t, err)
	require.Len(t, history, 1)

	total, err := f.rewards.TotalPoints(ctx, "rider-1")
	require.NoError(t, err)
	assert.Equal(t, int64(18), total)

	rewards, err := f.rewards.List(ctx, "rider-1")
	require.NoError(t, err)
	require.Len(t, rewards, 1)
	assert.Equal(t, reward.TypeRideCompleted, rewards[0].Type)
	assert.Equal(t, 8.0, rewards[0].Meta[reward.MetaDistanceKm])

	assert.Equal(t, 4, f.events.Count(events.KindTransition))
	assert.Equal(t, 1, f.events.Count(events.KindReward))
	assert.Zero(t, f.events.Count(events.KindTransitionFailed))
}

func TestCreateClampsShortDistance(t *testing.T) {
	f := newFixture(t)
	cmd := validCreate()
	cmd.DistanceKm = 0.4

	r, err := f.svc.Create(context.Background(), cmd)
	require.NoError(t, err)
	assert.Equal(t, 1.0, r.DistanceKm)
	assert.Equal(t, int64(5000), r.EstimatedCost.Amount)
}

func TestCreateValidation(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*CreateCommand)
	}{
		{"rider cannot request", func(c *CreateCommand) { c.RequesterRole = types.RoleRider }},
		{"unknown role", func(c *CreateCommand) { c.RequesterRole = "nurse" }},
		{"missing patient", func(c *CreateCommand) { c.PatientName = "  " }},
		{"missing phone", func(c *CreateCommand) { c.ContactPhone = "" }},
		{"missing pickup", func(c *CreateCommand) { c.Pickup = "" }},
		{"missing destination", func(c *CreateCommand) { c.Destination = "" }},
		{"bad urgency", func(c *CreateCommand) { c.Urgency = "critical" }},
		{"bad payment", func(c *CreateCommand) { c.PaymentMethod = "cash" }},
		{"negative distance", func(c *CreateCommand) { c.DistanceKm = -2 }},
		{"distance beyond network", func(c *CreateCommand) { c.DistanceKm = 1e18 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			cmd := validCreate()
			tc.mutate(&cmd)

			_, err := f.svc.Create(context.Background(), cmd)
			require.ErrorIs(t, err, ErrBadRequest)

			all, err := f.svc.List(context.Background())
			require.NoError(t, err)
			assert.Empty(t, all)
			assert.Len(t, f.events.Events(), 1)
			assert.Equal(t, 1, f.events.Count(events.KindTransitionFailed))
		})
	}
}

func TestInvalidTransitionsLeaveRecordUnchanged(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	r, err := f.svc.Create(ctx, validCreate())
	require.NoError(t, err)

	_, err = f.svc.Complete(ctx, CompleteCommand{RequestID: r.ID})
	require.ErrorIs(t, err, ErrInvalidState)
	_, err = f.svc.Start(ctx, StartCommand{RequestID: r.ID})
	require.ErrorIs(t, err, ErrInvalidState)

	got, err := f.svc.Get(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, got.Status)
	assert.Equal(t, 0, got.StatusVersion)

	_, err = f.svc.Accept(ctx, AcceptCommand{RequestID: r.ID, RiderID: "rider-1"})
	require.NoError(t, err)
	_, err = f.svc.Accept(ctx, AcceptCommand{RequestID: r.ID, RiderID: "rider-2"})
	require.ErrorIs(t, err, ErrInvalidState)
	_, err = f.svc.Cancel(ctx, CancelCommand{RequestID: r.ID})
	require.ErrorIs(t, err, ErrInvalidState)
	_, err = f.svc.Reject(ctx, RejectCommand{RequestID: r.ID, RiderID: "rider-2"})
	require.ErrorIs(t, err, ErrInvalidState)

	got, err = f.svc.Get(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusAccepted, got.Status)
	assert.Equal(t, types.ID("rider-1"), *got.RiderID)

	history, err := f.svc.History(ctx)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestCompleteTwiceKeepsOneHistoryItem(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	r, err := f.svc.Create(ctx, validCreate())
	require.NoError(t, err)
	_, err = f.svc.Accept(ctx, AcceptCommand{RequestID: r.ID, RiderID: "rider-1"})
	require.NoError(t, err)
	_, err = f.svc.Start(ctx, StartCommand{RequestID: r.ID})
	require.NoError(t, err)
	_, err = f.svc.Complete(ctx, CompleteCommand{RequestID: r.ID})
	require.NoError(t, err)

	_, err = f.svc.Complete(ctx, CompleteCommand{RequestID: r.ID})
	require.ErrorIs(t, err, ErrInvalidState)

	history, err := f.svc.History(ctx)
	require.NoError(t, err)
	assert.Len(t, history, 1)
	total, err := f.rewards.TotalPoints(ctx, "rider-1")
	require.NoError(t, err)
	assert.Equal(t, int64(18), total)
}

func TestRejectAndCancelFromPending(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	a, err := f.svc.Create(ctx, validCreate())
	require.NoError(t, err)
	rejected, err := f.svc.Reject(ctx, RejectCommand{RequestID: a.ID, RiderID: "rider-1"})
	require.NoError(t, err)
	assert.Equal(t, StatusRejected, rejected.Status)
	assert.Nil(t, rejected.RiderID)
	assert.NotNil(t, rejected.RejectedAt)

	b, err := f.svc.Create(ctx, validCreate())
	require.NoError(t, err)
	cancelled, err := f.svc.Cancel(ctx, CancelCommand{RequestID: b.ID, Reason: "patient recovered"})
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, cancelled.Status)
	require.NotNil(t, cancelled.CancelReason)
	assert.Equal(t, "patient recovered", *cancelled.CancelReason)

	all, err := f.svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, b.ID, all[0].ID)
}

func TestUnknownRequest(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.svc.Accept(ctx, AcceptCommand{RequestID: "missing", RiderID: "rider-1"})
	require.ErrorIs(t, err, ErrNotFound)
	_, err = f.svc.Get(ctx, "missing")
	require.ErrorIs(t, err, ErrNotFound)

	evs := f.events.Events()
	require.Len(t, evs, 1)
	assert.True(t, evs[0].Failed())
	assert.Equal(t, "accept", evs[0].Op)
}

func TestAcceptRequiresRider(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	r, err := f.svc.Create(ctx, validCreate())
	require.NoError(t, err)
	_, err = f.svc.Accept(ctx, AcceptCommand{RequestID: r.ID})
	require.ErrorIs(t, err, ErrBadRequest)

	got, err := f.svc.Get(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, got.Status)
}

func TestRejectRequiresRider(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	r, err := f.svc.Create(ctx, validCreate())
	require.NoError(t, err)
	_, err = f.svc.Reject(ctx, RejectCommand{RequestID: r.ID, RiderID: "  "})
	require.ErrorIs(t, err, ErrBadRequest)

	got, err := f.svc.Get(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, got.Status)
	assert.Equal(t, 1, f.events.Count(events.KindTransitionFailed))
}

// cancelOnComplete cancels the caller's context as soon as the completion
// commits, like a client hanging up mid-response.
type cancelOnComplete struct {
	*MemoryStore
	cancel context.CancelFunc
}

func (s cancelOnComplete) UpdateStatus(ctx context.Context, tr Transition) (bool, error) {
	ok, err := s.MemoryStore.UpdateStatus(ctx, tr)
	if ok && tr.To == StatusCompleted {
		s.cancel()
	}
	return ok, err
}

func TestCompletionRewardSurvivesCallerCancel(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f.svc = NewService(cancelOnComplete{MemoryStore: f.repo, cancel: cancel}, f.rewards, f.events, f.svc.logger)

	r, err := f.svc.Create(ctx, validCreate())
	require.NoError(t, err)
	_, err = f.svc.Accept(ctx, AcceptCommand{RequestID: r.ID, RiderID: "rider-1"})
	require.NoError(t, err)
	_, err = f.svc.Start(ctx, StartCommand{RequestID: r.ID})
	require.NoError(t, err)

	h, err := f.svc.Complete(ctx, CompleteCommand{RequestID: r.ID})
	require.NoError(t, err)
	require.NotNil(t, h)
	require.ErrorIs(t, ctx.Err(), context.Canceled)

	list, err := f.rewards.List(context.Background(), "rider-1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, reward.TypeRideCompleted, list[0].Type)
	assert.Equal(t, 8.0, list[0].Meta[reward.MetaDistanceKm])
	assert.Equal(t, 1, f.events.Count(events.KindReward))
	assert.Equal(t, 0, f.events.Count(events.KindRewardFailed))
}

func TestCancelledContextLeavesStateUntouched(t *testing.T) {
	f := newFixture(t)
	r, err := f.svc.Create(context.Background(), validCreate())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = f.svc.Accept(ctx, AcceptCommand{RequestID: r.ID, RiderID: "rider-1"})
	require.ErrorIs(t, err, context.Canceled)

	got, err := f.svc.Get(context.Background(), r.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, got.Status)
	assert.Equal(t, 1, f.events.Count(events.KindTransitionFailed))
}

func TestEveryCallEmitsOneEvent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	r, _ := f.svc.Create(ctx, validCreate())
	_, _ = f.svc.Start(ctx, StartCommand{RequestID: r.ID})
	_, _ = f.svc.Accept(ctx, AcceptCommand{RequestID: r.ID, RiderID: "rider-1"})
	_, _ = f.svc.Cancel(ctx, CancelCommand{RequestID: "nope"})
	_, _ = f.svc.Create(ctx, CreateCommand{})

	evs := f.events.Events()
	require.Len(t, evs, 5)
	assert.Equal(t, 2, f.events.Count(events.KindTransition))
	assert.Equal(t, 3, f.events.Count(events.KindTransitionFailed))
}

func TestSweepStaleCancelsOnlyOldPending(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	base := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

	f.svc.now = func() time.Time { return base }
	old, err := f.svc.Create(ctx, validCreate())
	require.NoError(t, err)
	taken, err := f.svc.Create(ctx, validCreate())
	require.NoError(t, err)
	_, err = f.svc.Accept(ctx, AcceptCommand{RequestID: taken.ID, RiderID: "rider-1"})
	require.NoError(t, err)

	f.svc.now = func() time.Time { return base.Add(50 * time.Minute) }
	fresh, err := f.svc.Create(ctx, validCreate())
	require.NoError(t, err)

	n, err := f.svc.SweepStale(ctx, 30*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := f.svc.Get(ctx, old.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, got.Status)
	require.NotNil(t, got.CancelReason)
	assert.Equal(t, staleCancelReason, *got.CancelReason)

	got, err = f.svc.Get(ctx, fresh.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, got.Status)
	got, err = f.svc.Get(ctx, taken.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusAccepted, got.Status)
}

func TestReturnedRecordsAreCopies(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	r, err := f.svc.Create(ctx, validCreate())
	require.NoError(t, err)
	r.Status = StatusCompleted
	r.EstimatedCost.Amount = 1

	got, err := f.svc.Get(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, got.Status)
	assert.Equal(t, int64(22000), got.EstimatedCost.Amount)
}
