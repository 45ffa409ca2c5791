// README: Reward points, ledger totals and score policy tests.
package reward

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"math"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medride/internal/events"
	"medride/internal/types"
)

func newTestService(t *testing.T) (*Service, *events.Recorder) {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	rec := events.NewRecorder()
	return NewService(NewMemoryLedger(), rec, logger), rec
}

func TestPointsFor(t *testing.T) {
	tests := []struct {
		name string
		typ  Type
		meta map[string]any
		want int64
	}{
		{name: "ride completed 8km", typ: TypeRideCompleted, meta: map[string]any{MetaDistanceKm: 8.0}, want: 18},
		{name: "ride completed fractional km floors", typ: TypeRideCompleted, meta: map[string]any{MetaDistanceKm: 4.7}, want: 14},
		{name: "savings 950", typ: TypeSavingsAdded, meta: map[string]any{MetaAmount: 950}, want: 9},
		{name: "savings below 100", typ: TypeSavingsAdded, meta: map[string]any{MetaAmount: 99.99}, want: 0},
		{name: "loan repayment 1000", typ: TypeLoanRepayment, meta: map[string]any{MetaAmount: int64(1000)}, want: 5},
		{name: "loan repayment json number", typ: TypeLoanRepayment, meta: map[string]any{MetaAmount: json.Number("450")}, want: 2},
		{name: "sha fixed", typ: TypeSHAContribution, want: 15},
		{name: "sha ignores meta", typ: TypeSHAContribution, meta: map[string]any{MetaAmount: 100000}, want: 15},
		{name: "emergency", typ: TypeEmergencyRequest, want: 20},
		{name: "chv visit", typ: TypeCHVVisit, want: 10},
		{name: "approval", typ: TypeApprovalAction, want: 5},
		{name: "alert", typ: TypeAlertSubmit, want: 8},
		{name: "household", typ: TypeHouseholdVisit, want: 12},
		{name: "vaccination", typ: TypeVaccinationGiven, want: 15},
		{name: "patient added", typ: TypePatientAdded, want: 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := PointsFor(tt.typ, tt.meta)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPointsFor_Invalid(t *testing.T) {
	cases := []struct {
		name string
		typ  Type
		meta map[string]any
	}{
		{name: "unknown type", typ: Type("bonus"), meta: nil},
		{name: "missing amount", typ: TypeSavingsAdded, meta: map[string]any{}},
		{name: "negative amount", typ: TypeLoanRepayment, meta: map[string]any{MetaAmount: -200}},
		{name: "string distance", typ: TypeRideCompleted, meta: map[string]any{MetaDistanceKm: "8"}},
		{name: "huge amount", typ: TypeSavingsAdded, meta: map[string]any{MetaAmount: 1e30}},
		{name: "huge repayment", typ: TypeLoanRepayment, meta: map[string]any{MetaAmount: 1e19}},
		{name: "huge distance", typ: TypeRideCompleted, meta: map[string]any{MetaDistanceKm: 1e300}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := PointsFor(tc.typ, tc.meta)
			assert.ErrorIs(t, err, ErrBadRequest)
		})
	}
}

func TestAddReward_Scenarios(t *testing.T) {
	svc, rec := newTestService(t)
	ctx := context.Background()

	ev, err := svc.AddReward(ctx, "chv-1", TypeSavingsAdded, map[string]any{MetaAmount: 950})
	require.NoError(t, err)
	assert.Equal(t, int64(9), ev.Points)
	assert.Equal(t, types.ID("chv-1"), ev.ActorID)
	assert.NotEmpty(t, ev.ID)
	assert.False(t, ev.Timestamp.IsZero())

	ev, err = svc.AddReward(ctx, "chv-1", TypeSHAContribution, map[string]any{MetaAmount: 5000})
	require.NoError(t, err)
	assert.Equal(t, int64(15), ev.Points)

	total, err := svc.TotalPoints(ctx, "chv-1")
	require.NoError(t, err)
	assert.Equal(t, int64(24), total)
	assert.Equal(t, 2, rec.Count(events.KindReward))
}

func TestAddReward_UnknownTypeIsValidationError(t *testing.T) {
	svc, rec := newTestService(t)
	ctx := context.Background()

	_, err := svc.AddReward(ctx, "u1", Type("free_points"), nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrBadRequest))

	total, err := svc.TotalPoints(ctx, "u1")
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Equal(t, 1, rec.Count(events.KindRewardFailed))
}

func TestAddReward_MissingActor(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.AddReward(context.Background(), "", TypeCHVVisit, nil)
	assert.ErrorIs(t, err, ErrBadRequest)
}

func TestTotalPoints_SumAndNeverDecreases(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	calls := []struct {
		typ  Type
		meta map[string]any
	}{
		{TypeRideCompleted, map[string]any{MetaDistanceKm: 3.0}},
		{TypeSavingsAdded, map[string]any{MetaAmount: 50}},
		{TypeHouseholdVisit, nil},
		{TypeLoanRepayment, map[string]any{MetaAmount: 1999}},
		{TypeAlertSubmit, nil},
	}

	var want, prev int64
	for _, c := range calls {
		ev, err := svc.AddReward(ctx, "rider-9", c.typ, c.meta)
		require.NoError(t, err)
		want += ev.Points

		total, err := svc.TotalPoints(ctx, "rider-9")
		require.NoError(t, err)
		assert.GreaterOrEqual(t, total, prev)
		prev = total
	}
	assert.Equal(t, want, prev)
	// 13 + 0 + 12 + 9 + 8
	assert.Equal(t, int64(42), prev)

	evs, err := svc.List(ctx, "rider-9")
	require.NoError(t, err)
	assert.Len(t, evs, len(calls))
}

func TestAddReward_OutOfRangeKeepsTotal(t *testing.T) {
	svc, rec := newTestService(t)
	ctx := context.Background()

	_, err := svc.AddReward(ctx, "cg-7", TypeSHAContribution, nil)
	require.NoError(t, err)

	// 1e8 KES of savings is exactly the per-event ceiling.
	ev, err := svc.AddReward(ctx, "cg-7", TypeSavingsAdded, map[string]any{MetaAmount: 1e8})
	require.NoError(t, err)
	assert.Equal(t, MaxEventPoints, ev.Points)

	_, err = svc.AddReward(ctx, "cg-7", TypeSavingsAdded, map[string]any{MetaAmount: 1e30})
	require.ErrorIs(t, err, ErrBadRequest)

	total, err := svc.TotalPoints(ctx, "cg-7")
	require.NoError(t, err)
	assert.Equal(t, 15+MaxEventPoints, total)
	assert.Equal(t, 1, rec.Count(events.KindRewardFailed))
}

func TestMemoryLedger_RejectsOverflow(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLedger()

	require.NoError(t, l.Append(ctx, Event{ID: types.NewID(), ActorID: "r-1", Points: math.MaxInt64 - 10}))
	err := l.Append(ctx, Event{ID: types.NewID(), ActorID: "r-1", Points: 15})
	require.ErrorIs(t, err, ErrBadRequest)

	total, err := l.Total(ctx, "r-1")
	require.NoError(t, err)
	assert.Equal(t, int64(math.MaxInt64-10), total)
	evs, err := l.List(ctx, "r-1")
	require.NoError(t, err)
	assert.Len(t, evs, 1)
}

func TestAddReward_ConcurrentTotals(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = svc.AddReward(ctx, "chv-2", TypeApprovalAction, nil)
		}()
	}
	wg.Wait()

	total, err := svc.TotalPoints(ctx, "chv-2")
	require.NoError(t, err)
	assert.Equal(t, int64(n*5), total)
}

func TestScore(t *testing.T) {
	tests := []struct {
		role  types.Role
		total int64
		want  int64
	}{
		{types.RoleCaregiver, 0, 300},
		{types.RoleCaregiver, 100, 500},
		{types.RoleCHV, 100, 550},
		{types.RoleHealthOfficer, 120, 570},
		{types.RoleRider, 18, 386},
		{types.RoleCaregiver, 10000, MaxScore},
		{types.RoleHealthOfficer, 400, MaxScore},
	}
	for _, tt := range tests {
		got, err := Score(tt.role, tt.total)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "role=%s total=%d", tt.role, tt.total)
	}

	_, err := Score(types.Role("admin"), 10)
	assert.ErrorIs(t, err, ErrBadRequest)
}

func TestService_ScoreAndEligibility(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		_, err := svc.AddReward(ctx, "cg-1", TypeEmergencyRequest, nil)
		require.NoError(t, err)
	}
	score, err := svc.Score(ctx, "cg-1", types.RoleCaregiver)
	require.NoError(t, err)
	assert.Equal(t, int64(700), score)
	assert.True(t, LoanEligible(score))
	assert.False(t, LoanEligible(599))
}
