package session

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/court-booker/internal/domain/booking"
)

type fakeGrid struct {
	available map[int]bool
	errHours  map[int]error
	failStep  booking.ConfirmStep

	claimed  []booking.SlotUnit
	confirms []booking.ConfirmStep
}

func (g *fakeGrid) ClaimSlot(_ context.Context, _ string, unit booking.SlotUnit) error {
	g.claimed = append(g.claimed, unit)
	if err := g.errHours[unit.Hour]; err != nil {
		return err
	}
	if !g.available[unit.Hour] {
		return booking.ErrSlotUnavailable
	}
	return nil
}

func (g *fakeGrid) Confirm(_ context.Context, step booking.ConfirmStep) error {
	g.confirms = append(g.confirms, step)
	if step == g.failStep {
		return fmt.Errorf("control for %q not found", step)
	}
	return nil
}

type fakeGateway struct {
	signInErr     error
	searchErr     error
	panicInSearch bool
	grid          *fakeGrid

	closed int
}

func (f *fakeGateway) SignIn(context.Context, booking.Credentials) (booking.AuthedSession, error) {
	if f.signInErr != nil {
		return nil, f.signInErr
	}
	return fakeAuthed{gw: f}, nil
}

func (f *fakeGateway) Close() error {
	f.closed++
	return nil
}

type fakeAuthed struct{ gw *fakeGateway }

func (a fakeAuthed) Search(context.Context, time.Time, string) (booking.ResultsGrid, error) {
	if a.gw.panicInSearch {
		panic("widget tree vanished")
	}
	if a.gw.searchErr != nil {
		return nil, a.gw.searchErr
	}
	return a.gw.grid, nil
}

type recorder struct{ events []booking.ProgressEvent }

func (r *recorder) Report(e booking.ProgressEvent) { r.events = append(r.events, e) }

func request(windows ...booking.TimeWindow) booking.BookingRequest {
	return booking.BookingRequest{
		Credentials: booking.Credentials{Email: "x@y.z", Password: "secret"},
		Court:       "McFetridge Tennis Ct03",
		Date:        time.Date(2026, 9, 6, 0, 0, 0, 0, time.UTC),
		Windows:     windows,
	}
}

func newFake(available ...int) *fakeGateway {
	avail := map[int]bool{}
	for _, h := range available {
		avail[h] = true
	}
	return &fakeGateway{grid: &fakeGrid{available: avail, errHours: map[int]error{}}}
}

func TestAuthFailureAbortsSession(t *testing.T) {
	gw := newFake()
	gw.signInErr = errors.New("no post-login indicator")

	out := New(gw, nil, booking.PartialKeep).Run(context.Background(), request(booking.TimeWindow{StartHour: 7, Hours: 1}))

	var authErr *booking.AuthError
	require.ErrorAs(t, out.Err, &authErr)
	assert.Equal(t, booking.StageEstablish, out.Stage)
	assert.Equal(t, booking.StatusNoSlotsClaimed, out.Status)
	assert.Empty(t, gw.grid.claimed)
	assert.Empty(t, gw.grid.confirms)
	assert.Equal(t, 1, gw.closed)
}

func TestSearchFailureSkipsLaterStages(t *testing.T) {
	gw := newFake(7)
	gw.searchErr = errors.New("date input not found")

	out := New(gw, nil, booking.PartialKeep).Run(context.Background(), request(booking.TimeWindow{StartHour: 7, Hours: 1}))

	var searchErr *booking.SearchError
	require.ErrorAs(t, out.Err, &searchErr)
	assert.Equal(t, booking.StageSearch, out.Stage)
	assert.Empty(t, gw.grid.claimed, "no claim attempts after a failed search")
	assert.Empty(t, gw.grid.confirms)
	assert.Equal(t, 1, gw.closed)
}

func TestAllSlotsUnavailableEndsCleanly(t *testing.T) {
	gw := newFake() // nothing available

	out := New(gw, nil, booking.PartialKeep).Run(context.Background(), request(booking.TimeWindow{StartHour: 7, Hours: 1}))

	require.ErrorIs(t, out.Err, booking.ErrAllSlotsUnavailable)
	assert.Equal(t, booking.StatusNoSlotsClaimed, out.Status)
	require.Len(t, out.Claims, 1)
	assert.Equal(t, booking.ClaimUnavailable, out.Claims[0].State)
	assert.Empty(t, gw.grid.confirms, "confirmation never runs with zero claims")
	assert.Equal(t, 1, gw.closed)
}

func TestFullRunCompletes(t *testing.T) {
	gw := newFake(7)

	out := New(gw, nil, booking.PartialKeep).Run(context.Background(), request(booking.TimeWindow{StartHour: 7, Hours: 1}))

	require.NoError(t, out.Err)
	assert.Equal(t, booking.StatusCompleted, out.Status)
	require.Len(t, out.Claims, 1)
	assert.Equal(t, booking.ClaimClaimed, out.Claims[0].State)
	assert.Equal(t, booking.ConfirmSteps(), gw.grid.confirms, "canonical order, every step")
	assert.Equal(t, 1, gw.closed)
}

func TestConfirmationStopsAtFirstFailingStep(t *testing.T) {
	gw := newFake(7)
	gw.grid.failStep = booking.StepReserve

	out := New(gw, nil, booking.PartialKeep).Run(context.Background(), request(booking.TimeWindow{StartHour: 7, Hours: 1}))

	var stepErr *booking.ConfirmationStepError
	require.ErrorAs(t, out.Err, &stepErr)
	assert.Equal(t, booking.StepReserve, stepErr.Step)
	assert.Equal(t, booking.StatusClaimedNotConfirmed, out.Status)
	assert.Equal(t, booking.StepReserve, out.FailedStep)
	assert.Equal(t, []booking.ConfirmStep{booking.StepConfirmBookings, booking.StepReserve}, gw.grid.confirms)
	assert.Equal(t, 1, gw.closed)
}

func TestPartialWindowKeepPolicyProceedsToConfirmation(t *testing.T) {
	gw := newFake(7) // 8 unavailable

	out := New(gw, nil, booking.PartialKeep).Run(context.Background(), request(booking.TimeWindow{StartHour: 7, Hours: 2}))

	require.NoError(t, out.Err)
	require.Len(t, out.Claims, 2)
	assert.Equal(t, booking.ClaimClaimed, out.Claims[0].State)
	assert.Equal(t, booking.ClaimUnavailable, out.Claims[1].State)
	assert.Equal(t, booking.StatusCompleted, out.Status, "partial claim still confirmed under keep policy")
	assert.Len(t, gw.grid.confirms, len(booking.ConfirmSteps()))
}

func TestPartialAbandonMovesToBackupWindow(t *testing.T) {
	gw := newFake(7, 9, 10) // 8 missing: first window only partial

	out := New(gw, nil, booking.PartialAbandon).Run(context.Background(),
		request(booking.TimeWindow{StartHour: 7, Hours: 2}, booking.TimeWindow{StartHour: 9, Hours: 2}))

	require.NoError(t, out.Err)
	require.Len(t, out.Claims, 4, "every attempted unit recorded")
	assert.Equal(t, booking.StatusCompleted, out.Status)
	assert.Equal(t, 1, out.Claims[2].Window)
	assert.Equal(t, booking.ClaimClaimed, out.Claims[2].State)
	assert.Equal(t, booking.ClaimClaimed, out.Claims[3].State)
}

func TestPartialAbandonWithoutFullWindowSkipsConfirmation(t *testing.T) {
	gw := newFake(7, 9) // neither window fully claimable

	out := New(gw, nil, booking.PartialAbandon).Run(context.Background(),
		request(booking.TimeWindow{StartHour: 7, Hours: 2}, booking.TimeWindow{StartHour: 9, Hours: 2}))

	require.NoError(t, out.Err)
	assert.Equal(t, booking.StatusPartiallyClaimed, out.Status)
	assert.Empty(t, gw.grid.confirms)
	assert.Len(t, out.Claims, 4)
}

func TestKeepPolicyStopsAtFirstWinningWindow(t *testing.T) {
	gw := newFake(7, 9)

	out := New(gw, nil, booking.PartialKeep).Run(context.Background(),
		request(booking.TimeWindow{StartHour: 7, Hours: 1}, booking.TimeWindow{StartHour: 9, Hours: 1}))

	require.NoError(t, out.Err)
	assert.Len(t, out.Claims, 1, "backup window never attempted once preferred succeeds")
	assert.Equal(t, booking.StatusCompleted, out.Status)
}

func TestClaimErrorIsTerminalButNonFatal(t *testing.T) {
	gw := newFake(8)
	gw.grid.errHours[7] = errors.New("click intercepted by overlay")

	out := New(gw, nil, booking.PartialKeep).Run(context.Background(), request(booking.TimeWindow{StartHour: 7, Hours: 2}))

	require.Len(t, out.Claims, 2)
	assert.Equal(t, booking.ClaimError, out.Claims[0].State)
	assert.NotEmpty(t, out.Claims[0].Detail)
	assert.Equal(t, booking.ClaimClaimed, out.Claims[1].State)
	assert.Equal(t, booking.StatusCompleted, out.Status)
}

func TestGatewayReleasedExactlyOncePerSession(t *testing.T) {
	cases := map[string]func(*fakeGateway){
		"auth failure":    func(g *fakeGateway) { g.signInErr = errors.New("boom") },
		"search failure":  func(g *fakeGateway) { g.searchErr = errors.New("boom") },
		"panic in search": func(g *fakeGateway) { g.panicInSearch = true },
		"none available":  func(g *fakeGateway) {},
		"success":         func(g *fakeGateway) { g.grid.available[7] = true },
	}
	for name, inject := range cases {
		t.Run(name, func(t *testing.T) {
			gw := newFake()
			inject(gw)
			_ = New(gw, nil, booking.PartialKeep).Run(context.Background(), request(booking.TimeWindow{StartHour: 7, Hours: 1}))
			assert.Equal(t, 1, gw.closed)
		})
	}
}

func TestPanicBecomesCriticalError(t *testing.T) {
	gw := newFake()
	gw.panicInSearch = true

	out := New(gw, nil, booking.PartialKeep).Run(context.Background(), request(booking.TimeWindow{StartHour: 7, Hours: 1}))

	var crit *booking.CriticalError
	require.ErrorAs(t, out.Err, &crit)
	assert.Equal(t, booking.StageSearch, crit.Stage)
	assert.Equal(t, 1, gw.closed)
}

func TestInvalidRequestStillReleasesGateway(t *testing.T) {
	gw := newFake()

	out := New(gw, nil, booking.PartialKeep).Run(context.Background(), booking.BookingRequest{})

	require.Error(t, out.Err)
	assert.Empty(t, gw.grid.claimed)
	assert.Equal(t, 1, gw.closed)
}

func TestProgressEventsArriveInEmissionOrder(t *testing.T) {
	gw := newFake(7)
	rec := &recorder{}

	New(gw, rec, booking.PartialKeep).Run(context.Background(), request(booking.TimeWindow{StartHour: 7, Hours: 1}))

	require.NotEmpty(t, rec.events)
	assert.Equal(t, booking.StageEstablish, rec.events[0].Stage)
	for i := 1; i < len(rec.events); i++ {
		assert.False(t, rec.events[i].At.Before(rec.events[i-1].At), "event %d out of order", i)
	}
	last := rec.events[len(rec.events)-1]
	assert.Equal(t, booking.SeveritySuccess, last.Severity)
}
