package journey

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/latemate/latemate/pkg/hsp"
)

func newTestJourney(t *testing.T, tolerance time.Duration) *Journey {
	t.Helper()

	departure, err := hsp.ParseClock("0952", time.Time{})
	require.NoError(t, err)
	arrival, err := hsp.ParseClock("1112", time.Time{})
	require.NoError(t, err)

	j, err := New(testServiceID, departure, arrival, fpk, cbg, kgx, cbg, "GN", tolerance)
	require.NoError(t, err)

	return j
}

func TestNewJourney(t *testing.T) {
	j := newTestJourney(t, 0)

	assert.Equal(t, StateUnresolved, j.State())
	assert.Equal(t, time.Date(2016, 10, 25, 0, 0, 0, 0, time.UTC), j.OriginDate)
	require.Len(t, j.Legs(), 1)
	assert.Nil(t, j.ActualArrival())
}

func TestNewJourneyBadServiceID(t *testing.T) {
	_, err := New(hsp.ServiceID(1), time.Time{}, time.Time{}, fpk, cbg, kgx, cbg, "GN", 0)
	assert.Error(t, err)
}

func TestJourneyResolvesOnTime(t *testing.T) {
	j := newTestJourney(t, 0)
	api := &fakeAPI{details: map[hsp.ServiceID]*hsp.JourneyDetails{
		testServiceID: detailsWithArrival(tp(at(11, 12)), tp(at(9, 52))),
	}}

	require.NoError(t, j.TryResolve(context.Background(), api))
	assert.Equal(t, StateOnTime, j.State())
}

func TestJourneyResolvesDelayed(t *testing.T) {
	j := newTestJourney(t, 30*time.Minute)
	api := &fakeAPI{details: map[hsp.ServiceID]*hsp.JourneyDetails{
		testServiceID: detailsWithArrival(tp(at(11, 43)), tp(at(9, 52))),
	}}

	require.NoError(t, j.TryResolve(context.Background(), api))
	assert.Equal(t, StateDelayed, j.State())
	require.NotNil(t, j.ActualArrival())
	assert.Equal(t, at(11, 43), *j.ActualArrival())
}

// The journey re-derives its classification against its own tolerance,
// which can differ from the leg's.
func TestJourneyToleranceOverridesLeg(t *testing.T) {
	j := newTestJourney(t, 30*time.Minute)
	j.Legs()[0].Tolerance = 0

	api := &fakeAPI{details: map[hsp.ServiceID]*hsp.JourneyDetails{
		testServiceID: detailsWithArrival(tp(at(11, 17)), tp(at(9, 52))),
	}}

	require.NoError(t, j.TryResolve(context.Background(), api))

	// The leg was 5 minutes over its zero tolerance, but the journey
	// allows 30.
	assert.Equal(t, LegDelayed, j.Legs()[0].State())
	assert.Equal(t, StateOnTime, j.State())
}

func TestJourneyCancelledMapping(t *testing.T) {
	cancelled := newTestJourney(t, 0)
	api := &fakeAPI{details: map[hsp.ServiceID]*hsp.JourneyDetails{
		testServiceID: detailsWithArrival(nil, nil),
	}}
	require.NoError(t, cancelled.TryResolve(context.Background(), api))
	assert.Equal(t, StateCancelled, cancelled.State())

	enRoute := newTestJourney(t, 0)
	api = &fakeAPI{details: map[hsp.ServiceID]*hsp.JourneyDetails{
		testServiceID: detailsWithArrival(nil, tp(at(9, 52))),
	}}
	require.NoError(t, enRoute.TryResolve(context.Background(), api))
	assert.Equal(t, StateCancelledEnRoute, enRoute.State())
}

// The first leg's corrected schedule propagates up to the journey.
func TestJourneyAdoptsCorrectedSchedule(t *testing.T) {
	j := newTestJourney(t, 0)

	// Clock-only guesses before resolution.
	assert.Equal(t, 1, j.ScheduledDeparture().Year())

	api := &fakeAPI{details: map[hsp.ServiceID]*hsp.JourneyDetails{
		testServiceID: detailsWithArrival(tp(at(11, 12)), tp(at(9, 52))),
	}}
	require.NoError(t, j.TryResolve(context.Background(), api))

	assert.Equal(t, at(9, 52), j.ScheduledDeparture())
	assert.Equal(t, at(11, 12), j.ScheduledArrival())
}

func TestJourneyFetchFailure(t *testing.T) {
	j := newTestJourney(t, 0)
	api := &fakeAPI{err: errors.New("upstream down")}

	err := j.TryResolve(context.Background(), api)
	assert.Error(t, err)
	assert.Equal(t, StateError, j.State())
}

func TestJourneyTryResolveTwice(t *testing.T) {
	j := newTestJourney(t, 0)
	api := &fakeAPI{details: map[hsp.ServiceID]*hsp.JourneyDetails{
		testServiceID: detailsWithArrival(tp(at(11, 12)), tp(at(9, 52))),
	}}

	require.NoError(t, j.TryResolve(context.Background(), api))

	err := j.TryResolve(context.Background(), api)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, 1, api.calls)
}

func TestJourneyOnChange(t *testing.T) {
	j := newTestJourney(t, 0)

	var observed []State
	j.OnChange(func(j *Journey) {
		observed = append(observed, j.State())
	})

	api := &fakeAPI{details: map[hsp.ServiceID]*hsp.JourneyDetails{
		testServiceID: detailsWithArrival(tp(at(11, 12)), tp(at(9, 52))),
	}}
	require.NoError(t, j.TryResolve(context.Background(), api))

	assert.Equal(t, []State{StateRequesting, StateOnTime}, observed)
}

func TestStateIsDisrupted(t *testing.T) {
	assert.True(t, StateDelayed.IsDisrupted())
	assert.True(t, StateCancelled.IsDisrupted())
	assert.True(t, StateCancelledEnRoute.IsDisrupted())
	assert.False(t, StateOnTime.IsDisrupted())
	assert.False(t, StateUnresolved.IsDisrupted())
	assert.False(t, StateError.IsDisrupted())
}
