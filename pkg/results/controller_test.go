package results

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/latemate/latemate/pkg/hsp"
	"github.com/latemate/latemate/pkg/journey"
)

var (
	fpk = hsp.Station{Code: "FPK", Text: "Finsbury Park"}
	cbg = hsp.Station{Code: "CBG", Text: "Cambridge"}
)

// fakeAPI serves a canned metrics collection and synthesizes details
// matching each journey's expected schedule, lateBy past scheduled.
type fakeAPI struct {
	collection *hsp.MetricsCollection
	metricsErr error
	lateBy     time.Duration

	mu        sync.Mutex
	schedules map[hsp.ServiceID][2]time.Time
}

func (f *fakeAPI) ServiceMetrics(ctx context.Context, req hsp.MetricsRequest) (*hsp.MetricsCollection, error) {
	if f.metricsErr != nil {
		return nil, f.metricsErr
	}

	f.mu.Lock()
	f.schedules = map[hsp.ServiceID][2]time.Time{}
	for _, s := range f.collection.Services {
		for _, id := range s.ServiceIDs {
			f.schedules[id] = [2]time.Time{s.DepartureTime, s.ArrivalTime}
		}
	}
	f.mu.Unlock()

	return f.collection, nil
}

func (f *fakeAPI) JourneyDetails(ctx context.Context, id hsp.ServiceID) (*hsp.JourneyDetails, error) {
	f.mu.Lock()
	schedule, ok := f.schedules[id]
	f.mu.Unlock()

	if !ok {
		return nil, errors.New("no such service")
	}

	date, err := id.Date()
	if err != nil {
		return nil, err
	}

	departure := time.Date(date.Year(), date.Month(), date.Day(), schedule[0].Hour(), schedule[0].Minute(), 0, 0, time.UTC)
	arrival := time.Date(date.Year(), date.Month(), date.Day(), schedule[1].Hour(), schedule[1].Minute(), 0, 0, time.UTC)
	arrival = hsp.NormalizeAcrossMidnight(arrival, departure)
	actual := arrival.Add(f.lateBy)

	return &hsp.JourneyDetails{
		Date:      date,
		TocCode:   "GN",
		ServiceID: id,
		Stops: []hsp.StopDetails{
			{Station: fpk, ScheduledDeparture: &departure, ActualDeparture: &departure},
			{Station: cbg, ScheduledArrival: &arrival, ActualArrival: &actual},
		},
	}, nil
}

func testService(t *testing.T, index int, rids int, delayed bool) hsp.ServiceMetrics {
	t.Helper()

	departure, err := hsp.ParseClock(fmt.Sprintf("%02d%02d", 6+index, index), time.Time{})
	require.NoError(t, err)
	arrival := departure.Add(80 * time.Minute)

	notTolerance := 0
	if delayed {
		notTolerance = 1
	}

	s := hsp.ServiceMetrics{
		OriginStation:      fpk,
		DestinationStation: cbg,
		DepartureTime:      departure,
		ArrivalTime:        arrival,
		TocCode:            "GN",
		ServiceCount:       rids,
		Metrics: []hsp.Metric{
			{Tolerance: 0, NumNotTolerance: notTolerance, IsGlobalTolerance: true},
		},
	}

	for i := 0; i < rids; i++ {
		id, err := hsp.ParseServiceID(fmt.Sprintf("201610257%d%04d", index, i))
		require.NoError(t, err)
		s.ServiceIDs = append(s.ServiceIDs, id)
	}

	return s
}

// 25 delayed occurrences across five services, plus ten clean ones.
func testAPI(t *testing.T) *fakeAPI {
	t.Helper()

	collection := &hsp.MetricsCollection{FromStation: fpk, ToStation: cbg}
	for i := 0; i < 5; i++ {
		collection.Services = append(collection.Services, testService(t, i, 5, true))
	}
	collection.Services = append(collection.Services, testService(t, 5, 10, false))

	return &fakeAPI{collection: collection, lateBy: 45 * time.Minute}
}

func testParams() Params {
	return Params{
		FromStation: "FPK",
		ToStation:   "CBG",
		FromDate:    time.Date(2016, 10, 1, 0, 0, 0, 0, time.UTC),
		ToDate:      time.Date(2016, 11, 1, 0, 0, 0, 0, time.UTC),
		Days:        "WEEKDAY",
		Tolerance:   0,
	}
}

func TestRunCompletes(t *testing.T) {
	controller := NewController(testAPI(t))

	require.NoError(t, controller.Run(context.Background(), testParams()))

	assert.Equal(t, StateComplete, controller.State())
	assert.InDelta(t, 100, controller.Progress(), 1e-9)
	assert.Len(t, controller.Journeys(), 35)
	assert.Len(t, controller.FilteredJourneys(), 25)
}

func TestRunMetricsFailure(t *testing.T) {
	controller := NewController(&fakeAPI{metricsErr: errors.New("upstream down")})

	err := controller.Run(context.Background(), testParams())
	assert.Error(t, err)
	assert.Equal(t, StateError, controller.State())
}

func TestRunNoServices(t *testing.T) {
	controller := NewController(&fakeAPI{collection: &hsp.MetricsCollection{FromStation: fpk, ToStation: cbg}})

	require.NoError(t, controller.Run(context.Background(), testParams()))
	assert.Equal(t, StateComplete, controller.State())
	assert.Empty(t, controller.Journeys())
}

func TestPagination(t *testing.T) {
	controller := NewController(testAPI(t))
	require.NoError(t, controller.Run(context.Background(), testParams()))

	// 25 filtered journeys at page size 10.
	assert.Equal(t, 3, controller.PageCount())

	assert.Len(t, controller.VisibleJourneys(), 10)

	controller.SetPage(3)
	assert.Len(t, controller.VisibleJourneys(), 5)

	controller.SetPage(4)
	assert.Equal(t, 3, controller.Page())
	assert.Len(t, controller.VisibleJourneys(), 5)

	controller.SetPage(-1)
	assert.Equal(t, 1, controller.Page())
}

func TestToggleTimelyClampsPage(t *testing.T) {
	controller := NewController(testAPI(t))
	require.NoError(t, controller.Run(context.Background(), testParams()))

	// Show everything: 35 journeys, 4 pages.
	controller.ToggleTimely()
	assert.False(t, controller.HideTimely())
	assert.Equal(t, 4, controller.PageCount())

	controller.SetPage(4)
	assert.Len(t, controller.VisibleJourneys(), 5)

	// Hiding timely shrinks to 3 pages; the view must not point past the
	// last one.
	controller.ToggleTimely()
	assert.Equal(t, 3, controller.Page())
	assert.Len(t, controller.VisibleJourneys(), 5)
}

func TestFilterHidesUnresolved(t *testing.T) {
	controller := NewController(testAPI(t))
	require.NoError(t, controller.Run(context.Background(), testParams()))

	for _, j := range controller.FilteredJourneys() {
		assert.Equal(t, journey.StateDelayed, j.State())
	}

	controller.ToggleTimely()

	states := map[journey.State]int{}
	for _, j := range controller.FilteredJourneys() {
		states[j.State()]++
	}
	assert.Equal(t, 25, states[journey.StateDelayed])
	assert.Equal(t, 10, states[journey.StateUnresolved])
}

func TestVisibleJourneysKeepSortOrder(t *testing.T) {
	controller := NewController(testAPI(t))
	require.NoError(t, controller.Run(context.Background(), testParams()))

	journeys := controller.Journeys()
	for i := 1; i < len(journeys); i++ {
		previous, current := journeys[i-1], journeys[i]
		if previous.OriginDate.Equal(current.OriginDate) {
			assert.False(t, current.ScheduledDeparture().Before(previous.ScheduledDeparture()))
		}
	}
}
