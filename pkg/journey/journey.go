package journey

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/latemate/latemate/pkg/hsp"
)

// Journey is one rider's end-to-end trip for a single service occurrence.
// It aggregates an ordered, non-empty chain of legs; today every journey
// has exactly one leg, but the chain is kept so a future re-routing after
// a cancellation is not a breaking change.
type Journey struct {
	ServiceID hsp.ServiceID

	// Search-scoped stations, possibly mid-route.
	FromStation hsp.Station
	ToStation   hsp.Station
	// Route-scoped stations.
	OriginStation      hsp.Station
	TerminatingStation hsp.Station

	// OriginDate is the calendar date encoded in the service identifier.
	OriginDate time.Time
	Tolerance  time.Duration
	TocCode    string

	onChange func(*Journey)

	mu                 sync.Mutex
	state              State
	scheduledDeparture time.Time
	scheduledArrival   time.Time
	legs               []*Leg
}

// New creates an unresolved journey with its first leg. The scheduled
// times are the metrics-derived clock-only values; they are corrected from
// the details response once the first leg resolves.
func New(serviceID hsp.ServiceID, scheduledDeparture time.Time, scheduledArrival time.Time,
	from hsp.Station, to hsp.Station, origin hsp.Station, terminating hsp.Station,
	tocCode string, tolerance time.Duration) (*Journey, error) {

	originDate, err := serviceID.Date()
	if err != nil {
		return nil, err
	}

	return &Journey{
		ServiceID:          serviceID,
		FromStation:        from,
		ToStation:          to,
		OriginStation:      origin,
		TerminatingStation: terminating,
		OriginDate:         originDate,
		Tolerance:          tolerance,
		TocCode:            tocCode,

		state:              StateUnresolved,
		scheduledDeparture: scheduledDeparture,
		scheduledArrival:   scheduledArrival,
		legs: []*Leg{
			NewLeg(serviceID, from, to, scheduledDeparture, scheduledArrival, tolerance),
		},
	}, nil
}

// OnChange registers a callback invoked after every state transition, so
// a view layer can re-render on mutation rather than poll.
func (j *Journey) OnChange(fn func(*Journey)) {
	j.onChange = fn
}

func (j *Journey) State() State {
	j.mu.Lock()
	defer j.mu.Unlock()

	return j.state
}

func (j *Journey) ScheduledDeparture() time.Time {
	j.mu.Lock()
	defer j.mu.Unlock()

	return j.scheduledDeparture
}

func (j *Journey) ScheduledArrival() time.Time {
	j.mu.Lock()
	defer j.mu.Unlock()

	return j.scheduledArrival
}

func (j *Journey) Legs() []*Leg {
	j.mu.Lock()
	defer j.mu.Unlock()

	return append([]*Leg(nil), j.legs...)
}

// ActualArrival is always taken from the last leg.
func (j *Journey) ActualArrival() *time.Time {
	return j.lastLeg().ActualArrival()
}

func (j *Journey) Details() *hsp.JourneyDetails {
	return j.lastLeg().Details()
}

func (j *Journey) DisruptionCode() *int {
	return j.lastLeg().DisruptionCode()
}

// TryResolve drives the journey to a terminal state by resolving its last
// leg. It must only be called on an unresolved journey. Errors mark the
// journey Error and are reported to the caller; they never cascade to
// sibling journeys.
func (j *Journey) TryResolve(ctx context.Context, api DetailsAPI) error {
	j.mu.Lock()
	if j.state != StateUnresolved {
		state := j.state
		j.mu.Unlock()

		return fmt.Errorf("resolve %s journey %s: %w", state, j.ServiceID, ErrInvalidTransition)
	}
	j.state = StateRequesting
	j.mu.Unlock()
	j.notify()

	leg := j.lastLeg()

	if err := leg.RequestDetails(ctx, api); err != nil {
		j.transition(StateError)

		return err
	}

	j.mu.Lock()

	// The first leg's corrected schedule is authoritative for the whole
	// journey's departure and arrival.
	if leg == j.legs[0] {
		j.scheduledDeparture = leg.ScheduledDeparture()
		j.scheduledArrival = leg.ScheduledArrival()
	}

	switch leg.State() {
	case LegOnTime, LegDelayed:
		// Re-derive against the journey's own tolerance, which may differ
		// from the leg's.
		if hsp.MinutesLate(*leg.ActualArrival(), j.scheduledArrival) > int(j.Tolerance/time.Minute) {
			j.state = StateDelayed
		} else {
			j.state = StateOnTime
		}
	case LegCancelled:
		j.state = StateCancelled
	case LegCancelledEnRoute:
		j.state = StateCancelledEnRoute
	default:
		j.state = StateError
		state := leg.State()
		j.mu.Unlock()
		j.notify()

		return fmt.Errorf("journey %s: unexpected terminal leg state %s: %w", j.ServiceID, state, ErrInvalidTransition)
	}

	j.mu.Unlock()
	j.notify()

	return nil
}

func (j *Journey) lastLeg() *Leg {
	j.mu.Lock()
	defer j.mu.Unlock()

	return j.legs[len(j.legs)-1]
}

func (j *Journey) transition(state State) {
	j.mu.Lock()
	j.state = state
	j.mu.Unlock()
	j.notify()
}

func (j *Journey) notify() {
	if j.onChange != nil {
		j.onChange(j)
	}
}
