package journey

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/latemate/latemate/pkg/hsp"
)

// DetailsAPI is the external collaborator that fetches the stop-by-stop
// record for one service occurrence.
type DetailsAPI interface {
	JourneyDetails(ctx context.Context, id hsp.ServiceID) (*hsp.JourneyDetails, error)
}

// Leg is one scheduled service occurrence between a from/to station pair.
// It owns a small state machine driven by RequestDetails.
type Leg struct {
	ServiceID   hsp.ServiceID
	FromStation hsp.Station
	ToStation   hsp.Station
	Tolerance   time.Duration

	mu                 sync.Mutex
	state              LegState
	scheduledDeparture time.Time
	scheduledArrival   time.Time
	details            *hsp.JourneyDetails
	fromStop           *hsp.StopDetails
	toStop             *hsp.StopDetails
}

func NewLeg(serviceID hsp.ServiceID, from hsp.Station, to hsp.Station, scheduledDeparture time.Time, scheduledArrival time.Time, tolerance time.Duration) *Leg {
	return &Leg{
		ServiceID:   serviceID,
		FromStation: from,
		ToStation:   to,
		Tolerance:   tolerance,

		state:              LegUnpopulated,
		scheduledDeparture: scheduledDeparture,
		scheduledArrival:   scheduledArrival,
	}
}

func (l *Leg) State() LegState {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.state
}

// ScheduledDeparture is the metrics-derived guess until details resolve,
// after which it is the authoritative time from the details response.
func (l *Leg) ScheduledDeparture() time.Time {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.scheduledDeparture
}

func (l *Leg) ScheduledArrival() time.Time {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.scheduledArrival
}

func (l *Leg) Details() *hsp.JourneyDetails {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.details
}

func (l *Leg) ActualDeparture() *time.Time {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.fromStop == nil {
		return nil
	}

	return l.fromStop.ActualDeparture
}

func (l *Leg) ActualArrival() *time.Time {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.toStop == nil {
		return nil
	}

	return l.toStop.ActualArrival
}

func (l *Leg) DisruptionCode() *int {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.toStop == nil {
		return nil
	}

	return l.toStop.DisruptionCode
}

// RequestDetails fetches the occurrence's details and classifies the leg.
// It must only be called on an unpopulated leg. A fetch failure leaves the
// leg in the Error state and is reported to the caller.
func (l *Leg) RequestDetails(ctx context.Context, api DetailsAPI) error {
	l.mu.Lock()
	if l.state != LegUnpopulated {
		state := l.state
		l.mu.Unlock()

		return fmt.Errorf("request details on %s leg %s: %w", state, l.ServiceID, ErrInvalidTransition)
	}
	l.state = LegRequesting
	l.mu.Unlock()

	details, err := api.JourneyDetails(ctx, l.ServiceID)
	if err != nil {
		l.transition(LegError)

		return fmt.Errorf("fetch details for %s: %w", l.ServiceID, err)
	}

	return l.recordDetails(details)
}

// recordDetails stores the fetched details, adopts the authoritative
// scheduled times and drives the delay classification.
func (l *Leg) recordDetails(details *hsp.JourneyDetails) error {
	fromStop, ok := details.Stop(l.FromStation)
	if !ok {
		l.transition(LegError)

		return fmt.Errorf("service %s station %s: %w", l.ServiceID, l.FromStation.Code, ErrStopNotFound)
	}

	toStop, ok := details.Stop(l.ToStation)
	if !ok {
		l.transition(LegError)

		return fmt.Errorf("service %s station %s: %w", l.ServiceID, l.ToStation.Code, ErrStopNotFound)
	}

	if fromStop.ScheduledDeparture == nil || toStop.ScheduledArrival == nil {
		l.transition(LegError)

		return fmt.Errorf("service %s is missing scheduled times at %s/%s: %w",
			l.ServiceID, l.FromStation.Code, l.ToStation.Code, ErrStopNotFound)
	}

	l.mu.Lock()

	// The metrics-derived times are clock-only; the details response is
	// authoritative. The hour and minute must still agree or the wrong
	// occurrence was fetched.
	if !sameClock(*fromStop.ScheduledDeparture, l.scheduledDeparture) || !sameClock(*toStop.ScheduledArrival, l.scheduledArrival) {
		l.state = LegError
		l.mu.Unlock()

		return fmt.Errorf("service %s expected %s->%s, details say %s->%s: %w",
			l.ServiceID,
			l.scheduledDeparture.Format("15:04"), l.scheduledArrival.Format("15:04"),
			fromStop.ScheduledDeparture.Format("15:04"), toStop.ScheduledArrival.Format("15:04"),
			ErrScheduleMismatch)
	}

	l.details = details
	l.fromStop = &fromStop
	l.toStop = &toStop
	l.scheduledDeparture = *fromStop.ScheduledDeparture
	l.scheduledArrival = *toStop.ScheduledArrival

	switch {
	case toStop.ActualArrival == nil && fromStop.ActualDeparture == nil:
		// Never departed this leg's origin.
		l.state = LegCancelled
	case toStop.ActualArrival == nil:
		// Departed but never reached this leg's destination.
		l.state = LegCancelledEnRoute
	case hsp.MinutesLate(*toStop.ActualArrival, l.scheduledArrival) > int(l.Tolerance/time.Minute):
		l.state = LegDelayed
	default:
		l.state = LegOnTime
	}

	state := l.state
	l.mu.Unlock()

	log.Debug().
		Str("service", l.ServiceID.String()).
		Str("state", string(state)).
		Msg("Leg resolved")

	return nil
}

func (l *Leg) transition(state LegState) {
	l.mu.Lock()
	l.state = state
	l.mu.Unlock()
}

func sameClock(a time.Time, b time.Time) bool {
	return a.Hour() == b.Hour() && a.Minute() == b.Minute()
}
