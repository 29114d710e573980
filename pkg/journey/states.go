package journey

import "errors"

var (
	// ErrInvalidTransition is returned when a state machine operation is
	// attempted from the wrong state. This is a programming error, never a
	// recoverable runtime condition.
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrStopNotFound is returned when a details response carries no stop
	// for the leg's from or to station.
	ErrStopNotFound = errors.New("stop not found in journey details")

	// ErrScheduleMismatch is returned when fetched details disagree with
	// the metrics-derived scheduled times, meaning the wrong occurrence
	// was fetched.
	ErrScheduleMismatch = errors.New("scheduled time mismatch against details")
)

type LegState string

const (
	LegUnpopulated      LegState = "Unpopulated"
	LegRequesting       LegState = "Requesting"
	LegOnTime           LegState = "OnTime"
	LegDelayed          LegState = "Delayed"
	LegCancelled        LegState = "Cancelled"
	LegCancelledEnRoute LegState = "CancelledEnRoute"
	LegError            LegState = "Error"
)

type State string

const (
	StateUnresolved       State = "Unresolved"
	StateRequesting       State = "Requesting"
	StateOnTime           State = "OnTime"
	StateDelayed          State = "Delayed"
	StateCancelled        State = "Cancelled"
	StateCancelledEnRoute State = "CancelledEnRoute"
	StateError            State = "Error"
)

// IsDisrupted reports whether the state is one of the outcomes worth
// showing when on-time journeys are hidden.
func (s State) IsDisrupted() bool {
	return s == StateDelayed || s == StateCancelled || s == StateCancelledEnRoute
}
