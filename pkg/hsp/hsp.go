package hsp

import (
	"context"
	"fmt"
	"strconv"
	"time"
)

// Station is a single station on the national rail network, identified by
// its CRS code.
type Station struct {
	Code string `json:"code" groups:"basic"`
	Text string `json:"text" groups:"basic"`
}

// Reason is a Darwin late-running or cancellation reason.
type Reason struct {
	Code int    `json:"code"`
	Text string `json:"text"`
}

// StationLookup resolves a CRS code to a full Station record. Lookups may
// block until the backing reference data has loaded, hence the context.
type StationLookup interface {
	Station(ctx context.Context, code string) (Station, bool)
}

// ReasonLookup resolves a disruption reason code to its text.
type ReasonLookup interface {
	Disruption(ctx context.Context, code int) (Reason, bool)
}

// ServiceID identifies one service occurrence (an HSP RID). The leading
// eight digits encode the YYYYMMDD date the service ran.
type ServiceID int64

func ParseServiceID(s string) (ServiceID, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse service id %q: %w", s, err)
	}

	return ServiceID(n), nil
}

func (id ServiceID) String() string {
	return strconv.FormatInt(int64(id), 10)
}

// Date extracts the calendar date encoded in the identifier.
func (id ServiceID) Date() (time.Time, error) {
	s := id.String()
	if len(s) < 8 {
		return time.Time{}, fmt.Errorf("service id %s is too short to carry a date", s)
	}

	date, err := time.ParseInLocation("20060102", s[:8], time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("service id %s: %w", s, err)
	}

	return date, nil
}
