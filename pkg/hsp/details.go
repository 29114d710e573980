package hsp

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"
)

var ErrNoStops = errors.New("details response contains no stops")

// JourneyDetails is the stop-by-stop record for one service occurrence.
type JourneyDetails struct {
	Date      time.Time
	TocCode   string
	ServiceID ServiceID
	Stops     []StopDetails
}

// Stop returns the first stop at the given station.
func (d *JourneyDetails) Stop(station Station) (StopDetails, bool) {
	for _, stop := range d.Stops {
		if stop.Station.Code == station.Code {
			return stop, true
		}
	}

	return StopDetails{}, false
}

// StopDetails is one scheduled stop within a service occurrence. Origin
// stops carry no arrival, terminus stops no departure. A nil ActualArrival
// means the train never reached the stop.
type StopDetails struct {
	Station            Station
	ScheduledDeparture *time.Time
	ScheduledArrival   *time.Time
	ActualDeparture    *time.Time
	ActualArrival      *time.Time
	DisruptionCode     *int
}

// ParseJourneyDetails converts a raw serviceDetails response into a typed
// immutable record. Derived timestamps that fall before the origin
// departure are taken to belong to the following calendar day.
func ParseJourneyDetails(ctx context.Context, raw *RawDetailsResponse, stations StationLookup) (*JourneyDetails, error) {
	attributes := raw.Attributes

	date, err := ParseDate(attributes.DateOfService)
	if err != nil {
		return nil, fmt.Errorf("date of service: %w", err)
	}

	serviceID, err := ParseServiceID(attributes.RID)
	if err != nil {
		return nil, err
	}

	if len(attributes.Locations) == 0 {
		return nil, fmt.Errorf("service %s: %w", serviceID, ErrNoStops)
	}

	originTime, err := ParseClock(attributes.Locations[0].ScheduledDeparture, date)
	if err != nil {
		return nil, fmt.Errorf("origin departure: %w", err)
	}

	details := &JourneyDetails{
		Date:      date,
		TocCode:   attributes.TocCode,
		ServiceID: serviceID,
	}

	for _, location := range attributes.Locations {
		stop := StopDetails{
			Station: resolveStation(ctx, stations, location.Location),
		}

		if stop.ScheduledDeparture, err = parseStopClock(location.ScheduledDeparture, date, originTime); err != nil {
			return nil, fmt.Errorf("stop %s scheduled departure: %w", location.Location, err)
		}
		if stop.ScheduledArrival, err = parseStopClock(location.ScheduledArrival, date, originTime); err != nil {
			return nil, fmt.Errorf("stop %s scheduled arrival: %w", location.Location, err)
		}
		if stop.ActualDeparture, err = parseStopClock(location.ActualDeparture, date, originTime); err != nil {
			return nil, fmt.Errorf("stop %s actual departure: %w", location.Location, err)
		}
		if stop.ActualArrival, err = parseStopClock(location.ActualArrival, date, originTime); err != nil {
			return nil, fmt.Errorf("stop %s actual arrival: %w", location.Location, err)
		}

		if location.LateCancReason != "" {
			code, err := strconv.Atoi(location.LateCancReason)
			if err != nil {
				return nil, fmt.Errorf("stop %s disruption code: %w", location.Location, err)
			}

			stop.DisruptionCode = &code
		}

		details.Stops = append(details.Stops, stop)
	}

	return details, nil
}

// parseStopClock parses an optional stop time onto the service date,
// normalized across midnight relative to the origin departure.
func parseStopClock(clock string, date time.Time, origin time.Time) (*time.Time, error) {
	if clock == "" {
		return nil, nil
	}

	t, err := ParseClock(clock, date)
	if err != nil {
		return nil, err
	}

	t = NormalizeAcrossMidnight(t, origin)

	return &t, nil
}
