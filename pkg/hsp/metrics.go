package hsp

import (
	"context"
	"fmt"
	"strconv"
	"time"
)

// MetricsCollection is the aggregate historical performance for every
// scheduled service matching one search.
type MetricsCollection struct {
	FromStation Station
	ToStation   Station
	Services    []ServiceMetrics
}

// ServiceMetrics is the aggregate record for one scheduled service pattern.
// DepartureTime and ArrivalTime are clock-only values on the zero date.
type ServiceMetrics struct {
	OriginStation      Station
	DestinationStation Station
	DepartureTime      time.Time
	ArrivalTime        time.Time
	TocCode            string
	ServiceCount       int
	ServiceIDs         []ServiceID
	Metrics            []Metric
}

// Metric is the on-time/late split for one delay tolerance threshold.
type Metric struct {
	Tolerance         time.Duration
	NumTolerance      int
	NumNotTolerance   int
	PercentTolerance  float64
	IsGlobalTolerance bool
}

// MetricFor returns the metric whose tolerance exactly matches the given
// duration, to the minute. A missing entry means no delay data is known at
// that threshold.
func (s *ServiceMetrics) MetricFor(tolerance time.Duration) (Metric, bool) {
	for _, metric := range s.Metrics {
		if metric.Tolerance/time.Minute == tolerance/time.Minute {
			return metric, true
		}
	}

	return Metric{}, false
}

// ParseMetricsCollection converts a raw serviceMetrics response into typed
// immutable records, resolving station codes through the lookup.
func ParseMetricsCollection(ctx context.Context, raw *RawMetricsResponse, stations StationLookup) (*MetricsCollection, error) {
	collection := &MetricsCollection{
		FromStation: resolveStation(ctx, stations, raw.Header.FromLocation),
		ToStation:   resolveStation(ctx, stations, raw.Header.ToLocation),
	}

	for _, rawService := range raw.Services {
		service, err := parseServiceMetrics(ctx, rawService, stations)
		if err != nil {
			return nil, err
		}

		collection.Services = append(collection.Services, service)
	}

	return collection, nil
}

func parseServiceMetrics(ctx context.Context, raw RawServiceMetrics, stations StationLookup) (ServiceMetrics, error) {
	attributes := raw.Attributes

	departureTime, err := ParseClock(attributes.Departure, time.Time{})
	if err != nil {
		return ServiceMetrics{}, fmt.Errorf("service departure: %w", err)
	}

	arrivalTime, err := ParseClock(attributes.Arrival, time.Time{})
	if err != nil {
		return ServiceMetrics{}, fmt.Errorf("service arrival: %w", err)
	}

	serviceCount, err := strconv.Atoi(attributes.MatchedServices)
	if err != nil {
		return ServiceMetrics{}, fmt.Errorf("matched services: %w", err)
	}

	service := ServiceMetrics{
		OriginStation:      resolveStation(ctx, stations, attributes.OriginLocation),
		DestinationStation: resolveStation(ctx, stations, attributes.DestinationLocation),
		DepartureTime:      departureTime,
		ArrivalTime:        arrivalTime,
		TocCode:            attributes.TocCode,
		ServiceCount:       serviceCount,
	}

	for _, rid := range attributes.RIDs {
		serviceID, err := ParseServiceID(rid)
		if err != nil {
			return ServiceMetrics{}, err
		}

		service.ServiceIDs = append(service.ServiceIDs, serviceID)
	}

	for _, rawMetric := range raw.Metrics {
		metric, err := parseMetric(rawMetric)
		if err != nil {
			return ServiceMetrics{}, err
		}

		service.Metrics = append(service.Metrics, metric)
	}

	return service, nil
}

func parseMetric(raw RawMetric) (Metric, error) {
	toleranceMinutes, err := strconv.Atoi(raw.ToleranceValue)
	if err != nil {
		return Metric{}, fmt.Errorf("metric tolerance: %w", err)
	}

	numTolerance, err := strconv.Atoi(raw.NumTolerance)
	if err != nil {
		return Metric{}, fmt.Errorf("metric num_tolerance: %w", err)
	}

	numNotTolerance, err := strconv.Atoi(raw.NumNotTolerance)
	if err != nil {
		return Metric{}, fmt.Errorf("metric num_not_tolerance: %w", err)
	}

	percentTolerance, err := strconv.ParseFloat(raw.PercentTolerance, 64)
	if err != nil {
		return Metric{}, fmt.Errorf("metric percent_tolerance: %w", err)
	}

	return Metric{
		Tolerance:         time.Duration(toleranceMinutes) * time.Minute,
		NumTolerance:      numTolerance,
		NumNotTolerance:   numNotTolerance,
		PercentTolerance:  percentTolerance,
		IsGlobalTolerance: raw.GlobalTolerance,
	}, nil
}

// resolveStation falls back to a code-only Station when the reference data
// has no entry, so an unknown code is visible but never fatal.
func resolveStation(ctx context.Context, stations StationLookup, code string) Station {
	if station, ok := stations.Station(ctx, code); ok {
		return station
	}

	return Station{Code: code}
}
