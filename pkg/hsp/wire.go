package hsp

import "time"

// Raw wire shapes for the HSP serviceMetrics and serviceDetails endpoints.
// Numeric values arrive as strings and are converted during parsing.

type RawMetricsRequest struct {
	FromLoc   string `json:"from_loc"`
	ToLoc     string `json:"to_loc"`
	FromTime  string `json:"from_time"`
	ToTime    string `json:"to_time"`
	FromDate  string `json:"from_date"`
	ToDate    string `json:"to_date"`
	Days      string `json:"days"`
	Tolerance []int  `json:"tolerance,omitempty"`
}

type RawMetricsResponse struct {
	Header struct {
		FromLocation string `json:"from_location"`
		ToLocation   string `json:"to_location"`
	} `json:"header"`
	Services []RawServiceMetrics `json:"Services"`
}

type RawServiceMetrics struct {
	Attributes RawServiceAttributes `json:"serviceAttributesMetrics"`
	Metrics    []RawMetric          `json:"Metrics"`
}

type RawServiceAttributes struct {
	OriginLocation      string   `json:"origin_location"`
	DestinationLocation string   `json:"destination_location"`
	Departure           string   `json:"gbtt_ptd"`
	Arrival             string   `json:"gbtt_pta"`
	TocCode             string   `json:"toc_code"`
	MatchedServices     string   `json:"matched_services"`
	RIDs                []string `json:"rids"`
}

type RawMetric struct {
	ToleranceValue   string `json:"tolerance_value"`
	NumNotTolerance  string `json:"num_not_tolerance"`
	NumTolerance     string `json:"num_tolerance"`
	PercentTolerance string `json:"percent_tolerance"`
	GlobalTolerance  bool   `json:"global_tolerance"`
}

type RawDetailsRequest struct {
	RID string `json:"rid"`
}

type RawDetailsResponse struct {
	Attributes RawDetailsAttributes `json:"serviceAttributesDetails"`
}

type RawDetailsAttributes struct {
	DateOfService string        `json:"date_of_service"`
	TocCode       string        `json:"toc_code"`
	RID           string        `json:"rid"`
	Locations     []RawLocation `json:"locations"`
}

// RawLocation is one scheduled stop. Empty clock strings mean the field is
// not applicable at this stop (no departure at a terminus, no arrival at an
// origin, no actual time when the train never got there).
type RawLocation struct {
	Location           string `json:"location"`
	ScheduledDeparture string `json:"gbtt_ptd"`
	ScheduledArrival   string `json:"gbtt_pta"`
	ActualDeparture    string `json:"actual_td"`
	ActualArrival      string `json:"actual_ta"`
	LateCancReason     string `json:"late_canc_reason"`
}

// MetricsRequest are the search parameters for a serviceMetrics call.
type MetricsRequest struct {
	FromStation string
	ToStation   string
	FromDate    time.Time
	ToDate      time.Time
	Days        string
	Tolerances  []time.Duration
}

// Raw converts the request into its wire shape. The search always covers
// the full day.
func (r MetricsRequest) Raw() RawMetricsRequest {
	raw := RawMetricsRequest{
		FromLoc:  r.FromStation,
		ToLoc:    r.ToStation,
		FromTime: "0000",
		ToTime:   "2359",
		FromDate: r.FromDate.Format("2006-01-02"),
		ToDate:   r.ToDate.Format("2006-01-02"),
		Days:     r.Days,
	}

	for _, tolerance := range r.Tolerances {
		raw.Tolerance = append(raw.Tolerance, int(tolerance/time.Minute))
	}

	return raw
}
