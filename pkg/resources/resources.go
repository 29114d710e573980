// Package resources loads the Darwin timetable reference data (stations
// and disruption reasons) once and serves it to every caller with
// get-or-wait semantics: early callers block until the first load lands.
package resources

import (
	"context"
	"encoding/xml"
	"io"
	"os"
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/latemate/latemate/pkg/hsp"
)

type locationRef struct {
	Crs     string `xml:"crs,attr"`
	Toc     string `xml:"toc,attr"`
	Locname string `xml:"locname,attr"`
}

type reasonRef struct {
	Code       string `xml:"code,attr"`
	ReasonText string `xml:"reasontext,attr"`
}

// Lookup is the shared station and disruption reason cache. It is written
// exactly once by its loader and read-only for everyone else.
type Lookup struct {
	ready chan struct{}

	stations []hsp.Station
	byCode   map[string]hsp.Station
	reasons  map[int]hsp.Reason
}

// Load starts loading the reference file in the background and returns
// immediately. A load failure logs and leaves the lookup empty; the
// reference endpoint is opaque to us and has its own refresh cycle.
func Load(path string) *Lookup {
	l := newLookup()

	go func() {
		defer close(l.ready)

		file, err := os.Open(path)
		if err != nil {
			log.Error().Err(err).Str("path", path).Msg("Failed to open reference data")

			return
		}
		defer file.Close()

		if err := l.parse(file); err != nil {
			log.Error().Err(err).Str("path", path).Msg("Failed to parse reference data")

			return
		}

		log.Info().
			Int("stations", len(l.stations)).
			Int("reasons", len(l.reasons)).
			Msg("Loaded reference data")
	}()

	return l
}

// LoadReader parses reference data synchronously, for callers that already
// hold the document.
func LoadReader(r io.Reader) (*Lookup, error) {
	l := newLookup()
	defer close(l.ready)

	if err := l.parse(r); err != nil {
		return nil, err
	}

	return l, nil
}

func newLookup() *Lookup {
	return &Lookup{
		ready:   make(chan struct{}),
		byCode:  map[string]hsp.Station{},
		reasons: map[int]hsp.Reason{},
	}
}

// Stations returns every known station, deduplicated by CRS code.
func (l *Lookup) Stations(ctx context.Context) []hsp.Station {
	if !l.wait(ctx) {
		return nil
	}

	return append([]hsp.Station(nil), l.stations...)
}

func (l *Lookup) Station(ctx context.Context, code string) (hsp.Station, bool) {
	if !l.wait(ctx) {
		return hsp.Station{}, false
	}

	station, ok := l.byCode[code]

	return station, ok
}

func (l *Lookup) Disruption(ctx context.Context, code int) (hsp.Reason, bool) {
	if !l.wait(ctx) {
		return hsp.Reason{}, false
	}

	reason, ok := l.reasons[code]

	return reason, ok
}

// Disruptions returns every known late-running and cancellation reason.
func (l *Lookup) Disruptions(ctx context.Context) []hsp.Reason {
	if !l.wait(ctx) {
		return nil
	}

	reasons := make([]hsp.Reason, 0, len(l.reasons))
	for _, reason := range l.reasons {
		reasons = append(reasons, reason)
	}

	return reasons
}

func (l *Lookup) wait(ctx context.Context) bool {
	select {
	case <-l.ready:
		return true
	case <-ctx.Done():
		return false
	}
}

// parse streams through a PportTimetableRef document. Only locations
// carrying a toc attribute are stations a passenger service can call at.
func (l *Lookup) parse(r io.Reader) error {
	decoder := xml.NewDecoder(r)

	inCancellationReasons := false
	inLateRunningReasons := false

	for {
		token, err := decoder.Token()
		if token == nil || err == io.EOF {
			break
		} else if err != nil {
			return err
		}

		switch element := token.(type) {
		case xml.StartElement:
			switch element.Name.Local {
			case "LocationRef":
				var location locationRef
				if err := decoder.DecodeElement(&location, &element); err != nil {
					return err
				}

				if location.Toc == "" || location.Crs == "" {
					continue
				}

				if _, seen := l.byCode[location.Crs]; seen {
					continue
				}

				station := hsp.Station{Code: location.Crs, Text: location.Locname}
				l.byCode[location.Crs] = station
				l.stations = append(l.stations, station)
			case "LateRunningReasons":
				inLateRunningReasons = true
			case "CancellationReasons":
				inCancellationReasons = true
			case "Reason":
				if !inLateRunningReasons && !inCancellationReasons {
					continue
				}

				var reason reasonRef
				if err := decoder.DecodeElement(&reason, &element); err != nil {
					return err
				}

				code, err := strconv.Atoi(reason.Code)
				if err != nil {
					continue
				}

				l.reasons[code] = hsp.Reason{Code: code, Text: reason.ReasonText}
			}
		case xml.EndElement:
			switch element.Name.Local {
			case "LateRunningReasons":
				inLateRunningReasons = false
			case "CancellationReasons":
				inCancellationReasons = false
			}
		}
	}

	return nil
}
