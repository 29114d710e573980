// Package results owns the journey list a search produced and the two view
// concerns layered over it: the hide-on-time filter and pagination.
package results

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/latemate/latemate/pkg/hsp"
	"github.com/latemate/latemate/pkg/journey"
	"github.com/latemate/latemate/pkg/journey/resolver"
	"github.com/latemate/latemate/pkg/util"
)

const DefaultPageSize = 10

type State string

const (
	StateRequestingMetrics State = "RequestingMetrics"
	StateRequestingDetails State = "RequestingDetails"
	StateComplete          State = "Complete"
	StateError             State = "Error"
)

// API is the external collaborator the controller drives: one metrics
// request per search, then bounded detail fetches through the pipeline.
type API interface {
	journey.DetailsAPI
	ServiceMetrics(ctx context.Context, req hsp.MetricsRequest) (*hsp.MetricsCollection, error)
}

// Params are one search.
type Params struct {
	FromStation string
	ToStation   string
	FromDate    time.Time
	ToDate      time.Time
	Days        string
	Tolerance   time.Duration
}

type Controller struct {
	api      API
	pageSize int

	mu         sync.Mutex
	state      State
	progress   float64
	hideTimely bool
	page       int
	journeys   []*journey.Journey
	cancel     context.CancelFunc
}

func NewController(api API) *Controller {
	return &Controller{
		api:        api,
		pageSize:   DefaultPageSize,
		state:      StateRequestingMetrics,
		hideTimely: true,
		page:       1,
	}
}

// Run executes one search end to end: metrics fetch, journey construction,
// bounded detail resolution. A new call supersedes any run still in
// flight by cancelling its context; the superseded journeys keep whatever
// state they reached.
func (c *Controller) Run(ctx context.Context, params Params) error {
	ctx, cancel := context.WithCancel(ctx)

	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
	}
	c.cancel = cancel
	c.state = StateRequestingMetrics
	c.progress = 0
	c.page = 1
	c.journeys = nil
	c.mu.Unlock()

	collection, err := c.api.ServiceMetrics(ctx, hsp.MetricsRequest{
		FromStation: params.FromStation,
		ToStation:   params.ToStation,
		FromDate:    params.FromDate,
		ToDate:      params.ToDate,
		Days:        params.Days,
		Tolerances:  []time.Duration{params.Tolerance},
	})
	if err != nil {
		c.setState(StateError)

		return err
	}

	if len(collection.Services) == 0 {
		c.setState(StateComplete)

		return nil
	}

	pipeline := resolver.New(c.api,
		resolver.WithProgress(func(percent float64) {
			c.mu.Lock()
			c.progress = percent
			c.mu.Unlock()
		}),
	)

	run, err := pipeline.Prepare(collection, params.Tolerance)
	if err != nil {
		c.setState(StateError)

		return err
	}

	c.mu.Lock()
	c.journeys = run.Journeys
	c.state = StateRequestingDetails
	c.mu.Unlock()

	run.Execute(ctx)

	c.setState(StateComplete)

	log.Info().
		Str("from", params.FromStation).
		Str("to", params.ToStation).
		Int("journeys", len(run.Journeys)).
		Int("resolved", run.QueuedCount()).
		Msg("Search complete")

	return nil
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.state
}

func (c *Controller) Progress() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.progress
}

func (c *Controller) HideTimely() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.hideTimely
}

// Journeys is the full sorted candidate list regardless of filter or page.
func (c *Controller) Journeys() []*journey.Journey {
	c.mu.Lock()
	defer c.mu.Unlock()

	return append([]*journey.Journey(nil), c.journeys...)
}

// FilteredJourneys applies the hide-on-time filter: when active, only
// delayed and cancelled journeys are shown. Unresolved journeys are never
// confused with on-time ones, but they are equally hidden by the filter.
func (c *Controller) FilteredJourneys() []*journey.Journey {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.filteredLocked()
}

// VisibleJourneys is the current page of the filtered list.
func (c *Controller) VisibleJourneys() []*journey.Journey {
	c.mu.Lock()
	defer c.mu.Unlock()

	filtered := c.filteredLocked()

	start := (c.page - 1) * c.pageSize
	if start >= len(filtered) {
		return nil
	}

	end := start + c.pageSize
	if end > len(filtered) {
		end = len(filtered)
	}

	return filtered[start:end]
}

// Page is the current 1-based page number.
func (c *Controller) Page() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.page
}

// PageCount is the number of pages in the filtered list, never below one.
func (c *Controller) PageCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.pageCountLocked()
}

// SetPage clamps the requested page into the filtered list's valid range.
func (c *Controller) SetPage(page int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.page = clamp(page, 1, c.pageCountLocked())
}

// ToggleTimely flips the hide-on-time filter and clamps the current page
// into the new filtered list's range, so the view is never left pointing
// past the last page.
func (c *Controller) ToggleTimely() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.hideTimely = !c.hideTimely
	c.page = clamp(c.page, 1, c.pageCountLocked())
}

func (c *Controller) filteredLocked() []*journey.Journey {
	filtered := append([]*journey.Journey(nil), c.journeys...)
	if c.hideTimely {
		util.InPlaceFilter(&filtered, func(j *journey.Journey) bool {
			return j.State().IsDisrupted()
		})
	}

	return filtered
}

func (c *Controller) pageCountLocked() int {
	count := (len(c.filteredLocked()) + c.pageSize - 1) / c.pageSize
	if count < 1 {
		count = 1
	}

	return count
}

func (c *Controller) setState(state State) {
	c.mu.Lock()
	c.state = state
	c.mu.Unlock()
}

func clamp(v int, lo int, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}

	return v
}
