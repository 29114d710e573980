// Package resolver turns one metrics collection plus a delay tolerance
// into a fully-populated, sorted journey list, fanning out the detail
// fetches with bounded concurrency.
package resolver

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc/pool"
	"golang.org/x/exp/slices"

	"github.com/latemate/latemate/pkg/hsp"
	"github.com/latemate/latemate/pkg/journey"
)

// DefaultConcurrency caps in-flight detail fetches. The upstream API is
// load-sensitive and a search can match hundreds of occurrences.
const DefaultConcurrency = 3

var ErrNoServices = errors.New("metrics collection contains no services")

type Pipeline struct {
	api         journey.DetailsAPI
	concurrency int
	onProgress  func(percent float64)
}

type Option func(*Pipeline)

func WithConcurrency(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.concurrency = n
		}
	}
}

// WithProgress registers a callback invoked with the cumulative completion
// percentage after each queued resolution finishes, success or error.
func WithProgress(fn func(percent float64)) Option {
	return func(p *Pipeline) {
		p.onProgress = fn
	}
}

func New(api journey.DetailsAPI, opts ...Option) *Pipeline {
	p := &Pipeline{
		api:         api,
		concurrency: DefaultConcurrency,
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Run is one pipeline execution over one metrics collection.
type Run struct {
	// Journeys is the full candidate list, sorted once by origin date then
	// scheduled departure. The order never changes after Prepare; only each
	// journey's own state mutates as fetches complete.
	Journeys []*journey.Journey

	pipeline *Pipeline
	queued   []*journey.Journey

	mu       sync.Mutex
	progress float64
}

// Prepare builds one journey per service occurrence in the collection and
// decides which need a detail fetch: a service whose metric at exactly the
// requested tolerance shows any out-of-tolerance occurrence has all of its
// occurrences queued, since the aggregate cannot say which one was late.
func (p *Pipeline) Prepare(collection *hsp.MetricsCollection, tolerance time.Duration) (*Run, error) {
	if len(collection.Services) == 0 {
		return nil, ErrNoServices
	}

	run := &Run{pipeline: p}

	for i := range collection.Services {
		service := &collection.Services[i]
		delayed := delaysOnService(service, tolerance)

		for _, serviceID := range service.ServiceIDs {
			j, err := journey.New(
				serviceID,
				service.DepartureTime,
				service.ArrivalTime,
				collection.FromStation,
				collection.ToStation,
				service.OriginStation,
				service.DestinationStation,
				service.TocCode,
				tolerance,
			)
			if err != nil {
				return nil, err
			}

			run.Journeys = append(run.Journeys, j)

			if delayed {
				run.queued = append(run.queued, j)
			}
		}
	}

	slices.SortStableFunc(run.Journeys, compareJourneys)

	log.Debug().
		Int("journeys", len(run.Journeys)).
		Int("queued", len(run.queued)).
		Msg("Prepared resolution run")

	return run, nil
}

// QueuedCount is the number of journeys that will be resolved by Execute.
// Journeys not queued stay Unresolved permanently.
func (r *Run) QueuedCount() int {
	return len(r.queued)
}

// Progress is the cumulative completion percentage of queued resolutions.
func (r *Run) Progress() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.progress
}

// Execute resolves every queued journey with at most the configured number
// of fetches in flight, and blocks until the queue drains. A failed fetch
// marks only its own journey; it neither retries nor halts the batch.
func (r *Run) Execute(ctx context.Context) {
	if len(r.queued) == 0 {
		return
	}

	increment := 100 / float64(len(r.queued))

	workers := pool.New().WithMaxGoroutines(r.pipeline.concurrency)

	for _, j := range r.queued {
		workers.Go(func() {
			if err := j.TryResolve(ctx, r.pipeline.api); err != nil {
				log.Warn().Err(err).Str("service", j.ServiceID.String()).Msg("Failed to resolve journey")
			}

			r.mu.Lock()
			r.progress += increment
			progress := r.progress
			r.mu.Unlock()

			if r.pipeline.onProgress != nil {
				r.pipeline.onProgress(progress)
			}
		})
	}

	workers.Wait()
}

func delaysOnService(service *hsp.ServiceMetrics, tolerance time.Duration) bool {
	metric, ok := service.MetricFor(tolerance)

	return ok && metric.NumNotTolerance > 0
}

func compareJourneys(a *journey.Journey, b *journey.Journey) int {
	if c := a.OriginDate.Compare(b.OriginDate); c != 0 {
		return c
	}

	return a.ScheduledDeparture().Compare(b.ScheduledDeparture())
}
