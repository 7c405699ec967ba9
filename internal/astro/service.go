package astro

import (
	"context"
	"log"
	"sort"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/celestiatrack/astro-event-aggregation/internal/observability"
)

// Default aggregation window when the caller supplies no range:
// one year back, three years forward, fixed at call time.
const (
	DefaultWindowBack    = 365
	DefaultWindowForward = 1095
)

// Service orchestrates fetching from all adapters and persisting events.
type Service struct {
	store    Store
	adapters []Adapter
	clock    clockwork.Clock
	metrics  *observability.Metrics
}

// NewService creates a new Service. Adapter order is the invocation order;
// it also breaks timestamp ties in the aggregated output.
func NewService(store Store, adapters []Adapter, clock clockwork.Clock, metrics *observability.Metrics) *Service {
	return &Service{
		store:    store,
		adapters: adapters,
		clock:    clock,
		metrics:  metrics,
	}
}

// fetchResult keeps per-adapter success and failure distinguishable inside
// the service; the public Aggregate boundary collapses failures to zero
// events.
type fetchResult struct {
	source Source
	events []Event
	err    error
}

// Aggregate invokes every adapter sequentially for the given location and
// range and returns one chronologically sorted list. Adapter failures are
// absorbed; all adapters failing yields an empty list, not an error.
func (s *Service) Aggregate(ctx context.Context, loc Location, from, to time.Time) []Event {
	results := s.collect(ctx, loc, from, to)

	var events []Event
	for _, r := range results {
		events = append(events, r.events...)
	}

	sort.SliceStable(events, func(i, j int) bool {
		return events[i].OccursAt.Before(events[j].OccursAt)
	})

	return events
}

// RunSummary reports one aggregation-and-store run.
type RunSummary struct {
	PerSource map[Source]int `json:"perSource"`
	Failed    []Source       `json:"failed,omitempty"`
	Stored    int            `json:"stored"`
}

// Refresh runs an aggregation and upserts the result into the store.
// Only store failures surface as errors; adapter failures are already
// absorbed and reported in the summary.
func (s *Service) Refresh(ctx context.Context, loc Location, from, to time.Time) (RunSummary, error) {
	start := s.clock.Now()
	results := s.collect(ctx, loc, from, to)

	summary := RunSummary{PerSource: make(map[Source]int)}
	var events []Event
	for _, r := range results {
		summary.PerSource[r.source] += len(r.events)
		if r.err != nil {
			summary.Failed = append(summary.Failed, r.source)
		}
		events = append(events, r.events...)
	}

	sort.SliceStable(events, func(i, j int) bool {
		return events[i].OccursAt.Before(events[j].OccursAt)
	})

	if err := s.store.Upsert(ctx, events); err != nil {
		return summary, err
	}
	summary.Stored = len(events)
	s.metrics.EventsUpserted.Add(float64(len(events)))
	s.metrics.RunsTotal.Inc()
	s.metrics.RunDuration.Observe(s.clock.Since(start).Seconds())

	return summary, nil
}

// List delegates to the underlying store.
func (s *Service) List(ctx context.Context, f Filter) ([]Event, int, error) {
	return s.store.List(ctx, f)
}

// Window returns the effective date range for a run, applying the default
// window when either bound is missing.
func (s *Service) Window(from, to time.Time) (time.Time, time.Time) {
	now := s.clock.Now().UTC()
	if from.IsZero() {
		from = now.AddDate(0, 0, -DefaultWindowBack)
	}
	if to.IsZero() {
		to = now.AddDate(0, 0, DefaultWindowForward)
	}
	if to.Before(from) {
		to = from
	}
	return from, to
}

func (s *Service) collect(ctx context.Context, loc Location, from, to time.Time) []fetchResult {
	from, to = s.Window(from, to)

	results := make([]fetchResult, 0, len(s.adapters))
	for _, a := range s.adapters {
		events, err := a.Fetch(ctx, loc, from, to)
		if err != nil {
			log.Printf("adapter %s fetch failed for %s: %v", a.Name(), loc.Key(), err)
			s.metrics.AdapterFetches.WithLabelValues(string(a.Source()), "error").Inc()
			results = append(results, fetchResult{source: a.Source(), err: err})
			continue
		}
		if events == nil {
			// Deliberate skip (e.g. missing credential), already logged
			// by the adapter.
			s.metrics.AdapterFetches.WithLabelValues(string(a.Source()), "skip").Inc()
			results = append(results, fetchResult{source: a.Source()})
			continue
		}

		kept := events[:0]
		for _, e := range events {
			if !withinWindow(e.OccursAt, from, to) {
				log.Printf("adapter %s produced out-of-window event %q at %s; dropping", a.Name(), e.Name, e.OccursAt)
				continue
			}
			kept = append(kept, e)
		}

		s.metrics.AdapterFetches.WithLabelValues(string(a.Source()), "success").Inc()
		s.metrics.EventsFetched.WithLabelValues(string(a.Source())).Add(float64(len(kept)))
		results = append(results, fetchResult{source: a.Source(), events: kept})
	}

	return results
}

// withinWindow checks the date portion of ts against [from, to].
func withinWindow(ts, from, to time.Time) bool {
	d := ts.UTC().Truncate(24 * time.Hour)
	lo := from.UTC().Truncate(24 * time.Hour)
	hi := to.UTC().Truncate(24 * time.Hour)
	return !d.Before(lo) && !d.After(hi)
}
