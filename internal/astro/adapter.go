package astro

import (
	"context"
	"time"
)

// Adapter abstracts one external event source (AstronomyAPI, Open-Meteo,
// AMS Meteors). Fetch returns the normalized events for [from, to]. A nil
// slice with a nil error means the adapter skipped itself (e.g. missing
// credential); an error means the call failed and the caller decides how
// to degrade.
type Adapter interface {
	Name() string
	Source() Source
	Fetch(ctx context.Context, loc Location, from, to time.Time) ([]Event, error)
}

// Filter narrows a listing query.
type Filter struct {
	From     time.Time
	To       time.Time
	Source   Source   // empty = all sources
	Category Category // empty = all categories
	Limit    int
	Offset   int
}

// Store is the contract every persistence sink must satisfy. Upsert is
// keyed by the event's natural key: re-upserting the same logical event
// overwrites fields, never adds a row.
type Store interface {
	Upsert(ctx context.Context, events []Event) error
	List(ctx context.Context, f Filter) ([]Event, int, error)
	Close() error
}
