package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/celestiatrack/astro-event-aggregation/internal/astro"
)

func testSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()

	s, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteUpsertIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := testSQLiteStore(t)

	require.NoError(t, s.Upsert(ctx, seedEvents()))
	require.NoError(t, s.Upsert(ctx, seedEvents()))

	_, total, err := s.List(ctx, astro.Filter{})
	require.NoError(t, err)
	assert.Equal(t, 4, total)
}

func TestSQLiteRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := testSQLiteStore(t)

	starts := time.Date(2024, 1, 1, 6, 12, 0, 0, time.UTC)
	ends := time.Date(2024, 1, 1, 18, 54, 0, 0, time.UTC)

	e := storedEvent(astro.SourceOpenMeteo, astro.CategoryTwilight, "Astronomical Twilight", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	e.StartsAt = &starts
	e.EndsAt = &ends
	e.Details.Twilight = &astro.TwilightDetails{Kind: "astronomical"}

	require.NoError(t, s.Upsert(ctx, []astro.Event{e}))

	events, total, err := s.List(ctx, astro.Filter{})
	require.NoError(t, err)
	require.Equal(t, 1, total)
	require.Len(t, events, 1)

	got := events[0]
	assert.Equal(t, e.ID, got.ID)
	assert.Equal(t, e.Source, got.Source)
	assert.Equal(t, e.Category, got.Category)
	assert.Equal(t, e.Name, got.Name)
	assert.True(t, got.OccursAt.Equal(e.OccursAt))
	require.NotNil(t, got.StartsAt)
	assert.True(t, got.StartsAt.Equal(starts))
	require.NotNil(t, got.EndsAt)
	assert.True(t, got.EndsAt.Equal(ends))
	require.NotNil(t, got.Details.Twilight)
	assert.Equal(t, "astronomical", got.Details.Twilight.Kind)
	assert.InDelta(t, 38.775867, got.Location.Latitude, 1e-9)
}

func TestSQLiteUpsertOverwritesContent(t *testing.T) {
	ctx := context.Background()
	s := testSQLiteStore(t)

	e := storedEvent(astro.SourceAMSMeteors, astro.CategoryFireball, "Fireball 2024-03-02", time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC))
	e.Details.Fireball = &astro.FireballDetails{Reports: 3}
	require.NoError(t, s.Upsert(ctx, []astro.Event{e}))

	e.Details.Fireball = &astro.FireballDetails{Reports: 12}
	require.NoError(t, s.Upsert(ctx, []astro.Event{e}))

	events, total, err := s.List(ctx, astro.Filter{})
	require.NoError(t, err)
	require.Equal(t, 1, total)
	require.NotNil(t, events[0].Details.Fireball)
	assert.Equal(t, 12, events[0].Details.Fireball.Reports)
}

func TestSQLiteListFiltersAndPaginates(t *testing.T) {
	ctx := context.Background()
	s := testSQLiteStore(t)
	require.NoError(t, s.Upsert(ctx, seedEvents()))

	events, total, err := s.List(ctx, astro.Filter{Source: astro.SourceOpenMeteo})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, events, 2)

	events, total, err = s.List(ctx, astro.Filter{Limit: 2, Offset: 2})
	require.NoError(t, err)
	assert.Equal(t, 4, total)
	require.Len(t, events, 2)
	assert.Equal(t, "Moon rise", events[0].Name)

	events, total, err = s.List(ctx, astro.Filter{
		From: time.Date(2024, 1, 4, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, events, 1)
	assert.Equal(t, "Quadrantids", events[0].Name)
}
