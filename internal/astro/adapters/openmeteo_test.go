package adapters

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/celestiatrack/astro-event-aggregation/internal/astro"
)

func newTwilightAdapterForTest(srv *httptest.Server) *TwilightAdapter {
	a := NewTwilightAdapter(srv.Client())
	a.baseURL = srv.URL
	a.httpCfg.Backoff.MaxRetries = 0
	a.httpCfg.Backoff.InitialInterval = time.Millisecond
	return a
}

func TestTwilightFetchSingleDay(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "38.775867", q.Get("latitude"))
		assert.Equal(t, "-84.397330", q.Get("longitude"))
		assert.Equal(t, "2024-01-01", q.Get("start_date"))
		assert.Equal(t, "2024-01-01", q.Get("end_date"))
		assert.Equal(t, "astronomical_twilight_start,astronomical_twilight_end", q.Get("daily"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"daily": {
				"time": ["2024-01-01"],
				"astronomical_twilight_start": ["2024-01-01T06:12"],
				"astronomical_twilight_end": ["2024-01-01T18:54"]
			}
		}`))
	}))
	defer srv.Close()

	day := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	a := newTwilightAdapterForTest(srv)
	events, err := a.Fetch(context.Background(), testLoc, day, day)

	require.NoError(t, err)
	require.Len(t, events, 1)

	got := events[0]
	assert.Equal(t, astro.SourceOpenMeteo, got.Source)
	assert.Equal(t, astro.CategoryTwilight, got.Category)
	assert.Equal(t, day, got.OccursAt)
	require.NotNil(t, got.StartsAt)
	require.NotNil(t, got.EndsAt)
	assert.Equal(t, time.Date(2024, 1, 1, 6, 12, 0, 0, time.UTC), *got.StartsAt)
	assert.Equal(t, time.Date(2024, 1, 1, 18, 54, 0, 0, time.UTC), *got.EndsAt)
	require.NotNil(t, got.Details.Twilight)
	assert.Equal(t, "astronomical", got.Details.Twilight.Kind)
}

func TestTwilightMalformedPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"daily": "unexpected shape"}`))
	}))
	defer srv.Close()

	a := newTwilightAdapterForTest(srv)
	_, err := a.Fetch(context.Background(), testLoc, testFrom, testTo)

	assert.Error(t, err)
}

func TestTwilightSkipsUnparseableDays(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"daily": {
				"time": ["garbage", "2024-01-02"],
				"astronomical_twilight_start": ["2024-01-01T06:12", "2024-01-02T06:13"],
				"astronomical_twilight_end": ["2024-01-01T18:54", "2024-01-02T18:55"]
			}
		}`))
	}))
	defer srv.Close()

	a := newTwilightAdapterForTest(srv)
	events, err := a.Fetch(context.Background(), testLoc, testFrom, testTo)

	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), events[0].OccursAt)
}

func TestTwilightTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // refuse all connections

	a := newTwilightAdapterForTest(srv)
	_, err := a.Fetch(context.Background(), testLoc, testFrom, testTo)

	assert.Error(t, err)
}
