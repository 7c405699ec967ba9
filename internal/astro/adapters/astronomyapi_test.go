package adapters

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/celestiatrack/astro-event-aggregation/internal/astro"
)

var (
	testLoc  = astro.Location{Latitude: 38.775867, Longitude: -84.39733}
	testFrom = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	testTo   = time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)
)

func newCelestialAdapterForTest(srv *httptest.Server, appID, appSecret string) *CelestialBodyAdapter {
	a := NewCelestialBodyAdapter(srv.Client(), appID, appSecret, []string{"moon"})
	a.baseURL = srv.URL
	a.httpCfg.Backoff.MaxRetries = 0
	a.httpCfg.Backoff.InitialInterval = time.Millisecond
	return a
}

func TestCelestialBodySkipsWithoutCredentials(t *testing.T) {
	var requests int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&requests, 1)
	}))
	defer srv.Close()

	a := newCelestialAdapterForTest(srv, "", "")
	events, err := a.Fetch(context.Background(), testLoc, testFrom, testTo)

	require.NoError(t, err)
	assert.Nil(t, events)
	assert.Zero(t, atomic.LoadInt64(&requests), "missing credentials must not trigger HTTP calls")
}

func TestCelestialBodyFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		require.True(t, ok, "expected basic auth")
		assert.Equal(t, "app-id", user)
		assert.Equal(t, "app-secret", pass)

		q := r.URL.Query()
		assert.Equal(t, "38.775867", q.Get("latitude"))
		assert.Equal(t, "-84.397330", q.Get("longitude"))
		assert.Equal(t, "2024-01-01", q.Get("from_date"))
		assert.Equal(t, "2024-12-31", q.Get("to_date"))
		assert.Equal(t, "rows", q.Get("output"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"data": {
				"rows": [{
					"body": {"id": "moon", "name": "Moon"},
					"events": [{
						"type": "partial_lunar_eclipse",
						"rise": "2024-04-08T10:00:00Z",
						"set": "2024-04-08T23:00:00Z",
						"eventHighlights": {"peak": {"date": "2024-04-08T18:17:00Z", "altitude": 49.5}},
						"extraInfo": {"obscuration": 0.87}
					}]
				}]
			}
		}`))
	}))
	defer srv.Close()

	a := newCelestialAdapterForTest(srv, "app-id", "app-secret")
	events, err := a.Fetch(context.Background(), testLoc, testFrom, testTo)

	require.NoError(t, err)
	require.Len(t, events, 1)

	got := events[0]
	assert.Equal(t, astro.SourceAstronomyAPI, got.Source)
	assert.Equal(t, astro.CategoryCelestialBody, got.Category)
	assert.Equal(t, "Moon partial lunar eclipse", got.Name)
	assert.Equal(t, time.Date(2024, 4, 8, 18, 17, 0, 0, time.UTC), got.OccursAt)

	require.NotNil(t, got.Details.CelestialBody)
	details := got.Details.CelestialBody
	assert.Equal(t, "Moon", details.Body)
	assert.Equal(t, "partial_lunar_eclipse", details.EventType)
	require.NotNil(t, details.RiseTime)
	assert.Equal(t, time.Date(2024, 4, 8, 10, 0, 0, 0, time.UTC), *details.RiseTime)
	require.NotNil(t, details.Obscuration)
	assert.InDelta(t, 0.87, *details.Obscuration, 1e-9)
}

func TestCelestialBodyNotFoundMeansNoEvents(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	}))
	defer srv.Close()

	a := newCelestialAdapterForTest(srv, "app-id", "app-secret")
	events, err := a.Fetch(context.Background(), testLoc, testFrom, testTo)

	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestCelestialBodyMalformedPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>definitely not json</html>"))
	}))
	defer srv.Close()

	a := newCelestialAdapterForTest(srv, "app-id", "app-secret")
	_, err := a.Fetch(context.Background(), testLoc, testFrom, testTo)

	assert.Error(t, err)
}

func TestCelestialBodyServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	a := newCelestialAdapterForTest(srv, "app-id", "app-secret")
	_, err := a.Fetch(context.Background(), testLoc, testFrom, testTo)

	assert.Error(t, err)
}
