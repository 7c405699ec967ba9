package adapters

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker"

	"github.com/celestiatrack/astro-event-aggregation/internal/astro"
)

// TwilightAdapter fetches daily astronomical twilight windows from
// Open-Meteo. No credential is required.
type TwilightAdapter struct {
	name    string
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

func NewTwilightAdapter(client *http.Client) *TwilightAdapter {
	return &TwilightAdapter{
		name:    "openmeteo",
		baseURL: "https://api.open-meteo.com/v1/astronomy",
		httpCfg: defaultHTTPConfig(client),
		circuit: newCircuitBreaker("openmeteo"),
	}
}

func (a *TwilightAdapter) Name() string {
	return a.name
}

func (a *TwilightAdapter) Source() astro.Source {
	return astro.SourceOpenMeteo
}

func (a *TwilightAdapter) Fetch(ctx context.Context, loc astro.Location, from, to time.Time) ([]astro.Event, error) {
	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("latitude", fmt.Sprintf("%f", loc.Latitude))
		values.Set("longitude", fmt.Sprintf("%f", loc.Longitude))
		values.Set("start_date", from.UTC().Format("2006-01-02"))
		values.Set("end_date", to.UTC().Format("2006-01-02"))
		values.Set("daily", "astronomical_twilight_start,astronomical_twilight_end")
		values.Set("timezone", "UTC")

		u := fmt.Sprintf("%s?%s", a.baseURL, values.Encode())
		return http.NewRequest(http.MethodGet, u, nil)
	}

	resp, err := doRequestWithResilience(ctx, a.httpCfg, a.circuit, buildRequest)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return make([]astro.Event, 0), nil
	}

	// Daily values arrive as parallel arrays indexed by day.
	var payload struct {
		Daily struct {
			Time           []string `json:"time"`
			TwilightStarts []string `json:"astronomical_twilight_start"`
			TwilightEnds   []string `json:"astronomical_twilight_end"`
		} `json:"daily"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, err
	}

	events := make([]astro.Event, 0, len(payload.Daily.Time))
	for i, day := range payload.Daily.Time {
		occursAt, err := time.Parse("2006-01-02", day)
		if err != nil {
			continue
		}
		occursAt = occursAt.UTC()

		var starts, ends *time.Time
		if i < len(payload.Daily.TwilightStarts) {
			starts = parseLocalInstantPtr(payload.Daily.TwilightStarts[i])
		}
		if i < len(payload.Daily.TwilightEnds) {
			ends = parseLocalInstantPtr(payload.Daily.TwilightEnds[i])
		}

		const name = "Astronomical Twilight"
		events = append(events, astro.Event{
			ID:       astro.EventID(astro.SourceOpenMeteo, astro.CategoryTwilight, name, occursAt),
			Source:   astro.SourceOpenMeteo,
			Category: astro.CategoryTwilight,
			Name:     name,
			OccursAt: occursAt,
			StartsAt: starts,
			EndsAt:   ends,
			Location: loc,
			Details: astro.Details{
				Twilight: &astro.TwilightDetails{Kind: "astronomical"},
			},
		})
	}

	return events, nil
}

// parseLocalInstantPtr parses Open-Meteo's minute-granularity ISO timestamps
// ("2024-01-01T05:31"), falling back to RFC3339.
func parseLocalInstantPtr(s string) *time.Time {
	if s == "" {
		return nil
	}
	if ts, err := time.Parse("2006-01-02T15:04", s); err == nil {
		ts = ts.UTC()
		return &ts
	}
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		ts = ts.UTC()
		return &ts
	}
	return nil
}
