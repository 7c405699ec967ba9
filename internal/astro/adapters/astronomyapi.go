package adapters

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/celestiatrack/astro-event-aggregation/internal/astro"
)

// DefaultBodies are the celestial bodies fetched when none are configured.
var DefaultBodies = []string{"sun", "moon", "mercury", "venus", "mars", "jupiter", "saturn"}

// CelestialBodyAdapter fetches rise/set/eclipse events from AstronomyAPI,
// one request per tracked body. Authentication is HTTP Basic with an
// application id/secret pair.
type CelestialBodyAdapter struct {
	name      string
	appID     string
	appSecret string
	baseURL   string
	bodies    []string
	httpCfg   HTTPClientConfig
	circuit   *gobreaker.CircuitBreaker
}

func NewCelestialBodyAdapter(client *http.Client, appID, appSecret string, bodies []string) *CelestialBodyAdapter {
	if len(bodies) == 0 {
		bodies = DefaultBodies
	}
	return &CelestialBodyAdapter{
		name:      "astronomyapi",
		appID:     appID,
		appSecret: appSecret,
		baseURL:   "https://api.astronomyapi.com/api/v2/bodies/events",
		bodies:    bodies,
		httpCfg:   defaultHTTPConfig(client),
		circuit:   newCircuitBreaker("astronomyapi"),
	}
}

func (a *CelestialBodyAdapter) Name() string {
	return a.name
}

func (a *CelestialBodyAdapter) Source() astro.Source {
	return astro.SourceAstronomyAPI
}

func (a *CelestialBodyAdapter) Fetch(ctx context.Context, loc astro.Location, from, to time.Time) ([]astro.Event, error) {
	if a.appID == "" || a.appSecret == "" {
		log.Printf("INFO: astronomyapi credentials not configured; skipping celestial body events")
		return nil, nil
	}

	events := make([]astro.Event, 0)
	for _, body := range a.bodies {
		bodyEvents, err := a.fetchBody(ctx, body, loc, from, to)
		if err != nil {
			return nil, fmt.Errorf("fetch %s events: %w", body, err)
		}
		events = append(events, bodyEvents...)
	}

	return events, nil
}

func (a *CelestialBodyAdapter) fetchBody(ctx context.Context, body string, loc astro.Location, from, to time.Time) ([]astro.Event, error) {
	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("latitude", fmt.Sprintf("%f", loc.Latitude))
		values.Set("longitude", fmt.Sprintf("%f", loc.Longitude))
		values.Set("elevation", "0")
		values.Set("from_date", from.UTC().Format("2006-01-02"))
		values.Set("to_date", to.UTC().Format("2006-01-02"))
		values.Set("time", "00:00:00")
		values.Set("output", "rows")

		u := fmt.Sprintf("%s/%s?%s", a.baseURL, body, values.Encode())
		req, err := http.NewRequest(http.MethodGet, u, nil)
		if err != nil {
			return nil, err
		}
		req.SetBasicAuth(a.appID, a.appSecret)
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	}

	resp, err := doRequestWithResilience(ctx, a.httpCfg, a.circuit, buildRequest)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	// The API answers 404 for bodies with no events in range.
	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}

	var payload struct {
		Data struct {
			Rows []struct {
				Body struct {
					ID   string `json:"id"`
					Name string `json:"name"`
				} `json:"body"`
				Events []struct {
					Type            string `json:"type"`
					Rise            string `json:"rise"`
					Set             string `json:"set"`
					EventHighlights struct {
						Peak struct {
							Date     string   `json:"date"`
							Altitude *float64 `json:"altitude"`
						} `json:"peak"`
					} `json:"eventHighlights"`
					ExtraInfo struct {
						Obscuration *float64 `json:"obscuration"`
					} `json:"extraInfo"`
				} `json:"events"`
			} `json:"rows"`
		} `json:"data"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, err
	}

	var events []astro.Event
	for _, row := range payload.Data.Rows {
		bodyName := row.Body.Name
		if bodyName == "" && body != "" {
			bodyName = strings.ToUpper(body[:1]) + body[1:]
		}

		for _, ev := range row.Events {
			occursAt, ok := parseInstant(ev.EventHighlights.Peak.Date)
			if !ok {
				// A row without a peak instant cannot be placed on the
				// timeline; fall back to rise time before giving up.
				if occursAt, ok = parseInstant(ev.Rise); !ok {
					log.Printf("astronomyapi: %s event %q has no usable timestamp; dropping", bodyName, ev.Type)
					continue
				}
			}

			name := fmt.Sprintf("%s %s", bodyName, strings.ReplaceAll(ev.Type, "_", " "))

			events = append(events, astro.Event{
				ID:       astro.EventID(astro.SourceAstronomyAPI, astro.CategoryCelestialBody, name, occursAt),
				Source:   astro.SourceAstronomyAPI,
				Category: astro.CategoryCelestialBody,
				Name:     name,
				OccursAt: occursAt,
				Location: loc,
				Details: astro.Details{
					CelestialBody: &astro.CelestialBodyDetails{
						Body:        bodyName,
						EventType:   ev.Type,
						RiseTime:    parseInstantPtr(ev.Rise),
						SetTime:     parseInstantPtr(ev.Set),
						Altitude:    ev.EventHighlights.Peak.Altitude,
						Obscuration: ev.ExtraInfo.Obscuration,
					},
				},
			})
		}
	}

	return events, nil
}

// parseInstant parses the API's RFC3339 timestamps.
func parseInstant(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	ts, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, false
	}
	return ts.UTC(), true
}

func parseInstantPtr(s string) *time.Time {
	ts, ok := parseInstant(s)
	if !ok {
		return nil
	}
	return &ts
}
