package adapters

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker"

	"github.com/celestiatrack/astro-event-aggregation/internal/astro"
)

// AMSClient holds what the two AMS Meteors adapters share: the API key,
// base URL, and one circuit breaker for the provider.
type AMSClient struct {
	apiKey  string
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

// NewAMSClient creates the shared client for the meteor shower and fireball
// adapters. The API key is required by both; when empty, both adapters skip
// without touching the network.
func NewAMSClient(client *http.Client, apiKey string) *AMSClient {
	return &AMSClient{
		apiKey:  apiKey,
		baseURL: "https://www.amsmeteors.org/members/api/open_api",
		httpCfg: defaultHTTPConfig(client),
		circuit: newCircuitBreaker("amsmeteors"),
	}
}

func (c *AMSClient) get(ctx context.Context, path string, loc astro.Location, from, to time.Time, out interface{}) error {
	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("api_key", c.apiKey)
		values.Set("latitude", fmt.Sprintf("%f", loc.Latitude))
		values.Set("longitude", fmt.Sprintf("%f", loc.Longitude))
		values.Set("start_date", from.UTC().Format("2006-01-02"))
		values.Set("end_date", to.UTC().Format("2006-01-02"))
		values.Set("format", "json")

		u := fmt.Sprintf("%s/%s?%s", c.baseURL, path, values.Encode())
		return http.NewRequest(http.MethodGet, u, nil)
	}

	resp, err := doRequestWithResilience(ctx, c.httpCfg, c.circuit, buildRequest)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

// MeteorShowerAdapter fetches meteor shower activity windows from AMS.
type MeteorShowerAdapter struct {
	name   string
	client *AMSClient
}

func NewMeteorShowerAdapter(client *AMSClient) *MeteorShowerAdapter {
	return &MeteorShowerAdapter{name: "amsmeteors-showers", client: client}
}

func (a *MeteorShowerAdapter) Name() string {
	return a.name
}

func (a *MeteorShowerAdapter) Source() astro.Source {
	return astro.SourceAMSMeteors
}

func (a *MeteorShowerAdapter) Fetch(ctx context.Context, loc astro.Location, from, to time.Time) ([]astro.Event, error) {
	if a.client.apiKey == "" {
		log.Printf("INFO: AMS api key not configured; skipping meteor showers")
		return nil, nil
	}

	var payload struct {
		Result []struct {
			Name        string  `json:"name"`
			PeakDate    string  `json:"peak_date"`
			ZHR         float64 `json:"zhr"`
			Velocity    float64 `json:"velocity"`
			Description string  `json:"description"`
		} `json:"result"`
	}

	if err := a.client.get(ctx, "get_meteor_showers", loc, from, to, &payload); err != nil {
		return nil, err
	}

	events := make([]astro.Event, 0, len(payload.Result))
	for _, shower := range payload.Result {
		occursAt, ok := parseDateOrInstant(shower.PeakDate)
		if !ok || shower.Name == "" {
			continue
		}

		events = append(events, astro.Event{
			ID:       astro.EventID(astro.SourceAMSMeteors, astro.CategoryMeteorShower, shower.Name, occursAt),
			Source:   astro.SourceAMSMeteors,
			Category: astro.CategoryMeteorShower,
			Name:     shower.Name,
			OccursAt: occursAt,
			Location: loc,
			Details: astro.Details{
				MeteorShower: &astro.MeteorShowerDetails{
					ZHR:         shower.ZHR,
					VelocityKmS: shower.Velocity,
					Description: shower.Description,
				},
			},
		})
	}

	return events, nil
}

// FireballAdapter fetches aggregated fireball sighting reports from AMS.
type FireballAdapter struct {
	name   string
	client *AMSClient
}

func NewFireballAdapter(client *AMSClient) *FireballAdapter {
	return &FireballAdapter{name: "amsmeteors-fireballs", client: client}
}

func (a *FireballAdapter) Name() string {
	return a.name
}

func (a *FireballAdapter) Source() astro.Source {
	return astro.SourceAMSMeteors
}

func (a *FireballAdapter) Fetch(ctx context.Context, loc astro.Location, from, to time.Time) ([]astro.Event, error) {
	if a.client.apiKey == "" {
		log.Printf("INFO: AMS api key not configured; skipping fireballs")
		return nil, nil
	}

	var payload struct {
		Result []struct {
			Date         string  `json:"date"`
			NumReports   int     `json:"num_reports"`
			AvgMagnitude float64 `json:"avg_magnitude"`
			Description  string  `json:"description"`
		} `json:"result"`
	}

	if err := a.client.get(ctx, "get_fireballs", loc, from, to, &payload); err != nil {
		return nil, err
	}

	events := make([]astro.Event, 0, len(payload.Result))
	for _, report := range payload.Result {
		occursAt, ok := parseDateOrInstant(report.Date)
		if !ok {
			continue
		}

		name := fmt.Sprintf("Fireball %s", occursAt.Format("2006-01-02"))
		events = append(events, astro.Event{
			ID:       astro.EventID(astro.SourceAMSMeteors, astro.CategoryFireball, name, occursAt),
			Source:   astro.SourceAMSMeteors,
			Category: astro.CategoryFireball,
			Name:     name,
			OccursAt: occursAt,
			Location: loc,
			Details: astro.Details{
				Fireball: &astro.FireballDetails{
					Reports:      report.NumReports,
					AvgMagnitude: report.AvgMagnitude,
					Description:  report.Description,
				},
			},
		})
	}

	return events, nil
}

// parseDateOrInstant accepts both bare dates and full RFC3339 timestamps.
func parseDateOrInstant(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	if ts, err := time.Parse("2006-01-02", s); err == nil {
		return ts.UTC(), true
	}
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return ts.UTC(), true
	}
	return time.Time{}, false
}
