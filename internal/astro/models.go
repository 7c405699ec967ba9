package astro

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// Source identifies the upstream API an event was fetched from.
type Source string

const (
	SourceAstronomyAPI Source = "astronomy_api"
	SourceOpenMeteo    Source = "open_meteo"
	SourceAMSMeteors   Source = "ams_meteors"
)

// Category is the normalized kind of an astronomical event.
type Category string

const (
	CategoryCelestialBody Category = "celestial_body"
	CategoryTwilight      Category = "twilight"
	CategoryMeteorShower  Category = "meteor_shower"
	CategoryFireball      Category = "fireball"
)

// Location is the observer position events are fetched for.
// Single fixed location per deployment.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Key returns a canonical string key for this location.
func (l Location) Key() string {
	return fmt.Sprintf("%.6f:%.6f", l.Latitude, l.Longitude)
}

// Event is the normalized record every adapter produces.
// Point events carry only OccursAt; window events (twilight) additionally
// carry StartsAt/EndsAt.
type Event struct {
	ID       string     `json:"id"`
	Source   Source     `json:"source"`
	Category Category   `json:"category"`
	Name     string     `json:"name"`
	OccursAt time.Time  `json:"occursAt"` // always UTC
	StartsAt *time.Time `json:"startsAt,omitempty"`
	EndsAt   *time.Time `json:"endsAt,omitempty"`
	Location Location   `json:"location"`
	Details  Details    `json:"details"`
}

// Key returns the natural key (source, category, name, date) that scopes
// upserts. Two fetches of the same logical event must yield the same key.
func (e Event) Key() string {
	return string(e.Source) + "|" + string(e.Category) + "|" + e.Name + "|" + e.OccursAt.UTC().Format("2006-01-02")
}

// Date returns the date portion of OccursAt in UTC.
func (e Event) Date() string {
	return e.OccursAt.UTC().Format("2006-01-02")
}

// EventID produces a deterministic ID from the natural key fields.
// Deterministic IDs keep upserts idempotent across repeated fetches.
func EventID(source Source, category Category, name string, occursAt time.Time) string {
	key := string(source) + "|" + string(category) + "|" + name + "|" + occursAt.UTC().Format("2006-01-02")
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])[:16]
}

// Details carries the source-specific payload of an event. Exactly one
// variant is set, matching the event's category.
type Details struct {
	CelestialBody *CelestialBodyDetails `json:"celestialBody,omitempty"`
	Twilight      *TwilightDetails      `json:"twilight,omitempty"`
	MeteorShower  *MeteorShowerDetails  `json:"meteorShower,omitempty"`
	Fireball      *FireballDetails      `json:"fireball,omitempty"`
}

// CelestialBodyDetails describes a rise/set/eclipse style event for one body.
type CelestialBodyDetails struct {
	Body        string     `json:"body"`
	EventType   string     `json:"eventType"`
	RiseTime    *time.Time `json:"riseTime,omitempty"`
	SetTime     *time.Time `json:"setTime,omitempty"`
	Altitude    *float64   `json:"altitude,omitempty"`
	Obscuration *float64   `json:"obscuration,omitempty"`
}

// TwilightDetails describes a twilight window.
type TwilightDetails struct {
	Kind string `json:"kind"` // e.g. "astronomical"
}

// MeteorShowerDetails describes a meteor shower around its peak.
type MeteorShowerDetails struct {
	ZHR         float64 `json:"zhr,omitempty"`
	VelocityKmS float64 `json:"velocityKmS,omitempty"`
	Description string  `json:"description,omitempty"`
}

// FireballDetails describes aggregated fireball sightings for a day.
type FireballDetails struct {
	Reports      int     `json:"reports"`
	AvgMagnitude float64 `json:"avgMagnitude,omitempty"`
	Description  string  `json:"description,omitempty"`
}
