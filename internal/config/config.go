package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelvins/geocoder"

	"github.com/celestiatrack/astro-event-aggregation/internal/astro"
)

type AppConfig struct {
	// AstronomyAPI Basic auth credentials. Empty disables the celestial
	// body adapter.
	AstronomyAppID     string
	AstronomyAppSecret string

	// AMS Meteors API key. Empty disables the meteor shower and fireball
	// adapters.
	AMSAPIKey string

	// Observer position all events are fetched for.
	Location astro.Location

	// Celestial bodies tracked by the AstronomyAPI adapter.
	CelestialBodies []string

	// FetchInterval controls how often the scheduler runs an aggregation.
	FetchInterval time.Duration

	// HTTPTimeout bounds each outbound provider request.
	HTTPTimeout time.Duration

	StoreDriver string // memory | sqlite | postgres
	SQLitePath  string
	DatabaseURL string

	Port string
}

// Load reads configuration from environment with sensible defaults.
// Missing credentials are feature switches, not errors; a missing location
// is fatal because every adapter needs one.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}
	cfg := &AppConfig{}

	cfg.AstronomyAppID = os.Getenv("ASTRONOMY_API_APP_ID")
	cfg.AstronomyAppSecret = os.Getenv("ASTRONOMY_API_APP_SECRET")
	cfg.AMSAPIKey = os.Getenv("AMS_API_KEY")

	interval, err := getenvDuration("FETCH_INTERVAL", "6h")
	if err != nil {
		return nil, fmt.Errorf("invalid FETCH_INTERVAL: %w", err)
	}
	cfg.FetchInterval = interval

	timeout, err := getenvDuration("HTTP_TIMEOUT", "10s")
	if err != nil {
		return nil, fmt.Errorf("invalid HTTP_TIMEOUT: %w", err)
	}
	cfg.HTTPTimeout = timeout

	cfg.StoreDriver = getenvDefault("STORE_DRIVER", "sqlite")
	switch cfg.StoreDriver {
	case "memory", "sqlite", "postgres":
	default:
		return nil, fmt.Errorf("invalid STORE_DRIVER %q", cfg.StoreDriver)
	}
	cfg.SQLitePath = getenvDefault("SQLITE_PATH", "astro-events.db")
	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.StoreDriver == "postgres" && cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("STORE_DRIVER=postgres requires DATABASE_URL")
	}

	cfg.Port = getenvDefault("PORT", "8080")

	bodies := strings.Split(getenvDefault("CELESTIAL_BODIES", ""), ",")
	for _, b := range bodies {
		if b = strings.TrimSpace(b); b != "" {
			cfg.CelestialBodies = append(cfg.CelestialBodies, strings.ToLower(b))
		}
	}

	loc, err := loadLocation()
	if err != nil {
		return nil, err
	}
	cfg.Location = loc

	return cfg, nil
}

// loadLocation resolves the observer position from ASTRO_LATITUDE and
// ASTRO_LONGITUDE, or geocodes ASTRO_LOCATION_CITY when coordinates are
// absent and a geocoder key is available.
func loadLocation() (astro.Location, error) {
	latStr := os.Getenv("ASTRO_LATITUDE")
	lonStr := os.Getenv("ASTRO_LONGITUDE")

	if latStr != "" && lonStr != "" {
		lat, err := strconv.ParseFloat(latStr, 64)
		if err != nil {
			return astro.Location{}, fmt.Errorf("invalid ASTRO_LATITUDE: %w", err)
		}
		lon, err := strconv.ParseFloat(lonStr, 64)
		if err != nil {
			return astro.Location{}, fmt.Errorf("invalid ASTRO_LONGITUDE: %w", err)
		}
		return astro.Location{Latitude: lat, Longitude: lon}, nil
	}

	city := os.Getenv("ASTRO_LOCATION_CITY")
	geocoderKey := os.Getenv("GEOCODER_API_KEY")
	if city == "" || geocoderKey == "" {
		return astro.Location{}, fmt.Errorf("location is not configured: set ASTRO_LATITUDE/ASTRO_LONGITUDE, or ASTRO_LOCATION_CITY with GEOCODER_API_KEY")
	}

	geocoder.ApiKey = geocoderKey
	address := geocoder.Address{
		City:    city,
		Country: os.Getenv("ASTRO_LOCATION_COUNTRY"),
	}
	location, err := geocoder.Geocoding(address)
	if err != nil {
		return astro.Location{}, fmt.Errorf("geocode %q: %w", city, err)
	}

	log.Printf("INFO: geocoded %q to %.6f,%.6f", city, location.Latitude, location.Longitude)
	return astro.Location{Latitude: location.Latitude, Longitude: location.Longitude}, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvDuration(key, def string) (time.Duration, error) {
	return time.ParseDuration(getenvDefault(key, def))
}
