package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setLocation(t *testing.T) {
	t.Helper()
	t.Setenv("ASTRO_LATITUDE", "38.775867")
	t.Setenv("ASTRO_LONGITUDE", "-84.39733")
}

func TestLoadDefaults(t *testing.T) {
	setLocation(t)
	t.Setenv("ASTRONOMY_API_APP_ID", "")
	t.Setenv("ASTRONOMY_API_APP_SECRET", "")
	t.Setenv("AMS_API_KEY", "")
	t.Setenv("FETCH_INTERVAL", "")
	t.Setenv("STORE_DRIVER", "")
	t.Setenv("PORT", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 6*time.Hour, cfg.FetchInterval)
	assert.Equal(t, 10*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, "sqlite", cfg.StoreDriver)
	assert.Equal(t, "8080", cfg.Port)
	assert.Empty(t, cfg.AMSAPIKey, "missing credentials are feature switches, not errors")
	assert.InDelta(t, 38.775867, cfg.Location.Latitude, 1e-9)
	assert.InDelta(t, -84.39733, cfg.Location.Longitude, 1e-9)
}

func TestLoadRequiresLocation(t *testing.T) {
	t.Setenv("ASTRO_LATITUDE", "")
	t.Setenv("ASTRO_LONGITUDE", "")
	t.Setenv("ASTRO_LOCATION_CITY", "")
	t.Setenv("GEOCODER_API_KEY", "")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadParsesCelestialBodies(t *testing.T) {
	setLocation(t)
	t.Setenv("CELESTIAL_BODIES", "Sun, Moon ,mars")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"sun", "moon", "mars"}, cfg.CelestialBodies)
}

func TestLoadRejectsUnknownStoreDriver(t *testing.T) {
	setLocation(t)
	t.Setenv("STORE_DRIVER", "cassandra")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadPostgresRequiresDSN(t *testing.T) {
	setLocation(t)
	t.Setenv("STORE_DRIVER", "postgres")
	t.Setenv("DATABASE_URL", "")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadRejectsInvalidInterval(t *testing.T) {
	setLocation(t)
	t.Setenv("FETCH_INTERVAL", "often")

	_, err := Load()
	assert.Error(t, err)
}
