package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/sunshine-wear/internal/weather"
)

func setCompanionEnv(t *testing.T) {
	t.Setenv("WEATHER_LOCATION_CITY", "London")
	t.Setenv("WEATHER_LOCATION_COUNTRY", "UK")
	t.Setenv("PAIRING_SECRET", "correct-horse")
}

func TestLoadCompanionDefaults(t *testing.T) {
	setCompanionEnv(t)

	cfg, err := LoadCompanion()
	require.NoError(t, err)
	assert.Equal(t, weather.Location{City: "London", Country: "UK"}, cfg.Location)
	assert.Equal(t, weather.UnitsMetric, cfg.Units)
	assert.Equal(t, 3*time.Hour, cfg.FetchInterval)
	assert.Equal(t, "memory", cfg.StoreDriver)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, ":8081", cfg.WearListenAddr)
	assert.NotEmpty(t, cfg.NodeID)
}

func TestLoadCompanionRejectsBadValues(t *testing.T) {
	tests := []struct {
		name, key, value string
	}{
		{"units", "UNITS", "kelvin"},
		{"interval", "FETCH_INTERVAL", "often"},
		{"driver", "STORE_DRIVER", "postgres"},
		{"sqlite without path", "STORE_DRIVER", "sqlite"},
		{"short secret", "PAIRING_SECRET", "abc"},
		{"city", "WEATHER_LOCATION_CITY", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setCompanionEnv(t)
			t.Setenv(tt.key, tt.value)
			_, err := LoadCompanion()
			require.Error(t, err)
		})
	}
}

func TestLoadWearable(t *testing.T) {
	t.Setenv("PAIRING_SECRET", "correct-horse")
	t.Setenv("COMPANION_URL", "ws://phone.local:8081/wear")
	t.Setenv("NODE_ID", "watch-1")
	t.Setenv("REDRAW_INTERVAL", "500ms")

	cfg, err := LoadWearable()
	require.NoError(t, err)
	assert.Equal(t, "ws://phone.local:8081/wear", cfg.CompanionURL)
	assert.Equal(t, "watch-1", cfg.NodeID)
	assert.Equal(t, 500*time.Millisecond, cfg.RedrawInterval)

	t.Setenv("PAIRING_SECRET", "")
	_, err = LoadWearable()
	require.Error(t, err)
}
