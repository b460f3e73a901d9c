package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang/glog"
	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/i474232898/sunshine-wear/internal/weather"
)

var validate = validator.New()

// CompanionConfig configures the phone side.
type CompanionConfig struct {
	OpenWeatherAPIKey string
	WeatherAPIKey     string
	GeocoderAPIKey    string

	Location weather.Location
	Units    weather.Units `validate:"oneof=metric imperial"`

	// FetchInterval controls how often today's forecast is refreshed.
	FetchInterval time.Duration `validate:"gt=0"`
	HTTPTimeout   time.Duration `validate:"gt=0"`

	StoreDriver  string `validate:"oneof=memory sqlite"`
	StorePath    string `validate:"required_if=StoreDriver sqlite"`
	StoreMaxDays int    `validate:"gte=0"` // 0 = unlimited

	Port           string `validate:"required,numeric"`
	WearListenAddr string `validate:"required"`

	PairingSecret string `validate:"required,min=8"`
	NodeID        string `validate:"required"`
	NodeName      string
}

// WearableConfig configures the watch side.
type WearableConfig struct {
	CompanionURL   string `validate:"required,url"`
	PairingSecret  string `validate:"required,min=8"`
	NodeID         string `validate:"required"`
	NodeName       string
	RedrawInterval time.Duration `validate:"gt=0"`
}

// loadEnv reads .env if present. Real environment variables win.
func loadEnv() {
	if err := godotenv.Load(); err != nil {
		glog.V(1).Infof("config: no .env file loaded: %v", err)
	}
}

// LoadCompanion reads the companion configuration from the environment.
func LoadCompanion() (*CompanionConfig, error) {
	loadEnv()
	cfg := &CompanionConfig{}

	cfg.OpenWeatherAPIKey = os.Getenv("OPENWEATHER_API_KEY")
	cfg.WeatherAPIKey = os.Getenv("WEATHERAPI_API_KEY")
	cfg.GeocoderAPIKey = os.Getenv("GEOCODER_API_KEY")

	cfg.Location = weather.Location{
		City:    os.Getenv("WEATHER_LOCATION_CITY"),
		Country: os.Getenv("WEATHER_LOCATION_COUNTRY"),
	}
	cfg.Units = weather.Units(getenvDefault("UNITS", string(weather.UnitsMetric)))

	var err error
	// Sunshine synced every three hours.
	if cfg.FetchInterval, err = getenvDuration("FETCH_INTERVAL", 3*time.Hour); err != nil {
		return nil, err
	}
	if cfg.HTTPTimeout, err = getenvDuration("HTTP_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}

	cfg.StoreDriver = getenvDefault("STORE_DRIVER", "memory")
	cfg.StorePath = getenvDefault("STORE_PATH", "")
	cfg.StoreMaxDays = getenvInt("STORE_MAX_DAYS", 14)

	cfg.Port = getenvDefault("PORT", "8080")
	cfg.WearListenAddr = getenvDefault("WEAR_LISTEN_ADDR", ":8081")

	cfg.PairingSecret = os.Getenv("PAIRING_SECRET")
	cfg.NodeID = getenvDefault("NODE_ID", uuid.NewString())
	cfg.NodeName = getenvDefault("NODE_NAME", "companion")

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid companion config: %w", err)
	}
	if cfg.Location.City == "" || cfg.Location.Country == "" {
		return nil, fmt.Errorf("WEATHER_LOCATION_CITY and WEATHER_LOCATION_COUNTRY are required")
	}
	return cfg, nil
}

// LoadWearable reads the wearable configuration from the environment.
func LoadWearable() (*WearableConfig, error) {
	loadEnv()
	cfg := &WearableConfig{}

	cfg.CompanionURL = getenvDefault("COMPANION_URL", "ws://localhost:8081/wear")
	cfg.PairingSecret = os.Getenv("PAIRING_SECRET")
	cfg.NodeID = getenvDefault("NODE_ID", uuid.NewString())
	cfg.NodeName = getenvDefault("NODE_NAME", "wearable")

	var err error
	if cfg.RedrawInterval, err = getenvDuration("REDRAW_INTERVAL", time.Second); err != nil {
		return nil, err
	}

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid wearable config: %w", err)
	}
	return cfg, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
		glog.Warningf("config: ignoring invalid %s=%q", key, v)
	}
	return def
}

func getenvDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
