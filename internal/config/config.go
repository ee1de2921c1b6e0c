package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/joho/godotenv"
)

type AppConfig struct {
	Port        string
	ServiceName string

	// PointsFile is the delimited file listing the points to track.
	PointsFile      string
	PointsDelimiter rune

	// Provider selects the weather backend: openmeteo (default), openweather or weatherapi.
	Provider          string
	ProviderURL       string
	OpenWeatherAPIKey string
	WeatherAPIKey     string

	// HTTPTimeout bounds each outbound call; RefreshTimeout bounds a whole batch.
	HTTPTimeout    time.Duration
	RefreshTimeout time.Duration

	// RefreshInterval enables periodic refreshes when positive.
	RefreshInterval time.Duration

	LogLevel  string
	LogFormat string

	// ZipkinURL enables trace export when set.
	ZipkinURL string
}

// Load reads configuration from the environment (and an optional .env file)
// with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file loaded", "error", err)
	}
	cfg := &AppConfig{}

	cfg.Port = getenvDefault("PORT", "8080")
	cfg.ServiceName = getenvDefault("SERVICE_NAME", "city-weather")

	cfg.PointsFile = getenvDefault("POINTS_FILE", "europe.csv")
	delim := getenvDefault("POINTS_DELIMITER", ",")
	r, size := utf8.DecodeRuneInString(delim)
	if r == utf8.RuneError || size != len(delim) {
		return nil, fmt.Errorf("invalid POINTS_DELIMITER %q: must be a single character", delim)
	}
	cfg.PointsDelimiter = r

	cfg.Provider = getenvDefault("WEATHER_PROVIDER", "openmeteo")
	cfg.ProviderURL = os.Getenv("WEATHER_PROVIDER_URL")
	cfg.OpenWeatherAPIKey = os.Getenv("OPENWEATHER_API_KEY")
	cfg.WeatherAPIKey = os.Getenv("WEATHERAPI_API_KEY")

	var err error
	if cfg.HTTPTimeout, err = getenvDuration("HTTP_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.RefreshTimeout, err = getenvDuration("REFRESH_TIMEOUT", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.RefreshInterval, err = getenvDuration("REFRESH_INTERVAL", 0); err != nil {
		return nil, err
	}

	cfg.LogLevel = getenvDefault("LOG_LEVEL", "info")
	cfg.LogFormat = getenvDefault("LOG_FORMAT", "json")
	cfg.ZipkinURL = os.Getenv("ZIPKIN_URL")

	if _, err := strconv.Atoi(cfg.Port); err != nil {
		return nil, fmt.Errorf("invalid PORT %q: %w", cfg.Port, err)
	}

	return cfg, nil
}

// ServerWriteTimeout is the response write limit for the HTTP server. /update
// waits for a whole batch, so the limit follows RefreshTimeout. A zero
// RefreshTimeout leaves batches unbounded and the result is zero (no limit).
func (c *AppConfig) ServerWriteTimeout() time.Duration {
	if c.RefreshTimeout <= 0 {
		return 0
	}
	return c.RefreshTimeout + 10*time.Second
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
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
	if d < 0 {
		return 0, fmt.Errorf("invalid %s: must not be negative", key)
	}
	return d, nil
}
