package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/i474232898/city-weather/internal/weather"
)

const openMeteoURL = "https://api.open-meteo.com/v1/forecast"

// OpenMeteoProvider implements weather.Client against Open-Meteo's forecast
// endpoint in current_weather mode. It needs no API key.
type OpenMeteoProvider struct {
	name     string
	baseURL  string
	client   *http.Client
	circuits *breakerSet
}

// NewOpenMeteoProvider creates a provider. An empty baseURL selects the public API.
func NewOpenMeteoProvider(client *http.Client, baseURL string) *OpenMeteoProvider {
	if baseURL == "" {
		baseURL = openMeteoURL
	}
	return &OpenMeteoProvider{
		name:     "openmeteo",
		baseURL:  baseURL,
		client:   client,
		circuits: newBreakerSet("openmeteo"),
	}
}

func (p *OpenMeteoProvider) Name() string {
	return p.name
}

// Fetch never returns an error; failures become an error reading.
func (p *OpenMeteoProvider) Fetch(ctx context.Context, point weather.GeoPoint) weather.WeatherReading {
	ctx, span := tracer.Start(ctx, "openmeteo.current", trace.WithAttributes(
		attribute.String("point.label", point.Label()),
	))
	defer span.End()

	temp, err := p.currentTemperature(ctx, point)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "fetch failed")
	}
	return toReading(p.name, point, temp, err)
}

func (p *OpenMeteoProvider) currentTemperature(ctx context.Context, point weather.GeoPoint) (float64, error) {
	buildRequest := func(ctx context.Context) (*http.Request, error) {
		values := url.Values{}
		values.Set("latitude", fmt.Sprintf("%f", point.Latitude))
		values.Set("longitude", fmt.Sprintf("%f", point.Longitude))
		values.Set("current_weather", "true")

		u := fmt.Sprintf("%s?%s", p.baseURL, values.Encode())
		return http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	}

	resp, err := doRequest(ctx, p.client, p.circuits.forPoint(point), buildRequest)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	var payload struct {
		CurrentWeather *struct {
			Temperature *float64 `json:"temperature"`
		} `json:"current_weather"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return 0, fmt.Errorf("decode openmeteo response: %w", err)
	}
	if payload.CurrentWeather == nil || payload.CurrentWeather.Temperature == nil {
		return 0, errMissingField
	}

	return *payload.CurrentWeather.Temperature, nil
}
