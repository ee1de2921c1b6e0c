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

const openWeatherURL = "https://api.openweathermap.org/data/2.5/weather"

// OpenWeatherProvider implements weather.Client for OpenWeatherMap.
type OpenWeatherProvider struct {
	name     string
	apiKey   string
	baseURL  string
	client   *http.Client
	circuits *breakerSet
}

func NewOpenWeatherProvider(client *http.Client, apiKey, baseURL string) *OpenWeatherProvider {
	if baseURL == "" {
		baseURL = openWeatherURL
	}
	return &OpenWeatherProvider{
		name:     "openweathermap",
		apiKey:   apiKey,
		baseURL:  baseURL,
		client:   client,
		circuits: newBreakerSet("openweather"),
	}
}

func (p *OpenWeatherProvider) Name() string {
	return p.name
}

func (p *OpenWeatherProvider) Fetch(ctx context.Context, point weather.GeoPoint) weather.WeatherReading {
	ctx, span := tracer.Start(ctx, "openweather.current", trace.WithAttributes(
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

func (p *OpenWeatherProvider) currentTemperature(ctx context.Context, point weather.GeoPoint) (float64, error) {
	if p.apiKey == "" {
		return 0, fmt.Errorf("openweather: %w", errMissingAPIKey)
	}

	buildRequest := func(ctx context.Context) (*http.Request, error) {
		values := url.Values{}
		values.Set("appid", p.apiKey)
		values.Set("units", "metric")
		values.Set("lat", fmt.Sprintf("%f", point.Latitude))
		values.Set("lon", fmt.Sprintf("%f", point.Longitude))

		u := fmt.Sprintf("%s?%s", p.baseURL, values.Encode())
		return http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	}

	resp, err := doRequest(ctx, p.client, p.circuits.forPoint(point), buildRequest)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	var payload struct {
		Main *struct {
			Temp *float64 `json:"temp"`
		} `json:"main"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return 0, fmt.Errorf("decode openweather response: %w", err)
	}
	if payload.Main == nil || payload.Main.Temp == nil {
		return 0, errMissingField
	}

	return *payload.Main.Temp, nil
}
