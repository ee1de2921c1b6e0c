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

const weatherAPIURL = "https://api.weatherapi.com/v1/current.json"

// WeatherAPIProvider implements weather.Client for WeatherAPI.com.
type WeatherAPIProvider struct {
	name     string
	apiKey   string
	baseURL  string
	client   *http.Client
	circuits *breakerSet
}

func NewWeatherAPIProvider(client *http.Client, apiKey, baseURL string) *WeatherAPIProvider {
	if baseURL == "" {
		baseURL = weatherAPIURL
	}
	return &WeatherAPIProvider{
		name:     "weatherapi",
		apiKey:   apiKey,
		baseURL:  baseURL,
		client:   client,
		circuits: newBreakerSet("weatherapi"),
	}
}

func (p *WeatherAPIProvider) Name() string {
	return p.name
}

func (p *WeatherAPIProvider) Fetch(ctx context.Context, point weather.GeoPoint) weather.WeatherReading {
	ctx, span := tracer.Start(ctx, "weatherapi.current", trace.WithAttributes(
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

func (p *WeatherAPIProvider) currentTemperature(ctx context.Context, point weather.GeoPoint) (float64, error) {
	if p.apiKey == "" {
		return 0, fmt.Errorf("weatherapi: %w", errMissingAPIKey)
	}

	buildRequest := func(ctx context.Context) (*http.Request, error) {
		values := url.Values{}
		values.Set("key", p.apiKey)
		// WeatherAPI takes "lat,lon" in q.
		values.Set("q", fmt.Sprintf("%f,%f", point.Latitude, point.Longitude))

		u := fmt.Sprintf("%s?%s", p.baseURL, values.Encode())
		return http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	}

	resp, err := doRequest(ctx, p.client, p.circuits.forPoint(point), buildRequest)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	var payload struct {
		Current *struct {
			TempC *float64 `json:"temp_c"`
		} `json:"current"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return 0, fmt.Errorf("decode weatherapi response: %w", err)
	}
	if payload.Current == nil || payload.Current.TempC == nil {
		return 0, errMissingField
	}

	return *payload.Current.TempC, nil
}
