package providers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"

	"github.com/i474232898/city-weather/internal/metrics"
	"github.com/i474232898/city-weather/internal/weather"
)

var (
	errServerError   = errors.New("server error")
	errUnexpected    = errors.New("unexpected status code")
	errCircuitOpen   = errors.New("circuit breaker open")
	errNoHTTPClient  = errors.New("http client not configured")
	errMissingField  = errors.New("response is missing the temperature field")
	errMissingAPIKey = errors.New("api key is not configured")
)

var tracer = otel.Tracer("github.com/i474232898/city-weather/internal/weather/providers")

// Options configures provider construction.
type Options struct {
	// BaseURL overrides the provider's default endpoint.
	BaseURL string

	OpenWeatherAPIKey string
	WeatherAPIKey     string
}

// New returns the weather.Client registered under name.
func New(name string, client *http.Client, opts Options) (weather.Client, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "openmeteo", "open-meteo":
		return NewOpenMeteoProvider(client, opts.BaseURL), nil
	case "openweather", "openweathermap":
		return NewOpenWeatherProvider(client, opts.OpenWeatherAPIKey, opts.BaseURL), nil
	case "weatherapi":
		return NewWeatherAPIProvider(client, opts.WeatherAPIKey, opts.BaseURL), nil
	default:
		return nil, fmt.Errorf("unknown weather provider %q", name)
	}
}

// breakerSet holds one circuit breaker per point, so a point whose upstream
// keeps failing cannot open the circuit for any other point.
type breakerSet struct {
	provider string

	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker
}

func newBreakerSet(provider string) *breakerSet {
	return &breakerSet{
		provider: provider,
		breakers: make(map[string]*gobreaker.CircuitBreaker),
	}
}

// forPoint returns the breaker for point, creating it on first use.
func (b *breakerSet) forPoint(point weather.GeoPoint) *gobreaker.CircuitBreaker {
	key := point.Label()

	b.mu.Lock()
	defer b.mu.Unlock()

	cb, ok := b.breakers[key]
	if !ok {
		cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        b.provider + ":" + key,
			MaxRequests: 1,
			Interval:    1 * time.Minute,
			Timeout:     2 * time.Minute,
		})
		b.breakers[key] = cb
	}
	return cb
}

// doRequest executes a single request through the circuit breaker. Transport
// errors and 5xx responses count against the breaker; any other non-2xx status
// is reported to the caller without tripping it. There are no retries.
func doRequest(
	ctx context.Context,
	client *http.Client,
	cb *gobreaker.CircuitBreaker,
	buildRequest func(ctx context.Context) (*http.Request, error),
) (*http.Response, error) {
	if client == nil {
		return nil, errNoHTTPClient
	}

	req, err := buildRequest(ctx)
	if err != nil {
		return nil, err
	}

	result, err := cb.Execute(func() (interface{}, error) {
		resp, execErr := client.Do(req)
		if execErr != nil {
			return nil, execErr
		}
		if resp.StatusCode >= 500 {
			drain(resp)
			return nil, fmt.Errorf("%w: %d", errServerError, resp.StatusCode)
		}
		return resp, nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: %v", errCircuitOpen, err)
		}
		return nil, err
	}

	resp, ok := result.(*http.Response)
	if !ok {
		return nil, fmt.Errorf("unexpected result type from circuit breaker")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		drain(resp)
		return nil, fmt.Errorf("%w: %d", errUnexpected, resp.StatusCode)
	}
	return resp, nil
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
}

// toReading folds a fetch outcome into a reading, logging and counting failures.
func toReading(provider string, point weather.GeoPoint, temperatureC float64, err error) weather.WeatherReading {
	if err != nil {
		metrics.PointFetches.WithLabelValues(provider, "error").Inc()
		slog.Warn("point fetch failed",
			"provider", provider,
			"label", point.Label(),
			"error", err,
		)
		return weather.NewErrorReading(point.Label())
	}

	metrics.PointFetches.WithLabelValues(provider, "ok").Inc()
	return weather.NewTemperatureReading(point.Label(), temperatureC)
}
