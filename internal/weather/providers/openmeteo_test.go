package providers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/i474232898/city-weather/internal/weather"
)

var paris = weather.GeoPoint{Name: "Paris", Country: "FR", Latitude: 48.85, Longitude: 2.35}

func newUpstream(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func expectError(t *testing.T, r weather.WeatherReading) {
	t.Helper()
	if r.OK() || r.Error != weather.ErrorMarker || r.Temperature != nil {
		t.Fatalf("expected error reading, got %+v", r)
	}
	if r.Label != "Paris, FR" {
		t.Fatalf("expected label to be kept on error, got %q", r.Label)
	}
}

func TestOpenMeteo_Success(t *testing.T) {
	srv := newUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("current_weather") != "true" {
			t.Errorf("expected current_weather=true, got %q", q.Get("current_weather"))
		}
		lat, _ := strconv.ParseFloat(q.Get("latitude"), 64)
		lon, _ := strconv.ParseFloat(q.Get("longitude"), 64)
		if lat != 48.85 || lon != 2.35 {
			t.Errorf("unexpected coordinates %v,%v", lat, lon)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"latitude":48.85,"current_weather":{"temperature":12.5,"windspeed":3.1}}`))
	})

	p := NewOpenMeteoProvider(srv.Client(), srv.URL)
	r := p.Fetch(context.Background(), paris)
	if !r.OK() {
		t.Fatalf("expected temperature, got %+v", r)
	}
	if *r.Temperature != 12.5 || r.Label != "Paris, FR" {
		t.Fatalf("unexpected reading %+v", r)
	}
}

func TestOpenMeteo_ZeroTemperatureIsValid(t *testing.T) {
	srv := newUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"current_weather":{"temperature":0}}`))
	})

	r := NewOpenMeteoProvider(srv.Client(), srv.URL).Fetch(context.Background(), paris)
	if !r.OK() || *r.Temperature != 0 {
		t.Fatalf("expected 0 degrees, got %+v", r)
	}
}

func TestOpenMeteo_FailuresBecomeErrorReadings(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"server error", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}},
		{"client error", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":true,"reason":"Latitude must be in range"}`))
		}},
		{"malformed body", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`not json`))
		}},
		{"missing current_weather", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"latitude":48.85}`))
		}},
		{"missing temperature", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"current_weather":{"windspeed":3.1}}`))
		}},
		{"non-numeric temperature", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"current_weather":{"temperature":"warm"}}`))
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newUpstream(t, tt.handler)
			r := NewOpenMeteoProvider(srv.Client(), srv.URL).Fetch(context.Background(), paris)
			expectError(t, r)
		})
	}
}

func TestOpenMeteo_TransportErrorBecomesErrorReading(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	r := NewOpenMeteoProvider(&http.Client{Timeout: time.Second}, url).Fetch(context.Background(), paris)
	expectError(t, r)
}

func TestOpenMeteo_CanceledContextBecomesErrorReading(t *testing.T) {
	srv := newUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	r := NewOpenMeteoProvider(srv.Client(), srv.URL).Fetch(ctx, paris)
	expectError(t, r)
}

func TestOpenMeteo_NilClient(t *testing.T) {
	r := NewOpenMeteoProvider(nil, "http://127.0.0.1:1").Fetch(context.Background(), paris)
	expectError(t, r)
}

func TestOpenMeteo_CircuitOpensAfterRepeatedServerErrors(t *testing.T) {
	var hits atomic.Int32
	srv := newUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	})

	p := NewOpenMeteoProvider(srv.Client(), srv.URL)
	for i := 0; i < 10; i++ {
		expectError(t, p.Fetch(context.Background(), paris))
	}

	// gobreaker trips after more than five consecutive failures.
	if got := hits.Load(); got != 6 {
		t.Fatalf("expected 6 upstream calls before the circuit opened, got %d", got)
	}
}

func TestOpenMeteo_ClientErrorsDoNotTripCircuit(t *testing.T) {
	var hits atomic.Int32
	srv := newUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusNotFound)
	})

	p := NewOpenMeteoProvider(srv.Client(), srv.URL)
	for i := 0; i < 10; i++ {
		expectError(t, p.Fetch(context.Background(), paris))
	}
	if got := hits.Load(); got != 10 {
		t.Fatalf("expected every call to reach upstream, got %d", got)
	}
}

func TestOpenMeteo_OpenCircuitIsPerPoint(t *testing.T) {
	berlin := weather.GeoPoint{Name: "Berlin", Country: "DE", Latitude: 52.52, Longitude: 13.4}
	srv := newUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("latitude") == "48.850000" {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"current_weather":{"temperature":9}}`))
	})

	p := NewOpenMeteoProvider(srv.Client(), srv.URL)
	for i := 0; i < 10; i++ {
		expectError(t, p.Fetch(context.Background(), paris))
	}

	r := p.Fetch(context.Background(), berlin)
	if !r.OK() || *r.Temperature != 9 {
		t.Fatalf("expected Berlin to be unaffected by the Paris circuit, got %+v", r)
	}
}
