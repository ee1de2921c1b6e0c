package providers

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"testing"

	"github.com/i474232898/city-weather/internal/weather"
)

// Points 3 and 7 always get a 502 from upstream; every other point is healthy.
func TestOpenMeteo_FetchAllIsolatesFailingPoints(t *testing.T) {
	failing := map[float64]bool{3: true, 7: true}

	var mu sync.Mutex
	hits := make(map[float64]int)
	srv := newUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		lat, err := strconv.ParseFloat(r.URL.Query().Get("latitude"), 64)
		if err != nil {
			t.Errorf("bad latitude %q", r.URL.Query().Get("latitude"))
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		mu.Lock()
		hits[lat]++
		mu.Unlock()

		if failing[lat] {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = fmt.Fprintf(w, `{"current_weather":{"temperature":%g}}`, lat*10)
	})

	var pts []weather.GeoPoint
	for i := 1; i <= 10; i++ {
		pts = append(pts, weather.GeoPoint{
			Name:      fmt.Sprintf("City%d", i),
			Country:   "XX",
			Latitude:  float64(i),
			Longitude: float64(i),
		})
	}

	p := NewOpenMeteoProvider(srv.Client(), srv.URL)

	// Enough batches for the failing points' circuits to open.
	const batches = 8
	for b := 0; b < batches; b++ {
		snap, err := weather.FetchAll(context.Background(), p, pts)
		if err != nil {
			t.Fatalf("batch %d: unexpected error: %v", b, err)
		}
		if len(snap) != len(pts) {
			t.Fatalf("batch %d: expected %d readings, got %d", b, len(pts), len(snap))
		}
		for i, r := range snap {
			pt := pts[i]
			if r.Label != pt.Label() {
				t.Fatalf("batch %d: slot %d has label %q, want %q", b, i, r.Label, pt.Label())
			}
			if failing[pt.Latitude] {
				if r.OK() || r.Error != weather.ErrorMarker {
					t.Fatalf("batch %d: expected error marker for %s, got %+v", b, pt.Label(), r)
				}
				continue
			}
			if !r.OK() || *r.Temperature != pt.Latitude*10 {
				t.Fatalf("batch %d: expected temperature for %s, got %+v", b, pt.Label(), r)
			}
		}
	}

	mu.Lock()
	defer mu.Unlock()
	for _, pt := range pts {
		got := hits[pt.Latitude]
		if failing[pt.Latitude] {
			// gobreaker trips after more than five consecutive failures.
			if got != 6 {
				t.Fatalf("expected %s to stop reaching upstream after 6 calls, got %d", pt.Label(), got)
			}
			continue
		}
		if got != batches {
			t.Fatalf("expected %s to reach upstream in every batch, got %d calls", pt.Label(), got)
		}
	}
}
