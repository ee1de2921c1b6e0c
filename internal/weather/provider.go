package weather

import (
	"context"
)

// Client fetches the current weather for a single point. Implementations never
// fail the caller: every failure is folded into an error reading.
type Client interface {
	Fetch(ctx context.Context, point GeoPoint) WeatherReading
}

// PointSource supplies the ordered list of points to query.
type PointSource interface {
	Load(ctx context.Context) ([]GeoPoint, error)
}

// Store is the contract the in-memory snapshot holder must satisfy.
type Store interface {
	Replace(snapshot WeatherSnapshot)
	// RemoveByLabel returns ErrNotFound when no reading carries label.
	RemoveByLabel(label string) error
	Current() WeatherSnapshot
}
