package weather

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/i474232898/city-weather/internal/metrics"
)

var (
	// ErrSourceLoad wraps any failure to read the point list.
	ErrSourceLoad = errors.New("failed to load points")
	// ErrRefreshTimedOut is returned when the batch did not complete before its
	// context ended. No snapshot is produced in that case.
	ErrRefreshTimedOut = errors.New("refresh did not complete in time")
	// ErrNotFound is returned by a Store when no reading carries the label.
	ErrNotFound = errors.New("no reading for label")
)

var tracer = otel.Tracer("github.com/i474232898/city-weather/internal/weather")

// FetchAll launches one Fetch per point and waits for every one of them to
// finish. Results keep the input order. If ctx ends before the join
// completes, the batch is discarded.
func FetchAll(ctx context.Context, client Client, points []GeoPoint) (WeatherSnapshot, error) {
	readings := make([]WeatherReading, len(points))

	var wg sync.WaitGroup
	for i, p := range points {
		i, p := i, p
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() {
				if rec := recover(); rec != nil {
					slog.Error("fetch panicked", "label", p.Label(), "panic", rec)
					readings[i] = NewErrorReading(p.Label())
				}
			}()

			readings[i] = client.Fetch(ctx, p)
		}()
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRefreshTimedOut, err)
	}

	return AssembleSnapshot(points, readings), nil
}

// RefreshResult describes one completed refresh.
type RefreshResult struct {
	BatchID  string
	Snapshot WeatherSnapshot
	Failed   int
	Duration time.Duration
}

// Service wires the point source, the weather client and the store together.
type Service struct {
	store          Store
	source         PointSource
	client         Client
	refreshTimeout time.Duration
}

// NewService creates a new Service. A refreshTimeout of zero leaves the
// deadline to the caller's context.
func NewService(store Store, source PointSource, client Client, refreshTimeout time.Duration) *Service {
	return &Service{
		store:          store,
		source:         source,
		client:         client,
		refreshTimeout: refreshTimeout,
	}
}

// Refresh loads the points, fetches all of them concurrently and replaces the
// stored snapshot with the result. On any error the store is left untouched.
func (s *Service) Refresh(ctx context.Context) (RefreshResult, error) {
	res := RefreshResult{BatchID: uuid.NewString()}
	log := slog.With("batch_id", res.BatchID)

	ctx, span := tracer.Start(ctx, "weather.refresh", trace.WithAttributes(
		attribute.String("batch.id", res.BatchID),
	))
	defer span.End()

	if s.refreshTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.refreshTimeout)
		defer cancel()
	}

	points, err := s.source.Load(ctx)
	if err != nil {
		metrics.RefreshFailures.WithLabelValues("load").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "point load failed")
		log.Error("refresh: point load failed", "error", err)
		return res, fmt.Errorf("%w: %w", ErrSourceLoad, err)
	}
	log.Debug("refresh: points loaded", "count", len(points))

	start := time.Now()
	snapshot, err := FetchAll(ctx, s.client, points)
	res.Duration = time.Since(start)
	metrics.RefreshDuration.Observe(res.Duration.Seconds())
	if err != nil {
		metrics.RefreshFailures.WithLabelValues("timeout").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "refresh aborted")
		log.Warn("refresh: batch discarded; keeping previous snapshot", "error", err, "elapsed", res.Duration)
		return res, err
	}

	s.store.Replace(snapshot)

	res.Snapshot = snapshot
	res.Failed = snapshot.Failed()
	span.SetAttributes(
		attribute.Int("points.total", len(snapshot)),
		attribute.Int("points.failed", res.Failed),
	)
	log.Info("refresh: snapshot replaced",
		"points", len(snapshot),
		"failed", res.Failed,
		"elapsed", res.Duration,
	)

	return res, nil
}

// Current returns the latest stored snapshot.
func (s *Service) Current() WeatherSnapshot {
	return s.store.Current()
}

// Remove deletes the reading with the given label from the stored snapshot.
func (s *Service) Remove(label string) error {
	if err := s.store.RemoveByLabel(label); err != nil {
		return err
	}
	slog.Info("reading removed", "label", label)
	return nil
}
