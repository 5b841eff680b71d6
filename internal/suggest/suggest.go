// Package suggest finds catalog places near a trip's regions.
package suggest

import (
	"cmp"
	"context"
	"log/slog"
	"math"
	"slices"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/pkordes/trip-planner/internal/domain"
	"github.com/pkordes/trip-planner/internal/geo"
	"github.com/pkordes/trip-planner/internal/planner"
)

// DefaultLimit caps the number of suggestions returned when no limit is set.
const DefaultLimit = 8

// DefaultCenter is used when none of the requested regions has a known centre.
var DefaultCenter = geo.Point{Lat: 19.4326, Lng: -99.1332}

// Catalog is the read side of a place catalog.
type Catalog interface {
	Regions(ctx context.Context) ([]domain.Region, error)
	ListPlaces(ctx context.Context, regions []string) ([]domain.Place, error)
}

// Query describes one suggestion lookup. Text and Category are optional.
type Query struct {
	Regions  []string
	RadiusKm float64
	Text     string
	Category string
	// Exclude holds external IDs that must not be suggested, typically the
	// places already in the trip.
	Exclude map[string]struct{}
}

// Engine filters a Catalog by distance, text and category.
type Engine struct {
	catalog Catalog
	limit   int
	center  geo.Point
	logger  *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithLimit sets the maximum number of results. Values < 1 are ignored.
func WithLimit(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.limit = n
		}
	}
}

// WithDefaultCenter overrides the fallback centre.
func WithDefaultCenter(p geo.Point) Option {
	return func(e *Engine) { e.center = p }
}

// NewEngine creates an Engine over catalog.
func NewEngine(catalog Catalog, logger *slog.Logger, opts ...Option) *Engine {
	e := &Engine{catalog: catalog, limit: DefaultLimit, center: DefaultCenter, logger: logger}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

type candidate struct {
	place domain.Place
	dist  float64
}

// SuggestByRadius returns up to the engine limit places within q.RadiusKm of
// the regions' centre, nearest first, then by rating and name.
//
// It never fails: catalog errors are logged and produce an empty result.
func (e *Engine) SuggestByRadius(ctx context.Context, q Query) []domain.Place {
	ctx, span := otel.Tracer("suggest").Start(ctx, "SuggestByRadius", trace.WithAttributes(
		attribute.StringSlice("regions", q.Regions),
		attribute.Float64("radius_km", q.RadiusKm),
	))
	defer span.End()

	// NaN compares false against every distance, so it must not reach the filter.
	if !(q.RadiusKm > 0) || math.IsInf(q.RadiusKm, 1) {
		return []domain.Place{}
	}

	center := e.Center(ctx, q.Regions)

	places, err := e.catalog.ListPlaces(ctx, q.Regions)
	if err != nil {
		span.RecordError(err)
		e.logger.WarnContext(ctx, "catalog lookup failed", "error", err, "regions", q.Regions)
		return []domain.Place{}
	}

	text := strings.ToLower(strings.TrimSpace(q.Text))
	var hits []candidate
	for _, p := range places {
		if _, skip := q.Exclude[p.ExternalID]; skip {
			continue
		}
		if q.Category != "" && p.Category != q.Category {
			continue
		}
		if text != "" && !strings.Contains(strings.ToLower(p.Name), text) &&
			!strings.Contains(strings.ToLower(p.City), text) {
			continue
		}
		pt := geo.Point{Lat: p.Lat, Lng: p.Lng}
		if !pt.Valid() {
			continue
		}
		d := geo.DistanceKm(center, pt)
		if d > q.RadiusKm {
			continue
		}
		hits = append(hits, candidate{place: p, dist: d})
	}

	slices.SortStableFunc(hits, func(a, b candidate) int {
		if c := cmp.Compare(a.dist, b.dist); c != 0 {
			return c
		}
		if c := cmp.Compare(b.place.Rating, a.place.Rating); c != 0 {
			return c
		}
		return cmp.Compare(a.place.Name, b.place.Name)
	})

	out := make([]domain.Place, 0, min(len(hits), e.limit))
	for _, h := range hits[:min(len(hits), e.limit)] {
		out = append(out, h.place)
	}
	span.SetAttributes(attribute.Int("results", len(out)))
	return out
}

// Center returns the mean of the known centres of regions, or the default
// centre when none is known or the region list cannot be loaded.
func (e *Engine) Center(ctx context.Context, regions []string) geo.Point {
	if len(regions) == 0 {
		return e.center
	}
	all, err := e.catalog.Regions(ctx)
	if err != nil {
		e.logger.WarnContext(ctx, "region lookup failed, using default centre", "error", err)
		return e.center
	}

	want := make(map[string]bool, len(regions))
	for _, r := range regions {
		want[r] = true
	}
	var pts []geo.Point
	for _, r := range all {
		if want[r.Key] {
			pts = append(pts, geo.Point{Lat: r.Lat, Lng: r.Lng})
		}
	}
	if c, ok := geo.Center(pts); ok {
		return c
	}
	return e.center
}

// SuggestForActiveDay adds the top n suggestions for trip to its active day.
// Places already in the trip are never suggested, so repeated calls only add
// new places. n < 1 means the engine limit.
func (e *Engine) SuggestForActiveDay(ctx context.Context, trip domain.Trip, q Query, n int) domain.Trip {
	if n < 1 {
		n = e.limit
	}
	if len(q.Regions) == 0 {
		q.Regions = trip.Regions
	}
	q.Exclude = trip.PlaceIDs()

	suggestions := e.SuggestByRadius(ctx, q)
	for _, p := range suggestions[:min(n, len(suggestions))] {
		trip = planner.AddPlaceToActiveDay(trip, p)
	}
	return trip
}
