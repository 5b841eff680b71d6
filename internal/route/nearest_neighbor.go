// Package route orders the places of a single day for visiting.
package route

import (
	"math"

	"github.com/pkordes/trip-planner/internal/domain"
	"github.com/pkordes/trip-planner/internal/geo"
)

// MinPlaces is the smallest day OptimizeDayOrder will reorder.
const MinPlaces = 2

// OptimizeDayOrder reorders places using a greedy nearest-neighbour walk.
//
// The walk starts at startPlaceID when it is present in places, otherwise at
// places[0], so the first place of the day acts as a fixed anchor (hotel,
// breakfast spot) unless the caller picks another one. At each step the
// closest remaining place by Haversine distance is visited next; on equal
// distances the one that appeared earlier in the input wins.
//
// It does not attempt an optimal tour. The returned slice is always a new
// permutation of places. ok is false when the day has fewer than MinPlaces
// places, in which case the input order is returned unchanged.
func OptimizeDayOrder(places []domain.Place, startPlaceID string) (ordered []domain.Place, ok bool) {
	if len(places) < MinPlaces {
		return append([]domain.Place(nil), places...), false
	}

	start := 0
	if startPlaceID != "" {
		for i, p := range places {
			if p.ExternalID == startPlaceID {
				start = i
				break
			}
		}
	}

	remaining := make([]domain.Place, 0, len(places)-1)
	remaining = append(remaining, places[:start]...)
	remaining = append(remaining, places[start+1:]...)

	ordered = make([]domain.Place, 0, len(places))
	ordered = append(ordered, places[start])

	for len(remaining) > 0 {
		current := pointOf(ordered[len(ordered)-1])

		best := -1
		bestDist := math.MaxFloat64
		for i, p := range remaining {
			// Strict less-than keeps the first occurrence on ties.
			if d := geo.DistanceKm(current, pointOf(p)); d < bestDist {
				bestDist = d
				best = i
			}
		}
		if best < 0 {
			// Only reachable with NaN coordinates; keep input order.
			best = 0
		}

		ordered = append(ordered, remaining[best])
		remaining = append(remaining[:best], remaining[best+1:]...)
	}

	return ordered, true
}

// PathKm returns the length of the walk through places in order.
func PathKm(places []domain.Place) float64 {
	total := 0.0
	for i := 1; i < len(places); i++ {
		total += geo.DistanceKm(pointOf(places[i-1]), pointOf(places[i]))
	}
	return total
}

func pointOf(p domain.Place) geo.Point {
	return geo.Point{Lat: p.Lat, Lng: p.Lng}
}
