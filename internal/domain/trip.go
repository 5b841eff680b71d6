// Package domain contains the core data types for the trip planner.
// It has no dependencies on other internal packages and is imported by every
// other internal package (planner, route, suggest, repo, service, handler).
package domain

import (
	"maps"
	"slices"
	"time"

	"github.com/google/uuid"
)

// MaxDays is the upper bound on the number of days a trip draft can hold.
const MaxDays = 7

// Day is one calendar day of a trip. Places is the visiting order.
// ID and Label are derived from the trip start date and the day's position,
// so they change whenever an earlier day is removed.
type Day struct {
	ID     string            `json:"id"`
	Label  string            `json:"label"`
	Date   time.Time         `json:"date"`
	Places []Place           `json:"places"`
	Notes  map[string]string `json:"notes,omitempty"` // keyed by Place.ExternalID
}

// IndexOf returns the position of placeID in the day, or -1.
func (d Day) IndexOf(placeID string) int {
	for i, p := range d.Places {
		if p.ExternalID == placeID {
			return i
		}
	}
	return -1
}

// Has reports whether placeID is already scheduled on this day.
func (d Day) Has(placeID string) bool {
	return d.IndexOf(placeID) >= 0
}

// Trip is the in-progress itinerary being edited: the root aggregate.
// It is only ever changed through the planner package.
type Trip struct {
	DraftID         uuid.UUID `json:"draft_id"`
	ItineraryID     string    `json:"itinerary_id,omitempty"` // set when editing a saved itinerary
	Title           string    `json:"title"`
	Regions         []string  `json:"regions"`
	StartDate       time.Time `json:"start_date"`
	Days            []Day     `json:"days"`
	ActiveDayID     string    `json:"active_day_id"`
	SelectedPlaceID string    `json:"selected_place_id,omitempty"`
	ShowRoute       bool      `json:"show_route"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// DayIndex returns the position of the day with the given ID, or -1.
func (t Trip) DayIndex(dayID string) int {
	for i, d := range t.Days {
		if d.ID == dayID {
			return i
		}
	}
	return -1
}

// ActiveDay returns the active day and its index. ok is false only for a
// zero-value Trip.
func (t Trip) ActiveDay() (day Day, idx int, ok bool) {
	idx = t.DayIndex(t.ActiveDayID)
	if idx < 0 {
		return Day{}, -1, false
	}
	return t.Days[idx], idx, true
}

// Places returns every place referenced by the trip, deduplicated by
// ExternalID, in day order then visiting order.
func (t Trip) Places() []Place {
	seen := make(map[string]struct{})
	var out []Place
	for _, d := range t.Days {
		for _, p := range d.Places {
			if _, ok := seen[p.ExternalID]; ok {
				continue
			}
			seen[p.ExternalID] = struct{}{}
			out = append(out, p)
		}
	}
	return out
}

// PlaceIDs returns the set of place IDs referenced anywhere in the trip.
func (t Trip) PlaceIDs() map[string]struct{} {
	ids := make(map[string]struct{})
	for _, d := range t.Days {
		for _, p := range d.Places {
			ids[p.ExternalID] = struct{}{}
		}
	}
	return ids
}

// Clone returns a deep copy so reducers can return a new Trip without
// aliasing the caller's slices and maps.
func (t Trip) Clone() Trip {
	out := t
	out.Regions = slices.Clone(t.Regions)
	out.Days = make([]Day, len(t.Days))
	for i, d := range t.Days {
		nd := d
		nd.Places = slices.Clone(d.Places)
		nd.Notes = maps.Clone(d.Notes)
		out.Days[i] = nd
	}
	return out
}
