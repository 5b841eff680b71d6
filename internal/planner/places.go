package planner

import (
	"github.com/pkordes/trip-planner/internal/domain"
	"github.com/pkordes/trip-planner/internal/route"
)

// AddPlaceToActiveDay appends p to the end of the active day, so new places
// are visited last. No-op if the active day already holds p.
func AddPlaceToActiveDay(t domain.Trip, p domain.Place) domain.Trip {
	day, idx, ok := t.ActiveDay()
	if !ok || p.ExternalID == "" || day.Has(p.ExternalID) {
		return t
	}
	out := t.Clone()
	out.Days[idx].Places = append(out.Days[idx].Places, p)
	out.ShowRoute = false
	return out
}

// MovePlaceWithinDay moves the place at from to position to within one day.
// Out-of-range indices are a no-op.
func MovePlaceWithinDay(t domain.Trip, dayID string, from, to int) domain.Trip {
	idx := t.DayIndex(dayID)
	if idx < 0 {
		return t
	}
	n := len(t.Days[idx].Places)
	if from < 0 || from >= n || to < 0 || to >= n || from == to {
		return t
	}
	out := t.Clone()
	places := out.Days[idx].Places
	moved := places[from]
	places = append(places[:from], places[from+1:]...)
	places = append(places[:to], append([]domain.Place{moved}, places[to:]...)...)
	out.Days[idx].Places = places
	out.ShowRoute = false
	return out
}

// MovePlaceToDay takes placeID out of whichever day holds it and appends it
// to targetDayID, carrying its note along. The target becomes the active day.
// If the target already holds the place only the cursor moves; unknown places
// or days are a no-op.
func MovePlaceToDay(t domain.Trip, placeID, targetDayID string) domain.Trip {
	target := t.DayIndex(targetDayID)
	if target < 0 {
		return t
	}
	if t.Days[target].Has(placeID) {
		return SetActiveDay(t, targetDayID)
	}

	source, pos := -1, -1
	for i, d := range t.Days {
		if j := d.IndexOf(placeID); j >= 0 {
			source, pos = i, j
			break
		}
	}
	if source < 0 {
		return t
	}

	out := t.Clone()
	src := &out.Days[source]
	moved := src.Places[pos]
	src.Places = append(src.Places[:pos], src.Places[pos+1:]...)

	dst := &out.Days[target]
	dst.Places = append(dst.Places, moved)
	if note, ok := src.Notes[placeID]; ok {
		delete(src.Notes, placeID)
		if dst.Notes == nil {
			dst.Notes = make(map[string]string)
		}
		dst.Notes[placeID] = note
	}

	out.ActiveDayID = targetDayID
	out.ShowRoute = false
	return out
}

// RemovePlaceFromDay removes placeID and its note from dayID. No-op if absent.
func RemovePlaceFromDay(t domain.Trip, dayID, placeID string) domain.Trip {
	idx := t.DayIndex(dayID)
	if idx < 0 {
		return t
	}
	pos := t.Days[idx].IndexOf(placeID)
	if pos < 0 {
		return t
	}
	out := t.Clone()
	d := &out.Days[idx]
	d.Places = append(d.Places[:pos], d.Places[pos+1:]...)
	delete(d.Notes, placeID)
	if out.SelectedPlaceID == placeID {
		if _, still := out.PlaceIDs()[placeID]; !still {
			out.SelectedPlaceID = ""
		}
	}
	out.ShowRoute = false
	return out
}

// SetPlaceNote attaches or overwrites a note for placeID within dayID.
// An empty note removes it. No-op if the place is not on that day.
func SetPlaceNote(t domain.Trip, dayID, placeID, note string) domain.Trip {
	idx := t.DayIndex(dayID)
	if idx < 0 || !t.Days[idx].Has(placeID) {
		return t
	}
	out := t.Clone()
	d := &out.Days[idx]
	if note == "" {
		delete(d.Notes, placeID)
		return out
	}
	if d.Notes == nil {
		d.Notes = make(map[string]string)
	}
	d.Notes[placeID] = note
	return out
}

// OptimizeDay reorders dayID with route.OptimizeDayOrder and turns on the
// route overlay. applied is false when the day is unknown or too small, in
// which case t is returned unchanged.
func OptimizeDay(t domain.Trip, dayID, startPlaceID string) (out domain.Trip, applied bool) {
	idx := t.DayIndex(dayID)
	if idx < 0 {
		return t, false
	}
	ordered, ok := route.OptimizeDayOrder(t.Days[idx].Places, startPlaceID)
	if !ok {
		return t, false
	}
	out = t.Clone()
	out.Days[idx].Places = ordered
	out.ShowRoute = true
	return out, true
}
