// Package planner implements the trip draft reducers.
//
// Every exported function takes a domain.Trip and returns a new one; the input
// is never modified. Invalid input (unknown day, index out of range, duplicate
// place, day limit reached) makes the call a no-op instead of an error so a
// stray UI event can never leave the draft inconsistent.
package planner

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pkordes/trip-planner/internal/domain"
)

var monthAbbrev = [...]string{"ene", "feb", "mar", "abr", "may", "jun", "jul", "ago", "sep", "oct", "nov", "dic"}

// DayID returns the identifier of the day at position idx of a trip starting
// on start.
func DayID(start time.Time, idx int) string {
	return start.AddDate(0, 0, idx).Format("2006-01-02")
}

// DayLabel returns the display label of the day at position idx, e.g.
// "Día 1 (01 nov)".
func DayLabel(start time.Time, idx int) string {
	d := start.AddDate(0, 0, idx)
	return fmt.Sprintf("Día %d (%02d %s)", idx+1, d.Day(), monthAbbrev[d.Month()-1])
}

// InitDraft builds a fresh draft with dayCount empty days starting on start.
// dayCount is clamped to [1, domain.MaxDays]. The first day becomes active.
// Calling it again simply produces a new draft, discarding the old one.
func InitDraft(start time.Time, dayCount int, regions []string) domain.Trip {
	dayCount = max(1, min(dayCount, domain.MaxDays))
	start = dateOnly(start)

	t := domain.Trip{
		DraftID:   uuid.New(),
		Regions:   append([]string(nil), regions...),
		StartDate: start,
		Days:      make([]domain.Day, dayCount),
	}
	t.Days = rebuildDays(start, t.Days)
	t.ActiveDayID = t.Days[0].ID
	return t
}

// AddDay appends a day dated start+len(days) and makes it active.
// No-op at domain.MaxDays.
func AddDay(t domain.Trip) domain.Trip {
	if len(t.Days) >= domain.MaxDays {
		return t
	}
	out := t.Clone()
	out.Days = rebuildDays(out.StartDate, append(out.Days, domain.Day{}))
	out.ActiveDayID = out.Days[len(out.Days)-1].ID
	return out
}

// RemoveActiveDay drops the active day and re-derives IDs, labels and dates of
// the remaining days so they stay contiguous from the start date. The day
// before the removed one (or the first day) becomes active.
// No-op when only one day is left.
func RemoveActiveDay(t domain.Trip) domain.Trip {
	idx := t.DayIndex(t.ActiveDayID)
	if len(t.Days) <= 1 || idx < 0 {
		return t
	}
	out := t.Clone()
	out.Days = rebuildDays(out.StartDate, append(out.Days[:idx], out.Days[idx+1:]...))
	out.ActiveDayID = out.Days[max(idx-1, 0)].ID
	if _, ok := out.PlaceIDs()[out.SelectedPlaceID]; !ok {
		out.SelectedPlaceID = ""
	}
	return out
}

// SetActiveDay moves the active-day cursor. Unknown IDs are ignored.
func SetActiveDay(t domain.Trip, dayID string) domain.Trip {
	if t.DayIndex(dayID) < 0 {
		return t
	}
	out := t.Clone()
	out.ActiveDayID = dayID
	return out
}

// SetSelectedPlace moves the selected-place cursor; "" clears it.
func SetSelectedPlace(t domain.Trip, placeID string) domain.Trip {
	out := t.Clone()
	out.SelectedPlaceID = placeID
	return out
}

// SetTitle renames the trip.
func SetTitle(t domain.Trip, title string) domain.Trip {
	out := t.Clone()
	out.Title = title
	return out
}

// rebuildDays re-derives ID, Label and Date for every day from its position.
// Places and notes travel with the day.
func rebuildDays(start time.Time, days []domain.Day) []domain.Day {
	out := make([]domain.Day, len(days))
	for i, d := range days {
		d.ID = DayID(start, i)
		d.Label = DayLabel(start, i)
		d.Date = start.AddDate(0, 0, i)
		if d.Places == nil {
			d.Places = []domain.Place{}
		}
		out[i] = d
	}
	return out
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
