package planner

import (
	"fmt"

	"github.com/pkordes/trip-planner/internal/domain"
)

// CommandType names a planner operation in a Command.
type CommandType string

const (
	CmdAddDay             CommandType = "add_day"
	CmdRemoveActiveDay    CommandType = "remove_active_day"
	CmdAddPlace           CommandType = "add_place"
	CmdMovePlaceWithinDay CommandType = "move_place_within_day"
	CmdMovePlaceToDay     CommandType = "move_place_to_day"
	CmdRemovePlace        CommandType = "remove_place"
	CmdSetPlaceNote       CommandType = "set_place_note"
	CmdSetActiveDay       CommandType = "set_active_day"
	CmdSelectPlace        CommandType = "select_place"
	CmdSetTitle           CommandType = "set_title"
	CmdOptimizeDay        CommandType = "optimize_day"
)

// Command is the serialisable form of one reducer call, as sent by the UI.
// Only the fields relevant to Type are read.
type Command struct {
	Type         CommandType   `json:"type"`
	DayID        string        `json:"day_id,omitempty"`
	PlaceID      string        `json:"place_id,omitempty"`
	Place        *domain.Place `json:"place,omitempty"`
	From         int           `json:"from,omitempty"`
	To           int           `json:"to,omitempty"`
	Note         string        `json:"note,omitempty"`
	Title        string        `json:"title,omitempty"`
	StartPlaceID string        `json:"start_place_id,omitempty"`
}

// Apply dispatches cmd to the matching reducer.
// A malformed command (unknown type, add_place without a place) returns
// domain.ErrValidation; everything else follows the reducer's no-op rules.
func Apply(t domain.Trip, cmd Command) (domain.Trip, error) {
	switch cmd.Type {
	case CmdAddDay:
		return AddDay(t), nil
	case CmdRemoveActiveDay:
		return RemoveActiveDay(t), nil
	case CmdAddPlace:
		if cmd.Place == nil || cmd.Place.ExternalID == "" {
			return t, fmt.Errorf("%w: add_place requires a place with an external_id", domain.ErrValidation)
		}
		return AddPlaceToActiveDay(t, *cmd.Place), nil
	case CmdMovePlaceWithinDay:
		return MovePlaceWithinDay(t, cmd.DayID, cmd.From, cmd.To), nil
	case CmdMovePlaceToDay:
		return MovePlaceToDay(t, cmd.PlaceID, cmd.DayID), nil
	case CmdRemovePlace:
		return RemovePlaceFromDay(t, cmd.DayID, cmd.PlaceID), nil
	case CmdSetPlaceNote:
		return SetPlaceNote(t, cmd.DayID, cmd.PlaceID, cmd.Note), nil
	case CmdSetActiveDay:
		return SetActiveDay(t, cmd.DayID), nil
	case CmdSelectPlace:
		return SetSelectedPlace(t, cmd.PlaceID), nil
	case CmdSetTitle:
		return SetTitle(t, cmd.Title), nil
	case CmdOptimizeDay:
		dayID := cmd.DayID
		if dayID == "" {
			dayID = t.ActiveDayID
		}
		out, _ := OptimizeDay(t, dayID, cmd.StartPlaceID)
		return out, nil
	default:
		return t, fmt.Errorf("%w: unknown command type %q", domain.ErrValidation, cmd.Type)
	}
}
