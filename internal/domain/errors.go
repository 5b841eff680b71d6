package domain

import "errors"

// ErrNotFound is returned by stores and the remote client when the requested
// draft, place or itinerary does not exist.
// Handlers should map this to HTTP 404.
var ErrNotFound = errors.New("not found")

// ErrValidation is returned when input fails business rule validation
// (e.g. unknown planner command, saving a trip with no places).
// Handlers should map this to HTTP 422 Unprocessable Entity.
var ErrValidation = errors.New("validation error")

// ErrPlaceExists is returned by the remote catalog when a create-place call
// targets an external ID that is already registered. The save orchestrator
// treats it as success.
var ErrPlaceExists = errors.New("place already exists")

// ErrSaveInProgress is returned when a save is requested for a draft that is
// already being saved. Handlers should map this to HTTP 409 Conflict.
var ErrSaveInProgress = errors.New("save already in progress")
