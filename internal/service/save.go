package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/pkordes/trip-planner/internal/domain"
	"github.com/pkordes/trip-planner/internal/metrics"
)

// RemoteAPI is the subset of the itinerary backend the service layer uses.
// *remote.Client satisfies it.
type RemoteAPI interface {
	CreatePlace(ctx context.Context, p domain.Place) error
	GetPlace(ctx context.Context, externalID string) (domain.Place, error)
	CreateItinerary(ctx context.Context, payload domain.ItineraryPayload) (domain.ItinerarySummary, error)
	UpdateItinerary(ctx context.Context, id string, payload domain.ItineraryPayload) (domain.ItinerarySummary, error)
	GetItinerary(ctx context.Context, id string) (domain.Itinerary, error)
}

// SaveStage names the phase of a save that failed.
type SaveStage string

const (
	StageReconcile SaveStage = "reconcile"
	StageSubmit    SaveStage = "submit"
)

// SaveError reports a failed save. The draft is left untouched so the user
// can retry.
type SaveError struct {
	Stage SaveStage
	Err   error
}

func (e *SaveError) Error() string {
	return fmt.Sprintf("save failed during %s: %v", e.Stage, e.Err)
}

func (e *SaveError) Unwrap() error { return e.Err }

// Message is a short explanation suitable for showing to the user.
func (e *SaveError) Message() string {
	detail := e.Err.Error()
	var m interface{ Message() string }
	if errors.As(e.Err, &m) {
		detail = m.Message()
	}
	switch e.Stage {
	case StageReconcile:
		return "Some places could not be registered: " + detail
	default:
		return "The itinerary could not be saved: " + detail
	}
}

var errMissingItineraryID = errors.New("the backend returned no itinerary id")

// PlaceWarning records a place whose registration failed during a save that
// went ahead anyway.
type PlaceWarning struct {
	PlaceID string `json:"place_id"`
	Name    string `json:"name"`
	Message string `json:"message"`
}

// SaveResult describes a successful save.
type SaveResult struct {
	Itinerary domain.ItinerarySummary `json:"itinerary"`
	// Updated is true when an existing itinerary was replaced.
	Updated  bool           `json:"updated"`
	Created  int            `json:"places_created"`
	Existing int            `json:"places_existing"`
	Warnings []PlaceWarning `json:"warnings,omitempty"`
}

// SaveOptions tunes a SaveOrchestrator.
type SaveOptions struct {
	// Concurrency bounds the parallel ensure-place calls. Default 8.
	Concurrency int
	// Strict aborts the save when any place fails to register.
	Strict bool
	// RememberFor is how long a saved draft maps to its itinerary so a
	// repeated save updates instead of creating a duplicate. Default 24h.
	RememberFor time.Duration
}

// SaveOrchestrator pushes a trip to the remote backend in two phases:
// ensure every place exists, then submit the itinerary in one call.
type SaveOrchestrator struct {
	remote   RemoteAPI
	opts     SaveOptions
	saved    *cache.Cache // draft ID -> itinerary ID
	inflight sync.Map     // draft ID -> struct{}
	logger   *slog.Logger
}

// NewSaveOrchestrator constructs a SaveOrchestrator.
func NewSaveOrchestrator(remote RemoteAPI, logger *slog.Logger, opts SaveOptions) *SaveOrchestrator {
	if opts.Concurrency < 1 {
		opts.Concurrency = 8
	}
	if opts.RememberFor <= 0 {
		opts.RememberFor = 24 * time.Hour
	}
	return &SaveOrchestrator{
		remote: remote,
		opts:   opts,
		saved:  cache.New(opts.RememberFor, time.Hour),
		logger: logger,
	}
}

// SaveTrip reconciles the trip's places and then creates or updates the
// itinerary.
//
// It returns domain.ErrValidation for a trip without places,
// domain.ErrSaveInProgress when the same draft is already being saved and a
// *SaveError when a phase fails.
func (o *SaveOrchestrator) SaveTrip(ctx context.Context, trip domain.Trip) (_ SaveResult, err error) {
	places := trip.Places()
	if len(places) == 0 {
		return SaveResult{}, fmt.Errorf("service.SaveOrchestrator.SaveTrip: %w: the trip has no places", domain.ErrValidation)
	}

	draftKey := trip.DraftID.String()
	if _, busy := o.inflight.LoadOrStore(draftKey, struct{}{}); busy {
		return SaveResult{}, fmt.Errorf("service.SaveOrchestrator.SaveTrip: %w", domain.ErrSaveInProgress)
	}
	defer o.inflight.Delete(draftKey)

	ctx, span := otel.Tracer("SaveOrchestrator").Start(ctx, "SaveTrip", trace.WithAttributes(
		attribute.String("draft.id", draftKey),
		attribute.Int("places", len(places)),
	))
	defer span.End()

	start := time.Now()
	mode := "create"
	partial := false
	defer func() {
		outcome := "ok"
		switch {
		case err != nil:
			outcome = "failed"
			span.RecordError(err)
			span.SetStatus(codes.Error, "save failed")
		case partial:
			outcome = "partial"
			span.SetStatus(codes.Ok, "")
		default:
			span.SetStatus(codes.Ok, "")
		}
		metrics.ItinerarySaves.WithLabelValues(mode, outcome).Inc()
		metrics.SaveDuration.Observe(time.Since(start).Seconds())
	}()

	result, failures := o.reconcile(ctx, places)
	if len(failures) > 0 && o.opts.Strict {
		return SaveResult{}, &SaveError{Stage: StageReconcile, Err: errors.Join(failures...)}
	}

	itineraryID := trip.ItineraryID
	if itineraryID == "" {
		if v, ok := o.saved.Get(draftKey); ok {
			itineraryID = v.(string)
		}
	}

	payload := BuildPayload(trip)
	var summary domain.ItinerarySummary
	if itineraryID != "" {
		mode = "update"
		summary, err = o.remote.UpdateItinerary(ctx, itineraryID, payload)
	} else {
		summary, err = o.remote.CreateItinerary(ctx, payload)
	}
	if err != nil {
		return SaveResult{}, &SaveError{Stage: StageSubmit, Err: err}
	}
	if summary.ID == "" {
		if itineraryID == "" {
			// Without an ID the next save would create a second itinerary.
			return SaveResult{}, &SaveError{Stage: StageSubmit, Err: errMissingItineraryID}
		}
		summary.ID = itineraryID
	}

	o.saved.Set(draftKey, summary.ID, cache.DefaultExpiration)
	result.Itinerary = summary
	result.Updated = mode == "update"
	partial = len(result.Warnings) > 0

	o.logger.InfoContext(ctx, "itinerary saved",
		"draft_id", draftKey,
		"itinerary_id", summary.ID,
		"mode", mode,
		"places_created", result.Created,
		"places_existing", result.Existing,
		"warnings", len(result.Warnings),
	)
	return result, nil
}

// reconcile calls CreatePlace for every place with bounded parallelism and
// waits for all of them. ErrPlaceExists counts as success. Other failures are
// returned as warnings and errors; they never cancel the remaining calls.
func (o *SaveOrchestrator) reconcile(ctx context.Context, places []domain.Place) (SaveResult, []error) {
	errs := make([]error, len(places))

	var g errgroup.Group
	g.SetLimit(o.opts.Concurrency)
	for i, p := range places {
		g.Go(func() error {
			errs[i] = o.remote.CreatePlace(ctx, p)
			return nil
		})
	}
	_ = g.Wait()

	var (
		result   SaveResult
		failures []error
	)
	for i, err := range errs {
		p := places[i]
		switch {
		case err == nil:
			result.Created++
			metrics.PlaceReconciliations.WithLabelValues("created").Inc()
		case errors.Is(err, domain.ErrPlaceExists):
			result.Existing++
			metrics.PlaceReconciliations.WithLabelValues("exists").Inc()
		default:
			metrics.PlaceReconciliations.WithLabelValues("failed").Inc()
			o.logger.WarnContext(ctx, "place reconciliation failed", "place_id", p.ExternalID, "error", err)
			result.Warnings = append(result.Warnings, PlaceWarning{
				PlaceID: p.ExternalID,
				Name:    p.Name,
				Message: err.Error(),
			})
			failures = append(failures, fmt.Errorf("%s: %w", p.ExternalID, err))
		}
	}
	return result, failures
}

// BuildPayload converts a trip into the itinerary wire format. Every day is
// included, in order, with its places in visiting order.
func BuildPayload(trip domain.Trip) domain.ItineraryPayload {
	title := trip.Title
	if title == "" {
		title = "Viaje " + trip.StartDate.Format("2006-01-02")
	}
	out := domain.ItineraryPayload{Title: title, Days: make([]domain.PayloadDay, 0, len(trip.Days))}
	for _, d := range trip.Days {
		day := domain.PayloadDay{
			Date:   d.Date.Format("2006-01-02"),
			Places: make([]domain.PayloadPlace, 0, len(d.Places)),
		}
		for _, p := range d.Places {
			day.Places = append(day.Places, domain.PayloadPlace{
				PlaceExternalID: p.ExternalID,
				Note:            d.Notes[p.ExternalID],
			})
		}
		out.Days = append(out.Days, day)
	}
	return out
}
