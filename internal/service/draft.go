// Package service contains the business logic of the trip planner.
// Services load drafts, run the pure planner reducers, persist the result and
// talk to the remote backend. No storage or HTTP code lives here; services
// depend on repo and RemoteAPI interfaces.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/pkordes/trip-planner/internal/domain"
	"github.com/pkordes/trip-planner/internal/metrics"
	"github.com/pkordes/trip-planner/internal/planner"
	"github.com/pkordes/trip-planner/internal/repo"
	"github.com/pkordes/trip-planner/internal/route"
	"github.com/pkordes/trip-planner/internal/suggest"
)

// TripSaver is satisfied by *SaveOrchestrator.
type TripSaver interface {
	SaveTrip(ctx context.Context, trip domain.Trip) (SaveResult, error)
}

var _ TripSaver = (*SaveOrchestrator)(nil)

// InitParams are the inputs of a fresh draft.
type InitParams struct {
	Title     string
	StartDate time.Time
	Days      int
	Regions   []string
}

// DraftService runs editing sessions. Each session owns one draft in the
// store; every call loads it, applies a reducer and writes it back.
type DraftService struct {
	store  repo.DraftStore
	engine *suggest.Engine
	saver  TripSaver
	remote RemoteAPI
	locks  *keyedMutex
	logger *slog.Logger

	now func() time.Time
}

// NewDraftService constructs a DraftService.
func NewDraftService(store repo.DraftStore, engine *suggest.Engine, saver TripSaver, remote RemoteAPI, logger *slog.Logger) *DraftService {
	return &DraftService{
		store:  store,
		engine: engine,
		saver:  saver,
		remote: remote,
		locks:  newKeyedMutex(),
		logger: logger,
		now:    time.Now,
	}
}

// Init starts a new draft for session, replacing any existing one.
func (s *DraftService) Init(ctx context.Context, session string, p InitParams) (domain.Trip, error) {
	key, err := draftKey(session)
	if err != nil {
		return domain.Trip{}, err
	}
	defer s.locks.Lock(key)()

	trip := planner.InitDraft(p.StartDate, p.Days, p.Regions)
	trip = planner.SetTitle(trip, p.Title)
	return s.persist(ctx, key, trip)
}

// Get returns the draft of session.
func (s *DraftService) Get(ctx context.Context, session string) (domain.Trip, error) {
	key, err := draftKey(session)
	if err != nil {
		return domain.Trip{}, err
	}
	trip, err := s.store.Load(ctx, key)
	if err != nil {
		return domain.Trip{}, fmt.Errorf("service.DraftService.Get: %w", err)
	}
	return trip, nil
}

// Apply runs one planner command against the draft and persists the result.
func (s *DraftService) Apply(ctx context.Context, session string, cmd planner.Command) (domain.Trip, error) {
	key, err := draftKey(session)
	if err != nil {
		return domain.Trip{}, err
	}
	defer s.locks.Lock(key)()

	trip, err := s.store.Load(ctx, key)
	if err != nil {
		return domain.Trip{}, fmt.Errorf("service.DraftService.Apply: %w", err)
	}
	next, err := planner.Apply(trip, cmd)
	if err != nil {
		return domain.Trip{}, fmt.Errorf("service.DraftService.Apply: %w", err)
	}
	metrics.PlannerCommands.WithLabelValues(string(cmd.Type)).Inc()
	if cmd.Type == planner.CmdOptimizeDay {
		s.logOptimized(ctx, key, cmd.DayID, trip, next)
	}
	return s.persist(ctx, key, next)
}

// Suggest returns catalog places near the draft's regions that are not yet
// in the draft. Empty q.Regions means the draft's own regions.
func (s *DraftService) Suggest(ctx context.Context, session string, q suggest.Query) ([]domain.Place, error) {
	trip, err := s.Get(ctx, session)
	if err != nil {
		return nil, err
	}
	if len(q.Regions) == 0 {
		q.Regions = trip.Regions
	}
	q.Exclude = trip.PlaceIDs()
	return s.engine.SuggestByRadius(ctx, q), nil
}

// SuggestForActiveDay adds the top n suggestions to the active day.
func (s *DraftService) SuggestForActiveDay(ctx context.Context, session string, q suggest.Query, n int) (domain.Trip, error) {
	key, err := draftKey(session)
	if err != nil {
		return domain.Trip{}, err
	}
	defer s.locks.Lock(key)()

	trip, err := s.store.Load(ctx, key)
	if err != nil {
		return domain.Trip{}, fmt.Errorf("service.DraftService.SuggestForActiveDay: %w", err)
	}
	return s.persist(ctx, key, s.engine.SuggestForActiveDay(ctx, trip, q, n))
}

// Save submits the draft. On success the draft is cleared, unless it was
// edited while the save was running; then it is kept and linked to the saved
// itinerary so the next save updates it. On failure the draft is untouched.
func (s *DraftService) Save(ctx context.Context, session string) (SaveResult, error) {
	key, err := draftKey(session)
	if err != nil {
		return SaveResult{}, err
	}

	// The lock is not held across the network call; concurrent saves of the
	// same draft are rejected by the saver instead.
	unlock := s.locks.Lock(key)
	trip, err := s.store.Load(ctx, key)
	unlock()
	if err != nil {
		return SaveResult{}, fmt.Errorf("service.DraftService.Save: %w", err)
	}

	result, err := s.saver.SaveTrip(ctx, trip)
	if err != nil {
		return SaveResult{}, err
	}

	defer s.locks.Lock(key)()
	current, err := s.store.Load(ctx, key)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return result, nil
	case err != nil:
		s.logger.WarnContext(ctx, "reload after save failed", "key", key, "error", err)
		return result, nil
	}

	if current.UpdatedAt.Equal(trip.UpdatedAt) {
		if err := s.store.Delete(ctx, key); err != nil && !errors.Is(err, domain.ErrNotFound) {
			s.logger.WarnContext(ctx, "clearing saved draft failed", "key", key, "error", err)
		}
		return result, nil
	}

	current.ItineraryID = result.Itinerary.ID
	if _, err := s.persist(ctx, key, current); err != nil {
		s.logger.WarnContext(ctx, "linking edited draft to itinerary failed", "key", key, "error", err)
	}
	return result, nil
}

// Resume rebuilds a draft from a saved itinerary so it can be edited again.
// Places the backend no longer knows are skipped.
func (s *DraftService) Resume(ctx context.Context, session, itineraryID string) (domain.Trip, error) {
	key, err := draftKey(session)
	if err != nil {
		return domain.Trip{}, err
	}

	ctx, span := otel.Tracer("DraftService").Start(ctx, "Resume", trace.WithAttributes(
		attribute.String("itinerary.id", itineraryID),
	))
	defer span.End()

	it, err := s.remote.GetItinerary(ctx, itineraryID)
	if err != nil {
		span.RecordError(err)
		return domain.Trip{}, fmt.Errorf("service.DraftService.Resume: %w", err)
	}
	if len(it.Days) == 0 {
		return domain.Trip{}, fmt.Errorf("service.DraftService.Resume: %w: itinerary %s has no days", domain.ErrValidation, itineraryID)
	}
	if len(it.Days) > domain.MaxDays {
		return domain.Trip{}, fmt.Errorf("service.DraftService.Resume: %w: itinerary %s has %d days, a draft holds at most %d",
			domain.ErrValidation, itineraryID, len(it.Days), domain.MaxDays)
	}
	start, err := time.Parse("2006-01-02", it.Days[0].Date)
	if err != nil {
		return domain.Trip{}, fmt.Errorf("service.DraftService.Resume: %w: bad day date %q", domain.ErrValidation, it.Days[0].Date)
	}

	places, err := s.fetchPlaces(ctx, it)
	if err != nil {
		span.RecordError(err)
		return domain.Trip{}, fmt.Errorf("service.DraftService.Resume: %w", err)
	}

	trip := planner.InitDraft(start, len(it.Days), regionsOf(places))
	trip = planner.SetTitle(trip, it.Title)
	trip.ItineraryID = itineraryID
	for i, day := range it.Days {
		dayID := trip.Days[i].ID
		trip = planner.SetActiveDay(trip, dayID)
		for _, ref := range day.Places {
			p, ok := places[ref.PlaceExternalID]
			if !ok {
				continue
			}
			trip = planner.AddPlaceToActiveDay(trip, p)
			if ref.Note != "" {
				trip = planner.SetPlaceNote(trip, dayID, p.ExternalID, ref.Note)
			}
		}
	}
	trip = planner.SetActiveDay(trip, trip.Days[0].ID)

	defer s.locks.Lock(key)()
	return s.persist(ctx, key, trip)
}

// Discard deletes the draft of session.
func (s *DraftService) Discard(ctx context.Context, session string) error {
	key, err := draftKey(session)
	if err != nil {
		return err
	}
	defer s.locks.Lock(key)()

	if err := s.store.Delete(ctx, key); err != nil {
		return fmt.Errorf("service.DraftService.Discard: %w", err)
	}
	return nil
}

// ---- helpers ---------------------------------------------------------------

func (s *DraftService) persist(ctx context.Context, key string, trip domain.Trip) (domain.Trip, error) {
	trip.UpdatedAt = s.now().UTC()
	if err := s.store.Save(ctx, key, trip); err != nil {
		return domain.Trip{}, fmt.Errorf("service.DraftService: persist: %w", err)
	}
	return trip, nil
}

// logOptimized records the walking length of a day before and after
// optimize_day. An empty dayID means the active day, as in planner.Apply.
func (s *DraftService) logOptimized(ctx context.Context, key, dayID string, before, after domain.Trip) {
	if dayID == "" {
		dayID = before.ActiveDayID
	}
	idx := before.DayIndex(dayID)
	if idx < 0 || len(before.Days[idx].Places) < route.MinPlaces {
		return
	}
	s.logger.InfoContext(ctx, "day route optimised",
		"key", key,
		"day_id", dayID,
		"places", len(before.Days[idx].Places),
		"before_km", route.PathKm(before.Days[idx].Places),
		"after_km", route.PathKm(after.Days[idx].Places),
	)
}

// fetchPlaces loads every distinct place of it in parallel.
func (s *DraftService) fetchPlaces(ctx context.Context, it domain.Itinerary) (map[string]domain.Place, error) {
	var ids []string
	seen := map[string]bool{}
	for _, d := range it.Days {
		for _, ref := range d.Places {
			if !seen[ref.PlaceExternalID] {
				seen[ref.PlaceExternalID] = true
				ids = append(ids, ref.PlaceExternalID)
			}
		}
	}

	found := make([]*domain.Place, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for i, id := range ids {
		g.Go(func() error {
			p, err := s.remote.GetPlace(gctx, id)
			switch {
			case errors.Is(err, domain.ErrNotFound):
				s.logger.WarnContext(gctx, "itinerary references unknown place", "place_id", id)
				return nil
			case err != nil:
				return err
			}
			found[i] = &p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make(map[string]domain.Place, len(ids))
	for _, p := range found {
		if p != nil {
			out[p.ExternalID] = *p
		}
	}
	return out, nil
}

func regionsOf(places map[string]domain.Place) []string {
	seen := map[string]bool{}
	var out []string
	for _, p := range places {
		if p.Region != "" && !seen[p.Region] {
			seen[p.Region] = true
			out = append(out, p.Region)
		}
	}
	slices.Sort(out)
	return out
}

func draftKey(session string) (string, error) {
	if session == "" {
		return "", fmt.Errorf("%w: session key is required", domain.ErrValidation)
	}
	return repo.DraftKey(session), nil
}

// keyedMutex serialises writers per draft key. Entries are dropped when the
// last holder unlocks.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*refMutex
}

type refMutex struct {
	sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*refMutex)}
}

// Lock acquires the mutex for key and returns its unlock func.
func (k *keyedMutex) Lock(key string) (unlock func()) {
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &refMutex{}
		k.locks[key] = m
	}
	m.refs++
	k.mu.Unlock()

	m.Lock()
	return func() {
		m.Unlock()
		k.mu.Lock()
		m.refs--
		if m.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
