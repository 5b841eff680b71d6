package service_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/trip-planner/internal/catalog"
	"github.com/pkordes/trip-planner/internal/domain"
	"github.com/pkordes/trip-planner/internal/planner"
	"github.com/pkordes/trip-planner/internal/repo"
	"github.com/pkordes/trip-planner/internal/service"
	"github.com/pkordes/trip-planner/internal/suggest"
)

// ---- helpers ---------------------------------------------------------------

type fixture struct {
	svc    *service.DraftService
	store  repo.DraftStore
	saver  *mockSaver
	remote *mockRemote
}

// newFixture wires a DraftService over an in-memory store, the bundled
// catalog and stubbed remote/saver. The clock ticks one second per call so
// UpdatedAt values are distinct and predictable.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:  repo.NewMemoryStore(),
		saver:  &mockSaver{},
		remote: &mockRemote{},
	}
	engine := suggest.NewEngine(catalog.Default(), discardLogger())
	f.svc = service.NewDraftService(f.store, engine, f.saver, f.remote, discardLogger())

	var mu sync.Mutex
	clock := time.Date(2025, 10, 20, 9, 0, 0, 0, time.UTC)
	f.svc.SetClock(func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		clock = clock.Add(time.Second)
		return clock
	})
	return f
}

func (f *fixture) init(t *testing.T, session string) domain.Trip {
	t.Helper()
	trip, err := f.svc.Init(context.Background(), session, service.InitParams{
		Title:     "CDMX",
		StartDate: tripStart,
		Days:      2,
		Regions:   []string{"cdmx"},
	})
	require.NoError(t, err)
	return trip
}

func addPlace(id string) planner.Command {
	p := pl(id)
	return planner.Command{Type: planner.CmdAddPlace, Place: &p}
}

// ---- Init / Get ------------------------------------------------------------

func TestDraftService_InitAndGet(t *testing.T) {
	f := newFixture(t)

	created := f.init(t, "s1")
	got, err := f.svc.Get(context.Background(), "s1")

	require.NoError(t, err)
	assert.Equal(t, created, got)
	assert.Equal(t, "CDMX", got.Title)
	assert.Len(t, got.Days, 2)
	assert.False(t, got.UpdatedAt.IsZero())
}

func TestDraftService_EmptySession(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Init(context.Background(), "", service.InitParams{})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = f.svc.Get(context.Background(), "")
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestDraftService_GetMissing(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Get(context.Background(), "nobody")

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

// ---- Apply -----------------------------------------------------------------

func TestDraftService_ApplyPersists(t *testing.T) {
	f := newFixture(t)
	before := f.init(t, "s1")

	after, err := f.svc.Apply(context.Background(), "s1", addPlace("a"))
	require.NoError(t, err)

	stored, err := f.store.Load(context.Background(), repo.DraftKey("s1"))
	require.NoError(t, err)
	assert.Equal(t, after, stored)
	assert.True(t, after.UpdatedAt.After(before.UpdatedAt))
	require.Len(t, stored.Days[0].Places, 1)
}

func TestDraftService_ApplyMalformedKeepsDraft(t *testing.T) {
	f := newFixture(t)
	before := f.init(t, "s1")

	_, err := f.svc.Apply(context.Background(), "s1", planner.Command{Type: "fly"})
	require.ErrorIs(t, err, domain.ErrValidation)

	stored, err := f.svc.Get(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, before, stored)
}

func TestDraftService_ApplyMissingDraft(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Apply(context.Background(), "nobody", planner.Command{Type: planner.CmdAddDay})

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

// TestDraftService_ConcurrentAppliesAreSerialised fires many add_place
// commands at one draft at once; none may be lost.
func TestDraftService_ConcurrentAppliesAreSerialised(t *testing.T) {
	f := newFixture(t)
	f.init(t, "s1")

	var wg sync.WaitGroup
	for i := range 25 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Apply(context.Background(), "s1", addPlace(fmt.Sprintf("p%02d", i)))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := f.svc.Get(context.Background(), "s1")
	require.NoError(t, err)
	assert.Len(t, got.Days[0].Places, 25)
}

// ---- suggestions -----------------------------------------------------------

func TestDraftService_SuggestExcludesTripPlaces(t *testing.T) {
	f := newFixture(t)
	f.init(t, "s1")
	zocalo := domain.Place{ExternalID: "cdmx-zocalo", Name: "Zócalo", Lat: 19.4326, Lng: -99.1332}
	_, err := f.svc.Apply(context.Background(), "s1", planner.Command{Type: planner.CmdAddPlace, Place: &zocalo})
	require.NoError(t, err)

	got, err := f.svc.Suggest(context.Background(), "s1", suggest.Query{RadiusKm: 10})

	require.NoError(t, err)
	assert.NotEmpty(t, got)
	for _, p := range got {
		assert.NotEqual(t, "cdmx-zocalo", p.ExternalID)
		assert.Equal(t, "cdmx", p.Region)
	}
}

func TestDraftService_SuggestForActiveDay(t *testing.T) {
	f := newFixture(t)
	f.init(t, "s1")

	got, err := f.svc.SuggestForActiveDay(context.Background(), "s1", suggest.Query{RadiusKm: 10}, 2)
	require.NoError(t, err)

	assert.Len(t, got.Days[0].Places, 2)
	assert.Equal(t, "cdmx-zocalo", got.Days[0].Places[0].ExternalID)

	stored, err := f.svc.Get(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, got, stored)
}

// ---- Save ------------------------------------------------------------------

func TestDraftService_SaveClearsDraft(t *testing.T) {
	f := newFixture(t)
	f.init(t, "s1")
	_, err := f.svc.Apply(context.Background(), "s1", addPlace("a"))
	require.NoError(t, err)

	var saved domain.Trip
	f.saver.saveTrip = func(_ context.Context, trip domain.Trip) (service.SaveResult, error) {
		saved = trip
		return service.SaveResult{Itinerary: domain.ItinerarySummary{ID: "it-1"}}, nil
	}

	res, err := f.svc.Save(context.Background(), "s1")

	require.NoError(t, err)
	assert.Equal(t, "it-1", res.Itinerary.ID)
	assert.Len(t, saved.Days[0].Places, 1)
	_, err = f.svc.Get(context.Background(), "s1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDraftService_SaveFailureKeepsDraft(t *testing.T) {
	f := newFixture(t)
	f.init(t, "s1")
	before, err := f.svc.Apply(context.Background(), "s1", addPlace("a"))
	require.NoError(t, err)

	f.saver.saveTrip = func(context.Context, domain.Trip) (service.SaveResult, error) {
		return service.SaveResult{}, &service.SaveError{Stage: service.StageSubmit, Err: errors.New("backend down")}
	}

	_, err = f.svc.Save(context.Background(), "s1")

	var se *service.SaveError
	require.ErrorAs(t, err, &se)
	stored, err := f.svc.Get(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, before, stored)
}

func TestDraftService_EditDuringSaveKeepsDraftLinked(t *testing.T) {
	f := newFixture(t)
	f.init(t, "s1")
	_, err := f.svc.Apply(context.Background(), "s1", addPlace("a"))
	require.NoError(t, err)

	f.saver.saveTrip = func(ctx context.Context, _ domain.Trip) (service.SaveResult, error) {
		_, err := f.svc.Apply(ctx, "s1", addPlace("b"))
		require.NoError(t, err)
		return service.SaveResult{Itinerary: domain.ItinerarySummary{ID: "it-7"}}, nil
	}

	_, err = f.svc.Save(context.Background(), "s1")
	require.NoError(t, err)

	stored, err := f.svc.Get(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, "it-7", stored.ItineraryID)
	assert.Len(t, stored.Days[0].Places, 2)
}

func TestDraftService_SaveMissingDraft(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Save(context.Background(), "nobody")

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

// TestDraftService_SaveEndToEnd runs the real orchestrator against a stubbed
// backend.
func TestDraftService_SaveEndToEnd(t *testing.T) {
	r := newOKRemote()
	store := repo.NewMemoryStore()
	svc := service.NewDraftService(store,
		suggest.NewEngine(catalog.Default(), discardLogger()),
		service.NewSaveOrchestrator(r, discardLogger(), service.SaveOptions{}),
		r, discardLogger())

	_, err := svc.Init(context.Background(), "s1", service.InitParams{StartDate: tripStart, Days: 1})
	require.NoError(t, err)
	_, err = svc.Apply(context.Background(), "s1", addPlace("a"))
	require.NoError(t, err)

	res, err := svc.Save(context.Background(), "s1")

	require.NoError(t, err)
	assert.Equal(t, "it-1", res.Itinerary.ID)
	assert.Equal(t, []string{"a"}, r.created)
	_, err = svc.Get(context.Background(), "s1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDraftService_OptimizeDayLogsRouteLength(t *testing.T) {
	var buf bytes.Buffer
	engine := suggest.NewEngine(catalog.Default(), discardLogger())
	svc := service.NewDraftService(repo.NewMemoryStore(), engine, &mockSaver{}, &mockRemote{}, slog.New(slog.NewJSONHandler(&buf, nil)))
	ctx := context.Background()

	trip, err := svc.Init(ctx, "s1", service.InitParams{StartDate: tripStart, Days: 1})
	require.NoError(t, err)
	for _, p := range []domain.Place{
		{ExternalID: "p0", Name: "P0", Lat: 19.43, Lng: -99.13},
		{ExternalID: "p1", Name: "P1", Lat: 19.40, Lng: -99.20},
		{ExternalID: "p2", Name: "P2", Lat: 19.41, Lng: -99.14},
	} {
		_, err := svc.Apply(ctx, "s1", planner.Command{Type: planner.CmdAddPlace, Place: &p})
		require.NoError(t, err)
	}
	buf.Reset()

	got, err := svc.Apply(ctx, "s1", planner.Command{Type: planner.CmdOptimizeDay})
	require.NoError(t, err)

	assert.Equal(t, []string{"p0", "p2", "p1"}, []string{
		got.Days[0].Places[0].ExternalID, got.Days[0].Places[1].ExternalID, got.Days[0].Places[2].ExternalID,
	})

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "day route optimised", entry["msg"])
	assert.Equal(t, trip.Days[0].ID, entry["day_id"])
	assert.EqualValues(t, 3, entry["places"])
	before, ok := entry["before_km"].(float64)
	require.True(t, ok)
	after, ok := entry["after_km"].(float64)
	require.True(t, ok)
	assert.Less(t, after, before)
}

func TestDraftService_OptimizeSmallDayLogsNothing(t *testing.T) {
	var buf bytes.Buffer
	engine := suggest.NewEngine(catalog.Default(), discardLogger())
	svc := service.NewDraftService(repo.NewMemoryStore(), engine, &mockSaver{}, &mockRemote{}, slog.New(slog.NewJSONHandler(&buf, nil)))
	ctx := context.Background()

	_, err := svc.Init(ctx, "s1", service.InitParams{StartDate: tripStart, Days: 1})
	require.NoError(t, err)
	_, err = svc.Apply(ctx, "s1", addPlace("a"))
	require.NoError(t, err)
	buf.Reset()

	_, err = svc.Apply(ctx, "s1", planner.Command{Type: planner.CmdOptimizeDay})

	require.NoError(t, err)
	assert.Empty(t, buf.String())
}

// ---- Resume ----------------------------------------------------------------

func TestDraftService_Resume(t *testing.T) {
	f := newFixture(t)
	f.remote.getItinerary = func(_ context.Context, id string) (domain.Itinerary, error) {
		require.Equal(t, "it-3", id)
		return domain.Itinerary{
			ID:    "it-3",
			Title: "Oaxaca",
			Days: []domain.PayloadDay{
				{Date: "2025-12-01", Places: []domain.PayloadPlace{{PlaceExternalID: "b"}, {PlaceExternalID: "a", Note: "mezcal"}}},
				{Date: "2025-12-02", Places: []domain.PayloadPlace{{PlaceExternalID: "gone"}, {PlaceExternalID: "c"}}},
			},
		}, nil
	}
	f.remote.getPlace = func(_ context.Context, id string) (domain.Place, error) {
		if id == "gone" {
			return domain.Place{}, domain.ErrNotFound
		}
		p := pl(id)
		p.Region = "oax"
		return p, nil
	}

	trip, err := f.svc.Resume(context.Background(), "s1", "it-3")
	require.NoError(t, err)

	assert.Equal(t, "it-3", trip.ItineraryID)
	assert.Equal(t, "Oaxaca", trip.Title)
	assert.Equal(t, []string{"oax"}, trip.Regions)
	require.Len(t, trip.Days, 2)
	assert.Equal(t, "Día 1 (01 dic)", trip.Days[0].Label)
	assert.Equal(t, trip.Days[0].ID, trip.ActiveDayID)
	assert.Equal(t, []string{"b", "a"}, []string{trip.Days[0].Places[0].ExternalID, trip.Days[0].Places[1].ExternalID})
	assert.Equal(t, "mezcal", trip.Days[0].Notes["a"])
	require.Len(t, trip.Days[1].Places, 1)
	assert.Equal(t, "c", trip.Days[1].Places[0].ExternalID)

	stored, err := f.svc.Get(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, trip, stored)
}

func TestDraftService_ResumeErrors(t *testing.T) {
	f := newFixture(t)

	f.remote.getItinerary = func(context.Context, string) (domain.Itinerary, error) {
		return domain.Itinerary{}, domain.ErrNotFound
	}
	_, err := f.svc.Resume(context.Background(), "s1", "nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	f.remote.getItinerary = func(context.Context, string) (domain.Itinerary, error) {
		return domain.Itinerary{ID: "it"}, nil
	}
	_, err = f.svc.Resume(context.Background(), "s1", "it")
	assert.ErrorIs(t, err, domain.ErrValidation)

	f.remote.getItinerary = func(context.Context, string) (domain.Itinerary, error) {
		return domain.Itinerary{ID: "it", Days: []domain.PayloadDay{{Date: "2025-12-01", Places: []domain.PayloadPlace{{PlaceExternalID: "a"}}}}}, nil
	}
	f.remote.getPlace = func(context.Context, string) (domain.Place, error) {
		return domain.Place{}, errors.New("backend down")
	}
	_, err = f.svc.Resume(context.Background(), "s1", "it")
	require.Error(t, err)

	_, err = f.svc.Get(context.Background(), "s1")
	assert.ErrorIs(t, err, domain.ErrNotFound, "failed resume must not create a draft")
}

func TestDraftService_ResumeTooManyDays(t *testing.T) {
	f := newFixture(t)
	days := make([]domain.PayloadDay, domain.MaxDays+1)
	for i := range days {
		days[i] = domain.PayloadDay{
			Date:   time.Date(2025, 12, 1+i, 0, 0, 0, 0, time.UTC).Format("2006-01-02"),
			Places: []domain.PayloadPlace{{PlaceExternalID: "a"}},
		}
	}
	f.remote.getItinerary = func(context.Context, string) (domain.Itinerary, error) {
		return domain.Itinerary{ID: "it-long", Days: days}, nil
	}
	fetched := false
	f.remote.getPlace = func(_ context.Context, id string) (domain.Place, error) {
		fetched = true
		return pl(id), nil
	}

	_, err := f.svc.Resume(context.Background(), "s1", "it-long")

	require.ErrorIs(t, err, domain.ErrValidation)
	assert.Contains(t, err.Error(), "8 days")
	assert.False(t, fetched, "places are not fetched for an itinerary that cannot be resumed")
	_, err = f.svc.Get(context.Background(), "s1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

// ---- Discard ---------------------------------------------------------------

func TestDraftService_Discard(t *testing.T) {
	f := newFixture(t)
	f.init(t, "s1")

	require.NoError(t, f.svc.Discard(context.Background(), "s1"))

	_, err := f.svc.Get(context.Background(), "s1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, f.svc.Discard(context.Background(), "s1"), domain.ErrNotFound)
}
