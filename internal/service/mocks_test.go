package service_test

import (
	"context"
	"io"
	"log/slog"

	"github.com/pkordes/trip-planner/internal/domain"
	"github.com/pkordes/trip-planner/internal/service"
)

// mockRemote is a hand-written test double for service.RemoteAPI.
// Each method is a function field; set only the ones your test needs.
type mockRemote struct {
	createPlace     func(ctx context.Context, p domain.Place) error
	getPlace        func(ctx context.Context, id string) (domain.Place, error)
	createItinerary func(ctx context.Context, payload domain.ItineraryPayload) (domain.ItinerarySummary, error)
	updateItinerary func(ctx context.Context, id string, payload domain.ItineraryPayload) (domain.ItinerarySummary, error)
	getItinerary    func(ctx context.Context, id string) (domain.Itinerary, error)
}

func (m *mockRemote) CreatePlace(ctx context.Context, p domain.Place) error {
	return m.createPlace(ctx, p)
}
func (m *mockRemote) GetPlace(ctx context.Context, id string) (domain.Place, error) {
	return m.getPlace(ctx, id)
}
func (m *mockRemote) CreateItinerary(ctx context.Context, payload domain.ItineraryPayload) (domain.ItinerarySummary, error) {
	return m.createItinerary(ctx, payload)
}
func (m *mockRemote) UpdateItinerary(ctx context.Context, id string, payload domain.ItineraryPayload) (domain.ItinerarySummary, error) {
	return m.updateItinerary(ctx, id, payload)
}
func (m *mockRemote) GetItinerary(ctx context.Context, id string) (domain.Itinerary, error) {
	return m.getItinerary(ctx, id)
}

// compile-time check: mockRemote must satisfy service.RemoteAPI.
var _ service.RemoteAPI = (*mockRemote)(nil)

// mockSaver is a hand-written test double for service.TripSaver.
type mockSaver struct {
	saveTrip func(ctx context.Context, trip domain.Trip) (service.SaveResult, error)
}

func (m *mockSaver) SaveTrip(ctx context.Context, trip domain.Trip) (service.SaveResult, error) {
	return m.saveTrip(ctx, trip)
}

var _ service.TripSaver = (*mockSaver)(nil)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
