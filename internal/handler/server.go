// Package handler implements the HTTP API of the trip planner.
// All handlers are methods on Server. They decode the request, call the
// draft service and map domain errors to HTTP statuses; no planning logic
// lives here.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pkordes/trip-planner/internal/domain"
	"github.com/pkordes/trip-planner/internal/planner"
	"github.com/pkordes/trip-planner/internal/service"
	"github.com/pkordes/trip-planner/internal/suggest"
)

// DraftServicer defines the draft operations the handlers depend on.
// *service.DraftService satisfies it; tests inject a mock.
type DraftServicer interface {
	Init(ctx context.Context, session string, p service.InitParams) (domain.Trip, error)
	Get(ctx context.Context, session string) (domain.Trip, error)
	Apply(ctx context.Context, session string, cmd planner.Command) (domain.Trip, error)
	Suggest(ctx context.Context, session string, q suggest.Query) ([]domain.Place, error)
	SuggestForActiveDay(ctx context.Context, session string, q suggest.Query, n int) (domain.Trip, error)
	Save(ctx context.Context, session string) (service.SaveResult, error)
	Resume(ctx context.Context, session, itineraryID string) (domain.Trip, error)
	Discard(ctx context.Context, session string) error
}

var _ DraftServicer = (*service.DraftService)(nil)

// Server holds the dependencies shared by every handler.
type Server struct {
	drafts DraftServicer
	logger *slog.Logger
}

// NewServer constructs the Server with all its dependencies.
func NewServer(drafts DraftServicer, logger *slog.Logger) *Server {
	return &Server{drafts: drafts, logger: logger}
}

// Routes registers every API route on r. Registering on the caller's router
// (instead of mounting a sub-router) keeps full route patterns visible to the
// request logging middleware.
func (s *Server) Routes(r chi.Router) {
	r.Get("/healthz", s.GetHealth)
	r.Get("/openapi.yaml", s.GetOpenAPI)

	r.Route("/drafts/{key}", func(r chi.Router) {
		r.Post("/", s.InitDraft)
		r.Get("/", s.GetDraft)
		r.Delete("/", s.DiscardDraft)
		r.Post("/commands", s.ApplyCommand)
		r.Get("/suggestions", s.ListSuggestions)
		r.Post("/suggestions/apply", s.ApplySuggestions)
		r.Post("/save", s.SaveDraft)
		r.Post("/resume", s.ResumeDraft)
	})
}

// Handler returns a standalone router serving Routes. Used by tests.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	s.Routes(r)
	return r
}
