package handler

import (
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	openapi_types "github.com/oapi-codegen/runtime/types"

	"github.com/pkordes/trip-planner/internal/domain"
	"github.com/pkordes/trip-planner/internal/planner"
	"github.com/pkordes/trip-planner/internal/service"
	"github.com/pkordes/trip-planner/internal/suggest"
)

// defaultRadiusKm applies when a suggestion request has no radius.
const defaultRadiusKm = 10

const draftNotFound = "draft not found"

// InitDraftRequest is the body of POST /drafts/{key}.
type InitDraftRequest struct {
	Title     string             `json:"title"`
	StartDate openapi_types.Date `json:"start_date"`
	DayCount  int                `json:"day_count"`
	Regions   []string           `json:"regions"`
}

// ApplySuggestionsRequest is the body of POST /drafts/{key}/suggestions/apply.
// Count <= 0 adds up to the engine's default limit.
type ApplySuggestionsRequest struct {
	RadiusKm float64  `json:"radius_km"`
	Query    string   `json:"q"`
	Category string   `json:"category"`
	Regions  []string `json:"regions"`
	Count    int      `json:"count"`
}

// ResumeDraftRequest is the body of POST /drafts/{key}/resume.
type ResumeDraftRequest struct {
	ItineraryID string `json:"itinerary_id"`
}

// SuggestionsResponse is the body of GET /drafts/{key}/suggestions.
type SuggestionsResponse struct {
	Places []domain.Place `json:"places"`
}

// InitDraft handles POST /drafts/{key}.
func (s *Server) InitDraft(w http.ResponseWriter, r *http.Request) {
	var req InitDraftRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.StartDate.Time.IsZero() {
		writeRequestError(w, "start_date is required")
		return
	}

	trip, err := s.drafts.Init(r.Context(), chi.URLParam(r, "key"), service.InitParams{
		Title:     strings.TrimSpace(req.Title),
		StartDate: req.StartDate.Time,
		Days:      req.DayCount,
		Regions:   req.Regions,
	})
	if err != nil {
		s.writeServiceError(w, r, err, draftNotFound)
		return
	}
	writeJSON(w, http.StatusCreated, trip)
}

// GetDraft handles GET /drafts/{key}.
func (s *Server) GetDraft(w http.ResponseWriter, r *http.Request) {
	trip, err := s.drafts.Get(r.Context(), chi.URLParam(r, "key"))
	if err != nil {
		s.writeServiceError(w, r, err, draftNotFound)
		return
	}
	writeJSON(w, http.StatusOK, trip)
}

// DiscardDraft handles DELETE /drafts/{key}.
func (s *Server) DiscardDraft(w http.ResponseWriter, r *http.Request) {
	if err := s.drafts.Discard(r.Context(), chi.URLParam(r, "key")); err != nil {
		s.writeServiceError(w, r, err, draftNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ApplyCommand handles POST /drafts/{key}/commands.
func (s *Server) ApplyCommand(w http.ResponseWriter, r *http.Request) {
	var cmd planner.Command
	if !decodeJSON(w, r, &cmd) {
		return
	}
	if cmd.Type == "" {
		writeRequestError(w, "type is required")
		return
	}

	trip, err := s.drafts.Apply(r.Context(), chi.URLParam(r, "key"), cmd)
	if err != nil {
		s.writeServiceError(w, r, err, draftNotFound)
		return
	}
	writeJSON(w, http.StatusOK, trip)
}

// ListSuggestions handles GET /drafts/{key}/suggestions.
// Supports ?radius_km= (default 10), ?q=, ?category= and repeated ?region=.
func (s *Server) ListSuggestions(w http.ResponseWriter, r *http.Request) {
	values := r.URL.Query()
	radius := float64(defaultRadiusKm)
	if raw := values.Get("radius_km"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			writeRequestError(w, "radius_km must be a finite number")
			return
		}
		radius = v
	}

	places, err := s.drafts.Suggest(r.Context(), chi.URLParam(r, "key"), suggest.Query{
		Regions:  values["region"],
		RadiusKm: radius,
		Text:     values.Get("q"),
		Category: values.Get("category"),
	})
	if err != nil {
		s.writeServiceError(w, r, err, draftNotFound)
		return
	}
	if places == nil {
		places = []domain.Place{}
	}
	writeJSON(w, http.StatusOK, SuggestionsResponse{Places: places})
}

// ApplySuggestions handles POST /drafts/{key}/suggestions/apply.
func (s *Server) ApplySuggestions(w http.ResponseWriter, r *http.Request) {
	var req ApplySuggestionsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.RadiusKm == 0 {
		req.RadiusKm = defaultRadiusKm
	}

	trip, err := s.drafts.SuggestForActiveDay(r.Context(), chi.URLParam(r, "key"), suggest.Query{
		Regions:  req.Regions,
		RadiusKm: req.RadiusKm,
		Text:     req.Query,
		Category: req.Category,
	}, req.Count)
	if err != nil {
		s.writeServiceError(w, r, err, draftNotFound)
		return
	}
	writeJSON(w, http.StatusOK, trip)
}

// SaveDraft handles POST /drafts/{key}/save.
// A failed save answers 502 with a user-facing message; the draft is kept.
func (s *Server) SaveDraft(w http.ResponseWriter, r *http.Request) {
	result, err := s.drafts.Save(r.Context(), chi.URLParam(r, "key"))
	if err != nil {
		s.writeServiceError(w, r, err, draftNotFound)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// ResumeDraft handles POST /drafts/{key}/resume.
func (s *Server) ResumeDraft(w http.ResponseWriter, r *http.Request) {
	var req ResumeDraftRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	id := strings.TrimSpace(req.ItineraryID)
	if id == "" {
		writeRequestError(w, "itinerary_id is required")
		return
	}

	trip, err := s.drafts.Resume(r.Context(), chi.URLParam(r, "key"), id)
	if err != nil {
		s.writeServiceError(w, r, err, "itinerary not found")
		return
	}
	writeJSON(w, http.StatusOK, trip)
}
