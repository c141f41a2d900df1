// Package api exposes the HTTP surface of responderd: signal intake, event
// and match queries, acknowledgments, and the NGO catalog.
package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/thejenniferfang/disaster-response/internal/httpx"
	"github.com/thejenniferfang/disaster-response/internal/pipeline"
	"github.com/thejenniferfang/disaster-response/internal/registry"
	"github.com/thejenniferfang/disaster-response/internal/store"
	"github.com/thejenniferfang/disaster-response/internal/types"
)

// EventReader serves event queries with staleness applied on read.
type EventReader interface {
	Event(ctx context.Context, id string) (types.Event, error)
	Events(ctx context.Context, f store.EventFilter) ([]types.Event, error)
	Acknowledge(ctx context.Context, eventID string) error
}

// EventMatcher ranks NGOs for an event.
type EventMatcher interface {
	Match(ctx context.Context, e types.Event) ([]types.Match, error)
}

// Server is the HTTP API.
type Server struct {
	logger   *zap.Logger
	pipeline *pipeline.Pipeline
	events   EventReader
	matcher  EventMatcher
	registry registry.NGORegistry
}

// NewServer creates the API server.
func NewServer(p *pipeline.Pipeline, events EventReader, matcher EventMatcher, reg registry.NGORegistry, logger *zap.Logger) *Server {
	return &Server{
		logger:   logger.Named("api"),
		pipeline: p,
		events:   events,
		matcher:  matcher,
		registry: reg,
	}
}

// Router builds the chi router with all routes mounted.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(15 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, map[string]any{"ok": true, "service": "responderd"})
	})

	r.Route("/v1", func(r chi.Router) {
		r.Post("/signals", s.handleIngestSignal)
		r.Get("/events", s.handleListEvents)
		r.Get("/events/{id}", s.handleGetEvent)
		r.Get("/events/{id}/matches", s.handleEventMatches)
		r.Post("/events/{id}/ack", s.handleAckEvent)
		r.Get("/ngos", s.handleListNGOs)
		r.Get("/ngos/{id}", s.handleGetNGO)
	})

	return r
}

func (s *Server) handleIngestSignal(w http.ResponseWriter, r *http.Request) {
	var signal types.Signal
	if err := httpx.DecodeJSON(r, &signal); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid signal payload: "+err.Error())
		return
	}

	result, err := s.pipeline.ProcessSignal(r.Context(), signal)
	if err != nil {
		s.writeError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusAccepted, result)
}

func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.EventFilter{
		DisasterType: types.DisasterType(q.Get("type")),
		Region:       q.Get("region"),
		Status:       types.EventStatus(q.Get("status")),
		Limit:        parseLimit(q.Get("limit"), 100),
	}
	if filter.DisasterType != "" && !filter.DisasterType.Valid() {
		httpx.WriteError(w, http.StatusBadRequest, "unknown disaster type "+q.Get("type"))
		return
	}

	events, err := s.events.Events(r.Context(), filter)
	if err != nil {
		s.writeError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"items": events})
}

func (s *Server) handleGetEvent(w http.ResponseWriter, r *http.Request) {
	e, err := s.events.Event(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, e)
}

func (s *Server) handleEventMatches(w http.ResponseWriter, r *http.Request) {
	e, err := s.events.Event(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	matches, err := s.matcher.Match(r.Context(), e)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if matches == nil {
		matches = []types.Match{}
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"items": matches})
}

func (s *Server) handleAckEvent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.events.Acknowledge(r.Context(), id); err != nil {
		s.writeError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"id": id, "status": string(types.StatusNotified)})
}

func (s *Server) handleListNGOs(w http.ResponseWriter, r *http.Request) {
	q := registry.Query{
		DisasterType: types.DisasterType(r.URL.Query().Get("type")),
		Region:       r.URL.Query().Get("region"),
	}
	ngos, err := s.registry.Query(r.Context(), q)
	if err != nil {
		s.writeError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"items": ngos})
}

func (s *Server) handleGetNGO(w http.ResponseWriter, r *http.Request) {
	n, err := s.registry.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, n)
}

// writeError maps domain errors to HTTP statuses.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	switch {
	case types.IsValidation(err):
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
	case types.IsNotFound(err):
		httpx.WriteError(w, http.StatusNotFound, err.Error())
	case types.IsConflict(err):
		httpx.WriteError(w, http.StatusConflict, err.Error())
	default:
		s.logger.Error("Request failed", zap.Error(err))
		httpx.WriteError(w, http.StatusInternalServerError, err.Error())
	}
}

func parseLimit(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}
