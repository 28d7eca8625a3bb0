// Package api serves the rule table, single-record evaluation, and run
// history over HTTP.
package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/nyc-orr/governance-orgs/internal/eligibility"
	"github.com/nyc-orr/governance-orgs/internal/model"
	"github.com/nyc-orr/governance-orgs/internal/store"
)

const maxListLimit = 500

// Server holds the dependencies of the HTTP handlers. The store is optional;
// without one the run endpoints answer 503.
type Server struct {
	engine *eligibility.Engine
	store  store.Store
	log    *zap.Logger
}

// NewServer creates a Server.
func NewServer(engine *eligibility.Engine, st store.Store) *Server {
	return &Server{
		engine: engine,
		store:  st,
		log:    zap.L().With(zap.String("component", "api")),
	}
}

// Router builds the route table.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)
	r.Get("/rules", s.handleRules)
	r.Post("/evaluate", s.handleEvaluate)
	r.Route("/runs", func(r chi.Router) {
		r.Get("/", s.handleListRuns)
		r.Get("/{id}", s.handleGetRun)
	})
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleRules(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"rules":  eligibility.Document(s.engine.Rules()),
		"config": s.engine.Config(),
	})
}

// evaluateRequest is a record given as column name to value.
type evaluateRequest struct {
	Record model.Record `json:"record"`
}

func (s *Server) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	var req evaluateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Record) == 0 {
		writeError(w, http.StatusBadRequest, "record is required")
		return
	}
	writeJSON(w, http.StatusOK, s.engine.Evaluate(req.Record))
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusServiceUnavailable, "run history is disabled")
		return
	}

	q := r.URL.Query()
	filter := store.RunFilter{Status: model.RunStatus(q.Get("status"))}
	var err error
	if filter.Limit, err = intParam(q.Get("limit"), 0, maxListLimit); err != nil {
		writeError(w, http.StatusBadRequest, "limit: "+err.Error())
		return
	}
	if filter.Offset, err = intParam(q.Get("offset"), 0, -1); err != nil {
		writeError(w, http.StatusBadRequest, "offset: "+err.Error())
		return
	}

	runs, err := s.store.ListRuns(r.Context(), filter)
	if err != nil {
		s.log.Error("api: list runs", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "list runs failed")
		return
	}
	if runs == nil {
		runs = []model.Run{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

// handleGetRun accepts either a run id or a run version.
func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusServiceUnavailable, "run history is disabled")
		return
	}

	key := chi.URLParam(r, "id")
	run, err := s.store.GetRun(r.Context(), key)
	if eris.Is(err, store.ErrNotFound) {
		run, err = s.store.GetRunByVersion(r.Context(), key)
	}
	switch {
	case eris.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "run not found")
	case err != nil:
		s.log.Error("api: get run", zap.String("run", key), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "get run failed")
	default:
		writeJSON(w, http.StatusOK, run)
	}
}

// intParam parses a non-negative integer. max < 0 means unbounded.
func intParam(raw string, def, max int) (int, error) {
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, eris.Errorf("must be a non-negative integer, got %q", raw)
	}
	if max >= 0 && n > max {
		return 0, eris.Errorf("must be at most %d", max)
	}
	return n, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
