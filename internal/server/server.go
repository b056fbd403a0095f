// Package server exposes the matchup statistics engine over HTTP.
package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/rinko/go-arena-stats/internal/arena"
	"github.com/rinko/go-arena-stats/internal/config"
)

// Server wires the engine to its HTTP routes.
type Server struct {
	engine *arena.Engine
	cfg    *config.Config
	log    *slog.Logger
}

// New builds a Server around an engine.
func New(engine *arena.Engine, cfg *config.Config, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{engine: engine, cfg: cfg, log: log}
}

// Handler assembles the full route table with CORS and request logging.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/summaries", s.handleListSummaries).Methods("GET")
	api.HandleFunc("/seasons", s.handleListSeasons).Methods("GET")
	api.HandleFunc("/battles", s.handleIngestBattle).Methods("POST")
	api.HandleFunc("/manual_add", s.handleManualAdd).Methods("POST")
	api.HandleFunc("/import", s.requireAdmin(s.handleImport)).Methods("POST")
	api.HandleFunc("/summaries/delete", s.requireAdmin(s.handleDeleteMatchup)).Methods("POST")
	api.HandleFunc("/summaries/batch_delete", s.requireAdmin(s.handleBatchDelete)).Methods("POST")
	api.HandleFunc("/submissions", s.handleCreateSubmission).Methods("POST")
	api.HandleFunc("/submissions", s.requireAdmin(s.handleListSubmissions)).Methods("GET")
	api.HandleFunc("/submissions/{id}/approve", s.requireAdmin(s.handleApproveSubmission)).Methods("POST")
	api.HandleFunc("/submissions/{id}/reject", s.requireAdmin(s.handleRejectSubmission)).Methods("POST")

	origins := s.cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	corsHandler := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
	}).Handler(r)

	return s.logRequests(corsHandler)
}

// ListenAndServe starts the HTTP server; it blocks until the listener fails.
func (s *Server) ListenAndServe() error {
	s.log.Info("listening", "addr", s.cfg.Addr)
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return srv.ListenAndServe()
}

// statusRecorder captures the response code for the request log.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (w *statusRecorder) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		reqID := uuid.NewString()
		rec.Header().Set("X-Request-Id", reqID)

		next.ServeHTTP(rec, r)

		s.log.Info("request",
			"id", reqID,
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start).String(),
		)
	})
}

// requireAdmin gates destructive and moderation endpoints behind the
// configured bearer token. With no token configured the endpoints are
// disabled outright.
func (s *Server) requireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.AdminToken == "" {
			writeJSON(w, http.StatusForbidden, map[string]string{"error": "admin endpoints are disabled"})
			return
		}
		if r.Header.Get("Authorization") != "Bearer "+s.cfg.AdminToken {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
			return
		}
		next(w, r)
	}
}
