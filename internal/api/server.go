// Package api serves the arena over HTTP: run matches, browse stored
// results, list the game catalog.
package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/null-channel/ai-arena/internal/agents"
	"github.com/null-channel/ai-arena/internal/store"
)

// DefaultRequestTimeout bounds one request, including a synchronous match.
const DefaultRequestTimeout = 5 * time.Minute

// Config wires the server's collaborators and match defaults.
type Config struct {
	// Store persists matches and serves the read routes. nil disables
	// persistence; the read routes answer 503.
	Store *store.Store
	// Secrets resolves provider credentials for API-run matches.
	Secrets agents.SecretSource
	// MaxAttempts, MoveTimeout and MaxTurns are the server-side match
	// defaults; requests override them per match.
	MaxAttempts int
	MoveTimeout time.Duration
	MaxTurns    int
	// RequestTimeout cancels requests that outlive it. Default
	// DefaultRequestTimeout.
	RequestTimeout time.Duration
	Logger         zerolog.Logger
}

// Server handles HTTP requests.
type Server struct {
	store   *store.Store
	secrets agents.SecretSource
	cfg     Config
	log     zerolog.Logger
}

// NewServer creates a new API server.
func NewServer(cfg Config) *Server {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = DefaultRequestTimeout
	}
	return &Server{
		store:   cfg.Store,
		secrets: cfg.Secrets,
		cfg:     cfg,
		log:     cfg.Logger,
	}
}

// Routes sets up the HTTP routes with proper middleware.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(s.recoverer)
	r.Use(middleware.Timeout(s.cfg.RequestTimeout))

	r.Get("/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/games", s.handleListGames)
		r.Post("/matches", s.handleRunMatch)
		r.Get("/matches", s.handleListMatches)
		r.Get("/matches/{id}", s.handleGetMatch)
		r.Get("/batches", s.handleListBatches)
	})

	return r
}

// requestLogger logs one line per finished request.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("request")
	})
}

// writeJSON writes a JSON response with proper headers.
func (s *Server) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Arena-Version", ArenaVersion)
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

func qInt(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
