// internal/httpserver/server.go
//
// HTTP server wiring for the word-game backend.
// Responsibilities:
//   - Router + middleware (JSON, CORS, timeouts, panic recovery, request IDs).
//   - Public endpoints: "/", "/health".
//   - Game endpoints (optional auth): POST /game/new, POST /game/guess,
//     POST /game/share, GET /game/open-shared.
//   - Series endpoints (require auth): /series/*.
//   - Leaderboard endpoints: GET /rankings/top (public), GET /rankings/me.
//   - Daily Challenge endpoints (optional auth): mounted under /daily.
//   - Auth + profile/stat endpoints (require auth): /auth/*, /profile,
//     /stats/me, /games/mine.
//   - Live updates: GET /ws pushes game/series/rankings events.
//
// Notes:
//   - CORS is origin-aware and credentials-enabled (so cookies work).
//   - Optional auth decorates requests with user context when a valid token
//     is present; routes can still run for guests.
//   - Require-auth middleware enforces presence and validity of a JWT.

package httpserver

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/wordfill/server/internal/events"
	"github.com/wordfill/server/internal/rank"
	"github.com/wordfill/server/internal/series"
	"github.com/wordfill/server/internal/store"
	"github.com/wordfill/server/internal/words"
)

// Server bundles the router with the services the handlers depend on.
type Server struct {
	r      *chi.Mux
	store  store.Store
	db     *sql.DB // daily-challenge tables; nil disables /daily
	hub    *events.Hub
	series *series.Coordinator
	rank   *rank.Service
}

// New constructs a Server, installs middleware, and registers routes.
func New(st store.Store, db *sql.DB, hub *events.Hub, rk *rank.Service, co *series.Coordinator) *Server {
	s := &Server{r: chi.NewRouter(), store: st, db: db, hub: hub, series: co, rank: rk}

	// --- middleware ---
	s.r.Use(chimw.RequestID)                 // add X-Request-ID
	s.r.Use(chimw.RealIP)                    // set RemoteAddr from X-Forwarded-For etc.
	s.r.Use(chimw.Recoverer)                 // recover from panics
	s.r.Use(chimw.Timeout(10 * time.Second)) // bound handler time
	s.r.Use(jsonContentType)                 // default JSON responses
	s.r.Use(corsFromEnv)                     // credentials-friendly CORS

	// --- diagnostics ---
	s.r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"service":"wordfill","endpoints":["/health","POST /game/new","POST /game/guess","/series/*","/rankings/*","/auth/*","/ws"]}`))
	})
	s.r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ok":true}`))
	})

	// Game endpoints — OPTIONAL AUTH (guests can play)
	s.r.With(s.withOptionalAuth()).Post("/game/new", s.handleNewGame)
	s.r.With(s.withOptionalAuth()).Post("/game/guess", s.handleGuess)
	s.r.With(s.withOptionalAuth()).Post("/game/share", s.handleShare)
	s.r.With(s.withOptionalAuth()).Get("/game/open-shared", s.handleOpenShared)

	// Series — REQUIRE AUTH (head-to-head is for named players)
	s.mountSeries(s.r.With(s.requireAuth()))

	// Leaderboard
	s.r.Get("/rankings/top", s.handleRankingsTop)
	s.r.With(s.requireAuth()).Get("/rankings/me", s.handleRankingsMe)

	// Daily Challenge — OPTIONAL AUTH (guests can play; progress persisted on win)
	if db != nil {
		s.mountDaily(s.r.With(s.withOptionalAuth()))
	}

	// Auth + profile/stats (require auth)
	s.mountAuthRoutes()

	// Live updates
	s.r.With(s.withOptionalAuth()).Get("/ws", s.handleWS)

	// JSON 404 for easier debugging
	s.r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"not_found","path":"`+r.URL.Path+`"}`, http.StatusNotFound)
	})

	// Debug: word list counts
	s.r.Get("/debug/words", func(w http.ResponseWriter, r *http.Request) {
		a, g := words.Stats()
		_ = json.NewEncoder(w).Encode(map[string]int{"answers": a, "allowed": g})
	})

	return s
}

// Start begins serving HTTP on addr.
func (s *Server) Start(addr string) error { return http.ListenAndServe(addr, s.r) }

// Router exposes the internal router (useful for tests).
func (s *Server) Router() chi.Router { return s.r }

// ----------------------------- middleware ----------------------------------

// jsonContentType sets a default JSON Content-Type header on all responses.
func jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		next.ServeHTTP(w, r)
	})
}

// corsFromEnv enables credentialed CORS for a single origin.
// Uses CLIENT_ORIGIN env var; defaults to http://localhost:5173.
func corsFromEnv(next http.Handler) http.Handler {
	origin := os.Getenv("CLIENT_ORIGIN")
	if origin == "" {
		origin = "http://localhost:5173"
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Vary", "Origin")
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Credentials", "true")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ------------------------------- small util --------------------------------

// getEnv returns the value of k or def if unset/empty.
func getEnv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
