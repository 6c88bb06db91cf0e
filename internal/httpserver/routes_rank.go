// internal/httpserver/routes_rank.go
//
// Leaderboard endpoints:
//   - GET /rankings/top  → top-N entries (public)
//   - GET /rankings/me   → window around the caller's own rank (gated)

package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/wordfill/server/internal/store"
)

// queryInt parses an integer query parameter, falling back to def.
func queryInt(r *http.Request, key string, def int) int {
	if v := r.URL.Query().Get(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}

func (s *Server) handleRankingsTop(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 5)
	if limit > 100 {
		limit = 100
	}
	out, err := s.rank.Top(r.Context(), limit)
	if err != nil {
		http.Error(w, `{"error":"db_error"}`, http.StatusInternalServerError)
		return
	}
	if out == nil {
		out = []*store.GlobalRanking{}
	}
	_ = json.NewEncoder(w).Encode(out)
}

func (s *Server) handleRankingsMe(w http.ResponseWriter, r *http.Request) {
	me := currentUser(r)
	out, err := s.rank.Around(r.Context(), me.UID, queryInt(r, "spread", 3))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// No completed games yet: nothing to center a window on.
			_ = json.NewEncoder(w).Encode([]*store.GlobalRanking{})
			return
		}
		http.Error(w, `{"error":"db_error"}`, http.StatusInternalServerError)
		return
	}
	_ = json.NewEncoder(w).Encode(out)
}
