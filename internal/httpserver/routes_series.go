// internal/httpserver/routes_series.go
//
// Head-to-head series endpoints (all gated):
//   - GET  /series/mine       → all series the caller plays in
//   - GET  /series/{id}       → one series document
//   - GET  /series/{id}/game  → a fresh game for the series' current word
//
// A series advances through the guess pipeline in routes_game.go; these
// routes only read state and hand out playable games for the current round.

package httpserver

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/wordfill/server/internal/game"
	"github.com/wordfill/server/internal/store"
	"github.com/wordfill/server/internal/words"
)

// mountSeries registers all /series routes on a gated router.
func (s *Server) mountSeries(r chi.Router) {
	r.Get("/series/mine", s.handleSeriesMine)
	r.Get("/series/{id}", s.handleSeriesGet)
	r.Get("/series/{id}/game", s.handleSeriesGame)
}

func (s *Server) handleSeriesMine(w http.ResponseWriter, r *http.Request) {
	me := currentUser(r)
	out, err := s.store.SeriesByPlayer(r.Context(), me.UID)
	if err != nil {
		http.Error(w, `{"error":"db_error"}`, http.StatusInternalServerError)
		return
	}
	_ = json.NewEncoder(w).Encode(out)
}

// loadOwnSeries fetches a series and checks the caller plays in it.
func (s *Server) loadOwnSeries(w http.ResponseWriter, r *http.Request) *store.GameSeries {
	me := currentUser(r)
	sr, err := s.store.GetSeries(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, `{"error":"not_found"}`, http.StatusNotFound)
		return nil
	}
	if sr.Players[0] != me.UID && sr.Players[1] != me.UID {
		http.Error(w, `{"error":"not_a_player"}`, http.StatusForbidden)
		return nil
	}
	return sr
}

func (s *Server) handleSeriesGet(w http.ResponseWriter, r *http.Request) {
	if sr := s.loadOwnSeries(w, r); sr != nil {
		_ = json.NewEncoder(w).Encode(sr)
	}
}

// handleSeriesGame hands the caller a playable game for the series' current
// word. Each player gets their own game document; results converge on the
// series through the completion pipeline.
func (s *Server) handleSeriesGame(w http.ResponseWriter, r *http.Request) {
	sr := s.loadOwnSeries(w, r)
	if sr == nil {
		return
	}
	me := currentUser(r)
	if _, done := sr.CurrentResults[me.UID]; done {
		http.Error(w, `{"error":"round_already_played"}`, http.StatusConflict)
		return
	}

	g := game.New(sr.CurrentWord, words.IsAllowed)
	g.SeriesID = sr.ID
	if err := s.store.SaveGame(r.Context(), g, me.UID); err != nil {
		http.Error(w, `{"error":"save_failed"}`, http.StatusInternalServerError)
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]string{
		"gameId":   g.ID,
		"seriesId": sr.ID,
	})
}
