// internal/httpserver/routes_game.go
//
// Free-play game endpoints:
//   - POST /game/new          → start a game (fresh random word or a fixed one)
//   - POST /game/guess        → submit a guess; on completion runs the
//     scoring / rankings / series pipeline
//   - POST /game/share        → record a share of a finished game
//   - GET  /game/open-shared  → hydrate a fresh game from a shared link,
//     starting or continuing a head-to-head series
//
// The guess response always reflects the state machine's in-memory result;
// persistence of the updated document is best effort and never rolls a
// submitted guess back.

package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/wordfill/server/internal/events"
	"github.com/wordfill/server/internal/game"
	"github.com/wordfill/server/internal/scoring"
	"github.com/wordfill/server/internal/store"
	"github.com/wordfill/server/internal/words"
)

// ownerID identifies the caller: the account uid when logged in, otherwise
// the stable anonymous cookie.
func (s *Server) ownerID(w http.ResponseWriter, r *http.Request) string {
	if me := currentUser(r); me != nil {
		return me.UID
	}
	return s.ensureAnonID(w, r)
}

// newGameReq/Res payloads for POST /game/new.
type newGameReq struct {
	Answer string `json:"answer"` // optional fixed answer (testing)
}
type newGameRes struct {
	GameID string `json:"gameId"`
}

// handleNewGame creates and persists a new game owned by the caller.
func (s *Server) handleNewGame(w http.ResponseWriter, r *http.Request) {
	var req newGameReq
	_ = json.NewDecoder(r.Body).Decode(&req)

	answer := req.Answer
	if answer == "" || !words.IsAnswer(answer) {
		answer = words.RandomAnswer()
	}
	g := game.New(answer, words.IsAllowed)
	if err := s.store.SaveGame(r.Context(), g, s.ownerID(w, r)); err != nil {
		log.Error().Err(err).Msg("save game")
		http.Error(w, `{"error":"save_failed"}`, http.StatusInternalServerError)
		return
	}
	_ = json.NewEncoder(w).Encode(newGameRes{GameID: g.ID})
}

// guessReq/Res payloads for POST /game/guess.
type guessReq struct {
	GameID string `json:"gameId"`
	Guess  string `json:"guess"`
}

// guessRes is the Outcome plus, on completion, the scoring summary.
type guessRes struct {
	game.Outcome
	Pattern string         `json:"pattern,omitempty"`
	Result  *resultSummary `json:"result,omitempty"`
}

// resultSummary reports what a completed game did to the player's standing.
type resultSummary struct {
	GameScore  int               `json:"gameScore"`
	RankChange int               `json:"rankChange,omitempty"`
	NewScore   int               `json:"newScore,omitempty"`
	Tier       scoring.Tier      `json:"tier,omitempty"`
	Promoted   bool              `json:"promoted,omitempty"`
	Series     *store.GameSeries `json:"series,omitempty"`
}

// handleGuess applies one guess and, when the game completes, settles the
// consequences: player stats, leaderboard projection, series round, events.
func (s *Server) handleGuess(w http.ResponseWriter, r *http.Request) {
	var req guessReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"bad_json"}`, http.StatusBadRequest)
		return
	}
	g, err := s.store.GetGame(r.Context(), req.GameID)
	if err != nil {
		http.Error(w, `{"error":"not_found"}`, http.StatusNotFound)
		return
	}
	g.SetValidator(words.IsAllowed)
	owner := s.ownerID(w, r)

	out, err := g.Submit(req.Guess)
	if err != nil {
		switch {
		case errors.Is(err, game.ErrGameFinished):
			http.Error(w, `{"error":"game_finished"}`, http.StatusConflict)
		case errors.Is(err, game.ErrNotAWord):
			// The rejection bumped a mistake counter; keep it.
			s.saveGame(r.Context(), g, owner)
			http.Error(w, `{"error":"not_in_word_list"}`, http.StatusBadRequest)
		default:
			http.Error(w, `{"error":"invalid_length"}`, http.StatusBadRequest)
		}
		return
	}
	s.saveGame(r.Context(), g, owner)

	res := guessRes{Outcome: out}
	if out.Completed {
		res.Pattern = g.Pattern()
		res.Result = s.settleCompletion(r, g, out)
	}
	s.hub.Publish(events.Event{Topic: "game:" + g.ID, Kind: "game", Doc: res})
	_ = json.NewEncoder(w).Encode(res)
}

// saveGame persists the updated document, best effort: a storage hiccup is
// logged but the guess already happened and is not rolled back.
func (s *Server) saveGame(ctx context.Context, g *game.Game, owner string) {
	if err := s.store.SaveGame(ctx, g, owner); err != nil {
		log.Warn().Err(err).Str("gameId", g.ID).Msg("save game after guess")
	}
}

// settleCompletion runs the post-game pipeline for a terminal transition.
// Every step after the state change is best effort and independently logged.
func (s *Server) settleCompletion(r *http.Request, g *game.Game, out game.Outcome) *resultSummary {
	ctx := r.Context()
	sum := &resultSummary{GameScore: scoring.Score(*out.Stats)}

	me := currentUser(r)
	if me != nil {
		won := out.Status == game.StatusWon
		u, err := s.store.UpdateUser(ctx, me.UID, func(u *store.User) error {
			delta := scoring.RankChange(sum.GameScore, u.Tier)
			u.Score = scoring.ApplyRankChange(u.Score, delta)
			u.GamesPlayed++
			if won {
				u.Wins++
			}
			u.WinRate = float64(u.Wins) / float64(u.GamesPlayed) * 100
			before := u.Tier
			u.Tier = scoring.Classify(u.Score)
			u.LastGameAt = time.Now().UTC()
			sum.RankChange = delta
			sum.NewScore = u.Score
			sum.Tier = u.Tier
			sum.Promoted = u.Tier.Above(before)
			return nil
		})
		if err != nil {
			log.Warn().Err(err).Str("user", me.UID).Msg("update user after game")
		} else if _, err := s.rank.Sync(ctx, u); err != nil {
			log.Warn().Err(err).Str("user", me.UID).Msg("sync ranking after game")
		}
	}

	if g.SeriesID != "" && me != nil {
		entry := store.SeriesEntry{
			GameID:    g.ID,
			Word:      g.Word,
			Won:       out.Status == game.StatusWon,
			TurnsUsed: out.Stats.TurnsUsed,
			TimeMs:    out.Stats.TimeToComplete,
		}
		series, advanced, err := s.series.RecordResult(ctx, g.SeriesID, me.UID, entry)
		if err != nil {
			log.Warn().Err(err).Str("series", g.SeriesID).Msg("record series result")
		} else {
			sum.Series = series
			kind := "series"
			if advanced {
				kind = "series_round"
			}
			s.hub.Publish(events.Event{Topic: "series:" + series.ID, Kind: kind, Doc: series})
		}
	}
	return sum
}

// ------------------------------- sharing -----------------------------------

// shareReq/Res payloads for POST /game/share.
type shareReq struct {
	GameID     string `json:"gameId"`
	SharedWith string `json:"sharedWith"` // optional target username
}
type shareRes struct {
	GameID  string `json:"gameId"`
	Pattern string `json:"pattern"`
	URL     string `json:"url"`
}

// handleShare records a share of a finished game and returns the emoji
// pattern plus a deep link a friend can open.
func (s *Server) handleShare(w http.ResponseWriter, r *http.Request) {
	var req shareReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"bad_json"}`, http.StatusBadRequest)
		return
	}
	g, err := s.store.GetGame(r.Context(), req.GameID)
	if err != nil {
		http.Error(w, `{"error":"not_found"}`, http.StatusNotFound)
		return
	}
	if g.Status == game.StatusPlaying {
		http.Error(w, `{"error":"game_in_progress"}`, http.StatusConflict)
		return
	}

	owner := s.ownerID(w, r)
	g.SharedBy = owner
	if req.SharedWith != "" {
		g.SharedWith = append(g.SharedWith, req.SharedWith)
	}
	s.saveGame(r.Context(), g, owner)

	if err := s.store.RecordShare(r.Context(), store.Share{
		GameID:     g.ID,
		SharedBy:   owner,
		SharedWith: req.SharedWith,
		SharedAt:   time.Now().UTC(),
	}); err != nil {
		log.Warn().Err(err).Str("gameId", g.ID).Msg("record share")
	}

	base := getEnv("CLIENT_ORIGIN", "http://localhost:5173")
	_ = json.NewEncoder(w).Encode(shareRes{
		GameID:  g.ID,
		Pattern: g.Pattern(),
		URL:     base + "/?game=" + g.ID,
	})
}

// handleOpenShared hydrates a fresh game from a shared link: same secret
// word, clean guess history. An authenticated opener triggers the series
// flow — continue the linked series, or start a new one against the sharer.
func (s *Server) handleOpenShared(w http.ResponseWriter, r *http.Request) {
	src, err := s.store.GetGame(r.Context(), r.URL.Query().Get("game"))
	if err != nil {
		http.Error(w, `{"error":"not_found"}`, http.StatusNotFound)
		return
	}

	g := game.New(src.Word, words.IsAllowed)
	g.SharedBy = src.SharedBy
	me := currentUser(r)

	switch {
	case src.SeriesID != "":
		// A series round: only its players may pick it up.
		if me == nil {
			http.Error(w, `{"error":"Unauthorized"}`, http.StatusUnauthorized)
			return
		}
		sr, err := s.store.GetSeries(r.Context(), src.SeriesID)
		if err != nil || (sr.Players[0] != me.UID && sr.Players[1] != me.UID) {
			http.Error(w, `{"error":"not_a_player"}`, http.StatusForbidden)
			return
		}
		g.SeriesID = sr.ID

	case me != nil && src.SharedBy != "" && src.SharedBy != me.UID:
		// A finished free-play result shared by someone else: open a
		// head-to-head series on the same word.
		sharerName := "guest"
		if u, err := s.store.GetUser(r.Context(), src.SharedBy); err == nil {
			sharerName = u.Username
		}
		sr, err := s.series.Start(r.Context(), src.SharedBy, sharerName, me.UID, me.Username, src.Word)
		if err != nil {
			log.Warn().Err(err).Str("gameId", src.ID).Msg("start series from share")
		} else {
			g.SeriesID = sr.ID
			// The sharer already played this word; seed their result so the
			// round settles as soon as the opener finishes.
			if src.Stats != nil {
				entry := store.SeriesEntry{
					GameID:    src.ID,
					Word:      src.Word,
					Won:       src.Status == game.StatusWon,
					TurnsUsed: src.Stats.TurnsUsed,
					TimeMs:    src.Stats.TimeToComplete,
				}
				if _, _, err := s.series.RecordResult(r.Context(), sr.ID, src.SharedBy, entry); err != nil {
					log.Warn().Err(err).Str("series", sr.ID).Msg("seed sharer result")
				}
			}
		}
	}

	if err := s.store.SaveGame(r.Context(), g, s.ownerID(w, r)); err != nil {
		log.Error().Err(err).Msg("save shared game")
		http.Error(w, `{"error":"save_failed"}`, http.StatusInternalServerError)
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]any{
		"gameId":   g.ID,
		"seriesId": g.SeriesID,
		"sharedBy": g.SharedBy,
	})
}
