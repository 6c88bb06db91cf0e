// internal/httpserver/routes_daily.go
//
// Daily Challenge routes, mounted under /daily:
//   - POST /daily/new         → start today's game (creates or reuses session)
//   - POST /daily/guess       → submit a guess for today's word
//   - GET  /daily/leaderboard → top results for today (or a given date)
//
// Each user plays once per day (enforced by DB + in-memory session). The
// secret is the same for everyone on a given date: a salted hash of the
// date picks it from the answers list. Sessions are held in memory for
// active play and persisted on the win.

package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/wordfill/server/internal/daily"
	"github.com/wordfill/server/internal/game"
	"github.com/wordfill/server/internal/words"
)

// dailyServer wraps dependencies for /daily endpoints.
type dailyServer struct {
	srv      *Server
	store    *daily.Store
	salt     string
	sessions map[string]*dailySession // active sessions keyed by userID|date
	mu       sync.Mutex               // guards sessions
}

// dailySession holds transient state for an in-progress daily game.
type dailySession struct {
	Game      *game.Game
	UserID    string
	Date      string
	WordIndex int
}

// mountDaily registers all /daily routes.
func (s *Server) mountDaily(r chi.Router) {
	dd := &dailyServer{
		srv:      s,
		store:    daily.NewStore(s.db),
		salt:     getEnv("DAILY_SALT", "local_dev_salt"),
		sessions: make(map[string]*dailySession),
	}
	r.Route("/daily", func(r chi.Router) {
		r.Post("/new", dd.handleNew)
		r.Post("/guess", dd.handleGuess)
		r.Get("/leaderboard", dd.handleLeaderboard)
	})
}

// todaysWord returns today's date key, deterministic word index, and answer.
func (d *dailyServer) todaysWord() (date string, idx int, answer string) {
	now := time.Now().UTC()
	date = daily.DateKey(now)
	answers := words.Answers()
	if len(answers) == 0 {
		return date, 0, ""
	}
	idx = daily.WordIndex(now, d.salt, len(answers))
	return date, idx, answers[idx]
}

// -----------------------------------------------------------------------------
// /daily/new

// dailyNewRes is returned by /daily/new.
type dailyNewRes struct {
	GameID string `json:"gameId"`
	Date   string `json:"date"`
	Played bool   `json:"played"`
}

// handleNew creates or reuses a daily session for the current date.
// A user with a persisted result for today gets Played=true and no game.
func (d *dailyServer) handleNew(w http.ResponseWriter, r *http.Request) {
	uid := d.srv.ownerID(w, r)
	date, idx, answer := d.todaysWord()
	if answer == "" {
		http.Error(w, `{"error":"no_words"}`, http.StatusInternalServerError)
		return
	}

	if played, err := d.store.AlreadyPlayed(r.Context(), uid, date); err == nil && played {
		_ = json.NewEncoder(w).Encode(dailyNewRes{Date: date, Played: true})
		return
	}

	key := uid + "|" + date
	d.mu.Lock()
	sess, ok := d.sessions[key]
	if !ok {
		sess = &dailySession{
			Game:      game.New(answer, words.IsAllowed),
			UserID:    uid,
			Date:      date,
			WordIndex: idx,
		}
		d.sessions[key] = sess
	}
	d.mu.Unlock()

	_ = json.NewEncoder(w).Encode(dailyNewRes{GameID: sess.Game.ID, Date: date, Played: false})
}

// -----------------------------------------------------------------------------
// /daily/guess

type dailyGuessReq struct {
	GameID string `json:"gameId"`
	Guess  string `json:"guess"`
}

type dailyGuessRes struct {
	game.Outcome
	Guesses int `json:"guesses"`
}

// handleGuess applies a guess to today's session. The full engine runs here
// too, so the daily mode gets the same verdicts, keyboard state, and mistake
// tracking as free play. A finished session is persisted once.
func (d *dailyServer) handleGuess(w http.ResponseWriter, r *http.Request) {
	uid := d.srv.ownerID(w, r)

	var p dailyGuessReq
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		http.Error(w, `{"error":"bad_json"}`, http.StatusBadRequest)
		return
	}

	date, _, _ := d.todaysWord()
	key := uid + "|" + date
	d.mu.Lock()
	sess, ok := d.sessions[key]
	d.mu.Unlock()
	if !ok || p.GameID == "" || sess.Game.ID != p.GameID {
		http.Error(w, `{"error":"no_session"}`, http.StatusConflict)
		return
	}

	d.mu.Lock()
	out, err := sess.Game.Submit(p.Guess)
	guesses := len(sess.Game.Guesses)
	d.mu.Unlock()
	if err != nil {
		switch {
		case errors.Is(err, game.ErrGameFinished):
			http.Error(w, `{"error":"game_finished"}`, http.StatusConflict)
		case errors.Is(err, game.ErrNotAWord):
			http.Error(w, `{"error":"not_in_word_list"}`, http.StatusBadRequest)
		default:
			http.Error(w, `{"error":"invalid_length"}`, http.StatusBadRequest)
		}
		return
	}

	if out.Completed && out.Status == game.StatusWon {
		if err := d.store.InsertResult(r.Context(), daily.Result{
			UserID:    uid,
			Date:      sess.Date,
			WordIndex: sess.WordIndex,
			Guesses:   out.Stats.TurnsUsed,
			ElapsedMs: out.Stats.TimeToComplete,
		}); err != nil {
			// Session stays finished in memory; only the record is lost.
			log.Warn().Err(err).Str("user", uid).Msg("persist daily result")
		}
	}
	_ = json.NewEncoder(w).Encode(dailyGuessRes{Outcome: out, Guesses: guesses})
}

// -----------------------------------------------------------------------------
// /daily/leaderboard

// dailyLBRes is returned by /daily/leaderboard.
type dailyLBRes struct {
	Date string        `json:"date"`
	Top  []daily.LBRow `json:"top"`
}

// handleLeaderboard returns the leaderboard for the given date (default today).
func (d *dailyServer) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	if date == "" {
		date, _, _ = d.todaysWord()
	}
	rows, err := d.store.Leaderboard(r.Context(), date, queryInt(r, "limit", 20))
	if err != nil {
		http.Error(w, `{"error":"db_error"}`, http.StatusInternalServerError)
		return
	}
	_ = json.NewEncoder(w).Encode(dailyLBRes{Date: date, Top: rows})
}
