package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wordfill/server/internal/events"
	"github.com/wordfill/server/internal/game"
	"github.com/wordfill/server/internal/rank"
	"github.com/wordfill/server/internal/series"
	"github.com/wordfill/server/internal/store"
	"github.com/wordfill/server/internal/words"
)

// newTestServer wires a full server on the in-memory store. The daily
// routes need SQLite and stay unmounted here; they are covered by the
// daily package's own tests.
func newTestServer(t *testing.T) *Server {
	t.Helper()
	require.NoError(t, words.Init())
	st := store.NewMemory()
	hub := events.NewHub()
	rk := rank.NewService(st, hub)
	co := series.NewCoordinator(st, words.RandomAnswer)
	return New(st, nil, hub, rk, co)
}

// doJSON performs one request against the router. A non-empty token is sent
// as a bearer header; cookies may be carried over from a previous response.
func doJSON(t *testing.T, s *Server, method, path, token string, body any, cookies []*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), "body: %s", rec.Body.String())
	return out
}

// signup creates an account and returns its uid and a bearer token.
func signup(t *testing.T, s *Server, username string) (uid, token string) {
	t.Helper()
	rec := doJSON(t, s, http.MethodPost, "/auth/signup", "",
		map[string]string{"username": username, "password": "password123"}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	u := decode[store.User](t, rec)

	// The cookie carries the JWT; tests pass it as a bearer token instead.
	for _, c := range rec.Result().Cookies() {
		if c.Name == "wordfill_token" {
			return u.UID, c.Value
		}
	}
	t.Fatal("no auth cookie set on signup")
	return "", ""
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	rec := doJSON(t, s, http.MethodGet, "/health", "", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok":true}`, rec.Body.String())
}

func TestGuestGetsAnonCookie(t *testing.T) {
	s := newTestServer(t)
	rec := doJSON(t, s, http.MethodPost, "/game/new", "", map[string]string{}, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var anon *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == anonCookieName {
			anon = c
		}
	}
	require.NotNil(t, anon, "guest play must set the anonymous cookie")
	assert.NotEmpty(t, anon.Value)

	// Same cookie on the next request: no new one is issued.
	rec2 := doJSON(t, s, http.MethodPost, "/game/new", "", map[string]string{}, []*http.Cookie{anon})
	require.Equal(t, http.StatusOK, rec2.Code)
	for _, c := range rec2.Result().Cookies() {
		assert.NotEqual(t, anonCookieName, c.Name)
	}
}

func TestSignupLoginMe(t *testing.T) {
	s := newTestServer(t)
	_, token := signup(t, s, "alice_1")

	rec := doJSON(t, s, http.MethodGet, "/auth/me", token, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	me := decode[store.User](t, rec)
	assert.Equal(t, "alice_1", me.Username)
	assert.Equal(t, "Bronze", string(me.Tier))

	// Duplicate username is a conflict.
	rec = doJSON(t, s, http.MethodPost, "/auth/signup", "",
		map[string]string{"username": "alice_1", "password": "password123"}, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	// Wrong password is rejected.
	rec = doJSON(t, s, http.MethodPost, "/auth/login", "",
		map[string]string{"username": "alice_1", "password": "wrongwrong"}, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Right password works.
	rec = doJSON(t, s, http.MethodPost, "/auth/login", "",
		map[string]string{"username": "alice_1", "password": "password123"}, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireAuthRejectsGuests(t *testing.T) {
	s := newTestServer(t)
	for _, path := range []string{"/auth/me", "/stats/me", "/games/mine", "/series/mine", "/rankings/me"} {
		rec := doJSON(t, s, http.MethodGet, path, "", nil, nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
	}
}

// playToWin starts a game on a fixed answer and solves it, returning the
// final guess response.
func playToWin(t *testing.T, s *Server, token, answer string, wrongFirst bool) guessRes {
	t.Helper()
	rec := doJSON(t, s, http.MethodPost, "/game/new", token, map[string]string{"answer": answer}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	id := decode[newGameRes](t, rec).GameID

	if wrongFirst {
		rec = doJSON(t, s, http.MethodPost, "/game/guess", token,
			map[string]string{"gameId": id, "guess": "react"}, nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		mid := decode[guessRes](t, rec)
		require.Equal(t, game.StatusPlaying, mid.Status)
		require.False(t, mid.Completed)
	}

	rec = doJSON(t, s, http.MethodPost, "/game/guess", token,
		map[string]string{"gameId": id, "guess": answer}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return decode[guessRes](t, rec)
}

func TestGuessFlowUpdatesScoreAndRankings(t *testing.T) {
	s := newTestServer(t)
	_, token := signup(t, s, "carol")

	out := playToWin(t, s, token, "crane", true)
	assert.Equal(t, game.StatusWon, out.Status)
	assert.True(t, out.Completed)
	require.NotNil(t, out.Result)
	assert.Greater(t, out.Result.GameScore, 0)
	assert.Greater(t, out.Result.NewScore, 0)
	assert.NotEmpty(t, out.Pattern)

	rec := doJSON(t, s, http.MethodGet, "/rankings/top?limit=5", "", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	top := decode[[]store.GlobalRanking](t, rec)
	require.Len(t, top, 1)
	assert.Equal(t, "carol", top[0].Username)
	assert.Equal(t, 1, top[0].Rank)
	assert.Equal(t, out.Result.NewScore, top[0].Score)

	rec = doJSON(t, s, http.MethodGet, "/rankings/me", token, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	window := decode[[]store.GlobalRanking](t, rec)
	require.Len(t, window, 1)
	assert.Equal(t, "carol", window[0].Username)

	rec = doJSON(t, s, http.MethodGet, "/stats/me", token, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	stats := decode[map[string]any](t, rec)
	assert.EqualValues(t, 1, stats["gamesPlayed"])
	assert.EqualValues(t, 1, stats["wins"])
	// winRate is a percentage: one win out of one game is 100, not 1.
	assert.EqualValues(t, 100, stats["winRate"])
}

func TestGuessRejections(t *testing.T) {
	s := newTestServer(t)
	rec := doJSON(t, s, http.MethodPost, "/game/new", "", map[string]string{"answer": "crane"}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	id := decode[newGameRes](t, rec).GameID

	// Unknown game.
	rec = doJSON(t, s, http.MethodPost, "/game/guess", "",
		map[string]string{"gameId": "nope", "guess": "react"}, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// Too short.
	rec = doJSON(t, s, http.MethodPost, "/game/guess", "",
		map[string]string{"gameId": id, "guess": "cat"}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Not in the dictionary.
	rec = doJSON(t, s, http.MethodPost, "/game/guess", "",
		map[string]string{"gameId": id, "guess": "zzzzz"}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "not_in_word_list")

	// Guessing after the game finished is a conflict.
	rec = doJSON(t, s, http.MethodPost, "/game/guess", "",
		map[string]string{"gameId": id, "guess": "crane"}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = doJSON(t, s, http.MethodPost, "/game/guess", "",
		map[string]string{"gameId": id, "guess": "react"}, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestShareAndOpenSharedStartsSeries(t *testing.T) {
	s := newTestServer(t)
	aliceUID, alice := signup(t, s, "alice")
	bobUID, bob := signup(t, s, "bob")

	// Alice wins in two turns and shares the result.
	out := playToWin(t, s, alice, "crane", true)
	require.True(t, out.Completed)

	rec := doJSON(t, s, http.MethodGet, "/games/mine", alice, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	mine := decode[[]game.Game](t, rec)
	require.NotEmpty(t, mine)
	gameID := mine[0].ID

	rec = doJSON(t, s, http.MethodPost, "/game/share", alice,
		map[string]string{"gameId": gameID, "sharedWith": "bob"}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	sh := decode[shareRes](t, rec)
	assert.NotEmpty(t, sh.Pattern)
	assert.Contains(t, sh.URL, gameID)

	// Bob opens the link: fresh game on the same word, new series, with
	// Alice's two-turn result already seeded.
	rec = doJSON(t, s, http.MethodGet, "/game/open-shared?game="+gameID, bob, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	opened := decode[map[string]string](t, rec)
	require.NotEmpty(t, opened["seriesId"])
	require.NotEmpty(t, opened["gameId"])
	assert.Equal(t, aliceUID, opened["sharedBy"])

	rec = doJSON(t, s, http.MethodGet, "/series/"+opened["seriesId"], bob, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	sr := decode[store.GameSeries](t, rec)
	assert.Equal(t, [2]string{aliceUID, bobUID}, sr.Players)
	assert.Len(t, sr.CurrentResults, 1)

	// Bob solves in one turn: the round settles and he takes it.
	rec = doJSON(t, s, http.MethodPost, "/game/guess", bob,
		map[string]string{"gameId": opened["gameId"], "guess": "crane"}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	final := decode[guessRes](t, rec)
	require.NotNil(t, final.Result)
	require.NotNil(t, final.Result.Series)
	assert.Equal(t, 0, final.Result.Series.Player1Score)
	assert.Equal(t, 1, final.Result.Series.Player2Score)
	assert.NotEqual(t, "crane", final.Result.Series.CurrentWord)
	assert.Empty(t, final.Result.Series.CurrentResults)

	// Outsiders cannot read the series.
	_, mallory := signup(t, s, "mallory")
	rec = doJSON(t, s, http.MethodGet, "/series/"+opened["seriesId"], mallory, nil, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestSeriesGameHandsOutCurrentWord(t *testing.T) {
	s := newTestServer(t)
	_, alice := signup(t, s, "alice")
	_, bob := signup(t, s, "bob")

	out := playToWin(t, s, alice, "crane", false)
	require.True(t, out.Completed)
	rec := doJSON(t, s, http.MethodGet, "/games/mine", alice, nil, nil)
	gameID := decode[[]game.Game](t, rec)[0].ID
	doJSON(t, s, http.MethodPost, "/game/share", alice, map[string]string{"gameId": gameID}, nil)

	rec = doJSON(t, s, http.MethodGet, "/game/open-shared?game="+gameID, bob, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	seriesID := decode[map[string]string](t, rec)["seriesId"]
	require.NotEmpty(t, seriesID)

	// Bob already holds a fresh game via open-shared, but a new round game
	// can also be requested directly.
	rec = doJSON(t, s, http.MethodGet, "/series/"+seriesID+"/game", bob, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	hand := decode[map[string]string](t, rec)
	assert.NotEmpty(t, hand["gameId"])
	assert.Equal(t, seriesID, hand["seriesId"])

	// Alice's round is already seeded: asking for another game conflicts.
	rec = doJSON(t, s, http.MethodGet, "/series/"+seriesID+"/game", alice, nil, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestProfileUpdateReflectsInRankings(t *testing.T) {
	s := newTestServer(t)
	_, token := signup(t, s, "dana")
	playToWin(t, s, token, "crane", false)

	icon := 7
	color := "#ff8800"
	rec := doJSON(t, s, http.MethodPost, "/profile", token,
		profileReq{IconID: &icon, IconColor: &color}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	u := decode[store.User](t, rec)
	assert.Equal(t, 7, u.IconID)

	rec = doJSON(t, s, http.MethodGet, "/rankings/top", "", nil, nil)
	top := decode[[]store.GlobalRanking](t, rec)
	require.NotEmpty(t, top)
	assert.Equal(t, 7, top[0].IconID)
	assert.Equal(t, "#ff8800", top[0].IconColor)
}

func TestWebsocketStreamsRankings(t *testing.T) {
	s := newTestServer(t)
	hs := httptest.NewServer(s.Router())
	defer hs.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	url := "ws" + hs.URL[len("http"):] + "/ws?topics=rankings"
	c, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	defer c.CloseNow()

	// Wait for the server side to subscribe before publishing.
	require.Eventually(t, func() bool {
		return s.hub.Subscribers("rankings") == 1
	}, 2*time.Second, 10*time.Millisecond)

	s.hub.Publish(events.Event{Topic: "rankings", Kind: "rankings", Doc: map[string]any{"hello": true}})

	var ev events.Event
	require.NoError(t, wsjson.Read(ctx, c, &ev))
	assert.Equal(t, "rankings", ev.Kind)
}
