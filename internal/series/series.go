// internal/series/series.go
//
// Series coordinator: head-to-head bookkeeping for two players sharing
// consecutive secret words. All mutations go through the store's atomic
// UpdateSeries primitive, so concurrent completions by both players are
// serialized — neither player's result can overwrite the other's.
//
// Each player solves their own Game document for the shared word; the
// series additionally keeps one reference game per round (CurrentGameID)
// that deep links hydrate from. Reference games are written outside the
// series mutation function — the mutation must stay I/O free because the
// store may run it multiple times (optimistic retry) and holds its lock
// while doing so.

package series

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/wordfill/server/internal/game"
	"github.com/wordfill/server/internal/store"
)

var (
	// ErrNotAPlayer is returned when the reporting user is not one of the
	// two series players.
	ErrNotAPlayer = errors.New("user is not part of this series")
	// ErrStaleRound is returned when a result is for a word the series has
	// already moved past.
	ErrStaleRound = errors.New("result is not for the current series word")
)

const (
	// freshWordRetries bounds how hard the coordinator tries to avoid
	// repeating a recently played word. Best effort: after this many draws
	// a repeat is allowed.
	freshWordRetries = 10
	// recentWindow is how many past words are excluded from re-selection.
	recentWindow = 20
)

// WordSource supplies the next shared secret. Injected so tests can make
// word selection deterministic.
type WordSource func() string

// Coordinator manages series documents on top of a Store.
type Coordinator struct {
	store    store.Store
	nextWord WordSource
}

// NewCoordinator builds a Coordinator around the given store and word source.
func NewCoordinator(st store.Store, nextWord WordSource) *Coordinator {
	return &Coordinator{store: st, nextWord: nextWord}
}

// Start opens a new series between two players around a first shared word
// and writes the round's reference game.
func (c *Coordinator) Start(ctx context.Context, p1, p1Name, p2, p2Name, word string) (*store.GameSeries, error) {
	word = strings.ToLower(word)
	s := &store.GameSeries{
		ID:           uuid.NewString(),
		Players:      [2]string{p1, p2},
		PlayerNames:  map[string]string{p1: p1Name, p2: p2Name},
		Player1:      p1,
		Player2:      p2,
		CurrentWord:  word,
		RecentWords:  []string{word},
		LastPlayedAt: time.Now().UTC(),
		Status:       store.SeriesActive,
	}
	ref := c.referenceGame(s)
	s.CurrentGameID = ref.ID
	if err := c.store.CreateSeries(ctx, s); err != nil {
		return nil, err
	}
	c.saveReference(ctx, ref)
	return s, nil
}

// RecordResult records one player's completion of the series' current word.
// Recording is idempotent per player per round. When the second player's
// result arrives the round is settled: the better solve takes the win
// (fewer turns, then faster time; a round both players fail is a wash) and
// the series advances to a fresh word.
//
// The returned bool reports whether this call advanced the series to a new
// round.
func (c *Coordinator) RecordResult(ctx context.Context, seriesID, uid string, entry store.SeriesEntry) (*store.GameSeries, bool, error) {
	advanced := false
	s, err := c.store.UpdateSeries(ctx, seriesID, func(s *store.GameSeries) error {
		advanced = false
		if s.Players[0] != uid && s.Players[1] != uid {
			return ErrNotAPlayer
		}
		if entry.Word != "" && !strings.EqualFold(entry.Word, s.CurrentWord) {
			return ErrStaleRound
		}
		if s.CurrentResults == nil {
			s.CurrentResults = map[string]store.SeriesEntry{}
		}
		if _, dup := s.CurrentResults[uid]; dup {
			return nil // already recorded for this round
		}
		s.CurrentResults[uid] = entry
		s.LastPlayedAt = time.Now().UTC()

		if len(s.CurrentResults) < 2 {
			return nil
		}
		c.settleRound(s)
		advanced = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	if advanced {
		c.saveReference(ctx, c.referenceGameFor(s))
	}
	return s, advanced, nil
}

// settleRound tallies the finished round and opens the next one.
// Must only be called from inside an UpdateSeries mutation.
func (c *Coordinator) settleRound(s *store.GameSeries) {
	r1 := s.CurrentResults[s.Players[0]]
	r2 := s.CurrentResults[s.Players[1]]

	switch winnerOf(r1, r2) {
	case 0:
		s.Player1Score++
	case 1:
		s.Player2Score++
	}

	for _, r := range []store.SeriesEntry{r1, r2} {
		if r.GameID != "" {
			s.Games = append(s.Games, r.GameID)
		}
	}

	s.CurrentWord = c.pickFreshWord(s.RecentWords)
	s.CurrentGameID = uuid.NewString()
	s.CurrentResults = nil
	s.RecentWords = append(s.RecentWords, s.CurrentWord)
	if len(s.RecentWords) > recentWindow {
		s.RecentWords = s.RecentWords[len(s.RecentWords)-recentWindow:]
	}
}

// winnerOf compares the two results: fewer turns wins, then faster time;
// a player who failed loses to one who solved. Returns 0, 1, or -1 (draw).
func winnerOf(r1, r2 store.SeriesEntry) int {
	switch {
	case r1.Won && !r2.Won:
		return 0
	case r2.Won && !r1.Won:
		return 1
	case !r1.Won && !r2.Won:
		return -1
	}
	if r1.TurnsUsed != r2.TurnsUsed {
		if r1.TurnsUsed < r2.TurnsUsed {
			return 0
		}
		return 1
	}
	switch {
	case r1.TimeMs < r2.TimeMs:
		return 0
	case r2.TimeMs < r1.TimeMs:
		return 1
	}
	return -1
}

// pickFreshWord draws words until one outside the recent window turns up,
// giving up after a bounded number of tries (a repeat beats no word).
func (c *Coordinator) pickFreshWord(recent []string) string {
	seen := make(map[string]struct{}, len(recent))
	for _, w := range recent {
		seen[w] = struct{}{}
	}
	word := c.nextWord()
	for i := 0; i < freshWordRetries; i++ {
		if _, used := seen[word]; !used {
			break
		}
		word = c.nextWord()
	}
	return strings.ToLower(word)
}

// referenceGame builds the round's reference game for a series that has not
// been persisted yet (Start path); referenceGameFor does the same for an
// advanced series whose CurrentGameID is already fixed.
func (c *Coordinator) referenceGame(s *store.GameSeries) *game.Game {
	g := game.New(s.CurrentWord, nil)
	g.SeriesID = s.ID
	return g
}

func (c *Coordinator) referenceGameFor(s *store.GameSeries) *game.Game {
	g := c.referenceGame(s)
	g.ID = s.CurrentGameID
	return g
}

// saveReference persists a round's reference game, best effort: deep links
// prefer it but can always hydrate from the series document itself.
func (c *Coordinator) saveReference(ctx context.Context, g *game.Game) {
	if err := c.store.SaveGame(ctx, g, "series:"+g.SeriesID); err != nil {
		log.Warn().Err(err).Str("series", g.SeriesID).Msg("save series reference game")
	}
}
