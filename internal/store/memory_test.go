package store

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wordfill/server/internal/game"
	"github.com/wordfill/server/internal/scoring"
)

func newSeries(id string) *GameSeries {
	return &GameSeries{
		ID:           id,
		Players:      [2]string{"alice", "bob"},
		PlayerNames:  map[string]string{"alice": "Alice", "bob": "Bob"},
		Player1:      "alice",
		Player2:      "bob",
		CurrentWord:  "crane",
		LastPlayedAt: time.Now().UTC(),
		Status:       SeriesActive,
	}
}

func TestMemoryGameRoundTrip(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	g := game.New("crane", nil)
	require.NoError(t, m.SaveGame(ctx, g, "alice"))

	got, err := m.GetGame(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, g.ID, got.ID)
	assert.Equal(t, "crane", got.Word)

	_, err = m.GetGame(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryClaimGames(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	g := game.New("slate", nil)
	require.NoError(t, m.SaveGame(ctx, g, "anon-1"))
	require.NoError(t, m.ClaimGames(ctx, "anon-1", "alice"))

	mine, err := m.GamesByOwner(ctx, "alice", 10)
	require.NoError(t, err)
	assert.Len(t, mine, 1)

	orphans, err := m.GamesByOwner(ctx, "anon-1", 10)
	require.NoError(t, err)
	assert.Empty(t, orphans)
}

// Concurrent completions by both players of a series must both be counted.
// Every update function runs against the latest document, so no win
// increment is lost.
func TestMemoryConcurrentSeriesUpdates(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	require.NoError(t, m.CreateSeries(ctx, newSeries("s1")))

	const rounds = 50
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < rounds; i++ {
			_, err := m.UpdateSeries(ctx, "s1", func(s *GameSeries) error {
				s.Player1Score++
				return nil
			})
			assert.NoError(t, err)
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < rounds; i++ {
			_, err := m.UpdateSeries(ctx, "s1", func(s *GameSeries) error {
				s.Player2Score++
				return nil
			})
			assert.NoError(t, err)
		}
	}()
	wg.Wait()

	s, err := m.GetSeries(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, rounds, s.Player1Score)
	assert.Equal(t, rounds, s.Player2Score)
	assert.Equal(t, int64(2*rounds), s.Version)
}

func TestMemoryUpdateUserKeepsCredentials(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	require.NoError(t, m.CreateUser(ctx, &User{
		UID: "u1", Username: "alice", Tier: scoring.TierBronze,
		PasswordHash: "hash", CreatedAt: time.Now(),
	}))

	// The username lookup is the login path; the hash must survive
	// CreateUser's clone.
	byName, err := m.GetUserByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "hash", byName.PasswordHash)
	assert.False(t, byName.CreatedAt.IsZero())

	u, err := m.UpdateUser(ctx, "u1", func(u *User) error {
		u.Score = 120
		u.Tier = scoring.Classify(120)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 120, u.Score)
	assert.Equal(t, "hash", u.PasswordHash)

	again, err := m.GetUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "hash", again.PasswordHash)
}

func TestMemoryRankingsWindow(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	for i := 0; i < 10; i++ {
		require.NoError(t, m.UpsertRanking(ctx, &GlobalRanking{
			UserID:   fmt.Sprintf("u%d", i),
			Username: fmt.Sprintf("player%d", i),
			Score:    1000 - i*100,
			Tier:     scoring.Classify(1000 - i*100),
		}))
	}

	top, err := m.TopRankings(ctx, 5)
	require.NoError(t, err)
	require.Len(t, top, 5)
	assert.Equal(t, "u0", top[0].UserID)
	assert.Equal(t, 1, top[0].Rank)
	assert.Equal(t, 5, top[4].Rank)

	// u5 sits at rank 6; a spread of 3 yields ranks 3 through 9.
	around, err := m.RankingsAround(ctx, "u5", 3)
	require.NoError(t, err)
	require.Len(t, around, 7)
	assert.Equal(t, 3, around[0].Rank)
	assert.Equal(t, "u5", around[3].UserID)
	assert.Equal(t, 9, around[6].Rank)

	// Window clamps at the top of the table.
	around, err = m.RankingsAround(ctx, "u0", 3)
	require.NoError(t, err)
	require.Len(t, around, 4)
	assert.Equal(t, 1, around[0].Rank)

	_, err = m.RankingsAround(ctx, "ghost", 3)
	assert.ErrorIs(t, err, ErrNotFound)
}
