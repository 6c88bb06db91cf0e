// internal/store/memory.go
//
// In-memory Store implementation. Used by tests and for ephemeral play when
// no database is configured; state is lost on restart.
//
// Concurrency: a single RWMutex guards every collection. Update functions
// run while the write lock is held, which makes each read-modify-write
// atomic — that property is what the series concurrency tests exercise.

package store

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/wordfill/server/internal/game"
)

type memory struct {
	mu       sync.RWMutex
	games    map[string]*storedGame
	users    map[string]*User
	series   map[string]*GameSeries
	rankings map[string]*GlobalRanking
	shares   []Share
}

type storedGame struct {
	game    *game.Game
	ownerID string
	saved   time.Time
}

// NewMemory constructs an empty in-memory Store.
func NewMemory() Store {
	return &memory{
		games:    make(map[string]*storedGame),
		users:    make(map[string]*User),
		series:   make(map[string]*GameSeries),
		rankings: make(map[string]*GlobalRanking),
	}
}

// clone round-trips a document through JSON so callers never share memory
// with the store.
func clone[T any](v *T) *T {
	b, _ := json.Marshal(v)
	out := new(T)
	_ = json.Unmarshal(b, out)
	return out
}

// ------------------------------- games -------------------------------------

func (m *memory) SaveGame(ctx context.Context, g *game.Game, ownerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.games[g.ID] = &storedGame{game: clone(g), ownerID: ownerID, saved: time.Now()}
	return nil
}

func (m *memory) GetGame(ctx context.Context, id string) (*game.Game, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if sg, ok := m.games[id]; ok {
		return clone(sg.game), nil
	}
	return nil, ErrNotFound
}

func (m *memory) GamesByOwner(ctx context.Context, ownerID string, limit int) ([]*game.Game, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*storedGame
	for _, sg := range m.games {
		if sg.ownerID == ownerID {
			out = append(out, sg)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].saved.After(out[j].saved) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	games := make([]*game.Game, len(out))
	for i, sg := range out {
		games[i] = clone(sg.game)
	}
	return games, nil
}

func (m *memory) ClaimGames(ctx context.Context, fromOwner, toOwner string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, sg := range m.games {
		if sg.ownerID == fromOwner {
			sg.ownerID = toOwner
		}
	}
	return nil
}

// ------------------------------- users -------------------------------------

func (m *memory) CreateUser(ctx context.Context, u *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.UID] = m.cloneUser(u)
	return nil
}

func (m *memory) GetUser(ctx context.Context, uid string) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if u, ok := m.users[uid]; ok {
		return m.cloneUser(u), nil
	}
	return nil, ErrNotFound
}

func (m *memory) GetUserByUsername(ctx context.Context, username string) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.users {
		if u.Username == username {
			return m.cloneUser(u), nil
		}
	}
	return nil, ErrNotFound
}

// cloneUser preserves the non-JSON credential fields a plain clone drops.
func (m *memory) cloneUser(u *User) *User {
	out := clone(u)
	out.PasswordHash = u.PasswordHash
	out.CreatedAt = u.CreatedAt
	return out
}

func (m *memory) UpdateUser(ctx context.Context, uid string, fn func(*User) error) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[uid]
	if !ok {
		return nil, ErrNotFound
	}
	next := m.cloneUser(u)
	if err := fn(next); err != nil {
		return nil, err
	}
	m.users[uid] = next
	return m.cloneUser(next), nil
}

// ------------------------------- series ------------------------------------

// cloneSeries preserves the optimistic-concurrency counter a plain clone
// drops (Version is excluded from the JSON contract).
func (m *memory) cloneSeries(s *GameSeries) *GameSeries {
	out := clone(s)
	out.Version = s.Version
	return out
}

func (m *memory) CreateSeries(ctx context.Context, s *GameSeries) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.series[s.ID] = m.cloneSeries(s)
	return nil
}

func (m *memory) GetSeries(ctx context.Context, id string) (*GameSeries, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if s, ok := m.series[id]; ok {
		return m.cloneSeries(s), nil
	}
	return nil, ErrNotFound
}

func (m *memory) SeriesByPlayer(ctx context.Context, uid string) ([]*GameSeries, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*GameSeries
	for _, s := range m.series {
		if s.Players[0] == uid || s.Players[1] == uid {
			out = append(out, m.cloneSeries(s))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LastPlayedAt.After(out[j].LastPlayedAt) })
	return out, nil
}

func (m *memory) UpdateSeries(ctx context.Context, id string, fn func(*GameSeries) error) (*GameSeries, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.series[id]
	if !ok {
		return nil, ErrNotFound
	}
	next := m.cloneSeries(s)
	if err := fn(next); err != nil {
		return nil, err
	}
	next.Version = s.Version + 1
	m.series[id] = next
	return m.cloneSeries(next), nil
}

// ----------------------------- leaderboard ---------------------------------

func (m *memory) UpsertRanking(ctx context.Context, r *GlobalRanking) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rankings[r.UserID] = clone(r)
	return nil
}

// ranked returns all entries ordered by score descending with Rank filled
// in. Caller must hold at least the read lock.
func (m *memory) ranked() []*GlobalRanking {
	out := make([]*GlobalRanking, 0, len(m.rankings))
	for _, r := range m.rankings {
		out = append(out, clone(r))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].UserID < out[j].UserID
	})
	for i, r := range out {
		r.Rank = i + 1
	}
	return out
}

func (m *memory) TopRankings(ctx context.Context, limit int) ([]*GlobalRanking, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	all := m.ranked()
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (m *memory) RankingsAround(ctx context.Context, uid string, spread int) ([]*GlobalRanking, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	all := m.ranked()
	at := -1
	for i, r := range all {
		if r.UserID == uid {
			at = i
			break
		}
	}
	if at < 0 {
		return nil, ErrNotFound
	}
	lo := at - spread
	if lo < 0 {
		lo = 0
	}
	hi := at + spread + 1
	if hi > len(all) {
		hi = len(all)
	}
	return all[lo:hi], nil
}

// ------------------------------- shares ------------------------------------

func (m *memory) RecordShare(ctx context.Context, s Share) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shares = append(m.shares, s)
	return nil
}
