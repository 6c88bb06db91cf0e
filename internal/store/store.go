// internal/store/store.go
//
// Document model and persistence interface.
// The JSON field names on these types are a durable contract with clients;
// renames are breaking changes.
//
// Implementations (memory, SQLite) must honor two guarantees:
//   - UpdateSeries applies the caller's mutation function atomically against
//     the latest stored document: concurrent read-modify-write cycles from
//     both players of a series must both land (no lost update).
//   - UpdateUser gives the same guarantee for a user's score/tier fields.

package store

import (
	"context"
	"errors"
	"time"

	"github.com/wordfill/server/internal/game"
	"github.com/wordfill/server/internal/scoring"
)

var (
	// ErrNotFound is returned when a requested document does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when an optimistic update loses too many races.
	ErrConflict = errors.New("update conflict")
)

// SeriesStatus tracks whether a series is still being played.
type SeriesStatus string

const (
	SeriesActive    SeriesStatus = "active"
	SeriesAbandoned SeriesStatus = "abandoned"
)

// User is the profile document. PasswordHash never leaves the server.
type User struct {
	UID          string       `json:"uid"`
	Username     string       `json:"username"`
	Score        int          `json:"score"`
	GamesPlayed  int          `json:"gamesPlayed"`
	Wins         int          `json:"wins"`
	WinRate      float64      `json:"winRate"`
	Tier         scoring.Tier `json:"tier"`
	IconID       int          `json:"iconId"`
	IconColor    string       `json:"iconColor"`
	BackgroundID int          `json:"backgroundId"`
	LastGameAt   time.Time    `json:"lastGameAt"`
	PasswordHash string       `json:"-"`
	CreatedAt    time.Time    `json:"-"`
}

// GameSeries pairs two players sharing a sequence of secret words.
// CurrentResults holds per-player outcomes for the word in flight; it is
// cleared when the coordinator advances to the next word.
type GameSeries struct {
	ID             string                 `json:"id"`
	Players        [2]string              `json:"players"`
	PlayerNames    map[string]string      `json:"playerNames"`
	CurrentGameID  string                 `json:"currentGameId"`
	CurrentWord    string                 `json:"currentWord"`
	Player1        string                 `json:"player1"`
	Player2        string                 `json:"player2"`
	Player1Score   int                    `json:"player1Score"`
	Player2Score   int                    `json:"player2Score"`
	Games          []string               `json:"games"`
	CurrentResults map[string]SeriesEntry `json:"currentResults,omitempty"`
	RecentWords    []string               `json:"recentWords,omitempty"`
	LastPlayedAt   time.Time              `json:"lastPlayedAt"`
	Status         SeriesStatus           `json:"status"`

	// Version is the optimistic-concurrency counter maintained by the
	// SQLite store. Not part of the document contract.
	Version int64 `json:"-"`
}

// SeriesEntry is one player's result for the word currently in flight.
type SeriesEntry struct {
	GameID    string `json:"gameId"`
	Word      string `json:"word"`
	Won       bool   `json:"won"`
	TurnsUsed int    `json:"turnsUsed"`
	TimeMs    int64  `json:"timeMs"`
}

// GlobalRanking is the denormalized leaderboard projection of a User.
type GlobalRanking struct {
	UserID       string       `json:"userId"`
	Username     string       `json:"username"`
	Score        int          `json:"score"`
	Rank         int          `json:"rank"`
	Tier         scoring.Tier `json:"tier"`
	IconID       int          `json:"iconId"`
	IconColor    string       `json:"iconColor"`
	BackgroundID int          `json:"backgroundId"`
}

// Share records one share of a finished game with a friend.
type Share struct {
	GameID     string    `json:"gameId"`
	SharedBy   string    `json:"sharedBy"`
	SharedWith string    `json:"sharedWith"`
	SharedAt   time.Time `json:"sharedAt"`
}

// Store is the persistence boundary. Implementations may be backed by
// memory (tests, ephemeral play) or SQLite.
type Store interface {
	// Games.
	SaveGame(ctx context.Context, g *game.Game, ownerID string) error
	GetGame(ctx context.Context, id string) (*game.Game, error)
	GamesByOwner(ctx context.Context, ownerID string, limit int) ([]*game.Game, error)
	ClaimGames(ctx context.Context, fromOwner, toOwner string) error

	// Users.
	CreateUser(ctx context.Context, u *User) error
	GetUser(ctx context.Context, uid string) (*User, error)
	GetUserByUsername(ctx context.Context, username string) (*User, error)
	// UpdateUser applies fn to the latest stored user and persists the
	// result atomically.
	UpdateUser(ctx context.Context, uid string, fn func(*User) error) (*User, error)

	// Series.
	CreateSeries(ctx context.Context, s *GameSeries) error
	GetSeries(ctx context.Context, id string) (*GameSeries, error)
	SeriesByPlayer(ctx context.Context, uid string) ([]*GameSeries, error)
	// UpdateSeries applies fn to the latest stored series and persists the
	// result atomically. This is the single point of serialization for
	// concurrent completions by both players.
	UpdateSeries(ctx context.Context, id string, fn func(*GameSeries) error) (*GameSeries, error)

	// Leaderboard projection.
	UpsertRanking(ctx context.Context, r *GlobalRanking) error
	TopRankings(ctx context.Context, limit int) ([]*GlobalRanking, error)
	// RankingsAround returns a window of entries centered on the user's
	// rank (spread entries above and below, inclusive of the user).
	RankingsAround(ctx context.Context, uid string, spread int) ([]*GlobalRanking, error)

	// Shares.
	RecordShare(ctx context.Context, s Share) error
}
