// internal/store/sqlite.go
//
// SQLite-backed Store. Documents are persisted as JSON in a doc column with
// the handful of fields needed for querying (owner, status, score, version)
// extracted into real columns. Schema lives in sql/*.sql migrations.
//
// Concurrency:
//   - Series updates use optimistic versioning: the UPDATE is conditional on
//     the version read, and loses are retried against the fresh document.
//     Both players finishing the same shared word therefore both land.
//   - User updates run inside a transaction; WAL + busy timeout serialize
//     competing writers.

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/wordfill/server/internal/game"
	"github.com/wordfill/server/internal/scoring"
)

// updateRetries bounds how often an optimistic series update is retried
// before giving up with ErrConflict.
const updateRetries = 10

type sqliteStore struct {
	db *sql.DB
}

// NewSQLite wraps an opened *sql.DB (migrations already applied) in a Store.
func NewSQLite(db *sql.DB) Store {
	return &sqliteStore{db: db}
}

// ------------------------------- games -------------------------------------

func (s *sqliteStore) SaveGame(ctx context.Context, g *game.Game, ownerID string) error {
	doc, err := json.Marshal(g)
	if err != nil {
		return fmt.Errorf("marshal game: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO games (id, owner_id, status, saved_at, doc)
		VALUES (?,?,?,?,?)
		ON CONFLICT(id) DO UPDATE SET owner_id=excluded.owner_id,
			status=excluded.status, saved_at=excluded.saved_at, doc=excluded.doc`,
		g.ID, ownerID, string(g.Status), now(), string(doc))
	return err
}

func (s *sqliteStore) GetGame(ctx context.Context, id string) (*game.Game, error) {
	var doc string
	err := s.db.QueryRowContext(ctx, `SELECT doc FROM games WHERE id=?`, id).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var g game.Game
	if err := json.Unmarshal([]byte(doc), &g); err != nil {
		return nil, fmt.Errorf("unmarshal game %s: %w", id, err)
	}
	return &g, nil
}

func (s *sqliteStore) GamesByOwner(ctx context.Context, ownerID string, limit int) ([]*game.Game, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT doc FROM games WHERE owner_id=? ORDER BY saved_at DESC LIMIT ?`,
		ownerID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*game.Game
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, err
		}
		var g game.Game
		if err := json.Unmarshal([]byte(doc), &g); err != nil {
			return nil, err
		}
		out = append(out, &g)
	}
	return out, rows.Err()
}

func (s *sqliteStore) ClaimGames(ctx context.Context, fromOwner, toOwner string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE games SET owner_id=? WHERE owner_id=?`, toOwner, fromOwner)
	return err
}

// ------------------------------- users -------------------------------------

func (s *sqliteStore) CreateUser(ctx context.Context, u *User) error {
	doc, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("marshal user: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO users (uid, username, password_hash, created_at, doc)
		VALUES (?,?,?,?,?)`,
		u.UID, u.Username, u.PasswordHash, u.CreatedAt.UTC().Format(time.RFC3339), string(doc))
	return err
}

func (s *sqliteStore) GetUser(ctx context.Context, uid string) (*User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx, `
		SELECT password_hash, created_at, doc FROM users WHERE uid=?`, uid))
}

func (s *sqliteStore) GetUserByUsername(ctx context.Context, username string) (*User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx, `
		SELECT password_hash, created_at, doc FROM users WHERE lower(username)=lower(?)`, username))
}

func (s *sqliteStore) scanUser(row *sql.Row) (*User, error) {
	var hash, created, doc string
	err := row.Scan(&hash, &created, &doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var u User
	if err := json.Unmarshal([]byte(doc), &u); err != nil {
		return nil, fmt.Errorf("unmarshal user: %w", err)
	}
	u.PasswordHash = hash
	u.CreatedAt, _ = time.Parse(time.RFC3339, created)
	return &u, nil
}

func (s *sqliteStore) UpdateUser(ctx context.Context, uid string, fn func(*User) error) (*User, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	var hash, created, doc string
	err = tx.QueryRowContext(ctx,
		`SELECT password_hash, created_at, doc FROM users WHERE uid=?`, uid).
		Scan(&hash, &created, &doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var u User
	if err := json.Unmarshal([]byte(doc), &u); err != nil {
		return nil, fmt.Errorf("unmarshal user: %w", err)
	}
	u.PasswordHash = hash
	u.CreatedAt, _ = time.Parse(time.RFC3339, created)

	if err := fn(&u); err != nil {
		return nil, err
	}
	next, err := json.Marshal(&u)
	if err != nil {
		return nil, fmt.Errorf("marshal user: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE users SET username=?, password_hash=?, doc=? WHERE uid=?`,
		u.Username, u.PasswordHash, string(next), uid); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &u, nil
}

// ------------------------------- series ------------------------------------

func (s *sqliteStore) CreateSeries(ctx context.Context, sr *GameSeries) error {
	doc, err := json.Marshal(sr)
	if err != nil {
		return fmt.Errorf("marshal series: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO series (id, player1, player2, last_played_at, version, doc)
		VALUES (?,?,?,?,0,?)`,
		sr.ID, sr.Players[0], sr.Players[1],
		sr.LastPlayedAt.UTC().Format(time.RFC3339), string(doc))
	return err
}

func (s *sqliteStore) GetSeries(ctx context.Context, id string) (*GameSeries, error) {
	var doc string
	var version int64
	err := s.db.QueryRowContext(ctx,
		`SELECT doc, version FROM series WHERE id=?`, id).Scan(&doc, &version)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var sr GameSeries
	if err := json.Unmarshal([]byte(doc), &sr); err != nil {
		return nil, fmt.Errorf("unmarshal series %s: %w", id, err)
	}
	sr.Version = version
	return &sr, nil
}

func (s *sqliteStore) SeriesByPlayer(ctx context.Context, uid string) ([]*GameSeries, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT doc, version FROM series WHERE player1=? OR player2=?
		ORDER BY last_played_at DESC`, uid, uid)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*GameSeries
	for rows.Next() {
		var doc string
		var version int64
		if err := rows.Scan(&doc, &version); err != nil {
			return nil, err
		}
		var sr GameSeries
		if err := json.Unmarshal([]byte(doc), &sr); err != nil {
			return nil, err
		}
		sr.Version = version
		out = append(out, &sr)
	}
	return out, rows.Err()
}

// UpdateSeries is the compare-and-swap loop: re-read, apply fn, write back
// conditional on the version we read. A lost race re-reads and retries so no
// increment is silently overwritten.
func (s *sqliteStore) UpdateSeries(ctx context.Context, id string, fn func(*GameSeries) error) (*GameSeries, error) {
	for attempt := 0; attempt < updateRetries; attempt++ {
		sr, err := s.GetSeries(ctx, id)
		if err != nil {
			return nil, err
		}
		if err := fn(sr); err != nil {
			return nil, err
		}
		doc, err := json.Marshal(sr)
		if err != nil {
			return nil, fmt.Errorf("marshal series: %w", err)
		}
		res, err := s.db.ExecContext(ctx, `
			UPDATE series SET doc=?, last_played_at=?, version=version+1
			WHERE id=? AND version=?`,
			string(doc), sr.LastPlayedAt.UTC().Format(time.RFC3339), id, sr.Version)
		if err != nil {
			return nil, err
		}
		if n, _ := res.RowsAffected(); n == 1 {
			sr.Version++
			return sr, nil
		}
		// Someone else won the race; loop re-reads the fresh document.
	}
	return nil, ErrConflict
}

// ----------------------------- leaderboard ---------------------------------

func (s *sqliteStore) UpsertRanking(ctx context.Context, r *GlobalRanking) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO rankings (user_id, username, score, tier, icon_id, icon_color, background_id, updated_at)
		VALUES (?,?,?,?,?,?,?,?)
		ON CONFLICT(user_id) DO UPDATE SET username=excluded.username,
			score=excluded.score, tier=excluded.tier, icon_id=excluded.icon_id,
			icon_color=excluded.icon_color, background_id=excluded.background_id,
			updated_at=excluded.updated_at`,
		r.UserID, r.Username, r.Score, string(r.Tier),
		r.IconID, r.IconColor, r.BackgroundID, now())
	return err
}

func (s *sqliteStore) TopRankings(ctx context.Context, limit int) ([]*GlobalRanking, error) {
	if limit <= 0 {
		limit = 20
	}
	return s.rankingPage(ctx, 0, limit)
}

func (s *sqliteStore) RankingsAround(ctx context.Context, uid string, spread int) ([]*GlobalRanking, error) {
	// Rank = players strictly ahead + 1; ties broken by user id to keep the
	// ordering stable.
	var rank int
	err := s.db.QueryRowContext(ctx, `
		SELECT (SELECT COUNT(*) FROM rankings r
		        WHERE r.score > me.score OR (r.score = me.score AND r.user_id < me.user_id)) + 1
		FROM rankings me WHERE me.user_id=?`,
		uid).Scan(&rank)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	offset := rank - 1 - spread
	if offset < 0 {
		offset = 0
	}
	limit := (rank - 1 - offset) + spread + 1
	return s.rankingPage(ctx, offset, limit)
}

// rankingPage returns one window of the score-descending leaderboard, with
// Rank derived from the window offset.
func (s *sqliteStore) rankingPage(ctx context.Context, offset, limit int) ([]*GlobalRanking, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT user_id, username, score, tier, icon_id, icon_color, background_id
		FROM rankings ORDER BY score DESC, user_id ASC LIMIT ? OFFSET ?`,
		limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*GlobalRanking
	for rows.Next() {
		r := &GlobalRanking{}
		var tier string
		if err := rows.Scan(&r.UserID, &r.Username, &r.Score, &tier,
			&r.IconID, &r.IconColor, &r.BackgroundID); err != nil {
			return nil, err
		}
		r.Tier = scoring.Tier(tier)
		r.Rank = offset + len(out) + 1
		out = append(out, r)
	}
	return out, rows.Err()
}

// ------------------------------- shares ------------------------------------

func (s *sqliteStore) RecordShare(ctx context.Context, sh Share) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO shares (game_id, shared_by, shared_with, shared_at)
		VALUES (?,?,?,?)`,
		sh.GameID, sh.SharedBy, sh.SharedWith, sh.SharedAt.UTC().Format(time.RFC3339))
	return err
}

// now formats the current UTC time the way every timestamp column expects.
func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}
