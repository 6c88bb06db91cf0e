// internal/rank/rank.go
//
// Global leaderboard: maintains the denormalized rankings projection of the
// user documents and serves the two read shapes the client needs (top-N and
// a window around the caller's own rank).
//
// SQLite (through the Store) is the source of truth. When REDIS_ADDR is set
// an optional Redis mirror answers reads from a sorted set; every Redis
// failure is logged and falls back to the store, never surfacing to the
// caller.

package rank

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/wordfill/server/internal/events"
	"github.com/wordfill/server/internal/store"
)

const (
	scoresKey = "rankings:scores" // sorted set: member uid, score points
	docsKey   = "rankings:docs"   // hash: uid → GlobalRanking JSON
)

// Service owns the rankings projection.
type Service struct {
	store store.Store
	hub   *events.Hub
	rdb   *redis.Client // nil when Redis is not configured
}

// NewService builds a Service. Pass a nil hub to disable change events.
func NewService(st store.Store, hub *events.Hub) *Service {
	return &Service{store: st, hub: hub}
}

// ConnectRedis wires the optional Redis mirror from REDIS_ADDR/REDIS_DB.
// A missing REDIS_ADDR leaves the mirror disabled; a failing ping is an
// error so a misconfigured deployment is caught at startup.
func (s *Service) ConnectRedis(ctx context.Context) error {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		return nil
	}
	dbIdx := 0
	if v := os.Getenv("REDIS_DB"); v != "" {
		fmt.Sscanf(v, "%d", &dbIdx)
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr, DB: dbIdx})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		return fmt.Errorf("connect redis at %s: %w", addr, err)
	}
	s.rdb = rdb
	log.Info().Str("addr", addr).Msg("rankings redis mirror enabled")
	return nil
}

// Sync refreshes the leaderboard projection for one user after a completed
// game. Returns the upserted entry (without a computed rank).
func (s *Service) Sync(ctx context.Context, u *store.User) (*store.GlobalRanking, error) {
	entry := &store.GlobalRanking{
		UserID:       u.UID,
		Username:     u.Username,
		Score:        u.Score,
		Tier:         u.Tier,
		IconID:       u.IconID,
		IconColor:    u.IconColor,
		BackgroundID: u.BackgroundID,
	}
	if err := s.store.UpsertRanking(ctx, entry); err != nil {
		return nil, err
	}
	s.mirror(ctx, entry)
	if s.hub != nil {
		s.hub.Publish(events.Event{Topic: "rankings", Kind: "rankings", Doc: entry})
	}
	return entry, nil
}

// mirror pushes one entry into the Redis sorted set, best effort.
func (s *Service) mirror(ctx context.Context, entry *store.GlobalRanking) {
	if s.rdb == nil {
		return
	}
	doc, err := json.Marshal(entry)
	if err != nil {
		return
	}
	pipe := s.rdb.Pipeline()
	pipe.ZAdd(ctx, scoresKey, redis.Z{Score: float64(entry.Score), Member: entry.UserID})
	pipe.HSet(ctx, docsKey, entry.UserID, string(doc))
	if _, err := pipe.Exec(ctx); err != nil {
		log.Warn().Err(err).Str("user", entry.UserID).Msg("redis rankings mirror update failed")
	}
}

// Top returns the first limit leaderboard entries, ranks filled in.
func (s *Service) Top(ctx context.Context, limit int) ([]*store.GlobalRanking, error) {
	if limit <= 0 {
		limit = 5
	}
	if s.rdb != nil {
		if out, err := s.topFromRedis(ctx, limit); err == nil {
			return out, nil
		} else {
			log.Warn().Err(err).Msg("redis top rankings failed, falling back to store")
		}
	}
	return s.store.TopRankings(ctx, limit)
}

// Around returns a window of entries centered on the user's own rank.
func (s *Service) Around(ctx context.Context, uid string, spread int) ([]*store.GlobalRanking, error) {
	if spread <= 0 {
		spread = 3
	}
	if s.rdb != nil {
		if out, err := s.aroundFromRedis(ctx, uid, spread); err == nil {
			return out, nil
		} else {
			log.Warn().Err(err).Str("user", uid).Msg("redis nearby rankings failed, falling back to store")
		}
	}
	return s.store.RankingsAround(ctx, uid, spread)
}

func (s *Service) topFromRedis(ctx context.Context, limit int) ([]*store.GlobalRanking, error) {
	uids, err := s.rdb.ZRevRange(ctx, scoresKey, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, err
	}
	return s.hydrate(ctx, uids, 0)
}

func (s *Service) aroundFromRedis(ctx context.Context, uid string, spread int) ([]*store.GlobalRanking, error) {
	rank, err := s.rdb.ZRevRank(ctx, scoresKey, uid).Result()
	if err != nil {
		return nil, err // includes redis.Nil for unknown users
	}
	lo := rank - int64(spread)
	if lo < 0 {
		lo = 0
	}
	uids, err := s.rdb.ZRevRange(ctx, scoresKey, lo, rank+int64(spread)).Result()
	if err != nil {
		return nil, err
	}
	return s.hydrate(ctx, uids, int(lo))
}

// hydrate loads the full documents for a window of uids and assigns ranks
// starting at offset+1.
func (s *Service) hydrate(ctx context.Context, uids []string, offset int) ([]*store.GlobalRanking, error) {
	if len(uids) == 0 {
		return nil, nil
	}
	docs, err := s.rdb.HMGet(ctx, docsKey, uids...).Result()
	if err != nil {
		return nil, err
	}
	out := make([]*store.GlobalRanking, 0, len(uids))
	for i, raw := range docs {
		str, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("rankings doc missing for %s", uids[i])
		}
		entry := &store.GlobalRanking{}
		if err := json.Unmarshal([]byte(str), entry); err != nil {
			return nil, err
		}
		entry.Rank = offset + i + 1
		out = append(out, entry)
	}
	return out, nil
}
