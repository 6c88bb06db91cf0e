// main.go
//
// Entry point: load env, open storage, wire the services, serve HTTP.
// STORE=memory runs fully in-process (no SQLite file), which is handy for
// local hacking; the default is the SQLite document store.

package main

import (
	"context"
	"database/sql"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/wordfill/server/internal/events"
	"github.com/wordfill/server/internal/httpserver"
	"github.com/wordfill/server/internal/rank"
	"github.com/wordfill/server/internal/series"
	"github.com/wordfill/server/internal/store"
	"github.com/wordfill/server/internal/words"
)

func main() {
	_ = godotenv.Load()
	if lvl, err := zerolog.ParseLevel(getEnv("LOG_LEVEL", "info")); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}

	if err := words.Init(); err != nil {
		log.Fatal().Err(err).Msg("failed to load word lists")
	}

	var (
		st store.Store
		db *sql.DB
	)
	if getEnv("STORE", "sqlite") == "memory" {
		st = store.NewMemory()
		log.Warn().Msg("using in-memory store; nothing will survive a restart")
	} else {
		var err error
		db, err = openDB(getEnv("DB_PATH", "./data/app.db"))
		if err != nil {
			log.Fatal().Err(err).Msg("open database")
		}
		if err := migrate(db); err != nil {
			log.Fatal().Err(err).Msg("apply migrations")
		}
		st = store.NewSQLite(db)
	}

	hub := events.NewHub()
	rk := rank.NewService(st, hub)
	if err := rk.ConnectRedis(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("connect redis")
	}
	co := series.NewCoordinator(st, words.RandomAnswer)

	srv := httpserver.New(st, db, hub, rk, co)
	port := getEnv("PORT", "5175")
	log.Info().Str("port", port).Msg("starting server")
	if err := srv.Start(":" + port); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
}

func getEnv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
