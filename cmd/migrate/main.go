package main

import (
	"context"
	"database/sql"
	"os"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/ishantswami13-crypto/vantro-pay/internal/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		l := cfg.NewLogger()
		l.Fatal().Err(err).Msg("invalid configuration")
	}
	log := cfg.NewLogger()

	if cfg.DatabaseURL == "" {
		log.Fatal().Msg("DATABASE_URL is not set")
	}

	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("error opening database")
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		log.Fatal().Err(err).Msg("error pinging database")
	}

	sqlBytes, err := os.ReadFile(cfg.MigrationsPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.MigrationsPath).Msg("error reading migrations file")
	}

	log.Info().Str("path", cfg.MigrationsPath).Msg("applying migrations")
	if _, err := db.ExecContext(ctx, string(sqlBytes)); err != nil {
		log.Fatal().Err(err).Msg("error applying migrations")
	}
	log.Info().Msg("migrations applied")
}
