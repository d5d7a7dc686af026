package main

import (
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/MorganHuegel/endurance-data-serverside/internal/config"
	"github.com/MorganHuegel/endurance-data-serverside/internal/httpserver"
	"github.com/MorganHuegel/endurance-data-serverside/internal/store"
	"github.com/MorganHuegel/endurance-data-serverside/internal/token"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}

	st, err := store.Open(cfg.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DatabasePath).Msg("failed to open database")
	}
	defer st.Close()

	tokens := token.New(token.Config{Secret: []byte(cfg.JWTSecret), Expiry: cfg.JWTExpiry})
	srv := httpserver.New(st, tokens, cfg.ClientOrigin)

	log.Info().Str("port", cfg.Port).Msg("starting workout-log server")
	if err := srv.Start(":" + cfg.Port); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
}
