package main

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/antoniobmagic/MEMORY-GAME/internal/config"
	"github.com/antoniobmagic/MEMORY-GAME/internal/httpserver"
	"github.com/antoniobmagic/MEMORY-GAME/internal/play"
	"github.com/antoniobmagic/MEMORY-GAME/internal/store"
)

func main() {
	cfg := config.Load()
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}

	ctx := context.Background()
	st, err := store.Open(ctx, cfg.DatabaseURL, store.Options{FirebaseCredentialsFile: cfg.FirebaseCredentialsFile})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open store")
	}
	defer st.Close(ctx)

	svc := play.New(st, play.WithMismatchDelay(cfg.MismatchDelay))
	srv := httpserver.New(svc, cfg)
	log.Info().Str("port", cfg.Port).Msg("starting memory-match server")
	if err := srv.Start(":" + cfg.Port); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
}
