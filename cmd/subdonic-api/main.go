package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/iotku/subdonic/internal/api"
	"github.com/iotku/subdonic/internal/config"
	"github.com/iotku/subdonic/internal/logging"
	"github.com/iotku/subdonic/internal/subsonic"
	v "github.com/iotku/subdonic/internal/version"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

func main() {
	cfg, err := config.LoadAPI()
	if err != nil {
		log.Fatal().Err(err).Msg("[Main] Failed to load config")
	}
	logging.Setup(cfg.LogLevel, cfg.LogPretty)
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("[Main] Invalid config")
	}
	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	log.Info().Str("version", v.Version).Msgf("[Main] Starting %v API...", v.AppName)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	library := subsonic.New(subsonic.Config{
		URL:        cfg.SubsonicURL,
		User:       cfg.SubsonicUser,
		Pass:       cfg.SubsonicPass,
		ClientName: cfg.SubsonicClient,
		MaxBitRate: cfg.SubsonicMaxBitrate,
	}, nil)

	if err := library.Ping(ctx); err != nil {
		log.Warn().Err(err).Str("url", cfg.SubsonicURL).Msg("[Main] Subsonic server not reachable yet")
	}

	if err := api.New(library, cfg.FilterPlaceholders).Run(ctx, cfg.Addr); err != nil {
		log.Fatal().Err(err).Msg("[Main] API server error")
	}
	log.Info().Msg("[Main] API exited cleanly")
}
