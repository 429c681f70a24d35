package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/iotku/subdonic/internal/catalog"
	"github.com/iotku/subdonic/internal/config"
	"github.com/iotku/subdonic/internal/discord"
	"github.com/iotku/subdonic/internal/logging"
	"github.com/iotku/subdonic/internal/metrics"
	v "github.com/iotku/subdonic/internal/version"

	"github.com/rs/zerolog/log"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("[Main] Failed to load config")
	}
	logging.Setup(cfg.LogLevel, cfg.LogPretty)
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("[Main] Invalid config")
	}

	log.Info().Str("version", v.Version).Str("commit", v.Commit).Msgf("[Main] Starting %v bot...", v.AppName)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stopMetrics := serveMetrics(cfg.MetricsAddr)
	defer stopMetrics()

	var errCh chan error
	if cfg.DiscordToken == "" {
		log.Warn().Msg("[Main] Test mode without DISCORD_TOKEN, bot disabled")
	} else {
		errCh = make(chan error, 1)
		cat := catalog.New(cfg.CatalogURL,
			catalog.WithWeights(cfg.RankWeights()),
			catalog.WithFilter(cfg.FilterPlaceholders),
		)
		bot, err := discord.New(cfg, cat)
		if err != nil {
			log.Fatal().Err(err).Msg("[Main] Failed to create bot")
		}
		go func() {
			if err := bot.Run(ctx); err != nil {
				errCh <- err
			}
			close(errCh)
		}()
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	exitCode := 0
	select {
	case s := <-sig:
		log.Info().Stringer("signal", s).Msg("[Main] Received signal, shutting down...")
		cancel()
		if errCh != nil {
			<-errCh
		}
	case err := <-errCh:
		if err != nil {
			log.Error().Err(err).Msg("[Main] Discord bot error")
			exitCode = 1
		}
		cancel()
	}

	if exitCode != 0 {
		stopMetrics()
		os.Exit(exitCode)
	}
	log.Info().Msg("[Main] Discord bot exited cleanly")
}

// serveMetrics exposes Prometheus metrics on addr. An empty addr disables it.
func serveMetrics(addr string) (stop func()) {
	if addr == "" {
		return func() {}
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		log.Info().Str("addr", addr).Msg("[Metrics] Listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("[Metrics] Server stopped")
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}
