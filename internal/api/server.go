// Package api serves the catalog proxy in front of a Subsonic server and the
// guild status endpoints.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/iotku/subdonic/internal/catalog"
	"github.com/iotku/subdonic/internal/metrics"
	"github.com/iotku/subdonic/internal/version"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// Library is the part of the Subsonic client the proxy needs.
type Library interface {
	Ping(ctx context.Context) error
	Search3(ctx context.Context, query string) ([]catalog.Track, error)
	RandomSongs(ctx context.Context, size int) ([]catalog.Track, error)
	Stream(ctx context.Context, id string) (*http.Response, error)
}

type Server struct {
	library Library
	guilds  *GuildSet
	filter  bool
	router  *gin.Engine
}

// New builds the router. filter drops placeholder tracks from results.
func New(library Library, filter bool) *Server {
	s := &Server{
		library: library,
		guilds:  NewGuildSet(),
		filter:  filter,
		router:  gin.New(),
	}

	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func (s *Server) setupMiddleware() {
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AllowMethods = []string{"GET", "PUT", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type"}

	s.router.Use(gin.Recovery(), requestLogger(), cors.New(corsConfig))
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": version.AppName, "version": version.Version, "commit": version.Commit})
	})
	s.router.GET("/metrics", gin.WrapH(metrics.Handler()))

	v1 := s.router.Group("/api/v1")
	{
		sub := v1.Group("/subsonic")
		sub.Use(observe())
		sub.GET("/test", s.test)
		sub.GET("/search", s.search)
		sub.GET("/search3", s.search)
		sub.GET("/random", s.random)
		sub.GET("/getRandomSongs", s.random)
		sub.GET("/stream/:id", s.stream)

		status := v1.Group("/status")
		status.PUT("/guild/add", s.addGuild)
		status.GET("/guild/list", s.listGuilds)
	}
}

func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) Guilds() *GuildSet { return s.guilds }

// Run serves on addr until ctx is done.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("[API] Listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// requestLogger logs every request through zerolog.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		ev := log.Debug()
		if c.Writer.Status() >= http.StatusInternalServerError {
			ev = log.Warn()
		}
		ev.Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Msg("[API] Request")
	}
}

// observe counts proxy responses by route and status.
func observe() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		metrics.ObserveProxy(c.FullPath(), c.Writer.Status())
	}
}
