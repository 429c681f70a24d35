package api

import (
	"net/http"
	"strconv"

	"github.com/iotku/subdonic/internal/catalog"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

const defaultRandomSize = 10

func (s *Server) test(c *gin.Context) {
	if err := s.library.Ping(c.Request.Context()); err != nil {
		log.Error().Err(err).Msg("[API] Subsonic connection test failed")
		c.String(http.StatusOK, "Not Connected")
		return
	}
	c.String(http.StatusOK, "Connected")
}

func (s *Server) search(c *gin.Context) {
	query := c.Query("query")
	tracks, err := s.library.Search3(c.Request.Context(), query)
	if err != nil {
		log.Warn().Err(err).Str("query", query).Msg("[API] Search failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": "search failed"})
		return
	}
	c.JSON(http.StatusOK, s.clean(tracks))
}

func (s *Server) random(c *gin.Context) {
	size := defaultRandomSize
	if raw := c.Query("size"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "size must be a positive integer"})
			return
		}
		size = n
	}

	tracks, err := s.library.RandomSongs(c.Request.Context(), size)
	if err != nil {
		log.Warn().Err(err).Int("size", size).Msg("[API] Random songs failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": "random songs failed"})
		return
	}
	c.JSON(http.StatusOK, s.clean(tracks))
}

func (s *Server) stream(c *gin.Context) {
	id := c.Param("id")
	resp, err := s.library.Stream(c.Request.Context(), id)
	if err != nil {
		log.Error().Err(err).Str("id", id).Msg("[API] Failed to fetch stream")
		c.JSON(http.StatusBadGateway, gin.H{"error": "could not fetch stream for id " + id})
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Error().Int("status", resp.StatusCode).Str("id", id).Msg("[API] Subsonic returned an error for stream")
		c.JSON(http.StatusBadGateway, gin.H{"error": "subsonic returned status " + strconv.Itoa(resp.StatusCode) + " for id " + id})
		return
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.DataFromReader(http.StatusOK, resp.ContentLength, contentType, resp.Body, nil)
}

func (s *Server) clean(tracks []catalog.Track) []catalog.Track {
	if s.filter {
		tracks = catalog.Filter(tracks)
	}
	if tracks == nil {
		return []catalog.Track{}
	}
	return tracks
}
