// Package catalog talks to the music catalog HTTP API and ranks its results.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/iotku/subdonic/internal/metrics"
	"github.com/iotku/subdonic/pkg/retrylimit"

	"github.com/rs/zerolog"
)

const (
	// MaxResults caps how many raw search results are considered.
	MaxResults = 50
	// MaxQueryLength is the longest query a chat command may send.
	MaxQueryLength = 1000
)

// Client is safe for concurrent use. Its methods never return errors:
// failures are logged and reported as empty results.
type Client struct {
	base    string
	http    *http.Client
	limiter *retrylimit.AdaptiveLimiter
	weights Weights
	filter  bool
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithWeights(w Weights) Option {
	return func(c *Client) { c.weights = w }
}

// WithFilter toggles dropping of placeholder tracks (see Playable).
func WithFilter(enabled bool) Option {
	return func(c *Client) { c.filter = enabled }
}

func WithLimiter(l *retrylimit.AdaptiveLimiter) Option {
	return func(c *Client) { c.limiter = l }
}

// New creates a client for the catalog rooted at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		base:    strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 15 * time.Second},
		limiter: retrylimit.NewAdaptiveLimiter(10, 1, 25, 1, 0.5),
		weights: DefaultWeights,
		filter:  true,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Search returns ranked tracks matching query.
func (c *Client) Search(ctx context.Context, query string) []Track {
	logger := zerolog.Ctx(ctx)
	if strings.TrimSpace(query) == "" {
		return []Track{}
	}

	tracks := c.fetch(ctx, "search", "/search", url.Values{"query": {query}})
	if len(tracks) > MaxResults {
		tracks = tracks[:MaxResults]
	}
	if c.filter {
		tracks = Filter(tracks)
	}
	if len(tracks) == 0 {
		logger.Info().Str("query", query).Msg("[Catalog] No results found")
		return tracks
	}
	logger.Info().Str("query", query).Int("results", len(tracks)).Msg("[Catalog] Search results")
	return Rank(tracks, query, c.weights)
}

// Random returns up to count random tracks.
func (c *Client) Random(ctx context.Context, count int) []Track {
	if count < 1 {
		return []Track{}
	}
	tracks := c.fetch(ctx, "random", "/random", url.Values{"size": {strconv.Itoa(count)}})
	if c.filter {
		tracks = Filter(tracks)
	}
	return tracks
}

// StreamURL returns the playable URL of t. It performs no I/O.
func (c *Client) StreamURL(t Track) string {
	return c.base + "/stream/" + url.PathEscape(t.ID)
}

func (c *Client) fetch(ctx context.Context, op, path string, params url.Values) []Track {
	logger := zerolog.Ctx(ctx).With().Str("op", op).Logger()

	if err := c.limiter.Wait(ctx); err != nil {
		logger.Warn().Err(err).Msg("[Catalog] Request not sent")
		metrics.CatalogRequests.WithLabelValues(op, metrics.OutcomeTransport).Inc()
		return []Track{}
	}

	endpoint := c.base + path + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		logger.Warn().Err(err).Msg("[Catalog] Failed to build request")
		metrics.CatalogRequests.WithLabelValues(op, metrics.OutcomeTransport).Inc()
		return []Track{}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		logger.Warn().Err(err).Msg("[Catalog] Request failed")
		metrics.CatalogRequests.WithLabelValues(op, metrics.OutcomeTransport).Inc()
		return []Track{}
	}
	defer resp.Body.Close()

	c.limiter.Observe(resp.StatusCode)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		logger.Warn().
			Int("status", resp.StatusCode).
			Str("body", strings.TrimSpace(string(body))).
			Msg("[Catalog] Upstream returned an error")
		metrics.CatalogRequests.WithLabelValues(op, metrics.OutcomeHTTPError).Inc()
		return []Track{}
	}

	tracks, err := decodeTracks(resp.Body)
	if err != nil {
		logger.Warn().Err(err).Msg("[Catalog] Malformed response")
		metrics.CatalogRequests.WithLabelValues(op, metrics.OutcomeDecode).Inc()
		return []Track{}
	}

	metrics.CatalogRequests.WithLabelValues(op, metrics.OutcomeOK).Inc()
	return tracks
}

func decodeTracks(r io.Reader) ([]Track, error) {
	var tracks []Track
	if err := json.NewDecoder(r).Decode(&tracks); err != nil {
		if err == io.EOF {
			return []Track{}, nil
		}
		return nil, fmt.Errorf("decode tracks: %w", err)
	}
	if tracks == nil {
		tracks = []Track{}
	}
	return tracks, nil
}
