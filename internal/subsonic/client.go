// Package subsonic is a small client for the Subsonic REST API using token
// authentication.
package subsonic

import (
	"context"
	"crypto/md5"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/iotku/subdonic/internal/catalog"

	"github.com/rs/zerolog"
)

const (
	APIVersion = "1.16.1"
	SongCount  = 50
)

// Config locates and authenticates against a Subsonic server.
type Config struct {
	URL        string
	User       string
	Pass       string
	ClientName string
	MaxBitRate int // 0 leaves transcoding to the server
}

// Error is a failed subsonic-response.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("subsonic error %d: %s", e.Code, e.Message)
}

type Client struct {
	cfg    Config
	base   string
	http   *http.Client
	stream *http.Client // no overall timeout, bodies last a whole track
	salt   func() string
}

// New returns a client. A nil hc uses separate default clients for API
// calls and streams.
func New(cfg Config, hc *http.Client) *Client {
	c := &Client{
		cfg:    cfg,
		base:   strings.TrimRight(cfg.URL, "/"),
		http:   hc,
		stream: hc,
		salt:   randomSalt,
	}
	if hc == nil {
		c.http = &http.Client{Timeout: 15 * time.Second}
		c.stream = &http.Client{}
	}
	return c
}

func randomSalt() string {
	b := make([]byte, 6)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

// endpoint builds a signed URL for method.
func (c *Client) endpoint(method string, params url.Values) string {
	salt := c.salt()
	sum := md5.Sum([]byte(c.cfg.Pass + salt))

	q := url.Values{}
	for k, v := range params {
		q[k] = v
	}
	q.Set("u", c.cfg.User)
	q.Set("t", hex.EncodeToString(sum[:]))
	q.Set("s", salt)
	q.Set("v", APIVersion)
	q.Set("c", c.cfg.ClientName)
	q.Set("f", "json")

	return c.base + "/rest/" + method + ".view?" + q.Encode()
}

type response struct {
	Body struct {
		Status       string `json:"status"`
		Error        *Error `json:"error"`
		SearchResult struct {
			Song []catalog.Track `json:"song"`
		} `json:"searchResult3"`
		RandomSongs struct {
			Song []catalog.Track `json:"song"`
		} `json:"randomSongs"`
	} `json:"subsonic-response"`
}

func (c *Client) call(ctx context.Context, method string, params url.Values) (*response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint(method, params), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", method, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s: unexpected status %s", method, resp.Status)
	}

	var out response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%s: decode: %w", method, err)
	}
	if out.Body.Error != nil {
		return nil, out.Body.Error
	}
	if out.Body.Status != "ok" {
		return nil, fmt.Errorf("%s: status %q", method, out.Body.Status)
	}
	return &out, nil
}

// Ping checks connectivity and credentials.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.call(ctx, "ping", nil)
	return err
}

// Search3 returns up to SongCount songs. "Artist - Title" queries are
// flattened so the dash does not end up in the search terms.
func (c *Client) Search3(ctx context.Context, query string) ([]catalog.Track, error) {
	query = strings.ReplaceAll(query, " - ", " ")
	out, err := c.call(ctx, "search3", url.Values{
		"query":       {query},
		"songCount":   {strconv.Itoa(SongCount)},
		"artistCount": {"0"},
		"albumCount":  {"0"},
	})
	if err != nil {
		return nil, err
	}
	zerolog.Ctx(ctx).Debug().Str("query", query).Int("results", len(out.Body.SearchResult.Song)).Msg("[Subsonic] search3")
	return nonNil(out.Body.SearchResult.Song), nil
}

func (c *Client) RandomSongs(ctx context.Context, size int) ([]catalog.Track, error) {
	out, err := c.call(ctx, "getRandomSongs", url.Values{"size": {strconv.Itoa(size)}})
	if err != nil {
		return nil, err
	}
	return nonNil(out.Body.RandomSongs.Song), nil
}

// StreamURL returns the signed stream URL of a song.
func (c *Client) StreamURL(id string) string {
	params := url.Values{"id": {id}}
	if c.cfg.MaxBitRate > 0 {
		params.Set("maxBitRate", strconv.Itoa(c.cfg.MaxBitRate))
	}
	return c.endpoint("stream", params)
}

// Stream opens the audio of a song. The caller closes the body and checks
// the status.
func (c *Client) Stream(ctx context.Context, id string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.StreamURL(id), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := c.stream.Do(req)
	if err != nil {
		return nil, fmt.Errorf("stream %s: %w", id, err)
	}
	return resp, nil
}

func nonNil(tracks []catalog.Track) []catalog.Track {
	if tracks == nil {
		return []catalog.Track{}
	}
	return tracks
}
