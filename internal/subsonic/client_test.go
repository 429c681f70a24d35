package subsonic

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/iotku/subdonic/internal/catalog"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	c := New(Config{
		URL:        srv.URL + "/",
		User:       "alice",
		Pass:       "sesame",
		ClientName: "subdonic",
		MaxBitRate: 320,
	}, srv.Client())
	c.salt = func() string { return "c19b2d" }
	return c
}

func TestEndpoint_TokenAuth(t *testing.T) {
	c := New(Config{URL: "https://music.example.com/", User: "alice", Pass: "sesame", ClientName: "subdonic"}, nil)
	c.salt = func() string { return "c19b2d" }

	u, err := url.Parse(c.endpoint("ping", nil))
	require.NoError(t, err)

	sum := md5.Sum([]byte("sesamec19b2d"))
	q := u.Query()
	assert.Equal(t, "/rest/ping.view", u.Path)
	assert.Equal(t, "alice", q.Get("u"))
	assert.Equal(t, hex.EncodeToString(sum[:]), q.Get("t"))
	assert.Equal(t, "c19b2d", q.Get("s"))
	assert.Equal(t, APIVersion, q.Get("v"))
	assert.Equal(t, "subdonic", q.Get("c"))
	assert.Equal(t, "json", q.Get("f"))
	assert.Empty(t, q.Get("p"), "password must never be sent")
}

func TestPing(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/ping.view", r.URL.Path)
		_, _ = io.WriteString(w, `{"subsonic-response":{"status":"ok","version":"1.16.1"}}`)
	})
	assert.NoError(t, c.Ping(context.Background()))
}

func TestPing_Failed(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"subsonic-response":{"status":"failed","error":{"code":40,"message":"Wrong username or password"}}}`)
	})

	err := c.Ping(context.Background())
	var apiErr *Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, 40, apiErr.Code)
}

func TestSearch3(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/search3.view", r.URL.Path)
		assert.Equal(t, "lemon demon two trucks", r.URL.Query().Get("query"))
		assert.Equal(t, "50", r.URL.Query().Get("songCount"))
		_, _ = io.WriteString(w, `{"subsonic-response":{"status":"ok","searchResult3":{"song":[
			{"id":"1","title":"Two Trucks","artist":"Lemon Demon","album":"Damn Skippy","year":2005,"bitRate":320},
			{"id":"2","title":"Ode to Trucks","artist":"Other","album":"Misc"}
		]}}}`)
	})

	tracks, err := c.Search3(context.Background(), "lemon demon - two trucks")
	require.NoError(t, err)
	assert.Equal(t, []catalog.Track{
		{ID: "1", Title: "Two Trucks", Artist: "Lemon Demon", Album: "Damn Skippy", Year: "2005"},
		{ID: "2", Title: "Ode to Trucks", Artist: "Other", Album: "Misc"},
	}, tracks)
}

func TestSearch3_NoSongs(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"subsonic-response":{"status":"ok","searchResult3":{}}}`)
	})

	tracks, err := c.Search3(context.Background(), "nothing")
	require.NoError(t, err)
	assert.NotNil(t, tracks)
	assert.Empty(t, tracks)
}

func TestRandomSongs(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/getRandomSongs.view", r.URL.Path)
		assert.Equal(t, "2", r.URL.Query().Get("size"))
		_, _ = io.WriteString(w, `{"subsonic-response":{"status":"ok","randomSongs":{"song":[
			{"id":"a","title":"A"},{"id":"b","title":"B"}
		]}}}`)
	})

	tracks, err := c.RandomSongs(context.Background(), 2)
	require.NoError(t, err)
	assert.Len(t, tracks, 2)
}

func TestCall_HTTPError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := c.RandomSongs(context.Background(), 1)
	assert.ErrorContains(t, err, "502")
}

func TestStream(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/stream.view", r.URL.Path)
		assert.Equal(t, "song 1", r.URL.Query().Get("id"))
		assert.Equal(t, "320", r.URL.Query().Get("maxBitRate"))
		w.Header().Set("Content-Type", "audio/mpeg")
		_, _ = io.WriteString(w, "ID3audio")
	})

	resp, err := c.Stream(context.Background(), "song 1")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "audio/mpeg", resp.Header.Get("Content-Type"))
	assert.Equal(t, "ID3audio", string(body))
}
