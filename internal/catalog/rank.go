package catalog

import (
	"slices"
	"strings"
)

// Weights are the per-field scores used to rank search results.
type Weights struct {
	Title  int
	Album  int
	Live   int // applied when the album name contains "live"
	Artist int
}

// DefaultWeights favour title matches and push live recordings down.
var DefaultWeights = Weights{Title: 10, Album: 1, Live: -5, Artist: 5}

type ranked struct {
	track Track
	score int
}

// Rank orders tracks by descending score against query. Tracks with equal
// scores keep their input order. The input slice is not modified.
func Rank(tracks []Track, query string, w Weights) []Track {
	q := strings.ToLower(strings.TrimSpace(query))
	qWords := strings.Fields(q)

	candidates := make([]ranked, len(tracks))
	for i, t := range tracks {
		candidates[i] = ranked{track: t, score: w.score(t, q, qWords)}
	}

	slices.SortStableFunc(candidates, func(a, b ranked) int {
		return b.score - a.score
	})

	out := make([]Track, len(candidates))
	for i, c := range candidates {
		out[i] = c.track
	}
	return out
}

func (w Weights) score(t Track, q string, qWords []string) int {
	score := 0
	if matches(t.Title, q, qWords) {
		score += w.Title
	}
	if matches(t.Album, q, qWords) {
		score += w.Album
	}
	if strings.Contains(strings.ToLower(t.Album), "live") {
		score += w.Live
	}
	if matches(t.Artist, q, qWords) {
		score += w.Artist
	}
	return score
}

// matches reports whether field contains the query, or whether the field's
// words appear as a contiguous run inside a multi-word query.
func matches(field, q string, qWords []string) bool {
	f := strings.ToLower(strings.TrimSpace(field))
	if f == "" || q == "" {
		return false
	}
	if strings.Contains(f, q) {
		return true
	}

	fWords := strings.Fields(f)
	n := len(fWords)
	if n > len(qWords) {
		return false
	}
	for i := 0; i+n <= len(qWords); i++ {
		if slices.Equal(qWords[i:i+n], fWords) {
			return true
		}
	}
	return false
}
