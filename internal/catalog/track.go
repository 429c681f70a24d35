package catalog

import (
	"encoding/json"
	"strings"
)

// UnknownArtist is the placeholder artist the catalog server assigns to
// untagged imports.
const UnknownArtist = "[Unknown Artist]"

// Track is an immutable catalog entry.
type Track struct {
	Title  string `json:"title"`
	Artist string `json:"artist"`
	Album  string `json:"album"`
	Year   string `json:"year"`
	ID     string `json:"id"`
}

// UnmarshalJSON accepts a null or numeric year.
func (t *Track) UnmarshalJSON(data []byte) error {
	var raw struct {
		Title  string          `json:"title"`
		Artist string          `json:"artist"`
		Album  string          `json:"album"`
		Year   json.RawMessage `json:"year"`
		ID     string          `json:"id"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*t = Track{Title: raw.Title, Artist: raw.Artist, Album: raw.Album, ID: raw.ID}

	year := strings.TrimSpace(string(raw.Year))
	switch {
	case year == "" || year == "null":
	case strings.HasPrefix(year, `"`):
		if err := json.Unmarshal(raw.Year, &t.Year); err != nil {
			return err
		}
	default:
		t.Year = year
	}
	return nil
}

// String renders "Artist - Title".
func (t Track) String() string {
	if t.Artist == "" {
		return t.Title
	}
	return t.Artist + " - " + t.Title
}

// Playable reports whether t is a real track rather than a server-side
// placeholder or import artifact.
func Playable(t Track) bool {
	return t.Artist != UnknownArtist && !strings.HasPrefix(t.Title, "/")
}

// Filter returns the playable tracks of in, preserving order.
func Filter(in []Track) []Track {
	out := make([]Track, 0, len(in))
	for _, t := range in {
		if Playable(t) {
			out = append(out, t)
		}
	}
	return out
}
