package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func titles(tracks []Track) []string {
	out := make([]string, len(tracks))
	for i, t := range tracks {
		out[i] = t.Title
	}
	return out
}

func TestRank_TitleMatchBeatsArtistOnly(t *testing.T) {
	in := []Track{
		{Title: "Unrelated Song", Artist: "Lemon Demon", ID: "1"},
		{Title: "Two Trucks", Artist: "Lemon Demon", ID: "2"},
	}

	got := Rank(in, "lemon demon two trucks", DefaultWeights)

	assert.Equal(t, []string{"Two Trucks", "Unrelated Song"}, titles(got))
	assert.Equal(t, 15, DefaultWeights.score(in[1], "lemon demon two trucks", []string{"lemon", "demon", "two", "trucks"}))
	assert.Equal(t, 5, DefaultWeights.score(in[0], "lemon demon two trucks", []string{"lemon", "demon", "two", "trucks"}))
}

func TestRank_StableForTies(t *testing.T) {
	in := []Track{
		{Title: "A", Artist: "x"},
		{Title: "B", Artist: "y"},
		{Title: "C", Artist: "z"},
		{Title: "D", Artist: "w"},
	}

	got := Rank(in, "nothing matches", DefaultWeights)
	assert.Equal(t, []string{"A", "B", "C", "D"}, titles(got))
}

func TestRank_DescendingWithStableTieBreak(t *testing.T) {
	in := []Track{
		{Title: "Intro", Artist: "Band"},                 // 0
		{Title: "Hello", Artist: "Band", Album: "Hello"}, // 11
		{Title: "hello world", Artist: "Band"},           // 10
		{Title: "Other", Artist: "People"},               // 0
		{Title: "HELLO", Album: "Live at Home"},          // 5
		{Title: "Hello Again", Artist: "Band"},           // 10
	}

	got := Rank(in, "Hello", DefaultWeights)
	assert.Equal(t, []string{"Hello", "hello world", "Hello Again", "HELLO", "Intro", "Other"}, titles(got))
}

func TestRank_LivePenaltyAppliesWithoutMatch(t *testing.T) {
	in := []Track{
		{Title: "Song", Album: "Live in Berlin"},
		{Title: "Song", Album: "Studio"},
	}
	got := Rank(in, "zzz", DefaultWeights)
	assert.Equal(t, "Studio", got[0].Album)
}

func TestRank_CustomWeights(t *testing.T) {
	in := []Track{
		{Title: "x", Album: "target"},
		{Title: "y", Artist: "target"},
	}
	got := Rank(in, "target", Weights{Title: 10, Album: 9, Artist: 1})
	assert.Equal(t, "target", got[0].Album)
}

func TestRank_DoesNotModifyInput(t *testing.T) {
	in := []Track{{Title: "b"}, {Title: "a match"}}
	_ = Rank(in, "a match", DefaultWeights)
	assert.Equal(t, "b", in[0].Title)
}

func TestMatches(t *testing.T) {
	q := "lemon demon two trucks"
	words := []string{"lemon", "demon", "two", "trucks"}

	assert.True(t, matches("Two Trucks", q, words))
	assert.True(t, matches("Lemon Demon", q, words))
	assert.True(t, matches("The Lemon Demon Two Trucks Remix", q, words))
	assert.False(t, matches("Trucks Two", q, words))
	assert.False(t, matches("", q, words))
	assert.False(t, matches("anything", "", nil))
}

func TestFilter(t *testing.T) {
	in := []Track{
		{Title: "Keep", Artist: "Someone"},
		{Title: "Drop", Artist: UnknownArtist},
		{Title: "/music/import/file.flac", Artist: "Someone"},
		{Title: "Also Keep", Artist: "[Unknown Artist] Tribute"},
	}
	assert.Equal(t, []string{"Keep", "Also Keep"}, titles(Filter(in)))
}
