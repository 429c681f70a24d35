package command

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lines(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprint(i + 1)
	}
	return out
}

func TestPager_Pages(t *testing.T) {
	p := NewPager()
	first := p.Open("alice", "Results", lines(12))

	assert.Equal(t, []string{"1", "2", "3", "4", "5"}, first.Lines)
	assert.Equal(t, 3, first.Count)
	assert.False(t, first.HasPrev())
	assert.True(t, first.HasNext())

	next, err := p.Turn(first.Token, "alice", 1)
	require.NoError(t, err)
	assert.Equal(t, 1, next.Index)

	last, err := p.Turn(first.Token, "alice", 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"11", "12"}, last.Lines)
	assert.False(t, last.HasNext())

	clamped, err := p.Turn(first.Token, "alice", 1)
	require.NoError(t, err)
	assert.Equal(t, 2, clamped.Index)

	back, err := p.Turn(first.Token, "alice", -5)
	require.NoError(t, err)
	assert.Equal(t, 0, back.Index)
}

func TestPager_OnlyOwnerTurns(t *testing.T) {
	p := NewPager()
	page := p.Open("alice", "Results", lines(7))

	_, err := p.Turn(page.Token, "bob", 1)
	assert.ErrorIs(t, err, ErrPagerNotOwner)

	got, err := p.Turn(page.Token, "alice", 1)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Index)
}

func TestPager_Expiry(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	p := NewPager()
	p.now = func() time.Time { return now }

	old := p.Open("alice", "Old", lines(6))
	now = now.Add(10 * time.Minute)
	fresh := p.Open("alice", "Fresh", lines(6))
	now = now.Add(6 * time.Minute)

	_, err := p.Turn(old.Token, "alice", 1)
	assert.ErrorIs(t, err, ErrPagerExpired)
	assert.Equal(t, 0, p.Prune())
	assert.Equal(t, 1, p.Len())

	now = now.Add(10 * time.Minute)
	assert.Equal(t, 1, p.Prune())

	_, err = p.Turn(fresh.Token, "alice", 1)
	assert.ErrorIs(t, err, ErrPagerExpired)
}

func TestPager_EmptyHasOnePage(t *testing.T) {
	page := NewPager().Open("a", "Nothing", nil)
	assert.Equal(t, 1, page.Count)
	assert.Empty(t, page.Lines)
}

func TestButtonID(t *testing.T) {
	token, delta, ok := ParseButtonID(ButtonID("abc-123", ActionNext))
	require.True(t, ok)
	assert.Equal(t, "abc-123", token)
	assert.Equal(t, 1, delta)

	_, delta, ok = ParseButtonID(ButtonID("abc", ActionPrev))
	require.True(t, ok)
	assert.Equal(t, -1, delta)

	for _, bad := range []string{"", "pager:next:", "other:next:x", "pager:jump:x"} {
		_, _, ok := ParseButtonID(bad)
		assert.False(t, ok, bad)
	}
}
