package command

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestParser() (*Parser, *MemoryPrefixes) {
	prefixes := NewMemoryPrefixes(DefaultPrefix)
	p := NewParser(prefixes)
	p.SetSelfID("42")
	return p, prefixes
}

func TestParser_PerGuildPrefix(t *testing.T) {
	p, prefixes := newTestParser()
	require.NoError(t, prefixes.Set("G", "?"))

	inG := Message{GuildID: "G", Content: "?play foo"}
	require.True(t, p.IsCommand(inG))
	tokens := Tokenize(p.Strip(inG))
	assert.Equal(t, "play", tokens[0])
	assert.Equal(t, []string{"foo"}, tokens[1:])

	assert.False(t, p.IsCommand(Message{GuildID: "H", Content: "?play foo"}))
	assert.True(t, p.IsCommand(Message{GuildID: "H", Content: "!play foo"}))
	assert.False(t, p.IsCommand(Message{GuildID: "G", Content: "!play foo"}))
}

func TestParser_Mentions(t *testing.T) {
	p, _ := newTestParser()

	cases := []struct {
		msg  Message
		want string
	}{
		{Message{Content: "<@42> play song", MentionIDs: []string{"42"}}, "play song"},
		{Message{Content: "<@!42>   skip 2", MentionIDs: []string{"42"}}, "skip 2"},
		{Message{Content: "hey <@42> ping <@42>", MentionIDs: []string{"42"}}, "hey  ping <@42>"},
		{Message{Content: "<@!42> x <@42> y"}, "x <@42> y"},
	}
	for _, tc := range cases {
		require.True(t, p.IsCommand(tc.msg), tc.msg.Content)
		assert.Equal(t, tc.want, p.Strip(tc.msg))
	}

	assert.False(t, p.IsCommand(Message{Content: "<@7> play", MentionIDs: []string{"7"}}))
}

func TestParser_StripPrefixTrims(t *testing.T) {
	p, _ := newTestParser()
	assert.Equal(t, "play   a b", p.Strip(Message{Content: "!  play   a b  "}))
	assert.Equal(t, "plain text", p.Strip(Message{Content: "plain text"}))
}

func TestParser_NoSelfIDYet(t *testing.T) {
	p := NewParser(NewMemoryPrefixes(""))
	assert.False(t, p.IsCommand(Message{Content: "<@42> ping", MentionIDs: []string{"42"}}))
	assert.True(t, p.IsCommand(Message{Content: "!ping"}))
}

func TestTokenize(t *testing.T) {
	assert.Equal(t, []string{"play", `"two`, `trucks"`}, Tokenize("play  \"two\t trucks\"\n"))
	assert.Empty(t, Tokenize("   "))
}

func TestMemoryPrefixes(t *testing.T) {
	m := NewMemoryPrefixes("")
	assert.Equal(t, "!", m.Get("any"))

	assert.ErrorIs(t, m.Set("g", ""), ErrInvalidPrefix)
	assert.ErrorIs(t, m.Set("g", "a b"), ErrInvalidPrefix)
	assert.ErrorIs(t, m.Set("g", "waytoolong"), ErrInvalidPrefix)

	require.NoError(t, m.Set("g", " $$ "))
	assert.Equal(t, "$$", m.Get("g"))
	assert.Equal(t, "!", m.Get("other"))
}
