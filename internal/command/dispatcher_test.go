package command

import (
	"context"
	"strings"
	"testing"

	"github.com/iotku/subdonic/internal/catalog"
	"github.com/iotku/subdonic/internal/music"
	"github.com/iotku/subdonic/internal/music/musictest"
	"github.com/iotku/subdonic/internal/session"
	"github.com/iotku/subdonic/pkg/cmd"
	"github.com/iotku/subdonic/pkg/workpool"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type harness struct {
	t          *testing.T
	dispatcher *Dispatcher
	pool       *workpool.Pool
	platform   *fakePlatform
	catalog    *fakeCatalog
	prefixes   *MemoryPrefixes
	sessions   *session.Registry
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		t:        t,
		pool:     workpool.New(4),
		platform: newFakePlatform(),
		catalog:  &fakeCatalog{},
		prefixes: NewMemoryPrefixes(DefaultPrefix),
	}
	h.sessions = session.NewRegistry(session.Options{
		NewPlayer: func(string) music.Player { return musictest.NewPlayer() },
	})

	commands := cmd.NewRegistry()
	handlers := &Handlers{
		Catalog:  h.catalog,
		Platform: h.platform,
		Prefixes: h.prefixes,
		Pager:    NewPager(),
		Commands: commands,
		OwnerID:  func() string { return "owner" },
	}
	handlers.Register()

	parser := NewParser(h.prefixes)
	parser.SetSelfID("bot")
	h.dispatcher = NewDispatcher(parser, commands, h.sessions, h.pool)
	return h
}

// send dispatches content from author in guild "g" and waits for the handler.
func (h *harness) send(author, content string) bool {
	ok := h.dispatcher.Dispatch(context.Background(), Message{
		GuildID:   "g",
		ChannelID: "text",
		AuthorID:  author,
		Content:   content,
	})
	h.pool.Wait()
	return ok
}

func (h *harness) player() *musictest.Player {
	return h.sessions.SessionFor("g").Player().(*musictest.Player)
}

func (h *harness) session() *session.Session {
	return h.sessions.SessionFor("g")
}

func tracks(titles ...string) []catalog.Track {
	out := make([]catalog.Track, len(titles))
	for i, title := range titles {
		out[i] = catalog.Track{Title: title, Artist: "Artist", ID: title}
	}
	return out
}

func TestDispatch_PingPong(t *testing.T) {
	h := newHarness(t)
	assert.True(t, h.send("u", "!ping"))
	assert.True(t, h.send("u", "!PONG"))
	assert.Equal(t, []string{"Pong!", "Ping!"}, h.platform.texts())
}

func TestDispatch_MentionTriggers(t *testing.T) {
	h := newHarness(t)
	ok := h.dispatcher.Dispatch(context.Background(), Message{
		GuildID: "g", ChannelID: "text", AuthorID: "u",
		Content: "<@bot> ping", MentionIDs: []string{"bot"},
	})
	h.pool.Wait()
	assert.True(t, ok)
	assert.Equal(t, []string{"Pong!"}, h.platform.texts())
}

func TestDispatch_UnknownAndPlainMessagesAreSilent(t *testing.T) {
	h := newHarness(t)
	assert.False(t, h.send("u", "!nosuchcommand arg"))
	assert.False(t, h.send("u", "just chatting"))
	assert.False(t, h.send("u", "!"))
	assert.Empty(t, h.platform.texts())
}

func TestDispatch_CustomPrefixScenario(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.prefixes.Set("G", "?"))

	var got []string
	commands := cmd.NewRegistry()
	commands.Register(&cmd.Func{CmdName: "play", Fn: func(_ context.Context, inv *cmd.Invocation) error {
		got = append(got, inv.Name+":"+strings.Join(inv.Args, ","))
		return nil
	}})
	parser := NewParser(h.prefixes)
	d := NewDispatcher(parser, commands, h.sessions, h.pool)

	assert.True(t, d.Dispatch(context.Background(), Message{GuildID: "G", Content: "?play foo"}))
	assert.False(t, d.Dispatch(context.Background(), Message{GuildID: "H", Content: "?play foo"}))
	h.pool.Wait()

	assert.Equal(t, []string{"play:foo"}, got)
}

func TestDispatch_TouchesTextChannel(t *testing.T) {
	h := newHarness(t)
	h.send("u", "!list")
	assert.Equal(t, "text", h.session().StatusChannel())
}

func TestDispatch_SessionCreatedOnlyWhenNeeded(t *testing.T) {
	h := newHarness(t)
	for _, content := range []string{"!ping", "!pong", "!help", "!prefix"} {
		require.True(t, h.send("owner", content), content)
	}
	assert.Zero(t, h.sessions.Len())
	assert.Contains(t, h.platform.texts(), "Current prefix is `!`.")

	h.send("u", "!list")
	assert.Equal(t, 1, h.sessions.Len())

	h.dispatcher.Dispatch(context.Background(), Message{GuildID: "g", ChannelID: "other", AuthorID: "u", Content: "!ping"})
	h.pool.Wait()
	assert.Equal(t, "other", h.session().StatusChannel())
}

func TestDispatch_GuildOnlyCommandsIgnoredInDMs(t *testing.T) {
	h := newHarness(t)
	h.dispatcher.Dispatch(context.Background(), Message{ChannelID: "dm", AuthorID: "u", Content: "!play song"})
	h.dispatcher.Dispatch(context.Background(), Message{ChannelID: "dm", AuthorID: "u", Content: "!ping"})
	h.pool.Wait()

	assert.Equal(t, []string{"Pong!"}, h.platform.texts())
	assert.Zero(t, h.sessions.Len())
}

func TestPlay_RequiresVoice(t *testing.T) {
	h := newHarness(t)
	h.send("u", "!play song")
	assert.Equal(t, []string{"You must be in a voice channel to play music!"}, h.platform.texts())
	assert.Empty(t, h.catalog.queries)
}

func TestPlay_RejectsOtherChannel(t *testing.T) {
	h := newHarness(t)
	h.platform.userVoice["u"] = "voice-a"
	h.platform.botVoice = "voice-b"

	h.send("u", "!p song")
	assert.Equal(t, []string{"Must be in same voice channel to play music!"}, h.platform.texts())
}

func TestPlay_AutoJoinsAndStartsFirstResult(t *testing.T) {
	h := newHarness(t)
	h.platform.userVoice["u"] = "voice"
	h.catalog.results = tracks("Two Trucks", "Unrelated Song")

	h.send("u", "!play lemon demon two trucks")

	assert.Equal(t, []string{"voice"}, h.platform.joins)
	assert.Equal(t, []string{"lemon demon two trucks"}, h.catalog.queries)
	assert.Equal(t, []string{"Two Trucks"}, h.player().StartedTitles())
	assert.True(t, h.session().Connected())

	h.send("u", "!add something else")
	assert.Equal(t, []string{"Two Trucks"}, h.player().StartedTitles())
	assert.Equal(t, 1, h.session().Scheduler().Len())
	assert.Len(t, h.platform.joins, 1)
}

func TestPlay_OversizedQueryIsDropped(t *testing.T) {
	h := newHarness(t)
	h.platform.userVoice["u"] = "voice"

	h.send("u", "!play "+strings.Repeat("a", catalog.MaxQueryLength+1))
	assert.Empty(t, h.catalog.queries)
	assert.Empty(t, h.platform.texts())
	assert.Empty(t, h.platform.joins)
}

func TestPlay_NoResults(t *testing.T) {
	h := newHarness(t)
	h.platform.userVoice["u"] = "voice"
	h.send("u", "!play nothing")
	assert.Equal(t, []string{"No results found."}, h.platform.texts())
}

func TestSearchThenPlayIndex(t *testing.T) {
	h := newHarness(t)
	h.platform.userVoice["u"] = "voice"
	h.catalog.results = tracks("a", "b", "c", "d", "e", "f", "g")

	h.send("u", "!search letters")
	require.Len(t, h.platform.pages, 1)
	page := h.platform.pages[0]
	assert.Equal(t, 2, page.Count)
	assert.Equal(t, "`1.` Artist - a", page.Lines[0])

	h.send("u", "!play 3")
	assert.Equal(t, []string{"c"}, h.player().StartedTitles())
	assert.Len(t, h.catalog.queries, 1)
}

func TestListRebuildsResults(t *testing.T) {
	h := newHarness(t)
	h.platform.userVoice["u"] = "voice"
	h.catalog.results = tracks("a", "b", "c")

	h.send("u", "!search letters")
	h.send("u", "!play 1")
	h.send("u", "!play 2")
	h.send("u", "!play 3")
	require.Equal(t, []string{"a"}, h.player().StartedTitles())

	h.send("u", "!queue")
	got, ok := h.session().Result(1)
	require.True(t, ok)
	assert.Equal(t, "b", got.Title)
	_, ok = h.session().Result(3)
	assert.False(t, ok)

	// an index outside the new result set is treated as a search query
	h.catalog.results = tracks("z")
	h.send("u", "!play 3")
	assert.Equal(t, "3", h.catalog.queries[len(h.catalog.queries)-1])
}

func TestSkip(t *testing.T) {
	h := newHarness(t)
	h.platform.userVoice["u"] = "voice"
	h.catalog.results = tracks("a", "b", "c")
	h.send("u", "!search x")
	for _, n := range []string{"1", "2", "3"} {
		h.send("u", "!play "+n)
	}
	sched := h.session().Scheduler()
	require.Equal(t, 2, sched.Len())

	h.send("u", "!skip 3")
	assert.Equal(t, 2, sched.Len())
	assert.Equal(t, []string{"a"}, h.player().StartedTitles())
	assert.Empty(t, h.platform.texts())

	h.send("u", "!s notanumber")
	assert.Equal(t, []string{"a", "b"}, h.player().StartedTitles())

	h.send("u", "!skip 1")
	assert.Equal(t, []string{"a", "b", "c"}, h.player().StartedTitles())

	h.send("u", "!skip")
	assert.Equal(t, music.Idle, sched.State())
	assert.Equal(t, []string{"Queue is empty."}, h.platform.texts())
}

func TestRandomClampsCount(t *testing.T) {
	h := newHarness(t)
	h.platform.userVoice["u"] = "voice"

	h.send("u", "!rand")
	h.send("u", "!r 100")
	h.send("u", "!random 0")
	h.send("u", "!random abc")
	h.send("u", "!random 3")

	assert.Equal(t, []int{1, 50, 1, 1, 3}, h.catalog.randomNs)
	assert.Equal(t, 1+50+1+1+3-1, h.session().Scheduler().Len())
}

func TestStopTogglesPause(t *testing.T) {
	h := newHarness(t)
	h.platform.userVoice["u"] = "voice"

	h.send("u", "!stop")
	h.send("u", "!rand")
	h.send("u", "!pause")
	assert.True(t, h.player().Paused())
	h.send("u", "!play")
	assert.False(t, h.player().Paused())
	h.send("u", "!stop")
	h.send("u", "!stop")

	assert.Equal(t, []string{"Nothing is playing.", "Paused.", "Resumed.", "Paused.", "Resumed."}, h.platform.texts())
}

func TestVolume(t *testing.T) {
	h := newHarness(t)
	h.send("u", "!vol 40")
	assert.Equal(t, 40, h.player().Volume())

	h.send("u", "!volume 151")
	h.send("u", "!volume")
	assert.Equal(t, []string{"Volume set to 40%.", "Volume must be between 0 and 150.", "Volume is 40%."}, h.platform.texts())
}

func TestPrefixOwnerOnly(t *testing.T) {
	h := newHarness(t)

	h.send("someone", "!prefix ?")
	assert.Equal(t, "!", h.prefixes.Get("g"))

	h.send("owner", "!prefix ?")
	assert.Equal(t, "?", h.prefixes.Get("g"))

	assert.True(t, h.send("u", "?ping"))
	assert.False(t, h.send("u", "!ping"))
	assert.Equal(t, []string{"Only the bot owner can change the prefix.", "Prefix set to `?`.", "Pong!"}, h.platform.texts())
}

func TestJoinAndDisconnect(t *testing.T) {
	h := newHarness(t)
	h.send("u", "!join")
	h.platform.userVoice["u"] = "voice"
	h.send("u", "!join")
	h.send("u", "!join")
	assert.Equal(t, []string{"voice"}, h.platform.joins)
	assert.True(t, h.session().Connected())

	h.send("u", "!disconnect")
	assert.False(t, h.session().Connected())
	h.send("u", "!disconnect")

	assert.Equal(t, []string{
		"You must be in a voice channel to play music!",
		"Disconnected from voice channel.",
		"Not connected to a voice channel.",
	}, h.platform.texts())
}

func TestHereAndHelp(t *testing.T) {
	h := newHarness(t)
	h.dispatcher.Dispatch(context.Background(), Message{GuildID: "g", ChannelID: "music", AuthorID: "u", Content: "!here"})
	h.pool.Wait()
	h.send("u", "!help")

	assert.Equal(t, "music", h.session().StatusChannel())

	h.platform.mu.Lock()
	defer h.platform.mu.Unlock()
	require.Len(t, h.platform.sent, 2)
	help := h.platform.sent[1].reply
	assert.Equal(t, "Commands", help.Title)
	assert.Contains(t, help.Description, "`!play [query|number]`")
	assert.Contains(t, help.Description, "_(p, add)_")
}

func TestStatusReply(t *testing.T) {
	tr := catalog.Track{Title: "Two Trucks", Artist: "Lemon Demon", Album: "Dinosaurchestra", Year: "2006"}

	np := StatusReply(session.Status{Kind: session.StatusNowPlaying, Track: tr, Queued: 2})
	assert.Equal(t, "Now Playing", np.Title)
	assert.Equal(t, "**Lemon Demon - Two Trucks (Dinosaurchestra, 2006)**\n2 tracks in queue", np.Description)

	added := StatusReply(session.Status{Kind: session.StatusAdded, Track: catalog.Track{Title: "x"}, Position: 1})
	assert.Equal(t, "Added to queue", added.Title)
	assert.Equal(t, "**x**\nPosition: 1", added.Description)
}
