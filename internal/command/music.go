package command

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/iotku/subdonic/internal/catalog"
	"github.com/iotku/subdonic/internal/music"
	"github.com/iotku/subdonic/internal/session"

	"github.com/rs/zerolog"
)

const (
	maxRandom = 50
	maxVolume = 150
)

// ensureVoice puts the bot in the member's voice channel. It fails when the
// member is not in voice, or is in another channel than the bot.
func (h *Handlers) ensureVoice(ctx context.Context, c *Context) error {
	guildID := c.Message.GuildID
	userCh, ok := h.Platform.UserVoiceChannel(guildID, c.Message.AuthorID)
	if !ok {
		return ErrNotInVoice
	}

	botCh, inVoice := h.Platform.BotVoiceChannel(guildID)
	if inVoice && botCh != userCh {
		return ErrDifferentChannel
	}
	if inVoice && c.Session.Connected() {
		return nil
	}
	return h.joinChannel(ctx, c, userCh)
}

func (h *Handlers) joinChannel(ctx context.Context, c *Context, channelID string) error {
	guildID := c.Message.GuildID
	conn, err := h.Platform.JoinVoice(ctx, guildID, channelID)
	if err != nil {
		return fmt.Errorf("join voice channel %s: %w", channelID, err)
	}
	c.Session.Attach(conn, func() int {
		return h.Platform.Occupancy(guildID, channelID)
	})
	return nil
}

// voiceFailure replies to placement errors and reports whether err was one.
func (h *Handlers) voiceFailure(ctx context.Context, c *Context, err error) (bool, error) {
	switch {
	case err == nil:
		return false, nil
	case errors.Is(err, ErrNotInVoice):
		return true, h.reply(ctx, c, Text("You must be in a voice channel to play music!"))
	case errors.Is(err, ErrDifferentChannel):
		return true, h.reply(ctx, c, Text("Must be in same voice channel to play music!"))
	default:
		zerolog.Ctx(ctx).Error().Err(err).Msg("[Music] Failed to join voice")
		return true, h.reply(ctx, c, Text("Could not join your voice channel."))
	}
}

func (h *Handlers) join(ctx context.Context, c *Context, _ []string) error {
	userCh, ok := h.Platform.UserVoiceChannel(c.Message.GuildID, c.Message.AuthorID)
	if !ok {
		_, err := h.voiceFailure(ctx, c, ErrNotInVoice)
		return err
	}
	if botCh, inVoice := h.Platform.BotVoiceChannel(c.Message.GuildID); inVoice && botCh == userCh && c.Session.Connected() {
		return nil
	}
	if failed, err := h.voiceFailure(ctx, c, h.joinChannel(ctx, c, userCh)); failed {
		return err
	}
	return nil
}

func (h *Handlers) disconnect(ctx context.Context, c *Context, _ []string) error {
	if err := c.Session.Disconnect(ctx); err != nil {
		if errors.Is(err, session.ErrNoConnection) {
			return h.reply(ctx, c, Text("Not connected to a voice channel."))
		}
		zerolog.Ctx(ctx).Warn().Err(err).Msg("[Music] Disconnect failed")
	}
	return h.reply(ctx, c, Text("Disconnected from voice channel."))
}

func (h *Handlers) play(ctx context.Context, c *Context, args []string) error {
	sched := c.Session.Scheduler()
	if len(args) == 0 {
		if sched.State() == music.Paused {
			sched.Resume()
			return h.reply(ctx, c, Text("Resumed."))
		}
		return nil
	}

	query := strings.Join(args, " ")
	if tooLong(ctx, query) {
		return nil
	}

	if failed, err := h.voiceFailure(ctx, c, h.ensureVoice(ctx, c)); failed {
		return err
	}

	if len(args) == 1 {
		if n, err := strconv.Atoi(args[0]); err == nil {
			if t, ok := c.Session.Result(n); ok {
				sched.EnqueueOrPlay(t)
				return nil
			}
		}
	}

	tracks := h.Catalog.Search(ctx, query)
	if len(tracks) == 0 {
		return h.reply(ctx, c, Text("No results found."))
	}
	sched.EnqueueOrPlay(tracks[0])
	return nil
}

func (h *Handlers) stop(ctx context.Context, c *Context, _ []string) error {
	switch c.Session.Scheduler().TogglePause() {
	case music.Paused:
		return h.reply(ctx, c, Text("Paused."))
	case music.Playing:
		return h.reply(ctx, c, Text("Resumed."))
	default:
		return h.reply(ctx, c, Text("Nothing is playing."))
	}
}

func (h *Handlers) skip(ctx context.Context, c *Context, args []string) error {
	sched := c.Session.Scheduler()
	if len(args) > 0 {
		if n, err := strconv.Atoi(args[0]); err == nil {
			sched.AdvanceBy(n)
			return nil
		}
	}
	if !sched.Advance() {
		return h.reply(ctx, c, Text("Queue is empty."))
	}
	return nil
}

func (h *Handlers) random(ctx context.Context, c *Context, args []string) error {
	count := 1
	if len(args) > 0 {
		if n, err := strconv.Atoi(args[0]); err == nil {
			count = min(max(n, 1), maxRandom)
		}
	}

	if failed, err := h.voiceFailure(ctx, c, h.ensureVoice(ctx, c)); failed {
		return err
	}

	tracks := h.Catalog.Random(ctx, count)
	if len(tracks) == 0 {
		return h.reply(ctx, c, Text("No results found."))
	}
	for _, t := range tracks {
		c.Session.Scheduler().EnqueueOrPlay(t)
	}
	return nil
}

func (h *Handlers) search(ctx context.Context, c *Context, args []string) error {
	if len(args) == 0 {
		return h.reply(ctx, c, Text("Usage: `"+h.Prefixes.Get(c.Message.GuildID)+"search <query>`"))
	}
	query := strings.Join(args, " ")
	if tooLong(ctx, query) {
		return nil
	}

	tracks := h.Catalog.Search(ctx, query)
	c.Session.SetResults(tracks)
	if len(tracks) == 0 {
		return h.reply(ctx, c, Text("No results found."))
	}
	return h.showPages(ctx, c, "Results for \""+query+"\"", numbered(tracks))
}

func (h *Handlers) list(ctx context.Context, c *Context, _ []string) error {
	sched := c.Session.Scheduler()
	queue := sched.Queue()
	c.Session.SetResults(queue)

	title := "Queue"
	if t, ok := sched.NowPlaying(); ok {
		title = "Now Playing: " + t.String()
	}
	if len(queue) == 0 {
		return h.reply(ctx, c, Reply{Title: title, Description: "Queue is empty."})
	}
	return h.showPages(ctx, c, title, numbered(queue))
}

func (h *Handlers) showPages(ctx context.Context, c *Context, title string, lines []string) error {
	page := h.Pager.Open(c.Message.AuthorID, title, lines)
	return h.Platform.SendPage(ctx, c.Message.ChannelID, page)
}

func (h *Handlers) volume(ctx context.Context, c *Context, args []string) error {
	player := c.Session.Player()
	if len(args) == 0 {
		return h.reply(ctx, c, Text(fmt.Sprintf("Volume is %d%%.", player.Volume())))
	}
	n, err := strconv.Atoi(strings.TrimSuffix(args[0], "%"))
	if err != nil || n < 0 || n > maxVolume {
		return h.reply(ctx, c, Text(fmt.Sprintf("Volume must be between 0 and %d.", maxVolume)))
	}
	player.SetVolume(n)
	return h.reply(ctx, c, Text(fmt.Sprintf("Volume set to %d%%.", n)))
}

func tooLong(ctx context.Context, query string) bool {
	if len(query) <= catalog.MaxQueryLength {
		return false
	}
	zerolog.Ctx(ctx).Warn().Int("length", len(query)).Msg("[Music] Blocked oversized query")
	return true
}
