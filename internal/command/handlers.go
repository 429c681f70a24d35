package command

import (
	"context"
	"fmt"
	"strings"

	"github.com/iotku/subdonic/pkg/cmd"
)

// Handlers holds what chat commands depend on.
type Handlers struct {
	Catalog  Catalog
	Platform Platform
	Prefixes Prefixes
	Pager    *Pager
	Commands *cmd.Registry
	OwnerID  func() string
}

type command struct {
	name    string
	desc    string
	usage   string
	alias   []string
	guild   bool
	session bool // acts on the guild's session
	run     func(ctx context.Context, c *Context, args []string) error
}

func (c *command) Name() string        { return c.name }
func (c *command) Description() string { return c.desc }
func (c *command) Aliases() []string   { return c.alias }
func (c *command) Usage() string       { return c.usage }
func (c *command) UsesSession() bool   { return c.session }

func (c *command) Run(ctx context.Context, inv *cmd.Invocation) error {
	cc := contextOf(inv)
	if cc == nil {
		return nil
	}
	return c.run(ctx, cc, inv.Args)
}

// Register adds every chat command to h.Commands.
func (h *Handlers) Register() {
	for _, c := range h.all() {
		mws := []cmd.Middleware{}
		if c.guild {
			mws = append(mws, WithGuildOnly())
		}
		mws = append(mws, WithCommandLogger())
		h.Commands.Register(cmd.Apply(c, mws...))
	}
}

func (h *Handlers) all() []*command {
	return []*command{
		{name: "ping", desc: "Check that the bot is alive", run: h.ping},
		{name: "pong", desc: "Check that the bot is alive, backwards", run: h.pong},
		{name: "help", desc: "List commands", run: h.help},
		{name: "join", desc: "Join your voice channel", guild: true, session: true, run: h.join},
		{name: "disconnect", desc: "Leave the voice channel", guild: true, session: true, run: h.disconnect},
		{name: "play", desc: "Play a search result, a result number, or resume", usage: "[query|number]", alias: []string{"p", "add"}, guild: true, session: true, run: h.play},
		{name: "stop", desc: "Pause or resume playback", alias: []string{"pause"}, guild: true, session: true, run: h.stop},
		{name: "skip", desc: "Skip to the next track, or to the nth queued track", usage: "[count]", alias: []string{"s"}, guild: true, session: true, run: h.skip},
		{name: "rand", desc: "Queue random tracks", usage: "[count]", alias: []string{"r", "random"}, guild: true, session: true, run: h.random},
		{name: "search", desc: "Search the catalog", usage: "<query>", guild: true, session: true, run: h.search},
		{name: "list", desc: "Show the queue", alias: []string{"queue"}, guild: true, session: true, run: h.list},
		{name: "volume", desc: "Show or set the volume", usage: "[0-150]", alias: []string{"vol"}, guild: true, session: true, run: h.volume},
		{name: "prefix", desc: "Change the command prefix (owner only)", usage: "<prefix>", guild: true, run: h.prefix},
		{name: "here", desc: "Post playback status in this channel", guild: true, session: true, run: h.here},
	}
}

func (h *Handlers) reply(ctx context.Context, c *Context, r Reply) error {
	return h.Platform.Send(ctx, c.Message.ChannelID, r)
}

func (h *Handlers) ping(ctx context.Context, c *Context, _ []string) error {
	return h.reply(ctx, c, Text("Pong!"))
}

func (h *Handlers) pong(ctx context.Context, c *Context, _ []string) error {
	return h.reply(ctx, c, Text("Ping!"))
}

func (h *Handlers) help(ctx context.Context, c *Context, _ []string) error {
	prefix := h.Prefixes.Get(c.Message.GuildID)

	var sb strings.Builder
	for _, entry := range h.Commands.GetAll() {
		root := cmd.Root(entry)
		sb.WriteString("`" + prefix + entry.Name())
		if u, ok := root.(cmd.Usage); ok && u.Usage() != "" {
			sb.WriteString(" " + u.Usage())
		}
		sb.WriteString("` " + entry.Description())
		if a, ok := root.(cmd.Aliased); ok && len(a.Aliases()) > 0 {
			sb.WriteString(" _(" + strings.Join(a.Aliases(), ", ") + ")_")
		}
		sb.WriteString("\n")
	}

	return h.reply(ctx, c, Reply{Title: "Commands", Description: strings.TrimRight(sb.String(), "\n")})
}

func (h *Handlers) here(ctx context.Context, c *Context, _ []string) error {
	c.Session.SetPreferredTextChannel(c.Message.ChannelID)
	return h.reply(ctx, c, Text("Playback status will be posted in this channel."))
}

func (h *Handlers) prefix(ctx context.Context, c *Context, args []string) error {
	if h.OwnerID == nil || c.Message.AuthorID != h.OwnerID() {
		return h.reply(ctx, c, Text("Only the bot owner can change the prefix."))
	}
	if len(args) == 0 {
		return h.reply(ctx, c, Text(fmt.Sprintf("Current prefix is `%s`.", h.Prefixes.Get(c.Message.GuildID))))
	}
	if err := h.Prefixes.Set(c.Message.GuildID, args[0]); err != nil {
		return h.reply(ctx, c, Text("Invalid prefix: "+err.Error()+"."))
	}
	return h.reply(ctx, c, Text(fmt.Sprintf("Prefix set to `%s`.", args[0])))
}
