// Package command turns chat messages into command invocations.
package command

import (
	"context"
	"strings"

	"github.com/iotku/subdonic/internal/session"
	"github.com/iotku/subdonic/pkg/cmd"
	"github.com/iotku/subdonic/pkg/workpool"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Dispatcher matches messages to registered commands and runs them on a
// bounded worker pool.
type Dispatcher struct {
	parser   *Parser
	commands *cmd.Registry
	sessions *session.Registry
	pool     *workpool.Pool
}

func NewDispatcher(parser *Parser, commands *cmd.Registry, sessions *session.Registry, pool *workpool.Pool) *Dispatcher {
	return &Dispatcher{parser: parser, commands: commands, sessions: sessions, pool: pool}
}

func (d *Dispatcher) Parser() *Parser { return d.parser }

// Dispatch schedules the command in msg and reports whether one was found.
// It never waits for the command to finish. Unknown commands are ignored.
func (d *Dispatcher) Dispatch(ctx context.Context, msg Message) bool {
	if !d.parser.IsCommand(msg) {
		return false
	}

	tokens := Tokenize(d.parser.Strip(msg))
	if len(tokens) == 0 {
		return false
	}

	c := d.commands.Get(tokens[0])
	if c == nil {
		log.Debug().Str("guild", msg.GuildID).Str("name", tokens[0]).Msg("[Dispatcher] Unknown command")
		return false
	}

	cc := &Context{Message: msg}
	if msg.GuildID != "" {
		if usesSession(c) {
			cc.Session = d.sessions.SessionFor(msg.GuildID)
		} else if s, ok := d.sessions.Get(msg.GuildID); ok {
			cc.Session = s
		}
		if cc.Session != nil {
			cc.Session.TouchTextChannel(msg.ChannelID)
		}
	}

	inv := &cmd.Invocation{
		Name: strings.ToLower(tokens[0]),
		Args: tokens[1:],
		Data: cc,
	}

	logger := log.With().
		Str("guild", msg.GuildID).
		Str("channel", msg.ChannelID).
		Str("member", msg.AuthorID).
		Logger()
	ctx = logger.WithContext(ctx)

	d.pool.Submit(ctx, func(ctx context.Context) {
		if err := c.Run(ctx, inv); err != nil {
			zerolog.Ctx(ctx).Error().Err(err).Str("command", c.Name()).Msg("[Dispatcher] Command failed")
		}
	})
	return true
}

// usesSession reports whether c acts on the guild's session and so may
// create it.
func usesSession(c cmd.Command) bool {
	u, ok := cmd.Root(c).(interface{ UsesSession() bool })
	return ok && u.UsesSession()
}
