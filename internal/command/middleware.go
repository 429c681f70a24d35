package command

import (
	"context"
	"time"

	"github.com/iotku/subdonic/internal/metrics"
	"github.com/iotku/subdonic/pkg/cmd"

	"github.com/rs/zerolog"
)

// WithGuildOnly skips the command outside guilds.
func WithGuildOnly() cmd.Middleware {
	return func(c cmd.Command) cmd.Command {
		return cmd.Wrap(c, func(ctx context.Context, inv *cmd.Invocation) error {
			if cc := contextOf(inv); cc == nil || cc.Message.GuildID == "" {
				return nil
			}
			return c.Run(ctx, inv)
		})
	}
}

// WithCommandLogger logs each run and counts it.
func WithCommandLogger() cmd.Middleware {
	return func(c cmd.Command) cmd.Command {
		return cmd.Wrap(c, func(ctx context.Context, inv *cmd.Invocation) error {
			start := time.Now()
			err := c.Run(ctx, inv)

			metrics.CommandsTotal.WithLabelValues(c.Name()).Inc()
			logger := zerolog.Ctx(ctx)
			var ev *zerolog.Event
			if err != nil {
				ev = logger.Warn().Err(err)
			} else {
				ev = logger.Debug()
			}
			ev.Str("command", c.Name()).
				Strs("args", inv.Args).
				Dur("took", time.Since(start)).
				Msg("[Command] Executed")
			return err
		})
	}
}
