package discord

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/iotku/subdonic/pkg/retrylimit"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"
)

var ErrOwnerUnresolved = errors.New("application owner could not be resolved")

const ownerRetryDelay = 2 * time.Second

func (b *Bot) resolveOwner(ctx context.Context) (string, error) {
	policy := retrylimit.Policy{
		MaxAttempts:    b.cfg.OwnerLookupAttempts,
		AttemptTimeout: b.cfg.OwnerLookupTimeout,
		Delay:          ownerRetryDelay,
		Jitter:         true,
		OnRetry: func(attempt int, err error) {
			log.Warn().Err(err).Int("attempt", attempt).Msg("[Bot] Owner lookup failed")
		},
	}
	return lookupOwner(ctx, policy, b.fetchApplication)
}

type appResult struct {
	app *discordgo.Application
	err error
}

// fetchApplication returns early when ctx ends. The request itself is bounded
// by the session's HTTP client timeout.
func (b *Bot) fetchApplication(ctx context.Context) (*discordgo.Application, error) {
	ch := make(chan appResult, 1)
	go func() {
		app, err := b.dg.Application("@me")
		ch <- appResult{app, err}
	}()
	select {
	case r := <-ch:
		return r.app, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// lookupOwner fetches the application until it names an owner.
func lookupOwner(ctx context.Context, p retrylimit.Policy, fetch func(context.Context) (*discordgo.Application, error)) (string, error) {
	var owner string
	err := retrylimit.Do(ctx, p, func(ctx context.Context) error {
		app, err := fetch(ctx)
		if err != nil {
			return err
		}
		id, ok := ownerOf(app)
		if !ok {
			return &retrylimit.FatalError{Err: ErrOwnerUnresolved}
		}
		owner = id
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrOwnerUnresolved) {
			return "", err
		}
		return "", fmt.Errorf("%w: %w", ErrOwnerUnresolved, err)
	}
	return owner, nil
}

// ownerOf prefers the team owner for team-owned applications.
func ownerOf(app *discordgo.Application) (string, bool) {
	if app == nil {
		return "", false
	}
	if app.Team != nil && app.Team.OwnerID != "" {
		return app.Team.OwnerID, true
	}
	if app.Owner != nil && app.Owner.ID != "" {
		return app.Owner.ID, true
	}
	return "", false
}
