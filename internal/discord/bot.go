// Package discord connects the command and session layers to the Discord
// gateway.
package discord

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/iotku/subdonic/internal/audio"
	"github.com/iotku/subdonic/internal/catalog"
	"github.com/iotku/subdonic/internal/command"
	"github.com/iotku/subdonic/internal/config"
	"github.com/iotku/subdonic/internal/music"
	"github.com/iotku/subdonic/internal/session"
	"github.com/iotku/subdonic/pkg/cmd"
	"github.com/iotku/subdonic/pkg/jobmgr"
	"github.com/iotku/subdonic/pkg/workpool"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"
)

const (
	EmbedColor = 0xb01e66

	shutdownTimeout = 10 * time.Second
)

// Bot is a Discord bot
type Bot struct {
	cfg     *config.Config
	dg      *discordgo.Session
	catalog *catalog.Client

	sessions   *session.Registry
	parser     *command.Parser
	pager      *command.Pager
	pool       *workpool.Pool
	dispatcher *command.Dispatcher
	status     *StatusReporter
	jobs       *jobmgr.Manager

	ownerID atomic.Value // string
}

// New prepares a bot; nothing connects until Run.
func New(cfg *config.Config, cat *catalog.Client) (*Bot, error) {
	dg, err := discordgo.New("Bot " + cfg.DiscordToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	b := &Bot{
		cfg:     cfg,
		dg:      dg,
		catalog: cat,
		pager:   command.NewPager(),
		pool:    workpool.New(cfg.CommandWorkers),
		status:  NewStatusReporter(cfg.StatusURL, nil),
		jobs:    jobmgr.NewManager(),
	}
	b.ownerID.Store("")

	prefixes := command.NewMemoryPrefixes(cfg.CommandPrefix)
	b.parser = command.NewParser(prefixes)

	b.sessions = session.NewRegistry(session.Options{
		NewPlayer:     b.newPlayer,
		Notifier:      b,
		IdleGrace:     cfg.IdleTimeout,
		DefaultVolume: cfg.DefaultVolume,
	})

	commands := cmd.NewRegistry()
	handlers := &command.Handlers{
		Catalog:  cat,
		Platform: b,
		Prefixes: prefixes,
		Pager:    b.pager,
		Commands: commands,
		OwnerID:  b.OwnerID,
	}
	handlers.Register()

	b.dispatcher = command.NewDispatcher(b.parser, commands, b.sessions, b.pool)
	b.configureIntents()
	return b, nil
}

func (b *Bot) newPlayer(guildID string) music.Player {
	return audio.NewPlayer(audio.PlayerConfig{
		GuildID:   guildID,
		StreamURL: b.catalog.StreamURL,
		Sink:      func() (audio.Sink, bool) { return b.sinkFor(guildID) },
	})
}

// configureIntents configures the Discord intents
func (b *Bot) configureIntents() {
	b.dg.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildVoiceStates |
		discordgo.IntentsMessageContent
}

// OwnerID returns the application owner resolved at startup.
func (b *Bot) OwnerID() string { return b.ownerID.Load().(string) }

// Run connects to Discord and blocks until ctx is done or the owner cannot
// be resolved.
func (b *Bot) Run(ctx context.Context) error {
	b.dg.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) { b.onReady(ctx, s, r) })
	b.dg.AddHandler(func(s *discordgo.Session, g *discordgo.GuildCreate) { b.onGuildCreate(ctx, s, g) })
	b.dg.AddHandler(func(s *discordgo.Session, m *discordgo.MessageCreate) { b.onMessageCreate(ctx, s, m) })
	b.dg.AddHandler(func(s *discordgo.Session, v *discordgo.VoiceStateUpdate) { b.onVoiceStateUpdate(s, v) })
	b.dg.AddHandler(func(s *discordgo.Session, i *discordgo.InteractionCreate) { b.onInteractionCreate(s, i) })

	if err := b.dg.Open(); err != nil {
		return fmt.Errorf("failed to open Discord session: %w", err)
	}
	defer b.dg.Close()

	owner, err := b.resolveOwner(ctx)
	if err != nil {
		return err
	}
	b.ownerID.Store(owner)
	log.Info().Str("owner", owner).Msg("[Bot] Resolved application owner")

	_ = b.jobs.Start("pager-prune", func(ctx context.Context) error {
		b.pager.Run(ctx)
		return nil
	})

	<-ctx.Done()
	log.Info().Msg("[Bot] Shutdown signal received. Cleaning up...")
	b.shutdown()
	return nil
}

// shutdown leaves every voice channel and waits for running commands and
// background jobs.
func (b *Bot) shutdown() {
	b.jobs.StopAll()

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var connected []*session.Session
	b.sessions.Each(func(s *session.Session) {
		if s.Connected() {
			connected = append(connected, s)
		}
	})

	err := workpool.Parallel(ctx, connected, 4, func(ctx context.Context, s *session.Session) error {
		if err := s.Disconnect(ctx); err != nil {
			log.Warn().Err(err).Str("guild", s.GuildID).Msg("[Bot] Failed to leave voice channel")
		}
		return nil
	})
	if err != nil {
		log.Warn().Err(err).Msg("[Bot] Voice cleanup interrupted")
	}

	b.pool.Wait()
}
