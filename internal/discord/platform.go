package discord

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/iotku/subdonic/internal/command"
	"github.com/iotku/subdonic/internal/session"

	"github.com/bwmarrin/discordgo"
	embed "github.com/clinet/discordgo-embed"
	"github.com/rs/zerolog/log"
)

const notifyTimeout = 10 * time.Second

var (
	_ command.Platform = (*Bot)(nil)
	_ session.Notifier = (*Bot)(nil)
)

func (b *Bot) Send(ctx context.Context, channelID string, r command.Reply) error {
	_, err := b.dg.ChannelMessageSendComplex(channelID, messageSend(r), discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}

func (b *Bot) SendPage(ctx context.Context, channelID string, p command.Page) error {
	_, err := b.dg.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{
		Embeds:     []*discordgo.MessageEmbed{pageEmbed(p)},
		Components: pageComponents(p),
	}, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("send page: %w", err)
	}
	return nil
}

func (b *Bot) UserVoiceChannel(guildID, userID string) (string, bool) {
	vs, err := b.dg.State.VoiceState(guildID, userID)
	if err != nil || vs.ChannelID == "" {
		return "", false
	}
	return vs.ChannelID, true
}

func (b *Bot) BotVoiceChannel(guildID string) (string, bool) {
	vc, ok := b.voiceConnection(guildID)
	if !ok {
		return "", false
	}
	return (&voiceConn{vc: vc}).ChannelID(), true
}

func (b *Bot) JoinVoice(_ context.Context, guildID, channelID string) (session.Conn, error) {
	vc, err := b.dg.ChannelVoiceJoin(guildID, channelID, false, true)
	if err != nil {
		return nil, fmt.Errorf("failed to join voice channel: %w", err)
	}
	log.Info().Str("guild", guildID).Str("channel", channelID).Msg("[Voice] Joined voice channel")
	return &voiceConn{vc: vc}, nil
}

func (b *Bot) Occupancy(guildID, channelID string) int {
	g, err := b.dg.State.Guild(guildID)
	if err != nil {
		return 0
	}
	b.dg.State.RLock()
	defer b.dg.State.RUnlock()
	return countVoiceMembers(g.VoiceStates, channelID)
}

func countVoiceMembers(states []*discordgo.VoiceState, channelID string) int {
	n := 0
	for _, vs := range states {
		if vs.ChannelID == channelID {
			n++
		}
	}
	return n
}

// Notify posts a playback status update in the background. Without a
// channel it falls back to the first text channel the bot may write to.
func (b *Bot) Notify(guildID, channelID string, st session.Status) {
	go b.postStatus(guildID, channelID, st)
}

func (b *Bot) postStatus(guildID, channelID string, st session.Status) {
	if channelID == "" {
		channelID = b.fallbackChannel(guildID)
	}
	if channelID == "" {
		log.Warn().Str("guild", guildID).Msg("[Notify] No text channel available for status")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
	defer cancel()
	if err := b.Send(ctx, channelID, command.StatusReply(st)); err != nil {
		log.Warn().Err(err).Str("guild", guildID).Str("channel", channelID).Msg("[Notify] Failed to post status")
	}
}

func (b *Bot) fallbackChannel(guildID string) string {
	g, err := b.dg.State.Guild(guildID)
	if err != nil {
		return ""
	}
	self := b.parser.SelfID()

	b.dg.State.RLock()
	channels := slices.Clone(g.Channels)
	b.dg.State.RUnlock()

	return firstWritable(channels, func(channelID string) bool {
		perms, err := b.dg.State.UserChannelPermissions(self, channelID)
		return err == nil && perms&sendPerms == sendPerms
	})
}

const sendPerms = discordgo.PermissionViewChannel | discordgo.PermissionSendMessages

// firstWritable returns the top-most text channel accepted by canSend.
func firstWritable(channels []*discordgo.Channel, canSend func(channelID string) bool) string {
	text := make([]*discordgo.Channel, 0, len(channels))
	for _, c := range channels {
		if c.Type == discordgo.ChannelTypeGuildText {
			text = append(text, c)
		}
	}
	slices.SortStableFunc(text, func(a, b *discordgo.Channel) int { return a.Position - b.Position })

	for _, c := range text {
		if canSend(c.ID) {
			return c.ID
		}
	}
	return ""
}

func messageSend(r command.Reply) *discordgo.MessageSend {
	ms := &discordgo.MessageSend{Content: r.Content}
	if r.Title != "" || r.Description != "" {
		emb := embed.NewEmbed().
			SetColor(EmbedColor).
			SetTitle(r.Title).
			SetDescription(r.Description)
		ms.Embeds = []*discordgo.MessageEmbed{emb.MessageEmbed}
	}
	return ms
}

func pageEmbed(p command.Page) *discordgo.MessageEmbed {
	body := p.Body()
	if body == "" {
		body = "Nothing here."
	}
	return embed.NewEmbed().
		SetColor(EmbedColor).
		SetTitle(p.Title).
		SetDescription(body).
		SetFooter(fmt.Sprintf("Page %d/%d", p.Index+1, p.Count)).
		MessageEmbed
}

// pageComponents returns navigation buttons, or nothing for a single page.
func pageComponents(p command.Page) []discordgo.MessageComponent {
	if p.Count <= 1 {
		return nil
	}
	return []discordgo.MessageComponent{
		discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			discordgo.Button{
				Label:    "Previous",
				Style:    discordgo.SecondaryButton,
				CustomID: command.ButtonID(p.Token, command.ActionPrev),
				Disabled: !p.HasPrev(),
			},
			discordgo.Button{
				Label:    "Next",
				Style:    discordgo.SecondaryButton,
				CustomID: command.ButtonID(p.Token, command.ActionNext),
				Disabled: !p.HasNext(),
			},
		}},
	}
}
