package discord

import (
	"context"
	"errors"

	"github.com/iotku/subdonic/internal/command"
	"github.com/iotku/subdonic/internal/session"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"
)

func (b *Bot) onReady(_ context.Context, _ *discordgo.Session, r *discordgo.Ready) {
	b.parser.SetSelfID(r.User.ID)
	log.Info().
		Str("user", r.User.Username).
		Int("guilds", len(r.Guilds)).
		Msg("[Bot] ✅ Discord bot is running")
}

// onGuildCreate fires for every guild at startup and when the bot joins one.
func (b *Bot) onGuildCreate(_ context.Context, _ *discordgo.Session, g *discordgo.GuildCreate) {
	if g.Guild == nil || g.Unavailable {
		return
	}
	log.Info().Str("guild", g.ID).Str("name", g.Name).Msg("[Bot] Guild available")

	info := GuildInfo{ID: g.ID, Name: g.Name, MemberCount: g.MemberCount}
	err := b.jobs.Start("status:"+info.ID, func(ctx context.Context) error {
		return b.status.Report(ctx, info)
	})
	if err != nil {
		log.Debug().Err(err).Str("guild", info.ID).Msg("[Status] Report already in flight")
	}
}

func (b *Bot) onMessageCreate(ctx context.Context, _ *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot {
		return
	}
	b.dispatcher.Dispatch(ctx, toMessage(m.Message))
}

func toMessage(m *discordgo.Message) command.Message {
	msg := command.Message{
		ID:        m.ID,
		GuildID:   m.GuildID,
		ChannelID: m.ChannelID,
		Content:   m.Content,
	}
	if m.Author != nil {
		msg.AuthorID = m.Author.ID
		msg.AuthorName = m.Author.Username
	}
	for _, u := range m.Mentions {
		msg.MentionIDs = append(msg.MentionIDs, u.ID)
	}
	return msg
}

// onVoiceStateUpdate turns voice state changes into session events. State
// has already applied the update when this runs.
func (b *Bot) onVoiceStateUpdate(_ *discordgo.Session, v *discordgo.VoiceStateUpdate) {
	sess, ok := b.sessions.Get(v.GuildID)
	if !ok {
		return
	}

	if v.UserID == b.parser.SelfID() {
		if v.ChannelID == "" {
			log.Info().Str("guild", v.GuildID).Msg("[Voice] Bot left voice channel")
			sess.HandleEvent(session.Event{Kind: session.VoiceLeft})
		}
		return
	}

	conn, ok := sess.Connection()
	if !ok {
		return
	}
	channel := conn.ChannelID()
	if !touchesChannel(v, channel) {
		return
	}

	sess.HandleEvent(session.Event{
		Kind:      session.MembershipChanged,
		ChannelID: channel,
		Occupancy: b.Occupancy(v.GuildID, channel),
	})
}

// touchesChannel reports whether a member joined or left channelID.
func touchesChannel(v *discordgo.VoiceStateUpdate, channelID string) bool {
	if v.VoiceState != nil && v.ChannelID == channelID {
		return true
	}
	return v.BeforeUpdate != nil && v.BeforeUpdate.ChannelID == channelID
}

func (b *Bot) onInteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionMessageComponent {
		return
	}
	token, delta, ok := command.ParseButtonID(i.MessageComponentData().CustomID)
	if !ok {
		return
	}

	page, err := b.pager.Turn(token, interactionUserID(i), delta)
	switch {
	case errors.Is(err, command.ErrPagerNotOwner):
		err = respondEphemeral(s, i, "These controls belong to someone else.")
	case errors.Is(err, command.ErrPagerExpired):
		err = respondEphemeral(s, i, "These controls have expired.")
	default:
		err = s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseUpdateMessage,
			Data: &discordgo.InteractionResponseData{
				Embeds:     []*discordgo.MessageEmbed{pageEmbed(page)},
				Components: pageComponents(page),
			},
		})
	}
	if err != nil {
		log.Warn().Err(err).Str("guild", i.GuildID).Msg("[Pager] Failed to respond to interaction")
	}
}

func interactionUserID(i *discordgo.InteractionCreate) string {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User.ID
	}
	if i.User != nil {
		return i.User.ID
	}
	return ""
}

// respondEphemeral sends an ephemeral message response to an interaction.
func respondEphemeral(s *discordgo.Session, i *discordgo.InteractionCreate, content string) error {
	return s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
}
