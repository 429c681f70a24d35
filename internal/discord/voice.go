package discord

import (
	"context"
	"fmt"
	"time"

	"github.com/iotku/subdonic/internal/audio"

	"github.com/bwmarrin/discordgo"
)

// sendTimeout bounds how long a frame may wait for the voice connection.
const sendTimeout = 5 * time.Second

type voiceConn struct {
	vc *discordgo.VoiceConnection
}

func (c *voiceConn) ChannelID() string {
	c.vc.RLock()
	defer c.vc.RUnlock()
	return c.vc.ChannelID
}

func (c *voiceConn) Disconnect(_ context.Context) error {
	if err := c.vc.Disconnect(); err != nil {
		return fmt.Errorf("voice disconnect: %w", err)
	}
	return nil
}

type voiceSink struct {
	vc *discordgo.VoiceConnection
}

func (s voiceSink) Speaking(on bool) error { return s.vc.Speaking(on) }

func (s voiceSink) Send(ctx context.Context, packet []byte) error {
	timer := time.NewTimer(sendTimeout)
	defer timer.Stop()

	select {
	case s.vc.OpusSend <- packet:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return fmt.Errorf("voice send stalled for %s", sendTimeout)
	}
}

func (b *Bot) voiceConnection(guildID string) (*discordgo.VoiceConnection, bool) {
	b.dg.RLock()
	defer b.dg.RUnlock()
	vc, ok := b.dg.VoiceConnections[guildID]
	return vc, ok && vc != nil
}

func (b *Bot) sinkFor(guildID string) (audio.Sink, bool) {
	vc, ok := b.voiceConnection(guildID)
	if !ok {
		return nil, false
	}
	return voiceSink{vc: vc}, true
}
