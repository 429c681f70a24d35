package command

import (
	"context"
	"errors"

	"github.com/iotku/subdonic/internal/catalog"
	"github.com/iotku/subdonic/internal/session"
)

var (
	ErrNotInVoice       = errors.New("member is not in a voice channel")
	ErrDifferentChannel = errors.New("member is in a different voice channel")
)

// Reply is an outbound message. Title or Description render as an embed.
type Reply struct {
	Content     string
	Title       string
	Description string
}

func Text(s string) Reply { return Reply{Content: s} }

// Platform is what handlers need from the chat service.
type Platform interface {
	Send(ctx context.Context, channelID string, r Reply) error
	SendPage(ctx context.Context, channelID string, p Page) error
	UserVoiceChannel(guildID, userID string) (string, bool)
	BotVoiceChannel(guildID string) (string, bool)
	JoinVoice(ctx context.Context, guildID, channelID string) (session.Conn, error)
	// Occupancy counts members in a voice channel, the bot included.
	Occupancy(guildID, channelID string) int
}

// Catalog is the part of the catalog client handlers use.
type Catalog interface {
	Search(ctx context.Context, query string) []catalog.Track
	Random(ctx context.Context, count int) []catalog.Track
}
