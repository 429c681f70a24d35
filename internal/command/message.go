package command

import (
	"errors"
	"slices"
	"strings"
	"sync/atomic"
	"unicode/utf8"
)

const maxPrefixLength = 8

var ErrInvalidPrefix = errors.New("prefix must be 1-8 characters without spaces")

// ValidatePrefix rejects prefixes that could never match a message.
func ValidatePrefix(p string) error {
	if p == "" || utf8.RuneCountInString(p) > maxPrefixLength || strings.ContainsAny(p, " \t\n") {
		return ErrInvalidPrefix
	}
	return nil
}

// Message is an inbound chat message, independent of the chat platform.
type Message struct {
	ID         string
	GuildID    string // empty for direct messages
	ChannelID  string
	AuthorID   string
	AuthorName string
	Content    string
	MentionIDs []string
}

// Parser recognizes commands by guild prefix or by a mention of the bot.
type Parser struct {
	prefixes Prefixes
	selfID   atomic.Value // string
}

func NewParser(prefixes Prefixes) *Parser {
	p := &Parser{prefixes: prefixes}
	p.selfID.Store("")
	return p
}

// SetSelfID records the bot's own user id once the gateway is ready.
func (p *Parser) SetSelfID(id string) { p.selfID.Store(id) }

func (p *Parser) SelfID() string { return p.selfID.Load().(string) }

func (p *Parser) Prefix(guildID string) string { return p.prefixes.Get(guildID) }

// IsCommand reports whether msg starts with the guild prefix or mentions
// the bot.
func (p *Parser) IsCommand(msg Message) bool {
	return strings.HasPrefix(msg.Content, p.Prefix(msg.GuildID)) || p.mentionsSelf(msg)
}

func (p *Parser) mentionsSelf(msg Message) bool {
	self := p.SelfID()
	if self == "" {
		return false
	}
	if slices.Contains(msg.MentionIDs, self) {
		return true
	}
	return strings.Contains(msg.Content, "<@"+self+">") || strings.Contains(msg.Content, "<@!"+self+">")
}

// Strip removes the prefix, or else the first mention of the bot, and trims
// the rest. Content that matches neither is returned unchanged.
func (p *Parser) Strip(msg Message) string {
	content := msg.Content
	if prefix := p.Prefix(msg.GuildID); strings.HasPrefix(content, prefix) {
		return strings.TrimSpace(content[len(prefix):])
	}

	self := p.SelfID()
	if self == "" || !p.mentionsSelf(msg) {
		return content
	}

	at := -1
	var form string
	for _, m := range []string{"<@" + self + ">", "<@!" + self + ">"} {
		if i := strings.Index(content, m); i >= 0 && (at < 0 || i < at) {
			at, form = i, m
		}
	}
	if at < 0 {
		return strings.TrimSpace(content)
	}
	return strings.TrimSpace(content[:at] + content[at+len(form):])
}

// Tokenize splits on runs of whitespace. Quotes have no special meaning.
func Tokenize(s string) []string {
	return strings.Fields(s)
}
