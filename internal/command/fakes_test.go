package command

import (
	"context"
	"fmt"
	"sync"

	"github.com/iotku/subdonic/internal/catalog"
	"github.com/iotku/subdonic/internal/session"
)

type sentReply struct {
	channel string
	reply   Reply
}

type fakeConn struct {
	channel string
}

func (c *fakeConn) ChannelID() string                { return c.channel }
func (c *fakeConn) Disconnect(context.Context) error { return nil }

type fakePlatform struct {
	mu        sync.Mutex
	sent      []sentReply
	pages     []Page
	userVoice map[string]string
	botVoice  string
	joins     []string
	occupancy int
}

func newFakePlatform() *fakePlatform {
	return &fakePlatform{userVoice: map[string]string{}, occupancy: 2}
}

func (p *fakePlatform) Send(_ context.Context, channelID string, r Reply) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sent = append(p.sent, sentReply{channelID, r})
	return nil
}

func (p *fakePlatform) SendPage(_ context.Context, _ string, page Page) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pages = append(p.pages, page)
	return nil
}

func (p *fakePlatform) UserVoiceChannel(_, userID string) (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	ch, ok := p.userVoice[userID]
	return ch, ok
}

func (p *fakePlatform) BotVoiceChannel(string) (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.botVoice, p.botVoice != ""
}

func (p *fakePlatform) JoinVoice(_ context.Context, _, channelID string) (session.Conn, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.joins = append(p.joins, channelID)
	p.botVoice = channelID
	return &fakeConn{channel: channelID}, nil
}

func (p *fakePlatform) Occupancy(string, string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.occupancy
}

func (p *fakePlatform) texts() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []string
	for _, s := range p.sent {
		if s.reply.Content != "" {
			out = append(out, s.reply.Content)
		} else {
			out = append(out, s.reply.Title)
		}
	}
	return out
}

type fakeCatalog struct {
	mu       sync.Mutex
	results  []catalog.Track
	queries  []string
	randomNs []int
}

func (c *fakeCatalog) Search(_ context.Context, q string) []catalog.Track {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.queries = append(c.queries, q)
	return append([]catalog.Track(nil), c.results...)
}

func (c *fakeCatalog) Random(_ context.Context, n int) []catalog.Track {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.randomNs = append(c.randomNs, n)
	out := make([]catalog.Track, n)
	for i := range out {
		out[i] = catalog.Track{Title: fmt.Sprintf("random %d", i+1), ID: fmt.Sprint(i)}
	}
	return out
}
