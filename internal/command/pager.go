package command

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	PageSize = 5
	PagerTTL = 15 * time.Minute

	buttonPrefix = "pager"
	ActionPrev   = "prev"
	ActionNext   = "next"
)

var (
	ErrPagerExpired  = errors.New("these controls have expired")
	ErrPagerNotOwner = errors.New("these controls belong to someone else")
)

// Page is one rendered page of a paginated message.
type Page struct {
	Token string
	Title string
	Lines []string
	Index int // 0-based
	Count int
}

func (p Page) HasPrev() bool { return p.Index > 0 }
func (p Page) HasNext() bool { return p.Index < p.Count-1 }

// Body joins the page lines.
func (p Page) Body() string { return strings.Join(p.Lines, "\n") }

// ButtonID builds the custom id of a pager button.
func ButtonID(token, action string) string {
	return buttonPrefix + ":" + action + ":" + token
}

// ParseButtonID returns the token and page delta encoded in a button id.
func ParseButtonID(id string) (token string, delta int, ok bool) {
	parts := strings.SplitN(id, ":", 3)
	if len(parts) != 3 || parts[0] != buttonPrefix || parts[2] == "" {
		return "", 0, false
	}
	switch parts[1] {
	case ActionPrev:
		return parts[2], -1, true
	case ActionNext:
		return parts[2], 1, true
	}
	return "", 0, false
}

type pagerEntry struct {
	owner   string
	title   string
	lines   []string
	page    int
	created time.Time
}

func (e *pagerEntry) count() int {
	return max(1, (len(e.lines)+PageSize-1)/PageSize)
}

func (e *pagerEntry) render(token string) Page {
	from := e.page * PageSize
	to := min(from+PageSize, len(e.lines))
	return Page{
		Token: token,
		Title: e.title,
		Lines: append([]string(nil), e.lines[from:to]...),
		Index: e.page,
		Count: e.count(),
	}
}

// Pager keeps the state of paginated messages so that only the invoking
// user can turn their pages.
type Pager struct {
	mu      sync.Mutex
	entries map[string]*pagerEntry
	ttl     time.Duration
	now     func() time.Time
}

func NewPager() *Pager {
	return &Pager{
		entries: make(map[string]*pagerEntry),
		ttl:     PagerTTL,
		now:     time.Now,
	}
}

// Open registers lines for owner and returns the first page.
func (p *Pager) Open(owner, title string, lines []string) Page {
	token := uuid.NewString()
	e := &pagerEntry{
		owner:   owner,
		title:   title,
		lines:   append([]string(nil), lines...),
		created: p.now(),
	}

	p.mu.Lock()
	p.entries[token] = e
	p.mu.Unlock()

	return e.render(token)
}

// Turn moves the pager by delta pages on behalf of userID. The page index is
// clamped to the available range.
func (p *Pager) Turn(token, userID string, delta int) (Page, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	e, ok := p.entries[token]
	if !ok || p.now().Sub(e.created) > p.ttl {
		delete(p.entries, token)
		return Page{}, ErrPagerExpired
	}
	if e.owner != userID {
		return Page{}, ErrPagerNotOwner
	}

	e.page = min(max(e.page+delta, 0), e.count()-1)
	return e.render(token), nil
}

// Prune drops expired pagers and returns how many were removed.
func (p *Pager) Prune() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	removed := 0
	for token, e := range p.entries {
		if now.Sub(e.created) > p.ttl {
			delete(p.entries, token)
			removed++
		}
	}
	return removed
}

func (p *Pager) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.entries)
}

// Run prunes expired pagers every minute until ctx is done.
func (p *Pager) Run(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := p.Prune(); n > 0 {
				log.Debug().Int("removed", n).Msg("[Pager] Pruned expired pagers")
			}
		}
	}
}
