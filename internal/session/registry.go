package session

import (
	"sort"
	"sync"
	"time"

	"github.com/iotku/subdonic/internal/metrics"
	"github.com/iotku/subdonic/internal/music"
	"github.com/iotku/subdonic/internal/voice"

	"github.com/rs/zerolog/log"
)

// Options configure every session a registry creates.
type Options struct {
	NewPlayer     func(guildID string) music.Player
	Notifier      Notifier
	IdleGrace     time.Duration
	AfterFunc     voice.AfterFunc // nil uses real timers
	DefaultVolume int
}

// Registry owns the guild -> session map. Sessions live for the process
// lifetime.
type Registry struct {
	opts Options

	mu       sync.Mutex
	sessions map[string]*Session
}

func NewRegistry(opts Options) *Registry {
	if opts.IdleGrace <= 0 {
		opts.IdleGrace = voice.DefaultGrace
	}
	return &Registry{
		opts:     opts,
		sessions: make(map[string]*Session),
	}
}

// SessionFor returns the session of guildID, creating it on first use.
// Concurrent first calls for one guild all get the same instance.
func (r *Registry) SessionFor(guildID string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.sessions[guildID]; ok {
		return s
	}

	s := newSession(guildID, r.opts.NewPlayer(guildID), r.opts)
	r.sessions[guildID] = s
	metrics.Sessions.Set(float64(len(r.sessions)))
	log.Debug().Str("guild", guildID).Msg("[Registry] Created session")
	return s
}

// Get returns an existing session without creating one.
func (r *Registry) Get(guildID string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[guildID]
	return s, ok
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Each calls fn for every session in guild id order. fn runs without the
// registry lock held.
func (r *Registry) Each(fn func(*Session)) {
	r.mu.Lock()
	list := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		list = append(list, s)
	}
	r.mu.Unlock()

	sort.Slice(list, func(i, j int) bool { return list[i].GuildID < list[j].GuildID })
	for _, s := range list {
		fn(s)
	}
}
