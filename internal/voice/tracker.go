// Package voice disconnects idle voice sessions.
package voice

import (
	"sync"
	"time"

	"github.com/iotku/subdonic/internal/metrics"

	"github.com/rs/zerolog/log"
)

// DefaultGrace is how long the bot waits alone in a channel before leaving.
const DefaultGrace = 10 * time.Second

// Timer is the part of *time.Timer the tracker needs.
type Timer interface {
	Stop() bool
}

// AfterFunc schedules f after d.
type AfterFunc func(d time.Duration, f func()) Timer

func realAfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Config wires a Tracker to one voice connection.
type Config struct {
	Grace      time.Duration
	Occupancy  func() int // members in the bot's channel, the bot included
	Disconnect func()
	AfterFunc  AfterFunc // nil uses time.AfterFunc
}

// Tracker arms a grace timer when the bot is alone in its channel and
// disconnects if it is still alone when the timer fires. At most one timer
// is outstanding. Dispose is idempotent.
type Tracker struct {
	cfg Config

	mu       sync.Mutex
	timer    Timer
	gen      uint64
	disposed bool
}

func NewTracker(cfg Config) *Tracker {
	if cfg.Grace <= 0 {
		cfg.Grace = DefaultGrace
	}
	if cfg.AfterFunc == nil {
		cfg.AfterFunc = realAfterFunc
	}
	return &Tracker{cfg: cfg}
}

// Observe feeds the current occupancy of the tracked channel. Exactly one
// (the bot alone) arms the timer; more than one disarms it.
func (t *Tracker) Observe(occupancy int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.disposed {
		return
	}

	switch {
	case occupancy == 1:
		if t.timer != nil {
			return
		}
		t.gen++
		gen := t.gen
		t.timer = t.cfg.AfterFunc(t.cfg.Grace, func() { t.fire(gen) })
		log.Debug().Dur("grace", t.cfg.Grace).Msg("[Voice] Alone in channel, idle timer armed")
	case occupancy > 1:
		if t.timer != nil {
			t.stopLocked()
			log.Debug().Int("occupancy", occupancy).Msg("[Voice] Idle timer disarmed")
		}
	}
}

// Armed reports whether a grace timer is pending.
func (t *Tracker) Armed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.timer != nil
}

// Dispose cancels any pending timer and ignores further observations.
func (t *Tracker) Dispose() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.disposed {
		return
	}
	t.disposed = true
	t.stopLocked()
}

func (t *Tracker) stopLocked() {
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	t.gen++
}

func (t *Tracker) fire(gen uint64) {
	t.mu.Lock()
	if t.disposed || gen != t.gen {
		t.mu.Unlock()
		return
	}
	t.timer = nil
	t.mu.Unlock()

	// members may have joined between the last event and now
	if occ := t.cfg.Occupancy(); occ != 1 {
		log.Debug().Int("occupancy", occ).Msg("[Voice] Idle timer fired but channel is not idle")
		return
	}

	t.mu.Lock()
	if t.disposed || gen != t.gen {
		t.mu.Unlock()
		return
	}
	t.disposed = true
	t.mu.Unlock()

	log.Info().Msg("[Voice] Leaving idle voice channel")
	metrics.IdleDisconnects.Inc()
	t.cfg.Disconnect()
}
