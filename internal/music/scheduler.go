package music

import (
	"sync"

	"github.com/iotku/subdonic/internal/catalog"
	"github.com/iotku/subdonic/internal/metrics"

	"github.com/rs/zerolog/log"
)

// State of a scheduler's player.
type State int

const (
	Idle State = iota
	Playing
	Paused
)

func (s State) String() string {
	switch s {
	case Playing:
		return "playing"
	case Paused:
		return "paused"
	default:
		return "idle"
	}
}

// Hooks receive scheduler notifications. They run after the scheduler lock
// is released and may call back into the scheduler.
type Hooks struct {
	// OnTrackStart fires when the player reports a started track as loaded.
	// queued is the number of tracks still waiting at that moment.
	OnTrackStart func(t catalog.Track, queued int)
	// OnTrackAdd fires when a track is appended behind a playing one.
	// position is 1-based.
	OnTrackAdd func(t catalog.Track, position int)
}

// Scheduler owns the pending queue of one guild and advances its player.
// All queue mutation is serialized by one mutex per scheduler.
type Scheduler struct {
	mu     sync.Mutex
	player Player
	queue  []catalog.Track
	seq    uint64 // sequence of the start this scheduler last made
	active bool   // the start at seq has not ended yet
	hooks  Hooks
}

func NewScheduler(p Player, hooks Hooks) *Scheduler {
	return &Scheduler{player: p, hooks: hooks}
}

type notification func()

func (s *Scheduler) fire(notes []notification) {
	for _, n := range notes {
		n()
	}
}

// EnqueueOrPlay starts t if nothing is playing, otherwise appends it to the
// queue. A track counts as playing until its end has been handled here, so
// t never overtakes the queue while an end is still in flight. It reports
// whether t started immediately.
func (s *Scheduler) EnqueueOrPlay(t catalog.Track) bool {
	s.mu.Lock()
	var notes []notification

	started := false
	if !s.active {
		if seq, ok := s.player.Start(t, true); ok {
			s.startedLocked(seq)
			started = true
		}
	}
	if !started {
		s.queue = append(s.queue, t)
		pos := len(s.queue)
		if s.hooks.OnTrackAdd != nil {
			notes = append(notes, func() { s.hooks.OnTrackAdd(t, pos) })
		}
	}
	s.mu.Unlock()

	s.fire(notes)
	return started
}

// Advance starts the head of the queue, interrupting the current track.
// With an empty queue the player is stopped and Advance returns false.
func (s *Scheduler) Advance() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.advanceLocked()
}

// AdvanceBy discards n-1 queued tracks and starts the nth. An n outside
// [1, Len()] changes nothing and returns false.
func (s *Scheduler) AdvanceBy(n int) bool {
	s.mu.Lock()
	if n < 1 || n > len(s.queue) {
		s.mu.Unlock()
		return false
	}
	s.queue = s.queue[n-1:]
	ok := s.advanceLocked()
	s.mu.Unlock()
	return ok
}

func (s *Scheduler) advanceLocked() bool {
	if len(s.queue) == 0 {
		s.active = false
		s.player.Stop()
		return false
	}

	next := s.queue[0]
	s.queue[0] = catalog.Track{}
	s.queue = s.queue[1:]

	seq, ok := s.player.Start(next, false)
	if !ok {
		s.active = false
		log.Warn().Str("track", next.String()).Msg("[Scheduler] Player refused track")
		return false
	}
	s.startedLocked(seq)
	return true
}

func (s *Scheduler) startedLocked(seq uint64) {
	s.seq = seq
	s.active = true
}

// OnTrackStarted fires OnTrackStart for the track this scheduler started
// last. Starts of older tracks are ignored.
func (s *Scheduler) OnTrackStarted(st TrackStart) bool {
	s.mu.Lock()
	if !s.active || st.Seq != s.seq {
		s.mu.Unlock()
		log.Debug().Uint64("seq", st.Seq).Msg("[Scheduler] Ignoring stale track start")
		return false
	}
	queued := len(s.queue)
	s.mu.Unlock()

	metrics.TracksStarted.Inc()
	if s.hooks.OnTrackStart != nil {
		s.hooks.OnTrackStart(st.Track, queued)
	}
	return true
}

// OnTrackEnd advances after a natural finish or a load failure of the track
// this scheduler started last. Ends of older starts are ignored.
func (s *Scheduler) OnTrackEnd(end TrackEnd) bool {
	s.mu.Lock()
	if !s.active || end.Seq != s.seq {
		s.mu.Unlock()
		log.Debug().
			Uint64("seq", end.Seq).
			Str("reason", end.Reason.String()).
			Msg("[Scheduler] Ignoring stale track end")
		return false
	}
	if end.Reason == EndLoadFailed {
		log.Error().Err(end.Err).Str("track", end.Track.String()).Msg("[Scheduler] Loading track failed")
	}
	s.active = false
	if !end.Reason.MayStartNext() {
		s.mu.Unlock()
		return false
	}

	ok := s.advanceLocked()
	s.mu.Unlock()
	return ok
}

func (s *Scheduler) Pause() { s.player.SetPaused(true) }

func (s *Scheduler) Resume() { s.player.SetPaused(false) }

// TogglePause flips the paused flag of a loaded track and returns the new
// state. Without a loaded track it does nothing and returns Idle.
func (s *Scheduler) TogglePause() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.player.Current(); !ok {
		return Idle
	}
	paused := !s.player.Paused()
	s.player.SetPaused(paused)
	if paused {
		return Paused
	}
	return Playing
}

// Stop halts the current track and keeps the queue.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = false
	s.player.Stop()
}

// Clear drops every queued track.
func (s *Scheduler) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queue = nil
}

// Queue returns a copy of the pending tracks.
func (s *Scheduler) Queue() []catalog.Track {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]catalog.Track, len(s.queue))
	copy(out, s.queue)
	return out
}

func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

func (s *Scheduler) NowPlaying() (catalog.Track, bool) {
	return s.player.Current()
}

func (s *Scheduler) State() State {
	if _, ok := s.player.Current(); !ok {
		return Idle
	}
	if s.player.Paused() {
		return Paused
	}
	return Playing
}

func (s *Scheduler) Player() Player { return s.player }
