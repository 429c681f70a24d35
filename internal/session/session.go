// Package session keeps one playback session per guild.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/iotku/subdonic/internal/catalog"
	"github.com/iotku/subdonic/internal/music"
	"github.com/iotku/subdonic/internal/voice"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var ErrNoConnection = errors.New("not connected to a voice channel")

// Conn is an active voice connection.
type Conn interface {
	ChannelID() string
	Disconnect(ctx context.Context) error
}

// StatusKind identifies a status message.
type StatusKind int

const (
	StatusNowPlaying StatusKind = iota
	StatusAdded
)

// Status is a playback update routed to the session's status channel.
type Status struct {
	Kind     StatusKind
	Track    catalog.Track
	Queued   int // tracks waiting after a start
	Position int // 1-based queue position of an added track
}

// Notifier delivers status messages. An empty channelID asks the notifier
// to pick a fallback channel of the guild. Notify runs on the playback
// goroutine and must not block on delivery.
type Notifier interface {
	Notify(guildID, channelID string, st Status)
}

// Session is the per-guild bundle of player, queue, voice connection and
// routing state.
type Session struct {
	GuildID string

	player   music.Player
	sched    *music.Scheduler
	notifier Notifier
	grace    time.Duration
	after    voice.AfterFunc
	logger   zerolog.Logger

	mu            sync.Mutex
	conn          Conn
	tracker       *voice.Tracker
	lastText      string
	preferredText string
	results       []catalog.Track
}

func newSession(guildID string, p music.Player, opts Options) *Session {
	s := &Session{
		GuildID:  guildID,
		player:   p,
		notifier: opts.Notifier,
		grace:    opts.IdleGrace,
		after:    opts.AfterFunc,
		logger:   log.With().Str("guild", guildID).Logger(),
	}
	s.sched = music.NewScheduler(p, music.Hooks{
		OnTrackStart: func(t catalog.Track, queued int) {
			s.notify(Status{Kind: StatusNowPlaying, Track: t, Queued: queued})
		},
		OnTrackAdd: func(t catalog.Track, pos int) {
			s.notify(Status{Kind: StatusAdded, Track: t, Position: pos})
		},
	})
	if opts.DefaultVolume > 0 {
		p.SetVolume(opts.DefaultVolume)
	}
	p.OnTrackStart(func(st music.TrackStart) {
		s.HandleEvent(EventFromTrackStart(st))
	})
	p.OnTrackEnd(func(end music.TrackEnd) {
		s.HandleEvent(EventFromTrackEnd(end))
	})
	return s
}

func (s *Session) Scheduler() *music.Scheduler { return s.sched }

func (s *Session) Player() music.Player { return s.player }

// HandleEvent is the single entry point for player and voice events.
func (s *Session) HandleEvent(ev Event) {
	switch ev.Kind {
	case TrackStarted:
		s.sched.OnTrackStarted(music.TrackStart{Seq: ev.Seq, Track: ev.Track})

	case TrackFinished, TrackFailed, TrackReplaced, TrackStopped:
		s.sched.OnTrackEnd(ev.trackEnd())

	case MembershipChanged:
		s.mu.Lock()
		conn, tracker := s.conn, s.tracker
		s.mu.Unlock()
		if conn == nil || tracker == nil {
			return
		}
		if ev.ChannelID != "" && ev.ChannelID != conn.ChannelID() {
			return
		}
		tracker.Observe(ev.Occupancy)

	case VoiceLeft:
		if s.Detach() {
			s.logger.Info().Msg("[Session] Bot left voice channel")
		}

	default:
		s.logger.Warn().Int("kind", int(ev.Kind)).Msg("[Session] Unknown event")
	}
}

func (s *Session) notify(st Status) {
	if s.notifier == nil {
		return
	}
	s.notifier.Notify(s.GuildID, s.StatusChannel(), st)
}

// SetPreferredTextChannel pins status messages to channelID. An empty id
// clears the preference.
func (s *Session) SetPreferredTextChannel(channelID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.preferredText = channelID
}

// TouchTextChannel records the channel of the latest command.
func (s *Session) TouchTextChannel(channelID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastText = channelID
}

// StatusChannel returns the preferred channel, else the last used one, else "".
func (s *Session) StatusChannel() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.preferredText != "" {
		return s.preferredText
	}
	return s.lastText
}

// SetResults replaces the numbered result set. Indices run 1..len(tracks).
func (s *Session) SetResults(tracks []catalog.Track) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = nil
	s.results = append(s.results, tracks...)
}

// Result resolves a 1-based index of the latest result set.
func (s *Session) Result(i int) (catalog.Track, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i < 1 || i > len(s.results) {
		return catalog.Track{}, false
	}
	return s.results[i-1], true
}

func (s *Session) Results() []catalog.Track {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]catalog.Track, len(s.results))
	copy(out, s.results)
	return out
}

// Attach binds a fresh voice connection and starts idle tracking for it.
// occupancy counts members in the connection's channel, the bot included.
func (s *Session) Attach(conn Conn, occupancy func() int) {
	tracker := voice.NewTracker(voice.Config{
		Grace:     s.grace,
		Occupancy: occupancy,
		AfterFunc: s.after,
		Disconnect: func() {
			if err := s.Disconnect(context.Background()); err != nil && !errors.Is(err, ErrNoConnection) {
				s.logger.Warn().Err(err).Msg("[Session] Idle disconnect failed")
			}
		},
	})

	s.mu.Lock()
	prev := s.tracker
	s.conn = conn
	s.tracker = tracker
	s.mu.Unlock()

	if prev != nil {
		prev.Dispose()
	}
	tracker.Observe(occupancy())
	s.logger.Info().Str("channel", conn.ChannelID()).Msg("[Session] Voice attached")
}

// Detach forgets the voice connection without closing it and stops
// playback. The queue is kept. It reports whether a connection was attached.
func (s *Session) Detach() bool {
	return s.release() != nil
}

// Disconnect closes the voice connection and stops playback.
func (s *Session) Disconnect(ctx context.Context) error {
	conn := s.release()
	if conn == nil {
		return ErrNoConnection
	}
	return conn.Disconnect(ctx)
}

func (s *Session) release() Conn {
	s.mu.Lock()
	conn, tracker := s.conn, s.tracker
	s.conn, s.tracker = nil, nil
	s.mu.Unlock()

	if tracker != nil {
		tracker.Dispose()
	}
	if conn != nil {
		s.sched.Stop()
	}
	return conn
}

// Connection returns the attached voice connection, if any.
func (s *Session) Connection() (Conn, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn, s.conn != nil
}

func (s *Session) Connected() bool {
	_, ok := s.Connection()
	return ok
}

// IdleArmed reports whether the idle grace timer is pending.
func (s *Session) IdleArmed() bool {
	s.mu.Lock()
	tracker := s.tracker
	s.mu.Unlock()
	return tracker != nil && tracker.Armed()
}
