package audio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/iotku/subdonic/internal/catalog"
	"github.com/iotku/subdonic/internal/music"

	"github.com/rs/zerolog/log"
)

// ErrVoiceLost means there was no voice connection to play into, or it went
// away mid-track.
var ErrVoiceLost = errors.New("voice connection lost")

const (
	MaxVolume = 150

	pausePoll = 20 * time.Millisecond
)

// Frames yields PCM frames. *Source satisfies it.
type Frames interface {
	ReadFrame(samples []int16) error
	Close() error
}

// FrameEncoder turns one PCM frame into one packet. *Encoder satisfies it.
type FrameEncoder interface {
	Encode(samples []int16) ([]byte, error)
}

// Sink receives encoded packets, typically a voice connection.
type Sink interface {
	Speaking(on bool) error
	Send(ctx context.Context, packet []byte) error
}

// PlayerConfig wires a Player to its surroundings. Open and NewEncoder
// default to ffmpeg and opus.
type PlayerConfig struct {
	GuildID    string
	StreamURL  func(catalog.Track) string
	Sink       func() (Sink, bool)
	Open       func(ctx context.Context, url string) (Frames, error)
	NewEncoder func() (FrameEncoder, error)
}

type playback struct {
	seq     uint64
	track   catalog.Track
	cancel  context.CancelFunc
	done    chan struct{}
	reason  music.EndReason
	stopped bool // reason was decided by the caller
}

// Player streams one catalog track at a time into a Sink.
type Player struct {
	cfg    PlayerConfig
	volume atomic.Int32

	mu        sync.Mutex
	seq       uint64
	cur       *playback
	paused    bool
	onStart   []func(music.TrackStart)
	listeners []func(music.TrackEnd)
}

var _ music.Player = (*Player)(nil)

func NewPlayer(cfg PlayerConfig) *Player {
	if cfg.Open == nil {
		cfg.Open = func(ctx context.Context, url string) (Frames, error) {
			return Open(ctx, url)
		}
	}
	if cfg.NewEncoder == nil {
		cfg.NewEncoder = func() (FrameEncoder, error) {
			return NewEncoder()
		}
	}
	p := &Player{cfg: cfg}
	p.volume.Store(100)
	return p
}

func (p *Player) OnTrackStart(fn func(music.TrackStart)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onStart = append(p.onStart, fn)
}

func (p *Player) OnTrackEnd(fn func(music.TrackEnd)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.listeners = append(p.listeners, fn)
}

// Start begins t without waiting for the previous track to wind down.
func (p *Player) Start(t catalog.Track, noInterrupt bool) (uint64, bool) {
	p.mu.Lock()
	if noInterrupt && p.cur != nil {
		p.mu.Unlock()
		return 0, false
	}

	prev := p.cur
	if prev != nil {
		p.halt(prev, music.EndReplaced)
	}

	ctx, cancel := context.WithCancel(context.Background())
	p.seq++
	pb := &playback{
		seq:    p.seq,
		track:  t,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	p.cur = pb
	p.paused = false
	p.mu.Unlock()

	go p.run(ctx, pb, prev)
	return pb.seq, true
}

// halt must be called with p.mu held.
func (p *Player) halt(pb *playback, reason music.EndReason) {
	pb.reason = reason
	pb.stopped = true
	pb.cancel()
	if p.cur == pb {
		p.cur = nil
		p.paused = false
	}
}

func (p *Player) Current() (catalog.Track, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cur == nil {
		return catalog.Track{}, false
	}
	return p.cur.track, true
}

func (p *Player) SetPaused(paused bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.paused = paused
}

func (p *Player) Paused() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.paused
}

// SetVolume clamps percent to 0..MaxVolume.
func (p *Player) SetVolume(percent int) {
	p.volume.Store(int32(min(max(percent, 0), MaxVolume)))
}

func (p *Player) Volume() int { return int(p.volume.Load()) }

func (p *Player) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cur != nil {
		p.halt(p.cur, music.EndStopped)
	}
}

func (p *Player) run(ctx context.Context, pb *playback, prev *playback) {
	if prev != nil {
		<-prev.done
	}

	err := p.stream(ctx, pb)

	p.mu.Lock()
	reason := pb.reason
	if !pb.stopped {
		switch {
		case errors.Is(err, ErrVoiceLost):
			reason = music.EndCleanup
		case err != nil:
			reason = music.EndLoadFailed
		default:
			reason = music.EndFinished
		}
	}
	if p.cur == pb {
		p.cur = nil
		p.paused = false
	}
	listeners := slices.Clone(p.listeners)
	p.mu.Unlock()

	pb.cancel()
	close(pb.done)

	end := music.TrackEnd{Seq: pb.seq, Track: pb.track, Reason: reason}
	if reason == music.EndLoadFailed {
		end.Err = err
	}
	log.Debug().
		Str("guild", p.cfg.GuildID).
		Str("track", pb.track.String()).
		Stringer("reason", reason).
		Err(err).
		Msg("[Player] Track ended")

	for _, fn := range listeners {
		fn(end)
	}
}

// started tells start listeners that pb has decoded its first frame.
func (p *Player) started(ctx context.Context, pb *playback) {
	p.mu.Lock()
	listeners := slices.Clone(p.onStart)
	p.mu.Unlock()
	if ctx.Err() != nil {
		return
	}

	log.Debug().Str("guild", p.cfg.GuildID).Str("track", pb.track.String()).Msg("[Player] Track started")
	st := music.TrackStart{Seq: pb.seq, Track: pb.track}
	for _, fn := range listeners {
		fn(st)
	}
}

func (p *Player) stream(ctx context.Context, pb *playback) error {
	t := pb.track
	sink, ok := p.cfg.Sink()
	if !ok {
		return ErrVoiceLost
	}

	src, err := p.cfg.Open(ctx, p.cfg.StreamURL(t))
	if err != nil {
		return fmt.Errorf("open stream: %w", err)
	}
	defer src.Close()

	enc, err := p.cfg.NewEncoder()
	if err != nil {
		return err
	}

	if err := sink.Speaking(true); err != nil {
		log.Warn().Err(err).Str("guild", p.cfg.GuildID).Msg("[Player] Failed to set speaking state")
	}
	defer sink.Speaking(false)

	samples := make([]int16, FrameSamples)
	frames := 0
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if p.Paused() {
			select {
			case <-ctx.Done():
			case <-time.After(pausePoll):
			}
			continue
		}

		if err := src.ReadFrame(samples); err != nil {
			if errors.Is(err, io.EOF) && frames > 0 {
				return nil
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return decodeError(src, err, frames)
		}
		if frames == 0 {
			p.started(ctx, pb)
		}

		Scale(samples, p.Volume())
		packet, err := enc.Encode(samples)
		if err != nil {
			return err
		}
		if err := sink.Send(ctx, packet); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("%w: %w", ErrVoiceLost, err)
		}
		frames++
	}
}

func decodeError(src Frames, err error, frames int) error {
	if frames == 0 && errors.Is(err, io.EOF) {
		err = errors.New("no audio decoded")
	}
	if s, ok := src.(interface{ Stderr() string }); ok {
		if msg := s.Stderr(); msg != "" {
			return fmt.Errorf("decode after %d frames: %w: %s", frames, err, msg)
		}
	}
	return fmt.Errorf("decode after %d frames: %w", frames, err)
}
