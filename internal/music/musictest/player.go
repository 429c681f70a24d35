// Package musictest provides an in-memory music.Player for tests.
package musictest

import (
	"sync"

	"github.com/iotku/subdonic/internal/catalog"
	"github.com/iotku/subdonic/internal/music"
)

// Player records every call and only emits track starts and ends when told
// to.
type Player struct {
	mu       sync.Mutex
	seq      uint64
	current  *catalog.Track
	paused   bool
	volume   int
	onStart  func(music.TrackStart)
	listener func(music.TrackEnd)

	Started []catalog.Track
	Stops   int
}

func NewPlayer() *Player {
	return &Player{volume: 100}
}

func (p *Player) Start(t catalog.Track, noInterrupt bool) (uint64, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if noInterrupt && p.current != nil {
		return 0, false
	}
	p.seq++
	p.current = &t
	p.paused = false
	p.Started = append(p.Started, t)
	return p.seq, true
}

func (p *Player) Current() (catalog.Track, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == nil {
		return catalog.Track{}, false
	}
	return *p.current, true
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

func (p *Player) SetVolume(percent int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.volume = percent
}

func (p *Player) Volume() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.volume
}

func (p *Player) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Stops++
	p.current = nil
	p.paused = false
}

func (p *Player) OnTrackStart(fn func(music.TrackStart)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onStart = fn
}

func (p *Player) OnTrackEnd(fn func(music.TrackEnd)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.listener = fn
}

// Seq returns the sequence of the latest start.
func (p *Player) Seq() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.seq
}

// StartedTitles returns the titles of every started track in order.
func (p *Player) StartedTitles() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.Started))
	for i, t := range p.Started {
		out[i] = t.Title
	}
	return out
}

// Load reports the current track as loaded to the start listener.
func (p *Player) Load() {
	p.mu.Lock()
	if p.current == nil {
		p.mu.Unlock()
		return
	}
	ev := music.TrackStart{Seq: p.seq, Track: *p.current}
	fn := p.onStart
	p.mu.Unlock()

	if fn != nil {
		fn(ev)
	}
}

// Finish ends the current track naturally and notifies the listener.
func (p *Player) Finish() { p.end(music.EndFinished, nil) }

// Fail ends the current track with a load failure.
func (p *Player) Fail(err error) { p.end(music.EndLoadFailed, err) }

// Complete ends the current track naturally and returns the event without
// delivering it.
func (p *Player) Complete() (music.TrackEnd, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.completeLocked(music.EndFinished, nil)
}

func (p *Player) completeLocked(reason music.EndReason, err error) (music.TrackEnd, bool) {
	if p.current == nil {
		return music.TrackEnd{}, false
	}
	ev := music.TrackEnd{Seq: p.seq, Track: *p.current, Reason: reason, Err: err}
	p.current = nil
	p.paused = false
	return ev, true
}

func (p *Player) end(reason music.EndReason, err error) {
	p.mu.Lock()
	ev, ok := p.completeLocked(reason, err)
	fn := p.listener
	p.mu.Unlock()

	if ok && fn != nil {
		fn(ev)
	}
}
