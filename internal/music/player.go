// Package music schedules catalog tracks onto an audio player.
package music

import "github.com/iotku/subdonic/internal/catalog"

// EndReason says why a player stopped playing a track.
type EndReason int

const (
	EndFinished   EndReason = iota // played to the end
	EndLoadFailed                  // stream could not be opened or decoded
	EndStopped                     // Stop was called
	EndReplaced                    // another track was started over it
	EndCleanup                     // the player was torn down
)

// MayStartNext reports whether the next queued track should start.
func (r EndReason) MayStartNext() bool {
	return r == EndFinished || r == EndLoadFailed
}

func (r EndReason) String() string {
	switch r {
	case EndFinished:
		return "finished"
	case EndLoadFailed:
		return "load_failed"
	case EndStopped:
		return "stopped"
	case EndReplaced:
		return "replaced"
	case EndCleanup:
		return "cleanup"
	default:
		return "unknown"
	}
}

// TrackEnd is emitted once per started track.
type TrackEnd struct {
	Seq    uint64 // value returned by the Start call that began the track
	Track  catalog.Track
	Reason EndReason
	Err    error // set for EndLoadFailed
}

// TrackStart is emitted once a started track has loaded and its first audio
// is decoded. A track that fails to load emits no TrackStart.
type TrackStart struct {
	Seq   uint64
	Track catalog.Track
}

// Player plays one track at a time.
//
// Implementations must clear their current track before emitting the
// matching TrackEnd, must not emit while holding internal locks, and must
// not block Start on a listener. Start must not emit synchronously.
type Player interface {
	// Start begins t. With noInterrupt set, Start fails if a track is
	// already loaded. The returned sequence identifies this start.
	Start(t catalog.Track, noInterrupt bool) (seq uint64, ok bool)
	Current() (catalog.Track, bool)
	SetPaused(paused bool)
	Paused() bool
	SetVolume(percent int)
	Volume() int
	Stop()
	OnTrackStart(fn func(TrackStart))
	OnTrackEnd(fn func(TrackEnd))
}
