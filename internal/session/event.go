package session

import (
	"github.com/iotku/subdonic/internal/catalog"
	"github.com/iotku/subdonic/internal/music"
)

// EventKind enumerates everything a session reacts to.
type EventKind int

const (
	TrackStarted EventKind = iota
	TrackFinished
	TrackFailed
	TrackReplaced
	TrackStopped
	MembershipChanged
	VoiceLeft
)

func (k EventKind) String() string {
	switch k {
	case TrackStarted:
		return "track_started"
	case TrackFinished:
		return "track_finished"
	case TrackFailed:
		return "track_failed"
	case TrackReplaced:
		return "track_replaced"
	case TrackStopped:
		return "track_stopped"
	case MembershipChanged:
		return "membership_changed"
	case VoiceLeft:
		return "voice_left"
	default:
		return "unknown"
	}
}

// Event is the single input type of Session.HandleEvent.
type Event struct {
	Kind EventKind

	// track events
	Seq    uint64
	Track  catalog.Track
	Reason music.EndReason
	Err    error

	// voice events
	ChannelID string
	Occupancy int
}

// EventFromTrackStart converts a loaded-track notification into a session
// event.
func EventFromTrackStart(st music.TrackStart) Event {
	return Event{Kind: TrackStarted, Seq: st.Seq, Track: st.Track}
}

// EventFromTrackEnd converts a player notification into a session event.
func EventFromTrackEnd(end music.TrackEnd) Event {
	ev := Event{Seq: end.Seq, Track: end.Track, Reason: end.Reason, Err: end.Err}
	switch end.Reason {
	case music.EndFinished:
		ev.Kind = TrackFinished
	case music.EndLoadFailed:
		ev.Kind = TrackFailed
	case music.EndReplaced:
		ev.Kind = TrackReplaced
	default:
		ev.Kind = TrackStopped
	}
	return ev
}

func (e Event) trackEnd() music.TrackEnd {
	return music.TrackEnd{Seq: e.Seq, Track: e.Track, Reason: e.Reason, Err: e.Err}
}
