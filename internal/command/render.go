package command

import (
	"fmt"
	"strconv"

	"github.com/iotku/subdonic/internal/catalog"
	"github.com/iotku/subdonic/internal/session"
)

// StatusReply renders a playback status update.
func StatusReply(st session.Status) Reply {
	switch st.Kind {
	case session.StatusAdded:
		return Reply{
			Title:       "Added to queue",
			Description: fmt.Sprintf("**%s**\nPosition: %d", describe(st.Track), st.Position),
		}
	default:
		desc := "**" + describe(st.Track) + "**"
		if st.Queued > 0 {
			desc += "\n" + plural(st.Queued, "track") + " in queue"
		}
		return Reply{Title: "Now Playing", Description: desc}
	}
}

func describe(t catalog.Track) string {
	s := t.String()
	if t.Album != "" {
		s += " (" + t.Album
		if t.Year != "" {
			s += ", " + t.Year
		}
		s += ")"
	}
	return s
}

// numbered renders tracks as "`n.` Artist - Title" lines starting at 1.
func numbered(tracks []catalog.Track) []string {
	lines := make([]string, len(tracks))
	for i, t := range tracks {
		lines[i] = "`" + strconv.Itoa(i+1) + ".` " + t.String()
	}
	return lines
}

func plural(n int, word string) string {
	if n == 1 {
		return "1 " + word
	}
	return strconv.Itoa(n) + " " + word + "s"
}
