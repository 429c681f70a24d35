package discord

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/iotku/subdonic/pkg/retrylimit"

	"github.com/rs/zerolog/log"
)

// GuildInfo is what the status API records about a guild.
type GuildInfo struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	MemberCount int    `json:"memberCount"`
}

// StatusReporter announces guilds to the status API.
type StatusReporter struct {
	base   string
	http   *http.Client
	policy retrylimit.Policy
}

// NewStatusReporter returns nil for an empty base URL; a nil reporter
// reports nothing.
func NewStatusReporter(base string, hc *http.Client) *StatusReporter {
	if base == "" {
		return nil
	}
	if hc == nil {
		hc = &http.Client{Timeout: 10 * time.Second}
	}
	return &StatusReporter{
		base: strings.TrimRight(base, "/"),
		http: hc,
		policy: retrylimit.Policy{
			MaxAttempts: 3,
			Delay:       time.Second,
			Jitter:      true,
		},
	}
}

// Report adds g to the status API's guild set. Client errors are not retried.
func (r *StatusReporter) Report(ctx context.Context, g GuildInfo) error {
	if r == nil {
		return nil
	}
	body, err := json.Marshal(g)
	if err != nil {
		return fmt.Errorf("marshal guild: %w", err)
	}

	return retrylimit.Do(ctx, r.policy, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPut, r.base+"/guild/add", bytes.NewReader(body))
		if err != nil {
			return &retrylimit.FatalError{Err: err}
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := r.http.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		_, _ = io.Copy(io.Discard, resp.Body)

		switch {
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			log.Debug().Str("guild", g.ID).Msg("[Status] Reported guild")
			return nil
		case resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests:
			return &retrylimit.FatalError{Err: fmt.Errorf("status api: %s", resp.Status)}
		default:
			return fmt.Errorf("status api: %s", resp.Status)
		}
	})
}
