package audio

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"sync"
)

// Binary is the ffmpeg executable used by Open.
var Binary = "ffmpeg"

// Source is a running ffmpeg process decoding one URL to PCM.
type Source struct {
	*PCMReader

	cmd    *exec.Cmd
	stderr *limitedBuffer
	once   sync.Once
}

// Open starts decoding url. The process is killed when ctx is done or Close
// is called.
func Open(ctx context.Context, url string) (*Source, error) {
	cmd := exec.CommandContext(ctx, Binary,
		"-reconnect", "1",
		"-reconnect_streamed", "1",
		"-reconnect_delay_max", "5",
		"-i", url,
		"-f", "s16le",
		"-ar", strconv.Itoa(SampleRate),
		"-ac", strconv.Itoa(Channels),
		"-loglevel", "warning",
		"pipe:1",
	)

	stderr := &limitedBuffer{max: 4096}
	cmd.Stderr = stderr

	out, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe error: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("command start error: %w", err)
	}

	return &Source{PCMReader: NewPCMReader(out), cmd: cmd, stderr: stderr}, nil
}

// Stderr returns what ffmpeg reported so far.
func (s *Source) Stderr() string {
	return strings.TrimSpace(s.stderr.String())
}

// Close kills ffmpeg and reaps it.
func (s *Source) Close() error {
	var err error
	s.once.Do(func() {
		if s.cmd.Process != nil {
			_ = s.cmd.Process.Kill()
		}
		err = s.cmd.Wait()
	})
	return err
}

// limitedBuffer keeps the first max bytes written to it.
type limitedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
	max int
}

func (b *limitedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if room := b.max - b.buf.Len(); room > 0 {
		b.buf.Write(p[:min(len(p), room)])
	}
	return len(p), nil
}

func (b *limitedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
