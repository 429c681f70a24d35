// Package audio decodes streams with ffmpeg and encodes them to opus frames.
package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"layeh.com/gopus"
)

const (
	Channels   = 2
	SampleRate = 48000
	FrameSize  = 960 // 20ms at 48kHz

	// FrameSamples is the number of interleaved samples in one frame.
	FrameSamples = FrameSize * Channels
	maxOpusBytes = FrameSamples * 2
)

// PCMReader reads interleaved s16le stereo frames.
type PCMReader struct {
	r   io.Reader
	buf []byte
}

func NewPCMReader(r io.Reader) *PCMReader {
	return &PCMReader{r: r, buf: make([]byte, FrameSamples*2)}
}

// ReadFrame fills samples (len FrameSamples) with the next frame. A trailing
// partial frame is padded with silence. io.EOF means no more frames.
func (p *PCMReader) ReadFrame(samples []int16) error {
	n, err := io.ReadFull(p.r, p.buf)
	switch {
	case errors.Is(err, io.EOF):
		return io.EOF
	case errors.Is(err, io.ErrUnexpectedEOF):
		clear(p.buf[n:])
	case err != nil:
		return fmt.Errorf("read pcm: %w", err)
	}

	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(p.buf[i*2 : i*2+2]))
	}
	return nil
}

// Scale applies a volume percentage in place, clipping at the int16 range.
func Scale(samples []int16, percent int) {
	if percent == 100 {
		return
	}
	if percent <= 0 {
		clear(samples)
		return
	}
	for i, s := range samples {
		v := int32(s) * int32(percent) / 100
		samples[i] = int16(max(min(v, math.MaxInt16), math.MinInt16))
	}
}

// Encoder turns PCM frames into opus packets.
type Encoder struct {
	enc *gopus.Encoder
}

func NewEncoder() (*Encoder, error) {
	enc, err := gopus.NewEncoder(SampleRate, Channels, gopus.Audio)
	if err != nil {
		return nil, fmt.Errorf("encoder error: %w", err)
	}
	return &Encoder{enc: enc}, nil
}

func (e *Encoder) Encode(samples []int16) ([]byte, error) {
	opus, err := e.enc.Encode(samples, FrameSize, maxOpusBytes)
	if err != nil {
		return nil, fmt.Errorf("encode error: %w", err)
	}
	return opus, nil
}
