// Package audio connects a clock to the sound card through ebiten's audio
// player. The clock is pulled in float32 frames and handed to the player as
// little-endian bytes.
package audio

import (
	"encoding/binary"
	"io"
	"math"
	"sync"
)

type SampleSource interface {
	Process(dst []float32)
}

// StreamReader adapts a SampleSource to the io.Reader ebiten pulls from.
// Samples are clamped to [-1, 1] on the way out.
type StreamReader struct {
	mu     sync.Mutex
	source SampleSource
	buf    []float32
	peak   float32
	closed bool
}

func NewStreamReader(source SampleSource) *StreamReader {
	return &StreamReader{source: source}
}

func (r *StreamReader) Read(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return 0, io.EOF
	}

	frames := len(p) / 8
	if frames == 0 {
		return 0, nil
	}
	need := frames * 2
	if cap(r.buf) < need {
		r.buf = make([]float32, need)
	}
	r.buf = r.buf[:need]
	r.source.Process(r.buf)
	for i := 0; i < need; i++ {
		s := r.buf[i]
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		if a := float32(math.Abs(float64(s))); a > r.peak {
			r.peak = a
		}
		binary.LittleEndian.PutUint32(p[i*4:], math.Float32bits(s))
	}
	return frames * 8, nil
}

// Peak returns the loudest sample streamed since the last call and resets
// the meter.
func (r *StreamReader) Peak() float32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	p := r.peak
	r.peak = 0
	return p
}

func (r *StreamReader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}
