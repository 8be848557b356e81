package clock

import (
	"math"

	"github.com/viterin/vek/vek32"
)

// Buffer holds interleaved stereo samples.
type Buffer struct {
	SampleRate int
	Channels   int
	Samples    []float32
}

func (b *Buffer) Frames() int {
	if b == nil || b.Channels == 0 {
		return 0
	}
	return len(b.Samples) / b.Channels
}

func (b *Buffer) Duration() float64 {
	if b == nil || b.SampleRate == 0 {
		return 0
	}
	return float64(b.Frames()) / float64(b.SampleRate)
}

// Peak returns the largest absolute sample value.
func (b *Buffer) Peak() float32 {
	if b == nil || len(b.Samples) == 0 {
		return 0
	}
	abs := append([]float32(nil), b.Samples...)
	vek32.Abs_Inplace(abs)
	return vek32.Max(abs)
}

// Offline is a context that renders a fixed span as fast as possible.
type Offline struct {
	*Context
	frames int
}

// NewOffline returns a running context sized to hold seconds of audio.
func NewOffline(sampleRate int, seconds float64) *Offline {
	c := New(sampleRate)
	c.state = Running
	if math.IsNaN(seconds) || seconds < 0 {
		seconds = 0
	}
	return &Offline{Context: c, frames: int(math.Ceil(seconds * c.rate))}
}

func (o *Offline) Frames() int { return o.frames }

// Render processes the whole span in one pass and returns the result.
func (o *Offline) Render() *Buffer {
	out := &Buffer{
		SampleRate: o.SampleRate(),
		Channels:   2,
		Samples:    make([]float32, o.frames*2),
	}
	o.Process(out.Samples)
	return out
}
