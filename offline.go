// Package chipstep renders and plays step-composer projects: tracks of
// notes and drum patterns voiced by emulated retro consoles.
package chipstep

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/sirupsen/logrus"

	"github.com/cbegin/chipstep/internal/clock"
	"github.com/cbegin/chipstep/internal/effects"
	"github.com/cbegin/chipstep/internal/project"
	"github.com/cbegin/chipstep/internal/scheduler"
	"github.com/cbegin/chipstep/internal/synth"
)

const (
	DefaultSampleRate = 44100
	// renderTail is extra time rendered after the last beat so releases and
	// drum decays are not cut off.
	renderTail = 1.0
)

// Buffer is interleaved stereo audio.
type Buffer = clock.Buffer

type RenderOptions struct {
	SampleRate int
	// IgnoreMuteSolo renders every track as if nothing were muted or
	// soloed.
	IgnoreMuteSolo bool
	// Limit runs the master limiter over the mix.
	Limit  bool
	Logger logrus.FieldLogger
}

// RenderProject renders the whole project offline: EndBeat beats at the
// project tempo plus a one-second tail, scheduled in a single pass.
func RenderProject(p *project.Project, opts RenderOptions) (*Buffer, error) {
	if p == nil {
		return nil, errors.New("render: nil project")
	}
	if opts.SampleRate == 0 {
		opts.SampleRate = DefaultSampleRate
	}
	if opts.SampleRate < 0 {
		return nil, fmt.Errorf("render: sample rate must be positive, got %d", opts.SampleRate)
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	if opts.IgnoreMuteSolo {
		p = p.Clone()
		for i := range p.Tracks {
			p.Tracks[i].Mute, p.Tracks[i].Solo = false, false
		}
	}
	seconds := project.EndBeat(p)*p.SecondsPerBeat() + renderTail
	off := clock.NewOffline(opts.SampleRate, seconds)
	if opts.Limit {
		off.Master().SetInsert(effects.NewMasterLimiter(opts.SampleRate))
	}
	res := scheduler.ScheduleProject(off, p, scheduler.Options{
		Factory: synth.NewFactory(opts.SampleRate, opts.Logger),
		Logger:  opts.Logger,
	})
	buf := off.Render()
	opts.Logger.WithFields(logrus.Fields{
		"project": p.Name,
		"seconds": buf.Duration(),
		"voices":  len(res.Placements),
		"skipped": len(res.Skipped),
		"peak":    buf.Peak(),
	}).Debug("render: done")
	return buf, nil
}

const wavHeaderSize = 44

func wavHeader(out []byte, sampleRate, channels, bits, format, dataSize int) {
	blockAlign := channels * bits / 8
	copy(out[0:], "RIFF")
	binary.LittleEndian.PutUint32(out[4:], uint32(36+dataSize))
	copy(out[8:], "WAVE")
	copy(out[12:], "fmt ")
	binary.LittleEndian.PutUint32(out[16:], 16)
	binary.LittleEndian.PutUint16(out[20:], uint16(format))
	binary.LittleEndian.PutUint16(out[22:], uint16(channels))
	binary.LittleEndian.PutUint32(out[24:], uint32(sampleRate))
	binary.LittleEndian.PutUint32(out[28:], uint32(sampleRate*blockAlign))
	binary.LittleEndian.PutUint16(out[32:], uint16(blockAlign))
	binary.LittleEndian.PutUint16(out[34:], uint16(bits))
	copy(out[36:], "data")
	binary.LittleEndian.PutUint32(out[40:], uint32(dataSize))
}

func clampSample(s float32) float32 {
	if s > 1 {
		return 1
	}
	if s < -1 {
		return -1
	}
	if math.IsNaN(float64(s)) {
		return 0
	}
	return s
}

// EncodeWAV encodes buf as 16-bit PCM with the canonical 44-byte header.
// Samples are clamped to [-1, 1] before quantization.
func EncodeWAV(buf *Buffer) []byte {
	dataSize := len(buf.Samples) * 2
	out := make([]byte, wavHeaderSize+dataSize)
	wavHeader(out, buf.SampleRate, buf.Channels, 16, 1, dataSize)
	for i, s := range buf.Samples {
		s = clampSample(s)
		var v int16
		if s < 0 {
			v = int16(math.Round(float64(s) * 32768))
		} else {
			v = int16(math.Round(float64(s) * 32767))
		}
		binary.LittleEndian.PutUint16(out[wavHeaderSize+i*2:], uint16(v))
	}
	return out
}

// EncodeWAVFloat32LE encodes buf as 32-bit IEEE float samples, unclamped.
func EncodeWAVFloat32LE(buf *Buffer) []byte {
	dataSize := len(buf.Samples) * 4
	out := make([]byte, wavHeaderSize+dataSize)
	wavHeader(out, buf.SampleRate, buf.Channels, 32, 3, dataSize)
	for i, s := range buf.Samples {
		binary.LittleEndian.PutUint32(out[wavHeaderSize+i*4:], math.Float32bits(s))
	}
	return out
}

// WriteWAV writes buf to w as 16-bit PCM.
func WriteWAV(w io.Writer, buf *Buffer) error {
	if _, err := w.Write(EncodeWAV(buf)); err != nil {
		return fmt.Errorf("write wav: %w", err)
	}
	return nil
}
