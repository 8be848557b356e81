// Package synth builds the per-note signal chains of each console: pulse,
// wavetable and noise generators, shaping curves and modulation pairs. The
// expensive tables behind them are shared process-wide, keyed by sample
// rate, and only reachable through a Factory.
package synth

import (
	"math"

	"github.com/sirupsen/logrus"

	"github.com/cbegin/chipstep/internal/project"
)

const fallbackFreq = 440.0

// Voice is a disposable signal chain for a single note or drum hit. The
// scheduler sets its start and stop instants; between them the clock pulls
// one sample per frame with Next. Every generator in the chain advances
// only through Next, so they all start and stop together.
type Voice struct {
	src   Source
	level float64
	start float64
	stop  float64
}

func newVoice(src Source, level float64) *Voice {
	return &Voice{src: src, level: level, stop: math.Inf(1)}
}

// Start sets the time in seconds at which the voice begins to sound.
func (v *Voice) Start(t float64) { v.start = t }

// Stop sets the time at which the voice is silenced. A stop before the
// start time is moved to the start.
func (v *Voice) Stop(t float64) { v.stop = math.Max(t, v.start) }

func (v *Voice) StartTime() float64 { return v.start }
func (v *Voice) StopTime() float64  { return v.stop }

// Active reports whether the voice sounds at time t.
func (v *Voice) Active(t float64) bool { return t >= v.start && t < v.stop }

// Next renders the next sample.
func (v *Voice) Next() float64 { return v.src.Next() * v.level }

// Factory creates voices for one sample rate.
type Factory struct {
	rate float64
	log  logrus.FieldLogger
}

func NewFactory(sampleRate int, log logrus.FieldLogger) *Factory {
	if sampleRate <= 0 {
		sampleRate = 48000
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Factory{rate: float64(sampleRate), log: log}
}

func (f *Factory) SampleRate() int { return int(f.rate) }

func (f *Factory) rateKey() int { return int(f.rate) }

// Voice builds the chain for console and waveform at freq Hz. Unknown
// waveforms fall back to the console's default waveform and unknown
// consoles to a plain square. Construction never fails: any problem
// building a recipe also yields a square at the requested frequency.
func (f *Factory) Voice(console project.Console, waveform string, freq float64) (v *Voice) {
	if !(freq > 0) || math.IsInf(freq, 0) {
		f.log.WithField("freq", freq).Debug("synth: unusable frequency, using fallback square")
		return f.Square(fallbackFreq)
	}
	r, ok := recipes[recipeKey{console, waveform}]
	if !ok {
		r, ok = recipes[recipeKey{console, project.DefaultWaveform(console)}]
	}
	if !ok {
		return f.Square(freq)
	}
	defer func() {
		if err := recover(); err != nil {
			f.log.WithFields(logrus.Fields{
				"console":  console,
				"waveform": waveform,
				"error":    err,
			}).Warn("synth: recipe failed, using fallback square")
			v = f.Square(freq)
		}
	}()
	src := r.build(f, freq)
	if src == nil {
		return f.Square(freq)
	}
	return newVoice(src, r.level)
}

// Square is the fallback voice: a band-limited 50% pulse.
func (f *Factory) Square(freq float64) *Voice {
	return newVoice(&pulseOsc{phasor: newPhasor(freq, f.rate), duty: 0.5}, 0.8)
}

// MidiToFreq converts a MIDI note number to Hz.
func MidiToFreq(note int) float64 {
	return 440 * math.Pow(2, float64(note-69)/12)
}
