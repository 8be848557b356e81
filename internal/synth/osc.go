package synth

import "math"

const twoPi = math.Pi * 2

// Source produces one mono sample per call.
type Source interface {
	Next() float64
}

type phasor struct {
	phase float64
	inc   float64
}

func newPhasor(freq, rate float64) phasor {
	return phasor{inc: freq / rate}
}

// advance moves the phase one sample and reports whether it wrapped.
func (p *phasor) advance() bool {
	p.phase += p.inc
	if p.phase >= 1 {
		p.phase -= math.Floor(p.phase)
		return true
	}
	return false
}

// polyBLEP reduces aliasing at waveform discontinuities.
// t is the phase position [0,1), dt is the phase increment per sample.
func polyBLEP(t, dt float64) float64 {
	if t < dt {
		t /= dt
		return t + t - t*t - 1
	}
	if t > 1-dt {
		t = (t - 1) / dt
		return t*t + t + t + 1
	}
	return 0
}

type sineOsc struct{ phasor }

func (o *sineOsc) Next() float64 {
	s := math.Sin(twoPi * o.phase)
	o.advance()
	return s
}

type sawOsc struct{ phasor }

func (o *sawOsc) Next() float64 {
	s := 2*o.phase - 1 - polyBLEP(o.phase, o.inc)
	o.advance()
	return s
}

type pulseOsc struct {
	phasor
	duty float64
}

func (o *pulseOsc) Next() float64 {
	out := -1.0
	if o.phase < o.duty {
		out = 1
	}
	out += polyBLEP(o.phase, o.inc)
	out -= polyBLEP(math.Mod(o.phase-o.duty+1, 1), o.inc)
	o.advance()
	return out
}

// triangleOsc optionally snaps to a number of output levels, the way the
// NES triangle channel steps through 16 values.
type triangleOsc struct {
	phasor
	steps int
}

func (o *triangleOsc) Next() float64 {
	s := 2*math.Abs(2*o.phase-1) - 1
	o.advance()
	if o.steps > 1 {
		s = quantize((s+1)/2, o.steps)*2 - 1
	}
	return s
}

// tableOsc loops a single-cycle table. The read step is
// freq * len(table) / rate, so one pass over the table is one period.
type tableOsc struct {
	table  []float64
	pos    float64
	step   float64
	interp bool
}

func newTableOsc(table []float64, freq, rate float64, interp bool) *tableOsc {
	return &tableOsc{table: table, step: freq * float64(len(table)) / rate, interp: interp}
}

func (o *tableOsc) Next() float64 {
	n := len(o.table)
	i := int(o.pos)
	s := o.table[i]
	if o.interp {
		frac := o.pos - float64(i)
		s += (o.table[(i+1)%n] - s) * frac
	}
	o.pos += o.step
	if o.pos >= float64(n) {
		o.pos -= float64(n) * math.Floor(o.pos/float64(n))
	}
	return s
}

// noiseOsc plays the shared white-noise buffer, holding each value for a
// number of samples to give pitched noise a coarser grain.
type noiseOsc struct {
	buf   []float64
	pos   int
	hold  int
	count int
	cur   float64
}

func newNoiseOsc(buf []float64, offset, hold int) *noiseOsc {
	if hold < 1 {
		hold = 1
	}
	return &noiseOsc{buf: buf, pos: offset % len(buf), hold: hold}
}

func (o *noiseOsc) Next() float64 {
	if o.count == 0 {
		o.cur = o.buf[o.pos]
		o.pos++
		if o.pos >= len(o.buf) {
			o.pos = 0
		}
	}
	o.count++
	if o.count >= o.hold {
		o.count = 0
	}
	return o.cur
}

// pinkFilter is Paul Kellet's economy pink noise filter.
type pinkFilter struct {
	in         Source
	b0, b1, b2 float64
}

func (f *pinkFilter) Next() float64 {
	w := f.in.Next()
	f.b0 = 0.99765*f.b0 + w*0.0990460
	f.b1 = 0.96300*f.b1 + w*0.2965164
	f.b2 = 0.57000*f.b2 + w*1.0526913
	return (f.b0 + f.b1 + f.b2 + w*0.1848) * 0.25
}

type brownFilter struct {
	in   Source
	last float64
}

func (f *brownFilter) Next() float64 {
	f.last = (f.last + 0.02*f.in.Next()) / 1.02
	return f.last * 3.5
}

// fmOsc is a two-operator phase-modulation pair: the modulator runs at
// ratio times the carrier frequency.
type fmOsc struct {
	carrier phasor
	mod     phasor
	index   float64
}

func newFMOsc(freq, ratio, index, rate float64) *fmOsc {
	return &fmOsc{carrier: newPhasor(freq, rate), mod: newPhasor(freq*ratio, rate), index: index}
}

func (o *fmOsc) Next() float64 {
	s := math.Sin(twoPi*o.carrier.phase + o.index*math.Sin(twoPi*o.mod.phase))
	o.carrier.advance()
	o.mod.advance()
	return s
}

// syncOsc is a hard-synced saw: whenever the master phase wraps, the slave
// restarts its cycle.
type syncOsc struct {
	master phasor
	slave  phasor
}

func newSyncOsc(freq, ratio, rate float64) *syncOsc {
	return &syncOsc{master: newPhasor(freq, rate), slave: newPhasor(freq*ratio, rate)}
}

func (o *syncOsc) Next() float64 {
	s := 2*o.slave.phase - 1
	o.slave.advance()
	if o.master.advance() {
		o.slave.phase = o.master.phase * o.slave.inc / o.master.inc
		o.slave.phase -= math.Floor(o.slave.phase)
	}
	return s
}

// sweepSine glides from one frequency towards another with an exponential
// curve of time constant tau seconds.
type sweepSine struct {
	from, to, tau float64
	rate          float64
	n             int
	phase         float64
}

func (o *sweepSine) Next() float64 {
	t := float64(o.n) / o.rate
	o.n++
	f := o.to + (o.from-o.to)*math.Exp(-t/o.tau)
	s := math.Sin(twoPi * o.phase)
	o.phase += f / o.rate
	if o.phase >= 1 {
		o.phase -= math.Floor(o.phase)
	}
	return s
}

func quantize(v float64, steps int) float64 {
	if steps <= 1 {
		return v
	}
	n := math.Round(v*float64(steps-1)) / float64(steps-1)
	return clamp(n, 0, 1)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
