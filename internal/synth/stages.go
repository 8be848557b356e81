package synth

import "math"

type lfoWave int

const (
	lfoSine lfoWave = iota
	lfoTriangle
)

// lfo is a low-frequency oscillator returning values in [-depth, depth].
type lfo struct {
	depth  float64
	rateHz float64
	wave   lfoWave
	phase  float64
}

func (l *lfo) sample(sampleRate float64) float64 {
	if l.depth == 0 || l.rateHz == 0 || sampleRate == 0 {
		return 0
	}
	var v float64
	switch l.wave {
	case lfoTriangle:
		if l.phase < 0.5 {
			v = 4.0*l.phase - 1.0
		} else {
			v = 3.0 - 4.0*l.phase
		}
	default:
		v = math.Sin(twoPi * l.phase)
	}
	l.phase += l.rateHz / sampleRate
	for l.phase >= 1.0 {
		l.phase -= 1.0
	}
	return v * l.depth
}

// onePole is a first-order low- or highpass filter.
type onePole struct {
	in    Source
	alpha float64
	state float64
	high  bool
}

func onePoleAlpha(cutoff, rate float64) float64 {
	if cutoff <= 0 || cutoff >= rate/2 {
		return 1
	}
	rc := 1.0 / (twoPi * cutoff)
	dt := 1.0 / rate
	return dt / (rc + dt)
}

func lowpass(in Source, cutoff, rate float64) *onePole {
	return &onePole{in: in, alpha: onePoleAlpha(cutoff, rate)}
}

func highpass(in Source, cutoff, rate float64) *onePole {
	return &onePole{in: in, alpha: onePoleAlpha(cutoff, rate), high: true}
}

func (f *onePole) Next() float64 {
	x := f.in.Next()
	f.state += f.alpha * (x - f.state)
	if f.high {
		return x - f.state
	}
	return f.state
}

// shaper maps its input through a transfer table covering [-1, 1].
type shaper struct {
	in    Source
	table []float64
	drive float64
}

func (s *shaper) Next() float64 {
	return lookup(s.table, s.in.Next()*s.drive)
}

func lookup(table []float64, x float64) float64 {
	x = clamp(x, -1, 1)
	pos := (x + 1) / 2 * float64(len(table)-1)
	i := int(pos)
	if i >= len(table)-1 {
		return table[len(table)-1]
	}
	frac := pos - float64(i)
	return table[i] + (table[i+1]-table[i])*frac
}

type ringMod struct{ a, b Source }

func (r *ringMod) Next() float64 { return r.a.Next() * r.b.Next() }

// ampMod scales the carrier between 1-depth and 1 following the modulator.
type ampMod struct {
	carrier, mod Source
	depth        float64
}

func (m *ampMod) Next() float64 {
	return m.carrier.Next() * (1 - m.depth + m.depth*(0.5+0.5*m.mod.Next()))
}

// chorus is a modulated delay line mixed with the dry signal.
type chorus struct {
	in   Source
	buf  []float64
	pos  int
	base float64
	mod  lfo
	rate float64
	wet  float64
}

func newChorus(in Source, rate, delayMs, depthMs, rateHz, wet float64) *chorus {
	base := delayMs * rate / 1000
	depth := depthMs * rate / 1000
	size := int(base+depth) + 2
	if size < 4 {
		size = 4
	}
	return &chorus{
		in:   in,
		buf:  make([]float64, size),
		base: base,
		mod:  lfo{depth: depth, rateHz: rateHz, wave: lfoSine},
		rate: rate,
		wet:  clamp(wet, 0, 1),
	}
}

func (c *chorus) Next() float64 {
	x := c.in.Next()
	c.buf[c.pos] = x
	size := len(c.buf)
	read := float64(c.pos) - (c.base + c.mod.sample(c.rate))
	for read < 0 {
		read += float64(size)
	}
	i := int(read) % size
	frac := read - math.Floor(read)
	d := c.buf[i]*(1-frac) + c.buf[(i+1)%size]*frac
	c.pos++
	if c.pos >= size {
		c.pos = 0
	}
	return x*(1-c.wet) + d*c.wet
}

// phaser runs the signal through a chain of first-order allpass stages
// whose corner frequency is swept by an LFO, then mixes with the dry signal.
type phaser struct {
	in     Source
	xs, ys []float64
	sweep  lfo
	lo, hi float64
	rate   float64
	mix    float64
}

func newPhaser(in Source, rate float64, stages int, lo, hi, rateHz float64) *phaser {
	return &phaser{
		in:    in,
		xs:    make([]float64, stages),
		ys:    make([]float64, stages),
		sweep: lfo{depth: 1, rateHz: rateHz, wave: lfoTriangle},
		lo:    lo,
		hi:    hi,
		rate:  rate,
		mix:   0.5,
	}
}

func (p *phaser) Next() float64 {
	x := p.in.Next()
	m := (p.sweep.sample(p.rate) + 1) / 2
	fc := p.lo * math.Pow(p.hi/p.lo, m)
	t := math.Tan(math.Pi * fc / p.rate)
	a := (1 - t) / (1 + t)
	s := x
	for i := range p.xs {
		y := -a*s + p.xs[i] + a*p.ys[i]
		p.xs[i] = s
		p.ys[i] = y
		s = y
	}
	return x*(1-p.mix) + s*p.mix
}

// decay applies an exponential amplitude decay with time constant tau,
// optionally preceded by a linear attack.
type decay struct {
	in     Source
	tau    float64
	attack float64
	rate   float64
	n      int
}

func (d *decay) Next() float64 {
	t := float64(d.n) / d.rate
	d.n++
	a := math.Exp(-t / d.tau)
	if d.attack > 0 && t < d.attack {
		a *= t / d.attack
	}
	return d.in.Next() * a
}

// delayed stays silent for a number of samples before passing its input.
type delayed struct {
	in   Source
	wait int
}

func (d *delayed) Next() float64 {
	if d.wait > 0 {
		d.wait--
		return 0
	}
	return d.in.Next()
}

type mixer struct {
	ins   []Source
	gains []float64
}

func (m *mixer) add(in Source, level float64) *mixer {
	m.ins = append(m.ins, in)
	m.gains = append(m.gains, level)
	return m
}

func (m *mixer) Next() float64 {
	var s float64
	for i, in := range m.ins {
		s += in.Next() * m.gains[i]
	}
	return s
}
