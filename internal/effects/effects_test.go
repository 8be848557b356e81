package effects

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func constant(n int, v float32) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func TestLimiterReducesLoud(t *testing.T) {
	lim := NewLimiter(44100, -6, 10, 1, 50)
	l, r := constant(2000, 1), constant(2000, 0.5)
	lim.Process(l, r)
	assert.Less(t, l[1999], float32(0.6))
	// stereo-linked: the balance is untouched
	assert.InDelta(t, 0.5, r[1999]/l[1999], 1e-6)
}

func TestLimiterPassesQuiet(t *testing.T) {
	lim := NewMasterLimiter(44100)
	l, r := constant(500, 0.25), constant(500, -0.25)
	lim.Process(l, r)
	assert.Equal(t, constant(500, 0.25), l)
	assert.Equal(t, constant(500, -0.25), r)

	silent := make([]float32, 64)
	lim.Process(silent, silent)
	assert.Equal(t, make([]float32, 64), silent)
}

func TestLimiterReset(t *testing.T) {
	lim := NewLimiter(1000, -6, 10, 1, 1000)
	lim.Process(constant(100, 1), constant(100, 1))
	lim.Reset()
	l, r := constant(1, 0.1), constant(1, 0.1)
	lim.Process(l, r)
	assert.Equal(t, float32(0.1), l[0])
}

func TestEQ5BandUnityGain(t *testing.T) {
	eq := NewEQ5Band(44100)
	for b := 0; b < Bands; b++ {
		assert.Equal(t, float32(1), eq.Gain(b))
	}
	l, r := constant(1000, 0.5), constant(1000, -0.5)
	eq.Process(l, r)
	assert.InDelta(t, 0.5, l[999], 1e-4)
	assert.InDelta(t, -0.5, r[999], 1e-4)
}

func TestEQ5BandCutsLows(t *testing.T) {
	eq := NewEQ5Band(44100)
	eq.SetGain(0, 0)
	// a 50 Hz tone sits almost entirely in band 0
	n := 44100 / 2
	l, r := make([]float32, n), make([]float32, n)
	for i := range l {
		l[i] = float32(math.Sin(2 * math.Pi * 50 * float64(i) / 44100))
		r[i] = l[i]
	}
	eq.Process(l, r)
	var peak float32
	for _, s := range l[n/2:] {
		peak = max(peak, abs32(s))
	}
	assert.Less(t, peak, float32(0.5))
}

func TestEQ5BandGainBounds(t *testing.T) {
	eq := NewEQ5Band(48000)
	eq.SetGain(2, 9)
	eq.SetGain(3, -1)
	eq.SetGain(7, 0)
	assert.Equal(t, float32(4), eq.Gain(2))
	assert.Equal(t, float32(0), eq.Gain(3))
	assert.Equal(t, float32(1), eq.Gain(7))
}

type scale float32

func (s scale) Process(l, r []float32) {
	for i := range l {
		l[i] *= float32(s)
		r[i] *= float32(s)
	}
}

func (scale) Reset() {}

type resetCounter struct{ resets int }

func (c *resetCounter) Process(l, r []float32) {}
func (c *resetCounter) Reset()                 { c.resets++ }

func TestChainResetReachesEveryEffect(t *testing.T) {
	a, b := &resetCounter{}, &resetCounter{}
	c := NewChain(a)
	c.Add(b)
	c.Reset()
	assert.Equal(t, 1, a.resets)
	assert.Equal(t, 1, b.resets)
}

func TestChainAppliesEffectsInOrder(t *testing.T) {
	c := NewChain(scale(2))
	c.Add(NewLimiter(1000, 0, 1000, 0, 0))
	l, r := constant(4, 0.75), constant(4, 0.25)
	c.Process(l, r)
	// doubled to 1.5, then held at the 0 dBFS ceiling
	assert.InDelta(t, 1.0, l[3], 0.01)
	assert.InDelta(t, 1.0/3, r[3], 0.01)
}
