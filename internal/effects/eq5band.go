package effects

import (
	"math"
	"sync/atomic"
)

const Bands = 5

// EQ5Band implements a 5-band equalizer with runtime-adjustable gains.
// Bands are split at 200Hz, 800Hz, 2.5kHz, and 8kHz.
// Gains are stored as uint32 (bit-cast float32) for lock-free reads from the audio thread.
type EQ5Band struct {
	gains  [Bands]atomic.Uint32 // float32 bit patterns; 1.0 = unity
	alphas [4]float32           // crossover filter coefficients
	lpL    [4]float32           // lowpass state per crossover, left
	lpR    [4]float32           // lowpass state per crossover, right
}

var defaultCrossovers = [4]float64{200, 800, 2500, 8000}

// NewEQ5Band creates a 5-band EQ with all gains at unity.
func NewEQ5Band(sampleRate int) *EQ5Band {
	eq := &EQ5Band{}
	dt := 1.0 / float64(sampleRate)
	for i, freq := range defaultCrossovers {
		rc := 1.0 / (2.0 * math.Pi * freq)
		eq.alphas[i] = float32(dt / (rc + dt))
	}
	for i := range eq.gains {
		eq.gains[i].Store(math.Float32bits(1.0))
	}
	return eq
}

// SetGain sets the gain for band (0-4), clamped to [0, 4]. 1.0 = unity.
func (eq *EQ5Band) SetGain(band int, gain float32) {
	if band < 0 || band >= Bands {
		return
	}
	if !(gain > 0) {
		gain = 0
	}
	eq.gains[band].Store(math.Float32bits(min(gain, 4)))
}

// Gain returns the current gain for band (0-4).
func (eq *EQ5Band) Gain(band int) float32 {
	if band >= 0 && band < Bands {
		return math.Float32frombits(eq.gains[band].Load())
	}
	return 1.0
}

func (eq *EQ5Band) Process(l, r []float32) {
	var g [Bands]float32
	for i := range g {
		g[i] = math.Float32frombits(eq.gains[i].Load())
	}
	for n := range l {
		l[n] = eq.split(l[n], &eq.lpL, &g)
		r[n] = eq.split(r[n], &eq.lpR, &g)
	}
}

// split runs one sample through the 4 cascaded crossovers and sums the 5
// resulting bands with their gains.
func (eq *EQ5Band) split(x float32, lp *[4]float32, g *[Bands]float32) float32 {
	var out float32
	rem := x
	for i := 0; i < 4; i++ {
		lp[i] += eq.alphas[i] * (rem - lp[i])
		out += lp[i] * g[i]
		rem -= lp[i]
	}
	return out + rem*g[4]
}

func (eq *EQ5Band) Reset() {
	for i := range eq.lpL {
		eq.lpL[i] = 0
		eq.lpR[i] = 0
	}
}
