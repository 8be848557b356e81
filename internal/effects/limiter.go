package effects

import "math"

// Limiter is a feed-forward compressor with a stereo-linked envelope, so
// gain reduction never shifts the pan position.
type Limiter struct {
	threshold float32
	ratio     float32
	attack    float32 // coefficient
	release   float32 // coefficient
	env       float32
}

// NewLimiter creates a limiter.
// thresholdDB: level above which gain is reduced (e.g. -3)
// ratio: compression ratio above threshold (e.g. 8 for 8:1)
// attackMs, releaseMs: envelope times in ms
func NewLimiter(sampleRate int, thresholdDB, ratio, attackMs, releaseMs float32) *Limiter {
	sr := float64(sampleRate)
	if ratio < 1 {
		ratio = 1
	}
	return &Limiter{
		threshold: float32(math.Pow(10, float64(thresholdDB)/20)),
		ratio:     ratio,
		attack:    coefficient(attackMs, sr),
		release:   coefficient(releaseMs, sr),
	}
}

// NewMasterLimiter is the limiter used on the master bus.
func NewMasterLimiter(sampleRate int) *Limiter {
	return NewLimiter(sampleRate, -1, 20, 1, 120)
}

func coefficient(ms float32, sr float64) float32 {
	if ms <= 0 {
		return 1
	}
	return float32(1.0 - math.Exp(-1.0/(float64(ms)*sr/1000.0)))
}

func (c *Limiter) Process(l, r []float32) {
	for i := range l {
		peak := max(abs32(l[i]), abs32(r[i]))
		if peak > c.env {
			c.env += c.attack * (peak - c.env)
		} else {
			c.env += c.release * (peak - c.env)
		}
		g := c.gain(c.env)
		l[i] *= g
		r[i] *= g
	}
}

func (c *Limiter) gain(env float32) float32 {
	if env <= c.threshold || c.threshold <= 0 {
		return 1.0
	}
	over := env / c.threshold
	return float32(math.Pow(float64(over), float64(1.0/c.ratio-1)))
}

func (c *Limiter) Reset() {
	c.env = 0
}

func abs32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
