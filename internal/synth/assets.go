package synth

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sync"
)

const (
	pulseTableSize = 2048
	shaperSize     = 1025
	// SNES-style tables hold one cycle recorded at this pitch.
	sampleBaseFreq = 220.0
)

type assetKey struct {
	rate int
	name string
}

// assetCache holds the expensive tables shared by every voice: additive
// pulse waves, console wavetables, the white-noise buffer and shaper curves.
// Entries are built once per sample rate, never modified afterwards and
// never evicted, so readers need no locking once they hold a table.
type assetCache struct {
	mu     sync.Mutex
	tables map[assetKey][]float64
	builds int
}

var sharedAssets = &assetCache{tables: map[assetKey][]float64{}}

func (c *assetCache) get(key assetKey, build func() []float64) []float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if t, ok := c.tables[key]; ok {
		return t
	}
	t := build()
	if len(t) == 0 {
		panic(fmt.Sprintf("synth: empty asset %v", key.name))
	}
	c.tables[key] = t
	c.builds++
	return t
}

func (f *Factory) pulseTable(duty float64) []float64 {
	key := assetKey{f.rateKey(), fmt.Sprintf("pulse/%.4f", duty)}
	return sharedAssets.get(key, func() []float64 {
		return buildPulseTable(duty, pulseHarmonics(f.rate))
	})
}

// pulseHarmonics keeps the additive series below Nyquist for notes up to
// roughly 200 Hz and caps the cost of the build.
func pulseHarmonics(rate float64) int {
	n := int(rate / 2 / 200)
	return max(8, min(n, 128))
}

// buildPulseTable sums the Fourier series of a pulse wave with the given
// duty cycle. The DC term is dropped and the result scaled to peak 1.
func buildPulseTable(duty float64, harmonics int) []float64 {
	t := make([]float64, pulseTableSize)
	for k := 1; k <= harmonics; k++ {
		// Lanczos sigma tames the Gibbs ripple.
		sigma := 1.0
		if x := math.Pi * float64(k) / float64(harmonics+1); x != 0 {
			sigma = math.Sin(x) / x
		}
		amp := 4 / (float64(k) * math.Pi) * math.Sin(float64(k)*math.Pi*duty) * sigma
		for i := range t {
			ph := float64(i)/pulseTableSize - duty/2
			t[i] += amp * math.Cos(twoPi*float64(k)*ph)
		}
	}
	return normalizePeak(t)
}

func (f *Factory) wavetable(name string) []float64 {
	return sharedAssets.get(assetKey{f.rateKey(), "wave/" + name}, func() []float64 {
		return buildWavetable(name, f.rate)
	})
}

// Console wave RAM contents. Values are the raw DAC steps.
var (
	gbWave  = []int{0, 2, 4, 6, 8, 10, 12, 14, 15, 15, 15, 14, 14, 13, 13, 12, 12, 11, 10, 9, 8, 7, 6, 5, 4, 4, 3, 3, 2, 2, 1, 1}
	pceWave = []int{16, 22, 27, 30, 31, 30, 27, 22, 16, 10, 5, 2, 0, 2, 5, 10, 16, 25, 31, 25, 16, 8, 2, 8, 16, 20, 24, 20, 16, 12, 8, 12}
)

func buildWavetable(name string, rate float64) []float64 {
	switch name {
	case "gb-wave":
		return steps(gbWave, 15)
	case "pce-wave":
		return steps(pceWave, 31)
	case "fds-wave":
		t := make([]int, 64)
		for i := range t {
			ph := float64(i) / 64
			v := 0.6*math.Sin(twoPi*ph) + 0.3*math.Sin(2*twoPi*ph) + 0.15*math.Sin(5*twoPi*ph)
			t[i] = int(math.Round((v/1.05 + 1) / 2 * 63))
		}
		return steps(t, 63)
	case "snes-strings":
		return additiveCycle(rate, []float64{1, 0.5, 0.33, 0.25, 0.2, 0.16, 0.14, 0.12})
	case "snes-brass":
		return additiveCycle(rate, []float64{1, 0.8, 0.6, 0.5, 0.35, 0.25, 0.15, 0.1, 0.05})
	}
	return nil
}

// steps maps integer DAC values in [0, top] onto [-1, 1].
func steps(values []int, top int) []float64 {
	t := make([]float64, len(values))
	for i, v := range values {
		t[i] = float64(v)/float64(top)*2 - 1
	}
	return t
}

// additiveCycle renders one cycle at sampleBaseFreq, so its length depends
// on the sample rate the way a recorded instrument sample would.
func additiveCycle(rate float64, partials []float64) []float64 {
	n := int(math.Round(rate / sampleBaseFreq))
	t := make([]float64, n)
	for k, a := range partials {
		for i := range t {
			t[i] += a * math.Sin(twoPi*float64(k+1)*float64(i)/float64(n))
		}
	}
	return normalizePeak(t)
}

// noiseBuffer is one second of white noise. The generator is seeded so
// renders are reproducible.
func (f *Factory) noiseBuffer() []float64 {
	return sharedAssets.get(assetKey{f.rateKey(), "noise"}, func() []float64 {
		r := rand.New(rand.NewPCG(0xACE1, uint64(f.rateKey())))
		t := make([]float64, f.rateKey())
		for i := range t {
			t[i] = r.Float64()*2 - 1
		}
		return t
	})
}

func (f *Factory) shaperTable(name string) []float64 {
	return sharedAssets.get(assetKey{f.rateKey(), "shape/" + name}, func() []float64 {
		return buildShaper(name)
	})
}

func buildShaper(name string) []float64 {
	var curve func(x float64) float64
	switch name {
	case "tanh":
		curve = func(x float64) float64 { return math.Tanh(3*x) / math.Tanh(3) }
	case "fold":
		// the table input is scaled by three before folding
		curve = func(x float64) float64 {
			t := (3*x + 1) / 4
			t -= math.Floor(t)
			return 1 - 4*math.Abs(t-0.5)
		}
	default:
		var bits int
		if _, err := fmt.Sscanf(name, "crush%d", &bits); err != nil || bits < 1 || bits > 16 {
			return nil
		}
		levels := 1 << bits
		curve = func(x float64) float64 {
			return quantize((x+1)/2, levels)*2 - 1
		}
	}
	t := make([]float64, shaperSize)
	for i := range t {
		t[i] = curve(float64(i)/(shaperSize-1)*2 - 1)
	}
	return t
}

func normalizePeak(t []float64) []float64 {
	peak := 0.0
	for _, v := range t {
		peak = math.Max(peak, math.Abs(v))
	}
	if peak > 0 {
		for i := range t {
			t[i] /= peak
		}
	}
	return t
}
