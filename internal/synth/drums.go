package synth

type drumRecipe struct {
	build    func(f *Factory) Source
	duration float64
	level    float64
}

// Drum returns a one-shot hit of the given kind, scaled by velocity, and
// how long it sounds in seconds. Unknown kinds report ok=false.
func (f *Factory) Drum(kind string, velocity float64) (v *Voice, duration float64, ok bool) {
	r, ok := drumRecipes[kind]
	if !ok {
		return nil, 0, false
	}
	defer func() {
		if err := recover(); err != nil {
			f.log.WithField("drum", kind).WithField("error", err).Warn("synth: drum recipe failed")
			v, duration, ok = nil, 0, false
		}
	}()
	return newVoice(r.build(f), r.level*velocity), r.duration, true
}

// DrumKinds lists every drum recipe.
func DrumKinds() []string {
	return []string{"kick", "snare", "hat", "openhat", "noise", "clap", "tom", "fm-tom", "cowbell", "perc"}
}

func (f *Factory) white() Source {
	return newNoiseOsc(f.noiseBuffer(), 0, 1)
}

func (f *Factory) burst(delaySec, tau, lo, hi float64) Source {
	band := lowpass(highpass(f.white(), lo, f.rate), hi, f.rate)
	return &delayed{in: &decay{in: band, tau: tau, rate: f.rate}, wait: int(delaySec * f.rate)}
}

var drumRecipes = map[string]drumRecipe{
	"kick": {
		build: func(f *Factory) Source {
			return &decay{in: &sweepSine{from: 150, to: 45, tau: 0.04, rate: f.rate}, tau: 0.15, attack: 0.002, rate: f.rate}
		},
		duration: 0.45,
		level:    1,
	},
	"snare": {
		build: func(f *Factory) Source {
			body := &decay{in: &sineOsc{phasor: newPhasor(185, f.rate)}, tau: 0.05, rate: f.rate}
			rattle := &decay{in: highpass(f.white(), 1200, f.rate), tau: 0.07, rate: f.rate}
			return (&mixer{}).add(body, 0.5).add(rattle, 0.7)
		},
		duration: 0.25,
		level:    0.8,
	},
	"hat": {
		build: func(f *Factory) Source {
			return &decay{in: highpass(f.white(), 7000, f.rate), tau: 0.02, rate: f.rate}
		},
		duration: 0.09,
		level:    0.5,
	},
	"openhat": {
		build: func(f *Factory) Source {
			return &decay{in: highpass(f.white(), 6000, f.rate), tau: 0.12, rate: f.rate}
		},
		duration: 0.4,
		level:    0.45,
	},
	"noise": {
		build: func(f *Factory) Source {
			return &decay{in: lowpass(f.white(), 4000, f.rate), tau: 0.08, rate: f.rate}
		},
		duration: 0.3,
		level:    0.6,
	},
	// three short bursts a few milliseconds apart, then a longer tail
	"clap": {
		build: func(f *Factory) Source {
			m := &mixer{}
			for i := 0; i < 3; i++ {
				m.add(f.burst(float64(i)*0.011, 0.008, 900, 2600), 0.8)
			}
			return m.add(f.burst(0.033, 0.07, 900, 2600), 0.6)
		},
		duration: 0.35,
		level:    0.9,
	},
	"tom": {
		build: func(f *Factory) Source {
			return &decay{in: &sweepSine{from: 160, to: 110, tau: 0.08, rate: f.rate}, tau: 0.15, attack: 0.002, rate: f.rate}
		},
		duration: 0.4,
		level:    0.9,
	},
	"fm-tom": {
		build: func(f *Factory) Source {
			return &decay{in: newFMOsc(110, 1.4, 2.2, f.rate), tau: 0.18, attack: 0.002, rate: f.rate}
		},
		duration: 0.45,
		level:    0.8,
	},
	"cowbell": {
		build: func(f *Factory) Source {
			pair := (&mixer{}).
				add(&pulseOsc{phasor: newPhasor(540, f.rate), duty: 0.5}, 0.5).
				add(&pulseOsc{phasor: newPhasor(800, f.rate), duty: 0.5}, 0.5)
			return &decay{in: lowpass(highpass(pair, 400, f.rate), 3000, f.rate), tau: 0.09, rate: f.rate}
		},
		duration: 0.3,
		level:    0.6,
	},
	"perc": {
		build: func(f *Factory) Source {
			return &decay{in: &triangleOsc{phasor: newPhasor(660, f.rate)}, tau: 0.05, rate: f.rate}
		},
		duration: 0.18,
		level:    0.8,
	},
}
