package synth

import "github.com/cbegin/chipstep/internal/project"

type recipeKey struct {
	console  project.Console
	waveform string
}

type recipe struct {
	build func(f *Factory, freq float64) Source
	// level balances the loudness of recipes against each other.
	level float64
}

// FM operator settings per console voice.
type fmPatch struct {
	ratio, index float64
}

var (
	segaLead  = fmPatch{ratio: 1, index: 2.5}
	segaBass  = fmPatch{ratio: 0.5, index: 1.6}
	segaBell  = fmPatch{ratio: 3.5, index: 3}
	segaBrass = fmPatch{ratio: 1, index: 1.8}
	snesBell  = fmPatch{ratio: 3.5, index: 2}
	plainFM   = fmPatch{ratio: 2, index: 2}
)

func pulse(duty float64) func(*Factory, float64) Source {
	return func(f *Factory, freq float64) Source {
		return newTableOsc(f.pulseTable(duty), freq, f.rate, true)
	}
}

func wave(name string, interp bool) func(*Factory, float64) Source {
	return func(f *Factory, freq float64) Source {
		return newTableOsc(f.wavetable(name), freq, f.rate, interp)
	}
}

func sine(f *Factory, freq float64) Source {
	return &sineOsc{phasor: newPhasor(freq, f.rate)}
}

func saw(f *Factory, freq float64) Source {
	return &sawOsc{phasor: newPhasor(freq, f.rate)}
}

func square(f *Factory, freq float64) Source {
	return &pulseOsc{phasor: newPhasor(freq, f.rate), duty: 0.5}
}

func triangle(f *Factory, freq float64) Source {
	return &triangleOsc{phasor: newPhasor(freq, f.rate)}
}

// nesTriangle steps through 16 levels like the 2A03 triangle channel.
func nesTriangle(f *Factory, freq float64) Source {
	return &triangleOsc{phasor: newPhasor(freq, f.rate), steps: 16}
}

// noise holds each buffer value longer for lower notes, so pitch still
// changes the colour of the noise.
func noise(f *Factory, freq float64) Source {
	buf := f.noiseBuffer()
	hold := int(f.rate / (freq * 16))
	return newNoiseOsc(buf, int(freq*7919), hold)
}

func pink(f *Factory, freq float64) Source {
	return &pinkFilter{in: newNoiseOsc(f.noiseBuffer(), int(freq*7919), 1)}
}

func brown(f *Factory, freq float64) Source {
	return &brownFilter{in: newNoiseOsc(f.noiseBuffer(), int(freq*7919), 1)}
}

func fm(p fmPatch) func(*Factory, float64) Source {
	return func(f *Factory, freq float64) Source {
		return newFMOsc(freq, p.ratio, p.index, f.rate)
	}
}

func shaped(name string, drive float64, in func(*Factory, float64) Source) func(*Factory, float64) Source {
	return func(f *Factory, freq float64) Source {
		return &shaper{in: in(f, freq), table: f.shaperTable(name), drive: drive}
	}
}

func ring(ratio float64) func(*Factory, float64) Source {
	return func(f *Factory, freq float64) Source {
		return &ringMod{a: triangle(f, freq), b: sine(f, freq*ratio)}
	}
}

func am(f *Factory, freq float64) Source {
	return &ampMod{carrier: sine(f, freq), mod: sine(f, freq*0.5), depth: 0.6}
}

func hardSync(ratio float64) func(*Factory, float64) Source {
	return func(f *Factory, freq float64) Source {
		return newSyncOsc(freq, ratio, f.rate)
	}
}

func withChorus(in func(*Factory, float64) Source) func(*Factory, float64) Source {
	return func(f *Factory, freq float64) Source {
		return newChorus(in(f, freq), f.rate, 12, 4, 0.8, 0.5)
	}
}

func withPhaser(in func(*Factory, float64) Source) func(*Factory, float64) Source {
	return func(f *Factory, freq float64) Source {
		return newPhaser(in(f, freq), f.rate, 4, 300, 1800, 0.5)
	}
}

// detuned layers two copies of a source a few cents apart.
func detuned(cents float64, in func(*Factory, float64) Source) func(*Factory, float64) Source {
	return func(f *Factory, freq float64) Source {
		ratio := 1 + cents/1731
		return (&mixer{}).add(in(f, freq), 0.5).add(in(f, freq*ratio), 0.5)
	}
}

func withLowpass(cutoff float64, in func(*Factory, float64) Source) func(*Factory, float64) Source {
	return func(f *Factory, freq float64) Source {
		return lowpass(in(f, freq), cutoff, f.rate)
	}
}

// recipes is the closed dispatch table over every console and waveform in
// the project catalog.
var recipes = map[recipeKey]recipe{
	{project.ConsoleNES, "pulse25"}:  {pulse(0.25), 0.7},
	{project.ConsoleNES, "pulse12"}:  {pulse(0.125), 0.7},
	{project.ConsoleNES, "pulse50"}:  {pulse(0.5), 0.65},
	{project.ConsoleNES, "triangle"}: {nesTriangle, 0.9},
	{project.ConsoleNES, "noise"}:    {noise, 0.5},

	{project.ConsoleFamicom, "pulse25"}:  {pulse(0.25), 0.7},
	{project.ConsoleFamicom, "pulse12"}:  {pulse(0.125), 0.7},
	{project.ConsoleFamicom, "pulse50"}:  {pulse(0.5), 0.65},
	{project.ConsoleFamicom, "triangle"}: {nesTriangle, 0.9},
	{project.ConsoleFamicom, "fds"}:      {wave("fds-wave", false), 0.8},
	{project.ConsoleFamicom, "noise"}:    {noise, 0.5},

	{project.ConsoleGameBoy, "pulse50"}: {pulse(0.5), 0.65},
	{project.ConsoleGameBoy, "pulse25"}: {pulse(0.25), 0.7},
	{project.ConsoleGameBoy, "pulse12"}: {pulse(0.125), 0.7},
	{project.ConsoleGameBoy, "wave"}:    {wave("gb-wave", false), 0.8},
	{project.ConsoleGameBoy, "noise"}:   {noise, 0.5},

	{project.ConsoleSNES, "strings"}: {withChorus(wave("snes-strings", true)), 0.8},
	{project.ConsoleSNES, "brass"}:   {shaped("tanh", 1.2, wave("snes-brass", true)), 0.7},
	{project.ConsoleSNES, "bell"}:    {fm(snesBell), 0.7},
	{project.ConsoleSNES, "square"}:  {withLowpass(6000, square), 0.6},
	{project.ConsoleSNES, "saw"}:     {withLowpass(6000, saw), 0.6},
	{project.ConsoleSNES, "pad"}:     {withChorus(detuned(8, wave("snes-strings", true))), 0.8},

	{project.ConsoleTurboGrafx16, "wave"}:    {wave("pce-wave", false), 0.8},
	{project.ConsoleTurboGrafx16, "pulse25"}: {pulse(0.25), 0.7},
	{project.ConsoleTurboGrafx16, "saw"}:     {shaped("crush5", 1, saw), 0.6},
	{project.ConsoleTurboGrafx16, "noise"}:   {noise, 0.5},

	{project.ConsoleAtari, "square"}: {shaped("crush1", 1, square), 0.5},
	{project.ConsoleAtari, "buzz"}:   {shaped("crush2", 1, pulse(0.125)), 0.5},
	{project.ConsoleAtari, "lead"}:   {shaped("crush3", 1, pulse(0.25)), 0.55},
	{project.ConsoleAtari, "noise"}:  {shaped("crush1", 1, noise), 0.4},

	{project.ConsoleC64, "pulse"}:    {pulse(0.25), 0.7},
	{project.ConsoleC64, "saw"}:      {saw, 0.6},
	{project.ConsoleC64, "triangle"}: {triangle, 0.9},
	{project.ConsoleC64, "noise"}:    {noise, 0.5},
	{project.ConsoleC64, "ring"}:     {ring(1.5), 0.9},
	{project.ConsoleC64, "sync"}:     {hardSync(2.5), 0.6},

	{project.ConsoleSega, "fm-lead"}:  {fm(segaLead), 0.7},
	{project.ConsoleSega, "fm-bass"}:  {fm(segaBass), 0.8},
	{project.ConsoleSega, "fm-bell"}:  {fm(segaBell), 0.6},
	{project.ConsoleSega, "fm-brass"}: {shaped("tanh", 1.5, fm(segaBrass)), 0.6},

	{project.ConsoleBasics, "square"}:   {square, 0.6},
	{project.ConsoleBasics, "sine"}:     {sine, 1},
	{project.ConsoleBasics, "saw"}:      {saw, 0.6},
	{project.ConsoleBasics, "triangle"}: {triangle, 0.9},
	{project.ConsoleBasics, "noise"}:    {noise, 0.5},

	{project.ConsoleComplex, "fm"}:     {fm(plainFM), 0.7},
	{project.ConsoleComplex, "ring"}:   {ring(1.5), 0.9},
	{project.ConsoleComplex, "am"}:     {am, 0.9},
	{project.ConsoleComplex, "sync"}:   {hardSync(2.5), 0.6},
	{project.ConsoleComplex, "fold"}:   {shaped("fold", 1, sine), 0.8},
	{project.ConsoleComplex, "drive"}:  {shaped("tanh", 1, saw), 0.6},
	{project.ConsoleComplex, "crush"}:  {shaped("crush4", 1, sine), 0.8},
	{project.ConsoleComplex, "chorus"}: {withChorus(saw), 0.6},
	{project.ConsoleComplex, "phaser"}: {withPhaser(saw), 0.6},
	{project.ConsoleComplex, "pink"}:   {pink, 0.8},
	{project.ConsoleComplex, "brown"}:  {brown, 0.8},
}
