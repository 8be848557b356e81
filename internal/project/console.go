package project

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Console names a family of tone generators modelled on a retro sound chip.
type Console string

const (
	ConsoleNES          Console = "nes"
	ConsoleFamicom      Console = "famicom"
	ConsoleGameBoy      Console = "gameboy"
	ConsoleSNES         Console = "snes"
	ConsoleTurboGrafx16 Console = "turbografx16"
	ConsoleAtari        Console = "atari"
	ConsoleC64          Console = "c64"
	ConsoleSega         Console = "sega"
	ConsoleBasics       Console = "basics"
	ConsoleComplex      Console = "complex"
)

type consoleInfo struct {
	display   string
	waveforms []string
	kit       []string
}

// The first waveform of each console is its default.
var catalog = map[Console]consoleInfo{
	ConsoleNES: {
		display:   "NES",
		waveforms: []string{"pulse25", "pulse12", "pulse50", "triangle", "noise"},
		kit:       []string{"kick", "snare", "hat", "noise"},
	},
	ConsoleFamicom: {
		display:   "Famicom",
		waveforms: []string{"pulse25", "pulse12", "pulse50", "triangle", "fds", "noise"},
		kit:       []string{"kick", "snare", "hat", "tom", "noise"},
	},
	ConsoleGameBoy: {
		display:   "Game Boy",
		waveforms: []string{"pulse50", "pulse25", "pulse12", "wave", "noise"},
		kit:       []string{"kick", "snare", "hat", "noise"},
	},
	ConsoleSNES: {
		display:   "SNES",
		waveforms: []string{"strings", "brass", "bell", "square", "saw", "pad"},
		kit:       []string{"kick", "snare", "hat", "clap", "tom", "openhat"},
	},
	ConsoleTurboGrafx16: {
		display:   "TurboGrafx-16",
		waveforms: []string{"wave", "pulse25", "saw", "noise"},
		kit:       []string{"kick", "snare", "hat", "tom"},
	},
	ConsoleAtari: {
		display:   "Atari 2600",
		waveforms: []string{"square", "buzz", "lead", "noise"},
		kit:       []string{"kick", "snare", "noise"},
	},
	ConsoleC64: {
		display:   "C64",
		waveforms: []string{"pulse", "saw", "triangle", "noise", "ring", "sync"},
		kit:       []string{"kick", "snare", "hat", "tom"},
	},
	ConsoleSega: {
		display:   "Sega Genesis",
		waveforms: []string{"fm-lead", "fm-bass", "fm-bell", "fm-brass"},
		kit:       []string{"kick", "snare", "hat", "clap", "fm-tom"},
	},
	ConsoleBasics: {
		display:   "Basics",
		waveforms: []string{"square", "sine", "saw", "triangle", "noise"},
		kit:       []string{"kick", "snare", "hat", "perc", "clap", "openhat", "tom", "cowbell"},
	},
	ConsoleComplex: {
		display:   "Complex",
		waveforms: []string{"fm", "ring", "am", "sync", "fold", "drive", "crush", "chorus", "phaser", "pink", "brown"},
		kit:       []string{"kick", "snare", "hat", "clap", "openhat", "tom", "fm-tom", "cowbell", "perc"},
	},
}

var consoleOrder = []Console{
	ConsoleNES, ConsoleFamicom, ConsoleGameBoy, ConsoleSNES, ConsoleTurboGrafx16,
	ConsoleAtari, ConsoleC64, ConsoleSega, ConsoleBasics, ConsoleComplex,
}

var consoleAliases = map[string]Console{
	"gb":      ConsoleGameBoy,
	"pce":     ConsoleTurboGrafx16,
	"tg16":    ConsoleTurboGrafx16,
	"genesis": ConsoleSega,
	"sid":     ConsoleC64,
}

// Consoles returns every known console in catalog order.
func Consoles() []Console {
	out := make([]Console, len(consoleOrder))
	copy(out, consoleOrder)
	return out
}

// ParseConsole resolves a console name or alias, ignoring case and
// surrounding space.
func ParseConsole(name string) (Console, bool) {
	key := cases.Fold().String(strings.TrimSpace(name))
	if _, ok := catalog[Console(key)]; ok {
		return Console(key), true
	}
	c, ok := consoleAliases[key]
	return c, ok
}

// Valid reports whether c is in the catalog.
func (c Console) Valid() bool {
	_, ok := catalog[c]
	return ok
}

// Waveforms returns a copy of the console's waveform set. The first entry
// is the default waveform.
func Waveforms(c Console) []string {
	return append([]string(nil), catalog[c].waveforms...)
}

// DefaultWaveform returns the first waveform of c, or "" for an unknown
// console.
func DefaultWaveform(c Console) string {
	w := catalog[c].waveforms
	if len(w) == 0 {
		return ""
	}
	return w[0]
}

// HasWaveform reports whether w belongs to the waveform set of c.
func HasWaveform(c Console, w string) bool {
	for _, x := range catalog[c].waveforms {
		if x == w {
			return true
		}
	}
	return false
}

// DrumKit returns a fresh copy of the console's drum rows.
func DrumKit(c Console) []string {
	return append([]string(nil), catalog[c].kit...)
}

// DisplayName returns a human readable console name.
func DisplayName(c Console) string {
	if info, ok := catalog[c]; ok {
		return info.display
	}
	// Casers carry state, so one is made per call.
	return cases.Title(language.English).String(string(c))
}

// WaveformName returns the waveform as shown to people, e.g. "Pulse25".
func WaveformName(w string) string {
	return cases.Title(language.English).String(w)
}
