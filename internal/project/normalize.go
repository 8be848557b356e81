package project

import (
	"math"
	"strings"
)

// Normalize returns a structurally valid copy of raw. It never fails:
// out-of-range numbers are clamped, missing or non-finite values take their
// defaults, unknown console/waveform pairs fall back to the track template,
// and the track list is padded to MinTracks and truncated to MaxTracks.
// The result shares no mutable state with raw.
func Normalize(raw *Project) *Project {
	if raw == nil {
		raw = &Project{}
	}
	out := &Project{
		Name: strings.TrimSpace(raw.Name),
		BPM:  raw.BPM,
	}
	if out.Name == "" {
		out.Name = defaultName
	}
	if !isFinite(out.BPM) || out.BPM == 0 {
		out.BPM = DefaultBPM
	}
	out.BPM = clamp(out.BPM, MinBPM, MaxBPM)

	n := len(raw.Tracks)
	if n > MaxTracks {
		n = MaxTracks
	}
	seen := make(map[string]bool)
	out.Tracks = make([]Track, 0, max(n, MinTracks))
	for i := 0; i < n; i++ {
		out.Tracks = append(out.Tracks, normalizeTrack(raw.Tracks[i], i, seen))
	}
	for i := len(out.Tracks); i < MinTracks; i++ {
		t := NewTrack(i)
		t.Blocks = append(t.Blocks, NewBlock(t.Type, t.Console, 0, defaultBlockLength))
		out.Tracks = append(out.Tracks, t)
	}
	return out
}

func normalizeTrack(raw Track, index int, seen map[string]bool) Track {
	tpl := templateFor(index)
	t := Track{
		ID:       raw.ID,
		Type:     raw.Type,
		Console:  raw.Console,
		Waveform: raw.Waveform,
		Volume:   raw.Volume,
		Pan:      raw.Pan,
		Octave:   raw.Octave,
		Mute:     raw.Mute,
		Solo:     raw.Solo,
	}
	t.ID = uniqueID(t.ID, seen)
	if t.Type != TrackSynth && t.Type != TrackDrums {
		t.Type = tpl.typ
	}
	if c, ok := ParseConsole(string(t.Console)); ok {
		t.Console = c
	} else {
		t.Console = tpl.console
		t.Waveform = tpl.waveform
	}
	if !HasWaveform(t.Console, t.Waveform) {
		if t.Console == tpl.console {
			t.Waveform = tpl.waveform
		} else {
			t.Waveform = DefaultWaveform(t.Console)
		}
	}
	if !isFinite(t.Volume) {
		t.Volume = tpl.volume
	}
	t.Volume = clamp(t.Volume, 0, 1)
	if !isFinite(t.Pan) {
		t.Pan = 0
	}
	t.Pan = clamp(t.Pan, -1, 1)
	t.Octave = clampInt(t.Octave, MinOctave, MaxOctave)

	t.Blocks = make([]Block, 0, len(raw.Blocks))
	kit := DrumKit(t.Console)
	for _, rb := range raw.Blocks {
		t.Blocks = append(t.Blocks, normalizeBlock(rb, t.Type, kit, seen))
	}
	return t
}

func normalizeBlock(raw Block, typ TrackType, kit []string, seen map[string]bool) Block {
	b := Block{
		ID:        uniqueID(raw.ID, seen),
		StartBeat: raw.StartBeat,
		Length:    raw.Length,
	}
	if !isFinite(b.StartBeat) || b.StartBeat < 0 {
		b.StartBeat = 0
	}
	if !isFinite(b.Length) || b.Length <= 0 {
		b.Length = defaultBlockLength
	}
	if typ == TrackDrums {
		b.Pattern = raw.Pattern.Clone()
		EnsureDrumPattern(&b, kit)
		return b
	}
	b.Notes = make([]Note, 0, len(raw.Notes))
	for _, n := range raw.Notes {
		b.Notes = append(b.Notes, normalizeNote(n))
	}
	return b
}

func normalizeNote(n Note) Note {
	n.Pitch = clampInt(n.Pitch, 0, 127)
	if !isFinite(n.Start) || n.Start < 0 {
		n.Start = 0
	}
	if !isFinite(n.Duration) || n.Duration <= 0 {
		n.Duration = defaultNoteDuration
	}
	if !isFinite(n.Velocity) {
		n.Velocity = defaultVelocity
	}
	n.Velocity = clamp(n.Velocity, 0, 1)
	return n
}

func uniqueID(id string, seen map[string]bool) string {
	id = strings.TrimSpace(id)
	if id == "" || seen[id] {
		id = NewID()
	}
	seen[id] = true
	return id
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
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

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
