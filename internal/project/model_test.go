package project

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaultProjectLayout(t *testing.T) {
	p := NewDefaultProject()
	require.Len(t, p.Tracks, MinTracks)
	assert.Equal(t, DefaultBPM, p.BPM)

	wantTypes := []TrackType{TrackSynth, TrackSynth, TrackSynth, TrackDrums, TrackSynth}
	for i, tr := range p.Tracks {
		assert.Equal(t, wantTypes[i], tr.Type, "track %d", i)
		require.Len(t, tr.Blocks, 1)
		assert.Equal(t, 4.0, tr.Blocks[0].Length)
		assert.True(t, HasWaveform(tr.Console, tr.Waveform), "track %d waveform %q", i, tr.Waveform)
	}
	assert.Equal(t, -1, p.Tracks[2].Octave)
	assert.Equal(t, ConsoleSNES, p.Tracks[4].Console)
	assert.Equal(t, DrumKit(ConsoleNES), p.Tracks[3].Blocks[0].Pattern.Rows)
}

func TestEndBeatFloor(t *testing.T) {
	p := NewDefaultProject()
	assert.Equal(t, 4.0, EndBeat(p))
	assert.Equal(t, 4.0, EndBeat(&Project{}))
	assert.Equal(t, 4.0, EndBeat(nil))

	p.Tracks[1].Blocks[0].StartBeat = 6
	p.Tracks[1].Blocks[0].Length = 3
	assert.Equal(t, 9.0, EndBeat(p))
}

func TestCloneDoesNotAlias(t *testing.T) {
	p := NewDefaultProject()
	p.Tracks[0].Blocks[0].Notes = append(p.Tracks[0].Blocks[0].Notes, Note{Pitch: 60, Duration: 1, Velocity: 1})
	c := p.Clone()
	require.Equal(t, p, c)

	c.Tracks[0].Blocks[0].Notes[0].Pitch = 72
	c.Tracks[3].Blocks[0].Pattern.Volumes["kick"] = 0.1
	c.Tracks[3].Blocks[0].Pattern.Rows[0] = "changed"
	c.Tracks[1].Blocks = append(c.Tracks[1].Blocks, NewBlock(TrackSynth, ConsoleNES, 4, 4))

	assert.Equal(t, 60, p.Tracks[0].Blocks[0].Notes[0].Pitch)
	assert.Equal(t, DefaultRowVolume, p.Tracks[3].Blocks[0].Pattern.Volumes["kick"])
	assert.Equal(t, "kick", p.Tracks[3].Blocks[0].Pattern.Rows[0])
	assert.Len(t, p.Tracks[1].Blocks, 1)
}

func TestAudibleHonorsMuteAndSolo(t *testing.T) {
	p := NewDefaultProject()
	for i := range p.Tracks {
		assert.True(t, p.Audible(&p.Tracks[i]))
	}
	p.Tracks[0].Mute = true
	assert.False(t, p.Audible(&p.Tracks[0]))

	p.Tracks[2].Solo = true
	assert.True(t, p.Audible(&p.Tracks[2]))
	assert.False(t, p.Audible(&p.Tracks[1]))

	p.Tracks[0].Solo = true
	assert.False(t, p.Audible(&p.Tracks[0]), "mute wins over solo")
}

func TestConsoleCatalog(t *testing.T) {
	for _, c := range Consoles() {
		assert.NotEmpty(t, Waveforms(c), c)
		assert.NotEmpty(t, DrumKit(c), c)
		assert.Equal(t, Waveforms(c)[0], DefaultWaveform(c))
		assert.NotEmpty(t, DisplayName(c))
	}
	for in, want := range map[string]Console{
		"NES":     ConsoleNES,
		"gb":      ConsoleGameBoy,
		"Genesis": ConsoleSega,
		"sid":     ConsoleC64,
		"tg16":    ConsoleTurboGrafx16,
	} {
		got, ok := ParseConsole(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}
	// full case folding, not just ASCII lowering
	got, ok := ParseConsole("  \u017fID ")
	assert.True(t, ok)
	assert.Equal(t, ConsoleC64, got)

	_, ok = ParseConsole("amiga")
	assert.False(t, ok)

	assert.Equal(t, "Pulse25", WaveformName("pulse25"))
	assert.Equal(t, "Strings", WaveformName("strings"))

	kit := DrumKit(ConsoleNES)
	kit[0] = "mutated"
	assert.Equal(t, "kick", DrumKit(ConsoleNES)[0])
}
