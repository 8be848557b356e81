package project

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func drumTrack(p *Project) (trackID, blockID string) {
	tr := p.Tracks[3]
	return tr.ID, tr.Blocks[0].ID
}

func TestOperationsLeaveInputUntouched(t *testing.T) {
	p := NewDefaultProject()
	snapshot := p.Clone()
	lead := p.Tracks[0]

	_, _, err := AddNote(p, lead.ID, lead.Blocks[0].ID, Note{Pitch: 60, Duration: 1, Velocity: 1})
	require.NoError(t, err)
	_, err = SetBPM(p, 90)
	require.NoError(t, err)
	_, err = DeleteTrack(p, lead.ID)
	require.NoError(t, err)
	assert.Equal(t, snapshot, p)
}

func TestOperationsUnknownIDs(t *testing.T) {
	p := NewDefaultProject()
	out, err := SetVolume(p, "missing", 0.5)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, p, out)
	assert.NotSame(t, p, out)

	_, err = DeleteBlock(p, p.Tracks[0].ID, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTrackOperations(t *testing.T) {
	p := NewDefaultProject()

	p, id, err := AddTrack(p, TrackSynth, ConsoleSega)
	require.NoError(t, err)
	tr, idx := p.Track(id)
	require.NotNil(t, tr)
	assert.Equal(t, 5, idx)
	assert.Equal(t, "fm-lead", tr.Waveform)
	assert.Len(t, tr.Blocks, 1)

	p, dup, err := DuplicateTrack(p, p.Tracks[3].ID)
	require.NoError(t, err)
	dt, idx := p.Track(dup)
	assert.Equal(t, 4, idx)
	assert.NotEqual(t, p.Tracks[3].Blocks[0].ID, dt.Blocks[0].ID)
	assert.Equal(t, p.Tracks[3].Blocks[0].Pattern.Rows, dt.Blocks[0].Pattern.Rows)

	p, err = MoveTrack(p, dup, 0)
	require.NoError(t, err)
	assert.Equal(t, dup, p.Tracks[0].ID)

	for len(p.Tracks) < MaxTracks {
		p, _, err = AddTrack(p, TrackDrums, ConsoleBasics)
		require.NoError(t, err)
	}
	_, _, err = AddTrack(p, TrackSynth, ConsoleNES)
	assert.ErrorIs(t, err, ErrTrackLimit)

	single := &Project{Name: "one", BPM: 120, Tracks: []Track{NewTrack(0)}}
	_, err = DeleteTrack(single, single.Tracks[0].ID)
	assert.ErrorIs(t, err, ErrLastTrack)
}

func TestBlockOperations(t *testing.T) {
	p := NewDefaultProject()
	tid := p.Tracks[0].ID
	bid := p.Tracks[0].Blocks[0].ID

	p, _, err := AddNote(p, tid, bid, Note{Pitch: 60, Start: 0, Duration: 1, Velocity: 1})
	require.NoError(t, err)
	p, _, err = AddNote(p, tid, bid, Note{Pitch: 64, Start: 3, Duration: 2, Velocity: 1})
	require.NoError(t, err)
	b, _ := p.Tracks[0].Block(bid)
	assert.Equal(t, 1.0, b.Notes[1].Duration, "note trimmed to block end")

	p, dup, err := DuplicateBlock(p, tid, bid)
	require.NoError(t, err)
	d, _ := p.Tracks[0].Block(dup)
	assert.Equal(t, 4.0, d.StartBeat)
	assert.Len(t, d.Notes, 2)

	p, err = ResizeBlock(p, tid, bid, 2)
	require.NoError(t, err)
	b, _ = p.Tracks[0].Block(bid)
	require.Len(t, b.Notes, 1)
	assert.Equal(t, 60, b.Notes[0].Pitch)

	p, err = MoveBlock(p, tid, bid, -3)
	require.NoError(t, err)
	b, _ = p.Tracks[0].Block(bid)
	assert.Equal(t, 0.0, b.StartBeat)

	_, err = ResizeBlock(p, tid, bid, 0)
	assert.ErrorIs(t, err, ErrInvalidValue)

	p, err = DeleteBlock(p, tid, dup)
	require.NoError(t, err)
	assert.Len(t, p.Tracks[0].Blocks, 1)
}

func TestNoteOperations(t *testing.T) {
	p := NewDefaultProject()
	tid := p.Tracks[0].ID
	bid := p.Tracks[0].Blocks[0].ID

	p, i, err := AddNote(p, tid, bid, Note{Pitch: 60, Start: 0, Duration: 1, Velocity: 0.5})
	require.NoError(t, err)
	assert.Equal(t, 0, i)

	p, err = MoveNote(p, tid, bid, 0, 3.5, 72)
	require.NoError(t, err)
	b, _ := p.Tracks[0].Block(bid)
	assert.Equal(t, Note{Pitch: 72, Start: 3.5, Duration: 0.5, Velocity: 0.5}, b.Notes[0])

	p, err = ResizeNote(p, tid, bid, 0, 0.25)
	require.NoError(t, err)
	b, _ = p.Tracks[0].Block(bid)
	assert.Equal(t, 0.25, b.Notes[0].Duration)

	_, err = RemoveNote(p, tid, bid, 4)
	assert.ErrorIs(t, err, ErrNoteIndex)
	p, err = RemoveNote(p, tid, bid, 0)
	require.NoError(t, err)
	b, _ = p.Tracks[0].Block(bid)
	assert.Empty(t, b.Notes)

	dt, db := drumTrack(p)
	_, _, err = AddNote(p, dt, db, Note{Pitch: 60, Duration: 1, Velocity: 1})
	assert.ErrorIs(t, err, ErrWrongType)
}

func TestDrumOperations(t *testing.T) {
	p := NewDefaultProject()
	tid, bid := drumTrack(p)

	p, err := ToggleDrumEvent(p, tid, bid, "kick", 0, 1)
	require.NoError(t, err)
	p, err = ToggleDrumEvent(p, tid, bid, "snare", 1, 0.7)
	require.NoError(t, err)
	pat := p.Tracks[3].Blocks[0].Pattern
	require.Len(t, pat.Events, 2)

	p, err = ToggleDrumEvent(p, tid, bid, "kick", 0, 1)
	require.NoError(t, err)
	pat = p.Tracks[3].Blocks[0].Pattern
	require.Len(t, pat.Events, 1)
	assert.Equal(t, "snare", pat.Events[0].Drum)

	p, err = MoveDrumEvent(p, tid, bid, pat.Events[0].ID, "hat", 2)
	require.NoError(t, err)
	ev := p.Tracks[3].Blocks[0].Pattern.Events[0]
	assert.Equal(t, "hat", ev.Drum)
	assert.Equal(t, 2.0, ev.Start)

	_, err = ToggleDrumEvent(p, tid, bid, "cowbell", 0, 1)
	assert.ErrorIs(t, err, ErrUnknownDrum)
	_, err = MoveDrumEvent(p, tid, bid, "nope", "hat", 0)
	assert.ErrorIs(t, err, ErrNotFound)

	p, err = SetRowVolume(p, tid, bid, "hat", 1.7)
	require.NoError(t, err)
	assert.Equal(t, 1.0, p.Tracks[3].Blocks[0].Pattern.RowVolume("hat"))
}

func TestSetConsoleMigratesDrumKit(t *testing.T) {
	p := NewDefaultProject()
	tid, bid := drumTrack(p)
	var err error
	for _, hit := range []struct {
		drum  string
		start float64
	}{{"kick", 0}, {"noise", 1}, {"hat", 2}} {
		p, err = ToggleDrumEvent(p, tid, bid, hit.drum, hit.start, 1)
		require.NoError(t, err)
	}
	p, err = SetRowVolume(p, tid, bid, "kick", 0.5)
	require.NoError(t, err)

	p, err = SetConsole(p, tid, ConsoleSNES)
	require.NoError(t, err)
	tr := p.Tracks[3]
	assert.Equal(t, ConsoleSNES, tr.Console)
	assert.Equal(t, "strings", tr.Waveform)

	pat := tr.Blocks[0].Pattern
	assert.Equal(t, DrumKit(ConsoleSNES), pat.Rows)
	var drums []string
	for _, ev := range pat.Events {
		drums = append(drums, ev.Drum)
	}
	assert.ElementsMatch(t, []string{"kick", "hat"}, drums)
	assert.Equal(t, 0.5, pat.Volumes["kick"])
	assert.Equal(t, DefaultRowVolume, pat.Volumes["clap"])
	assert.NotContains(t, pat.Volumes, "noise")

	_, err = SetConsole(p, tid, "amiga")
	assert.ErrorIs(t, err, ErrInvalidValue)
}

func TestTrackSettings(t *testing.T) {
	p := NewDefaultProject()
	id := p.Tracks[0].ID

	p, err := SetWaveform(p, id, "triangle")
	require.NoError(t, err)
	_, err = SetWaveform(p, id, "fm-lead")
	assert.ErrorIs(t, err, ErrUnknownSynth)

	p, _ = SetVolume(p, id, 2)
	p, _ = SetPan(p, id, -0.25)
	p, _ = SetOctave(p, id, -8)
	p, _ = SetMute(p, id, true)
	p, _ = SetSolo(p, id, true)
	p, _ = SetBPM(p, 9999)
	p, _ = Rename(p, "song")

	tr := p.Tracks[0]
	assert.Equal(t, "triangle", tr.Waveform)
	assert.Equal(t, 1.0, tr.Volume)
	assert.Equal(t, -0.25, tr.Pan)
	assert.Equal(t, MinOctave, tr.Octave)
	assert.True(t, tr.Mute)
	assert.True(t, tr.Solo)
	assert.Equal(t, MaxBPM, p.BPM)
	assert.Equal(t, "song", p.Name)
}

func TestQuantize(t *testing.T) {
	p := NewDefaultProject()
	tid := p.Tracks[0].ID
	bid := p.Tracks[0].Blocks[0].ID
	p, _, err := AddNote(p, tid, bid, Note{Pitch: 60, Start: 0.13, Duration: 0.1, Velocity: 1})
	require.NoError(t, err)
	p, _, err = AddNote(p, tid, bid, Note{Pitch: 62, Start: 3.9, Duration: 0.5, Velocity: 1})
	require.NoError(t, err)
	p.Tracks[0].Blocks[0].StartBeat = 1.1

	q := Quantize(p, 0.25)
	b := q.Tracks[0].Blocks[0]
	assert.Equal(t, 1.0, b.StartBeat)
	require.Len(t, b.Notes, 1, "note snapped to the block end is trimmed")
	assert.Equal(t, 0.25, b.Notes[0].Start)
	assert.Equal(t, 0.25, b.Notes[0].Duration)

	assert.Equal(t, 1.1, p.Tracks[0].Blocks[0].StartBeat, "input untouched")
	assert.Equal(t, p, Quantize(p, 0))
}
