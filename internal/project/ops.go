package project

import (
	"errors"
	"fmt"
	"math"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrTrackLimit    = fmt.Errorf("project already has %d tracks", MaxTracks)
	ErrLastTrack     = errors.New("cannot delete the last track")
	ErrWrongType     = errors.New("operation does not apply to this track type")
	ErrInvalidValue  = errors.New("invalid value")
	ErrUnknownDrum   = errors.New("drum row not in pattern")
	ErrUnknownSynth  = errors.New("waveform not available on console")
	ErrNoteIndex     = errors.New("note index out of range")
	errEventNotFound = fmt.Errorf("drum event %w", ErrNotFound)
)

// Every editing operation clones its input, applies the change to the clone
// and returns it. On error the returned project is an unchanged clone, so
// the caller can always commit the result.
func edit(p *Project, fn func(*Project) error) (*Project, error) {
	out := p.Clone()
	if err := fn(out); err != nil {
		return p.Clone(), err
	}
	return out, nil
}

func findTrack(p *Project, trackID string) (*Track, int, error) {
	t, i := p.Track(trackID)
	if t == nil {
		return nil, -1, fmt.Errorf("track %q %w", trackID, ErrNotFound)
	}
	return t, i, nil
}

func findBlock(p *Project, trackID, blockID string) (*Track, *Block, error) {
	t, _, err := findTrack(p, trackID)
	if err != nil {
		return nil, nil, err
	}
	b, _ := t.Block(blockID)
	if b == nil {
		return nil, nil, fmt.Errorf("block %q %w", blockID, ErrNotFound)
	}
	return t, b, nil
}

// AddTrack appends a track of the given type and console with one empty
// four-beat block. It returns the new track id.
func AddTrack(p *Project, typ TrackType, console Console) (*Project, string, error) {
	var id string
	out, err := edit(p, func(p *Project) error {
		if len(p.Tracks) >= MaxTracks {
			return ErrTrackLimit
		}
		t := NewTrack(len(p.Tracks))
		if typ == TrackSynth || typ == TrackDrums {
			t.Type = typ
		}
		if console.Valid() && console != t.Console {
			t.Console = console
			t.Waveform = DefaultWaveform(console)
		}
		t.Blocks = append(t.Blocks, NewBlock(t.Type, t.Console, 0, defaultBlockLength))
		p.Tracks = append(p.Tracks, t)
		id = t.ID
		return nil
	})
	return out, id, err
}

func DeleteTrack(p *Project, trackID string) (*Project, error) {
	return edit(p, func(p *Project) error {
		_, i, err := findTrack(p, trackID)
		if err != nil {
			return err
		}
		if len(p.Tracks) <= 1 {
			return ErrLastTrack
		}
		p.Tracks = append(p.Tracks[:i], p.Tracks[i+1:]...)
		return nil
	})
}

// DuplicateTrack inserts a copy of the track, with fresh ids throughout,
// right after the original.
func DuplicateTrack(p *Project, trackID string) (*Project, string, error) {
	var id string
	out, err := edit(p, func(p *Project) error {
		t, i, err := findTrack(p, trackID)
		if err != nil {
			return err
		}
		if len(p.Tracks) >= MaxTracks {
			return ErrTrackLimit
		}
		dup := t.Clone()
		dup.ID = NewID()
		dup.Solo = false
		for j := range dup.Blocks {
			reassignIDs(&dup.Blocks[j])
		}
		p.Tracks = append(p.Tracks[:i+1], append([]Track{dup}, p.Tracks[i+1:]...)...)
		id = dup.ID
		return nil
	})
	return out, id, err
}

func MoveTrack(p *Project, trackID string, index int) (*Project, error) {
	return edit(p, func(p *Project) error {
		_, i, err := findTrack(p, trackID)
		if err != nil {
			return err
		}
		index = clampInt(index, 0, len(p.Tracks)-1)
		t := p.Tracks[i]
		p.Tracks = append(p.Tracks[:i], p.Tracks[i+1:]...)
		p.Tracks = append(p.Tracks[:index], append([]Track{t}, p.Tracks[index:]...)...)
		return nil
	})
}

func AddBlock(p *Project, trackID string, startBeat, length float64) (*Project, string, error) {
	var id string
	out, err := edit(p, func(p *Project) error {
		t, _, err := findTrack(p, trackID)
		if err != nil {
			return err
		}
		if !isFinite(startBeat) || !isFinite(length) || length <= 0 {
			return ErrInvalidValue
		}
		b := NewBlock(t.Type, t.Console, math.Max(0, startBeat), length)
		t.Blocks = append(t.Blocks, b)
		id = b.ID
		return nil
	})
	return out, id, err
}

func DeleteBlock(p *Project, trackID, blockID string) (*Project, error) {
	return edit(p, func(p *Project) error {
		t, _, err := findBlock(p, trackID, blockID)
		if err != nil {
			return err
		}
		_, i := t.Block(blockID)
		t.Blocks = append(t.Blocks[:i], t.Blocks[i+1:]...)
		return nil
	})
}

// DuplicateBlock places a copy of the block immediately after it.
func DuplicateBlock(p *Project, trackID, blockID string) (*Project, string, error) {
	var id string
	out, err := edit(p, func(p *Project) error {
		t, b, err := findBlock(p, trackID, blockID)
		if err != nil {
			return err
		}
		dup := b.Clone()
		reassignIDs(&dup)
		dup.StartBeat = b.End()
		t.Blocks = append(t.Blocks, dup)
		id = dup.ID
		return nil
	})
	return out, id, err
}

func MoveBlock(p *Project, trackID, blockID string, startBeat float64) (*Project, error) {
	return edit(p, func(p *Project) error {
		_, b, err := findBlock(p, trackID, blockID)
		if err != nil {
			return err
		}
		if !isFinite(startBeat) {
			return ErrInvalidValue
		}
		b.StartBeat = math.Max(0, startBeat)
		return nil
	})
}

// ResizeBlock changes the block length and trims content that no longer
// fits.
func ResizeBlock(p *Project, trackID, blockID string, length float64) (*Project, error) {
	return edit(p, func(p *Project) error {
		_, b, err := findBlock(p, trackID, blockID)
		if err != nil {
			return err
		}
		if !isFinite(length) || length <= 0 {
			return ErrInvalidValue
		}
		b.Length = length
		TrimBlock(b)
		return nil
	})
}

func synthBlock(p *Project, trackID, blockID string) (*Block, error) {
	t, b, err := findBlock(p, trackID, blockID)
	if err != nil {
		return nil, err
	}
	if t.Type != TrackSynth {
		return nil, ErrWrongType
	}
	return b, nil
}

// AddNote inserts n into a synth block and returns its index.
func AddNote(p *Project, trackID, blockID string, n Note) (*Project, int, error) {
	idx := -1
	out, err := edit(p, func(p *Project) error {
		b, err := synthBlock(p, trackID, blockID)
		if err != nil {
			return err
		}
		n = normalizeNote(n)
		if n.Start >= b.Length {
			return ErrInvalidValue
		}
		b.Notes = append(b.Notes, n)
		idx = len(b.Notes) - 1
		TrimBlock(b)
		return nil
	})
	return out, idx, err
}

func RemoveNote(p *Project, trackID, blockID string, index int) (*Project, error) {
	return edit(p, func(p *Project) error {
		b, err := synthBlock(p, trackID, blockID)
		if err != nil {
			return err
		}
		if index < 0 || index >= len(b.Notes) {
			return ErrNoteIndex
		}
		b.Notes = append(b.Notes[:index], b.Notes[index+1:]...)
		return nil
	})
}

// MoveNote sets a note's start (in block beats) and pitch.
func MoveNote(p *Project, trackID, blockID string, index int, start float64, pitch int) (*Project, error) {
	return edit(p, func(p *Project) error {
		b, err := synthBlock(p, trackID, blockID)
		if err != nil {
			return err
		}
		if index < 0 || index >= len(b.Notes) {
			return ErrNoteIndex
		}
		if !isFinite(start) || start < 0 || start >= b.Length {
			return ErrInvalidValue
		}
		b.Notes[index].Start = start
		b.Notes[index].Pitch = clampInt(pitch, 0, 127)
		TrimBlock(b)
		return nil
	})
}

func ResizeNote(p *Project, trackID, blockID string, index int, duration float64) (*Project, error) {
	return edit(p, func(p *Project) error {
		b, err := synthBlock(p, trackID, blockID)
		if err != nil {
			return err
		}
		if index < 0 || index >= len(b.Notes) {
			return ErrNoteIndex
		}
		if !isFinite(duration) || duration <= 0 {
			return ErrInvalidValue
		}
		b.Notes[index].Duration = duration
		TrimBlock(b)
		return nil
	})
}

func drumBlock(p *Project, trackID, blockID string) (*Block, error) {
	t, b, err := findBlock(p, trackID, blockID)
	if err != nil {
		return nil, err
	}
	if t.Type != TrackDrums {
		return nil, ErrWrongType
	}
	EnsureDrumPattern(b, DrumKit(t.Console))
	return b, nil
}

const sameStartEpsilon = 1e-6

// ToggleDrumEvent removes the hit on drum at start if there is one and adds
// a new hit otherwise.
func ToggleDrumEvent(p *Project, trackID, blockID, drum string, start, velocity float64) (*Project, error) {
	return edit(p, func(p *Project) error {
		b, err := drumBlock(p, trackID, blockID)
		if err != nil {
			return err
		}
		if !b.Pattern.HasRow(drum) {
			return fmt.Errorf("%w: %q", ErrUnknownDrum, drum)
		}
		if !isFinite(start) || start < 0 || start >= b.Length {
			return ErrInvalidValue
		}
		evs := b.Pattern.Events
		for i, ev := range evs {
			if ev.Drum == drum && math.Abs(ev.Start-start) < sameStartEpsilon {
				b.Pattern.Events = append(evs[:i], evs[i+1:]...)
				return nil
			}
		}
		b.Pattern.Events = append(evs, sanitizeDrumEvent(DrumEvent{
			ID:       NewID(),
			Drum:     drum,
			Start:    start,
			Duration: defaultDrumDuration,
			Velocity: velocity,
		}))
		TrimBlock(b)
		return nil
	})
}

func MoveDrumEvent(p *Project, trackID, blockID, eventID, drum string, start float64) (*Project, error) {
	return edit(p, func(p *Project) error {
		b, err := drumBlock(p, trackID, blockID)
		if err != nil {
			return err
		}
		if !b.Pattern.HasRow(drum) {
			return fmt.Errorf("%w: %q", ErrUnknownDrum, drum)
		}
		if !isFinite(start) || start < 0 || start >= b.Length {
			return ErrInvalidValue
		}
		for i := range b.Pattern.Events {
			if b.Pattern.Events[i].ID == eventID {
				b.Pattern.Events[i].Drum = drum
				b.Pattern.Events[i].Start = start
				TrimBlock(b)
				return nil
			}
		}
		return errEventNotFound
	})
}

func SetRowVolume(p *Project, trackID, blockID, row string, volume float64) (*Project, error) {
	return edit(p, func(p *Project) error {
		b, err := drumBlock(p, trackID, blockID)
		if err != nil {
			return err
		}
		if !b.Pattern.HasRow(row) {
			return fmt.Errorf("%w: %q", ErrUnknownDrum, row)
		}
		if !isFinite(volume) {
			return ErrInvalidValue
		}
		b.Pattern.Volumes[row] = clamp(volume, 0, 1)
		return nil
	})
}

// SetConsole switches a track's console. The waveform resets to the
// console's default and drum patterns migrate to the new kit.
func SetConsole(p *Project, trackID string, console Console) (*Project, error) {
	return edit(p, func(p *Project) error {
		t, _, err := findTrack(p, trackID)
		if err != nil {
			return err
		}
		c, ok := ParseConsole(string(console))
		if !ok {
			return fmt.Errorf("%w: console %q", ErrInvalidValue, console)
		}
		t.Console = c
		t.Waveform = DefaultWaveform(c)
		if t.Type == TrackDrums {
			kit := DrumKit(c)
			for i := range t.Blocks {
				EnsureDrumPattern(&t.Blocks[i], kit)
			}
		}
		return nil
	})
}

func SetWaveform(p *Project, trackID, waveform string) (*Project, error) {
	return edit(p, func(p *Project) error {
		t, _, err := findTrack(p, trackID)
		if err != nil {
			return err
		}
		if !HasWaveform(t.Console, waveform) {
			return fmt.Errorf("%w: %q on %v", ErrUnknownSynth, waveform, t.Console)
		}
		t.Waveform = waveform
		return nil
	})
}

func setTrack(p *Project, trackID string, fn func(*Track) error) (*Project, error) {
	return edit(p, func(p *Project) error {
		t, _, err := findTrack(p, trackID)
		if err != nil {
			return err
		}
		return fn(t)
	})
}

func SetVolume(p *Project, trackID string, volume float64) (*Project, error) {
	return setTrack(p, trackID, func(t *Track) error {
		if !isFinite(volume) {
			return ErrInvalidValue
		}
		t.Volume = clamp(volume, 0, 1)
		return nil
	})
}

func SetPan(p *Project, trackID string, pan float64) (*Project, error) {
	return setTrack(p, trackID, func(t *Track) error {
		if !isFinite(pan) {
			return ErrInvalidValue
		}
		t.Pan = clamp(pan, -1, 1)
		return nil
	})
}

func SetOctave(p *Project, trackID string, octave int) (*Project, error) {
	return setTrack(p, trackID, func(t *Track) error {
		t.Octave = clampInt(octave, MinOctave, MaxOctave)
		return nil
	})
}

func SetMute(p *Project, trackID string, mute bool) (*Project, error) {
	return setTrack(p, trackID, func(t *Track) error {
		t.Mute = mute
		return nil
	})
}

func SetSolo(p *Project, trackID string, solo bool) (*Project, error) {
	return setTrack(p, trackID, func(t *Track) error {
		t.Solo = solo
		return nil
	})
}

func SetBPM(p *Project, bpm float64) (*Project, error) {
	return edit(p, func(p *Project) error {
		if !isFinite(bpm) {
			return ErrInvalidValue
		}
		p.BPM = clamp(bpm, MinBPM, MaxBPM)
		return nil
	})
}

func Rename(p *Project, name string) (*Project, error) {
	return edit(p, func(p *Project) error {
		if name == "" {
			return ErrInvalidValue
		}
		p.Name = name
		return nil
	})
}

func reassignIDs(b *Block) {
	b.ID = NewID()
	if b.Pattern != nil {
		for i := range b.Pattern.Events {
			b.Pattern.Events[i].ID = NewID()
		}
	}
}

// TrimBlock drops content starting at or after the block end and shortens
// content that runs past it. Drum hits that would become shorter than
// MinDrumDuration are dropped.
func TrimBlock(b *Block) {
	if b.Notes != nil {
		kept := b.Notes[:0]
		for _, n := range b.Notes {
			if n.Start >= b.Length {
				continue
			}
			if n.Start+n.Duration > b.Length {
				n.Duration = b.Length - n.Start
			}
			kept = append(kept, n)
		}
		b.Notes = kept
	}
	if b.Pattern != nil {
		kept := b.Pattern.Events[:0]
		for _, ev := range b.Pattern.Events {
			room := b.Length - ev.Start
			if room < MinDrumDuration {
				continue
			}
			if ev.Duration > room {
				ev.Duration = room
			}
			kept = append(kept, ev)
		}
		b.Pattern.Events = kept
	}
}
