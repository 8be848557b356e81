package midi

import (
	"bytes"
	"fmt"
	"math"
	"sort"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/cbegin/chipstep/internal/project"
)

// ExportTicksPerQuarter is the resolution of exported files.
const ExportTicksPerQuarter = 960

// General MIDI percussion keys for each drum row.
var drumNotes = map[string]uint8{
	"kick":    36,
	"snare":   38,
	"hat":     42,
	"openhat": 46,
	"clap":    39,
	"tom":     45,
	"fm-tom":  47,
	"cowbell": 56,
	"perc":    37,
	"noise":   49,
}

type noteMsg struct {
	tick uint32
	on   bool
	key  uint8
	vel  uint8
}

// Export writes p as a format 1 SMF: a tempo track followed by one track per
// project track. Drum tracks play on channel 9; synth tracks take the other
// channels in order. Pitches include the track octave. Muted tracks are
// exported too.
func Export(p *project.Project) ([]byte, error) {
	s := smf.New()
	s.TimeFormat = smf.MetricTicks(ExportTicksPerQuarter)

	var tempo smf.Track
	tempo.Add(0, smf.MetaMeter(4, 4))
	tempo.Add(0, smf.MetaTempo(p.BPM))
	tempo.Close(0)
	if err := s.Add(tempo); err != nil {
		return nil, fmt.Errorf("add tempo track: %w", err)
	}

	nextChannel := uint8(0)
	for i := range p.Tracks {
		t := &p.Tracks[i]
		ch := uint8(drumChannel)
		if t.Type != project.TrackDrums {
			ch = nextChannel
			nextChannel = (nextChannel + 1) % 16
			if nextChannel == drumChannel {
				nextChannel++
			}
		}
		msgs := trackMessages(t)
		var tr smf.Track
		last := uint32(0)
		for _, m := range msgs {
			delta := m.tick - last
			last = m.tick
			if m.on {
				tr.Add(delta, midi.NoteOn(ch, m.key, m.vel))
			} else {
				tr.Add(delta, midi.NoteOff(ch, m.key))
			}
		}
		tr.Close(0)
		if err := s.Add(tr); err != nil {
			return nil, fmt.Errorf("add track %d: %w", i, err)
		}
	}

	var buf bytes.Buffer
	if _, err := s.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("write smf: %w", err)
	}
	return buf.Bytes(), nil
}

func trackMessages(t *project.Track) []noteMsg {
	var msgs []noteMsg
	add := func(startBeat, durBeats float64, key uint8, velocity float64) {
		on := beatTicks(startBeat)
		off := beatTicks(startBeat + durBeats)
		if off <= on {
			off = on + 1
		}
		vel := uint8(math.Round(clampUnit(velocity) * 127))
		if vel == 0 {
			vel = 1
		}
		msgs = append(msgs, noteMsg{tick: on, on: true, key: key, vel: vel}, noteMsg{tick: off, key: key})
	}
	for _, b := range t.Blocks {
		if t.Type == project.TrackDrums {
			if b.Pattern == nil {
				continue
			}
			for _, ev := range b.Pattern.Events {
				key, ok := drumNotes[ev.Drum]
				if !ok {
					continue
				}
				add(b.StartBeat+ev.Start, ev.Duration, key, ev.Velocity*b.Pattern.RowVolume(ev.Drum))
			}
			continue
		}
		for _, n := range b.Notes {
			pitch := n.Pitch + 12*t.Octave
			if pitch < 0 || pitch > 127 {
				continue
			}
			add(b.StartBeat+n.Start, n.Duration, uint8(pitch), n.Velocity)
		}
	}
	// note-offs go before note-ons on the same tick so repeated pitches
	// do not swallow each other
	sort.SliceStable(msgs, func(i, j int) bool {
		if msgs[i].tick != msgs[j].tick {
			return msgs[i].tick < msgs[j].tick
		}
		return !msgs[i].on && msgs[j].on
	})
	return msgs
}

func beatTicks(beat float64) uint32 {
	if !(beat > 0) {
		return 0
	}
	return uint32(math.Round(beat * ExportTicksPerQuarter))
}

func clampUnit(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
