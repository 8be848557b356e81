package midi

import (
	"math"
	"slices"

	"github.com/cbegin/chipstep/internal/project"
)

const minImportVelocity = 0.1

type synthTemplate struct {
	console  project.Console
	waveform string
}

// Imported synth tracks cycle through these.
var importTemplates = []synthTemplate{
	{project.ConsoleNES, "pulse25"},
	{project.ConsoleNES, "pulse12"},
	{project.ConsoleNES, "triangle"},
	{project.ConsoleSNES, "strings"},
	{project.ConsoleGameBoy, "pulse50"},
	{project.ConsoleC64, "saw"},
	{project.ConsoleSega, "fm-lead"},
	{project.ConsoleTurboGrafx16, "wave"},
}

// DrumForNote maps a General MIDI percussion key to a drum row.
func DrumForNote(pitch int) string {
	switch pitch {
	case 35, 36:
		return "kick"
	case 38, 40:
		return "snare"
	case 42, 44, 46:
		return "hat"
	}
	return "perc"
}

func importVelocity(v int) float64 {
	return math.Max(minImportVelocity, float64(v)/127)
}

// BuildProject groups the parsed notes into tracks. Channel 9 becomes a
// single drum track. The other notes get one track per channel when more
// than one channel is in use, otherwise one track per source track chunk,
// since some exporters spread several instruments over separate chunks on
// the same channel. Every track holds one block spanning the whole song.
func BuildProject(f *File, name string) *project.Project {
	if name == "" {
		name = "Imported"
	}
	var drums, synth []NoteEvent
	channels := map[int]bool{}
	endTick := int64(0)
	for _, n := range f.Notes {
		endTick = max(endTick, n.EndTick)
		if n.Channel == drumChannel {
			drums = append(drums, n)
			continue
		}
		synth = append(synth, n)
		channels[n.Channel] = true
	}
	length := songLength(f.Beats(endTick))

	byChannel := len(channels) > 1
	groups := map[int][]NoteEvent{}
	for _, n := range synth {
		key := n.Track
		if byChannel {
			key = n.Channel
		}
		groups[key] = append(groups[key], n)
	}
	keys := make([]int, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	// the drum track must survive the project's track limit
	if limit := project.MaxTracks - 1; len(drums) > 0 && len(keys) > limit {
		keys = keys[:limit]
	}

	p := &project.Project{Name: name, BPM: f.BPM()}
	for i, k := range keys {
		tpl := importTemplates[i%len(importTemplates)]
		block := project.Block{ID: project.NewID(), Length: length, Notes: []project.Note{}}
		for _, n := range groups[k] {
			block.Notes = append(block.Notes, project.Note{
				Pitch:    n.Pitch,
				Start:    f.Beats(n.StartTick),
				Duration: f.Beats(n.EndTick - n.StartTick),
				Velocity: importVelocity(n.Velocity),
			})
		}
		p.Tracks = append(p.Tracks, project.Track{
			ID:       project.NewID(),
			Type:     project.TrackSynth,
			Console:  tpl.console,
			Waveform: tpl.waveform,
			Volume:   0.8,
			Blocks:   []project.Block{block},
		})
	}

	if len(drums) > 0 {
		block := project.Block{ID: project.NewID(), Length: length}
		pat := &project.DrumPattern{}
		for _, n := range drums {
			pat.Events = append(pat.Events, project.DrumEvent{
				ID:       project.NewID(),
				Drum:     DrumForNote(n.Pitch),
				Start:    f.Beats(n.StartTick),
				Duration: f.Beats(n.EndTick - n.StartTick),
				Velocity: importVelocity(n.Velocity),
			})
		}
		block.Pattern = pat
		p.Tracks = append(p.Tracks, project.Track{
			ID:       project.NewID(),
			Type:     project.TrackDrums,
			Console:  project.ConsoleBasics,
			Waveform: project.DefaultWaveform(project.ConsoleBasics),
			Volume:   0.8,
			Blocks:   []project.Block{block},
		})
	}
	return project.Normalize(p)
}

// songLength rounds the last note end up to a whole bar of four beats.
func songLength(endBeat float64) float64 {
	bars := math.Ceil(math.Ceil(endBeat) / 4)
	return math.Max(4, bars*4)
}

// Import parses data and builds a project from it. Nothing is returned on
// error.
func Import(data []byte, name string) (*project.Project, error) {
	f, err := Parse(data)
	if err != nil {
		return nil, err
	}
	return BuildProject(f, name), nil
}
