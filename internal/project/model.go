// Package project holds the composer's document model: a project of tracks,
// each track a timeline of blocks carrying either synth notes or a drum
// pattern. Every constructor, normalizer and editing operation returns
// freshly allocated structures so that a live project never shares mutable
// state with a stored snapshot.
package project

import (
	"math"

	"github.com/google/uuid"
)

const (
	MaxTracks        = 16
	MinTracks        = 5
	MinBPM           = 40.0
	MaxBPM           = 240.0
	DefaultBPM       = 120.0
	MinOctave        = -3
	MaxOctave        = 3
	DefaultRowVolume = 0.9
	MinDrumDuration  = 0.05
	MinEndBeat       = 4.0

	defaultBlockLength  = 4.0
	defaultNoteDuration = 0.25
	defaultDrumDuration = 0.25
	defaultVelocity     = 0.8
	defaultVolume       = 0.8
	defaultName         = "Untitled"
)

type TrackType string

const (
	TrackSynth TrackType = "synth"
	TrackDrums TrackType = "drums"
)

type Project struct {
	Name   string  `json:"name" yaml:"name"`
	BPM    float64 `json:"bpm" yaml:"bpm"`
	Tracks []Track `json:"tracks" yaml:"tracks"`
}

type Track struct {
	ID       string    `json:"id" yaml:"id"`
	Type     TrackType `json:"type" yaml:"type"`
	Console  Console   `json:"console" yaml:"console"`
	Waveform string    `json:"waveform" yaml:"waveform"`
	Volume   float64   `json:"volume" yaml:"volume"`
	Pan      float64   `json:"pan" yaml:"pan"`
	Octave   int       `json:"octave" yaml:"octave"`
	Mute     bool      `json:"mute" yaml:"mute"`
	Solo     bool      `json:"solo" yaml:"solo"`
	Blocks   []Block   `json:"blocks" yaml:"blocks"`
}

// Block is a time-bounded container placed on a track. Synth tracks use
// Notes, drum tracks use Pattern; the other field stays empty.
type Block struct {
	ID        string       `json:"id" yaml:"id"`
	StartBeat float64      `json:"startBeat" yaml:"startBeat"`
	Length    float64      `json:"length" yaml:"length"`
	Notes     []Note       `json:"notes,omitempty" yaml:"notes,omitempty"`
	Pattern   *DrumPattern `json:"pattern,omitempty" yaml:"pattern,omitempty"`
}

// Note times are in beats relative to the block start.
type Note struct {
	Pitch    int     `json:"pitch" yaml:"pitch"`
	Start    float64 `json:"start" yaml:"start"`
	Duration float64 `json:"duration" yaml:"duration"`
	Velocity float64 `json:"velocity" yaml:"velocity"`
}

type DrumPattern struct {
	Rows    []string           `json:"rows" yaml:"rows"`
	Events  []DrumEvent        `json:"events" yaml:"events"`
	Volumes map[string]float64 `json:"volumes" yaml:"volumes"`
}

type DrumEvent struct {
	ID       string  `json:"id" yaml:"id"`
	Drum     string  `json:"drum" yaml:"drum"`
	Start    float64 `json:"start" yaml:"start"`
	Duration float64 `json:"duration" yaml:"duration"`
	Velocity float64 `json:"velocity" yaml:"velocity"`
}

// NewID returns a fresh unique identifier for tracks, blocks and drum
// events.
func NewID() string {
	return uuid.NewString()
}

// End returns the first beat after the block.
func (b *Block) End() float64 {
	return b.StartBeat + b.Length
}

// Clone returns a deep copy of p.
func (p *Project) Clone() *Project {
	if p == nil {
		return nil
	}
	out := &Project{Name: p.Name, BPM: p.BPM}
	if p.Tracks != nil {
		out.Tracks = make([]Track, len(p.Tracks))
		for i := range p.Tracks {
			out.Tracks[i] = p.Tracks[i].Clone()
		}
	}
	return out
}

// Clone returns a deep copy of t.
func (t Track) Clone() Track {
	out := t
	if t.Blocks != nil {
		out.Blocks = make([]Block, len(t.Blocks))
		for i := range t.Blocks {
			out.Blocks[i] = t.Blocks[i].Clone()
		}
	}
	return out
}

// Clone returns a deep copy of b.
func (b Block) Clone() Block {
	out := b
	if b.Notes != nil {
		out.Notes = append([]Note(nil), b.Notes...)
	}
	out.Pattern = b.Pattern.Clone()
	return out
}

// Clone returns a deep copy of d, or nil.
func (d *DrumPattern) Clone() *DrumPattern {
	if d == nil {
		return nil
	}
	out := &DrumPattern{
		Rows:   append([]string(nil), d.Rows...),
		Events: append([]DrumEvent(nil), d.Events...),
	}
	if d.Volumes != nil {
		out.Volumes = make(map[string]float64, len(d.Volumes))
		for k, v := range d.Volumes {
			out.Volumes[k] = v
		}
	}
	return out
}

// Track returns the track with the given id.
func (p *Project) Track(id string) (*Track, int) {
	for i := range p.Tracks {
		if p.Tracks[i].ID == id {
			return &p.Tracks[i], i
		}
	}
	return nil, -1
}

// Block returns the block with the given id.
func (t *Track) Block(id string) (*Block, int) {
	for i := range t.Blocks {
		if t.Blocks[i].ID == id {
			return &t.Blocks[i], i
		}
	}
	return nil, -1
}

// AnySolo reports whether at least one track is soloed.
func (p *Project) AnySolo() bool {
	for i := range p.Tracks {
		if p.Tracks[i].Solo {
			return true
		}
	}
	return false
}

// Audible applies the mute/solo policy: muted tracks are silent, and when
// any track is soloed only soloed tracks sound.
func (p *Project) Audible(t *Track) bool {
	if t.Mute {
		return false
	}
	if p.AnySolo() {
		return t.Solo
	}
	return true
}

// SecondsPerBeat converts the project tempo to seconds per beat.
func (p *Project) SecondsPerBeat() float64 {
	bpm := p.BPM
	if !(bpm > 0) || math.IsInf(bpm, 0) {
		bpm = DefaultBPM
	}
	return 60 / bpm
}

// EndBeat is the maximum block end across the project, never below four
// beats. It defines the natural loop length.
func EndBeat(p *Project) float64 {
	end := MinEndBeat
	if p == nil {
		return end
	}
	for i := range p.Tracks {
		for j := range p.Tracks[i].Blocks {
			if e := p.Tracks[i].Blocks[j].End(); e > end && !math.IsInf(e, 0) {
				end = e
			}
		}
	}
	return end
}

type trackTemplate struct {
	name     string
	typ      TrackType
	console  Console
	waveform string
	volume   float64
	octave   int
}

var templates = []trackTemplate{
	{name: "lead", typ: TrackSynth, console: ConsoleNES, waveform: "pulse25", volume: 0.8},
	{name: "harmony", typ: TrackSynth, console: ConsoleNES, waveform: "pulse12", volume: 0.6},
	{name: "bass", typ: TrackSynth, console: ConsoleNES, waveform: "triangle", volume: 0.9, octave: -1},
	{name: "drums", typ: TrackDrums, console: ConsoleNES, waveform: "pulse25", volume: 0.8},
	{name: "pad", typ: TrackSynth, console: ConsoleSNES, waveform: "strings", volume: 0.5},
}

func templateFor(index int) trackTemplate {
	if index < 0 {
		index = 0
	}
	return templates[index%len(templates)]
}

// NewTrack builds an empty track from the template at index.
func NewTrack(index int) Track {
	tpl := templateFor(index)
	return Track{
		ID:       NewID(),
		Type:     tpl.typ,
		Console:  tpl.console,
		Waveform: tpl.waveform,
		Volume:   tpl.volume,
		Octave:   tpl.octave,
		Blocks:   []Block{},
	}
}

// NewBlock returns an empty block for a track of type typ on console c.
func NewBlock(typ TrackType, c Console, startBeat, length float64) Block {
	b := Block{ID: NewID(), StartBeat: startBeat, Length: length}
	if typ == TrackDrums {
		b.Pattern = EnsureDrumPattern(&b, DrumKit(c))
	} else {
		b.Notes = []Note{}
	}
	return b
}

// NewDefaultProject returns the starting document: five template tracks,
// each with one empty four-beat block.
func NewDefaultProject() *Project {
	p := &Project{Name: defaultName, BPM: DefaultBPM}
	for i := 0; i < MinTracks; i++ {
		t := NewTrack(i)
		t.Blocks = append(t.Blocks, NewBlock(t.Type, t.Console, 0, defaultBlockLength))
		p.Tracks = append(p.Tracks, t)
	}
	return p
}
