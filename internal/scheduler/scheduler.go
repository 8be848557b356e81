// Package scheduler turns a project into voices placed on a clock. All
// times come from one tempo per call: an event at beat b of a block lands
// at StartTime + (block start + b) * 60/bpm seconds.
package scheduler

import (
	"math"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/cbegin/chipstep/internal/clock"
	"github.com/cbegin/chipstep/internal/project"
	"github.com/cbegin/chipstep/internal/synth"
)

// Envelope shared by every synth note.
const (
	Attack   = 0.01
	Decay    = 0.05
	Sustain  = 0.7
	Release  = 0.08
	Headroom = 0.3

	drumHeadroom = 0.5
)

// Clock is the part of clock.Context the scheduler places voices on.
type Clock interface {
	Now() float64
	SampleRate() int
	Master() *clock.Bus
	NewBus(parent *clock.Bus) *clock.Bus
	NewParam(value float64) *clock.Param
	Play(v clock.Voice, env *clock.Param, dest *clock.Bus) bool
}

type Options struct {
	// StartTime is the clock time of beat zero.
	StartTime float64
	// Master receives the track outputs. Defaults to the clock's master.
	Master *clock.Bus
	// IgnoreMuteSolo schedules every track and expresses mute/solo as the
	// track output gain instead.
	IgnoreMuteSolo bool
	// Outputs are reused across calls when set.
	Outputs *TrackOutputs
	Factory *synth.Factory
	Logger  logrus.FieldLogger
}

type SkipReason string

const (
	SkipNoOutput    SkipReason = "no output"
	SkipFrequency   SkipReason = "non-finite frequency"
	SkipVelocity    SkipReason = "non-positive velocity"
	SkipDuration    SkipReason = "non-positive duration"
	SkipUnknownDrum SkipReason = "unknown drum"
	SkipMutedOrSolo SkipReason = "muted"
)

// Placement is one voice put on the clock.
type Placement struct {
	TrackID   string
	BlockID   string
	Onset     float64
	Duration  float64
	Frequency float64
	Drum      string
}

type Skip struct {
	TrackID string
	BlockID string
	Reason  SkipReason
}

type Result struct {
	Placements []Placement
	Skipped    []Skip
	// End is the latest stop time of any placed voice.
	End float64
}

func (r *Result) place(pl Placement, stop float64) {
	r.Placements = append(r.Placements, pl)
	if stop > r.End {
		r.End = stop
	}
}

func (r *Result) skip(trackID, blockID string, reason SkipReason) {
	r.Skipped = append(r.Skipped, Skip{TrackID: trackID, BlockID: blockID, Reason: reason})
}

// Sorted returns the placements ordered by onset, then track, then pitch,
// which makes two passes over the same project directly comparable.
func (r *Result) Sorted() []Placement {
	out := append([]Placement(nil), r.Placements...)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Onset != b.Onset {
			return a.Onset < b.Onset
		}
		if a.TrackID != b.TrackID {
			return a.TrackID < b.TrackID
		}
		if a.Drum != b.Drum {
			return a.Drum < b.Drum
		}
		return a.Frequency < b.Frequency
	})
	return out
}

type pass struct {
	clock   Clock
	factory *synth.Factory
	log     logrus.FieldLogger
	start   float64
	spb     float64
	res     *Result
}

func newPass(c Clock, bpm float64, opts *Options) *pass {
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	if opts.Factory == nil {
		opts.Factory = synth.NewFactory(c.SampleRate(), opts.Logger)
	}
	if opts.Outputs == nil {
		opts.Outputs = NewTrackOutputs(c, opts.Master)
	}
	p := &project.Project{BPM: bpm}
	return &pass{
		clock:   c,
		factory: opts.Factory,
		log:     opts.Logger,
		start:   opts.StartTime,
		spb:     p.SecondsPerBeat(),
		res:     &Result{},
	}
}

// ScheduleProject places every audible note and drum hit of p on c.
func ScheduleProject(c Clock, p *project.Project, opts Options) *Result {
	s := newPass(c, p.BPM, &opts)
	for i := range p.Tracks {
		t := &p.Tracks[i]
		gain := t.Volume
		if opts.IgnoreMuteSolo {
			gain = trackGain(p, t)
		} else if !p.Audible(t) {
			s.res.skip(t.ID, "", SkipMutedOrSolo)
			continue
		}
		out := opts.Outputs.Output(t, gain)
		for j := range t.Blocks {
			s.block(t, &t.Blocks[j], out)
		}
	}
	s.log.WithFields(logrus.Fields{
		"placed":  len(s.res.Placements),
		"skipped": len(s.res.Skipped),
		"start":   opts.StartTime,
	}).Debug("scheduler: project scheduled")
	return s.res
}

// ScheduleBlock places a single block of track t, as used by preview. The
// block is positioned relative to its own start, so its first beat lands on
// StartTime. Mute and solo do not apply.
func ScheduleBlock(c Clock, t *project.Track, b *project.Block, bpm float64, opts Options) *Result {
	s := newPass(c, bpm, &opts)
	local := b.Clone()
	local.StartBeat = 0
	out := opts.Outputs.Output(t, t.Volume)
	s.block(t, &local, out)
	s.res.retag(b.ID)
	return s.res
}

func (r *Result) retag(blockID string) {
	for i := range r.Placements {
		r.Placements[i].BlockID = blockID
	}
	for i := range r.Skipped {
		r.Skipped[i].BlockID = blockID
	}
}

func (s *pass) block(t *project.Track, b *project.Block, out *clock.Bus) {
	if t.Type == project.TrackDrums {
		// reconcile a copy against the console's kit so stale rows never
		// sound and the caller's project is left untouched
		local := b.Clone()
		pat := project.EnsureDrumPattern(&local, project.DrumKit(t.Console))
		for _, ev := range pat.Events {
			s.drum(t, b, ev, pat.RowVolume(ev.Drum), out)
		}
		return
	}
	for _, n := range b.Notes {
		s.note(t, b, n, out)
	}
}

func (s *pass) onset(b *project.Block, start float64) float64 {
	return s.start + (b.StartBeat+start)*s.spb
}

func (s *pass) note(t *project.Track, b *project.Block, n project.Note, out *clock.Bus) {
	if out == nil {
		s.res.skip(t.ID, b.ID, SkipNoOutput)
		return
	}
	if !(n.Velocity > 0) {
		s.res.skip(t.ID, b.ID, SkipVelocity)
		return
	}
	dur := n.Duration * s.spb
	if !(dur > 0) || math.IsInf(dur, 0) {
		s.res.skip(t.ID, b.ID, SkipDuration)
		return
	}
	freq := synth.MidiToFreq(n.Pitch + 12*t.Octave)
	if !(freq > 0) || math.IsInf(freq, 0) {
		s.res.skip(t.ID, b.ID, SkipFrequency)
		return
	}

	at := s.onset(b, n.Start)
	hold := math.Max(dur, Attack+Decay+0.01)
	stop := at + hold + Release
	peak := math.Min(n.Velocity, 1) * Headroom

	env := s.clock.NewParam(0)
	env.SetValueAt(0, at)
	env.LinearRampTo(peak, at+Attack)
	env.LinearRampTo(peak*Sustain, at+Attack+Decay)
	env.SetValueAt(peak*Sustain, at+hold)
	env.LinearRampTo(0, stop)

	v := s.factory.Voice(t.Console, t.Waveform, freq)
	v.Start(at)
	v.Stop(stop)
	if !s.clock.Play(v, env, out) {
		s.res.skip(t.ID, b.ID, SkipNoOutput)
		return
	}
	s.res.place(Placement{
		TrackID:   t.ID,
		BlockID:   b.ID,
		Onset:     at,
		Duration:  dur,
		Frequency: freq,
	}, stop)
}

func (s *pass) drum(t *project.Track, b *project.Block, ev project.DrumEvent, rowVolume float64, out *clock.Bus) {
	if out == nil {
		s.res.skip(t.ID, b.ID, SkipNoOutput)
		return
	}
	vel := ev.Velocity * rowVolume
	if !(vel > 0) || math.IsInf(vel, 0) {
		s.res.skip(t.ID, b.ID, SkipVelocity)
		return
	}
	if !(ev.Duration > 0) {
		s.res.skip(t.ID, b.ID, SkipDuration)
		return
	}
	v, dur, ok := s.factory.Drum(ev.Drum, math.Min(vel, 1)*drumHeadroom)
	if !ok {
		s.log.WithField("drum", ev.Drum).Debug("scheduler: no recipe for drum")
		s.res.skip(t.ID, b.ID, SkipUnknownDrum)
		return
	}
	at := s.onset(b, ev.Start)
	v.Start(at)
	v.Stop(at + dur)
	if !s.clock.Play(v, nil, out) {
		s.res.skip(t.ID, b.ID, SkipNoOutput)
		return
	}
	s.res.place(Placement{
		TrackID:  t.ID,
		BlockID:  b.ID,
		Onset:    at,
		Duration: dur,
		Drum:     ev.Drum,
	}, at+dur)
}
