// Package transport drives realtime playback of a project: starting and
// stopping the song, looping it with lead-time rescheduling, and an
// independent block preview that shares the master output.
package transport

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/cbegin/chipstep/internal/clock"
	"github.com/cbegin/chipstep/internal/project"
	"github.com/cbegin/chipstep/internal/scheduler"
	"github.com/cbegin/chipstep/internal/synth"
)

const (
	// DefaultFade is the gain fade applied before a bus is disconnected.
	DefaultFade = 0.02
	// maxLead caps how early the next loop iteration is queued.
	maxLead = 0.2
	// startLatency keeps the first onset clear of the audio already
	// buffered for the device.
	startLatency = 0.05
	fadeFloor    = 0.0001
)

var ErrNotReady = errors.New("transport: audio not ready")

type State int

const (
	Stopped State = iota
	Playing
)

func (s State) String() string {
	if s == Playing {
		return "playing"
	}
	return "stopped"
}

// Clock is what the transport needs from the audio clock.
type Clock interface {
	scheduler.Clock
	Resume(ctx context.Context) error
}

type PlayOptions struct {
	Loop bool
}

type PreviewOptions struct {
	Loop bool
}

// ScheduleHook observes every scheduling pass, including loop iterations.
type ScheduleHook func(preview bool, iteration int, res *scheduler.Result)

type Option func(*Transport)

func WithTimers(timers Timers) Option {
	return func(t *Transport) { t.timers = timers }
}

func WithLogger(log logrus.FieldLogger) Option {
	return func(t *Transport) { t.log = log }
}

func WithFactory(f *synth.Factory) Option {
	return func(t *Transport) { t.factory = f }
}

func WithScheduleHook(h ScheduleHook) Option {
	return func(t *Transport) { t.hook = h }
}

func WithFade(seconds float64) Option {
	return func(t *Transport) {
		if seconds > 0 {
			t.fade = seconds
		}
	}
}

// session is one playing thing: the song or a previewed block. Its token
// changes whenever it starts or stops, and every timer callback carries the
// token it was armed with so a late callback finds a mismatch and does
// nothing.
type session struct {
	token     uint64
	active    bool
	loop      bool
	bus       *clock.Bus
	outputs   *scheduler.TrackOutputs
	start     float64
	next      float64
	iteration int
	timer     Timer

	trackID string
	blockID string
}

type Transport struct {
	mu      sync.Mutex
	clock   Clock
	timers  Timers
	log     logrus.FieldLogger
	factory *synth.Factory
	hook    ScheduleHook
	fade    float64
	tokens  uint64
	project *project.Project

	main    session
	preview session
}

func New(c Clock, opts ...Option) *Transport {
	t := &Transport{
		clock:   c,
		timers:  wallTimers{},
		log:     logrus.StandardLogger(),
		fade:    DefaultFade,
		project: project.NewDefaultProject(),
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.factory == nil {
		t.factory = synth.NewFactory(c.SampleRate(), t.log)
	}
	return t
}

func (t *Transport) resume(ctx context.Context) error {
	if err := t.clock.Resume(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrNotReady, err)
	}
	return nil
}

// Play starts the song from beat zero, replacing any playback in progress.
// The clock is resumed first; nothing is scheduled if that fails.
func (t *Transport) Play(ctx context.Context, p *project.Project, opts PlayOptions) error {
	if err := t.resume(ctx); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.project = p.Clone()
	t.stopLocked(&t.main)

	s := t.begin(&t.main, opts.Loop)
	t.scheduleSong(s)
	t.log.WithFields(logrus.Fields{
		"loop":    opts.Loop,
		"bpm":     t.project.BPM,
		"seconds": t.songSeconds(),
	}).Info("transport: playing")
	t.armNext(s, t.songSeconds(), t.onSongLoop)
	return nil
}

// Stop fades the song out and cancels its pending callbacks.
func (t *Transport) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.main.active {
		t.log.Info("transport: stopped")
	}
	t.stopLocked(&t.main)
}

// Preview plays a single block, independently of the song.
func (t *Transport) Preview(ctx context.Context, p *project.Project, trackID, blockID string, opts PreviewOptions) error {
	tr, _ := p.Track(trackID)
	if tr == nil {
		return fmt.Errorf("preview track %v: %w", trackID, project.ErrNotFound)
	}
	if b, _ := tr.Block(blockID); b == nil {
		return fmt.Errorf("preview block %v: %w", blockID, project.ErrNotFound)
	}
	if err := t.resume(ctx); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.project = p.Clone()
	t.stopLocked(&t.preview)

	s := t.begin(&t.preview, opts.Loop)
	s.trackID, s.blockID = trackID, blockID
	length, ok := t.schedulePreview(s)
	if !ok {
		t.stopLocked(s)
		return fmt.Errorf("preview block %v: %w", blockID, project.ErrNotFound)
	}
	t.armNext(s, length, t.onPreviewLoop)
	return nil
}

func (t *Transport) StopPreview() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopLocked(&t.preview)
}

// UpdateProject swaps in an edited project. Volume, pan, mute and solo
// ramp immediately; note edits are heard from the next loop iteration or
// preview reschedule.
func (t *Transport) UpdateProject(p *project.Project) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.project = p.Clone()
	now := t.clock.Now()
	if t.main.active {
		t.main.outputs.Apply(t.project, now, false)
	}
	// mute and solo never silence a preview
	if t.preview.active {
		t.preview.outputs.Apply(t.project, now, true)
	}
}

func (t *Transport) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.main.active {
		return Playing
	}
	return Stopped
}

func (t *Transport) Previewing() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.preview.active
}

// CurrentBeat derives the song position from the clock. While looping it
// wraps at the song length.
func (t *Transport) CurrentBeat() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.main.active {
		return 0
	}
	elapsed := t.clock.Now() - t.main.start
	if elapsed <= 0 {
		return 0
	}
	beat := elapsed / t.project.SecondsPerBeat()
	if t.main.loop {
		beat = math.Mod(beat, project.EndBeat(t.project))
	}
	return beat
}

// Close stops both the song and the preview.
func (t *Transport) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopLocked(&t.main)
	t.stopLocked(&t.preview)
}

func (t *Transport) begin(s *session, loop bool) *session {
	t.tokens++
	bus := t.clock.NewBus(nil)
	now := t.clock.Now()
	*s = session{
		token:   t.tokens,
		active:  true,
		loop:    loop,
		bus:     bus,
		outputs: scheduler.NewTrackOutputs(t.clock, bus),
		start:   now + startLatency,
	}
	s.next = s.start
	return s
}

func (t *Transport) options(s *session) scheduler.Options {
	return scheduler.Options{
		StartTime:      s.next,
		Master:         s.bus,
		IgnoreMuteSolo: true,
		Outputs:        s.outputs,
		Factory:        t.factory,
		Logger:         t.log,
	}
}

func (t *Transport) songSeconds() float64 {
	return project.EndBeat(t.project) * t.project.SecondsPerBeat()
}

// scheduleSong queues one iteration of the song at s.next and advances
// s.next by the song length.
func (t *Transport) scheduleSong(s *session) {
	res := scheduler.ScheduleProject(t.clock, t.project, t.options(s))
	if t.hook != nil {
		t.hook(false, s.iteration, res)
	}
	s.iteration++
	s.next += t.songSeconds()
}

// schedulePreview queues one pass of the previewed block. It reports false
// when the block no longer exists in the current project.
func (t *Transport) schedulePreview(s *session) (float64, bool) {
	tr, _ := t.project.Track(s.trackID)
	if tr == nil {
		return 0, false
	}
	b, _ := tr.Block(s.blockID)
	if b == nil {
		return 0, false
	}
	res := scheduler.ScheduleBlock(t.clock, tr, b, t.project.BPM, t.options(s))
	if t.hook != nil {
		t.hook(true, s.iteration, res)
	}
	length := b.Length * t.project.SecondsPerBeat()
	s.iteration++
	s.next += length
	return length, true
}

// armNext sets the timer for whatever follows the iteration just queued:
// the next iteration, fired lead seconds before it starts, or the end of
// playback.
func (t *Transport) armNext(s *session, length float64, onLoop func(token uint64)) {
	token := s.token
	now := t.clock.Now()
	if s.loop {
		lead := math.Min(maxLead, length/3)
		s.timer = t.timers.AfterFunc(seconds(s.next-lead-now), func() { onLoop(token) })
		return
	}
	tail := scheduler.Release + t.fade
	s.timer = t.timers.AfterFunc(seconds(s.next+tail-now), func() { t.finish(s, token) })
}

func (t *Transport) onSongLoop(token uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := &t.main
	if !s.active || s.token != token {
		return
	}
	t.scheduleSong(s)
	t.armNext(s, t.songSeconds(), t.onSongLoop)
}

func (t *Transport) onPreviewLoop(token uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := &t.preview
	if !s.active || s.token != token {
		return
	}
	length, ok := t.schedulePreview(s)
	if !ok {
		t.log.WithField("block", s.blockID).Debug("transport: previewed block removed")
		t.stopLocked(s)
		return
	}
	t.armNext(s, length, t.onPreviewLoop)
}

func (t *Transport) finish(s *session, token uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !s.active || s.token != token {
		return
	}
	t.log.Debug("transport: reached the end")
	t.stopLocked(s)
}

// stopLocked invalidates the session's callbacks, cancels its timer, then
// fades and disconnects its bus.
func (t *Transport) stopLocked(s *session) {
	if !s.active {
		return
	}
	t.tokens++
	s.token = t.tokens
	s.active = false
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	now := t.clock.Now()
	g := s.bus.Gain()
	if g.HoldAt(now) > fadeFloor {
		g.ExponentialRampTo(fadeFloor, now+t.fade)
	}
	s.bus.DisconnectAt(now + t.fade)
	s.outputs.Reset()
}
