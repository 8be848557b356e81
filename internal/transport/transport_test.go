package transport

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cbegin/chipstep/internal/clock"
	"github.com/cbegin/chipstep/internal/project"
	"github.com/cbegin/chipstep/internal/scheduler"
)

const testRate = 8000

type fakeTimer struct {
	delay   time.Duration
	fn      func()
	stopped bool
}

func (f *fakeTimer) Stop() bool {
	was := !f.stopped
	f.stopped = true
	return was
}

type fakeTimers struct {
	mu    sync.Mutex
	armed []*fakeTimer
}

func (f *fakeTimers) AfterFunc(d time.Duration, fn func()) Timer {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := &fakeTimer{delay: d, fn: fn}
	f.armed = append(f.armed, t)
	return t
}

func (f *fakeTimers) last() *fakeTimer {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.armed[len(f.armed)-1]
}

// fire runs the callback regardless of Stop, the way a timer that lost the
// race with cancellation would.
func (f *fakeTimer) fire() { f.fn() }

type pass struct {
	preview   bool
	iteration int
	res       *scheduler.Result
}

type harness struct {
	clock  *clock.Offline
	timers *fakeTimers
	hook   *test.Hook
	tr     *Transport
	passes []pass
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	log, hook := test.NewNullLogger()
	h := &harness{
		clock:  clock.NewOffline(testRate, 30),
		timers: &fakeTimers{},
		hook:   hook,
	}
	h.tr = New(h.clock,
		WithTimers(h.timers),
		WithLogger(log),
		WithScheduleHook(func(preview bool, iteration int, res *scheduler.Result) {
			h.passes = append(h.passes, pass{preview, iteration, res})
		}),
	)
	return h
}

// advance renders audio so the clock moves forward by about d seconds.
func (h *harness) advance(d float64) {
	buf := make([]float32, 2*int(d*testRate))
	h.clock.Process(buf)
}

// twoSecondSong is four beats at 120 bpm with a note on every beat.
func twoSecondSong(t *testing.T) *project.Project {
	t.Helper()
	p := project.NewDefaultProject()
	lead := p.Tracks[0]
	var err error
	for i := 0; i < 4; i++ {
		p, _, err = project.AddNote(p, lead.ID, lead.Blocks[0].ID, project.Note{
			Pitch: 60 + i, Start: float64(i), Duration: 0.5, Velocity: 1,
		})
		require.NoError(t, err)
	}
	return p
}

func onsets(res *scheduler.Result) []float64 {
	var out []float64
	for _, pl := range res.Sorted() {
		out = append(out, pl.Onset)
	}
	return out
}

func TestLoopIterationsAreExactlyOneLoopApart(t *testing.T) {
	h := newHarness(t)
	p := twoSecondSong(t)
	require.NoError(t, h.tr.Play(context.Background(), p, PlayOptions{Loop: true}))
	assert.Equal(t, Playing, h.tr.State())

	first := h.timers.last()
	// next iteration is queued min(0.2, 2/3) seconds before it starts
	assert.InDelta(t, startLatency+2-0.2, first.delay.Seconds(), 1e-6)

	// simulate a late timer: the clock is already well past the fire time
	h.advance(1.95)
	first.fire()
	require.Len(t, h.passes, 2)

	a, b := onsets(h.passes[0].res), onsets(h.passes[1].res)
	require.Len(t, a, 4)
	require.Len(t, b, 4)
	for i := range a {
		assert.InDelta(t, a[i]+2, b[i], 1e-9)
	}
	assert.Equal(t, 1, h.passes[1].iteration)

	second := h.timers.last()
	assert.NotSame(t, first, second)
	h.advance(2)
	second.fire()
	require.Len(t, h.passes, 3)
	assert.InDelta(t, a[0]+4, onsets(h.passes[2].res)[0], 1e-9)
}

func TestStopCancelsPendingLoop(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.tr.Play(context.Background(), twoSecondSong(t), PlayOptions{Loop: true}))
	pending := h.timers.last()

	h.tr.Stop()
	assert.Equal(t, Stopped, h.tr.State())
	assert.True(t, pending.stopped)

	// the callback fires anyway; it must not schedule anything
	before := h.clock.Scheduled()
	pending.fire()
	assert.Len(t, h.passes, 1)
	assert.Equal(t, before, h.clock.Scheduled())
}

func TestRestartInvalidatesOldCallbacks(t *testing.T) {
	h := newHarness(t)
	p := twoSecondSong(t)
	require.NoError(t, h.tr.Play(context.Background(), p, PlayOptions{Loop: true}))
	stale := h.timers.last()
	require.NoError(t, h.tr.Play(context.Background(), p, PlayOptions{Loop: true}))

	stale.fire()
	assert.Len(t, h.passes, 2)
	assert.Equal(t, 0, h.passes[1].iteration)
}

func TestStopFadesThenDisconnects(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.tr.Play(context.Background(), twoSecondSong(t), PlayOptions{}))
	bus := h.tr.main.bus
	h.advance(0.5)
	now := h.clock.Now()

	h.tr.Stop()
	assert.Equal(t, 1.0, bus.Gain().ValueAt(now))
	assert.InDelta(t, fadeFloor, bus.Gain().ValueAt(now+DefaultFade), 1e-12)
	assert.False(t, bus.Disconnected())

	h.advance(0.1)
	assert.True(t, bus.Disconnected())
	assert.Equal(t, 0, h.clock.Active())
}

func TestOneShotStopsItself(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.tr.Play(context.Background(), twoSecondSong(t), PlayOptions{}))
	end := h.timers.last()
	assert.InDelta(t, startLatency+2+scheduler.Release+DefaultFade, end.delay.Seconds(), 1e-6)

	h.advance(2.2)
	end.fire()
	assert.Equal(t, Stopped, h.tr.State())
	assert.Len(t, h.passes, 1)
}

func TestCurrentBeat(t *testing.T) {
	h := newHarness(t)
	assert.Equal(t, 0.0, h.tr.CurrentBeat())
	require.NoError(t, h.tr.Play(context.Background(), twoSecondSong(t), PlayOptions{Loop: true}))
	assert.Equal(t, 0.0, h.tr.CurrentBeat())

	h.advance(startLatency + 1.25)
	assert.InDelta(t, 2.5, h.tr.CurrentBeat(), 0.05)

	h.advance(2)
	assert.InDelta(t, 2.5, h.tr.CurrentBeat(), 0.05)
}

func TestUpdateProjectRampsMute(t *testing.T) {
	h := newHarness(t)
	p := twoSecondSong(t)
	require.NoError(t, h.tr.Play(context.Background(), p, PlayOptions{Loop: true}))
	lead := p.Tracks[0]
	bus, ok := h.tr.main.outputs.Bus(lead.ID)
	require.True(t, ok)

	h.advance(0.5)
	now := h.clock.Now()
	muted, err := project.SetMute(p, lead.ID, true)
	require.NoError(t, err)
	h.tr.UpdateProject(muted)
	assert.InDelta(t, lead.Volume, bus.Gain().ValueAt(now), 1e-9)
	assert.Equal(t, 0.0, bus.Gain().ValueAt(now+scheduler.GainRamp))

	// the next iteration still schedules the muted track, silently
	h.timers.last().fire()
	assert.Len(t, h.passes[1].res.Placements, 4)
}

func TestUpdateProjectAffectsNextIteration(t *testing.T) {
	h := newHarness(t)
	p := twoSecondSong(t)
	require.NoError(t, h.tr.Play(context.Background(), p, PlayOptions{Loop: true}))
	lead := p.Tracks[0]
	edited, err := project.RemoveNote(p, lead.ID, lead.Blocks[0].ID, 0)
	require.NoError(t, err)
	h.tr.UpdateProject(edited)

	h.timers.last().fire()
	assert.Len(t, h.passes[1].res.Placements, 3)
}

func TestPreviewIsIndependent(t *testing.T) {
	h := newHarness(t)
	p := twoSecondSong(t)
	lead := p.Tracks[0]
	require.NoError(t, h.tr.Play(context.Background(), p, PlayOptions{Loop: true}))
	require.NoError(t, h.tr.Preview(context.Background(), p, lead.ID, lead.Blocks[0].ID, PreviewOptions{Loop: true}))
	assert.True(t, h.tr.Previewing())
	assert.Equal(t, Playing, h.tr.State())
	assert.NotSame(t, h.tr.main.bus, h.tr.preview.bus)
	require.Len(t, h.passes, 2)
	assert.True(t, h.passes[1].preview)

	previewTimer := h.timers.last()
	h.tr.StopPreview()
	assert.False(t, h.tr.Previewing())
	assert.Equal(t, Playing, h.tr.State())
	previewTimer.fire()
	assert.Len(t, h.passes, 2)
}

func TestPreviewIgnoresMuteAfterUpdate(t *testing.T) {
	h := newHarness(t)
	p := twoSecondSong(t)
	lead := p.Tracks[0]
	p, err := project.SetMute(p, lead.ID, true)
	require.NoError(t, err)
	require.NoError(t, h.tr.Preview(context.Background(), p, lead.ID, lead.Blocks[0].ID, PreviewOptions{Loop: true}))
	bus, ok := h.tr.preview.outputs.Bus(lead.ID)
	require.True(t, ok)
	assert.InDelta(t, lead.Volume, bus.Gain().ValueAt(h.clock.Now()), 1e-9)

	h.advance(0.25)
	now := h.clock.Now()
	edited, err := project.SetMute(p, p.Tracks[1].ID, true)
	require.NoError(t, err)
	h.tr.UpdateProject(edited)
	assert.InDelta(t, lead.Volume, bus.Gain().ValueAt(now+scheduler.GainRamp), 1e-9)
	assert.Len(t, h.passes[0].res.Placements, 4)
}

func TestPreviewStopsWhenBlockDeleted(t *testing.T) {
	h := newHarness(t)
	p := twoSecondSong(t)
	lead := p.Tracks[0]
	require.NoError(t, h.tr.Preview(context.Background(), p, lead.ID, lead.Blocks[0].ID, PreviewOptions{Loop: true}))
	edited, err := project.DeleteBlock(p, lead.ID, lead.Blocks[0].ID)
	require.NoError(t, err)
	h.tr.UpdateProject(edited)

	h.timers.last().fire()
	assert.False(t, h.tr.Previewing())
	assert.Len(t, h.passes, 1)
}

func TestPreviewUnknownBlock(t *testing.T) {
	h := newHarness(t)
	p := twoSecondSong(t)
	err := h.tr.Preview(context.Background(), p, p.Tracks[0].ID, "nope", PreviewOptions{})
	assert.ErrorIs(t, err, project.ErrNotFound)
	assert.False(t, h.tr.Previewing())
}

type brokenClock struct {
	*clock.Context
}

func (brokenClock) Resume(context.Context) error { return errors.New("no output device") }

func TestPlayWithoutAudioIsNotReady(t *testing.T) {
	c := brokenClock{clock.New(testRate)}
	log, _ := test.NewNullLogger()
	tr := New(c, WithTimers(&fakeTimers{}), WithLogger(log))

	err := tr.Play(context.Background(), twoSecondSong(t), PlayOptions{})
	assert.ErrorIs(t, err, ErrNotReady)
	assert.Equal(t, Stopped, tr.State())
	assert.Equal(t, 0, c.Scheduled())
}

func TestPlayLogs(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.tr.Play(context.Background(), twoSecondSong(t), PlayOptions{}))
	require.NotNil(t, h.hook.LastEntry())
	assert.Equal(t, "transport: playing", h.hook.LastEntry().Message)
	h.tr.Stop()
	assert.Equal(t, "transport: stopped", h.hook.LastEntry().Message)
	h.tr.Close()
}
