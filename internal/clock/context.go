// Package clock is the audio graph the composer schedules into: a sample
// counter that defines time, a tree of gain/pan buses, automation params,
// and the voices playing through them. Process pulls interleaved stereo
// frames from it, either for a realtime device or for an offline render.
package clock

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/viterin/vek/vek32"
)

// Quantum is the number of frames rendered between graph updates. Bus
// disconnects and voice retirement take effect on quantum boundaries.
const Quantum = 128

var ErrClosed = errors.New("clock closed")

type State int

const (
	Suspended State = iota
	Running
	Closed
)

func (s State) String() string {
	switch s {
	case Suspended:
		return "suspended"
	case Running:
		return "running"
	case Closed:
		return "closed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Voice is a sound source placed on the timeline. synth.Voice satisfies it.
type Voice interface {
	Next() float64
	Active(t float64) bool
	StartTime() float64
	StopTime() float64
}

type playing struct {
	voice Voice
	env   *Param
	dest  *Bus
}

type Context struct {
	mu        sync.Mutex
	rate      float64
	frame     int64
	state     State
	master    *Bus
	buses     []*Bus
	voices    []playing
	scheduled int
	onResume  func(context.Context) error

	scratch []float32
	env     []float32
}

// New returns a suspended context running at sampleRate. Time does not
// advance until Resume succeeds.
func New(sampleRate int) *Context {
	if sampleRate <= 0 {
		sampleRate = 48000
	}
	c := &Context{
		rate:    float64(sampleRate),
		scratch: make([]float32, Quantum),
		env:     make([]float32, Quantum),
	}
	c.master = c.newBusLocked(nil)
	return c
}

// OnResume installs a hook run by Resume before the context starts, such as
// starting an output device. A hook error leaves the context suspended.
func (c *Context) OnResume(fn func(context.Context) error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onResume = fn
}

func (c *Context) Resume(ctx context.Context) error {
	c.mu.Lock()
	switch c.state {
	case Closed:
		c.mu.Unlock()
		return ErrClosed
	case Running:
		c.mu.Unlock()
		return nil
	}
	hook := c.onResume
	c.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	if hook != nil {
		if err := hook(ctx); err != nil {
			return fmt.Errorf("resume: %w", err)
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == Closed {
		return ErrClosed
	}
	c.state = Running
	return nil
}

// Close stops the context for good and drops every voice and bus.
func (c *Context) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = Closed
	c.voices = nil
	for _, b := range c.buses[1:] {
		b.gone = true
	}
	c.buses = c.buses[:1]
}

func (c *Context) Now() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return float64(c.frame) / c.rate
}

func (c *Context) SampleRate() int { return int(c.rate) }

func (c *Context) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Context) Master() *Bus { return c.master }

// NewParam returns a param guarded by the context lock.
func (c *Context) NewParam(value float64) *Param {
	return &Param{mu: &c.mu, def: value}
}

// Play routes voice through env into dest. A nil env plays at unity, a nil
// dest means the master bus. Voices aimed at a disconnected bus are refused.
func (c *Context) Play(voice Voice, env *Param, dest *Bus) bool {
	if voice == nil {
		return false
	}
	if dest == nil {
		dest = c.master
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == Closed || dest.gone || dest.ctx != c {
		return false
	}
	c.voices = append(c.voices, playing{voice: voice, env: env, dest: dest})
	c.scheduled++
	return true
}

// Scheduled counts voices accepted by Play since the context was created.
func (c *Context) Scheduled() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.scheduled
}

// Active counts voices that have not yet been retired.
func (c *Context) Active() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.voices)
}

// Process fills dst with interleaved stereo frames. A context that is not
// running produces silence and its clock stands still.
func (c *Context) Process(dst []float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != Running {
		clear(dst)
		return
	}
	frames := len(dst) / 2
	for off := 0; off < frames; off += Quantum {
		n := min(Quantum, frames-off)
		c.renderQuantum(n)
		l, r := c.master.l[:n], c.master.r[:n]
		for i := 0; i < n; i++ {
			dst[(off+i)*2] = l[i]
			dst[(off+i)*2+1] = r[i]
		}
		c.frame += int64(n)
	}
	if len(dst)%2 == 1 {
		dst[len(dst)-1] = 0
	}
}

func (c *Context) renderQuantum(n int) {
	t0 := float64(c.frame) / c.rate
	c.pruneBuses(t0)
	for _, b := range c.buses {
		clear(b.l[:n])
		clear(b.r[:n])
	}

	s, e := c.scratch[:n], c.env[:n]
	live := c.voices[:0]
	for _, pv := range c.voices {
		if pv.dest.gone || t0 >= pv.voice.StopTime() {
			continue
		}
		live = append(live, pv)
		if pv.voice.StartTime() >= float64(c.frame+int64(n))/c.rate {
			continue
		}
		for i := 0; i < n; i++ {
			t := float64(c.frame+int64(i)) / c.rate
			if !pv.voice.Active(t) {
				s[i], e[i] = 0, 0
				continue
			}
			s[i] = float32(pv.voice.Next())
			if pv.env != nil {
				e[i] = float32(pv.env.valueAt(t))
			} else {
				e[i] = 1
			}
		}
		vek32.Mul_Inplace(s, e)
		vek32.Add_Inplace(pv.dest.l[:n], s)
		vek32.Add_Inplace(pv.dest.r[:n], s)
	}
	clear(c.voices[len(live):])
	c.voices = live

	// children were created after their parents, so walking backwards
	// finishes every bus before it is summed upward
	for i := len(c.buses) - 1; i >= 0; i-- {
		c.buses[i].mix(n, c.frame, c.rate, e)
	}
}

func (c *Context) pruneBuses(t0 float64) {
	kept := c.buses[:1]
	for _, b := range c.buses[1:] {
		if b.gone || t0 >= b.disconnectAt || b.parent.gone {
			b.gone = true
			continue
		}
		kept = append(kept, b)
	}
	clear(c.buses[len(kept):])
	c.buses = kept
}
