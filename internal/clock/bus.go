package clock

import (
	"math"

	"github.com/viterin/vek/vek32"
)

// Insert processes a bus's rendered quantum in place, after gain and pan.
type Insert interface {
	Process(l, r []float32)
}

// Bus is a stereo summing point with a gain param and an optional
// equal-power pan. Every bus except the master feeds a parent.
type Bus struct {
	ctx          *Context
	parent       *Bus
	gain         *Param
	pan          float64
	panned       bool
	disconnectAt float64
	gone         bool
	insert       Insert

	l, r []float32
}

// NewBus creates a bus feeding parent, or the master bus when parent is nil.
func (c *Context) NewBus(parent *Bus) *Bus {
	c.mu.Lock()
	defer c.mu.Unlock()
	if parent == nil {
		parent = c.master
	}
	return c.newBusLocked(parent)
}

func (c *Context) newBusLocked(parent *Bus) *Bus {
	b := &Bus{
		ctx:          c,
		parent:       parent,
		disconnectAt: math.Inf(1),
		l:            make([]float32, Quantum),
		r:            make([]float32, Quantum),
	}
	b.gain = c.NewParam(1)
	if c.state == Closed || (parent != nil && parent.gone) {
		b.gone = true
		return b
	}
	c.buses = append(c.buses, b)
	return b
}

func (b *Bus) Gain() *Param { return b.gain }

// SetPan places the bus in the stereo field, -1 hard left to 1 hard right.
func (b *Bus) SetPan(p float64) {
	if math.IsNaN(p) {
		p = 0
	}
	p = math.Max(-1, math.Min(1, p))
	b.ctx.mu.Lock()
	defer b.ctx.mu.Unlock()
	b.pan = p
	b.panned = true
}

func (b *Bus) Pan() float64 {
	b.ctx.mu.Lock()
	defer b.ctx.mu.Unlock()
	return b.pan
}

// SetInsert installs fx on the bus, replacing any previous insert. nil
// removes it.
func (b *Bus) SetInsert(fx Insert) {
	b.ctx.mu.Lock()
	defer b.ctx.mu.Unlock()
	b.insert = fx
}

// ResetInsert clears the internal state of the insert, when it keeps any.
func (b *Bus) ResetInsert() {
	b.ctx.mu.Lock()
	defer b.ctx.mu.Unlock()
	if r, ok := b.insert.(interface{ Reset() }); ok {
		r.Reset()
	}
}

// DisconnectAt detaches the bus, and everything routed into it, once the
// clock reaches t. The master bus cannot be disconnected.
func (b *Bus) DisconnectAt(t float64) {
	if b.parent == nil {
		return
	}
	b.ctx.mu.Lock()
	defer b.ctx.mu.Unlock()
	if t < b.disconnectAt {
		b.disconnectAt = t
	}
}

// Disconnected reports whether the bus has been removed from the graph.
func (b *Bus) Disconnected() bool {
	b.ctx.mu.Lock()
	defer b.ctx.mu.Unlock()
	return b.gone
}

// mix applies gain and pan to the rendered quantum and sums it into the
// parent. gbuf is scratch space of at least n frames.
func (b *Bus) mix(n int, frame int64, rate float64, gbuf []float32) {
	l, r := b.l[:n], b.r[:n]
	g := gbuf[:n]
	b.gain.fill(g, frame, rate)
	vek32.Mul_Inplace(l, g)
	vek32.Mul_Inplace(r, g)
	if b.panned {
		theta := (b.pan + 1) / 2 * math.Pi / 2
		vek32.MulNumber_Inplace(l, float32(math.Cos(theta)))
		vek32.MulNumber_Inplace(r, float32(math.Sin(theta)))
	}
	if b.insert != nil {
		b.insert.Process(l, r)
	}
	if b.parent != nil {
		vek32.Add_Inplace(b.parent.l[:n], l)
		vek32.Add_Inplace(b.parent.r[:n], r)
	}
}
