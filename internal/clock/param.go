package clock

import (
	"math"
	"sort"
	"sync"
)

type rampKind int

const (
	rampSet rampKind = iota
	rampLinear
	rampExponential
)

type paramEvent struct {
	kind  rampKind
	time  float64
	value float64
}

// Param is an automation timeline: a value that changes at scheduled
// instants, either by jumping or by linear or exponential ramps that end at
// the event time and start from the previous event.
type Param struct {
	mu     *sync.Mutex
	def    float64
	events []paramEvent
}

// NewParam returns a standalone param. Params made by a Context share its
// lock instead.
func NewParam(value float64) *Param {
	return &Param{mu: &sync.Mutex{}, def: value}
}

func (p *Param) insert(ev paramEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.insertLocked(ev)
}

func (p *Param) insertLocked(ev paramEvent) {
	i := sort.Search(len(p.events), func(i int) bool { return p.events[i].time > ev.time })
	p.events = append(p.events, paramEvent{})
	copy(p.events[i+1:], p.events[i:])
	p.events[i] = ev
}

// SetValueAt jumps to value at time t.
func (p *Param) SetValueAt(value, t float64) {
	p.insert(paramEvent{rampSet, t, value})
}

// LinearRampTo reaches value at time t along a straight line.
func (p *Param) LinearRampTo(value, t float64) {
	p.insert(paramEvent{rampLinear, t, value})
}

// ExponentialRampTo reaches value at time t along an exponential curve.
// When the start or end value is not strictly positive, the previous value
// is held until t instead.
func (p *Param) ExponentialRampTo(value, t float64) {
	p.insert(paramEvent{rampExponential, t, value})
}

// CancelAfter removes every event at or after t.
func (p *Param) CancelAfter(t float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cancelLocked(t)
}

func (p *Param) cancelLocked(t float64) {
	i := sort.Search(len(p.events), func(i int) bool { return p.events[i].time >= t })
	p.events = p.events[:i]
}

// HoldAt freezes the value the param has at t: later events are dropped
// and the current value is pinned at t, so a new ramp can start from it.
func (p *Param) HoldAt(t float64) float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	v := p.valueAt(t)
	p.cancelLocked(t)
	p.insertLocked(paramEvent{rampSet, t, v})
	return v
}

// ValueAt evaluates the timeline at t.
func (p *Param) ValueAt(t float64) float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.valueAt(t)
}

func (p *Param) valueAt(t float64) float64 {
	// first event strictly after t
	i := sort.Search(len(p.events), func(i int) bool { return p.events[i].time > t })
	prevTime, prevValue := 0.0, p.def
	if i > 0 {
		prevTime, prevValue = p.events[i-1].time, p.events[i-1].value
	}
	if i == len(p.events) {
		return prevValue
	}
	next := p.events[i]
	span := next.time - prevTime
	if span <= 0 {
		return prevValue
	}
	x := (t - prevTime) / span
	switch next.kind {
	case rampLinear:
		return prevValue + (next.value-prevValue)*x
	case rampExponential:
		if prevValue <= 0 || next.value <= 0 {
			return prevValue
		}
		return prevValue * math.Pow(next.value/prevValue, x)
	}
	return prevValue
}

// fill writes the param value for consecutive frames starting at frame.
func (p *Param) fill(dst []float32, frame int64, rate float64) {
	if len(p.events) == 0 {
		for i := range dst {
			dst[i] = float32(p.def)
		}
		return
	}
	for i := range dst {
		dst[i] = float32(p.valueAt(float64(frame+int64(i)) / rate))
	}
}
