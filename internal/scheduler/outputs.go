package scheduler

import (
	"sync"

	"github.com/cbegin/chipstep/internal/clock"
	"github.com/cbegin/chipstep/internal/project"
)

// GainRamp is how long a live volume, mute or solo change takes to settle.
const GainRamp = 0.015

// TrackOutputs keeps one gain/pan bus per track, keyed by track id, so that
// repeated scheduling passes in one session mix into the same buses.
type TrackOutputs struct {
	mu     sync.Mutex
	clock  Clock
	parent *clock.Bus
	buses  map[string]*clock.Bus
	order  []string
}

// NewTrackOutputs creates an empty set of outputs feeding parent, or the
// clock's master bus when parent is nil.
func NewTrackOutputs(c Clock, parent *clock.Bus) *TrackOutputs {
	if parent == nil {
		parent = c.Master()
	}
	return &TrackOutputs{clock: c, parent: parent, buses: map[string]*clock.Bus{}}
}

// Output returns the bus for t, creating it at level gain when missing.
// It returns nil once the parent bus has been disconnected.
func (o *TrackOutputs) Output(t *project.Track, gain float64) *clock.Bus {
	o.mu.Lock()
	defer o.mu.Unlock()
	if b, ok := o.buses[t.ID]; ok && !b.Disconnected() {
		return b
	}
	if o.parent.Disconnected() {
		return nil
	}
	b := o.clock.NewBus(o.parent)
	b.Gain().SetValueAt(gain, o.clock.Now())
	b.SetPan(t.Pan)
	if _, ok := o.buses[t.ID]; !ok {
		o.order = append(o.order, t.ID)
	}
	o.buses[t.ID] = b
	return b
}

// Bus returns the existing bus for a track id.
func (o *TrackOutputs) Bus(id string) (*clock.Bus, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	b, ok := o.buses[id]
	return b, ok
}

// Apply ramps every existing output to the track's current volume, pan and
// mute/solo state, starting at time at. With ignoreMuteSolo only volume and
// pan follow the project, as for block preview. Tracks without an output
// are left for the next scheduling pass.
func (o *TrackOutputs) Apply(p *project.Project, at float64, ignoreMuteSolo bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for i := range p.Tracks {
		t := &p.Tracks[i]
		b, ok := o.buses[t.ID]
		if !ok {
			continue
		}
		g := b.Gain()
		g.HoldAt(at)
		level := t.Volume
		if !ignoreMuteSolo {
			level = trackGain(p, t)
		}
		g.LinearRampTo(level, at+GainRamp)
		b.SetPan(t.Pan)
	}
}

// IDs lists track ids in the order their outputs were created.
func (o *TrackOutputs) IDs() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]string(nil), o.order...)
}

func (o *TrackOutputs) Len() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.buses)
}

// Reset forgets every output. The buses themselves go away with their
// parent.
func (o *TrackOutputs) Reset() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.buses = map[string]*clock.Bus{}
	o.order = nil
}

// trackGain is the output level for t with mute/solo folded in.
func trackGain(p *project.Project, t *project.Track) float64 {
	if !p.Audible(t) {
		return 0
	}
	return t.Volume
}
