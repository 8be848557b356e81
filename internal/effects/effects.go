// Package effects holds the master-bus processors: a linked stereo limiter
// that keeps dense arrangements out of clipping and a five-band EQ. They
// run on whole render quanta, in place.
package effects

// Effector processes a block of stereo audio in place.
type Effector interface {
	Process(l, r []float32)
	Reset()
}

// Chain applies a sequence of effects in order.
type Chain struct {
	effects []Effector
}

func NewChain(effects ...Effector) *Chain {
	return &Chain{effects: effects}
}

func (c *Chain) Process(l, r []float32) {
	for _, e := range c.effects {
		e.Process(l, r)
	}
}

func (c *Chain) Reset() {
	for _, e := range c.effects {
		e.Reset()
	}
}

func (c *Chain) Add(e Effector) {
	c.effects = append(c.effects, e)
}
