package project

// DefaultHistoryDepth bounds the undo stack when NewHistory is given a
// non-positive depth.
const DefaultHistoryDepth = 100

// History keeps undo/redo stacks of project snapshots. Every project that
// enters or leaves the history is deep-copied, so editing the value returned
// by Current never changes a stored snapshot.
type History struct {
	current *Project
	undo    []*Project
	redo    []*Project
	depth   int
}

func NewHistory(initial *Project, depth int) *History {
	if depth <= 0 {
		depth = DefaultHistoryDepth
	}
	if initial == nil {
		initial = NewDefaultProject()
	}
	return &History{current: initial.Clone(), depth: depth}
}

// Current returns a copy of the live project.
func (h *History) Current() *Project {
	return h.current.Clone()
}

// Commit makes p the live project and pushes the previous one onto the undo
// stack. The redo stack is cleared.
func (h *History) Commit(p *Project) {
	h.undo = pushBounded(h.undo, h.current, h.depth)
	h.current = p.Clone()
	h.redo = nil
}

// Undo restores the previous snapshot. It reports false when there is
// nothing to undo.
func (h *History) Undo() (*Project, bool) {
	if len(h.undo) == 0 {
		return h.Current(), false
	}
	h.redo = pushBounded(h.redo, h.current, h.depth)
	h.current = h.undo[len(h.undo)-1]
	h.undo = h.undo[:len(h.undo)-1]
	return h.Current(), true
}

func (h *History) Redo() (*Project, bool) {
	if len(h.redo) == 0 {
		return h.Current(), false
	}
	h.undo = pushBounded(h.undo, h.current, h.depth)
	h.current = h.redo[len(h.redo)-1]
	h.redo = h.redo[:len(h.redo)-1]
	return h.Current(), true
}

func (h *History) CanUndo() bool { return len(h.undo) > 0 }
func (h *History) CanRedo() bool { return len(h.redo) > 0 }

// pushBounded appends p and drops the oldest entries beyond depth.
func pushBounded(stack []*Project, p *Project, depth int) []*Project {
	stack = append(stack, p)
	if len(stack) > depth {
		n := copy(stack, stack[len(stack)-depth:])
		clear(stack[n:])
		stack = stack[:n]
	}
	return stack
}
