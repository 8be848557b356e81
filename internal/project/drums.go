package project

// EnsureDrumPattern reconciles the block's drum pattern with rows and stores
// the result on b. Events on rows that still exist are kept, events on
// removed rows are dropped, and every row gets a volume (DefaultRowVolume
// when it had none). Calling it again with the same rows yields an equal
// pattern. The rows slice is copied, never retained.
func EnsureDrumPattern(b *Block, rows []string) *DrumPattern {
	out := &DrumPattern{
		Rows:    make([]string, 0, len(rows)),
		Events:  []DrumEvent{},
		Volumes: make(map[string]float64, len(rows)),
	}
	valid := make(map[string]bool, len(rows))
	for _, r := range rows {
		if r == "" || valid[r] {
			continue
		}
		valid[r] = true
		out.Rows = append(out.Rows, r)
	}

	var prev *DrumPattern
	if b != nil {
		prev = b.Pattern
	}
	if prev != nil {
		seen := make(map[string]bool, len(prev.Events))
		for _, ev := range prev.Events {
			if !valid[ev.Drum] {
				continue
			}
			ev = sanitizeDrumEvent(ev)
			if seen[ev.ID] {
				ev.ID = NewID()
			}
			seen[ev.ID] = true
			out.Events = append(out.Events, ev)
		}
	}
	for _, r := range out.Rows {
		vol := DefaultRowVolume
		if prev != nil {
			if v, ok := prev.Volumes[r]; ok && isFinite(v) {
				vol = clamp(v, 0, 1)
			}
		}
		out.Volumes[r] = vol
	}
	if b != nil {
		b.Pattern = out
	}
	return out
}

func sanitizeDrumEvent(ev DrumEvent) DrumEvent {
	if ev.ID == "" {
		ev.ID = NewID()
	}
	if !isFinite(ev.Start) || ev.Start < 0 {
		ev.Start = 0
	}
	if !isFinite(ev.Duration) || ev.Duration <= 0 {
		ev.Duration = defaultDrumDuration
	}
	if ev.Duration < MinDrumDuration {
		ev.Duration = MinDrumDuration
	}
	if !isFinite(ev.Velocity) {
		ev.Velocity = defaultVelocity
	}
	ev.Velocity = clamp(ev.Velocity, 0, 1)
	return ev
}

// RowVolume returns the level of a drum row, DefaultRowVolume when unset.
func (d *DrumPattern) RowVolume(row string) float64 {
	if d == nil {
		return DefaultRowVolume
	}
	if v, ok := d.Volumes[row]; ok {
		return v
	}
	return DefaultRowVolume
}

// HasRow reports whether row is part of the pattern.
func (d *DrumPattern) HasRow(row string) bool {
	if d == nil {
		return false
	}
	for _, r := range d.Rows {
		if r == row {
			return true
		}
	}
	return false
}
