package project

import "math"

// Quantize snaps block boundaries, note starts/durations and drum hit
// starts/durations to multiples of snap beats, then trims whatever ended up
// outside its block. Lengths and durations never round below one snap.
// A non-positive or non-finite snap returns an unchanged copy.
func Quantize(p *Project, snap float64) *Project {
	out := p.Clone()
	if out == nil || !isFinite(snap) || snap <= 0 {
		return out
	}
	for i := range out.Tracks {
		for j := range out.Tracks[i].Blocks {
			b := &out.Tracks[i].Blocks[j]
			b.StartBeat = snapTo(b.StartBeat, snap)
			b.Length = math.Max(snap, snapTo(b.Length, snap))
			for k := range b.Notes {
				n := &b.Notes[k]
				n.Start = snapTo(n.Start, snap)
				n.Duration = math.Max(snap, snapTo(n.Duration, snap))
			}
			if b.Pattern != nil {
				for k := range b.Pattern.Events {
					ev := &b.Pattern.Events[k]
					ev.Start = snapTo(ev.Start, snap)
					ev.Duration = math.Max(math.Max(snap, MinDrumDuration), snapTo(ev.Duration, snap))
				}
			}
			TrimBlock(b)
		}
	}
	return out
}

func snapTo(v, snap float64) float64 {
	return math.Max(0, math.Round(v/snap)*snap)
}
