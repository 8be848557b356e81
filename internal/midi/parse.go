// Package midi reads Standard MIDI Files into note events and turns them
// into composer projects. It also writes projects back out as SMF.
package midi

import (
	"encoding/binary"
	"fmt"
)

const (
	// DefaultTempo is the SMF default of 120 bpm, in microseconds per
	// quarter note.
	DefaultTempo = 500000
	// SMPTE divisions are not supported and fall back to this resolution.
	fallbackTicksPerQuarter = 480

	drumChannel = 9
)

// File is the parsed content of a Standard MIDI File.
type File struct {
	Format          int
	TicksPerQuarter int
	// TempoMicros is the last Set Tempo value found anywhere in the file.
	// Tempo changes are not modelled as a timeline.
	TempoMicros int
	TrackCount  int
	Notes       []NoteEvent
}

// NoteEvent is one paired Note-On/Note-Off.
type NoteEvent struct {
	Track     int
	Channel   int
	Pitch     int
	Velocity  int
	StartTick int64
	EndTick   int64
}

// Parse decodes an SMF byte stream of format 0 or 1.
func Parse(data []byte) (*File, error) {
	if len(data) < 8 || string(data[:4]) != "MThd" {
		return nil, formatErrorf(0, "missing MThd header")
	}
	hdrLen := int(binary.BigEndian.Uint32(data[4:8]))
	if hdrLen < 6 {
		return nil, formatErrorf(4, "header length %d too short", hdrLen)
	}
	if 8+hdrLen > len(data) {
		return nil, formatErrorf(4, "header length %d exceeds data", hdrLen)
	}
	f := &File{
		Format:          int(binary.BigEndian.Uint16(data[8:10])),
		TicksPerQuarter: fallbackTicksPerQuarter,
		TempoMicros:     DefaultTempo,
	}
	declared := int(binary.BigEndian.Uint16(data[10:12]))
	division := binary.BigEndian.Uint16(data[12:14])
	if division&0x8000 == 0 && division > 0 {
		f.TicksPerQuarter = int(division)
	}

	pos := 8 + hdrLen
	for pos+8 <= len(data) {
		id := data[pos : pos+4]
		if string(id) != "MTrk" {
			return nil, formatErrorf(pos, "bad chunk signature %q", id)
		}
		size := int(binary.BigEndian.Uint32(data[pos+4 : pos+8]))
		start := pos + 8
		if size < 0 || start+size > len(data) {
			return nil, formatErrorf(pos, "chunk %q of %d bytes runs past end of data", id, size)
		}
		if err := f.parseTrack(data[start:start+size], f.TrackCount, start); err != nil {
			return nil, err
		}
		f.TrackCount++
		pos = start + size
	}
	if f.TrackCount == 0 && declared > 0 {
		return nil, formatErrorf(pos, "no MTrk chunk found, header declares %d", declared)
	}
	return f, nil
}

// parseTrack walks one MTrk chunk. base is the chunk's offset in the file
// and is only used for error positions.
func (f *File) parseTrack(track []byte, index, base int) error {
	var (
		tick    int64
		running byte
		pos     int
		// open holds indexes into notes of still-sounding notes per
		// channel and pitch, oldest first.
		open  = map[int][]int{}
		notes []NoteEvent
	)
	fail := func(at int, format string, args ...any) error {
		return formatErrorf(base+at, format, args...)
	}

events:
	for pos < len(track) {
		delta, next, err := ReadVarLen(track, pos)
		if err != nil {
			return fail(pos, "delta time: %v", err)
		}
		pos = next
		tick += int64(delta)
		if pos >= len(track) {
			return fail(pos, "event missing after delta time")
		}

		status := track[pos]
		if status&0x80 != 0 {
			pos++
			if status < 0xf0 {
				running = status
			}
		} else {
			if running == 0 {
				return fail(pos, "data byte 0x%02x without running status", status)
			}
			status = running
		}

		switch {
		case status == 0xff:
			if pos >= len(track) {
				return fail(pos, "meta event missing type")
			}
			typ := track[pos]
			length, next, err := ReadVarLen(track, pos+1)
			if err != nil {
				return fail(pos+1, "meta length: %v", err)
			}
			end := next + int(length)
			if end > len(track) {
				return fail(pos, "meta event 0x%02x runs past end of track", typ)
			}
			switch typ {
			case 0x51:
				if length >= 3 {
					if tempo := int(track[next])<<16 | int(track[next+1])<<8 | int(track[next+2]); tempo > 0 {
						f.TempoMicros = tempo
					}
				}
			case 0x2f:
				pos = end
				break events
			}
			pos = end
		case status == 0xf0 || status == 0xf7:
			running = 0
			length, next, err := ReadVarLen(track, pos)
			if err != nil {
				return fail(pos, "sysex length: %v", err)
			}
			if next+int(length) > len(track) {
				return fail(pos, "sysex runs past end of track")
			}
			pos = next + int(length)
		case status >= 0xf0:
			pos += systemDataLen(status)
			if pos > len(track) {
				return fail(pos, "system message 0x%02x truncated", status)
			}
		default:
			n := 2
			if kind := status & 0xf0; kind == 0xc0 || kind == 0xd0 {
				n = 1
			}
			if pos+n > len(track) {
				return fail(pos, "channel message 0x%02x truncated", status)
			}
			kind, ch := status&0xf0, int(status&0x0f)
			if kind == 0x80 || kind == 0x90 {
				pitch, vel := int(track[pos]&0x7f), int(track[pos+1]&0x7f)
				key := ch<<7 | pitch
				if kind == 0x90 && vel > 0 {
					open[key] = append(open[key], len(notes))
					notes = append(notes, NoteEvent{
						Track:     index,
						Channel:   ch,
						Pitch:     pitch,
						Velocity:  vel,
						StartTick: tick,
						EndTick:   -1,
					})
				} else if q := open[key]; len(q) > 0 {
					notes[q[0]].EndTick = tick
					open[key] = q[1:]
				}
			}
			pos += n
		}
	}

	for i := range notes {
		if notes[i].EndTick < 0 {
			notes[i].EndTick = tick
		}
	}
	f.Notes = append(f.Notes, notes...)
	return nil
}

func systemDataLen(status byte) int {
	switch status {
	case 0xf2:
		return 2
	case 0xf1, 0xf3:
		return 1
	}
	return 0
}

// Beats converts a tick count to beats at the file's resolution.
func (f *File) Beats(ticks int64) float64 {
	return float64(ticks) / float64(f.TicksPerQuarter)
}

// BPM returns the tempo implied by TempoMicros.
func (f *File) BPM() float64 {
	if f.TempoMicros <= 0 {
		return 60e6 / DefaultTempo
	}
	return 60e6 / float64(f.TempoMicros)
}

func (n NoteEvent) String() string {
	return fmt.Sprintf("track %d ch %d pitch %d vel %d [%d,%d)", n.Track, n.Channel, n.Pitch, n.Velocity, n.StartTick, n.EndTick)
}
