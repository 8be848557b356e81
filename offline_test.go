package chipstep

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"math"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cbegin/chipstep/internal/project"
)

const testRate = 8000

func phrase(t testing.TB) *project.Project {
	t.Helper()
	p := project.NewDefaultProject()
	lead, bass, drums := p.Tracks[0], p.Tracks[2], p.Tracks[3]
	var err error
	for i, pitch := range []int{72, 76, 79, 84} {
		p, _, err = project.AddNote(p, lead.ID, lead.Blocks[0].ID, project.Note{Pitch: pitch, Start: float64(i), Duration: 0.75, Velocity: 0.9})
		require.NoError(t, err)
	}
	p, _, err = project.AddNote(p, bass.ID, bass.Blocks[0].ID, project.Note{Pitch: 48, Duration: 4, Velocity: 1})
	require.NoError(t, err)
	for _, hit := range []struct {
		drum  string
		start float64
	}{{"kick", 0}, {"snare", 1}, {"kick", 2}, {"snare", 3}, {"hat", 0.5}, {"hat", 2.5}} {
		p, err = project.ToggleDrumEvent(p, drums.ID, drums.Blocks[0].ID, hit.drum, hit.start, 1)
		require.NoError(t, err)
	}
	return p
}

func render(t testing.TB, p *project.Project, ignore bool) *Buffer {
	t.Helper()
	log, _ := test.NewNullLogger()
	buf, err := RenderProject(p, RenderOptions{SampleRate: testRate, IgnoreMuteSolo: ignore, Logger: log})
	require.NoError(t, err)
	return buf
}

func TestRenderLength(t *testing.T) {
	buf := render(t, project.NewDefaultProject(), false)
	assert.Equal(t, testRate, buf.SampleRate)
	assert.Equal(t, 2, buf.Channels)
	// four beats at 120 bpm plus the one second tail
	assert.Equal(t, 3*testRate, buf.Frames())
	assert.Equal(t, float32(0), buf.Peak())
}

func TestRenderIsDeterministic(t *testing.T) {
	p := phrase(t)
	a := sha256.Sum256(EncodeWAV(render(t, p, false)))
	b := sha256.Sum256(EncodeWAV(render(t, p, false)))
	assert.Equal(t, a, b)
}

func TestRenderProducesSound(t *testing.T) {
	buf := render(t, phrase(t), false)
	assert.Greater(t, buf.Peak(), float32(0.05))
	// the tail after the last release is silent
	tail := buf.Samples[len(buf.Samples)-2*testRate/4:]
	for _, s := range tail {
		require.Equal(t, float32(0), s)
	}
}

func TestRenderNoteRunningIntoTail(t *testing.T) {
	p := project.NewDefaultProject()
	lead := &p.Tracks[0]
	lead.Blocks[0].Notes = append(lead.Blocks[0].Notes, project.Note{Pitch: 60, Duration: 64, Velocity: 1})
	p = project.Normalize(p)

	buf := render(t, p, false)
	require.Equal(t, 3*testRate, buf.Frames())
	require.NotZero(t, buf.Frames()%128)
	last := buf.Samples[len(buf.Samples)-2*testRate/10:]
	var peak float32
	for _, s := range last {
		peak = max(peak, float32(math.Abs(float64(s))))
	}
	assert.Greater(t, peak, float32(0.01))
}

func TestRenderMuteSolo(t *testing.T) {
	p := phrase(t)
	for i := range p.Tracks {
		p.Tracks[i].Mute = true
	}
	assert.Equal(t, float32(0), render(t, p, false).Peak())
	assert.Greater(t, render(t, p, true).Peak(), float32(0.05))
	// the caller's project is left alone
	assert.True(t, p.Tracks[0].Mute)
}

func TestRenderPanIsStereo(t *testing.T) {
	p := project.NewDefaultProject()
	lead := p.Tracks[0]
	p, _, err := project.AddNote(p, lead.ID, lead.Blocks[0].ID, project.Note{Pitch: 60, Duration: 2, Velocity: 1})
	require.NoError(t, err)
	p, err = project.SetPan(p, lead.ID, 1)
	require.NoError(t, err)

	buf := render(t, p, false)
	var left, right float64
	for i := 0; i+1 < len(buf.Samples); i += 2 {
		left += math.Abs(float64(buf.Samples[i]))
		right += math.Abs(float64(buf.Samples[i+1]))
	}
	assert.Greater(t, right, 0.0)
	assert.Less(t, left, right*1e-6)
}

func TestRenderLimiterCapsPeaks(t *testing.T) {
	p := phrase(t)
	lead := p.Tracks[0]
	var err error
	// stack the lead line into a loud chord
	for _, pitch := range []int{60, 64, 67, 71, 74} {
		p, _, err = project.AddNote(p, lead.ID, lead.Blocks[0].ID, project.Note{Pitch: pitch, Duration: 4, Velocity: 1})
		require.NoError(t, err)
	}
	log, _ := test.NewNullLogger()
	raw, err := RenderProject(p, RenderOptions{SampleRate: testRate, Logger: log})
	require.NoError(t, err)
	limited, err := RenderProject(p, RenderOptions{SampleRate: testRate, Limit: true, Logger: log})
	require.NoError(t, err)
	assert.LessOrEqual(t, limited.Peak(), raw.Peak())
	assert.Greater(t, limited.Peak(), float32(0.05))
}

func TestRenderRejectsBadInput(t *testing.T) {
	_, err := RenderProject(nil, RenderOptions{})
	assert.Error(t, err)
	_, err = RenderProject(project.NewDefaultProject(), RenderOptions{SampleRate: -1})
	assert.Error(t, err)
}

func TestEncodeWAV(t *testing.T) {
	buf := &Buffer{SampleRate: 22050, Channels: 2, Samples: []float32{2, -2, 0.5, -0.5, 0, float32(math.NaN())}}
	wav := EncodeWAV(buf)
	require.Len(t, wav, 44+12)

	assert.Equal(t, "RIFF", string(wav[0:4]))
	assert.Equal(t, uint32(36+12), binary.LittleEndian.Uint32(wav[4:]))
	assert.Equal(t, "WAVE", string(wav[8:12]))
	assert.Equal(t, "fmt ", string(wav[12:16]))
	assert.Equal(t, uint32(16), binary.LittleEndian.Uint32(wav[16:]))
	assert.Equal(t, uint16(1), binary.LittleEndian.Uint16(wav[20:]))
	assert.Equal(t, uint16(2), binary.LittleEndian.Uint16(wav[22:]))
	assert.Equal(t, uint32(22050), binary.LittleEndian.Uint32(wav[24:]))
	assert.Equal(t, uint32(22050*4), binary.LittleEndian.Uint32(wav[28:]))
	assert.Equal(t, uint16(4), binary.LittleEndian.Uint16(wav[32:]))
	assert.Equal(t, uint16(16), binary.LittleEndian.Uint16(wav[34:]))
	assert.Equal(t, "data", string(wav[36:40]))
	assert.Equal(t, uint32(12), binary.LittleEndian.Uint32(wav[40:]))

	var got []int16
	for i := 44; i < len(wav); i += 2 {
		got = append(got, int16(binary.LittleEndian.Uint16(wav[i:])))
	}
	assert.Equal(t, []int16{32767, -32768, 16384, -16384, 0, 0}, got)
}

func TestEncodeWAVFloat32(t *testing.T) {
	buf := &Buffer{SampleRate: 48000, Channels: 2, Samples: []float32{1.5, -0.25}}
	wav := EncodeWAVFloat32LE(buf)
	require.Len(t, wav, 44+8)
	assert.Equal(t, uint16(3), binary.LittleEndian.Uint16(wav[20:]))
	assert.Equal(t, uint16(32), binary.LittleEndian.Uint16(wav[34:]))
	assert.Equal(t, uint32(48000*8), binary.LittleEndian.Uint32(wav[28:]))
	assert.Equal(t, float32(1.5), math.Float32frombits(binary.LittleEndian.Uint32(wav[44:])))
}

func TestWriteWAV(t *testing.T) {
	var out bytes.Buffer
	buf := &Buffer{SampleRate: 8000, Channels: 2, Samples: make([]float32, 8)}
	require.NoError(t, WriteWAV(&out, buf))
	assert.Equal(t, EncodeWAV(buf), out.Bytes())
}

func BenchmarkRenderProject(b *testing.B) {
	p := phrase(b)
	log, _ := test.NewNullLogger()
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := RenderProject(p, RenderOptions{SampleRate: 22050, Logger: log}); err != nil {
			b.Fatal(err)
		}
	}
}
