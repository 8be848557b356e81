package project

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveAndLoadFile(t *testing.T) {
	dir := t.TempDir()
	p := NewDefaultProject()
	p.Name = "files"
	p.Tracks[0].Blocks[0].Notes = []Note{{Pitch: 67, Start: 1, Duration: 0.5, Velocity: 0.75}}

	for _, name := range []string{"song.json", "song.yml", "song.yaml"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name)
			require.NoError(t, SaveFile(path, p))
			got, err := LoadFile(path)
			require.NoError(t, err)
			assert.Equal(t, p, got)
		})
	}
	assert.Equal(t, FormatYAML, FormatForPath("A.YAML"))
	assert.Equal(t, FormatJSON, FormatForPath("a.txt"))
}

func TestDecodeLenientFields(t *testing.T) {
	p, err := Decode([]byte(`
name: yaml song
bpm: "90"
tracks:
  - type: drums
    console: basics
    blocks:
      - length: 2
        pattern:
          rows: [kick]
          events:
            - drum: kick
              start: 0.5
`))
	require.NoError(t, err)
	assert.Equal(t, "yaml song", p.Name)
	assert.Equal(t, 90.0, p.BPM)
	pat := p.Tracks[0].Blocks[0].Pattern
	assert.Equal(t, DrumKit(ConsoleBasics), pat.Rows)
	require.Len(t, pat.Events, 1)
	assert.Equal(t, 0.5, pat.Events[0].Start)
	assert.Equal(t, 0.8, pat.Events[0].Velocity)
	assert.NotEmpty(t, pat.Events[0].ID)
	assert.Equal(t, 0.6, p.Tracks[1].Volume, "padded from the template")
}

func TestDecodeGarbage(t *testing.T) {
	p, err := Decode([]byte("{\x00 not: [valid"))
	assert.Error(t, err)
	require.NotNil(t, p)
	assert.Len(t, p.Tracks, MinTracks)
}

func TestLoadCache(t *testing.T) {
	dir := t.TempDir()
	log, hook := test.NewNullLogger()

	p := LoadCache(filepath.Join(dir, "missing.json"), log)
	assert.Len(t, p.Tracks, MinTracks)
	assert.Empty(t, hook.AllEntries())

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{\x00 not: [valid"), 0o644))
	p = LoadCache(bad, log)
	assert.Len(t, p.Tracks, MinTracks)
	require.Len(t, hook.AllEntries(), 1)
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)

	good := filepath.Join(dir, "cache", "autosave.json")
	saved := NewDefaultProject()
	saved.BPM = 150
	require.NoError(t, SaveCache(good, saved))
	assert.Equal(t, saved, LoadCache(good, log))
	assert.Len(t, hook.AllEntries(), 1)
}
