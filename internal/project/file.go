package project

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

type Format int

const (
	FormatJSON Format = iota
	FormatYAML
)

// FormatForPath picks YAML for .yml/.yaml files and JSON otherwise.
func FormatForPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yml", ".yaml":
		return FormatYAML
	}
	return FormatJSON
}

// Decode reads a project document, trying JSON first and YAML second, and
// always passes the result through Normalize. Documents that parse as
// neither, or whose fields have the wrong shape, still produce a usable
// project; the returned error only reports that the bytes were unreadable.
func Decode(data []byte) (*Project, error) {
	var doc any
	errJSON := json.Unmarshal(data, &doc)
	if errJSON != nil {
		doc = nil
		if errYAML := yaml.Unmarshal(data, &doc); errYAML != nil {
			return NewDefaultProject(), fmt.Errorf("project is neither json (%v) nor yaml (%w)", errJSON, errYAML)
		}
	}
	return FromValue(doc), nil
}

// FromValue normalizes a generic decoded document (maps, slices, numbers,
// strings) into a project. Fields of the wrong type are treated as missing.
func FromValue(doc any) *Project {
	m, _ := doc.(map[string]any)
	raw := &Project{
		Name: str(m, "name"),
		BPM:  num(m, "bpm", math.NaN()),
	}
	for i, tv := range list(m, "tracks") {
		raw.Tracks = append(raw.Tracks, trackFromValue(tv, i))
	}
	return Normalize(raw)
}

func trackFromValue(v any, index int) Track {
	m, _ := v.(map[string]any)
	tpl := templateFor(index)
	t := Track{
		ID:       str(m, "id"),
		Type:     TrackType(str(m, "type")),
		Console:  Console(str(m, "console")),
		Waveform: str(m, "waveform"),
		Volume:   num(m, "volume", tpl.volume),
		Pan:      num(m, "pan", 0),
		Octave:   int(math.Round(num(m, "octave", float64(tpl.octave)))),
		Mute:     boolean(m, "mute"),
		Solo:     boolean(m, "solo"),
	}
	for _, bv := range list(m, "blocks") {
		t.Blocks = append(t.Blocks, blockFromValue(bv))
	}
	return t
}

func blockFromValue(v any) Block {
	m, _ := v.(map[string]any)
	b := Block{
		ID:        str(m, "id"),
		StartBeat: num(m, "startBeat", 0),
		Length:    num(m, "length", defaultBlockLength),
	}
	for _, nv := range list(m, "notes") {
		nm, _ := nv.(map[string]any)
		b.Notes = append(b.Notes, Note{
			Pitch:    int(math.Round(num(nm, "pitch", 60))),
			Start:    num(nm, "start", 0),
			Duration: num(nm, "duration", defaultNoteDuration),
			Velocity: num(nm, "velocity", defaultVelocity),
		})
	}
	if pm, ok := m["pattern"].(map[string]any); ok {
		pat := &DrumPattern{Volumes: map[string]float64{}}
		for _, r := range list(pm, "rows") {
			if s, ok := r.(string); ok {
				pat.Rows = append(pat.Rows, s)
			}
		}
		for _, ev := range list(pm, "events") {
			em, _ := ev.(map[string]any)
			pat.Events = append(pat.Events, DrumEvent{
				ID:       str(em, "id"),
				Drum:     str(em, "drum"),
				Start:    num(em, "start", 0),
				Duration: num(em, "duration", defaultDrumDuration),
				Velocity: num(em, "velocity", defaultVelocity),
			})
		}
		if vm, ok := pm["volumes"].(map[string]any); ok {
			for k, vv := range vm {
				if f, ok := toFloat(vv); ok {
					pat.Volumes[k] = f
				}
			}
		}
		b.Pattern = pat
	}
	return b
}

func str(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

func boolean(m map[string]any, key string) bool {
	b, _ := m[key].(bool)
	return b
}

func list(m map[string]any, key string) []any {
	l, _ := m[key].([]any)
	return l
}

func num(m map[string]any, key string, def float64) float64 {
	if f, ok := toFloat(m[key]); ok {
		return f
	}
	return def
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case uint64:
		return float64(x), true
	case json.Number:
		f, err := x.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		return f, err == nil
	}
	return 0, false
}

// Encode serializes p in the given format. JSON output is indented.
func Encode(p *Project, format Format) ([]byte, error) {
	switch format {
	case FormatYAML:
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(p); err != nil {
			return nil, fmt.Errorf("encode yaml: %w", err)
		}
		if err := enc.Close(); err != nil {
			return nil, fmt.Errorf("encode yaml: %w", err)
		}
		return buf.Bytes(), nil
	default:
		out, err := json.MarshalIndent(p, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("encode json: %w", err)
		}
		return out, nil
	}
}

// LoadFile reads and normalizes a project file. When the file exists but
// cannot be parsed, the default project is returned together with the
// error so callers can keep working.
func LoadFile(path string) (*Project, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read project %v: %w", path, err)
	}
	p, err := Decode(data)
	if err != nil {
		return p, fmt.Errorf("decode project %v: %w", path, err)
	}
	return p, nil
}

// SaveFile writes p to path, choosing the format from the extension.
func SaveFile(path string, p *Project) error {
	data, err := Encode(p, FormatForPath(path))
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write project %v: %w", path, err)
	}
	return nil
}

// LoadCache restores an autosaved project. A missing cache silently yields
// the default project; an unreadable one is logged and replaced by the
// default project.
func LoadCache(path string, log logrus.FieldLogger) *Project {
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.WithError(err).WithField("path", path).Warn("autosave cache unreadable, starting from default project")
		}
		return NewDefaultProject()
	}
	p, err := Decode(data)
	if err != nil {
		log.WithError(err).WithField("path", path).Warn("autosave cache unreadable, starting from default project")
	}
	return p
}

// SaveCache writes the autosave cache as JSON.
func SaveCache(path string, p *Project) error {
	data, err := Encode(p, FormatJSON)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// NormalizeJSON decodes data and normalizes it, discarding the decode error.
// It is the lenient entry point used for untrusted project bytes.
func NormalizeJSON(data []byte) *Project {
	p, _ := Decode(data)
	return p
}
