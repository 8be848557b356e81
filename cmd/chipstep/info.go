package main

import (
	_ "embed"
	"io"
	"text/template"

	"github.com/Masterminds/sprig"

	"github.com/cbegin/chipstep/internal/project"
)

//go:embed info.tmpl
var infoTemplate string

type trackInfo struct {
	Type     string
	Console  string
	Waveform string
	Volume   float64
	Pan      float64
	Octave   int
	Mute     bool
	Solo     bool
	Blocks   int
	Events   int
	Rows     []string
}

type projectInfo struct {
	Name    string
	BPM     float64
	Beats   float64
	Seconds float64
	Tracks  []trackInfo
}

func describe(p *project.Project) projectInfo {
	end := project.EndBeat(p)
	info := projectInfo{
		Name:    p.Name,
		BPM:     p.BPM,
		Beats:   end,
		Seconds: end * p.SecondsPerBeat(),
	}
	for _, t := range p.Tracks {
		ti := trackInfo{
			Type:     string(t.Type),
			Console:  project.DisplayName(t.Console),
			Waveform: project.WaveformName(t.Waveform),
			Volume:   t.Volume,
			Pan:      t.Pan,
			Octave:   t.Octave,
			Mute:     t.Mute,
			Solo:     t.Solo,
			Blocks:   len(t.Blocks),
		}
		for _, b := range t.Blocks {
			if b.Pattern != nil {
				ti.Events += len(b.Pattern.Events)
				if ti.Rows == nil {
					ti.Rows = b.Pattern.Rows
				}
				continue
			}
			ti.Events += len(b.Notes)
		}
		info.Tracks = append(info.Tracks, ti)
	}
	return info
}

func writeInfo(w io.Writer, p *project.Project) error {
	tmpl, err := template.New("info").Funcs(sprig.TxtFuncMap()).Parse(infoTemplate)
	if err != nil {
		return err
	}
	if err := tmpl.Execute(w, describe(p)); err != nil {
		return err
	}
	_, err = io.WriteString(w, "\n")
	return err
}
