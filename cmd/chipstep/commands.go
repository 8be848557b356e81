package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/cbegin/chipstep"
	"github.com/cbegin/chipstep/internal/midi"
	"github.com/cbegin/chipstep/internal/project"
)

var errArgs = errors.New("wrong number of arguments")

// loadProject opens a project file, or imports it when it is a MIDI file.
func (a *app) loadProject(path string) (*project.Project, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mid", ".midi", ".smf":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		return midi.Import(data, baseName(path))
	}
	p, err := project.LoadFile(path)
	if err != nil && p != nil {
		// unreadable content still yields a usable default project
		a.log.WithError(err).Warn("chipstep: project unreadable, using defaults")
		return p, nil
	}
	return p, err
}

func baseName(path string) string {
	return strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
}

func (a *app) play(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errArgs
	}
	p, err := a.loadProject(args[0])
	if err != nil {
		return err
	}
	pl, err := chipstep.NewPlayer(
		chipstep.WithSampleRate(a.cfg.SampleRate),
		chipstep.WithLoop(a.cfg.Loop),
		chipstep.WithVolume(a.cfg.Volume),
		chipstep.WithLimiter(a.cfg.Limit),
		chipstep.WithLogger(a.log),
	)
	if err != nil {
		return err
	}
	defer pl.Close()
	if err := pl.Play(ctx, p); err != nil {
		return err
	}
	err = pl.Wait(ctx)
	pl.Stop()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (a *app) export(ctx context.Context, args []string) error {
	fset := flag.NewFlagSet("export", flag.ContinueOnError)
	outDir := fset.String("o", a.cfg.ExportDir, "output directory (default: next to each input)")
	ignore := fset.Bool("all", a.cfg.IgnoreMuteSolo, "render muted and non-soloed tracks too")
	asFloat := fset.Bool("float", false, "write 32-bit float samples instead of 16-bit PCM")
	if err := fset.Parse(args); err != nil {
		return err
	}
	if fset.NArg() == 0 {
		return errArgs
	}
	if *outDir != "" {
		if err := os.MkdirAll(*outDir, 0o755); err != nil {
			return err
		}
	}

	g, ctx := errgroup.WithContext(ctx)
	for _, in := range fset.Args() {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			p, err := a.loadProject(in)
			if err != nil {
				return fmt.Errorf("%v: %w", in, err)
			}
			buf, err := chipstep.RenderProject(p, chipstep.RenderOptions{
				SampleRate:     a.cfg.SampleRate,
				IgnoreMuteSolo: *ignore,
				Limit:          a.cfg.Limit,
				Logger:         a.log,
			})
			if err != nil {
				return fmt.Errorf("%v: %w", in, err)
			}
			dir := *outDir
			if dir == "" {
				dir = filepath.Dir(in)
			}
			out := filepath.Join(dir, baseName(in)+".wav")
			data := chipstep.EncodeWAV(buf)
			if *asFloat {
				data = chipstep.EncodeWAVFloat32LE(buf)
			}
			if err := os.WriteFile(out, data, 0o644); err != nil {
				return err
			}
			a.log.WithFields(logrus.Fields{
				"file":    out,
				"seconds": fmt.Sprintf("%.2f", buf.Duration()),
			}).Info("exported")
			return nil
		})
	}
	return g.Wait()
}

func (a *app) importMIDI(args []string) error {
	if len(args) != 2 {
		return errArgs
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	p, err := midi.Import(data, baseName(args[0]))
	if err != nil {
		return err
	}
	if err := project.SaveFile(args[1], p); err != nil {
		return err
	}
	a.log.WithField("file", args[1]).WithField("tracks", len(p.Tracks)).Info("imported")
	return nil
}

func (a *app) toMIDI(args []string) error {
	if len(args) != 2 {
		return errArgs
	}
	p, err := a.loadProject(args[0])
	if err != nil {
		return err
	}
	data, err := midi.Export(p)
	if err != nil {
		return err
	}
	if err := os.WriteFile(args[1], data, 0o644); err != nil {
		return err
	}
	a.log.WithField("file", args[1]).Info("wrote midi")
	return nil
}

func (a *app) info(args []string) error {
	if len(args) != 1 {
		return errArgs
	}
	p, err := a.loadProject(args[0])
	if err != nil {
		return err
	}
	return writeInfo(a.stdout, p)
}
