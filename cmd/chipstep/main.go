package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/sirupsen/logrus"
)

const usage = `usage: chipstep [flags] <command> [args]

commands:
  play FILE                  play a project (json, yml or mid) until interrupted
  export [-o DIR] FILE...    render projects to 16-bit WAV
  import IN.mid OUT          convert a MIDI file into a project (.json or .yml)
  tomidi IN OUT.mid          write a project as a Standard MIDI File
  info FILE                  print a project summary

flags:
`

type app struct {
	cfg    Config
	log    *logrus.Logger
	stdout io.Writer
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fset := flag.NewFlagSet("chipstep", flag.ContinueOnError)
	fset.SetOutput(stderr)
	fset.Usage = func() {
		fmt.Fprint(stderr, usage)
		fset.PrintDefaults()
	}
	var (
		configPath = fset.String("config", "", "path to a config.yml (default: user config dir)")
		logLevel   = fset.String("log-level", "", "log level: debug|info|warn|error")
		sampleRate = fset.Int("sample-rate", 0, "output sample rate (overrides config)")
		noLoop     = fset.Bool("once", false, "play once instead of looping")
		volume     = fset.Float64("volume", -1, "master volume scalar (overrides config)")
	)
	if err := fset.Parse(args); err != nil {
		return 2
	}

	log := logrus.New()
	log.SetOutput(stderr)
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.WithError(err).Error("chipstep: config")
		return 1
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	if *sampleRate > 0 {
		cfg.SampleRate = *sampleRate
	}
	if *noLoop {
		cfg.Loop = false
	}
	if *volume >= 0 {
		cfg.Volume = *volume
	}
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.WithError(err).Error("chipstep: bad log level")
		return 2
	}
	log.SetLevel(level)

	if fset.NArg() == 0 {
		fset.Usage()
		return 2
	}
	a := &app{cfg: cfg, log: log, stdout: stdout}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cmd, rest := strings.ToLower(fset.Arg(0)), fset.Args()[1:]
	switch cmd {
	case "play":
		err = a.play(ctx, rest)
	case "export":
		err = a.export(ctx, rest)
	case "import":
		err = a.importMIDI(rest)
	case "tomidi":
		err = a.toMIDI(rest)
	case "info":
		err = a.info(rest)
	default:
		fmt.Fprintf(stderr, "unknown command %q\n", cmd)
		fset.Usage()
		return 2
	}
	if err != nil {
		log.WithError(err).Errorf("chipstep %v failed", cmd)
		return 1
	}
	return 0
}
