package chipstep

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/cbegin/chipstep/internal/audio"
	"github.com/cbegin/chipstep/internal/clock"
	"github.com/cbegin/chipstep/internal/effects"
	"github.com/cbegin/chipstep/internal/project"
	"github.com/cbegin/chipstep/internal/transport"
)

// ErrNotReady is returned by playback calls when no audio output is
// available. Editing and offline rendering keep working.
var ErrNotReady = transport.ErrNotReady

var errClosed = errors.New("player closed")

type PlayerOption func(*playerConfig)

type playerConfig struct {
	sampleRate int
	loop       bool
	volume     float64
	limit      bool
	log        logrus.FieldLogger
	bufferSize time.Duration
}

func defaultPlayerConfig() playerConfig {
	return playerConfig{sampleRate: DefaultSampleRate, loop: true, volume: 1, limit: true, log: logrus.StandardLogger()}
}

func WithSampleRate(rate int) PlayerOption {
	return func(cfg *playerConfig) {
		cfg.sampleRate = rate
	}
}

func WithLoop(enabled bool) PlayerOption {
	return func(cfg *playerConfig) {
		cfg.loop = enabled
	}
}

// WithVolume sets the initial master volume, 1 being unity.
func WithVolume(v float64) PlayerOption {
	return func(cfg *playerConfig) {
		cfg.volume = v
	}
}

// WithLimiter enables the master limiter, which is on by default.
func WithLimiter(enabled bool) PlayerOption {
	return func(cfg *playerConfig) {
		cfg.limit = enabled
	}
}

func WithLogger(log logrus.FieldLogger) PlayerOption {
	return func(cfg *playerConfig) {
		cfg.log = log
	}
}

// WithBufferSize sets the output buffer length; shorter is more responsive
// but more prone to dropouts.
func WithBufferSize(d time.Duration) PlayerOption {
	return func(cfg *playerConfig) {
		cfg.bufferSize = d
	}
}

// Player plays projects in real time. The audio device is opened on the
// first Play or Preview, so a Player can be created on machines without
// sound output.
type Player struct {
	mu        sync.Mutex
	cfg       playerConfig
	clock     *clock.Context
	device    *audio.Device
	transport *transport.Transport
	masterEQ  *effects.EQ5Band
	closed    bool
}

func NewPlayer(opts ...PlayerOption) (*Player, error) {
	cfg := defaultPlayerConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.sampleRate <= 0 {
		return nil, errors.New("sampleRate must be positive")
	}
	c := clock.New(cfg.sampleRate)
	c.Master().Gain().SetValueAt(clampVolume(cfg.volume), 0)
	eq := effects.NewEQ5Band(cfg.sampleRate)
	chain := effects.NewChain(eq)
	if cfg.limit {
		chain.Add(effects.NewMasterLimiter(cfg.sampleRate))
	}
	c.Master().SetInsert(chain)
	return &Player{
		cfg:       cfg,
		clock:     c,
		transport: transport.New(c, transport.WithLogger(cfg.log)),
		masterEQ:  eq,
	}, nil
}

func (p *Player) SampleRate() int { return p.cfg.sampleRate }

func clampVolume(v float64) float64 {
	if !(v > 0) {
		return 0
	}
	return min(v, 2)
}

// SetMasterVolume ramps the master output to volume. 1.0 is unity; values
// are clamped to [0, 2].
func (p *Player) SetMasterVolume(volume float64) {
	now := p.clock.Now()
	g := p.clock.Master().Gain()
	g.HoldAt(now)
	g.LinearRampTo(clampVolume(volume), now+transport.DefaultFade)
}

// MasterVolume returns the volume the master output is heading to.
func (p *Player) MasterVolume() float64 {
	return p.clock.Master().Gain().ValueAt(math.Inf(1))
}

func (p *Player) ensureDevice() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return errClosed
	}
	if p.device != nil {
		return nil
	}
	var opts []audio.DeviceOption
	if p.cfg.bufferSize > 0 {
		opts = append(opts, audio.WithBufferSize(p.cfg.bufferSize))
	}
	dev, err := audio.Open(p.clock, p.cfg.log, opts...)
	if err != nil {
		p.cfg.log.WithError(err).Warn("player: no audio output")
		return fmt.Errorf("%w: %w", ErrNotReady, err)
	}
	p.device = dev
	return nil
}

// Play starts the project from the top, looping unless WithLoop(false).
func (p *Player) Play(ctx context.Context, proj *project.Project) error {
	if err := p.ensureDevice(); err != nil {
		return err
	}
	p.resetMaster()
	return p.transport.Play(ctx, proj, transport.PlayOptions{Loop: p.cfg.loop})
}

// resetMaster drops limiter and EQ state left over from earlier playback
// when nothing is sounding.
func (p *Player) resetMaster() {
	if p.transport.State() == transport.Stopped && !p.transport.Previewing() {
		p.clock.Master().ResetInsert()
	}
}

func (p *Player) Stop() { p.transport.Stop() }

// Preview plays one block on its own, looping like Play does.
func (p *Player) Preview(ctx context.Context, proj *project.Project, trackID, blockID string) error {
	if err := p.ensureDevice(); err != nil {
		return err
	}
	p.resetMaster()
	return p.transport.Preview(ctx, proj, trackID, blockID, transport.PreviewOptions{Loop: p.cfg.loop})
}

func (p *Player) StopPreview() { p.transport.StopPreview() }

// Update hands an edited project to the running transport.
func (p *Player) Update(proj *project.Project) { p.transport.UpdateProject(proj) }

func (p *Player) CurrentBeat() float64 { return p.transport.CurrentBeat() }

func (p *Player) State() transport.State { return p.transport.State() }

func (p *Player) Previewing() bool { return p.transport.Previewing() }

// Peak returns the loudest output sample since the previous call.
func (p *Player) Peak() float32 {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.device == nil {
		return 0
	}
	return p.device.Peak()
}

// SetEQBand sets the gain for a master EQ band (0-4). 1.0 = unity.
// Band frequencies: 0=<200Hz, 1=200-800Hz, 2=800-2.5kHz, 3=2.5-8kHz, 4=>8kHz.
// This takes effect immediately on the audio thread (lock-free).
func (p *Player) SetEQBand(band int, gain float32) {
	p.masterEQ.SetGain(band, gain)
}

// EQBand returns the current gain for a master EQ band (0-4).
func (p *Player) EQBand(band int) float32 {
	return p.masterEQ.Gain(band)
}

// Wait blocks until playback stops or ctx is done. A looping song only
// stops through Stop or Close.
func (p *Player) Wait(ctx context.Context) error {
	tick := time.NewTicker(20 * time.Millisecond)
	defer tick.Stop()
	for p.transport.State() == transport.Playing {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-tick.C:
		}
	}
	return nil
}

func (p *Player) Close() error {
	p.transport.Close()
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	if p.device == nil {
		p.clock.Close()
		return nil
	}
	err := p.device.Close()
	p.device = nil
	return err
}
