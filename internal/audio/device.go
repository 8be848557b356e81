package audio

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	ebitaudio "github.com/hajimehoshi/ebiten/v2/audio"
	"github.com/sirupsen/logrus"

	"github.com/cbegin/chipstep/internal/clock"
)

// ErrNotReady reports that no audio output could be opened.
var ErrNotReady = errors.New("audio device not ready")

const defaultBufferSize = 50 * time.Millisecond

var (
	audioContextOnce sync.Once
	audioContext     *ebitaudio.Context
	audioContextErr  error
	audioSampleRate  int
)

// ebiten allows a single audio context per process, so every device shares
// it and must agree on the sample rate.
func sharedAudioContext(sampleRate int) (*ebitaudio.Context, error) {
	audioContextOnce.Do(func() {
		defer func() {
			if r := recover(); r != nil {
				audioContextErr = fmt.Errorf("%w: %v", ErrNotReady, r)
			}
		}()
		audioSampleRate = sampleRate
		audioContext = ebitaudio.NewContext(sampleRate)
	})
	if audioContextErr != nil {
		return nil, audioContextErr
	}
	if audioSampleRate != sampleRate {
		return nil, fmt.Errorf("%w: audio context already initialized at %d Hz (requested %d Hz)", ErrNotReady, audioSampleRate, sampleRate)
	}
	return audioContext, nil
}

// Device streams a clock to the default output. The player starts when the
// clock is resumed.
type Device struct {
	clock  *clock.Context
	player *ebitaudio.Player
	reader *StreamReader
	log    logrus.FieldLogger
}

type DeviceOption func(*deviceConfig)

type deviceConfig struct {
	bufferSize time.Duration
}

// WithBufferSize sets the player's buffer, trading latency for robustness.
func WithBufferSize(d time.Duration) DeviceOption {
	return func(cfg *deviceConfig) {
		if d > 0 {
			cfg.bufferSize = d
		}
	}
}

// Open attaches a player to c. Failures are reported as ErrNotReady.
func Open(c *clock.Context, log logrus.FieldLogger, opts ...DeviceOption) (*Device, error) {
	cfg := deviceConfig{bufferSize: defaultBufferSize}
	for _, opt := range opts {
		opt(&cfg)
	}
	actx, err := sharedAudioContext(c.SampleRate())
	if err != nil {
		return nil, err
	}
	reader := NewStreamReader(c)
	pl, err := actx.NewPlayerF32(reader)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotReady, err)
	}
	pl.SetBufferSize(cfg.bufferSize)
	d := &Device{clock: c, player: pl, reader: reader, log: log}
	c.OnResume(d.start)
	return d, nil
}

func (d *Device) start(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.player.Play()
	d.log.WithField("sample_rate", d.clock.SampleRate()).Debug("audio output started")
	return nil
}

// Peak returns the loudest sample sent to the device since the last call.
func (d *Device) Peak() float32 {
	return d.reader.Peak()
}

func (d *Device) Close() error {
	d.player.Pause()
	err := d.player.Close()
	if cerr := d.reader.Close(); err == nil {
		err = cerr
	}
	d.clock.Close()
	return err
}
