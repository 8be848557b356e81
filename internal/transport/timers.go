package transport

import "time"

// Timer is a pending callback that can be cancelled.
type Timer interface {
	Stop() bool
}

// Timers arms one-shot callbacks. The default uses time.AfterFunc; tests
// substitute a manual clock.
type Timers interface {
	AfterFunc(d time.Duration, fn func()) Timer
}

type wallTimers struct{}

func (wallTimers) AfterFunc(d time.Duration, fn func()) Timer {
	return time.AfterFunc(d, fn)
}

func seconds(s float64) time.Duration {
	if !(s > 0) {
		return 0
	}
	return time.Duration(s * float64(time.Second))
}
