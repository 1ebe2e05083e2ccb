package limiter

import (
	"runtime"
	"time"
)

// workSlice is how long the wipe may run between sleeps
const workSlice = 10 * time.Millisecond

// CPULimiter paces a busy loop so it uses roughly maxPercent of one CPU
type CPULimiter struct {
	maxPercent float64
	sliceStart time.Time
	sleep      func(time.Duration)
	now        func() time.Time
}

// NewCPULimiter returns nil when maxPercent does not impose a limit, so
// callers can skip throttling entirely
func NewCPULimiter(maxPercent float64) *CPULimiter {
	if maxPercent <= 0 || maxPercent >= 100 {
		return nil
	}
	return &CPULimiter{
		maxPercent: maxPercent,
		sliceStart: time.Now(),
		sleep:      time.Sleep,
		now:        time.Now,
	}
}

// Throttle is called between entries. Once a work slice has elapsed it
// sleeps long enough that work/(work+sleep) equals maxPercent.
func (l *CPULimiter) Throttle() {
	if l == nil {
		return
	}

	worked := l.now().Sub(l.sliceStart)
	if worked >= workSlice {
		sleepPercent := 100.0 - l.maxPercent
		l.sleep(time.Duration(float64(worked) * (sleepPercent / l.maxPercent)))
		l.sliceStart = l.now()
	}

	runtime.Gosched()
}

// MaxPercent returns the configured ceiling
func (l *CPULimiter) MaxPercent() float64 {
	if l == nil {
		return 100
	}
	return l.maxPercent
}
