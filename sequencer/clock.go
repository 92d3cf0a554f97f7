package sequencer

import (
	"runtime"
	"sync"
	"time"
)

// Clock arms periodic callbacks
type Clock interface {
	// Every calls fn once immediately and then once per interval until the
	// returned Schedule is stopped. interval is re-read after every call.
	Every(interval func() time.Duration, fn func()) Schedule
}

// Schedule is an armed Clock callback
type Schedule interface {
	// Stop cancels the schedule. When Stop returns no callback is running
	// and none will run again. Stop must not be called from inside fn.
	Stop()
}

// WallClock drives schedules from the system timer
type WallClock struct{}

func (WallClock) Every(interval func() time.Duration, fn func()) Schedule {
	s := &timerSchedule{
		quit: make(chan struct{}),
		done: make(chan struct{}),
	}
	go s.run(interval, fn)
	return s
}

type timerSchedule struct {
	quit chan struct{}
	done chan struct{}
	once sync.Once
}

func (s *timerSchedule) run(interval func() time.Duration, fn func()) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer close(s.done)

	// Deadlines advance by exactly one interval so timer latency does not
	// accumulate into drift.
	next := time.Now()
	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-s.quit:
			return
		case <-timer.C:
		}
		// quit and timer can both be ready; quit wins
		select {
		case <-s.quit:
			return
		default:
		}

		fn()

		next = next.Add(interval())
		wait := time.Until(next)
		if wait < 0 {
			// fell behind (suspend, debugger); resync instead of bursting
			next = time.Now()
			wait = 0
		}
		timer.Reset(wait)
	}
}

func (s *timerSchedule) Stop() {
	s.once.Do(func() { close(s.quit) })
	<-s.done
}

// stepInterval is the duration of one step: a beat divided by subdivision
func stepInterval(bpm, subdivision int) time.Duration {
	// tempo and subdivision are validated by the editing surface; guard
	// only against the division by zero
	if bpm < 1 {
		bpm = 1
	}
	if subdivision < 1 {
		subdivision = 1
	}
	return time.Minute / time.Duration(bpm*subdivision)
}
