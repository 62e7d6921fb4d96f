package hopping

import "sync/atomic"

// SchedulerState represents the lifecycle of the channel scheduler.
type SchedulerState int32

const (
	StateIdle     SchedulerState = iota // Created, radio not tuned yet
	StateScanning                       // Rotating channels on the dwell timer
	StateStopped                        // Permanently stopped
)

func (s SchedulerState) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateScanning:
		return "Scanning"
	case StateStopped:
		return "Stopped"
	}
	return "Unknown"
}

// AtomicState wraps atomic operations for SchedulerState
type AtomicState struct {
	v int32
}

func (a *AtomicState) Set(s SchedulerState) {
	atomic.StoreInt32(&a.v, int32(s))
}

func (a *AtomicState) Get() SchedulerState {
	return SchedulerState(atomic.LoadInt32(&a.v))
}

func (a *AtomicState) CompareAndSwap(old, new SchedulerState) bool {
	return atomic.CompareAndSwapInt32(&a.v, int32(old), int32(new))
}
