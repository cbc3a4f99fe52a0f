// Package bench defines the portable contract a benchmark suite programs
// against: thread lifecycle, semaphores, mutexes, cycle timing and
// interrupt-context execution. Backends implement Port.
package bench

// ThreadID is a caller-chosen handle for a thread.
type ThreadID int

// SemID is a caller-chosen handle for a counting semaphore.
type SemID int

// MutexID is a caller-chosen handle for a mutex.
type MutexID int

// Priority orders threads. The direction (whether lower values are more
// urgent) is fixed per backend.
type Priority int

// Entry is a thread entry function. arg is owned by the caller and must stay
// valid for the lifetime of the thread.
type Entry func(arg any)

// Time is a raw counter snapshot. It is only meaningful as a difference of
// two snapshots taken during the same run.
type Time uint64

// IRQFunc runs in interrupt context. arg only needs to outlive the call.
type IRQFunc func(isr ISR, arg any)

// WorkerFunc is the function stored in the offload slot. It runs on the
// backend's worker thread.
type WorkerFunc func(w *Work)

// Work is the single reusable offload slot handed to a WorkerFunc.
type Work struct {
	seq uint64
}

// NewWork returns a work item for submission number seq. Backends use it
// when dispatching the slot.
func NewWork(seq uint64) *Work {
	return &Work{seq: seq}
}

// Seq returns the submission number being serviced, starting at 1.
func (w *Work) Seq() uint64 {
	if w == nil {
		return 0
	}
	return w.seq
}

// ThreadState is the lifecycle state of a thread.
type ThreadState uint8

const (
	StateUninitialized ThreadState = iota
	StateCreated
	StateReady
	StateRunning
	StatePending
	StateSuspended
	StateAborted
)

func (s ThreadState) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateCreated:
		return "created"
	case StateReady:
		return "ready"
	case StateRunning:
		return "running"
	case StatePending:
		return "pending"
	case StateSuspended:
		return "suspended"
	case StateAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// Started reports whether the thread has been handed to the scheduler and
// has not terminated.
func (s ThreadState) Started() bool {
	switch s {
	case StateReady, StateRunning, StatePending, StateSuspended:
		return true
	default:
		return false
	}
}
