package bench

// Threads governs thread lifecycle.
//
// ThreadCreate never makes a thread schedulable; nothing runs until
// ThreadStart. ThreadSetPriority and Yield act on the calling thread.
type Threads interface {
	ThreadCreate(id ThreadID, name string, prio Priority, entry Entry, arg any) error
	ThreadStart(id ThreadID) error
	ThreadResume(id ThreadID) error
	ThreadSuspend(id ThreadID) error
	ThreadAbort(id ThreadID) error
	ThreadSetPriority(prio Priority) error
	Yield() error
}

// Semaphores is a counting semaphore keyed by handle. SemGive saturates at
// the maximum count and never fails for a live handle. SemTake waits without
// a timeout.
type Semaphores interface {
	SemCreate(id SemID, initial, max int) error
	SemGive(id SemID) error
	SemTake(id SemID) error
}

// Mutexes is a mutual-exclusion lock keyed by handle.
type Mutexes interface {
	MutexCreate(id MutexID) error
	MutexLock(id MutexID) error
	MutexUnlock(id MutexID) error
}

// Timing is the calibrated cycle counter. Call TimingInit once, SyncTicks to
// align with a tick edge, then bracket measurements with TimingStart and
// TimingStop.
type Timing interface {
	TimingInit() error
	SyncTicks() error
	TimingStart()
	TimingStop()
	CounterGet() Time
	CyclesGet(start, end Time) Time
	CyclesToNs(cycles Time) Time
}

// Offload bridges thread and interrupt context.
//
// IrqOffload runs fn in interrupt context and returns after fn completes.
// OffloadSetup, OffloadCreateWork and OffloadSubmitWork move one stored work
// function from interrupt context onto a worker thread.
type Offload interface {
	IrqOffload(fn IRQFunc, arg any) error
	OffloadSetup() error
	OffloadCreateWork(fn WorkerFunc) error
	OffloadSubmitWork() error
}

// Port is the full contract a backend implements.
type Port interface {
	Threads
	Semaphores
	Mutexes
	Timing
	Offload

	// TestInit runs init as the benchmark's main thread and returns once the
	// system has nothing left to run.
	TestInit(init Entry) error
}

// ISR is the capability set available in interrupt context. It has no
// blocking operations.
type ISR interface {
	SemGive(id SemID) error
	OffloadSubmitWork() error
	CounterGet() Time
}

// Inspector exposes backend state for conformance testing. It does not
// block and may be called from any thread or interrupt context.
type Inspector interface {
	ThreadState(id ThreadID) (ThreadState, error)
	SemCount(id SemID) (int, error)
	// MutexOwner returns the holding thread; ok is false when the mutex is
	// free or held by a thread without a user handle.
	MutexOwner(id MutexID) (owner ThreadID, ok bool, err error)
	InISR() bool
}
