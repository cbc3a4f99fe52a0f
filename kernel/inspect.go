package kernel

import "rtbench/bench"

// ThreadState reports the lifecycle state of id. Never-created handles in
// range report StateUninitialized.
func (k *Kernel) ThreadState(id bench.ThreadID) (bench.ThreadState, error) {
	if id < 0 || id >= MaxHandles {
		return bench.StateUninitialized, bench.Errorf("thread state", int(id), bench.InvalidHandle, "out of range")
	}
	k.mu.Lock()
	defer k.mu.Unlock()

	t := k.threads[id]
	switch {
	case t == nil:
		return bench.StateUninitialized, nil
	case t.suspended:
		return bench.StateSuspended, nil
	default:
		return t.state, nil
	}
}

// SemCount reports the current count of a semaphore.
func (k *Kernel) SemCount(id bench.SemID) (int, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	s, err := k.lookupSem("sem count", id)
	if err != nil {
		return 0, err
	}
	return s.count, nil
}

// MutexOwner reports the thread holding a mutex.
func (k *Kernel) MutexOwner(id bench.MutexID) (bench.ThreadID, bool, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	m, err := k.lookupMutex("mutex owner", id)
	if err != nil {
		return 0, false, err
	}
	if m.owner == nil || !m.owner.userVisible() {
		return 0, false, nil
	}
	return m.owner.id, true, nil
}

// Priority reports the effective priority of a live thread, including any
// inherited priority.
func (k *Kernel) Priority(id bench.ThreadID) (bench.Priority, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	t, err := k.liveThread("thread priority", id)
	if err != nil {
		return 0, err
	}
	return t.prio, nil
}
