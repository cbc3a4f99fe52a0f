package kernel

import (
	"runtime"

	"go.uber.org/zap"

	"rtbench/bench"
)

// lookupThread returns the control block for id, including aborted
// tombstones, or nil.
func (k *Kernel) lookupThread(op string, id bench.ThreadID) (*tcb, error) {
	if id < 0 || id >= MaxHandles {
		return nil, bench.Errorf(op, int(id), bench.InvalidHandle, "out of range")
	}
	t := k.threads[id]
	if t == nil {
		return nil, bench.Errorf(op, int(id), bench.InvalidHandle, "not created")
	}
	return t, nil
}

// liveThread is lookupThread without tombstones.
func (k *Kernel) liveThread(op string, id bench.ThreadID) (*tcb, error) {
	t, err := k.lookupThread(op, id)
	if err != nil {
		return nil, err
	}
	if t.state == bench.StateAborted {
		return nil, bench.Errorf(op, int(id), bench.InvalidHandle, "aborted")
	}
	return t, nil
}

// ThreadCreate allocates a thread without making it schedulable.
func (k *Kernel) ThreadCreate(id bench.ThreadID, name string, prio bench.Priority, entry bench.Entry, arg any) error {
	const op = "thread create"
	k.mu.Lock()
	defer k.mu.Unlock()

	if id < 0 || id >= MaxHandles {
		return bench.Errorf(op, int(id), bench.InvalidHandle, "out of range")
	}
	if entry == nil {
		return bench.Errorf(op, int(id), bench.InvalidArgument, "nil entry")
	}
	if validPriority(prio) != nil {
		return bench.Errorf(op, int(id), bench.InvalidArgument, "priority %d", prio)
	}
	if t := k.threads[id]; t != nil && t.state != bench.StateAborted {
		return bench.Errorf(op, int(id), bench.DuplicateHandle, "")
	}
	if k.live >= k.cfg.MaxThreads {
		return bench.Errorf(op, int(id), bench.ResourceExhausted, "%d threads live", k.live)
	}

	k.threads[id] = newTCB(id, name, prio, entry, arg)
	k.live++
	k.log.Debug("thread created", zap.Int("thread", int(id)), zap.String("name", name), zap.Int("prio", int(prio)))
	return nil
}

// ThreadStart hands a created thread to the scheduler. A more urgent thread
// preempts the caller immediately.
func (k *Kernel) ThreadStart(id bench.ThreadID) error {
	const op = "thread start"
	k.mu.Lock()
	defer k.mu.Unlock()

	t, err := k.lookupThread(op, id)
	if err != nil {
		return err
	}
	switch {
	case t.state == bench.StateAborted:
		return bench.Errorf(op, int(id), bench.InvalidState, "aborted")
	case t.state != bench.StateCreated:
		return nil
	}
	k.startLocked(t)
	k.log.Debug("thread started", zap.Int("thread", int(id)), zap.String("name", t.name))
	k.reschedule()
	return nil
}

// ThreadResume makes a suspended thread eligible to run again.
func (k *Kernel) ThreadResume(id bench.ThreadID) error {
	const op = "thread resume"
	k.mu.Lock()
	defer k.mu.Unlock()

	t, err := k.liveThread(op, id)
	if err != nil {
		return err
	}
	if !t.suspended {
		return bench.Errorf(op, int(id), bench.InvalidState, "not suspended")
	}
	t.suspended = false
	if t.state == bench.StateSuspended {
		t.state = bench.StateReady
		k.ready.push(t, false)
	}
	k.reschedule()
	return nil
}

// ThreadSuspend suspends a started thread. Suspending the calling thread
// returns only after it is resumed. A pending thread stays suspended once
// its wait completes.
func (k *Kernel) ThreadSuspend(id bench.ThreadID) error {
	const op = "thread suspend"
	k.mu.Lock()
	defer k.mu.Unlock()

	t, err := k.liveThread(op, id)
	if err != nil {
		return err
	}
	if !t.state.Started() {
		return bench.Errorf(op, int(id), bench.InvalidState, "%s", t.state)
	}
	if t.suspended {
		return nil
	}
	t.suspended = true
	if t.state == bench.StateReady {
		k.ready.remove(t)
		t.state = bench.StateSuspended
	}
	k.reschedule()
	return nil
}

// ThreadAbort terminates a thread immediately. Aborting the calling thread
// does not return. Aborting the interrupted thread from interrupt context
// returns at once; the thread never resumes after the outermost interrupt.
func (k *Kernel) ThreadAbort(id bench.ThreadID) error {
	done, err := k.abort(id)
	if done != nil {
		<-done
	}
	return err
}

func (k *Kernel) abort(id bench.ThreadID) (<-chan struct{}, error) {
	const op = "thread abort"
	k.mu.Lock()
	defer k.mu.Unlock()

	t, err := k.liveThread(op, id)
	if err != nil {
		return nil, err
	}
	k.log.Debug("thread abort", zap.Int("thread", int(id)), zap.String("name", t.name))

	if t == k.current {
		k.terminate(t)
		t.killed = true
		if k.isrDepth > 0 {
			// exitISR retires the goroutine.
			return nil, nil
		}
		k.dispatch()
		runtime.Goexit()
	}

	k.terminate(t)
	var done <-chan struct{}
	if t.spawned {
		t.killed = true
		t.wake <- struct{}{}
		done = t.done
	}
	k.reschedule()
	return done, nil
}

// ThreadSetPriority changes the calling thread's base priority.
func (k *Kernel) ThreadSetPriority(prio bench.Priority) error {
	const op = "thread set priority"
	k.mu.Lock()
	defer k.mu.Unlock()

	cur, err := k.threadContext(op)
	if err != nil {
		return err
	}
	if validPriority(prio) != nil {
		return bench.Errorf(op, bench.NoHandle, bench.InvalidArgument, "priority %d", prio)
	}
	cur.base = prio
	k.updatePrio(cur)
	k.reschedule()
	return nil
}

// Yield lets ready threads of equal or higher urgency run first.
func (k *Kernel) Yield() error {
	const op = "yield"
	k.mu.Lock()
	defer k.mu.Unlock()

	cur, err := k.threadContext(op)
	if err != nil {
		return err
	}
	next := k.ready.best()
	if next == nil || next.prio > cur.prio {
		k.poll()
		return nil
	}
	cur.state = bench.StateReady
	k.ready.push(cur, false)
	k.park(cur)
	return nil
}
