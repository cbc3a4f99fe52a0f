package kernel

import (
	"runtime"

	"go.uber.org/zap"

	"rtbench/bench"
	"rtbench/hal"
)

// tcb is a thread control block.
type tcb struct {
	id    bench.ThreadID
	name  string
	base  bench.Priority
	prio  bench.Priority // effective, after inheritance
	entry bench.Entry
	arg   any

	state     bench.ThreadState
	suspended bool
	// pend is the queue the thread waits in while StatePending.
	pend *waitq
	held []*mutex

	spawned  bool
	killed   bool
	finished bool
	wake     chan struct{}
	done     chan struct{}
}

func newTCB(id bench.ThreadID, name string, prio bench.Priority, entry bench.Entry, arg any) *tcb {
	return &tcb{
		id:    id,
		name:  name,
		base:  prio,
		prio:  prio,
		entry: entry,
		arg:   arg,
		state: bench.StateCreated,
		wake:  make(chan struct{}, 1),
		done:  make(chan struct{}),
	}
}

func (t *tcb) userVisible() bool { return t.id != bench.ThreadID(bench.NoHandle) }

// startLocked makes a created thread ready and spawns its goroutine. The
// goroutine waits for its first dispatch before calling the entry.
func (k *Kernel) startLocked(t *tcb) {
	t.state = bench.StateReady
	t.spawned = true
	k.spawned[t] = struct{}{}
	k.ready.push(t, false)

	k.wg.Add(1)
	go func() {
		defer k.wg.Done()
		defer close(t.done)
		defer k.exit(t)

		<-t.wake
		k.mu.Lock()
		killed := t.killed
		k.mu.Unlock()
		if killed {
			return
		}
		k.runEntry(t)
	}()
}

func (k *Kernel) runEntry(t *tcb) {
	defer func() {
		if r := recover(); r != nil {
			k.fault(PanicInfo{Thread: t.id, Name: t.name, Value: r})
		}
	}()
	t.entry(t.arg)
}

// exit terminates a thread whose entry returned or panicked.
func (k *Kernel) exit(t *tcb) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if t.finished {
		return
	}
	k.terminate(t)
	if k.current == t {
		k.dispatch()
	}
}

// terminate removes t from every queue, hands its mutexes on and frees its
// handle. It does not touch the CPU.
func (k *Kernel) terminate(t *tcb) {
	switch t.state {
	case bench.StateReady:
		k.ready.remove(t)
	case bench.StatePending:
		if t.pend != nil {
			t.pend.remove(t)
			if t.pend.mu != nil && t.pend.mu.owner != nil {
				k.updatePrio(t.pend.mu.owner)
			}
		}
	}
	t.pend = nil
	t.state = bench.StateAborted
	t.suspended = false
	t.finished = true
	for len(t.held) > 0 {
		k.release(t.held[len(t.held)-1])
	}
	if t.userVisible() {
		k.live--
	}
	k.log.Debug("thread terminated", zap.Int("thread", int(t.id)), zap.String("name", t.name))
}

// dispatch hands the CPU to the most urgent ready thread, or leaves it idle.
func (k *Kernel) dispatch() {
	var next *tcb
	if !k.halted {
		next = k.ready.pop()
	}
	k.current = next
	if next == nil {
		k.signalIdle()
		return
	}
	next.state = bench.StateRunning
	next.wake <- struct{}{}
}

// park gives the CPU away and waits until t is dispatched again. It is
// called with k.mu held by t's goroutine and returns with k.mu held. A
// thread killed while parked never returns: its goroutine exits with k.mu
// held and the caller's deferred unlock releases it.
func (k *Kernel) park(t *tcb) {
	k.dispatch()
	k.mu.Unlock()
	<-t.wake
	k.mu.Lock()
	if t.killed {
		runtime.Goexit()
	}
}

// reschedule is the preemption point. In interrupt context it only records
// that a decision is due; the outermost interrupt return makes it.
func (k *Kernel) reschedule() {
	if k.isrDepth > 0 {
		k.resched = true
		return
	}
	k.resched = false
	cur := k.current
	if cur == nil {
		if k.running && !k.ready.empty() {
			k.dispatch()
		}
		return
	}
	if cur.suspended {
		cur.state = bench.StateSuspended
		k.park(cur)
		return
	}
	next := k.ready.best()
	if next == nil || next.prio >= cur.prio {
		return
	}
	cur.state = bench.StateReady
	k.ready.push(cur, true)
	k.park(cur)
}

// block puts the current thread on q and parks it until woken.
func (k *Kernel) block(cur *tcb, q *waitq) {
	cur.state = bench.StatePending
	cur.pend = q
	q.add(cur)
	k.park(cur)
}

// wakeLocked ends a pending wait. A suspended thread stays suspended.
func (k *Kernel) wakeLocked(t *tcb) {
	t.pend = nil
	if t.suspended {
		t.state = bench.StateSuspended
		return
	}
	t.state = bench.StateReady
	k.ready.push(t, false)
}

// threadContext returns the calling thread for operations that may block.
func (k *Kernel) threadContext(op string) (*tcb, error) {
	if k.isrDepth > 0 {
		return nil, bench.Errorf(op, bench.NoHandle, bench.InvalidState, "interrupt context")
	}
	if k.current == nil {
		return nil, bench.Errorf(op, bench.NoHandle, bench.InvalidState, "no thread context")
	}
	return k.current, nil
}

// updatePrio recomputes t's effective priority from its base priority and
// the waiters of the mutexes it holds, and propagates the change through
// the mutex t waits on, if any.
func (k *Kernel) updatePrio(t *tcb) {
	for depth := 0; t != nil && depth <= MaxHandles; depth++ {
		p := t.base
		for _, m := range t.held {
			if w := m.waiters.best(); w != nil && w.prio < p {
				p = w.prio
			}
		}
		if p == t.prio {
			return
		}
		switch t.state {
		case bench.StateReady:
			k.ready.remove(t)
			t.prio = p
			k.ready.push(t, false)
		case bench.StatePending:
			t.prio = p
			if t.pend != nil {
				t.pend.reposition(t)
			}
		default:
			t.prio = p
		}
		if t.state != bench.StatePending || t.pend == nil || t.pend.mu == nil {
			return
		}
		t = t.pend.mu.owner
	}
}

func (k *Kernel) tickLoop(src hal.Time, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ch := src.Ticks()
	for {
		select {
		case <-stop:
			return
		case n, ok := <-ch:
			if !ok {
				return
			}
			k.tickISR(n)
		}
	}
}

// tickISR is the timer interrupt: it wakes every SyncTicks waiter.
func (k *Kernel) tickISR(n uint64) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.tick = n
	if k.tickWait.len() == 0 {
		return
	}
	for t := k.tickWait.pop(); t != nil; t = k.tickWait.pop() {
		k.wakeLocked(t)
	}
	if k.current == nil {
		if !k.ready.empty() {
			k.dispatch()
		}
		return
	}
	k.resched = true
}

// poll honours a reschedule requested by an interrupt. Called on every
// kernel entry from thread context.
func (k *Kernel) poll() {
	if k.resched && k.isrDepth == 0 && k.current != nil {
		k.reschedule()
	}
}
