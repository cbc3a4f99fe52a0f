package kernel

import "rtbench/bench"

type mutex struct {
	owner   *tcb
	count   int
	waiters waitq
}

func (k *Kernel) lookupMutex(op string, id bench.MutexID) (*mutex, error) {
	if id < 0 || id >= MaxHandles {
		return nil, bench.Errorf(op, int(id), bench.InvalidHandle, "out of range")
	}
	m := k.mutexes[id]
	if m == nil {
		return nil, bench.Errorf(op, int(id), bench.InvalidHandle, "not created")
	}
	return m, nil
}

// MutexCreate creates an unlocked mutex.
func (k *Kernel) MutexCreate(id bench.MutexID) error {
	const op = "mutex create"
	k.mu.Lock()
	defer k.mu.Unlock()

	if id < 0 || id >= MaxHandles {
		return bench.Errorf(op, int(id), bench.InvalidHandle, "out of range")
	}
	if k.mutexes[id] != nil {
		return bench.Errorf(op, int(id), bench.DuplicateHandle, "")
	}
	m := &mutex{}
	m.waiters.mu = m
	k.mutexes[id] = m
	k.poll()
	return nil
}

// MutexLock acquires the mutex. The owner may lock it again; each lock
// needs a matching unlock. While others wait, the owner runs at the most
// urgent waiter's priority.
func (k *Kernel) MutexLock(id bench.MutexID) error {
	const op = "mutex lock"
	k.mu.Lock()
	defer k.mu.Unlock()

	m, err := k.lookupMutex(op, id)
	if err != nil {
		return err
	}
	cur, err := k.threadContext(op)
	if err != nil {
		return err
	}
	switch m.owner {
	case nil:
		m.owner = cur
		m.count = 1
		cur.held = append(cur.held, m)
		k.poll()
		return nil
	case cur:
		m.count++
		k.poll()
		return nil
	}

	cur.state = bench.StatePending
	cur.pend = &m.waiters
	m.waiters.add(cur)
	k.updatePrio(m.owner)
	// Ownership is transferred by the unlocking thread before we run again.
	k.park(cur)
	return nil
}

// MutexUnlock releases one level of ownership. Only the owner may unlock.
func (k *Kernel) MutexUnlock(id bench.MutexID) error {
	const op = "mutex unlock"
	k.mu.Lock()
	defer k.mu.Unlock()

	m, err := k.lookupMutex(op, id)
	if err != nil {
		return err
	}
	cur, err := k.threadContext(op)
	if err != nil {
		return err
	}
	if m.owner != cur {
		return bench.Errorf(op, int(id), bench.NotOwner, "")
	}
	m.count--
	if m.count > 0 {
		k.poll()
		return nil
	}
	k.release(m)
	k.reschedule()
	return nil
}

// release passes a fully unlocked mutex to its most urgent waiter and drops
// any priority the previous owner inherited through it.
func (k *Kernel) release(m *mutex) {
	prev := m.owner
	if prev != nil {
		for i, h := range prev.held {
			if h == m {
				prev.held = append(prev.held[:i], prev.held[i+1:]...)
				break
			}
		}
	}

	m.owner = nil
	m.count = 0
	if w := m.waiters.pop(); w != nil {
		m.owner = w
		m.count = 1
		w.held = append(w.held, m)
		k.wakeLocked(w)
		k.updatePrio(w)
	}
	if prev != nil {
		k.updatePrio(prev)
	}
}
