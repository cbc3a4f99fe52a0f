package kernel

import "rtbench/bench"

type semaphore struct {
	count   int
	max     int
	waiters waitq
}

func (k *Kernel) lookupSem(op string, id bench.SemID) (*semaphore, error) {
	if id < 0 || id >= MaxHandles {
		return nil, bench.Errorf(op, int(id), bench.InvalidHandle, "out of range")
	}
	s := k.sems[id]
	if s == nil {
		return nil, bench.Errorf(op, int(id), bench.InvalidHandle, "not created")
	}
	return s, nil
}

// SemCreate creates a semaphore with 0 <= initial <= max and max >= 1.
func (k *Kernel) SemCreate(id bench.SemID, initial, max int) error {
	const op = "sem create"
	k.mu.Lock()
	defer k.mu.Unlock()

	if id < 0 || id >= MaxHandles {
		return bench.Errorf(op, int(id), bench.InvalidHandle, "out of range")
	}
	if k.sems[id] != nil {
		return bench.Errorf(op, int(id), bench.DuplicateHandle, "")
	}
	if max < 1 || initial < 0 || initial > max {
		return bench.Errorf(op, int(id), bench.InvalidArgument, "initial %d, max %d", initial, max)
	}
	k.sems[id] = &semaphore{count: initial, max: max}
	k.poll()
	return nil
}

// SemGive passes one unit to the most urgent waiter, or increments the
// count unless it is already at its maximum.
func (k *Kernel) SemGive(id bench.SemID) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	s, err := k.lookupSem("sem give", id)
	if err != nil {
		return err
	}
	if t := s.waiters.pop(); t != nil {
		k.wakeLocked(t)
	} else if s.count < s.max {
		s.count++
	}
	k.reschedule()
	return nil
}

// SemTake decrements the count, waiting without a timeout while it is zero.
func (k *Kernel) SemTake(id bench.SemID) error {
	const op = "sem take"
	k.mu.Lock()
	defer k.mu.Unlock()

	s, err := k.lookupSem(op, id)
	if err != nil {
		return err
	}
	cur, err := k.threadContext(op)
	if err != nil {
		return err
	}
	if s.count > 0 {
		s.count--
		k.poll()
		return nil
	}
	// A give hands its unit straight to the woken waiter.
	k.block(cur, &s.waiters)
	return nil
}
