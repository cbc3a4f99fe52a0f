package kernel

import "math/bits"

// queueSlots bounds every run queue level. It must be a power of two no
// larger than 256 so the uint8 indices wrap cleanly.
const queueSlots = 64

// ring is a fixed-size FIFO of threads. It allocates nothing.
type ring struct {
	head  uint8
	tail  uint8
	slots [queueSlots]*tcb
}

func (r *ring) len() int { return int(r.head - r.tail) }

func (r *ring) pushBack(t *tcb) bool {
	if r.len() >= queueSlots {
		return false
	}
	r.slots[r.head%queueSlots] = t
	r.head++
	return true
}

func (r *ring) pushFront(t *tcb) bool {
	if r.len() >= queueSlots {
		return false
	}
	r.tail--
	r.slots[r.tail%queueSlots] = t
	return true
}

func (r *ring) peek() *tcb {
	if r.tail == r.head {
		return nil
	}
	return r.slots[r.tail%queueSlots]
}

func (r *ring) pop() *tcb {
	if r.tail == r.head {
		return nil
	}
	t := r.slots[r.tail%queueSlots]
	r.slots[r.tail%queueSlots] = nil
	r.tail++
	return t
}

func (r *ring) remove(t *tcb) bool {
	for i := r.tail; i != r.head; i++ {
		if r.slots[i%queueSlots] != t {
			continue
		}
		for j := i; j+1 != r.head; j++ {
			r.slots[j%queueSlots] = r.slots[(j+1)%queueSlots]
		}
		r.head--
		r.slots[r.head%queueSlots] = nil
		return true
	}
	return false
}

// readyQueue is one FIFO per priority level plus a bitmap of non-empty
// levels. Bit n set means level n has a ready thread; level 0 is the most
// urgent.
type readyQueue struct {
	levels [NumPriorities]ring
	bitmap uint32
}

func (q *readyQueue) push(t *tcb, front bool) {
	lvl := &q.levels[t.prio]
	if front {
		lvl.pushFront(t)
	} else {
		lvl.pushBack(t)
	}
	q.bitmap |= 1 << uint(t.prio)
}

func (q *readyQueue) best() *tcb {
	if q.bitmap == 0 {
		return nil
	}
	return q.levels[bits.TrailingZeros32(q.bitmap)].peek()
}

func (q *readyQueue) pop() *tcb {
	if q.bitmap == 0 {
		return nil
	}
	n := bits.TrailingZeros32(q.bitmap)
	lvl := &q.levels[n]
	t := lvl.pop()
	if lvl.len() == 0 {
		q.bitmap &^= 1 << uint(n)
	}
	return t
}

func (q *readyQueue) remove(t *tcb) bool {
	lvl := &q.levels[t.prio]
	if !lvl.remove(t) {
		return false
	}
	if lvl.len() == 0 {
		q.bitmap &^= 1 << uint(t.prio)
	}
	return true
}

func (q *readyQueue) empty() bool { return q.bitmap == 0 }

// waitq holds threads pending on one object, most urgent first and FIFO
// among equal priorities.
type waitq struct {
	list []*tcb
	// mu is set when the queue belongs to a mutex, for priority
	// inheritance.
	mu *mutex
}

func (w *waitq) len() int { return len(w.list) }

func (w *waitq) add(t *tcb) {
	i := 0
	for i < len(w.list) && w.list[i].prio <= t.prio {
		i++
	}
	w.list = append(w.list, nil)
	copy(w.list[i+1:], w.list[i:])
	w.list[i] = t
}

func (w *waitq) best() *tcb {
	if len(w.list) == 0 {
		return nil
	}
	return w.list[0]
}

func (w *waitq) pop() *tcb {
	if len(w.list) == 0 {
		return nil
	}
	t := w.list[0]
	copy(w.list, w.list[1:])
	w.list[len(w.list)-1] = nil
	w.list = w.list[:len(w.list)-1]
	return t
}

func (w *waitq) remove(t *tcb) bool {
	for i, x := range w.list {
		if x != t {
			continue
		}
		copy(w.list[i:], w.list[i+1:])
		w.list[len(w.list)-1] = nil
		w.list = w.list[:len(w.list)-1]
		return true
	}
	return false
}

// reposition re-sorts t after its priority changed.
func (w *waitq) reposition(t *tcb) {
	if w.remove(t) {
		w.add(t)
	}
}

func (w *waitq) clear() {
	for i := range w.list {
		w.list[i] = nil
	}
	w.list = w.list[:0]
}
