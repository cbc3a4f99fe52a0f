package suite

import "rtbench/bench"

const (
	semDone bench.SemID    = 0
	semWake bench.SemID    = 1
	mutexA  bench.MutexID  = 0
	threadA bench.ThreadID = 1
	threadB bench.ThreadID = 2
)

// threadSwitch times a Yield from one thread to an equal-priority peer.
func threadSwitch(r *recorder, prm Params) {
	p := r.p
	var start bench.Time
	if r.check(p.SemCreate(semDone, 0, 2)) {
		return
	}
	ping := func(any) {
		for i := 0; i < prm.Iterations; i++ {
			start = p.CounterGet()
			if r.check(p.Yield()) {
				break
			}
		}
		_ = p.SemGive(semDone)
	}
	pong := func(any) {
		for i := 0; i < prm.Iterations; i++ {
			r.sample(start, p.CounterGet())
			if r.check(p.Yield()) {
				break
			}
		}
		_ = p.SemGive(semDone)
	}
	if r.check(p.ThreadCreate(threadA, "ping", prm.Low, ping, nil)) ||
		r.check(p.ThreadCreate(threadB, "pong", prm.Low, pong, nil)) ||
		r.check(p.ThreadStart(threadA)) ||
		r.check(p.ThreadStart(threadB)) {
		return
	}
	_ = p.SemTake(semDone)
	_ = p.SemTake(semDone)
}

// semSignal times a give that wakes a more urgent waiter.
func semSignal(r *recorder, prm Params) {
	p := r.p
	var start bench.Time
	if r.check(p.SemCreate(semWake, 0, 1)) {
		return
	}
	waiter := func(any) {
		for i := 0; i < prm.Iterations; i++ {
			if r.check(p.SemTake(semWake)) {
				return
			}
			r.sample(start, p.CounterGet())
		}
	}
	if r.check(p.ThreadCreate(threadA, "waiter", prm.High, waiter, nil)) || r.check(p.ThreadStart(threadA)) {
		return
	}
	for i := 0; i < prm.Iterations; i++ {
		start = p.CounterGet()
		if r.check(p.SemGive(semWake)) {
			return
		}
	}
}

// isrSemGive times a give from interrupt context to the woken thread.
func isrSemGive(r *recorder, prm Params) {
	p := r.p
	var start bench.Time
	if r.check(p.SemCreate(semWake, 0, 1)) {
		return
	}
	waiter := func(any) {
		for i := 0; i < prm.Iterations; i++ {
			if r.check(p.SemTake(semWake)) {
				return
			}
			r.sample(start, p.CounterGet())
		}
	}
	give := func(isr bench.ISR, _ any) {
		start = isr.CounterGet()
		r.check(isr.SemGive(semWake))
	}
	if r.check(p.ThreadCreate(threadA, "waiter", prm.High, waiter, nil)) || r.check(p.ThreadStart(threadA)) {
		return
	}
	for i := 0; i < prm.Iterations; i++ {
		if r.check(p.IrqOffload(give, nil)) {
			return
		}
	}
}

// offloadLatency times a submission from interrupt context until the
// worker starts the stored work.
func offloadLatency(r *recorder, prm Params) {
	p := r.p
	var start bench.Time
	if r.check(p.SemCreate(semDone, 0, 1)) || r.check(p.OffloadSetup()) {
		return
	}
	work := func(*bench.Work) {
		r.sample(start, p.CounterGet())
		_ = p.SemGive(semDone)
	}
	if r.check(p.OffloadCreateWork(work)) {
		return
	}
	submit := func(isr bench.ISR, _ any) {
		start = isr.CounterGet()
		r.check(isr.OffloadSubmitWork())
	}
	for i := 0; i < prm.Iterations; i++ {
		if r.check(p.IrqOffload(submit, nil)) || r.check(p.SemTake(semDone)) {
			return
		}
	}
}

func mutexUncontended(r *recorder, prm Params) {
	p := r.p
	if r.check(p.MutexCreate(mutexA)) {
		return
	}
	for i := 0; i < prm.Iterations; i++ {
		start := p.CounterGet()
		if r.check(p.MutexLock(mutexA)) || r.check(p.MutexUnlock(mutexA)) {
			return
		}
		r.sample(start, p.CounterGet())
	}
}

// threadCreateStart times create plus start until the new, more urgent
// thread runs. The handle is reused once the thread has returned.
func threadCreateStart(r *recorder, prm Params) {
	p := r.p
	var start bench.Time
	child := func(any) { r.sample(start, p.CounterGet()) }
	for i := 0; i < prm.Iterations; i++ {
		start = p.CounterGet()
		if r.check(p.ThreadCreate(threadA, "child", prm.High, child, nil)) || r.check(p.ThreadStart(threadA)) {
			return
		}
	}
}
