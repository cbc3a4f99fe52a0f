package kernel

import (
	"go.uber.org/zap"

	"rtbench/bench"
)

// offloadState is the single work slot and its worker thread.
type offloadState struct {
	worker  *tcb
	fn      bench.WorkerFunc
	pending bool
	seq     uint64
	wait    waitq
}

// OffloadSetup starts the worker thread that services submitted work.
// Later calls are no-ops.
func (k *Kernel) OffloadSetup() error {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.off.worker != nil {
		return nil
	}
	if validPriority(k.cfg.OffloadPriority) != nil {
		return bench.Errorf("offload setup", bench.NoHandle, bench.InvalidArgument, "priority %d", k.cfg.OffloadPriority)
	}
	w := newTCB(bench.ThreadID(bench.NoHandle), "offload", k.cfg.OffloadPriority, k.worker, nil)
	k.off.worker = w
	k.startLocked(w)
	k.log.Debug("offload worker started", zap.Int("prio", int(w.prio)))
	k.reschedule()
	return nil
}

// OffloadCreateWork stores fn in the work slot, replacing any previous
// function. A submission still pending runs the new function.
func (k *Kernel) OffloadCreateWork(fn bench.WorkerFunc) error {
	const op = "offload create work"
	if fn == nil {
		return bench.Errorf(op, bench.NoHandle, bench.InvalidArgument, "nil worker")
	}
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.off.worker == nil {
		return bench.Errorf(op, bench.NoHandle, bench.InvalidState, "offload not set up")
	}
	k.off.fn = fn
	k.poll()
	return nil
}

// OffloadSubmitWork queues the stored work for the worker thread and returns
// without waiting. Submitting while a submission is pending coalesces with
// it.
func (k *Kernel) OffloadSubmitWork() error {
	const op = "offload submit work"
	k.mu.Lock()
	defer k.mu.Unlock()

	switch {
	case k.off.worker == nil:
		return bench.Errorf(op, bench.NoHandle, bench.InvalidState, "offload not set up")
	case k.off.fn == nil:
		return bench.Errorf(op, bench.NoHandle, bench.InvalidState, "no work created")
	}
	if !k.off.pending {
		k.off.pending = true
		k.off.seq++
		if t := k.off.wait.pop(); t != nil {
			k.wakeLocked(t)
		}
	}
	k.reschedule()
	return nil
}

// worker is the offload thread's entry.
func (k *Kernel) worker(any) {
	for {
		fn, w := k.nextWork()
		fn(w)
	}
}

func (k *Kernel) nextWork() (bench.WorkerFunc, *bench.Work) {
	k.mu.Lock()
	defer k.mu.Unlock()

	self := k.current
	for !k.off.pending {
		k.block(self, &k.off.wait)
	}
	k.off.pending = false
	return k.off.fn, bench.NewWork(k.off.seq)
}
