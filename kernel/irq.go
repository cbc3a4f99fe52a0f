package kernel

import (
	"runtime"

	"rtbench/bench"
)

// isr is the restricted view of the kernel handed to interrupt callbacks.
type isr struct {
	k *Kernel
}

func (i isr) SemGive(id bench.SemID) error { return i.k.SemGive(id) }
func (i isr) OffloadSubmitWork() error     { return i.k.OffloadSubmitWork() }
func (i isr) CounterGet() bench.Time       { return i.k.CounterGet() }

// IrqOffload runs fn in interrupt context on the calling CPU and returns
// once fn has completed. Nothing is rescheduled until the outermost
// interrupt returns; blocking operations called from fn fail with
// InvalidState.
func (k *Kernel) IrqOffload(fn bench.IRQFunc, arg any) error {
	if fn == nil {
		return bench.Errorf("irq offload", bench.NoHandle, bench.InvalidArgument, "nil routine")
	}
	k.enterISR()
	defer k.exitISR()
	fn(isr{k: k}, arg)
	return nil
}

func (k *Kernel) enterISR() {
	k.mu.Lock()
	k.isrDepth++
	k.mu.Unlock()
}

func (k *Kernel) exitISR() {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.isrDepth--
	if k.isrDepth > 0 || k.current == nil {
		return
	}
	if k.current.killed {
		// The interrupted thread was aborted from fn.
		k.resched = false
		k.dispatch()
		runtime.Goexit()
	}
	if k.resched {
		k.reschedule()
	}
}

// InISR reports whether the caller runs in interrupt context.
func (k *Kernel) InISR() bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.isrDepth > 0
}
