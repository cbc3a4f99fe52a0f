package kernel

import "rtbench/bench"

// TimingInit calibrates the counter. Repeated calls are harmless.
func (k *Kernel) TimingInit() error {
	k.timer.Init()
	return nil
}

// SyncTicks blocks the calling thread until the next tick interrupt.
func (k *Kernel) SyncTicks() error {
	const op = "sync ticks"
	k.mu.Lock()
	defer k.mu.Unlock()

	cur, err := k.threadContext(op)
	if err != nil {
		return err
	}
	k.block(cur, &k.tickWait)
	return nil
}

func (k *Kernel) TimingStart() { k.timer.Start() }
func (k *Kernel) TimingStop()  { k.timer.Stop() }

// CounterGet reads the cycle counter. It takes no locks.
func (k *Kernel) CounterGet() bench.Time { return k.timer.Counter() }

func (k *Kernel) CyclesGet(start, end bench.Time) bench.Time { return k.timer.Cycles(start, end) }

func (k *Kernel) CyclesToNs(cycles bench.Time) bench.Time { return k.timer.CyclesToNs(cycles) }
