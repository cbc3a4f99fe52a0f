// Package kernel is the reference backend for the bench contract: a
// simulated single-CPU, preemptive, priority-based scheduler.
//
// Every kernel thread is a goroutine, but only the one holding the CPU runs;
// the CPU is handed over explicitly on a per-thread wake channel. Scheduling
// decisions happen at kernel entry (every Port call) and when the outermost
// interrupt returns. Timer interrupts arriving while a thread runs are
// honoured at its next kernel entry.
//
// Backend policies:
//   - Priorities are in [0, NumPriorities); lower values are more urgent.
//   - No time slicing; equal priorities only switch on Yield or blocking.
//   - Semaphore and mutex waiters are woken most urgent first, FIFO among
//     equal priorities.
//   - Mutexes are recursive for their owner and use priority inheritance.
//   - An aborted thread's mutexes pass to their next waiter.
//   - Aborting the interrupted thread from an IrqOffload callback takes
//     effect when the outermost interrupt returns.
//
// Port methods must be called from kernel threads, from an IrqOffload
// callback, or before Run.
//
// An aborted thread's goroutine unwinds after another thread already holds
// the CPU, so its deferred calls run outside the kernel's schedule. They
// must not call the kernel: a thread entry must not rely on
// defer MutexUnlock or defer SemGive for cleanup.
package kernel

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"rtbench/bench"
	"rtbench/hal"
	"rtbench/timing"
)

const (
	// MaxHandles bounds every handle table: valid handles are
	// [0, MaxHandles).
	MaxHandles = 64
	// MaxThreads is the ceiling for concurrently live user threads.
	MaxThreads = 32
	// NumPriorities is the number of priority levels.
	NumPriorities = 32

	DefaultMainPriority    bench.Priority = 10
	DefaultOffloadPriority bench.Priority = 0
)

// Config controls a Kernel. Zero durations, nil sources and a zero
// MaxThreads are replaced by defaults; priorities are used as given.
type Config struct {
	// MaxThreads is the live user thread capacity, at most MaxThreads.
	MaxThreads int
	// MainPriority is the priority of the thread running TestInit's init.
	MainPriority bench.Priority
	// OffloadPriority is the priority of the offload worker thread.
	OffloadPriority bench.Priority

	// TickPeriod is the tick length when Ticks is nil.
	TickPeriod time.Duration
	// Clock drives the default tick stream.
	Clock clock.Clock
	// Ticks overrides the tick source. The kernel does not stop it.
	Ticks hal.Time
	// Counter is the cycle counter behind the timing operations.
	Counter hal.Counter

	Logger *zap.Logger
	// OnPanic is called once, on the first panic in a thread.
	OnPanic func(PanicInfo)
}

// DefaultConfig returns the configuration used by the CLI.
func DefaultConfig() Config {
	return Config{
		MaxThreads:      MaxThreads,
		MainPriority:    DefaultMainPriority,
		OffloadPriority: DefaultOffloadPriority,
		TickPeriod:      hal.DefaultTickPeriod,
	}
}

// Kernel implements bench.Port and bench.Inspector.
type Kernel struct {
	cfg   Config
	log   *zap.Logger
	timer *timing.Timer

	mu sync.Mutex

	threads [MaxHandles]*tcb
	live    int
	sems    [MaxHandles]*semaphore
	mutexes [MaxHandles]*mutex

	ready    readyQueue
	current  *tcb
	isrDepth int
	resched  bool

	tick     uint64
	tickWait waitq

	off offloadState

	running  bool
	halted   bool
	panicked *PanicError
	spawned  map[*tcb]struct{}
	wg       sync.WaitGroup
	idle     chan struct{}
}

var (
	_ bench.Port      = (*Kernel)(nil)
	_ bench.Inspector = (*Kernel)(nil)
)

// New creates a kernel. Nothing runs until Run or TestInit.
func New(cfg Config) *Kernel {
	if cfg.MaxThreads <= 0 || cfg.MaxThreads > MaxThreads {
		cfg.MaxThreads = MaxThreads
	}
	if cfg.TickPeriod <= 0 {
		cfg.TickPeriod = hal.DefaultTickPeriod
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}
	if cfg.Counter == nil {
		cfg.Counter = hal.HostCounter()
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Kernel{
		cfg:     cfg,
		log:     cfg.Logger,
		timer:   timing.New(cfg.Counter),
		spawned: make(map[*tcb]struct{}),
		idle:    make(chan struct{}, 1),
	}
}

// Timer returns the calibrated timer behind the timing operations.
func (k *Kernel) Timer() *timing.Timer { return k.timer }

// Tick returns the last tick number delivered.
func (k *Kernel) Tick() uint64 {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.tick
}

// TestInit runs init as the main thread until the system is idle.
func (k *Kernel) TestInit(init bench.Entry) error {
	return k.Run(context.Background(), init, nil)
}

// Run starts the scheduler with init as the main thread and blocks until no
// thread is ready and none waits for a tick, or until ctx is done. Threads
// still pending at that point are aborted.
func (k *Kernel) Run(ctx context.Context, init bench.Entry, arg any) error {
	if init == nil {
		return bench.Errorf("run", bench.NoHandle, bench.InvalidArgument, "nil init")
	}
	if err := validPriority(k.cfg.MainPriority); err != nil {
		return bench.Errorf("run", bench.NoHandle, bench.InvalidArgument, "main priority %d", k.cfg.MainPriority)
	}

	k.mu.Lock()
	if k.running {
		k.mu.Unlock()
		return bench.Errorf("run", bench.NoHandle, bench.InvalidState, "already running")
	}
	k.running = true
	k.halted = false
	k.panicked = nil

	ticks := k.cfg.Ticks
	var owned *hal.Ticker
	if ticks == nil {
		owned = hal.NewTicker(k.cfg.Clock, k.cfg.TickPeriod)
		ticks = owned
	}
	stopTicks := make(chan struct{})
	tickDone := make(chan struct{})
	go k.tickLoop(ticks, stopTicks, tickDone)

	main := newTCB(bench.ThreadID(bench.NoHandle), "main", k.cfg.MainPriority, init, arg)
	k.startLocked(main)
	if k.current == nil {
		k.dispatch()
	}
	k.mu.Unlock()

	k.log.Info("kernel running",
		zap.Int("main_prio", int(k.cfg.MainPriority)),
		zap.Duration("tick", k.cfg.TickPeriod),
		zap.String("counter", k.cfg.Counter.Name()),
	)

	var err error
	done := ctx.Done()
	for {
		select {
		case <-k.idle:
		case <-done:
			done = nil
			err = ctx.Err()
			k.mu.Lock()
			k.halted = true
			k.mu.Unlock()
		}
		if k.finished() {
			break
		}
	}

	close(stopTicks)
	<-tickDone
	if owned != nil {
		owned.Stop()
	}
	aborted := k.shutdown()

	k.mu.Lock()
	if k.panicked != nil {
		err = k.panicked
	}
	k.running = false
	k.mu.Unlock()

	k.log.Info("kernel idle", zap.Int("aborted", aborted), zap.Error(err))
	return err
}

func (k *Kernel) finished() bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.current != nil {
		return false
	}
	return k.halted || (k.ready.empty() && k.tickWait.len() == 0)
}

// shutdown aborts every thread that is still alive and waits for their
// goroutines. It returns the number of threads aborted.
func (k *Kernel) shutdown() int {
	k.mu.Lock()
	k.halted = true
	n := 0
	for t := range k.spawned {
		if t.finished {
			continue
		}
		n++
		k.terminate(t)
		t.killed = true
		t.wake <- struct{}{}
	}
	k.ready = readyQueue{}
	k.tickWait.clear()
	k.off = offloadState{}
	k.mu.Unlock()

	k.wg.Wait()

	k.mu.Lock()
	k.spawned = make(map[*tcb]struct{})
	k.mu.Unlock()
	return n
}

func (k *Kernel) signalIdle() {
	select {
	case k.idle <- struct{}{}:
	default:
	}
}

func validPriority(p bench.Priority) error {
	if p < 0 || p >= NumPriorities {
		return bench.InvalidArgument
	}
	return nil
}
