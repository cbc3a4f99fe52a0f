package hal

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// DefaultTickPeriod is the tick length used when none is configured.
const DefaultTickPeriod = time.Millisecond

// Ticker turns a clock ticker into a tick stream. Elapsed time is
// accumulated so that late or dropped clock ticks still advance the tick
// count by the number of whole periods that passed.
type Ticker struct {
	ch     chan uint64
	seq    uint64
	period time.Duration

	clk  clock.Clock
	tk   *clock.Ticker
	last time.Time
	acc  time.Duration

	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// NewTicker starts a tick stream on clk with the given period.
func NewTicker(clk clock.Clock, period time.Duration) *Ticker {
	if clk == nil {
		clk = clock.New()
	}
	if period <= 0 {
		period = DefaultTickPeriod
	}
	t := &Ticker{
		ch:     make(chan uint64, 1024),
		period: period,
		clk:    clk,
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	// Created before the goroutine starts so a mock clock advanced right
	// after NewTicker returns still fires it.
	t.tk = clk.Ticker(period)
	t.last = clk.Now()
	go t.run()
	return t
}

func (t *Ticker) Ticks() <-chan uint64 { return t.ch }

// Period returns the tick length.
func (t *Ticker) Period() time.Duration { return t.period }

// Stop halts the stream. It is safe to call more than once.
func (t *Ticker) Stop() {
	t.stopOnce.Do(func() {
		close(t.stop)
		<-t.done
	})
}

func (t *Ticker) run() {
	defer close(t.done)
	defer t.tk.Stop()
	for {
		select {
		case <-t.stop:
			return
		case now := <-t.tk.C:
			t.step(now)
		}
	}
}

func (t *Ticker) step(now time.Time) {
	t.acc += now.Sub(t.last)
	t.last = now

	ticks := uint64(t.acc / t.period)
	if ticks == 0 {
		return
	}
	t.acc = t.acc % t.period
	t.stepN(ticks)
}

func (t *Ticker) stepN(n uint64) {
	for i := uint64(0); i < n; i++ {
		t.seq++
		select {
		case t.ch <- t.seq:
		default:
		}
	}
}
