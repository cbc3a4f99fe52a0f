package timing

import (
	"math/rand"
	"testing"
	"time"

	"github.com/benbjohnson/clock"

	"rtbench/bench"
	"rtbench/hal"
)

type fakeCounter struct {
	now   uint64
	step  uint64
	freq  uint64
	width uint
	reads int
}

func (c *fakeCounter) Now() uint64 {
	c.reads++
	c.now += c.step
	return c.now & hal.Mask(c.width)
}

func (c *fakeCounter) Frequency() uint64 { return c.freq }
func (c *fakeCounter) Bits() uint        { return c.width }
func (c *fakeCounter) Name() string      { return "fake" }

func TestInitIsIdempotent(t *testing.T) {
	c := &fakeCounter{step: 3, freq: 100_000_000, width: 32}
	tm := New(c)

	tm.Init()
	reads := c.reads
	tm.Init()
	if c.reads != reads {
		t.Fatalf("second Init() read the counter %d more times, want 0", c.reads-reads)
	}

	cal := tm.Calibration()
	if cal.Overhead != 3 {
		t.Fatalf("Overhead = %d, want 3", cal.Overhead)
	}
	if cal.Mask != 0xffff_ffff {
		t.Fatalf("Mask = %#x, want 0xffffffff", cal.Mask)
	}
	if cal.Frequency != 100_000_000 {
		t.Fatalf("Frequency = %d, want 100000000", cal.Frequency)
	}
}

func TestZeroFrequencyDefaultsToNanoseconds(t *testing.T) {
	tm := New(&fakeCounter{width: 64})
	if got := tm.Frequency(); got != 1_000_000_000 {
		t.Fatalf("Frequency() = %d, want 1e9", got)
	}
}

func TestCyclesHandlesWrap(t *testing.T) {
	tm := New(&fakeCounter{freq: 1_000_000, width: 16})

	tests := []struct {
		start, end bench.Time
		want       bench.Time
	}{
		{10, 30, 20},
		{0xfff0, 0x0010, 0x20},
		{0xffff, 0x0000, 1},
		{5, 5, 0},
	}
	for _, tt := range tests {
		if got := tm.Cycles(tt.start, tt.end); got != tt.want {
			t.Fatalf("Cycles(%#x, %#x) = %#x, want %#x", tt.start, tt.end, got, tt.want)
		}
	}
}

func TestCyclesToNsRoundsHalfUp(t *testing.T) {
	tests := []struct {
		cycles, freq, want uint64
	}{
		{1, 2_000_000_000, 1}, // 0.5ns
		{3, 2_000_000_000, 2}, // 1.5ns
		{1, 3_000_000_000, 0}, // 0.333ns
		{2, 3_000_000_000, 1}, // 0.667ns
		{84, 84_000_000, 1000},
		{123, 1_000_000_000, 123},
		{7, 0, 0},
	}
	for _, tt := range tests {
		if got := ToNs(tt.cycles, tt.freq); got != tt.want {
			t.Fatalf("ToNs(%d, %d) = %d, want %d", tt.cycles, tt.freq, got, tt.want)
		}
	}
}

func TestCyclesToNsSaturates(t *testing.T) {
	if got := ToNs(^uint64(0), 1000); got != ^uint64(0) {
		t.Fatalf("ToNs(max, 1kHz) = %d, want saturation", got)
	}
}

func TestCyclesToNsLinear(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	freqs := []uint64{32_768, 1_000_000, 84_000_000, 216_000_000, 1_000_000_000, 3_600_000_000}
	for _, freq := range freqs {
		tm := New(&fakeCounter{freq: freq, width: 64})
		for i := 0; i < 2000; i++ {
			c := bench.Time(rng.Uint64() >> 24)
			one := tm.CyclesToNs(c)
			two := tm.CyclesToNs(2 * c)
			diff := int64(two) - 2*int64(one)
			if diff < -1 || diff > 1 {
				t.Fatalf("freq %d: CyclesToNs(2*%d) = %d, 2*CyclesToNs(%d) = %d", freq, c, two, c, 2*one)
			}
		}
	}
}

func TestWindows(t *testing.T) {
	tm := New(hal.ClockCounter(clock.NewMock()))
	if tm.Active() {
		t.Fatal("Active() = true before Start")
	}
	tm.Start()
	tm.Start()
	if !tm.Active() {
		t.Fatal("Active() = false after Start")
	}
	tm.Stop()
	tm.Start()
	tm.Stop()
	if got := tm.Windows(); got != 2 {
		t.Fatalf("Windows() = %d, want 2", got)
	}
}

func TestCounterMonotonicInWindow(t *testing.T) {
	mock := clock.NewMock()
	tm := New(hal.ClockCounter(mock))
	tm.Start()
	defer tm.Stop()

	prev := tm.Counter()
	for i := 0; i < 100; i++ {
		mock.Add(time.Duration(i%3) * time.Microsecond)
		now := tm.Counter()
		if now < prev {
			t.Fatalf("Counter() decreased: %d < %d", now, prev)
		}
		if d := tm.Cycles(prev, now); d != now-prev {
			t.Fatalf("Cycles() = %d, want %d", d, now-prev)
		}
		prev = now
	}
}
