// Package timing implements the calibrated cycle timer shared by backends.
//
// A Timer wraps a hal.Counter. Init calibrates it once; Cycles and
// CyclesToNs are pure functions of that calibration.
package timing

import (
	"math/bits"
	"sync"
	"sync/atomic"

	"rtbench/bench"
	"rtbench/hal"
)

const (
	nsPerSecond = 1_000_000_000

	// overheadSamples is the number of back-to-back reads used to estimate
	// the cost of one counter read.
	overheadSamples = 64
)

// Calibration holds the constants computed by Init.
type Calibration struct {
	Frequency uint64
	Bits      uint
	Mask      uint64
	// Overhead is the smallest observed delta between two consecutive
	// reads, in counter units. Callers subtract it by convention.
	Overhead uint64
	Source   string
}

// Timer is a calibrated view of a counter.
type Timer struct {
	src hal.Counter

	once sync.Once
	cal  Calibration

	active  atomic.Bool
	windows atomic.Uint64
}

// New returns an uncalibrated timer over src.
func New(src hal.Counter) *Timer {
	if src == nil {
		src = hal.HostCounter()
	}
	return &Timer{src: src}
}

// Init calibrates the timer. Only the first call has an effect.
func (t *Timer) Init() {
	t.once.Do(t.calibrate)
}

func (t *Timer) calibrate() {
	freq := t.src.Frequency()
	if freq == 0 {
		freq = nsPerSecond
	}
	width := t.src.Bits()
	mask := hal.Mask(width)

	// Warm up, then take the minimum delta. The minimum is the closest
	// estimate of the fixed read cost; larger deltas include preemption.
	for i := 0; i < overheadSamples/4; i++ {
		_ = t.src.Now()
	}
	min := ^uint64(0)
	for i := 0; i < overheadSamples; i++ {
		a := t.src.Now()
		b := t.src.Now()
		if d := (b - a) & mask; d < min {
			min = d
		}
	}

	t.cal = Calibration{
		Frequency: freq,
		Bits:      width,
		Mask:      mask,
		Overhead:  min,
		Source:    t.src.Name(),
	}
}

// Calibration returns the constants computed by Init, calibrating first if
// needed.
func (t *Timer) Calibration() Calibration {
	t.Init()
	return t.cal
}

// Start opens a measurement window.
func (t *Timer) Start() {
	t.Init()
	if !t.active.Swap(true) {
		t.windows.Add(1)
	}
}

// Stop closes the current measurement window.
func (t *Timer) Stop() { t.active.Store(false) }

// Active reports whether a window is open.
func (t *Timer) Active() bool { return t.active.Load() }

// Windows returns the number of windows opened so far.
func (t *Timer) Windows() uint64 { return t.windows.Load() }

// Counter reads the underlying counter.
func (t *Timer) Counter() bench.Time { return bench.Time(t.src.Now()) }

// Cycles returns end-start in counter units, modulo the counter width, so a
// single wrap between the two reads still yields the elapsed count.
func (t *Timer) Cycles(start, end bench.Time) bench.Time {
	return bench.Time((uint64(end) - uint64(start)) & t.Calibration().Mask)
}

// CyclesToNs converts counter units to nanoseconds, rounding half up.
// Results that do not fit in 64 bits saturate.
func (t *Timer) CyclesToNs(cycles bench.Time) bench.Time {
	return bench.Time(ToNs(uint64(cycles), t.Calibration().Frequency))
}

// Overhead returns the calibrated cost of one counter read in counter units.
func (t *Timer) Overhead() bench.Time { return bench.Time(t.Calibration().Overhead) }

// Frequency returns the calibrated counter rate in Hz.
func (t *Timer) Frequency() uint64 { return t.Calibration().Frequency }

// ToNs converts cycles at freq Hz to nanoseconds, rounding half up.
func ToNs(cycles, freq uint64) uint64 {
	if freq == nsPerSecond {
		return cycles
	}
	if freq == 0 {
		return 0
	}
	hi, lo := bits.Mul64(cycles, nsPerSecond)
	lo, carry := bits.Add64(lo, freq/2, 0)
	hi += carry
	if hi >= freq {
		return ^uint64(0)
	}
	q, _ := bits.Div64(hi, lo, freq)
	return q
}
