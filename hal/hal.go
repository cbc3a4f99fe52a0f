// Package hal provides the clock sources the benchmark layer is measured
// with: a free-running cycle counter and a periodic tick stream.
package hal

// Counter is a free-running hardware counter.
//
// Now must be cheap and of constant cost. Values wrap modulo 2^Bits.
type Counter interface {
	Now() uint64
	// Frequency is the count rate in Hz.
	Frequency() uint64
	// Bits is the counter width, 1..64.
	Bits() uint
	Name() string
}

// Time provides a base tick stream.
//
// The tick duration is platform-defined. Tick values increase by one per
// elapsed tick; a slow consumer may observe gaps.
type Time interface {
	Ticks() <-chan uint64
	Stop()
}

// Mask returns the wrap mask for a counter of the given width.
func Mask(bits uint) uint64 {
	if bits == 0 || bits >= 64 {
		return ^uint64(0)
	}
	return 1<<bits - 1
}
