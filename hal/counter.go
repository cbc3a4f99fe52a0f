package hal

import (
	"fmt"
	"math/bits"
	"time"

	"github.com/benbjohnson/clock"
)

const nsPerSecond = 1_000_000_000

type clockCounter struct {
	clk   clock.Clock
	epoch time.Time
}

// ClockCounter returns a nanosecond counter read from clk. With a
// clock.Mock the counter only moves when the mock is advanced.
func ClockCounter(clk clock.Clock) Counter {
	if clk == nil {
		clk = clock.New()
	}
	return &clockCounter{clk: clk, epoch: clk.Now()}
}

func (c *clockCounter) Now() uint64 {
	d := c.clk.Since(c.epoch)
	if d < 0 {
		return 0
	}
	return uint64(d)
}

func (c *clockCounter) Frequency() uint64 { return nsPerSecond }
func (c *clockCounter) Bits() uint        { return 64 }
func (c *clockCounter) Name() string      { return "clock" }

type truncated struct {
	c    Counter
	bits uint
	mask uint64
}

// Truncate narrows c to a bits-wide counter, the way a 16- or 32-bit timer
// peripheral wraps.
func Truncate(c Counter, width uint) Counter {
	if width == 0 || width >= c.Bits() {
		return c
	}
	return &truncated{c: c, bits: width, mask: Mask(width)}
}

func (t *truncated) Now() uint64       { return t.c.Now() & t.mask }
func (t *truncated) Frequency() uint64 { return t.c.Frequency() }
func (t *truncated) Bits() uint        { return t.bits }
func (t *truncated) Name() string      { return fmt.Sprintf("%s/%d", t.c.Name(), t.bits) }

type rescaled struct {
	c  Counter
	hz uint64
}

// Rescale presents c as a counter running at hz, e.g. a core cycle counter
// derived from a nanosecond source.
func Rescale(c Counter, hz uint64) Counter {
	if hz == 0 || hz == c.Frequency() {
		return c
	}
	return &rescaled{c: c, hz: hz}
}

func (r *rescaled) Now() uint64 {
	hi, lo := bits.Mul64(r.c.Now(), r.hz)
	src := r.c.Frequency()
	if hi >= src {
		return ^uint64(0)
	}
	q, _ := bits.Div64(hi, lo, src)
	return q
}

func (r *rescaled) Frequency() uint64 { return r.hz }
func (r *rescaled) Bits() uint        { return 64 }
func (r *rescaled) Name() string      { return fmt.Sprintf("%s@%dHz", r.c.Name(), r.hz) }
