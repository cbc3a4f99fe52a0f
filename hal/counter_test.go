package hal

import (
	"testing"
	"time"

	"github.com/benbjohnson/clock"
)

func TestClockCounterFollowsMock(t *testing.T) {
	mock := clock.NewMock()
	c := ClockCounter(mock)

	if got := c.Now(); got != 0 {
		t.Fatalf("Now() = %d, want 0", got)
	}
	mock.Add(1500 * time.Nanosecond)
	if got := c.Now(); got != 1500 {
		t.Fatalf("Now() = %d, want 1500", got)
	}
	if got := c.Frequency(); got != nsPerSecond {
		t.Fatalf("Frequency() = %d, want %d", got, nsPerSecond)
	}
}

func TestTruncateWraps(t *testing.T) {
	mock := clock.NewMock()
	c := Truncate(ClockCounter(mock), 16)

	if got := c.Bits(); got != 16 {
		t.Fatalf("Bits() = %d, want 16", got)
	}
	mock.Add(0x1_0005 * time.Nanosecond)
	if got := c.Now(); got != 5 {
		t.Fatalf("Now() = %#x, want 0x5", got)
	}
	if got := c.Name(); got != "clock/16" {
		t.Fatalf("Name() = %q, want %q", got, "clock/16")
	}
}

func TestTruncateWideIsIdentity(t *testing.T) {
	base := ClockCounter(clock.NewMock())
	if got := Truncate(base, 64); got != base {
		t.Fatal("Truncate(64) should return the source counter")
	}
}

func TestRescale(t *testing.T) {
	mock := clock.NewMock()
	c := Rescale(ClockCounter(mock), 84_000_000)

	mock.Add(time.Millisecond)
	if got := c.Now(); got != 84_000 {
		t.Fatalf("Now() = %d, want 84000", got)
	}
	if got := c.Frequency(); got != 84_000_000 {
		t.Fatalf("Frequency() = %d, want 84000000", got)
	}
}

func TestMask(t *testing.T) {
	tests := []struct {
		bits uint
		want uint64
	}{
		{0, ^uint64(0)},
		{8, 0xff},
		{32, 0xffff_ffff},
		{64, ^uint64(0)},
	}
	for _, tt := range tests {
		if got := Mask(tt.bits); got != tt.want {
			t.Fatalf("Mask(%d) = %#x, want %#x", tt.bits, got, tt.want)
		}
	}
}

func TestHostCounterMonotonic(t *testing.T) {
	c := HostCounter()
	prev := c.Now()
	for i := 0; i < 1000; i++ {
		now := c.Now()
		if now < prev {
			t.Fatalf("Now() went backwards: %d < %d", now, prev)
		}
		prev = now
	}
}
