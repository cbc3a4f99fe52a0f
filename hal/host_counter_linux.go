//go:build linux

package hal

import "golang.org/x/sys/unix"

type hostCounter struct{}

// HostCounter returns the host's raw monotonic clock in nanoseconds. It is
// not slewed by NTP.
func HostCounter() Counter { return hostCounter{} }

func (hostCounter) Now() uint64 {
	var ts unix.Timespec
	if err := unix.ClockGettime(unix.CLOCK_MONOTONIC_RAW, &ts); err != nil {
		return 0
	}
	return uint64(ts.Nano())
}

func (hostCounter) Frequency() uint64 { return nsPerSecond }
func (hostCounter) Bits() uint        { return 64 }
func (hostCounter) Name() string      { return "monotonic_raw" }
