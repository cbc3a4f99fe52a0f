//go:build !linux

package hal

import "time"

var hostEpoch = time.Now()

type hostCounter struct{}

// HostCounter returns nanoseconds since process start from the runtime's
// monotonic clock.
func HostCounter() Counter { return hostCounter{} }

func (hostCounter) Now() uint64 { return uint64(time.Since(hostEpoch)) }

func (hostCounter) Frequency() uint64 { return nsPerSecond }
func (hostCounter) Bits() uint        { return 64 }
func (hostCounter) Name() string      { return "time.Now" }
