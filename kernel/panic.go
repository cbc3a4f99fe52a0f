package kernel

import (
	"fmt"

	"go.uber.org/zap"

	"rtbench/bench"
)

// PanicInfo contains details about a recovered panic.
type PanicInfo struct {
	Thread bench.ThreadID
	Name   string
	Value  any
	Stack  []byte
}

// PanicError is returned by Run when a thread entry panicked. The run halts
// at the next scheduling point.
type PanicError struct {
	Info PanicInfo
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("thread %q panicked: %v", e.Info.Name, e.Info.Value)
}

// fault records the first panic, halts scheduling and calls the OnPanic
// hook. The hook must not panic.
func (k *Kernel) fault(info PanicInfo) {
	info.Stack = captureStack()

	k.mu.Lock()
	first := k.panicked == nil
	if first {
		k.panicked = &PanicError{Info: info}
		k.halted = true
	}
	k.mu.Unlock()
	if !first {
		return
	}

	k.log.Error("thread panicked",
		zap.Int("thread", int(info.Thread)),
		zap.String("name", info.Name),
		zap.Any("value", info.Value),
		zap.ByteString("stack", info.Stack),
	)
	if fn := k.cfg.OnPanic; fn != nil {
		fn(info)
	}
}
