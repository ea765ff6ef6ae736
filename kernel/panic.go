package kernel

import (
	"runtime/debug"
	"sync/atomic"
)

// PanicInfo contains details about a recovered panic.
type PanicInfo struct {
	Source string
	Value  any
	Stack  []byte
}

var panicHandler atomic.Value // func(PanicInfo)

// SetPanicHandler installs a process-wide handler for panics recovered by Guard.
//
// The handler may be invoked concurrently. It must not panic.
func SetPanicHandler(fn func(PanicInfo)) {
	panicHandler.Store(fn)
}

// Guard runs fn and recovers a panic raised by it. On panic the installed
// handler is notified and the returned info is non-nil.
func Guard(source string, fn func()) (info *PanicInfo) {
	defer func() {
		v := recover()
		if v == nil {
			return
		}
		info = &PanicInfo{Source: source, Value: v, Stack: debug.Stack()}
		if h := panicHandler.Load(); h != nil {
			if fn, ok := h.(func(PanicInfo)); ok && fn != nil {
				fn(*info)
			}
		}
	}()
	fn()
	return nil
}
