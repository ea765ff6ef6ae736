package kernel

import (
	"sync"
	"sync/atomic"
	"time"
)

// Lock is a named mutual-exclusion lock paired with a condition variable.
//
// The name identifies the critical section in diagnostics. A Lock must be
// created with NewLock and must not be copied after first use.
type Lock struct {
	name  string
	mu    sync.Mutex
	cond  *sync.Cond
	freed atomic.Bool
}

// NewLock allocates a lock for the critical section called name.
func NewLock(name string) *Lock {
	l := &Lock{name: name}
	l.cond = sync.NewCond(&l.mu)
	return l
}

// Name returns the critical-section name.
func (l *Lock) Name() string { return l.name }

// Lock acquires the lock, blocking until it is available.
func (l *Lock) Lock() {
	l.check()
	l.mu.Lock()
}

// Unlock releases the lock.
func (l *Lock) Unlock() {
	l.mu.Unlock()
}

// Wait atomically releases the lock and suspends the caller until NotifyOne or
// NotifyAll wakes it. The lock is held again when Wait returns.
//
// The caller must hold the lock. Spurious wakeups are possible, so callers
// re-check their condition in a loop.
func (l *Lock) Wait() {
	l.check()
	l.cond.Wait()
}

// NotifyOne wakes one goroutine blocked in Wait, if any.
func (l *Lock) NotifyOne() { l.cond.Signal() }

// NotifyAll wakes every goroutine blocked in Wait.
func (l *Lock) NotifyAll() { l.cond.Broadcast() }

// Free marks the lock as destroyed. Any later Lock or Wait panics.
func (l *Lock) Free() {
	l.freed.Store(true)
}

func (l *Lock) check() {
	if l.freed.Load() {
		panic("kernel: use of freed lock " + l.name)
	}
}

// Sleep suspends the calling goroutine for d. It does not interact with any
// lock, so callers must not hold one while sleeping.
func Sleep(d time.Duration) {
	if d <= 0 {
		return
	}
	time.Sleep(d)
}
