package kernel

import (
	"sync"
	"testing"
	"time"
)

func TestLockName(t *testing.T) {
	l := NewLock("RegionTracker")
	if got := l.Name(); got != "RegionTracker" {
		t.Fatalf("Name() = %q, want %q", got, "RegionTracker")
	}
}

func TestLockMutualExclusion(t *testing.T) {
	const (
		workers = 8
		perWork = 5_000
	)

	l := NewLock("counter")
	var counter int

	start := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			<-start
			for j := 0; j < perWork; j++ {
				l.Lock()
				counter++
				l.Unlock()
			}
		}()
	}
	close(start)
	wg.Wait()

	if counter != workers*perWork {
		t.Fatalf("counter = %d, want %d", counter, workers*perWork)
	}
}

func TestLockWaitNotifyOne(t *testing.T) {
	l := NewLock("ready")
	ready := false
	done := make(chan struct{})

	go func() {
		l.Lock()
		for !ready {
			l.Wait()
		}
		l.Unlock()
		close(done)
	}()

	l.Lock()
	ready = true
	l.NotifyOne()
	l.Unlock()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("waiter not woken by NotifyOne")
	}
}

func TestLockNotifyAllWakesEveryWaiter(t *testing.T) {
	const waiters = 5

	l := NewLock("gate")
	open := false

	var wg sync.WaitGroup
	wg.Add(waiters)
	for i := 0; i < waiters; i++ {
		go func() {
			defer wg.Done()
			l.Lock()
			for !open {
				l.Wait()
			}
			l.Unlock()
		}()
	}

	l.Lock()
	open = true
	l.NotifyAll()
	l.Unlock()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("NotifyAll did not wake all %d waiters", waiters)
	}
}

func TestLockFreedPanics(t *testing.T) {
	l := NewLock("gone")
	l.Free()

	defer func() {
		if recover() == nil {
			t.Fatalf("Lock() after Free did not panic")
		}
	}()
	l.Lock()
}

func TestSleepNonPositiveReturnsImmediately(t *testing.T) {
	start := time.Now()
	Sleep(0)
	Sleep(-time.Second)
	if d := time.Since(start); d > 100*time.Millisecond {
		t.Fatalf("Sleep(<=0) took %v", d)
	}
}

func TestGuardRecoversAndNotifies(t *testing.T) {
	var got PanicInfo
	SetPanicHandler(func(info PanicInfo) { got = info })
	defer SetPanicHandler(nil)

	info := Guard("item", func() { panic("boom") })
	if info == nil {
		t.Fatalf("Guard() = nil, want panic info")
	}
	if info.Value != "boom" || info.Source != "item" {
		t.Fatalf("Guard() = %+v, want Source=item Value=boom", *info)
	}
	if len(info.Stack) == 0 {
		t.Fatalf("Guard() stack empty")
	}
	if got.Source != "item" {
		t.Fatalf("handler Source = %q, want %q", got.Source, "item")
	}

	if info := Guard("ok", func() {}); info != nil {
		t.Fatalf("Guard() = %+v, want nil", *info)
	}
}
