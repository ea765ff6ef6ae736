package betweenframe

import (
	"runtime"
	"sync"
	"testing"
	"worldview/engine/stats"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueEmpty(t *testing.T) {
	q := New(nil, nil)
	assert.False(t, q.HasWorkItems())
	assert.Equal(t, 0, q.Len())
	assert.Equal(t, 0, q.ProcessWorkItems(3))
	assert.Equal(t, 0, q.ProcessCost(100))
}

func TestQueueFIFO(t *testing.T) {
	q := New(nil, nil)
	var order []string
	for _, name := range []string{"A", "B", "C"} {
		name := name
		q.SubmitFunc(KindUnknown, 1, func() { order = append(order, name) })
	}

	require.Equal(t, 3, q.ProcessWorkItems(10))
	assert.Equal(t, []string{"A", "B", "C"}, order)
	assert.False(t, q.HasWorkItems())
}

func TestQueueBoundedDrain(t *testing.T) {
	q := New(nil, nil)
	ran := 0
	for i := 0; i < 10; i++ {
		q.SubmitFunc(KindUnknown, 1, func() { ran++ })
	}

	assert.Equal(t, 3, q.ProcessWorkItems(3))
	assert.Equal(t, 3, ran)
	assert.Equal(t, 7, q.Len())
	assert.True(t, q.HasWorkItems())

	assert.Equal(t, 7, q.ProcessWorkItems(0))
	assert.Equal(t, 10, ran)
	assert.False(t, q.HasWorkItems())
}

func TestQueueItemsSubmittedWhileRunningWaitForNextDrain(t *testing.T) {
	q := New(nil, nil)
	inner := false
	q.SubmitFunc(KindUnknown, 1, func() {
		q.SubmitFunc(KindUnknown, 1, func() { inner = true })
	})

	assert.Equal(t, 1, q.ProcessWorkItems(0))
	assert.False(t, inner)
	assert.Equal(t, 1, q.Len())

	assert.Equal(t, 1, q.ProcessWorkItems(0))
	assert.True(t, inner)
}

func TestQueueProcessCost(t *testing.T) {
	q := New(nil, nil)
	var ran []int
	costs := []int{20, 50, 5, 20, 0}
	for i, c := range costs {
		i := i
		q.SubmitFunc(KindCreateMesh, c, func() { ran = append(ran, i) })
	}

	// 20 + 50 reaches 60.
	assert.Equal(t, 2, q.ProcessCost(60))
	assert.Equal(t, []int{0, 1}, ran)

	// Budget smaller than the head item still runs one.
	assert.Equal(t, 1, q.ProcessCost(1))
	assert.Equal(t, []int{0, 1, 2}, ran)

	// Zero cost counts as one.
	assert.Equal(t, 2, q.ProcessCost(21))
	assert.False(t, q.HasWorkItems())
}

func TestQueueRecoversPanickingItem(t *testing.T) {
	s := stats.New()
	q := New(s, nil)
	after := false
	q.SubmitFunc(KindMapRegion, 1, func() { panic("bad region") })
	q.SubmitFunc(KindMapRegion, 1, func() { after = true })

	assert.Equal(t, 2, q.ProcessWorkItems(0))
	assert.True(t, after)

	v, _ := s.Get(StatPanics)
	assert.Equal(t, int64(1), v)
	v, _ = s.Get("betweenframe.map_region")
	assert.Equal(t, int64(2), v)
}

func TestQueueStats(t *testing.T) {
	s := stats.New()
	q := New(s, nil)
	q.SubmitFunc(KindCreateMesh, 1, func() {})
	q.SubmitFunc(KindUpdateTerrain, 1, func() {})
	q.Submit(nil)

	v, _ := s.Get(StatWorkItems)
	assert.Equal(t, int64(2), v)

	q.ProcessWorkItems(1)
	v, _ = s.Get(StatWorkItems)
	assert.Equal(t, int64(1), v)
	v, _ = s.Get(StatTotalProcessed)
	assert.Equal(t, int64(1), v)
	v, _ = s.Get("betweenframe.create_mesh")
	assert.Equal(t, int64(1), v)
}

func TestQueueCompactsAfterPartialDrains(t *testing.T) {
	q := New(nil, nil)
	next := 0
	var got []int
	for round := 0; round < 50; round++ {
		for i := 0; i < 10; i++ {
			v := next
			next++
			q.SubmitFunc(KindUnknown, 1, func() { got = append(got, v) })
		}
		q.ProcessWorkItems(7)
	}
	q.ProcessWorkItems(0)

	require.Len(t, got, next)
	for i, v := range got {
		require.Equal(t, i, v)
	}
}

func TestQueueConcurrentProducers(t *testing.T) {
	oldProcs := runtime.GOMAXPROCS(4)
	defer runtime.GOMAXPROCS(oldProcs)

	const (
		producers = 4
		perProd   = 5_000
		total     = producers * perProd
	)

	q := New(nil, nil)
	seen := make([]int, total)

	start := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(producers)
	for producerID := 0; producerID < producers; producerID++ {
		go func(producerID int) {
			defer wg.Done()
			<-start
			for i := 0; i < perProd; i++ {
				id := producerID*perProd + i
				q.SubmitFunc(KindUnknown, 1, func() { seen[id]++ })
			}
		}(producerID)
	}
	close(start)

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	ran := 0
	for {
		ran += q.ProcessWorkItems(20)
		select {
		case <-done:
			ran += q.ProcessWorkItems(0)
			require.Equal(t, total, ran)
			for id, n := range seen {
				if n != 1 {
					t.Fatalf("item %d ran %d times, want 1", id, n)
				}
			}
			assert.False(t, q.HasWorkItems())
			return
		default:
		}
	}
}
