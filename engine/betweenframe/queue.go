// Package betweenframe holds work that must run on the render goroutine in
// the time left over after a frame is drawn.
//
// Any goroutine may submit. Only the render goroutine drains, and it runs the
// drained items after releasing the queue lock so a slow item never stalls a
// producer.
package betweenframe

import (
	"io"
	"log/slog"
	"sync/atomic"
	"worldview/engine/stats"
	"worldview/kernel"
)

// Kind classifies an item for statistics.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindRefresh
	KindCreateMaterial
	KindCreateMesh
	KindCreateSceneNode
	KindUpdateSceneNode
	KindMapRegion
	KindUpdateTerrain
)

func (k Kind) String() string {
	switch k {
	case KindRefresh:
		return "refresh"
	case KindCreateMaterial:
		return "create_material"
	case KindCreateMesh:
		return "create_mesh"
	case KindCreateSceneNode:
		return "create_scene_node"
	case KindUpdateSceneNode:
		return "update_scene_node"
	case KindMapRegion:
		return "map_region"
	case KindUpdateTerrain:
		return "update_terrain"
	default:
		return "unknown"
	}
}

// Item is one deferred unit of work.
type Item interface {
	Kind() Kind
	// Cost is a relative weight used by ProcessCost. Values below 1 count as 1.
	Cost() int
	Do()
}

// Func adapts a closure to Item.
type Func struct {
	K      Kind
	Weight int
	Fn     func()
}

func (f Func) Kind() Kind { return f.K }
func (f Func) Cost() int  { return f.Weight }
func (f Func) Do() {
	if f.Fn != nil {
		f.Fn()
	}
}

// Stat names written by the queue.
const (
	StatWorkItems      = "betweenframe.work_items"
	StatTotalProcessed = "betweenframe.total_processed"
	StatPanics         = "betweenframe.panics"
)

// Queue is a FIFO of Items.
type Queue struct {
	lock    *kernel.Lock
	items   []Item
	head    int
	pending atomic.Int64

	stats stats.Sink
	log   *slog.Logger
}

// New returns an empty queue. Nil sinks discard.
func New(sink stats.Sink, log *slog.Logger) *Queue {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Queue{
		lock:  kernel.NewLock("BetweenFrameQueue"),
		stats: stats.OrDiscard(sink),
		log:   log,
	}
}

// Submit appends an item. It never blocks beyond the append itself.
func (q *Queue) Submit(item Item) {
	if item == nil {
		return
	}
	q.lock.Lock()
	q.items = append(q.items, item)
	n := q.pending.Add(1)
	q.lock.Unlock()
	q.stats.SetStat(StatWorkItems, n)
}

// SubmitFunc is shorthand for Submit(Func{...}).
func (q *Queue) SubmitFunc(kind Kind, cost int, fn func()) {
	q.Submit(Func{K: kind, Weight: cost, Fn: fn})
}

// HasWorkItems reports whether anything is pending. It does not take the lock.
func (q *Queue) HasWorkItems() bool { return q.pending.Load() > 0 }

// Len returns the number of pending items.
func (q *Queue) Len() int { return int(q.pending.Load()) }

// ProcessWorkItems runs up to maxCount items in submission order and returns
// how many ran. maxCount <= 0 drains everything pending at the call.
func (q *Queue) ProcessWorkItems(maxCount int) int {
	batch := q.pop(func(n, _ int) bool { return maxCount > 0 && n >= maxCount })
	return q.run(batch)
}

// ProcessCost runs items until their summed cost reaches budget and returns
// how many ran. At least one item runs when any is pending.
func (q *Queue) ProcessCost(budget int) int {
	batch := q.pop(func(n, spent int) bool { return n > 0 && spent >= budget })
	return q.run(batch)
}

// pop removes items from the head while stop reports false. stop receives the
// number taken so far and their summed cost.
func (q *Queue) pop(stop func(n, spent int) bool) []Item {
	q.lock.Lock()
	defer q.lock.Unlock()

	var batch []Item
	spent := 0
	for q.head < len(q.items) && !stop(len(batch), spent) {
		it := q.items[q.head]
		q.items[q.head] = nil
		q.head++
		batch = append(batch, it)
		spent += costOf(it)
	}
	if q.head == len(q.items) {
		q.items = q.items[:0]
		q.head = 0
	} else if q.head > 64 && q.head*2 > len(q.items) {
		n := copy(q.items, q.items[q.head:])
		clear(q.items[n:])
		q.items = q.items[:n]
		q.head = 0
	}
	q.pending.Add(-int64(len(batch)))
	return batch
}

func (q *Queue) run(batch []Item) int {
	if len(batch) == 0 {
		return 0
	}
	for _, it := range batch {
		kind := it.Kind()
		if info := kernel.Guard("betweenframe."+kind.String(), it.Do); info != nil {
			q.stats.IncStat(StatPanics)
			q.log.Error("betweenframe: work item panicked",
				"kind", kind.String(), "panic", info.Value, "stack", string(info.Stack))
		}
		q.stats.IncStat("betweenframe." + kind.String())
	}
	q.stats.AddStat(StatTotalProcessed, int64(len(batch)))
	q.stats.SetStat(StatWorkItems, q.pending.Load())
	return len(batch)
}

func costOf(it Item) int {
	if c := it.Cost(); c > 0 {
		return c
	}
	return 1
}
