// Package stats collects named integer counters and gauges and serves them
// as JSON.
package stats

import (
	"sort"
	"sync"
)

// Sink receives statistics. Implementations must be safe for concurrent use.
type Sink interface {
	SetStat(name string, v int64)
	IncStat(name string)
	AddStat(name string, delta int64)
}

// Discard is a Sink that drops everything.
var Discard Sink = discard{}

type discard struct{}

func (discard) SetStat(string, int64) {}
func (discard) IncStat(string)        {}
func (discard) AddStat(string, int64) {}

// OrDiscard returns s, or Discard when s is nil.
func OrDiscard(s Sink) Sink {
	if s == nil {
		return Discard
	}
	return s
}

// Stats is an in-memory Sink.
type Stats struct {
	mu     sync.Mutex
	values map[string]int64
	seq    uint64
}

// New returns an empty Stats.
func New() *Stats {
	return &Stats{values: make(map[string]int64)}
}

func (s *Stats) SetStat(name string, v int64) {
	s.mu.Lock()
	s.values[name] = v
	s.seq++
	s.mu.Unlock()
}

func (s *Stats) IncStat(name string) { s.AddStat(name, 1) }

func (s *Stats) AddStat(name string, delta int64) {
	s.mu.Lock()
	s.values[name] += delta
	s.seq++
	s.mu.Unlock()
}

// Get returns a single value and whether it has ever been set.
func (s *Stats) Get(name string) (int64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[name]
	return v, ok
}

// Snapshot returns a copy of all values.
func (s *Stats) Snapshot() map[string]int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]int64, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out
}

// Names returns the sorted stat names.
func (s *Stats) Names() []string {
	s.mu.Lock()
	names := make([]string, 0, len(s.values))
	for k := range s.values {
		names = append(names, k)
	}
	s.mu.Unlock()
	sort.Strings(names)
	return names
}

// Seq increases on every write.
func (s *Stats) Seq() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seq
}
