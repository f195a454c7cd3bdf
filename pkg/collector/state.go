package collector

import (
	"runtime"
	"sync"
	"time"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusSuccess   Status = "success"
	StatusNoDevices Status = "no-devices"
	StatusError     Status = "error"
)

// State holds the cumulative counters of every cycle run in this process. It
// is not persisted.
type State struct {
	mu        sync.RWMutex
	startedAt time.Time
	now       func() time.Time

	total      int64
	successful int64
	failed     int64
	lastStatus Status
	lastTime   *time.Time
}

func NewState() *State {
	return newStateWithClock(time.Now)
}

func newStateWithClock(now func() time.Time) *State {
	return &State{startedAt: now(), now: now, lastStatus: StatusPending}
}

func (s *State) begin(at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.total++
	s.lastTime = &at
}

// finish records the outcome of a cycle already counted by begin. A
// no-devices cycle only moves the status.
func (s *State) finish(status Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch status {
	case StatusSuccess:
		s.successful++
	case StatusError:
		s.failed++
	}
	s.lastStatus = status
}

type MemoryStats struct {
	Alloc      uint64 `json:"alloc"`
	TotalAlloc uint64 `json:"totalAlloc"`
	Sys        uint64 `json:"sys"`
	HeapInuse  uint64 `json:"heapInuse"`
	NumGC      uint32 `json:"numGC"`
}

type Stats struct {
	TotalCollections      int64       `json:"totalCollections"`
	SuccessfulCollections int64       `json:"successfulCollections"`
	FailedCollections     int64       `json:"failedCollections"`
	LastCollectionStatus  Status      `json:"lastCollectionStatus"`
	LastCollectionTime    *time.Time  `json:"lastCollectionTime"`
	Uptime                float64     `json:"uptime"`
	Memory                MemoryStats `json:"memoryUsage"`
	Goroutines            int         `json:"goroutines"`
}

func (s *State) Stats() Stats {
	s.mu.RLock()
	stats := Stats{
		TotalCollections:      s.total,
		SuccessfulCollections: s.successful,
		FailedCollections:     s.failed,
		LastCollectionStatus:  s.lastStatus,
		Uptime:                s.now().Sub(s.startedAt).Seconds(),
	}
	if s.lastTime != nil {
		t := *s.lastTime
		stats.LastCollectionTime = &t
	}
	s.mu.RUnlock()

	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	stats.Memory = MemoryStats{
		Alloc:      m.Alloc,
		TotalAlloc: m.TotalAlloc,
		Sys:        m.Sys,
		HeapInuse:  m.HeapInuse,
		NumGC:      m.NumGC,
	}
	stats.Goroutines = runtime.NumGoroutine()
	return stats
}
