package agent

import (
	"sync"
	"time"
)

// Status keeps the last cycle outcome for the status API.
type Status struct {
	mu   sync.RWMutex
	snap StatusSnapshot
}

type StatusSnapshot struct {
	Running    bool      `json:"running"`
	Cycles     int64     `json:"cycles"`
	Skipped    int64     `json:"skipped"`
	LastReport *Report   `json:"lastReport,omitempty"`
	LastError  string    `json:"lastError,omitempty"`
	LastRunAt  time.Time `json:"lastRunAt,omitempty"`
}

func (s *Status) Snapshot() StatusSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := s.snap
	if s.snap.LastReport != nil {
		r := *s.snap.LastReport
		out.LastReport = &r
	}
	return out
}

func (s *Status) started(at time.Time) {
	s.mu.Lock()
	s.snap.Running = true
	s.snap.LastRunAt = at
	s.mu.Unlock()
}

func (s *Status) finished(r Report, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap.Running = false
	s.snap.Cycles++
	s.snap.LastReport = &r
	s.snap.LastError = ""
	if err != nil {
		s.snap.LastError = err.Error()
	}
}

func (s *Status) skipped() {
	s.mu.Lock()
	s.snap.Skipped++
	s.mu.Unlock()
}
