package alerts

import (
	"sync"
	"time"

	"apradar/internal/model"
)

// Store is a fixed-size ring of the most recent alerts.
type Store struct {
	mu    sync.RWMutex
	buf   []model.Alert
	head  int
	limit int
}

func NewStore(limit int) *Store {
	if limit <= 0 {
		limit = 1000
	}
	return &Store{limit: limit}
}

func (s *Store) Add(alert model.Alert) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.buf) < s.limit {
		s.buf = append(s.buf, alert)
		return
	}
	s.buf[s.head] = alert
	s.head = (s.head + 1) % s.limit
}

// ordered returns alerts oldest first. Callers hold the read lock.
func (s *Store) ordered() []model.Alert {
	out := make([]model.Alert, 0, len(s.buf))
	out = append(out, s.buf[s.head:]...)
	return append(out, s.buf[:s.head]...)
}

// List returns the newest limit alerts, oldest first.
func (s *Store) List(limit int) []model.Alert {
	s.mu.RLock()
	defer s.mu.RUnlock()
	all := s.ordered()
	if limit > 0 && limit < len(all) {
		all = all[len(all)-limit:]
	}
	return all
}

func (s *Store) Since(ts time.Time) []model.Alert {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Alert, 0)
	for _, a := range s.ordered() {
		if !a.Timestamp.Before(ts) {
			out = append(out, a)
		}
	}
	return out
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.buf)
}

func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buf = nil
	s.head = 0
}
