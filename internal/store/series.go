package store

import (
	"fmt"
	"sync"

	"inventory-dashboard/internal/models"
)

// Series хранит упорядоченную по дате историю дневных снимков.
// Дописывается только в конец, читатели получают копии.
type Series struct {
	mu        sync.RWMutex
	snapshots []models.DailySnapshot
}

// NewSeries создаёт историю из начального набора снимков
func NewSeries(initial []models.DailySnapshot) (*Series, error) {
	s := &Series{snapshots: make([]models.DailySnapshot, 0, len(initial))}
	for _, snap := range initial {
		if err := s.Append(snap); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Append добавляет снимок. Дата должна быть строго позже последней.
func (s *Series) Append(snap models.DailySnapshot) error {
	if err := snap.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if n := len(s.snapshots); n > 0 {
		last := s.snapshots[n-1].Date
		if !snap.Date.After(last.Time) {
			return fmt.Errorf("snapshot %s is not after latest %s", snap.Date, last)
		}
	}
	s.snapshots = append(s.snapshots, snap)
	return nil
}

// Snapshots возвращает копию всей истории
func (s *Series) Snapshots() []models.DailySnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.DailySnapshot, len(s.snapshots))
	copy(out, s.snapshots)
	return out
}

// Len возвращает количество снимков
func (s *Series) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.snapshots)
}
