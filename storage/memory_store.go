package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"hostel-analytics/models"
)

// MemoryStore keeps weeks in process memory; used when no database is configured
type MemoryStore struct {
	mu    sync.Mutex
	weeks map[string]models.WeekRecord
	saves int
}

// NewMemoryStore creates an empty MemoryStore
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{weeks: make(map[string]models.WeekRecord)}
}

// Save upserts every hostel of week, leaving other stored hostels as they are
func (s *MemoryStore) Save(_ context.Context, week models.WeekRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.weeks[week.PeriodLabel]
	if !ok {
		stored = models.WeekRecord{
			PeriodLabel: week.PeriodLabel,
			PeriodStart: week.PeriodStart,
			Hostels:     make(map[string]models.HostelMetrics),
		}
	}
	for name, m := range week.Hostels {
		stored.Hostels[name] = m
	}
	s.weeks[week.PeriodLabel] = stored
	s.saves++
	return nil
}

// Load returns weeks whose start falls in [from, to], oldest first
func (s *MemoryStore) Load(_ context.Context, from, to time.Time) ([]models.WeekRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.WeekRecord
	for _, w := range s.weeks {
		if w.PeriodStart.Before(from) || w.PeriodStart.After(to) {
			continue
		}
		out = append(out, w.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PeriodStart.Before(out[j].PeriodStart) })
	return out, nil
}

// Saves returns how many times Save was called
func (s *MemoryStore) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}

// Close is a no-op
func (s *MemoryStore) Close() error {
	return nil
}
