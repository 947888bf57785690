package services

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"hostel-analytics/models"
	"hostel-analytics/storage"
	"hostel-analytics/utils"
)

// Series is the standing, chronologically ordered list of week records.
// Writes go through the reconciler or ApplyPricing and are persisted
// write-behind when a store is configured; store failures are only logged.
type Series struct {
	mu      sync.RWMutex
	records []models.WeekRecord
	store   storage.WeekStore
	logger  *utils.Logger
}

// EnrichmentTarget identifies one booking whose pricing must be backfilled
type EnrichmentTarget struct {
	PeriodLabel   string
	Hostel        string
	ReservationID string
}

// Key is the label shown in progress displays
func (t EnrichmentTarget) Key() string {
	return t.Hostel + "/" + t.ReservationID
}

// NewSeries creates an empty series. store may be nil for in-memory operation.
func NewSeries(store storage.WeekStore, logger *utils.Logger) *Series {
	return &Series{store: store, logger: logger.Named("series")}
}

// Load pulls persisted weeks in [from, to] into the series
func (s *Series) Load(ctx context.Context, from, to time.Time) error {
	if s.store == nil {
		return nil
	}
	weeks, err := s.store.Load(ctx, from, to)
	if err != nil {
		return fmt.Errorf("failed to load weeks: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, w := range weeks {
		s.records, _, err = Reconcile(s.records, w, true)
		if err != nil {
			return err
		}
	}
	s.logger.Info("Loaded %d weeks from storage", len(weeks))
	return nil
}

// Records returns a snapshot of the series
func (s *Series) Records() []models.WeekRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.WeekRecord, len(s.records))
	for i, w := range s.records {
		out[i] = w.Clone()
	}
	return out
}

// Week returns the record for label
func (s *Series) Week(label string) (models.WeekRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.weekLocked(label)
}

// Duplicate reports what is already stored for label
func (s *Series) Duplicate(label string) (Duplicate, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return FindDuplicate(s.records, label)
}

// Reconcile merges week into the series, see Reconcile
func (s *Series) Reconcile(ctx context.Context, week models.WeekRecord, confirmed bool) (Outcome, error) {
	s.mu.Lock()
	records, outcome, err := Reconcile(s.records, week, confirmed)
	if err != nil {
		s.mu.Unlock()
		return "", err
	}
	s.records = records
	stored, _ := s.weekLocked(week.PeriodLabel)
	s.mu.Unlock()

	if outcome != OutcomeUnchanged {
		s.persist(ctx, stored)
	}
	return outcome, nil
}

// EnrichmentTargets lists bookings with an external id but no net/tax breakdown,
// oldest week first
func (s *Series) EnrichmentTargets() []EnrichmentTarget {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var targets []EnrichmentTarget
	seen := make(map[EnrichmentTarget]bool)
	for _, w := range s.records {
		for _, hostel := range sortedHostels(w) {
			for _, b := range w.Hostels[hostel].Bookings {
				if !b.NeedsEnrichment() {
					continue
				}
				t := EnrichmentTarget{
					PeriodLabel:   w.PeriodLabel,
					Hostel:        hostel,
					ReservationID: b.ReservationID,
				}
				if seen[t] {
					continue
				}
				seen[t] = true
				targets = append(targets, t)
			}
		}
	}
	return targets
}

// ApplyPricing sets the pricing of a single booking and recomputes that hostel's
// metrics. Sibling bookings and other hostels are not touched.
func (s *Series) ApplyPricing(ctx context.Context, target EnrichmentTarget, p models.Pricing) error {
	s.mu.Lock()
	idx := -1
	for i, w := range s.records {
		if w.PeriodLabel == target.PeriodLabel {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return fmt.Errorf("week %q not found", target.PeriodLabel)
	}
	week := s.records[idx]
	metrics, ok := week.Hostels[target.Hostel]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("hostel %q not found in week %q", target.Hostel, target.PeriodLabel)
	}

	bookings := append([]models.Booking(nil), metrics.Bookings...)
	found := false
	for i := range bookings {
		if bookings[i].ReservationID != target.ReservationID {
			continue
		}
		net, tax := p.NetPrice, p.TaxAmount
		bookings[i].NetPrice = &net
		bookings[i].TaxAmount = &tax
		bookings[i].GrossPrice = p.GrossPrice
		found = true
	}
	if !found {
		s.mu.Unlock()
		return fmt.Errorf("reservation %q not found in %s", target.ReservationID, target.Hostel)
	}

	updated := week.Clone()
	updated.Hostels[target.Hostel] = Aggregate(bookings)
	s.records[idx] = updated
	s.mu.Unlock()

	s.persist(ctx, updated)
	return nil
}

func (s *Series) weekLocked(label string) (models.WeekRecord, bool) {
	for _, w := range s.records {
		if w.PeriodLabel == label {
			return w.Clone(), true
		}
	}
	return models.WeekRecord{}, false
}

func (s *Series) persist(ctx context.Context, week models.WeekRecord) {
	if s.store == nil {
		return
	}
	// A cancelled job must not lose the update it already applied
	if err := s.store.Save(context.WithoutCancel(ctx), week); err != nil {
		s.logger.Error("Failed to persist week %s: %v", week.PeriodLabel, err)
	}
}

func sortedHostels(w models.WeekRecord) []string {
	names := make([]string, 0, len(w.Hostels))
	for name := range w.Hostels {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
