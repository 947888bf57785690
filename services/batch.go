package services

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/multierr"

	"hostel-analytics/config"
	"hostel-analytics/models"
	"hostel-analytics/period"
	"hostel-analytics/scraper/cloudbeds"
	"hostel-analytics/sources"
	"hostel-analytics/utils"
)

// ReservationLister is the part of the API client the batch fetch needs
type ReservationLister interface {
	FetchReservations(ctx context.Context, propertyID string, from, to time.Time) ([]cloudbeds.Reservation, error)
}

// PropertyMetrics is one successfully fetched property
type PropertyMetrics struct {
	Property models.Property
	Metrics  models.HostelMetrics
	Skipped  int // records the adapter could not map
}

// PropertyFailure is one property whose fetch failed
type PropertyFailure struct {
	Property models.Property
	Err      error
}

// BatchResult is the outcome of fetching one week for several properties
type BatchResult struct {
	Period    period.Period
	Succeeded []PropertyMetrics
	Failed    []PropertyFailure
	Items     []models.ItemState
	Cancelled bool
}

// WeekRecord builds the record to reconcile, holding succeeded properties only
func (r *BatchResult) WeekRecord() models.WeekRecord {
	w := models.WeekRecord{
		PeriodLabel: r.Period.Label(),
		PeriodStart: r.Period.Start,
		Hostels:     make(map[string]models.HostelMetrics, len(r.Succeeded)),
	}
	for _, s := range r.Succeeded {
		w.Hostels[s.Property.Name] = s.Metrics
	}
	return w
}

// Err combines every property failure, nil when all succeeded
func (r *BatchResult) Err() error {
	var err error
	for _, f := range r.Failed {
		err = multierr.Append(err, fmt.Errorf("%s: %w", f.Property.Name, f.Err))
	}
	return err
}

// BatchFetcher fetches one week of reservations for several properties, one
// property at a time. A failing property is recorded and the batch moves on.
type BatchFetcher struct {
	client    ReservationLister
	periodCfg period.Config
	delay     time.Duration
	progress  *Progress
	logger    *utils.Logger
	cancelled atomic.Bool
}

// NewBatchFetcher creates a BatchFetcher. progress may be nil.
func NewBatchFetcher(cfg *config.Config, client ReservationLister, progress *Progress, logger *utils.Logger) *BatchFetcher {
	if progress == nil {
		progress = NewProgress(0)
	}
	return &BatchFetcher{
		client:    client,
		periodCfg: cfg.PeriodConfig(),
		delay:     time.Duration(cfg.RateLimitDelay) * time.Millisecond,
		progress:  progress,
		logger:    logger.Named("batch"),
	}
}

// Progress exposes the live state for observers
func (f *BatchFetcher) Progress() *Progress {
	return f.progress
}

// Cancel stops the batch before its next property; the in-flight call completes
func (f *BatchFetcher) Cancel() {
	f.cancelled.Store(true)
}

// Run fetches the week containing date for every property
func (f *BatchFetcher) Run(ctx context.Context, props []models.Property, date time.Time) (*BatchResult, error) {
	p, err := period.For(date, f.periodCfg)
	if err != nil {
		return nil, err
	}
	f.cancelled.Store(false)

	keys := make([]string, len(props))
	for i, prop := range props {
		keys[i] = prop.Name
	}
	f.progress.start("batch", keys)
	defer f.progress.finish()

	result := &BatchResult{Period: p}
	f.logger.Info("Fetching %s for %d properties", p.Label(), len(props))

	for i, prop := range props {
		if ctx.Err() != nil || f.cancelled.Load() {
			f.logger.Warn("Batch cancelled after %d/%d properties", i, len(props))
			result.Cancelled = true
			break
		}

		f.progress.set(i, models.StatusLoading, nil)
		records, err := f.client.FetchReservations(context.WithoutCancel(ctx), prop.ID, p.Start, p.End)
		if err != nil {
			f.logger.Error("Property '%s' failed: %v", prop.Name, err)
			result.Failed = append(result.Failed, PropertyFailure{Property: prop, Err: err})
			f.progress.set(i, models.StatusError, err)
			continue
		}

		mapped := sources.MapReservations(records, f.logger)
		metrics := Aggregate(mapped.Bookings)
		result.Succeeded = append(result.Succeeded, PropertyMetrics{Property: prop, Metrics: metrics, Skipped: mapped.Skipped})
		f.progress.set(i, models.StatusSuccess, nil)
		f.logger.Info("Property '%s': %d bookings (%d dropped)", prop.Name, metrics.TotalCount, mapped.Skipped)

		if i < len(props)-1 {
			_ = utils.Sleep(ctx, f.delay)
		}
	}

	if cur := f.progress.Current(); cur != nil {
		result.Items = cur.Items
	}
	f.logger.Info("Batch done: %d succeeded, %d failed", len(result.Succeeded), len(result.Failed))
	return result, nil
}
