package services

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/multierr"

	"hostel-analytics/config"
	"hostel-analytics/models"
	"hostel-analytics/scraper/cloudbeds"
	"hostel-analytics/utils"
)

// DetailFetcher is the part of the API client the enrichment job needs
type DetailFetcher interface {
	FetchReservationDetail(ctx context.Context, propertyID, reservationID string) (*cloudbeds.ReservationDetail, error)
}

// EnrichmentFailure is one booking the job could not enrich
type EnrichmentFailure struct {
	Target EnrichmentTarget
	Err    error
}

// EnrichmentResult summarizes one enrichment run
type EnrichmentResult struct {
	Total     int
	Succeeded int
	Failed    []EnrichmentFailure
	Items     []models.ItemState
	Cancelled bool
}

// Err combines every failure, nil when none
func (r *EnrichmentResult) Err() error {
	var err error
	for _, f := range r.Failed {
		err = multierr.Append(err, fmt.Errorf("%s: %w", f.Target.Key(), f.Err))
	}
	return err
}

// EnrichmentJob backfills net price and tax for stored bookings, one remote
// call at a time. Enriched bookings are never selected again, so a job can be
// cancelled and rerun without repeating work.
type EnrichmentJob struct {
	client    DetailFetcher
	series    *Series
	props     []models.Property
	delay     time.Duration
	progress  *Progress
	logger    *utils.Logger
	cancelled atomic.Bool
}

// NewEnrichmentJob creates an EnrichmentJob. progress may be nil.
func NewEnrichmentJob(cfg *config.Config, client DetailFetcher, series *Series, progress *Progress, logger *utils.Logger) *EnrichmentJob {
	if progress == nil {
		progress = NewProgress(0)
	}
	return &EnrichmentJob{
		client:   client,
		series:   series,
		props:    cfg.Properties,
		delay:    time.Duration(cfg.EnrichDelay) * time.Millisecond,
		progress: progress,
		logger:   logger.Named("enrich"),
	}
}

// Progress exposes the live state for observers
func (j *EnrichmentJob) Progress() *Progress {
	return j.progress
}

// Cancel stops the job before its next booking; the in-flight call completes
// and its result is kept
func (j *EnrichmentJob) Cancel() {
	j.cancelled.Store(true)
}

// Run enriches every booking that has an external id and no tax breakdown
func (j *EnrichmentJob) Run(ctx context.Context) (*EnrichmentResult, error) {
	j.cancelled.Store(false)
	targets := j.series.EnrichmentTargets()
	result := &EnrichmentResult{Total: len(targets)}
	if len(targets) == 0 {
		j.logger.Info("Nothing to enrich")
		return result, nil
	}

	keys := make([]string, len(targets))
	for i, t := range targets {
		keys[i] = t.Key()
	}
	j.progress.start("enrich", keys)
	defer j.progress.finish()
	j.logger.Info("Enriching %d bookings", len(targets))

	for i, target := range targets {
		if ctx.Err() != nil || j.cancelled.Load() {
			j.logger.Warn("Enrichment cancelled after %d/%d bookings", i, len(targets))
			result.Cancelled = true
			break
		}
		j.progress.set(i, models.StatusLoading, nil)

		called, err := j.enrichOne(ctx, target)
		if err != nil {
			j.logger.Error("Enrich %s failed: %v", target.Key(), err)
			result.Failed = append(result.Failed, EnrichmentFailure{Target: target, Err: err})
			j.progress.set(i, models.StatusError, err)
		} else {
			result.Succeeded++
			j.progress.set(i, models.StatusSuccess, nil)
		}

		if called && i < len(targets)-1 {
			_ = utils.Sleep(ctx, j.delay)
		}
	}

	if cur := j.progress.Current(); cur != nil {
		result.Items = cur.Items
	}
	j.logger.Info("Enrichment done: %d enriched, %d failed", result.Succeeded, len(result.Failed))
	return result, nil
}

// enrichOne reports whether a remote call was made, so pacing is skipped for
// bookings that failed before reaching the API
func (j *EnrichmentJob) enrichOne(ctx context.Context, target EnrichmentTarget) (bool, error) {
	prop, ok := config.FindProperty(j.props, target.Hostel)
	if !ok {
		return false, fmt.Errorf("no property id configured for %q", target.Hostel)
	}

	detail, err := j.client.FetchReservationDetail(context.WithoutCancel(ctx), prop.ID, target.ReservationID)
	if err != nil {
		return true, err
	}
	if err := j.series.ApplyPricing(ctx, target, detail.Pricing()); err != nil {
		return true, err
	}
	return true, nil
}
