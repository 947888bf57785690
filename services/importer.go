package services

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"hostel-analytics/config"
	"hostel-analytics/models"
	"hostel-analytics/period"
	"hostel-analytics/sources"
	"hostel-analytics/utils"
)

// ErrPropertyUndetected is returned when an import cannot be attributed to a
// configured property
var ErrPropertyUndetected = errors.New("cannot determine property")

// ImportOptions overrides what the importer would otherwise infer
type ImportOptions struct {
	Property  string    // name or id; skips detection
	Date      time.Time // any date in the target week; skips period detection
	Confirmed bool      // allow merging into a week that already has data
}

// ImportResult describes one import. On a reconciliation conflict it is returned
// together with the error so the caller can confirm without parsing again.
type ImportResult struct {
	Property models.Property
	Period   period.Period
	Parsed   *sources.Result
	Week     models.WeekRecord
	Outcome  Outcome
}

// Importer runs the manual import pipeline: normalize, attribute, aggregate, reconcile
type Importer struct {
	series    *Series
	props     []models.Property
	periodCfg period.Config
	logger    *utils.Logger
}

// NewImporter creates an Importer writing into series
func NewImporter(cfg *config.Config, series *Series, logger *utils.Logger) *Importer {
	return &Importer{
		series:    series,
		props:     cfg.Properties,
		periodCfg: cfg.PeriodConfig(),
		logger:    logger.Named("import"),
	}
}

// ImportPasted imports a pasted table (tab-delimited text or markup)
func (im *Importer) ImportPasted(ctx context.Context, blob string, opts ImportOptions) (*ImportResult, error) {
	parsed, err := sources.ParsePasted(blob, sources.DefaultPastedColumns())
	if err != nil {
		return nil, err
	}
	return im.finish(ctx, blob, parsed, opts)
}

// ImportSpreadsheet imports rows read from a spreadsheet export. name is the
// file name, used together with the header row for property detection.
func (im *Importer) ImportSpreadsheet(ctx context.Context, name string, rows [][]string, opts ImportOptions) (*ImportResult, error) {
	parsed, err := sources.ParseSpreadsheet(rows, sources.DefaultSpreadsheetColumns())
	if err != nil {
		return nil, err
	}
	hint := filepath.Base(name)
	if len(rows) > 0 {
		hint += " " + strings.Join(rows[0], " ")
	}
	return im.finish(ctx, hint, parsed, opts)
}

func (im *Importer) finish(ctx context.Context, hint string, parsed *sources.Result, opts ImportOptions) (*ImportResult, error) {
	prop, err := im.property(hint, opts.Property)
	if err != nil {
		return nil, err
	}
	p, err := im.period(parsed.Bookings, opts.Date)
	if err != nil {
		return nil, err
	}

	metrics := Aggregate(parsed.Bookings)
	result := &ImportResult{
		Property: prop,
		Period:   p,
		Parsed:   parsed,
		Week: models.WeekRecord{
			PeriodLabel: p.Label(),
			PeriodStart: p.Start,
			Hostels:     map[string]models.HostelMetrics{prop.Name: metrics},
		},
	}
	im.logger.Info("Parsed %d bookings for '%s' in %s (%d malformed, %d not direct, %d duplicates)",
		len(parsed.Bookings), prop.Name, p.Label(), parsed.Skipped, parsed.Filtered, parsed.Duplicates)

	result.Outcome, err = im.series.Reconcile(ctx, result.Week, opts.Confirmed)
	if err != nil {
		return result, err
	}
	im.logger.Info("Week %s %s", p.Label(), result.Outcome)
	return result, nil
}

func (im *Importer) property(hint, override string) (models.Property, error) {
	if override != "" {
		if p, ok := config.FindProperty(im.props, override); ok {
			return p, nil
		}
		return models.Property{}, fmt.Errorf("%w: %q is not a configured property", ErrPropertyUndetected, override)
	}
	if p, ok := sources.DetectProperty(hint, im.props); ok {
		return p, nil
	}
	return models.Property{}, fmt.Errorf("%w: no configured name or identifier found in the input", ErrPropertyUndetected)
}

// period uses the week holding most booking dates unless a date is given
func (im *Importer) period(bookings []models.Booking, date time.Time) (period.Period, error) {
	if !date.IsZero() {
		return period.For(date, im.periodCfg)
	}
	dates := make([]time.Time, 0, len(bookings))
	for _, b := range bookings {
		if !b.BookingDate.IsZero() {
			dates = append(dates, b.BookingDate)
		} else {
			dates = append(dates, b.CheckinDate)
		}
	}
	return period.Detect(dates, im.periodCfg)
}
