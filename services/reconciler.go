package services

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"hostel-analytics/models"
)

// ErrConfirmationRequired is matched by ConflictError
var ErrConfirmationRequired = errors.New("week already has data, confirmation required")

// HostelCount summarizes what is already stored for one hostel
type HostelCount struct {
	Name       string
	TotalCount int
	ValidCount int
}

// Duplicate describes an existing week that an import would overwrite
type Duplicate struct {
	PeriodLabel string
	Hostels     []HostelCount
}

// ConflictError blocks a merge into an existing week until the caller confirms
type ConflictError struct {
	Duplicate Duplicate
}

func (e *ConflictError) Error() string {
	names := make([]string, 0, len(e.Duplicate.Hostels))
	for _, h := range e.Duplicate.Hostels {
		names = append(names, fmt.Sprintf("%s (%d bookings)", h.Name, h.TotalCount))
	}
	return fmt.Sprintf("week %s already has data for %s: confirmation required",
		e.Duplicate.PeriodLabel, strings.Join(names, ", "))
}

func (e *ConflictError) Is(target error) bool {
	return target == ErrConfirmationRequired
}

// Outcome tells the caller what Reconcile did
type Outcome string

const (
	OutcomeAppended  Outcome = "appended"
	OutcomeMerged    Outcome = "merged"
	OutcomeUnchanged Outcome = "unchanged"
)

// FindDuplicate returns the hostels already stored for label, if any
func FindDuplicate(series []models.WeekRecord, label string) (Duplicate, bool) {
	for _, w := range series {
		if w.PeriodLabel != label {
			continue
		}
		d := Duplicate{PeriodLabel: label}
		for name, m := range w.Hostels {
			d.Hostels = append(d.Hostels, HostelCount{Name: name, TotalCount: m.TotalCount, ValidCount: m.ValidCount})
		}
		sort.Slice(d.Hostels, func(i, j int) bool { return d.Hostels[i].Name < d.Hostels[j].Name })
		return d, true
	}
	return Duplicate{}, false
}

// Reconcile merges week into series and returns a new, date-sorted series.
// An existing week is updated hostel by hostel; hostels absent from week are
// left untouched. Merging into an existing week requires confirmed, unless
// every incoming hostel is already stored with identical metrics.
func Reconcile(series []models.WeekRecord, week models.WeekRecord, confirmed bool) ([]models.WeekRecord, Outcome, error) {
	out := make([]models.WeekRecord, len(series))
	copy(out, series)

	idx := -1
	for i, w := range out {
		if w.PeriodLabel == week.PeriodLabel {
			idx = i
			break
		}
	}

	outcome := OutcomeAppended
	if idx < 0 {
		out = append(out, week.Clone())
	} else {
		existing := out[idx]
		if sameHostels(existing, week) {
			return out, OutcomeUnchanged, nil
		}
		if !confirmed {
			dup, _ := FindDuplicate(series, week.PeriodLabel)
			return series, "", &ConflictError{Duplicate: dup}
		}

		merged := existing.Clone()
		for name, m := range week.Hostels {
			merged.Hostels[name] = m
		}
		out[idx] = merged
		outcome = OutcomeMerged
	}

	SortSeries(out)
	return out, outcome, nil
}

// SortSeries orders records by period start, oldest first
func SortSeries(series []models.WeekRecord) {
	sort.SliceStable(series, func(i, j int) bool {
		return series[i].PeriodStart.Before(series[j].PeriodStart)
	})
}

func sameHostels(existing, incoming models.WeekRecord) bool {
	for name, m := range incoming.Hostels {
		stored, ok := existing.Hostels[name]
		if !ok || !reflect.DeepEqual(stored, m) {
			return false
		}
	}
	return true
}
