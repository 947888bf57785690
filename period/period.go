package period

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

// Type selects the granularity of a period
type Type string

const (
	Week  Type = "week"
	Month Type = "month"
)

const labelLayout = "2 Jan 2006"

var (
	// ErrUnsupportedType is returned for granularities that are not implemented
	ErrUnsupportedType = errors.New("unsupported period type")
	// ErrUndetermined is returned when no period can be inferred from the data
	ErrUndetermined = errors.New("cannot determine period")
)

// Config controls how periods are computed. The zero value is a Monday to
// Sunday week.
type Config struct {
	Type         Type
	WeekStartDay *time.Weekday // nil means Monday
	WeekLength   int
}

// StartOn returns a WeekStartDay value for d
func StartOn(d time.Weekday) *time.Weekday {
	return &d
}

// DefaultConfig is a Monday to Sunday week
func DefaultConfig() Config {
	return Config{
		Type:         Week,
		WeekStartDay: StartOn(time.Monday),
		WeekLength:   7,
	}
}

func (c Config) withDefaults() Config {
	if c.Type == "" {
		c.Type = Week
	}
	if c.WeekLength <= 0 {
		c.WeekLength = 7
	}
	if c.WeekStartDay == nil || *c.WeekStartDay < time.Sunday || *c.WeekStartDay > time.Saturday {
		c.WeekStartDay = StartOn(time.Monday)
	}
	return c
}

// Period is an inclusive [Start, End] range
type Period struct {
	Start time.Time
	End   time.Time
}

// Label renders the period as "D Mon YYYY - D Mon YYYY"
func (p Period) Label() string {
	return FormatLabel(p.Start, p.End)
}

// Contains reports whether t falls inside the period
func (p Period) Contains(t time.Time) bool {
	return !t.Before(p.Start) && !t.After(p.End)
}

// For returns the period containing date
func For(date time.Time, cfg Config) (Period, error) {
	cfg = cfg.withDefaults()
	switch cfg.Type {
	case Week:
		return weekFor(date, cfg), nil
	case Month:
		return monthFor(date), nil
	default:
		return Period{}, fmt.Errorf("%w: %q", ErrUnsupportedType, cfg.Type)
	}
}

func weekFor(date time.Time, cfg Config) Period {
	diff := -((int(date.Weekday()) - int(*cfg.WeekStartDay) + 7) % 7)
	start := startOfDay(date.AddDate(0, 0, diff))
	return Period{
		Start: start,
		End:   endOfDay(start.AddDate(0, 0, cfg.WeekLength-1)),
	}
}

func monthFor(date time.Time) Period {
	start := time.Date(date.Year(), date.Month(), 1, 0, 0, 0, 0, date.Location())
	return Period{
		Start: start,
		End:   endOfDay(start.AddDate(0, 1, -1)),
	}
}

// FormatLabel renders start/end as "16 Dec 2024 - 22 Dec 2024"
func FormatLabel(start, end time.Time) string {
	return start.Format(labelLayout) + " - " + end.Format(labelLayout)
}

// Detect picks the period that contains most of the given dates.
// Ties go to the earliest period; zero dates are ignored.
func Detect(dates []time.Time, cfg Config) (Period, error) {
	counts := make(map[time.Time]int)
	byStart := make(map[time.Time]Period)
	for _, d := range dates {
		if d.IsZero() {
			continue
		}
		p, err := For(d, cfg)
		if err != nil {
			return Period{}, err
		}
		counts[p.Start]++
		byStart[p.Start] = p
	}
	if len(counts) == 0 {
		return Period{}, ErrUndetermined
	}

	starts := make([]time.Time, 0, len(counts))
	for s := range counts {
		starts = append(starts, s)
	}
	sort.Slice(starts, func(i, j int) bool { return starts[i].Before(starts[j]) })

	best := starts[0]
	for _, s := range starts[1:] {
		if counts[s] > counts[best] {
			best = s
		}
	}
	return byStart[best], nil
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func endOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, int(999*time.Millisecond), t.Location())
}
