package sources

import (
	"fmt"

	"hostel-analytics/models"
)

// ParseError is returned when an input blob yields zero valid bookings.
// Individual malformed rows never produce one; they are counted as skipped.
type ParseError struct {
	Source   string
	Rows     int
	Skipped  int
	Filtered int
	Reason   string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: no valid bookings (%d rows, %d malformed, %d not direct): %s",
		e.Source, e.Rows, e.Skipped, e.Filtered, e.Reason)
}

// Result is what every adapter returns on success
type Result struct {
	Bookings   []models.Booking
	Rows       int // data rows examined
	Skipped    int // malformed rows dropped
	Filtered   int // well-formed rows dropped by the direct-booking filter
	Duplicates int // repeated reservation ids inside the same input
}

func (r *Result) finish(source string) (*Result, error) {
	if len(r.Bookings) > 0 {
		return r, nil
	}
	reason := "input is empty"
	switch {
	case r.Filtered > 0:
		reason = "no direct bookings found"
	case r.Skipped > 0:
		reason = "every row was malformed"
	}
	return nil, &ParseError{
		Source:   source,
		Rows:     r.Rows,
		Skipped:  r.Skipped,
		Filtered: r.Filtered,
		Reason:   reason,
	}
}
