package models

import (
	"strings"
	"time"
)

var directMarkers = []string{"website", "sitio web"}

// Booking is the canonical reservation record every source is normalized into
type Booking struct {
	ReservationID string
	GuestName     string
	BookingDate   time.Time
	CheckinDate   time.Time
	CheckoutDate  time.Time
	Nights        int
	Status        string
	Source        string
	GrossPrice    float64 // including tax, 0 when unknown

	// Set only by enrichment
	NetPrice  *float64
	TaxAmount *float64

	LeadTimeDays *int
}

// IsCancelled reports whether the status mentions a cancellation in any language/casing
func (b Booking) IsCancelled() bool {
	return strings.Contains(strings.ToLower(b.Status), "cancel")
}

// IsDirect reports whether the booking came through the property's own website
func (b Booking) IsDirect() bool {
	return IsDirectSource(b.Source)
}

// Enriched reports whether the net/tax breakdown has been backfilled
func (b Booking) Enriched() bool {
	return b.NetPrice != nil && b.TaxAmount != nil
}

// NeedsEnrichment reports whether the booking can and should be re-fetched for pricing
func (b Booking) NeedsEnrichment() bool {
	return strings.TrimSpace(b.ReservationID) != "" && !b.Enriched()
}

// IsDirectSource matches the direct-booking markers against a free-text source field
func IsDirectSource(source string) bool {
	s := strings.ToLower(source)
	for _, m := range directMarkers {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}

// LeadTime returns floor(checkin - booking) in days, or nil when either date is unknown.
// Negative and zero values are kept as-is.
func LeadTime(booked, checkin time.Time) *int {
	if booked.IsZero() || checkin.IsZero() {
		return nil
	}
	d := int(floorDiv(checkin.Sub(booked), 24*time.Hour))
	return &d
}

// NightsBetween returns the whole number of calendar days between two dates
func NightsBetween(start, end time.Time) int {
	if start.IsZero() || end.IsZero() {
		return 0
	}
	s := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	e := time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, time.UTC)
	n := int(e.Sub(s).Hours() / 24)
	if n < 0 {
		return 0
	}
	return n
}

func floorDiv(d, unit time.Duration) time.Duration {
	q := d / unit
	if d%unit != 0 && d < 0 {
		q--
	}
	return q
}

// Pricing is the financial detail returned for a single reservation
type Pricing struct {
	NetPrice   float64
	TaxAmount  float64
	GrossPrice float64
}

// Property is a configured hostel/hotel known to the system
type Property struct {
	Name        string
	ID          string
	Identifiers []string
}
