package models

import "time"

// HostelMetrics is the weekly summary for one property. It is derived from
// Bookings and must be recomputed, never edited, when they change.
type HostelMetrics struct {
	TotalCount     int
	CancelledCount int
	ValidCount     int

	GrossRevenue float64
	NetRevenue   float64
	TotalTax     float64
	ADR          float64

	LongStayCount    int // nights >= 7
	MonthlyStayCount int // nights >= 28, always a subset of LongStayCount

	AvgLeadTimeDays float64

	Bookings []Booking
}

// WeekRecord holds every property's metrics for one period
type WeekRecord struct {
	PeriodLabel string
	PeriodStart time.Time
	Hostels     map[string]HostelMetrics
}

// Clone returns a copy whose hostel map can be modified independently
func (w WeekRecord) Clone() WeekRecord {
	out := WeekRecord{
		PeriodLabel: w.PeriodLabel,
		PeriodStart: w.PeriodStart,
		Hostels:     make(map[string]HostelMetrics, len(w.Hostels)),
	}
	for name, m := range w.Hostels {
		out.Hostels[name] = m
	}
	return out
}
