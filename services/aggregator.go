package services

import (
	"github.com/shopspring/decimal"

	"hostel-analytics/models"
)

const (
	longStayNights    = 7
	monthlyStayNights = 28
)

// Aggregate computes the weekly metrics for one property's bookings.
// It never fails: an empty list yields zero-valued metrics.
func Aggregate(bookings []models.Booking) models.HostelMetrics {
	m := models.HostelMetrics{
		Bookings: append([]models.Booking(nil), bookings...),
	}

	var (
		gross, net, tax decimal.Decimal
		adrNights       int64
		leadSum         int64
		leadCount       int64
		longStay        []models.Booking
	)

	for _, b := range bookings {
		m.TotalCount++
		if b.IsCancelled() {
			m.CancelledCount++
			continue
		}
		m.ValidCount++

		// A booking contributes either its enriched breakdown or its gross
		// price, never a mix of both
		if b.Enriched() {
			n := decimal.NewFromFloat(*b.NetPrice)
			t := decimal.NewFromFloat(*b.TaxAmount)
			gross = gross.Add(n).Add(t)
			net = net.Add(n)
			tax = tax.Add(t)
		} else {
			g := decimal.NewFromFloat(b.GrossPrice)
			gross = gross.Add(g)
			net = net.Add(g)
		}

		nights := b.Nights
		if nights < 1 {
			nights = 1
		}
		adrNights += int64(nights)

		if b.LeadTimeDays != nil {
			leadSum += int64(*b.LeadTimeDays)
			leadCount++
		}

		if b.Nights >= longStayNights {
			longStay = append(longStay, b)
		}
	}

	m.LongStayCount = len(longStay)
	for _, b := range longStay {
		if b.Nights >= monthlyStayNights {
			m.MonthlyStayCount++
		}
	}

	m.GrossRevenue = gross.Round(2).InexactFloat64()
	m.NetRevenue = net.Round(2).InexactFloat64()
	m.TotalTax = tax.Round(2).InexactFloat64()

	if m.ValidCount > 0 && adrNights > 0 {
		m.ADR = gross.Div(decimal.NewFromInt(adrNights)).InexactFloat64()
	}
	if leadCount > 0 {
		m.AvgLeadTimeDays = decimal.NewFromInt(leadSum).Div(decimal.NewFromInt(leadCount)).InexactFloat64()
	}
	return m
}
