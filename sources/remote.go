package sources

import (
	"fmt"
	"strings"

	"hostel-analytics/models"
	"hostel-analytics/scraper/cloudbeds"
	"hostel-analytics/utils"
)

// MapReservations converts API records into bookings. A record that cannot be
// mapped is logged and counted as skipped; it never fails the batch.
func MapReservations(records []cloudbeds.Reservation, logger *utils.Logger) *Result {
	res := &Result{Rows: len(records)}
	seen := utils.NewKeyTracker()

	for _, r := range records {
		b, err := mapReservation(r)
		if err != nil {
			logger.Warn("Dropping reservation %q: %v", r.ReservationID, err)
			res.Skipped++
			continue
		}
		if !seen.Add(b.ReservationID) {
			res.Duplicates++
			continue
		}
		res.Bookings = append(res.Bookings, b)
	}
	return res
}

func mapReservation(r cloudbeds.Reservation) (models.Booking, error) {
	id := strings.TrimSpace(r.ReservationID)
	if id == "" {
		return models.Booking{}, fmt.Errorf("missing reservation id")
	}
	start, err := parseDate(r.StartDate)
	if err != nil {
		return models.Booking{}, fmt.Errorf("startDate: %w", err)
	}
	end, err := parseDate(r.EndDate)
	if err != nil {
		return models.Booking{}, fmt.Errorf("endDate: %w", err)
	}
	created, err := parseDate(r.DateCreated)
	if err != nil {
		return models.Booking{}, fmt.Errorf("dateCreated: %w", err)
	}

	return models.Booking{
		ReservationID: id,
		GuestName:     strings.TrimSpace(r.GuestName),
		BookingDate:   created,
		CheckinDate:   start,
		CheckoutDate:  end,
		Nights:        models.NightsBetween(start, end),
		Status:        strings.TrimSpace(r.Status),
		Source:        strings.TrimSpace(r.SourceName),
		GrossPrice:    float64(r.Total),
		LeadTimeDays:  models.LeadTime(created, start),
	}, nil
}
