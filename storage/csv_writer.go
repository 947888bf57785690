package storage

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"hostel-analytics/models"
	"hostel-analytics/utils"
)

const csvDateLayout = "2006-01-02"

// CSVWriter exports the bookings retained in week records to a CSV file
type CSVWriter struct {
	filePath string
	logger   *utils.Logger
}

// NewCSVWriter creates a new CSVWriter
func NewCSVWriter(filePath string, logger *utils.Logger) *CSVWriter {
	return &CSVWriter{filePath: filePath, logger: logger}
}

// WriteBookings writes one row per booking of every hostel of every week
func (w *CSVWriter) WriteBookings(weeks []models.WeekRecord) error {
	// Ensure output directory exists
	dir := filepath.Dir(w.filePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	file, err := os.Create(w.filePath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)

	header := []string{
		"week", "hostel", "reservation_id", "guest", "booking_date", "checkin", "checkout",
		"nights", "status", "source", "gross_price", "net_price", "tax_amount", "lead_time_days",
	}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	written := 0
	for _, week := range weeks {
		hostels := make([]string, 0, len(week.Hostels))
		for name := range week.Hostels {
			hostels = append(hostels, name)
		}
		sort.Strings(hostels)

		for _, hostel := range hostels {
			for _, b := range week.Hostels[hostel].Bookings {
				if err := writer.Write(bookingRow(week.PeriodLabel, hostel, b)); err != nil {
					w.logger.Error("Failed to write CSV row for '%s': %v", b.ReservationID, err)
					continue
				}
				written++
			}
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("failed to flush CSV file: %w", err)
	}

	w.logger.Info("Bookings written to: %s (%d rows)", w.filePath, written)
	return nil
}

func bookingRow(week, hostel string, b models.Booking) []string {
	return []string{
		week,
		hostel,
		b.ReservationID,
		b.GuestName,
		formatDate(b.BookingDate),
		formatDate(b.CheckinDate),
		formatDate(b.CheckoutDate),
		strconv.Itoa(b.Nights),
		b.Status,
		b.Source,
		formatAmount(&b.GrossPrice),
		formatAmount(b.NetPrice),
		formatAmount(b.TaxAmount),
		formatInt(b.LeadTimeDays),
	}
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(csvDateLayout)
}

func formatAmount(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', 2, 64)
}

func formatInt(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}
