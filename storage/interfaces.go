package storage

import (
	"context"
	"time"

	"hostel-analytics/models"
)

// WeekStore is the optional write-behind cache for reconciled weeks.
// The pipeline works without one.
type WeekStore interface {
	Save(ctx context.Context, week models.WeekRecord) error
	Load(ctx context.Context, from, to time.Time) ([]models.WeekRecord, error)
	Close() error
}

// BookingExporter writes retained bookings somewhere outside the pipeline
type BookingExporter interface {
	WriteBookings(weeks []models.WeekRecord) error
}
