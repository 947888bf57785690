package storage

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hostel-analytics/models"
	"hostel-analytics/utils"
)

func week(label string, start time.Time, hostels map[string]models.HostelMetrics) models.WeekRecord {
	return models.WeekRecord{PeriodLabel: label, PeriodStart: start, Hostels: hostels}
}

func TestMemoryStoreSaveMergesHostels(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	start := time.Date(2024, time.December, 16, 0, 0, 0, 0, time.UTC)

	require.NoError(t, s.Save(ctx, week("w51", start, map[string]models.HostelMetrics{"Centro": {TotalCount: 3}})))
	require.NoError(t, s.Save(ctx, week("w51", start, map[string]models.HostelMetrics{"Beach": {TotalCount: 1}})))
	require.NoError(t, s.Save(ctx, week("w50", start.AddDate(0, 0, -7), map[string]models.HostelMetrics{"Centro": {TotalCount: 2}})))

	weeks, err := s.Load(ctx, start.AddDate(0, 0, -30), start)
	require.NoError(t, err)
	require.Len(t, weeks, 2)
	assert.Equal(t, "w50", weeks[0].PeriodLabel)
	assert.Len(t, weeks[1].Hostels, 2)
	assert.Equal(t, 3, s.Saves())

	weeks, err = s.Load(ctx, start.AddDate(0, 0, 1), start.AddDate(0, 0, 30))
	require.NoError(t, err)
	assert.Empty(t, weeks)
}

func TestCSVWriterWritesBookings(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "bookings.csv")
	net, tax, lead := 90.0, 10.0, 3

	weeks := []models.WeekRecord{week("16 Dec 2024 - 22 Dec 2024", time.Now(), map[string]models.HostelMetrics{
		"Centro": {Bookings: []models.Booking{
			{ReservationID: "R1", Nights: 2, GrossPrice: 100, NetPrice: &net, TaxAmount: &tax, LeadTimeDays: &lead,
				CheckinDate: time.Date(2024, time.December, 20, 0, 0, 0, 0, time.UTC)},
			{ReservationID: "R2", Nights: 1, GrossPrice: 45.5},
		}},
	})}

	require.NoError(t, NewCSVWriter(path, utils.NewNopLogger()).WriteBookings(weeks))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)

	require.Len(t, rows, 3)
	assert.Equal(t, "reservation_id", rows[0][2])
	assert.Equal(t, []string{"R1", "", "", "2024-12-20"}, rows[1][2:6])
	assert.Equal(t, "90.00", rows[1][11])
	assert.Equal(t, "3", rows[1][13])
	assert.Equal(t, "45.50", rows[2][10])
	assert.Equal(t, "", rows[2][11])
}

func TestPostgresStoreRoundTrip(t *testing.T) {
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()

	s, err := NewPostgresStore(ctx, dsn, utils.NewNopLogger())
	require.NoError(t, err)
	defer s.Close()
	require.NoError(t, s.CreateTable(ctx))

	start := time.Date(2001, time.January, 1, 0, 0, 0, 0, time.UTC)
	label := "1 Jan 2001 - 7 Jan 2001"
	require.NoError(t, s.Save(ctx, week(label, start, map[string]models.HostelMetrics{
		"Centro": {TotalCount: 2, ValidCount: 2, GrossRevenue: 300, ADR: 50},
	})))

	weeks, err := s.Load(ctx, start, start.AddDate(0, 0, 6))
	require.NoError(t, err)
	require.Len(t, weeks, 1)
	assert.Equal(t, 300.0, weeks[0].Hostels["Centro"].GrossRevenue)
	assert.True(t, start.Equal(weeks[0].PeriodStart))
}
