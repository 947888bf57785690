package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hostel-analytics/config"
	"hostel-analytics/models"
	"hostel-analytics/scraper/cloudbeds"
	"hostel-analytics/utils"
)

type fakeLister struct {
	mu      sync.Mutex
	calls   []string
	fail    map[string]error
	records map[string][]cloudbeds.Reservation
	onCall  func(n int)
}

func (f *fakeLister) FetchReservations(ctx context.Context, propertyID string, from, to time.Time) ([]cloudbeds.Reservation, error) {
	f.mu.Lock()
	f.calls = append(f.calls, propertyID)
	n := len(f.calls)
	f.mu.Unlock()

	if ctx.Err() != nil {
		panic("in-flight call received a cancelled context")
	}
	if f.onCall != nil {
		f.onCall(n)
	}
	if err := f.fail[propertyID]; err != nil {
		return nil, err
	}
	return f.records[propertyID], nil
}

func testConfig() *config.Config {
	return &config.Config{WeekStartDay: 1}
}

func reservation(id string, total cloudbeds.Amount) cloudbeds.Reservation {
	return cloudbeds.Reservation{
		ReservationID: id,
		DateCreated:   "2024-12-17 10:00:00",
		StartDate:     "2024-12-27",
		EndDate:       "2024-12-29",
		Status:        "confirmed",
		SourceName:    "Website",
		Total:         total,
	}
}

var batchProps = []models.Property{
	{Name: "Uno", ID: "1"},
	{Name: "Dos", ID: "2"},
	{Name: "Tres", ID: "3"},
}

func TestBatchFetchContinuesPastFailure(t *testing.T) {
	lister := &fakeLister{
		fail: map[string]error{"2": &cloudbeds.APIError{Kind: cloudbeds.ErrAuth, Op: "getReservations"}},
		records: map[string][]cloudbeds.Reservation{
			"1": {reservation("A1", 100)},
			"3": {reservation("C1", 60), {ReservationID: "bad"}},
		},
	}

	progress := NewProgress(0)
	var mu sync.Mutex
	var states []*models.JobState
	progress.Subscribe(func(s *models.JobState) {
		mu.Lock()
		defer mu.Unlock()
		states = append(states, s)
	})

	f := NewBatchFetcher(testConfig(), lister, progress, utils.NewNopLogger())
	result, err := f.Run(context.Background(), batchProps, time.Date(2024, time.December, 18, 12, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	assert.Equal(t, []string{"1", "2", "3"}, lister.calls)
	assert.Equal(t, "16 Dec 2024 - 22 Dec 2024", result.Period.Label())
	assert.False(t, result.Cancelled)

	require.Len(t, result.Succeeded, 2)
	assert.Equal(t, "Uno", result.Succeeded[0].Property.Name)
	assert.Equal(t, "Tres", result.Succeeded[1].Property.Name)
	assert.Equal(t, 1, result.Succeeded[1].Skipped)

	require.Len(t, result.Failed, 1)
	assert.Equal(t, "Dos", result.Failed[0].Property.Name)
	assert.ErrorIs(t, result.Failed[0].Err, cloudbeds.ErrAuth)
	require.Error(t, result.Err())
	assert.Contains(t, result.Err().Error(), "Dos")

	week := result.WeekRecord()
	assert.Len(t, week.Hostels, 2)
	assert.Equal(t, 100.0, week.Hostels["Uno"].GrossRevenue)
	assert.Equal(t, 30.0, week.Hostels["Tres"].ADR)
	assert.NotContains(t, week.Hostels, "Dos")

	statuses := []models.ItemStatus{result.Items[0].Status, result.Items[1].Status, result.Items[2].Status}
	assert.Equal(t, []models.ItemStatus{models.StatusSuccess, models.StatusError, models.StatusSuccess}, statuses)
	assert.NotEmpty(t, result.Items[1].Error)

	// start, 3 x (loading + outcome), then the clear
	mu.Lock()
	defer mu.Unlock()
	require.Len(t, states, 8)
	assert.Equal(t, 3, states[0].Count(models.StatusPending))
	assert.Equal(t, models.StatusLoading, states[1].Items[0].Status)
	assert.Equal(t, 1, states[1].Current)
	assert.Nil(t, states[7])
	assert.Nil(t, progress.Current())
}

func TestBatchFetchCancelLeavesRemainingPending(t *testing.T) {
	lister := &fakeLister{records: map[string][]cloudbeds.Reservation{"1": {reservation("A1", 100)}}}
	f := NewBatchFetcher(testConfig(), lister, nil, utils.NewNopLogger())
	lister.onCall = func(n int) {
		if n == 1 {
			f.Cancel()
		}
	}

	result, err := f.Run(context.Background(), batchProps, time.Date(2024, time.December, 18, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	assert.True(t, result.Cancelled)
	assert.Equal(t, []string{"1"}, lister.calls)
	require.Len(t, result.Succeeded, 1)
	assert.Equal(t, models.StatusSuccess, result.Items[0].Status)
	assert.Equal(t, models.StatusPending, result.Items[1].Status)
	assert.Equal(t, models.StatusPending, result.Items[2].Status)
}

func TestBatchFetchContextCancelDoesNotAbortInFlightCall(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := testConfig()
	cfg.RateLimitDelay = 10_000
	lister := &fakeLister{onCall: func(int) { cancel() }}
	f := NewBatchFetcher(cfg, lister, nil, utils.NewNopLogger())

	start := time.Now()
	result, err := f.Run(ctx, batchProps, time.Date(2024, time.December, 18, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	assert.True(t, result.Cancelled)
	assert.Len(t, lister.calls, 1)
	assert.Len(t, result.Succeeded, 1)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestBatchFetchPacesSuccessfulCalls(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimitDelay = 40
	f := NewBatchFetcher(cfg, &fakeLister{}, nil, utils.NewNopLogger())

	start := time.Now()
	_, err := f.Run(context.Background(), batchProps, time.Date(2024, time.December, 18, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	// no delay after the last property
	elapsed := time.Since(start)
	assert.GreaterOrEqual(t, elapsed, 80*time.Millisecond)
	assert.Less(t, elapsed, time.Second)
}

func TestBatchFetchRejectsUnsupportedPeriod(t *testing.T) {
	f := NewBatchFetcher(testConfig(), &fakeLister{}, nil, utils.NewNopLogger())
	f.periodCfg.Type = "quarter"

	_, err := f.Run(context.Background(), batchProps, time.Now())
	assert.Error(t, err)
}
