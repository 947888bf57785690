package services

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hostel-analytics/config"
	"hostel-analytics/models"
	"hostel-analytics/scraper/cloudbeds"
	"hostel-analytics/storage"
	"hostel-analytics/utils"
)

type fakeDetails struct {
	mu     sync.Mutex
	calls  []string
	fail   map[string]error
	onCall func(n int)
}

func (f *fakeDetails) FetchReservationDetail(ctx context.Context, propertyID, reservationID string) (*cloudbeds.ReservationDetail, error) {
	f.mu.Lock()
	f.calls = append(f.calls, propertyID+"/"+reservationID)
	n := len(f.calls)
	f.mu.Unlock()

	if ctx.Err() != nil {
		panic("in-flight call received a cancelled context")
	}
	if f.onCall != nil {
		f.onCall(n)
	}
	if err := f.fail[reservationID]; err != nil {
		return nil, err
	}
	return &cloudbeds.ReservationDetail{
		ReservationID: reservationID,
		BalanceDetailed: cloudbeds.BalanceDetailed{
			SubTotal:   80,
			TaxesFees:  8.8,
			GrandTotal: 88.8,
		},
	}, nil
}

func (f *fakeDetails) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func enrichmentFixture(t *testing.T) (*config.Config, *Series, *storage.MemoryStore) {
	t.Helper()
	cfg := testConfig()
	cfg.Properties = []models.Property{{Name: "Centro", ID: "100"}, {Name: "Playa", ID: "200"}}

	store := storage.NewMemoryStore()
	s := NewSeries(store, utils.NewNopLogger())
	_, err := s.Reconcile(context.Background(), weekOf(weekLabel, weekStart, map[string]models.HostelMetrics{
		"Centro": Aggregate([]models.Booking{
			{ReservationID: "C1", Nights: 2, Status: "confirmed", GrossPrice: 90},
			{ReservationID: "C2", Nights: 1, Status: "confirmed", GrossPrice: 45},
			{Nights: 1, Status: "confirmed", GrossPrice: 10},
		}),
		"Playa": Aggregate([]models.Booking{
			{ReservationID: "P1", Nights: 3, Status: "confirmed", GrossPrice: 120},
		}),
	}), false)
	require.NoError(t, err)
	return cfg, s, store
}

func TestEnrichmentSecondRunMakesNoCalls(t *testing.T) {
	cfg, series, store := enrichmentFixture(t)
	client := &fakeDetails{}

	job := NewEnrichmentJob(cfg, client, series, nil, utils.NewNopLogger())
	result, err := job.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, result.Total)
	assert.Equal(t, 3, result.Succeeded)
	assert.Empty(t, result.Failed)
	assert.Equal(t, []string{"100/C1", "100/C2", "200/P1"}, client.calls)
	assert.Empty(t, series.EnrichmentTargets())

	w, _ := series.Week(weekLabel)
	centro := w.Hostels["Centro"]
	// two enriched bookings plus the one without an id
	assert.InDelta(t, 88.8*2+10, centro.GrossRevenue, 1e-9)
	assert.InDelta(t, 80.0*2+10, centro.NetRevenue, 1e-9)
	assert.InDelta(t, 8.8*2, centro.TotalTax, 1e-9)
	assert.Equal(t, 1+3, store.Saves())

	again, err := job.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, again.Total)
	assert.Equal(t, 3, client.count())
}

func TestEnrichmentFetchesRepeatedReservationOnce(t *testing.T) {
	cfg := testConfig()
	cfg.Properties = []models.Property{{Name: "Centro", ID: "100"}}
	series := NewSeries(nil, utils.NewNopLogger())
	_, err := series.Reconcile(context.Background(), weekOf(weekLabel, weekStart, map[string]models.HostelMetrics{
		"Centro": Aggregate([]models.Booking{
			{ReservationID: "R1", Nights: 2, Status: "confirmed", GrossPrice: 90},
			{ReservationID: "R1", Nights: 2, Status: "confirmed", GrossPrice: 90},
		}),
	}), false)
	require.NoError(t, err)
	require.Len(t, series.EnrichmentTargets(), 1)

	client := &fakeDetails{}
	result, err := NewEnrichmentJob(cfg, client, series, nil, utils.NewNopLogger()).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Succeeded)
	assert.Equal(t, []string{"100/R1"}, client.calls)
	assert.Empty(t, series.EnrichmentTargets())
}

func TestEnrichmentContinuesPastFailures(t *testing.T) {
	cfg, series, _ := enrichmentFixture(t)
	cfg.Properties = cfg.Properties[:1] // Playa has no property id
	client := &fakeDetails{fail: map[string]error{
		"C1": &cloudbeds.APIError{Kind: cloudbeds.ErrNotFound, Op: "getReservation"},
	}}

	result, err := NewEnrichmentJob(cfg, client, series, nil, utils.NewNopLogger()).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, result.Succeeded)
	require.Len(t, result.Failed, 2)
	assert.ErrorIs(t, result.Failed[0].Err, cloudbeds.ErrNotFound)
	assert.Equal(t, "Playa", result.Failed[1].Target.Hostel)
	assert.Error(t, result.Err())

	// no call is made for a hostel without a property id
	assert.Equal(t, []string{"100/C1", "100/C2"}, client.calls)
	assert.Equal(t, []models.ItemStatus{models.StatusError, models.StatusSuccess, models.StatusError},
		[]models.ItemStatus{result.Items[0].Status, result.Items[1].Status, result.Items[2].Status})

	targets := series.EnrichmentTargets()
	require.Len(t, targets, 2)
	assert.Equal(t, "C1", targets[0].ReservationID)
}

func TestEnrichmentCancelKeepsInFlightResult(t *testing.T) {
	cfg, series, _ := enrichmentFixture(t)
	client := &fakeDetails{}
	job := NewEnrichmentJob(cfg, client, series, nil, utils.NewNopLogger())
	client.onCall = func(n int) {
		if n == 1 {
			job.Cancel()
		}
	}

	result, err := job.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, result.Cancelled)
	assert.Equal(t, 1, result.Succeeded)
	assert.Equal(t, models.StatusPending, result.Items[1].Status)
	assert.Equal(t, models.StatusPending, result.Items[2].Status)
	assert.Len(t, series.EnrichmentTargets(), 2)

	// a rerun picks up only what is left
	client.onCall = nil
	result, err = job.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, result.Total)
	assert.Equal(t, 3, client.count())
	assert.Empty(t, series.EnrichmentTargets())
}

func TestEnrichmentContextCancel(t *testing.T) {
	cfg, series, _ := enrichmentFixture(t)
	cfg.EnrichDelay = 10_000

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	client := &fakeDetails{onCall: func(int) { cancel() }}

	result, err := NewEnrichmentJob(cfg, client, series, nil, utils.NewNopLogger()).Run(ctx)
	require.NoError(t, err)
	assert.True(t, result.Cancelled)
	assert.Equal(t, 1, client.count())
	assert.Equal(t, 1, result.Succeeded)
}
