package cloudbeds

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hostel-analytics/config"
	"hostel-analytics/utils"
)

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := &config.Config{
		APIBaseURL:       srv.URL,
		APIToken:         "secret",
		RequestTimeoutMs: 2000,
		MaxRetries:       2,
		PageSize:         2,
		RetryBackoffMs:   1,
	}
	return NewClient(cfg, utils.NewNopLogger())
}

func TestFetchReservationsPaginatesAndSendsWindow(t *testing.T) {
	var pages int32
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/getReservations", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.Equal(t, "1001", r.URL.Query().Get("propertyID"))
		assert.Equal(t, "2024-12-16 00:00:00", r.URL.Query().Get("resultsFrom"))
		assert.Equal(t, "2024-12-22 23:59:59", r.URL.Query().Get("resultsTo"))

		atomic.AddInt32(&pages, 1)
		page, _ := strconv.Atoi(r.URL.Query().Get("pageNumber"))
		data := []map[string]interface{}{}
		switch page {
		case 1:
			data = append(data,
				map[string]interface{}{"reservationID": "A1", "total": 120.5},
				map[string]interface{}{"reservationID": "A2", "total": "80.00"},
			)
		case 2:
			data = append(data, map[string]interface{}{"reservationID": "A3", "total": ""})
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"success": true, "data": data})
	})

	from := time.Date(2024, time.December, 16, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, time.December, 22, 23, 59, 59, 0, time.UTC)
	res, err := c.FetchReservations(context.Background(), "1001", from, to)
	require.NoError(t, err)

	require.Len(t, res, 3)
	assert.Equal(t, Amount(120.5), res[0].Total)
	assert.Equal(t, Amount(80), res[1].Total)
	assert.Equal(t, Amount(0), res[2].Total)
	assert.Equal(t, int32(2), atomic.LoadInt32(&pages))
}

func TestFetchReservationsAuthErrorIsNotRetried(t *testing.T) {
	var calls int32
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, err := c.FetchReservations(context.Background(), "1001", time.Now(), time.Now())
	assert.ErrorIs(t, err, ErrAuth)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestServerErrorIsRetried(t *testing.T) {
	var calls int32
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"success": true, "data": []interface{}{}})
	})

	res, err := c.FetchReservations(context.Background(), "1001", time.Now(), time.Now())
	require.NoError(t, err)
	assert.Empty(t, res)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestFetchReservationDetail(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/getReservation", r.URL.Path)
		assert.Equal(t, "R-9", r.URL.Query().Get("reservationID"))
		_, _ = w.Write([]byte(`{"success":true,"data":{"reservationID":"R-9","total":"110.00",
			"balanceDetailed":{"subTotal":"100.00","additionalItems":0,"taxesFees":"10.00","grandTotal":110}}}`))
	})

	d, err := c.FetchReservationDetail(context.Background(), "1001", "R-9")
	require.NoError(t, err)

	p := d.Pricing()
	assert.Equal(t, 100.0, p.NetPrice)
	assert.Equal(t, 10.0, p.TaxAmount)
	assert.Equal(t, 110.0, p.GrossPrice)
}

func TestFetchReservationDetailNotFound(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success":false,"message":"Reservation not found"}`))
	})

	_, err := c.FetchReservationDetail(context.Background(), "1001", "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTimeoutIsClassified(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	t.Cleanup(srv.Close)

	c := NewClient(&config.Config{
		APIBaseURL:       srv.URL,
		RequestTimeoutMs: 20,
		MaxRetries:       1,
		PageSize:         10,
	}, utils.NewNopLogger())

	_, err := c.FetchReservationDetail(context.Background(), "1001", "R-1")
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestPricingFallsBackToNetPlusTax(t *testing.T) {
	d := ReservationDetail{BalanceDetailed: BalanceDetailed{SubTotal: 90, AdditionalItems: 10, TaxesFees: 5}}
	p := d.Pricing()
	assert.Equal(t, 100.0, p.NetPrice)
	assert.Equal(t, 105.0, p.GrossPrice)
}

func TestAmountAcceptsBothSeparatorStyles(t *testing.T) {
	cases := map[string]Amount{
		`"1.234,56"`: 1234.56,
		`"1,234.56"`: 1234.56,
		`"80,50"`:    80.5,
		`"1,234"`:    1234,
		`"350"`:      350,
		`""`:         0,
		`null`:       0,
		`99.9`:       99.9,
	}
	for in, want := range cases {
		var a Amount
		require.NoError(t, json.Unmarshal([]byte(in), &a), in)
		assert.InDelta(t, float64(want), float64(a), 1e-9, in)
	}

	var a Amount
	assert.Error(t, json.Unmarshal([]byte(`"n/a"`), &a))
}
