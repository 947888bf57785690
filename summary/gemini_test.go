package summary

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hostel-analytics/models"
	"hostel-analytics/utils"
)

func weeks() []models.WeekRecord {
	return []models.WeekRecord{{
		PeriodLabel: "16 Dec 2024 - 22 Dec 2024",
		Hostels: map[string]models.HostelMetrics{
			"Playa":  {ValidCount: 2, GrossRevenue: 200, ADR: 40},
			"Centro": {ValidCount: 3, GrossRevenue: 350, ADR: 50, Bookings: []models.Booking{{GuestName: "Ana Ruiz"}}},
		},
	}}
}

func TestDigestIsSortedAndOmitsBookings(t *testing.T) {
	rows := Digest(weeks())
	require.Len(t, rows, 2)
	assert.Equal(t, "Centro", rows[0].Hostel)
	assert.Equal(t, 350.0, rows[0].GrossRevenue)

	data, err := json.Marshal(rows)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "Ana Ruiz")
}

func TestSummarize(t *testing.T) {
	var prompt string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/test-model:generateContent", r.URL.Path)
		assert.Equal(t, "k", r.URL.Query().Get("key"))

		var req generateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		prompt = req.Contents[0].Parts[0].Text

		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"Centro led the week."}]}}]}`))
	}))
	defer srv.Close()

	g := NewGemini(GeminiConfig{APIKey: "k", Model: "test-model", Endpoint: srv.URL}, utils.NewNopLogger())
	text, err := g.Summarize(context.Background(), weeks())
	require.NoError(t, err)
	assert.Equal(t, "Centro led the week.", text)
	assert.True(t, strings.Contains(prompt, `"hostel":"Playa"`))
}

func TestSummarizeErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		check  func(t *testing.T, err error)
	}{
		{"http status", http.StatusForbidden, `denied`, func(t *testing.T, err error) {
			assert.Contains(t, err.Error(), "status 403")
		}},
		{"api error", http.StatusOK, `{"error":{"code":429,"message":"quota"}}`, func(t *testing.T, err error) {
			assert.Contains(t, err.Error(), "quota")
		}},
		{"empty", http.StatusOK, `{"candidates":[]}`, func(t *testing.T, err error) {
			assert.True(t, errors.Is(err, ErrEmptyResponse))
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			g := NewGemini(GeminiConfig{Endpoint: srv.URL}, utils.NewNopLogger())
			_, err := g.Summarize(context.Background(), weeks())
			require.Error(t, err)
			tt.check(t, err)
		})
	}
}
