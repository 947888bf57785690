package summary

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"time"

	"hostel-analytics/models"
	"hostel-analytics/utils"
)

const defaultEndpoint = "https://generativelanguage.googleapis.com/v1beta/models"

// ErrEmptyResponse is returned when the model produced no text
var ErrEmptyResponse = errors.New("summary: empty model response")

// Summarizer writes a short narrative about a series of weeks
type Summarizer interface {
	Summarize(ctx context.Context, weeks []models.WeekRecord) (string, error)
}

// GeminiConfig configures the Gemini-backed summarizer
type GeminiConfig struct {
	APIKey   string
	Model    string
	Endpoint string
	Timeout  time.Duration
}

// GeminiSummarizer implements Summarizer with the Gemini generateContent API
type GeminiSummarizer struct {
	cfg    GeminiConfig
	client *http.Client
	logger *utils.Logger
}

// NewGemini creates a GeminiSummarizer
func NewGemini(cfg GeminiConfig, logger *utils.Logger) *GeminiSummarizer {
	if cfg.Model == "" {
		cfg.Model = "gemini-2.5-flash-lite"
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = defaultEndpoint
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &GeminiSummarizer{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger.Named("summary"),
	}
}

// HostelDigest is what the model sees per hostel and week. Raw bookings and
// guest names are never sent.
type HostelDigest struct {
	Week            string  `json:"week"`
	Hostel          string  `json:"hostel"`
	Bookings        int     `json:"bookings"`
	Cancelled       int     `json:"cancelled"`
	GrossRevenue    float64 `json:"gross_revenue"`
	NetRevenue      float64 `json:"net_revenue"`
	ADR             float64 `json:"adr"`
	LongStays       int     `json:"long_stays"`
	AvgLeadTimeDays float64 `json:"avg_lead_time_days"`
}

// Digest flattens weeks into the rows sent to the model
func Digest(weeks []models.WeekRecord) []HostelDigest {
	var rows []HostelDigest
	for _, w := range weeks {
		names := make([]string, 0, len(w.Hostels))
		for name := range w.Hostels {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			m := w.Hostels[name]
			rows = append(rows, HostelDigest{
				Week:            w.PeriodLabel,
				Hostel:          name,
				Bookings:        m.ValidCount,
				Cancelled:       m.CancelledCount,
				GrossRevenue:    m.GrossRevenue,
				NetRevenue:      m.NetRevenue,
				ADR:             m.ADR,
				LongStays:       m.LongStayCount,
				AvgLeadTimeDays: m.AvgLeadTimeDays,
			})
		}
	}
	return rows
}

// Summarize asks the model for a few sentences on trends across the weeks
func (g *GeminiSummarizer) Summarize(ctx context.Context, weeks []models.WeekRecord) (string, error) {
	data, err := json.Marshal(Digest(weeks))
	if err != nil {
		return "", fmt.Errorf("failed to marshal digest: %w", err)
	}
	prompt := "You are a revenue analyst for a small hostel group. " +
		"Below are weekly direct-booking metrics per hostel as JSON. " +
		"Write at most five short sentences on revenue, ADR and lead-time trends, " +
		"naming the weeks and hostels that stand out. Plain text only.\n\n" + string(data)

	g.logger.Info("Requesting summary for %d weeks", len(weeks))
	text, err := g.generate(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("gemini API error: %w", err)
	}
	return text, nil
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Message string `json:"message"`
		Code    int    `json:"code"`
	} `json:"error"`
}

func (g *GeminiSummarizer) generate(ctx context.Context, prompt string) (string, error) {
	url := fmt.Sprintf("%s/%s:generateContent?key=%s", g.cfg.Endpoint, g.cfg.Model, g.cfg.APIKey)

	body, err := json.Marshal(generateRequest{Contents: []content{{Parts: []part{{Text: prompt}}}}})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("status %d: %s", resp.StatusCode, truncate(string(raw), 200))
	}

	var out generateResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}
	if out.Error != nil {
		return "", fmt.Errorf("error %d: %s", out.Error.Code, out.Error.Message)
	}
	if len(out.Candidates) == 0 || len(out.Candidates[0].Content.Parts) == 0 {
		return "", ErrEmptyResponse
	}
	return out.Candidates[0].Content.Parts[0].Text, nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
