package cloudbeds

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"hostel-analytics/config"
	"hostel-analytics/utils"
)

// DateTimeLayout is the window format the listing endpoint expects
const DateTimeLayout = "2006-01-02 15:04:05"

// Client talks to the reservation API. Every request is paced by the rate
// limiter and transient failures are retried with backoff.
type Client struct {
	baseURL     string
	token       string
	pageSize    int
	http        *http.Client
	rateLimiter *utils.RateLimiter
	retry       utils.RetryPolicy
	logger      *utils.Logger
}

// NewClient creates a new Client
func NewClient(cfg *config.Config, logger *utils.Logger) *Client {
	return &Client{
		baseURL:     strings.TrimRight(cfg.APIBaseURL, "/"),
		token:       cfg.APIToken,
		pageSize:    cfg.PageSize,
		http:        &http.Client{Timeout: cfg.RequestTimeout()},
		rateLimiter: utils.NewRateLimiter(cfg.MinRequestGapMs),
		retry: utils.RetryPolicy{
			MaxRetries: cfg.MaxRetries,
			Backoff:    time.Duration(cfg.RetryBackoffMs) * time.Millisecond,
			Retryable:  retryable,
		},
		logger: logger.Named("cloudbeds"),
	}
}

// FetchReservations lists every reservation of a property created inside
// [from 00:00:00, to 23:59:59], following pagination
func (c *Client) FetchReservations(ctx context.Context, propertyID string, from, to time.Time) ([]Reservation, error) {
	start := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, from.Location())
	end := time.Date(to.Year(), to.Month(), to.Day(), 23, 59, 59, 0, to.Location())

	var all []Reservation
	for page := 1; ; page++ {
		params := url.Values{}
		params.Set("propertyID", propertyID)
		params.Set("resultsFrom", start.Format(DateTimeLayout))
		params.Set("resultsTo", end.Format(DateTimeLayout))
		params.Set("pageNumber", strconv.Itoa(page))
		params.Set("pageSize", strconv.Itoa(c.pageSize))

		var resp listResponse
		if err := c.get(ctx, "getReservations", params, &resp); err != nil {
			return nil, err
		}
		if !resp.Success {
			return nil, c.unsuccessful("getReservations", resp.Message)
		}

		all = append(all, resp.Data...)
		c.logger.Debug("Property %s page %d: %d reservations", propertyID, page, len(resp.Data))

		if len(resp.Data) < c.pageSize || (resp.Total > 0 && len(all) >= resp.Total) {
			break
		}
	}
	return all, nil
}

// FetchReservationDetail returns one reservation with its financial breakdown
func (c *Client) FetchReservationDetail(ctx context.Context, propertyID, reservationID string) (*ReservationDetail, error) {
	params := url.Values{}
	params.Set("propertyID", propertyID)
	params.Set("reservationID", reservationID)

	var resp detailResponse
	if err := c.get(ctx, "getReservation", params, &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, c.unsuccessful("getReservation", resp.Message)
	}
	return &resp.Data, nil
}

func (c *Client) unsuccessful(op, message string) error {
	kind := ErrNetwork
	lower := strings.ToLower(message)
	switch {
	case strings.Contains(lower, "not found"), strings.Contains(lower, "no reservation"):
		kind = ErrNotFound
	case strings.Contains(lower, "token"), strings.Contains(lower, "unauthorized"), strings.Contains(lower, "access"):
		kind = ErrAuth
	}
	return &APIError{Kind: kind, Op: op, Message: message}
}

func (c *Client) get(ctx context.Context, op string, params url.Values, out interface{}) error {
	endpoint := c.baseURL + "/" + op + "?" + params.Encode()

	return utils.RetryWithBackoff(ctx, c.retry, func() error {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return &APIError{Kind: ErrNetwork, Op: op, Err: err}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return &APIError{Kind: ErrNetwork, Op: op, Err: err}
		}
		req.Header.Set("Authorization", "Bearer "+c.token)
		req.Header.Set("Accept", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			return &APIError{Kind: classifyTransport(err), Op: op, Err: err}
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return &APIError{Kind: classifyTransport(err), Op: op, Err: err}
		}

		switch {
		case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
			return &APIError{Kind: ErrAuth, Op: op, StatusCode: resp.StatusCode, Message: snippet(body)}
		case resp.StatusCode == http.StatusNotFound:
			return &APIError{Kind: ErrNotFound, Op: op, StatusCode: resp.StatusCode, Message: snippet(body)}
		case resp.StatusCode >= 300:
			return &APIError{Kind: ErrNetwork, Op: op, StatusCode: resp.StatusCode, Message: snippet(body)}
		}

		if err := json.Unmarshal(body, out); err != nil {
			return &APIError{Kind: ErrNetwork, Op: op, StatusCode: resp.StatusCode, Message: "invalid JSON response", Err: err}
		}
		return nil
	}, c.logger)
}

func classifyTransport(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrTimeout
	}
	return ErrNetwork
}

func snippet(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > 200 {
		s = s[:200] + "..."
	}
	return s
}

