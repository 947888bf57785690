package cloudbeds

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"hostel-analytics/utils"
)

// TableCapture opens the reservations list of the web dashboard in a headless
// browser and returns the markup of its table, ready for the pasted-table parser
type TableCapture struct {
	cookie  string
	timeout time.Duration
	logger  *utils.Logger
}

// NewTableCapture creates a TableCapture. cookie is sent as the raw Cookie
// header so an existing dashboard session can be reused.
func NewTableCapture(cookie string, timeout time.Duration, logger *utils.Logger) *TableCapture {
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &TableCapture{cookie: cookie, timeout: timeout, logger: logger.Named("capture")}
}

// newContext creates a fresh chromedp context (one browser, one tab)
func (t *TableCapture) newContext(parent context.Context) (context.Context, context.CancelFunc) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("log-level", "3"),
		chromedp.WindowSize(1440, 900),
	)

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(parent, opts...)
	ctx, cancelCtx := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(string, ...interface{}) {}))

	cancel := func() {
		cancelCtx()
		cancelAlloc()
	}
	return ctx, cancel
}

// Capture navigates to pageURL, waits for the first table and returns its outer HTML
func (t *TableCapture) Capture(ctx context.Context, pageURL string) (string, error) {
	t.logger.Info("Opening %s", pageURL)

	ctx, cancel := t.newContext(ctx)
	defer cancel()

	ctx, cancelTimeout := context.WithTimeout(ctx, t.timeout)
	defer cancelTimeout()

	var tasks chromedp.Tasks
	if t.cookie != "" {
		tasks = append(tasks,
			network.Enable(),
			network.SetExtraHTTPHeaders(network.Headers{"Cookie": t.cookie}),
		)
	}

	var markup string
	tasks = append(tasks,
		chromedp.Navigate(pageURL),
		chromedp.WaitVisible(`table tbody tr`, chromedp.ByQuery),
		chromedp.Sleep(2*time.Second), // rows render in batches
		chromedp.OuterHTML(`table`, &markup, chromedp.ByQuery),
	)

	if err := chromedp.Run(ctx, tasks); err != nil {
		return "", fmt.Errorf("table capture failed: %w", err)
	}
	if strings.TrimSpace(markup) == "" {
		return "", fmt.Errorf("no reservations table found at %s", pageURL)
	}

	t.logger.Info("Captured table (%d bytes)", len(markup))
	return markup, nil
}
