package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"hostel-analytics/config"
	"hostel-analytics/scraper/cloudbeds"
	"hostel-analytics/services"
	"hostel-analytics/sources"
	"hostel-analytics/storage"
	"hostel-analytics/summary"
	"hostel-analytics/utils"
)

const dateFlagLayout = "2006-01-02"

func main() {
	importPath := flag.String("import", "", "spreadsheet export to import (.xlsx or .csv)")
	pastePath := flag.String("paste", "", "file holding a pasted reservations table (text or markup), - for stdin")
	captureURL := flag.String("capture", "", "reservations list URL to capture with a headless browser")
	fetchDate := flag.String("fetch", "", "fetch the week containing this date (YYYY-MM-DD) for every property")
	enrich := flag.Bool("enrich", false, "backfill net price and tax for stored bookings")
	confirm := flag.Bool("confirm", false, "merge into weeks that already have data without asking")
	property := flag.String("property", "", "property name or id for imports (skips detection)")
	weekDate := flag.String("week", "", "any date (YYYY-MM-DD) in the week an import belongs to (skips detection)")
	summarize := flag.Bool("summary", false, "print a narrative summary of the series")
	flag.Parse()

	// ================== Bootstrap ====================
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger := utils.NewLogger(utils.LogConfig{Level: cfg.LogLevel, File: cfg.LogFile})
	defer logger.Sync()

	logger.Info("Hostel booking analytics")
	logger.Info("Properties: %d | Batch delay: %dms | Enrich delay: %dms | Retries: %d",
		len(cfg.Properties), cfg.RateLimitDelay, cfg.EnrichDelay, cfg.MaxRetries)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// =================== Storage ========================================
	var store storage.WeekStore
	if cfg.DatabaseURL != "" {
		pg, err := storage.NewPostgresStore(ctx, cfg.DatabaseURL, logger)
		if err != nil {
			logger.Error("Cannot connect to PostgreSQL: %v", err)
			os.Exit(1)
		}
		if err := pg.CreateTable(ctx); err != nil {
			logger.Error("Failed to create DB table: %v", err)
			os.Exit(1)
		}
		store = pg
	} else {
		logger.Warn("DATABASE_URL not set, weeks are kept in memory only")
		store = storage.NewMemoryStore()
	}
	defer store.Close()

	series := services.NewSeries(store, logger)
	now := time.Now()
	if err := series.Load(ctx, now.AddDate(-1, 0, 0), now.AddDate(0, 0, 7)); err != nil {
		logger.Error("%v", err)
	}

	opts := services.ImportOptions{Property: *property, Confirmed: *confirm}
	if *weekDate != "" {
		if opts.Date, err = time.ParseInLocation(dateFlagLayout, *weekDate, time.Local); err != nil {
			logger.Error("Invalid -week date: %v", err)
			os.Exit(2)
		}
	}

	client := cloudbeds.NewClient(cfg, logger)
	progress := services.NewProgress(time.Duration(cfg.ProgressClearMs) * time.Millisecond)
	progress.Subscribe(services.ProgressPrinter(os.Stdout))
	importer := services.NewImporter(cfg, series, logger)
	ask := newPrompter(os.Stdin, os.Stdout, *pastePath == "-")

	// =============== Manual imports ===================================
	if *importPath != "" {
		rows, err := sources.ReadSpreadsheet(*importPath)
		if err != nil {
			logger.Error("Failed to read %s: %v", *importPath, err)
			os.Exit(1)
		}
		res, err := importer.ImportSpreadsheet(ctx, *importPath, rows, opts)
		handleImport(ctx, series, ask, res, err, logger)
	}

	if *pastePath != "" || *captureURL != "" {
		var blob string
		if *captureURL != "" {
			capture := cloudbeds.NewTableCapture(cfg.CaptureCookie, 0, logger)
			blob, err = capture.Capture(ctx, *captureURL)
		} else {
			blob, err = readBlob(*pastePath)
		}
		if err != nil {
			logger.Error("Failed to get pasted table: %v", err)
			os.Exit(1)
		}
		res, err := importer.ImportPasted(ctx, blob, opts)
		handleImport(ctx, series, ask, res, err, logger)
	}

	// ========= Batch fetch ===========================
	if *fetchDate != "" {
		date, err := time.ParseInLocation(dateFlagLayout, *fetchDate, time.Local)
		if err != nil {
			logger.Error("Invalid -fetch date: %v", err)
			os.Exit(2)
		}
		if len(cfg.Properties) == 0 {
			logger.Error("PROPERTIES is empty, nothing to fetch")
			os.Exit(1)
		}

		fetcher := services.NewBatchFetcher(cfg, client, progress, logger)
		result, err := fetcher.Run(ctx, cfg.Properties, date)
		if err != nil {
			logger.Error("Batch fetch failed: %v", err)
			os.Exit(1)
		}
		services.PrintBatchSummary(result)
		if err := result.Err(); err != nil {
			logger.Warn("Some properties failed: %v", err)
		}

		if len(result.Succeeded) > 0 {
			week := result.WeekRecord()
			outcome, err := series.Reconcile(ctx, week, *confirm)
			if errors.Is(err, services.ErrConfirmationRequired) {
				if ok, perr := ask.confirm(err); ok {
					outcome, err = series.Reconcile(ctx, week, true)
				} else if perr != nil {
					err = fmt.Errorf("week %s discarded: %w", week.PeriodLabel, perr)
				}
			}
			if err != nil {
				logger.Error("%v", err)
			} else {
				logger.Info("Week %s %s", week.PeriodLabel, outcome)
			}
		}
	}

	// =========== Enrichment ======================
	if *enrich {
		job := services.NewEnrichmentJob(cfg, client, series, progress, logger)
		result, err := job.Run(ctx)
		if err != nil {
			logger.Error("Enrichment failed: %v", err)
			os.Exit(1)
		}
		services.PrintEnrichmentSummary(result)
	}

	// ========= CSV export + report ============
	weeks := series.Records()
	csvWriter := storage.NewCSVWriter(cfg.CSVFilePath, logger)
	if err := csvWriter.WriteBookings(weeks); err != nil {
		// Non-fatal: the report still prints
		logger.Error("Failed to write CSV: %v", err)
	}
	services.PrintSeriesReport(weeks)

	if *summarize {
		if cfg.GeminiAPIKey == "" {
			logger.Warn("GEMINI_API_KEY not set, skipping summary")
		} else {
			var s summary.Summarizer = summary.NewGemini(summary.GeminiConfig{
				APIKey: cfg.GeminiAPIKey,
				Model:  cfg.GeminiModel,
			}, logger)
			text, err := s.Summarize(ctx, weeks)
			if err != nil {
				logger.Error("Summary failed: %v", err)
			} else {
				fmt.Printf(" %s\n\n", strings.TrimSpace(text))
			}
		}
	}

	fmt.Println(" Done! Bookings →", cfg.CSVFilePath)
}

// handleImport reports an import and, on a conflict, asks before merging
func handleImport(ctx context.Context, series *services.Series, ask *prompter, res *services.ImportResult, err error, logger *utils.Logger) {
	var perr *sources.ParseError
	switch {
	case err == nil:
		logger.Info("Imported %d bookings for '%s' into %s (%s)",
			len(res.Parsed.Bookings), res.Property.Name, res.Period.Label(), res.Outcome)
	case errors.Is(err, services.ErrConfirmationRequired):
		ok, perr := ask.confirm(err)
		if perr != nil {
			logger.Error("Import of %s discarded: %v", res.Period.Label(), perr)
			return
		}
		if !ok {
			logger.Warn("Import of %s discarded", res.Period.Label())
			return
		}
		outcome, err := series.Reconcile(ctx, res.Week, true)
		if err != nil {
			logger.Error("%v", err)
			return
		}
		logger.Info("Week %s %s", res.Period.Label(), outcome)
	case errors.As(err, &perr):
		logger.Error("Nothing imported: %v", perr)
	default:
		logger.Error("Import failed: %v", err)
	}
}

var errNoPrompt = errors.New("stdin already held the pasted table, rerun with -confirm to merge")

// prompter asks the operator before merging into a week that has data
type prompter struct {
	in  *bufio.Reader
	out io.Writer
}

// newPrompter returns a prompter that cannot ask when stdinUsed is set
func newPrompter(in io.Reader, out io.Writer, stdinUsed bool) *prompter {
	p := &prompter{out: out}
	if !stdinUsed {
		p.in = bufio.NewReader(in)
	}
	return p
}

func (p *prompter) confirm(conflict error) (bool, error) {
	if p.in == nil {
		return false, errNoPrompt
	}
	fmt.Fprintf(p.out, "\n %v\n Merge anyway? [y/N] ", conflict)
	answer, err := p.in.ReadString('\n')
	if err != nil && answer == "" {
		return false, fmt.Errorf("no answer: %w", err)
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes", nil
}

func readBlob(path string) (string, error) {
	if path == "-" {
		data, err := io.ReadAll(os.Stdin)
		return string(data), err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
