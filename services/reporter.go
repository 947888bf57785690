package services

import (
	"fmt"
	"io"
	"os"
	"strings"

	"hostel-analytics/models"
)

const reportWidth = 64

// PrintSeriesReport prints the weekly metrics of every hostel to stdout
func PrintSeriesReport(weeks []models.WeekRecord) {
	WriteSeriesReport(os.Stdout, weeks)
}

// WriteSeriesReport formats the weekly metrics of every hostel
func WriteSeriesReport(w io.Writer, weeks []models.WeekRecord) {
	border := strings.Repeat("═", reportWidth)
	thin := strings.Repeat("─", reportWidth)

	fmt.Fprintf(w, "\n╔%s╗\n", border)
	fmt.Fprintf(w, "║%s║\n", center("WEEKLY DIRECT BOOKINGS", reportWidth))
	fmt.Fprintf(w, "╚%s╝\n", border)

	if len(weeks) == 0 {
		fmt.Fprintf(w, "\n  No weeks imported yet\n\n")
		return
	}

	for _, week := range weeks {
		fmt.Fprintf(w, "\n %s\n%s\n", week.PeriodLabel, thin)
		fmt.Fprintf(w, "  %-18s %5s %5s %10s %10s %8s %5s %6s\n",
			"Hostel", "Valid", "Canc", "Gross", "Net", "ADR", "Long", "Lead")
		for _, name := range sortedHostels(week) {
			m := week.Hostels[name]
			fmt.Fprintf(w, "  %-18s %5d %5d %10.2f %10.2f %8.2f %5d %6.1f\n",
				truncate(name, 18), m.ValidCount, m.CancelledCount,
				m.GrossRevenue, m.NetRevenue, m.ADR, m.LongStayCount, m.AvgLeadTimeDays)
		}
	}

	fmt.Fprintf(w, "\n%s\n\n", border)
}

// PrintBatchSummary prints the per-property outcome of a batch fetch
func PrintBatchSummary(result *BatchResult) {
	WriteBatchSummary(os.Stdout, result)
}

// WriteBatchSummary formats the per-property outcome of a batch fetch
func WriteBatchSummary(w io.Writer, result *BatchResult) {
	thin := strings.Repeat("─", reportWidth)
	fmt.Fprintf(w, "\n BATCH FETCH %s\n%s\n", result.Period.Label(), thin)
	writeItems(w, result.Items)
	fmt.Fprintf(w, "  %d succeeded, %d failed", len(result.Succeeded), len(result.Failed))
	if result.Cancelled {
		fmt.Fprint(w, " (cancelled)")
	}
	fmt.Fprintln(w)
}

// PrintEnrichmentSummary prints the outcome of an enrichment run
func PrintEnrichmentSummary(result *EnrichmentResult) {
	thin := strings.Repeat("─", reportWidth)
	fmt.Printf("\n ENRICHMENT\n%s\n", thin)
	writeItems(os.Stdout, result.Items)
	fmt.Printf("  %d of %d enriched, %d failed", result.Succeeded, result.Total, len(result.Failed))
	if result.Cancelled {
		fmt.Print(" (cancelled)")
	}
	fmt.Println()
}

// ProgressPrinter returns an observer that prints one line per transition
func ProgressPrinter(w io.Writer) ProgressFunc {
	return func(s *models.JobState) {
		if s == nil {
			return
		}
		last := ""
		if s.Current > 0 && s.Current <= len(s.Items) {
			it := s.Items[s.Current-1]
			last = fmt.Sprintf("%s %s", truncate(it.Key, 30), it.Status)
		}
		fmt.Fprintf(w, "  [%s %d/%d] %s\n", s.Kind, s.Current, s.Total, last)
	}
}

func writeItems(w io.Writer, items []models.ItemState) {
	for _, it := range items {
		line := fmt.Sprintf("  %-32s %s", truncate(it.Key, 32), it.Status)
		if it.Error != "" {
			line += "  " + truncate(it.Error, 60)
		}
		fmt.Fprintln(w, line)
	}
}

func center(s string, width int) string {
	runes := []rune(s)
	if len(runes) >= width {
		return s
	}
	pad := (width - len(runes)) / 2
	return strings.Repeat(" ", pad) + s + strings.Repeat(" ", width-len(runes)-pad)
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-3]) + "..."
}
