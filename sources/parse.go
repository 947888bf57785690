package sources

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"hostel-analytics/utils"
)

var (
	priceCharsRegex = regexp.MustCompile(`[^\d.,\-]`)
	intRegex        = regexp.MustCompile(`-?\d+`)
	spaceRegex      = regexp.MustCompile(`\s+`)
)

// Day-first layouts win over month-first: exports come from European properties.
var dateLayouts = []string{
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"02/01/2006 15:04:05",
	"02/01/2006 15:04",
	"02/01/2006",
	"2/1/2006 15:04",
	"2/1/2006",
	"02-01-2006",
	"02.01.2006",
	"02/01/06",
	"2 Jan 2006",
	"2 Jan 2006 15:04",
	"Jan 2, 2006",
	"Jan 2, 2006 3:04 PM",
}

var excelEpoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)

// parseDate accepts the date formats seen in exports, pasted tables and Excel serials
func parseDate(raw string) (time.Time, error) {
	s := strings.TrimSpace(spaceRegex.ReplaceAllString(raw, " "))
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	if serial, err := strconv.ParseFloat(s, 64); err == nil && serial > 0 && serial < 2958466 {
		days := math.Floor(serial)
		frac := serial - days
		t := excelEpoch.AddDate(0, 0, int(days)).Add(time.Duration(math.Round(frac*86400)) * time.Second)
		return t, nil
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", raw)
}

// parsePrice extracts an amount from strings like "€1.234,56", "$350" or "1,234.56"
func parsePrice(raw string) (float64, error) {
	s := priceCharsRegex.ReplaceAllString(strings.TrimSpace(raw), "")
	if s == "" {
		return 0, fmt.Errorf("empty price")
	}

	d, err := utils.ParseAmount(s)
	if err != nil {
		return 0, fmt.Errorf("invalid price %q: %w", raw, err)
	}
	return d.Round(2).InexactFloat64(), nil
}

// parseNights reads a night count; "" means unknown and yields 0
func parseNights(raw string) (int, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, nil
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		if f < 0 {
			return 0, fmt.Errorf("negative nights %q", raw)
		}
		return int(f), nil
	}
	m := intRegex.FindString(s)
	if m == "" {
		return 0, fmt.Errorf("invalid nights %q", raw)
	}
	n, err := strconv.Atoi(m)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid nights %q", raw)
	}
	return n, nil
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(spaceRegex.ReplaceAllString(row[idx], " "))
}
