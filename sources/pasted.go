package sources

import (
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"hostel-analytics/models"
	"hostel-analytics/utils"
)

var (
	markupRegex = regexp.MustCompile(`(?i)<\s*(table|tbody|tr|td)\b`)
	tableRegex  = regexp.MustCompile(`(?i)<\s*table\b`)
)

// PastedColumns maps cells of a row copied from the reservations list view
type PastedColumns struct {
	ReservationID int
	GuestName     int
	BookingDate   int
	Checkin       int
	Checkout      int
	Nights        int
	Status        int
	Source        int
	Price         int
	MinCells      int
}

// DefaultPastedColumns matches the reservations list as copied from the browser
func DefaultPastedColumns() PastedColumns {
	return PastedColumns{
		ReservationID: 1,
		GuestName:     2,
		BookingDate:   3,
		Checkin:       4,
		Checkout:      5,
		Nights:        6,
		Status:        7,
		Source:        8,
		Price:         9,
		MinCells:      10,
	}
}

// IsMarkup reports whether a pasted blob is HTML rather than tab-delimited text
func IsMarkup(blob string) bool {
	return markupRegex.MatchString(blob)
}

// ParsePasted parses a pasted reservations table, either HTML markup or
// tab-separated text. Malformed lines are skipped and counted.
func ParsePasted(blob string, cols PastedColumns) (*Result, error) {
	var rows [][]string
	if IsMarkup(blob) {
		var err error
		if rows, err = markupRows(blob); err != nil {
			return nil, &ParseError{Source: "pasted markup", Reason: err.Error()}
		}
	} else {
		rows = delimitedRows(blob)
	}

	res := &Result{}
	seen := utils.NewKeyTracker()
	for _, row := range rows {
		if isBlank(row) {
			continue
		}
		res.Rows++

		if len(row) < cols.MinCells || cell(row, cols.ReservationID) == "" || cell(row, cols.BookingDate) == "" {
			res.Skipped++
			continue
		}
		if !models.IsDirectSource(cell(row, cols.Source)) {
			res.Filtered++
			continue
		}

		b, err := pastedBooking(row, cols)
		if err != nil {
			res.Skipped++
			continue
		}
		if !seen.Add(b.ReservationID) {
			res.Duplicates++
			continue
		}
		res.Bookings = append(res.Bookings, b)
	}
	return res.finish("pasted table")
}

func pastedBooking(row []string, cols PastedColumns) (models.Booking, error) {
	booked, err := parseDate(cell(row, cols.BookingDate))
	if err != nil {
		return models.Booking{}, fmt.Errorf("booking date: %w", err)
	}
	checkin, err := parseDate(cell(row, cols.Checkin))
	if err != nil {
		return models.Booking{}, fmt.Errorf("check-in: %w", err)
	}

	checkout := checkin
	if raw := cell(row, cols.Checkout); raw != "" {
		if checkout, err = parseDate(raw); err != nil {
			return models.Booking{}, fmt.Errorf("check-out: %w", err)
		}
	}

	nights, err := parseNights(cell(row, cols.Nights))
	if err != nil {
		return models.Booking{}, err
	}
	if nights == 0 {
		nights = models.NightsBetween(checkin, checkout)
	} else if cell(row, cols.Checkout) == "" {
		checkout = checkin.AddDate(0, 0, nights)
	}

	var price float64
	if raw := cell(row, cols.Price); raw != "" {
		if price, err = parsePrice(raw); err != nil {
			return models.Booking{}, err
		}
	}

	return models.Booking{
		ReservationID: cell(row, cols.ReservationID),
		GuestName:     cell(row, cols.GuestName),
		BookingDate:   booked,
		CheckinDate:   checkin,
		CheckoutDate:  checkout,
		Nights:        nights,
		Status:        cell(row, cols.Status),
		Source:        cell(row, cols.Source),
		GrossPrice:    price,
		LeadTimeDays:  models.LeadTime(booked, checkin),
	}, nil
}

func delimitedRows(blob string) [][]string {
	var rows [][]string
	for _, line := range strings.Split(strings.ReplaceAll(blob, "\r\n", "\n"), "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		rows = append(rows, strings.Split(line, "\t"))
	}
	return rows
}

// markupRows walks <tr> elements and collects the text of their <td>/<th> cells
func markupRows(blob string) ([][]string, error) {
	// The HTML parser drops bare <tr>/<td> outside a table
	if !tableRegex.MatchString(blob) {
		blob = "<table>" + blob + "</table>"
	}
	doc, err := html.Parse(strings.NewReader(blob))
	if err != nil {
		return nil, fmt.Errorf("failed to parse markup: %w", err)
	}

	var rows [][]string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.DataAtom == atom.Tr {
			var cells []string
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				if c.Type == html.ElementNode && (c.DataAtom == atom.Td || c.DataAtom == atom.Th) {
					cells = append(cells, nodeText(c))
				}
			}
			rows = append(rows, cells)
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return rows, nil
}

func nodeText(n *html.Node) string {
	var sb strings.Builder
	var collect func(*html.Node)
	collect = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			sb.WriteString(n.Data)
		case html.ElementNode:
			if n.DataAtom == atom.Script || n.DataAtom == atom.Style {
				return
			}
			if n.DataAtom == atom.Br {
				sb.WriteByte(' ')
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			collect(c)
		}
		if n.Type == html.ElementNode && (n.DataAtom == atom.Div || n.DataAtom == atom.P || n.DataAtom == atom.Span) {
			sb.WriteByte(' ')
		}
	}
	collect(n)
	return strings.TrimSpace(spaceRegex.ReplaceAllString(sb.String(), " "))
}
