package sources

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"hostel-analytics/models"
	"hostel-analytics/utils"
)

// SpreadsheetColumns maps the column roles of a reservations export to indices.
// ReservationID and GuestName are optional (-1).
type SpreadsheetColumns struct {
	ReservationID int
	GuestName     int
	Arrival       int
	Nights        int
	Price         int
	Created       int
	Source        int
	Status        int
}

// DefaultSpreadsheetColumns matches the reservations report export
func DefaultSpreadsheetColumns() SpreadsheetColumns {
	return SpreadsheetColumns{
		ReservationID: 0,
		GuestName:     1,
		Arrival:       2,
		Nights:        3,
		Price:         4,
		Created:       5,
		Source:        6,
		Status:        7,
	}
}

func (c SpreadsheetColumns) width() int {
	w := 0
	for _, idx := range []int{c.Arrival, c.Nights, c.Price, c.Created, c.Source, c.Status} {
		if idx+1 > w {
			w = idx + 1
		}
	}
	return w
}

// ParseSpreadsheet turns spreadsheet rows (first row is the header) into direct bookings
func ParseSpreadsheet(rows [][]string, cols SpreadsheetColumns) (*Result, error) {
	res := &Result{}
	if len(rows) <= 1 {
		return res.finish("spreadsheet")
	}

	width := cols.width()
	seen := utils.NewKeyTracker()
	for _, row := range rows[1:] {
		if isBlank(row) {
			continue
		}
		res.Rows++

		if len(row) < width {
			res.Skipped++
			continue
		}
		if !models.IsDirectSource(cell(row, cols.Source)) {
			res.Filtered++
			continue
		}

		b, err := spreadsheetBooking(row, cols)
		if err != nil {
			res.Skipped++
			continue
		}
		// rows without an id column cannot be told apart and are all kept
		if b.ReservationID != "" && !seen.Add(b.ReservationID) {
			res.Duplicates++
			continue
		}
		res.Bookings = append(res.Bookings, b)
	}
	return res.finish("spreadsheet")
}

func spreadsheetBooking(row []string, cols SpreadsheetColumns) (models.Booking, error) {
	arrival, err := parseDate(cell(row, cols.Arrival))
	if err != nil {
		return models.Booking{}, fmt.Errorf("arrival: %w", err)
	}
	nights, err := parseNights(cell(row, cols.Nights))
	if err != nil {
		return models.Booking{}, err
	}

	var price float64
	if raw := cell(row, cols.Price); raw != "" {
		if price, err = parsePrice(raw); err != nil {
			return models.Booking{}, err
		}
	}

	b := models.Booking{
		ReservationID: cell(row, cols.ReservationID),
		GuestName:     cell(row, cols.GuestName),
		CheckinDate:   arrival,
		CheckoutDate:  arrival.AddDate(0, 0, nights),
		Nights:        nights,
		Status:        cell(row, cols.Status),
		Source:        cell(row, cols.Source),
		GrossPrice:    price,
	}
	if raw := cell(row, cols.Created); raw != "" {
		created, err := parseDate(raw)
		if err != nil {
			return models.Booking{}, fmt.Errorf("created: %w", err)
		}
		b.BookingDate = created
		b.LeadTimeDays = models.LeadTime(created, arrival)
	}
	return b, nil
}

// ReadSpreadsheet loads the first sheet of an .xlsx file, or a .csv file, as rows
func ReadSpreadsheet(path string) ([][]string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return readXLSX(path)
	case ".csv":
		return readCSV(path)
	default:
		return nil, fmt.Errorf("unsupported spreadsheet format %q", filepath.Ext(path))
	}
}

func readXLSX(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook %s has no sheets", path)
	}
	// Raw values keep dates as serial numbers instead of locale-formatted text
	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheets[0], err)
	}
	return rows, nil
}

func readCSV(path string) ([][]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV file: %w", err)
	}
	return rows, nil
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
