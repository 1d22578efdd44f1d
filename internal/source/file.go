package source

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"deliverystats/internal/stats"
)

// Column names accepted in spreadsheet exports, first match wins.
var (
	colTimestamp = []string{"datetime", "timestamp", "event_time"}
	colOrderID   = []string{"order_id"}
	colKind      = []string{"event_type", "kind"}
	colDateTag   = []string{"datetime_simple", "date_tag", "date"}
	colRegion    = []string{"order_hname", "region"}
	colMenu      = []string{"menu_name", "menu"}
	colRider     = []string{"rider_phone", "rider"}
	colShift     = []string{"time_zone", "time_period", "shift"}
)

var riderPhone = regexp.MustCompile(`\d{11}`)

// maxExcelSerial is 9999-12-31; larger numbers are not dates.
const maxExcelSerial = 2958466

// FileSource reads an .xlsx or .csv export. The first row is the header.
type FileSource struct {
	Path  string
	Sheet string // xlsx only; defaults to the first sheet
}

func NewFileSource(path string) *FileSource {
	return &FileSource{Path: path}
}

func (s *FileSource) Load(ctx context.Context) ([]stats.RawEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSourceUnavailable, err)
	}
	var (
		rows [][]string
		err  error
	)
	switch strings.ToLower(filepath.Ext(s.Path)) {
	case ".xlsx", ".xlsm":
		rows, err = s.readXLSX()
	case ".csv":
		rows, err = readCSVFile(s.Path)
	default:
		return nil, fmt.Errorf("%w: unsupported file type %q", ErrSourceUnavailable, s.Path)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrSourceUnavailable, s.Path, err)
	}
	events, err := EventsFromRows(rows)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrSourceUnavailable, s.Path, err)
	}
	return events, nil
}

func (s *FileSource) readXLSX() ([][]string, error) {
	f, err := excelize.OpenFile(s.Path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sheet := s.Sheet
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("workbook has no sheets")
		}
		sheet = sheets[0]
	}
	// Raw values keep date cells as serial numbers instead of locale formats.
	return f.GetRows(sheet, excelize.Options{RawCellValue: true})
}

func readCSVFile(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadCSV(f)
}

// ReadCSV reads all records, tolerating ragged rows and a UTF-8 BOM.
func ReadCSV(r io.Reader) ([][]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(rows) > 0 && len(rows[0]) > 0 {
		rows[0][0] = strings.TrimPrefix(rows[0][0], "\ufeff")
	}
	return rows, nil
}

// EventsFromRows maps header-addressed rows onto RawEvent. Rows with an
// unparseable timestamp or no order id are skipped. A header without the
// four required columns is a schema mismatch.
func EventsFromRows(rows [][]string) ([]stats.RawEvent, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: missing header row", ErrSchemaMismatch)
	}
	index := make(map[string]int, len(rows[0]))
	for i, h := range rows[0] {
		index[strings.ToLower(strings.TrimSpace(h))] = i
	}
	find := func(names []string) int {
		for _, n := range names {
			if i, ok := index[n]; ok {
				return i
			}
		}
		return -1
	}
	ts, id, kind, tag := find(colTimestamp), find(colOrderID), find(colKind), find(colDateTag)
	if ts < 0 || id < 0 || kind < 0 || tag < 0 {
		return nil, fmt.Errorf("%w: need columns datetime, order_id, event_type, datetime_simple; got %v", ErrSchemaMismatch, rows[0])
	}
	region, menu, rider, shift := find(colRegion), find(colMenu), find(colRider), find(colShift)

	events := make([]stats.RawEvent, 0, len(rows)-1)
	for _, row := range rows[1:] {
		cell := func(i int) string {
			if i < 0 || i >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[i])
		}
		e, ok := stats.ParseRow(spreadsheetTime(cell(ts)), cell(id), cell(kind), spreadsheetTime(cell(tag)))
		if !ok {
			continue
		}
		e.Region = cell(region)
		e.Menu = cell(menu)
		e.Rider = normalizeRider(cell(rider))
		e.Shift = cell(shift)
		events = append(events, e)
	}
	return events, nil
}

// spreadsheetTime converts an Excel serial date to a timestamp string and
// passes anything else through.
func spreadsheetTime(v string) string {
	serial, err := strconv.ParseFloat(v, 64)
	if err != nil || serial <= 0 || serial >= maxExcelSerial {
		return v
	}
	t, err := excelize.ExcelDateToTime(serial, false)
	if err != nil {
		return v
	}
	return t.Round(time.Second).Format("2006-01-02 15:04:05")
}

func normalizeRider(v string) string {
	if m := riderPhone.FindString(v); m != "" {
		return m
	}
	return v
}
