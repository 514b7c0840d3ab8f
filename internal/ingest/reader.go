package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/Checker-Finance/adviser-fees/pkg/model"
)

// Column headers of the filing exports.
const (
	ColFlatFee           = "Flat Fee"
	ColMinimumInvestment = "Minimum investment (Amount/No)"
	ColNegotiable        = "Negotiable (Yes/No)"
)

// ErrNoFeeColumns is returned when a sheet carries none of the threshold columns.
var ErrNoFeeColumns = errors.New("ingest: no annual fee threshold columns")

// ThresholdColumn returns the header of threshold slot i (1-based). The
// first column is lower-case "threshold" in the exports, the rest are not.
func ThresholdColumn(i int) string {
	if i == 1 {
		return "Annual fee threshold 1"
	}
	return "Annual fee Threshold " + strconv.Itoa(i)
}

// FeeColumn returns the header of the optional separate fee cell for slot i.
func FeeColumn(i int) string {
	return "Annual fee " + strconv.Itoa(i)
}

// Table is a parsed input sheet.
type Table struct {
	Source  string
	Header  []string
	Records []model.RawRecord
}

// ReadFile parses a .csv or .xlsx file by extension.
func ReadFile(path string) (*Table, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", path, err)
		}
		defer f.Close()
		return ReadCSV(f, filepath.Base(path))
	case ".xlsx":
		return ReadXLSX(path)
	default:
		return nil, fmt.Errorf("ingest: unsupported file type %q", filepath.Ext(path))
	}
}

// ReadCSV parses CSV input. source names the records' SourceFile.
func ReadCSV(r io.Reader, source string) (*Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	// encoding/csv drops empty lines; pad them back so rows[i] stays the
	// i-th line after the header.
	var rows [][]string
	first := 0
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv %s: %w", source, err)
		}
		line, _ := cr.FieldPos(0)
		if len(rows) == 0 {
			first = line
		}
		for len(rows) < line-first {
			rows = append(rows, nil)
		}
		rows = append(rows, rec)
	}
	return FromRows(source, rows)
}

// ReadXLSX parses the first sheet of a workbook that carries threshold columns.
func ReadXLSX(path string) (*Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	source := filepath.Base(path)
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return nil, fmt.Errorf("read sheet %s: %w", sheet, err)
		}
		t, err := FromRows(source, rows)
		if errors.Is(err, ErrNoFeeColumns) {
			continue
		}
		return t, err
	}
	return nil, fmt.Errorf("%s: %w", source, ErrNoFeeColumns)
}

type layout struct {
	threshold [model.MaxSlots]int
	fee       [model.MaxSlots]int
	flatFee   int
	minimum   int
	negotiate int
}

func headerKey(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(strings.TrimPrefix(s, "\ufeff")), " "))
}

func locate(header []string) (layout, bool) {
	index := make(map[string]int, len(header))
	for i, h := range header {
		if _, dup := index[headerKey(h)]; !dup {
			index[headerKey(h)] = i
		}
	}
	find := func(name string) int {
		if i, ok := index[headerKey(name)]; ok {
			return i
		}
		return -1
	}

	l := layout{
		flatFee:   find(ColFlatFee),
		minimum:   find(ColMinimumInvestment),
		negotiate: find(ColNegotiable),
	}
	found := false
	for i := 0; i < model.MaxSlots; i++ {
		l.threshold[i] = find(ThresholdColumn(i + 1))
		l.fee[i] = find(FeeColumn(i + 1))
		if l.threshold[i] >= 0 {
			found = true
		}
	}
	return l, found
}

// FromRows builds a Table from a header row followed by data rows. Blank
// rows are skipped, but RowIndex stays the row's position after the header
// (from 0), so it points back at the source row.
func FromRows(source string, rows [][]string) (*Table, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("%s: empty input: %w", source, ErrNoFeeColumns)
	}
	header := rows[0]
	l, ok := locate(header)
	if !ok {
		return nil, fmt.Errorf("%s: %w", source, ErrNoFeeColumns)
	}

	t := &Table{Source: source, Header: header}
	for i, row := range rows[1:] {
		if blank(row) {
			continue
		}
		cols := make([]string, len(header))
		copy(cols, row)

		rec := model.RawRecord{
			SourceFile:        source,
			RowIndex:          i,
			FlatFee:           cell(cols, l.flatFee),
			MinimumInvestment: cell(cols, l.minimum),
			Negotiable:        cell(cols, l.negotiate),
			Columns:           cols,
		}
		for i := 0; i < model.MaxSlots; i++ {
			if l.threshold[i] < 0 && l.fee[i] < 0 {
				continue
			}
			for len(rec.Slots) < i {
				rec.Slots = append(rec.Slots, model.RawSlot{})
			}
			rec.Slots = append(rec.Slots, model.RawSlot{
				Threshold: cell(cols, l.threshold[i]),
				Fee:       cell(cols, l.fee[i]),
			})
		}
		t.Records = append(t.Records, rec)
	}
	return t, nil
}

func cell(cols []string, i int) model.RawValue {
	if i < 0 || i >= len(cols) {
		return ""
	}
	return model.RawValue(cols[i])
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
