package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
)

// Columns added by Consolidate.
const (
	ColSourceFilename = "Source_Filename"
	ColOriginalOrder  = "Original_Order"
)

// Consolidate merges processed CSV files into out. Files are read in name
// order and rows keep their in-file order; Original_Order numbers the rows
// of the combined table from 0. The header is the union of the inputs'
// headers in first-seen order. It returns the number of rows written.
func Consolidate(files []string, out string) (int, error) {
	sorted := append([]string(nil), files...)
	sort.Strings(sorted)

	type table struct {
		name   string
		header []string
		rows   [][]string
	}

	var tables []table
	var header []string
	seen := map[string]bool{}
	for _, path := range sorted {
		data, err := os.ReadFile(path)
		if err != nil {
			return 0, fmt.Errorf("read %s: %w", path, err)
		}
		r := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF})))
		r.FieldsPerRecord = -1
		records, err := r.ReadAll()
		if err != nil {
			return 0, fmt.Errorf("parse %s: %w", path, err)
		}
		if len(records) == 0 {
			continue
		}
		for _, h := range records[0] {
			if !seen[h] {
				seen[h] = true
				header = append(header, h)
			}
		}
		tables = append(tables, table{name: filepath.Base(path), header: records[0], rows: records[1:]})
	}

	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return 0, fmt.Errorf("failed to create directory: %w", err)
	}
	f, err := os.Create(out)
	if err != nil {
		return 0, fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	if err := cw.Write(append(append([]string(nil), header...), ColSourceFilename, ColOriginalOrder)); err != nil {
		return 0, fmt.Errorf("failed to write headers: %w", err)
	}

	position := make(map[string]int, len(header))
	for i, h := range header {
		position[h] = i
	}

	n := 0
	for _, t := range tables {
		for _, rec := range t.rows {
			line := make([]string, len(header)+2)
			for i, v := range rec {
				if i < len(t.header) {
					line[position[t.header[i]]] = v
				}
			}
			line[len(header)] = t.name
			line[len(header)+1] = strconv.Itoa(n)
			if err := cw.Write(line); err != nil {
				return n, fmt.Errorf("failed to write record %d: %w", n, err)
			}
			n++
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return n, err
	}
	return n, f.Close()
}
