package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/Checker-Finance/adviser-fees/pkg/model"
)

// Columns appended to every processed row.
const (
	ColLowConfidence  = "Low_Confidence"
	ColReasonCode     = "Reason_Code"
	ColStructurePhase = "Structure_Phase"
)

// ProductColumn returns the header of product column i (1-based).
func ProductColumn(i int) string {
	return "Product" + strconv.Itoa(i)
}

// OutputColumns lists the columns added after the source columns.
func OutputColumns() []string {
	cols := make([]string, 0, model.MaxProducts+3)
	for i := 1; i <= model.MaxProducts; i++ {
		cols = append(cols, ProductColumn(i))
	}
	return append(cols, ColLowConfidence, ColReasonCode, ColStructurePhase)
}

// ProcessedName maps an input file name to its output name:
// "filing.xlsx" becomes "processed_filing.csv".
func ProcessedName(source string) string {
	base := filepath.Base(source)
	return "processed_" + strings.TrimSuffix(base, filepath.Ext(base)) + ".csv"
}

// WriteOptions configures CSV writing behavior.
type WriteOptions struct {
	BOMPrefix bool // UTF-8 BOM for Excel
}

// Writer writes processed tables into a directory.
type Writer struct {
	dir    string
	opts   WriteOptions
	logger *zap.Logger
}

func NewWriter(dir string, opts WriteOptions, logger *zap.Logger) *Writer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Writer{dir: dir, opts: opts, logger: logger}
}

// WriteProcessed writes header plus the output columns for rows into
// processed_<source>.csv and returns the path written.
func (w *Writer) WriteProcessed(source string, header []string, rows []model.OutputRow) (string, error) {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	path := filepath.Join(w.dir, ProcessedName(source))
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}

	if w.opts.BOMPrefix {
		if _, err := f.Write([]byte{0xEF, 0xBB, 0xBF}); err != nil {
			f.Close()
			return "", fmt.Errorf("failed to write BOM: %w", err)
		}
	}
	if err := WriteRows(f, header, rows); err != nil {
		f.Close()
		os.Remove(tmp)
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return "", fmt.Errorf("rename %s: %w", tmp, err)
	}

	w.logger.Info("export.processed_written",
		zap.String("source", source),
		zap.String("path", path),
		zap.Int("rows", len(rows)))
	return path, nil
}

// WriteRows writes a header and one line per row: the row's source columns
// aligned to header, followed by OutputColumns.
func WriteRows(out io.Writer, header []string, rows []model.OutputRow) error {
	cw := csv.NewWriter(out)

	full := append(append([]string(nil), header...), OutputColumns()...)
	if err := cw.Write(full); err != nil {
		return fmt.Errorf("failed to write headers: %w", err)
	}

	for i, row := range rows {
		if err := cw.Write(Line(header, row)); err != nil {
			return fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// Line renders one output row.
func Line(header []string, row model.OutputRow) []string {
	line := make([]string, len(header), len(header)+model.MaxProducts+3)
	copy(line, row.Record.Columns)
	line = append(line, row.Products[:]...)
	return append(line,
		strconv.FormatBool(row.LowConfidence),
		row.ReasonString(),
		string(row.Phase),
	)
}
