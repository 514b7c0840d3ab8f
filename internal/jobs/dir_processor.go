package jobs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Checker-Finance/adviser-fees/internal/export"
	"github.com/Checker-Finance/adviser-fees/internal/ingest"
	"github.com/Checker-Finance/adviser-fees/internal/metrics"
	"github.com/Checker-Finance/adviser-fees/internal/pool"
	"github.com/Checker-Finance/adviser-fees/internal/store"
	"github.com/Checker-Finance/adviser-fees/pkg/model"
)

// Ledger is the part of store.HybridStore the file jobs need.
type Ledger interface {
	IsProcessed(ctx context.Context, file string, stamp store.FileStamp) (bool, error)
	MarkProcessed(ctx context.Context, entry store.LedgerEntry) error
	SaveRows(ctx context.Context, rows []model.OutputRow) error
}

// FilePublisher emits file.processed events.
type FilePublisher interface {
	PublishFileProcessed(ctx context.Context, evt model.FileProcessedEvent, correlationID uuid.UUID) error
}

// ScanSummary reports one pass over the input directory.
type ScanSummary struct {
	Processed []string
	Skipped   []string
	Failed    []string
}

// DirProcessor turns every input sheet in a directory into a processed CSV.
// Files recorded in the ledger with an unchanged size and mtime are skipped,
// so an interrupted run resumes where it stopped.
type DirProcessor struct {
	inputDir  string
	pool      *pool.Pool
	writer    *export.Writer
	ledger    Ledger
	publisher FilePublisher
	logger    *zap.Logger
}

// NewDirProcessor builds a processor. ledger and publisher may be nil; without
// a ledger every file is processed on every scan.
func NewDirProcessor(inputDir string, p *pool.Pool, w *export.Writer, ledger Ledger, pub FilePublisher, logger *zap.Logger) *DirProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DirProcessor{
		inputDir:  inputDir,
		pool:      p,
		writer:    w,
		ledger:    ledger,
		publisher: pub,
		logger:    logger,
	}
}

// InputFiles lists the .csv and .xlsx files of dir in name order. Processed
// outputs and Office lock files are ignored.
func InputFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read input dir %s: %w", dir, err)
	}

	var files []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, "~$") || strings.HasPrefix(name, "processed_") {
			continue
		}
		switch strings.ToLower(filepath.Ext(name)) {
		case ".csv", ".xlsx":
			files = append(files, filepath.Join(dir, name))
		}
	}
	sort.Strings(files)
	return files, nil
}

// ProcessDir runs one pass over the input directory. A failing file is
// logged and counted; the pass moves on to the next one. Only an unreadable
// directory or cancellation is returned as an error.
func (d *DirProcessor) ProcessDir(ctx context.Context) (ScanSummary, error) {
	var sum ScanSummary

	files, err := InputFiles(d.inputDir)
	if err != nil {
		return sum, err
	}

	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		name := filepath.Base(path)

		info, err := os.Stat(path)
		if err != nil {
			d.logger.Error("jobs.stat_failed", zap.String("file", name), zap.Error(err))
			sum.Failed = append(sum.Failed, name)
			continue
		}
		stamp := store.FileStamp{Size: info.Size(), ModTime: info.ModTime().UTC()}

		if d.ledger != nil {
			done, err := d.ledger.IsProcessed(ctx, name, stamp)
			if err != nil {
				d.logger.Warn("jobs.ledger_lookup_failed", zap.String("file", name), zap.Error(err))
			} else if done {
				d.logger.Debug("jobs.file_skipped", zap.String("file", name))
				sum.Skipped = append(sum.Skipped, name)
				continue
			}
		}

		if _, err := d.ProcessFile(ctx, path, stamp); err != nil {
			if ctx.Err() != nil {
				return sum, ctx.Err()
			}
			d.logger.Error("jobs.file_failed", zap.String("file", name), zap.Error(err))
			metrics.IncError("jobs", "file_failed")
			sum.Failed = append(sum.Failed, name)
			continue
		}
		sum.Processed = append(sum.Processed, name)
	}

	d.logger.Info("jobs.scan_done",
		zap.String("dir", d.inputDir),
		zap.Int("processed", len(sum.Processed)),
		zap.Int("skipped", len(sum.Skipped)),
		zap.Int("failed", len(sum.Failed)))
	return sum, nil
}

// ProcessFile classifies every record of one input file, writes the processed
// CSV and records the file in the ledger.
func (d *DirProcessor) ProcessFile(ctx context.Context, path string, stamp store.FileStamp) (store.LedgerEntry, error) {
	start := time.Now()
	format := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	defer metrics.ObserveDuration(metrics.FileDuration, start, format)

	table, err := ingest.ReadFile(path)
	if err != nil {
		return store.LedgerEntry{}, err
	}

	rows, err := d.pool.Run(ctx, table.Records)
	if err != nil {
		return store.LedgerEntry{}, err
	}

	out, err := d.writer.WriteProcessed(table.Source, table.Header, rows)
	if err != nil {
		return store.LedgerEntry{}, err
	}

	low := 0
	for _, r := range rows {
		if r.LowConfidence {
			low++
		}
	}

	entry := store.LedgerEntry{
		File:          table.Source,
		Stamp:         stamp,
		OutputFile:    filepath.Base(out),
		Rows:          len(rows),
		LowConfidence: low,
		ProcessedAt:   time.Now().UTC(),
	}

	if d.ledger != nil {
		if err := d.ledger.SaveRows(ctx, rows); err != nil {
			return entry, fmt.Errorf("save rows of %s: %w", table.Source, err)
		}
	}

	if d.publisher != nil {
		evt := model.FileProcessedEvent{
			SourceFile:    entry.File,
			OutputFile:    entry.OutputFile,
			Rows:          entry.Rows,
			LowConfidence: entry.LowConfidence,
			DurationMS:    time.Since(start).Milliseconds(),
			Timestamp:     entry.ProcessedAt,
		}
		if err := d.publisher.PublishFileProcessed(ctx, evt, uuid.New()); err != nil {
			d.logger.Warn("jobs.nats_publish_failed", zap.String("file", entry.File), zap.Error(err))
		}
	}

	if d.ledger != nil {
		if err := d.ledger.MarkProcessed(ctx, entry); err != nil {
			return entry, fmt.Errorf("mark %s processed: %w", table.Source, err)
		}
	}

	d.logger.Info("jobs.file_processed",
		zap.String("file", entry.File),
		zap.String("output", entry.OutputFile),
		zap.Int("rows", entry.Rows),
		zap.Int("low_confidence", entry.LowConfidence),
		zap.Duration("duration", time.Since(start)))
	return entry, nil
}
