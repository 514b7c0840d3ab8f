package jobs

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Checker-Finance/adviser-fees/internal/pool"
	"github.com/Checker-Finance/adviser-fees/pkg/model"
)

// RowSaver persists output rows.
type RowSaver interface {
	SaveRows(ctx context.Context, rows []model.OutputRow) error
}

// RecordPublisher emits record.classified events.
type RecordPublisher interface {
	PublishRecordClassified(ctx context.Context, row model.OutputRow, correlationID uuid.UUID) error
}

// RecordJob classifies records taken off the work queue, publishes the
// result and persists it. Any returned error leaves the record for retry;
// the row upsert and the event message ID are both keyed on the record, so
// a retry does not duplicate anything downstream.
type RecordJob struct {
	processor pool.RecordProcessor
	saver     RowSaver
	publisher RecordPublisher
	logger    *zap.Logger
}

// NewRecordJob builds the queue handler. saver and publisher may be nil.
func NewRecordJob(processor pool.RecordProcessor, saver RowSaver, pub RecordPublisher, logger *zap.Logger) *RecordJob {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RecordJob{processor: processor, saver: saver, publisher: pub, logger: logger}
}

// HandleRecord implements rabbitmq.RecordHandler.
func (j *RecordJob) HandleRecord(ctx context.Context, raw model.RawRecord) error {
	row := j.processor.Process(raw)

	if j.publisher != nil {
		if err := j.publisher.PublishRecordClassified(ctx, row, uuid.Nil); err != nil {
			return fmt.Errorf("publish row %s#%d: %w", raw.SourceFile, raw.RowIndex, err)
		}
	}

	if j.saver != nil {
		if err := j.saver.SaveRows(ctx, []model.OutputRow{row}); err != nil {
			return fmt.Errorf("save row %s#%d: %w", raw.SourceFile, raw.RowIndex, err)
		}
	}

	j.logger.Debug("jobs.record_handled",
		zap.String("source_file", raw.SourceFile),
		zap.Int("row_index", raw.RowIndex),
		zap.String("phase", string(row.Phase)),
		zap.Bool("low_confidence", row.LowConfidence))
	return nil
}
